package receipt

import (
	"context"
	"fmt"

	id "pledger/pkg/domain"
	dErrors "pledger/pkg/domain-errors"
	"pledger/pkg/requestcontext"
)

// Store persists receipts append-only and allocates the next receipt ID.
type Store interface {
	Append(ctx context.Context, receipt *Receipt) (id.ReceiptID, error)
	Get(ctx context.Context, receiptID id.ReceiptID) (*Receipt, error)
	ListByDonor(ctx context.Context, donor id.Identity) ([]*Receipt, error)
	ListByCampaign(ctx context.Context, campaignID id.CampaignID) ([]*Receipt, error)
}

// Issuer allocates receipt IDs and stores the issued records.
type Issuer struct {
	store Store
}

func NewIssuer(store Store) (*Issuer, error) {
	if store == nil {
		return nil, fmt.Errorf("receipt store is required")
	}
	return &Issuer{store: store}, nil
}

// Mint issues the next receipt for a donation and returns its ID.
func (i *Issuer) Mint(ctx context.Context, campaignID id.CampaignID, donor id.Identity, amount int64) (id.ReceiptID, error) {
	if amount <= 0 {
		return 0, dErrors.New(dErrors.CodeInvalidAmount, "receipt amount must be positive")
	}
	receiptID, err := i.store.Append(ctx, &Receipt{
		CampaignID: campaignID,
		Donor:      donor,
		Amount:     amount,
		IssuedAt:   requestcontext.Now(ctx),
	})
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mint receipt")
	}
	return receiptID, nil
}

// Get returns a receipt by ID.
func (i *Issuer) Get(ctx context.Context, receiptID id.ReceiptID) (*Receipt, error) {
	r, err := i.store.Get(ctx, receiptID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "receipt not found")
	}
	return r, nil
}

// ListByDonor returns all receipts held by a donor, oldest first.
func (i *Issuer) ListByDonor(ctx context.Context, donor id.Identity) ([]*Receipt, error) {
	receipts, err := i.store.ListByDonor(ctx, donor)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list receipts")
	}
	return receipts, nil
}

// ListByCampaign returns all receipts minted against a campaign.
func (i *Issuer) ListByCampaign(ctx context.Context, campaignID id.CampaignID) ([]*Receipt, error) {
	receipts, err := i.store.ListByCampaign(ctx, campaignID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list receipts")
	}
	return receipts, nil
}
