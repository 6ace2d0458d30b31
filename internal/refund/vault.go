// Package refund disburses refunds for failed campaigns, exactly once per
// donor. The claimed flag and the transfer commit together or not at all.
package refund

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"pledger/internal/audit"
	"pledger/internal/campaign"
	"pledger/internal/campaign/store"
	"pledger/internal/platform/metrics"
	"pledger/internal/transfer"
	id "pledger/pkg/domain"
	dErrors "pledger/pkg/domain-errors"
)

// ErrAlreadyClaimed is returned by claim stores on a duplicate claim.
var ErrAlreadyClaimed = errors.New("refund already claimed")

// CampaignReader provides campaign snapshots. Failed is a terminal status,
// so a snapshot read is safe against concurrent mutation.
type CampaignReader interface {
	Get(ctx context.Context, campaignID id.CampaignID) (*campaign.Campaign, error)
}

// ClaimStore records per-(campaign, donor) claims. Claim must mark the pair
// claimed only when fn succeeds, and reject duplicates with
// ErrAlreadyClaimed.
type ClaimStore interface {
	Claim(ctx context.Context, campaignID id.CampaignID, donor id.Identity, fn func() error) error
	Claimed(ctx context.Context, campaignID id.CampaignID, donor id.Identity) (bool, error)
}

// Publisher emits action events after completed mutations.
type Publisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Vault computes and disburses refunds.
type Vault struct {
	campaigns CampaignReader
	claims    ClaimStore
	backend   transfer.Backend
	publisher Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

type Option func(*Vault)

func WithPublisher(publisher Publisher) Option {
	return func(v *Vault) { v.publisher = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(v *Vault) { v.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(v *Vault) { v.logger = logger }
}

func New(campaigns CampaignReader, claims ClaimStore, backend transfer.Backend, opts ...Option) (*Vault, error) {
	if campaigns == nil {
		return nil, fmt.Errorf("campaign reader is required")
	}
	if claims == nil {
		return nil, fmt.Errorf("claim store is required")
	}
	if backend == nil {
		return nil, fmt.Errorf("transfer backend is required")
	}
	v := &Vault{campaigns: campaigns, claims: claims, backend: backend, logger: slog.Default()}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Claim refunds a donor's cumulative donation to a failed campaign. A second
// claim for the same pair fails with RefundAlreadyClaimed and moves no
// funds.
func (v *Vault) Claim(ctx context.Context, campaignID id.CampaignID, donor id.Identity) (int64, error) {
	c, err := v.campaigns.Get(ctx, campaignID)
	if errors.Is(err, store.ErrNotFound) {
		return 0, dErrors.New(dErrors.CodeNotFound, "campaign not found")
	}
	if err != nil {
		return 0, err
	}
	if c.Status != campaign.StatusFailed {
		return 0, dErrors.New(dErrors.CodeCampaignNotFailed, "campaign has not failed")
	}
	amount := c.DonatedBy(donor)
	if amount <= 0 {
		return 0, dErrors.New(dErrors.CodeInvalidAmount, "nothing to refund for donor")
	}

	err = v.claims.Claim(ctx, campaignID, donor, func() error {
		terr := v.backend.Transfer(ctx, transfer.EscrowAccount(campaignID), transfer.IdentityAccount(donor), amount)
		if errors.Is(terr, transfer.ErrInsufficientFunds) {
			return dErrors.Wrap(terr, dErrors.CodeInsufficientFunds, "escrow cannot cover refund")
		}
		if terr != nil {
			return dErrors.Wrap(terr, dErrors.CodeTransferFailed, "refund transfer failed")
		}
		return nil
	})
	if errors.Is(err, ErrAlreadyClaimed) {
		return 0, dErrors.New(dErrors.CodeRefundAlreadyClaimed, "refund already claimed for donor")
	}
	if err != nil {
		return 0, err
	}

	if v.metrics != nil {
		v.metrics.RefundsClaimed.Inc()
	}
	if v.publisher != nil {
		if perr := v.publisher.Emit(ctx, audit.Event{
			Actor:    donor,
			Action:   audit.ActionRefundClaimed,
			Entity:   "campaign",
			EntityID: uint64(campaignID),
			Amount:   amount,
		}); perr != nil {
			v.logger.WarnContext(ctx, "failed to emit refund event", "error", perr)
		}
	}
	return amount, nil
}
