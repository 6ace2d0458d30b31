// Package milestone advances a campaign's milestone pointer against
// owner-submitted proof and keeps an audit trail of submitted proofs.
package milestone

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pledger/internal/audit"
	"pledger/internal/campaign"
	"pledger/internal/campaign/store"
	id "pledger/pkg/domain"
	dErrors "pledger/pkg/domain-errors"
	"pledger/pkg/requestcontext"
)

// Proof records one accepted milestone completion for audit.
type Proof struct {
	CampaignID     id.CampaignID
	MilestoneIndex int
	Submitter      id.Identity
	Proof          string
	SubmittedAt    time.Time
}

// CampaignStore is the subset of the campaign repository the controller
// needs. The campaign store stays the single writer of campaign state.
type CampaignStore interface {
	Update(ctx context.Context, campaignID id.CampaignID, fn func(*campaign.Campaign) error) error
}

// ProofStore persists accepted proofs append-only.
type ProofStore interface {
	Append(ctx context.Context, proof Proof) error
	ListByCampaign(ctx context.Context, campaignID id.CampaignID) ([]Proof, error)
}

// Publisher emits action events after completed mutations.
type Publisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Controller advances milestone pointers. It never moves a pointer backward
// and never past the last threshold.
type Controller struct {
	campaigns CampaignStore
	proofs    ProofStore
	publisher Publisher
	logger    *slog.Logger
}

type Option func(*Controller)

func WithPublisher(publisher Publisher) Option {
	return func(c *Controller) { c.publisher = publisher }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

func New(campaigns CampaignStore, proofs ProofStore, opts ...Option) (*Controller, error) {
	if campaigns == nil {
		return nil, fmt.Errorf("campaign store is required")
	}
	if proofs == nil {
		return nil, fmt.Errorf("proof store is required")
	}
	ctrl := &Controller{campaigns: campaigns, proofs: proofs, logger: slog.Default()}
	for _, opt := range opts {
		opt(ctrl)
	}
	return ctrl, nil
}

// Complete advances the milestone pointer by exactly one and records the
// proof. Fails when the caller is not the owner, the campaign is not Active,
// or every milestone is already completed.
func (ctrl *Controller) Complete(ctx context.Context, campaignID id.CampaignID, caller id.Identity, proof string) (int, error) {
	if proof == "" {
		return 0, dErrors.New(dErrors.CodeBadRequest, "proof is required")
	}

	var newIndex int
	err := ctrl.campaigns.Update(ctx, campaignID, func(c *campaign.Campaign) error {
		if caller != c.Owner {
			return dErrors.New(dErrors.CodeUnauthorized, "only the campaign owner may complete milestones")
		}
		if c.Status != campaign.StatusActive {
			return dErrors.New(dErrors.CodeInvalidStatus, "campaign is not active")
		}
		if c.CurrentMilestoneIndex >= len(c.Milestones)-1 {
			return dErrors.New(dErrors.CodeInvalidMilestoneCount, "all milestones already completed")
		}
		c.CurrentMilestoneIndex++
		newIndex = c.CurrentMilestoneIndex

		return ctrl.proofs.Append(ctx, Proof{
			CampaignID:     campaignID,
			MilestoneIndex: newIndex,
			Submitter:      caller,
			Proof:          proof,
			SubmittedAt:    requestcontext.Now(ctx),
		})
	})
	if errors.Is(err, store.ErrNotFound) {
		return 0, dErrors.New(dErrors.CodeNotFound, "campaign not found")
	}
	if err != nil {
		return 0, err
	}

	ctrl.emit(ctx, audit.ActionMilestoneCompleted, caller, campaignID, fmt.Sprintf("index %d", newIndex))
	return newIndex, nil
}

// Update overwrites a single milestone threshold. Bounds-checked but, by
// observed product behavior, it does not revalidate ascending order against
// neighbors; schedule-wide changes go through governance instead.
func (ctrl *Controller) Update(ctx context.Context, campaignID id.CampaignID, caller id.Identity, index int, newValue int64) error {
	if newValue <= 0 {
		return dErrors.New(dErrors.CodeInvalidAmount, "milestone threshold must be positive")
	}
	err := ctrl.campaigns.Update(ctx, campaignID, func(c *campaign.Campaign) error {
		if caller != c.Owner {
			return dErrors.New(dErrors.CodeUnauthorized, "only the campaign owner may update milestones")
		}
		if index < 0 || index >= len(c.Milestones) {
			return dErrors.New(dErrors.CodeInvalidMilestoneCount, "milestone index out of range")
		}
		c.Milestones[index] = newValue
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "campaign not found")
	}
	if err != nil {
		return err
	}

	ctrl.emit(ctx, audit.ActionMilestoneUpdated, caller, campaignID, fmt.Sprintf("index %d", index))
	return nil
}

// Proofs returns the accepted proofs for a campaign, oldest first.
func (ctrl *Controller) Proofs(ctx context.Context, campaignID id.CampaignID) ([]Proof, error) {
	proofs, err := ctrl.proofs.ListByCampaign(ctx, campaignID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list proofs")
	}
	return proofs, nil
}

func (ctrl *Controller) emit(ctx context.Context, action audit.Action, actor id.Identity, campaignID id.CampaignID, detail string) {
	if ctrl.publisher == nil {
		return
	}
	if err := ctrl.publisher.Emit(ctx, audit.Event{
		Actor:    actor,
		Action:   action,
		Entity:   "campaign",
		EntityID: uint64(campaignID),
		Detail:   detail,
	}); err != nil {
		ctrl.logger.WarnContext(ctx, "failed to emit milestone event", "action", action, "error", err)
	}
}
