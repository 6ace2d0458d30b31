// Package reputation scores user actions and derives a coarse tier for
// display. The tracker is purely additive and has no failure modes of its
// own: callers treat recording errors as log-and-continue.
package reputation

import (
	"context"
	"fmt"
	"log/slog"

	"pledger/internal/audit"
	id "pledger/pkg/domain"
	dErrors "pledger/pkg/domain-errors"
	"pledger/pkg/requestcontext"
)

// Points awarded per qualifying action.
const (
	PointsCampaignCreated = 10
	PointsDonationMade    = 5
	PointsProposalCreated = 8
	PointsVoteCast        = 3
)

// Store persists user stats keyed by identity. Update creates the record on
// first use.
type Store interface {
	Get(ctx context.Context, subject id.Identity) (*UserStats, error)
	Update(ctx context.Context, subject id.Identity, fn func(*UserStats) error) error
}

// Publisher emits tier-change notifications into the action stream.
type Publisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Tracker observes completed actions and keeps per-identity stats current.
type Tracker struct {
	store         Store
	publisher     Publisher
	pointsPerTier int64
	logger        *slog.Logger
}

type Option func(*Tracker)

func WithPublisher(publisher Publisher) Option {
	return func(t *Tracker) {
		t.publisher = publisher
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger
	}
}

func New(store Store, pointsPerTier int64, opts ...Option) (*Tracker, error) {
	if store == nil {
		return nil, fmt.Errorf("stats store is required")
	}
	if pointsPerTier <= 0 {
		return nil, fmt.Errorf("points per tier must be positive")
	}
	t := &Tracker{store: store, pointsPerTier: pointsPerTier, logger: slog.Default()}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Record applies one completed action to the actor's stats and emits a
// notification when the tier increases.
func (t *Tracker) Record(ctx context.Context, action audit.Action, actor id.Identity, amount int64) error {
	if actor.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "actor identity is required")
	}

	var tierBefore, tierAfter int
	err := t.store.Update(ctx, actor, func(stats *UserStats) error {
		tierBefore = stats.ReputationTier
		switch action {
		case audit.ActionCampaignCreated:
			stats.CampaignsCreated++
			stats.ReputationScore += PointsCampaignCreated
		case audit.ActionDonationMade:
			stats.CampaignsBacked++
			stats.TotalDonated += amount
			stats.ReputationScore += PointsDonationMade
		case audit.ActionProposalCreated:
			stats.ProposalsCreated++
			stats.ReputationScore += PointsProposalCreated
		case audit.ActionVoteCast:
			stats.ProposalsVoted++
			stats.ReputationScore += PointsVoteCast
		default:
			// Non-qualifying actions still bump activity.
		}
		stats.ReputationTier = TierFor(stats.ReputationScore, t.pointsPerTier)
		stats.LastActivity = requestcontext.Now(ctx)
		tierAfter = stats.ReputationTier
		return nil
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record action")
	}

	if tierAfter > tierBefore && t.publisher != nil {
		event := audit.Event{
			Actor:    actor,
			Action:   audit.ActionTierIncreased,
			Detail:   fmt.Sprintf("tier %d -> %d", tierBefore, tierAfter),
			EntityID: uint64(tierAfter),
			Entity:   "reputation",
		}
		if err := t.publisher.Emit(ctx, event); err != nil {
			t.logger.WarnContext(ctx, "failed to emit tier change", "actor", actor, "error", err)
		}
	}
	return nil
}

// Stats returns the stats for an identity. Unknown identities get zero-value
// stats rather than an error so dashboards render without special cases.
func (t *Tracker) Stats(ctx context.Context, subject id.Identity) (*UserStats, error) {
	stats, err := t.store.Get(ctx, subject)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user stats")
	}
	if stats == nil {
		return &UserStats{Identity: subject}, nil
	}
	return stats, nil
}
