package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"pledger/internal/audit"
	"pledger/internal/campaign"
	"pledger/internal/governance"
	"pledger/internal/governance/store"
	"pledger/internal/platform/metrics"
	id "pledger/pkg/domain"
	dErrors "pledger/pkg/domain-errors"
	"pledger/pkg/requestcontext"
)

// Store is the authoritative proposal repository. Update must apply the
// closure atomically per proposal.
type Store interface {
	Create(ctx context.Context, p *governance.Proposal) (id.ProposalID, error)
	Get(ctx context.Context, proposalID id.ProposalID) (*governance.Proposal, error)
	List(ctx context.Context, offset, limit int) ([]*governance.Proposal, error)
	Update(ctx context.Context, proposalID id.ProposalID, fn func(*governance.Proposal) error) error
}

// Verifier is the identity gate consulted before proposal creation and
// voting.
type Verifier interface {
	IsVerified(ctx context.Context, subject id.Identity) (bool, error)
}

// CampaignLedger is what proposal validation and effect application need
// from the campaign side.
type CampaignLedger interface {
	Get(ctx context.Context, campaignID id.CampaignID) (*campaign.Campaign, error)
	ReplaceMilestones(ctx context.Context, campaignID id.CampaignID, schedule []int64) error
}

// Tracker observes completed actions.
type Tracker interface {
	Record(ctx context.Context, action audit.Action, actor id.Identity, amount int64) error
}

// Publisher emits action events after completed mutations.
type Publisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// WeightFunc decides a voter's weight. The observed client behavior is
// ambiguous between one-identity-one-vote and weighted voting, so the rule
// is injectable; the default is a fixed weight of one.
type WeightFunc func(ctx context.Context, voter id.Identity) (int64, error)

// WeightOne is the default weighting: every verified voter counts once.
func WeightOne(context.Context, id.Identity) (int64, error) {
	return 1, nil
}

// StatsReader reads reputation stats for weighted voting.
type StatsReader interface {
	Tier(ctx context.Context, subject id.Identity) (int, error)
}

// NewTierWeight builds a WeightFunc that counts 1 + reputation tier.
func NewTierWeight(stats StatsReader) WeightFunc {
	return func(ctx context.Context, voter id.Identity) (int64, error) {
		tier, err := stats.Tier(ctx, voter)
		if err != nil {
			return 0, err
		}
		return int64(1 + tier), nil
	}
}

// Service runs the proposal lifecycle: creation, quorum-gated voting, and
// effect execution.
type Service struct {
	store     Store
	verifier  Verifier
	campaigns CampaignLedger
	weight    WeightFunc
	tracker   Tracker
	publisher Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger

	// quorum is the global minimum total vote weight, adjustable at runtime
	// and never zero.
	quorum atomic.Int64
}

type Option func(*Service)

func WithWeightFunc(weight WeightFunc) Option {
	return func(s *Service) { s.weight = weight }
}

func WithTracker(tracker Tracker) Option {
	return func(s *Service) { s.tracker = tracker }
}

func WithPublisher(publisher Publisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(store Store, verifier Verifier, campaigns CampaignLedger, quorum int64, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("proposal store is required")
	}
	if verifier == nil {
		return nil, fmt.Errorf("identity verifier is required")
	}
	if campaigns == nil {
		return nil, fmt.Errorf("campaign ledger is required")
	}
	if quorum <= 0 {
		return nil, fmt.Errorf("quorum must be positive")
	}
	svc := &Service{
		store:     store,
		verifier:  verifier,
		campaigns: campaigns,
		weight:    WeightOne,
		logger:    slog.Default(),
	}
	svc.quorum.Store(quorum)
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Quorum returns the current global quorum.
func (s *Service) Quorum() int64 {
	return s.quorum.Load()
}

// SetQuorum adjusts the global quorum. Zero is never permitted.
func (s *Service) SetQuorum(quorum int64) error {
	if quorum <= 0 {
		return dErrors.New(dErrors.CodeBadRequest, "quorum must be positive")
	}
	s.quorum.Store(quorum)
	return nil
}

// CreateInput carries the creator-supplied proposal parameters.
type CreateInput struct {
	CampaignID    id.CampaignID
	Description   string
	Type          governance.ProposalType
	VotingPeriod  time.Duration
	NewMilestones []int64
}

// Create validates and creates a proposal with zero votes.
func (s *Service) Create(ctx context.Context, creator id.Identity, in CreateInput) (*governance.Proposal, error) {
	verified, err := s.verifier.IsVerified(ctx, creator)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check verification")
	}
	if !verified {
		return nil, dErrors.New(dErrors.CodeInvalidKYC, "creator identity is not verified")
	}
	if !in.Type.IsValid() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid proposal type")
	}
	if in.Description == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "description is required")
	}
	if in.VotingPeriod < governance.MinVotingPeriod || in.VotingPeriod > governance.MaxVotingPeriod {
		return nil, dErrors.New(dErrors.CodeInvalidDuration, "voting period must be between 1 and 7 days")
	}
	if in.Type == governance.TypeParameterChange && !campaign.ValidateSchedule(in.NewMilestones) {
		return nil, dErrors.New(dErrors.CodeInvalidMilestoneCount, "replacement schedule must be 1-10 strictly ascending thresholds")
	}
	if _, err := s.campaigns.Get(ctx, in.CampaignID); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	p := &governance.Proposal{
		CampaignID:    in.CampaignID,
		Creator:       creator,
		Description:   in.Description,
		Type:          in.Type,
		EndTime:       now.Add(in.VotingPeriod),
		CreatedAt:     now,
		Voters:        make(map[id.Identity]int64),
		NewMilestones: append([]int64(nil), in.NewMilestones...),
	}
	proposalID, err := s.store.Create(ctx, p)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create proposal")
	}
	p.ID = proposalID

	if s.metrics != nil {
		s.metrics.ProposalsCreated.Inc()
	}
	s.recordAction(ctx, audit.ActionProposalCreated, creator, uint64(proposalID))
	return p, nil
}

// Vote casts a weighted vote. One vote per (voter, proposal); voting closes
// at the proposal's end time.
func (s *Service) Vote(ctx context.Context, proposalID id.ProposalID, voter id.Identity, support bool) error {
	verified, err := s.verifier.IsVerified(ctx, voter)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check verification")
	}
	if !verified {
		return dErrors.New(dErrors.CodeInvalidKYC, "voter identity is not verified")
	}

	weight, err := s.weight(ctx, voter)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to derive vote weight")
	}
	if weight <= 0 {
		return dErrors.New(dErrors.CodeInvalidAmount, "vote weight must be positive")
	}

	now := requestcontext.Now(ctx)
	err = s.store.Update(ctx, proposalID, func(p *governance.Proposal) error {
		if p.Executed {
			return dErrors.New(dErrors.CodeAlreadyExecuted, "proposal already executed")
		}
		if now.After(p.EndTime) {
			return dErrors.New(dErrors.CodeDeadlinePassed, "voting has ended")
		}
		if _, voted := p.Voters[voter]; voted {
			return dErrors.New(dErrors.CodeAlreadyVoted, "identity already voted on proposal")
		}
		p.Voters[voter] = weight
		if support {
			p.ForVotes += weight
		} else {
			p.AgainstVotes += weight
		}
		p.TotalVotes += weight
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "proposal not found")
	}
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.VotesCast.Inc()
	}
	s.recordAction(ctx, audit.ActionVoteCast, voter, uint64(proposalID))
	return nil
}

// Execute applies a passed proposal's effect exactly once. Requires the
// voting window to be over, quorum met, and strictly more weight for than
// against. The executed flag and the effect commit together: a failed
// effect rolls the flag back.
func (s *Service) Execute(ctx context.Context, proposalID id.ProposalID, caller id.Identity) error {
	now := requestcontext.Now(ctx)
	quorum := s.Quorum()
	err := s.store.Update(ctx, proposalID, func(p *governance.Proposal) error {
		if p.Executed {
			return dErrors.New(dErrors.CodeAlreadyExecuted, "proposal already executed")
		}
		if !now.After(p.EndTime) {
			return dErrors.New(dErrors.CodeInvalidStatus, "voting has not ended")
		}
		if p.TotalVotes < quorum {
			return dErrors.New(dErrors.CodeQuorumNotMet, "proposal did not reach quorum")
		}
		if p.ForVotes <= p.AgainstVotes {
			return dErrors.New(dErrors.CodeProposalRejected, "proposal was rejected")
		}

		// Effect application happens inside the proposal lock; the campaign
		// store lock nests inside, matching the fixed proposals-then-
		// campaigns order everywhere.
		if p.Type == governance.TypeParameterChange {
			if err := s.campaigns.ReplaceMilestones(ctx, p.CampaignID, p.NewMilestones); err != nil {
				return err
			}
		}
		p.Executed = true
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "proposal not found")
	}
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.ProposalsExecuted.Inc()
	}
	s.recordAction(ctx, audit.ActionProposalExecuted, caller, uint64(proposalID))
	return nil
}

// Get returns a proposal snapshot.
func (s *Service) Get(ctx context.Context, proposalID id.ProposalID) (*governance.Proposal, error) {
	p, err := s.store.Get(ctx, proposalID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "proposal not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load proposal")
	}
	return p, nil
}

// List returns proposals ordered by ID.
func (s *Service) List(ctx context.Context, offset, limit int) ([]*governance.Proposal, error) {
	if offset < 0 || limit < 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "offset and limit must be non-negative")
	}
	out, err := s.store.List(ctx, offset, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list proposals")
	}
	return out, nil
}

func (s *Service) recordAction(ctx context.Context, action audit.Action, actor id.Identity, entityID uint64) {
	if s.publisher != nil {
		if err := s.publisher.Emit(ctx, audit.Event{
			Actor:    actor,
			Action:   action,
			Entity:   "proposal",
			EntityID: entityID,
		}); err != nil {
			s.logger.WarnContext(ctx, "failed to emit action event", "action", action, "error", err)
		}
	}
	if s.tracker != nil {
		if err := s.tracker.Record(ctx, action, actor, 0); err != nil {
			s.logger.WarnContext(ctx, "failed to record reputation action", "action", action, "error", err)
		}
	}
}
