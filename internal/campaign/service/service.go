package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"pledger/internal/audit"
	"pledger/internal/campaign"
	"pledger/internal/campaign/store"
	"pledger/internal/platform/metrics"
	"pledger/internal/transfer"
	id "pledger/pkg/domain"
	dErrors "pledger/pkg/domain-errors"
	"pledger/pkg/requestcontext"
)

// Campaign duration bounds: the deadline must sit strictly between these
// offsets from creation time.
const (
	MinDuration = 24 * time.Hour
	MaxDuration = 90 * 24 * time.Hour
)

// Store is the authoritative campaign repository. Update must apply the
// closure atomically per campaign: either the whole mutation commits or none
// of it does.
type Store interface {
	Create(ctx context.Context, c *campaign.Campaign) (id.CampaignID, error)
	Get(ctx context.Context, campaignID id.CampaignID) (*campaign.Campaign, error)
	List(ctx context.Context, offset, limit int) ([]*campaign.Campaign, error)
	Update(ctx context.Context, campaignID id.CampaignID, fn func(*campaign.Campaign) error) error
}

// Verifier is the identity gate consulted before campaign creation.
type Verifier interface {
	IsVerified(ctx context.Context, subject id.Identity) (bool, error)
}

// Issuer mints one receipt per donation event.
type Issuer interface {
	Mint(ctx context.Context, campaignID id.CampaignID, donor id.Identity, amount int64) (id.ReceiptID, error)
}

// Tracker observes completed actions. Recording failures never fail the
// ledger operation.
type Tracker interface {
	Record(ctx context.Context, action audit.Action, actor id.Identity, amount int64) error
}

// Publisher emits action events after completed mutations.
type Publisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// AnalyticsCache is an optional read-through cache for campaign analytics.
type AnalyticsCache interface {
	Get(ctx context.Context, campaignID id.CampaignID) (*campaign.Analytics, bool)
	Set(ctx context.Context, campaignID id.CampaignID, a *campaign.Analytics)
}

// Service owns campaign records, donation accounting, and status
// transitions.
type Service struct {
	store     Store
	verifier  Verifier
	issuer    Issuer
	backend   transfer.Backend
	tracker   Tracker
	publisher Publisher
	cache     AnalyticsCache
	metrics   *metrics.Metrics
	logger    *slog.Logger

	minTarget  int64
	batchLimit int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTracker(tracker Tracker) Option {
	return func(s *Service) { s.tracker = tracker }
}

func WithPublisher(publisher Publisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

func WithAnalyticsCache(cache AnalyticsCache) Option {
	return func(s *Service) { s.cache = cache }
}

func WithMinTarget(minTarget int64) Option {
	return func(s *Service) { s.minTarget = minTarget }
}

func WithBatchLimit(limit int) Option {
	return func(s *Service) { s.batchLimit = limit }
}

func New(store Store, verifier Verifier, issuer Issuer, backend transfer.Backend, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("campaign store is required")
	}
	if verifier == nil {
		return nil, fmt.Errorf("identity verifier is required")
	}
	if issuer == nil {
		return nil, fmt.Errorf("receipt issuer is required")
	}
	if backend == nil {
		return nil, fmt.Errorf("transfer backend is required")
	}
	svc := &Service{
		store:      store,
		verifier:   verifier,
		issuer:     issuer,
		backend:    backend,
		logger:     slog.Default(),
		minTarget:  1,
		batchLimit: 100,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CreateInput carries the owner-supplied campaign parameters.
type CreateInput struct {
	Title       string
	Description string
	Target      int64
	Deadline    time.Time
	ImageRef    string
	Milestones  []int64
}

// Create validates and creates a campaign in Active status with milestone
// index zero. The owner must have passed identity verification.
func (s *Service) Create(ctx context.Context, owner id.Identity, in CreateInput) (*campaign.Campaign, error) {
	verified, err := s.verifier.IsVerified(ctx, owner)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check verification")
	}
	if !verified {
		return nil, dErrors.New(dErrors.CodeInvalidKYC, "owner identity is not verified")
	}
	if in.Title == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "title is required")
	}
	if in.Target < s.minTarget {
		return nil, dErrors.New(dErrors.CodeInvalidAmount, "target below configured minimum")
	}
	now := requestcontext.Now(ctx)
	if !in.Deadline.After(now.Add(MinDuration)) || !in.Deadline.Before(now.Add(MaxDuration)) {
		return nil, dErrors.New(dErrors.CodeInvalidDuration, "deadline must be between 1 and 90 days in the future")
	}
	if !campaign.ValidateSchedule(in.Milestones) {
		return nil, dErrors.New(dErrors.CodeInvalidMilestoneCount, "milestones must be 1-10 strictly ascending thresholds")
	}

	c := &campaign.Campaign{
		Owner:       owner,
		Title:       in.Title,
		Description: in.Description,
		Target:      in.Target,
		Deadline:    in.Deadline,
		ImageRef:    in.ImageRef,
		Milestones:  append([]int64(nil), in.Milestones...),
		Status:      campaign.StatusActive,
		CreatedAt:   now,
	}
	campaignID, err := s.store.Create(ctx, c)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create campaign")
	}
	c.ID = campaignID

	if s.metrics != nil {
		s.metrics.CampaignsCreated.Inc()
	}
	s.recordAction(ctx, audit.ActionCampaignCreated, owner, 0, uint64(campaignID))
	return c, nil
}

// Donate appends a donation, mints its receipt, and eagerly promotes the
// campaign to Successful when the target is reached. The whole step is
// atomic: a failed deposit or mint leaves the campaign untouched.
func (s *Service) Donate(ctx context.Context, campaignID id.CampaignID, donor id.Identity, amount int64) (id.ReceiptID, error) {
	if donor.IsNil() {
		return 0, dErrors.New(dErrors.CodeBadRequest, "donor identity is required")
	}

	var receiptID id.ReceiptID
	var promoted bool
	now := requestcontext.Now(ctx)
	err := s.store.Update(ctx, campaignID, func(c *campaign.Campaign) error {
		if amount <= 0 {
			return dErrors.New(dErrors.CodeInvalidAmount, "donation amount must be positive")
		}
		if c.Status != campaign.StatusActive {
			return dErrors.New(dErrors.CodeInvalidStatus, "campaign is not accepting donations")
		}
		if !now.Before(c.Deadline) {
			return dErrors.New(dErrors.CodeDeadlinePassed, "campaign deadline has passed")
		}

		minted, err := s.issuer.Mint(ctx, campaignID, donor, amount)
		if err != nil {
			return err
		}

		// The deposit is the last fallible step: escrow never holds funds
		// for a donation the campaign did not record.
		if err := s.backend.Deposit(ctx, transfer.EscrowAccount(campaignID), amount); err != nil {
			return dErrors.Wrap(err, dErrors.CodeTransferFailed, "failed to move pledged funds into escrow")
		}
		receiptID = minted

		c.Donors = append(c.Donors, donor)
		c.DonationAmounts = append(c.DonationAmounts, amount)
		c.AmountCollected += amount

		if c.AmountCollected >= c.Target {
			c.Status = campaign.StatusSuccessful
			promoted = true
		}
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return 0, dErrors.New(dErrors.CodeNotFound, "campaign not found")
	}
	if err != nil {
		return 0, err
	}

	if s.metrics != nil {
		s.metrics.Donations.Inc()
		if promoted {
			s.metrics.IncStatusTransition(string(campaign.StatusSuccessful))
		}
	}
	s.recordAction(ctx, audit.ActionDonationMade, donor, amount, uint64(campaignID))
	return receiptID, nil
}

// EvaluateStatus lazily resolves an Active campaign whose deadline has
// passed. Idempotent: resolved campaigns are untouched. There is no
// scheduler; callers (reads, batch jobs) invoke this on interaction.
func (s *Service) EvaluateStatus(ctx context.Context, campaignID id.CampaignID) (campaign.Status, error) {
	var result campaign.Status
	var transitioned bool
	now := requestcontext.Now(ctx)
	err := s.store.Update(ctx, campaignID, func(c *campaign.Campaign) error {
		if c.Status != campaign.StatusActive || !now.After(c.Deadline) {
			result = c.Status
			return nil
		}
		if c.AmountCollected >= c.Target {
			c.Status = campaign.StatusSuccessful
		} else {
			c.Status = campaign.StatusFailed
		}
		result = c.Status
		transitioned = true
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return "", dErrors.New(dErrors.CodeNotFound, "campaign not found")
	}
	if err != nil {
		return "", err
	}

	if transitioned {
		s.metrics.IncStatusTransition(string(result))
		if s.publisher != nil {
			_ = s.publisher.Emit(ctx, audit.Event{
				Action:   audit.ActionStatusResolved,
				Entity:   "campaign",
				EntityID: uint64(campaignID),
				Detail:   string(result),
			})
		}
	}
	return result, nil
}

// BatchEvaluateStatus evaluates up to the configured limit of campaigns.
// Each campaign resolves atomically on its own; the batch is not a
// transaction.
func (s *Service) BatchEvaluateStatus(ctx context.Context, ids []id.CampaignID) ([]campaign.StatusResult, error) {
	if len(ids) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "no campaign ids given")
	}
	if len(ids) > s.batchLimit {
		return nil, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("batch size exceeds limit of %d", s.batchLimit))
	}

	// Pin one clock for the whole batch so evaluation order cannot change
	// outcomes.
	ctx = requestcontext.WithTime(ctx, requestcontext.Now(ctx))

	results := make([]campaign.StatusResult, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, campaignID := range ids {
		g.Go(func() error {
			status, err := s.EvaluateStatus(gctx, campaignID)
			results[i] = campaign.StatusResult{CampaignID: campaignID, Status: status}
			if err != nil {
				results[i].Error = err.Error()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "batch evaluation failed")
	}
	return results, nil
}

// Withdraw transfers the collected amount to the owner and marks the
// campaign Paid. At-most-once: a second call fails with InvalidStatus. The
// transfer and the flag update commit together or not at all.
func (s *Service) Withdraw(ctx context.Context, campaignID id.CampaignID, caller id.Identity) (int64, error) {
	var amount int64
	err := s.store.Update(ctx, campaignID, func(c *campaign.Campaign) error {
		if caller != c.Owner {
			return dErrors.New(dErrors.CodeNotOwner, "only the campaign owner may withdraw")
		}
		if c.Status == campaign.StatusPaid || c.PaidOut {
			return dErrors.New(dErrors.CodeInvalidStatus, "campaign already paid out")
		}
		if c.Status != campaign.StatusSuccessful {
			return dErrors.New(dErrors.CodeInvalidStatus, "campaign is not successful")
		}

		amount = c.AmountCollected
		err := s.backend.Transfer(ctx, transfer.EscrowAccount(campaignID), transfer.IdentityAccount(c.Owner), amount)
		if errors.Is(err, transfer.ErrInsufficientFunds) {
			return dErrors.Wrap(err, dErrors.CodeInsufficientFunds, "escrow cannot cover withdrawal")
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeTransferFailed, "payout transfer failed")
		}

		c.Status = campaign.StatusPaid
		c.PaidOut = true
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return 0, dErrors.New(dErrors.CodeNotFound, "campaign not found")
	}
	if err != nil {
		return 0, err
	}

	if s.metrics != nil {
		s.metrics.Withdrawals.Inc()
		s.metrics.IncStatusTransition(string(campaign.StatusPaid))
	}
	s.recordAction(ctx, audit.ActionFundsWithdrawn, caller, amount, uint64(campaignID))
	return amount, nil
}

// ReplaceMilestones swaps the full milestone schedule. This is the
// governance ParameterChange effect; unlike the owner's single-entry update
// it validates the whole schedule. The milestone pointer is clamped so the
// monotone index invariant survives a shorter schedule.
func (s *Service) ReplaceMilestones(ctx context.Context, campaignID id.CampaignID, schedule []int64) error {
	if !campaign.ValidateSchedule(schedule) {
		return dErrors.New(dErrors.CodeInvalidMilestoneCount, "replacement schedule must be 1-10 strictly ascending thresholds")
	}
	err := s.store.Update(ctx, campaignID, func(c *campaign.Campaign) error {
		c.Milestones = append([]int64(nil), schedule...)
		if c.CurrentMilestoneIndex >= len(c.Milestones) {
			c.CurrentMilestoneIndex = len(c.Milestones) - 1
		}
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "campaign not found")
	}
	return err
}

// Get returns a campaign snapshot.
func (s *Service) Get(ctx context.Context, campaignID id.CampaignID) (*campaign.Campaign, error) {
	c, err := s.store.Get(ctx, campaignID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "campaign not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load campaign")
	}
	return c, nil
}

// List returns campaigns ordered by ID.
func (s *Service) List(ctx context.Context, offset, limit int) ([]*campaign.Campaign, error) {
	if offset < 0 || limit < 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "offset and limit must be non-negative")
	}
	out, err := s.store.List(ctx, offset, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list campaigns")
	}
	return out, nil
}

// Analytics computes the read-model for one campaign, serving from the cache
// when configured.
func (s *Service) Analytics(ctx context.Context, campaignID id.CampaignID) (*campaign.Analytics, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, campaignID); ok {
			return cached, nil
		}
	}

	c, err := s.Get(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var remaining int64
	if c.Deadline.After(now) {
		remaining = int64(c.Deadline.Sub(now).Seconds())
	}
	var progress int64
	if c.Target > 0 {
		progress = c.AmountCollected * 100 / c.Target
	}
	a := &campaign.Analytics{
		CampaignID:             c.ID,
		TotalBackers:           c.TotalBackers(),
		FundingProgressPercent: progress,
		TimeRemainingSeconds:   remaining,
		CurrentMilestoneIndex:  c.CurrentMilestoneIndex,
	}
	if s.cache != nil {
		s.cache.Set(ctx, campaignID, a)
	}
	return a, nil
}

func (s *Service) recordAction(ctx context.Context, action audit.Action, actor id.Identity, amount int64, entityID uint64) {
	if s.publisher != nil {
		if err := s.publisher.Emit(ctx, audit.Event{
			Actor:    actor,
			Action:   action,
			Entity:   "campaign",
			EntityID: entityID,
			Amount:   amount,
		}); err != nil {
			s.logger.WarnContext(ctx, "failed to emit action event", "action", action, "error", err)
		}
	}
	if s.tracker != nil {
		if err := s.tracker.Record(ctx, action, actor, amount); err != nil {
			s.logger.WarnContext(ctx, "failed to record reputation action", "action", action, "error", err)
		}
	}
}
