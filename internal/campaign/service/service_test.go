package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"pledger/internal/campaign"
	"pledger/internal/campaign/store"
	"pledger/internal/receipt"
	"pledger/internal/transfer"
	"pledger/internal/transfer/mocks"
	id "pledger/pkg/domain"
	dErrors "pledger/pkg/domain-errors"
	"pledger/pkg/testutil"
)

// =============================================================================
// Campaign Service Test Suite
// =============================================================================
// Justification for unit tests: donation atomicity, eager promotion, and the
// at-most-once payout rule are timing-sensitive behaviors that need a fixed
// clock to exercise precisely.

type verifierStub map[id.Identity]bool

func (v verifierStub) IsVerified(_ context.Context, subject id.Identity) (bool, error) {
	return v[subject], nil
}

type CampaignServiceSuite struct {
	suite.Suite
	store    *store.InMemoryStore
	receipts *receipt.InMemoryStore
	backend  *transfer.MemoryBackend
	verifier verifierStub
	service  *Service

	base  time.Time
	owner id.Identity
	donor id.Identity
}

func TestCampaignServiceSuite(t *testing.T) {
	suite.Run(t, new(CampaignServiceSuite))
}

func (s *CampaignServiceSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.receipts = receipt.NewInMemoryStore()
	s.backend = transfer.NewMemoryBackend()
	s.owner = id.Identity("owner-1")
	s.donor = id.Identity("donor-1")
	s.verifier = verifierStub{s.owner: true, s.donor: true}
	s.base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	issuer, err := receipt.NewIssuer(s.receipts)
	s.Require().NoError(err)

	s.service, err = New(s.store, s.verifier, issuer, s.backend, WithBatchLimit(3))
	s.Require().NoError(err)
}

func (s *CampaignServiceSuite) ctx() context.Context {
	return testutil.ContextAt(s.base)
}

func (s *CampaignServiceSuite) ctxAt(at time.Time) context.Context {
	return testutil.ContextAt(at)
}

func (s *CampaignServiceSuite) createCampaign(target int64, milestones []int64) *campaign.Campaign {
	c, err := s.service.Create(s.ctx(), s.owner, CreateInput{
		Title:      "clean water",
		Target:     target,
		Deadline:   s.base.Add(48 * time.Hour),
		Milestones: milestones,
	})
	s.Require().NoError(err)
	return c
}

// =============================================================================
// Constructor Tests
// =============================================================================

func (s *CampaignServiceSuite) TestNew() {
	s.Run("nil store returns error", func() {
		_, err := New(nil, s.verifier, &receipt.Issuer{}, s.backend)
		s.Error(err)
		s.Contains(err.Error(), "campaign store is required")
	})

	s.Run("nil backend returns error", func() {
		_, err := New(s.store, s.verifier, &receipt.Issuer{}, nil)
		s.Error(err)
		s.Contains(err.Error(), "transfer backend is required")
	})
}

// =============================================================================
// Create Tests
// =============================================================================

func (s *CampaignServiceSuite) TestCreate() {
	s.Run("unverified owner is rejected", func() {
		_, err := s.service.Create(s.ctx(), id.Identity("stranger"), CreateInput{
			Title:      "x",
			Target:     100,
			Deadline:   s.base.Add(48 * time.Hour),
			Milestones: []int64{50},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidKYC))
	})

	s.Run("missing title is rejected", func() {
		_, err := s.service.Create(s.ctx(), s.owner, CreateInput{
			Target:     100,
			Deadline:   s.base.Add(48 * time.Hour),
			Milestones: []int64{50},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("target below minimum is rejected", func() {
		_, err := s.service.Create(s.ctx(), s.owner, CreateInput{
			Title:      "x",
			Target:     0,
			Deadline:   s.base.Add(48 * time.Hour),
			Milestones: []int64{50},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidAmount))
	})

	s.Run("deadline inside one day is rejected", func() {
		_, err := s.service.Create(s.ctx(), s.owner, CreateInput{
			Title:      "x",
			Target:     100,
			Deadline:   s.base.Add(12 * time.Hour),
			Milestones: []int64{50},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidDuration))
	})

	s.Run("deadline past ninety days is rejected", func() {
		_, err := s.service.Create(s.ctx(), s.owner, CreateInput{
			Title:      "x",
			Target:     100,
			Deadline:   s.base.Add(91 * 24 * time.Hour),
			Milestones: []int64{50},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidDuration))
	})

	s.Run("non-ascending milestones are rejected", func() {
		_, err := s.service.Create(s.ctx(), s.owner, CreateInput{
			Title:      "x",
			Target:     100,
			Deadline:   s.base.Add(48 * time.Hour),
			Milestones: []int64{50, 50},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidMilestoneCount))
	})

	s.Run("valid input creates an active campaign", func() {
		c := s.createCampaign(1000, []int64{300, 700})
		s.False(c.ID.IsNil())
		s.Equal(campaign.StatusActive, c.Status)
		s.Equal(0, c.CurrentMilestoneIndex)
		s.Zero(c.AmountCollected)
		s.Equal(s.base, c.CreatedAt)
	})
}

// =============================================================================
// Donate Tests
// =============================================================================

func (s *CampaignServiceSuite) TestDonate() {
	s.Run("donation records funds and mints a receipt", func() {
		c := s.createCampaign(1000, []int64{500})

		receiptID, err := s.service.Donate(s.ctx(), c.ID, s.donor, 250)
		s.NoError(err)
		s.False(receiptID.IsNil())

		got, err := s.service.Get(s.ctx(), c.ID)
		s.Require().NoError(err)
		s.Equal(int64(250), got.AmountCollected)
		s.Equal([]id.Identity{s.donor}, got.Donors)
		s.Equal(campaign.StatusActive, got.Status)

		balance, err := s.backend.Balance(s.ctx(), transfer.EscrowAccount(c.ID))
		s.NoError(err)
		s.Equal(int64(250), balance)

		minted, err := s.receipts.Get(s.ctx(), receiptID)
		s.Require().NoError(err)
		s.Equal(c.ID, minted.CampaignID)
		s.Equal(int64(250), minted.Amount)
	})

	s.Run("non-positive amount is rejected", func() {
		c := s.createCampaign(1000, []int64{500})
		_, err := s.service.Donate(s.ctx(), c.ID, s.donor, 0)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidAmount))
	})

	s.Run("unknown campaign is not found", func() {
		_, err := s.service.Donate(s.ctx(), id.CampaignID(999), s.donor, 10)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("donation after deadline is rejected", func() {
		c := s.createCampaign(1000, []int64{500})
		_, err := s.service.Donate(s.ctxAt(s.base.Add(72*time.Hour)), c.ID, s.donor, 10)
		s.True(dErrors.HasCode(err, dErrors.CodeDeadlinePassed))
	})

	s.Run("reaching the target promotes the campaign immediately", func() {
		c := s.createCampaign(500, []int64{250})

		_, err := s.service.Donate(s.ctx(), c.ID, s.donor, 500)
		s.Require().NoError(err)

		got, err := s.service.Get(s.ctx(), c.ID)
		s.Require().NoError(err)
		s.Equal(campaign.StatusSuccessful, got.Status)
	})

	s.Run("successful campaign stops accepting donations", func() {
		c := s.createCampaign(500, []int64{250})
		_, err := s.service.Donate(s.ctx(), c.ID, s.donor, 500)
		s.Require().NoError(err)

		_, err = s.service.Donate(s.ctx(), c.ID, s.donor, 10)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidStatus))
	})

	s.Run("collected amount equals the sum of donation events", func() {
		c := s.createCampaign(10000, []int64{5000})
		amounts := []int64{100, 40, 260, 1}
		var sum int64
		for _, amount := range amounts {
			_, err := s.service.Donate(s.ctx(), c.ID, s.donor, amount)
			s.Require().NoError(err)
			sum += amount
		}

		got, err := s.service.Get(s.ctx(), c.ID)
		s.Require().NoError(err)
		var recorded int64
		for _, amount := range got.DonationAmounts {
			recorded += amount
		}
		s.Equal(sum, recorded)
		s.Equal(sum, got.AmountCollected)
	})
}

// A mint failure must abort the whole donation, escrow included.
func (s *CampaignServiceSuite) TestDonateMintFailure() {
	c := s.createCampaign(10000, []int64{5000})

	svc, err := New(s.store, s.verifier, failingIssuer{}, s.backend)
	s.Require().NoError(err)

	_, err = svc.Donate(s.ctx(), c.ID, s.donor, 400)
	s.Require().Error(err)

	escrow, err := s.backend.Balance(s.ctx(), transfer.EscrowAccount(c.ID))
	s.NoError(err)
	s.Zero(escrow, "escrow must not hold funds for a rejected donation")

	got, err := s.service.Get(s.ctx(), c.ID)
	s.Require().NoError(err)
	s.Zero(got.AmountCollected)
	s.Empty(got.Donors)
}

type failingIssuer struct{}

func (failingIssuer) Mint(context.Context, id.CampaignID, id.Identity, int64) (id.ReceiptID, error) {
	return 0, dErrors.New(dErrors.CodeInternal, "receipt store unavailable")
}

// =============================================================================
// Status Evaluation Tests
// =============================================================================

func (s *CampaignServiceSuite) TestEvaluateStatus() {
	s.Run("active campaign before deadline stays active", func() {
		c := s.createCampaign(1000, []int64{500})
		status, err := s.service.EvaluateStatus(s.ctx(), c.ID)
		s.NoError(err)
		s.Equal(campaign.StatusActive, status)
	})

	s.Run("expired campaign below target fails", func() {
		c := s.createCampaign(1000, []int64{500})
		_, err := s.service.Donate(s.ctx(), c.ID, s.donor, 100)
		s.Require().NoError(err)

		status, err := s.service.EvaluateStatus(s.ctxAt(s.base.Add(72*time.Hour)), c.ID)
		s.NoError(err)
		s.Equal(campaign.StatusFailed, status)
	})

	s.Run("evaluation is idempotent", func() {
		c := s.createCampaign(1000, []int64{500})
		after := s.ctxAt(s.base.Add(72 * time.Hour))

		first, err := s.service.EvaluateStatus(after, c.ID)
		s.Require().NoError(err)
		second, err := s.service.EvaluateStatus(after, c.ID)
		s.NoError(err)
		s.Equal(first, second)
	})

	s.Run("unknown campaign is not found", func() {
		_, err := s.service.EvaluateStatus(s.ctx(), id.CampaignID(999))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *CampaignServiceSuite) TestBatchEvaluateStatus() {
	s.Run("empty batch is rejected", func() {
		_, err := s.service.BatchEvaluateStatus(s.ctx(), nil)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("oversized batch is rejected", func() {
		ids := []id.CampaignID{1, 2, 3, 4}
		_, err := s.service.BatchEvaluateStatus(s.ctx(), ids)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("each campaign resolves independently", func() {
		funded := s.createCampaign(100, []int64{50})
		_, err := s.service.Donate(s.ctx(), funded.ID, s.donor, 100)
		s.Require().NoError(err)
		starved := s.createCampaign(1000, []int64{500})

		after := s.ctxAt(s.base.Add(72 * time.Hour))
		results, err := s.service.BatchEvaluateStatus(after, []id.CampaignID{
			funded.ID, starved.ID, id.CampaignID(999),
		})
		s.Require().NoError(err)
		s.Require().Len(results, 3)
		s.Equal(campaign.StatusSuccessful, results[0].Status)
		s.Equal(campaign.StatusFailed, results[1].Status)
		s.NotEmpty(results[2].Error)
	})
}

// =============================================================================
// Withdraw Tests
// =============================================================================

func (s *CampaignServiceSuite) TestWithdraw() {
	fund := func(target int64) *campaign.Campaign {
		c := s.createCampaign(target, []int64{target / 2})
		_, err := s.service.Donate(s.ctx(), c.ID, s.donor, target)
		s.Require().NoError(err)
		return c
	}

	s.Run("non-owner cannot withdraw", func() {
		c := fund(500)
		_, err := s.service.Withdraw(s.ctx(), c.ID, s.donor)
		s.True(dErrors.HasCode(err, dErrors.CodeNotOwner))
	})

	s.Run("active campaign cannot be withdrawn", func() {
		c := s.createCampaign(1000, []int64{500})
		_, err := s.service.Withdraw(s.ctx(), c.ID, s.owner)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidStatus))
	})

	s.Run("successful campaign pays the owner once", func() {
		c := fund(500)

		amount, err := s.service.Withdraw(s.ctx(), c.ID, s.owner)
		s.Require().NoError(err)
		s.Equal(int64(500), amount)

		got, err := s.service.Get(s.ctx(), c.ID)
		s.Require().NoError(err)
		s.Equal(campaign.StatusPaid, got.Status)
		s.True(got.PaidOut)

		escrow, err := s.backend.Balance(s.ctx(), transfer.EscrowAccount(c.ID))
		s.NoError(err)
		s.Zero(escrow)
		ownerBalance, err := s.backend.Balance(s.ctx(), transfer.IdentityAccount(s.owner))
		s.NoError(err)
		s.Equal(int64(500), ownerBalance)

		_, err = s.service.Withdraw(s.ctx(), c.ID, s.owner)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidStatus))
	})
}

func (s *CampaignServiceSuite) TestWithdrawRollback() {
	ctrl := gomock.NewController(s.T())
	backend := mocks.NewMockBackend(ctrl)

	issuer, err := receipt.NewIssuer(receipt.NewInMemoryStore())
	s.Require().NoError(err)
	svc, err := New(store.NewInMemory(), s.verifier, issuer, backend)
	s.Require().NoError(err)

	c, err := svc.Create(s.ctx(), s.owner, CreateInput{
		Title:      "x",
		Target:     500,
		Deadline:   s.base.Add(48 * time.Hour),
		Milestones: []int64{250},
	})
	s.Require().NoError(err)

	backend.EXPECT().Deposit(gomock.Any(), transfer.EscrowAccount(c.ID), int64(500)).Return(nil)
	_, err = svc.Donate(s.ctx(), c.ID, s.donor, 500)
	s.Require().NoError(err)

	backend.EXPECT().
		Transfer(gomock.Any(), transfer.EscrowAccount(c.ID), transfer.IdentityAccount(s.owner), int64(500)).
		Return(transfer.ErrUnavailable)

	_, err = svc.Withdraw(s.ctx(), c.ID, s.owner)
	s.True(dErrors.HasCode(err, dErrors.CodeTransferFailed))

	// The failed transfer must leave the campaign payable.
	got, err := svc.Get(s.ctx(), c.ID)
	s.Require().NoError(err)
	s.Equal(campaign.StatusSuccessful, got.Status)
	s.False(got.PaidOut)
	s.Equal(int64(500), got.AmountCollected)
}

// =============================================================================
// Milestone Replacement and Analytics Tests
// =============================================================================

func (s *CampaignServiceSuite) TestReplaceMilestones() {
	s.Run("invalid schedule is rejected", func() {
		c := s.createCampaign(1000, []int64{500})
		err := s.service.ReplaceMilestones(s.ctx(), c.ID, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidMilestoneCount))
	})

	s.Run("shorter schedule clamps the milestone pointer", func() {
		c := s.createCampaign(1000, []int64{100, 200, 300})
		err := s.store.Update(s.ctx(), c.ID, func(c *campaign.Campaign) error {
			c.CurrentMilestoneIndex = 2
			return nil
		})
		s.Require().NoError(err)

		s.Require().NoError(s.service.ReplaceMilestones(s.ctx(), c.ID, []int64{400}))

		got, err := s.service.Get(s.ctx(), c.ID)
		s.Require().NoError(err)
		s.Equal([]int64{400}, got.Milestones)
		s.Equal(0, got.CurrentMilestoneIndex)
	})
}

func (s *CampaignServiceSuite) TestAnalytics() {
	c := s.createCampaign(1000, []int64{500})
	_, err := s.service.Donate(s.ctx(), c.ID, s.donor, 250)
	s.Require().NoError(err)
	_, err = s.service.Donate(s.ctx(), c.ID, id.Identity("donor-2"), 250)
	s.Require().NoError(err)

	a, err := s.service.Analytics(s.ctx(), c.ID)
	s.Require().NoError(err)
	s.Equal(2, a.TotalBackers)
	s.Equal(int64(50), a.FundingProgressPercent)
	s.Equal(int64((48 * time.Hour).Seconds()), a.TimeRemainingSeconds)
}
