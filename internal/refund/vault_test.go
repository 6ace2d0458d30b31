package refund

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"pledger/internal/campaign"
	campaignservice "pledger/internal/campaign/service"
	campaignstore "pledger/internal/campaign/store"
	"pledger/internal/receipt"
	"pledger/internal/transfer"
	id "pledger/pkg/domain"
	dErrors "pledger/pkg/domain-errors"
	"pledger/pkg/testutil"
)

// =============================================================================
// Refund Vault Test Suite
// =============================================================================
// Justification for unit tests: the exactly-once claim rule couples the claim
// flag to the transfer outcome, which only shows up when the backend is
// driven through failure paths.

type verifierStub map[id.Identity]bool

func (v verifierStub) IsVerified(_ context.Context, subject id.Identity) (bool, error) {
	return v[subject], nil
}

type RefundVaultSuite struct {
	suite.Suite
	campaigns *campaignservice.Service
	backend   *transfer.MemoryBackend
	vault     *Vault

	base   time.Time
	owner  id.Identity
	donorA id.Identity
	donorB id.Identity
}

func TestRefundVaultSuite(t *testing.T) {
	suite.Run(t, new(RefundVaultSuite))
}

func (s *RefundVaultSuite) SetupTest() {
	s.base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.owner = id.Identity("owner-1")
	s.donorA = id.Identity("donor-a")
	s.donorB = id.Identity("donor-b")
	s.backend = transfer.NewMemoryBackend()

	issuer, err := receipt.NewIssuer(receipt.NewInMemoryStore())
	s.Require().NoError(err)
	s.campaigns, err = campaignservice.New(
		campaignstore.NewInMemory(), verifierStub{s.owner: true}, issuer, s.backend)
	s.Require().NoError(err)

	s.vault, err = New(s.campaigns, NewInMemoryClaimStore(), s.backend)
	s.Require().NoError(err)
}

func (s *RefundVaultSuite) ctx() context.Context {
	return testutil.ContextAt(s.base)
}

// failedCampaign creates a campaign, takes donations, and resolves it Failed
// by evaluating after the deadline.
func (s *RefundVaultSuite) failedCampaign(donations map[id.Identity]int64) id.CampaignID {
	c, err := s.campaigns.Create(s.ctx(), s.owner, campaignservice.CreateInput{
		Title:      "stalled project",
		Target:     100000,
		Deadline:   s.base.Add(48 * time.Hour),
		Milestones: []int64{50000},
	})
	s.Require().NoError(err)
	for donor, amount := range donations {
		_, err := s.campaigns.Donate(s.ctx(), c.ID, donor, amount)
		s.Require().NoError(err)
	}

	status, err := s.campaigns.EvaluateStatus(testutil.ContextAt(s.base.Add(72*time.Hour)), c.ID)
	s.Require().NoError(err)
	s.Require().Equal(campaign.StatusFailed, status)
	return c.ID
}

// =============================================================================
// Claim Tests
// =============================================================================

func (s *RefundVaultSuite) TestClaim() {
	s.Run("refund pays back the donor's cumulative donations", func() {
		campaignID := s.failedCampaign(map[id.Identity]int64{s.donorA: 300, s.donorB: 200})

		amount, err := s.vault.Claim(s.ctx(), campaignID, s.donorA)
		s.Require().NoError(err)
		s.Equal(int64(300), amount)

		balance, err := s.backend.Balance(s.ctx(), transfer.IdentityAccount(s.donorA))
		s.NoError(err)
		s.Equal(int64(300), balance)

		escrow, err := s.backend.Balance(s.ctx(), transfer.EscrowAccount(campaignID))
		s.NoError(err)
		s.Equal(int64(200), escrow)
	})

	s.Run("second claim fails and moves no funds", func() {
		campaignID := s.failedCampaign(map[id.Identity]int64{s.donorA: 300})
		_, err := s.vault.Claim(s.ctx(), campaignID, s.donorA)
		s.Require().NoError(err)

		// The backend is shared across sub-tests, so compare against the
		// balance after the first claim rather than an absolute figure.
		before, err := s.backend.Balance(s.ctx(), transfer.IdentityAccount(s.donorA))
		s.Require().NoError(err)

		_, err = s.vault.Claim(s.ctx(), campaignID, s.donorA)
		s.True(dErrors.HasCode(err, dErrors.CodeRefundAlreadyClaimed))

		after, err := s.backend.Balance(s.ctx(), transfer.IdentityAccount(s.donorA))
		s.NoError(err)
		s.Equal(before, after)
	})

	s.Run("active campaign is not refundable", func() {
		c, err := s.campaigns.Create(s.ctx(), s.owner, campaignservice.CreateInput{
			Title:      "still going",
			Target:     1000,
			Deadline:   s.base.Add(48 * time.Hour),
			Milestones: []int64{500},
		})
		s.Require().NoError(err)

		_, err = s.vault.Claim(s.ctx(), c.ID, s.donorA)
		s.True(dErrors.HasCode(err, dErrors.CodeCampaignNotFailed))
	})

	s.Run("non-donor has nothing to refund", func() {
		campaignID := s.failedCampaign(map[id.Identity]int64{s.donorA: 300})
		_, err := s.vault.Claim(s.ctx(), campaignID, id.Identity("bystander"))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidAmount))
	})

	s.Run("unknown campaign is not found", func() {
		_, err := s.vault.Claim(s.ctx(), id.CampaignID(999), s.donorA)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// =============================================================================
// Claim Store Tests
// =============================================================================

func (s *RefundVaultSuite) TestClaimStoreRollback() {
	store := NewInMemoryClaimStore()
	campaignID := id.CampaignID(1)

	err := store.Claim(s.ctx(), campaignID, s.donorA, func() error {
		return transfer.ErrUnavailable
	})
	s.ErrorIs(err, transfer.ErrUnavailable)

	// The failed transfer must not consume the claim.
	claimed, err := store.Claimed(s.ctx(), campaignID, s.donorA)
	s.NoError(err)
	s.False(claimed)

	s.NoError(store.Claim(s.ctx(), campaignID, s.donorA, func() error { return nil }))
	s.ErrorIs(store.Claim(s.ctx(), campaignID, s.donorA, func() error { return nil }), ErrAlreadyClaimed)
}
