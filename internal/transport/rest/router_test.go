package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"pledger/internal/audit"
	campaignservice "pledger/internal/campaign/service"
	campaignstore "pledger/internal/campaign/store"
	governanceservice "pledger/internal/governance/service"
	governancestore "pledger/internal/governance/store"
	identityservice "pledger/internal/identity/service"
	identitystore "pledger/internal/identity/store"
	"pledger/internal/milestone"
	"pledger/internal/platform/logger"
	"pledger/internal/receipt"
	"pledger/internal/refund"
	"pledger/internal/reputation"
	"pledger/internal/token"
	"pledger/internal/transfer"
	id "pledger/pkg/domain"
)

const adminSecret = "letmein"

// =============================================================================
// Router Test Suite
// =============================================================================
// The router test drives the API end to end against in-memory stores: the
// same wiring main uses, minus external infrastructure.

type RouterSuite struct {
	suite.Suite
	server *httptest.Server
	tokens *token.Service

	owner id.Identity
	donor id.Identity
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	log := logger.New()
	s.owner = id.Identity("owner-1")
	s.donor = id.Identity("donor-1")
	s.tokens = token.NewService("test-signing-key", "pledger")

	hash, err := bcrypt.GenerateFromPassword([]byte(adminSecret), bcrypt.MinCost)
	s.Require().NoError(err)

	publisher := audit.NewPublisher(audit.NewInMemoryStore())
	tracker, err := reputation.New(reputation.NewInMemoryStore(), 50, reputation.WithPublisher(publisher))
	s.Require().NoError(err)
	identitySvc, err := identityservice.New(identitystore.NewInMemory())
	s.Require().NoError(err)
	issuer, err := receipt.NewIssuer(receipt.NewInMemoryStore())
	s.Require().NoError(err)

	backend := transfer.NewMemoryBackend()
	store := campaignstore.NewInMemory()
	campaignSvc, err := campaignservice.New(store, identitySvc, issuer, backend,
		campaignservice.WithTracker(tracker),
		campaignservice.WithPublisher(publisher),
	)
	s.Require().NoError(err)

	milestoneCtrl, err := milestone.New(store, milestone.NewInMemoryProofStore())
	s.Require().NoError(err)
	vault, err := refund.New(campaignSvc, refund.NewInMemoryClaimStore(), backend)
	s.Require().NoError(err)
	governanceSvc, err := governanceservice.New(
		governancestore.NewInMemory(), identitySvc, campaignSvc, 2)
	s.Require().NoError(err)

	router := NewRouter(Deps{
		Logger:          log,
		TokenValidator:  s.tokens,
		AdminSecretHash: string(hash),
		Campaigns:       campaignSvc,
		Milestones:      milestoneCtrl,
		Refunds:         vault,
		Governance:      governanceSvc,
		Receipts:        issuer,
		Reputation:      tracker,
		Identity:        identitySvc,
		Events:          publisher,
	})
	s.server = httptest.NewServer(router)
	s.T().Cleanup(s.server.Close)
}

// do sends a JSON request, optionally authenticated as caller, and decodes
// the response into out when it is non-nil.
func (s *RouterSuite) do(method, path string, caller id.Identity, body, out any) *http.Response {
	var payload bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&payload).Encode(body))
	}
	req, err := http.NewRequest(method, s.server.URL+path, &payload)
	s.Require().NoError(err)
	if !caller.IsNil() {
		bearer, err := s.tokens.GenerateToken(caller, time.Hour)
		s.Require().NoError(err)
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	if out != nil {
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func (s *RouterSuite) doAdmin(method, path string, body any) *http.Response {
	var payload bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&payload).Encode(body))
	}
	req, err := http.NewRequest(method, s.server.URL+path, &payload)
	s.Require().NoError(err)
	req.Header.Set("X-Admin-Secret", adminSecret)

	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	resp.Body.Close()
	return resp
}

func (s *RouterSuite) verify(subject id.Identity) {
	resp := s.do(http.MethodPost, "/v1/verification", subject, map[string]string{
		"name_hash":     "nh",
		"document_hash": "dh",
	}, nil)
	s.Require().Equal(http.StatusAccepted, resp.StatusCode)

	resp = s.doAdmin(http.MethodPost, fmt.Sprintf("/v1/verification/%s/decision", subject), map[string]bool{
		"approve": true,
	})
	s.Require().Equal(http.StatusNoContent, resp.StatusCode)
}

func (s *RouterSuite) createCampaign() id.CampaignID {
	var created campaignResponse
	resp := s.do(http.MethodPost, "/v1/campaigns", s.owner, map[string]any{
		"title":      "river cleanup",
		"target":     1000,
		"deadline":   time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339),
		"milestones": []int64{400, 800},
	}, &created)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	return created.ID
}

// =============================================================================
// Route Tests
// =============================================================================

func (s *RouterSuite) TestHealth() {
	resp, err := s.server.Client().Get(s.server.URL + "/healthz")
	s.Require().NoError(err)
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *RouterSuite) TestAuthRequired() {
	resp := s.do(http.MethodPost, "/v1/campaigns", "", map[string]string{"title": "x"}, nil)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *RouterSuite) TestAdminRequired() {
	req, err := http.NewRequest(http.MethodPut, s.server.URL+"/v1/admin/quorum", bytes.NewBufferString(`{"quorum":3}`))
	s.Require().NoError(err)
	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *RouterSuite) TestCampaignLifecycle() {
	s.verify(s.owner)
	campaignID := s.createCampaign()

	s.Run("donation mints a receipt", func() {
		var donated donateResponse
		resp := s.do(http.MethodPost, fmt.Sprintf("/v1/campaigns/%s/donations", campaignID),
			s.donor, map[string]int64{"amount": 250}, &donated)
		s.Equal(http.StatusCreated, resp.StatusCode)
		s.False(donated.ReceiptID.IsNil())

		var fetched receiptResponse
		resp = s.do(http.MethodGet, fmt.Sprintf("/v1/receipts/%s", donated.ReceiptID), "", nil, &fetched)
		s.Equal(http.StatusOK, resp.StatusCode)
		s.Equal(int64(250), fetched.Amount)
	})

	s.Run("campaign read reflects the donation", func() {
		var got campaignResponse
		resp := s.do(http.MethodGet, fmt.Sprintf("/v1/campaigns/%s", campaignID), "", nil, &got)
		s.Equal(http.StatusOK, resp.StatusCode)
		s.Equal(int64(250), got.AmountCollected)
		s.Equal(1, got.TotalBackers)
	})

	s.Run("donor receipt listing includes the receipt", func() {
		var receipts []receiptResponse
		resp := s.do(http.MethodGet, fmt.Sprintf("/v1/donors/%s/receipts", s.donor), "", nil, &receipts)
		s.Equal(http.StatusOK, resp.StatusCode)
		s.Len(receipts, 1)
	})

	s.Run("analytics renders the read model", func() {
		var analytics struct {
			TotalBackers           int   `json:"total_backers"`
			FundingProgressPercent int64 `json:"funding_progress_percent"`
		}
		resp := s.do(http.MethodGet, fmt.Sprintf("/v1/campaigns/%s/analytics", campaignID), "", nil, &analytics)
		s.Equal(http.StatusOK, resp.StatusCode)
		s.Equal(1, analytics.TotalBackers)
		s.Equal(int64(25), analytics.FundingProgressPercent)
	})

	s.Run("milestone completion advances the pointer", func() {
		var completed completeMilestoneResponse
		resp := s.do(http.MethodPost, fmt.Sprintf("/v1/campaigns/%s/milestones/complete", campaignID),
			s.owner, map[string]string{"proof": "phase one done"}, &completed)
		s.Equal(http.StatusOK, resp.StatusCode)
		s.Equal(1, completed.CurrentMilestoneIndex)
	})

	s.Run("donation statistics reach the reputation surface", func() {
		var stats userStatsResponse
		resp := s.do(http.MethodGet, fmt.Sprintf("/v1/users/%s/stats", s.donor), "", nil, &stats)
		s.Equal(http.StatusOK, resp.StatusCode)
		s.Equal(int64(1), stats.CampaignsBacked)
		s.Equal(int64(250), stats.TotalDonated)
	})
}

func (s *RouterSuite) TestGovernanceFlow() {
	s.verify(s.owner)
	s.verify(s.donor)
	campaignID := s.createCampaign()

	var proposal proposalResponse
	resp := s.do(http.MethodPost, "/v1/proposals", s.owner, map[string]any{
		"campaign_id":         campaignID,
		"description":         "re-plan milestones",
		"type":                "general",
		"voting_period_hours": 48,
	}, &proposal)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	resp = s.do(http.MethodPost, fmt.Sprintf("/v1/proposals/%s/votes", proposal.ID),
		s.donor, map[string]bool{"support": true}, nil)
	s.Equal(http.StatusNoContent, resp.StatusCode)

	resp = s.do(http.MethodPost, fmt.Sprintf("/v1/proposals/%s/votes", proposal.ID),
		s.donor, map[string]bool{"support": true}, nil)
	s.Equal(http.StatusConflict, resp.StatusCode)

	var listed []proposalResponse
	resp = s.do(http.MethodGet, "/v1/proposals", "", nil, &listed)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Require().Len(listed, 1)
	s.Equal(int64(1), listed[0].ForVotes)

	// Execution before the window closes is a state conflict.
	resp = s.do(http.MethodPost, fmt.Sprintf("/v1/proposals/%s/execute", proposal.ID), s.owner, nil, nil)
	s.Equal(http.StatusConflict, resp.StatusCode)
}

func (s *RouterSuite) TestQuorumAdmin() {
	resp := s.doAdmin(http.MethodPut, "/v1/admin/quorum", map[string]int64{"quorum": 9})
	s.Equal(http.StatusOK, resp.StatusCode)

	resp = s.doAdmin(http.MethodPut, "/v1/admin/quorum", map[string]int64{"quorum": 0})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *RouterSuite) TestUnverifiedOwnerCannotCreate() {
	resp := s.do(http.MethodPost, "/v1/campaigns", s.owner, map[string]any{
		"title":      "x",
		"target":     100,
		"deadline":   time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339),
		"milestones": []int64{50},
	}, nil)
	s.Equal(http.StatusForbidden, resp.StatusCode)
}
