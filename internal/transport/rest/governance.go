package rest

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"pledger/internal/governance"
	governanceservice "pledger/internal/governance/service"
	id "pledger/pkg/domain"
	"pledger/pkg/requestcontext"
)

type proposalResponse struct {
	ID            id.ProposalID           `json:"id"`
	CampaignID    id.CampaignID           `json:"campaign_id"`
	Creator       string                  `json:"creator"`
	Description   string                  `json:"description"`
	Type          governance.ProposalType `json:"type"`
	EndTime       time.Time               `json:"end_time"`
	CreatedAt     time.Time               `json:"created_at"`
	ForVotes      int64                   `json:"for_votes"`
	AgainstVotes  int64                   `json:"against_votes"`
	TotalVotes    int64                   `json:"total_votes"`
	Executed      bool                    `json:"executed"`
	NewMilestones []int64                 `json:"new_milestones,omitempty"`
}

func toProposalResponse(p *governance.Proposal) proposalResponse {
	return proposalResponse{
		ID:            p.ID,
		CampaignID:    p.CampaignID,
		Creator:       p.Creator.String(),
		Description:   p.Description,
		Type:          p.Type,
		EndTime:       p.EndTime,
		CreatedAt:     p.CreatedAt,
		ForVotes:      p.ForVotes,
		AgainstVotes:  p.AgainstVotes,
		TotalVotes:    p.TotalVotes,
		Executed:      p.Executed,
		NewMilestones: p.NewMilestones,
	}
}

type createProposalRequest struct {
	CampaignID        id.CampaignID           `json:"campaign_id"`
	Description       string                  `json:"description"`
	Type              governance.ProposalType `json:"type"`
	VotingPeriodHours int64                   `json:"voting_period_hours"`
	NewMilestones     []int64                 `json:"new_milestones"`
}

func (h *handlers) createProposal(w http.ResponseWriter, r *http.Request) {
	var req createProposalRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	creator := requestcontext.CallerID(r.Context())
	p, err := h.deps.Governance.Create(r.Context(), creator, governanceservice.CreateInput{
		CampaignID:    req.CampaignID,
		Description:   req.Description,
		Type:          req.Type,
		VotingPeriod:  time.Duration(req.VotingPeriodHours) * time.Hour,
		NewMilestones: req.NewMilestones,
	})
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	writeJSON(w, r, h.deps.Logger, http.StatusCreated, toProposalResponse(p))
}

func (h *handlers) getProposal(w http.ResponseWriter, r *http.Request) {
	proposalID, err := id.ParseProposalID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	p, err := h.deps.Governance.Get(r.Context(), proposalID)
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	writeJSON(w, r, h.deps.Logger, http.StatusOK, toProposalResponse(p))
}

func (h *handlers) listProposals(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := parsePage(r)
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	proposals, err := h.deps.Governance.List(r.Context(), offset, limit)
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	out := make([]proposalResponse, 0, len(proposals))
	for _, p := range proposals {
		out = append(out, toProposalResponse(p))
	}
	writeJSON(w, r, h.deps.Logger, http.StatusOK, out)
}

type voteRequest struct {
	Support bool `json:"support"`
}

func (h *handlers) vote(w http.ResponseWriter, r *http.Request) {
	proposalID, err := id.ParseProposalID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	var req voteRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	voter := requestcontext.CallerID(r.Context())
	if err := h.deps.Governance.Vote(r.Context(), proposalID, voter, req.Support); err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	writeJSON(w, r, h.deps.Logger, http.StatusNoContent, nil)
}

func (h *handlers) executeProposal(w http.ResponseWriter, r *http.Request) {
	proposalID, err := id.ParseProposalID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	caller := requestcontext.CallerID(r.Context())
	if err := h.deps.Governance.Execute(r.Context(), proposalID, caller); err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	p, err := h.deps.Governance.Get(r.Context(), proposalID)
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	writeJSON(w, r, h.deps.Logger, http.StatusOK, toProposalResponse(p))
}

type setQuorumRequest struct {
	Quorum int64 `json:"quorum"`
}

func (h *handlers) setQuorum(w http.ResponseWriter, r *http.Request) {
	var req setQuorumRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	if err := h.deps.Governance.SetQuorum(req.Quorum); err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	writeJSON(w, r, h.deps.Logger, http.StatusOK, map[string]int64{"quorum": h.deps.Governance.Quorum()})
}
