package rest

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	id "pledger/pkg/domain"
)

type userStatsResponse struct {
	Identity         string    `json:"identity"`
	CampaignsCreated int64     `json:"campaigns_created"`
	CampaignsBacked  int64     `json:"campaigns_backed"`
	ProposalsCreated int64     `json:"proposals_created"`
	ProposalsVoted   int64     `json:"proposals_voted"`
	TotalDonated     int64     `json:"total_donated"`
	ReputationScore  int64     `json:"reputation_score"`
	ReputationTier   int       `json:"reputation_tier"`
	LastActivity     time.Time `json:"last_activity"`
}

func (h *handlers) userStats(w http.ResponseWriter, r *http.Request) {
	subject, err := id.ParseIdentity(chi.URLParam(r, "identity"))
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	stats, err := h.deps.Reputation.Stats(r.Context(), subject)
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	writeJSON(w, r, h.deps.Logger, http.StatusOK, userStatsResponse{
		Identity:         subject.String(),
		CampaignsCreated: stats.CampaignsCreated,
		CampaignsBacked:  stats.CampaignsBacked,
		ProposalsCreated: stats.ProposalsCreated,
		ProposalsVoted:   stats.ProposalsVoted,
		TotalDonated:     stats.TotalDonated,
		ReputationScore:  stats.ReputationScore,
		ReputationTier:   stats.ReputationTier,
		LastActivity:     stats.LastActivity,
	})
}

func (h *handlers) userEvents(w http.ResponseWriter, r *http.Request) {
	subject, err := id.ParseIdentity(chi.URLParam(r, "identity"))
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	events, err := h.deps.Events.List(r.Context(), subject)
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	writeJSON(w, r, h.deps.Logger, http.StatusOK, events)
}
