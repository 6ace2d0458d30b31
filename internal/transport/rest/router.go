// Package rest exposes the ledger over a versioned JSON API. Handlers parse
// and authenticate; all domain rules live in the services.
package rest

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pledger/internal/audit"
	campaignservice "pledger/internal/campaign/service"
	governanceservice "pledger/internal/governance/service"
	identityservice "pledger/internal/identity/service"
	"pledger/internal/milestone"
	"pledger/internal/platform/metrics"
	"pledger/internal/platform/middleware"
	"pledger/internal/receipt"
	"pledger/internal/refund"
	"pledger/internal/reputation"
)

// Deps carries everything the router wires together.
type Deps struct {
	Logger          *slog.Logger
	Metrics         *metrics.Metrics
	TokenValidator  middleware.TokenValidator
	AdminSecretHash string

	Campaigns  *campaignservice.Service
	Milestones *milestone.Controller
	Refunds    *refund.Vault
	Governance *governanceservice.Service
	Receipts   *receipt.Issuer
	Reputation *reputation.Tracker
	Identity   *identityservice.Service
	Events     *audit.Publisher
}

// NewRouter builds the full route tree. Mutating routes require a bearer
// token; verification decisions and quorum changes additionally require the
// admin secret.
func NewRouter(deps Deps) http.Handler {
	h := &handlers{deps: deps}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Latency(deps.Metrics))
	r.Use(middleware.Trace)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", h.health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)

		// Public reads.
		r.Get("/campaigns", h.listCampaigns)
		r.Get("/campaigns/{id}", h.getCampaign)
		r.Get("/campaigns/{id}/analytics", h.campaignAnalytics)
		r.Get("/campaigns/{id}/proofs", h.listProofs)
		r.Get("/campaigns/{id}/receipts", h.listCampaignReceipts)
		r.Get("/receipts/{id}", h.getReceipt)
		r.Get("/donors/{identity}/receipts", h.listDonorReceipts)
		r.Get("/proposals", h.listProposals)
		r.Get("/proposals/{id}", h.getProposal)
		r.Get("/users/{identity}/stats", h.userStats)
		r.Get("/users/{identity}/events", h.userEvents)
		r.Get("/verification/{identity}", h.getVerification)

		// Authenticated mutations.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(deps.TokenValidator, deps.Logger))

			r.Post("/campaigns", h.createCampaign)
			r.Post("/campaigns/{id}/donations", h.donate)
			r.Post("/campaigns/{id}/evaluate", h.evaluateStatus)
			r.Post("/campaigns/evaluate", h.batchEvaluateStatus)
			r.Post("/campaigns/{id}/withdraw", h.withdraw)
			r.Post("/campaigns/{id}/refunds", h.claimRefund)
			r.Post("/campaigns/{id}/milestones/complete", h.completeMilestone)
			r.Put("/campaigns/{id}/milestones/{index}", h.updateMilestone)

			r.Post("/proposals", h.createProposal)
			r.Post("/proposals/{id}/votes", h.vote)
			r.Post("/proposals/{id}/execute", h.executeProposal)

			r.Post("/verification", h.submitVerification)
		})

		// Administrative surface.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(deps.AdminSecretHash, deps.Logger))

			r.Post("/verification/{identity}/decision", h.decideVerification)
			r.Put("/admin/quorum", h.setQuorum)
		})
	})

	return r
}

type handlers struct {
	deps Deps
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, h.deps.Logger, http.StatusOK, map[string]string{"status": "ok"})
}
