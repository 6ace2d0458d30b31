package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the ledger. Services accept a nil
// *Metrics so unit tests can skip registration.
type Metrics struct {
	CampaignsCreated   prometheus.Counter
	Donations          prometheus.Counter
	Withdrawals        prometheus.Counter
	RefundsClaimed     prometheus.Counter
	ProposalsCreated   prometheus.Counter
	VotesCast          prometheus.Counter
	ProposalsExecuted  prometheus.Counter
	StatusTransitions  *prometheus.CounterVec
	RequestDurationsMs prometheus.Histogram
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		CampaignsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pledger_campaigns_created_total",
			Help: "Total number of campaigns created",
		}),
		Donations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pledger_donations_total",
			Help: "Total number of donations recorded",
		}),
		Withdrawals: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pledger_withdrawals_total",
			Help: "Total number of successful owner withdrawals",
		}),
		RefundsClaimed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pledger_refunds_claimed_total",
			Help: "Total number of refunds claimed",
		}),
		ProposalsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pledger_proposals_created_total",
			Help: "Total number of governance proposals created",
		}),
		VotesCast: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pledger_votes_cast_total",
			Help: "Total number of votes cast",
		}),
		ProposalsExecuted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pledger_proposals_executed_total",
			Help: "Total number of proposals executed",
		}),
		StatusTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pledger_campaign_status_transitions_total",
			Help: "Campaign status transitions by target status",
		}, []string{"to"}),
		RequestDurationsMs: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pledger_request_duration_ms",
			Help:    "Latency of ledger HTTP requests in milliseconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250},
		}),
	}
}

// IncStatusTransition records a campaign status transition.
func (m *Metrics) IncStatusTransition(to string) {
	if m == nil {
		return
	}
	m.StatusTransitions.WithLabelValues(to).Inc()
}
