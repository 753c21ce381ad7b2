package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AdvisorRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_requests_total",
			Help: "Total advisory requests by outcome",
		},
		[]string{"outcome"},
	)

	AdvisorDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "advisor_request_duration_seconds",
			Help: "Wall-clock duration of the advisory pipeline",
		},
	)

	ProviderFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_provider_failures_total",
			Help: "Remote provider failures by degradation reason",
		},
		[]string{"reason"},
	)

	StatementRows = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "statement_rows_imported_total",
			Help: "Transactions persisted via statement import",
		},
	)
)

// Outcome labels for AdvisorRequests.
const (
	OutcomeAnswered = "answered"
	OutcomeBlocked  = "blocked"
	OutcomeFailed   = "failed"
)
