package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Vote metrics
var (
	// VoteClicksTotal tracks vote clicks by transition and outcome
	// (success, failure, unauthorized, in_flight).
	VoteClicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pjuu_vote_clicks_total",
			Help: "Vote clicks by transition and outcome",
		},
		[]string{"transition", "outcome"},
	)
)

// Alert metrics
var (
	// AlertChecksTotal tracks alert checks by result (found, none, error)
	AlertChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pjuu_alert_checks_total",
			Help: "Alert checks by result",
		},
		[]string{"result"},
	)
)

// Action metrics
var (
	// ConfirmationsTotal tracks confirmation prompts by action and decision
	ConfirmationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pjuu_confirmations_total",
			Help: "Destructive action confirmations by action and decision",
		},
		[]string{"action", "decision"},
	)
)

// HTTP client metrics
var (
	// HTTPRequestsTotal tracks requests sent to the site by method and status
	// ("error" when no response was received).
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pjuu_http_requests_total",
			Help: "Requests sent to the site by method and status",
		},
		[]string{"method", "status"},
	)

	// HTTPRequestDuration tracks request latency in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pjuu_http_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method"},
	)
)

// WriteFile writes every registered metric to path in the text exposition
// format, for node_exporter's textfile collector.
func WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
