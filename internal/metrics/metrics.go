// Package metrics defines prometheus metrics to expose
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agent_gateway_request_duration_seconds",
			Help:    "Total time taken for requests in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 15, 20, 30, 45, 60},
		},
		[]string{"rpc_method"},
	)

	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_gateway_upstream_requests_total",
			Help: "Upstream completion calls by outcome",
		},
		[]string{"outcome"},
	)

	UpstreamRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agent_gateway_upstream_retries_total",
			Help: "Upstream attempts beyond the first",
		},
	)

	PromptTokens = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agent_gateway_prompt_tokens_total",
			Help: "Total number of prompt tokens used",
		},
	)

	CompletionTokens = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agent_gateway_completion_tokens_total",
			Help: "Total number of completion tokens used",
		},
	)

	UnauthorizedRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agent_gateway_unauthorized_total",
			Help: "Requests rejected by the credential guard",
		},
	)

	ResponseCodes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_gateway_status_code",
			Help: "Status Codes",
		},
		[]string{"path", "status_code"},
	)
)

// UpstreamOutcome labels for UpstreamRequests.
const (
	OutcomeOK          = "ok"
	OutcomeUnavailable = "unavailable"
	OutcomeRejected    = "rejected"
	OutcomeServerError = "server_error"
	OutcomeMalformed   = "malformed"
)
