package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskdeck_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "taskdeck_request_duration_seconds",
			Help: "HTTP request duration in seconds",
		},
		[]string{"method", "endpoint"},
	)

	ModelCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskdeck_model_calls_total",
			Help: "Total number of language model calls",
		},
		[]string{"provider", "outcome"},
	)

	ModelLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "taskdeck_model_latency_seconds",
			Help: "Language model call latency in seconds",
		},
	)

	FallbackResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskdeck_fallback_responses_total",
			Help: "Total number of chat requests answered by the rule-based fallback",
		},
		[]string{"reason"},
	)

	ToolExecutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskdeck_tool_executions_total",
			Help: "Total number of tool executions",
		},
		[]string{"tool", "outcome"},
	)
)
