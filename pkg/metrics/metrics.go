package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// DefaultRegistry is the process-wide registry exposed on /metrics.
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		ChatRequestTotal, ChatDuration,
		BackendCallDuration, BackendFailTotal,
		LLMRequestDuration, LLMFailTotal,
		SyncRunTotal, RateLimitWaitSeconds,
	)
}

// ChatRequestTotal counts chat requests by outcome.
var ChatRequestTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "jidhr_chat_request_total",
		Help: "Chat requests by outcome",
	},
	[]string{"status"}, // ok | model_unavailable | bad_request
)

// ChatDuration measures end-to-end chat handling in seconds.
var ChatDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "jidhr_chat_duration_seconds",
		Help:    "End-to-end chat handling duration",
		Buckets: prometheus.DefBuckets,
	},
)

// BackendCallDuration measures backend fetch duration by source and kind.
var BackendCallDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "jidhr_backend_call_duration_seconds",
		Help:    "Backend fetch duration",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"source", "kind"},
)

// BackendFailTotal counts degraded backend calls by source.
var BackendFailTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "jidhr_backend_fail_total",
		Help: "Backend calls that degraded to an unavailable fragment",
	},
	[]string{"source"},
)

// LLMRequestDuration measures completion-endpoint latency in seconds.
var LLMRequestDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "jidhr_llm_request_duration_seconds",
		Help:    "Completion endpoint latency",
		Buckets: prometheus.DefBuckets,
	},
)

// LLMFailTotal counts failed completion calls.
var LLMFailTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "jidhr_llm_fail_total",
		Help: "Failed completion calls",
	},
)

// SyncRunTotal counts sync job runs by job and outcome.
var SyncRunTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "jidhr_sync_run_total",
		Help: "Sync job runs by job and outcome",
	},
	[]string{"job", "status"}, // donations|events|newsletter, ok|error
)

// RateLimitWaitSeconds records time spent waiting on the LLM rate limiter.
var RateLimitWaitSeconds = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "jidhr_rate_limit_wait_seconds",
		Help:    "Time spent waiting on rate limiters",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"kind", "target"},
)

// WritePrometheus renders the registry in text exposition format (for Hertz).
func WritePrometheus(w io.Writer) error {
	metrics, err := DefaultRegistry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range metrics {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
