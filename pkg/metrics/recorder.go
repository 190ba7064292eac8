// Package metrics provides Prometheus-based metrics recording and querying
// for LLM and pipeline operations.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Recorder records per-request LLM metrics and pipeline outcomes.
type Recorder struct {
	requestsTotal   *prometheus.CounterVec
	tokensTotal     *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	pipelineRuns    *prometheus.CounterVec
	pipelineRetries prometheus.Counter
}

var (
	recorderInstance *Recorder //nolint:gochecknoglobals
	recorderOnce     sync.Once //nolint:gochecknoglobals
)

// NewRecorder returns the singleton Prometheus recorder. Collectors can only
// be registered once per process.
func NewRecorder() *Recorder {
	recorderOnce.Do(func() {
		recorderInstance = &Recorder{
			requestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "llm_requests_total",
					Help: "Total number of LLM requests by provider, model, role, and status",
				},
				[]string{"provider", "model", "role", "status", "error_type"},
			),
			tokensTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "llm_tokens_total",
					Help: "Total number of tokens used in LLM requests",
				},
				[]string{"provider", "model", "session_id", "type"},
			),
			requestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "llm_request_duration_seconds",
					Help:    "Duration of LLM requests in seconds",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"provider", "model", "role"},
			),
			pipelineRuns: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pipeline_runs_total",
					Help: "Total number of agent pipeline runs by outcome",
				},
				[]string{"status"},
			),
			pipelineRetries: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "pipeline_retries_total",
					Help: "Total number of design retries after validation failure",
				},
			),
		}
	})
	return recorderInstance
}

// ObserveRequest records one completed LLM request.
func (r *Recorder) ObserveRequest(provider, model, role string, duration time.Duration, errType string) {
	status := StatusSuccess
	if errType != "" {
		status = StatusError
	}
	r.requestsTotal.WithLabelValues(provider, model, role, status, errType).Inc()
	r.requestDuration.WithLabelValues(provider, model, role).Observe(duration.Seconds())
}

// ObserveTokens records token usage attributed to a session.
func (r *Recorder) ObserveTokens(provider, model, sessionID string, promptTokens, completionTokens int) {
	r.tokensTotal.WithLabelValues(provider, model, sessionID, "prompt").Add(float64(promptTokens))
	r.tokensTotal.WithLabelValues(provider, model, sessionID, "completion").Add(float64(completionTokens))
}

// ObservePipelineRun records a pipeline outcome and its retry count.
func (r *Recorder) ObservePipelineRun(success bool, retries int) {
	status := StatusSuccess
	if !success {
		status = StatusError
	}
	r.pipelineRuns.WithLabelValues(status).Inc()
	for i := 0; i < retries; i++ {
		r.pipelineRetries.Inc()
	}
}
