package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder implements the Recorder interface using Prometheus metrics.
type PrometheusRecorder struct {
	requestsTotal   *prometheus.CounterVec
	tokensTotal     *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	retriesTotal    *prometheus.CounterVec
	fallbacksTotal  *prometheus.CounterVec
	debatesTotal    *prometheus.CounterVec
	judgmentsTotal  *prometheus.CounterVec
}

// NewPrometheusRecorder registers the debatearena metrics with reg.
// A nil reg uses the default registerer.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "debatearena_llm_requests_total",
				Help: "Total number of provider requests by model, operation, and status",
			},
			[]string{"model", "operation", "status", "error_type"},
		),
		tokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "debatearena_llm_tokens_total",
				Help: "Approximate tokens sent and received, counted with tiktoken",
			},
			[]string{"model", "type"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "debatearena_llm_request_duration_seconds",
				Help:    "Duration of provider requests in seconds",
				Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
			},
			[]string{"model", "operation"},
		),
		retriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "debatearena_llm_retries_total",
				Help: "Total number of backoff retries by model and error type",
			},
			[]string{"model", "error_type"},
		),
		fallbacksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "debatearena_stream_fallbacks_total",
				Help: "Mid-stream failures recovered with a full completion",
			},
			[]string{"model"},
		),
		debatesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "debatearena_debates_total",
				Help: "Debate runs by format and final status",
			},
			[]string{"format", "status"},
		),
		judgmentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "debatearena_judgments_total",
				Help: "Judgments by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
	}
}

// ObserveRequest records metrics for a completed provider request.
func (p *PrometheusRecorder) ObserveRequest(
	model, operation string,
	promptTokens, completionTokens int,
	success bool,
	errorType string,
	duration time.Duration,
) {
	status := statusSuccess
	if !success {
		status = statusError
	}

	p.requestsTotal.WithLabelValues(model, operation, status, errorType).Inc()

	if success {
		p.tokensTotal.WithLabelValues(model, "prompt").Add(float64(promptTokens))
		p.tokensTotal.WithLabelValues(model, "completion").Add(float64(completionTokens))
	}

	p.requestDuration.WithLabelValues(model, operation).Observe(duration.Seconds())
}

// IncRetry counts a backoff retry.
func (p *PrometheusRecorder) IncRetry(model, errorType string) {
	p.retriesTotal.WithLabelValues(model, errorType).Inc()
}

// IncStreamFallback counts a streaming fallback.
func (p *PrometheusRecorder) IncStreamFallback(model string) {
	p.fallbacksTotal.WithLabelValues(model).Inc()
}

// IncDebate counts a finished debate run.
func (p *PrometheusRecorder) IncDebate(format, status string) {
	p.debatesTotal.WithLabelValues(format, status).Inc()
}

// IncJudgment counts a judgment.
func (p *PrometheusRecorder) IncJudgment(kind, outcome string) {
	p.judgmentsTotal.WithLabelValues(kind, outcome).Inc()
}
