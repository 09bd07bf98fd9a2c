package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the service.
type Metrics struct {
	TriageRuns          *prometheus.CounterVec
	StageDuration       *prometheus.HistogramVec
	Confidence          *prometheus.HistogramVec
	RetrievalFailures   prometheus.Counter
	AuditWriteFailures  prometheus.Counter
	QueueDepth          prometheus.Gauge
	HTTPRequests        *prometheus.CounterVec
	HTTPErrors          *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics registers collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		TriageRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "triage_runs_total",
				Help: "Completed triage runs by outcome",
			},
			[]string{"outcome"},
		),
		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "triage_stage_duration_seconds",
				Help:    "Latency per triage stage",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"stage"},
		),
		Confidence: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "triage_confidence",
				Help:    "Draft confidence by predicted category",
				Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 1.0},
			},
			[]string{"category"},
		),
		RetrievalFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "triage_retrieval_failures_total",
			Help: "KB retrievals that degraded to an empty result",
		}),
		AuditWriteFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "triage_audit_write_failures_total",
			Help: "Audit entries that could not be persisted",
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "triage_queue_depth",
			Help: "Triage jobs waiting for a worker",
		}),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "HTTP requests by route and status",
			},
			[]string{"method", "path", "status"},
		),
		HTTPErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_errors_total",
				Help: "HTTP errors by route and error code",
			},
			[]string{"method", "path", "code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.HTTPErrors.WithLabelValues(method, path, code).Inc()
}

// ObserveStage records how long a triage stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordRun counts a finished run.
func (m *Metrics) RecordRun(outcome string) {
	if m == nil {
		return
	}
	m.TriageRuns.WithLabelValues(outcome).Inc()
}

// ObserveConfidence records the confidence used for a decision.
func (m *Metrics) ObserveConfidence(category string, confidence float64) {
	if m == nil {
		return
	}
	m.Confidence.WithLabelValues(category).Observe(confidence)
}

// RecordRetrievalFailure counts a tolerated KB failure.
func (m *Metrics) RecordRetrievalFailure() {
	if m == nil {
		return
	}
	m.RetrievalFailures.Inc()
}

// RecordAuditFailure counts a swallowed audit write error.
func (m *Metrics) RecordAuditFailure() {
	if m == nil {
		return
	}
	m.AuditWriteFailures.Inc()
}

// SetQueueDepth reports pending triage jobs.
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}
