package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the tutor service
type Metrics struct {
	// Pipeline stage metrics
	TranscriptionRequests   prometheus.Counter
	TranscriptionEmpty      prometheus.Counter
	TranscriptionDuration   prometheus.Histogram
	TranscriptionConfidence prometheus.Histogram

	GenerationRequests prometheus.Counter
	GenerationDuration prometheus.Histogram

	SynthesisRequests prometheus.Counter
	SynthesisFailures prometheus.Counter
	SynthesisDuration prometheus.Histogram

	// Conversation metrics
	ActiveSessions prometheus.Gauge
	TurnsRecorded  prometheus.Counter

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		TranscriptionRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tutor_transcription_requests_total",
			Help: "Total number of transcription requests handled",
		}),
		TranscriptionEmpty: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tutor_transcription_empty_results_total",
			Help: "Total number of transcriptions that produced no text",
		}),
		TranscriptionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tutor_transcription_duration_seconds",
			Help:    "Duration of speech-to-text runs",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),
		TranscriptionConfidence: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tutor_transcription_confidence",
			Help:    "Average log-probability confidence of transcriptions",
			Buckets: prometheus.LinearBuckets(-2.0, 0.2, 11), // -2.0 to 0.0
		}),

		GenerationRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tutor_generation_requests_total",
			Help: "Total number of tutor reply generations",
		}),
		GenerationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tutor_generation_duration_seconds",
			Help:    "Duration of language model invocations",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 250ms to ~2 minutes
		}),

		SynthesisRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tutor_synthesis_requests_total",
			Help: "Total number of speech synthesis requests",
		}),
		SynthesisFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tutor_synthesis_failures_total",
			Help: "Total number of speech synthesis failures",
		}),
		SynthesisDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tutor_synthesis_duration_seconds",
			Help:    "Duration of speech synthesis requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 8), // 100ms to ~12s
		}),

		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "tutor_sessions",
			Help: "Number of conversation sessions created since startup",
		}),
		TurnsRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tutor_turns_recorded_total",
			Help: "Total number of conversation turns recorded",
		}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tutor_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tutor_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tutor_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordTranscription records a completed transcription run
func (m *Metrics) RecordTranscription(durationSeconds, confidence float64, empty bool) {
	m.TranscriptionRequests.Inc()
	m.TranscriptionDuration.Observe(durationSeconds)
	if empty {
		m.TranscriptionEmpty.Inc()
	} else {
		m.TranscriptionConfidence.Observe(confidence)
	}
}

// RecordGeneration records a completed reply generation
func (m *Metrics) RecordGeneration(durationSeconds float64) {
	m.GenerationRequests.Inc()
	m.GenerationDuration.Observe(durationSeconds)
}

// RecordSynthesis records a completed synthesis attempt
func (m *Metrics) RecordSynthesis(durationSeconds float64, failed bool) {
	m.SynthesisRequests.Inc()
	m.SynthesisDuration.Observe(durationSeconds)
	if failed {
		m.SynthesisFailures.Inc()
	}
}

// SetSessions sets the session count gauge
func (m *Metrics) SetSessions(count int) {
	m.ActiveSessions.Set(float64(count))
}

// RecordTurns adds recorded conversation turns
func (m *Metrics) RecordTurns(n int) {
	m.TurnsRecorded.Add(float64(n))
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
