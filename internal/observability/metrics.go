// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Scan metrics
	ScansTotal             *prometheus.CounterVec
	ScanDuration           prometheus.Histogram
	CandidatesTriggered    prometheus.Counter
	RecommendationsCreated prometheus.Counter
	GuardrailRejections    *prometheus.CounterVec

	// Discovery metrics
	DiscoveryRunsTotal *prometheus.CounterVec
	SymbolsScreened    prometheus.Counter

	// Reasoning metrics
	ReasoningCalls   *prometheus.CounterVec
	ReasoningLatency prometheus.Histogram

	// Collection metrics
	CollectionErrors *prometheus.CounterVec

	// WebSocket metrics
	WSConnectedClients prometheus.Gauge
	WSEventsPushed     *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "stock_advisor"
	}

	return &Metrics{
		ScansTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "runs_total",
			Help:      "Total number of watchlist scans by status",
		}, []string{"status"}),
		ScanDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "duration_seconds",
			Help:      "Watchlist scan duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		}),
		CandidatesTriggered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "candidates_triggered_total",
			Help:      "Total number of candidates that passed the prefilter",
		}),
		RecommendationsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "recommendations_created_total",
			Help:      "Total number of persisted recommendations",
		}),
		GuardrailRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "guardrail_rejections_total",
			Help:      "Total number of candidates rejected by guardrails, by reason",
		}, []string{"reason"}),

		DiscoveryRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "runs_total",
			Help:      "Total number of discovery runs by status",
		}, []string{"status"}),
		SymbolsScreened: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "symbols_screened_total",
			Help:      "Total number of universe symbols screened",
		}),

		ReasoningCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reasoning",
			Name:      "calls_total",
			Help:      "Total number of reasoning calls by outcome",
		}, []string{"outcome"}),
		ReasoningLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reasoning",
			Name:      "latency_seconds",
			Help:      "Reasoning call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		CollectionErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collection",
			Name:      "errors_total",
			Help:      "Total number of collection failures by source",
		}, []string{"source"}),

		WSConnectedClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "connected_clients",
			Help:      "Number of distinct clients with an open websocket",
		}),
		WSEventsPushed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "events_pushed_total",
			Help:      "Total number of events pushed over websockets, by type",
		}, []string{"type"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordScan records one finished watchlist scan.
func RecordScan(status string, durationSeconds float64) {
	DefaultMetrics.ScansTotal.WithLabelValues(status).Inc()
	DefaultMetrics.ScanDuration.Observe(durationSeconds)
}

// RecordCandidateTriggered increments the triggered candidate counter.
func RecordCandidateTriggered() {
	DefaultMetrics.CandidatesTriggered.Inc()
}

// RecordRecommendationCreated increments the persisted recommendation counter.
func RecordRecommendationCreated() {
	DefaultMetrics.RecommendationsCreated.Inc()
}

// RecordGuardrailRejection records one guardrail rejection.
func RecordGuardrailRejection(reason string) {
	DefaultMetrics.GuardrailRejections.WithLabelValues(reason).Inc()
}

// RecordDiscoveryRun records one finished discovery run.
func RecordDiscoveryRun(status string) {
	DefaultMetrics.DiscoveryRunsTotal.WithLabelValues(status).Inc()
}

// RecordSymbolScreened increments the screened symbol counter.
func RecordSymbolScreened() {
	DefaultMetrics.SymbolsScreened.Inc()
}

// RecordReasoningCall records one reasoning call and its latency.
func RecordReasoningCall(outcome string, seconds float64) {
	DefaultMetrics.ReasoningCalls.WithLabelValues(outcome).Inc()
	DefaultMetrics.ReasoningLatency.Observe(seconds)
}

// RecordCollectionError records a collection failure for one source.
func RecordCollectionError(source string) {
	DefaultMetrics.CollectionErrors.WithLabelValues(source).Inc()
}

// SetWSConnectedClients updates the connected client gauge.
func SetWSConnectedClients(n int) {
	DefaultMetrics.WSConnectedClients.Set(float64(n))
}

// RecordWSEventPushed records one delivered websocket event.
func RecordWSEventPushed(eventType string) {
	DefaultMetrics.WSEventsPushed.WithLabelValues(eventType).Inc()
}
