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
	// Client-side correlation protocol
	CallsIssued      prometheus.Counter
	CallTimeouts     prometheus.Counter
	ResponsesDropped prometheus.Counter
	PendingCalls     prometheus.Gauge
	CallLatency      prometheus.Histogram

	// Worker-side scoring
	RequestsScored    *prometheus.CounterVec
	ScoringLatency    prometheus.Histogram
	MalformedMessages prometheus.Counter
	ScoreCacheHits    prometheus.Counter

	// Ingest surface
	TransactionsIngested prometheus.Counter
	IngestErrors         *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "fraudscore"
	}

	return &Metrics{
		CallsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "calls_issued_total",
			Help:      "Total number of scoring calls issued",
		}),
		CallTimeouts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_timeouts_total",
			Help:      "Total number of scoring calls that timed out",
		}),
		ResponsesDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "responses_dropped_total",
			Help:      "Total number of responses with no pending call",
		}),
		PendingCalls: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "pending_calls",
			Help:      "Number of calls currently awaiting a response",
		}),
		CallLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_latency_seconds",
			Help:      "Round-trip latency of scoring calls",
			Buckets:   prometheus.DefBuckets,
		}),
		RequestsScored: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "requests_total",
			Help:      "Total number of scoring requests by outcome",
		}, []string{"status"}),
		ScoringLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "latency_seconds",
			Help:      "Latency of model evaluation",
			Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		MalformedMessages: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "malformed_messages_total",
			Help:      "Total number of undecodable request messages",
		}),
		ScoreCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "cache_hits_total",
			Help:      "Total number of scores served from the cache",
		}),
		TransactionsIngested: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "transactions_total",
			Help:      "Total number of transactions accepted on the API",
		}),
		IngestErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "errors_total",
			Help:      "Total number of ingest failures by kind",
		}, []string{"kind"}),
	}
}

// DefaultMetrics is the process-wide metrics instance.
var DefaultMetrics = NewMetrics("")

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordCallIssued marks a scoring call as issued.
func RecordCallIssued() {
	DefaultMetrics.CallsIssued.Inc()
	DefaultMetrics.PendingCalls.Inc()
}

// RecordCallResolved marks a call as resolved with its round-trip latency.
func RecordCallResolved(seconds float64) {
	DefaultMetrics.PendingCalls.Dec()
	DefaultMetrics.CallLatency.Observe(seconds)
}

// RecordCallTimeout marks a call as timed out.
func RecordCallTimeout() {
	DefaultMetrics.PendingCalls.Dec()
	DefaultMetrics.CallTimeouts.Inc()
}

// RecordCallAbandoned marks a call that ended without a response or a
// timeout: a failed publish, caller cancellation, or client shutdown.
func RecordCallAbandoned() {
	DefaultMetrics.PendingCalls.Dec()
}

// RecordResponseDropped marks a response that matched no pending call.
func RecordResponseDropped() {
	DefaultMetrics.ResponsesDropped.Inc()
}

// RecordScore records one worker-side scoring outcome.
func RecordScore(status string, seconds float64) {
	DefaultMetrics.RequestsScored.WithLabelValues(status).Inc()
	DefaultMetrics.ScoringLatency.Observe(seconds)
}

// RecordMalformedMessage marks an undecodable request.
func RecordMalformedMessage() {
	DefaultMetrics.MalformedMessages.Inc()
}

// RecordCacheHit marks a score served from the cache.
func RecordCacheHit() {
	DefaultMetrics.ScoreCacheHits.Inc()
}

// RecordIngest marks an accepted transaction.
func RecordIngest() {
	DefaultMetrics.TransactionsIngested.Inc()
}

// RecordIngestError marks a failed ingest by kind.
func RecordIngestError(kind string) {
	DefaultMetrics.IngestErrors.WithLabelValues(kind).Inc()
}
