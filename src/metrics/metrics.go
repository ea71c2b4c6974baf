package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "stream_processor"

// Drop reasons used as the "reason" label of TicksDropped.
const (
	DropReasonOverflow = "overflow"
	DropReasonRejected = "rejected"
	DropReasonBatch    = "batch_failure"
)

// -----------------------------------------------------------------------------

// Metrics groups the prometheus collectors of the pipeline.
type Metrics struct {
	MessagesReceived prometheus.Counter
	DecodeErrors     prometheus.Counter
	TicksEnqueued    prometheus.Counter
	TicksDropped     *prometheus.CounterVec
	QueueDepth       prometheus.Gauge
	BatchesProcessed prometheus.Counter
	BatchFailures    prometheus.Counter
	BatchDuration    prometheus.Histogram
	Reconnects       prometheus.Counter
	ResultsPublished *prometheus.CounterVec

	registry prometheus.Gatherer
}

// -----------------------------------------------------------------------------

// NewMetrics creates the collectors and registers them on reg.
// Tests pass a fresh prometheus.NewRegistry() to stay isolated.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		MessagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Raw messages read from the upstream feed.",
		}),
		DecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Messages dropped because they could not be decoded.",
		}),
		TicksEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_enqueued_total",
			Help:      "Ticks accepted by the ingestion queue.",
		}),
		TicksDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_dropped_total",
			Help:      "Ticks lost, by reason.",
		}, []string{"reason"}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Ticks currently buffered in the ingestion queue.",
		}),
		BatchesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_processed_total",
			Help:      "Batches transformed into a processed result.",
		}),
		BatchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_failures_total",
			Help:      "Batches discarded after a transformation error.",
		}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Time spent transforming one batch.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 16),
		}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnects_total",
			Help:      "Reconnect attempts scheduled after a connection failure.",
		}),
		ResultsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_published_total",
			Help:      "Processed results handed to publishers, by outcome.",
		}, []string{"outcome"}),
		registry: reg,
	}

	reg.MustRegister(
		m.MessagesReceived,
		m.DecodeErrors,
		m.TicksEnqueued,
		m.TicksDropped,
		m.QueueDepth,
		m.BatchesProcessed,
		m.BatchFailures,
		m.BatchDuration,
		m.Reconnects,
		m.ResultsPublished,
	)
	return m
}

// -----------------------------------------------------------------------------

// NewTestMetrics returns metrics bound to a private registry.
func NewTestMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

// -----------------------------------------------------------------------------

// Gatherer exposes the registry for the /metrics handler.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}
