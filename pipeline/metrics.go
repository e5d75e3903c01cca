// Package pipeline wires the receiver, symbol router, shard processors,
// output router, and client registry into the running system (§4.11-4.14,
// §5). It is the concurrency layer that sits on top of the single-threaded
// matching package.
package pipeline

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the set of counters and gauges the pipeline exposes for
// operational visibility (§7's "log, increment a failure counter" error
// taxonomy, made concrete with real instrumentation).
type Metrics struct {
	MessagesDropped  *prometheus.CounterVec
	RejectsTotal     *prometheus.CounterVec
	InputRingDepth   *prometheus.GaugeVec
	OutputRingDepth  *prometheus.GaugeVec
	ClientRingDepth  *prometheus.GaugeVec
	ProcessorBatches *prometheus.HistogramVec
}

// NewMetrics builds an unregistered Metrics. Call Register to attach it to
// a prometheus.Registerer (production code and tests can use separate
// registries, which is why registration is a separate step).
func NewMetrics() *Metrics {
	return &Metrics{
		MessagesDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "matchengine",
				Subsystem: "pipeline",
				Name:      "messages_dropped_total",
				Help:      "Messages dropped due to backpressure, a missing client, or capacity exhaustion.",
			},
			[]string{"reason"},
		),
		RejectsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "matchengine",
				Subsystem: "pipeline",
				Name:      "rejects_total",
				Help:      "Reject messages emitted in place of Ack due to capacity exhaustion.",
			},
			[]string{"reason"},
		),
		InputRingDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "matchengine",
				Subsystem: "pipeline",
				Name:      "input_ring_depth",
				Help:      "Approximate occupancy of a shard's input ring.",
			},
			[]string{"shard"},
		),
		OutputRingDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "matchengine",
				Subsystem: "pipeline",
				Name:      "output_ring_depth",
				Help:      "Approximate occupancy of a shard's output ring.",
			},
			[]string{"shard"},
		),
		ClientRingDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "matchengine",
				Subsystem: "pipeline",
				Name:      "client_ring_depth",
				Help:      "Approximate occupancy of a client's per-connection output ring.",
			},
			[]string{"client_id"},
		),
		ProcessorBatches: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "matchengine",
				Subsystem: "pipeline",
				Name:      "processor_batch_size",
				Help:      "Number of envelopes drained per processor loop iteration.",
				Buckets:   []float64{0, 1, 2, 4, 8, 16, 32},
			},
			[]string{"shard"},
		),
	}
}

// Register attaches every collector to reg.
func (m *Metrics) Register(reg prometheus.Registerer) {
	reg.MustRegister(
		m.MessagesDropped,
		m.RejectsTotal,
		m.InputRingDepth,
		m.OutputRingDepth,
		m.ClientRingDepth,
		m.ProcessorBatches,
	)
}
