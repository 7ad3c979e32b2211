// Package metrics defines the prometheus collectors this module exports:
// the ACK latency histogram sampled by the egress router (spec.md §4.8),
// and reject/pool-exhaustion counters keyed by reason so an operator can
// see which failure mode is firing without grepping logs.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// AckLatencySeconds samples now minus the ACK's TsNanos (the engine's
	// timestamp when it published the ACK) for every ACK the egress router
	// decodes, whether or not the owning session is still connected.
	// Buckets favor the microsecond-to-low-millisecond range this system is
	// expected to operate in.
	AckLatencySeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "flashoms",
		Name:      "ack_latency_seconds",
		Help:      "Engine ACK timestamp to gateway egress router latency.",
		Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1},
	})

	RejectTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flashoms",
			Name:      "reject_total",
			Help:      "Total REJECT messages emitted, by reason.",
		},
		[]string{"reason"},
	)

	PoolExhaustedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flashoms",
			Name:      "pool_exhausted_total",
			Help:      "Total pool exhaustion events, by pool and partition.",
		},
		[]string{"pool", "partition"},
	)

	OutboundDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flashoms",
			Name:      "outbound_dropped_total",
			Help:      "Total outbound messages dropped after exhausting backpressure retries.",
		},
		[]string{"partition", "msgType"},
	)
)

// MustRegister registers every collector in this package against the
// default prometheus registry. Called once at boot.
func MustRegister() {
	prometheus.MustRegister(AckLatencySeconds, RejectTotal, PoolExhaustedTotal, OutboundDroppedTotal)
}
