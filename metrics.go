package simline

import "github.com/prometheus/client_golang/prometheus"

// Metrics is an optional, instance-scoped side channel exposing Prometheus
// collectors for a System. It is never consulted by the simulation logic —
// purely observational. Each System owns its own *prometheus.Registry (never
// the global default one) so that concurrent replications, or multiple
// System instances in the same process, never collide on collector names.
type Metrics struct {
	registry        *prometheus.Registry
	partsProduced   *prometheus.CounterVec
	machineDowntime *prometheus.CounterVec
	queueLength     *prometheus.GaugeVec
}

// NewMetrics constructs a Metrics bound to reg and registers its collectors.
// Passing a fresh *prometheus.Registry per System (rather than
// prometheus.DefaultRegisterer) is what makes it safe to run many
// replications, or many Systems, in one process.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: reg,
		partsProduced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "simline_parts_produced_total",
			Help: "Parts delivered downstream by a machine, post warm-up.",
		}, []string{"machine"}),
		machineDowntime: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "simline_machine_downtime_seconds_total",
			Help: "Accumulated downtime per machine, in simulated time units.",
		}, []string{"machine"}),
		queueLength: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "simline_maintenance_queue_length",
			Help: "Number of machines currently waiting for repair.",
		}, []string{}),
	}
	reg.MustRegister(m.partsProduced, m.machineDowntime, m.queueLength)
	return m
}

// Registry returns the registry collectors were registered against, for
// callers that want to expose it via an HTTP handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) recordPart(machine string) {
	if m == nil {
		return
	}
	m.partsProduced.WithLabelValues(machine).Inc()
}

func (m *Metrics) recordDowntime(machine string, delta int) {
	if m == nil || delta <= 0 {
		return
	}
	m.machineDowntime.WithLabelValues(machine).Add(float64(delta))
}

func (m *Metrics) setQueueLength(n int) {
	if m == nil {
		return
	}
	m.queueLength.WithLabelValues().Set(float64(n))
}
