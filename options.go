package simline

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

type systemOptions struct {
	metricsRegistry *prometheus.Registry
	logWriter       io.Writer
	logLevel        zerolog.Level
	collectData     bool
	trace           bool
	correlate       bool
}

func defaultSystemOptions() systemOptions {
	return systemOptions{logLevel: zerolog.InfoLevel}
}

// Option configures a System at Build time.
type Option func(*systemOptions)

// WithMetrics attaches a Prometheus metrics side-channel registered against
// reg. Passing a fresh *prometheus.Registry per System avoids collector
// collisions when multiple Systems (or replications) run in one process.
func WithMetrics(reg *prometheus.Registry) Option {
	return func(o *systemOptions) { o.metricsRegistry = reg }
}

// WithLogger overrides where structured log output is written.
func WithLogger(w io.Writer) Option {
	return func(o *systemOptions) { o.logWriter = w }
}

// WithLogLevel sets the minimum level of log record emitted.
func WithLogLevel(level zerolog.Level) Option {
	return func(o *systemOptions) { o.logLevel = level }
}

// WithCollectData retains per-entity time-series history (machine health,
// buffer level, sink totals, production) across a replication, at some
// memory cost. Off by default.
func WithCollectData() Option {
	return func(o *systemOptions) { o.collectData = true }
}

// WithTrace enables recording of the full event trace in each replication's
// Environment; the recorded rows are dumped to the log on an invariant
// violation. System.Simulate does not return the trace.
func WithTrace() Option {
	return func(o *systemOptions) { o.trace = true }
}

// WithTraceCorrelationIDs tags every trace row with a random UUID, layered
// on top of (never replacing) the required monotonic event index. Implies
// WithTrace.
func WithTraceCorrelationIDs() Option {
	return func(o *systemOptions) { o.trace = true; o.correlate = true }
}
