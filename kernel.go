package simline

import (
	"container/heap"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Environment owns the simulation clock, the event queue, and the shared RNG
// stream for one replication. It is not safe for concurrent use; each
// replication gets its own Environment.
type Environment struct {
	now         int
	queue       eventHeap
	nextIndex   uint64
	terminated  bool
	rng         *rand.Rand
	warmUpTime  int
	simTime     int
	log         zerolog.Logger
	metrics     *Metrics
	collectData bool

	traceEnabled bool
	trace        []TraceRow
	correlate    bool

	maintainer *Maintainer
}

// Now reports the environment's current clock value.
func (env *Environment) Now() int { return env.now }

// Schedule posts a new event. Canceling the returned Event stops it from
// running; it is never removed from the queue, only flagged.
func (env *Environment) Schedule(time int, location node, kind actionKind, run func(), source string, priority int) *Event {
	e := &Event{
		time:     time,
		kind:     kind,
		location: location,
		run:      run,
		source:   source,
		priority: priority,
		tiebreak: env.rng.Float64(),
		index:    env.nextIndex,
	}
	env.nextIndex++
	heap.Push(&env.queue, e)
	return e
}

// Cancel flips an event's canceled flag. The kernel skips canceled events
// when they reach the head of the queue; it never reorders the heap on
// cancellation.
func (env *Environment) Cancel(e *Event) {
	if e != nil {
		e.canceled = true
	}
}

// CancelAllFor cancels every not-yet-executed event whose Location is loc.
// This is the mechanism Machine uses to clear its own stale events before
// entering repair (§4.3 fail/maintain).
func (env *Environment) CancelAllFor(loc node) {
	for _, e := range env.queue {
		if e.location == loc {
			e.canceled = true
		}
	}
}

// Maintainer returns the environment's maintainer, used by actions that
// need to schedule inspect.
func (env *Environment) Maintainer() *Maintainer { return env.maintainer }

// WarmUpTime reports the configured warm-up horizon.
func (env *Environment) WarmUpTime() int { return env.warmUpTime }

// CollectData reports whether per-entity time-series history should be
// retained (machine health, buffer level, production).
func (env *Environment) CollectData() bool { return env.collectData }

// Log exposes the environment's structured logger for actions that need to
// emit diagnostic events (e.g. invariant violations).
func (env *Environment) Log() *zerolog.Logger { return &env.log }

// Run drains the event queue from env.now until a terminate event fires at
// warmUpTime+simTime, or the queue empties first. On an internal invariant
// violation it dumps the trace to the log at Error level and re-panics with
// the original value; System.Simulate does not recover that panic.
func (env *Environment) Run(warmUpTime, simTime int) error {
	env.warmUpTime = warmUpTime
	env.simTime = simTime
	env.Schedule(warmUpTime+simTime, nil, actionTerminate, func() { env.terminated = true }, "run", 0)

	defer func() {
		if r := recover(); r != nil {
			env.dumpTrace()
			panic(r)
		}
	}()

	for env.queue.Len() > 0 {
		e := heap.Pop(&env.queue).(*Event)
		if env.traceEnabled {
			row := TraceRow{
				Time:     e.time,
				Action:   e.kind.String(),
				Source:   e.source,
				Priority: e.priority,
				Index:    e.index,
			}
			if e.location != nil {
				row.Location = e.location.Name()
			}
			if e.canceled {
				row.Status = "canceled"
			}
			if env.correlate {
				row.CorrelationID = uuid.NewString()
			}
			env.trace = append(env.trace, row)
		}
		if e.canceled {
			continue
		}
		env.now = e.time
		e.run()
		if e.kind == actionTerminate {
			break
		}
	}
	if !env.terminated && env.queue.Len() == 0 {
		return ErrQueueEmpty
	}
	return nil
}

// Trace returns the recorded trace rows, populated only when tracing was
// enabled on the environment. The slice is exported once the run completes.
func (env *Environment) Trace() []TraceRow { return env.trace }

func (env *Environment) dumpTrace() {
	env.log.Error().Int("rows", len(env.trace)).Msg("kernel aborting: dumping trace")
	for _, row := range env.trace {
		env.log.Error().
			Int("time", row.Time).
			Str("location", row.Location).
			Str("action", row.Action).
			Str("source", row.Source).
			Int("priority", row.Priority).
			Str("status", row.Status).
			Uint64("index", row.Index).
			Msg("trace row")
	}
}

// checkInvariant panics with an InvariantError if ok is false. Actions call
// this for the handful of conditions that must never occur in a correct run
// (reservation underflow, put into a full buffer, get from an empty one).
func checkInvariant(where string, ok bool, format string, args ...any) {
	if !ok {
		panic(&InvariantError{Where: where, Cause: fmt.Errorf(format, args...)})
	}
}
