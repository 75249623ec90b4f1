package simline

// Sink is the downstream-most node in a line: it accepts unlimited parts and
// counts only those admitted after warm-up, per the documented sink
// contract.
type Sink struct {
	name    string
	total   int
	feeders []*Machine

	collectData bool
	totalTrace  []TimeValue
}

// NewSink constructs a Sink.
func NewSink(name string) *Sink { return &Sink{name: name} }

func (s *Sink) Name() string { return s.name }

func (s *Sink) canReceive() bool { return true }

func (s *Sink) reserveVacancy() {}

func (s *Sink) putContent(env *Environment) {
	if env.now > env.warmUpTime {
		s.total++
	}
	if s.collectData {
		s.totalTrace = append(s.totalTrace, TimeValue{Time: env.now, Value: float64(s.total)})
	}
}

func (s *Sink) registerFeeder(m *Machine) { s.feeders = append(s.feeders, m) }

// retryDrains is a no-op: nothing is downstream of a sink.
func (s *Sink) retryDrains(env *Environment) {}

// retryFeeders exists for protocol symmetry with Buffer; a sink never
// blocks, so feeders never wait on it in practice, but a custom node
// composition could still rely on the callback existing.
func (s *Sink) retryFeeders(env *Environment) {
	for _, m := range s.feeders {
		if m.blocked {
			m := m
			env.Schedule(env.now, m, actionRequestSpace, func() { m.doRequestSpace(env) }, "unblock", m.priority)
		}
	}
}

// Total reports parts admitted after warm-up.
func (s *Sink) Total() int { return s.total }
