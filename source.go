package simline

// Source is the upstream-most node in a line. With no interarrival
// distribution it represents unlimited raw stock (always able to give); with
// one configured, it produces at most one unit of stock at a time, refilled
// every interarrival sample.
type Source struct {
	name         string
	interarrival *Distribution // nil => unlimited stock
	level        int
	reservedContent int
	drains       []*Machine
}

// NewSource constructs a Source. Pass a nil interarrival for an unlimited
// stock source.
func NewSource(name string, interarrival *Distribution) *Source {
	return &Source{name: name, interarrival: interarrival}
}

func (s *Source) Name() string { return s.name }

func (s *Source) canGive() bool {
	if s.interarrival == nil {
		return true
	}
	return s.level-s.reservedContent > 0
}

func (s *Source) reserveContent() {
	checkInvariant("source.reserveContent", s.interarrival == nil || s.reservedContent < s.level,
		"source %s: reserved_content would exceed level", s.name)
	s.reservedContent++
}

func (s *Source) takeContent(env *Environment) {
	checkInvariant("source.takeContent", s.reservedContent > 0, "source %s: reserved_content underflow", s.name)
	s.reservedContent--
	if s.interarrival != nil {
		checkInvariant("source.takeContent", s.level > 0, "source %s: level underflow", s.name)
		s.level--
	}
}

func (s *Source) registerDrain(m *Machine) { s.drains = append(s.drains, m) }

// retryFeeders is a no-op: nothing feeds a source.
func (s *Source) retryFeeders(env *Environment) {}

// retryDrains re-schedules request_part for every starved machine drawing
// from this source, because the source's level just increased.
func (s *Source) retryDrains(env *Environment) {
	for _, m := range s.drains {
		if m.starved {
			m := m
			env.Schedule(env.now, m, actionRequestPart, func() { m.doRequestPart(env) }, "unblock", m.priority)
		}
	}
}

// actionGenerateArrival fires every interarrival time units, replenishing
// one unit of stock when the source is currently empty.
func (s *Source) actionGenerateArrival(env *Environment) {
	if s.level == 0 {
		s.level = 1
		s.retryDrains(env)
	}
	next := s.interarrival.Sample(env.rng)
	env.Schedule(env.now+next, s, actionGenerateArrival, func() { s.actionGenerateArrival(env) }, "generate_arrival", 0)
}
