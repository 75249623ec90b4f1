package simline

// Buffer holds between zero and capacity parts between two stages of a
// line. It can be fed by multiple machines and drained by multiple machines
// (the "parallel stations share a buffer" topology), tracked via feeders and
// drains so the handoff protocol knows who to retry when level changes.
type Buffer struct {
	name            string
	capacity        int
	level           int
	reservedContent int
	reservedVacancy int
	initialLevel    int

	feeders []*Machine
	drains  []*Machine

	collectData bool
	levelTrace  []TimeValue
}

// TimeValue is one sample in a per-entity numeric time series (health,
// level, production) collected when CollectData is enabled.
type TimeValue struct {
	Time  int
	Value float64
}

// TimeStatus is one sample in a per-entity status time series (maintenance
// up/down transitions) collected when CollectData is enabled.
type TimeStatus struct {
	Time   int
	Status string
}

// NewBuffer constructs a Buffer with the given capacity and initial level.
func NewBuffer(name string, capacity, initialLevel int) *Buffer {
	return &Buffer{name: name, capacity: capacity, initialLevel: initialLevel, level: initialLevel}
}

func (b *Buffer) Name() string { return b.name }

func (b *Buffer) canGive() bool    { return b.level-b.reservedContent > 0 }
func (b *Buffer) canReceive() bool { return b.level+b.reservedVacancy < b.capacity }

func (b *Buffer) reserveContent() {
	checkInvariant("buffer.reserveContent", b.reservedContent < b.level, "buffer %s: reserved_content would exceed level", b.name)
	b.reservedContent++
}

func (b *Buffer) reserveVacancy() {
	checkInvariant("buffer.reserveVacancy", b.level+b.reservedVacancy < b.capacity, "buffer %s: reserved_vacancy would exceed capacity", b.name)
	b.reservedVacancy++
}

func (b *Buffer) takeContent(env *Environment) {
	checkInvariant("buffer.takeContent", b.reservedContent > 0 && b.level > 0, "buffer %s: take from insufficient content", b.name)
	b.level--
	b.reservedContent--
	b.record(env)
}

func (b *Buffer) putContent(env *Environment) {
	checkInvariant("buffer.putContent", b.reservedVacancy > 0 && b.level < b.capacity, "buffer %s: put into full buffer", b.name)
	b.level++
	b.reservedVacancy--
	b.record(env)
}

func (b *Buffer) record(env *Environment) {
	if b.collectData {
		b.levelTrace = append(b.levelTrace, TimeValue{Time: env.now, Value: float64(b.level)})
	}
}

func (b *Buffer) registerFeeder(m *Machine) { b.feeders = append(b.feeders, m) }
func (b *Buffer) registerDrain(m *Machine)  { b.drains = append(b.drains, m) }

// retryFeeders re-schedules request_space for every machine blocked trying
// to push into this buffer, because a downstream pull just freed vacancy.
func (b *Buffer) retryFeeders(env *Environment) {
	for _, m := range b.feeders {
		if m.blocked {
			m := m
			env.Schedule(env.now, m, actionRequestSpace, func() { m.doRequestSpace(env) }, "unblock", m.priority)
		}
	}
}

// retryDrains re-schedules request_part for every machine starved pulling
// from this buffer, because an upstream push just added content.
func (b *Buffer) retryDrains(env *Environment) {
	for _, m := range b.drains {
		if m.starved {
			m := m
			env.Schedule(env.now, m, actionRequestPart, func() { m.doRequestPart(env) }, "unblock", m.priority)
		}
	}
}

// checkInvariants validates the buffer's documented structural invariants;
// intended for use from tests, not from the hot path.
func (b *Buffer) checkInvariants() error {
	if b.level < 0 || b.level > b.capacity {
		return &InvariantError{Where: "buffer." + b.name, Cause: errInvariant("level out of [0, capacity]")}
	}
	if b.reservedContent < 0 || b.reservedContent > b.level {
		return &InvariantError{Where: "buffer." + b.name, Cause: errInvariant("reserved_content out of [0, level]")}
	}
	if b.reservedVacancy < 0 || b.reservedVacancy > b.capacity-b.level {
		return &InvariantError{Where: "buffer." + b.name, Cause: errInvariant("reserved_vacancy out of [0, capacity-level]")}
	}
	return nil
}
