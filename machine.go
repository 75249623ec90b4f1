package simline

import "math/rand/v2"

// PlannedFailure schedules a single out-of-band maintenance event at a fixed
// time, independent of the maintainer's dispatch loop (it never consumes a
// maintainer capacity slot, since it was never queued through inspect).
type PlannedFailure struct {
	Time     int
	Duration int
}

// Machine is a single processing stage: it pulls from Upstream, holds a part
// for CycleTime, pushes to Downstream, and independently degrades toward a
// failed health state that forces a repair.
type Machine struct {
	name     string
	priority int

	upstream   giver
	downstream receiver

	// targetGiver/targetReceiver name the node a reservation is currently
	// outstanding against — at most one of each at any time. They guard
	// doRequestPart/doRequestSpace against re-entry: a retry notification can
	// queue a second request_part/request_space while the machine still looks
	// starved/blocked, and hasPart does not change until the follow-up
	// get_part/put_part event actually runs, so without this the two-phase
	// handoff is not idempotent against that second request.
	targetGiver    giver
	targetReceiver receiver

	cycleTime *Distribution

	hasPart         bool
	hasFinishedPart bool
	remainingProcessTime int
	starved         bool
	blocked         bool
	partsMade       int

	health             int
	failedHealth       int
	cbmThreshold       int
	degradationMatrix  [][]float64
	failed             bool
	inQueue            bool
	underRepair        bool
	timeEnteredQueue   int
	enteredQueueThisCycle bool
	repairConsumesMaintainerSlot bool

	pmDistribution *Distribution
	cmDistribution *Distribution
	plannedFailure *PlannedFailure

	initialHealth           int
	initialRemainingProcess int
	initialHasPart          bool

	downtime      int
	downtimeStart int

	collectData        bool
	healthHistory       []TimeValue
	productionHistory   []TimeValue
	maintenanceHistory  []TimeStatus

	metrics *Metrics
}

// MachineConfig carries the construction parameters for a Machine; used by
// both the programmatic Builder and the YAML config loader.
type MachineConfig struct {
	Name                    string
	Priority                int
	CycleTime               *Distribution
	DegradationMatrix       [][]float64
	CBMThreshold            int // index of the cbm_threshold health state; equal to FailedHealth for pure corrective
	FailedHealth            int
	PMDistribution          *Distribution
	CMDistribution          *Distribution
	PlannedFailure          *PlannedFailure
	InitialHealth           int
	InitialRemainingProcess int
	InitialHasPart          bool
}

// NewMachine constructs a Machine from cfg. Upstream/Downstream are wired
// separately via the System builder once every node exists.
func NewMachine(cfg MachineConfig) *Machine {
	return &Machine{
		name:              cfg.Name,
		priority:          cfg.Priority,
		cycleTime:         cfg.CycleTime,
		degradationMatrix: cfg.DegradationMatrix,
		cbmThreshold:      cfg.CBMThreshold,
		failedHealth:      cfg.FailedHealth,
		pmDistribution:    cfg.PMDistribution,
		cmDistribution:    cfg.CMDistribution,
		plannedFailure:    cfg.PlannedFailure,
		initialHealth:           cfg.InitialHealth,
		initialRemainingProcess: cfg.InitialRemainingProcess,
		initialHasPart:          cfg.InitialHasPart,
	}
}

func (m *Machine) Name() string { return m.name }

// PartsMade reports units delivered downstream after warm-up.
func (m *Machine) PartsMade() int { return m.partsMade }

// Downtime reports accumulated time spent under repair.
func (m *Machine) Downtime() int { return m.downtime }

// Availability reports 1 - downtime/totalTime.
func (m *Machine) Availability(totalTime int) float64 {
	if totalTime <= 0 {
		return 1
	}
	return 1 - float64(m.downtime)/float64(totalTime)
}

// initialize runs once per replication, per §4.3 "initialize".
func (m *Machine) initialize(env *Environment) {
	m.health = m.initialHealth
	m.remainingProcessTime = m.initialRemainingProcess
	m.hasPart = m.initialHasPart
	m.hasFinishedPart = false
	m.starved = false
	m.blocked = false
	m.partsMade = 0
	m.downtime = 0
	m.downtimeStart = 0
	m.inQueue = false
	m.underRepair = false
	m.enteredQueueThisCycle = false
	m.repairConsumesMaintainerSlot = false
	m.targetGiver = nil
	m.targetReceiver = nil

	if m.plannedFailure != nil {
		env.Schedule(m.plannedFailure.Time, m, actionMaintainPlannedFailure, func() { m.doMaintainPlannedFailure(env) }, "initialize", m.priority)
	}

	if len(m.degradationMatrix) > 1 && m.health >= m.failedHealth {
		m.failed = true
		m.downtimeStart = env.now
		m.doEnterQueue(env)
		if env.maintainer.HasCapacity() {
			env.Schedule(env.now, env.maintainer, actionInspect, func() { env.maintainer.doInspect(env) }, "initialize", 0)
		}
		return
	}
	m.failed = false
	m.scheduleNextDegrade(env)

	if m.hasPart {
		env.Schedule(env.now+m.remainingProcessTime, m, actionRequestSpace, func() { m.doRequestSpace(env) }, "initialize", m.priority)
		return
	}
	env.Schedule(env.now, m, actionRequestPart, func() { m.doRequestPart(env) }, "initialize", m.priority)
}

// sampleTimeToDegrade returns math.MaxInt64 (treated as "never") when the
// current health state's self-loop probability is 1, else the number of
// trials to leave it, drawn from that probability. The distilled model
// advances health by exactly one state per degrade event regardless of how
// the degradation matrix's off-diagonal mass is distributed across the
// other states — only the diagonal entry of the current row governs timing.
func (m *Machine) sampleTimeToDegrade(rng *rand.Rand) int {
	row := m.degradationMatrix[m.health]
	selfLoop := row[m.health]
	return sampleGeometricTrials(rng, 1-selfLoop)
}

func (m *Machine) scheduleNextDegrade(env *Environment) {
	ttd := m.sampleTimeToDegrade(env.rng)
	if ttd == neverDegrade {
		return // self-loop probability 1: this machine never degrades further
	}
	env.Schedule(env.now+ttd, m, actionDegrade, func() { m.doDegrade(env) }, "schedule_degrade", m.priority)
}

func (m *Machine) doDegrade(env *Environment) {
	m.health++
	if m.collectData {
		m.healthHistory = append(m.healthHistory, TimeValue{Time: env.now, Value: float64(m.health)})
	}
	reachedCBM := m.health == m.cbmThreshold
	reachedFailed := m.health == m.failedHealth
	if reachedCBM {
		env.Schedule(env.now, m, actionEnterQueue, func() { m.doEnterQueue(env) }, "degrade", m.priority)
	}
	if reachedFailed {
		env.Schedule(env.now, m, actionFail, func() { m.doFail(env) }, "degrade", m.priority)
	}
	if !reachedCBM && !reachedFailed {
		m.scheduleNextDegrade(env)
	}
}

func (m *Machine) doEnterQueue(env *Environment) {
	if !m.enteredQueueThisCycle {
		m.timeEnteredQueue = env.now
		m.enteredQueueThisCycle = true
	}
	m.inQueue = true
	if !m.failed && env.maintainer.HasCapacity() {
		env.Schedule(env.now, env.maintainer, actionInspect, func() { env.maintainer.doInspect(env) }, "enter_queue", 0)
	}
}

func (m *Machine) doFail(env *Environment) {
	m.failed = true
	m.downtimeStart = env.now
	if m.collectData {
		m.maintenanceHistory = append(m.maintenanceHistory, TimeStatus{Time: env.now, Status: "down"})
	}
	if !m.inQueue {
		m.doEnterQueue(env)
	}
	env.CancelAllFor(m)
	if env.maintainer.HasCapacity() {
		env.Schedule(env.now, env.maintainer, actionInspect, func() { env.maintainer.doInspect(env) }, "fail", 0)
	}
}

func (m *Machine) doMaintain(env *Environment) {
	m.repairConsumesMaintainerSlot = true
	m.hasPart = false
	m.hasFinishedPart = false
	m.targetGiver = nil
	m.targetReceiver = nil
	env.CancelAllFor(m)
	var repairTime int
	if !m.failed {
		m.downtimeStart = env.now
		if m.collectData {
			m.maintenanceHistory = append(m.maintenanceHistory, TimeStatus{Time: env.now, Status: "down"})
		}
		repairTime = m.pmDistribution.Sample(env.rng)
	} else {
		repairTime = m.cmDistribution.Sample(env.rng)
	}
	env.Schedule(env.now+repairTime, m, actionRestore, func() { m.doRestore(env) }, "maintain", m.priority)
}

func (m *Machine) doMaintainPlannedFailure(env *Environment) {
	m.underRepair = true
	m.repairConsumesMaintainerSlot = false
	m.hasPart = false
	m.hasFinishedPart = false
	m.targetGiver = nil
	m.targetReceiver = nil
	m.downtimeStart = env.now
	if m.collectData {
		m.maintenanceHistory = append(m.maintenanceHistory, TimeStatus{Time: env.now, Status: "down"})
	}
	env.CancelAllFor(m)
	env.Schedule(env.now+m.plannedFailure.Duration, m, actionRestore, func() { m.doRestore(env) }, "maintain_planned_failure", m.priority)
}

func (m *Machine) doRestore(env *Environment) {
	elapsed := env.now - m.downtimeStart
	m.health = 0
	m.underRepair = false
	m.failed = false
	m.downtime += elapsed
	m.enteredQueueThisCycle = false
	if m.collectData {
		m.healthHistory = append(m.healthHistory, TimeValue{Time: env.now, Value: float64(m.health)})
		m.maintenanceHistory = append(m.maintenanceHistory, TimeStatus{Time: env.now, Status: "up"})
	}
	if m.metrics != nil {
		m.metrics.recordDowntime(m.name, elapsed)
	}
	if m.repairConsumesMaintainerSlot {
		env.maintainer.Utilization--
		env.Schedule(env.now, env.maintainer, actionInspect, func() { env.maintainer.doInspect(env) }, "restore", 0)
	}
	m.scheduleNextDegrade(env)
	env.Schedule(env.now, m, actionRequestPart, func() { m.doRequestPart(env) }, "restore", m.priority)
}

// doRequestPart implements §4.2 step 1 for this machine. targetGiver guards
// against a second request_part — woken by a retryDrains notification aimed
// at this still-starved-looking machine — re-reserving content while a
// get_part from an earlier reservation is already in flight; hasPart does
// not flip true until that get_part actually runs.
func (m *Machine) doRequestPart(env *Environment) {
	if m.hasPart || m.underRepair || m.failed || m.targetGiver != nil {
		return
	}
	if !m.upstream.canGive() {
		m.starved = true
		return
	}
	m.starved = false
	m.targetGiver = m.upstream
	m.upstream.reserveContent()
	env.Schedule(env.now, m, actionGetPart, func() { m.doGetPart(env) }, "request_part", m.priority)
}

func (m *Machine) doGetPart(env *Environment) {
	m.upstream.takeContent(env)
	m.targetGiver = nil
	m.hasPart = true
	m.remainingProcessTime = m.cycleTime.Sample(env.rng)
	env.Schedule(env.now+m.remainingProcessTime, m, actionRequestSpace, func() { m.doRequestSpace(env) }, "get_part", m.priority)
	m.upstream.retryFeeders(env)
}

// doRequestSpace implements §4.2 step 3. targetReceiver guards the same
// re-entry hazard as doRequestPart's targetGiver, on the push side: a
// retryFeeders notification must not reserve a second vacancy while an
// earlier reservation's put_part has not yet run.
func (m *Machine) doRequestSpace(env *Environment) {
	if m.targetReceiver != nil {
		return
	}
	m.hasFinishedPart = true
	if !m.downstream.canReceive() {
		m.blocked = true
		return
	}
	m.blocked = false
	m.targetReceiver = m.downstream
	m.downstream.reserveVacancy()
	env.Schedule(env.now, m, actionPutPart, func() { m.doPutPart(env) }, "request_space", m.priority)
}

func (m *Machine) doPutPart(env *Environment) {
	m.downstream.putContent(env)
	m.targetReceiver = nil
	m.hasPart = false
	m.hasFinishedPart = false
	if env.now > env.warmUpTime {
		m.partsMade++
		if m.metrics != nil {
			m.metrics.recordPart(m.name)
		}
		if m.collectData {
			m.productionHistory = append(m.productionHistory, TimeValue{Time: env.now, Value: float64(m.partsMade)})
		}
	}
	env.Schedule(env.now, m, actionRequestPart, func() { m.doRequestPart(env) }, "put_part", m.priority)
	m.downstream.retryDrains(env)
}
