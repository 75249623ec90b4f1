package simline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDist(t *testing.T, d *Distribution, err error) *Distribution {
	t.Helper()
	require.NoError(t, err)
	return d
}

func TestMachine_Availability(t *testing.T) {
	m := &Machine{name: "m1", downtime: 100}
	assert.InDelta(t, 0.9, m.Availability(1000), 1e-9)
	assert.Equal(t, 1.0, m.Availability(0))
}

func TestMachine_InitializeUnlimitedSourceRequestsPartImmediately(t *testing.T) {
	cycle := mustDist(t, NewConstant(1))
	m := NewMachine(MachineConfig{
		Name:              "m1",
		CycleTime:         cycle,
		DegradationMatrix: [][]float64{{1, 0}, {0, 1}},
		FailedHealth:      1,
	})
	env := newTestEnv()
	src := NewSource("src", nil)
	m.upstream = src
	m.downstream = NewSink("sink")

	m.initialize(env)

	require.Len(t, env.queue, 1)
	assert.Equal(t, actionRequestPart, env.queue[0].kind)
	assert.Equal(t, m, env.queue[0].location)
}

func TestMachine_InitializeBornFailedEntersQueueAndSchedulesInspect(t *testing.T) {
	cycle := mustDist(t, NewConstant(1))
	m := NewMachine(MachineConfig{
		Name:              "m1",
		CycleTime:         cycle,
		DegradationMatrix: [][]float64{{0, 1}, {0, 1}},
		FailedHealth:      1,
		InitialHealth:     1, // starts at the failed state
		PMDistribution:    mustDist(t, NewConstant(5)),
		CMDistribution:    mustDist(t, NewConstant(5)),
	})
	env := newTestEnv()
	m.upstream = NewSource("src", nil)
	m.downstream = NewSink("sink")

	m.initialize(env)

	assert.True(t, m.failed)
	assert.True(t, m.inQueue)
	var sawInspect bool
	for _, e := range env.queue {
		if e.kind == actionInspect {
			sawInspect = true
		}
		assert.NotEqual(t, actionRequestPart, e.kind, "a born-failed machine must never request a part")
	}
	assert.True(t, sawInspect)
}

func TestMachine_DegradationRowWithCertainSelfLoopNeverDegrades(t *testing.T) {
	m := &Machine{name: "m1", degradationMatrix: [][]float64{{1, 0}, {0, 1}}, health: 0}
	env := newTestEnv()
	m.scheduleNextDegrade(env)
	assert.Empty(t, env.queue, "self-loop probability 1 must never schedule a degrade event")
}

func TestMachine_DoDegradeIncrementsHealthByExactlyOne(t *testing.T) {
	m := &Machine{
		name:              "m1",
		degradationMatrix: [][]float64{{0.5, 0.5, 0}, {0, 0.5, 0.5}, {0, 0, 1}},
		failedHealth:      2,
		cbmThreshold:      2,
	}
	env := newTestEnv()
	m.doDegrade(env)
	assert.Equal(t, 1, m.health)
}

func TestMachine_DoDegradeReachingFailedHealthAloneSchedulesOnlyFail(t *testing.T) {
	m := &Machine{
		name:              "m1",
		health:            1,
		degradationMatrix: [][]float64{{0, 1, 0}, {0, 0, 1}, {0, 0, 1}},
		failedHealth:      2,
		cbmThreshold:      1, // already passed on an earlier degrade
	}
	env := newTestEnv()
	m.doDegrade(env)
	assert.Equal(t, 2, m.health)
	require.Len(t, env.queue, 1)
	assert.Equal(t, actionFail, env.queue[0].kind)
}

func TestMachine_DoDegradeReachingCBMOnlySchedulesEnterQueue(t *testing.T) {
	m := &Machine{
		name:              "m1",
		health:            0,
		degradationMatrix: [][]float64{{0, 1, 0}, {0, 0, 1}, {0, 0, 1}},
		failedHealth:      2,
		cbmThreshold:      1,
	}
	env := newTestEnv()
	m.doDegrade(env)
	assert.Equal(t, 1, m.health)
	require.Len(t, env.queue, 1)
	assert.Equal(t, actionEnterQueue, env.queue[0].kind)
}

func TestMachine_CBMThresholdEqualsFailedHealthReducesToPureCorrective(t *testing.T) {
	// cbm_threshold == failed_health: enter_queue and fail fire at the same
	// degrade event, so maintenance is always corrective, never condition-based.
	m := &Machine{
		name:              "m1",
		health:            0,
		degradationMatrix: [][]float64{{0, 1}, {0, 1}},
		failedHealth:      1,
		cbmThreshold:      1,
	}
	env := newTestEnv()
	m.doDegrade(env)
	var sawEnterQueue, sawFail bool
	for _, e := range env.queue {
		switch e.kind {
		case actionEnterQueue:
			sawEnterQueue = true
		case actionFail:
			sawFail = true
		}
	}
	assert.True(t, sawEnterQueue)
	assert.True(t, sawFail)
}

func TestMachine_DoEnterQueueRecordsTimeOnlyOnceCycle(t *testing.T) {
	m := &Machine{name: "m1"}
	env := newTestEnv()
	env.now = 10
	m.doEnterQueue(env)
	assert.Equal(t, 10, m.timeEnteredQueue)

	env.now = 20
	m.doEnterQueue(env)
	assert.Equal(t, 10, m.timeEnteredQueue, "time_entered_queue must not move once already queued this cycle")
}

func TestMachine_DoFailCancelsPendingEventsAndEntersQueue(t *testing.T) {
	m := &Machine{name: "m1"}
	env := newTestEnv()
	env.maintainer = NewMaintainer(1, nil)
	env.Schedule(5, m, actionRequestSpace, func() {}, "stale", 0)

	m.doFail(env)

	assert.True(t, m.failed)
	assert.True(t, m.inQueue)
	var sawInspect bool
	for _, e := range env.queue {
		if e.location == m && e.kind == actionRequestSpace {
			assert.True(t, e.canceled, "fail must cancel the machine's stale pending events")
		}
		if e.kind == actionInspect {
			sawInspect = true
		}
	}
	assert.True(t, sawInspect)
}

func TestMachine_DoMaintainSamplesPMWhenNotFailed(t *testing.T) {
	m := &Machine{
		name:           "m1",
		pmDistribution: mustDist(t, NewConstant(3)),
		cmDistribution: mustDist(t, NewConstant(99)),
		failed:         false,
	}
	env := newTestEnv()
	env.now = 10
	m.doMaintain(env)

	require.Len(t, env.queue, 1)
	assert.Equal(t, actionRestore, env.queue[0].kind)
	assert.Equal(t, 13, env.queue[0].time)
	assert.True(t, m.repairConsumesMaintainerSlot)
}

func TestMachine_DoMaintainSamplesCMWhenFailed(t *testing.T) {
	m := &Machine{
		name:           "m1",
		pmDistribution: mustDist(t, NewConstant(99)),
		cmDistribution: mustDist(t, NewConstant(3)),
		failed:         true,
	}
	env := newTestEnv()
	env.now = 10
	m.doMaintain(env)

	require.Len(t, env.queue, 1)
	assert.Equal(t, 13, env.queue[0].time)
}

func TestMachine_DoMaintainPlannedFailureNeverConsumesMaintainerSlot(t *testing.T) {
	m := &Machine{name: "m1", plannedFailure: &PlannedFailure{Time: 100, Duration: 50}}
	env := newTestEnv()
	env.now = 100

	m.doMaintainPlannedFailure(env)

	assert.False(t, m.repairConsumesMaintainerSlot)
	assert.True(t, m.underRepair)
	require.Len(t, env.queue, 1)
	assert.Equal(t, 150, env.queue[0].time)
}

func TestMachine_DoRestoreResetsHealthAndReschedulesDegrade(t *testing.T) {
	m := &Machine{
		name:                         "m1",
		health:                      2,
		degradationMatrix:           [][]float64{{0, 1, 0}, {0, 0, 1}, {0, 0, 1}},
		failedHealth:                2,
		underRepair:                 true,
		failed:                      true,
		downtimeStart:               0,
		repairConsumesMaintainerSlot: true,
	}
	env := newTestEnv()
	env.now = 10
	env.maintainer.Utilization = 1

	m.doRestore(env)

	assert.Equal(t, 0, m.health)
	assert.False(t, m.underRepair)
	assert.False(t, m.failed)
	assert.Equal(t, 10, m.downtime)
	assert.Equal(t, 0, env.maintainer.Utilization)

	var sawInspect, sawRequestPart bool
	for _, e := range env.queue {
		if e.kind == actionInspect {
			sawInspect = true
		}
		if e.kind == actionRequestPart {
			sawRequestPart = true
		}
	}
	assert.True(t, sawInspect, "restore from a maintainer-dispatched repair must reschedule inspect")
	assert.True(t, sawRequestPart)
}

func TestMachine_DoRestoreSkipsMaintainerAccountingForPlannedFailure(t *testing.T) {
	m := &Machine{
		name:                         "m1",
		degradationMatrix:           [][]float64{{1}},
		failedHealth:                0,
		underRepair:                 true,
		repairConsumesMaintainerSlot: false,
	}
	env := newTestEnv()
	env.now = 10
	env.maintainer.Utilization = 0

	m.doRestore(env)

	assert.Equal(t, 0, env.maintainer.Utilization, "utilization must never go negative for a planned failure restore")
	for _, e := range env.queue {
		assert.NotEqual(t, actionInspect, e.kind, "planned-failure restore must not reschedule inspect")
	}
}

func TestMachine_DoRequestPartGuardsAgainstFailedAndUnderRepair(t *testing.T) {
	src := NewSource("src", nil)
	m := &Machine{name: "m1", upstream: src, failed: true}
	env := newTestEnv()
	m.doRequestPart(env)
	assert.Empty(t, env.queue, "a failed machine must never request a part")

	m.failed = false
	m.underRepair = true
	m.doRequestPart(env)
	assert.Empty(t, env.queue, "a machine under repair must never request a part")
}

func TestMachine_DoRequestPartStarvesWhenUpstreamCannotGive(t *testing.T) {
	src := NewSource("src", mustDist(t, NewConstant(100))) // starts empty
	m := &Machine{name: "m1", upstream: src}
	env := newTestEnv()

	m.doRequestPart(env)

	assert.True(t, m.starved)
	assert.Empty(t, env.queue)
}

func TestMachine_FullCycleMovesAPartFromSourceToSink(t *testing.T) {
	cycle := mustDist(t, NewConstant(3))
	m := NewMachine(MachineConfig{
		Name:              "m1",
		CycleTime:         cycle,
		DegradationMatrix: [][]float64{{1, 0}, {0, 1}},
		FailedHealth:      1,
	})
	env := newTestEnv()
	src := NewSource("src", nil)
	sink := NewSink("sink")
	m.upstream = src
	m.downstream = sink
	src.registerDrain(m)
	sink.registerFeeder(m)

	m.initialize(env)
	require.NoError(t, env.Run(0, 20))

	assert.Greater(t, sink.Total(), 0)
	assert.Greater(t, m.PartsMade(), 0)
}
