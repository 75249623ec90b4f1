package simline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFIFOPolicy_ChoosesSmallestTimeEnteredQueue(t *testing.T) {
	m1 := &Machine{name: "m1", timeEnteredQueue: 10}
	m2 := &Machine{name: "m2", timeEnteredQueue: 3}
	m3 := &Machine{name: "m3", timeEnteredQueue: 7}

	chosen := FIFOPolicy{}.Choose([]*Machine{m1, m2, m3}, newRNG(1))
	assert.Equal(t, m2, chosen)
}

func TestFIFOPolicy_BreaksTiesUniformlyAtRandom(t *testing.T) {
	m1 := &Machine{name: "m1", timeEnteredQueue: 5}
	m2 := &Machine{name: "m2", timeEnteredQueue: 5}

	seen := map[string]bool{}
	for seed := int64(0); seed < 50; seed++ {
		chosen := FIFOPolicy{}.Choose([]*Machine{m1, m2}, newRNG(seed))
		seen[chosen.name] = true
	}
	assert.Len(t, seen, 2, "both tied machines should be selectable across many seeds")
}

func TestPriorityThenFIFOPolicy_PrefersHighestPriorityTier(t *testing.T) {
	low := &Machine{name: "low", priority: 1, timeEnteredQueue: 0}
	high := &Machine{name: "high", priority: 10, timeEnteredQueue: 100}

	chosen := PriorityThenFIFOPolicy{}.Choose([]*Machine{low, high}, newRNG(1))
	assert.Equal(t, high, chosen, "higher priority wins even with a later queue-entry time")
}

func TestPriorityThenFIFOPolicy_FallsBackToFIFOWithinTier(t *testing.T) {
	a := &Machine{name: "a", priority: 5, timeEnteredQueue: 20}
	b := &Machine{name: "b", priority: 5, timeEnteredQueue: 5}
	c := &Machine{name: "c", priority: 1, timeEnteredQueue: 0}

	chosen := PriorityThenFIFOPolicy{}.Choose([]*Machine{a, b, c}, newRNG(1))
	assert.Equal(t, b, chosen)
}

func TestMaintainer_HasCapacityRespectsUtilization(t *testing.T) {
	mt := NewMaintainer(2, nil)
	assert.True(t, mt.HasCapacity())
	mt.Utilization = 2
	assert.False(t, mt.HasCapacity())
}

func TestMaintainer_NegativeCapacityIsUnbounded(t *testing.T) {
	mt := NewMaintainer(-1, nil)
	mt.Utilization = 1000
	assert.True(t, mt.HasCapacity())
}

func TestMaintainer_DoInspectDispatchesUntilCapacitySaturated(t *testing.T) {
	mt := NewMaintainer(1, nil)
	env := newTestEnv()
	env.maintainer = mt

	m1 := &Machine{name: "m1", inQueue: true, timeEnteredQueue: 1}
	m2 := &Machine{name: "m2", inQueue: true, timeEnteredQueue: 2}
	mt.registerMachine(m1)
	mt.registerMachine(m2)

	mt.doInspect(env)

	assert.Equal(t, 1, mt.Utilization)
	assert.False(t, m1.inQueue)
	assert.True(t, m1.underRepair)
	assert.True(t, m2.inQueue, "second machine must remain queued: capacity saturated at 1")
	require.Len(t, env.queue, 1)
	assert.Equal(t, m1, env.queue[0].location)
}

func TestMaintainer_DoInspectLoopsUntilQueueDrainedUnderSufficientCapacity(t *testing.T) {
	mt := NewMaintainer(5, nil)
	env := newTestEnv()
	env.maintainer = mt

	m1 := &Machine{name: "m1", inQueue: true, timeEnteredQueue: 1}
	m2 := &Machine{name: "m2", inQueue: true, timeEnteredQueue: 2}
	mt.registerMachine(m1)
	mt.registerMachine(m2)

	mt.doInspect(env)

	assert.Equal(t, 2, mt.Utilization)
	assert.False(t, m1.inQueue)
	assert.False(t, m2.inQueue)
	assert.Len(t, env.queue, 2)
}

func TestMaintainer_BuildQueueExcludesMachinesAlreadyUnderRepair(t *testing.T) {
	mt := NewMaintainer(5, nil)
	m1 := &Machine{name: "m1", inQueue: true, underRepair: true}
	m2 := &Machine{name: "m2", inQueue: true, underRepair: false}
	mt.registerMachine(m1)
	mt.registerMachine(m2)

	queue := mt.buildQueue()
	require.Len(t, queue, 1)
	assert.Equal(t, m2, queue[0])
}
