package simline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// System is a validated, replayable manufacturing-line topology. Build it
// once from a Config; Simulate and IterateSimulation each construct a fresh
// graph of nodes internally, so replications never share mutable state.
type System struct {
	cfg     Config
	opts    systemOptions
	metrics *Metrics
}

// Build validates cfg and returns a System ready to simulate. Validation
// includes a dry instantiation of the full node graph so that wiring
// mistakes (bad references, unbuildable distributions) surface here rather
// than mid-replication.
func Build(cfg Config, opts ...Option) (*System, error) {
	o := defaultSystemOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	sys := &System{cfg: cfg, opts: o}
	if o.metricsRegistry != nil {
		sys.metrics = NewMetrics(o.metricsRegistry)
	}
	if _, err := sys.instantiate(0); err != nil {
		return nil, err
	}

	log := defaultLogger()
	if o.logWriter != nil {
		log = newLogger(o.logWriter, o.logLevel)
	} else {
		log = log.Level(o.logLevel)
	}
	for _, m := range cfg.Machines {
		if m.PlannedFailure != nil && len(m.DegradationMatrix) > 1 {
			log.Warn().Str("machine", m.Name).Msg("planned failure combined with stochastic degradation: whichever fires first cancels only the other's current cycle, downtime is not additive")
		}
	}
	return sys, nil
}

// graph holds one replication's freshly constructed nodes.
type graph struct {
	sources    []*Source
	buffers    []*Buffer
	sinks      []*Sink
	machines   []*Machine
	maintainer *Maintainer
	byName     map[string]node
}

func (sys *System) instantiate(seed int64) (*graph, error) {
	g := &graph{byName: map[string]node{}}

	for _, spec := range sys.cfg.Sources {
		var interarrival *Distribution
		if spec.Interarrival != nil {
			d, err := spec.Interarrival.Build()
			if err != nil {
				return nil, NewConfigError("sources["+spec.Name+"].interarrival", err)
			}
			interarrival = d
		}
		s := NewSource(spec.Name, interarrival)
		g.sources = append(g.sources, s)
		g.byName[spec.Name] = s
	}
	for _, spec := range sys.cfg.Buffers {
		b := NewBuffer(spec.Name, spec.Capacity, spec.InitialLevel)
		b.collectData = sys.opts.collectData
		g.buffers = append(g.buffers, b)
		g.byName[spec.Name] = b
	}
	for _, spec := range sys.cfg.Sinks {
		sk := NewSink(spec.Name)
		sk.collectData = sys.opts.collectData
		g.sinks = append(g.sinks, sk)
		g.byName[spec.Name] = sk
	}

	policy := MaintenancePolicy(FIFOPolicy{})
	if sys.cfg.Maintainer.Policy == "priority_fifo" {
		policy = PriorityThenFIFOPolicy{}
	}
	g.maintainer = NewMaintainer(sys.cfg.Maintainer.Capacity, policy)
	g.maintainer.metrics = sys.metrics

	for _, spec := range sys.cfg.Machines {
		cycleTime, err := spec.CycleTime.Build()
		if err != nil {
			return nil, NewConfigError("machines["+spec.Name+"].cycle_time", err)
		}
		failedHealth := len(spec.DegradationMatrix) - 1
		cbm := failedHealth
		if spec.CBMThreshold != nil {
			cbm = *spec.CBMThreshold
		}
		mc := MachineConfig{
			Name:                    spec.Name,
			Priority:                spec.Priority,
			CycleTime:               cycleTime,
			DegradationMatrix:       spec.DegradationMatrix,
			CBMThreshold:            cbm,
			FailedHealth:            failedHealth,
			InitialHealth:           spec.InitialHealth,
			InitialRemainingProcess: spec.InitialRemainingProcess,
			InitialHasPart:          spec.InitialHasPart,
		}
		if spec.PMDistribution != nil {
			mc.PMDistribution, _ = spec.PMDistribution.Build()
		}
		if spec.CMDistribution != nil {
			mc.CMDistribution, _ = spec.CMDistribution.Build()
		}
		if spec.PlannedFailure != nil {
			mc.PlannedFailure = &PlannedFailure{Time: spec.PlannedFailure.Time, Duration: spec.PlannedFailure.Duration}
		}
		m := NewMachine(mc)
		m.metrics = sys.metrics
		m.collectData = sys.opts.collectData

		up, ok := g.byName[spec.Upstream].(giver)
		if !ok {
			return nil, NewConfigError("machines["+spec.Name+"].upstream", fmt.Errorf("%w: %q is not a giver", ErrInvalidTopology, spec.Upstream))
		}
		down, ok := g.byName[spec.Downstream].(receiver)
		if !ok {
			return nil, NewConfigError("machines["+spec.Name+"].downstream", fmt.Errorf("%w: %q is not a receiver", ErrInvalidTopology, spec.Downstream))
		}
		m.upstream = up
		m.downstream = down
		up.registerDrain(m)
		down.registerFeeder(m)

		g.machines = append(g.machines, m)
		g.maintainer.registerMachine(m)
	}

	return g, nil
}

// ReplicationResult is the outcome of one Simulate call.
type ReplicationResult struct {
	SystemProduction    int
	MachineProduction   map[string]int
	MachineAvailability map[string]float64
	Snapshot            *SystemSnapshot
}

// SystemSnapshot is an optional deep capture of end-of-replication state for
// post-analysis.
type SystemSnapshot struct {
	Machines map[string]MachineSnapshot
	Buffers  map[string]int
	Sinks    map[string]int
}

// MachineSnapshot captures one machine's end-of-replication state.
type MachineSnapshot struct {
	Health      int
	Failed      bool
	UnderRepair bool
	InQueue     bool
	HasPart     bool
	PartsMade   int
	Downtime    int
}

// Simulate runs one replication in place, seeded by seed, and returns its
// result. storeSnapshot controls whether a SystemSnapshot is attached.
func (sys *System) Simulate(warmUpTime, simTime int, seed int64, storeSnapshot bool) (ReplicationResult, error) {
	g, err := sys.instantiate(seed)
	if err != nil {
		return ReplicationResult{}, err
	}

	env := &Environment{
		rng:          newRNG(seed),
		log:          defaultLogger(),
		metrics:      sys.metrics,
		collectData:  sys.opts.collectData,
		traceEnabled: sys.opts.trace,
		correlate:    sys.opts.correlate,
		maintainer:   g.maintainer,
	}
	if sys.opts.logWriter != nil {
		env.log = newLogger(sys.opts.logWriter, sys.opts.logLevel)
	} else {
		env.log = env.log.Level(sys.opts.logLevel)
	}

	for _, s := range g.sources {
		if s.interarrival != nil {
			first := s.interarrival.Sample(env.rng)
			env.Schedule(first, s, actionGenerateArrival, func() { s.actionGenerateArrival(env) }, "initialize", 0)
		}
	}
	for _, m := range g.machines {
		m.initialize(env)
	}

	if err := env.Run(warmUpTime, simTime); err != nil {
		return ReplicationResult{}, err
	}

	result := ReplicationResult{
		MachineProduction:   map[string]int{},
		MachineAvailability: map[string]float64{},
	}
	totalTime := warmUpTime + simTime
	for _, sk := range g.sinks {
		result.SystemProduction += sk.Total()
	}
	for _, m := range g.machines {
		result.MachineProduction[m.Name()] = m.PartsMade()
		result.MachineAvailability[m.Name()] = m.Availability(totalTime)
	}
	if storeSnapshot {
		snap := &SystemSnapshot{
			Machines: map[string]MachineSnapshot{},
			Buffers:  map[string]int{},
			Sinks:    map[string]int{},
		}
		for _, m := range g.machines {
			snap.Machines[m.Name()] = MachineSnapshot{
				Health:      m.health,
				Failed:      m.failed,
				UnderRepair: m.underRepair,
				InQueue:     m.inQueue,
				HasPart:     m.hasPart,
				PartsMade:   m.partsMade,
				Downtime:    m.downtime,
			}
		}
		for _, b := range g.buffers {
			snap.Buffers[b.Name()] = b.level
		}
		for _, sk := range g.sinks {
			snap.Sinks[sk.Name()] = sk.Total()
		}
		result.Snapshot = snap
	}
	return result, nil
}

// IterateSimulation runs replications independent replications, each with
// its own graph and RNG seeded seedBase+i, fanned out across at most jobs
// concurrent goroutines. No state is shared between replications.
func (sys *System) IterateSimulation(replications, warmUpTime, simTime, jobs int, seedBase int64, storeSnapshot bool) ([]ReplicationResult, error) {
	if replications <= 0 {
		return nil, ErrNoReplications
	}
	if jobs <= 0 {
		jobs = 1
	}

	results := make([]ReplicationResult, replications)
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(jobs)

	for i := 0; i < replications; i++ {
		i := i
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			r, err := sys.Simulate(warmUpTime, simTime, seedBase+int64(i), storeSnapshot)
			if err != nil {
				return fmt.Errorf("replication %d: %w", i, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Metrics returns the System's Prometheus side-channel, or nil if
// WithMetrics was not supplied at Build time.
func (sys *System) Metrics() *Metrics { return sys.metrics }
