package simline

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// DistSpec is the YAML-facing description of a Distribution. A bare integer
// is shorthand for {constant: <that integer>}.
type DistSpec struct {
	Kind       string
	Constant   int
	UniformLow int
	UniformHigh int
	Geometric  float64
}

// UnmarshalYAML accepts either a bare scalar integer (shorthand for
// constant) or a mapping with exactly one of constant/uniform/geometric.
func (d *DistSpec) UnmarshalYAML(node *yaml.Node) error {
	var asInt int
	if err := node.Decode(&asInt); err == nil {
		d.Kind = "constant"
		d.Constant = asInt
		return nil
	}

	var m struct {
		Constant  *int     `yaml:"constant"`
		Uniform   *[2]int  `yaml:"uniform"`
		Geometric *float64 `yaml:"geometric"`
	}
	if err := node.Decode(&m); err != nil {
		return fmt.Errorf("distribution: %w", err)
	}
	set := 0
	for _, p := range []bool{m.Constant != nil, m.Uniform != nil, m.Geometric != nil} {
		if p {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("distribution: exactly one of constant, uniform, geometric must be set, got %d", set)
	}
	switch {
	case m.Constant != nil:
		d.Kind = "constant"
		d.Constant = *m.Constant
	case m.Uniform != nil:
		d.Kind = "uniform"
		d.UniformLow = m.Uniform[0]
		d.UniformHigh = m.Uniform[1]
	case m.Geometric != nil:
		d.Kind = "geometric"
		d.Geometric = *m.Geometric
	default:
		return fmt.Errorf("distribution: exactly one of constant, uniform, geometric must be set")
	}
	return nil
}

// Build converts the spec into a runtime Distribution.
func (d DistSpec) Build() (*Distribution, error) {
	switch d.Kind {
	case "constant":
		return NewConstant(d.Constant)
	case "uniform":
		return NewUniform(d.UniformLow, d.UniformHigh)
	case "geometric":
		return NewGeometric(d.Geometric)
	default:
		return nil, fmt.Errorf("%w: unset distribution kind", ErrInvalidDistribution)
	}
}

// SourceSpec configures one Source.
type SourceSpec struct {
	Name         string    `yaml:"name"`
	Interarrival *DistSpec `yaml:"interarrival"`
}

// BufferSpec configures one Buffer.
type BufferSpec struct {
	Name         string `yaml:"name"`
	Capacity     int    `yaml:"capacity"`
	InitialLevel int    `yaml:"initial_level"`
}

// SinkSpec configures one Sink.
type SinkSpec struct {
	Name string `yaml:"name"`
}

// PlannedFailureSpec configures a Machine's optional out-of-band outage.
type PlannedFailureSpec struct {
	Time     int `yaml:"time"`
	Duration int `yaml:"duration"`
}

// MachineSpec configures one Machine and its topology edges.
type MachineSpec struct {
	Name                    string               `yaml:"name"`
	Priority                int                  `yaml:"priority"`
	Upstream                string               `yaml:"upstream"`
	Downstream              string               `yaml:"downstream"`
	CycleTime               DistSpec             `yaml:"cycle_time"`
	DegradationMatrix       [][]float64          `yaml:"degradation_matrix"`
	CBMThreshold            *int                 `yaml:"cbm_threshold"`
	PMDistribution          *DistSpec            `yaml:"pm_distribution"`
	CMDistribution          *DistSpec            `yaml:"cm_distribution"`
	PlannedFailure          *PlannedFailureSpec  `yaml:"planned_failure"`
	InitialHealth           int                  `yaml:"initial_health"`
	InitialRemainingProcess int                  `yaml:"initial_remaining_process"`
	InitialHasPart          bool                 `yaml:"initial_has_part"`
}

// MaintainerSpec configures the shared repair dispatcher.
type MaintainerSpec struct {
	Capacity int    `yaml:"capacity"`
	Policy   string `yaml:"policy"` // "fifo" (default) or "priority_fifo"
}

// Config is the full YAML-decodable topology and policy description for a
// System.
type Config struct {
	Sources    []SourceSpec    `yaml:"sources"`
	Machines   []MachineSpec   `yaml:"machines"`
	Buffers    []BufferSpec    `yaml:"buffers"`
	Sinks      []SinkSpec      `yaml:"sinks"`
	Maintainer MaintainerSpec  `yaml:"maintainer"`
}

// LoadConfig decodes a Config from YAML bytes.
func LoadConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, NewConfigError("", err)
	}
	return cfg, nil
}

// validate checks structural invariants before any node is constructed:
// unique names, resolvable topology references, machine arity, and
// buildable distributions. It does not construct any runtime object.
func (cfg Config) validate() error {
	names := map[string]string{} // name -> kind, for duplicate detection
	giverNames := map[string]bool{}
	receiverNames := map[string]bool{}

	addName := func(kind, name string) error {
		if name == "" {
			return NewConfigError(kind, fmt.Errorf("name must not be empty"))
		}
		if prev, ok := names[name]; ok {
			return NewConfigError(kind, fmt.Errorf("name %q already used by a %s", name, prev))
		}
		names[name] = kind
		return nil
	}

	for _, s := range cfg.Sources {
		if err := addName("sources", s.Name); err != nil {
			return err
		}
		giverNames[s.Name] = true
		if s.Interarrival != nil {
			if _, err := s.Interarrival.Build(); err != nil {
				return NewConfigError("sources["+s.Name+"].interarrival", err)
			}
		}
	}
	for _, b := range cfg.Buffers {
		if err := addName("buffers", b.Name); err != nil {
			return err
		}
		if b.Capacity <= 0 {
			return NewConfigError("buffers["+b.Name+"].capacity", fmt.Errorf("must be positive"))
		}
		if b.InitialLevel < 0 || b.InitialLevel > b.Capacity {
			return NewConfigError("buffers["+b.Name+"].initial_level", fmt.Errorf("must be within [0, capacity]"))
		}
		giverNames[b.Name] = true
		receiverNames[b.Name] = true
	}
	for _, sk := range cfg.Sinks {
		if err := addName("sinks", sk.Name); err != nil {
			return err
		}
		receiverNames[sk.Name] = true
	}
	for _, m := range cfg.Machines {
		if err := addName("machines", m.Name); err != nil {
			return err
		}
		if !giverNames[m.Upstream] {
			return NewConfigError("machines["+m.Name+"].upstream", fmt.Errorf("%w: %q", ErrUnknownNode, m.Upstream))
		}
		if !receiverNames[m.Downstream] {
			return NewConfigError("machines["+m.Name+"].downstream", fmt.Errorf("%w: %q", ErrUnknownNode, m.Downstream))
		}
		if _, err := m.CycleTime.Build(); err != nil {
			return NewConfigError("machines["+m.Name+"].cycle_time", err)
		}
		if err := validateDegradationMatrix(m.DegradationMatrix); err != nil {
			return NewConfigError("machines["+m.Name+"].degradation_matrix", err)
		}
		failedHealth := len(m.DegradationMatrix) - 1
		cbm := failedHealth
		if m.CBMThreshold != nil {
			cbm = *m.CBMThreshold
			if cbm < 1 || cbm > failedHealth {
				return NewConfigError("machines["+m.Name+"].cbm_threshold", fmt.Errorf("must be within [1, %d]", failedHealth))
			}
		}
		_ = cbm
		if failedHealth > 0 && (m.PMDistribution == nil || m.CMDistribution == nil) {
			return NewConfigError("machines["+m.Name+"]", fmt.Errorf("pm_distribution and cm_distribution are required when degradation_matrix has more than one state"))
		}
		if m.PMDistribution != nil {
			if _, err := m.PMDistribution.Build(); err != nil {
				return NewConfigError("machines["+m.Name+"].pm_distribution", err)
			}
		}
		if m.CMDistribution != nil {
			if _, err := m.CMDistribution.Build(); err != nil {
				return NewConfigError("machines["+m.Name+"].cm_distribution", err)
			}
		}
		if m.InitialHealth < 0 || m.InitialHealth > failedHealth {
			return NewConfigError("machines["+m.Name+"].initial_health", fmt.Errorf("must be within [0, %d]", failedHealth))
		}
		if m.PlannedFailure != nil && m.PlannedFailure.Duration < 0 {
			return NewConfigError("machines["+m.Name+"].planned_failure.duration", fmt.Errorf("must be >= 0"))
		}
	}
	switch cfg.Maintainer.Policy {
	case "", "fifo", "priority_fifo":
	default:
		return NewConfigError("maintainer.policy", fmt.Errorf("unknown policy %q", cfg.Maintainer.Policy))
	}
	needsRepair := false
	for _, m := range cfg.Machines {
		if len(m.DegradationMatrix) > 1 {
			needsRepair = true
			break
		}
	}
	if needsRepair && cfg.Maintainer.Capacity == 0 {
		return NewConfigError("maintainer.capacity", fmt.Errorf("must be positive (or negative for unbounded) when any machine can degrade or fail"))
	}
	return nil
}

func validateDegradationMatrix(matrix [][]float64) error {
	n := len(matrix)
	if n == 0 {
		return fmt.Errorf("degradation_matrix must have at least one row")
	}
	for i, row := range matrix {
		if len(row) != n {
			return fmt.Errorf("row %d has %d entries, want %d (matrix must be square)", i, len(row), n)
		}
		sum := 0.0
		for _, p := range row {
			if p < 0 || p > 1 {
				return fmt.Errorf("row %d: entries must be within [0, 1]", i)
			}
			sum += p
		}
		if sum < 0.999 || sum > 1.001 {
			return fmt.Errorf("row %d: entries sum to %g, want 1", i, sum)
		}
	}
	return nil
}
