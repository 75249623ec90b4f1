package simline

// Builder assembles a Config programmatically, as an alternative to
// LoadConfig for callers that want to construct a topology in Go rather than
// YAML (e.g. tests, or a generator).
type Builder struct {
	cfg Config
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder { return &Builder{} }

// AddSource registers a source. Pass a nil interarrival for unlimited stock.
func (b *Builder) AddSource(name string, interarrival *DistSpec) *Builder {
	b.cfg.Sources = append(b.cfg.Sources, SourceSpec{Name: name, Interarrival: interarrival})
	return b
}

// AddBuffer registers a buffer.
func (b *Builder) AddBuffer(name string, capacity, initialLevel int) *Builder {
	b.cfg.Buffers = append(b.cfg.Buffers, BufferSpec{Name: name, Capacity: capacity, InitialLevel: initialLevel})
	return b
}

// AddSink registers a sink.
func (b *Builder) AddSink(name string) *Builder {
	b.cfg.Sinks = append(b.cfg.Sinks, SinkSpec{Name: name})
	return b
}

// AddMachine registers a machine with spec.Upstream/spec.Downstream already
// set to the feeding/draining node names.
func (b *Builder) AddMachine(spec MachineSpec) *Builder {
	b.cfg.Machines = append(b.cfg.Machines, spec)
	return b
}

// SetMaintainer configures the shared repair dispatcher. policy is "fifo" or
// "priority_fifo"; the empty string defaults to "fifo".
func (b *Builder) SetMaintainer(capacity int, policy string) *Builder {
	b.cfg.Maintainer = MaintainerSpec{Capacity: capacity, Policy: policy}
	return b
}

// Build validates the assembled Config and returns a ready System.
func (b *Builder) Build(opts ...Option) (*System, error) {
	return Build(b.cfg, opts...)
}
