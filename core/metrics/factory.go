package metrics

import "github.com/kilianp07/autoshutdown/core/factory"

var sinkRegistry = factory.NewRegistry[Sink]()

// RegisterSink adds a sink factory identified by name.
func RegisterSink(name string, f factory.Factory[Sink]) error {
	return sinkRegistry.Register(name, f)
}

// NewSink creates a Sink from the provided configuration. No configuration
// yields a NopSink.
func NewSink(cfgs []factory.ModuleConfig) (Sink, error) {
	if len(cfgs) == 0 {
		return NopSink{}, nil
	}
	sinks, err := sinkRegistry.CreateAll(cfgs)
	if err != nil {
		return nil, err
	}
	if len(sinks) == 1 {
		return sinks[0], nil
	}
	return NewMultiSink(sinks...), nil
}
