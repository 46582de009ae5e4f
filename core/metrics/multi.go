package metrics

import "errors"

// MultiSink fans records out to several sinks. Every sink is called even when
// an earlier one fails; errors are joined.
type MultiSink struct {
	Sinks []Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordDecision forwards to all sinks.
func (m *MultiSink) RecordDecision(rec DecisionRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordDecision(rec))
	}
	return errors.Join(errs...)
}

// RecordExecution forwards to sinks implementing ExecutionRecorder.
func (m *MultiSink) RecordExecution(rec ExecutionRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(ExecutionRecorder); ok {
			errs = append(errs, r.RecordExecution(rec))
		}
	}
	return errors.Join(errs...)
}

// RecordSubscriptionRun forwards to sinks implementing SubscriptionRunRecorder.
func (m *MultiSink) RecordSubscriptionRun(run SubscriptionRun) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(SubscriptionRunRecorder); ok {
			errs = append(errs, r.RecordSubscriptionRun(run))
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink that has a Close method.
func (m *MultiSink) Close() {
	for _, s := range m.Sinks {
		CloseSink(s)
	}
}

// CloseSink calls Close on s when it has one.
func CloseSink(s Sink) {
	if c, ok := s.(interface{ Close() }); ok {
		c.Close()
	}
}
