package metrics

import "errors"

// MultiSink fans run events out to multiple sinks.
type MultiSink struct {
	Sinks []RunRecorder
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...RunRecorder) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordRun forwards the event to every sink and joins their errors.
func (m *MultiSink) RecordRun(ev RunEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordRun(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordIteration forwards iteration events to sinks that support them.
func (m *MultiSink) RecordIteration(ev IterationEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(IterationRecorder); ok {
			if err := rec.RecordIteration(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
