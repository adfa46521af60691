package logger

import (
	corelogger "github.com/kilianp07/usdplan/core/logger"
	"github.com/kilianp07/usdplan/core/trace"
)

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger implements Logger with no-op methods.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any)         {}
func (NopLogger) Debugw(string, map[string]any) {}
func (NopLogger) Infof(string, ...any)          {}
func (NopLogger) Infow(string, map[string]any)  {}
func (NopLogger) Warnf(string, ...any)          {}
func (NopLogger) Errorf(string, ...any)         {}

// New returns a Logger for the given component. The output format follows
// the last Configure call, or APP_ENV when Configure was never called.
func New(component string) Logger {
	return NewZerologLogger(component)
}

// TraceObserver logs every solver event at debug level and terminal states
// at info level.
func TraceObserver(l Logger) trace.Observer {
	return trace.ObserverFunc(func(e trace.Event) {
		fields := map[string]any{
			"run_id":    e.RunID,
			"period":    e.Period,
			"iteration": e.Iteration,
			"state":     string(e.State),
		}
		for k, v := range e.Fields {
			fields[k] = v
		}
		if e.Message != "" {
			fields["detail"] = e.Message
		}
		switch e.State {
		case trace.StateConverged, trace.StateFailed, trace.StateIterationLimit:
			l.Infow("solver "+string(e.State), fields)
		default:
			l.Debugw("solver step", fields)
		}
	})
}
