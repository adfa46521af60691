package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/usdplan/core/trace"
)

func TestZerologLoggerMethods(t *testing.T) {
	assert.NoError(t, os.Setenv("APP_ENV", "dev"))
	defer func() { assert.NoError(t, os.Unsetenv("APP_ENV")) }()
	l := NewZerologLogger("test")
	if l == nil {
		t.Fatalf("nil logger")
	}
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"k": 1})
	l.Infof("info %s", "test")
	l.Infow("info", map[string]any{"k": 2})
	l.Warnf("warn")
	l.Errorf("error")
}

func TestConfigureJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Configure(Options{Level: "info", Format: "json", Out: &buf}))
	defer func() { require.NoError(t, Configure(Options{})) }()

	l := New("solver")
	l.Debugf("hidden")
	l.Infow("visible", map[string]any{"iteration": 3})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "solver", rec["component"])
	assert.Equal(t, "visible", rec["message"])
	assert.EqualValues(t, 3, rec["iteration"])
}

func TestConfigureRejectsUnknownValues(t *testing.T) {
	assert.Error(t, Configure(Options{Level: "loud"}))
	assert.Error(t, Configure(Options{Format: "xml"}))
}

func TestTraceObserver(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Configure(Options{Level: "debug", Format: "json", Out: &buf}))
	defer func() { require.NoError(t, Configure(Options{})) }()

	obs := TraceObserver(New("trace"))
	obs.Observe(trace.Event{RunID: "r1", Iteration: 2, State: trace.StateDispatchPower, Fields: map[string]float64{"gross_mwh": 10}})
	obs.Observe(trace.Event{RunID: "r1", Iteration: 2, State: trace.StateConverged})

	out := buf.String()
	assert.Contains(t, out, `"state":"DISPATCH_POWER"`)
	assert.Contains(t, out, `"gross_mwh":10`)
	assert.Contains(t, out, `"level":"info"`)
	assert.Contains(t, out, "solver CONVERGED")
}
