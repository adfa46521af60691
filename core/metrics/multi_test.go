package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/usdplan/core/model"
)

type recordSink struct {
	runs  int
	iters int
	err   error
}

func (r *recordSink) RecordRun(RunEvent) error {
	r.runs++
	return r.err
}

func (r *recordSink) RecordIteration(IterationEvent) error {
	r.iters++
	return nil
}

type runOnly struct{ runs int }

func (r *runOnly) RecordRun(RunEvent) error {
	r.runs++
	return nil
}

func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &runOnly{}
	m := NewMultiSink(s1, s2)
	require.NoError(t, m.RecordRun(RunEvent{}))
	require.NoError(t, m.RecordIteration(IterationEvent{}))
	if s1.runs != 1 || s2.runs != 1 || s1.iters != 1 {
		t.Fatalf("events not forwarded: %+v %+v", s1, s2)
	}
}

func TestMultiSinkKeepsForwardingOnError(t *testing.T) {
	boom := errors.New("boom")
	s1 := &recordSink{err: boom}
	s2 := &runOnly{}
	err := NewMultiSink(s1, s2).RecordRun(RunEvent{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, s2.runs)
}

func TestNewRunEvent(t *testing.T) {
	at := time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC)
	res := model.Result{
		RunID:              "r1",
		Period:             model.Period{Month: 4, Year: 2025},
		Converged:          true,
		IterationsUsed:     3,
		UtilityAuxPowerMWh: 120,
		Power:              model.PowerBalance{TotalDemandMWh: 25120, GrossMWh: 25120},
		SteamBalance: model.SteamBalanceResult{HRSG: model.HRSGDispatchResult{
			DemandMT: 90000, CapacityMT: 195840, DispatchedMT: 60000, FuelMMBTU: 168000,
		}},
		History: []model.IterationRecord{{Iteration: 1, AuxErrorMWh: 120}, {Iteration: 2, AuxErrorMWh: 0.4}},
	}
	ev := NewRunEvent(res, 2*time.Millisecond, at)
	assert.Equal(t, "r1", ev.RunID)
	assert.Equal(t, 3, ev.Iterations)
	assert.InDelta(t, 25120, ev.GrossMWh, 1e-9)
	assert.InDelta(t, 195840, ev.SHPCapacityMT, 1e-9)
	assert.Equal(t, at, ev.Time)

	iters := IterationEvents(res, at)
	require.Len(t, iters, 2)
	assert.Equal(t, 2, iters[1].Iteration)
	assert.InDelta(t, 0.4, iters[1].AuxErrorMWh, 1e-9)
}
