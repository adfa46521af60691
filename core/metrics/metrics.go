// Package metrics defines the recorders a planning run reports to. Sinks such
// as PromSink and InfluxSink live in infra/metrics and register themselves
// with the factory below; several configured sinks are combined in a
// MultiSink.
package metrics

import (
	"time"

	"github.com/kilianp07/usdplan/core/model"
)

// RunEvent summarizes one solved period.
type RunEvent struct {
	RunID           string
	Period          model.Period
	Converged       bool
	Iterations      int
	ErrorType       model.ErrorType
	DemandMWh       float64
	GrossMWh        float64
	ImportMWh       float64
	UtilityAuxMWh   float64
	STGReductionMWh float64
	ExportMWh       float64
	SHPDemandMT     float64
	SHPCapacityMT   float64
	HRSGFiringMT    float64
	HRSGFuelMMBTU   float64
	Duration        time.Duration
	Time            time.Time
}

// NewRunEvent builds the summary of a result.
func NewRunEvent(res model.Result, took time.Duration, at time.Time) RunEvent {
	hrsg := res.SteamBalance.HRSG
	return RunEvent{
		RunID:           res.RunID,
		Period:          res.Period,
		Converged:       res.Converged,
		Iterations:      res.IterationsUsed,
		ErrorType:       res.ErrorType,
		DemandMWh:       res.Power.TotalDemandMWh,
		GrossMWh:        res.Power.GrossMWh,
		ImportMWh:       res.Power.ImportUsedMWh,
		UtilityAuxMWh:   res.UtilityAuxPowerMWh,
		STGReductionMWh: res.STGReductionMWh,
		ExportMWh:       res.ExcessPowerForExportMWh,
		SHPDemandMT:     hrsg.DemandMT,
		SHPCapacityMT:   hrsg.CapacityMT,
		HRSGFiringMT:    hrsg.DispatchedMT,
		HRSGFuelMMBTU:   hrsg.FuelMMBTU,
		Duration:        took,
		Time:            at,
	}
}

// RunRecorder records the outcome of planning runs.
type RunRecorder interface {
	RecordRun(ev RunEvent) error
}

// IterationEvent is the progress of one solver step.
type IterationEvent struct {
	RunID           string
	Period          model.Period
	Iteration       int
	AuxErrorMWh     float64
	SHPDeficitMT    float64
	STGReductionMWh float64
	Time            time.Time
}

// IterationRecorder is implemented by sinks able to record solver progress.
type IterationRecorder interface {
	RecordIteration(ev IterationEvent) error
}

// IterationEvents converts a result history into iteration events.
func IterationEvents(res model.Result, at time.Time) []IterationEvent {
	out := make([]IterationEvent, 0, len(res.History))
	for _, h := range res.History {
		out = append(out, IterationEvent{
			RunID:           res.RunID,
			Period:          res.Period,
			Iteration:       h.Iteration,
			AuxErrorMWh:     h.AuxErrorMWh,
			SHPDeficitMT:    h.SHPDeficitMT,
			STGReductionMWh: h.STGReductionMWh,
			Time:            at,
		})
	}
	return out
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordRun(RunEvent) error             { return nil }
func (NopSink) RecordIteration(IterationEvent) error { return nil }
