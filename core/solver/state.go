package solver

import (
	"github.com/kilianp07/usdplan/core/lookup"
	"github.com/kilianp07/usdplan/core/model"
)

// Inputs is the immutable data every step reads. Curves are built once per
// run and passed to each step.
type Inputs struct {
	RunID    string
	Snapshot model.Snapshot
	Curves   lookup.Set
}

// State is carried from one step to the next.
type State struct {
	Iteration      int
	PreviousAuxMWh float64
	CurrentAuxMWh  float64
	AuxErrorMWh    float64

	STGOriginalMaxMWh     float64
	STGReductionMWh       float64
	ImportCompensationMWh float64
	// STGSteamLimitMWh caps STG generation to what the HRSGs can feed.
	STGSteamLimitMWh  *float64
	STGMinOverrideMWh *float64
	GTReductionMWh    float64

	NearConverged bool
	Converged     bool
	Corrected     bool

	Power   model.PowerBalance
	Steam   model.SteamBalanceResult
	Utility model.UtilityResult
	History []model.IterationRecord
}

// Init returns the state before the first step.
func Init(in Inputs) State {
	var st State
	if stg, ok := in.Snapshot.STG(); ok && stg.Available() {
		st.STGOriginalMaxMWh = stg.MaxEnergyMWh()
	}
	return st
}

// STGLimitMWh is the upper bound the next dispatch puts on the STG, or nil
// when unconstrained.
func (s State) STGLimitMWh() *float64 {
	var limit *float64
	if s.STGReductionMWh > 0 {
		v := s.STGOriginalMaxMWh - s.STGReductionMWh
		limit = &v
	}
	if s.STGSteamLimitMWh != nil && (limit == nil || *s.STGSteamLimitMWh < *limit) {
		v := *s.STGSteamLimitMWh
		limit = &v
	}
	return limit
}

func floatPtr(v float64) *float64 { return &v }
