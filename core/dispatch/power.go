package dispatch

import (
	"fmt"
	"math"
	"sort"

	"github.com/kilianp07/usdplan/core/lookup"
	"github.com/kilianp07/usdplan/core/model"
	"github.com/kilianp07/usdplan/core/norms"
)

// PowerRequest carries the demand of one power dispatch and the constraints
// the iteration controller imposes on it.
type PowerRequest struct {
	Demand        model.DemandSet
	UtilityAuxMWh float64
	// STGMaxMWh caps STG generation when set. The STG minimum follows the cap
	// down so the unit can be turned off.
	STGMaxMWh *float64
	// STGMinMWh raises the STG minimum when set.
	STGMinMWh *float64
	// GTReductionMWh lowers GT ceilings, lowest priority first.
	GTReductionMWh float64
}

// PowerDispatcher dispatches generation units to meet power demand.
type PowerDispatcher struct {
	Norms  norms.Power
	Engine PriorityDispatcher
}

// NewPowerDispatcher builds a dispatcher from the plant norms.
func NewPowerDispatcher(n norms.Power) PowerDispatcher {
	return PowerDispatcher{Norms: n, Engine: NewPriorityDispatcher(n.SplitResidual)}
}

// AuxFactor returns the auxiliary consumption per kWh gross for a unit kind.
func (p PowerDispatcher) AuxFactor(kind model.UnitKind) float64 {
	if kind == model.SteamTurbineGenerator {
		return p.Norms.STGAuxPerKWh
	}
	return p.Norms.GTAuxPerKWh
}

// MaxGenerationMWh is the fleet maximum ignoring controller constraints.
func MaxGenerationMWh(units []model.GenerationUnit) float64 {
	var sum float64
	for _, u := range units {
		if u.Available() {
			sum += u.MaxEnergyMWh()
		}
	}
	return sum
}

// Dispatch consumes import as a first tranche and then raises units by
// priority until gross generation meets the remaining demand.
func (p PowerDispatcher) Dispatch(units []model.GenerationUnit, imp model.ImportSupply, gt *lookup.GTCurve, req PowerRequest) (model.PowerBalance, error) {
	pb := model.PowerBalance{
		ProcessMWh:    req.Demand.PowerProcessMWh,
		FixedMWh:      req.Demand.PowerFixedMWh,
		UtilityAuxMWh: req.UtilityAuxMWh,
	}
	pb.TotalDemandMWh = pb.ProcessMWh + pb.FixedMWh + pb.UtilityAuxMWh

	var avail []model.GenerationUnit
	for _, u := range units {
		if u.Available() {
			avail = append(avail, u)
		}
	}
	if len(avail) == 0 {
		return pb, ErrNoAvailableUnits
	}
	sort.SliceStable(avail, func(i, j int) bool { return avail[i].Priority < avail[j].Priority })

	slots := p.constrainedSlots(avail, req)
	var totalMin, totalMax float64
	for _, s := range slots {
		totalMin += s.Min
		totalMax += s.Max
	}

	if imp.Hours <= 0 {
		imp.Hours = avail[0].OperationalHours
	}
	pb.ImportAvailableMWh = imp.MaxEnergyMWh()
	pb.ImportUsedMWh = math.Min(pb.ImportAvailableMWh, math.Max(0, pb.TotalDemandMWh-totalMin))

	if pb.TotalDemandMWh > totalMax+pb.ImportAvailableMWh+p.Norms.CapacityToleranceMWh {
		available := totalMax + pb.ImportAvailableMWh
		return pb, &CapacityError{
			DemandMWh:    pb.TotalDemandMWh,
			AvailableMWh: available,
			ShortfallMWh: pb.TotalDemandMWh - available,
		}
	}

	pb.GenerationTarget = pb.TotalDemandMWh - pb.ImportUsedMWh
	alloc := p.Engine.Raise(slots, pb.GenerationTarget)

	for i, u := range avail {
		r := model.DispatchResult{
			UnitID:   u.ID,
			Name:     u.Name,
			Kind:     u.Kind,
			Priority: u.Priority,
			Hours:    u.OperationalHours,
			MinMWh:   alloc.Assignments[i].Min,
			MaxMWh:   alloc.Assignments[i].Max,
			GrossMWh: alloc.Assignments[i].Quantity,
		}
		if err := p.derive(&r, gt); err != nil {
			return pb, err
		}
		pb.Units = append(pb.Units, r)
	}
	pb = totals(pb)

	pb.ExcessMWh = math.Max(0, pb.GrossMWh-pb.GenerationTarget)
	pb.ShortfallMWh = math.Max(0, pb.GenerationTarget-pb.GrossMWh)
	if pb.ShortfallMWh > p.AcceptableDeficit(pb.TotalDemandMWh) {
		return pb, &CapacityError{
			DemandMWh:    pb.TotalDemandMWh,
			AvailableMWh: pb.GrossMWh + pb.ImportUsedMWh,
			ShortfallMWh: pb.ShortfallMWh,
			AfterImport:  true,
		}
	}
	return pb, nil
}

// Shift moves up to amount of generation from the GTs to the STG, lowering
// the lowest priority GT first. Total gross generation is unchanged; net
// rises because the STG aux factor is lower. It returns the new balance and
// the amount actually moved.
func (p PowerDispatcher) Shift(pb model.PowerBalance, gt *lookup.GTCurve, amount float64) (model.PowerBalance, float64, error) {
	units := append([]model.DispatchResult(nil), pb.Units...)
	stg := -1
	var gtIdx []int
	var slots []Slot
	for i, u := range units {
		if u.Kind == model.SteamTurbineGenerator {
			stg = i
			continue
		}
		gtIdx = append(gtIdx, i)
		slots = append(slots, Slot{ID: u.UnitID, Priority: u.Priority, Min: u.MinMWh, Max: u.GrossMWh})
	}
	if stg < 0 || amount <= 0 {
		return pb, 0, nil
	}
	amount = math.Min(amount, math.Max(0, units[stg].MaxMWh-units[stg].GrossMWh))
	lowered := p.Engine.Lower(slots, amount)
	moved := amount - lowered.Shortfall
	for k, i := range gtIdx {
		units[i].GrossMWh = lowered.Assignments[k].Quantity
		if err := p.derive(&units[i], gt); err != nil {
			return pb, 0, err
		}
	}
	units[stg].GrossMWh += moved
	if err := p.derive(&units[stg], gt); err != nil {
		return pb, 0, err
	}
	pb.Units = units
	return totals(pb), moved, nil
}

// derive fills load, aux, net and GT curve values from gross generation.
func (p PowerDispatcher) derive(r *model.DispatchResult, gt *lookup.GTCurve) error {
	r.LoadMW = 0
	if r.Hours > 0 {
		r.LoadMW = r.GrossMWh / r.Hours
	}
	r.AuxMWh = r.GrossMWh * p.AuxFactor(r.Kind)
	r.NetMWh = r.GrossMWh - r.AuxMWh
	r.HeatRate, r.FreeSteamFactor = 0, 0
	if r.Kind != model.GasTurbine || r.LoadMW <= 0 {
		return nil
	}
	// an empty curve leaves heat rate and free steam at zero
	perf, err := gt.At(r.LoadMW)
	switch {
	case err == nil:
		r.HeatRate = perf.HeatRate
		r.FreeSteamFactor = perf.FreeSteamFactor
	case !lookup.IsEmpty(err):
		return fmt.Errorf("gt curve at %.2f MW: %w", r.LoadMW, err)
	}
	return nil
}

func totals(pb model.PowerBalance) model.PowerBalance {
	pb.GrossMWh, pb.AuxMWh, pb.NetMWh = 0, 0, 0
	for _, u := range pb.Units {
		pb.GrossMWh += u.GrossMWh
		pb.AuxMWh += u.AuxMWh
		pb.NetMWh += u.NetMWh
	}
	return pb
}

// AcceptableDeficit is the shortfall tolerated before dispatch fails.
func (p PowerDispatcher) AcceptableDeficit(demandMWh float64) float64 {
	return math.Max(p.Norms.AcceptableDeficitMWh, demandMWh*p.Norms.AcceptableDeficitFraction)
}

// constrainedSlots applies the controller's STG and GT constraints to the
// nominal unit bounds. Units must already be sorted by priority.
func (p PowerDispatcher) constrainedSlots(units []model.GenerationUnit, req PowerRequest) []Slot {
	slots := make([]Slot, len(units))
	var gtIdx []int
	for i, u := range units {
		s := Slot{ID: u.ID, Priority: u.Priority, Min: u.MinEnergyMWh(), Max: u.MaxEnergyMWh()}
		if u.Kind == model.SteamTurbineGenerator {
			if req.STGMaxMWh != nil {
				s.Max = math.Min(s.Max, math.Max(0, *req.STGMaxMWh))
				s.Min = math.Min(s.Min, s.Max)
			}
			if req.STGMinMWh != nil {
				s.Min = math.Min(math.Max(s.Min, *req.STGMinMWh), s.Max)
			}
		} else {
			gtIdx = append(gtIdx, i)
		}
		slots[i] = s
	}
	if req.GTReductionMWh > 0 && len(gtIdx) > 0 {
		gts := make([]Slot, len(gtIdx))
		for k, i := range gtIdx {
			gts[k] = slots[i]
		}
		lowered := p.Engine.Lower(gts, req.GTReductionMWh)
		for k, i := range gtIdx {
			slots[i].Max = lowered.Assignments[k].Quantity
		}
	}
	return slots
}
