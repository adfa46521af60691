package steam

import (
	"fmt"

	"github.com/kilianp07/usdplan/core/dispatch"
	"github.com/kilianp07/usdplan/core/lookup"
	"github.com/kilianp07/usdplan/core/model"
	"github.com/kilianp07/usdplan/core/norms"
)

// HRSGDispatcher plans supplementary firing of the HRSGs.
type HRSGDispatcher struct {
	Norms  norms.HRSG
	Engine dispatch.PriorityDispatcher
}

// NewHRSGDispatcher returns a dispatcher using the given norms.
func NewHRSGDispatcher(n norms.Norms) HRSGDispatcher {
	return HRSGDispatcher{Norms: n.HRSG, Engine: dispatch.NewPriorityDispatcher(n.Power.SplitResidual)}
}

// Capacity derives free steam and firing bounds of every HRSG from the GT
// dispatch. An HRSG is available only while its GT generates.
func (d HRSGDispatcher) Capacity(hrsgs []model.SteamRaisingUnit, gts []model.DispatchResult) []model.HRSGDispatch {
	byID := make(map[string]model.DispatchResult, len(gts))
	for _, g := range gts {
		byID[g.UnitID] = g
	}
	out := make([]model.HRSGDispatch, 0, len(hrsgs))
	for _, h := range hrsgs {
		hd := model.HRSGDispatch{HRSGID: h.ID, LinkedUnitID: h.LinkedUnitID, Priority: d.Norms.UnlinkedPriority}
		gt, linked := byID[h.LinkedUnitID]
		if linked {
			hd.Priority = gt.Priority
		}
		if linked && gt.GrossMWh > 0 {
			hd.Available = true
			hd.Hours = gt.Hours
			hd.FreeSteamMT = gt.GrossMWh * gt.FreeSteamFactor
			hd.MinFiringMT = h.MinFiringMT(gt.Hours)
			hd.MaxFiringMT = h.MaxFiringMT(gt.Hours)
		}
		out = append(out, hd)
	}
	return out
}

// MaxCapacityMT is the SHP the HRSGs can fire at most. Free steam is not
// counted.
func MaxCapacityMT(units []model.HRSGDispatch) float64 {
	var sum float64
	for _, u := range units {
		if u.Available {
			sum += u.MaxFiringMT
		}
	}
	return sum
}

// Dispatch fires the HRSGs to meet shpDemand. When previous is given and
// demand fell below its firing, the decrease is taken from the lowest
// priority HRSGs first.
func (d HRSGDispatcher) Dispatch(hrsgs []model.SteamRaisingUnit, gts []model.DispatchResult, shpDemand float64, curves *lookup.HRSGCurves, previous *model.HRSGDispatchResult) (model.HRSGDispatchResult, error) {
	units := d.Capacity(hrsgs, gts)
	res := model.HRSGDispatchResult{DemandMT: shpDemand}

	var slots []dispatch.Slot
	var idx []int
	for i, u := range units {
		res.FreeSteamMT += u.FreeSteamMT
		if !u.Available {
			continue
		}
		slots = append(slots, dispatch.Slot{ID: u.HRSGID, Priority: u.Priority, Min: u.MinFiringMT, Max: u.MaxFiringMT})
		idx = append(idx, i)
	}

	var alloc dispatch.Allocation
	if prevSlots, prevTotal, ok := previousCeilings(slots, previous); ok && shpDemand < prevTotal {
		alloc = d.Engine.Lower(prevSlots, prevTotal-shpDemand)
	} else {
		alloc = d.Engine.Raise(slots, shpDemand)
	}

	for k, i := range idx {
		units[i].DispatchedMT = alloc.Assignments[k].Quantity
		res.MinFiringMT += units[i].MinFiringMT
		res.CapacityMT += units[i].MaxFiringMT
		res.DispatchedMT += units[i].DispatchedMT
		if err := d.fuel(&units[i], curves); err != nil {
			return res, err
		}
		res.FuelMMBTU += units[i].FuelMMBTU
	}
	if res.MinFiringMT > shpDemand {
		res.ExcessSteamMT = res.MinFiringMT - shpDemand
	}
	if shpDemand > res.DispatchedMT {
		res.ShortfallMT = shpDemand - res.DispatchedMT
	}
	res.CanMeetDemand = res.ShortfallMT <= d.Engine.Residual
	if res.CanMeetDemand {
		res.ShortfallMT = 0
	}
	res.Units = units
	return res, nil
}

// previousCeilings turns a previous allocation into slots capped at the
// quantities fired then. It fails when the HRSG set changed.
func previousCeilings(slots []dispatch.Slot, previous *model.HRSGDispatchResult) ([]dispatch.Slot, float64, bool) {
	if previous == nil || len(slots) == 0 {
		return nil, 0, false
	}
	fired := make(map[string]float64, len(previous.Units))
	for _, u := range previous.Units {
		if u.Available {
			fired[u.HRSGID] = u.DispatchedMT
		}
	}
	if len(fired) != len(slots) {
		return nil, 0, false
	}
	out := make([]dispatch.Slot, len(slots))
	var total float64
	for i, s := range slots {
		q, ok := fired[s.ID]
		if !ok || q < s.Min || q > s.Max {
			return nil, 0, false
		}
		s.Max = q
		out[i] = s
		total += q
	}
	return out, total, true
}

// fuel sets load, heat rate and NG consumption of one fired HRSG.
func (d HRSGDispatcher) fuel(u *model.HRSGDispatch, curves *lookup.HRSGCurves) error {
	if u.DispatchedMT <= 0 || u.Hours <= 0 {
		return nil
	}
	u.LoadTph = u.DispatchedMT / u.Hours
	hr, err := curves.HeatRate(u.HRSGID, u.LoadTph)
	switch {
	case err == nil:
		u.HeatRateBTULb = hr
		u.FuelMMBTU = u.DispatchedMT * hr * d.Norms.BTULbToMMBTUPerMT
	case lookup.IsEmpty(err):
		u.FuelMMBTU = u.DispatchedMT * d.Norms.DefaultNGMMBTUPerMT
	default:
		return fmt.Errorf("hrsg %s heat rate: %w", u.HRSGID, err)
	}
	return nil
}
