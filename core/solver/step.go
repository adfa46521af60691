package solver

import (
	"fmt"
	"math"

	"github.com/kilianp07/usdplan/core/dispatch"
	"github.com/kilianp07/usdplan/core/model"
	"github.com/kilianp07/usdplan/core/steam"
	"github.com/kilianp07/usdplan/core/trace"
	"github.com/kilianp07/usdplan/core/utility"
)

// Step runs one iteration of the state machine and returns the next state.
// The given state is not modified. A non-nil error is fatal for the run; the
// returned state then holds everything computed up to the failure.
func (c *Controller) Step(in Inputs, st State) (State, error) {
	st.Iteration++
	st.Corrected = false
	rec := model.IterationRecord{
		Iteration:      st.Iteration,
		PreviousAuxMWh: st.PreviousAuxMWh,
	}
	snap := in.Snapshot
	sn := c.norms.Solver
	pn := c.norms.Power

	// DISPATCH_POWER
	pb, err := c.power.Dispatch(snap.Units, snap.Import, in.Curves.GT, dispatch.PowerRequest{
		Demand:         snap.Demand,
		UtilityAuxMWh:  st.PreviousAuxMWh,
		STGMaxMWh:      st.STGLimitMWh(),
		STGMinMWh:      st.STGMinOverrideMWh,
		GTReductionMWh: st.GTReductionMWh,
	})
	st.Power = pb
	rec.TotalDemandMWh = pb.TotalDemandMWh
	rec.ImportUsedMWh = pb.ImportUsedMWh
	if err != nil {
		c.emit(in, st, trace.StateFailed, err.Error(), nil)
		return c.record(st, rec, trace.StateFailed), fmt.Errorf("iteration %d: dispatch power: %w", st.Iteration, err)
	}
	c.emit(in, st, trace.StateDispatchPower, "", map[string]float64{
		"total_demand_mwh": pb.TotalDemandMWh,
		"import_used_mwh":  pb.ImportUsedMWh,
		"gross_mwh":        pb.GrossMWh,
		"net_mwh":          pb.NetMWh,
	})

	// DERIVE_STG_STEAM_NEED
	stgGross := pb.GrossByKind(model.SteamTurbineGenerator)
	stgHours := 0.0
	if stg, ok := snap.STG(); ok {
		stgHours = stg.OperationalHours
	}
	rec.STGGrossMWh = stgGross
	rec.STGSteamMT = c.balancer.STGSteamMT(stgGross)
	c.emit(in, st, trace.StateDeriveSTGSteam, "", map[string]float64{
		"stg_gross_mwh": stgGross,
		"stg_steam_mt":  rec.STGSteamMT,
	})

	// BALANCE_STEAM
	sb, err := c.balancer.Balance(steam.BalanceInput{
		Demand:      snap.Demand,
		STGGrossMWh: stgGross,
		STGHours:    stgHours,
		Curve:       in.Curves.STG,
	})
	if err != nil {
		return c.record(st, rec, trace.StateFailed), fmt.Errorf("iteration %d: balance steam: %w", st.Iteration, err)
	}
	c.emit(in, st, trace.StateBalanceSteam, string(sb.Mode), map[string]float64{
		"shp_demand_mt": sb.SHP.Total,
		"bfw_total_m3":  sb.BFWTotalM3,
	})

	// CHECK_SHP_CAPACITY
	var previous *model.HRSGDispatchResult
	if len(st.Steam.HRSG.Units) > 0 {
		prev := st.Steam.HRSG
		previous = &prev
	}
	hr, err := c.hrsg.Dispatch(snap.HRSGs, pb.Units, sb.SHP.Total, in.Curves.HRSG, previous)
	if err != nil {
		return c.record(st, rec, trace.StateFailed), fmt.Errorf("iteration %d: dispatch hrsg: %w", st.Iteration, err)
	}
	sb.HRSG = hr
	st.Steam = sb
	deficit := sb.SHP.Total - hr.CapacityMT
	rec.SHPDemandMT = sb.SHP.Total
	rec.SHPCapacityMT = hr.CapacityMT
	rec.SHPDeficitMT = deficit
	rec.FreeSteamMT = hr.FreeSteamMT
	rec.FiringMT = hr.DispatchedMT
	rec.ExcessSteamMT = hr.ExcessSteamMT
	c.emit(in, st, trace.StateCheckSHPCapacity, "", map[string]float64{
		"shp_demand_mt":   sb.SHP.Total,
		"shp_capacity_mt": hr.CapacityMT,
		"shp_deficit_mt":  deficit,
		"free_steam_mt":   hr.FreeSteamMT,
		"excess_steam_mt": hr.ExcessSteamMT,
	})

	// The near-converged test uses the utility power of this dispatch.
	ut := c.estimate(snap, pb, sb)
	if math.Abs(ut.TotalMWh-st.PreviousAuxMWh) < sn.NearConvergedMWh {
		st.NearConverged = true
	}

	switch {
	case deficit > sn.SHPToleranceMT:
		if stgGross <= 0 {
			serr := &SteamInfeasibleError{DemandMT: sb.SHP.Total, CapacityMT: hr.CapacityMT, ShortfallMT: deficit}
			c.emit(in, st, trace.StateFailed, serr.Error(), map[string]float64{"shortfall_mt": deficit})
			return c.record(st, rec, trace.StateFailed), serr
		}
		before := st.STGReductionMWh
		st.STGReductionMWh = math.Min(st.STGReductionMWh+deficit/pn.STGSHPPerKWh/1000, st.STGOriginalMaxMWh)
		st.ImportCompensationMWh = st.STGReductionMWh
		st.Corrected = true
		rec.Actions = append(rec.Actions, model.Action{Kind: model.ActionReduceSTG, AmountMWh: st.STGReductionMWh - before})
		c.emit(in, st, trace.StateReduceSTG, "", map[string]float64{
			"stg_reduction_mwh":       st.STGReductionMWh,
			"import_compensation_mwh": st.ImportCompensationMWh,
		})
	case deficit < 0 && st.STGReductionMWh > 0:
		recovery := math.Min(-deficit/pn.STGSHPPerKWh/1000*sn.RecoveryDamping, st.STGReductionMWh)
		if recovery > sn.MinRecoveryMWh {
			st.STGReductionMWh -= recovery
			st.ImportCompensationMWh = st.STGReductionMWh
			st.Corrected = true
			rec.Actions = append(rec.Actions, model.Action{Kind: model.ActionRecoverSTG, AmountMWh: recovery})
			c.emit(in, st, trace.StateRecoverSTG, "", map[string]float64{
				"recovered_mwh":     recovery,
				"stg_reduction_mwh": st.STGReductionMWh,
			})
		}
	}

	if hr.ExcessSteamMT > 0 && st.NearConverged {
		shifted, moved, err := c.rebalance(in, &st, pb, hr.ExcessSteamMT, stgGross)
		if err != nil {
			return c.record(st, rec, trace.StateFailed), fmt.Errorf("iteration %d: rebalance: %w", st.Iteration, err)
		}
		if moved > 0 {
			rec.Rebalance = &model.Rebalance{
				STGBeforeMWh: stgGross,
				STGAfterMWh:  shifted.GrossByKind(model.SteamTurbineGenerator),
				GTBeforeMWh:  pb.GrossByKind(model.GasTurbine),
				GTAfterMWh:   shifted.GrossByKind(model.GasTurbine),
			}
			rec.Actions = append(rec.Actions, model.Action{Kind: model.ActionRebalanceExcessSteam, AmountMWh: moved})
			pb = shifted
			st.Power = pb
			ut = c.estimate(snap, pb, sb)
		} else if hr.ExcessSteamMT > sn.ExcessSteamReportMT {
			rec.Actions = append(rec.Actions, model.Action{Kind: model.ActionExcessSteamLeft})
		}
	}

	// ESTIMATE_UTILITY_POWER
	st.Utility = ut
	st.CurrentAuxMWh = ut.TotalMWh
	st.AuxErrorMWh = math.Abs(st.CurrentAuxMWh - st.PreviousAuxMWh)
	rec.GrossMWh = pb.GrossMWh
	rec.NetMWh = pb.NetMWh
	rec.CurrentAuxMWh = st.CurrentAuxMWh
	rec.AuxErrorMWh = st.AuxErrorMWh
	c.emit(in, st, trace.StateEstimateUtility, "", map[string]float64{
		"utility_aux_mwh": st.CurrentAuxMWh,
		"aux_error_mwh":   st.AuxErrorMWh,
	})

	// CHECK_CONVERGENCE
	st.Converged = st.AuxErrorMWh <= sn.AuxToleranceMWh && deficit <= sn.SHPToleranceMT && !st.Corrected
	if st.Converged {
		c.emit(in, st, trace.StateConverged, "", nil)
		return c.record(st, rec, trace.StateConverged), nil
	}
	c.emit(in, st, trace.StateCheckConvergence, "", map[string]float64{"aux_error_mwh": st.AuxErrorMWh})

	limit := math.Max(0, hr.CapacityMT-sb.SHP.NonSTG()) / pn.STGSHPPerKWh / 1000
	st.STGSteamLimitMWh = floatPtr(limit)
	st.PreviousAuxMWh = st.CurrentAuxMWh
	return c.record(st, rec, trace.StateCheckConvergence), nil
}

// rebalance absorbs excess steam by moving generation from the GTs to the
// STG and keeps the move for the following dispatches.
func (c *Controller) rebalance(in Inputs, st *State, pb model.PowerBalance, excessMT, stgGross float64) (model.PowerBalance, float64, error) {
	stgMax := st.STGOriginalMaxMWh
	if limit := st.STGLimitMWh(); limit != nil {
		stgMax = math.Min(stgMax, *limit)
	}
	var gtRoom float64
	for _, u := range pb.Units {
		if u.Kind == model.GasTurbine {
			gtRoom += math.Max(0, u.GrossMWh-u.MinMWh)
		}
	}
	amount := math.Min(excessMT/c.norms.Power.SteamToPowerMTPerMWh, math.Max(0, stgMax-stgGross))
	amount = math.Min(amount, gtRoom)
	if amount <= c.norms.Solver.MinRebalanceMWh {
		return pb, 0, nil
	}
	shifted, moved, err := c.power.Shift(pb, in.Curves.GT, amount)
	if err != nil || moved <= 0 {
		return pb, 0, err
	}
	st.STGMinOverrideMWh = floatPtr(math.Min(stgGross+moved, stgMax))
	st.GTReductionMWh += moved
	st.Corrected = true
	c.emit(in, *st, trace.StateRebalanceExcess, "", map[string]float64{
		"excess_steam_mt":      excessMT,
		"stg_increase_mwh":     moved,
		"gt_decrease_mwh":      moved,
		"stg_min_override_mwh": *st.STGMinOverrideMWh,
		"gt_reduction_mwh":     st.GTReductionMWh,
	})
	return shifted, moved, nil
}

func (c *Controller) estimate(snap model.Snapshot, pb model.PowerBalance, sb model.SteamBalanceResult) model.UtilityResult {
	fired := 0
	for _, u := range sb.HRSG.Units {
		if u.Available {
			fired++
		}
	}
	return c.utility.Estimate(utility.Inputs{
		Power:        pb,
		Steam:        sb,
		HRSGFiringMT: sb.HRSG.DispatchedMT,
		HRSGCount:    fired,
		Demand:       snap.Demand.Utilities,
	})
}

// record appends the iteration row without sharing the caller's history.
func (c *Controller) record(st State, rec model.IterationRecord, state trace.State) State {
	rec.State = string(state)
	rec.STGReductionMWh = st.STGReductionMWh
	rec.ImportCompensationMWh = st.ImportCompensationMWh
	st.History = append(st.History[:len(st.History):len(st.History)], rec)
	return st
}

func (c *Controller) emit(in Inputs, st State, state trace.State, msg string, fields map[string]float64) {
	c.observer.Observe(trace.Event{
		RunID:     in.RunID,
		Period:    in.Snapshot.Period.String(),
		Iteration: st.Iteration,
		State:     state,
		Message:   msg,
		Fields:    fields,
		Time:      c.now(),
	})
}

