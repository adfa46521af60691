// Package solver drives the monthly utility balance to a fixed point: power
// dispatch, steam cascade, HRSG firing and utility power are recomputed until
// the utility power estimate stops moving.
package solver

import (
	"fmt"
	"time"

	"github.com/kilianp07/usdplan/core/dispatch"
	"github.com/kilianp07/usdplan/core/lookup"
	"github.com/kilianp07/usdplan/core/model"
	"github.com/kilianp07/usdplan/core/norms"
	"github.com/kilianp07/usdplan/core/steam"
	"github.com/kilianp07/usdplan/core/trace"
	"github.com/kilianp07/usdplan/core/utility"
)

// Controller owns the components of one plant model. It holds no per-run
// state and can serve concurrent runs.
type Controller struct {
	norms    norms.Norms
	power    dispatch.PowerDispatcher
	balancer steam.Balancer
	hrsg     steam.HRSGDispatcher
	utility  utility.Estimator
	observer trace.Observer
	now      func() time.Time
}

// New builds a controller. A nil observer discards events.
func New(n norms.Norms, obs trace.Observer) (*Controller, error) {
	if err := n.Validate(); err != nil {
		return nil, &model.ConfigurationError{Field: "norms", Reason: err.Error()}
	}
	if obs == nil {
		obs = trace.Nop{}
	}
	return &Controller{
		norms:    n,
		power:    dispatch.NewPowerDispatcher(n.Power),
		balancer: steam.NewBalancer(n),
		hrsg:     steam.NewHRSGDispatcher(n),
		utility:  utility.NewEstimator(n),
		observer: obs,
		now:      time.Now,
	}, nil
}

// Norms returns the norms the controller was built with.
func (c *Controller) Norms() norms.Norms { return c.norms }

// Prepare validates a snapshot and builds its curves.
func (c *Controller) Prepare(runID string, snap model.Snapshot) (Inputs, error) {
	if err := snap.Validate(); err != nil {
		return Inputs{}, err
	}
	curves, err := lookup.NewSet(snap.Curves)
	if err != nil {
		return Inputs{}, err
	}
	return Inputs{RunID: runID, Snapshot: snap, Curves: curves}, nil
}

// Run solves one period. Non-convergence is not an error: the last state is
// returned with Converged false. Configuration errors, infeasible capacity
// and infeasible steam return the partial result together with the error.
func (c *Controller) Run(runID string, snap model.Snapshot) (model.Result, error) {
	res := model.Result{RunID: runID, Period: snap.Period, ExportAvailable: snap.Demand.ExportAvailable}
	in, err := c.Prepare(runID, snap)
	if err != nil {
		res.ErrorType = model.ErrorConfiguration
		res.Message = err.Error()
		return res, err
	}

	if err := c.checkCapacity(snap); err != nil {
		res.ErrorType = Classify(err)
		res.Message = err.Error()
		c.emit(in, State{}, trace.StateFailed, err.Error(), nil)
		return res, err
	}

	st := Init(in)
	for st.Iteration < c.norms.Solver.IterationLimit {
		next, err := c.Step(in, st)
		st = next
		if err != nil {
			res = c.result(res, st)
			res.ErrorType = Classify(err)
			res.Message = err.Error()
			return res, err
		}
		if st.Converged {
			return c.result(res, st), nil
		}
	}

	res = c.result(res, st)
	res.ErrorType = model.ErrorNotConverged
	res.Message = fmt.Sprintf("not converged after %d iterations, last aux error %.3f MWh", st.Iteration, st.AuxErrorMWh)
	c.emit(in, st, trace.StateIterationLimit, res.Message, map[string]float64{"aux_error_mwh": st.AuxErrorMWh})
	return res, nil
}

// checkCapacity rejects base demand that no dispatch could ever meet.
func (c *Controller) checkCapacity(snap model.Snapshot) error {
	imp := snap.Import
	if imp.Hours <= 0 {
		for _, u := range snap.Units {
			if u.Available() {
				imp.Hours = u.OperationalHours
				break
			}
		}
	}
	available := dispatch.MaxGenerationMWh(snap.Units) + imp.MaxEnergyMWh()
	demand := snap.Demand.BasePowerMWh()
	if demand > available+c.norms.Power.CapacityToleranceMWh {
		return &dispatch.CapacityError{DemandMWh: demand, AvailableMWh: available, ShortfallMWh: demand - available}
	}
	return nil
}

func (c *Controller) result(res model.Result, st State) model.Result {
	res.Converged = st.Converged
	res.IterationsUsed = st.Iteration
	res.PerUnitDispatch = st.Power.Units
	res.Power = st.Power
	res.SteamBalance = st.Steam
	res.Utility = st.Utility
	res.UtilityAuxPowerMWh = st.CurrentAuxMWh
	res.STGReductionMWh = st.STGReductionMWh
	res.ImportCompensationMWh = st.ImportCompensationMWh
	res.ExcessPowerForExportMWh = st.Power.ExcessMWh
	res.History = st.History
	return res
}
