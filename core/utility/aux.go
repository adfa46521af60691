// Package utility estimates the power consumed by the plant's own utility
// systems.
package utility

import (
	"github.com/kilianp07/usdplan/core/model"
	"github.com/kilianp07/usdplan/core/norms"
)

// Inputs are the quantities one iteration produced.
type Inputs struct {
	Power        model.PowerBalance
	Steam        model.SteamBalanceResult
	HRSGFiringMT float64
	HRSGCount    int
	Demand       model.UtilityDemand
}

// Estimator turns produced quantities into auxiliary power.
type Estimator struct {
	Utility norms.Utility
	Power   norms.Power
}

// NewEstimator returns an estimator using the given norms.
func NewEstimator(n norms.Norms) Estimator {
	return Estimator{Utility: n.Utility, Power: n.Power}
}

// Estimate computes utility quantities and the resulting power. It keeps no
// state between calls.
func (e Estimator) Estimate(in Inputs) model.UtilityResult {
	n := e.Utility
	var gtCount, stgCount float64
	var gtGross, stgGross float64
	for _, u := range in.Power.Units {
		if u.GrossMWh <= 0 {
			continue
		}
		if u.Kind == model.SteamTurbineGenerator {
			stgCount++
			stgGross += u.GrossMWh
		} else {
			gtCount++
			gtGross += u.GrossMWh
		}
	}

	q := model.UtilityQuantities{
		BFWM3: in.HRSGFiringMT*n.BFWPerMTSHP +
			in.Steam.HP.Total*n.BFWPerMTHP +
			in.Steam.MP.Total*n.BFWPerMTMP +
			in.Steam.LP.Total*n.BFWPerMTLP +
			n.BFWFixedM3,
		CW1KM3:     in.Demand.CW1KM3,
		OxygenMT:   in.Demand.OxygenMT,
		EffluentM3: in.Demand.EffluentM3,
	}
	q.DMM3 = q.BFWM3*n.DMPerM3BFW + in.Demand.DMM3
	q.CW2KM3 = gtCount*n.CW2PerGT + stgCount*n.CW2PerSTG + n.CW2FixedKM3 +
		q.OxygenMT*n.CW2PerMTOxygen + in.Demand.CW2KM3
	q.AirNM3 = gtCount*n.AirPerGT + stgCount*n.AirPerSTG + float64(in.HRSGCount)*n.AirPerHRSG +
		n.AirFixedNM3 + in.Demand.AirNM3

	p := model.UtilityPower{
		GenerationAuxKWh: gtGross*1000*e.Power.GTAuxPerKWh + stgGross*1000*e.Power.STGAuxPerKWh,
		BFWKWh:           q.BFWM3 * n.BFWKWhPerM3,
		DMKWh:            q.DMM3 * n.DMKWhPerM3,
		CW1KWh:           q.CW1KM3 * n.CW1KWhPerKM3,
		CW2KWh:           q.CW2KM3 * n.CW2KWhPerKM3,
		AirKWh:           q.AirNM3 * n.AirKWhPerNM3,
		OxygenKWh:        q.OxygenMT * n.OxygenKWhPerMT,
		EffluentKWh:      q.EffluentM3 * n.EffluentKWhPerM3,
	}
	return model.UtilityResult{
		Quantities: q,
		Power:      p,
		TotalMWh:   (p.GenerationAuxKWh + p.UtilityKWh()) / 1000,
	}
}
