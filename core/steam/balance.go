// Package steam computes the steam header cascade and the HRSG firing plan.
package steam

import (
	"fmt"
	"math"

	"github.com/kilianp07/usdplan/core/lookup"
	"github.com/kilianp07/usdplan/core/model"
	"github.com/kilianp07/usdplan/core/norms"
)

// BalanceInput is everything the header balance depends on.
type BalanceInput struct {
	Demand      model.DemandSet
	STGGrossMWh float64
	STGHours    float64
	// Curve selects load-based extraction when it has points and the STG runs.
	Curve *lookup.STGCurve
}

// Balancer cascades LP, MP and HP demand down to the SHP header.
type Balancer struct {
	Steam norms.Steam
	Power norms.Power
}

// NewBalancer returns a balancer using the given norms.
func NewBalancer(n norms.Norms) Balancer {
	return Balancer{Steam: n.Steam, Power: n.Power}
}

// STGSteamMT is the SHP the STG consumes to generate grossMWh.
func (b Balancer) STGSteamMT(grossMWh float64) float64 {
	return grossMWh * 1000 * b.Power.STGSHPPerKWh
}

// Balance computes the header cascade. It has no side effects.
func (b Balancer) Balance(in BalanceInput) (model.SteamBalanceResult, error) {
	res := model.SteamBalanceResult{Mode: model.RatioMode}
	if in.STGHours > 0 {
		res.STGLoadMW = in.STGGrossMWh / in.STGHours
	}

	var ext lookup.STGExtraction
	if in.Curve.Len() > 0 && res.STGLoadMW > 0 {
		e, err := in.Curve.At(res.STGLoadMW)
		if err != nil {
			return res, fmt.Errorf("stg extraction at %.2f MW: %w", res.STGLoadMW, err)
		}
		ext = e
		res.Mode = model.LoadBasedMode
		res.CondensateM3 = e.CondensingLoadM3Hr * in.STGHours
	}

	d := in.Demand
	res.LP = HeaderSplit(d.LP, d.BFWMiscM3*b.Steam.LPPerBFW, res.Mode, b.Steam.LPFromSTGRatio, ext.LPExtractionTph*in.STGHours)
	res.LP.SHPForSTG = res.LP.FromSTG * b.Steam.SHPPerLPSTG
	res.LP.MPForPRDS = res.LP.FromPRDS * b.Steam.MPPerLPPRDS
	res.LP.BFWForPRDS = res.LP.FromPRDS * b.Steam.BFWPerLPPRDS

	res.MP = HeaderSplit(d.MP, res.LP.MPForPRDS, res.Mode, b.Steam.MPFromSTGRatio, ext.MPExtractionTph*in.STGHours)
	res.MP.SHPForSTG = res.MP.FromSTG * b.Steam.SHPPerMPSTG
	res.MP.SHPForPRDS = res.MP.FromPRDS * b.Steam.SHPPerMPPRDS
	res.MP.BFWForPRDS = res.MP.FromPRDS * b.Steam.BFWPerMPPRDS

	res.HP = model.HeaderBalance{Process: d.HP.Process, Fixed: d.HP.Fixed, Total: d.HP.Total()}
	res.HP.FromPRDS = res.HP.Total
	res.HP.SHPForPRDS = res.HP.FromPRDS * b.Steam.SHPPerHPPRDS
	res.HP.BFWForPRDS = res.HP.FromPRDS * b.Steam.BFWPerHPPRDS

	res.SHP = model.SHPDemand{
		Process:    d.SHP.Process,
		Fixed:      d.SHP.Fixed,
		STGInlet:   b.STGSteamMT(in.STGGrossMWh),
		Extraction: res.LP.SHPForSTG + res.MP.SHPForSTG,
		PRDS:       res.MP.SHPForPRDS + res.HP.SHPForPRDS,
	}
	res.SHP.Total = res.SHP.Process + res.SHP.Fixed + res.SHP.STGInlet + res.SHP.Extraction + res.SHP.PRDS
	res.BFWTotalM3 = res.LP.BFWForPRDS + res.MP.BFWForPRDS + res.HP.BFWForPRDS + d.BFWMiscM3
	return res, nil
}

// HeaderSplit routes one header between STG extraction and PRDS. In ratio
// mode stgRatio of the total comes from the STG; in load-based mode the STG
// supplies up to stgAvailable and any surplus extraction is reported.
func HeaderSplit(h model.HeaderDemand, derived float64, mode model.BalanceMode, stgRatio, stgAvailable float64) model.HeaderBalance {
	hb := model.HeaderBalance{Process: h.Process, Fixed: h.Fixed, Derived: derived}
	hb.Total = h.Total() + derived
	if mode == model.LoadBasedMode {
		hb.STGAvailable = stgAvailable
		hb.FromSTG = math.Min(stgAvailable, hb.Total)
		hb.STGExcess = math.Max(0, stgAvailable-hb.Total)
	} else {
		hb.FromSTG = hb.Total * stgRatio
	}
	hb.FromPRDS = hb.Total - hb.FromSTG
	return hb
}
