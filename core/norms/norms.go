// Package norms holds the immutable plant norms every planning component
// receives explicitly.
package norms

import (
	"fmt"
)

// Solver bounds and tolerances of the fixed-point iteration.
type Solver struct {
	IterationLimit      int     `json:"iteration_limit"`
	AuxToleranceMWh     float64 `json:"aux_tolerance_mwh"`
	NearConvergedMWh    float64 `json:"near_converged_mwh"`
	SHPToleranceMT      float64 `json:"shp_tolerance_mt"`
	RecoveryDamping     float64 `json:"recovery_damping"`
	MinRecoveryMWh      float64 `json:"min_recovery_mwh"`
	MinRebalanceMWh     float64 `json:"min_rebalance_mwh"`
	ExcessSteamReportMT float64 `json:"excess_steam_report_mt"`
}

// Power norms used by the power dispatcher.
type Power struct {
	GTAuxPerKWh               float64 `json:"gt_aux_per_kwh"`
	STGAuxPerKWh              float64 `json:"stg_aux_per_kwh"`
	STGSHPPerKWh              float64 `json:"stg_shp_per_kwh"`
	SteamToPowerMTPerMWh      float64 `json:"steam_to_power_mt_per_mwh"`
	CapacityToleranceMWh      float64 `json:"capacity_tolerance_mwh"`
	AcceptableDeficitMWh      float64 `json:"acceptable_deficit_mwh"`
	AcceptableDeficitFraction float64 `json:"acceptable_deficit_fraction"`
	SplitResidual             float64 `json:"split_residual"`
}

// Steam header cascade factors, all per MT of the receiving header.
type Steam struct {
	LPFromSTGRatio float64 `json:"lp_from_stg_ratio"`
	MPFromSTGRatio float64 `json:"mp_from_stg_ratio"`
	LPPerBFW       float64 `json:"lp_per_bfw"`
	SHPPerLPSTG    float64 `json:"shp_per_lp_stg"`
	MPPerLPPRDS    float64 `json:"mp_per_lp_prds"`
	BFWPerLPPRDS   float64 `json:"bfw_per_lp_prds"`
	SHPPerMPSTG    float64 `json:"shp_per_mp_stg"`
	SHPPerMPPRDS   float64 `json:"shp_per_mp_prds"`
	BFWPerMPPRDS   float64 `json:"bfw_per_mp_prds"`
	SHPPerHPPRDS   float64 `json:"shp_per_hp_prds"`
	BFWPerHPPRDS   float64 `json:"bfw_per_hp_prds"`
}

// HRSG fuel norms.
type HRSG struct {
	UnlinkedPriority    int     `json:"unlinked_priority"`
	BTULbToMMBTUPerMT   float64 `json:"btu_lb_to_mmbtu_per_mt"`
	DefaultNGMMBTUPerMT float64 `json:"default_ng_mmbtu_per_mt"`
}

// Utility consumption and specific power norms.
type Utility struct {
	BFWPerMTSHP      float64 `json:"bfw_per_mt_shp"`
	BFWPerMTHP       float64 `json:"bfw_per_mt_hp"`
	BFWPerMTMP       float64 `json:"bfw_per_mt_mp"`
	BFWPerMTLP       float64 `json:"bfw_per_mt_lp"`
	BFWFixedM3       float64 `json:"bfw_fixed_m3"`
	DMPerM3BFW       float64 `json:"dm_per_m3_bfw"`
	CW2PerGT         float64 `json:"cw2_per_gt"`
	CW2PerSTG        float64 `json:"cw2_per_stg"`
	CW2FixedKM3      float64 `json:"cw2_fixed_km3"`
	CW2PerMTOxygen   float64 `json:"cw2_per_mt_oxygen"`
	AirPerGT         float64 `json:"air_per_gt"`
	AirPerSTG        float64 `json:"air_per_stg"`
	AirPerHRSG       float64 `json:"air_per_hrsg"`
	AirFixedNM3      float64 `json:"air_fixed_nm3"`
	BFWKWhPerM3      float64 `json:"bfw_kwh_per_m3"`
	DMKWhPerM3       float64 `json:"dm_kwh_per_m3"`
	CW1KWhPerKM3     float64 `json:"cw1_kwh_per_km3"`
	CW2KWhPerKM3     float64 `json:"cw2_kwh_per_km3"`
	AirKWhPerNM3     float64 `json:"air_kwh_per_nm3"`
	OxygenKWhPerMT   float64 `json:"oxygen_kwh_per_mt"`
	EffluentKWhPerM3 float64 `json:"effluent_kwh_per_m3"`
}

// Norms is the complete, immutable set of plant norms.
type Norms struct {
	Solver  Solver  `json:"solver"`
	Power   Power   `json:"power"`
	Steam   Steam   `json:"steam"`
	HRSG    HRSG    `json:"hrsg"`
	Utility Utility `json:"utility"`
}

// Default returns the plant's reference norms.
func Default() Norms {
	return Norms{
		Solver: Solver{
			IterationLimit:      50,
			AuxToleranceMWh:     1.0,
			NearConvergedMWh:    10.0,
			SHPToleranceMT:      1.0,
			RecoveryDamping:     0.5,
			MinRecoveryMWh:      0.1,
			MinRebalanceMWh:     50.0,
			ExcessSteamReportMT: 100.0,
		},
		Power: Power{
			GTAuxPerKWh:               0.014,
			STGAuxPerKWh:              0.002,
			STGSHPPerKWh:              0.00356,
			SteamToPowerMTPerMWh:      3.56,
			CapacityToleranceMWh:      1.0,
			AcceptableDeficitMWh:      50.0,
			AcceptableDeficitFraction: 0.01,
			SplitResidual:             1e-6,
		},
		Steam: Steam{
			LPFromSTGRatio: 0.6134,
			MPFromSTGRatio: 0.2908,
			LPPerBFW:       0.145,
			SHPPerLPSTG:    0.48,
			MPPerLPPRDS:    0.75,
			BFWPerLPPRDS:   0.25,
			SHPPerMPSTG:    0.69,
			SHPPerMPPRDS:   0.91,
			BFWPerMPPRDS:   0.09,
			SHPPerHPPRDS:   0.9232,
			BFWPerHPPRDS:   0.0768,
		},
		HRSG: HRSG{
			UnlinkedPriority:    999,
			BTULbToMMBTUPerMT:   0.00396567,
			DefaultNGMMBTUPerMT: 2.8115696,
		},
		Utility: Utility{
			BFWPerMTSHP:      1.024,
			BFWPerMTHP:       0.0768,
			BFWPerMTMP:       0.09,
			BFWPerMTLP:       0.25,
			BFWFixedM3:       300,
			DMPerM3BFW:       0.86,
			CW2PerGT:         108,
			CW2PerSTG:        2376,
			CW2FixedKM3:      283,
			CW2PerMTOxygen:   0.261,
			AirPerGT:         30960,
			AirPerSTG:        41040,
			AirPerHRSG:       453600,
			AirFixedNM3:      3300,
			BFWKWhPerM3:      9.5,
			DMKWhPerM3:       1.21,
			CW1KWhPerKM3:     245,
			CW2KWhPerKM3:     250,
			AirKWhPerNM3:     0.165,
			OxygenKWhPerMT:   936.04,
			EffluentKWhPerM3: 3.54,
		},
	}
}

// Validate rejects norms that would make the iteration meaningless.
func (n Norms) Validate() error {
	if n.Solver.IterationLimit <= 0 {
		return fmt.Errorf("norms.solver.iteration_limit must be positive")
	}
	if n.Solver.AuxToleranceMWh <= 0 {
		return fmt.Errorf("norms.solver.aux_tolerance_mwh must be positive")
	}
	if n.Solver.RecoveryDamping <= 0 || n.Solver.RecoveryDamping > 1 {
		return fmt.Errorf("norms.solver.recovery_damping must be in (0,1]")
	}
	if n.Power.STGSHPPerKWh <= 0 {
		return fmt.Errorf("norms.power.stg_shp_per_kwh must be positive")
	}
	if n.Power.SteamToPowerMTPerMWh <= 0 {
		return fmt.Errorf("norms.power.steam_to_power_mt_per_mwh must be positive")
	}
	if n.Power.SplitResidual <= 0 {
		return fmt.Errorf("norms.power.split_residual must be positive")
	}
	for name, r := range map[string]float64{
		"lp_from_stg_ratio": n.Steam.LPFromSTGRatio,
		"mp_from_stg_ratio": n.Steam.MPFromSTGRatio,
	} {
		if r < 0 || r > 1 {
			return fmt.Errorf("norms.steam.%s must be in [0,1]", name)
		}
	}
	return nil
}
