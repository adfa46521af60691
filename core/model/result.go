package model

// DispatchResult is the outcome of power dispatch for one unit.
type DispatchResult struct {
	UnitID          string   `json:"unit_id"`
	Name            string   `json:"name"`
	Kind            UnitKind `json:"kind"`
	Priority        int      `json:"priority"`
	Hours           float64  `json:"hours"`
	MinMWh          float64  `json:"min_mwh"`
	MaxMWh          float64  `json:"max_mwh"`
	LoadMW          float64  `json:"load_mw"`
	GrossMWh        float64  `json:"gross_mwh"`
	AuxMWh          float64  `json:"aux_mwh"`
	NetMWh          float64  `json:"net_mwh"`
	HeatRate        float64  `json:"heat_rate"`
	FreeSteamFactor float64  `json:"free_steam_factor,omitempty"`
}

// PowerBalance summarizes one power dispatch.
type PowerBalance struct {
	ProcessMWh         float64          `json:"process_mwh"`
	FixedMWh           float64          `json:"fixed_mwh"`
	UtilityAuxMWh      float64          `json:"utility_aux_mwh"`
	TotalDemandMWh     float64          `json:"total_demand_mwh"`
	ImportAvailableMWh float64          `json:"import_available_mwh"`
	ImportUsedMWh      float64          `json:"import_used_mwh"`
	GenerationTarget   float64          `json:"generation_target_mwh"`
	GrossMWh           float64          `json:"gross_mwh"`
	AuxMWh             float64          `json:"aux_mwh"`
	NetMWh             float64          `json:"net_mwh"`
	ExcessMWh          float64          `json:"excess_mwh"`
	ShortfallMWh       float64          `json:"shortfall_mwh"`
	Units              []DispatchResult `json:"units"`
}

// Unit returns the dispatch of the given unit id.
func (p PowerBalance) Unit(id string) (DispatchResult, bool) {
	for _, u := range p.Units {
		if u.UnitID == id {
			return u, true
		}
	}
	return DispatchResult{}, false
}

// GrossByKind sums gross generation of one unit kind.
func (p PowerBalance) GrossByKind(kind UnitKind) float64 {
	var sum float64
	for _, u := range p.Units {
		if u.Kind == kind {
			sum += u.GrossMWh
		}
	}
	return sum
}

// BalanceMode tells how LP and MP were split between STG and PRDS.
type BalanceMode string

const (
	RatioMode     BalanceMode = "ratio"
	LoadBasedMode BalanceMode = "load_based"
)

// HeaderBalance is the supply split of one steam header in MT.
type HeaderBalance struct {
	Process      float64 `json:"process"`
	Fixed        float64 `json:"fixed"`
	Derived      float64 `json:"derived"`
	Total        float64 `json:"total"`
	FromSTG      float64 `json:"from_stg"`
	FromPRDS     float64 `json:"from_prds"`
	STGAvailable float64 `json:"stg_available,omitempty"`
	STGExcess    float64 `json:"stg_excess,omitempty"`
	SHPForSTG    float64 `json:"shp_for_stg"`
	SHPForPRDS   float64 `json:"shp_for_prds"`
	MPForPRDS    float64 `json:"mp_for_prds,omitempty"`
	BFWForPRDS   float64 `json:"bfw_for_prds"`
}

// SHPDemand breaks the SHP requirement down by consumer.
type SHPDemand struct {
	Process    float64 `json:"process"`
	Fixed      float64 `json:"fixed"`
	STGInlet   float64 `json:"stg_inlet"`
	Extraction float64 `json:"extraction"`
	PRDS       float64 `json:"prds"`
	Total      float64 `json:"total"`
}

// NonSTG is the SHP demand that does not depend on STG generation.
func (s SHPDemand) NonSTG() float64 { return s.Total - s.STGInlet }

// SteamBalanceResult is the full header cascade for one iteration.
type SteamBalanceResult struct {
	Mode         BalanceMode        `json:"mode"`
	STGLoadMW    float64            `json:"stg_load_mw"`
	LP           HeaderBalance      `json:"lp"`
	MP           HeaderBalance      `json:"mp"`
	HP           HeaderBalance      `json:"hp"`
	SHP          SHPDemand          `json:"shp"`
	BFWTotalM3   float64            `json:"bfw_total_m3"`
	CondensateM3 float64            `json:"condensate_m3,omitempty"`
	HRSG         HRSGDispatchResult `json:"hrsg"`
}

// HRSGDispatch is the firing plan of one HRSG.
type HRSGDispatch struct {
	HRSGID        string  `json:"hrsg_id"`
	LinkedUnitID  string  `json:"linked_unit_id"`
	Priority      int     `json:"priority"`
	Available     bool    `json:"available"`
	Hours         float64 `json:"hours"`
	FreeSteamMT   float64 `json:"free_steam_mt"`
	MinFiringMT   float64 `json:"min_firing_mt"`
	MaxFiringMT   float64 `json:"max_firing_mt"`
	DispatchedMT  float64 `json:"dispatched_mt"`
	LoadTph       float64 `json:"load_tph"`
	HeatRateBTULb float64 `json:"heat_rate_btu_lb"`
	FuelMMBTU     float64 `json:"fuel_mmbtu"`
}

// HRSGDispatchResult aggregates the HRSG firing plan.
type HRSGDispatchResult struct {
	DemandMT      float64        `json:"demand_mt"`
	FreeSteamMT   float64        `json:"free_steam_mt"`
	MinFiringMT   float64        `json:"min_firing_mt"`
	CapacityMT    float64        `json:"capacity_mt"`
	DispatchedMT  float64        `json:"dispatched_mt"`
	ExcessSteamMT float64        `json:"excess_steam_mt"`
	ShortfallMT   float64        `json:"shortfall_mt"`
	FuelMMBTU     float64        `json:"fuel_mmbtu"`
	CanMeetDemand bool           `json:"can_meet_demand"`
	Units         []HRSGDispatch `json:"units"`
}

// UtilityQuantities are the utility volumes produced in a period.
type UtilityQuantities struct {
	BFWM3      float64 `json:"bfw_m3"`
	DMM3       float64 `json:"dm_m3"`
	CW1KM3     float64 `json:"cw1_km3"`
	CW2KM3     float64 `json:"cw2_km3"`
	AirNM3     float64 `json:"air_nm3"`
	OxygenMT   float64 `json:"oxygen_mt"`
	EffluentM3 float64 `json:"effluent_m3"`
}

// UtilityPower is the auxiliary power breakdown in kWh.
type UtilityPower struct {
	GenerationAuxKWh float64 `json:"generation_aux_kwh"`
	BFWKWh           float64 `json:"bfw_kwh"`
	DMKWh            float64 `json:"dm_kwh"`
	CW1KWh           float64 `json:"cw1_kwh"`
	CW2KWh           float64 `json:"cw2_kwh"`
	AirKWh           float64 `json:"air_kwh"`
	OxygenKWh        float64 `json:"oxygen_kwh"`
	EffluentKWh      float64 `json:"effluent_kwh"`
}

// UtilityKWh is the consumption of utility systems excluding generation aux.
func (p UtilityPower) UtilityKWh() float64 {
	return p.BFWKWh + p.DMKWh + p.CW1KWh + p.CW2KWh + p.AirKWh + p.OxygenKWh + p.EffluentKWh
}

// UtilityResult is the output of the auxiliary-power estimator.
type UtilityResult struct {
	Quantities UtilityQuantities `json:"quantities"`
	Power      UtilityPower      `json:"power"`
	TotalMWh   float64           `json:"total_mwh"`
}

// Result is the record a planning run exposes to its collaborators.
type Result struct {
	RunID                   string             `json:"run_id"`
	Period                  Period             `json:"period"`
	Converged               bool               `json:"converged"`
	IterationsUsed          int                `json:"iterations_used"`
	PerUnitDispatch         []DispatchResult   `json:"per_unit_dispatch"`
	Power                   PowerBalance       `json:"power"`
	SteamBalance            SteamBalanceResult `json:"steam_balance"`
	Utility                 UtilityResult      `json:"utility"`
	UtilityAuxPowerMWh      float64            `json:"utility_aux_power_mwh"`
	STGReductionMWh         float64            `json:"stg_reduction_mwh"`
	ImportCompensationMWh   float64            `json:"import_compensation_mwh"`
	ExcessPowerForExportMWh float64            `json:"excess_power_for_export_mwh"`
	ExportAvailable         bool               `json:"export_available"`
	ErrorType               ErrorType          `json:"error_type,omitempty"`
	Message                 string             `json:"message,omitempty"`
	History                 []IterationRecord  `json:"history,omitempty"`
}
