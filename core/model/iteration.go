package model

// ActionKind names a corrective move taken by the iteration controller.
type ActionKind string

const (
	ActionReduceSTG            ActionKind = "REDUCE_STG"
	ActionRecoverSTG           ActionKind = "RECOVER_STG"
	ActionRebalanceExcessSteam ActionKind = "REBALANCE_EXCESS_STEAM"
	ActionExcessSteamLeft      ActionKind = "EXCESS_STEAM_UNABSORBED"
)

// Action is one corrective move and the energy it moved.
type Action struct {
	Kind      ActionKind `json:"kind"`
	AmountMWh float64    `json:"amount_mwh"`
}

// Rebalance records generation before and after an excess-steam rebalance.
type Rebalance struct {
	STGBeforeMWh float64 `json:"stg_before_mwh"`
	STGAfterMWh  float64 `json:"stg_after_mwh"`
	GTBeforeMWh  float64 `json:"gt_before_mwh"`
	GTAfterMWh   float64 `json:"gt_after_mwh"`
}

// IterationRecord is the audit row of one solver step.
type IterationRecord struct {
	Iteration             int        `json:"iteration"`
	State                 string     `json:"state"`
	TotalDemandMWh        float64    `json:"total_demand_mwh"`
	GrossMWh              float64    `json:"gross_mwh"`
	NetMWh                float64    `json:"net_mwh"`
	ImportUsedMWh         float64    `json:"import_used_mwh"`
	STGGrossMWh           float64    `json:"stg_gross_mwh"`
	STGSteamMT            float64    `json:"stg_steam_mt"`
	SHPDemandMT           float64    `json:"shp_demand_mt"`
	SHPCapacityMT         float64    `json:"shp_capacity_mt"`
	SHPDeficitMT          float64    `json:"shp_deficit_mt"`
	FreeSteamMT           float64    `json:"free_steam_mt"`
	FiringMT              float64    `json:"firing_mt"`
	ExcessSteamMT         float64    `json:"excess_steam_mt"`
	PreviousAuxMWh        float64    `json:"previous_aux_mwh"`
	CurrentAuxMWh         float64    `json:"current_aux_mwh"`
	AuxErrorMWh           float64    `json:"aux_error_mwh"`
	STGReductionMWh       float64    `json:"stg_reduction_mwh"`
	ImportCompensationMWh float64    `json:"import_compensation_mwh"`
	Actions               []Action   `json:"actions,omitempty"`
	Rebalance             *Rebalance `json:"rebalance,omitempty"`
}
