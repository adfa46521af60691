package model

// GTCurvePoint is one row of the GT performance curve.
type GTCurvePoint struct {
	LoadMW          float64 `json:"load_mw"`
	HeatRate        float64 `json:"heat_rate"`
	FreeSteamFactor float64 `json:"free_steam_factor"`
}

// STGCurvePoint is one row of the STG extraction curve.
type STGCurvePoint struct {
	LoadMW             float64 `json:"load_mw"`
	SHPInletTph        float64 `json:"shp_inlet_tph"`
	MPExtractionTph    float64 `json:"mp_extraction_tph"`
	LPExtractionTph    float64 `json:"lp_extraction_tph"`
	CondensingLoadM3Hr float64 `json:"condensing_load_m3hr"`
	HeatRateKcalKWh    float64 `json:"heat_rate_kcal_kwh"`
}

// HRSGCurvePoint is one row of an HRSG heat-rate curve.
type HRSGCurvePoint struct {
	LoadTph       float64 `json:"load_tph"`
	HeatRateBTULb float64 `json:"heat_rate_btu_lb"`
}

// CurveSet groups the raw curve data of a plant.
type CurveSet struct {
	GT   []GTCurvePoint              `json:"gt"`
	STG  []STGCurvePoint             `json:"stg"`
	HRSG map[string][]HRSGCurvePoint `json:"hrsg"`
}

// Snapshot is the immutable input of one planning run.
type Snapshot struct {
	Period Period             `json:"period"`
	Demand DemandSet          `json:"demand"`
	Units  []GenerationUnit   `json:"units"`
	HRSGs  []SteamRaisingUnit `json:"hrsgs"`
	Curves CurveSet           `json:"curves"`
	Import ImportSupply       `json:"import"`
}

// Validate checks references and bounds before a run starts.
func (s Snapshot) Validate() error {
	if err := s.Period.Validate(); err != nil {
		return err
	}
	if s.Demand.Period != s.Period {
		return &ConfigurationError{Field: "demand.period", Reason: "does not match snapshot period " + s.Period.String()}
	}
	if err := s.Demand.Validate(); err != nil {
		return err
	}
	if len(s.Units) == 0 {
		return &ConfigurationError{Field: "units", Reason: "no generation units"}
	}
	ids := make(map[string]UnitKind, len(s.Units))
	stg := 0
	for _, u := range s.Units {
		if err := u.Validate(); err != nil {
			return err
		}
		if _, dup := ids[u.ID]; dup {
			return &ConfigurationError{Field: "unit." + u.ID, Reason: "duplicate id"}
		}
		ids[u.ID] = u.Kind
		if u.Kind == SteamTurbineGenerator {
			stg++
		}
	}
	if stg > 1 {
		return &ConfigurationError{Field: "units", Reason: "at most one STG is supported"}
	}
	for _, h := range s.HRSGs {
		if err := h.Validate(); err != nil {
			return err
		}
		if h.LinkedUnitID == "" {
			continue
		}
		kind, ok := ids[h.LinkedUnitID]
		if !ok || kind != GasTurbine {
			return &ConfigurationError{Field: "hrsg." + h.ID, Reason: "linked unit " + h.LinkedUnitID + " is not a known GT"}
		}
	}
	if s.Import.CapacityMW < 0 || s.Import.Hours < 0 {
		return &ConfigurationError{Field: "import", Reason: "must be non-negative"}
	}
	return nil
}

// STG returns the steam turbine of the snapshot, if any.
func (s Snapshot) STG() (GenerationUnit, bool) {
	for _, u := range s.Units {
		if u.Kind == SteamTurbineGenerator {
			return u, true
		}
	}
	return GenerationUnit{}, false
}
