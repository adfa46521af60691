package model

import (
	"fmt"
	"strings"
)

// UnitKind distinguishes the two kinds of generation unit in the plant.
type UnitKind int

const (
	GasTurbine UnitKind = iota
	SteamTurbineGenerator
)

func (k UnitKind) String() string {
	switch k {
	case GasTurbine:
		return "GT"
	case SteamTurbineGenerator:
		return "STG"
	default:
		return fmt.Sprintf("UnitKind(%d)", int(k))
	}
}

// MarshalText encodes the kind as "GT" or "STG".
func (k UnitKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText accepts "GT"/"STG" and a few long-form spellings.
func (k *UnitKind) UnmarshalText(b []byte) error {
	switch strings.ToUpper(strings.TrimSpace(string(b))) {
	case "GT", "GAS_TURBINE", "GASTURBINE":
		*k = GasTurbine
	case "STG", "STEAM_TURBINE", "STEAMTURBINEGENERATOR":
		*k = SteamTurbineGenerator
	default:
		return fmt.Errorf("unknown unit kind %q", string(b))
	}
	return nil
}

// GenerationUnit is a GT or STG available for power dispatch during a period.
type GenerationUnit struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Kind             UnitKind `json:"kind"`
	Priority         int      `json:"priority"` // lower is dispatched first
	MinCapacityMW    float64  `json:"min_mw"`
	MaxCapacityMW    float64  `json:"max_mw"`
	OperationalHours float64  `json:"hours"`
}

// MinEnergyMWh is the minimum monthly generation when the unit runs.
func (u GenerationUnit) MinEnergyMWh() float64 { return u.MinCapacityMW * u.OperationalHours }

// MaxEnergyMWh is the maximum monthly generation.
func (u GenerationUnit) MaxEnergyMWh() float64 { return u.MaxCapacityMW * u.OperationalHours }

// Available reports whether the unit has operating hours in the period.
func (u GenerationUnit) Available() bool { return u.OperationalHours > 0 }

// Validate checks the unit bounds.
func (u GenerationUnit) Validate() error {
	if u.ID == "" {
		return &ConfigurationError{Field: "unit.id", Reason: "must not be empty"}
	}
	if u.MinCapacityMW < 0 || u.OperationalHours < 0 {
		return &ConfigurationError{Field: "unit." + u.ID, Reason: "capacity and hours must be non-negative"}
	}
	if u.MinCapacityMW > u.MaxCapacityMW {
		return &ConfigurationError{Field: "unit." + u.ID, Reason: "min capacity exceeds max capacity"}
	}
	return nil
}

// SteamRaisingUnit is an HRSG whose availability mirrors its linked GT.
type SteamRaisingUnit struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	LinkedUnitID     string  `json:"linked_unit_id"`
	MinFiringRateTph float64 `json:"min_tph"`
	MaxFiringRateTph float64 `json:"max_tph"`
	EfficiencyFactor float64 `json:"efficiency"`
}

// MinFiringMT returns the minimum supplementary firing over hours.
func (h SteamRaisingUnit) MinFiringMT(hours float64) float64 {
	return h.MinFiringRateTph * hours * h.EfficiencyFactor
}

// MaxFiringMT returns the maximum supplementary firing over hours.
func (h SteamRaisingUnit) MaxFiringMT(hours float64) float64 {
	return h.MaxFiringRateTph * hours * h.EfficiencyFactor
}

// Validate checks the firing bounds.
func (h SteamRaisingUnit) Validate() error {
	if h.ID == "" {
		return &ConfigurationError{Field: "hrsg.id", Reason: "must not be empty"}
	}
	if h.MinFiringRateTph < 0 || h.MinFiringRateTph > h.MaxFiringRateTph {
		return &ConfigurationError{Field: "hrsg." + h.ID, Reason: "firing range is invalid"}
	}
	if h.EfficiencyFactor <= 0 {
		return &ConfigurationError{Field: "hrsg." + h.ID, Reason: "efficiency must be positive"}
	}
	return nil
}

// ImportSupply is the grid import available in a period.
type ImportSupply struct {
	CapacityMW float64 `json:"capacity_mw"`
	Hours      float64 `json:"hours"`
}

// MaxEnergyMWh returns the importable energy over the period.
func (i ImportSupply) MaxEnergyMWh() float64 {
	if i.CapacityMW <= 0 || i.Hours <= 0 {
		return 0
	}
	return i.CapacityMW * i.Hours
}
