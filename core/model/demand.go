package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Period identifies a planning month.
type Period struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

func (p Period) String() string { return fmt.Sprintf("%04d-%02d", p.Year, p.Month) }

// Validate checks the month range.
func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 || p.Year <= 0 {
		return &ConfigurationError{Field: "period", Reason: fmt.Sprintf("invalid period %d/%d", p.Month, p.Year)}
	}
	return nil
}

// FinancialYear is the April-based year the period belongs to.
func (p Period) FinancialYear() int {
	if p.Month < 4 {
		return p.Year - 1
	}
	return p.Year
}

// ParsePeriod parses "YYYY-MM".
func ParsePeriod(s string) (Period, error) {
	y, m, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return Period{}, &ConfigurationError{Field: "period", Reason: fmt.Sprintf("%q is not YYYY-MM", s)}
	}
	year, err := strconv.Atoi(y)
	if err != nil {
		return Period{}, &ConfigurationError{Field: "period", Reason: fmt.Sprintf("year %q: %v", y, err)}
	}
	month, err := strconv.Atoi(m)
	if err != nil {
		return Period{}, &ConfigurationError{Field: "period", Reason: fmt.Sprintf("month %q: %v", m, err)}
	}
	p := Period{Month: month, Year: year}
	return p, p.Validate()
}

// FinancialYear returns the April..March months of financial year fy.
func FinancialYear(fy int) []Period {
	out := make([]Period, 0, 12)
	for m := 4; m <= 12; m++ {
		out = append(out, Period{Month: m, Year: fy})
	}
	for m := 1; m <= 3; m++ {
		out = append(out, Period{Month: m, Year: fy + 1})
	}
	return out
}

// HeaderDemand splits a steam header demand in MT.
type HeaderDemand struct {
	Process float64 `json:"process"`
	Fixed   float64 `json:"fixed"`
}

// Total returns process plus fixed demand.
func (h HeaderDemand) Total() float64 { return h.Process + h.Fixed }

// UtilityDemand holds process consumption of the utility systems.
type UtilityDemand struct {
	DMM3       float64 `json:"dm_m3"`
	CW1KM3     float64 `json:"cw1_km3"`
	CW2KM3     float64 `json:"cw2_km3"`
	AirNM3     float64 `json:"air_nm3"`
	OxygenMT   float64 `json:"oxygen_mt"`
	EffluentM3 float64 `json:"effluent_m3"`
}

// DemandSet is the monthly demand the plant must satisfy.
type DemandSet struct {
	Period          Period        `json:"period"`
	LP              HeaderDemand  `json:"lp"`
	MP              HeaderDemand  `json:"mp"`
	HP              HeaderDemand  `json:"hp"`
	SHP             HeaderDemand  `json:"shp"`
	PowerProcessMWh float64       `json:"power_process_mwh"`
	PowerFixedMWh   float64       `json:"power_fixed_mwh"`
	BFWMiscM3       float64       `json:"bfw_misc_m3"`
	ExportAvailable bool          `json:"export_available"`
	Utilities       UtilityDemand `json:"utilities"`
}

// BasePowerMWh is the power demand before utility consumption.
func (d DemandSet) BasePowerMWh() float64 { return d.PowerProcessMWh + d.PowerFixedMWh }

// Validate rejects negative demand.
func (d DemandSet) Validate() error {
	if err := d.Period.Validate(); err != nil {
		return err
	}
	for name, v := range map[string]float64{
		"lp": d.LP.Total(), "mp": d.MP.Total(), "hp": d.HP.Total(), "shp": d.SHP.Total(),
		"power": d.BasePowerMWh(), "bfw_misc": d.BFWMiscM3,
	} {
		if v < 0 {
			return &ConfigurationError{Field: "demand." + name, Reason: "must be non-negative"}
		}
	}
	return nil
}
