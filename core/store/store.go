// Package store defines how planning results are persisted and queried.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kilianp07/usdplan/core/model"
)

// ErrNotFound is returned when no result exists for a period.
var ErrNotFound = errors.New("result not found")

// Summary is the tabular view of one stored result. Energy and steam
// figures are rounded to two decimals.
type Summary struct {
	Period          model.Period    `json:"period"`
	RunID           string          `json:"run_id"`
	Converged       bool            `json:"converged"`
	Iterations      int             `json:"iterations"`
	ErrorType       model.ErrorType `json:"error_type,omitempty"`
	DemandMWh       float64         `json:"demand_mwh"`
	GrossMWh        float64         `json:"gross_mwh"`
	ImportMWh       float64         `json:"import_mwh"`
	UtilityAuxMWh   float64         `json:"utility_aux_mwh"`
	STGReductionMWh float64         `json:"stg_reduction_mwh"`
	ExportMWh       float64         `json:"export_mwh"`
	SHPDemandMT     float64         `json:"shp_demand_mt"`
	SHPCapacityMT   float64         `json:"shp_capacity_mt"`
	StoredAt        time.Time       `json:"stored_at"`
}

// Summarize builds the summary row of a result.
func Summarize(res model.Result, at time.Time) Summary {
	return Summary{
		Period:          res.Period,
		RunID:           res.RunID,
		Converged:       res.Converged,
		Iterations:      res.IterationsUsed,
		ErrorType:       res.ErrorType,
		DemandMWh:       Round2(res.Power.TotalDemandMWh),
		GrossMWh:        Round2(res.Power.GrossMWh),
		ImportMWh:       Round2(res.Power.ImportUsedMWh),
		UtilityAuxMWh:   Round2(res.UtilityAuxPowerMWh),
		STGReductionMWh: Round2(res.STGReductionMWh),
		ExportMWh:       Round2(res.ExcessPowerForExportMWh),
		SHPDemandMT:     Round2(res.SteamBalance.HRSG.DemandMT),
		SHPCapacityMT:   Round2(res.SteamBalance.HRSG.CapacityMT),
		StoredAt:        at,
	}
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// Query filters stored results. Zero values match everything.
type Query struct {
	// FinancialYear selects April FY through March FY+1.
	FinancialYear int
	ConvergedOnly bool
}

// Match reports whether a summary passes the filter.
func (q Query) Match(s Summary) bool {
	if q.ConvergedOnly && !s.Converged {
		return false
	}
	if q.FinancialYear != 0 && s.Period.FinancialYear() != q.FinancialYear {
		return false
	}
	return true
}

// ResultStore persists one result per period. Saving a period again
// replaces the earlier result.
type ResultStore interface {
	Save(ctx context.Context, res model.Result) error
	Get(ctx context.Context, p model.Period) (model.Result, error)
	List(ctx context.Context, q Query) ([]Summary, error)
	Close() error
}

// Config selects and configures the result store backend.
type Config struct {
	// Backend is "sqlite", "jsonl" or "none".
	Backend string `json:"backend"`
	// Path is the file location of the store.
	Path string `json:"path"`
	// MaxSizeMB rotates a jsonl store once the file exceeds this size.
	MaxSizeMB  int `json:"max_size_mb"`
	MaxBackups int `json:"max_backups"`
	MaxAgeDays int `json:"max_age_days"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "sqlite"
	}
	if c.Path == "" {
		switch c.Backend {
		case "sqlite":
			c.Path = "usdplan.db"
		case "jsonl":
			c.Path = "usdplan.jsonl"
		}
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	switch c.Backend {
	case "none":
		return nil
	case "sqlite", "jsonl":
	default:
		return fmt.Errorf("unknown store backend %s", c.Backend)
	}
	if c.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	if c.MaxSizeMB < 0 || c.MaxBackups < 0 || c.MaxAgeDays < 0 {
		return fmt.Errorf("store rotation settings must be non-negative")
	}
	return nil
}
