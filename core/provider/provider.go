// Package provider defines the read-only sources a planning run draws its
// snapshot from.
package provider

import (
	"context"
	"fmt"

	"github.com/kilianp07/usdplan/core/model"
)

// DemandProvider returns the demand of one period.
type DemandProvider interface {
	Demand(ctx context.Context, p model.Period) (model.DemandSet, error)
}

// AssetProvider returns the generation units and HRSGs available in a period.
type AssetProvider interface {
	Units(ctx context.Context, p model.Period) ([]model.GenerationUnit, error)
	HRSGs(ctx context.Context, p model.Period) ([]model.SteamRaisingUnit, error)
}

// CurveProvider returns the performance curves of the plant.
type CurveProvider interface {
	Curves(ctx context.Context) (model.CurveSet, error)
}

// ImportProvider returns the grid import available in a period.
type ImportProvider interface {
	Import(ctx context.Context, p model.Period) (model.ImportSupply, error)
}

// Source bundles every provider and lists the periods it knows.
type Source interface {
	DemandProvider
	AssetProvider
	CurveProvider
	ImportProvider
	Periods(ctx context.Context) ([]model.Period, error)
}

// Snapshot reads everything a run needs for period p once.
func Snapshot(ctx context.Context, src Source, p model.Period) (model.Snapshot, error) {
	demand, err := src.Demand(ctx, p)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("demand %s: %w", p, err)
	}
	units, err := src.Units(ctx, p)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("units %s: %w", p, err)
	}
	hrsgs, err := src.HRSGs(ctx, p)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("hrsgs %s: %w", p, err)
	}
	curves, err := src.Curves(ctx)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("curves: %w", err)
	}
	imp, err := src.Import(ctx, p)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("import %s: %w", p, err)
	}
	return model.Snapshot{
		Period: p,
		Demand: demand,
		Units:  units,
		HRSGs:  hrsgs,
		Curves: curves,
		Import: imp,
	}, nil
}

// MissingPeriodError reports a period the source has no data for.
func MissingPeriodError(p model.Period) error {
	return &model.ConfigurationError{Field: "period", Reason: "no data for " + p.String()}
}
