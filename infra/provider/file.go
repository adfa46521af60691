// Package provider loads plant snapshots from YAML or JSON files.
package provider

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/usdplan/core/model"
	coreprovider "github.com/kilianp07/usdplan/core/provider"
)

// PlantFile is the on-disk layout of a plant description.
type PlantFile struct {
	Units  []model.GenerationUnit   `json:"units"`
	HRSGs  []model.SteamRaisingUnit `json:"hrsgs"`
	Import model.ImportSupply       `json:"import"`
	Curves model.CurveSet           `json:"curves"`
	Months []MonthData              `json:"periods"`
}

// MonthData is the demand and availability of one month.
type MonthData struct {
	Month int `json:"month"`
	Year  int `json:"year"`
	// Hours applies to every unit and the import; zero means the calendar hours of the month.
	Hours float64 `json:"hours"`
	// UnitHours overrides the hours of single units, e.g. 0 for a planned outage.
	UnitHours map[string]float64 `json:"unit_hours"`
	// ImportMW overrides the plant import capacity.
	ImportMW *float64        `json:"import_mw"`
	Demand   model.DemandSet `json:"demand"`
}

// Period of the month.
func (m MonthData) Period() model.Period { return model.Period{Month: m.Month, Year: m.Year} }

// FileProvider serves snapshots from a loaded plant file.
type FileProvider struct {
	plant  PlantFile
	months map[model.Period]MonthData
}

var _ coreprovider.Source = (*FileProvider)(nil)

// Load reads a plant file. The parser is chosen by extension.
func Load(path string) (*FileProvider, error) {
	k := koanf.New(".")
	var parser koanf.Parser
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported plant file format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("load plant file: %w", err)
	}
	var plant PlantFile
	if err := k.UnmarshalWithConf("", &plant, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("decode plant file: %w", err)
	}
	return New(plant)
}

// New indexes a plant description by period.
func New(plant PlantFile) (*FileProvider, error) {
	months := make(map[model.Period]MonthData, len(plant.Months))
	for _, m := range plant.Months {
		p := m.Period()
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := months[p]; dup {
			return nil, &model.ConfigurationError{Field: "periods", Reason: "duplicate period " + p.String()}
		}
		months[p] = m
	}
	return &FileProvider{plant: plant, months: months}, nil
}

func (f *FileProvider) month(p model.Period) (MonthData, error) {
	m, ok := f.months[p]
	if !ok {
		return MonthData{}, coreprovider.MissingPeriodError(p)
	}
	return m, nil
}

// Periods lists the described months in order.
func (f *FileProvider) Periods(context.Context) ([]model.Period, error) {
	out := make([]model.Period, 0, len(f.months))
	for p := range f.months {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out, nil
}

// Demand returns the month's demand stamped with its period.
func (f *FileProvider) Demand(_ context.Context, p model.Period) (model.DemandSet, error) {
	m, err := f.month(p)
	if err != nil {
		return model.DemandSet{}, err
	}
	d := m.Demand
	d.Period = p
	return d, nil
}

// Units returns the plant units with the month's operating hours.
func (f *FileProvider) Units(_ context.Context, p model.Period) ([]model.GenerationUnit, error) {
	m, err := f.month(p)
	if err != nil {
		return nil, err
	}
	hours := monthHours(m)
	out := make([]model.GenerationUnit, len(f.plant.Units))
	for i, u := range f.plant.Units {
		u.OperationalHours = hours
		if h, ok := m.UnitHours[u.ID]; ok {
			u.OperationalHours = h
		}
		out[i] = u
	}
	return out, nil
}

// HRSGs returns the plant HRSGs.
func (f *FileProvider) HRSGs(_ context.Context, p model.Period) ([]model.SteamRaisingUnit, error) {
	if _, err := f.month(p); err != nil {
		return nil, err
	}
	return append([]model.SteamRaisingUnit(nil), f.plant.HRSGs...), nil
}

// Curves returns the plant performance curves.
func (f *FileProvider) Curves(context.Context) (model.CurveSet, error) {
	return f.plant.Curves, nil
}

// Import returns the import supply of the month.
func (f *FileProvider) Import(_ context.Context, p model.Period) (model.ImportSupply, error) {
	m, err := f.month(p)
	if err != nil {
		return model.ImportSupply{}, err
	}
	imp := f.plant.Import
	if m.ImportMW != nil {
		imp.CapacityMW = *m.ImportMW
	}
	imp.Hours = monthHours(m)
	return imp, nil
}

func monthHours(m MonthData) float64 {
	if m.Hours > 0 {
		return m.Hours
	}
	first := time.Date(m.Year, time.Month(m.Month), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, 1, 0).Sub(first).Hours()
}
