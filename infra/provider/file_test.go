package provider

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/usdplan/core/model"
	coreprovider "github.com/kilianp07/usdplan/core/provider"
)

var (
	april = model.Period{Month: 4, Year: 2025}
	may   = model.Period{Month: 5, Year: 2025}
)

func TestLoadYAML(t *testing.T) {
	p, err := Load(filepath.Join("testdata", "plant.yaml"))
	require.NoError(t, err)
	ctx := context.Background()

	periods, err := p.Periods(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Period{april, may}, periods)

	snap, err := coreprovider.Snapshot(ctx, p, april)
	require.NoError(t, err)
	require.NoError(t, snap.Validate())
	require.Len(t, snap.Units, 3)
	assert.Equal(t, model.SteamTurbineGenerator, snap.Units[2].Kind)
	// April has 30 calendar days
	assert.Equal(t, 720.0, snap.Units[0].OperationalHours)
	assert.Equal(t, 720.0, snap.Import.Hours)
	assert.Equal(t, 2.0, snap.Import.CapacityMW)
	assert.Equal(t, april, snap.Demand.Period)
	assert.Equal(t, 25500.0, snap.Demand.BasePowerMWh())
	assert.Equal(t, 21000.0, snap.Demand.LP.Total())
	assert.Equal(t, 200.0, snap.Demand.Utilities.OxygenMT)
	assert.Len(t, snap.Curves.GT, 2)
	assert.Len(t, snap.Curves.STG, 2)
	assert.Len(t, snap.Curves.HRSG["HRSG1"], 2)
	assert.Equal(t, "GT1", snap.HRSGs[0].LinkedUnitID)
}

func TestMonthOverrides(t *testing.T) {
	p, err := Load(filepath.Join("testdata", "plant.yaml"))
	require.NoError(t, err)
	ctx := context.Background()

	units, err := p.Units(ctx, may)
	require.NoError(t, err)
	hours := map[string]float64{}
	for _, u := range units {
		hours[u.ID] = u.OperationalHours
	}
	assert.Equal(t, map[string]float64{"GT1": 700, "GT2": 0, "STG": 700}, hours)

	imp, err := p.Import(ctx, may)
	require.NoError(t, err)
	assert.Zero(t, imp.CapacityMW)
	assert.Equal(t, 700.0, imp.Hours)
}

func TestMissingPeriod(t *testing.T) {
	p, err := Load(filepath.Join("testdata", "plant.yaml"))
	require.NoError(t, err)
	_, err = coreprovider.Snapshot(context.Background(), p, model.Period{Month: 6, Year: 2025})
	assert.True(t, errors.Is(err, model.ErrConfiguration))
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plant.json")
	data := `{"units":[{"id":"GT1","kind":"GT","priority":1,"min_mw":1,"max_mw":10}],
"curves":{"gt":[{"load_mw":1,"heat_rate":9000,"free_steam_factor":1}]},
"periods":[{"month":2,"year":2024,"demand":{"power_process_mwh":100}}]}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	p, err := Load(path)
	require.NoError(t, err)
	units, err := p.Units(context.Background(), model.Period{Month: 2, Year: 2024})
	require.NoError(t, err)
	// leap year February
	assert.Equal(t, 696.0, units[0].OperationalHours)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load("plant.toml")
	assert.Error(t, err)
	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = New(PlantFile{Months: []MonthData{{Month: 4, Year: 2025}, {Month: 4, Year: 2025}}})
	assert.True(t, errors.Is(err, model.ErrConfiguration))
	_, err = New(PlantFile{Months: []MonthData{{Month: 13, Year: 2025}}})
	assert.True(t, errors.Is(err, model.ErrConfiguration))
}
