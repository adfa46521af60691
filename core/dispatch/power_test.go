package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/usdplan/core/lookup"
	"github.com/kilianp07/usdplan/core/model"
	"github.com/kilianp07/usdplan/core/norms"
)

func threeGTs() []model.GenerationUnit {
	var units []model.GenerationUnit
	for i, id := range []string{"GT1", "GT2", "GT3"} {
		units = append(units, model.GenerationUnit{
			ID: id, Kind: model.GasTurbine, Priority: i + 1,
			MinCapacityMW: 5, MaxCapacityMW: 22, OperationalHours: 720,
		})
	}
	return units
}

func gtCurve(t *testing.T) *lookup.GTCurve {
	t.Helper()
	c, err := lookup.NewGTCurve([]model.GTCurvePoint{
		{LoadMW: 5, HeatRate: 12000, FreeSteamFactor: 2.0},
		{LoadMW: 22, HeatRate: 10000, FreeSteamFactor: 1.8},
	})
	require.NoError(t, err)
	return c
}

func demand(powerMWh float64) model.DemandSet {
	return model.DemandSet{Period: model.Period{Month: 4, Year: 2025}, PowerProcessMWh: powerMWh}
}

func ptr(v float64) *float64 { return &v }

func TestPowerDispatchFillsHighestPriorityFirst(t *testing.T) {
	p := NewPowerDispatcher(norms.Default().Power)
	pb, err := p.Dispatch(threeGTs(), model.ImportSupply{}, gtCurve(t), PowerRequest{Demand: demand(20000)})
	require.NoError(t, err)

	require.Len(t, pb.Units, 3)
	assert.InDelta(t, 12800, pb.Units[0].GrossMWh, 1e-6)
	assert.InDelta(t, 3600, pb.Units[1].GrossMWh, 1e-6)
	assert.InDelta(t, 3600, pb.Units[2].GrossMWh, 1e-6)
	assert.NotEqual(t, pb.Units[0].GrossMWh, pb.Units[1].GrossMWh)

	u1 := pb.Units[0]
	assert.InDelta(t, 12800.0/720, u1.LoadMW, 1e-9)
	assert.InDelta(t, 12800*0.014, u1.AuxMWh, 1e-6)
	assert.InDelta(t, u1.GrossMWh-u1.AuxMWh, u1.NetMWh, 1e-9)
	assert.Greater(t, u1.FreeSteamFactor, 1.8)
	assert.Less(t, u1.FreeSteamFactor, 2.0)
	assert.InDelta(t, 2.0, pb.Units[1].FreeSteamFactor, 1e-9)
	assert.Zero(t, pb.ImportUsedMWh)
}

func TestPowerDispatchImportFirstTranche(t *testing.T) {
	p := NewPowerDispatcher(norms.Default().Power)
	pb, err := p.Dispatch(threeGTs(), model.ImportSupply{CapacityMW: 5, Hours: 720}, gtCurve(t), PowerRequest{
		Demand:        demand(18000),
		UtilityAuxMWh: 2000,
	})
	require.NoError(t, err)
	assert.InDelta(t, 20000, pb.TotalDemandMWh, 1e-9)
	assert.InDelta(t, 3600, pb.ImportUsedMWh, 1e-9)
	assert.InDelta(t, 16400, pb.GenerationTarget, 1e-9)
	assert.InDelta(t, 16400, pb.GrossMWh, 1e-6)
}

func TestPowerDispatchImportLimitedByMinimum(t *testing.T) {
	p := NewPowerDispatcher(norms.Default().Power)
	pb, err := p.Dispatch(threeGTs(), model.ImportSupply{CapacityMW: 50, Hours: 720}, gtCurve(t), PowerRequest{
		Demand: demand(12000),
	})
	require.NoError(t, err)
	assert.InDelta(t, 1200, pb.ImportUsedMWh, 1e-9)
	assert.InDelta(t, 10800, pb.GrossMWh, 1e-6)
}

func TestPowerDispatchSTGConstraints(t *testing.T) {
	units := append(threeGTs(), model.GenerationUnit{
		ID: "STG", Kind: model.SteamTurbineGenerator, Priority: 0,
		MinCapacityMW: 5, MaxCapacityMW: 25, OperationalHours: 720,
	})
	p := NewPowerDispatcher(norms.Default().Power)

	pb, err := p.Dispatch(units, model.ImportSupply{}, gtCurve(t), PowerRequest{Demand: demand(30000), STGMaxMWh: ptr(0)})
	require.NoError(t, err)
	stg, ok := pb.Unit("STG")
	require.True(t, ok)
	assert.Zero(t, stg.GrossMWh)
	assert.InDelta(t, 30000, pb.GrossMWh, 1e-6)

	pb, err = p.Dispatch(units, model.ImportSupply{}, gtCurve(t), PowerRequest{Demand: demand(30000), STGMaxMWh: ptr(10000)})
	require.NoError(t, err)
	stg, _ = pb.Unit("STG")
	assert.InDelta(t, 10000, stg.GrossMWh, 1e-6)
	assert.InDelta(t, 10000*0.002, stg.AuxMWh, 1e-9)
	assert.Zero(t, stg.HeatRate)
}

func TestPowerDispatchGTReductionAndMinOverride(t *testing.T) {
	units := append(threeGTs(), model.GenerationUnit{
		ID: "STG", Kind: model.SteamTurbineGenerator, Priority: 4,
		MinCapacityMW: 5, MaxCapacityMW: 25, OperationalHours: 720,
	})
	p := NewPowerDispatcher(norms.Default().Power)

	before, err := p.Dispatch(units, model.ImportSupply{}, gtCurve(t), PowerRequest{Demand: demand(30000)})
	require.NoError(t, err)
	after, err := p.Dispatch(units, model.ImportSupply{}, gtCurve(t), PowerRequest{
		Demand:         demand(30000),
		STGMinMWh:      ptr(3600 + 5000),
		GTReductionMWh: 5000,
	})
	require.NoError(t, err)

	assert.InDelta(t, before.GrossMWh, after.GrossMWh, 1e-6)
	assert.InDelta(t, before.GrossByKind(model.SteamTurbineGenerator)+5000, after.GrossByKind(model.SteamTurbineGenerator), 1e-6)
	assert.InDelta(t, before.GrossByKind(model.GasTurbine)-5000, after.GrossByKind(model.GasTurbine), 1e-6)
	gt3, _ := after.Unit("GT3")
	assert.InDelta(t, 15840-5000, gt3.MaxMWh, 1e-6)
}

func TestPowerDispatchCapacityInfeasible(t *testing.T) {
	p := NewPowerDispatcher(norms.Default().Power)
	_, err := p.Dispatch(threeGTs(), model.ImportSupply{CapacityMW: 1, Hours: 720}, gtCurve(t), PowerRequest{Demand: demand(60000)})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCapacityInfeasible)
	var ce *CapacityError
	require.ErrorAs(t, err, &ce)
	assert.InDelta(t, 60000-47520-720, ce.ShortfallMWh, 1e-6)
}

func TestPowerDispatchNoUnits(t *testing.T) {
	p := NewPowerDispatcher(norms.Default().Power)
	units := threeGTs()
	for i := range units {
		units[i].OperationalHours = 0
	}
	_, err := p.Dispatch(units, model.ImportSupply{}, nil, PowerRequest{Demand: demand(100)})
	assert.ErrorIs(t, err, ErrNoAvailableUnits)
}

func TestPowerDispatchWithoutCurve(t *testing.T) {
	p := NewPowerDispatcher(norms.Default().Power)
	pb, err := p.Dispatch(threeGTs(), model.ImportSupply{}, nil, PowerRequest{Demand: demand(20000)})
	require.NoError(t, err)
	assert.Zero(t, pb.Units[0].HeatRate)
	assert.Zero(t, pb.Units[0].FreeSteamFactor)
}

func TestShiftKeepsTotalGeneration(t *testing.T) {
	units := append(threeGTs(), model.GenerationUnit{
		ID: "STG", Kind: model.SteamTurbineGenerator, Priority: 4,
		MinCapacityMW: 5, MaxCapacityMW: 25, OperationalHours: 720,
	})
	p := NewPowerDispatcher(norms.Default().Power)
	curve := gtCurve(t)
	pb, err := p.Dispatch(units, model.ImportSupply{}, curve, PowerRequest{Demand: demand(30000)})
	require.NoError(t, err)

	shifted, moved, err := p.Shift(pb, curve, 5000)
	require.NoError(t, err)
	assert.InDelta(t, 5000, moved, 1e-6)
	assert.InDelta(t, pb.GrossMWh, shifted.GrossMWh, 1e-6)
	assert.InDelta(t, 8600, shifted.GrossByKind(model.SteamTurbineGenerator), 1e-6)

	// GT2 is the lowest priority GT above minimum and gives up load first
	gt2, _ := shifted.Unit("GT2")
	assert.InDelta(t, 3600, gt2.GrossMWh, 1e-6)
	gt1, _ := shifted.Unit("GT1")
	assert.InDelta(t, 15840-(5000-3360), gt1.GrossMWh, 1e-6)
	assert.InDelta(t, gt1.GrossMWh*0.014, gt1.AuxMWh, 1e-9)

	// original balance is untouched
	orig, _ := pb.Unit("GT2")
	assert.InDelta(t, 6960, orig.GrossMWh, 1e-6)
}
