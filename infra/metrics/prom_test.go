package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	coremetrics "github.com/kilianp07/usdplan/core/metrics"
	"github.com/kilianp07/usdplan/core/model"
)

func TestPromSink_RecordRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	ev := coremetrics.RunEvent{
		RunID:         "r1",
		Period:        model.Period{Month: 4, Year: 2025},
		Converged:     true,
		Iterations:    4,
		GrossMWh:      25120,
		UtilityAuxMWh: 120,
		SHPDemandMT:   90000,
		SHPCapacityMT: 195840,
		Duration:      3 * time.Millisecond,
	}
	if err := sink.RecordRun(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}
	if err := sink.RecordIteration(coremetrics.IterationEvent{AuxErrorMWh: 0.5}); err != nil {
		t.Fatalf("iteration error: %v", err)
	}

	expected := `
# HELP usdplan_runs_total Total number of planning runs
# TYPE usdplan_runs_total counter
usdplan_runs_total{converged="true",error_type=""} 1
`
	if err := testutil.CollectAndCompare(sink.runs, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
	if got := testutil.ToFloat64(sink.gross.WithLabelValues("2025-04")); got != 25120 {
		t.Errorf("gross gauge = %v", got)
	}
	if got := testutil.ToFloat64(sink.shpCap.WithLabelValues("2025-04")); got != 195840 {
		t.Errorf("shp capacity gauge = %v", got)
	}
	if c := testutil.CollectAndCount(sink.auxError); c == 0 {
		t.Errorf("aux error not recorded")
	}
}

func TestPromSink_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("first sink: %v", err)
	}
	second, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("second sink: %v", err)
	}
	if err := second.RecordRun(coremetrics.RunEvent{ErrorType: model.ErrorNotConverged}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if got := testutil.ToFloat64(first.runs.WithLabelValues("false", "NOT_CONVERGED")); got != 1 {
		t.Fatalf("expected shared counter, got %v", got)
	}
}
