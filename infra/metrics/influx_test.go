package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/usdplan/core/metrics"
	"github.com/kilianp07/usdplan/core/model"
)

func captureServer(t *testing.T) (*httptest.Server, func() []string) {
	t.Helper()
	var mu sync.Mutex
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, strings.TrimSpace(string(data)))
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), bodies...)
	}
}

func TestInfluxSink_RecordRun(t *testing.T) {
	srv, bodies := captureServer(t)
	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer sink.Close()

	now := time.Now()
	ev := coremetrics.RunEvent{
		RunID:         "r1",
		Period:        model.Period{Month: 5, Year: 2025},
		Converged:     false,
		ErrorType:     model.ErrorSHPImpossible,
		Iterations:    2,
		DemandMWh:     25000.12345,
		GrossMWh:      24000,
		SHPDemandMT:   245840,
		SHPCapacityMT: 195840,
		Duration:      1500 * time.Millisecond,
		Time:          now,
	}
	if err := sink.RecordRun(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("plan_run").
		AddTag("period", "2025-05").
		AddTag("converged", "false").
		AddTag("error_type", "SHP_IMPOSSIBLE").
		AddField("run_id", "r1").
		AddField("iterations", 2).
		AddField("demand_mwh", 25000.123).
		AddField("gross_mwh", 24000.0).
		AddField("import_mwh", 0.0).
		AddField("utility_aux_mwh", 0.0).
		AddField("stg_reduction_mwh", 0.0).
		AddField("export_mwh", 0.0).
		AddField("shp_demand_mt", 245840.0).
		AddField("shp_capacity_mt", 195840.0).
		AddField("hrsg_firing_mt", 0.0).
		AddField("hrsg_fuel_mmbtu", 0.0).
		AddField("duration_ms", 1500.0).
		SetTime(now)
	expected := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	got := bodies()
	if len(got) != 1 || got[0] != expected {
		t.Errorf("unexpected bodies: %#v", got)
	}
}

func TestInfluxSink_RecordIteration(t *testing.T) {
	srv, bodies := captureServer(t)
	sink := NewInfluxSink(srv.URL+"/api/v2/write", "token", "org", "bucket")
	defer sink.Close()

	now := time.Now()
	ev := coremetrics.IterationEvent{
		RunID:        "r1",
		Period:       model.Period{Month: 1, Year: 2026},
		Iteration:    3,
		AuxErrorMWh:  0.25,
		SHPDeficitMT: 12,
		Time:         now,
	}
	if err := sink.RecordIteration(ev); err != nil {
		t.Fatalf("record: %v", err)
	}
	p := write.NewPointWithMeasurement("plan_iteration").
		AddTag("period", "2026-01").
		AddTag("run_id", "r1").
		AddField("iteration", 3).
		AddField("aux_error_mwh", 0.25).
		AddField("shp_deficit_mt", 12.0).
		AddField("stg_reduction_mwh", 0.0).
		SetTime(now)
	exp := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	got := bodies()
	if len(got) != 1 || got[0] != exp {
		t.Errorf("bodies: %#v", got)
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL+"/api/v2/write", "tok", "org", "bucket")
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}
