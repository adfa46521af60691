package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/usdplan/core/metrics"
	"github.com/kilianp07/usdplan/infra/logger"
)

// InfluxSink writes planning runs to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a NopSink
// if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.RunRecorder {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordRun writes one plan_run point.
func (s *InfluxSink) RecordRun(ev coremetrics.RunEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("plan_run").
		AddTag("period", ev.Period.String()).
		AddTag("converged", strconv.FormatBool(ev.Converged))
	if ev.ErrorType != "" {
		p = p.AddTag("error_type", string(ev.ErrorType))
	}
	p = p.AddField("run_id", ev.RunID).
		AddField("iterations", ev.Iterations).
		AddField("demand_mwh", round3(ev.DemandMWh)).
		AddField("gross_mwh", round3(ev.GrossMWh)).
		AddField("import_mwh", round3(ev.ImportMWh)).
		AddField("utility_aux_mwh", round3(ev.UtilityAuxMWh)).
		AddField("stg_reduction_mwh", round3(ev.STGReductionMWh)).
		AddField("export_mwh", round3(ev.ExportMWh)).
		AddField("shp_demand_mt", round3(ev.SHPDemandMT)).
		AddField("shp_capacity_mt", round3(ev.SHPCapacityMT)).
		AddField("hrsg_firing_mt", round3(ev.HRSGFiringMT)).
		AddField("hrsg_fuel_mmbtu", round3(ev.HRSGFuelMMBTU)).
		AddField("duration_ms", float64(ev.Duration.Milliseconds())).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordIteration writes one plan_iteration point.
func (s *InfluxSink) RecordIteration(ev coremetrics.IterationEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("plan_iteration").
		AddTag("period", ev.Period.String()).
		AddTag("run_id", ev.RunID).
		AddField("iteration", ev.Iteration).
		AddField("aux_error_mwh", round3(ev.AuxErrorMWh)).
		AddField("shp_deficit_mt", round3(ev.SHPDeficitMT)).
		AddField("stg_reduction_mwh", round3(ev.STGReductionMWh)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
