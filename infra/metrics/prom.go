package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/usdplan/core/metrics"
)

// PromSink records planning runs in Prometheus metrics.
type PromSink struct {
	runs       *prometheus.CounterVec
	iterations prometheus.Histogram
	duration   prometheus.Histogram
	auxError   prometheus.Histogram
	gross      *prometheus.GaugeVec
	utilityAux *prometheus.GaugeVec
	imported   *prometheus.GaugeVec
	reduction  *prometheus.GaugeVec
	shpDemand  *prometheus.GaugeVec
	shpCap     *prometheus.GaugeVec
}

// NewPromSink registers planning metrics on the default Prometheus registerer.
// The HTTP endpoint is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.runs, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "usdplan_runs_total",
		Help: "Total number of planning runs",
	}, []string{"converged", "error_type"})); err != nil {
		return nil, err
	}
	if s.iterations, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "usdplan_run_iterations",
		Help:    "Solver iterations used per run",
		Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 34, 50},
	})); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "usdplan_run_duration_seconds",
		Help:    "Wall time of a planning run",
		Buckets: prometheus.DefBuckets,
	})); err != nil {
		return nil, err
	}
	if s.auxError, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "usdplan_iteration_aux_error_mwh",
		Help:    "Absolute change of the utility aux estimate per iteration",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 12),
	})); err != nil {
		return nil, err
	}
	gauges := []struct {
		dst  **prometheus.GaugeVec
		name string
		help string
	}{
		{&s.gross, "usdplan_gross_generation_mwh", "Gross generation of the last run per period"},
		{&s.utilityAux, "usdplan_utility_aux_mwh", "Converged utility auxiliary power per period"},
		{&s.imported, "usdplan_import_mwh", "Imported energy per period"},
		{&s.reduction, "usdplan_stg_reduction_mwh", "STG reduction forced by SHP shortage per period"},
		{&s.shpDemand, "usdplan_shp_demand_mt", "SHP demand per period"},
		{&s.shpCap, "usdplan_shp_capacity_mt", "SHP supply capacity per period"},
	}
	for _, g := range gauges {
		vec, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: g.name,
			Help: g.help,
		}, []string{"period"}))
		if err != nil {
			return nil, err
		}
		*g.dst = vec
	}
	return s, nil
}

// register returns the already registered collector when one with the same
// descriptor exists.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordRun updates counters, histograms and per-period gauges.
func (s *PromSink) RecordRun(ev coremetrics.RunEvent) error {
	s.runs.WithLabelValues(strconv.FormatBool(ev.Converged), string(ev.ErrorType)).Inc()
	s.iterations.Observe(float64(ev.Iterations))
	s.duration.Observe(ev.Duration.Seconds())
	p := ev.Period.String()
	s.gross.WithLabelValues(p).Set(ev.GrossMWh)
	s.utilityAux.WithLabelValues(p).Set(ev.UtilityAuxMWh)
	s.imported.WithLabelValues(p).Set(ev.ImportMWh)
	s.reduction.WithLabelValues(p).Set(ev.STGReductionMWh)
	s.shpDemand.WithLabelValues(p).Set(ev.SHPDemandMT)
	s.shpCap.WithLabelValues(p).Set(ev.SHPCapacityMT)
	return nil
}

// RecordIteration observes the aux error of one step.
func (s *PromSink) RecordIteration(ev coremetrics.IterationEvent) error {
	s.auxError.Observe(ev.AuxErrorMWh)
	return nil
}
