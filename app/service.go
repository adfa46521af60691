// Package app wires providers, the solver and the result sinks into the
// planning service used by the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/kilianp07/usdplan/config"
	"github.com/kilianp07/usdplan/core/dispatch"
	coremetrics "github.com/kilianp07/usdplan/core/metrics"
	"github.com/kilianp07/usdplan/core/model"
	coremqtt "github.com/kilianp07/usdplan/core/mqtt"
	"github.com/kilianp07/usdplan/core/provider"
	"github.com/kilianp07/usdplan/core/solver"
	corestore "github.com/kilianp07/usdplan/core/store"
	"github.com/kilianp07/usdplan/core/trace"
	"github.com/kilianp07/usdplan/infra/logger"
	"github.com/kilianp07/usdplan/infra/metrics"
	"github.com/kilianp07/usdplan/infra/mqtt"
	fileprovider "github.com/kilianp07/usdplan/infra/provider"
	"github.com/kilianp07/usdplan/infra/store"
)

// Service plans periods and hands results to the store, the broker and the
// metrics sinks.
type Service struct {
	cfg       *config.Config
	source    provider.Source
	solver    *solver.Controller
	bus       *trace.Bus
	store     corestore.ResultStore
	sink      coremetrics.RunRecorder
	publisher coremqtt.Publisher
	requests  coremqtt.RequestSource
	log       logger.Logger
	newID     func() string
	now       func() time.Time
	closers   []func() error
	done      chan struct{}
}

// Option overrides a collaborator built from the configuration.
type Option func(*Service)

// WithSource replaces the plant file provider.
func WithSource(src provider.Source) Option { return func(s *Service) { s.source = src } }

// WithStore replaces the configured result store.
func WithStore(st corestore.ResultStore) Option { return func(s *Service) { s.store = st } }

// WithSink replaces the configured metrics sinks.
func WithSink(sink coremetrics.RunRecorder) Option { return func(s *Service) { s.sink = sink } }

// WithPublisher replaces the MQTT publisher.
func WithPublisher(p coremqtt.Publisher) Option { return func(s *Service) { s.publisher = p } }

// WithRequests replaces the MQTT request source.
func WithRequests(r coremqtt.RequestSource) Option { return func(s *Service) { s.requests = r } }

// WithLogger replaces the service logger.
func WithLogger(l logger.Logger) Option { return func(s *Service) { s.log = l } }

// New creates a Service from the configuration.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	svc := &Service{
		cfg:   cfg,
		bus:   trace.NewBus(256),
		newID: uuid.NewString,
		now:   time.Now,
		done:  make(chan struct{}),
	}
	for _, o := range opts {
		o(svc)
	}
	// solver steps log through the injected logger when one is given
	traceLog := svc.log
	if svc.log == nil {
		svc.log = logger.New("service")
		traceLog = logger.New("solver")
	}
	if err := svc.build(); err != nil {
		_ = svc.Close()
		return nil, err
	}
	ctrl, err := solver.New(cfg.Norms, trace.Multi{logger.TraceObserver(traceLog), svc.bus})
	if err != nil {
		_ = svc.Close()
		return nil, err
	}
	svc.solver = ctrl
	go svc.forwardEvents(svc.bus.Subscribe())
	return svc, nil
}

func (s *Service) build() error {
	if s.source == nil {
		src, err := fileprovider.Load(s.cfg.Snapshot.Path)
		if err != nil {
			return fmt.Errorf("plant snapshot: %w", err)
		}
		s.source = src
	}
	if s.store == nil {
		st, err := store.New(s.cfg.Store)
		if err != nil {
			return fmt.Errorf("result store: %w", err)
		}
		s.store = st
		s.closers = append(s.closers, st.Close)
	}
	if s.sink == nil {
		sink, err := coremetrics.NewSink(s.cfg.Metrics.Sinks)
		if err != nil {
			return fmt.Errorf("metrics sink: %w", err)
		}
		s.sink = sink
	}
	if s.publisher == nil && s.cfg.MQTT.Enabled {
		cli, err := mqtt.NewPahoClient(s.cfg.MQTT)
		if err != nil {
			return fmt.Errorf("mqtt client: %w", err)
		}
		s.publisher = cli
		if s.requests == nil {
			s.requests = cli
		}
		s.closers = append(s.closers, func() error { cli.Disconnect(); return nil })
	}
	return nil
}

// forwardEvents streams solver events to the broker until the bus closes.
func (s *Service) forwardEvents(events <-chan trace.Event) {
	defer close(s.done)
	for ev := range events {
		if s.publisher == nil {
			continue
		}
		if err := s.publisher.PublishEvent(ev); err != nil {
			s.log.Debugf("event publish: %v", err)
		}
	}
}

// IsPlanningError reports whether err describes an infeasible or invalid
// plan rather than an infrastructure failure.
func IsPlanningError(err error) bool {
	return errors.Is(err, model.ErrConfiguration) ||
		errors.Is(err, dispatch.ErrCapacityInfeasible) ||
		errors.Is(err, dispatch.ErrNoAvailableUnits) ||
		errors.Is(err, solver.ErrSteamInfeasible)
}

// Solve plans one period. Planning failures return the diagnostic result
// together with the error; the result is still stored and published.
func (s *Service) Solve(ctx context.Context, p model.Period) (model.Result, error) {
	if err := ctx.Err(); err != nil {
		return model.Result{Period: p}, err
	}
	snap, err := provider.Snapshot(ctx, s.source, p)
	if err != nil {
		return model.Result{Period: p, ErrorType: solver.Classify(err), Message: err.Error()}, err
	}
	runID := s.newID()
	start := s.now()
	res, runErr := s.solver.Run(runID, snap)
	took := s.now().Sub(start)

	if err := s.record(ctx, res, took); err != nil {
		return res, err
	}
	fields := map[string]any{
		"run_id":     res.RunID,
		"period":     p.String(),
		"converged":  res.Converged,
		"iterations": res.IterationsUsed,
		"gross_mwh":  res.Power.GrossMWh,
		"aux_mwh":    res.UtilityAuxPowerMWh,
		"took_ms":    took.Milliseconds(),
	}
	if res.ErrorType != model.ErrorNone {
		fields["error_type"] = string(res.ErrorType)
	}
	s.log.Infow("period planned", fields)
	return res, runErr
}

func (s *Service) record(ctx context.Context, res model.Result, took time.Duration) error {
	if err := s.store.Save(ctx, res); err != nil {
		return fmt.Errorf("store result: %w", err)
	}
	if s.publisher != nil {
		if _, err := s.publisher.PublishResult(ctx, res); err != nil {
			s.log.Warnf("publish %s: %v", res.Period, err)
		}
	}
	at := s.now()
	if err := s.sink.RecordRun(coremetrics.NewRunEvent(res, took, at)); err != nil {
		s.log.Warnf("record run %s: %v", res.RunID, err)
	}
	if rec, ok := s.sink.(coremetrics.IterationRecorder); ok {
		for _, ev := range coremetrics.IterationEvents(res, at) {
			if err := rec.RecordIteration(ev); err != nil {
				s.log.Warnf("record iteration %d of %s: %v", ev.Iteration, res.RunID, err)
				break
			}
		}
	}
	return nil
}

// YearReport collects the months of one financial year.
type YearReport struct {
	FinancialYear int
	// Results are ordered April to March.
	Results []model.Result
	// Failures maps a period to its planning error.
	Failures map[model.Period]error
}

// Converged counts the months that reached a fixed point.
func (r YearReport) Converged() int {
	n := 0
	for _, res := range r.Results {
		if res.Converged {
			n++
		}
	}
	return n
}

// SolveYear plans April fy to March fy+1 with bounded parallelism. Planning
// failures of single months are reported in the YearReport; infrastructure
// errors abort the year.
func (s *Service) SolveYear(ctx context.Context, fy int) (YearReport, error) {
	periods := model.FinancialYear(fy)
	results := make([]model.Result, len(periods))
	failures := make([]error, len(periods))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Year.Concurrency)
	for i, p := range periods {
		i, p := i, p
		g.Go(func() error {
			res, err := s.Solve(gctx, p)
			results[i] = res
			if err != nil && IsPlanningError(err) {
				failures[i] = err
				return nil
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return YearReport{}, fmt.Errorf("financial year %d: %w", fy, err)
	}
	rep := YearReport{FinancialYear: fy, Results: results, Failures: map[model.Period]error{}}
	for i, err := range failures {
		if err != nil {
			rep.Failures[periods[i]] = err
		}
	}
	s.log.Infof("financial year %d planned: %d/%d converged, %d failed", fy, rep.Converged(), len(results), len(rep.Failures))
	return rep, nil
}

// Serve answers planning requests from the broker and exposes metrics until
// ctx is canceled. It returns once every accepted request has been planned
// and recorded; requests still waiting for a slot are dropped.
func (s *Service) Serve(ctx context.Context) error {
	if s.requests == nil {
		return errors.New("serve requires mqtt.enabled")
	}
	if s.cfg.Metrics.HasSink("prometheus") {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusAddr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	sem := semaphore.NewWeighted(int64(s.cfg.Year.Concurrency))
	var (
		mu      sync.Mutex
		stopped bool
		wg      sync.WaitGroup
	)
	s.log.Infof("waiting for planning requests")
	err := s.requests.HandleRequests(ctx, func(ctx context.Context, req coremqtt.Request) {
		mu.Lock()
		defer mu.Unlock()
		if stopped {
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				s.log.Warnf("request %s for %s dropped: %v", req.RequestID, req.Period, err)
				return
			}
			defer sem.Release(1)
			// a started run is finished and stored even when serving stops
			if _, err := s.Solve(context.WithoutCancel(ctx), req.Period); err != nil {
				s.log.Errorf("request %s for %s: %v", req.RequestID, req.Period, err)
			}
		}()
	})
	mu.Lock()
	stopped = true
	mu.Unlock()
	wg.Wait()
	return err
}

// Results lists stored summaries.
func (s *Service) Results(ctx context.Context, q corestore.Query) ([]corestore.Summary, error) {
	return s.store.List(ctx, q)
}

// Result returns the stored result of a period.
func (s *Service) Result(ctx context.Context, p model.Period) (model.Result, error) {
	return s.store.Get(ctx, p)
}

// Periods lists the periods the plant source describes.
func (s *Service) Periods(ctx context.Context) ([]model.Period, error) {
	return s.source.Periods(ctx)
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	if s.solver != nil {
		<-s.done
	}
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
