package risk

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"pathfinder/internal/forecast"
	"pathfinder/internal/metrics"
	"pathfinder/internal/timeseries"
)

const (
	timestampLayout = "2006-01-02"

	errNoCountries = "No countries specified for risk assessment"
)

// Bundle is the combined assessment of all three domains
type Bundle struct {
	Climate            ClimateResult    `json:"climate_risk"`
	Carbon             CarbonResult     `json:"carbon_price_risk"`
	Technology         TechnologyResult `json:"technology_risk"`
	Timestamp          string           `json:"timestamp,omitempty"`
	EvaluatedCountries []string         `json:"evaluated_countries,omitempty"`
	Error              string           `json:"error,omitempty"`
}

func degraded(msg string) Bundle {
	return Bundle{
		Climate:    ClimateResult{Overall: Unknown},
		Carbon:     CarbonResult{Overall: Unknown},
		Technology: TechnologyResult{Overall: Unknown},
		Error:      msg,
	}
}

// Options configures an Assessor
type Options struct {
	TargetYear int    // year the forecasts should reach
	Sector     string // carbon pricing sector, default Industry
}

// Assessor runs the three domain evaluators and persists the bundle
type Assessor struct {
	climate    *ClimateEvaluator
	carbon     *CarbonEvaluator
	technology *TechnologyEvaluator
	sector     string
	sinks      []Sink
	logger     *zap.Logger
	now        func() time.Time
}

// NewAssessor wires the evaluators over store. A nil forecaster uses Holt's method.
func NewAssessor(store timeseries.Store, f forecast.Forecaster, opts Options, logger *zap.Logger, sinks ...Sink) *Assessor {
	logger = orNop(logger)
	f = orDefault(f)
	if opts.Sector == "" {
		opts.Sector = timeseries.DefaultSector
	}

	return &Assessor{
		climate:    NewClimateEvaluator(store, f, opts.TargetYear, logger),
		carbon:     NewCarbonEvaluator(store, f, opts.TargetYear, logger),
		technology: NewTechnologyEvaluator(store, f, opts.TargetYear, logger),
		sector:     opts.Sector,
		sinks:      sinks,
		logger:     logger,
		now:        time.Now,
	}
}

// EvaluateClimate runs only the climate evaluator
func (a *Assessor) EvaluateClimate(ctx context.Context, countries []string) ClimateResult {
	return a.climate.Evaluate(ctx, countries)
}

// EvaluateCarbon runs only the carbon evaluator. An empty sector uses the
// configured one.
func (a *Assessor) EvaluateCarbon(ctx context.Context, countries []string, sector string) CarbonResult {
	if sector == "" {
		sector = a.sector
	}
	return a.carbon.Evaluate(ctx, countries, sector)
}

// EvaluateTechnology runs only the technology evaluator
func (a *Assessor) EvaluateTechnology(ctx context.Context, countries []string) TechnologyResult {
	return a.technology.Evaluate(ctx, countries)
}

// Run evaluates every domain for countries and persists the bundle to all
// sinks. It never fails; problems are reported inside the bundle. A panic in
// any evaluator goroutine or during persistence degrades the whole bundle.
func (a *Assessor) Run(ctx context.Context, countries []string) (bundle Bundle) {
	if len(countries) == 0 {
		return degraded(errNoCountries)
	}

	start := a.now()
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("risk assessment panicked", zap.Any("panic", r))
			bundle = degraded(fmt.Sprint(r))
		}
	}()

	var g panicGroup
	g.Go(func() { bundle.Climate = a.EvaluateClimate(ctx, countries) })
	g.Go(func() { bundle.Carbon = a.EvaluateCarbon(ctx, countries, a.sector) })
	g.Go(func() { bundle.Technology = a.EvaluateTechnology(ctx, countries) })
	if r := g.Wait(); r != nil {
		panic(r)
	}

	bundle.Timestamp = start.Format(timestampLayout)
	bundle.EvaluatedCountries = countries

	a.persist(ctx, bundle)

	elapsed := a.now().Sub(start)
	metrics.RecordAssessment(elapsed)
	a.logger.Info("risk assessment completed",
		zap.Strings("countries", countries),
		zap.String("climate", string(bundle.Climate.Overall)),
		zap.String("carbon", string(bundle.Carbon.Overall)),
		zap.String("technology", string(bundle.Technology.Overall)),
		zap.Duration("duration", elapsed))
	return bundle
}

// persist saves bundle to every sink. Failures are logged and do not affect
// the returned assessment.
func (a *Assessor) persist(ctx context.Context, bundle Bundle) {
	if len(a.sinks) == 0 {
		return
	}
	payload, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		a.logger.Error("failed to encode assessment", zap.Error(err))
		return
	}
	for _, sink := range a.sinks {
		if err := sink.Save(ctx, payload); err != nil {
			metrics.RecordSinkError(sink.Name())
			a.logger.Error("failed to persist assessment", zap.String("sink", sink.Name()), zap.Error(err))
		}
	}
}

// panicGroup runs functions concurrently and keeps the first panic so the
// caller can handle it on its own goroutine.
type panicGroup struct {
	wg    sync.WaitGroup
	once  sync.Once
	value any
}

func (g *panicGroup) Go(fn func()) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				g.once.Do(func() { g.value = r })
			}
		}()
		fn()
	}()
}

// Wait blocks until every function returned and reports the first panic
func (g *panicGroup) Wait() any {
	g.wg.Wait()
	return g.value
}
