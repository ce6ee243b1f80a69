package risk

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"pathfinder/internal/forecast"
	"pathfinder/internal/metrics"
	"pathfinder/internal/models"
	"pathfinder/internal/timeseries"
)

const (
	domainCarbon = "carbon"

	noCarbonData = "No carbon pricing data available for specified countries"
)

// CarbonResult is the carbon pricing domain verdict
type CarbonResult struct {
	Overall   Level              `json:"overall_risk"`
	Countries map[string]Outcome `json:"country_details,omitempty"`
	Details   string             `json:"details,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// CarbonEvaluator forecasts every pricing measure of every (country, source)
// pair of a sector
type CarbonEvaluator struct {
	store      timeseries.Store
	forecaster forecast.Forecaster
	targetYear int
	logger     *zap.Logger
}

// NewCarbonEvaluator creates a carbon pricing evaluator
func NewCarbonEvaluator(store timeseries.Store, f forecast.Forecaster, targetYear int, logger *zap.Logger) *CarbonEvaluator {
	return &CarbonEvaluator{
		store:      store,
		forecaster: orDefault(f),
		targetYear: targetYear,
		logger:     orNop(logger).With(zap.String("domain", domainCarbon)),
	}
}

// Evaluate never fails: loader errors and panics become an Unknown result.
// Overall is High when the High (country, source) pairs outnumber half of
// the requested countries.
func (e *CarbonEvaluator) Evaluate(ctx context.Context, countries []string, sector string) (res CarbonResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("carbon evaluation panicked", zap.Any("panic", r))
			res = CarbonResult{Overall: Unknown, Error: fmt.Sprint(r)}
		}
		metrics.RecordEvaluation(domainCarbon, string(res.Overall))
	}()

	if sector == "" {
		sector = timeseries.DefaultSector
	}
	ds, err := e.store.Carbon(ctx, countries, sector)
	if err != nil {
		e.logger.Error("failed to load carbon pricing data", zap.Error(err))
		return CarbonResult{Overall: Unknown, Error: err.Error()}
	}
	if ds.Empty() {
		return CarbonResult{Overall: Unknown, Details: noCarbonData}
	}

	horizon := forecast.Horizon(e.targetYear, ds.LastYear)
	res = CarbonResult{Countries: make(map[string]Outcome, len(countries))}
	highCount := 0

	for _, country := range countries {
		sources := ds.Sources(country)
		if len(sources) == 0 {
			res.Countries[country] = NoData{}
			metrics.RecordOutcome(domainCarbon, outcomeLabel(NoData{}))
			continue
		}

		cf := CarbonForecast{
			RiskLevel:     Low,
			InstrumentMix: InstrumentMix(ds.Groups[country]),
			Sources:       make(map[string]SourceForecast, len(sources)),
		}
		for _, source := range sources {
			sf := e.forecastSource(ds.Groups[country][source], horizon)
			cf.Sources[source] = sf
			if sf.RiskLevel == High {
				highCount++
				cf.RiskLevel = High
			}
		}
		res.Countries[country] = cf
		metrics.RecordOutcome(domainCarbon, outcomeLabel(cf))
	}

	res.Overall = MajorityOverall(highCount, len(countries))
	e.logger.Debug("carbon evaluation finished",
		zap.String("sector", sector),
		zap.Int("countries", len(countries)),
		zap.Int("high_sources", highCount),
		zap.String("overall", string(res.Overall)))
	return res
}

func (e *CarbonEvaluator) forecastSource(g *timeseries.CarbonGroup, horizon int) SourceForecast {
	sf := SourceForecast{
		Source:   g.Source,
		Measures: make(map[models.Measure]MeasureOutcome, len(models.CarbonMeasures)),
	}

	for _, m := range models.CarbonMeasures {
		series := g.Series(m)
		fc, err := e.forecaster.Forecast(series, horizon)
		if err == nil && !finite(fc.Final()) {
			err = errNonFiniteForecast
		}
		if err != nil {
			e.logger.Warn("carbon measure forecast failed",
				zap.String("country", g.Country),
				zap.String("source", g.Source),
				zap.String("measure", string(m)),
				zap.Error(err))
			sf.Measures[m] = MeasureOutcome{Err: err}
			continue
		}

		_, initial := forecast.Prepare(series).Last()
		final := fc.Final()
		sf.Measures[m] = MeasureOutcome{Initial: initial, Forecast: final, Change: final - initial}
	}

	for _, m := range models.EffectiveRateMeasures {
		sf.ECRChange += sf.Measures[m].Change
	}
	sf.NetECRChange = sf.ECRChange + sf.Measures[models.Subsidy].Change
	sf.RiskLevel = ClassifyCarbon(sf.ECRChange)
	return sf
}
