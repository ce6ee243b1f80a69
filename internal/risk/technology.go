package risk

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"pathfinder/internal/forecast"
	"pathfinder/internal/metrics"
	"pathfinder/internal/timeseries"
)

const domainTechnology = "technology"

// TechnologyResult is the technology domain verdict
type TechnologyResult struct {
	Overall   Level              `json:"overall_risk"`
	Countries map[string]Outcome `json:"country_details,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// TechnologyEvaluator forecasts the low-carbon trade share of each country
type TechnologyEvaluator struct {
	store      timeseries.Store
	forecaster forecast.Forecaster
	targetYear int
	logger     *zap.Logger
}

// NewTechnologyEvaluator creates a technology evaluator
func NewTechnologyEvaluator(store timeseries.Store, f forecast.Forecaster, targetYear int, logger *zap.Logger) *TechnologyEvaluator {
	return &TechnologyEvaluator{
		store:      store,
		forecaster: orDefault(f),
		targetYear: targetYear,
		logger:     orNop(logger).With(zap.String("domain", domainTechnology)),
	}
}

// Evaluate never fails: loader errors and panics become an Unknown result
func (e *TechnologyEvaluator) Evaluate(ctx context.Context, countries []string) (res TechnologyResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("technology evaluation panicked", zap.Any("panic", r))
			res = TechnologyResult{Overall: Unknown, Error: fmt.Sprint(r)}
		}
		metrics.RecordEvaluation(domainTechnology, string(res.Overall))
	}()

	ds, err := e.store.Technology(ctx, countries)
	if err != nil {
		e.logger.Error("failed to load technology data", zap.Error(err))
		return TechnologyResult{Overall: Unknown, Error: err.Error()}
	}

	horizon := forecast.Horizon(e.targetYear, ds.LastYear)
	res = TechnologyResult{Countries: make(map[string]Outcome, len(countries))}
	highCount := 0

	for _, country := range countries {
		outcome := e.evaluateCountry(ds, country, horizon)
		res.Countries[country] = outcome
		if outcome.Level() == High {
			highCount++
		}
		metrics.RecordOutcome(domainTechnology, outcomeLabel(outcome))
	}

	res.Overall = MajorityOverall(highCount, len(countries))
	e.logger.Debug("technology evaluation finished",
		zap.Int("countries", len(countries)),
		zap.Int("horizon", horizon),
		zap.String("overall", string(res.Overall)))
	return res
}

func (e *TechnologyEvaluator) evaluateCountry(ds *timeseries.TechnologyDataset, country string, horizon int) Outcome {
	series, ok := ds.Series[country]
	if !ok {
		return NoData{}
	}
	history := forecast.Prepare(series)
	if history.Len() == 0 {
		return InsufficientData{}
	}

	fc, err := e.forecaster.Forecast(series, horizon)
	if err == nil && !finite(fc.Final()) {
		err = errNonFiniteForecast
	}
	if err != nil {
		e.logger.Warn("technology forecast failed", zap.String("country", country), zap.Error(err))
		return ForecastError{Err: err}
	}

	_, current := history.Last()
	level := ClassifyTechnology(current, fc.Values)
	return TechnologyForecast{
		RiskLevel:     level,
		Trend:         Trend(level),
		CurrentValue:  current,
		ForecastValue: fc.Final(),
	}
}
