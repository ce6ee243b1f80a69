package risk

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"pathfinder/internal/forecast"
	"pathfinder/internal/metrics"
	"pathfinder/internal/timeseries"
)

const domainClimate = "climate"

// ClimateResult is the climate domain verdict
type ClimateResult struct {
	Overall   Level              `json:"overall_risk"`
	Countries map[string]Outcome `json:"country_risks,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// ClimateEvaluator forecasts the temperature change of each country up to
// the target year
type ClimateEvaluator struct {
	store      timeseries.Store
	forecaster forecast.Forecaster
	targetYear int
	logger     *zap.Logger
}

// NewClimateEvaluator creates a climate evaluator
func NewClimateEvaluator(store timeseries.Store, f forecast.Forecaster, targetYear int, logger *zap.Logger) *ClimateEvaluator {
	return &ClimateEvaluator{
		store:      store,
		forecaster: orDefault(f),
		targetYear: targetYear,
		logger:     orNop(logger).With(zap.String("domain", domainClimate)),
	}
}

// Evaluate never fails: loader errors and panics become an Unknown result
func (e *ClimateEvaluator) Evaluate(ctx context.Context, countries []string) (res ClimateResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("climate evaluation panicked", zap.Any("panic", r))
			res = ClimateResult{Overall: Unknown, Error: fmt.Sprint(r)}
		}
		metrics.RecordEvaluation(domainClimate, string(res.Overall))
	}()

	ds, err := e.store.Climate(ctx, countries)
	if err != nil {
		e.logger.Error("failed to load climate data", zap.Error(err))
		return ClimateResult{Overall: Unknown, Error: err.Error()}
	}

	horizon := forecast.Horizon(e.targetYear, ds.LastYear)
	res = ClimateResult{Countries: make(map[string]Outcome, len(countries))}
	var levels []Level

	for _, country := range countries {
		outcome := e.evaluateCountry(ds, country, horizon)
		res.Countries[country] = outcome
		if _, ok := outcome.(ClimateForecast); ok {
			levels = append(levels, outcome.Level())
		}
		metrics.RecordOutcome(domainClimate, outcomeLabel(outcome))
	}

	res.Overall = ClimateOverall(levels)
	e.logger.Debug("climate evaluation finished",
		zap.Int("countries", len(countries)),
		zap.Int("horizon", horizon),
		zap.String("overall", string(res.Overall)))
	return res
}

func (e *ClimateEvaluator) evaluateCountry(ds *timeseries.ClimateDataset, country string, horizon int) Outcome {
	series, ok := ds.Series[country]
	if !ok {
		return NoData{}
	}
	if forecast.Prepare(series).Len() == 0 {
		return InsufficientData{}
	}

	fc, err := e.forecaster.Forecast(series, horizon)
	if err == nil && !finite(fc.Final()) {
		err = errNonFiniteForecast
	}
	if err != nil {
		e.logger.Warn("climate forecast failed", zap.String("country", country), zap.Error(err))
		return ForecastError{Err: err}
	}

	final := fc.Final()
	return ClimateForecast{
		RiskLevel: ClassifyClimate(final),
		TempRise:  round2(final),
		Year:      fc.Years[len(fc.Years)-1],
	}
}

func orNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func orDefault(f forecast.Forecaster) forecast.Forecaster {
	if f == nil {
		return forecast.NewHoltForecaster()
	}
	return f
}
