// Package forecast projects yearly series forward with Holt's linear trend
// method.
package forecast

import (
	"errors"
	"fmt"
	"math"

	"pathfinder/internal/models"
)

var (
	// ErrInsufficientData is returned when fewer than two usable points remain
	ErrInsufficientData = errors.New("insufficient data")
	// ErrFitFailed is returned when the model parameters cannot be estimated
	ErrFitFailed = errors.New("model fit failed")
)

// Result is a point forecast for the years after the last observation
type Result struct {
	History models.Series `json:"-"`
	Horizon int           `json:"horizon"`
	Years   []int         `json:"years"`
	Values  []float64     `json:"values"`
}

// Final returns the value at the end of the horizon
func (r Result) Final() float64 {
	if len(r.Values) == 0 {
		return math.NaN()
	}
	return r.Values[len(r.Values)-1]
}

// Forecaster turns a historical series into a forecast of horizon periods
type Forecaster interface {
	Forecast(series models.Series, horizon int) (Result, error)
}

// HoltForecaster fits a fresh Holt model on every call
type HoltForecaster struct {
	fit func(y []float64) (*Holt, error)
}

// NewHoltForecaster creates the default forecaster
func NewHoltForecaster() *HoltForecaster {
	return &HoltForecaster{fit: FitHolt}
}

// Forecast prepares the series, fits Holt's method and projects horizon
// years past the last observed year. An all-NaN projection falls back to
// repeating the last observed value.
func (f *HoltForecaster) Forecast(series models.Series, horizon int) (Result, error) {
	if horizon < 1 {
		return Result{}, fmt.Errorf("forecast horizon must be positive, got %d", horizon)
	}

	history := Prepare(series)
	if history.Len() < 2 {
		return Result{}, fmt.Errorf("%w: need at least 2 observations, got %d", ErrInsufficientData, history.Len())
	}

	fit := f.fit
	if fit == nil {
		fit = FitHolt
	}
	model, err := fit(history.Values)
	if err != nil {
		return Result{}, err
	}

	lastYear, lastValue := history.Last()
	values := model.Forecast(horizon)
	if allNaN(values) {
		for i := range values {
			values[i] = lastValue
		}
	}

	years := make([]int, horizon)
	for i := range years {
		years[i] = lastYear + i + 1
	}

	return Result{
		History: history,
		Horizon: horizon,
		Years:   years,
		Values:  values,
	}, nil
}

// Prepare forward-fills missing values and clamps infinities to zero.
// Leading points with nothing to carry forward are dropped.
func Prepare(series models.Series) models.Series {
	out := models.Series{
		Years:  make([]int, 0, series.Len()),
		Values: make([]float64, 0, series.Len()),
	}

	last := math.NaN()
	for i, v := range series.Values {
		switch {
		case math.IsInf(v, 0):
			v = 0
		case math.IsNaN(v):
			v = last
		}
		if math.IsNaN(v) {
			continue
		}
		last = v
		out.Years = append(out.Years, series.Years[i])
		out.Values = append(out.Values, v)
	}
	return out
}

// Horizon is the number of periods from lastYear to targetYear, at least one
func Horizon(targetYear, lastYear int) int {
	if h := targetYear - lastYear; h > 0 {
		return h
	}
	return 1
}

func allNaN(values []float64) bool {
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			return false
		}
	}
	return len(values) > 0
}
