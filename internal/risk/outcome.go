// Package risk forecasts the climate, carbon pricing and technology series
// of a set of countries and turns them into Low/Medium/High risk verdicts.
package risk

import (
	"encoding/json"
	"errors"

	"pathfinder/internal/models"
)

// Level is a risk label
type Level string

const (
	Low     Level = "Low"
	Medium  Level = "Medium"
	High    Level = "High"
	Unknown Level = "Unknown"
)

// Per-country statuses
const (
	StatusForecasted       = "Forecasted"
	StatusNoData           = "No data available"
	StatusInsufficientData = "Insufficient data"
	StatusForecastFailed   = "Forecast failed"
	forecastErrorPrefix    = "Error in forecasting: "
)

var errNonFiniteForecast = errors.New("forecast is not finite")

// Outcome is the result for one country within a domain. The concrete
// types are NoData, InsufficientData, ForecastError, ClimateForecast,
// CarbonForecast and TechnologyForecast.
type Outcome interface {
	Status() string
	Level() Level
	isOutcome()
}

type outcomeJSON struct {
	Status    string `json:"status"`
	RiskLevel Level  `json:"risk_level"`
}

func header(o Outcome) outcomeJSON {
	return outcomeJSON{Status: o.Status(), RiskLevel: o.Level()}
}

// NoData means the country is absent from the dataset
type NoData struct{}

func (NoData) Status() string { return StatusNoData }
func (NoData) Level() Level   { return Unknown }
func (NoData) isOutcome()     {}

func (o NoData) MarshalJSON() ([]byte, error) {
	return json.Marshal(header(o))
}

// InsufficientData means the country is present but has no usable values
type InsufficientData struct{}

func (InsufficientData) Status() string { return StatusInsufficientData }
func (InsufficientData) Level() Level   { return Unknown }
func (InsufficientData) isOutcome()     {}

func (o InsufficientData) MarshalJSON() ([]byte, error) {
	return json.Marshal(header(o))
}

// ForecastError records a failed model fit for the country
type ForecastError struct {
	Err error
}

func (o ForecastError) Status() string { return forecastErrorPrefix + o.Err.Error() }
func (ForecastError) Level() Level     { return Unknown }
func (ForecastError) isOutcome()       {}

func (o ForecastError) MarshalJSON() ([]byte, error) {
	return json.Marshal(header(o))
}

// ClimateForecast is the projected temperature change at the target year
type ClimateForecast struct {
	RiskLevel Level
	TempRise  float64 // rounded to 2 decimals
	Year      int
}

func (ClimateForecast) Status() string { return StatusForecasted }
func (o ClimateForecast) Level() Level { return o.RiskLevel }
func (ClimateForecast) isOutcome()     {}

func (o ClimateForecast) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		outcomeJSON
		TempRise float64 `json:"forecast_temp_rise"`
		Year     int     `json:"forecast_year"`
	}{header(o), o.TempRise, o.Year})
}

// CarbonForecast holds the per-source pricing forecasts of one country.
// The country is High when any of its sources is.
type CarbonForecast struct {
	RiskLevel     Level
	InstrumentMix string
	Sources       map[string]SourceForecast
}

func (CarbonForecast) Status() string { return StatusForecasted }
func (o CarbonForecast) Level() Level { return o.RiskLevel }
func (CarbonForecast) isOutcome()     {}

func (o CarbonForecast) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		outcomeJSON
		InstrumentMix string                    `json:"instrument_mix"`
		Sources       map[string]SourceForecast `json:"sources"`
	}{header(o), o.InstrumentMix, o.Sources})
}

// SourceForecast is the forecast of every pricing measure of one source
type SourceForecast struct {
	Source       string                            `json:"source"`
	Measures     map[models.Measure]MeasureOutcome `json:"measures"`
	ECRChange    float64                           `json:"ecr_change"`
	NetECRChange float64                           `json:"netecr_change"`
	RiskLevel    Level                             `json:"risk_level"`
}

// MeasureOutcome is the change of one measure from its last observed value
// to the end of the horizon. Err is set when the measure could not be forecast.
type MeasureOutcome struct {
	Initial  float64
	Forecast float64
	Change   float64
	Err      error
}

func (m MeasureOutcome) MarshalJSON() ([]byte, error) {
	if m.Err != nil {
		return json.Marshal(struct {
			Status string `json:"status"`
			Error  string `json:"error"`
		}{StatusForecastFailed, m.Err.Error()})
	}
	return json.Marshal(struct {
		Initial  float64 `json:"initial"`
		Forecast float64 `json:"forecast"`
		Change   float64 `json:"change"`
	}{m.Initial, m.Forecast, m.Change})
}

// TechnologyForecast compares the projected low-carbon trade share with the
// current one
type TechnologyForecast struct {
	RiskLevel     Level
	Trend         string
	CurrentValue  float64
	ForecastValue float64
}

func (TechnologyForecast) Status() string { return StatusForecasted }
func (o TechnologyForecast) Level() Level { return o.RiskLevel }
func (TechnologyForecast) isOutcome()     {}

func (o TechnologyForecast) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		outcomeJSON
		Trend         string  `json:"forecast_trend"`
		CurrentValue  float64 `json:"current_value"`
		ForecastValue float64 `json:"forecast_value"`
	}{header(o), o.Trend, o.CurrentValue, o.ForecastValue})
}

// outcomeLabel is the bounded metric label of an outcome
func outcomeLabel(o Outcome) string {
	switch o.(type) {
	case NoData:
		return "no_data"
	case InsufficientData:
		return "insufficient_data"
	case ForecastError:
		return "error"
	default:
		return "forecasted"
	}
}
