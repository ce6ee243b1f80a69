package risk

import (
	"context"
	"sync/atomic"

	"pathfinder/internal/forecast"
	"pathfinder/internal/models"
	"pathfinder/internal/timeseries"
)

// memStore serves fixed observations through the timeseries builders
type memStore struct {
	climate    []models.ClimateObservation
	carbon     []models.CarbonObservation
	technology []models.TechnologyObservation
	err        error
}

func (s *memStore) Climate(_ context.Context, countries []string) (*timeseries.ClimateDataset, error) {
	if s.err != nil {
		return nil, s.err
	}
	return timeseries.BuildClimate(s.climate, countries), nil
}

func (s *memStore) Carbon(_ context.Context, countries []string, sector string) (*timeseries.CarbonDataset, error) {
	if s.err != nil {
		return nil, s.err
	}
	return timeseries.BuildCarbon(s.carbon, countries, sector), nil
}

func (s *memStore) Technology(_ context.Context, countries []string) (*timeseries.TechnologyDataset, error) {
	if s.err != nil {
		return nil, s.err
	}
	return timeseries.BuildTechnology(s.technology, countries), nil
}

// stepForecaster extends the last observed step linearly
type stepForecaster struct {
	calls atomic.Int64
}

func (f *stepForecaster) Forecast(series models.Series, horizon int) (forecast.Result, error) {
	f.calls.Add(1)
	history := forecast.Prepare(series)
	n := history.Len()
	if n < 2 {
		return forecast.Result{}, forecast.ErrInsufficientData
	}

	lastYear, last := history.Last()
	step := last - history.Values[n-2]
	res := forecast.Result{History: history, Horizon: horizon}
	for i := 1; i <= horizon; i++ {
		res.Years = append(res.Years, lastYear+i)
		res.Values = append(res.Values, last+float64(i)*step)
	}
	return res, nil
}

// panicStore fails every load with a panic
type panicStore struct{}

func (panicStore) Climate(context.Context, []string) (*timeseries.ClimateDataset, error) {
	panic("climate table corrupted")
}

func (panicStore) Carbon(context.Context, []string, string) (*timeseries.CarbonDataset, error) {
	panic("carbon table corrupted")
}

func (panicStore) Technology(context.Context, []string) (*timeseries.TechnologyDataset, error) {
	panic("technology table corrupted")
}

func climateRows(country string, start int, values ...float64) []models.ClimateObservation {
	rows := make([]models.ClimateObservation, len(values))
	for i, v := range values {
		rows[i] = models.ClimateObservation{Country: country, Year: start + i, Value: v}
	}
	return rows
}

func technologyRows(country string, start int, values ...float64) []models.TechnologyObservation {
	rows := make([]models.TechnologyObservation, len(values))
	for i, v := range values {
		rows[i] = models.TechnologyObservation{Country: country, Year: start + i, Value: v}
	}
	return rows
}
