package stream

import (
	"context"

	"pathfinder/internal/timeseries"
)

// emptyStore has no rows for any country
type emptyStore struct{}

func (emptyStore) Climate(_ context.Context, countries []string) (*timeseries.ClimateDataset, error) {
	return timeseries.BuildClimate(nil, countries), nil
}

func (emptyStore) Carbon(_ context.Context, countries []string, sector string) (*timeseries.CarbonDataset, error) {
	return timeseries.BuildCarbon(nil, countries, sector), nil
}

func (emptyStore) Technology(_ context.Context, countries []string) (*timeseries.TechnologyDataset, error) {
	return timeseries.BuildTechnology(nil, countries), nil
}
