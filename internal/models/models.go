package models

import (
	"math"
	"sort"
)

// Measure names a carbon pricing instrument column
type Measure string

const (
	FuelTax     Measure = "FUETAX"
	CarbonTax   Measure = "CARBTAX"
	PermitPrice Measure = "MPERPRI" // market-based permit / credit price
	Subsidy     Measure = "SUBSID"
)

// CarbonMeasures lists every measure that gets forecast, in evaluation order.
var CarbonMeasures = []Measure{FuelTax, CarbonTax, PermitPrice, Subsidy}

// EffectiveRateMeasures are the measures summed into the effective carbon rate.
// Subsidies lower the net cost and are kept out of it.
var EffectiveRateMeasures = []Measure{CarbonTax, FuelTax, PermitPrice}

// ClimateObservation is one temperature change reading (°C anomaly)
type ClimateObservation struct {
	Country string  `json:"country"`
	Year    int     `json:"year"`
	Value   float64 `json:"value"`
}

// CarbonObservation holds the pricing rates of one instrument source for a year
type CarbonObservation struct {
	Country     string  `json:"country"`
	Sector      string  `json:"sector"`
	Source      string  `json:"source"`
	Year        int     `json:"year"`
	FuelTax     float64 `json:"fuel_tax"`
	CarbonTax   float64 `json:"carbon_tax"`
	PermitPrice float64 `json:"permit_price"`
	Subsidy     float64 `json:"subsidy"`
}

// Value returns the rate recorded for measure m
func (o CarbonObservation) Value(m Measure) float64 {
	switch m {
	case FuelTax:
		return o.FuelTax
	case CarbonTax:
		return o.CarbonTax
	case PermitPrice:
		return o.PermitPrice
	case Subsidy:
		return o.Subsidy
	}
	return math.NaN()
}

// TechnologyObservation is the low-carbon product trade share (% of GDP)
type TechnologyObservation struct {
	Country string  `json:"country"`
	Year    int     `json:"year"`
	Value   float64 `json:"value"`
}

// Series is a yearly numeric series. Years are strictly increasing.
type Series struct {
	Years  []int
	Values []float64
}

// NewSeries builds a sorted series from year -> value points
func NewSeries(points map[int]float64) Series {
	years := make([]int, 0, len(points))
	for y := range points {
		years = append(years, y)
	}
	sort.Ints(years)

	values := make([]float64, len(years))
	for i, y := range years {
		values[i] = points[y]
	}
	return Series{Years: years, Values: values}
}

// Len returns the number of points
func (s Series) Len() int {
	return len(s.Values)
}

// Last returns the final year and value. Callers must check Len first.
func (s Series) Last() (int, float64) {
	n := len(s.Values) - 1
	return s.Years[n], s.Values[n]
}
