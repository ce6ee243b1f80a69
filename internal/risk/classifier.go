package risk

import (
	"math"

	"pathfinder/internal/models"
	"pathfinder/internal/timeseries"
)

// Climate thresholds on the projected temperature change (°C)
const (
	climateLowMax    = 1.5
	climateMediumMax = 2.9
)

// Trend labels of the technology domain
const (
	TrendIncreasing = "Increasing"
	TrendDecreasing = "Decreasing"
)

// Carbon pricing instrument mixes
const (
	MixNone       = "No tax or credit used"
	MixBoth       = "Both credit and tax used"
	MixCreditOnly = "Carbon credit used only"
	MixFuelCarbon = "Fuel and Carbon tax used"
	MixFuelOnly   = "Fuel tax used only"
	MixCarbonOnly = "Carbon tax used only"
)

// ClassifyClimate labels the projected temperature change. Values between
// 1.5 and 1.6 are Medium.
func ClassifyClimate(v float64) Level {
	switch {
	case math.IsNaN(v):
		return Unknown
	case v <= climateLowMax:
		return Low
	case v <= climateMediumMax:
		return Medium
	default:
		return High
	}
}

// ClassifyCarbon labels a source by the change of its effective carbon rate
func ClassifyCarbon(ecrChange float64) Level {
	if ecrChange > 0 {
		return High
	}
	return Low
}

// ClassifyTechnology compares the last forecast point with the one three
// periods before it. Shorter forecasts compare against lastHistorical.
func ClassifyTechnology(lastHistorical float64, values []float64) Level {
	n := len(values)
	if n == 0 {
		return Unknown
	}
	base := lastHistorical
	if n >= 3 {
		base = values[n-3]
	}
	if values[n-1] >= base {
		return Low
	}
	return High
}

// Trend is the direction label matching a technology risk level
func Trend(level Level) string {
	if level == High {
		return TrendDecreasing
	}
	return TrendIncreasing
}

// ClimateOverall aggregates forecasted climate levels: any High wins,
// otherwise Medium needs a strict majority over Low.
func ClimateOverall(levels []Level) Level {
	var high, medium, low int
	for _, l := range levels {
		switch l {
		case High:
			high++
		case Medium:
			medium++
		case Low:
			low++
		}
	}
	switch {
	case high > 0:
		return High
	case medium > low:
		return Medium
	default:
		return Low
	}
}

// MajorityOverall is High when more than half of the requested countries
// count as High
func MajorityOverall(highCount, countries int) Level {
	if 2*highCount > countries {
		return High
	}
	return Low
}

// InstrumentMix summarises which pricing instruments a country uses across
// every source and year
func InstrumentMix(groups map[string]*timeseries.CarbonGroup) string {
	var anyTax, anyCredit, both, fuelAndCarbon, fuel bool
	for _, g := range groups {
		fuelTax := g.Measures[models.FuelTax]
		carbonTax := g.Measures[models.CarbonTax]
		credit := g.Measures[models.PermitPrice]
		for i := range g.Years {
			ft, ct, cr := at(fuelTax, i), at(carbonTax, i), at(credit, i)
			taxed := ft+ct > 0
			credited := cr > 0

			anyTax = anyTax || taxed
			anyCredit = anyCredit || credited
			both = both || (taxed && credited)
			fuelAndCarbon = fuelAndCarbon || (ft > 0 && ct > 0)
			fuel = fuel || ft > 0
		}
	}

	switch {
	case !anyTax && !anyCredit:
		return MixNone
	case both:
		return MixBoth
	case anyCredit:
		return MixCreditOnly
	case fuelAndCarbon:
		return MixFuelCarbon
	case fuel:
		return MixFuelOnly
	default:
		return MixCarbonOnly
	}
}

// at returns values[i], treating missing cells as zero
func at(values []float64, i int) float64 {
	if i >= len(values) || math.IsNaN(values[i]) {
		return 0
	}
	return values[i]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
