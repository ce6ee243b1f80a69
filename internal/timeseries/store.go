// Package timeseries loads the historical risk datasets and groups them per
// country (and sector/source for carbon pricing).
package timeseries

import (
	"context"
	"sort"

	"pathfinder/internal/models"
)

// DefaultSector is used when no carbon pricing sector is requested
const DefaultSector = "Industry"

// Store provides the historical slices the risk evaluators forecast from.
// Countries missing from the backing table simply have no entry.
type Store interface {
	Climate(ctx context.Context, countries []string) (*ClimateDataset, error)
	Carbon(ctx context.Context, countries []string, sector string) (*CarbonDataset, error)
	Technology(ctx context.Context, countries []string) (*TechnologyDataset, error)
}

// ClimateDataset holds one temperature change series per country
type ClimateDataset struct {
	Series   map[string]models.Series
	LastYear int // last year present in the whole table
}

// TechnologyDataset holds one trade share series per country
type TechnologyDataset struct {
	Series   map[string]models.Series
	LastYear int
}

// CarbonGroup is the pricing history of one (country, source) pair
type CarbonGroup struct {
	Country  string
	Source   string
	Years    []int
	Measures map[models.Measure][]float64
}

// Series returns the history of one measure
func (g *CarbonGroup) Series(m models.Measure) models.Series {
	return models.Series{Years: g.Years, Values: g.Measures[m]}
}

// CarbonDataset holds the pricing groups of one sector, country -> source -> group
type CarbonDataset struct {
	Sector   string
	Groups   map[string]map[string]*CarbonGroup
	LastYear int
	// CountryRows counts rows of the requested countries in any sector
	CountryRows int
}

// Empty reports whether the requested countries have no rows at all
func (d *CarbonDataset) Empty() bool {
	return d.CountryRows == 0
}

// Sources returns the instrument sources recorded for a country, sorted
func (d *CarbonDataset) Sources(country string) []string {
	groups := d.Groups[country]
	sources := make([]string, 0, len(groups))
	for s := range groups {
		sources = append(sources, s)
	}
	sort.Strings(sources)
	return sources
}

// BuildClimate filters observations to countries and groups them per country.
// A repeated year keeps the last row read.
func BuildClimate(obs []models.ClimateObservation, countries []string) *ClimateDataset {
	wanted := countrySet(countries)
	points := make(map[string]map[int]float64)
	ds := &ClimateDataset{Series: make(map[string]models.Series)}

	for _, o := range obs {
		if o.Year > ds.LastYear {
			ds.LastYear = o.Year
		}
		if !wanted[o.Country] {
			continue
		}
		if points[o.Country] == nil {
			points[o.Country] = make(map[int]float64)
		}
		points[o.Country][o.Year] = o.Value
	}

	for country, p := range points {
		ds.Series[country] = models.NewSeries(p)
	}
	return ds
}

// BuildTechnology filters observations to countries and groups them per country
func BuildTechnology(obs []models.TechnologyObservation, countries []string) *TechnologyDataset {
	wanted := countrySet(countries)
	points := make(map[string]map[int]float64)
	ds := &TechnologyDataset{Series: make(map[string]models.Series)}

	for _, o := range obs {
		if o.Year > ds.LastYear {
			ds.LastYear = o.Year
		}
		if !wanted[o.Country] {
			continue
		}
		if points[o.Country] == nil {
			points[o.Country] = make(map[int]float64)
		}
		points[o.Country][o.Year] = o.Value
	}

	for country, p := range points {
		ds.Series[country] = models.NewSeries(p)
	}
	return ds
}

// BuildCarbon filters observations to countries and sector, then groups
// them per (country, source). Rows without a sector match any sector.
func BuildCarbon(obs []models.CarbonObservation, countries []string, sector string) *CarbonDataset {
	if sector == "" {
		sector = DefaultSector
	}
	wanted := countrySet(countries)
	rows := make(map[string]map[string]map[int]models.CarbonObservation)
	ds := &CarbonDataset{Sector: sector, Groups: make(map[string]map[string]*CarbonGroup)}

	for _, o := range obs {
		if o.Year > ds.LastYear {
			ds.LastYear = o.Year
		}
		if !wanted[o.Country] {
			continue
		}
		ds.CountryRows++
		if o.Sector != "" && o.Sector != sector {
			continue
		}
		if rows[o.Country] == nil {
			rows[o.Country] = make(map[string]map[int]models.CarbonObservation)
		}
		if rows[o.Country][o.Source] == nil {
			rows[o.Country][o.Source] = make(map[int]models.CarbonObservation)
		}
		rows[o.Country][o.Source][o.Year] = o
	}

	for country, sources := range rows {
		ds.Groups[country] = make(map[string]*CarbonGroup, len(sources))
		for source, byYear := range sources {
			ds.Groups[country][source] = newCarbonGroup(country, source, byYear)
		}
	}
	return ds
}

func newCarbonGroup(country, source string, byYear map[int]models.CarbonObservation) *CarbonGroup {
	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)

	g := &CarbonGroup{
		Country:  country,
		Source:   source,
		Years:    years,
		Measures: make(map[models.Measure][]float64, len(models.CarbonMeasures)),
	}
	for _, m := range models.CarbonMeasures {
		values := make([]float64, len(years))
		for i, y := range years {
			values[i] = byYear[y].Value(m)
		}
		g.Measures[m] = values
	}
	return g
}

func countrySet(countries []string) map[string]bool {
	set := make(map[string]bool, len(countries))
	for _, c := range countries {
		set[c] = true
	}
	return set
}
