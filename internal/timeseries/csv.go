package timeseries

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"pathfinder/internal/models"
)

// ErrMissingColumn is returned when a CSV header lacks a required column
var ErrMissingColumn = errors.New("missing column")

const temperatureElement = "Temperature change"

// ReadClimateCSV reads the long-format temperature change table
// (Area, Element, Year, Value). Rows of other elements are skipped.
func ReadClimateCSV(r io.Reader) ([]models.ClimateObservation, error) {
	rows, cols, err := readTable(r, "Area", "Element", "Year", "Value")
	if err != nil {
		return nil, err
	}

	var obs []models.ClimateObservation
	for i, row := range rows {
		if field(row, cols["Element"]) != temperatureElement {
			continue
		}
		year, err := parseYear(field(row, cols["Year"]))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		value, err := parseValue(field(row, cols["Value"]))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		obs = append(obs, models.ClimateObservation{
			Country: field(row, cols["Area"]),
			Year:    year,
			Value:   value,
		})
	}
	return obs, nil
}

// ReadCarbonCSV reads the carbon pricing table. TIME may be a bare year or
// a date; only the year is kept. SECTOR is optional.
func ReadCarbonCSV(r io.Reader) ([]models.CarbonObservation, error) {
	required := []string{"AREA", "SOURCE", "TIME"}
	for _, m := range models.CarbonMeasures {
		required = append(required, string(m))
	}
	rows, cols, err := readTable(r, required...)
	if err != nil {
		return nil, err
	}

	sectorCol, hasSector := cols["SECTOR"]
	var obs []models.CarbonObservation
	for i, row := range rows {
		year, err := parseYear(field(row, cols["TIME"]))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		o := models.CarbonObservation{
			Country: field(row, cols["AREA"]),
			Source:  field(row, cols["SOURCE"]),
			Year:    year,
		}
		if hasSector {
			o.Sector = field(row, sectorCol)
		}
		values := make(map[models.Measure]float64, len(models.CarbonMeasures))
		for _, m := range models.CarbonMeasures {
			v, err := parseValue(field(row, cols[string(m)]))
			if err != nil {
				return nil, fmt.Errorf("row %d %s: %w", i+2, m, err)
			}
			values[m] = v
		}
		o.FuelTax = values[models.FuelTax]
		o.CarbonTax = values[models.CarbonTax]
		o.PermitPrice = values[models.PermitPrice]
		o.Subsidy = values[models.Subsidy]
		obs = append(obs, o)
	}
	return obs, nil
}

// ReadTechnologyCSV reads the wide trade share table: a Year column plus one
// column per country. Every cell becomes one observation, blanks as NaN.
func ReadTechnologyCSV(r io.Reader) ([]models.TechnologyObservation, error) {
	rows, cols, err := readTable(r, "Year")
	if err != nil {
		return nil, err
	}
	yearCol := cols["Year"]

	var obs []models.TechnologyObservation
	for i, row := range rows {
		year, err := parseYear(field(row, yearCol))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		for country, c := range cols {
			if c == yearCol {
				continue
			}
			value, err := parseValue(field(row, c))
			if err != nil {
				return nil, fmt.Errorf("row %d %s: %w", i+2, country, err)
			}
			obs = append(obs, models.TechnologyObservation{Country: country, Year: year, Value: value})
		}
	}
	return obs, nil
}

// CSVStore serves datasets from the CSV files in a directory. Files are
// re-read on every call.
type CSVStore struct {
	ClimatePath    string
	CarbonPath     string
	TechnologyPath string
}

// NewCSVStore creates a store over dir with the given file names
func NewCSVStore(dir, climateFile, carbonFile, technologyFile string) *CSVStore {
	return &CSVStore{
		ClimatePath:    filepath.Join(dir, climateFile),
		CarbonPath:     filepath.Join(dir, carbonFile),
		TechnologyPath: filepath.Join(dir, technologyFile),
	}
}

// Climate loads the temperature change series of countries
func (s *CSVStore) Climate(ctx context.Context, countries []string) (*ClimateDataset, error) {
	obs, err := readFile(ctx, s.ClimatePath, ReadClimateCSV)
	if err != nil {
		return nil, err
	}
	return BuildClimate(obs, countries), nil
}

// Carbon loads the carbon pricing groups of countries in sector
func (s *CSVStore) Carbon(ctx context.Context, countries []string, sector string) (*CarbonDataset, error) {
	obs, err := readFile(ctx, s.CarbonPath, ReadCarbonCSV)
	if err != nil {
		return nil, err
	}
	return BuildCarbon(obs, countries, sector), nil
}

// Technology loads the low-carbon trade share series of countries
func (s *CSVStore) Technology(ctx context.Context, countries []string) (*TechnologyDataset, error) {
	obs, err := readFile(ctx, s.TechnologyPath, ReadTechnologyCSV)
	if err != nil {
		return nil, err
	}
	return BuildTechnology(obs, countries), nil
}

func readFile[T any](ctx context.Context, path string, read func(io.Reader) ([]T, error)) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	obs, err := read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return obs, nil
}

// readTable reads a whole CSV with a header row and returns the data rows
// with a column index by trimmed header name.
func readTable(r io.Reader, required ...string) ([][]string, map[string]int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("%w: empty file", ErrMissingColumn)
	}
	if err != nil {
		return nil, nil, err
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if name == "" {
			continue
		}
		cols[name] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	return rows, cols, nil
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseYear accepts "2021", "2021.0" and dates such as "2021-01-01"
func parseYear(s string) (int, error) {
	if len(s) >= 4 {
		if y, err := strconv.Atoi(s[:4]); err == nil {
			if len(s) == 4 || !isDigit(s[4]) {
				return y, nil
			}
		}
	}
	return 0, fmt.Errorf("invalid year %q", s)
}

func parseValue(s string) (float64, error) {
	if s == "" {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q", s)
	}
	return v, nil
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
