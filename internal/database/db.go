package database

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"pathfinder/internal/metrics"
	"pathfinder/internal/models"
	"pathfinder/internal/timeseries"
)

const (
	climateTable    = "climate_observations"
	carbonTable     = "carbon_observations"
	technologyTable = "technology_observations"
)

// DB represents the database connection. It serves the historical series
// to the risk evaluators.
type DB struct {
	conn *sql.DB
}

var _ timeseries.Store = (*DB)(nil)

// NewDB creates a new database connection and initializes the schema
// dsn format: "username:password@tcp(host:port)/dbname?parseTime=true"
// example: "user:pass@tcp(localhost:3306)/pathfinder?parseTime=true"
func NewDB(dsn string) (*DB, error) {
	conn, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Configure connection pool
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{conn: conn}

	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// initSchema creates the necessary tables
func (db *DB) initSchema() error {
	// MySQL doesn't support multiple statements in one Exec, so we need to split them
	statements := []string{
		`CREATE TABLE IF NOT EXISTS climate_observations (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			country VARCHAR(255) NOT NULL,
			year INT NOT NULL,
			value DOUBLE NULL,
			UNIQUE KEY uq_climate_country_year (country, year)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS carbon_observations (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			country VARCHAR(255) NOT NULL,
			sector VARCHAR(255) NOT NULL DEFAULT '',
			source VARCHAR(255) NOT NULL,
			year INT NOT NULL,
			fuel_tax DOUBLE NULL,
			carbon_tax DOUBLE NULL,
			permit_price DOUBLE NULL,
			subsidy DOUBLE NULL,
			UNIQUE KEY uq_carbon_country_sector_source_year (country, sector, source, year),
			INDEX idx_carbon_country (country)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS technology_observations (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			country VARCHAR(255) NOT NULL,
			year INT NOT NULL,
			value DOUBLE NULL,
			UNIQUE KEY uq_technology_country_year (country, year)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

// StoreClimate upserts temperature change observations
func (db *DB) StoreClimate(ctx context.Context, obs []models.ClimateObservation) error {
	query := `INSERT INTO climate_observations (country, year, value) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE value = VALUES(value)`
	return storeBatch(ctx, db, climateTable, query, obs, func(o models.ClimateObservation) []any {
		return []any{o.Country, o.Year, nullFloat(o.Value)}
	})
}

// StoreCarbon upserts carbon pricing observations
func (db *DB) StoreCarbon(ctx context.Context, obs []models.CarbonObservation) error {
	query := `INSERT INTO carbon_observations (country, sector, source, year, fuel_tax, carbon_tax, permit_price, subsidy)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE fuel_tax = VALUES(fuel_tax), carbon_tax = VALUES(carbon_tax),
			permit_price = VALUES(permit_price), subsidy = VALUES(subsidy)`
	return storeBatch(ctx, db, carbonTable, query, obs, func(o models.CarbonObservation) []any {
		return []any{o.Country, o.Sector, o.Source, o.Year,
			nullFloat(o.FuelTax), nullFloat(o.CarbonTax), nullFloat(o.PermitPrice), nullFloat(o.Subsidy)}
	})
}

// StoreTechnology upserts low-carbon trade share observations
func (db *DB) StoreTechnology(ctx context.Context, obs []models.TechnologyObservation) error {
	query := `INSERT INTO technology_observations (country, year, value) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE value = VALUES(value)`
	return storeBatch(ctx, db, technologyTable, query, obs, func(o models.TechnologyObservation) []any {
		return []any{o.Country, o.Year, nullFloat(o.Value)}
	})
}

// storeBatch inserts rows in one transaction
func storeBatch[T any](ctx context.Context, db *DB, table, query string, rows []T, args func(T) []any) error {
	if len(rows) == 0 {
		return nil
	}
	defer db.recordStats()

	queryStart := time.Now()
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Will be ignored if committed

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx, args(row)...); err != nil {
			metrics.RecordDBQuery("INSERT", table, time.Since(queryStart), err)
			return fmt.Errorf("failed to insert row %d into %s: %w", i, table, err)
		}
	}

	err = tx.Commit()
	metrics.RecordDBQuery("INSERT", table, time.Since(queryStart), err)
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Climate loads the temperature change series of countries. No query is
// issued for an empty country list.
func (db *DB) Climate(ctx context.Context, countries []string) (*timeseries.ClimateDataset, error) {
	if len(countries) == 0 {
		return timeseries.BuildClimate(nil, countries), nil
	}
	var obs []models.ClimateObservation
	err := db.selectCountries(ctx, climateTable, "country, year, value", countries, func(rows *sql.Rows) error {
		var o models.ClimateObservation
		var v sql.NullFloat64
		if err := rows.Scan(&o.Country, &o.Year, &v); err != nil {
			return err
		}
		o.Value = floatOrNaN(v)
		obs = append(obs, o)
		return nil
	})
	if err != nil {
		return nil, err
	}

	lastYear, err := db.lastYear(ctx, climateTable)
	if err != nil {
		return nil, err
	}
	ds := timeseries.BuildClimate(obs, countries)
	ds.LastYear = lastYear
	return ds, nil
}

// Carbon loads the pricing rates of countries. Rows from every sector are
// read so the dataset can tell an unknown country from a missing sector.
func (db *DB) Carbon(ctx context.Context, countries []string, sector string) (*timeseries.CarbonDataset, error) {
	if len(countries) == 0 {
		return timeseries.BuildCarbon(nil, countries, sector), nil
	}
	var obs []models.CarbonObservation
	columns := "country, sector, source, year, fuel_tax, carbon_tax, permit_price, subsidy"
	err := db.selectCountries(ctx, carbonTable, columns, countries, func(rows *sql.Rows) error {
		var o models.CarbonObservation
		var fuel, carbon, permit, subsidy sql.NullFloat64
		if err := rows.Scan(&o.Country, &o.Sector, &o.Source, &o.Year, &fuel, &carbon, &permit, &subsidy); err != nil {
			return err
		}
		o.FuelTax = floatOrNaN(fuel)
		o.CarbonTax = floatOrNaN(carbon)
		o.PermitPrice = floatOrNaN(permit)
		o.Subsidy = floatOrNaN(subsidy)
		obs = append(obs, o)
		return nil
	})
	if err != nil {
		return nil, err
	}

	lastYear, err := db.lastYear(ctx, carbonTable)
	if err != nil {
		return nil, err
	}
	ds := timeseries.BuildCarbon(obs, countries, sector)
	ds.LastYear = lastYear
	return ds, nil
}

// Technology loads the low-carbon trade share series of countries
func (db *DB) Technology(ctx context.Context, countries []string) (*timeseries.TechnologyDataset, error) {
	if len(countries) == 0 {
		return timeseries.BuildTechnology(nil, countries), nil
	}
	var obs []models.TechnologyObservation
	err := db.selectCountries(ctx, technologyTable, "country, year, value", countries, func(rows *sql.Rows) error {
		var o models.TechnologyObservation
		var v sql.NullFloat64
		if err := rows.Scan(&o.Country, &o.Year, &v); err != nil {
			return err
		}
		o.Value = floatOrNaN(v)
		obs = append(obs, o)
		return nil
	})
	if err != nil {
		return nil, err
	}

	lastYear, err := db.lastYear(ctx, technologyTable)
	if err != nil {
		return nil, err
	}
	ds := timeseries.BuildTechnology(obs, countries)
	ds.LastYear = lastYear
	return ds, nil
}

// selectCountries runs a SELECT over table restricted to countries and
// hands every row to scan.
func (db *DB) selectCountries(ctx context.Context, table, columns string, countries []string, scan func(*sql.Rows) error) error {
	defer db.recordStats()

	query, args := countriesQuery(table, columns, countries)
	queryStart := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, args...)
	metrics.RecordDBQuery("SELECT", table, time.Since(queryStart), err)
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("failed to scan %s row: %w", table, err)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating %s: %w", table, err)
	}
	return nil
}

// lastYear returns the latest year recorded in table, 0 when it is empty
func (db *DB) lastYear(ctx context.Context, table string) (int, error) {
	var year sql.NullInt64
	queryStart := time.Now()
	err := db.conn.QueryRowContext(ctx, fmt.Sprintf(`SELECT MAX(year) FROM %s`, table)).Scan(&year)
	metrics.RecordDBQuery("SELECT", table, time.Since(queryStart), err)
	if err != nil {
		return 0, fmt.Errorf("failed to read last year of %s: %w", table, err)
	}
	return int(year.Int64), nil
}

func (db *DB) recordStats() {
	stats := db.conn.Stats()
	metrics.UpdateDBConnectionStats(stats.OpenConnections, stats.InUse, stats.Idle)
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// countriesQuery builds the IN clause. Rows are ordered by id so a repeated
// year resolves to the latest write.
func countriesQuery(table, columns string, countries []string) (string, []any) {
	// Build placeholders: (?, ?, ?)
	placeholders := make([]string, len(countries))
	args := make([]any, len(countries))
	for i, c := range countries {
		placeholders[i] = "?"
		args[i] = c
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE country IN (%s) ORDER BY id`,
		columns, table, strings.Join(placeholders, ","))
	return query, args
}

// nullFloat maps a missing (NaN) value to NULL and clamps infinities to 0
func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	if math.IsInf(v, 0) {
		return sql.NullFloat64{Float64: 0, Valid: true}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func floatOrNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
