package config

import (
	"fmt"
	"net"
	"os"

	"github.com/go-sql-driver/mysql"
)

const (
	defaultDSN      = "pathfinder:pathfinder@tcp(localhost:3306)/pathfinder?parseTime=true"
	defaultDBParams = "parseTime=true"
)

// DatabaseEnv is the MySQL location assembled from the DB_* variables
type DatabaseEnv struct {
	User     string
	Password string
	Host     string
	Port     string
	Name     string
	Params   string
}

func databaseEnvFromOS() DatabaseEnv {
	return DatabaseEnv{
		User:     os.Getenv("DB_USER"),
		Password: os.Getenv("DB_PASSWORD"),
		Host:     os.Getenv("DB_HOST"),
		Port:     os.Getenv("DB_PORT"),
		Name:     os.Getenv("DB_NAME"),
		Params:   getEnv("DB_PARAMS", defaultDBParams),
	}
}

// Complete reports whether every connection part is set
func (e DatabaseEnv) Complete() bool {
	return e.User != "" && e.Password != "" && e.Host != "" && e.Port != "" && e.Name != ""
}

// DSN formats the driver connection string
func (e DatabaseEnv) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?%s", e.User, e.Password, net.JoinHostPort(e.Host, e.Port), e.Name, e.Params)
}

// GetDatabaseDSN returns the MySQL connection string of the history store.
// A complete set of DB_* variables wins over DATABASE_DSN; without either
// the local development database is used. DB_PARAMS replaces the query
// string. The result is checked against the driver's DSN grammar.
func GetDatabaseDSN() (string, error) {
	dsn := defaultDSN
	source := "default"

	if env := databaseEnvFromOS(); env.Complete() {
		dsn, source = env.DSN(), "DB_* variables"
	} else if v := os.Getenv("DATABASE_DSN"); v != "" {
		dsn, source = v, "DATABASE_DSN"
	}

	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid database dsn from %s: %w", source, err)
	}
	if !cfg.ParseTime {
		return "", fmt.Errorf("database dsn from %s must set parseTime=true", source)
	}
	return dsn, nil
}
