package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"path/filepath"

	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"

	"pathfinder/internal/config"
	"pathfinder/internal/database"
	"pathfinder/internal/logging"
	"pathfinder/internal/timeseries"
)

func main() {
	configPath := flag.String("config", "./config.yaml", "path to the configuration file")
	flag.Parse()

	// Load config for the CSV locations; the DSN comes from the environment
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	dsn, err := config.GetDatabaseDSN()
	if err != nil {
		logger.Fatal("invalid database configuration", zap.Error(err))
	}

	db, err := database.NewDB(dsn)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	ctx := context.Background()
	dir := cfg.Data.Dir

	climate, err := readCSV(filepath.Join(dir, cfg.Data.ClimateFile), timeseries.ReadClimateCSV)
	if err != nil {
		logger.Fatal("failed to read climate csv", zap.Error(err))
	}
	if err := db.StoreClimate(ctx, climate); err != nil {
		logger.Fatal("failed to store climate observations", zap.Error(err))
	}
	logger.Info("climate observations imported", zap.Int("rows", len(climate)))

	carbon, err := readCSV(filepath.Join(dir, cfg.Data.CarbonFile), timeseries.ReadCarbonCSV)
	if err != nil {
		logger.Fatal("failed to read carbon csv", zap.Error(err))
	}
	if err := db.StoreCarbon(ctx, carbon); err != nil {
		logger.Fatal("failed to store carbon observations", zap.Error(err))
	}
	logger.Info("carbon observations imported", zap.Int("rows", len(carbon)))

	technology, err := readCSV(filepath.Join(dir, cfg.Data.TechnologyFile), timeseries.ReadTechnologyCSV)
	if err != nil {
		logger.Fatal("failed to read technology csv", zap.Error(err))
	}
	if err := db.StoreTechnology(ctx, technology); err != nil {
		logger.Fatal("failed to store technology observations", zap.Error(err))
	}
	logger.Info("technology observations imported", zap.Int("rows", len(technology)))

	logger.Info("import complete")
}

func readCSV[T any](path string, read func(io.Reader) ([]T, error)) ([]T, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return read(file)
}
