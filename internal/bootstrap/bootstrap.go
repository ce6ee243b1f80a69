// Package bootstrap wires the configured store, sinks and advisor into a
// ready Assessor for the commands.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"pathfinder/internal/advisor"
	"pathfinder/internal/config"
	"pathfinder/internal/database"
	"pathfinder/internal/risk"
	"pathfinder/internal/stream"
	"pathfinder/internal/timeseries"
)

// Runtime holds the wired components. Close releases their connections.
type Runtime struct {
	Store    timeseries.Store
	Assessor *risk.Assessor
	Latest   risk.LatestReader
	Advisor  advisor.Advisor

	closers []func() error
}

// New builds the runtime described by cfg. Connection settings for MySQL,
// Redis and OpenAI come from the environment.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Runtime, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rt := &Runtime{}

	store, err := rt.openStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	rt.Store = store

	fileSink := risk.NewFileSink(cfg.Risk.ResultPath)
	sinks := []risk.Sink{fileSink}
	rt.Latest = fileSink
	logger.Info("persisting assessments to file", zap.String("path", fileSink.Path()))

	if cfg.Redis.Enabled {
		publisher, err := rt.openPublisher(ctx, cfg)
		if err != nil {
			rt.Close()
			return nil, err
		}
		sinks = append(sinks, publisher)
		rt.Latest = publisher
		logger.Info("publishing assessments to redis", zap.String("stream", cfg.Redis.Stream))
	}

	if key := config.GetOpenAIKey(); key != "" {
		adv, err := advisor.NewOpenAI(key, cfg.Advisor.Model)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.Advisor = adv
	} else {
		logger.Info("OPENAI_API_KEY not set, roadmap advisor disabled")
	}

	rt.Assessor = risk.NewAssessor(store, nil, risk.Options{
		TargetYear: cfg.Risk.TargetYear,
		Sector:     cfg.Risk.Sector,
	}, logger, sinks...)
	return rt, nil
}

func (rt *Runtime) openStore(cfg *config.Config, logger *zap.Logger) (timeseries.Store, error) {
	switch cfg.Data.Source {
	case config.SourceMySQL:
		dsn, err := config.GetDatabaseDSN()
		if err != nil {
			return nil, err
		}
		db, err := database.NewDB(dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		rt.closers = append(rt.closers, db.Close)
		logger.Info("serving series from mysql")
		return db, nil
	default:
		logger.Info("serving series from csv", zap.String("dir", cfg.Data.Dir))
		return timeseries.NewCSVStore(cfg.Data.Dir, cfg.Data.ClimateFile, cfg.Data.CarbonFile, cfg.Data.TechnologyFile), nil
	}
}

func (rt *Runtime) openPublisher(ctx context.Context, cfg *config.Config) (*stream.Publisher, error) {
	redisCfg, err := config.GetRedisConfig()
	if err != nil {
		return nil, err
	}
	client := stream.NewClient(redisCfg)
	rt.closers = append(rt.closers, client.Close)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return stream.NewPublisher(client, cfg.Redis.Stream, cfg.Redis.LatestKey, cfg.Redis.MaxLen), nil
}

// Close releases every opened connection
func (rt *Runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}
