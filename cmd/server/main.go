package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"

	"pathfinder/internal/bootstrap"
	"pathfinder/internal/config"
	"pathfinder/internal/logging"
	"pathfinder/internal/server"
)

func main() {
	configPath := flag.String("config", "./config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize", zap.Error(err))
	}
	defer rt.Close()

	srv := server.NewServer(rt.Assessor, rt.Latest, rt.Advisor, logger)
	if err := srv.Start(ctx, cfg.Server.Addr); err != nil {
		logger.Error("http server stopped", zap.Error(err))
		return
	}
	logger.Info("http server stopped")
}
