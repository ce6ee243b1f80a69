package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"

	"pathfinder/internal/bootstrap"
	"pathfinder/internal/config"
	"pathfinder/internal/logging"
	"pathfinder/internal/risk"
)

func main() {
	configPath := flag.String("config", "./config.yaml", "path to the configuration file")
	countriesFlag := flag.String("countries", "", "comma separated country names")
	each := flag.Bool("each", false, "assess every country on its own instead of together")
	workers := flag.Int("workers", 8, "parallel assessments with -each")
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

	countries := parseCountries(*countriesFlag, flag.Args())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize", zap.Error(err))
	}
	defer rt.Close()

	var out any
	if *each {
		// per-country runs are not persisted, the stored assessment stays a joint one
		a := risk.NewAssessor(rt.Store, nil, risk.Options{TargetYear: cfg.Risk.TargetYear, Sector: cfg.Risk.Sector}, logger)
		out = runEach(ctx, a, countries, *workers, logger)
	} else {
		out = rt.Assessor.Run(ctx, countries)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.Fatal("failed to write assessment", zap.Error(err))
	}
}

// parseCountries merges the -countries list with positional arguments
func parseCountries(list string, args []string) []string {
	var countries []string
	for _, c := range append(strings.Split(list, ","), args...) {
		if c = strings.TrimSpace(c); c != "" {
			countries = append(countries, c)
		}
	}
	return countries
}

// AssessmentResult holds the assessment of a single country
type AssessmentResult struct {
	Country        string
	Bundle         risk.Bundle
	ProcessingTime time.Duration
}

type runner interface {
	Run(ctx context.Context, countries []string) risk.Bundle
}

// runEach assesses every country separately with a worker pool
func runEach(ctx context.Context, a runner, countries []string, numWorkers int, logger *zap.Logger) map[string]risk.Bundle {
	startTime := time.Now()
	if numWorkers > len(countries) {
		numWorkers = len(countries)
	}
	if numWorkers < 1 {
		numWorkers = 1
	}

	jobs := make(chan string, len(countries))
	results := make(chan AssessmentResult, len(countries))

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go worker(ctx, a, jobs, results, &wg)
	}

	for _, country := range countries {
		jobs <- country
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	bundles := make(map[string]risk.Bundle, len(countries))
	done := 0
	for result := range results {
		done++
		bundles[result.Country] = result.Bundle
		logger.Info("country assessed",
			zap.Int("done", done),
			zap.Int("total", len(countries)),
			zap.String("country", result.Country),
			zap.String("climate", string(result.Bundle.Climate.Overall)),
			zap.String("carbon", string(result.Bundle.Carbon.Overall)),
			zap.String("technology", string(result.Bundle.Technology.Overall)),
			zap.Duration("duration", result.ProcessingTime))
	}

	logger.Info("per-country assessment complete",
		zap.Int("countries", len(bundles)),
		zap.Int("workers", numWorkers),
		zap.Duration("duration", time.Since(startTime)))
	return bundles
}

// worker assesses countries from the jobs channel
func worker(ctx context.Context, a runner, jobs <-chan string, results chan<- AssessmentResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for country := range jobs {
		startTime := time.Now()
		bundle := a.Run(ctx, []string{country})
		results <- AssessmentResult{
			Country:        country,
			Bundle:         bundle,
			ProcessingTime: time.Since(startTime),
		}
	}
}
