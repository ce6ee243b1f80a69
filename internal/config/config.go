package config

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Data sources for the historical series
const (
	SourceCSV   = "csv"
	SourceMySQL = "mysql"
)

var (
	instance *Config
	once     sync.Once
)

type RiskConfig struct {
	TargetYear int    `yaml:"target_year"`
	Sector     string `yaml:"sector"`
	ResultPath string `yaml:"result_path"`
}

type DataConfig struct {
	Source         string `yaml:"source"`
	Dir            string `yaml:"dir"`
	ClimateFile    string `yaml:"climate_file"`
	CarbonFile     string `yaml:"carbon_file"`
	TechnologyFile string `yaml:"technology_file"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StreamConfig controls publishing assessments to Redis. Connection
// settings come from the environment, see GetRedisConfig.
type StreamConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Stream    string `yaml:"stream"`
	LatestKey string `yaml:"latest_key"`
	MaxLen    int64  `yaml:"max_len"`
}

type AdvisorConfig struct {
	Model string `yaml:"model"`
}

// Config is the application configuration file
type Config struct {
	Risk    RiskConfig    `yaml:"risk"`
	Data    DataConfig    `yaml:"data"`
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Redis   StreamConfig  `yaml:"redis"`
	Advisor AdvisorConfig `yaml:"advisor"`
}

// Default returns the configuration used when a key is not set
func Default() *Config {
	return &Config{
		Risk: RiskConfig{
			TargetYear: 2027,
			Sector:     "Industry",
			ResultPath: "risk_eval/result/latest_assessment.json",
		},
		Data: DataConfig{
			Source:         SourceCSV,
			Dir:            "risk_eval/Data",
			ClimateFile:    "temprisedata2.csv",
			CarbonFile:     "carbon_pricing_filtered.csv",
			TechnologyFile: "trade_tech_filtered.csv",
		},
		Server: ServerConfig{Addr: ":8080"},
		Log:    LogConfig{Level: "info", Format: "json"},
		Redis: StreamConfig{
			Stream:    "risk_assessments",
			LatestKey: "risk:latest_assessment",
			MaxLen:    500,
		},
		Advisor: AdvisorConfig{Model: "gpt-4.1-mini"},
	}
}

// Load reads the YAML file at configPath over the defaults. It only runs
// once per process; later calls return the first result.
func Load(configPath string) (*Config, error) {
	var err error
	once.Do(func() {
		instance, err = Parse(configPath)
	})

	return instance, err
}

// Parse reads and validates one configuration file without caching it
func Parse(configPath string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Get() *Config {
	if instance == nil {
		panic("config not loaded - call config.Load() first")
	}
	return instance
}

func (c *Config) validate() error {
	if c.Risk.TargetYear < 1900 || c.Risk.TargetYear > 2200 {
		return fmt.Errorf("risk.target_year out of range: %d", c.Risk.TargetYear)
	}
	if c.Risk.ResultPath == "" {
		return fmt.Errorf("risk.result_path cannot be empty")
	}
	switch c.Data.Source {
	case SourceCSV:
		if c.Data.Dir == "" {
			return fmt.Errorf("data.dir cannot be empty for csv source")
		}
	case SourceMySQL:
	default:
		return fmt.Errorf("data.source must be %q or %q, got %q", SourceCSV, SourceMySQL, c.Data.Source)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	if c.Redis.Enabled && (c.Redis.Stream == "" || c.Redis.LatestKey == "") {
		return fmt.Errorf("redis.stream and redis.latest_key are required when redis is enabled")
	}
	return nil
}
