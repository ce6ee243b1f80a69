package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}
	return path
}

func reset() {
	instance = nil
	once = *new(sync.Once)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `risk:
  target_year: 2030
  sector: Transport
data:
  source: mysql
server:
  addr: ":9090"
log:
  level: debug
  format: console
redis:
  enabled: true
  stream: "assessments"
advisor:
  model: gpt-4.1
`)
	reset()

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg == nil {
		t.Fatal("Load() returned nil config")
	}

	if cfg.Risk.TargetYear != 2030 {
		t.Errorf("Expected target year 2030, got %d", cfg.Risk.TargetYear)
	}

	if cfg.Risk.Sector != "Transport" {
		t.Errorf("Expected sector 'Transport', got '%s'", cfg.Risk.Sector)
	}

	if cfg.Data.Source != SourceMySQL {
		t.Errorf("Expected mysql source, got '%s'", cfg.Data.Source)
	}

	if cfg.Server.Addr != ":9090" {
		t.Errorf("Expected server addr ':9090', got '%s'", cfg.Server.Addr)
	}

	if !cfg.Redis.Enabled || cfg.Redis.Stream != "assessments" {
		t.Errorf("Expected redis enabled on stream 'assessments', got %+v", cfg.Redis)
	}

	// unset keys keep their defaults
	if cfg.Redis.LatestKey != "risk:latest_assessment" {
		t.Errorf("Expected default latest key, got '%s'", cfg.Redis.LatestKey)
	}

	if cfg.Risk.ResultPath != "risk_eval/result/latest_assessment.json" {
		t.Errorf("Expected default result path, got '%s'", cfg.Risk.ResultPath)
	}

	if cfg.Data.ClimateFile != "temprisedata2.csv" {
		t.Errorf("Expected default climate file, got '%s'", cfg.Data.ClimateFile)
	}
}

func TestLoad_Once(t *testing.T) {
	first := writeConfig(t, "risk:\n  target_year: 2028\n")
	second := writeConfig(t, "risk:\n  target_year: 2040\n")
	reset()

	if _, err := Load(first); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	cfg, _ := Load(second)

	if cfg.Risk.TargetYear != 2028 {
		t.Errorf("Expected the first load to stick, got %d", cfg.Risk.TargetYear)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "invalid: [yaml: content")
	reset()

	_, err := Load(path)
	if err == nil {
		t.Error("Expected error for invalid YAML, got nil")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	reset()

	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Expected error for missing file, got nil")
	}
}

func TestGet(t *testing.T) {
	path := writeConfig(t, "risk:\n  sector: Buildings\n")
	reset()

	_, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	cfg := Get()
	if cfg == nil {
		t.Fatal("Get() returned nil")
	}

	if cfg.Risk.Sector != "Buildings" {
		t.Errorf("Expected sector 'Buildings', got '%s'", cfg.Risk.Sector)
	}
}

func TestGet_Panic(t *testing.T) {
	reset()

	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected Get() to panic when config not loaded")
		}
	}()

	Get()
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:    "defaults",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "target year out of range",
			mutate:  func(c *Config) { c.Risk.TargetYear = 27 },
			wantErr: true,
		},
		{
			name:    "empty result path",
			mutate:  func(c *Config) { c.Risk.ResultPath = "" },
			wantErr: true,
		},
		{
			name:    "unknown data source",
			mutate:  func(c *Config) { c.Data.Source = "parquet" },
			wantErr: true,
		},
		{
			name:    "csv without directory",
			mutate:  func(c *Config) { c.Data.Dir = "" },
			wantErr: true,
		},
		{
			name:    "mysql without directory",
			mutate: func(c *Config) {
				c.Data.Source = SourceMySQL
				c.Data.Dir = ""
			},
			wantErr: false,
		},
		{
			name:    "unknown log format",
			mutate:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: true,
		},
		{
			name:    "redis enabled without stream",
			mutate: func(c *Config) {
				c.Redis.Enabled = true
				c.Redis.Stream = ""
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
