package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_FromFile(t *testing.T) {
	content := []byte(`
storage:
  type: localfs
  path: "/tmp/pricefeed/archive"
  ticker_path: "/tmp/pricefeed/tickers.txt"

ingest:
  max_per_sec: 4
  max_concurrency: 2
`)

	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Storage.Type != "localfs" {
		t.Errorf("expected localfs, got %s", cfg.Storage.Type)
	}
	if cfg.Ingest.MaxPerSec != 4 {
		t.Errorf("expected max_per_sec 4, got %d", cfg.Ingest.MaxPerSec)
	}
	// Untouched keys keep their defaults
	if cfg.Ingest.MaxPerMin != 180 {
		t.Errorf("expected default max_per_min 180, got %d", cfg.Ingest.MaxPerMin)
	}
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Ingest.MaxPerSec != 9 {
		t.Errorf("expected default max_per_sec 9, got %d", cfg.Ingest.MaxPerSec)
	}
	if cfg.Ingest.BackoffBase != 2*time.Second {
		t.Errorf("expected default backoff_base 2s, got %s", cfg.Ingest.BackoffBase)
	}
}

func TestLoad_EnvAliases(t *testing.T) {
	t.Setenv("MAX_PER_SEC", "3")
	t.Setenv("S3_BUCKET", "candles-prod")
	t.Setenv("TICKER_S3_PATH", "s3://candles-prod/tickers.txt")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Ingest.MaxPerSec != 3 {
		t.Errorf("expected max_per_sec 3 from env, got %d", cfg.Ingest.MaxPerSec)
	}
	if cfg.Storage.S3.Bucket != "candles-prod" {
		t.Errorf("expected bucket candles-prod, got %s", cfg.Storage.S3.Bucket)
	}
	if cfg.Storage.TickerPath != "s3://candles-prod/tickers.txt" {
		t.Errorf("expected ticker path from env, got %s", cfg.Storage.TickerPath)
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Ingest.MaxPerMin != 180 {
		t.Errorf("expected default max_per_min 180, got %d", cfg.Ingest.MaxPerMin)
	}
	if cfg.Broker.Resolution != "1" {
		t.Errorf("expected default resolution 1, got %s", cfg.Broker.Resolution)
	}
	if cfg.Storage.RawPrefix != "ohlcv/raw/" {
		t.Errorf("expected default raw prefix, got %s", cfg.Storage.RawPrefix)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		cfg := *Defaults()
		cfg.Storage.S3.Bucket = "candles"
		cfg.Storage.TickerPath = "s3://candles/tickers.txt"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "s3 without bucket",
			mutate:  func(c *Config) { c.Storage.S3.Bucket = "" },
			wantErr: true,
		},
		{
			name:    "unknown storage type",
			mutate:  func(c *Config) { c.Storage.Type = "tape" },
			wantErr: true,
		},
		{
			name:    "localfs without path",
			mutate:  func(c *Config) { c.Storage.Type = "localfs" },
			wantErr: true,
		},
		{
			name:    "missing ticker path",
			mutate:  func(c *Config) { c.Storage.TickerPath = "" },
			wantErr: true,
		},
		{
			name: "no secret source",
			mutate: func(c *Config) {
				c.Secrets.Name = ""
				c.Secrets.Dir = ""
			},
			wantErr: true,
		},
		{
			name:    "zero max_per_sec",
			mutate:  func(c *Config) { c.Ingest.MaxPerSec = 0 },
			wantErr: true,
		},
		{
			name:    "minute window below second window",
			mutate:  func(c *Config) { c.Ingest.MaxPerMin = 5 },
			wantErr: true,
		},
		{
			name:    "zero concurrency",
			mutate:  func(c *Config) { c.Ingest.MaxConcurrency = 0 },
			wantErr: true,
		},
		{
			name:    "zero attempts",
			mutate:  func(c *Config) { c.Ingest.MaxAttempts = 0 },
			wantErr: true,
		},
		{
			name:    "negative backoff",
			mutate:  func(c *Config) { c.Ingest.BackoffBase = -time.Second },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
