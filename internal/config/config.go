package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/agnivesh13/Price-Feed-Parser/internal/core"
	"github.com/agnivesh13/Price-Feed-Parser/internal/fyers"
	"github.com/agnivesh13/Price-Feed-Parser/internal/storage"
)

type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	Broker  BrokerConfig  `mapstructure:"broker"`
	Secrets SecretsConfig `mapstructure:"secrets"`
	Ingest  IngestConfig  `mapstructure:"ingest"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type StorageConfig struct {
	Type       string   `mapstructure:"type"` // "localfs" or "s3"
	Path       string   `mapstructure:"path"` // For localfs
	S3         S3Config `mapstructure:"s3"`   // For S3
	RawPrefix  string   `mapstructure:"raw_prefix"`
	DLQPrefix  string   `mapstructure:"dlq_prefix"`
	TickerPath string   `mapstructure:"ticker_path"` // "s3://bucket/key" or a local path
	Exchange   string   `mapstructure:"exchange"`
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// BrokerConfig holds Fyers API settings.
type BrokerConfig struct {
	HistoryURL string `mapstructure:"history_url"`
	RefreshURL string `mapstructure:"refresh_url"`
	Resolution string `mapstructure:"resolution"`
}

// SecretsConfig selects where the credential set lives.
type SecretsConfig struct {
	Name string `mapstructure:"name"` // Secrets Manager secret id
	Dir  string `mapstructure:"dir"`  // local directory source; overrides Secrets Manager
}

// IngestConfig holds run shape and throttling settings.
type IngestConfig struct {
	MaxPerSec      int           `mapstructure:"max_per_sec"`
	MaxPerMin      int           `mapstructure:"max_per_min"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	BackoffBase    time.Duration `mapstructure:"backoff_base"`
	Tags           string        `mapstructure:"tags"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file. An empty path skips the file and
// builds the config from defaults and environment variables alone,
// which is how scheduled jobs are deployed.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	bindAliases(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}

		// Expand environment variables in string values
		for _, key := range v.AllKeys() {
			val := v.GetString(key)
			if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
				envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
				v.Set(key, os.Getenv(envKey))
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.type", "s3")
	v.SetDefault("storage.raw_prefix", storage.DefaultRawPrefix)
	v.SetDefault("storage.dlq_prefix", storage.DefaultDLQPrefix)
	v.SetDefault("storage.exchange", storage.DefaultExchange)
	v.SetDefault("storage.s3.region", "ap-south-1")

	v.SetDefault("broker.history_url", fyers.DefaultHistoryURL)
	v.SetDefault("broker.refresh_url", fyers.DefaultRefreshURL)
	v.SetDefault("broker.resolution", "1")

	v.SetDefault("secrets.name", "fyers/credentials")

	v.SetDefault("ingest.max_per_sec", 9)
	v.SetDefault("ingest.max_per_min", 180)
	v.SetDefault("ingest.max_concurrency", 6)
	v.SetDefault("ingest.max_attempts", 5)
	v.SetDefault("ingest.backoff_base", 2*time.Second)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9102")
	v.SetDefault("metrics.path", "/metrics")
}

// bindAliases maps the flat environment names the job has historically
// been deployed with onto their config keys.
func bindAliases(v *viper.Viper) {
	aliases := map[string]string{
		"storage.s3.bucket":      "S3_BUCKET",
		"storage.ticker_path":    "TICKER_S3_PATH",
		"secrets.name":           "FYERS_SECRET_NAME",
		"ingest.max_per_sec":     "MAX_PER_SEC",
		"ingest.max_per_min":     "MAX_PER_MIN",
		"ingest.max_concurrency": "MAX_CONCURRENCY",
		"ingest.max_attempts":    "MAX_ATTEMPTS",
		"ingest.backoff_base":    "BACKOFF_BASE",
		"ingest.tags":            "INGEST_TAGS",
	}
	for key, env := range aliases {
		v.BindEnv(key, env, strings.ToUpper(strings.ReplaceAll(key, ".", "_"))) //nolint:errcheck
	}
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	cfg, _ := Load("")
	return cfg
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Storage.Type {
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("storage.s3.bucket required when storage type is s3"))
		}
	case "localfs":
		if c.Storage.Path == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("storage.path required when storage type is localfs"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown storage type %q", c.Storage.Type))
	}

	if c.Storage.TickerPath == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("storage.ticker_path is required"))
	}

	if c.Secrets.Name == "" && c.Secrets.Dir == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("either secrets.name or secrets.dir is required"))
	}

	if c.Ingest.MaxPerSec < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("max_per_sec must be positive, got %d", c.Ingest.MaxPerSec))
	}
	if c.Ingest.MaxPerMin < c.Ingest.MaxPerSec {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("max_per_min (%d) cannot be below max_per_sec (%d)",
				c.Ingest.MaxPerMin, c.Ingest.MaxPerSec))
	}
	if c.Ingest.MaxConcurrency < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("max_concurrency must be positive, got %d", c.Ingest.MaxConcurrency))
	}
	if c.Ingest.MaxAttempts < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("max_attempts must be positive, got %d", c.Ingest.MaxAttempts))
	}
	if c.Ingest.BackoffBase <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("backoff_base must be positive, got %s", c.Ingest.BackoffBase))
	}

	return nil
}
