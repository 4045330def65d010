// Package config loads application configuration from an optional
// crane-intel.yaml file and CRANE_INTEL_-prefixed environment variables,
// and installs the global zap logger.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
	Refdata     RefdataConfig     `yaml:"refdata" mapstructure:"refdata"`
	Calibration CalibrationConfig `yaml:"calibration" mapstructure:"calibration"`
	Valuation   ValuationConfig   `yaml:"valuation" mapstructure:"valuation"`
	Anthropic   AnthropicConfig   `yaml:"anthropic" mapstructure:"anthropic"`
}

// StoreConfig configures observation and report persistence.
type StoreConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr                string   `yaml:"addr" mapstructure:"addr"`
	AllowedOrigins      []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	ShutdownTimeoutSecs int      `yaml:"shutdown_timeout_secs" mapstructure:"shutdown_timeout_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// RefdataConfig configures reference data ingestion.
type RefdataConfig struct {
	UserAgent     string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries    int    `yaml:"max_retries" mapstructure:"max_retries"`
	FTPUser       string `yaml:"ftp_user" mapstructure:"ftp_user"`
	FTPPassword   string `yaml:"ftp_password" mapstructure:"ftp_password"`
	PostgresTable string `yaml:"postgres_table" mapstructure:"postgres_table"`
}

// Timeout returns the HTTP source timeout as a duration.
func (c RefdataConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// CalibrationConfig configures model building.
type CalibrationConfig struct {
	// Source is the default reference data source for calibrate/quote
	// commands when --source is not given. Empty means use the store.
	Source string `yaml:"source" mapstructure:"source"`
	// MinRateFloor clamps extrapolated monthly rates, USD.
	MinRateFloor float64 `yaml:"min_rate_floor" mapstructure:"min_rate_floor"`
}

// ValuationConfig configures the valuation engine.
type ValuationConfig struct {
	// TuningPath points at the YAML tuning file; empty uses compiled-in
	// defaults.
	TuningPath string `yaml:"tuning_path" mapstructure:"tuning_path"`
}

// AnthropicConfig configures optional narrative generation. Narrative
// features stay disabled while Key is empty.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("crane-intel")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/crane-intel")

	// Environment
	v.SetEnvPrefix("CRANE_INTEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "crane-intel.db")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.shutdown_timeout_secs", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("refdata.user_agent", "crane-intel/1.0")
	v.SetDefault("refdata.timeout_secs", 30)
	v.SetDefault("refdata.max_retries", 3)
	v.SetDefault("refdata.postgres_table", "market.rate_observations")
	v.SetDefault("calibration.min_rate_floor", 500.0)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 1024)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if cfg.Store.Driver != "sqlite" && cfg.Store.Driver != "postgres" {
		return nil, eris.Errorf("config: store.driver must be sqlite or postgres (got %q)", cfg.Store.Driver)
	}
	if cfg.Store.Driver == "postgres" && cfg.Store.DatabaseURL == "" {
		return nil, eris.New("config: store.database_url is required for the postgres driver")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
