// Package config loads settings from config.yaml and OSMWRANGLE_* variables.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Store drivers.
const (
	DriverNone     = "none"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig      `yaml:"store" mapstructure:"store"`
	Rules   RulesConfig      `yaml:"rules" mapstructure:"rules"`
	Extract ExtractConfig    `yaml:"extract" mapstructure:"extract"`
	Metrics MetricsConfig    `yaml:"metrics" mapstructure:"metrics"`
	Monitor MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Report  ReportConfig     `yaml:"report" mapstructure:"report"`
	Log     LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the optional database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	BatchSize   int    `yaml:"batch_size" mapstructure:"batch_size"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// RulesConfig points at an optional YAML file overriding the lookup tables.
type RulesConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ExtractConfig tunes the housenumber extractor.
type ExtractConfig struct {
	CacheSize int `yaml:"cache_size" mapstructure:"cache_size"`
}

// MetricsConfig configures the Prometheus textfile written after each run.
type MetricsConfig struct {
	Textfile string `yaml:"textfile" mapstructure:"textfile"`
}

// MonitoringConfig configures the run health check.
type MonitoringConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	LookbackHours        int     `yaml:"lookback_hours" mapstructure:"lookback_hours"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	DiscardRateThreshold float64 `yaml:"discard_rate_threshold" mapstructure:"discard_rate_threshold"`
	MinFinishedRuns      int     `yaml:"min_finished_runs" mapstructure:"min_finished_runs"`
}

// ReportConfig configures console reports.
type ReportConfig struct {
	CellWidth int `yaml:"cell_width" mapstructure:"cell_width"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("OSMWRANGLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", DriverNone)
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.batch_size", 500)
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 0)
	v.SetDefault("rules.path", "")
	v.SetDefault("extract.cache_size", 4096)
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.lookback_hours", 24)
	v.SetDefault("monitoring.failure_rate_threshold", 0.10)
	v.SetDefault("monitoring.discard_rate_threshold", 0.50)
	v.SetDefault("monitoring.min_finished_runs", 5)
	v.SetDefault("report.cell_width", 60)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings no command can run with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverNone, DriverSQLite:
	case DriverPostgres:
		if c.Store.DatabaseURL == "" {
			return eris.New("config: store.database_url is required for the postgres driver")
		}
	default:
		return eris.Errorf("config: unsupported store driver %q", c.Store.Driver)
	}
	if c.Store.BatchSize <= 0 {
		return eris.Errorf("config: store.batch_size must be positive, got %d", c.Store.BatchSize)
	}
	for name, rate := range map[string]float64{
		"failure_rate_threshold": c.Monitor.FailureRateThreshold,
		"discard_rate_threshold": c.Monitor.DiscardRateThreshold,
	} {
		if rate < 0 || rate > 1 {
			return eris.Errorf("config: monitoring.%s must be between 0 and 1, got %g", name, rate)
		}
	}
	return nil
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
