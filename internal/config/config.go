package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"salespulse/internal/analytics"
	"salespulse/internal/validation"
)

// Config represents the complete application configuration
type Config struct {
	Logging   LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
	Pipeline  PipelineSettings `yaml:"pipeline" envconfig:"PIPELINE"`
	Input     InputConfig      `yaml:"input" envconfig:"INPUT"`
	Output    OutputConfig     `yaml:"output" envconfig:"OUTPUT"`
	Cache     CacheConfig      `yaml:"cache" envconfig:"CACHE"`
	Telemetry TelemetryConfig  `yaml:"telemetry" envconfig:"TELEMETRY"`
	Ops       OpsConfig        `yaml:"ops" envconfig:"OPS"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Format   string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" validate:"required_unless=Output console"`
}

// PipelineSettings are the raw analysis settings as read from file and
// environment. The pipeline package turns them into a validated PipelineConfig.
type PipelineSettings struct {
	// ReferenceDate is YYYY-MM-DD; empty means the latest order date.
	ReferenceDate          string    `yaml:"reference_date" envconfig:"REFERENCE_DATE" validate:"isodate"`
	PeriodGranularity      string    `yaml:"period_granularity" envconfig:"PERIOD_GRANULARITY"`
	QuantileBandCount      int       `yaml:"quantile_band_count" envconfig:"QUANTILE_BAND_COUNT"`
	DiscountBinEdges       []float64 `yaml:"discount_bin_edges" envconfig:"DISCOUNT_BIN_EDGES"`
	MinSupportThreshold    float64   `yaml:"min_support_threshold" envconfig:"MIN_SUPPORT_THRESHOLD"`
	OutlierZScoreThreshold float64   `yaml:"outlier_zscore_threshold" envconfig:"OUTLIER_ZSCORE_THRESHOLD"`
	OutlierIQRMultiplier   float64   `yaml:"outlier_iqr_multiplier" envconfig:"OUTLIER_IQR_MULTIPLIER"`

	Aggregations []analytics.AggregationRequest `yaml:"aggregations" ignored:"true"`
	// SegmentRulesFile is a YAML rule table; empty means the built-in table.
	SegmentRulesFile string `yaml:"segment_rules_file" envconfig:"SEGMENT_RULES_FILE"`
}

// InputConfig controls how order files are read
type InputConfig struct {
	// Sheet selects a workbook sheet; empty means the first sheet with a header.
	Sheet   string `yaml:"sheet" envconfig:"SHEET"`
	Workers int    `yaml:"workers" envconfig:"WORKERS" validate:"min=1,max=64"`
}

// OutputConfig controls which reports are written
type OutputConfig struct {
	Dir     string `yaml:"dir" envconfig:"DIR" validate:"required"`
	CSV     bool   `yaml:"csv" envconfig:"CSV"`
	XLSX    bool   `yaml:"xlsx" envconfig:"XLSX"`
	Console bool   `yaml:"console" envconfig:"CONSOLE"`
}

// CacheConfig controls the analysis result cache
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" envconfig:"ENABLED"`
	TTL     time.Duration `yaml:"ttl" envconfig:"TTL" validate:"gt=0"`
}

// TelemetryConfig controls tracing and metrics
type TelemetryConfig struct {
	Enabled        bool   `yaml:"enabled" envconfig:"ENABLED"`
	ServiceName    string `yaml:"service_name" envconfig:"SERVICE_NAME" validate:"required"`
	Environment    string `yaml:"environment" envconfig:"ENVIRONMENT"`
	TracesToStdout bool   `yaml:"traces_to_stdout" envconfig:"TRACES_TO_STDOUT"`
}

// OpsConfig controls the operational endpoint serving health and metrics
type OpsConfig struct {
	Enabled         bool          `yaml:"enabled" envconfig:"ENABLED"`
	Addr            string        `yaml:"addr" envconfig:"ADDR" validate:"required_if=Enabled true"`
	RateLimit       float64       `yaml:"rate_limit" envconfig:"RATE_LIMIT" validate:"gte=0"`
	RateBurst       int           `yaml:"rate_burst" envconfig:"RATE_BURST" validate:"gte=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "text",
			Output:   "console",
			FilePath: DefaultLogFile,
		},
		Pipeline: PipelineSettings{
			PeriodGranularity:      DefaultGranularity,
			QuantileBandCount:      DefaultQuantileBandCount,
			DiscountBinEdges:       analytics.DefaultBinEdges(),
			OutlierZScoreThreshold: DefaultZScoreThreshold,
			OutlierIQRMultiplier:   DefaultIQRMultiplier,
			Aggregations:           analytics.DefaultAggregations(),
		},
		Input: InputConfig{
			Workers: DefaultLoadWorkers,
		},
		Output: OutputConfig{
			Dir:     DefaultReportsDir,
			CSV:     true,
			XLSX:    true,
			Console: true,
		},
		Cache: CacheConfig{
			TTL: DefaultCacheTTL,
		},
		Telemetry: TelemetryConfig{
			ServiceName: AppName,
			Environment: "development",
		},
		Ops: OpsConfig{
			Addr:            DefaultOpsAddr,
			RateLimit:       DefaultOpsRateLimit,
			RateBurst:       DefaultOpsRateBurst,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file, then
// SALESPULSE_* environment variables. An empty path searches the usual
// locations and skips the file layer when none exists.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = getConfigFilePath()
	}
	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the keys present in the YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", filePath, err)
	}
	return nil
}

// Validate checks the application settings. Pipeline settings are checked
// when the pipeline is built from them.
func (c *Config) Validate() error {
	return validation.NewStructValidator("yaml").Validate(c)
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		DefaultConfigFile,
		"configs/" + DefaultConfigFile,
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}
