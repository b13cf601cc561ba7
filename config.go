package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ==================== CONFIGURATION STRUCTURES ====================

type SieveConfig struct {
	Limit       uint64 `json:"limit" yaml:"limit"`
	SegmentSize uint64 `json:"segment_size" yaml:"segment_size"`
}

type AnalysisConfig struct {
	PrecisionBits       uint    `json:"precision_bits" yaml:"precision_bits"`
	SampleCap           int     `json:"sample_cap" yaml:"sample_cap"`
	CrossCheckTolerance float64 `json:"cross_check_tolerance" yaml:"cross_check_tolerance"`
}

type OutputConfig struct {
	SaveReport      bool   `json:"save_report" yaml:"save_report"`
	SaveStats       bool   `json:"save_stats" yaml:"save_stats"`
	SaveSQLite      bool   `json:"save_sqlite" yaml:"save_sqlite"`
	OutputDirectory string `json:"output_directory" yaml:"output_directory"`
	FilenamePrefix  string `json:"filename_prefix" yaml:"filename_prefix"`
	Verbose         bool   `json:"verbose" yaml:"verbose"`
	LogLevel        string `json:"log_level" yaml:"log_level"`
}

type PerformanceConfig struct {
	StatsInterval time.Duration `json:"stats_interval" yaml:"stats_interval"`
}

type Config struct {
	Sieve       SieveConfig       `json:"sieve" yaml:"sieve"`
	Analysis    AnalysisConfig    `json:"analysis" yaml:"analysis"`
	Output      OutputConfig      `json:"output" yaml:"output"`
	Performance PerformanceConfig `json:"performance" yaml:"performance"`

	// Internal fields
	configPath string
	loadedFrom string
}

// ==================== CONFIGURATION MANAGEMENT ====================

func setDefaults() {
	// Sieve defaults
	viper.SetDefault("sieve.limit", uint64(100_000_000))
	viper.SetDefault("sieve.segment_size", uint64(1_000_000))

	// Analysis defaults: 168 mantissa bits covers ~50 decimal digits,
	// enough that hundreds of millions of near-1 factors keep full
	// reportable precision in the running products.
	viper.SetDefault("analysis.precision_bits", uint(168))
	viper.SetDefault("analysis.sample_cap", 20)
	viper.SetDefault("analysis.cross_check_tolerance", 1e-9)

	// Output defaults
	viper.SetDefault("output.save_report", true)
	viper.SetDefault("output.save_stats", true)
	viper.SetDefault("output.save_sqlite", false)
	viper.SetDefault("output.output_directory", ".")
	viper.SetDefault("output.filename_prefix", "primegap")
	viper.SetDefault("output.verbose", false)
	viper.SetDefault("output.log_level", "info")

	// Performance defaults
	viper.SetDefault("performance.stats_interval", "2s")
}

func loadConfigFromFile(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config

	// viper's unmarshal routes large YAML integers through float64 and
	// loses precision past 2^53, so the wide fields are read directly.
	cfg.Sieve.Limit = viper.GetUint64("sieve.limit")
	cfg.Sieve.SegmentSize = viper.GetUint64("sieve.segment_size")
	cfg.Analysis.PrecisionBits = uint(viper.GetUint64("analysis.precision_bits"))

	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Restore the manually parsed fields in case Unmarshal clobbered them.
	cfg.Sieve.Limit = viper.GetUint64("sieve.limit")
	cfg.Sieve.SegmentSize = viper.GetUint64("sieve.segment_size")
	cfg.Analysis.PrecisionBits = uint(viper.GetUint64("analysis.precision_bits"))

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	cfg.configPath = path
	cfg.loadedFrom = viper.ConfigFileUsed()

	return &cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Sieve.SegmentSize == 0 {
		return fmt.Errorf("segment_size must be positive")
	}
	if cfg.Analysis.PrecisionBits < 64 {
		return fmt.Errorf("precision_bits must be at least 64 (got %d)", cfg.Analysis.PrecisionBits)
	}
	if cfg.Analysis.SampleCap < 0 {
		return fmt.Errorf("sample_cap cannot be negative")
	}
	if cfg.Analysis.CrossCheckTolerance <= 0 {
		return fmt.Errorf("cross_check_tolerance must be positive")
	}
	if cfg.Performance.StatsInterval <= 0 {
		return fmt.Errorf("stats_interval must be positive")
	}
	if cfg.Output.FilenamePrefix == "" {
		return fmt.Errorf("filename_prefix cannot be empty")
	}
	return nil
}

func createDefaultConfig() *Config {
	cfg := &Config{}

	setDefaults()
	viper.Unmarshal(cfg)

	cfg.Sieve.Limit = viper.GetUint64("sieve.limit")
	cfg.Sieve.SegmentSize = viper.GetUint64("sieve.segment_size")
	cfg.Analysis.PrecisionBits = uint(viper.GetUint64("analysis.precision_bits"))

	return cfg
}

func saveDefaultConfig(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	header := `# Prime Gap Analyzer Configuration v` + Version + `
# Generated automatically on ` + time.Now().Format("2006-01-02 15:04:05") + `

`

	return os.WriteFile(path, []byte(header+string(data)), 0644)
}

// ==================== LOGGING ====================

func setupLogger(cfg OutputConfig) *logrus.Logger {
	logger := logrus.New()

	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		logger.SetLevel(logrus.DebugLevel)
	case "info":
		logger.SetLevel(logrus.InfoLevel)
	case "warn":
		logger.SetLevel(logrus.WarnLevel)
	case "error":
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	if cfg.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	return logger
}
