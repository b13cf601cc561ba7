package main

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTestConfig() *Config {
	return &Config{
		Sieve: SieveConfig{Limit: 1000, SegmentSize: 100},
		Analysis: AnalysisConfig{
			PrecisionBits:       168,
			SampleCap:           20,
			CrossCheckTolerance: 1e-9,
		},
		Output: OutputConfig{
			SaveReport:      true,
			OutputDirectory: ".",
			FilenamePrefix:  "primegap",
			LogLevel:        "info",
		},
		Performance: PerformanceConfig{StatsInterval: time.Second},
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"Valid", func(*Config) {}, false},
		{"ZeroSegmentSize", func(c *Config) { c.Sieve.SegmentSize = 0 }, true},
		{"PrecisionTooLow", func(c *Config) { c.Analysis.PrecisionBits = 32 }, true},
		{"NegativeSampleCap", func(c *Config) { c.Analysis.SampleCap = -1 }, true},
		{"ZeroSampleCap", func(c *Config) { c.Analysis.SampleCap = 0 }, false},
		{"ZeroTolerance", func(c *Config) { c.Analysis.CrossCheckTolerance = 0 }, true},
		{"ZeroStatsInterval", func(c *Config) { c.Performance.StatsInterval = 0 }, true},
		{"EmptyPrefix", func(c *Config) { c.Output.FilenamePrefix = "" }, true},
		{"ZeroLimit", func(c *Config) { c.Sieve.Limit = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(cfg)

			err := validateConfig(cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		input    string
		expected uint64
		wantErr  bool
	}{
		{"100", 100, false},
		{" 42 ", 42, false},
		{"10,000,000,000", 10_000_000_000, false},
		{"1_000_000", 1_000_000, false},
		{"1,000_000", 1_000_000, false},
		{"", 0, true},
		{"abc", 0, true},
		{"12,34x", 0, true},
		{"-5", 0, true},
	}

	for _, tt := range tests {
		got, err := parseLimit(tt.input)
		if tt.wantErr {
			assert.Error(t, err, "input=%q", tt.input)
		} else {
			require.NoError(t, err, "input=%q", tt.input)
			assert.Equal(t, tt.expected, got, "input=%q", tt.input)
		}
	}
}

func TestCreateDefaultConfigIsValid(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg := createDefaultConfig()

	require.NoError(t, validateConfig(cfg))
	assert.Equal(t, uint64(100_000_000), cfg.Sieve.Limit)
	assert.Equal(t, uint64(1_000_000), cfg.Sieve.SegmentSize)
	assert.Equal(t, uint(168), cfg.Analysis.PrecisionBits)
	assert.Equal(t, 20, cfg.Analysis.SampleCap)
	assert.Equal(t, 2*time.Second, cfg.Performance.StatsInterval)
}
