package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHunterEndToEnd(t *testing.T) {
	outDir := t.TempDir()

	cfg := &Config{
		Sieve: SieveConfig{Limit: 100, SegmentSize: 10},
		Analysis: AnalysisConfig{
			PrecisionBits:       96,
			SampleCap:           20,
			CrossCheckTolerance: 1e-9,
		},
		Output: OutputConfig{
			SaveReport:      true,
			SaveStats:       true,
			SaveSQLite:      true,
			OutputDirectory: outDir,
			FilenamePrefix:  "primegap",
			LogLevel:        "error",
		},
		Performance: PerformanceConfig{StatsInterval: 50 * time.Millisecond},
	}
	require.NoError(t, validateConfig(cfg))

	hunter, err := NewGapHunter(cfg)
	require.NoError(t, err)
	require.NoError(t, hunter.Run())

	assert.Equal(t, uint64(25), hunter.analyzer.TotalPrimes())

	for _, name := range []string{
		"primegap_gap_contributions_100.csv",
		"primegap_gap_contributions_100.csv.blake2b",
		"primegap_stats.json",
		"primegap_gaps.db",
		"primegap_gaps.db.blake2b",
	} {
		assert.FileExists(t, filepath.Join(outDir, name))
	}

	report, err := os.ReadFile(filepath.Join(outDir, "primegap_gap_contributions_100.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(report), "Maximum Prime:,100")
	assert.Contains(t, string(report), "Total Primes:,25")
}

func TestHunterRejectsInvalidSieveConfig(t *testing.T) {
	cfg := validTestConfig()
	cfg.Sieve.SegmentSize = 0
	cfg.Output.OutputDirectory = t.TempDir()

	_, err := NewGapHunter(cfg)
	assert.Error(t, err)
}
