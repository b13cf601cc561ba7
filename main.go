package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ==================== VERSION & BUILD INFO ====================

const (
	Version   = "1.0.0"
	BuildDate = "2026-08-26"
)

// ==================== COMMAND LINE INTERFACE ====================

var rootCmd = &cobra.Command{
	Use:   "prime-gaps",
	Short: "Segmented sieve prime gap analyzer",
	Long: `Computes every prime up to an arbitrarily large limit with a memory-bounded
segmented sieve and classifies consecutive prime gaps into families, tracking
per-family counts, high-precision Euler-product contributions and witness
primes. Results are written as a delimited report, with optional JSON
statistics and SQLite exports.`,

	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fmt.Printf("Configuration error: %v\n", err)
			os.Exit(1)
		}

		hunter, err := NewGapHunter(cfg)
		if err != nil {
			fmt.Printf("Initialization error: %v\n", err)
			os.Exit(1)
		}

		if err := hunter.Run(); err != nil {
			fmt.Printf("Runtime error: %v\n", err)
			os.Exit(1)
		}
	},
}

// Global flags
var (
	configPath  string
	limitArg    string
	segmentSize uint64
	precision   uint
	outputDir   string
	prefix      string
	verbose     bool
	saveSQLite  bool
	noReport    bool
	noStats     bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "primegap.yaml", "Configuration file path")

	// Calculation flags
	rootCmd.PersistentFlags().StringVar(&limitArg, "limit", "", "Maximum prime to analyze; digits may be grouped with ',' or '_' (overrides config)")
	rootCmd.PersistentFlags().Uint64Var(&segmentSize, "segment-size", 0, "Sieve segment size (overrides config)")
	rootCmd.PersistentFlags().UintVar(&precision, "precision", 0, "Product mantissa width in bits (overrides config)")

	// Output flags
	rootCmd.PersistentFlags().StringVar(&outputDir, "output-dir", "", "Output directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&prefix, "prefix", "", "Output filename prefix (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&saveSQLite, "sqlite", false, "Also export results to a SQLite database")
	rootCmd.PersistentFlags().BoolVar(&noReport, "no-report", false, "Skip the gap-contribution report")
	rootCmd.PersistentFlags().BoolVar(&noStats, "no-stats", false, "Skip the JSON statistics snapshot")

	viper.BindPFlag("sieve.segment_size", rootCmd.PersistentFlags().Lookup("segment-size"))
	viper.BindPFlag("output.output_directory", rootCmd.PersistentFlags().Lookup("output-dir"))
	viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	viper.SetEnvPrefix("PRIMEGAP")
	viper.AutomaticEnv()
}

func loadConfig() (*Config, error) {
	cfg, err := loadConfigFromFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Printf("Config file not found, using defaults: %s\n", configPath)
			cfg = createDefaultConfig()

			if err := saveDefaultConfig(configPath, cfg); err != nil {
				fmt.Printf("Warning: Could not save default config: %v\n", err)
			}
		} else {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	if err := applyCommandLineOverrides(cfg); err != nil {
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func applyCommandLineOverrides(cfg *Config) error {
	if limitArg != "" {
		limit, err := parseLimit(limitArg)
		if err != nil {
			return fmt.Errorf("invalid --limit: %w", err)
		}
		cfg.Sieve.Limit = limit
	}
	if segmentSize > 0 {
		cfg.Sieve.SegmentSize = segmentSize
	}
	if precision > 0 {
		cfg.Analysis.PrecisionBits = precision
	}
	if outputDir != "" {
		cfg.Output.OutputDirectory = outputDir
	}
	if prefix != "" {
		cfg.Output.FilenamePrefix = prefix
	}
	if verbose {
		cfg.Output.Verbose = true
		cfg.Output.LogLevel = "debug"
	}
	if saveSQLite {
		cfg.Output.SaveSQLite = true
	}
	if noReport {
		cfg.Output.SaveReport = false
	}
	if noStats {
		cfg.Output.SaveStats = false
	}
	return nil
}

// parseLimit accepts plain digits with optional ',' or '_' group separators,
// e.g. "10,000,000,000" or "1_000_000_000".
func parseLimit(s string) (uint64, error) {
	cleaned := strings.NewReplacer(",", "", "_", "").Replace(strings.TrimSpace(s))
	if cleaned == "" {
		return 0, fmt.Errorf("empty limit")
	}
	limit, err := strconv.ParseUint(cleaned, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("not a natural number: %q", s)
	}
	return limit, nil
}

// ==================== MAIN ENTRY POINT ====================

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}
