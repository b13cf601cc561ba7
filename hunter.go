package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ==================== MAIN APPLICATION CONTROLLER ====================

// GapHunter wires the sieve, the gap accumulator, the storage layer and the
// progress reporter together and drives a run end to end. The prime stream
// is consumed on a single goroutine in strictly increasing order; only the
// reporter runs beside it, reading atomic counters.
type GapHunter struct {
	config   *Config
	sieve    *SegmentedSieve
	analyzer *GapAnalyzer
	storage  *StorageManager
	stats    *Statistics
	reporter *ProgressReporter
	logger   *logrus.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewGapHunter(cfg *Config) (*GapHunter, error) {
	logger := setupLogger(cfg.Output)

	ctx, cancel := context.WithCancel(context.Background())

	h := &GapHunter{
		config: cfg,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}

	if err := h.initializeComponents(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize components: %w", err)
	}

	return h, nil
}

func (h *GapHunter) initializeComponents() error {
	sieve, err := NewSegmentedSieve(&h.config.Sieve, h.logger)
	if err != nil {
		return fmt.Errorf("failed to create segmented sieve: %w", err)
	}
	h.sieve = sieve

	h.analyzer = NewGapAnalyzer(&h.config.Analysis)

	storage, err := NewStorageManager(&h.config.Output, h.logger)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}
	h.storage = storage

	h.stats = NewStatistics(h.config)
	h.reporter = NewProgressReporter(h.analyzer, h.stats, h.config.Performance.StatsInterval, h.logger)

	return nil
}

func (h *GapHunter) Run() error {
	h.printStartupBanner()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signalChan)

	go func() {
		select {
		case sig := <-signalChan:
			h.logger.Infof("Received %v, finishing up", sig)
			h.cancel()
		case <-h.ctx.Done():
		}
	}()

	group, ctx := errgroup.WithContext(h.ctx)
	group.Go(func() error {
		return h.reporter.Run(ctx)
	})

	runErr := h.consume(ctx)
	interrupted := errors.Is(runErr, context.Canceled)

	h.cancel()
	group.Wait()

	if runErr != nil && !interrupted {
		return runErr
	}

	h.stats.Update(h.analyzer)

	if err := h.saveArtifacts(); err != nil {
		return err
	}

	h.printFinalStatistics(interrupted)

	// The independent log-sums expose any precision shortfall in the
	// running products; surface it after the artifacts are on disk.
	if err := h.analyzer.CrossCheck(h.config.Analysis.CrossCheckTolerance); err != nil {
		h.logger.Errorf("Precision cross-check failed: %v", err)
		return fmt.Errorf("precision cross-check failed: %w", err)
	}

	return nil
}

// consume drains the prime-pair stream into the accumulator. Cancellation
// is polled every few thousand pairs; breaking out of the range abandons
// the in-progress segment buffer.
func (h *GapHunter) consume(ctx context.Context) error {
	const cancelCheckStride = 1 << 16

	var sinceCheck int
	for pair := range h.sieve.Pairs() {
		if err := h.analyzer.ProcessPair(pair); err != nil {
			return fmt.Errorf("gap accumulation failed: %w", err)
		}

		sinceCheck++
		if sinceCheck >= cancelCheckStride {
			sinceCheck = 0
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
	}

	return nil
}

func (h *GapHunter) saveArtifacts() error {
	if h.config.Output.SaveReport {
		path, err := h.storage.SaveReport(h.analyzer, h.config.Sieve.Limit)
		if err != nil {
			return fmt.Errorf("failed to save report: %w", err)
		}
		h.logger.Infof("Report saved to %s", path)
	}

	if h.config.Output.SaveStats {
		path, err := h.storage.SaveStats(h.stats)
		if err != nil {
			return fmt.Errorf("failed to save statistics: %w", err)
		}
		h.logger.Infof("Statistics saved to %s", path)
	}

	if h.config.Output.SaveSQLite {
		path, err := h.storage.SaveSQLite(h.analyzer, h.config.Sieve.Limit)
		if err != nil {
			return fmt.Errorf("failed to save sqlite export: %w", err)
		}
		h.logger.Infof("SQLite export saved to %s", path)
	}

	return nil
}

func (h *GapHunter) printStartupBanner() {
	fmt.Println()
	fmt.Println("Segmented Sieve Prime Gap Analyzer")
	fmt.Println("============================================================")
	fmt.Printf("Version: %s | Build: %s | Go: %s | CPUs: %d\n",
		Version, BuildDate, runtime.Version(), runtime.NumCPU())
	fmt.Println()

	h.logger.Infof("Analyzing primes up to %s", formatWithCommas(h.config.Sieve.Limit))
	h.logger.Infof("  Segment size: %s | Precision: %d bits | Sample cap: %d",
		formatWithCommas(h.config.Sieve.SegmentSize),
		h.config.Analysis.PrecisionBits,
		h.config.Analysis.SampleCap)
	h.logger.Infof("  Output directory: %s", h.config.Output.OutputDirectory)
	if h.config.loadedFrom != "" {
		h.logger.Infof("  Config: %s", h.config.loadedFrom)
	}
}

func (h *GapHunter) printFinalStatistics(interrupted bool) {
	snap := h.stats.Snapshot()

	fmt.Println()
	fmt.Println("============================================================")
	if interrupted {
		fmt.Println("Analysis interrupted - partial results saved")
	} else {
		fmt.Println("Analysis complete!")
	}
	fmt.Println("============================================================")
	fmt.Printf("Time taken:            %s\n", formatDurationDetailed(snap.ElapsedTime))
	fmt.Printf("Total primes found:    %s\n", formatWithCommas(snap.PrimesFound))
	fmt.Printf("Gap families:          %s\n", formatWithCommas(snap.GapFamilies))
	fmt.Printf("Highest prime:         %s\n", formatWithCommas(snap.HighestPrime))
	if secs := snap.ElapsedTime.Seconds(); secs > 0 {
		fmt.Printf("Processing rate:       %s numbers/second\n",
			formatWithCommas(uint64(float64(snap.Limit)/secs)))
	}
	fmt.Printf("Peak memory (Go):      %.1f MB\n", snap.AllocMB)
	fmt.Println()

	top := h.analyzer.FamiliesByCount()
	if len(top) == 0 {
		return
	}
	if len(top) > 10 {
		top = top[:10]
	}

	fmt.Println("Top gap families by count:")
	fmt.Println("------------------------------------------------------------")
	for _, fam := range top {
		percent := 0.0
		if snap.PrimesFound > 0 {
			percent = float64(fam.Count) / float64(snap.PrimesFound) * 100
		}
		fmt.Printf("Gap %3d: %14s primes (%5.2f%%)\n",
			fam.Gap, formatWithCommas(fam.Count), percent)
	}
	fmt.Println()
}
