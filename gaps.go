package main

import (
	"fmt"
	"math"
	"math/big"
	"sort"
	"sync/atomic"
)

// ==================== GAP ACCUMULATOR ====================

// GapFamily aggregates every prime sharing the same forward gap. Memory per
// family is constant: a counter, one big.Float product, the compensated
// log-sum and a capped witness sample.
type GapFamily struct {
	Gap     uint64
	Count   uint64
	Product *big.Float
	LogSum  float64
	Samples []uint64

	logComp float64 // Kahan compensation carry for LogSum
}

// ProductFloat reports the running product rounded to float64 for display.
func (f *GapFamily) ProductFloat() float64 {
	v, _ := f.Product.Float64()
	return v
}

func (f *GapFamily) addLog(term float64) {
	y := term - f.logComp
	t := f.LogSum + y
	f.logComp = (t - f.LogSum) - y
	f.LogSum = t
}

// GapAnalyzer consumes adjacent prime pairs in stream order and maintains
// per-gap statistics. The product is the literal multiplicative accumulation
// at the configured mantissa width; the log-sum is accumulated independently
// so it stays trustworthy even if the product were run at a precision too
// low for the term count, and the two are compared by CrossCheck.
type GapAnalyzer struct {
	precision uint
	sampleCap int
	families  map[uint64]*GapFamily

	// Scratch values reused across pairs; the analyzer is single-consumer
	// by contract, so no locking is needed on the hot path.
	one, p2, den, term *big.Float

	// Counters published for the concurrent progress reporter.
	totalPrimes atomic.Uint64
	familyTally atomic.Uint64
	lastPrime   atomic.Uint64
}

func NewGapAnalyzer(cfg *AnalysisConfig) *GapAnalyzer {
	prec := cfg.PrecisionBits
	return &GapAnalyzer{
		precision: prec,
		sampleCap: cfg.SampleCap,
		families:  make(map[uint64]*GapFamily),
		one:       new(big.Float).SetPrec(prec).SetUint64(1),
		p2:        new(big.Float).SetPrec(prec),
		den:       new(big.Float).SetPrec(prec),
		term:      new(big.Float).SetPrec(prec),
	}
}

// contribution computes p^2 / (p^2 - 1) into the shared scratch value.
func (a *GapAnalyzer) contribution(p uint64) *big.Float {
	a.p2.SetUint64(p)
	a.p2.Mul(a.p2, a.p2)
	a.den.Sub(a.p2, a.one)
	return a.term.Quo(a.p2, a.den)
}

// ProcessPair records one prime and, unless the pair is terminal, its gap.
// A non-increasing pair is an internal invariant breach and aborts the run
// instead of corrupting a family with a non-positive gap key.
func (a *GapAnalyzer) ProcessPair(pair PrimePair) error {
	a.totalPrimes.Add(1)
	a.lastPrime.Store(pair.Prime)

	// The final prime contributes to the count but has no gap.
	if !pair.HasNext {
		return nil
	}

	if pair.Next <= pair.Prime {
		return fmt.Errorf("prime pair out of order: %d followed by %d", pair.Prime, pair.Next)
	}

	gap := pair.Next - pair.Prime

	fam, ok := a.families[gap]
	if !ok {
		fam = &GapFamily{
			Gap:     gap,
			Product: new(big.Float).SetPrec(a.precision).SetUint64(1),
		}
		a.families[gap] = fam
		a.familyTally.Add(1)
	}

	fam.Count++
	fam.Product.Mul(fam.Product, a.contribution(pair.Prime))

	// ln(p^2/(p^2-1)) = log1p(1/(p^2-1)); log1p keeps full relative
	// precision for the tiny terms of large primes.
	pf := float64(pair.Prime)
	fam.addLog(math.Log1p(1 / (pf*pf - 1)))

	if len(fam.Samples) < a.sampleCap {
		fam.Samples = append(fam.Samples, pair.Prime)
	}

	return nil
}

// TotalPrimes reports how many primes have been processed so far. Safe to
// call from the progress reporter while the stream is being consumed.
func (a *GapAnalyzer) TotalPrimes() uint64 { return a.totalPrimes.Load() }

// FamilyTally reports the number of distinct gap families seen so far.
func (a *GapAnalyzer) FamilyTally() uint64 { return a.familyTally.Load() }

// LastPrime reports the most recently processed prime.
func (a *GapAnalyzer) LastPrime() uint64 { return a.lastPrime.Load() }

// Families returns all gap families sorted by ascending gap value.
func (a *GapAnalyzer) Families() []*GapFamily {
	out := make([]*GapFamily, 0, len(a.families))
	for _, fam := range a.families {
		out = append(out, fam)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Gap < out[j].Gap })
	return out
}

// FamiliesByCount returns all gap families sorted by descending count,
// breaking ties by ascending gap.
func (a *GapAnalyzer) FamiliesByCount() []*GapFamily {
	out := a.Families()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// CrossCheck verifies that each family's independently accumulated log-sum
// agrees with the natural log of its running product. A drift beyond the
// tolerance means the chosen precision was insufficient for the run.
func (a *GapAnalyzer) CrossCheck(tolerance float64) error {
	for _, fam := range a.Families() {
		logOfProduct := math.Log(fam.ProductFloat())
		if drift := math.Abs(logOfProduct - fam.LogSum); drift > tolerance {
			return fmt.Errorf("gap %d: log-sum %.12g drifts from ln(product) %.12g by %.3g (tolerance %.3g)",
				fam.Gap, fam.LogSum, logOfProduct, drift, tolerance)
		}
	}
	return nil
}
