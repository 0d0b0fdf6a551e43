// Package statistics computes bootstrap confidence intervals for benchmark
// samples and for the shift between two benchmark runs.
package statistics

import (
	"math"
	"math/rand/v2"
	"slices"

	"github.com/spboyer/promptaudit/internal/metrics"
)

// ConfidenceInterval holds a bootstrap confidence interval.
type ConfidenceInterval struct {
	Lower           float64 `json:"lower"`
	Upper           float64 `json:"upper"`
	Mean            float64 `json:"mean"`
	ConfidenceLevel float64 `json:"confidence_level"`
	NumBootstraps   int     `json:"num_bootstraps"`
}

// DefaultBootstrapIterations is the number of bootstrap resamples.
const DefaultBootstrapIterations = 10000

// BootstrapCI computes a percentile bootstrap interval for the mean of
// samples. Fewer than two samples yield a degenerate interval at the mean.
func BootstrapCI(samples []float64, confidenceLevel float64) ConfidenceInterval {
	return BootstrapCIWithSeed(samples, confidenceLevel, -1)
}

// BootstrapCIWithSeed is BootstrapCI with a fixed seed. A negative seed
// draws one from the global source.
func BootstrapCIWithSeed(samples []float64, confidenceLevel float64, seed int64) ConfidenceInterval {
	m := metrics.Mean(samples)
	if len(samples) < 2 {
		return ConfidenceInterval{Lower: m, Upper: m, Mean: m, ConfidenceLevel: confidenceLevel}
	}
	rng := newRand(seed)
	means := make([]float64, DefaultBootstrapIterations)
	buf := make([]float64, len(samples))
	for i := range means {
		means[i] = resampleMean(rng, samples, buf)
	}
	return percentile(means, m, confidenceLevel)
}

// ShiftCI bootstraps the difference mean(current) - mean(baseline). Both
// samples need at least two values; otherwise the point difference is
// returned as a degenerate interval.
func ShiftCI(baseline, current []float64, confidenceLevel float64, seed int64) ConfidenceInterval {
	diff := metrics.Mean(current) - metrics.Mean(baseline)
	if len(baseline) < 2 || len(current) < 2 {
		return ConfidenceInterval{Lower: diff, Upper: diff, Mean: diff, ConfidenceLevel: confidenceLevel}
	}
	rng := newRand(seed)
	diffs := make([]float64, DefaultBootstrapIterations)
	bufA := make([]float64, len(baseline))
	bufB := make([]float64, len(current))
	for i := range diffs {
		diffs[i] = resampleMean(rng, current, bufB) - resampleMean(rng, baseline, bufA)
	}
	return percentile(diffs, diff, confidenceLevel)
}

// IsSignificant reports whether the interval excludes zero.
func IsSignificant(ci ConfidenceInterval) bool {
	return ci.Lower > 0 || ci.Upper < 0
}

func newRand(seed int64) *rand.Rand {
	if seed < 0 {
		seed = rand.Int64()
	}
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
}

func resampleMean(rng *rand.Rand, samples, buf []float64) float64 {
	for j := range buf {
		buf[j] = samples[rng.IntN(len(samples))]
	}
	return metrics.Mean(buf)
}

func percentile(boot []float64, m, level float64) ConfidenceInterval {
	slices.Sort(boot)
	n := len(boot)
	alpha := 1 - level
	lo := int(math.Floor(alpha / 2 * float64(n)))
	hi := min(int(math.Floor((1-alpha/2)*float64(n))), n-1)
	return ConfidenceInterval{
		Lower:           boot[lo],
		Upper:           boot[hi],
		Mean:            m,
		ConfidenceLevel: level,
		NumBootstraps:   n,
	}
}
