// Package metrics provides descriptive statistics over timing and score samples.
package metrics

import (
	"math"
	"slices"
)

// Summary is a descriptive summary of a sample.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"average"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"std_dev"`
	P95    float64 `json:"p95"`
}

// Describe summarizes values. The zero Summary is returned for empty input.
func Describe(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	return Summary{
		Count:  len(values),
		Mean:   Mean(values),
		Median: Median(values),
		Min:    Min(values),
		Max:    Max(values),
		StdDev: SampleStdDev(values),
		P95:    P95(values),
	}
}

// Mean computes the arithmetic mean of a float64 slice.
// Returns 0 for empty input.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Median returns the middle value, averaging the two middle values for an
// even-length sample.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	s := sorted(values)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// P95 returns sorted[int(n*0.95)-1], or the largest value when that index
// is negative.
func P95(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	s := sorted(values)
	idx := int(float64(n)*0.95) - 1
	if idx < 0 {
		return s[n-1]
	}
	return s[idx]
}

func Min(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return slices.Min(values)
}

func Max(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return slices.Max(values)
}

// Variance computes the population variance of a float64 slice.
// Returns 0 for empty input.
func Variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return sumSquares(values) / float64(len(values))
}

// StdDev computes the population standard deviation.
func StdDev(values []float64) float64 {
	return math.Sqrt(Variance(values))
}

// SampleStdDev uses Bessel's correction. Returns 0 for fewer than 2 values.
func SampleStdDev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	return math.Sqrt(sumSquares(values) / float64(n-1))
}

// CoefficientOfVariation is SampleStdDev/Mean, or 0 when the mean is 0.
func CoefficientOfVariation(values []float64) float64 {
	m := Mean(values)
	if m == 0 {
		return 0
	}
	return SampleStdDev(values) / m
}

// ConfidenceInterval95 returns the 95% confidence interval (low, high)
// using the normal approximation (z=1.96). Returns (mean, mean) when
// fewer than 2 data points are available.
func ConfidenceInterval95(values []float64) (float64, float64) {
	m := Mean(values)
	if len(values) < 2 {
		return m, m
	}
	margin := 1.96 * SampleStdDev(values) / math.Sqrt(float64(len(values)))
	return m - margin, m + margin
}

// Percent returns part/total*100, or 0 when total is 0.
func Percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func sumSquares(values []float64) float64 {
	m := Mean(values)
	s := 0.0
	for _, v := range values {
		d := v - m
		s += d * d
	}
	return s
}

func sorted(values []float64) []float64 {
	s := slices.Clone(values)
	slices.Sort(s)
	return s
}
