// Package stats compares two experiment runs: bootstrap confidence
// intervals, permutation tests, effect sizes, and the recommendation that
// falls out of them.
package stats

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Magnitude labels for effect sizes.
const (
	MagnitudeNegligible = "negligible"
	MagnitudeSmall      = "small"
	MagnitudeMedium     = "medium"
	MagnitudeLarge      = "large"
)

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// BootstrapMeanCI resamples values with replacement and returns the
// percentile confidence interval of the mean.
func BootstrapMeanCI(values []float64, iters int, confidence float64, seed int64) (lo, hi float64) {
	if len(values) == 0 || iters <= 0 {
		return 0, 0
	}
	rng := rand.New(rand.NewSource(seed))
	means := make([]float64, iters)
	for i := range means {
		sum := 0.0
		for j := 0; j < len(values); j++ {
			sum += values[rng.Intn(len(values))]
		}
		means[i] = sum / float64(len(values))
	}
	sort.Float64s(means)
	alpha := (1 - confidence) / 2
	return quantile(means, alpha), quantile(means, 1-alpha)
}

// BootstrapDeltaCI resamples both groups independently and returns the
// percentile confidence interval of mean(a) - mean(b).
func BootstrapDeltaCI(a, b []float64, iters int, confidence float64, seed int64) (lo, hi float64) {
	if len(a) == 0 || len(b) == 0 || iters <= 0 {
		return 0, 0
	}
	rng := rand.New(rand.NewSource(seed))
	deltas := make([]float64, iters)
	for i := range deltas {
		sumA := 0.0
		for j := 0; j < len(a); j++ {
			sumA += a[rng.Intn(len(a))]
		}
		sumB := 0.0
		for j := 0; j < len(b); j++ {
			sumB += b[rng.Intn(len(b))]
		}
		deltas[i] = sumA/float64(len(a)) - sumB/float64(len(b))
	}
	sort.Float64s(deltas)
	alpha := (1 - confidence) / 2
	return quantile(deltas, alpha), quantile(deltas, 1-alpha)
}

// PermutationPValue is the two-sided permutation test on the difference of
// means, with add-one smoothing. Degenerate inputs (no observed difference,
// or a constant pool) return 1.
func PermutationPValue(a, b []float64, permutations int, seed int64) float64 {
	if len(a) == 0 || len(b) == 0 || permutations <= 0 {
		return 1
	}
	observed := mean(a) - mean(b)
	pool := make([]float64, 0, len(a)+len(b))
	pool = append(pool, a...)
	pool = append(pool, b...)
	if math.Abs(observed) < 1e-12 || isConstant(pool) {
		return 1
	}

	rng := rand.New(rand.NewSource(seed))
	extreme := 0
	for i := 0; i < permutations; i++ {
		rng.Shuffle(len(pool), func(x, y int) { pool[x], pool[y] = pool[y], pool[x] })
		delta := mean(pool[:len(a)]) - mean(pool[len(a):])
		if math.Abs(delta) >= math.Abs(observed) {
			extreme++
		}
	}
	return float64(extreme+1) / float64(permutations+1)
}

// CohensH is the arcsine-transformed difference of two proportions.
func CohensH(pA, pB float64) float64 {
	return 2*math.Asin(math.Sqrt(clamp01(pA))) - 2*math.Asin(math.Sqrt(clamp01(pB)))
}

// HMagnitude maps |h| onto the conventional bands.
func HMagnitude(h float64) string {
	switch abs := math.Abs(h); {
	case abs < 0.2:
		return MagnitudeNegligible
	case abs < 0.5:
		return MagnitudeSmall
	case abs < 0.8:
		return MagnitudeMedium
	default:
		return MagnitudeLarge
	}
}

// CliffsDelta is the dominance statistic over all cross-group pairs.
func CliffsDelta(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	greater, less := 0, 0
	for _, x := range a {
		for _, y := range b {
			switch {
			case x > y:
				greater++
			case x < y:
				less++
			}
		}
	}
	return float64(greater-less) / float64(len(a)*len(b))
}

// DeltaMagnitude maps |Cliff's delta| onto its bands.
func DeltaMagnitude(d float64) string {
	switch abs := math.Abs(d); {
	case abs < 0.147:
		return MagnitudeNegligible
	case abs < 0.33:
		return MagnitudeSmall
	case abs < 0.474:
		return MagnitudeMedium
	default:
		return MagnitudeLarge
	}
}

func quantile(sorted []float64, p float64) float64 {
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

func isConstant(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}

func clamp01(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
