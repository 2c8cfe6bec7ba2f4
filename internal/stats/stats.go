// Package stats holds descriptive statistics shared by the analysis,
// preprocessing and evaluation packages.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Finite returns the non-NaN values of vals.
func Finite(vals []float64) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// Sorted returns a sorted copy of vals.
func Sorted(vals []float64) []float64 {
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	return cp
}

// Quantile interpolates linearly between closest ranks of an ascending slice.
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// Median of unsorted values; NaN for an empty slice.
func Median(vals []float64) float64 {
	return Quantile(Sorted(vals), 0.5)
}

// MedianMAD computes median and MAD (median absolute deviation) of values.
func MedianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	median = Median(vals)
	dev := make([]float64, len(vals))
	for i, v := range vals {
		dev[i] = math.Abs(v - median)
	}
	mad = Median(dev)
	return
}

// RobustOutliers counts values whose modified z-score exceeds threshold.
func RobustOutliers(vals []float64, threshold float64) (count int, maxAbsZ float64) {
	median, mad := MedianMAD(vals)
	if mad == 0 {
		return 0, 0
	}
	for _, v := range vals {
		az := math.Abs(0.6745 * (v - median) / mad)
		if az > threshold {
			count++
		}
		if az > maxAbsZ {
			maxAbsZ = az
		}
	}
	return count, maxAbsZ
}

// Summary is a describe()-style numeric summary.
type Summary struct {
	Count int
	Mean  float64
	Std   float64
	Min   float64
	Q25   float64
	Q50   float64
	Q75   float64
	Max   float64
}

// Describe summarises the finite values of vals. Std uses n-1.
func Describe(vals []float64) Summary {
	x := Finite(vals)
	s := Summary{Count: len(x)}
	if len(x) == 0 {
		nan := math.NaN()
		s.Mean, s.Std, s.Min, s.Q25, s.Q50, s.Q75, s.Max = nan, nan, nan, nan, nan, nan, nan
		return s
	}
	sorted := Sorted(x)
	s.Mean = stat.Mean(x, nil)
	s.Std = math.NaN()
	if len(x) > 1 {
		s.Std = stat.StdDev(x, nil)
	}
	s.Min = floats.Min(x)
	s.Max = floats.Max(x)
	s.Q25 = Quantile(sorted, 0.25)
	s.Q50 = Quantile(sorted, 0.5)
	s.Q75 = Quantile(sorted, 0.75)
	return s
}

// Skewness is the adjusted Fisher-Pearson sample skewness; NaN below 3 values.
func Skewness(vals []float64) float64 {
	x := Finite(vals)
	if len(x) < 3 {
		return math.NaN()
	}
	return stat.Skew(x, nil)
}

// MeanStd returns the mean and population standard deviation.
func MeanStd(vals []float64) (mean, std float64) {
	if len(vals) == 0 {
		return math.NaN(), math.NaN()
	}
	return stat.PopMeanStdDev(vals, nil)
}

// Pearson computes the correlation of x and y over rows where both are present.
// It returns NaN when fewer than two pairs remain or either side is constant.
func Pearson(x, y []float64) float64 {
	var xs, ys []float64
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	if len(xs) < 2 {
		return math.NaN()
	}
	if floats.Min(xs) == floats.Max(xs) || floats.Min(ys) == floats.Max(ys) {
		return math.NaN()
	}
	r := stat.Correlation(xs, ys, nil)
	return math.Max(-1, math.Min(1, r))
}
