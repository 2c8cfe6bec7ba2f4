package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuantileLinear(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}
	assert.InDelta(t, 1.75, Quantile(sorted, 0.25), 1e-12)
	assert.InDelta(t, 2.5, Quantile(sorted, 0.5), 1e-12)
	assert.InDelta(t, 3.97, Quantile(sorted, 0.99), 1e-12)
	assert.Equal(t, 1.0, Quantile(sorted, 0))
	assert.Equal(t, 4.0, Quantile(sorted, 1))
	assert.True(t, math.IsNaN(Quantile(nil, 0.5)))
}

func TestMedianAndMAD(t *testing.T) {
	assert.Equal(t, 3.0, Median([]float64{5, 1, 3}))
	m, mad := MedianMAD([]float64{1, 1, 2, 2, 4, 6, 9})
	assert.Equal(t, 2.0, m)
	assert.Equal(t, 1.0, mad)
}

func TestRobustOutliers(t *testing.T) {
	vals := []float64{10, 11, 9.5, 10.5, 9.8, 10.2, 8.8, 9.7, 50}
	n, maxZ := RobustOutliers(vals, 3.5)
	assert.Equal(t, 1, n)
	assert.Greater(t, maxZ, 3.5)

	n, _ = RobustOutliers([]float64{2, 2, 2, 2}, 3.5)
	assert.Zero(t, n)
}

func TestDescribe(t *testing.T) {
	s := Describe([]float64{1, 2, math.NaN(), 3, 4})
	assert.Equal(t, 4, s.Count)
	assert.InDelta(t, 2.5, s.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(5.0/3.0), s.Std, 1e-12)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 4.0, s.Max)
	assert.InDelta(t, 1.75, s.Q25, 1e-12)
	assert.InDelta(t, 3.25, s.Q75, 1e-12)

	empty := Describe([]float64{math.NaN()})
	assert.Zero(t, empty.Count)
	assert.True(t, math.IsNaN(empty.Mean))
}

func TestSkewnessSymmetric(t *testing.T) {
	assert.InDelta(t, 0, Skewness([]float64{1, 2, 3, 4, 5}), 1e-12)
	assert.Greater(t, Skewness([]float64{1, 1, 1, 2, 10}), 0.0)
	assert.True(t, math.IsNaN(Skewness([]float64{1, 2})))
}

func TestMeanStdPopulation(t *testing.T) {
	m, s := MeanStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 5, m, 1e-12)
	assert.InDelta(t, 2, s, 1e-12)
}

func TestPearson(t *testing.T) {
	x := []float64{1, 2, 3, math.NaN(), 5}
	y := []float64{2, 4, 6, 100, 10}
	assert.InDelta(t, 1, Pearson(x, y), 1e-12)
	assert.True(t, math.IsNaN(Pearson([]float64{1, 1, 1}, []float64{1, 2, 3})))
}
