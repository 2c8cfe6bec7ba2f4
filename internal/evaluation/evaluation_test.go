package evaluation

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	y := []float64{3, -0.5, 2, 7}
	p := []float64{2.5, 0.0, 2, 8}

	m, err := Summarize(y, p)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, m.MAE, 1e-12)
	assert.InDelta(t, 0.375, m.MSE, 1e-12)
	assert.InDelta(t, math.Sqrt(0.375), m.RMSE, 1e-12)
	assert.InDelta(t, 0.9486081370449679, m.R2, 1e-12)
}

func TestR2ConstantTargetIsZero(t *testing.T) {
	r2, err := R2([]float64{4, 4, 4}, []float64{1, 2, 3})
	require.NoError(t, err)
	assert.Zero(t, r2)
}

func TestMetricsInputErrors(t *testing.T) {
	_, err := MAE(nil, nil)
	require.Error(t, err)
	_, err = Summarize([]float64{1, 2}, []float64{1})
	require.ErrorContains(t, err, "length mismatch")
}

func TestRatingTiers(t *testing.T) {
	assert.Equal(t, Excellent, RateR2(0.90))
	assert.Equal(t, VeryGood, RateR2(0.85))
	assert.Equal(t, Good, RateR2(0.80))
	assert.Equal(t, Acceptable, RateR2(0.79))

	assert.Equal(t, Excellent, RateMAEPercent(9.9))
	assert.Equal(t, VeryGood, RateMAEPercent(10))
	assert.Equal(t, Good, RateMAEPercent(15))

	assert.Equal(t, Excellent, Grade(0.86, 14))
	assert.Equal(t, VeryGood, Grade(0.86, 16))
	assert.Equal(t, VeryGood, Grade(0.81, 19))
	assert.Equal(t, Good, Grade(0.79, 5))
}

func TestAccuracyReport(t *testing.T) {
	valTrue := []float64{100, 200, 300, 400, 0}
	valPred := []float64{105, 180, 360, 400, 10}
	rep, err := NewAccuracyReport([]float64{1, 2}, []float64{1, 2}, valTrue, valPred, 200)
	require.NoError(t, err)

	assert.Equal(t, 1.0, rep.Train.R2)
	assert.InDelta(t, 19, rep.Validation.MAE, 1e-12)
	assert.InDelta(t, 9.5, rep.MAEPercent, 1e-12)
	assert.Len(t, rep.Samples, 5)
	assert.InDelta(t, 10, rep.Samples[1].ErrorPct, 1e-12)

	assert.Equal(t, ErrorStats{Min: -60, Max: 20, Mean: -11, Median: -5}, rep.Errors)
	// errors: 5%, 10%, 20%, 0%, and an undefined ratio for the zero price
	require.Len(t, rep.Within, 3)
	assert.Equal(t, 3, rep.Within[0].Count)
	assert.Equal(t, 3, rep.Within[1].Count)
	assert.Equal(t, 4, rep.Within[2].Count)
	assert.InDelta(t, 80, rep.Within[2].Percent, 1e-12)

	var buf bytes.Buffer
	rep.Render(&buf, "RUB")
	out := buf.String()
	assert.Contains(t, out, "OVERALL GRADE")
	assert.Contains(t, out, "Within ±20%: 4 samples (80.0%)")
	assert.Contains(t, out, "19.00 RUB")
	assert.NotContains(t, out, "MODEL INFORMATION")

	rep.Model = &ModelInfo{Trees: 400, RandomState: 42, NJobs: -1, Numeric: 12, Categorical: 5, TestSize: 0.2, CVFolds: 5, SizeBytes: 2500000}
	buf.Reset()
	rep.Render(&buf, "RUB")
	out = buf.String()
	assert.Contains(t, out, "Number of trees: 400")
	assert.Contains(t, out, "Max depth:       unlimited")
	assert.Contains(t, out, "CPU cores:       all available")
	assert.Contains(t, out, "Model size:      2.5 MB")
	assert.Contains(t, out, "Numerical features (12)")
	assert.Contains(t, out, "Categorical features (5)")
	assert.Contains(t, out, "Data split: 80% train, 20% validation")
	assert.Contains(t, out, "Cross-validation: 5-fold")
}

func TestFormatThousands(t *testing.T) {
	assert.Equal(t, "1,234,567.89", FormatThousands(1234567.891, 2))
	assert.Equal(t, "-1,000", FormatThousands(-1000, 0))
	assert.Equal(t, "999", FormatThousands(999, 0))
	assert.Equal(t, "-0.00", FormatThousands(-0.001, 2))
	assert.Equal(t, "5,200,000", FormatThousands(5199999.6, 0))
	assert.Equal(t, "NaN", FormatThousands(math.NaN(), 2))
}

func TestAccuracyReportZeroMeanPrice(t *testing.T) {
	rep, err := NewAccuracyReport([]float64{1}, []float64{1}, []float64{-10, 10}, []float64{-5, 5}, 0)
	require.NoError(t, err)
	assert.True(t, math.IsInf(rep.MAEPercent, 1))
	assert.Equal(t, Good, rep.MAERating)
	assert.Equal(t, Good, rep.OverallGrade)
}

func TestAccuracyReportPerfectFit(t *testing.T) {
	y := []float64{100, 200, 300}
	rep, err := NewAccuracyReport(y, y, y, y, 200)
	require.NoError(t, err)
	assert.Zero(t, rep.MAEPercent)
	assert.True(t, math.IsNaN(rep.RMSEToMAE))
	assert.False(t, rep.Consistent)

	var buf bytes.Buffer
	rep.Render(&buf, "RUB")
	assert.Contains(t, buf.String(), "RMSE/MAE ratio: NaN -> some large outlier errors exist")
}
