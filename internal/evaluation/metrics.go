// Package evaluation scores regression predictions.
package evaluation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Metrics bundles the regression scores reported by every command.
type Metrics struct {
	MAE  float64 `json:"mae"`
	MSE  float64 `json:"mse"`
	RMSE float64 `json:"rmse"`
	R2   float64 `json:"r2"`
}

func checkLengths(yTrue, yPred []float64) error {
	if len(yTrue) == 0 {
		return fmt.Errorf("evaluation: empty input")
	}
	if len(yTrue) != len(yPred) {
		return fmt.Errorf("evaluation: length mismatch: %d actual vs %d predicted", len(yTrue), len(yPred))
	}
	return nil
}

// MAE is the mean absolute error.
func MAE(yTrue, yPred []float64) (float64, error) {
	if err := checkLengths(yTrue, yPred); err != nil {
		return 0, err
	}
	var s float64
	for i := range yTrue {
		s += math.Abs(yTrue[i] - yPred[i])
	}
	return s / float64(len(yTrue)), nil
}

// MSE is the mean squared error.
func MSE(yTrue, yPred []float64) (float64, error) {
	if err := checkLengths(yTrue, yPred); err != nil {
		return 0, err
	}
	var s float64
	for i := range yTrue {
		d := yTrue[i] - yPred[i]
		s += d * d
	}
	return s / float64(len(yTrue)), nil
}

// RMSE is the square root of MSE.
func RMSE(yTrue, yPred []float64) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// R2 is the coefficient of determination. A constant yTrue scores 0.
func R2(yTrue, yPred []float64) (float64, error) {
	if err := checkLengths(yTrue, yPred); err != nil {
		return 0, err
	}
	mean := stat.Mean(yTrue, nil)
	var ssRes, ssTot float64
	for i := range yTrue {
		d := yTrue[i] - yPred[i]
		ssRes += d * d
		m := yTrue[i] - mean
		ssTot += m * m
	}
	if ssTot == 0 {
		return 0, nil
	}
	return 1 - ssRes/ssTot, nil
}

// Summarize computes every metric for one prediction set.
func Summarize(yTrue, yPred []float64) (Metrics, error) {
	var m Metrics
	var err error
	if m.MAE, err = MAE(yTrue, yPred); err != nil {
		return Metrics{}, err
	}
	if m.MSE, err = MSE(yTrue, yPred); err != nil {
		return Metrics{}, err
	}
	m.RMSE = math.Sqrt(m.MSE)
	if m.R2, err = R2(yTrue, yPred); err != nil {
		return Metrics{}, err
	}
	return m, nil
}
