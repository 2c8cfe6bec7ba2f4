package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/estatefit-cli/internal/dataset"
	"github.com/KaramelBytes/estatefit-cli/internal/evaluation"
	"github.com/KaramelBytes/estatefit-cli/internal/stats"
)

// Score is the per-fold values of one metric with their mean and population std.
type Score struct {
	Folds []float64 `json:"folds"`
	Mean  float64   `json:"mean"`
	Std   float64   `json:"std"`
}

func newScore(vals []float64) Score {
	m, s := stats.MeanStd(vals)
	return Score{Folds: vals, Mean: m, Std: s}
}

// CVResult holds k-fold scores.
type CVResult struct {
	K    int   `json:"k"`
	MAE  Score `json:"mae"`
	RMSE Score `json:"rmse"`
	R2   Score `json:"r2"`
}

// Mean returns the fold-averaged MAE, RMSE and R². MSE is left zero.
func (r CVResult) Mean() evaluation.Metrics {
	return evaluation.Metrics{MAE: r.MAE.Mean, RMSE: r.RMSE.Mean, R2: r.R2.Mean}
}

// CrossValidate fits an unfitted copy of p on each of k shuffled folds and
// scores it on the held-out rows. Column kinds are detected once on all of X.
// Folds run concurrently and each fold's forest runs its own tree workers.
func (p *Pipeline) CrossValidate(ctx context.Context, X *dataset.Frame, y []float64, k int, seed int64) (CVResult, error) {
	if X.NumRows() != len(y) {
		return CVResult{}, fmt.Errorf("cv: %d rows but %d labels", X.NumRows(), len(y))
	}
	folds, err := dataset.KFold(X.NumRows(), k, true, seed)
	if err != nil {
		return CVResult{}, fmt.Errorf("cv: %w", err)
	}
	metrics := make([]evaluation.Metrics, k)
	base := p.clone()
	if base.Meta.NumericColumns == nil && base.Meta.CategoricalColumns == nil {
		base.Meta.NumericColumns, base.Meta.CategoricalColumns = X.SplitKinds()
	}

	eg, egCtx := errgroup.WithContext(ctx)
	for i, fold := range folds {
		eg.Go(func() error {
			fp := base.clone()
			if err := fp.Fit(egCtx, X.Select(fold.Train), dataset.Pick(y, fold.Train)); err != nil {
				return fmt.Errorf("fold %d: %w", i+1, err)
			}
			m, err := fp.Score(egCtx, X.Select(fold.Test), dataset.Pick(y, fold.Test))
			if err != nil {
				return fmt.Errorf("fold %d: %w", i+1, err)
			}
			metrics[i] = m
			p.logger().Info("cv fold scored",
				zap.Int("fold", i+1),
				zap.Float64("mae", m.MAE),
				zap.Float64("rmse", m.RMSE),
				zap.Float64("r2", m.R2))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return CVResult{}, fmt.Errorf("cv: %w", err)
	}

	mae := make([]float64, k)
	rmse := make([]float64, k)
	r2 := make([]float64, k)
	for i, m := range metrics {
		mae[i], rmse[i], r2[i] = m.MAE, m.RMSE, m.R2
	}
	return CVResult{K: k, MAE: newScore(mae), RMSE: newScore(rmse), R2: newScore(r2)}, nil
}
