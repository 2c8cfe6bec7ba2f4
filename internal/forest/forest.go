// Package forest implements a bagged ensemble of CART regression trees.
package forest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrNotFitted is returned by Predict and FeatureImportances before Fit.
var ErrNotFitted = errors.New("forest: regressor not fitted")

// Params are the forest hyperparameters.
type Params struct {
	NEstimators     int   `json:"n_estimators"`
	MaxDepth        int   `json:"max_depth"`         // 0 => unlimited
	MinSamplesSplit int   `json:"min_samples_split"`
	MinSamplesLeaf  int   `json:"min_samples_leaf"`
	MaxFeatures     int   `json:"max_features"`      // 0 => all features
	Bootstrap       bool  `json:"bootstrap"`
	RandomState     int64 `json:"random_state"`
	NJobs           int   `json:"n_jobs"`            // -1 => GOMAXPROCS
}

// DefaultParams mirrors the training scripts: 400 trees, seed 42, all CPUs.
func DefaultParams() Params {
	return Params{
		NEstimators:     400,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Bootstrap:       true,
		RandomState:     42,
		NJobs:           -1,
	}
}

// Regressor is a random forest regressor.
type Regressor struct {
	Params      Params
	NFeatures   int
	Trees       []Tree
	Importances []float64

	log *zap.Logger
}

// Option configures a Regressor.
type Option func(*Regressor)

// WithLogger sets the logger for fit progress.
func WithLogger(l *zap.Logger) Option {
	return func(r *Regressor) {
		if l != nil {
			r.log = l
		}
	}
}

// WithNJobs overrides the worker count.
func WithNJobs(n int) Option { return func(r *Regressor) { r.Params.NJobs = n } }

// New returns an unfitted regressor.
func New(p Params, opts ...Option) *Regressor {
	r := &Regressor{Params: p, log: zap.NewNop()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// SetLogger replaces the logger, e.g. after decoding.
func (r *Regressor) SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	r.log = l
}

func (r *Regressor) logger() *zap.Logger {
	if r.log == nil {
		return zap.NewNop()
	}
	return r.log
}

// Fitted reports whether Fit has completed.
func (r *Regressor) Fitted() bool { return len(r.Trees) > 0 }

func (r *Regressor) workers() int {
	n := r.Params.NJobs
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	return n
}

// Fit trains the forest on X (n x p) and y. Trees are built concurrently;
// each tree's seed is drawn up front so the result is independent of NJobs.
func (r *Regressor) Fit(ctx context.Context, X mat.Matrix, y []float64) error {
	n, p := X.Dims()
	if n == 0 || p == 0 {
		return errors.New("forest: empty X")
	}
	if len(y) != n {
		return fmt.Errorf("forest: X has %d rows but y has %d", n, len(y))
	}
	if r.Params.NEstimators < 1 {
		return fmt.Errorf("forest: n_estimators must be >= 1, got %d", r.Params.NEstimators)
	}
	data := make([]float64, 0, n*p)
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			v := X.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("forest: non-finite X value at row %d col %d", i, j)
			}
			data = append(data, v)
		}
	}
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("forest: non-finite y value at row %d", i)
		}
	}

	seeder := rand.New(rand.NewSource(r.Params.RandomState))
	seeds := make([]int64, r.Params.NEstimators)
	for i := range seeds {
		seeds[i] = seeder.Int63()
	}

	start := time.Now()
	trees := make([]Tree, r.Params.NEstimators)
	decreases := make([][]float64, r.Params.NEstimators)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(r.workers())
	for t := range trees {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(seeds[t]))
			idx := make([]int, n)
			for j := range idx {
				if r.Params.Bootstrap {
					idx[j] = rng.Intn(n)
				} else {
					idx[j] = j
				}
			}
			b := newTreeBuilder(data, p, y, r.Params, rng)
			b.grow(idx, 0)
			trees[t] = Tree{Nodes: b.nodes}
			decreases[t] = b.decrease
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return fmt.Errorf("forest: fit: %w", err)
	}

	r.Trees = trees
	r.NFeatures = p
	r.Importances = aggregateImportances(decreases, p)
	r.logger().Debug("forest fitted",
		zap.Int("trees", len(trees)),
		zap.Int("rows", n),
		zap.Int("features", p),
		zap.Int("workers", r.workers()),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// aggregateImportances normalizes each tree's impurity decrease, averages
// across trees and renormalizes to sum to 1.
func aggregateImportances(decreases [][]float64, p int) []float64 {
	out := make([]float64, p)
	for _, d := range decreases {
		s := floats.Sum(d)
		if s <= 0 {
			continue
		}
		for j, v := range d {
			out[j] += v / s
		}
	}
	floats.Scale(1/float64(len(decreases)), out)
	if s := floats.Sum(out); s > 0 {
		floats.Scale(1/s, out)
	}
	return out
}

// Predict returns the mean tree prediction for every row of X.
func (r *Regressor) Predict(X mat.Matrix) ([]float64, error) {
	if !r.Fitted() {
		return nil, ErrNotFitted
	}
	n, p := X.Dims()
	if p != r.NFeatures {
		return nil, fmt.Errorf("forest: X has %d features, model expects %d", p, r.NFeatures)
	}
	out := make([]float64, n)
	row := make([]float64, p)
	for i := 0; i < n; i++ {
		mat.Row(row, i, X)
		out[i] = r.predictRow(row)
	}
	return out, nil
}

// PredictRow predicts a single encoded feature row.
func (r *Regressor) PredictRow(row []float64) (float64, error) {
	if !r.Fitted() {
		return 0, ErrNotFitted
	}
	if len(row) != r.NFeatures {
		return 0, fmt.Errorf("forest: row has %d features, model expects %d", len(row), r.NFeatures)
	}
	return r.predictRow(row), nil
}

func (r *Regressor) predictRow(row []float64) float64 {
	var s float64
	for i := range r.Trees {
		s += r.Trees[i].Predict(row)
	}
	return s / float64(len(r.Trees))
}

// FeatureImportances returns a copy of the impurity-based importances.
func (r *Regressor) FeatureImportances() ([]float64, error) {
	if !r.Fitted() {
		return nil, ErrNotFitted
	}
	out := make([]float64, len(r.Importances))
	copy(out, r.Importances)
	return out, nil
}

// MaxDepth reports the deepest tree in the forest.
func (r *Regressor) MaxDepth() int {
	d := 0
	for i := range r.Trees {
		if td := r.Trees[i].Depth(); td > d {
			d = td
		}
	}
	return d
}
