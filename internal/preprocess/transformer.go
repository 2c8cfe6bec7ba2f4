// Package preprocess turns a raw feature frame into a dense numeric matrix:
// median imputation for numeric columns, most-frequent imputation followed by
// one-hot encoding for categorical columns.
package preprocess

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/KaramelBytes/estatefit-cli/internal/dataset"
	"github.com/KaramelBytes/estatefit-cli/internal/stats"
)

// ErrNotFitted is returned by Transform before Fit.
var ErrNotFitted = errors.New("preprocess: transformer not fitted")

// MissingCategory fills categorical columns that have no observed value.
const MissingCategory = "missing"

// NumericColumn is a fitted median imputer.
type NumericColumn struct {
	Name   string
	Median float64
}

// CategoricalColumn is a fitted most-frequent imputer plus one-hot encoder.
type CategoricalColumn struct {
	Name       string
	Fill       string
	Categories []string
}

// ColumnTransformer applies per-column preprocessing. Numeric outputs come
// first, then one one-hot block per categorical column.
type ColumnTransformer struct {
	Numeric     []NumericColumn
	Categorical []CategoricalColumn
	Fitted      bool

	log *zap.Logger
}

// Option configures a ColumnTransformer.
type Option func(*ColumnTransformer)

// WithLogger sets the logger used for fit-time warnings.
func WithLogger(l *zap.Logger) Option {
	return func(ct *ColumnTransformer) {
		if l != nil {
			ct.log = l
		}
	}
}

// New returns an unfitted transformer over the given columns.
func New(numeric, categorical []string, opts ...Option) *ColumnTransformer {
	ct := &ColumnTransformer{log: zap.NewNop()}
	for _, n := range numeric {
		ct.Numeric = append(ct.Numeric, NumericColumn{Name: n})
	}
	for _, c := range categorical {
		ct.Categorical = append(ct.Categorical, CategoricalColumn{Name: c})
	}
	for _, o := range opts {
		o(ct)
	}
	return ct
}

// SetLogger replaces the logger, e.g. after the transformer was decoded.
func (ct *ColumnTransformer) SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	ct.log = l
}

func (ct *ColumnTransformer) logger() *zap.Logger {
	if ct.log == nil {
		return zap.NewNop()
	}
	return ct.log
}

// Fit learns medians, fill values and category vocabularies from f.
func (ct *ColumnTransformer) Fit(f *dataset.Frame) error {
	if f.NumRows() == 0 {
		return errors.New("preprocess: cannot fit on an empty frame")
	}
	for i := range ct.Numeric {
		col := &ct.Numeric[i]
		vals, err := f.Floats(col.Name)
		if err != nil {
			return fmt.Errorf("preprocess: fit %s: %w", col.Name, err)
		}
		present := stats.Finite(vals)
		if len(present) == 0 {
			ct.logger().Warn("numeric column has no observed values; imputing 0", zap.String("column", col.Name))
			col.Median = 0
			continue
		}
		col.Median = stats.Median(present)
	}
	for i := range ct.Categorical {
		col := &ct.Categorical[i]
		cells, err := f.Column(col.Name)
		if err != nil {
			return fmt.Errorf("preprocess: fit %s: %w", col.Name, err)
		}
		col.Fill = mostFrequent(cells)
		if col.Fill == MissingCategory {
			ct.logger().Warn("categorical column has no observed values", zap.String("column", col.Name))
		}
		seen := map[string]struct{}{}
		for _, c := range cells {
			if dataset.IsMissing(c) {
				c = col.Fill
			}
			seen[c] = struct{}{}
		}
		col.Categories = make([]string, 0, len(seen))
		for c := range seen {
			col.Categories = append(col.Categories, c)
		}
		sort.Strings(col.Categories)
	}
	ct.Fitted = true
	ct.logger().Debug("column transformer fitted",
		zap.Int("numeric", len(ct.Numeric)),
		zap.Int("categorical", len(ct.Categorical)),
		zap.Int("features_out", ct.NumFeatures()))
	return nil
}

// Transform encodes f into an (rows x NumFeatures) matrix.
func (ct *ColumnTransformer) Transform(f *dataset.Frame) (*mat.Dense, error) {
	if !ct.Fitted {
		return nil, ErrNotFitted
	}
	for _, name := range ct.InputColumns() {
		if !f.Has(name) {
			return nil, fmt.Errorf("preprocess: feature columns must match the fitted frame: %w: %s", dataset.ErrColumnNotFound, name)
		}
	}
	n := f.NumRows()
	p := ct.NumFeatures()
	if n == 0 {
		return nil, errors.New("preprocess: no rows to transform")
	}
	if p == 0 {
		return nil, errors.New("preprocess: no features to transform")
	}
	data := make([]float64, n*p)
	off := 0
	for _, col := range ct.Numeric {
		vals, err := f.Floats(col.Name)
		if err != nil {
			return nil, fmt.Errorf("preprocess: transform %s: %w", col.Name, err)
		}
		for i, v := range vals {
			if math.IsNaN(v) {
				v = col.Median
			}
			data[i*p+off] = v
		}
		off++
	}
	for _, col := range ct.Categorical {
		cells, err := f.Column(col.Name)
		if err != nil {
			return nil, fmt.Errorf("preprocess: transform %s: %w", col.Name, err)
		}
		for i, c := range cells {
			if dataset.IsMissing(c) {
				c = col.Fill
			}
			k := sort.SearchStrings(col.Categories, c)
			if k < len(col.Categories) && col.Categories[k] == c {
				data[i*p+off+k] = 1
			}
		}
		off += len(col.Categories)
	}
	return mat.NewDense(n, p, data), nil
}

// FitTransform fits on f and returns its encoding.
func (ct *ColumnTransformer) FitTransform(f *dataset.Frame) (*mat.Dense, error) {
	if err := ct.Fit(f); err != nil {
		return nil, err
	}
	return ct.Transform(f)
}

// NumFeatures is the width of the transformed matrix.
func (ct *ColumnTransformer) NumFeatures() int {
	n := len(ct.Numeric)
	for _, c := range ct.Categorical {
		n += len(c.Categories)
	}
	return n
}

// InputColumns lists the raw columns the transformer consumes.
func (ct *ColumnTransformer) InputColumns() []string {
	out := make([]string, 0, len(ct.Numeric)+len(ct.Categorical))
	for _, c := range ct.Numeric {
		out = append(out, c.Name)
	}
	for _, c := range ct.Categorical {
		out = append(out, c.Name)
	}
	return out
}

// FeatureNamesOut names each output column: num__<col> and cat__<col>_<category>.
func (ct *ColumnTransformer) FeatureNamesOut() []string {
	out := make([]string, 0, ct.NumFeatures())
	for _, c := range ct.Numeric {
		out = append(out, "num__"+c.Name)
	}
	for _, c := range ct.Categorical {
		for _, cat := range c.Categories {
			out = append(out, "cat__"+c.Name+"_"+cat)
		}
	}
	return out
}

// mostFrequent returns the modal non-missing value; ties go to the smallest.
func mostFrequent(cells []string) string {
	counts := map[string]int{}
	for _, c := range cells {
		if dataset.IsMissing(c) {
			continue
		}
		counts[c]++
	}
	if len(counts) == 0 {
		return MissingCategory
	}
	best, bestN := "", -1
	for v, n := range counts {
		if n > bestN || (n == bestN && v < best) {
			best, bestN = v, n
		}
	}
	return best
}
