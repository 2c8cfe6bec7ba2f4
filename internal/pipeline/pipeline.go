// Package pipeline composes column preprocessing and the forest regressor
// into one unit that is fit, persisted and applied together.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KaramelBytes/estatefit-cli/internal/dataset"
	"github.com/KaramelBytes/estatefit-cli/internal/evaluation"
	"github.com/KaramelBytes/estatefit-cli/internal/forest"
	"github.com/KaramelBytes/estatefit-cli/internal/preprocess"
)

// Meta describes a fitted pipeline. It is stored in the artifact and in the
// JSON sidecar next to it.
type Meta struct {
	RunID              string              `json:"run_id"`
	CreatedAt          time.Time           `json:"created_at"`
	Dataset            string              `json:"dataset,omitempty"`
	Target             string              `json:"target"`
	IDColumn           string              `json:"id_column,omitempty"`
	NumericColumns     []string            `json:"numeric_columns"`
	CategoricalColumns []string            `json:"categorical_columns"`
	NumFeaturesOut     int                 `json:"num_features_out"`
	TrainRows          int                 `json:"train_rows"`
	Params             forest.Params       `json:"params"`
	Validation         *evaluation.Metrics `json:"validation,omitempty"`
	FitSeconds         float64             `json:"fit_seconds"`
}

// Pipeline is preprocessing plus regressor.
type Pipeline struct {
	Meta        Meta
	Transformer *preprocess.ColumnTransformer
	Model       *forest.Regressor

	log *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger shared by the pipeline stages.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// WithTarget records the label column the pipeline predicts.
func WithTarget(name string) Option { return func(p *Pipeline) { p.Meta.Target = name } }

// WithIDColumn records the identifier column dropped before fitting.
func WithIDColumn(name string) Option { return func(p *Pipeline) { p.Meta.IDColumn = name } }

// WithColumns fixes the numeric and categorical feature lists instead of
// detecting them at Fit time.
func WithColumns(numeric, categorical []string) Option {
	return func(p *Pipeline) {
		p.Meta.NumericColumns = numeric
		p.Meta.CategoricalColumns = categorical
	}
}

// WithDataset records the training file name.
func WithDataset(name string) Option { return func(p *Pipeline) { p.Meta.Dataset = name } }

// New returns an unfitted pipeline with the given forest parameters.
func New(params forest.Params, opts ...Option) *Pipeline {
	p := &Pipeline{log: zap.NewNop()}
	p.Meta.Params = params
	for _, o := range opts {
		o(p)
	}
	return p
}

// SetLogger re-attaches a logger, e.g. after Load.
func (p *Pipeline) SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	p.log = l
	if p.Transformer != nil {
		p.Transformer.SetLogger(l)
	}
	if p.Model != nil {
		p.Model.SetLogger(l)
	}
}

func (p *Pipeline) logger() *zap.Logger {
	if p.log == nil {
		return zap.NewNop()
	}
	return p.log
}

// Fitted reports whether both stages are fitted.
func (p *Pipeline) Fitted() bool {
	return p.Transformer != nil && p.Transformer.Fitted && p.Model != nil && p.Model.Fitted()
}

// clone returns an unfitted pipeline with the same configuration.
func (p *Pipeline) clone() *Pipeline {
	c := &Pipeline{log: p.log}
	c.Meta.Target = p.Meta.Target
	c.Meta.IDColumn = p.Meta.IDColumn
	c.Meta.Dataset = p.Meta.Dataset
	c.Meta.Params = p.Meta.Params
	c.Meta.NumericColumns = p.Meta.NumericColumns
	c.Meta.CategoricalColumns = p.Meta.CategoricalColumns
	return c
}

// Fit fits the transformer and then the forest. Column kinds are detected on
// X unless they were fixed with WithColumns. X must already exclude the
// target and id columns.
func (p *Pipeline) Fit(ctx context.Context, X *dataset.Frame, y []float64) error {
	if X.NumRows() == 0 {
		return errors.New("pipeline: no training rows")
	}
	if X.NumRows() != len(y) {
		return fmt.Errorf("pipeline: %d rows but %d labels", X.NumRows(), len(y))
	}
	start := time.Now()
	numeric, categorical := p.Meta.NumericColumns, p.Meta.CategoricalColumns
	if numeric == nil && categorical == nil {
		numeric, categorical = X.SplitKinds()
	}
	ct := preprocess.New(numeric, categorical, preprocess.WithLogger(p.logger()))
	Xt, err := ct.FitTransform(X)
	if err != nil {
		return fmt.Errorf("pipeline: preprocess: %w", err)
	}
	model := forest.New(p.Meta.Params, forest.WithLogger(p.logger()))
	if err := model.Fit(ctx, Xt, y); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	p.Transformer = ct
	p.Model = model
	p.Meta.RunID = uuid.NewString()
	p.Meta.CreatedAt = time.Now().UTC()
	p.Meta.NumericColumns = numeric
	p.Meta.CategoricalColumns = categorical
	p.Meta.NumFeaturesOut = ct.NumFeatures()
	p.Meta.TrainRows = X.NumRows()
	p.Meta.FitSeconds = time.Since(start).Seconds()
	p.logger().Info("pipeline fitted",
		zap.String("run_id", p.Meta.RunID),
		zap.Int("rows", p.Meta.TrainRows),
		zap.Int("numeric", len(numeric)),
		zap.Int("categorical", len(categorical)),
		zap.Int("features_out", p.Meta.NumFeaturesOut),
		zap.Float64("fit_seconds", p.Meta.FitSeconds))
	return nil
}

// Predict preprocesses X with the fitted transformer and predicts.
func (p *Pipeline) Predict(ctx context.Context, X *dataset.Frame) ([]float64, error) {
	if !p.Fitted() {
		return nil, fmt.Errorf("pipeline: %w", preprocess.ErrNotFitted)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	Xt, err := p.Transformer.Transform(X)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	return p.Model.Predict(Xt)
}

// Score predicts X and compares against y.
func (p *Pipeline) Score(ctx context.Context, X *dataset.Frame, y []float64) (evaluation.Metrics, error) {
	pred, err := p.Predict(ctx, X)
	if err != nil {
		return evaluation.Metrics{}, err
	}
	return evaluation.Summarize(y, pred)
}

// FeatureNames returns the transformed feature names.
func (p *Pipeline) FeatureNames() []string {
	if p.Transformer == nil {
		return nil
	}
	return p.Transformer.FeatureNamesOut()
}
