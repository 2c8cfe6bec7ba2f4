package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/estatefit-cli/internal/dataset"
	"github.com/KaramelBytes/estatefit-cli/internal/exporter"
	"github.com/KaramelBytes/estatefit-cli/internal/forest"
	"github.com/KaramelBytes/estatefit-cli/internal/runs"
)

// loadOptions resolves the input format from flags, falling back to config.
func loadOptions() (dataset.LoadOptions, error) {
	opt := dataset.DefaultLoadOptions()
	switch strings.ToLower(strings.TrimSpace(flagDelimiter)) {
	case "":
	case ",":
		opt.Delimiter = ','
	case ";":
		opt.Delimiter = ';'
	case "\t", "tab":
		opt.Delimiter = '\t'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", flagDelimiter)
	}
	opt.Sheet = flagSheet

	decimal := flagDecimal
	if decimal == "" && cfg != nil {
		decimal = cfg.DecimalSeparator
	}
	switch strings.ToLower(strings.TrimSpace(decimal)) {
	case "", ".", "dot":
		opt.Parse.DecimalSeparator = '.'
	case ",", "comma":
		opt.Parse.DecimalSeparator = ','
	case "auto":
		opt.Parse.DecimalSeparator = 0
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma'|'auto')", decimal)
	}

	thousands := flagThousands
	if thousands == "" && cfg != nil {
		thousands = cfg.ThousandsSeparator
	}
	switch strings.ToLower(thousands) {
	case "":
	case ",":
		opt.Parse.ThousandsSeparator = ','
	case ".":
		opt.Parse.ThousandsSeparator = '.'
	case " ", "space":
		opt.Parse.ThousandsSeparator = ' '
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", thousands)
	}
	return opt, nil
}

func loadFrame(path string) (*dataset.Frame, error) {
	if path == "" {
		return nil, fmt.Errorf("no dataset path given")
	}
	opt, err := loadOptions()
	if err != nil {
		return nil, err
	}
	f, err := dataset.Load(path, opt)
	if err != nil {
		return nil, err
	}
	rows, cols := f.Shape()
	logger.Debug("dataset loaded", zap.String("path", path), zap.Int("rows", rows), zap.Int("columns", cols))
	return f, nil
}

// featuresAndTarget drops the target and id columns from f and returns the
// remaining features together with the parsed target.
func featuresAndTarget(f *dataset.Frame, target, idColumn string) (*dataset.Frame, []float64, error) {
	if !f.Has(target) {
		return nil, nil, fmt.Errorf("%w: target %q in %s", dataset.ErrColumnNotFound, target, f.Name)
	}
	y, err := f.Target(target)
	if err != nil {
		return nil, nil, err
	}
	return f.Drop(target, idColumn), y, nil
}

// modelFlags are the forest overrides shared by train, validate and check.
type modelFlags struct {
	nEstimators     int
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int
	randomState     int64
	nJobs           int
	noBootstrap     bool
}

func (m *modelFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.IntVar(&m.nEstimators, "n-estimators", 0, "number of trees (overrides config)")
	f.IntVar(&m.maxDepth, "max-depth", 0, "maximum tree depth, 0 = unlimited (overrides config)")
	f.IntVar(&m.minSamplesSplit, "min-samples-split", 0, "minimum rows to split a node (overrides config)")
	f.IntVar(&m.minSamplesLeaf, "min-samples-leaf", 0, "minimum rows per leaf (overrides config)")
	f.IntVar(&m.maxFeatures, "max-features", 0, "features tried per split, 0 = all (overrides config)")
	f.Int64Var(&m.randomState, "random-state", 0, "seed for the split and the forest (overrides config)")
	f.IntVar(&m.nJobs, "n-jobs", 0, "parallel tree workers, -1 = all CPUs (overrides config)")
	f.BoolVar(&m.noBootstrap, "no-bootstrap", false, "fit every tree on all rows")
}

// params merges config with the flags the user actually set.
func (m *modelFlags) params(cmd *cobra.Command) forest.Params {
	p := forest.DefaultParams()
	p.NEstimators = cfg.NEstimators
	p.MaxDepth = cfg.MaxDepth
	p.MinSamplesSplit = cfg.MinSamplesSplit
	p.MinSamplesLeaf = cfg.MinSamplesLeaf
	p.MaxFeatures = cfg.MaxFeatures
	p.RandomState = cfg.RandomState
	p.NJobs = cfg.NJobs

	f := cmd.Flags()
	if f.Changed("n-estimators") {
		p.NEstimators = m.nEstimators
	}
	if f.Changed("max-depth") {
		p.MaxDepth = m.maxDepth
	}
	if f.Changed("min-samples-split") {
		p.MinSamplesSplit = m.minSamplesSplit
	}
	if f.Changed("min-samples-leaf") {
		p.MinSamplesLeaf = m.minSamplesLeaf
	}
	if f.Changed("max-features") {
		p.MaxFeatures = m.maxFeatures
	}
	if f.Changed("random-state") {
		p.RandomState = m.randomState
	}
	if f.Changed("n-jobs") {
		p.NJobs = m.nJobs
	}
	if f.Changed("no-bootstrap") && m.noBootstrap {
		p.Bootstrap = false
	}
	return p
}

// stringFlag returns the flag value when set, otherwise def.
func stringFlag(cmd *cobra.Command, name, val, def string) string {
	if cmd.Flags().Changed(name) {
		return val
	}
	return def
}

func intFlag(cmd *cobra.Command, name string, val, def int) int {
	if cmd.Flags().Changed(name) {
		return val
	}
	return def
}

func paramsMap(p forest.Params) map[string]any {
	b, err := json.Marshal(p)
	if err != nil {
		return nil
	}
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	return m
}

// recordRun stores r in the run registry. Registry failures are warnings.
func recordRun(ctx context.Context, r runs.Run) {
	if cfg.RunsDB == "" {
		return
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	store, err := runs.Open(cfg.RunsDB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: run registry unavailable: %v\n", err)
		return
	}
	defer store.Close()
	if err := store.Record(ctx, r); err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: %v\n", err)
		return
	}
	logger.Debug("run recorded", zap.String("id", r.ID), zap.String("kind", r.Kind), zap.String("db", store.Path()))
}

// exportMetrics writes the textfile gauges when metrics_file is configured.
func exportMetrics(observe func(m *exporter.Metrics)) {
	if cfg.MetricsFile == "" {
		return
	}
	m := exporter.New()
	observe(m)
	if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: write metrics: %v\n", err)
		return
	}
	logger.Debug("metrics written", zap.String("path", cfg.MetricsFile))
}
