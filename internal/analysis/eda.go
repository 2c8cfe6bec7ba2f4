package analysis

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/KaramelBytes/estatefit-cli/internal/dataset"
	"github.com/KaramelBytes/estatefit-cli/internal/stats"
	"github.com/KaramelBytes/estatefit-cli/internal/utils"
)

// EDAOptions selects the columns the file report looks at.
type EDAOptions struct {
	Target             string
	CategoricalColumns []string
	AreaColumns        []string
	Logger             *zap.Logger
}

// AreaPercentiles are written for every configured area column.
var AreaPercentiles = []float64{0.01, 0.05, 0.95, 0.99}

// WriteEDAReport writes the EDA tables as CSV files into dir and returns
// their paths in write order.
func WriteEDAReport(f *dataset.Frame, dir string, opt EDAOptions) ([]string, error) {
	log := opt.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if err := utils.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("ensure dir: %w", err)
	}
	var written []string
	save := func(name string, rows [][]string) error {
		path := filepath.Join(dir, name)
		if err := utils.WriteCSV(path, rows); err != nil {
			return err
		}
		log.Debug("eda table written", zap.String("path", path), zap.Int("rows", len(rows)-1))
		written = append(written, path)
		return nil
	}

	n, ncol := f.Shape()
	hasTarget := opt.Target != "" && f.Has(opt.Target)
	if err := save("dataset_summary.csv", [][]string{
		{"rows", "columns", "target_present"},
		{strconv.Itoa(n), strconv.Itoa(ncol), titleBool(hasTarget)},
	}); err != nil {
		return written, err
	}

	if err := save("missing_values.csv", missingTable(f)); err != nil {
		return written, err
	}

	if err := save("duplicates.csv", [][]string{{"duplicate_rows"}, {strconv.Itoa(f.DuplicateRows())}}); err != nil {
		return written, err
	}

	targetNumeric := false
	if hasTarget {
		kind, _ := f.Kind(opt.Target)
		targetNumeric = kind == dataset.KindNumeric
	}
	if hasTarget && targetNumeric {
		price, err := f.Floats(opt.Target)
		if err != nil {
			return written, err
		}
		if err := save("price_skewness.csv", [][]string{
			{"price_skewness_raw"},
			{formatFloat(stats.Skewness(price))},
		}); err != nil {
			return written, err
		}
	}

	numCols, _ := f.SplitKinds()
	if hasTarget && targetNumeric && len(numCols) > 0 {
		values := make(map[string][]float64, len(numCols))
		for _, c := range numCols {
			v, err := f.Floats(c)
			if err != nil {
				return written, err
			}
			values[c] = v
		}
		cm := Correlations(numCols, values)
		rows := [][]string{append([]string{"feature"}, numCols...)}
		for i, c := range numCols {
			row := []string{c}
			for j := range numCols {
				row = append(row, formatFloat(cm.Values[i][j]))
			}
			rows = append(rows, row)
		}
		if err := save("correlation_matrix.csv", rows); err != nil {
			return written, err
		}
	}

	for _, col := range opt.CategoricalColumns {
		if !f.Has(col) {
			continue
		}
		cells, _ := f.Column(col)
		rows := [][]string{{col, "count"}}
		for _, vc := range ValueCounts(cells, true) {
			rows = append(rows, []string{vc.Value, strconv.Itoa(vc.Count)})
		}
		if err := save("value_counts_"+col+".csv", rows); err != nil {
			return written, err
		}
	}

	if hasTarget {
		for _, col := range opt.AreaColumns {
			if !f.Has(col) {
				continue
			}
			vals, err := f.Floats(col)
			if err != nil {
				log.Warn("skipping non-numeric area column", zap.String("column", col), zap.Error(err))
				continue
			}
			sorted := stats.Sorted(stats.Finite(vals))
			rows := [][]string{{"percentile", "value"}}
			for _, q := range AreaPercentiles {
				rows = append(rows, []string{formatFloat(q), formatFloat(stats.Quantile(sorted, q))})
			}
			if err := save("percentiles_"+col+".csv", rows); err != nil {
				return written, err
			}
		}
	}
	return written, nil
}

// missingTable lists missing counts by column, highest first; ties keep header order.
func missingTable(f *dataset.Frame) [][]string {
	type miss struct {
		name  string
		count int
	}
	cols := f.Columns()
	ms := make([]miss, len(cols))
	for i, c := range cols {
		n, _ := f.MissingCount(c)
		ms[i] = miss{c, n}
	}
	sort.SliceStable(ms, func(i, j int) bool { return ms[i].count > ms[j].count })
	rows := [][]string{{"feature", "missing_count", "missing_percent"}}
	total := f.NumRows()
	for _, m := range ms {
		pct := 0.0
		if total > 0 {
			pct = math.Round(float64(m.count)/float64(total)*100*1000) / 1000
		}
		rows = append(rows, []string{m.name, strconv.Itoa(m.count), formatFloat(pct)})
	}
	return rows
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func titleBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
