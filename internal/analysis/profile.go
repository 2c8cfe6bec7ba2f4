package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/estatefit-cli/internal/dataset"
	"github.com/KaramelBytes/estatefit-cli/internal/stats"
)

// MissingLabel replaces missing categorical cells in counts and group keys.
const MissingLabel = "Missing"

// Options controls profiling behaviour.
type Options struct {
	// SampleRows is the number of head rows included in the report.
	SampleRows int
	// TopValues limits the categorical value list per column.
	TopValues int
	// GroupBy computes per-group summaries for the given categorical columns.
	GroupBy []string
	// GroupMetrics limits group summaries to these numeric columns; empty means all.
	GroupMetrics []string
	// Correlations computes Pearson correlations among numeric columns.
	Correlations bool
	// Outliers counts values whose robust z-score (MAD) exceeds OutlierThreshold.
	Outliers         bool
	OutlierThreshold float64
}

// DefaultOptions returns the console EDA defaults.
func DefaultOptions() Options {
	return Options{
		SampleRows:       5,
		TopValues:        5,
		Outliers:         true,
		OutlierThreshold: 3.5,
	}
}

// Report is a markdown-friendly profile of a frame.
type Report struct {
	Name       string
	Rows       int
	Duplicates int
	Cols       []ColumnSummary
	Header     []string
	Samples    [][]string
	Groups     []GroupResult
	Corr       *CorrMatrix
	Warnings   []string
}

// ColumnSummary captures the inferred kind and describe()-style statistics.
type ColumnSummary struct {
	Name    string
	Kind    dataset.Kind
	NonNull int
	Missing int
	Unique  int
	// Numeric
	Stats            stats.Summary
	OutliersCount    int
	OutliersMaxAbsZ  float64
	OutlierThreshold float64
	// Categorical
	Top       string
	Freq      int
	TopValues []CategoryCount
}

// MissingPercent is the share of missing cells, 0..100.
func (c ColumnSummary) MissingPercent() float64 {
	total := c.NonNull + c.Missing
	if total == 0 {
		return 0
	}
	return float64(c.Missing) * 100 / float64(total)
}

type CategoryCount struct {
	Value string
	Count int
}

// GroupResult aggregates numeric columns for one value of a group-by column.
type GroupResult struct {
	Column  string
	Key     string
	Size    int
	Metrics map[string]NumSummary
}

type NumSummary struct {
	Count                  int
	Min, Max, Mean, Median float64
}

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64
}

// PairCorr is a simple correlation pair summary.
type PairCorr struct {
	A, B string
	R    float64
}

// Profile summarises every column of f.
func Profile(f *dataset.Frame, opt Options) (*Report, error) {
	if opt.SampleRows <= 0 {
		opt.SampleRows = 5
	}
	if opt.TopValues <= 0 {
		opt.TopValues = 5
	}
	rep := &Report{Name: f.Name, Rows: f.NumRows(), Duplicates: f.DuplicateRows(), Header: f.Columns()}
	head := f.Head(opt.SampleRows)
	for i := 0; i < head.NumRows(); i++ {
		rep.Samples = append(rep.Samples, head.Row(i))
	}

	numeric := map[string][]float64{}
	var numCols []string
	for _, name := range f.Columns() {
		kind, err := f.Kind(name)
		if err != nil {
			return nil, err
		}
		cells, _ := f.Column(name)
		cs := ColumnSummary{Name: name, Kind: kind}
		counts := map[string]int{}
		for _, c := range cells {
			if dataset.IsMissing(c) {
				cs.Missing++
				continue
			}
			cs.NonNull++
			counts[c]++
		}
		cs.Unique = len(counts)
		if kind == dataset.KindNumeric {
			vals, err := f.Floats(name)
			if err != nil {
				return nil, err
			}
			cs.Stats = stats.Describe(vals)
			if opt.Outliers && opt.OutlierThreshold > 0 {
				cs.OutlierThreshold = opt.OutlierThreshold
				cs.OutliersCount, cs.OutliersMaxAbsZ = stats.RobustOutliers(stats.Finite(vals), opt.OutlierThreshold)
			}
			numeric[name] = vals
			numCols = append(numCols, name)
		} else {
			top := ValueCounts(cells, false)
			if len(top) > 0 {
				cs.Top, cs.Freq = top[0].Value, top[0].Count
			}
			if len(top) > opt.TopValues {
				top = top[:opt.TopValues]
			}
			cs.TopValues = top
		}
		if cs.NonNull == 0 {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("column %s has no values", name))
		}
		rep.Cols = append(rep.Cols, cs)
	}

	for _, g := range opt.GroupBy {
		if !f.Has(g) {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("group-by column %s not found", g))
			continue
		}
		metrics := opt.GroupMetrics
		if len(metrics) == 0 {
			metrics = numCols
		}
		groups, err := groupBy(f, g, metrics, numeric)
		if err != nil {
			return nil, err
		}
		rep.Groups = append(rep.Groups, groups...)
	}

	if opt.Correlations && len(numCols) >= 2 {
		rep.Corr = Correlations(numCols, numeric)
	}
	return rep, nil
}

// ValueCounts counts cells by value, sorted by count descending then value.
// When includeMissing is set, missing cells are counted under MissingLabel.
func ValueCounts(cells []string, includeMissing bool) []CategoryCount {
	counts := map[string]int{}
	for _, c := range cells {
		if dataset.IsMissing(c) {
			if !includeMissing {
				continue
			}
			c = MissingLabel
		}
		counts[c]++
	}
	out := make([]CategoryCount, 0, len(counts))
	for v, n := range counts {
		out = append(out, CategoryCount{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out
}

// Correlations builds a pairwise-deletion Pearson matrix over cols.
func Correlations(cols []string, values map[string][]float64) *CorrMatrix {
	cm := &CorrMatrix{Columns: cols, Values: make([][]float64, len(cols))}
	for i := range cols {
		cm.Values[i] = make([]float64, len(cols))
	}
	for i := range cols {
		for j := i; j < len(cols); j++ {
			r := stats.Pearson(values[cols[i]], values[cols[j]])
			if i == j && !math.IsNaN(r) {
				r = 1
			}
			cm.Values[i][j] = r
			cm.Values[j][i] = r
		}
	}
	return cm
}

// TopPairs lists off-diagonal pairs by |r| descending; NaN pairs are skipped.
func (cm *CorrMatrix) TopPairs(limit int) []PairCorr {
	var pairs []PairCorr
	n := len(cm.Columns)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if math.IsNaN(cm.Values[i][j]) {
				continue
			}
			pairs = append(pairs, PairCorr{A: cm.Columns[i], B: cm.Columns[j], R: cm.Values[i][j]})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		ai := math.Abs(pairs[i].R)
		aj := math.Abs(pairs[j].R)
		if ai == aj {
			return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
		}
		return ai > aj
	})
	if limit > 0 && len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs
}

func groupBy(f *dataset.Frame, col string, metrics []string, numeric map[string][]float64) ([]GroupResult, error) {
	keys, err := f.Column(col)
	if err != nil {
		return nil, err
	}
	rows := map[string][]int{}
	for i, k := range keys {
		if dataset.IsMissing(k) {
			k = MissingLabel
		}
		rows[k] = append(rows[k], i)
	}
	out := make([]GroupResult, 0, len(rows))
	for k, idx := range rows {
		g := GroupResult{Column: col, Key: k, Size: len(idx), Metrics: map[string]NumSummary{}}
		for _, m := range metrics {
			vals, ok := numeric[m]
			if !ok || m == col {
				continue
			}
			sel := make([]float64, 0, len(idx))
			for _, i := range idx {
				if !math.IsNaN(vals[i]) {
					sel = append(sel, vals[i])
				}
			}
			if len(sel) == 0 {
				continue
			}
			s := stats.Describe(sel)
			g.Metrics[m] = NumSummary{Count: s.Count, Min: s.Min, Max: s.Max, Mean: s.Mean, Median: s.Q50}
		}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Size != out[j].Size {
			return out[i].Size > out[j].Size
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

// Markdown renders the profile for the console or a file.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Shape: (%d, %d)\n", r.Rows, len(r.Cols)))
	b.WriteString(fmt.Sprintf("Duplicate rows: %d\n", r.Duplicates))
	b.WriteString("Columns: ")
	for i, c := range r.Cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(safeName(c.Name))
	}
	b.WriteString("\n")

	if len(r.Samples) > 0 {
		b.WriteString("\n[HEAD]\n")
		writeRow(&b, r.Header)
		sep := make([]string, len(r.Header))
		for i := range sep {
			sep[i] = "---"
		}
		writeRow(&b, sep)
		for _, row := range r.Samples {
			cells := make([]string, len(r.Header))
			for i := range cells {
				if i < len(row) {
					cells[i] = truncate(row[i], 80)
				}
			}
			writeRow(&b, cells)
		}
	}

	b.WriteString("\n[SCHEMA]\n")
	for _, c := range r.Cols {
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %d = %.1f%%)", safeName(c.Name), c.Kind, c.NonNull, c.Missing, c.MissingPercent()))
		switch c.Kind {
		case dataset.KindNumeric:
			if c.OutlierThreshold > 0 {
				b.WriteString(fmt.Sprintf("; outliers: %d above |z|>%.1f", c.OutliersCount, c.OutlierThreshold))
				if c.OutliersMaxAbsZ > 0 {
					b.WriteString(fmt.Sprintf(" (max |z|≈%.2f)", c.OutliersMaxAbsZ))
				}
			}
		case dataset.KindCategorical:
			if len(c.TopValues) > 0 {
				b.WriteString("; top: ")
				for i, kv := range c.TopValues {
					if i > 0 {
						b.WriteString(", ")
					}
					b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
				}
				if c.Unique > len(c.TopValues) {
					b.WriteString(fmt.Sprintf("; unique=%d", c.Unique))
				}
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("\n[DESCRIBE]\n")
	writeRow(&b, []string{"column", "count", "unique", "top", "freq", "mean", "std", "min", "25%", "50%", "75%", "max"})
	writeRow(&b, []string{"---", "---", "---", "---", "---", "---", "---", "---", "---", "---", "---", "---"})
	for _, c := range r.Cols {
		if c.Kind == dataset.KindNumeric {
			s := c.Stats
			writeRow(&b, []string{safeName(c.Name), fmt.Sprint(s.Count), "", "", "",
				num(s.Mean), num(s.Std), num(s.Min), num(s.Q25), num(s.Q50), num(s.Q75), num(s.Max)})
			continue
		}
		writeRow(&b, []string{safeName(c.Name), fmt.Sprint(c.NonNull), fmt.Sprint(c.Unique), safeVal(c.Top), fmt.Sprint(c.Freq),
			"", "", "", "", "", "", ""})
	}

	if len(r.Groups) > 0 {
		b.WriteString("\n[GROUP-BY SUMMARY]\n")
		for _, g := range r.Groups {
			b.WriteString(fmt.Sprintf("- %s=%s (n=%d)\n", g.Column, safeVal(g.Key), g.Size))
			keys := make([]string, 0, len(g.Metrics))
			for k := range g.Metrics {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			maxk := min(6, len(keys))
			for i := 0; i < maxk; i++ {
				m := g.Metrics[keys[i]]
				b.WriteString(fmt.Sprintf("  • %s: mean %.4g, median %.4g (min %.4g, max %.4g)\n", keys[i], m.Mean, m.Median, m.Min, m.Max))
			}
		}
	}
	if r.Corr != nil && len(r.Corr.Columns) >= 2 {
		b.WriteString("\n[CORRELATIONS]\n")
		for _, p := range r.Corr.TopPairs(10) {
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f\n", p.A, p.B, p.R))
		}
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func writeRow(b *strings.Builder, cells []string) {
	b.WriteString("| ")
	for i, c := range cells {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(safeVal(c))
	}
	b.WriteString(" |\n")
}

func num(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return fmt.Sprintf("%.4g", v)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
