// Package plots renders the EDA charts as PNG files.
package plots

import (
	"fmt"
	"math"
	"math/rand"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/KaramelBytes/estatefit-cli/internal/analysis"
	"github.com/KaramelBytes/estatefit-cli/internal/dataset"
	"github.com/KaramelBytes/estatefit-cli/internal/stats"
	"github.com/KaramelBytes/estatefit-cli/internal/utils"
)

// Options selects columns and sampling for the charts.
type Options struct {
	Target             string
	IDColumn           string
	// AreaColumns get one scatter against the target each; the first one
	// present also gets the numbered overview chart.
	AreaColumns        []string
	DistrictColumn     string
	CategoricalColumns []string
	// ScatterLimit caps scatter points; larger inputs are sampled with Seed.
	ScatterLimit int
	Seed         int64
	Logger       *zap.Logger
}

// DefaultOptions matches the column names of the listings dataset.
func DefaultOptions() Options {
	return Options{
		Target:         "price",
		IDColumn:       "index",
		AreaColumns:    []string{"total_area", "kitchen_area", "bath_area"},
		DistrictColumn: "district_name",
		ScatterLimit:   5000,
		Seed:           42,
	}
}

const (
	histBins = 50
	topN     = 10
)

// WriteAll renders every applicable chart into dir and returns the created
// file paths, sorted.
func WriteAll(f *dataset.Frame, dir string, opt Options) ([]string, error) {
	log := opt.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if !f.Has(opt.Target) {
		return nil, fmt.Errorf("plots: %w: %s", dataset.ErrColumnNotFound, opt.Target)
	}
	if err := utils.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("ensure dir: %w", err)
	}
	f = f.Drop(opt.IDColumn)
	price, err := f.Floats(opt.Target)
	if err != nil {
		return nil, fmt.Errorf("plots: %w", err)
	}

	var created []string
	save := func(p *plot.Plot, name string, w, h vg.Length) error {
		path := filepath.Join(dir, name)
		if err := p.Save(w, h, path); err != nil {
			return fmt.Errorf("save %s: %w", name, err)
		}
		log.Debug("chart written", zap.String("path", path))
		created = append(created, path)
		return nil
	}

	finite := stats.Finite(price)
	if len(finite) > 0 {
		p, err := histogram(finite, "Price Distribution (Histogram)", "Price")
		if err != nil {
			return created, err
		}
		if err := save(p, "01_price_hist.png", 6*vg.Inch, 4*vg.Inch); err != nil {
			return created, err
		}

		logs := make([]float64, 0, len(finite))
		for _, v := range finite {
			if l := math.Log1p(v); !math.IsNaN(l) && !math.IsInf(l, 0) {
				logs = append(logs, l)
			}
		}
		if len(logs) > 0 {
			p, err := histogram(logs, "Log(Price + 1) Distribution", "log(price + 1)")
			if err != nil {
				return created, err
			}
			if err := save(p, "02_log_price_hist.png", 6*vg.Inch, 4*vg.Inch); err != nil {
				return created, err
			}
		}
	}

	if col, ok := firstPresent(f, opt.AreaColumns); ok {
		p, err := areaScatter(f, col, price, opt, log)
		if err != nil {
			return created, err
		}
		if p != nil {
			if err := save(p, "03_"+col+"_vs_price.png", 6*vg.Inch, 4*vg.Inch); err != nil {
				return created, err
			}
		}
	}
	for _, col := range opt.AreaColumns {
		if !f.Has(col) {
			continue
		}
		p, err := areaScatter(f, col, price, opt, log)
		if err != nil {
			return created, err
		}
		if p == nil {
			continue
		}
		if err := save(p, "scatter_"+col+"_vs_price.png", 6*vg.Inch, 4*vg.Inch); err != nil {
			return created, err
		}
	}

	if opt.DistrictColumn != "" && f.Has(opt.DistrictColumn) {
		p, err := boxByGroup(f, opt.DistrictColumn, price)
		if err != nil {
			return created, err
		}
		if p != nil {
			if err := save(p, "04_price_by_district_boxplot.png", 10*vg.Inch, 5*vg.Inch); err != nil {
				return created, err
			}
		}
	}

	numCols, _ := f.SplitKinds()
	if len(numCols) >= 2 {
		values := make(map[string][]float64, len(numCols))
		for _, c := range numCols {
			values[c], _ = f.Floats(c)
		}
		p, err := heatmap(analysis.Correlations(numCols, values))
		if err != nil {
			return created, err
		}
		if err := save(p, "05_corr_heatmap.png", 10*vg.Inch, 8*vg.Inch); err != nil {
			return created, err
		}
	}

	for _, col := range opt.CategoricalColumns {
		if !f.Has(col) {
			continue
		}
		cells, _ := f.Column(col)
		p, err := topCategories(col, analysis.ValueCounts(cells, true))
		if err != nil {
			return created, err
		}
		if p == nil {
			continue
		}
		if err := save(p, "top10_"+col+".png", 9*vg.Inch, 4*vg.Inch); err != nil {
			return created, err
		}
	}

	sort.Strings(created)
	return created, nil
}

func histogram(vals []float64, title, xlabel string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = "Count"
	h, err := plotter.NewHist(plotter.Values(vals), histBins)
	if err != nil {
		return nil, fmt.Errorf("histogram: %w", err)
	}
	p.Add(h)
	return p, nil
}

func firstPresent(f *dataset.Frame, cols []string) (string, bool) {
	for _, c := range cols {
		if f.Has(c) {
			return c, true
		}
	}
	return "", false
}

// areaScatter returns nil when col is not numeric or has no complete pairs.
func areaScatter(f *dataset.Frame, col string, price []float64, opt Options, log *zap.Logger) (*plot.Plot, error) {
	area, err := f.Floats(col)
	if err != nil {
		log.Warn("skipping scatter for non-numeric column", zap.String("column", col), zap.Error(err))
		return nil, nil
	}
	return scatter(area, price, col, opt)
}

func scatter(x, y []float64, col string, opt Options) (*plot.Plot, error) {
	var pts plotter.XYs
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		pts = append(pts, plotter.XY{X: x[i], Y: y[i]})
	}
	if len(pts) == 0 {
		return nil, nil
	}
	title := fmt.Sprintf("%s vs %s", col, opt.Target)
	if opt.ScatterLimit > 0 && len(pts) > opt.ScatterLimit {
		title += " (sampled)"
		perm := rand.New(rand.NewSource(opt.Seed)).Perm(len(pts))
		sampled := make(plotter.XYs, opt.ScatterLimit)
		for i := range sampled {
			sampled[i] = pts[perm[i]]
		}
		pts = sampled
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = col
	p.Y.Label.Text = opt.Target
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, fmt.Errorf("scatter: %w", err)
	}
	s.GlyphStyle.Radius = vg.Points(1.5)
	p.Add(s)
	return p, nil
}

func boxByGroup(f *dataset.Frame, col string, price []float64) (*plot.Plot, error) {
	cells, err := f.Column(col)
	if err != nil {
		return nil, err
	}
	top := analysis.ValueCounts(cells, false)
	if len(top) > topN {
		top = top[:topN]
	}
	byKey := map[string]plotter.Values{}
	for i, c := range cells {
		if !math.IsNaN(price[i]) {
			byKey[c] = append(byKey[c], price[i])
		}
	}
	p := plot.New()
	p.Title.Text = "Price by Top 10 Districts (Boxplot)"
	p.X.Label.Text = col + " (Top 10)"
	p.Y.Label.Text = "price"
	var names []string
	for _, tc := range top {
		vals := byKey[tc.Value]
		if len(vals) == 0 {
			continue
		}
		b, err := plotter.NewBoxPlot(vg.Points(20), float64(len(names)), vals)
		if err != nil {
			return nil, fmt.Errorf("boxplot %s: %w", tc.Value, err)
		}
		p.Add(b)
		names = append(names, tc.Value)
	}
	if len(names) == 0 {
		return nil, nil
	}
	p.NominalX(names...)
	p.X.Tick.Label.Rotation = math.Pi / 6
	return p, nil
}

// corrGrid adapts a correlation matrix to plotter.GridXYZ. Row 0 is drawn at the top.
type corrGrid struct{ cm *analysis.CorrMatrix }

func (g corrGrid) Dims() (c, r int) { return len(g.cm.Columns), len(g.cm.Columns) }
func (g corrGrid) X(c int) float64  { return float64(c) }
func (g corrGrid) Y(r int) float64  { return float64(r) }
func (g corrGrid) Z(c, r int) float64 {
	n := len(g.cm.Columns)
	v := g.cm.Values[n-1-r][c]
	if math.IsNaN(v) {
		return 0
	}
	return v
}

func heatmap(cm *analysis.CorrMatrix) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Correlation Heatmap (Numeric Features)"
	h := plotter.NewHeatMap(corrGrid{cm}, palette.Heat(16, 1))
	h.Min, h.Max = -1, 1
	p.Add(h)
	n := len(cm.Columns)
	ys := make([]string, n)
	for i, c := range cm.Columns {
		ys[n-1-i] = c
	}
	p.NominalX(cm.Columns...)
	p.NominalY(ys...)
	p.X.Tick.Label.Rotation = math.Pi / 2
	return p, nil
}

func topCategories(col string, counts []analysis.CategoryCount) (*plot.Plot, error) {
	if len(counts) == 0 {
		return nil, nil
	}
	if len(counts) > topN {
		counts = counts[:topN]
	}
	vals := make(plotter.Values, len(counts))
	names := make([]string, len(counts))
	for i, c := range counts {
		vals[i] = float64(c.Count)
		names[i] = c.Value
	}
	p := plot.New()
	p.Title.Text = "Top 10 categories: " + col
	p.Y.Label.Text = "count"
	bars, err := plotter.NewBarChart(vals, vg.Points(20))
	if err != nil {
		return nil, fmt.Errorf("bar chart %s: %w", col, err)
	}
	p.Add(bars)
	p.NominalX(names...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	return p, nil
}
