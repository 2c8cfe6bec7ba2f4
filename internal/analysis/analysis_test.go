package analysis

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/estatefit-cli/internal/dataset"
)

var listingRows = []string{
	"index,district_name,total_area,gas,price",
	"1,Arbat,40,Yes,4000000",
	"2,Arbat,50,No,5200000",
	"3,Tverskoy,,Yes,3100000",
	"4,Tverskoy,35,,3300000",
	"5,Arbat,45,Yes,4500000",
	"6,,60,Yes,6100000",
	"7,Tverskoy,30,Yes,2900000",
	"8,Arbat,42,Yes,4300000",
	"9,Tverskoy,38,No,3600000",
	"10,Arbat,400,Yes,4400000",
}

func listingFrame(t *testing.T) *dataset.Frame {
	t.Helper()
	f, err := dataset.ReadCSV(strings.NewReader(strings.Join(listingRows, "\n")), "listings.csv", ',', dataset.DefaultParseOptions())
	require.NoError(t, err)
	return f
}

func TestProfileAndMarkdown(t *testing.T) {
	opt := DefaultOptions()
	opt.GroupBy = []string{"district_name"}
	opt.GroupMetrics = []string{"price"}
	opt.Correlations = true

	rep, err := Profile(listingFrame(t), opt)
	require.NoError(t, err)
	assert.Equal(t, 10, rep.Rows)
	assert.Len(t, rep.Samples, 5)
	require.Len(t, rep.Cols, 5)

	area := rep.Cols[2]
	assert.Equal(t, dataset.KindNumeric, area.Kind)
	assert.Equal(t, 1, area.Missing)
	assert.Equal(t, 9, area.Stats.Count)
	assert.Equal(t, 1, area.OutliersCount)

	district := rep.Cols[1]
	assert.Equal(t, dataset.KindCategorical, district.Kind)
	assert.Equal(t, "Arbat", district.Top)
	assert.Equal(t, 5, district.Freq)
	assert.Equal(t, 2, district.Unique)

	require.Len(t, rep.Groups, 3)
	assert.Equal(t, "Arbat", rep.Groups[0].Key)
	assert.Equal(t, MissingLabel, rep.Groups[2].Key)
	assert.InDelta(t, 4480000, rep.Groups[0].Metrics["price"].Mean, 1e-6)
	assert.InDelta(t, 4400000, rep.Groups[0].Metrics["price"].Median, 1e-6)

	require.NotNil(t, rep.Corr)
	assert.Equal(t, []string{"index", "total_area", "price"}, rep.Corr.Columns)
	assert.Equal(t, 1.0, rep.Corr.Values[1][1])

	md := rep.Markdown()
	for _, want := range []string{"[DATASET SUMMARY]", "Shape: (10, 5)", "[HEAD]", "[SCHEMA]", "[DESCRIBE]", "[GROUP-BY SUMMARY]", "district_name=Arbat (n=5)", "[CORRELATIONS]", "outliers: 1 above |z|>3.5"} {
		assert.Contains(t, md, want)
	}
}

func TestProfileWarnsOnMissingGroupColumn(t *testing.T) {
	opt := DefaultOptions()
	opt.GroupBy = []string{"nope"}
	rep, err := Profile(listingFrame(t), opt)
	require.NoError(t, err)
	assert.Contains(t, rep.Markdown(), "group-by column nope not found")
}

func TestValueCountsOrdering(t *testing.T) {
	got := ValueCounts([]string{"b", "a", "", "b", "a", "c", "NA"}, true)
	assert.Equal(t, []CategoryCount{{"Missing", 2}, {"a", 2}, {"b", 2}, {"c", 1}}, got)
	got = ValueCounts([]string{"b", "", "b"}, false)
	assert.Equal(t, []CategoryCount{{"b", 2}}, got)
}

func TestCorrelationsNaNForConstant(t *testing.T) {
	cm := Correlations([]string{"a", "b"}, map[string][]float64{
		"a": {1, 2, 3},
		"b": {5, 5, 5},
	})
	assert.Equal(t, 1.0, cm.Values[0][0])
	assert.True(t, math.IsNaN(cm.Values[0][1]))
	assert.True(t, math.IsNaN(cm.Values[1][1]))
	assert.Empty(t, cm.TopPairs(10))
}

func readCSV(t *testing.T, path string) []string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(b)), "\n")
}

func TestWriteEDAReport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "eda")
	files, err := WriteEDAReport(listingFrame(t), dir, EDAOptions{
		Target:             "price",
		CategoricalColumns: []string{"gas", "district_name", "hot_water"},
		AreaColumns:        []string{"total_area", "kitchen_area"},
	})
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	assert.Equal(t, []string{
		"dataset_summary.csv",
		"missing_values.csv",
		"duplicates.csv",
		"price_skewness.csv",
		"correlation_matrix.csv",
		"value_counts_gas.csv",
		"value_counts_district_name.csv",
		"percentiles_total_area.csv",
	}, names)

	assert.Equal(t, []string{"rows,columns,target_present", "10,5,True"}, readCSV(t, filepath.Join(dir, "dataset_summary.csv")))
	assert.Equal(t, []string{
		"feature,missing_count,missing_percent",
		"district_name,1,10",
		"total_area,1,10",
		"gas,1,10",
		"index,0,0",
		"price,0,0",
	}, readCSV(t, filepath.Join(dir, "missing_values.csv")))
	assert.Equal(t, []string{"duplicate_rows", "0"}, readCSV(t, filepath.Join(dir, "duplicates.csv")))
	assert.Equal(t, []string{"gas,count", "Yes,7", "No,2", "Missing,1"}, readCSV(t, filepath.Join(dir, "value_counts_gas.csv")))

	corr := readCSV(t, filepath.Join(dir, "correlation_matrix.csv"))
	assert.Equal(t, "feature,index,total_area,price", corr[0])
	assert.Len(t, corr, 4)

	pct := readCSV(t, filepath.Join(dir, "percentiles_total_area.csv"))
	assert.Equal(t, "percentile,value", pct[0])
	assert.Len(t, pct, 5)
}

func TestWriteEDAReportWithoutTarget(t *testing.T) {
	f := listingFrame(t).Drop("price")
	dir := t.TempDir()
	files, err := WriteEDAReport(f, dir, EDAOptions{Target: "price", AreaColumns: []string{"total_area"}})
	require.NoError(t, err)
	assert.Len(t, files, 3)
	assert.Equal(t, []string{"rows,columns,target_present", "10,4,False"}, readCSV(t, filepath.Join(dir, "dataset_summary.csv")))
}
