package plots

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/estatefit-cli/internal/dataset"
)

func listings(t *testing.T, n int) *dataset.Frame {
	t.Helper()
	rng := rand.New(rand.NewSource(1))
	districts := []string{"Arbat", "Tverskoy", "Khamovniki", "Presnensky"}
	var b strings.Builder
	b.WriteString("index,total_area,kitchen_area,district_name,gas,price\n")
	for i := 0; i < n; i++ {
		area := 25 + rng.Float64()*80
		gas := "Yes"
		if i%4 == 0 {
			gas = ""
		}
		fmt.Fprintf(&b, "%d,%.1f,%.1f,%s,%s,%.0f\n", i, area, area/5, districts[i%len(districts)], gas, area*110000)
	}
	f, err := dataset.ReadCSV(strings.NewReader(b.String()), "listings.csv", ',', dataset.DefaultParseOptions())
	require.NoError(t, err)
	return f
}

func TestWriteAllCreatesCharts(t *testing.T) {
	dir := t.TempDir()
	opt := DefaultOptions()
	opt.CategoricalColumns = []string{"gas", "hot_water"}
	opt.ScatterLimit = 50

	files, err := WriteAll(listings(t, 120), dir, opt)
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f))
		info, err := os.Stat(f)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
	assert.Equal(t, []string{
		"01_price_hist.png",
		"02_log_price_hist.png",
		"03_total_area_vs_price.png",
		"04_price_by_district_boxplot.png",
		"05_corr_heatmap.png",
		"scatter_kitchen_area_vs_price.png",
		"scatter_total_area_vs_price.png",
		"top10_gas.png",
	}, names)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, len(names))
}

func TestWriteAllScattersEveryAreaColumn(t *testing.T) {
	opt := DefaultOptions()
	opt.AreaColumns = []string{"living_area", "kitchen_area", "district_name"}
	files, err := WriteAll(listings(t, 40), t.TempDir(), opt)
	require.NoError(t, err)

	var scatters []string
	for _, f := range files {
		if name := filepath.Base(f); strings.HasPrefix(name, "scatter_") || strings.HasPrefix(name, "03_") {
			scatters = append(scatters, name)
		}
	}
	// living_area is absent and district_name is not numeric
	assert.Equal(t, []string{"03_kitchen_area_vs_price.png", "scatter_kitchen_area_vs_price.png"}, scatters)
}

func TestWriteAllSkipsOptionalCharts(t *testing.T) {
	f := listings(t, 30).Drop("total_area", "kitchen_area", "district_name")
	files, err := WriteAll(f, t.TempDir(), DefaultOptions())
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestWriteAllRequiresTarget(t *testing.T) {
	_, err := WriteAll(listings(t, 10).Drop("price"), t.TempDir(), DefaultOptions())
	require.ErrorIs(t, err, dataset.ErrColumnNotFound)
}
