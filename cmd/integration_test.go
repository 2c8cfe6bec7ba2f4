package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags restores every flag in the command tree to its default so
// Changed state and slice values do not leak between invocations.
func resetFlags(c *cobra.Command) {
	reset := func(fl *pflag.Flag) {
		if sv, ok := fl.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = fl.Value.Set(fl.DefValue)
		}
		fl.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execCmd runs the root command with args and returns its stdout.
func execCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// runCmd is a helper to execute the root command with args.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execCmd(t, args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

// writeListings writes a labelled training file and an unlabelled test file.
func writeListings(t *testing.T, dir string) (train, test string) {
	t.Helper()
	districts := []string{"Arbat", "Tverskoy", "Khamovniki", "Presnensky"}
	bonus := []float64{1.5e6, 1.0e6, 2.0e6, 0.5e6}
	var tr, te strings.Builder
	tr.WriteString("index,total_area,rooms,district_name,gas,price\n")
	te.WriteString("index,total_area,rooms,district_name,gas\n")
	for i := 0; i < 60; i++ {
		area := 30 + float64(i%20)*3
		rooms := 1 + i%4
		d := i % len(districts)
		gas := "Yes"
		if i%5 == 0 {
			gas = ""
		}
		price := area*100000 + bonus[d]
		fmt.Fprintf(&tr, "%d,%.1f,%d,%s,%s,%.0f\n", i, area, rooms, districts[d], gas, price)
		if i < 12 {
			fmt.Fprintf(&te, "%d,%.1f,%d,%s,%s\n", 1000+i, area+1, rooms, districts[d], gas)
		}
	}
	train = filepath.Join(dir, "data.csv")
	test = filepath.Join(dir, "test.csv")
	require.NoError(t, os.WriteFile(train, []byte(tr.String()), 0o644))
	require.NoError(t, os.WriteFile(test, []byte(te.String()), 0o644))
	return train, test
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(b)), "\n")
}

func TestCLI_TrainPredictCheckRuns(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	train, test := writeListings(t, home)
	model := filepath.Join(home, "models", "pipeline.bin")
	metrics := filepath.Join(home, "metrics", "estatefit.prom")

	runCmd(t, "config", "set", "n_estimators", "12")
	runCmd(t, "config", "set", "metrics_file", metrics)
	out := runCmd(t, "config", "show")
	assert.Contains(t, out, "n_estimators: 12")

	out = runCmd(t, "find-target", "--train", train, "--test", test)
	assert.Contains(t, out, "Target column found: [price]")
	assert.Contains(t, out, "Data type: numeric")

	out = runCmd(t, "train", "--data", train, "--model", model)
	assert.Contains(t, out, "Numerical features (2): [total_area, rooms]")
	assert.Contains(t, out, "Categorical features (2): [district_name, gas]")
	assert.Contains(t, out, "Training samples: 48")
	assert.Contains(t, out, "Validation samples: 12")
	assert.Contains(t, out, "R²:")
	assert.FileExists(t, model)
	assert.FileExists(t, model+".meta.json")
	assert.Contains(t, strings.Join(readLines(t, metrics), "\n"), `estatefit_model_mae{split="validation"}`)

	sub := filepath.Join(home, "out", "submission.csv")
	out = runCmd(t, "predict", "--test", test, "--model", model, "--out", sub)
	assert.Contains(t, out, "✓ Generated 12 predictions")
	lines := readLines(t, sub)
	require.Len(t, lines, 13)
	assert.Equal(t, "index,price", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "1000,"))

	out = runCmd(t, "predict-one", "--data", train, "--model", model, "--row", "3")
	assert.Contains(t, out, "Predicted price:")
	assert.NotContains(t, out, "  index ")

	impCSV := filepath.Join(home, "out", "imp.csv")
	out = runCmd(t, "importance", "--model", model, "--top", "3", "--out", impCSV)
	assert.Contains(t, out, "num__total_area")
	assert.Len(t, readLines(t, impCSV), 4)

	out = runCmd(t, "check", "--data", train, "--model", model)
	assert.Contains(t, out, "MODEL PERFORMANCE METRICS")
	assert.Contains(t, out, "MODEL INFORMATION")
	assert.Contains(t, out, "Number of trees: 12")
	assert.Contains(t, out, "Max depth:       unlimited")
	assert.Contains(t, out, "Random state:    42")
	assert.Contains(t, out, "Numerical features (2)")
	assert.Contains(t, out, "Categorical features (2)")
	assert.Contains(t, out, "Model size:")
	assert.Less(t, strings.Index(out, "MODEL INFORMATION"), strings.Index(out, "OVERALL GRADE"))

	out = runCmd(t, "runs")
	assert.Contains(t, out, "train")
	assert.Contains(t, out, "check")
}

func TestCLI_ValidateRecordsRun(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	train, _ := writeListings(t, home)

	out := runCmd(t, "validate", "--data", train, "--folds", "3", "--n-estimators", "5")
	assert.Contains(t, out, "CROSS VALIDATION RESULTS (3 folds)")
	assert.Contains(t, out, "MAE:  mean=")

	out = runCmd(t, "runs", "--limit", "5")
	assert.Contains(t, out, "cv")
}

func TestCLI_EDAAndPlots(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	train, _ := writeListings(t, home)

	reportDir := filepath.Join(home, "eda")
	out := runCmd(t, "eda", train, "--report-dir", reportDir)
	assert.Contains(t, out, "[DATASET SUMMARY]")
	assert.Contains(t, out, "Shape: (60, 6)")
	assert.Contains(t, out, "district_name=Arbat (n=15)")
	assert.FileExists(t, filepath.Join(reportDir, "missing_values.csv"))
	assert.FileExists(t, filepath.Join(reportDir, "value_counts_gas.csv"))
	assert.FileExists(t, filepath.Join(reportDir, "percentiles_total_area.csv"))

	plotDir := filepath.Join(home, "plots")
	out = runCmd(t, "plots", train, "--out-dir", plotDir)
	assert.Contains(t, out, "01_price_hist.png")
	assert.Contains(t, out, "03_total_area_vs_price.png")
	assert.Contains(t, out, "scatter_total_area_vs_price.png")
	assert.Contains(t, out, "04_price_by_district_boxplot.png")
	assert.FileExists(t, filepath.Join(plotDir, "05_corr_heatmap.png"))
}

func TestCLI_Errors(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	train, test := writeListings(t, home)

	_, err := execCmd(t, "predict", "--test", test, "--model", filepath.Join(home, "missing.bin"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run 'estatefit train' first")

	_, err = execCmd(t, "train", "--data", test, "--model", filepath.Join(home, "m.bin"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "column not found")

	_, err = execCmd(t, "config", "set", "test_size", "2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "test_size must be < 1")

	_, err = execCmd(t, "predict-one", "--data", train, "--model", filepath.Join(home, "missing.bin"), "--row", "999")
	require.Error(t, err)
}
