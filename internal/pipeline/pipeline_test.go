package pipeline

import (
	"compress/gzip"
	"context"
	"encoding/gob"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/KaramelBytes/estatefit-cli/internal/dataset"
	"github.com/KaramelBytes/estatefit-cli/internal/forest"
	"github.com/KaramelBytes/estatefit-cli/internal/preprocess"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var districts = []string{"Arbat", "Tverskoy", "Khamovniki"}

// listings builds a frame where price depends on area and district.
func listings(t *testing.T, n int, seed int64) *dataset.Frame {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	var b strings.Builder
	b.WriteString("index,total_area,rooms,district_name,gas,price\n")
	for i := 0; i < n; i++ {
		area := 30 + rng.Float64()*70
		d := rng.Intn(len(districts))
		rooms := fmt.Sprint(1 + int(area/30))
		if i%17 == 0 {
			rooms = ""
		}
		gas := "Yes"
		if rng.Intn(3) == 0 {
			gas = "No"
		}
		price := area*100000 + float64(d)*1500000
		fmt.Fprintf(&b, "%d,%.2f,%s,%s,%s,%.0f\n", 1000+i, area, rooms, districts[d], gas, price)
	}
	f, err := dataset.ReadCSV(strings.NewReader(b.String()), "listings.csv", ',', dataset.DefaultParseOptions())
	require.NoError(t, err)
	return f
}

func params() forest.Params {
	p := forest.DefaultParams()
	p.NEstimators = 20
	return p
}

func fitted(t *testing.T) (*Pipeline, *dataset.Frame, []float64) {
	t.Helper()
	df := listings(t, 150, 1)
	y, err := df.Target("price")
	require.NoError(t, err)
	X := df.Drop("price", "index")
	p := New(params(), WithTarget("price"), WithIDColumn("index"), WithDataset(df.Name))
	require.NoError(t, p.Fit(context.Background(), X, y))
	return p, X, y
}

func TestFitPredictScore(t *testing.T) {
	p, X, y := fitted(t)
	assert.Equal(t, []string{"total_area", "rooms"}, p.Meta.NumericColumns)
	assert.Equal(t, []string{"district_name", "gas"}, p.Meta.CategoricalColumns)
	assert.Equal(t, 7, p.Meta.NumFeaturesOut)
	assert.NotEmpty(t, p.Meta.RunID)

	m, err := p.Score(context.Background(), X, y)
	require.NoError(t, err)
	assert.Greater(t, m.R2, 0.9)
}

func TestPredictRequiresFittedColumns(t *testing.T) {
	p, X, _ := fitted(t)
	_, err := p.Predict(context.Background(), X.Drop("gas"))
	require.ErrorIs(t, err, dataset.ErrColumnNotFound)

	_, err = New(params()).Predict(context.Background(), X)
	require.ErrorIs(t, err, preprocess.ErrNotFitted)
}

func TestImportancesSortedAndTop(t *testing.T) {
	p, _, _ := fitted(t)
	imps, err := p.Importances()
	require.NoError(t, err)
	require.Len(t, imps, 7)
	assert.Equal(t, "num__total_area", imps[0].Feature)
	for i := 1; i < len(imps); i++ {
		assert.GreaterOrEqual(t, imps[i-1].Importance, imps[i].Importance)
	}
	assert.Len(t, Top(imps, 3), 3)
	assert.Len(t, Top(imps, 0), 7)
	assert.Len(t, Top(imps, 50), 7)

	path := filepath.Join(t.TempDir(), "out", "imp.csv")
	require.NoError(t, WriteImportancesCSV(path, Top(imps, 2)))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	assert.Len(t, lines, 3)
	assert.Equal(t, "feature,importance", lines[0])
}

func TestSaveLoadRoundTrip(t *testing.T) {
	p, X, _ := fitted(t)
	path := filepath.Join(t.TempDir(), "model.bin")
	require.NoError(t, p.Save(path))

	back, err := Load(path)
	require.NoError(t, err)
	if diff := cmp.Diff(p.Meta, back.Meta); diff != "" {
		t.Fatalf("meta (-saved +loaded):\n%s", diff)
	}
	a, err := p.Predict(context.Background(), X)
	require.NoError(t, err)
	b, err := back.Predict(context.Background(), X)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	meta, err := LoadMeta(path)
	require.NoError(t, err)
	assert.Equal(t, p.Meta.RunID, meta.RunID)
	assert.Equal(t, 20, meta.Params.NEstimators)
}

func TestLoadRejectsForeignArtifacts(t *testing.T) {
	dir := t.TempDir()

	plain := filepath.Join(dir, "plain.bin")
	require.NoError(t, os.WriteFile(plain, []byte("not a model"), 0o644))
	_, err := Load(plain)
	require.ErrorIs(t, err, ErrArtifactVersion)

	future := filepath.Join(dir, "future.bin")
	f, err := os.Create(future)
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	require.NoError(t, gob.NewEncoder(zw).Encode(artifactHeader{Format: artifactFormat, Version: artifactVersion + 1}))
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	_, err = Load(future)
	require.ErrorIs(t, err, ErrArtifactVersion)

	_, err = Load(filepath.Join(dir, "missing.bin"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestCrossValidate(t *testing.T) {
	df := listings(t, 100, 3)
	y, err := df.Target("price")
	require.NoError(t, err)
	X := df.Drop("price", "index")

	res, err := New(params()).CrossValidate(context.Background(), X, y, 5, 42)
	require.NoError(t, err)
	assert.Equal(t, 5, res.K)
	assert.Len(t, res.MAE.Folds, 5)
	assert.Len(t, res.R2.Folds, 5)
	assert.Greater(t, res.R2.Mean, 0.8)
	assert.GreaterOrEqual(t, res.RMSE.Mean, res.MAE.Mean)
	assert.GreaterOrEqual(t, res.MAE.Std, 0.0)

	again, err := New(params()).CrossValidate(context.Background(), X, y, 5, 42)
	require.NoError(t, err)
	assert.Equal(t, res.MAE.Folds, again.MAE.Folds)

	_, err = New(params()).CrossValidate(context.Background(), X, y, 1, 42)
	require.Error(t, err)
}

func TestSubmission(t *testing.T) {
	df := listings(t, 3, 5)
	ids, X := SubmissionIDs(df, "index")
	assert.Equal(t, []string{"1000", "1001", "1002"}, ids)
	assert.False(t, X.Has("index"))

	ids, _ = SubmissionIDs(df.Drop("index"), "index")
	assert.Equal(t, []string{"0", "1", "2"}, ids)

	path := filepath.Join(t.TempDir(), "submission.csv")
	require.NoError(t, WriteSubmission(path, []string{"7", "8"}, []float64{1.5, 2000000}))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "index,price\n7,1.5\n8,2000000\n", string(b))

	require.Error(t, WriteSubmission(path, []string{"1"}, nil))

	blocked := filepath.Join(t.TempDir(), "importances.csv")
	require.NoError(t, os.MkdirAll(filepath.Join(blocked, "child"), 0o755))
	require.Error(t, WriteImportancesCSV(blocked, []Importance{{Feature: "num__total_area", Importance: 1}}))
	assert.NoFileExists(t, blocked+".tmp")
}
