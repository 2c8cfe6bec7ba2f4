package exporter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/estatefit-cli/internal/evaluation"
)

func TestObserveAndWrite(t *testing.T) {
	m := New()
	m.Observe("validation", evaluation.Metrics{MAE: 10, RMSE: 12.5, R2: 0.87})
	m.ObserveFit(3.5, 400)

	assert.Equal(t, 12.5, testutil.ToFloat64(m.rmse.WithLabelValues("validation")))
	assert.Equal(t, 400.0, testutil.ToFloat64(m.trees))

	path := filepath.Join(t.TempDir(), "metrics", "estatefit.prom")
	require.NoError(t, m.WriteTextfile(path))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(b)
	assert.Contains(t, out, `estatefit_model_mae{split="validation"} 10`)
	assert.Contains(t, out, `estatefit_model_r2{split="validation"} 0.87`)
	assert.Contains(t, out, "estatefit_fit_duration_seconds 3.5")
	assert.Contains(t, out, "# TYPE estatefit_forest_trees gauge")
}

func TestWriteTextfileEmptyPathIsNoop(t *testing.T) {
	require.NoError(t, New().WriteTextfile(""))
}
