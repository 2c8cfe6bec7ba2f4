package runs

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndList(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "runs.db"))
	require.NoError(t, err)
	defer s.Close()

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, s.Record(ctx, Run{
		ID: "a", Kind: KindTrain, Dataset: "data.csv", ModelPath: "m.bin",
		MAE: 1, RMSE: 2, R2: 0.9,
		Params:    map[string]any{"n_estimators": 400},
		CreatedAt: base,
	}))
	require.NoError(t, s.Record(ctx, Run{ID: "b", Kind: KindCV, MAE: 3, CreatedAt: base.Add(time.Hour)}))
	require.NoError(t, s.Record(ctx, Run{ID: "c", Kind: KindCheck, CreatedAt: base.Add(2 * time.Hour)}))

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{all[0].ID, all[1].ID, all[2].ID})

	a := all[2]
	assert.Equal(t, KindTrain, a.Kind)
	assert.Equal(t, "m.bin", a.ModelPath)
	assert.Equal(t, 0.9, a.R2)
	assert.Equal(t, float64(400), a.Params["n_estimators"])
	assert.True(t, base.Equal(a.CreatedAt))
	assert.Nil(t, all[1].Params)

	two, err := s.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}

func TestRecordRejectsDuplicateAndEmptyIDs(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer s.Close()

	require.Error(t, s.Record(ctx, Run{Kind: KindTrain}))
	require.NoError(t, s.Record(ctx, Run{ID: "x", Kind: KindTrain}))
	require.Error(t, s.Record(ctx, Run{ID: "x", Kind: KindTrain}))
}

func TestReopenKeepsRows(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Record(ctx, Run{ID: "keep", Kind: KindCV}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "keep", got[0].ID)
}
