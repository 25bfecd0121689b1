package tracking

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/TungPhamDuy/azmlproject3/pkg/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.Migrate(ctx))

	v, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, v)
}

func TestOpenStoreRejectsEmptyPath(t *testing.T) {
	_, err := OpenStore("")
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestSQLiteRunRecordsEverything(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	run, err := store.StartRun(ctx, "", "bank")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID())

	require.NoError(t, run.LogMetric(ctx, "Regularization Strength:", 1.0))
	require.NoError(t, run.LogMetric(ctx, "Accuracy", 0.5))
	require.NoError(t, run.LogMetric(ctx, "Accuracy", 0.91))
	require.NoError(t, run.LogParam(ctx, "C", "1.0"))
	require.NoError(t, run.LogParam(ctx, "C", "2.0"))
	require.NoError(t, run.SetTag(ctx, "dataset_url", "file://bank.csv"))

	artifact := filepath.Join(t.TempDir(), "model.gob")
	require.NoError(t, os.WriteFile(artifact, []byte("x"), 0o644))
	require.NoError(t, run.LogArtifact(ctx, artifact))

	require.NoError(t, run.End(ctx, StatusFinished))

	rec, err := store.GetRun(ctx, run.ID())
	require.NoError(t, err)
	assert.Equal(t, DefaultExperiment, rec.Experiment)
	assert.Equal(t, "bank", rec.Name)
	assert.Equal(t, StatusFinished, rec.Status)
	require.NotNil(t, rec.EndedAt)
	assert.Equal(t, []float64{1.0}, rec.Metrics["Regularization Strength:"])
	assert.Equal(t, []float64{0.5, 0.91}, rec.Metrics["Accuracy"])
	assert.Equal(t, "2.0", rec.Params["C"])
	assert.Equal(t, "file://bank.csv", rec.Tags["dataset_url"])
	assert.Equal(t, []string{artifact}, rec.Artifacts)
}

func TestSQLiteRunRejectsMissingArtifact(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	run, err := store.StartRun(ctx, "exp", "")
	require.NoError(t, err)

	err = run.LogArtifact(ctx, filepath.Join(t.TempDir(), "missing.gob"))
	assert.ErrorIs(t, err, common.ErrTracking)
}

func TestGetRunNotFound(t *testing.T) {
	store := openTestStore(t)
	_, err := store.GetRun(context.Background(), "nope")
	assert.Error(t, err)
}

func TestStartBackends(t *testing.T) {
	ctx := context.Background()

	t.Run("sqlite", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "nested", "runs.db")
		run, err := Start(ctx, Config{Backend: BackendSQLite, DBPath: dbPath, ExperimentID: "bank"})
		require.NoError(t, err)
		require.NoError(t, run.LogMetric(ctx, "Accuracy", 0.9))
		require.NoError(t, run.End(ctx, StatusFailed))

		store, err := OpenStore(dbPath)
		require.NoError(t, err)
		defer store.Close()
		rec, err := store.GetRun(ctx, run.ID())
		require.NoError(t, err)
		assert.Equal(t, StatusFailed, rec.Status)
		assert.Equal(t, "bank", rec.Experiment)
	})

	t.Run("auto falls back to sqlite", func(t *testing.T) {
		t.Setenv("MLFLOW_TRACKING_URI", "")
		run, err := Start(ctx, Config{Backend: BackendAuto, DBPath: filepath.Join(t.TempDir(), "runs.db")})
		require.NoError(t, err)
		assert.IsType(t, &SQLiteRun{}, run)
		require.NoError(t, run.End(ctx, StatusFinished))
	})

	t.Run("none", func(t *testing.T) {
		run, err := Start(ctx, Config{Backend: BackendNone})
		require.NoError(t, err)
		assert.Equal(t, Discard{}, run)
		assert.NoError(t, run.LogMetric(ctx, "Accuracy", 1))
		assert.NoError(t, run.End(ctx, StatusFinished))
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := Start(ctx, Config{Backend: "azure"})
		assert.ErrorIs(t, err, common.ErrInvalidConfig)
	})
}
