package artifact

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/minimarket-io/demandcast/dataset"
	"github.com/minimarket-io/demandcast/models"
	"github.com/minimarket-io/demandcast/trainer"
)

var testFeatureNames = []string{"x0", "x1"}

// trainedBundle fits the candidate panel on a small linear dataset and
// wraps the winner at the given timestamp.
func trainedBundle(t *testing.T, trainedAt time.Time) *Bundle {
	t.Helper()

	rows := 60
	x := mat.NewDense(rows, 2, nil)
	y := make([]float64, rows)
	for i := 0; i < rows; i++ {
		x.SetRow(i, []float64{float64(i), float64(i % 5)})
		y[i] = 2 + 0.5*float64(i) - float64(i%5)
	}
	ds := &dataset.Dataset{Schema: dataset.NewSchema(testFeatureNames), X: x, Y: y}

	tr, err := trainer.New(nil, zerolog.Nop())
	require.NoError(t, err)
	report, err := tr.Train(context.Background(), ds)
	require.NoError(t, err)

	b, err := NewBundle(report.BestResult(), testFeatureNames, trainedAt)
	require.NoError(t, err)
	return b
}

func TestBundleFilename(t *testing.T) {
	b := &Bundle{
		ModelName: models.KindRidge,
		TrainedAt: time.Date(2025, 1, 2, 15, 4, 5, 0, time.UTC),
	}
	assert.Equal(t, "ridge_20250102_150405.json", b.Filename())
}

func TestBundleSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	trainedAt := time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)
	b := trainedBundle(t, trainedAt)

	path, err := b.Save(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, b.Filename()), path)

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, b.ModelName, loaded.ModelName)
	assert.Equal(t, b.FeatureNames, loaded.FeatureNames)
	assert.Equal(t, b.TestMetrics, loaded.TestMetrics)
	assert.True(t, b.TrainedAt.Equal(loaded.TrainedAt))

	// the restored pipeline must predict exactly what the original does
	orig, err := b.Restore()
	require.NoError(t, err)
	restored, err := loaded.Restore()
	require.NoError(t, err)

	probe := mat.NewDense(3, 2, []float64{
		10, 0,
		25, 3,
		59, 4,
	})
	want, err := orig.Predict(probe)
	require.NoError(t, err)
	got, err := restored.Predict(probe)
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-9)
	}
}

func TestLoadVersionMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ridge_20250101_000000.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"format_version": 99}`), 0o644))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrVersionMismatch)
}

func TestLoadLatest(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadLatest(dir)
	assert.ErrorIs(t, err, ErrNoArtifacts)

	older := trainedBundle(t, time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC))
	newer := trainedBundle(t, time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC))
	_, err = older.Save(dir)
	require.NoError(t, err)
	_, err = newer.Save(dir)
	require.NoError(t, err)

	latest, err := LoadLatest(dir)
	require.NoError(t, err)
	assert.True(t, newer.TrainedAt.Equal(latest.TrainedAt))
}

func TestLoadLatestMissingDir(t *testing.T) {
	_, err := LoadLatest(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, ErrNoArtifacts)
}

func TestRegistryPromoteAndDefault(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry(dir)

	older := trainedBundle(t, time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC))
	newer := trainedBundle(t, time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC))
	_, err := older.Save(dir)
	require.NoError(t, err)
	_, err = newer.Save(dir)
	require.NoError(t, err)

	// nothing promoted yet: fall back to the most recent artifact
	def, err := reg.Default()
	require.NoError(t, err)
	assert.True(t, newer.TrainedAt.Equal(def.TrainedAt))

	// promotion pins the default even when a newer artifact exists
	require.NoError(t, reg.Promote(older.Filename()))
	def, err = reg.Default()
	require.NoError(t, err)
	assert.True(t, older.TrainedAt.Equal(def.TrainedAt))

	names, err := reg.List()
	require.NoError(t, err)
	assert.Equal(t, []string{older.Filename(), newer.Filename()}, names)
}

func TestRegistryPromoteMissing(t *testing.T) {
	reg := NewRegistry(t.TempDir())
	assert.Error(t, reg.Promote("ridge_20250101_000000.json"))
}

func TestRegistryEmptyPointer(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "DEFAULT"), []byte("\n"), 0o644))

	_, err := NewRegistry(dir).Default()
	assert.ErrorIs(t, err, ErrNoDefaultArtifact)
}
