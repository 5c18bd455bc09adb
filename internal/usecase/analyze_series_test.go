package usecase

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radiancemethod/radiance/internal/domain/entity"
	"github.com/radiancemethod/radiance/internal/domain/geometry"
	"github.com/radiancemethod/radiance/internal/infra/csvstore"
	"github.com/radiancemethod/radiance/internal/infra/manifest"
)

func extractForAnalysis(t *testing.T) (entity.ExperimentConfig, *csvstore.Store) {
	t.Helper()
	exp := testExperiment(t.TempDir())
	f := newExtractFixture(t, exp, nil)
	f.addFrames(exp, 1, 2, 3)
	_, err := f.uc.Run(context.Background(), exp)
	require.NoError(t, err)
	return exp, f.store
}

func newAnalyze(exp entity.ExperimentConfig, store *csvstore.Store) *AnalyzeSeriesUseCase {
	return NewAnalyzeSeriesUseCase(store, store, zap.NewNop(), AnalyzeSeriesConfig{
		Experiment: exp.Name,
		ResultsDir: exp.ResultsDir,
	})
}

func TestAnalyzeAfterExtraction(t *testing.T) {
	exp, store := extractForAnalysis(t)
	uc := newAnalyze(exp, store)

	res, err := uc.Analyze(context.Background(), exp.Channels, entity.BaselineRange{})
	require.NoError(t, err)
	require.Len(t, res.Intensity, 3)
	require.Len(t, res.Extinction, 3)

	for _, ch := range exp.Channels {
		in := res.Intensity[ch]
		assert.Equal(t, []float64{100, 100, 100}, in.Baseline)
		wantI := []float64{1, 0.9, 0.8}
		for r, row := range in.Rows {
			for _, v := range row.Values {
				assert.InDelta(t, wantI[r], v, 1e-12)
			}
		}

		ex := res.Extinction[ch]
		assert.Equal(t, []float64{0, 1, 2}, ex.Distances)
		// station 0 sits at the camera
		assert.True(t, math.IsNaN(ex.Rows[0].Values[0]))
		assert.True(t, math.IsInf(ex.Rows[1].Values[0], 1))
		assert.InDelta(t, -math.Log(0.9), ex.Rows[1].Values[1], 1e-12)
		assert.InDelta(t, -math.Log(0.8)/2, ex.Rows[2].Values[2], 1e-12)
		assert.Equal(t, 30*time.Second, ex.Rows[1].TimeDelta)

		require.Len(t, ex.Warnings, 1)
		assert.Equal(t, entity.InvalidDistanceWarning, ex.Warnings[0].Kind)
		assert.Equal(t, 0, ex.Warnings[0].Station)
		assert.Equal(t, 3, ex.Warnings[0].Rows)
	}
	assert.Len(t, res.Warnings, 3)
	assert.Len(t, res.Files, 7)

	loaded, err := csvstore.LoadDerived(store.ExtinctionPath(1), 1)
	require.NoError(t, err)
	require.Len(t, loaded.Rows, 3)
	assert.True(t, math.IsInf(loaded.Rows[2].Values[0], 1))
	assert.InDelta(t, -math.Log(0.8), loaded.Rows[2].Values[1], 1e-12)

	report, err := manifest.LoadReport(manifest.ReportPath(exp.ResultsDir, exp.Name))
	require.NoError(t, err)
	assert.Equal(t, [2]int{0, 1}, report.Baseline)
	assert.Equal(t, 3, report.Rows)
	assert.Len(t, report.Warnings, 3)
}

func TestAnalyzeBaselineRange(t *testing.T) {
	exp, store := extractForAnalysis(t)
	uc := newAnalyze(exp, store)

	res, err := uc.Analyze(context.Background(), []int{2}, entity.BaselineRange{Start: 0, End: 2})
	require.NoError(t, err)
	in := res.Intensity[2]
	assert.Equal(t, []float64{95, 95, 95}, in.Baseline)
	assert.InDelta(t, 100.0/95, in.Rows[0].Values[0], 1e-12)

	_, err = uc.Analyze(context.Background(), []int{2}, entity.BaselineRange{Start: 1, End: 5})
	assert.ErrorIs(t, err, entity.ErrInvalidConfiguration)
}

func TestAnalyzeMissingSeries(t *testing.T) {
	exp := testExperiment(t.TempDir())
	empty, err := csvstore.NewStore(exp.ResultsDir, exp.Name)
	require.NoError(t, err)
	uc := newAnalyze(exp, empty)

	_, err = uc.Analyze(context.Background(), []int{0}, entity.BaselineRange{})
	assert.ErrorIs(t, err, entity.ErrMissingResultFile)

	_, err = uc.Analyze(context.Background(), nil, entity.BaselineRange{})
	assert.ErrorIs(t, err, entity.ErrInvalidConfiguration)
}

func writeSeries(t *testing.T, store *csvstore.Store, key entity.SeriesKey, header entity.SeriesHeader, ids ...int) {
	t.Helper()
	w, err := store.CreateSeries(context.Background(), key, header)
	require.NoError(t, err)
	for _, id := range ids {
		values := make([]float64, header.Stations())
		require.NoError(t, w.Append(entity.FrameRow{ImageID: id, CaptureTime: t0, Values: values}))
	}
	require.NoError(t, w.Commit())
}

func TestAnalyzeMismatchedImageIDs(t *testing.T) {
	exp := testExperiment(t.TempDir())
	store, err := csvstore.NewStore(exp.ResultsDir, exp.Name)
	require.NoError(t, err)
	header := entity.SeriesHeader{Heights: []float64{0, 1, 2}, Distances: []float64{0, 1, 2}}
	writeSeries(t, store, entity.SeriesKey{Channel: 0, Face: entity.FaceDark}, header, 1, 2)
	writeSeries(t, store, entity.SeriesKey{Channel: 0, Face: entity.FaceLight}, header, 1, 3)

	_, err = newAnalyze(exp, store).Analyze(context.Background(), []int{0}, entity.BaselineRange{})
	assert.ErrorIs(t, err, entity.ErrSchemaMismatch)
}

func TestAnalyzeStationCountDiffersFromGeometry(t *testing.T) {
	exp := testExperiment(t.TempDir())
	store, err := csvstore.NewStore(exp.ResultsDir, exp.Name)
	require.NoError(t, err)
	header := entity.SeriesHeader{Heights: []float64{0, 2}, Distances: []float64{0, 2}}
	writeSeries(t, store, entity.SeriesKey{Channel: 0, Face: entity.FaceDark}, header, 1, 2)
	writeSeries(t, store, entity.SeriesKey{Channel: 0, Face: entity.FaceLight}, header, 1, 2)

	geom, err := geometry.FromConfig(exp)
	require.NoError(t, err)
	_, err = store.WriteGeometry(context.Background(), geom)
	require.NoError(t, err)

	_, err = newAnalyze(exp, store).Load(context.Background(), []int{0})
	assert.ErrorIs(t, err, entity.ErrSchemaMismatch)
}
