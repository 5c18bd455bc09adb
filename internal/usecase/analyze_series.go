package usecase

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/radiancemethod/radiance/internal/domain/entity"
	"github.com/radiancemethod/radiance/internal/domain/port"
	"github.com/radiancemethod/radiance/internal/domain/radiometry"
	"github.com/radiancemethod/radiance/internal/infra/manifest"
	"github.com/radiancemethod/radiance/internal/infra/metrics"
)

// AnalyzeSeriesUseCase turns persisted dark/light series into intensity and
// extinction tables. It never modifies the extracted series.
type AnalyzeSeriesUseCase struct {
	source port.SeriesSource
	sink   port.DerivedSink
	logger *zap.Logger
	cfg    AnalyzeSeriesConfig
}

type AnalyzeSeriesConfig struct {
	Experiment string
	ResultsDir string
}

// AnalysisResult is the in-memory output of one analysis.
type AnalysisResult struct {
	Intensity  map[int]*entity.IntensitySeries
	Extinction map[int]*entity.ExtinctionSeries
	Warnings   []entity.Warning
	Files      []string
}

func NewAnalyzeSeriesUseCase(source port.SeriesSource, sink port.DerivedSink, logger *zap.Logger, cfg AnalyzeSeriesConfig) *AnalyzeSeriesUseCase {
	return &AnalyzeSeriesUseCase{
		source: source,
		sink:   sink,
		logger: logger.With(zap.String("experiment", cfg.Experiment)),
		cfg:    cfg,
	}
}

// Load reads the series of every channel and the persisted face geometry.
func (uc *AnalyzeSeriesUseCase) Load(ctx context.Context, channels []int) (*entity.Dataset, error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("%w: no channels to analyse", entity.ErrInvalidConfiguration)
	}
	ds := &entity.Dataset{Series: make(map[entity.SeriesKey]*entity.ExtractedSeries)}

	for _, ch := range channels {
		for _, face := range entity.Faces {
			key := entity.SeriesKey{Channel: ch, Face: face}
			s, err := uc.source.LoadSeries(ctx, key)
			if err != nil {
				return nil, fmt.Errorf("load series %s: %w", key, err)
			}
			ds.Series[key] = s
		}
		dark, light, _ := ds.Pair(ch)
		if err := radiometry.CheckPair(dark, light); err != nil {
			return nil, err
		}
	}

	for _, face := range entity.Faces {
		fc, err := uc.source.LoadCoordinates(ctx, face)
		if err != nil {
			return nil, fmt.Errorf("load %s coordinates: %w", face, err)
		}
		if face == entity.FaceDark {
			ds.Dark = *fc
		} else {
			ds.Light = *fc
		}
	}

	for key, s := range ds.Series {
		fc := ds.Dark
		if key.Face == entity.FaceLight {
			fc = ds.Light
		}
		if len(fc.Distances) != s.Stations() {
			return nil, fmt.Errorf("%w: series %s has %d stations, %s geometry has %d",
				entity.ErrSchemaMismatch, key, s.Stations(), key.Face, len(fc.Distances))
		}
	}
	return ds, nil
}

// Analyze loads, computes and persists intensity and extinction per channel.
// Warnings are attached to the result and to the analysis report; they never
// fail the analysis.
func (uc *AnalyzeSeriesUseCase) Analyze(ctx context.Context, channels []int, baseline entity.BaselineRange) (*AnalysisResult, error) {
	ctx, span := otel.Tracer("usecase").Start(ctx, "AnalyzeSeriesUseCase.Analyze")
	defer span.End()
	span.SetAttributes(attribute.String("analysis.experiment", uc.cfg.Experiment))
	start := time.Now()

	if baseline == (entity.BaselineRange{}) {
		baseline = radiometry.DefaultBaseline
	}

	ds, err := uc.Load(ctx, channels)
	if err != nil {
		uc.logger.Error("failed to load results", zap.Error(err))
		return nil, err
	}
	distances := entity.MeanDistances(ds.Dark.Distances, ds.Light.Distances)

	res := &AnalysisResult{
		Intensity:  make(map[int]*entity.IntensitySeries),
		Extinction: make(map[int]*entity.ExtinctionSeries),
	}
	rows := 0
	for _, ch := range channels {
		dark, light, _ := ds.Pair(ch)
		rows = len(dark.Rows)

		in, err := radiometry.ComputeIntensity(dark, light, baseline)
		if err != nil {
			return nil, fmt.Errorf("channel %d intensity: %w", ch, err)
		}
		path, err := uc.sink.WriteIntensity(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("channel %d intensity: %w", ch, err)
		}
		res.Intensity[ch] = in
		res.Files = append(res.Files, path)

		ex, err := radiometry.ComputeExtinction(in, distances)
		if err != nil {
			return nil, fmt.Errorf("channel %d extinction: %w", ch, err)
		}
		path, err = uc.sink.WriteExtinction(ctx, ex)
		if err != nil {
			return nil, fmt.Errorf("channel %d extinction: %w", ch, err)
		}
		res.Extinction[ch] = ex
		res.Files = append(res.Files, path)

		for _, w := range ex.Warnings {
			uc.logger.Warn("suspect station",
				zap.String("kind", string(w.Kind)),
				zap.Int("channel", w.Channel),
				zap.Int("station", w.Station),
				zap.Int("rows", w.Rows),
				zap.String("message", w.Message),
			)
			metrics.AnalysisWarningsTotal.WithLabelValues(string(w.Kind)).Inc()
		}
		res.Warnings = append(res.Warnings, ex.Warnings...)
	}

	if uc.cfg.ResultsDir != "" {
		report := &manifest.AnalysisReport{
			Experiment:  uc.cfg.Experiment,
			Channels:    channels,
			Baseline:    [2]int{baseline.Start, baseline.End},
			Rows:        rows,
			Files:       res.Files,
			Warnings:    res.Warnings,
			GeneratedAt: time.Now().UTC(),
		}
		path := manifest.ReportPath(uc.cfg.ResultsDir, uc.cfg.Experiment)
		if err := manifest.WriteReport(path, report); err != nil {
			return nil, err
		}
		res.Files = append(res.Files, path)
	}

	metrics.StageDuration.WithLabelValues("analyze").Observe(time.Since(start).Seconds())
	uc.logger.Info("analysis completed",
		zap.Ints("channels", channels),
		zap.Int("rows", rows),
		zap.Int("warnings", len(res.Warnings)),
	)
	return res, nil
}
