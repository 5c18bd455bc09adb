package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/radiancemethod/radiance/internal/domain/entity"
	"github.com/radiancemethod/radiance/internal/domain/geometry"
	"github.com/radiancemethod/radiance/internal/domain/port"
	"github.com/radiancemethod/radiance/internal/domain/sampler"
	"github.com/radiancemethod/radiance/internal/infra/manifest"
	"github.com/radiancemethod/radiance/internal/infra/metrics"
)

// ExtractSeriesUseCase drives one extraction run through
// Idle -> Configuring -> GeometryReady -> Extracting -> Done.
// A use case value serves exactly one run.
type ExtractSeriesUseCase struct {
	decoder   port.ImageDecoder
	clock     port.CaptureClock
	sink      port.SeriesSink
	repo      port.RunRepository
	publisher port.StatusPublisher
	archive   port.ResultArchive
	zipper    port.Zipper
	notifier  port.FailureNotifier
	logger    *zap.Logger
	cfg       ExtractSeriesConfig

	run  *entity.Run
	exp  entity.ExperimentConfig
	geom *entity.Geometry
}

type ExtractSeriesConfig struct {
	// ProgressEvery logs a progress line every n frames; 0 disables it.
	ProgressEvery  int
	NotificationTo string
	TempDir        string
}

// NewExtractSeriesUseCase wires the run. publisher, archive, zipper and
// notifier are optional and may be nil.
func NewExtractSeriesUseCase(
	decoder port.ImageDecoder,
	clock port.CaptureClock,
	sink port.SeriesSink,
	repo port.RunRepository,
	publisher port.StatusPublisher,
	archive port.ResultArchive,
	zipper port.Zipper,
	notifier port.FailureNotifier,
	logger *zap.Logger,
	cfg ExtractSeriesConfig,
) *ExtractSeriesUseCase {
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	return &ExtractSeriesUseCase{
		decoder:   decoder,
		clock:     clock,
		sink:      sink,
		repo:      repo,
		publisher: publisher,
		archive:   archive,
		zipper:    zipper,
		notifier:  notifier,
		logger:    logger,
		cfg:       cfg,
		run:       entity.NewRun(),
	}
}

// CurrentRun returns the run record in its current state.
func (uc *ExtractSeriesUseCase) CurrentRun() *entity.Run { return uc.run }

// Run executes all three transitions.
func (uc *ExtractSeriesUseCase) Run(ctx context.Context, exp entity.ExperimentConfig) (*entity.Run, error) {
	if err := uc.Configure(ctx, exp); err != nil {
		return uc.run, err
	}
	if _, err := uc.PrepareGeometry(ctx); err != nil {
		return uc.run, err
	}
	return uc.Extract(ctx)
}

// Configure validates the experiment and records the run. An invalid
// configuration leaves the run Idle.
func (uc *ExtractSeriesUseCase) Configure(ctx context.Context, exp entity.ExperimentConfig) error {
	if uc.run.Status != entity.RunStatusIdle {
		return fmt.Errorf("%w: configure in %s", entity.ErrInvalidTransition, uc.run.Status)
	}
	if err := exp.Validate(); err != nil {
		return err
	}
	if err := uc.run.MarkConfiguring(exp.Name, exp.Channels); err != nil {
		return err
	}
	uc.exp = exp
	uc.logger = uc.logger.With(zap.String("run_id", uc.run.ID.String()), zap.String("experiment", exp.Name))

	if err := uc.repo.Create(ctx, uc.run); err != nil {
		uc.logger.Error("failed to create run record", zap.Error(err))
		return fmt.Errorf("create run: %w", err)
	}
	uc.logger.Info("run configured",
		zap.Ints("channels", exp.Channels),
		zap.Int("first_image_id", exp.FirstImageID),
		zap.Int("last_image_id", exp.LastImageID),
		zap.Int("skip", exp.Skip),
	)
	return nil
}

// PrepareGeometry computes the station geometry once.
func (uc *ExtractSeriesUseCase) PrepareGeometry(ctx context.Context) (*entity.Geometry, error) {
	if uc.run.Status != entity.RunStatusConfiguring {
		return nil, fmt.Errorf("%w: prepare geometry in %s", entity.ErrInvalidTransition, uc.run.Status)
	}
	_, span := otel.Tracer("usecase").Start(ctx, "ExtractSeriesUseCase.PrepareGeometry")
	defer span.End()
	start := time.Now()

	geom, err := geometry.FromConfig(uc.exp)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, uc.fail(ctx, fmt.Errorf("compute geometry: %w", err))
	}
	if err := uc.run.MarkGeometryReady(geom.Stations()); err != nil {
		return nil, err
	}
	uc.geom = geom
	uc.update(ctx)
	metrics.StageDuration.WithLabelValues("geometry").Observe(time.Since(start).Seconds())

	uc.logger.Info("geometry ready",
		zap.Int("stations", geom.Stations()),
		zap.Int("window_width", geom.Dark.Window.Width),
		zap.Int("dark_window_height", geom.Dark.Window.Height),
		zap.Int("light_window_height", geom.Light.Window.Height),
	)
	return geom, nil
}

// seriesOut is one open output series and the face it samples.
type seriesOut struct {
	key    entity.SeriesKey
	face   entity.FaceGeometry
	writer port.SeriesWriter
}

// Extract processes every configured frame. Output is staged and only
// becomes visible after the last frame succeeded; any failure removes it.
func (uc *ExtractSeriesUseCase) Extract(ctx context.Context) (*entity.Run, error) {
	if uc.run.Status != entity.RunStatusGeometryReady {
		return uc.run, fmt.Errorf("%w: extract in %s", entity.ErrInvalidTransition, uc.run.Status)
	}
	if err := uc.run.MarkExtracting(); err != nil {
		return uc.run, err
	}
	uc.update(ctx)

	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ExtractSeriesUseCase.Extract")
	defer span.End()
	span.SetAttributes(
		attribute.String("run.id", uc.run.ID.String()),
		attribute.String("run.experiment", uc.exp.Name),
	)
	total := time.Now()

	outs, err := uc.openSeries(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return uc.run, uc.fail(ctx, err)
	}

	exStart := time.Now()
	framesCtx, spanFrames := tracer.Start(ctx, "extract_frames")
	frames, err := uc.extractFrames(framesCtx, outs)
	spanFrames.End()
	if err != nil {
		abortAll(outs)
		span.SetStatus(codes.Error, err.Error())
		return uc.run, uc.fail(ctx, err)
	}
	metrics.StageDuration.WithLabelValues("extract").Observe(time.Since(exStart).Seconds())

	files, err := uc.commit(ctx, outs)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return uc.run, uc.fail(ctx, err)
	}

	if err := uc.run.MarkDone(frames); err != nil {
		return uc.run, err
	}
	files = append(files, uc.writeManifest(files))
	uc.update(ctx)
	metrics.RunsTotal.WithLabelValues(string(entity.RunStatusDone)).Inc()
	metrics.StageDuration.WithLabelValues("total").Observe(time.Since(total).Seconds())

	archiveKey := uc.uploadArchive(ctx, files)
	uc.publishStatus(ctx, archiveKey)

	uc.logger.Info("run completed",
		zap.Int("frame_count", frames),
		zap.Int("files", len(files)),
		zap.String("archive_key", archiveKey),
		zap.Duration("elapsed", time.Since(total)),
	)
	return uc.run, nil
}

func (uc *ExtractSeriesUseCase) openSeries(ctx context.Context) ([]seriesOut, error) {
	var outs []seriesOut
	for _, ch := range uc.exp.Channels {
		for _, face := range entity.Faces {
			fg := uc.geom.Face(face)
			key := entity.SeriesKey{Channel: ch, Face: face}
			w, err := uc.sink.CreateSeries(ctx, key, entity.SeriesHeader{
				Heights:   fg.Heights(),
				Distances: fg.Distances(),
			})
			if err != nil {
				abortAll(outs)
				return nil, fmt.Errorf("open series %s: %w", key, err)
			}
			outs = append(outs, seriesOut{key: key, face: fg, writer: w})
		}
	}
	return outs, nil
}

func (uc *ExtractSeriesUseCase) extractFrames(ctx context.Context, outs []seriesOut) (int, error) {
	refPath := uc.exp.ImagePath(uc.exp.ReferenceImageID)
	refTime, err := uc.clock.CaptureTime(ctx, refPath)
	if err != nil {
		return 0, fmt.Errorf("reference image %d: %w", uc.exp.ReferenceImageID, err)
	}

	ids := uc.exp.ImageIDs()
	uc.logger.Info("processing images", zap.Int("count", len(ids)), zap.Time("reference_time", refTime))

	values := make([][]float64, len(outs))
	for n, id := range ids {
		if err := ctx.Err(); err != nil {
			return n, fmt.Errorf("interrupted before image %d: %w", id, err)
		}
		path := uc.exp.ImagePath(id)

		frame, err := uc.decoder.Decode(ctx, path)
		if err != nil {
			return n, fmt.Errorf("image %d: %w", id, err)
		}
		captured, err := uc.clock.CaptureTime(ctx, path)
		if err != nil {
			return n, fmt.Errorf("image %d: %w", id, err)
		}

		// sample everything before appending so a failing frame leaves no row behind
		for i, o := range outs {
			v, err := sampler.Sample(frame.Channels[o.key.Channel], o.face.Anchors(), o.face.Window.Width, o.face.Window.Height)
			if err != nil {
				return n, fmt.Errorf("image %d %s: %w", id, o.key, err)
			}
			values[i] = v
		}
		for i, o := range outs {
			row := entity.FrameRow{ImageID: id, CaptureTime: captured, TimeDelta: captured.Sub(refTime), Values: values[i]}
			if err := o.writer.Append(row); err != nil {
				return n, fmt.Errorf("image %d %s: %w", id, o.key, err)
			}
		}
		metrics.FramesProcessedTotal.Inc()

		if every := uc.cfg.ProgressEvery; every > 0 && (n+1)%every == 0 {
			uc.logger.Info("progress", zap.Int("processed", n+1), zap.Int("total", len(ids)), zap.Int("image_id", id))
		}
	}
	return len(ids), nil
}

// commit writes the geometry files and then renames every staged series into
// place. It returns every file now present in the results directory.
func (uc *ExtractSeriesUseCase) commit(ctx context.Context, outs []seriesOut) ([]string, error) {
	_, span := otel.Tracer("usecase").Start(ctx, "commit_series")
	defer span.End()
	start := time.Now()

	files, err := uc.sink.WriteGeometry(ctx, uc.geom)
	if err != nil {
		abortAll(outs)
		removeAll(files)
		return nil, fmt.Errorf("write geometry: %w", err)
	}
	for i, o := range outs {
		if err := o.writer.Commit(); err != nil {
			abortAll(outs[i+1:])
			removeAll(files)
			return nil, fmt.Errorf("commit series %s: %w", o.key, err)
		}
		// committed series join files so a later failure removes them too
		files = append(files, o.writer.Path())
	}
	metrics.StageDuration.WithLabelValues("commit").Observe(time.Since(start).Seconds())
	return files, nil
}

func (uc *ExtractSeriesUseCase) writeManifest(files []string) string {
	markers := make(map[entity.Face][]manifest.Marker)
	bounds := map[entity.Face]geometry.Bounds{
		entity.FaceDark:  {Pixel: uc.exp.DarkPixel, Real: uc.exp.DarkReal},
		entity.FaceLight: {Pixel: uc.exp.LightPixel, Real: uc.exp.LightReal},
	}
	for _, face := range entity.Faces {
		for _, h := range uc.exp.HeightMarkers {
			row, err := geometry.MarkerRow(bounds[face], h)
			if err != nil {
				uc.logger.Warn("height marker skipped", zap.String("face", string(face)), zap.Float64("height", h), zap.Error(err))
				continue
			}
			markers[face] = append(markers[face], manifest.Marker{Height: h, Row: row})
		}
	}

	path := manifest.RunPath(uc.exp.ResultsDir, uc.exp.Name)
	m := manifest.NewRunManifest(uc.run, uc.exp, uc.geom, markers, files)
	if err := manifest.WriteRun(path, m); err != nil {
		uc.logger.Warn("failed to write run manifest", zap.Error(err))
	}
	return path
}

// uploadArchive zips the run's files and uploads them. Failures are logged
// only; the results on disk are already complete.
func (uc *ExtractSeriesUseCase) uploadArchive(ctx context.Context, files []string) string {
	if uc.archive == nil || uc.zipper == nil {
		return ""
	}
	ctx, span := otel.Tracer("usecase").Start(ctx, "upload_archive")
	defer span.End()
	start := time.Now()

	zipPath := filepath.Join(uc.cfg.TempDir, uc.run.ID.String()+".zip")
	defer os.Remove(zipPath)

	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if err := uc.zipper.CreateZip(ctx, existing, zipPath); err != nil {
		uc.logger.Error("archive creation failed", zap.Error(err))
		return ""
	}

	zipFile, err := os.Open(zipPath)
	if err != nil {
		uc.logger.Error("failed to open archive", zap.Error(err))
		return ""
	}
	defer zipFile.Close()
	info, err := zipFile.Stat()
	if err != nil {
		uc.logger.Error("failed to stat archive", zap.Error(err))
		return ""
	}

	key := fmt.Sprintf("%s/%s.zip", uc.exp.Name, uc.run.ID.String())
	if err := uc.archive.UploadArchive(ctx, key, zipFile, info.Size()); err != nil {
		uc.logger.Error("archive upload failed", zap.Error(err))
		return ""
	}
	metrics.StageDuration.WithLabelValues("archive").Observe(time.Since(start).Seconds())
	return key
}

// fail marks the run Failed, publishes and notifies, then returns cause.
func (uc *ExtractSeriesUseCase) fail(ctx context.Context, cause error) error {
	// a cancelled run still records its failure
	ctx = context.WithoutCancel(ctx)
	if err := uc.run.MarkFailed(cause.Error()); err != nil {
		return errors.Join(cause, err)
	}
	uc.update(ctx)
	metrics.RunsTotal.WithLabelValues(string(entity.RunStatusFailed)).Inc()
	uc.logger.Error("run failed", zap.Error(cause))

	uc.publishStatus(ctx, "")
	if uc.notifier != nil && uc.cfg.NotificationTo != "" {
		_ = uc.notifier.NotifyFailure(ctx, uc.cfg.NotificationTo, uc.run.ID.String(), uc.exp.Name, cause.Error())
	}
	return cause
}

func (uc *ExtractSeriesUseCase) update(ctx context.Context) {
	if err := uc.repo.Update(ctx, uc.run); err != nil {
		uc.logger.Error("failed to update run record", zap.String("status", string(uc.run.Status)), zap.Error(err))
	}
}

func (uc *ExtractSeriesUseCase) publishStatus(ctx context.Context, archiveKey string) {
	if uc.publisher == nil {
		return
	}
	msg := entity.NewRunStatusMessage(uc.run)
	msg.ArchiveKey = archiveKey
	data, _ := json.Marshal(msg)
	if err := uc.publisher.PublishStatus(ctx, data); err != nil {
		uc.logger.Error("failed to publish status", zap.Error(err))
	}
}

func abortAll(outs []seriesOut) {
	for _, o := range outs {
		_ = o.writer.Abort()
	}
}

func removeAll(paths []string) {
	for _, p := range paths {
		_ = os.Remove(p)
	}
}
