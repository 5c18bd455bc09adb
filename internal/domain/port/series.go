package port

import (
	"context"

	"github.com/radiancemethod/radiance/internal/domain/entity"
)

// SeriesWriter appends frame rows to one staged series. Nothing is visible at the
// final path until Commit; Abort discards the staged file.
type SeriesWriter interface {
	Append(row entity.FrameRow) error
	// Path is where the series appears once committed.
	Path() string
	Commit() error
	Abort() error
}

type SeriesSink interface {
	CreateSeries(ctx context.Context, key entity.SeriesKey, header entity.SeriesHeader) (SeriesWriter, error)
	WriteGeometry(ctx context.Context, geom *entity.Geometry) ([]string, error)
}

type SeriesSource interface {
	LoadSeries(ctx context.Context, key entity.SeriesKey) (*entity.ExtractedSeries, error)
	LoadCoordinates(ctx context.Context, face entity.Face) (*entity.FaceCoordinates, error)
}

// DerivedSink persists analyzer output; it never touches extracted series.
type DerivedSink interface {
	WriteIntensity(ctx context.Context, s *entity.IntensitySeries) (string, error)
	WriteExtinction(ctx context.Context, s *entity.ExtinctionSeries) (string, error)
}
