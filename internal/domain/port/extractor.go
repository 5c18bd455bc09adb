package port

import (
	"context"
	"time"

	"github.com/radiancemethod/radiance/internal/domain/entity"
)

// ImageDecoder turns an image file into three channel planes.
type ImageDecoder interface {
	Decode(ctx context.Context, path string) (*entity.Frame, error)
}

// CaptureClock reads the capture timestamp embedded in an image file.
type CaptureClock interface {
	CaptureTime(ctx context.Context, path string) (time.Time, error)
}
