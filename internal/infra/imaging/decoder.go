// Package imaging decodes image files into channel planes and reads their
// capture timestamps.
package imaging

import (
	"context"
	"fmt"
	"os"

	"github.com/radiancemethod/radiance/internal/domain/entity"
	"github.com/radiancemethod/radiance/internal/domain/port"
)

// NewDecoder selects the decoder for an experiment's image format.
func NewDecoder(format entity.ImageFormat, raw entity.RawParams) (port.ImageDecoder, error) {
	switch format {
	case entity.ImageFormatJPEG:
		return NewJPEGDecoder(), nil
	case entity.ImageFormatRaw:
		return NewRawMosaicDecoder(raw)
	default:
		return nil, fmt.Errorf("%w: unknown image format %q", entity.ErrInvalidConfiguration, format)
	}
}

func openImage(ctx context.Context, path string) (*os.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", path, err)
	}
	return f, nil
}
