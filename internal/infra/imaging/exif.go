package imaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"

	"github.com/radiancemethod/radiance/internal/domain/entity"
)

const exifTimeLayout = "2006:01:02 15:04:05"

// ExifClock reads DateTimeOriginal from an image's EXIF block. Timestamps carry
// no zone and are returned as UTC.
type ExifClock struct{}

func NewExifClock() *ExifClock { return &ExifClock{} }

func (c *ExifClock) CaptureTime(ctx context.Context, path string) (time.Time, error) {
	f, err := openImage(ctx, path)
	if err != nil {
		return time.Time{}, err
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s: %v", entity.ErrMissingCaptureTime, path, err)
	}
	tag, err := x.Get(exif.DateTimeOriginal)
	if err != nil {
		var notPresent exif.TagNotPresentError
		if errors.As(err, &notPresent) {
			return time.Time{}, fmt.Errorf("%w: %s has no DateTimeOriginal", entity.ErrMissingCaptureTime, path)
		}
		return time.Time{}, fmt.Errorf("%w: %s: %v", entity.ErrMissingCaptureTime, path, err)
	}
	s, err := tag.StringVal()
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s: %v", entity.ErrMissingCaptureTime, path, err)
	}
	ts, err := time.ParseInLocation(exifTimeLayout, strings.TrimRight(s, "\x00 "), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s: %v", entity.ErrMissingCaptureTime, path, err)
	}
	return ts, nil
}
