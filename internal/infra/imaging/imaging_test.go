package imaging

import (
	"bytes"
	"context"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"

	"github.com/radiancemethod/radiance/internal/domain/entity"
)

func uniformJPEG(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 100}))
	return buf.Bytes()
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

// withExif splices an APP1 segment holding only DateTimeOriginal after SOI.
func withExif(jpg []byte, stamp string) []byte {
	le := binary.LittleEndian
	tif := make([]byte, 44)
	copy(tif, "II")
	le.PutUint16(tif[2:], 42)
	le.PutUint32(tif[4:], 8)
	// IFD0: one entry pointing at the Exif sub-IFD
	le.PutUint16(tif[8:], 1)
	le.PutUint16(tif[10:], 0x8769)
	le.PutUint16(tif[12:], 4)
	le.PutUint32(tif[14:], 1)
	le.PutUint32(tif[18:], 26)
	le.PutUint32(tif[22:], 0)
	// Exif IFD: DateTimeOriginal
	le.PutUint16(tif[26:], 1)
	le.PutUint16(tif[28:], 0x9003)
	le.PutUint16(tif[30:], 2)
	le.PutUint32(tif[32:], uint32(len(stamp)+1))
	le.PutUint32(tif[36:], 44)
	le.PutUint32(tif[40:], 0)
	tif = append(tif, stamp...)
	tif = append(tif, 0)

	payload := append([]byte("Exif\x00\x00"), tif...)
	seg := []byte{0xFF, 0xE1, 0, 0}
	binary.BigEndian.PutUint16(seg[2:], uint16(len(payload)+2))
	seg = append(seg, payload...)

	out := append([]byte{}, jpg[:2]...)
	out = append(out, seg...)
	return append(out, jpg[2:]...)
}

func TestJPEGDecoderUniformFrame(t *testing.T) {
	path := writeFile(t, "DSC00001.JPG", uniformJPEG(t, 16, 8, color.RGBA{R: 200, G: 120, B: 40, A: 255}))

	frame, err := NewJPEGDecoder().Decode(context.Background(), path)
	require.NoError(t, err)
	want := [3]float64{200, 120, 40}
	for c, plane := range frame.Channels {
		r, cols := plane.Dims()
		assert.Equal(t, 8, r)
		assert.Equal(t, 16, cols)
		assert.InDelta(t, want[c], plane.At(3, 5), 3, "channel %d", c)
	}
}

func TestJPEGDecoderMissingFile(t *testing.T) {
	_, err := NewJPEGDecoder().Decode(context.Background(), filepath.Join(t.TempDir(), "nope.jpg"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRawMosaicDecoderSplitsPattern(t *testing.T) {
	img := image.NewGray16(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetGray16(x, y, color.Gray16{Y: uint16(1000 + 100*y + x)})
		}
	}
	img.SetGray16(3, 3, color.Gray16{Y: 100})
	var buf bytes.Buffer
	require.NoError(t, tiff.Encode(&buf, img, nil))
	path := writeFile(t, "frame.tiff", buf.Bytes())

	dec, err := NewRawMosaicDecoder(entity.RawParams{BlackLevel: 200, WhiteLevel: 4295, ColorDepth: 12, Pattern: "RGGB"})
	require.NoError(t, err)
	frame, err := dec.Decode(context.Background(), path)
	require.NoError(t, err)

	red, green, blue := frame.Channels[0], frame.Channels[1], frame.Channels[2]
	assert.InDelta(t, 800, red.At(0, 0), 1e-9)
	assert.Zero(t, red.At(0, 1))
	assert.InDelta(t, 801, green.At(0, 1), 1e-9)
	assert.InDelta(t, 900, green.At(1, 0), 1e-9)
	assert.InDelta(t, 901, blue.At(1, 1), 1e-9)
	assert.Zero(t, blue.At(0, 0))
	// below black level clips to zero
	assert.Zero(t, blue.At(3, 3))
}

func TestRawMosaicDecoderClipsToRange(t *testing.T) {
	dec, err := NewRawMosaicDecoder(entity.RawParams{BlackLevel: 0, WhiteLevel: 1000, ColorDepth: 8, Pattern: "BGGR"})
	require.NoError(t, err)
	img := image.NewGray16(image.Rect(0, 0, 2, 2))
	img.SetGray16(0, 0, color.Gray16{Y: 5000})
	img.SetGray16(1, 1, color.Gray16{Y: 500})

	frame, err := dec.split(img)
	require.NoError(t, err)
	assert.Equal(t, 255.0, frame.Channels[2].At(0, 0))
	assert.Equal(t, 127.0, frame.Channels[0].At(1, 1))
}

func TestRawMosaicDecoderRejectsParams(t *testing.T) {
	bad := []entity.RawParams{
		{WhiteLevel: 100, ColorDepth: 0, Pattern: "RGGB"},
		{BlackLevel: 100, WhiteLevel: 100, ColorDepth: 14, Pattern: "RGGB"},
		{WhiteLevel: 100, ColorDepth: 14, Pattern: "RGB"},
		{WhiteLevel: 100, ColorDepth: 14, Pattern: "RGGX"},
		{WhiteLevel: 100, ColorDepth: 14, Pattern: "RRGG"},
	}
	for _, p := range bad {
		_, err := NewRawMosaicDecoder(p)
		assert.ErrorIs(t, err, entity.ErrInvalidConfiguration, "%+v", p)
	}
}

func TestNewDecoder(t *testing.T) {
	d, err := NewDecoder(entity.ImageFormatJPEG, entity.RawParams{})
	require.NoError(t, err)
	assert.IsType(t, &JPEGDecoder{}, d)

	d, err = NewDecoder(entity.ImageFormatRaw, entity.RawParams{WhiteLevel: 16383, ColorDepth: 14, Pattern: "RGGB"})
	require.NoError(t, err)
	assert.IsType(t, &RawMosaicDecoder{}, d)

	_, err = NewDecoder("png", entity.RawParams{})
	assert.ErrorIs(t, err, entity.ErrInvalidConfiguration)
}

func TestExifClockReadsDateTimeOriginal(t *testing.T) {
	jpg := uniformJPEG(t, 8, 8, color.RGBA{A: 255})
	path := writeFile(t, "DSC00002.JPG", withExif(jpg, "2019:03:14 12:34:56"))

	ts, err := NewExifClock().CaptureTime(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2019, 3, 14, 12, 34, 56, 0, time.UTC), ts)
}

func TestExifClockMissingExif(t *testing.T) {
	path := writeFile(t, "DSC00003.JPG", uniformJPEG(t, 8, 8, color.RGBA{A: 255}))

	_, err := NewExifClock().CaptureTime(context.Background(), path)
	assert.ErrorIs(t, err, entity.ErrMissingCaptureTime)
}

func TestExifClockCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewExifClock().CaptureTime(ctx, "whatever.jpg")
	assert.ErrorIs(t, err, context.Canceled)
}
