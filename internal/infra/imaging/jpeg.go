package imaging

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"image/jpeg"

	"gonum.org/v1/gonum/mat"

	"github.com/radiancemethod/radiance/internal/domain/entity"
)

// JPEGDecoder yields 8-bit R, G and B planes.
type JPEGDecoder struct{}

func NewJPEGDecoder() *JPEGDecoder { return &JPEGDecoder{} }

func (d *JPEGDecoder) Decode(ctx context.Context, path string) (*entity.Frame, error) {
	f, err := openImage(ctx, path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := jpeg.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("decode jpeg %s: %w", path, err)
	}
	return FrameFromImage(img)
}

// FrameFromImage splits any image into three 8-bit colour planes.
func FrameFromImage(img image.Image) (*entity.Frame, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("image has no pixels")
	}
	rows, cols := b.Dy(), b.Dx()
	var planes [3][]float64
	for c := range planes {
		planes[c] = make([]float64, rows*cols)
	}
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			i := y*cols + x
			planes[0][i] = float64(r >> 8)
			planes[1][i] = float64(g >> 8)
			planes[2][i] = float64(bl >> 8)
		}
	}
	frame := &entity.Frame{}
	for c := range planes {
		frame.Channels[c] = mat.NewDense(rows, cols, planes[c])
	}
	return frame, nil
}
