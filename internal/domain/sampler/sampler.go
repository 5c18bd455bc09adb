// Package sampler computes mean brightness inside fixed-size ROI windows.
package sampler

import (
	"fmt"
	"image"

	"github.com/radiancemethod/radiance/internal/domain/entity"
	"gonum.org/v1/gonum/mat"
)

// Window returns the pixel rectangle sampled for an anchor. Columns span
// [x-w/2, x-w/2+w); rows span [y, y+h), or [y+h, y) when h is negative.
func Window(anchor entity.PixelPoint, w, h int) image.Rectangle {
	x0 := anchor.X - w/2
	y0, y1 := anchor.Y, anchor.Y+h
	if h < 0 {
		y0, y1 = y1, y0
	}
	return image.Rect(x0, y0, x0+w, y1)
}

// Sample returns the mean of plane inside the window of every anchor, in anchor
// order. A window that leaves the plane is an error; it is never clipped.
func Sample(plane mat.Matrix, anchors []entity.PixelPoint, w, h int) ([]float64, error) {
	if plane == nil {
		return nil, fmt.Errorf("%w: nil channel plane", entity.ErrInvalidConfiguration)
	}
	if w < 1 || h == 0 {
		return nil, fmt.Errorf("%w: roi window %dx%d", entity.ErrInvalidConfiguration, w, h)
	}
	rows, cols := plane.Dims()
	bounds := image.Rect(0, 0, cols, rows)

	out := make([]float64, len(anchors))
	for i, a := range anchors {
		win := Window(a, w, h)
		if !win.In(bounds) {
			return nil, fmt.Errorf("%w: station %d window %v outside frame %dx%d", entity.ErrRoiOutOfBounds, i, win, cols, rows)
		}
		out[i] = mean(plane, win)
	}
	return out, nil
}

func mean(plane mat.Matrix, win image.Rectangle) float64 {
	if s, ok := plane.(interface {
		Slice(i, k, j, l int) mat.Matrix
	}); ok {
		return mat.Sum(s.Slice(win.Min.Y, win.Max.Y, win.Min.X, win.Max.X)) / float64(win.Dx()*win.Dy())
	}
	var sum float64
	for r := win.Min.Y; r < win.Max.Y; r++ {
		for c := win.Min.X; c < win.Max.X; c++ {
			sum += plane.At(r, c)
		}
	}
	return sum / float64(win.Dx()*win.Dy())
}
