// Package geometry maps operator-supplied line segments onto evenly spaced ROI
// stations and computes the camera distance of each station.
//
// Every function here is pure: the same inputs give bit-identical outputs.
package geometry

import (
	"fmt"

	"github.com/radiancemethod/radiance/internal/domain/entity"
	"gonum.org/v1/gonum/floats"
)

// Bounds are the pixel-space and real-space endpoints of one calibration face.
type Bounds struct {
	Pixel *entity.PixelSegment
	Real  *entity.Segment
}

// DivideSegment returns n+1 points from p1 to p2 and the per-axis step.
// The endpoints are returned as given, not recomputed from the step.
func DivideSegment(p1, p2 entity.Point, n int) ([]entity.Point, []float64, error) {
	if n < 1 {
		return nil, nil, fmt.Errorf("%w: segment divisions %d < 1", entity.ErrInvalidConfiguration, n)
	}
	if len(p1) == 0 || len(p1) != len(p2) {
		return nil, nil, fmt.Errorf("%w: endpoint dimensions %d and %d", entity.ErrInvalidConfiguration, len(p1), len(p2))
	}

	step := make([]float64, len(p1))
	for a := range p1 {
		step[a] = (p2[a] - p1[a]) / float64(n)
	}

	points := make([]entity.Point, 0, n+1)
	points = append(points, append(entity.Point(nil), p1...))
	for i := 1; i < n; i++ {
		p := make(entity.Point, len(p1))
		for a := range p1 {
			p[a] = p1[a] + step[a]*float64(i)
		}
		points = append(points, p)
	}
	points = append(points, append(entity.Point(nil), p2...))
	return points, step, nil
}

// DividePixelSegment is DivideSegment in pixel space. The step stays floating
// point; only the resulting interior coordinates are truncated to integers.
func DividePixelSegment(p1, p2 entity.PixelPoint, n int) ([]entity.PixelPoint, [2]float64, error) {
	pts, step, err := DivideSegment(
		entity.Point{float64(p1.X), float64(p1.Y)},
		entity.Point{float64(p2.X), float64(p2.Y)},
		n,
	)
	if err != nil {
		return nil, [2]float64{}, err
	}
	out := make([]entity.PixelPoint, len(pts))
	for i, p := range pts {
		out[i] = entity.PixelPoint{X: int(p[0]), Y: int(p[1])}
	}
	out[0], out[n] = p1, p2
	return out, [2]float64{step[0], step[1]}, nil
}

// CameraDistance is the Euclidean distance between a station and the camera.
func CameraDistance(station, camera entity.Point) (float64, error) {
	if len(station) == 0 || len(station) != len(camera) {
		return 0, fmt.Errorf("%w: station has %d axes, camera %d", entity.ErrInvalidConfiguration, len(station), len(camera))
	}
	return floats.Distance(station, camera, 2), nil
}

// WindowHeight derives the ROI window height from the vertical pixel step. The
// sign is kept so windows grow in the direction of the segment; a window is at
// least one pixel tall.
func WindowHeight(pixelStepY float64) int {
	h := int(pixelStepY)
	if h == 0 {
		if pixelStepY < 0 {
			return -1
		}
		return 1
	}
	return h
}

// Compute builds the full geometry for both faces.
func Compute(dark, light Bounds, n int, camera entity.Point, windowWidth int) (*entity.Geometry, error) {
	if len(camera) == 0 {
		return nil, fmt.Errorf("%w: camera position is unset", entity.ErrInvalidConfiguration)
	}
	if windowWidth < 1 {
		return nil, fmt.Errorf("%w: roi window width %d < 1", entity.ErrInvalidConfiguration, windowWidth)
	}
	df, err := computeFace(entity.FaceDark, dark, n, camera, windowWidth)
	if err != nil {
		return nil, err
	}
	lf, err := computeFace(entity.FaceLight, light, n, camera, windowWidth)
	if err != nil {
		return nil, err
	}
	return &entity.Geometry{
		N:      n,
		Camera: append(entity.Point(nil), camera...),
		Dark:   *df,
		Light:  *lf,
	}, nil
}

// FromConfig runs Compute on the bounds of an experiment configuration.
func FromConfig(cfg entity.ExperimentConfig) (*entity.Geometry, error) {
	return Compute(
		Bounds{Pixel: cfg.DarkPixel, Real: cfg.DarkReal},
		Bounds{Pixel: cfg.LightPixel, Real: cfg.LightReal},
		cfg.NumROIs, cfg.Camera, cfg.WindowWidth,
	)
}

func computeFace(face entity.Face, b Bounds, n int, camera entity.Point, windowWidth int) (*entity.FaceGeometry, error) {
	if b.Pixel == nil {
		return nil, fmt.Errorf("%w: %s pixel bounds are unset", entity.ErrInvalidConfiguration, face)
	}
	if b.Real == nil {
		return nil, fmt.Errorf("%w: %s real bounds are unset", entity.ErrInvalidConfiguration, face)
	}

	pixels, pixelStep, err := DividePixelSegment(b.Pixel.From, b.Pixel.To, n)
	if err != nil {
		return nil, fmt.Errorf("%s pixel stations: %w", face, err)
	}
	reals, realStep, err := DivideSegment(b.Real.From, b.Real.To, n)
	if err != nil {
		return nil, fmt.Errorf("%s real stations: %w", face, err)
	}

	stations := make([]entity.Station, n+1)
	for i := range stations {
		d, err := CameraDistance(reals[i], camera)
		if err != nil {
			return nil, fmt.Errorf("%s station %d: %w", face, i, err)
		}
		stations[i] = entity.Station{Index: i, Pixel: pixels[i], Real: reals[i], Distance: d}
	}

	return &entity.FaceGeometry{
		Face:      face,
		Stations:  stations,
		PixelStep: pixelStep,
		RealStep:  realStep,
		Window:    entity.ROIWindow{Width: windowWidth, Height: WindowHeight(pixelStep[1])},
	}, nil
}

// MarkerRow maps a real height onto the pixel row where it appears on a face,
// interpolating pixel y linearly against real z between the face bounds.
func MarkerRow(b Bounds, height float64) (float64, error) {
	if b.Pixel == nil || b.Real == nil {
		return 0, fmt.Errorf("%w: bounds are unset", entity.ErrInvalidConfiguration)
	}
	dz := b.Real.To.Z() - b.Real.From.Z()
	if dz == 0 {
		return 0, fmt.Errorf("%w: real bounds have no vertical extent", entity.ErrInvalidConfiguration)
	}
	dy := float64(b.Pixel.To.Y - b.Pixel.From.Y)
	return float64(b.Pixel.From.Y) + (height-b.Real.From.Z())*dy/dz, nil
}
