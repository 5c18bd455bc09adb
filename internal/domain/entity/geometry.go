package entity

import "fmt"

type Face string

const (
	FaceDark  Face = "dark"
	FaceLight Face = "light"
)

// Faces lists the calibration faces in the order they are written and paired.
var Faces = []Face{FaceDark, FaceLight}

// Point is a real-space position, 2-D or 3-D.
type Point []float64

func (p Point) Dim() int { return len(p) }

// Z returns the vertical coordinate: the last axis of the point.
func (p Point) Z() float64 {
	if len(p) == 0 {
		return 0
	}
	return p[len(p)-1]
}

type PixelPoint struct {
	X int
	Y int
}

func (p PixelPoint) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

type PixelSegment struct {
	From PixelPoint
	To   PixelPoint
}

type Segment struct {
	From Point
	To   Point
}

type Station struct {
	Index    int
	Pixel    PixelPoint
	Real     Point
	Distance float64
}

type ROIWindow struct {
	Width  int
	Height int
}

// FaceGeometry holds the N+1 stations of one calibration face.
type FaceGeometry struct {
	Face      Face
	Stations  []Station
	PixelStep [2]float64
	RealStep  []float64
	Window    ROIWindow
}

func (fg FaceGeometry) Anchors() []PixelPoint {
	out := make([]PixelPoint, len(fg.Stations))
	for i, s := range fg.Stations {
		out[i] = s.Pixel
	}
	return out
}

func (fg FaceGeometry) Heights() []float64 {
	out := make([]float64, len(fg.Stations))
	for i, s := range fg.Stations {
		out[i] = s.Real.Z()
	}
	return out
}

func (fg FaceGeometry) Distances() []float64 {
	out := make([]float64, len(fg.Stations))
	for i, s := range fg.Stations {
		out[i] = s.Distance
	}
	return out
}

// Geometry is computed once per experiment configuration and is read-only afterwards.
type Geometry struct {
	N      int
	Camera Point
	Dark   FaceGeometry
	Light  FaceGeometry
}

func (g *Geometry) Face(f Face) FaceGeometry {
	if f == FaceLight {
		return g.Light
	}
	return g.Dark
}

// Stations is N+1.
func (g *Geometry) Stations() int { return g.N + 1 }

// MeanDistances averages the dark and light camera distance of each station pair.
func (g *Geometry) MeanDistances() []float64 {
	return MeanDistances(g.Dark.Distances(), g.Light.Distances())
}

func MeanDistances(dark, light []float64) []float64 {
	n := len(dark)
	if len(light) < n {
		n = len(light)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = (dark[i] + light[i]) / 2
	}
	return out
}
