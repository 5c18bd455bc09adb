package entity

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"
)

// Frame is one decoded image: three channel planes indexed [row][col].
type Frame struct {
	Channels [3]*mat.Dense
}

type SeriesKey struct {
	Channel int
	Face    Face
}

func (k SeriesKey) String() string { return fmt.Sprintf("%s/channel_%d", k.Face, k.Channel) }

// FrameRow is one frame's ROI means; Values has one entry per station.
type FrameRow struct {
	ImageID     int
	CaptureTime time.Time
	TimeDelta   time.Duration
	Values      []float64
}

// SeriesHeader is the static geometry block written once at the top of a series.
type SeriesHeader struct {
	Heights   []float64
	Distances []float64
}

func (h SeriesHeader) Stations() int { return len(h.Heights) }

// ExtractedSeries rows are in ascending image id order.
type ExtractedSeries struct {
	Key SeriesKey
	SeriesHeader
	Rows []FrameRow
}

func (s *ExtractedSeries) ImageIDs() []int {
	ids := make([]int, len(s.Rows))
	for i, r := range s.Rows {
		ids[i] = r.ImageID
	}
	return ids
}

// DerivedSeries is the shape shared by intensity and extinction tables.
type DerivedSeries struct {
	Channel int
	SeriesHeader
	Rows []FrameRow
}

type IntensitySeries struct {
	DerivedSeries
	Baseline []float64
}

type ExtinctionSeries struct {
	DerivedSeries
	Warnings []Warning
}

// FaceCoordinates is the persisted per-face geometry used by the analyzer.
type FaceCoordinates struct {
	Face      Face
	Positions []Point
	Distances []float64
}

// Dataset is everything the analyzer reloads from a results directory.
type Dataset struct {
	Series map[SeriesKey]*ExtractedSeries
	Dark   FaceCoordinates
	Light  FaceCoordinates
}

func (d *Dataset) Pair(channel int) (dark, light *ExtractedSeries, ok bool) {
	dark, okD := d.Series[SeriesKey{Channel: channel, Face: FaceDark}]
	light, okL := d.Series[SeriesKey{Channel: channel, Face: FaceLight}]
	return dark, light, okD && okL
}
