package entity

import (
	"fmt"
	"path/filepath"
)

// ExperimentConfigVersion is the schema revision of ExperimentConfig.
const ExperimentConfigVersion = 2

type ImageFormat string

const (
	ImageFormatJPEG ImageFormat = "jpg"
	ImageFormatRaw  ImageFormat = "raw"
)

// RawParams controls normalisation of sensor mosaics.
type RawParams struct {
	BlackLevel float64
	WhiteLevel float64
	ColorDepth int
	Pattern    string // CFA layout of the top-left 2x2 block, e.g. "RGGB"
}

// BaselineRange selects frames [Start, End) as the unobscured reference.
type BaselineRange struct {
	Start int
	End   int
}

func (b BaselineRange) Len() int { return b.End - b.Start }

// ExperimentConfig is built once before geometry computation and passed by value
// into each stage. Bounds left nil are treated as unset.
type ExperimentConfig struct {
	Version int
	Name    string

	ImageDir          string
	ResultsDir        string
	ImageNameTemplate string // fmt verb for the image id, e.g. "DSC%05d.JPG"
	ImageFormat       ImageFormat
	Raw               RawParams

	FirstImageID     int
	LastImageID      int
	Skip             int
	ReferenceImageID int

	DarkPixel  *PixelSegment
	LightPixel *PixelSegment
	DarkReal   *Segment
	LightReal  *Segment

	NumROIs     int
	WindowWidth int
	Camera      Point

	Channels      []int
	Baseline      BaselineRange
	HeightMarkers []float64
}

// ImageIDs returns the configured image ids in ascending order.
func (c ExperimentConfig) ImageIDs() []int {
	step := c.Skip + 1
	if step < 1 || c.LastImageID <= c.FirstImageID {
		return nil
	}
	ids := make([]int, 0, (c.LastImageID-c.FirstImageID+step-1)/step)
	for id := c.FirstImageID; id < c.LastImageID; id += step {
		ids = append(ids, id)
	}
	return ids
}

func (c ExperimentConfig) ImagePath(imageID int) string {
	return filepath.Join(c.ImageDir, fmt.Sprintf(c.ImageNameTemplate, imageID))
}

// Validate checks everything needed before the Configuring state is entered.
// Bounds are checked later, when geometry is computed.
func (c ExperimentConfig) Validate() error {
	switch {
	case c.Name == "":
		return fmt.Errorf("%w: experiment name is empty", ErrInvalidConfiguration)
	case c.ImageNameTemplate == "":
		return fmt.Errorf("%w: image name template is empty", ErrInvalidConfiguration)
	case c.ResultsDir == "":
		return fmt.Errorf("%w: results dir is empty", ErrInvalidConfiguration)
	case c.LastImageID <= c.FirstImageID:
		return fmt.Errorf("%w: image range [%d, %d) is empty", ErrInvalidConfiguration, c.FirstImageID, c.LastImageID)
	case c.Skip < 0:
		return fmt.Errorf("%w: skip %d is negative", ErrInvalidConfiguration, c.Skip)
	case c.NumROIs < 1:
		return fmt.Errorf("%w: number of rois %d < 1", ErrInvalidConfiguration, c.NumROIs)
	case c.WindowWidth < 1:
		return fmt.Errorf("%w: roi window width %d < 1", ErrInvalidConfiguration, c.WindowWidth)
	case len(c.Camera) == 0:
		return fmt.Errorf("%w: camera position is unset", ErrInvalidConfiguration)
	case len(c.Channels) == 0:
		return fmt.Errorf("%w: no channels selected", ErrInvalidConfiguration)
	}
	if c.ImageFormat != ImageFormatJPEG && c.ImageFormat != ImageFormatRaw {
		return fmt.Errorf("%w: unknown image format %q", ErrInvalidConfiguration, c.ImageFormat)
	}
	seen := map[int]bool{}
	for _, ch := range c.Channels {
		if ch < 0 || ch > 2 {
			return fmt.Errorf("%w: channel %d not in [0, 2]", ErrInvalidConfiguration, ch)
		}
		if seen[ch] {
			return fmt.Errorf("%w: channel %d listed twice", ErrInvalidConfiguration, ch)
		}
		seen[ch] = true
	}
	return nil
}
