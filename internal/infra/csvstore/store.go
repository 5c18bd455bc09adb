// Package csvstore persists extraction and analysis tables as CSV files in a
// results directory. The layout is the contract between the extraction run and
// the analyzer:
//
//	row 1: "ROI height", "", "m", h_0 … h_N
//	row 2: "Camera to ROI real distances", "", "m", d_0 … d_N
//	row 3: "Image ID", "Time", "Timedelta", "ROI 0" … "ROI N"
//	row 4+: one frame each, ascending image id
package csvstore

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	heightLabel   = "ROI height"
	distanceLabel = "Camera to ROI real distances"
	unitLabel     = "m"
	leadColumns   = 3
)

var fixedColumns = []string{"Image ID", "Time", "Timedelta"}

// Store reads and writes the files of one experiment.
type Store struct {
	dir        string
	experiment string
}

func NewStore(dir, experiment string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create results dir: %w", err)
	}
	return &Store{dir: dir, experiment: experiment}, nil
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) SeriesPath(face string, channel int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s_values_channel_%d.csv", s.experiment, face, channel))
}

func (s *Store) CoordinatesPath(face string) string {
	return filepath.Join(s.dir, fmt.Sprintf("roi_%s_coordinates.csv", face))
}

func (s *Store) DistancesPath(face string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_roi_to_camera_real_distances.csv", face))
}

func (s *Store) IntensityPath(channel int) string {
	return filepath.Join(s.dir, fmt.Sprintf("intensities_channel_%d.csv", channel))
}

func (s *Store) ExtinctionPath(channel int) string {
	return filepath.Join(s.dir, fmt.Sprintf("extinction_coefficients_channel_%d.csv", channel))
}

func roiLabels(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("ROI %d", i)
	}
	return out
}
