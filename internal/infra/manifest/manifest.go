// Package manifest writes the YAML side files of a results directory: the run
// manifest left by an extraction and the report left by an analysis.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/radiancemethod/radiance/internal/domain/entity"
)

type FaceSummary struct {
	Face       string     `yaml:"face"`
	Anchors    [][2]int   `yaml:"anchors,flow"`
	PixelStep  [2]float64 `yaml:"pixel_step,flow"`
	RealStep   []float64  `yaml:"real_step,flow"`
	Window     [2]int     `yaml:"window,flow"` // width, height
	Heights    []float64  `yaml:"heights,flow"`
	Distances  []float64  `yaml:"distances,flow"`
	MarkerRows []Marker   `yaml:"marker_rows,omitempty"`
}

// Marker places a real height on a pixel row of a face.
type Marker struct {
	Height float64 `yaml:"height"`
	Row    float64 `yaml:"row"`
}

// RunManifest records what an extraction run did.
type RunManifest struct {
	RunID         string        `yaml:"run_id"`
	Experiment    string        `yaml:"experiment"`
	ConfigVersion int           `yaml:"config_version"`
	Status        string        `yaml:"status"`
	ImageFormat   string        `yaml:"image_format"`
	ImageIDs      [3]int        `yaml:"image_ids,flow"` // first, last, skip
	ReferenceID   int           `yaml:"reference_image_id"`
	Channels      []int         `yaml:"channels,flow"`
	Stations      int           `yaml:"stations"`
	FrameCount    int           `yaml:"frame_count"`
	Camera        []float64     `yaml:"camera,flow"`
	Faces         []FaceSummary `yaml:"faces"`
	Files         []string      `yaml:"files"`
	StartedAt     time.Time     `yaml:"started_at"`
	CompletedAt   time.Time     `yaml:"completed_at"`
}

// AnalysisReport records the derived files and warnings of an analysis.
type AnalysisReport struct {
	Experiment  string           `yaml:"experiment"`
	Channels    []int            `yaml:"channels,flow"`
	Baseline    [2]int           `yaml:"baseline,flow"`
	Rows        int              `yaml:"rows"`
	Files       []string         `yaml:"files"`
	Warnings    []entity.Warning `yaml:"warnings"`
	GeneratedAt time.Time        `yaml:"generated_at"`
}

func RunPath(dir, experiment string) string {
	return filepath.Join(dir, experiment+"_run.yaml")
}

func ReportPath(dir, experiment string) string {
	return filepath.Join(dir, experiment+"_analysis.yaml")
}

// NewRunManifest summarises a finished run and its geometry.
func NewRunManifest(run *entity.Run, cfg entity.ExperimentConfig, geom *entity.Geometry, markers map[entity.Face][]Marker, files []string) *RunManifest {
	m := &RunManifest{
		RunID:         run.ID.String(),
		Experiment:    cfg.Name,
		ConfigVersion: cfg.Version,
		Status:        string(run.Status),
		ImageFormat:   string(cfg.ImageFormat),
		ImageIDs:      [3]int{cfg.FirstImageID, cfg.LastImageID, cfg.Skip},
		ReferenceID:   cfg.ReferenceImageID,
		Channels:      cfg.Channels,
		Stations:      run.Stations,
		FrameCount:    run.FrameCount,
		Camera:        geom.Camera,
		Files:         files,
		StartedAt:     run.CreatedAt,
	}
	if run.CompletedAt != nil {
		m.CompletedAt = *run.CompletedAt
	}
	for _, face := range entity.Faces {
		fg := geom.Face(face)
		fs := FaceSummary{
			Face:       string(face),
			PixelStep:  fg.PixelStep,
			RealStep:   fg.RealStep,
			Window:     [2]int{fg.Window.Width, fg.Window.Height},
			Heights:    fg.Heights(),
			Distances:  fg.Distances(),
			MarkerRows: markers[face],
		}
		for _, a := range fg.Anchors() {
			fs.Anchors = append(fs.Anchors, [2]int{a.X, a.Y})
		}
		m.Faces = append(m.Faces, fs)
	}
	return m
}

func WriteRun(path string, m *RunManifest) error {
	return write(path, m)
}

func LoadRun(path string) (*RunManifest, error) {
	var m RunManifest
	if err := load(path, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func WriteReport(path string, r *AnalysisReport) error {
	return write(path, r)
}

func LoadReport(path string) (*AnalysisReport, error) {
	var r AnalysisReport
	if err := load(path, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func write(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".partial"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func load(path string, v any) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", entity.ErrMissingResultFile, path)
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", entity.ErrSchemaMismatch, path, err)
	}
	return nil
}
