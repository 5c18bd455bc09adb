package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunLifecycle(t *testing.T) {
	r := NewRun()
	assert.Equal(t, RunStatusIdle, r.Status)

	require.NoError(t, r.MarkConfiguring("exp", []int{0, 2}))
	require.NoError(t, r.MarkGeometryReady(4))
	require.NoError(t, r.MarkExtracting())
	require.NoError(t, r.MarkDone(12))

	assert.Equal(t, RunStatusDone, r.Status)
	assert.Equal(t, "exp", r.Experiment)
	assert.Equal(t, []int{0, 2}, r.Channels)
	assert.Equal(t, 4, r.Stations)
	assert.Equal(t, 12, r.FrameCount)
	require.NotNil(t, r.CompletedAt)
	assert.Equal(t, r.UpdatedAt, *r.CompletedAt)
}

func TestRunInvalidTransitions(t *testing.T) {
	r := NewRun()
	assert.ErrorIs(t, r.MarkExtracting(), ErrInvalidTransition)
	assert.ErrorIs(t, r.MarkFailed("boom"), ErrInvalidTransition)
	assert.ErrorIs(t, r.MarkDone(1), ErrInvalidTransition)
	assert.Equal(t, RunStatusIdle, r.Status)

	require.NoError(t, r.MarkConfiguring("exp", []int{0}))
	require.NoError(t, r.MarkFailed("boom"))
	assert.Equal(t, "boom", r.ErrorMessage)
	// terminal
	assert.ErrorIs(t, r.MarkFailed("again"), ErrInvalidTransition)
	assert.ErrorIs(t, r.MarkGeometryReady(2), ErrInvalidTransition)
}

func TestImageIDs(t *testing.T) {
	tests := []struct {
		name        string
		first, last int
		skip        int
		want        []int
	}{
		{"no skip", 1, 5, 0, []int{1, 2, 3, 4}},
		{"skip two", 10, 17, 2, []int{10, 13, 16}},
		{"last exclusive", 0, 6, 2, []int{0, 3}},
		{"empty range", 5, 5, 0, nil},
		{"single", 3, 4, 9, []int{3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ExperimentConfig{FirstImageID: tt.first, LastImageID: tt.last, Skip: tt.skip}
			assert.Equal(t, tt.want, c.ImageIDs())
		})
	}
}

func TestImagePath(t *testing.T) {
	c := ExperimentConfig{ImageDir: "/data/exp", ImageNameTemplate: "DSC%05d.JPG"}
	assert.Equal(t, "/data/exp/DSC00042.JPG", c.ImagePath(42))
}

func validExperiment() ExperimentConfig {
	return ExperimentConfig{
		Name:              "exp",
		ResultsDir:        "results",
		ImageNameTemplate: "img%d.jpg",
		ImageFormat:       ImageFormatJPEG,
		FirstImageID:      1,
		LastImageID:       3,
		NumROIs:           2,
		WindowWidth:       10,
		Camera:            Point{0, 0, 0},
		Channels:          []int{0, 1, 2},
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validExperiment().Validate())

	tests := []struct {
		name   string
		mutate func(*ExperimentConfig)
	}{
		{"no name", func(c *ExperimentConfig) { c.Name = "" }},
		{"no template", func(c *ExperimentConfig) { c.ImageNameTemplate = "" }},
		{"empty range", func(c *ExperimentConfig) { c.LastImageID = c.FirstImageID }},
		{"negative skip", func(c *ExperimentConfig) { c.Skip = -1 }},
		{"no rois", func(c *ExperimentConfig) { c.NumROIs = 0 }},
		{"no window", func(c *ExperimentConfig) { c.WindowWidth = 0 }},
		{"no camera", func(c *ExperimentConfig) { c.Camera = nil }},
		{"no channels", func(c *ExperimentConfig) { c.Channels = nil }},
		{"bad channel", func(c *ExperimentConfig) { c.Channels = []int{3} }},
		{"duplicate channel", func(c *ExperimentConfig) { c.Channels = []int{1, 1} }},
		{"bad format", func(c *ExperimentConfig) { c.ImageFormat = "png" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validExperiment()
			tt.mutate(&c)
			assert.ErrorIs(t, c.Validate(), ErrInvalidConfiguration)
		})
	}
}

func TestMeanDistances(t *testing.T) {
	assert.Equal(t, []float64{1.5, 3}, MeanDistances([]float64{1, 2}, []float64{2, 4, 6}))

	g := &Geometry{
		N:     1,
		Dark:  FaceGeometry{Stations: []Station{{Distance: 2}, {Distance: 4}}},
		Light: FaceGeometry{Stations: []Station{{Distance: 4}, {Distance: 6}}},
	}
	assert.Equal(t, 2, g.Stations())
	assert.Equal(t, []float64{3, 5}, g.MeanDistances())
	assert.Equal(t, 4.0, g.Face(FaceLight).Stations[0].Distance)
}

func TestPointZ(t *testing.T) {
	assert.Equal(t, 3.0, Point{1, 2, 3}.Z())
	assert.Equal(t, 2.0, Point{1, 2}.Z())
	assert.Equal(t, 0.0, Point{}.Z())
}
