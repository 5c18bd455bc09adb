package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"

	"github.com/radiancemethod/radiance/internal/domain/entity"
)

type experimentFile struct {
	Version           int       `mapstructure:"version"`
	Name              string    `mapstructure:"name"`
	ImageDir          string    `mapstructure:"image_dir"`
	ResultsDir        string    `mapstructure:"results_dir"`
	ImageNameTemplate string    `mapstructure:"image_name_template"`
	ImageFormat       string    `mapstructure:"image_format"`
	Raw               rawFile   `mapstructure:"raw"`
	Images            imageFile `mapstructure:"images"`
	Dark              faceFile  `mapstructure:"dark"`
	Light             faceFile  `mapstructure:"light"`
	ROIs              roiFile   `mapstructure:"rois"`
	Camera            []float64 `mapstructure:"camera"`
	Channels          []int     `mapstructure:"channels"`
	Baseline          [2]int    `mapstructure:"baseline"`
	HeightMarkers     []float64 `mapstructure:"height_markers"`
}

type rawFile struct {
	BlackLevel float64 `mapstructure:"black_level"`
	WhiteLevel float64 `mapstructure:"white_level"`
	ColorDepth int     `mapstructure:"color_depth"`
	Pattern    string  `mapstructure:"pattern"`
}

type imageFile struct {
	First     int `mapstructure:"first"`
	Last      int `mapstructure:"last"`
	Skip      int `mapstructure:"skip"`
	Reference int `mapstructure:"reference"`
}

type faceFile struct {
	Pixel [][]int     `mapstructure:"pixel"`
	Real  [][]float64 `mapstructure:"real"`
}

type roiFile struct {
	Count int `mapstructure:"count"`
	Width int `mapstructure:"width"`
}

// LoadExperiment reads an experiment YAML file. Relative image and results
// directories are resolved against the file's directory.
func LoadExperiment(path string) (entity.ExperimentConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setExperimentDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return entity.ExperimentConfig{}, fmt.Errorf("failed to read experiment file: %w", err)
	}
	var f experimentFile
	if err := v.Unmarshal(&f); err != nil {
		return entity.ExperimentConfig{}, fmt.Errorf("failed to unmarshal experiment file: %w", err)
	}

	cfg, err := f.toEntity(filepath.Dir(path))
	if err != nil {
		return entity.ExperimentConfig{}, fmt.Errorf("experiment file %s: %w", path, err)
	}
	return cfg, nil
}

func setExperimentDefaults(v *viper.Viper) {
	v.SetDefault("version", entity.ExperimentConfigVersion)
	v.SetDefault("image_format", string(entity.ImageFormatJPEG))
	v.SetDefault("results_dir", "results")

	v.SetDefault("raw.black_level", 0.0)
	v.SetDefault("raw.white_level", 16383.0)
	v.SetDefault("raw.color_depth", 14)
	v.SetDefault("raw.pattern", "RGGB")

	v.SetDefault("images.skip", 0)

	v.SetDefault("rois.width", 10)
	v.SetDefault("camera", []float64{0, 0, 0})
	v.SetDefault("channels", []int{0, 1, 2})
	v.SetDefault("baseline", []int{0, 1})
}

func (f experimentFile) toEntity(base string) (entity.ExperimentConfig, error) {
	if f.Version > entity.ExperimentConfigVersion {
		return entity.ExperimentConfig{}, fmt.Errorf("%w: config version %d is newer than %d",
			entity.ErrInvalidConfiguration, f.Version, entity.ExperimentConfigVersion)
	}
	tmpl, err := TranslateTemplate(f.ImageNameTemplate)
	if err != nil {
		return entity.ExperimentConfig{}, err
	}
	cfg := entity.ExperimentConfig{
		Version:           f.Version,
		Name:              f.Name,
		ImageDir:          resolve(base, f.ImageDir),
		ResultsDir:        resolve(base, f.ResultsDir),
		ImageNameTemplate: tmpl,
		ImageFormat:       entity.ImageFormat(strings.ToLower(f.ImageFormat)),
		Raw: entity.RawParams{
			BlackLevel: f.Raw.BlackLevel,
			WhiteLevel: f.Raw.WhiteLevel,
			ColorDepth: f.Raw.ColorDepth,
			Pattern:    f.Raw.Pattern,
		},
		FirstImageID:     f.Images.First,
		LastImageID:      f.Images.Last,
		Skip:             f.Images.Skip,
		ReferenceImageID: f.Images.Reference,
		NumROIs:          f.ROIs.Count,
		WindowWidth:      f.ROIs.Width,
		Camera:           entity.Point(f.Camera),
		Channels:         f.Channels,
		Baseline:         entity.BaselineRange{Start: f.Baseline[0], End: f.Baseline[1]},
		HeightMarkers:    f.HeightMarkers,
	}
	if cfg.ImageFormat == "jpeg" {
		cfg.ImageFormat = entity.ImageFormatJPEG
	}
	if cfg.DarkPixel, err = pixelSegment("dark.pixel", f.Dark.Pixel); err != nil {
		return cfg, err
	}
	if cfg.LightPixel, err = pixelSegment("light.pixel", f.Light.Pixel); err != nil {
		return cfg, err
	}
	if cfg.DarkReal, err = realSegment("dark.real", f.Dark.Real); err != nil {
		return cfg, err
	}
	if cfg.LightReal, err = realSegment("light.real", f.Light.Real); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func resolve(base, dir string) string {
	if dir == "" || filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(base, dir)
}

// unset bounds stay nil and are rejected when geometry is computed
func pixelSegment(key string, pts [][]int) (*entity.PixelSegment, error) {
	if len(pts) == 0 {
		return nil, nil
	}
	if len(pts) != 2 || len(pts[0]) != 2 || len(pts[1]) != 2 {
		return nil, fmt.Errorf("%w: %s must be two [x, y] points", entity.ErrInvalidConfiguration, key)
	}
	return &entity.PixelSegment{
		From: entity.PixelPoint{X: pts[0][0], Y: pts[0][1]},
		To:   entity.PixelPoint{X: pts[1][0], Y: pts[1][1]},
	}, nil
}

func realSegment(key string, pts [][]float64) (*entity.Segment, error) {
	if len(pts) == 0 {
		return nil, nil
	}
	if len(pts) != 2 || len(pts[0]) == 0 || len(pts[0]) != len(pts[1]) {
		return nil, fmt.Errorf("%w: %s must be two points of equal dimension", entity.ErrInvalidConfiguration, key)
	}
	return &entity.Segment{From: entity.Point(pts[0]), To: entity.Point(pts[1])}, nil
}

var pyField = regexp.MustCompile(`\{(?::(0?\d*)d?)?\}`)

// TranslateTemplate accepts both fmt verbs ("DSC%05d.JPG") and the brace
// placeholders of older experiment files ("DSC{:05d}.JPG", "img_{}.jpg").
func TranslateTemplate(tmpl string) (string, error) {
	if !strings.ContainsAny(tmpl, "{}") {
		return tmpl, nil
	}
	escaped := strings.ReplaceAll(tmpl, "%", "%%")
	n := 0
	out := pyField.ReplaceAllStringFunc(escaped, func(m string) string {
		n++
		return "%" + pyField.FindStringSubmatch(m)[1] + "d"
	})
	if n != 1 || strings.ContainsAny(out, "{}") {
		return "", fmt.Errorf("%w: image name template %q needs exactly one integer field", entity.ErrInvalidConfiguration, tmpl)
	}
	return out, nil
}
