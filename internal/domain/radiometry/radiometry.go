// Package radiometry converts dark/light brightness series into transmitted
// intensity and inverts Beer-Lambert into extinction coefficients.
//
// Numerical anomalies (zero baselines, non-positive intensities, zero distances)
// propagate as NaN/Inf and are reported as warnings, never as errors.
package radiometry

import (
	"fmt"
	"math"
	"slices"

	"github.com/radiancemethod/radiance/internal/domain/entity"
)

// DefaultBaseline uses the first frame only.
var DefaultBaseline = entity.BaselineRange{Start: 0, End: 1}

// CheckPair verifies that a dark and a light series can be paired positionally.
func CheckPair(dark, light *entity.ExtractedSeries) error {
	if dark.Key.Channel != light.Key.Channel {
		return fmt.Errorf("%w: pairing channel %d with channel %d", entity.ErrSchemaMismatch, dark.Key.Channel, light.Key.Channel)
	}
	if dark.Stations() != light.Stations() {
		return fmt.Errorf("%w: channel %d has %d dark and %d light stations",
			entity.ErrSchemaMismatch, dark.Key.Channel, dark.Stations(), light.Stations())
	}
	if !slices.Equal(dark.ImageIDs(), light.ImageIDs()) {
		return fmt.Errorf("%w: channel %d dark and light image ids differ", entity.ErrSchemaMismatch, dark.Key.Channel)
	}
	return nil
}

// Baseline returns, per station, the mean of (dark - light) over the range.
func Baseline(dark, light *entity.ExtractedSeries, r entity.BaselineRange) ([]float64, error) {
	if r == (entity.BaselineRange{}) {
		r = DefaultBaseline
	}
	if r.Start < 0 || r.End <= r.Start || r.End > len(dark.Rows) {
		return nil, fmt.Errorf("%w: baseline frames [%d, %d) with %d frames",
			entity.ErrInvalidConfiguration, r.Start, r.End, len(dark.Rows))
	}
	n := dark.Stations()
	base := make([]float64, n)
	for t := r.Start; t < r.End; t++ {
		for i := 0; i < n; i++ {
			base[i] += dark.Rows[t].Values[i] - light.Rows[t].Values[i]
		}
	}
	for i := range base {
		base[i] /= float64(r.Len())
	}
	return base, nil
}

// ComputeIntensity normalises (dark - light) by its baseline for every frame and
// station. Values start near 1 and fall toward 0 as obscuration increases.
func ComputeIntensity(dark, light *entity.ExtractedSeries, r entity.BaselineRange) (*entity.IntensitySeries, error) {
	if err := CheckPair(dark, light); err != nil {
		return nil, err
	}
	base, err := Baseline(dark, light, r)
	if err != nil {
		return nil, err
	}

	rows := make([]entity.FrameRow, len(dark.Rows))
	for t, d := range dark.Rows {
		l := light.Rows[t]
		values := make([]float64, len(base))
		for i := range values {
			values[i] = (d.Values[i] - l.Values[i]) / base[i]
		}
		rows[t] = entity.FrameRow{ImageID: d.ImageID, CaptureTime: d.CaptureTime, TimeDelta: d.TimeDelta, Values: values}
	}

	return &entity.IntensitySeries{
		DerivedSeries: entity.DerivedSeries{
			Channel: dark.Key.Channel,
			SeriesHeader: entity.SeriesHeader{
				Heights:   slices.Clone(dark.Heights),
				Distances: entity.MeanDistances(dark.Distances, light.Distances),
			},
			Rows: rows,
		},
		Baseline: base,
	}, nil
}

// ComputeExtinction applies sigma = -ln(I)/d per station. The numeric result is
// always produced; suspect stations are listed in the returned warnings.
func ComputeExtinction(in *entity.IntensitySeries, distances []float64) (*entity.ExtinctionSeries, error) {
	n := in.Stations()
	if len(distances) != n {
		return nil, fmt.Errorf("%w: %d distances for %d stations", entity.ErrSchemaMismatch, len(distances), n)
	}

	nonPhysical := make([]int, n)
	rows := make([]entity.FrameRow, len(in.Rows))
	for t, row := range in.Rows {
		values := make([]float64, n)
		for i, intensity := range row.Values {
			if intensity <= 0 || math.IsNaN(intensity) || math.IsInf(intensity, 0) {
				nonPhysical[i]++
			}
			values[i] = Sigma(intensity, distances[i])
		}
		rows[t] = entity.FrameRow{ImageID: row.ImageID, CaptureTime: row.CaptureTime, TimeDelta: row.TimeDelta, Values: values}
	}

	var warnings []entity.Warning
	for i := 0; i < n; i++ {
		if distances[i] <= 0 {
			warnings = append(warnings, entity.Warning{
				Kind:    entity.InvalidDistanceWarning,
				Channel: in.Channel,
				Station: i,
				Rows:    len(in.Rows),
				Message: fmt.Sprintf("camera distance %g is not positive", distances[i]),
			})
		}
		if nonPhysical[i] > 0 {
			warnings = append(warnings, entity.Warning{
				Kind:    entity.NonPhysicalIntensityWarning,
				Channel: in.Channel,
				Station: i,
				Rows:    nonPhysical[i],
				Message: "intensity is not positive and finite; check roi geometry and image data",
			})
		}
	}

	return &entity.ExtinctionSeries{
		DerivedSeries: entity.DerivedSeries{
			Channel: in.Channel,
			SeriesHeader: entity.SeriesHeader{
				Heights:   slices.Clone(in.Heights),
				Distances: slices.Clone(distances),
			},
			Rows: rows,
		},
		Warnings: warnings,
	}, nil
}

// Sigma is the Beer-Lambert extinction coefficient for a transmitted intensity
// over a path length.
func Sigma(intensity, distance float64) float64 {
	return -math.Log(intensity) / distance
}
