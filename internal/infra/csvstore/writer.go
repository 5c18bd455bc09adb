package csvstore

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/radiancemethod/radiance/internal/domain/entity"
	"github.com/radiancemethod/radiance/internal/domain/port"
)

// stagedFile is a buffered CSV writer on a temporary file next to its final
// path. The final path only appears when Commit renames the temporary file.
type stagedFile struct {
	path string
	file *os.File
	buf  *bufio.Writer
	csv  *csv.Writer
	done bool
}

func newStagedFile(path string) (*stagedFile, error) {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.partial")
	if err != nil {
		return nil, fmt.Errorf("csv create %s: %w", path, err)
	}
	bw := bufio.NewWriterSize(f, 256*1024)
	return &stagedFile{path: path, file: f, buf: bw, csv: csv.NewWriter(bw)}, nil
}

func (w *stagedFile) Path() string { return w.path }

func (w *stagedFile) write(row []string) error {
	if w.done {
		return fmt.Errorf("csv write %s: already closed", w.path)
	}
	if err := w.csv.Write(row); err != nil {
		return fmt.Errorf("csv write %s: %w", w.path, err)
	}
	return nil
}

func (w *stagedFile) Commit() error {
	if w.done {
		return fmt.Errorf("csv commit %s: already closed", w.path)
	}
	w.done = true
	w.csv.Flush()
	err := errors.Join(w.csv.Error(), w.buf.Flush(), w.file.Close())
	if err != nil {
		_ = os.Remove(w.file.Name())
		return fmt.Errorf("csv commit %s: %w", w.path, err)
	}
	if err := os.Rename(w.file.Name(), w.path); err != nil {
		_ = os.Remove(w.file.Name())
		return fmt.Errorf("csv commit %s: %w", w.path, err)
	}
	return nil
}

// Abort discards the staged file. It is safe to call after Commit.
func (w *stagedFile) Abort() error {
	if w.done {
		return nil
	}
	w.done = true
	_ = w.file.Close()
	if err := os.Remove(w.file.Name()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("csv abort %s: %w", w.path, err)
	}
	return nil
}

func (w *stagedFile) writeHeader(h entity.SeriesHeader) error {
	n := h.Stations()
	rows := [][]string{
		append([]string{heightLabel, "", unitLabel}, ftoaAll(h.Heights)...),
		append([]string{distanceLabel, "", unitLabel}, ftoaAll(h.Distances)...),
		append(append([]string(nil), fixedColumns...), roiLabels(n)...),
	}
	for _, r := range rows {
		if err := w.write(r); err != nil {
			return err
		}
	}
	return nil
}

func (w *stagedFile) writeFrame(r entity.FrameRow) error {
	row := make([]string, 0, leadColumns+len(r.Values))
	row = append(row, strconv.Itoa(r.ImageID), r.CaptureTime.Format(timeLayout), formatDelta(r.TimeDelta))
	row = append(row, ftoaAll(r.Values)...)
	return w.write(row)
}

// seriesWriter checks every appended row against the header width.
type seriesWriter struct {
	*stagedFile
	stations int
}

func (w *seriesWriter) Append(r entity.FrameRow) error {
	if len(r.Values) != w.stations {
		return fmt.Errorf("%w: %d values for %d stations in %s", entity.ErrSchemaMismatch, len(r.Values), w.stations, w.path)
	}
	return w.writeFrame(r)
}

// CreateSeries stages the file of one (channel, face) series and writes its header.
func (s *Store) CreateSeries(_ context.Context, key entity.SeriesKey, header entity.SeriesHeader) (port.SeriesWriter, error) {
	if len(header.Heights) != len(header.Distances) {
		return nil, fmt.Errorf("%w: %d heights and %d distances", entity.ErrSchemaMismatch, len(header.Heights), len(header.Distances))
	}
	f, err := newStagedFile(s.SeriesPath(string(key.Face), key.Channel))
	if err != nil {
		return nil, err
	}
	if err := f.writeHeader(header); err != nil {
		_ = f.Abort()
		return nil, err
	}
	return &seriesWriter{stagedFile: f, stations: header.Stations()}, nil
}

// WriteGeometry writes station coordinates and camera distances for both faces.
func (s *Store) WriteGeometry(_ context.Context, geom *entity.Geometry) ([]string, error) {
	var paths []string
	for _, face := range entity.Faces {
		fg := geom.Face(face)

		coords, err := newStagedFile(s.CoordinatesPath(string(face)))
		if err != nil {
			return paths, err
		}
		if err := writeCoordinates(coords, fg); err != nil {
			_ = coords.Abort()
			return paths, err
		}
		if err := coords.Commit(); err != nil {
			return paths, err
		}
		paths = append(paths, coords.path)

		dists, err := newStagedFile(s.DistancesPath(string(face)))
		if err != nil {
			return paths, err
		}
		for _, d := range fg.Distances() {
			if err := dists.write([]string{ftoa(d)}); err != nil {
				_ = dists.Abort()
				return paths, err
			}
		}
		if err := dists.Commit(); err != nil {
			return paths, err
		}
		paths = append(paths, dists.path)
	}
	return paths, nil
}

func writeCoordinates(w *stagedFile, fg entity.FaceGeometry) error {
	if len(fg.Stations) == 0 {
		return fmt.Errorf("%w: %s face has no stations", entity.ErrSchemaMismatch, fg.Face)
	}
	axes := []string{"X", "Y", "Z"}
	dim := fg.Stations[0].Real.Dim()
	if dim > len(axes) {
		return fmt.Errorf("%w: %d-d station coordinates", entity.ErrSchemaMismatch, dim)
	}
	// the comment line is written raw so csv quoting does not touch it
	w.csv.Flush()
	if _, err := w.buf.WriteString("# " + strings.Join(axes[:dim], ", ") + "\n"); err != nil {
		return fmt.Errorf("csv write %s: %w", w.path, err)
	}
	for _, st := range fg.Stations {
		if err := w.write(ftoaAll(st.Real)); err != nil {
			return err
		}
	}
	return nil
}

// WriteIntensity writes intensities_channel_{c}.csv.
func (s *Store) WriteIntensity(_ context.Context, in *entity.IntensitySeries) (string, error) {
	return s.writeDerived(s.IntensityPath(in.Channel), in.DerivedSeries)
}

// WriteExtinction writes extinction_coefficients_channel_{c}.csv. The distance
// row holds the mean dark/light distance used for the inversion.
func (s *Store) WriteExtinction(_ context.Context, ex *entity.ExtinctionSeries) (string, error) {
	return s.writeDerived(s.ExtinctionPath(ex.Channel), ex.DerivedSeries)
}

func (s *Store) writeDerived(path string, d entity.DerivedSeries) (string, error) {
	f, err := newStagedFile(path)
	if err != nil {
		return "", err
	}
	if err := f.writeHeader(d.SeriesHeader); err != nil {
		_ = f.Abort()
		return "", err
	}
	for _, r := range d.Rows {
		if err := f.writeFrame(r); err != nil {
			_ = f.Abort()
			return "", err
		}
	}
	if err := f.Commit(); err != nil {
		return "", err
	}
	return path, nil
}
