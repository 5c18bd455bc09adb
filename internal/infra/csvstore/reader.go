package csvstore

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/radiancemethod/radiance/internal/domain/entity"
)

// LoadSeries reads one extracted series back and validates its shape.
func (s *Store) LoadSeries(_ context.Context, key entity.SeriesKey) (*entity.ExtractedSeries, error) {
	header, rows, err := readTable(s.SeriesPath(string(key.Face), key.Channel))
	if err != nil {
		return nil, err
	}
	return &entity.ExtractedSeries{Key: key, SeriesHeader: header, Rows: rows}, nil
}

// LoadDerived reads an intensity or extinction table written by this store.
func LoadDerived(path string, channel int) (*entity.DerivedSeries, error) {
	header, rows, err := readTable(path)
	if err != nil {
		return nil, err
	}
	return &entity.DerivedSeries{Channel: channel, SeriesHeader: header, Rows: rows}, nil
}

// LoadCoordinates reads the station positions and camera distances of a face.
func (s *Store) LoadCoordinates(_ context.Context, face entity.Face) (*entity.FaceCoordinates, error) {
	coords, err := readRecords(s.CoordinatesPath(string(face)))
	if err != nil {
		return nil, err
	}
	dists, err := readRecords(s.DistancesPath(string(face)))
	if err != nil {
		return nil, err
	}
	if len(coords) != len(dists) {
		return nil, fmt.Errorf("%w: %s face has %d coordinates and %d distances",
			entity.ErrSchemaMismatch, face, len(coords), len(dists))
	}

	out := &entity.FaceCoordinates{Face: face}
	for i, rec := range coords {
		vs, err := parseFloats(rec)
		if err != nil {
			return nil, fmt.Errorf("%w: %s coordinate %d: %v", entity.ErrSchemaMismatch, face, i, err)
		}
		if i > 0 && len(vs) != len(out.Positions[0]) {
			return nil, fmt.Errorf("%w: %s coordinate %d has %d axes", entity.ErrSchemaMismatch, face, i, len(vs))
		}
		out.Positions = append(out.Positions, entity.Point(vs))
	}
	for i, rec := range dists {
		if len(rec) != 1 {
			return nil, fmt.Errorf("%w: %s distance %d has %d fields", entity.ErrSchemaMismatch, face, i, len(rec))
		}
		d, err := atof(rec[0])
		if err != nil {
			return nil, fmt.Errorf("%w: %s distance %d: %v", entity.ErrSchemaMismatch, face, i, err)
		}
		out.Distances = append(out.Distances, d)
	}
	return out, nil
}

func openResult(path string) (*os.File, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", entity.ErrMissingResultFile, path)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.Comment = '#'
	cr.TrimLeadingSpace = true
	return cr
}

func readRecords(path string) ([][]string, error) {
	f, err := openResult(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	recs, err := newReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", entity.ErrSchemaMismatch, path, err)
	}
	return recs, nil
}

func readTable(path string) (entity.SeriesHeader, []entity.FrameRow, error) {
	var header entity.SeriesHeader

	f, err := openResult(path)
	if err != nil {
		return header, nil, err
	}
	defer f.Close()
	cr := newReader(f)

	mismatch := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s: %s", entity.ErrSchemaMismatch, path, fmt.Sprintf(format, args...))
	}

	next := func(what string) ([]string, error) {
		rec, err := cr.Read()
		if err == io.EOF {
			return nil, mismatch("missing %s row", what)
		}
		if err != nil {
			return nil, mismatch("%v", err)
		}
		return rec, nil
	}

	hrow, err := next("height")
	if err != nil {
		return header, nil, err
	}
	if header.Heights, err = parseLabelled(hrow, heightLabel); err != nil {
		return header, nil, mismatch("%v", err)
	}
	n := len(header.Heights)
	if n == 0 {
		return header, nil, mismatch("no stations")
	}

	drow, err := next("distance")
	if err != nil {
		return header, nil, err
	}
	if header.Distances, err = parseLabelled(drow, distanceLabel); err != nil {
		return header, nil, mismatch("%v", err)
	}
	if len(header.Distances) != n {
		return header, nil, mismatch("%d distances for %d stations", len(header.Distances), n)
	}

	crow, err := next("column")
	if err != nil {
		return header, nil, err
	}
	if len(crow) != leadColumns+n {
		return header, nil, mismatch("%d columns for %d stations", len(crow), n)
	}
	for i, want := range append(append([]string(nil), fixedColumns...), roiLabels(n)...) {
		if strings.TrimSpace(crow[i]) != want {
			return header, nil, mismatch("column %d is %q, want %q", i, crow[i], want)
		}
	}

	var rows []entity.FrameRow
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return header, nil, mismatch("%v", err)
		}
		line, _ := cr.FieldPos(0)
		if len(rec) != leadColumns+n {
			return header, nil, mismatch("line %d has %d fields, want %d", line, len(rec), leadColumns+n)
		}
		row, err := parseFrame(rec)
		if err != nil {
			return header, nil, mismatch("line %d: %v", line, err)
		}
		if len(rows) > 0 && row.ImageID <= rows[len(rows)-1].ImageID {
			return header, nil, mismatch("line %d: image id %d after %d", line, row.ImageID, rows[len(rows)-1].ImageID)
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

func parseLabelled(rec []string, label string) ([]float64, error) {
	if len(rec) < leadColumns || strings.TrimSpace(rec[0]) != label {
		return nil, fmt.Errorf("want %q header row", label)
	}
	return parseFloats(rec[leadColumns:])
}

func parseFloats(rec []string) ([]float64, error) {
	out := make([]float64, len(rec))
	for i, c := range rec {
		v, err := atof(c)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func parseFrame(rec []string) (entity.FrameRow, error) {
	var row entity.FrameRow
	id, err := strconv.Atoi(strings.TrimSpace(rec[0]))
	if err != nil {
		return row, fmt.Errorf("image id: %w", err)
	}
	ts, err := time.Parse(timeLayout, strings.TrimSpace(rec[1]))
	if err != nil {
		return row, fmt.Errorf("time: %w", err)
	}
	dt, err := parseDelta(rec[2])
	if err != nil {
		return row, err
	}
	vals, err := parseFloats(rec[leadColumns:])
	if err != nil {
		return row, fmt.Errorf("values: %w", err)
	}
	return entity.FrameRow{ImageID: id, CaptureTime: ts, TimeDelta: dt, Values: vals}, nil
}
