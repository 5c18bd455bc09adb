package usecase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/radiancemethod/radiance/internal/domain/entity"
)

var t0 = time.Date(2019, 3, 14, 12, 0, 0, 0, time.UTC)

const (
	testRows = 64
	testCols = 32
	// columns left of split belong to the dark strip
	split = 16
)

// fakeImages serves synthetic frames: every pixel left of split holds the
// dark value, the rest the light value, plus the channel index.
type fakeImages struct {
	levels  map[string][2]float64
	times   map[string]time.Time
	rows    int
	cols    int
	decoded []string
}

func newFakeImages() *fakeImages {
	return &fakeImages{
		levels: make(map[string][2]float64),
		times:  make(map[string]time.Time),
		rows:   testRows,
		cols:   testCols,
	}
}

func (f *fakeImages) add(exp entity.ExperimentConfig, id int, dark, light float64, captured time.Time) {
	path := exp.ImagePath(id)
	f.levels[path] = [2]float64{dark, light}
	f.times[path] = captured
}

func (f *fakeImages) Decode(_ context.Context, path string) (*entity.Frame, error) {
	lv, ok := f.levels[path]
	if !ok {
		return nil, fmt.Errorf("open image %s: %w", path, os.ErrNotExist)
	}
	f.decoded = append(f.decoded, filepath.Base(path))
	frame := &entity.Frame{}
	for c := range frame.Channels {
		data := make([]float64, f.rows*f.cols)
		for y := 0; y < f.rows; y++ {
			for x := 0; x < f.cols; x++ {
				v := lv[1]
				if x < split {
					v = lv[0]
				}
				data[y*f.cols+x] = v + float64(c)
			}
		}
		frame.Channels[c] = mat.NewDense(f.rows, f.cols, data)
	}
	return frame, nil
}

func (f *fakeImages) CaptureTime(_ context.Context, path string) (time.Time, error) {
	ts, ok := f.times[path]
	if !ok || ts.IsZero() {
		return time.Time{}, fmt.Errorf("%w: %s", entity.ErrMissingCaptureTime, path)
	}
	return ts, nil
}

type fakePublisher struct {
	messages [][]byte
}

func (p *fakePublisher) PublishStatus(_ context.Context, msg []byte) error {
	p.messages = append(p.messages, msg)
	return nil
}

type fakeArchive struct {
	key  string
	data []byte
}

func (a *fakeArchive) UploadArchive(_ context.Context, key string, r io.Reader, size int64) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	if int64(buf.Len()) != size {
		return fmt.Errorf("size %d, read %d", size, buf.Len())
	}
	a.key, a.data = key, buf.Bytes()
	return nil
}

type fakeNotifier struct {
	calls []string
}

func (n *fakeNotifier) NotifyFailure(_ context.Context, to, runID, experiment, errorMsg string) error {
	n.calls = append(n.calls, fmt.Sprintf("%s|%s|%s|%s", to, runID, experiment, errorMsg))
	return nil
}
