package imaging

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"golang.org/x/image/tiff"
	"gonum.org/v1/gonum/mat"

	"github.com/radiancemethod/radiance/internal/domain/entity"
)

// RawMosaicDecoder reads an undemosaiced sensor dump stored as a
// single-channel 16-bit TIFF (for example `dcraw -D -4 -T`).
type RawMosaicDecoder struct {
	black, white float64
	max          float64
	pattern      [4]int // channel of each cell of the 2x2 CFA block, row major
}

func NewRawMosaicDecoder(p entity.RawParams) (*RawMosaicDecoder, error) {
	if p.ColorDepth < 1 || p.ColorDepth > 16 {
		return nil, fmt.Errorf("%w: raw colour depth %d not in [1, 16]", entity.ErrInvalidConfiguration, p.ColorDepth)
	}
	if p.WhiteLevel <= p.BlackLevel {
		return nil, fmt.Errorf("%w: raw white level %g <= black level %g", entity.ErrInvalidConfiguration, p.WhiteLevel, p.BlackLevel)
	}
	pattern, err := parsePattern(p.Pattern)
	if err != nil {
		return nil, err
	}
	return &RawMosaicDecoder{
		black:   p.BlackLevel,
		white:   p.WhiteLevel,
		max:     math.Exp2(float64(p.ColorDepth)) - 1,
		pattern: pattern,
	}, nil
}

func parsePattern(s string) ([4]int, error) {
	var out [4]int
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) != 4 {
		return out, fmt.Errorf("%w: cfa pattern %q must have 4 cells", entity.ErrInvalidConfiguration, s)
	}
	seen := [3]bool{}
	for i, r := range s {
		switch r {
		case 'R':
			out[i] = 0
		case 'G':
			out[i] = 1
		case 'B':
			out[i] = 2
		default:
			return out, fmt.Errorf("%w: cfa pattern %q has unknown colour %q", entity.ErrInvalidConfiguration, s, r)
		}
		seen[out[i]] = true
	}
	if !seen[0] || !seen[1] || !seen[2] {
		return out, fmt.Errorf("%w: cfa pattern %q misses a colour", entity.ErrInvalidConfiguration, s)
	}
	return out, nil
}

func (d *RawMosaicDecoder) Decode(ctx context.Context, path string) (*entity.Frame, error) {
	f, err := openImage(ctx, path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := tiff.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("decode raw mosaic %s: %w", path, err)
	}
	frame, err := d.split(img)
	if err != nil {
		return nil, fmt.Errorf("decode raw mosaic %s: %w", path, err)
	}
	return frame, nil
}

// split normalises the mosaic to whole counts in [0, 2^depth-1] and scatters
// each photosite into its colour plane. Photosites of other colours stay zero.
func (d *RawMosaicDecoder) split(img image.Image) (*entity.Frame, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("mosaic has no pixels")
	}
	rows, cols := b.Dy(), b.Dx()
	frame := &entity.Frame{}
	for c := range frame.Channels {
		frame.Channels[c] = mat.NewDense(rows, cols, nil)
	}

	gray, _ := img.(*image.Gray16)
	scale := d.max / (d.white - d.black)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			var v uint16
			if gray != nil {
				v = gray.Gray16At(b.Min.X+x, b.Min.Y+y).Y
			} else {
				v = color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16).Y
			}
			n := math.Trunc((float64(v) - d.black) * scale)
			n = math.Min(math.Max(n, 0), d.max)
			ch := d.pattern[(y%2)*2+x%2]
			frame.Channels[ch].Set(y, x, n)
		}
	}
	return frame, nil
}
