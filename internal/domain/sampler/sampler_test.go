package sampler

import (
	"errors"
	"testing"

	"github.com/radiancemethod/radiance/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// ramp builds a plane whose value at (r, c) is 10*r + c.
func ramp(rows, cols int) *mat.Dense {
	m := mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			m.Set(r, c, float64(10*r+c))
		}
	}
	return m
}

func TestSample_UniformFill(t *testing.T) {
	plane := mat.NewDense(6, 1, []float64{7, 7, 7, 7, 7, 7})
	got, err := Sample(plane, []entity.PixelPoint{{X: 0, Y: 0}, {X: 0, Y: 2}, {X: 0, Y: 4}}, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{7, 7, 7}, got)
}

func TestSample_WindowMean(t *testing.T) {
	plane := ramp(8, 8)
	// anchor (3,2), w=2, h=2 -> cols [2,4), rows [2,4): 22,23,32,33
	got, err := Sample(plane, []entity.PixelPoint{{X: 3, Y: 2}}, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{27.5}, got)
}

func TestSample_NegativeHeightNormalised(t *testing.T) {
	plane := ramp(8, 8)
	// rows [2,4) reached from anchor y=4 with h=-2
	down, err := Sample(plane, []entity.PixelPoint{{X: 3, Y: 2}}, 2, 2)
	require.NoError(t, err)
	up, err := Sample(plane, []entity.PixelPoint{{X: 3, Y: 4}}, 2, -2)
	require.NoError(t, err)
	assert.Equal(t, down, up)
}

func TestSample_OutOfBounds(t *testing.T) {
	plane := ramp(4, 4)
	cases := []struct {
		name   string
		anchor entity.PixelPoint
		w, h   int
	}{
		{"left", entity.PixelPoint{X: 0, Y: 0}, 4, 1},
		{"right", entity.PixelPoint{X: 3, Y: 0}, 4, 1},
		{"bottom", entity.PixelPoint{X: 1, Y: 3}, 1, 2},
		{"top", entity.PixelPoint{X: 1, Y: 0}, 1, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Sample(plane, []entity.PixelPoint{tc.anchor}, tc.w, tc.h)
			assert.True(t, errors.Is(err, entity.ErrRoiOutOfBounds), "got %v", err)
		})
	}
}

func TestSample_InvalidWindow(t *testing.T) {
	plane := ramp(4, 4)
	_, err := Sample(plane, []entity.PixelPoint{{X: 1, Y: 1}}, 0, 1)
	assert.True(t, errors.Is(err, entity.ErrInvalidConfiguration))
	_, err = Sample(plane, []entity.PixelPoint{{X: 1, Y: 1}}, 1, 0)
	assert.True(t, errors.Is(err, entity.ErrInvalidConfiguration))
}

func TestWindow(t *testing.T) {
	assert.Equal(t, "(-3,5)-(7,8)", Window(entity.PixelPoint{X: 2, Y: 5}, 10, 3).String())
	assert.Equal(t, "(2,2)-(3,5)", Window(entity.PixelPoint{X: 2, Y: 5}, 1, -3).String())
}
