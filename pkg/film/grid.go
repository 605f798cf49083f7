package film

import (
	"errors"
	"fmt"
	"math"

	"github.com/df07/go-iile/pkg/core"
	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/floats"
)

// ErrGridSize is returned when pixel data does not match grid dimensions
var ErrGridSize = errors.New("film: grid size mismatch")

// Grid is a dense pixel grid with a fixed number of interleaved channels.
// Rows are stored top to bottom (image coordinates).
type Grid[T constraints.Float] struct {
	Width, Height, Channels int
	Pix                     []T
}

// NewGrid creates a zero-filled grid
func NewGrid[T constraints.Float](width, height, channels int) *Grid[T] {
	return &Grid[T]{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]T, width*height*channels),
	}
}

// FromFloats builds a grid from interleaved float64 data
func FromFloats[T constraints.Float](width, height, channels int, data []float64) (*Grid[T], error) {
	if len(data) != width*height*channels {
		return nil, fmt.Errorf("%w: %d values for %dx%dx%d", ErrGridSize, len(data), width, height, channels)
	}
	g := NewGrid[T](width, height, channels)
	for i, v := range data {
		g.Pix[i] = T(v)
	}
	return g, nil
}

func (g *Grid[T]) offset(x, y, c int) int {
	return (y*g.Width+x)*g.Channels + c
}

// At returns channel c of pixel (x, y) in image coordinates
func (g *Grid[T]) At(x, y, c int) T {
	return g.Pix[g.offset(x, y, c)]
}

// Set stores channel c of pixel (x, y) in image coordinates
func (g *Grid[T]) Set(x, y, c int, v T) {
	g.Pix[g.offset(x, y, c)] = v
}

// CameraCoord reads channel c with y measured from the bottom row
func (g *Grid[T]) CameraCoord(x, y, c int) T {
	return g.At(x, g.Height-1-y, c)
}

// SetCameraCoord stores channel c with y measured from the bottom row
func (g *Grid[T]) SetCameraCoord(x, y, c int, v T) {
	g.Set(x, g.Height-1-y, c, v)
}

// Vec3At returns pixel (x, y) as a vector. Single-channel grids replicate
// their value.
func (g *Grid[T]) Vec3At(x, y int) core.Vec3 {
	if g.Channels < 3 {
		v := float64(g.At(x, y, 0))
		return core.NewVec3(v, v, v)
	}
	return core.NewVec3(float64(g.At(x, y, 0)), float64(g.At(x, y, 1)), float64(g.At(x, y, 2)))
}

// SetVec3CameraCoord stores up to three channels with y measured from the
// bottom row
func (g *Grid[T]) SetVec3CameraCoord(x, y int, v core.Vec3) {
	vals := [3]float64{v.X, v.Y, v.Z}
	for c := 0; c < g.Channels && c < 3; c++ {
		g.SetCameraCoord(x, y, c, T(vals[c]))
	}
}

// Floats returns the pixel data as float64 values
func (g *Grid[T]) Floats() []float64 {
	out := make([]float64, len(g.Pix))
	for i, v := range g.Pix {
		out[i] = float64(v)
	}
	return out
}

// Mean returns the mean over every channel of every pixel
func (g *Grid[T]) Mean() float64 {
	if len(g.Pix) == 0 {
		return 0
	}
	return floats.Sum(g.Floats()) / float64(len(g.Pix))
}

// ChannelMean returns the mean of a single channel
func (g *Grid[T]) ChannelMean(c int) float64 {
	n := g.Width * g.Height
	if n == 0 {
		return 0
	}
	var sum float64
	for i := c; i < len(g.Pix); i += g.Channels {
		sum += float64(g.Pix[i])
	}
	return sum / float64(n)
}

// Max returns the largest value in the grid
func (g *Grid[T]) Max() float64 {
	if len(g.Pix) == 0 {
		return 0
	}
	return floats.Max(g.Floats())
}

// Map replaces every value v with fn(v)
func (g *Grid[T]) Map(fn func(T) T) {
	for i, v := range g.Pix {
		g.Pix[i] = fn(v)
	}
}

// Scale multiplies channel c by factor
func (g *Grid[T]) Scale(c int, factor float64) {
	for i := c; i < len(g.Pix); i += g.Channels {
		g.Pix[i] = T(float64(g.Pix[i]) * factor)
	}
}

// Clone returns a deep copy of the grid
func (g *Grid[T]) Clone() *Grid[T] {
	out := NewGrid[T](g.Width, g.Height, g.Channels)
	copy(out.Pix, g.Pix)
	return out
}

// SameSize reports whether two grids have equal width and height
func (g *Grid[T]) SameSize(other *Grid[T]) bool {
	return g.Width == other.Width && g.Height == other.Height
}

// JacobianCameraCoord reads pixel (x, y) in camera coordinates and scales it
// by the sine of the polar angle at the centre of its row on a hemispheric
// film.
func JacobianCameraCoord[T constraints.Float](g *Grid[T], x, y int) core.Vec3 {
	theta := math.Pi * (float64(y) + 0.5) / float64(g.Height)
	return g.Vec3At(x, g.Height-1-y).Multiply(math.Sin(theta))
}
