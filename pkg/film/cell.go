// Package film accumulates weighted radiance samples from concurrent
// producers and converts the accumulated state into images.
package film

import (
	"github.com/df07/go-iile/pkg/core"
)

// Cell accumulates weighted color for a single pixel
type Cell struct {
	R, G, B float64 // Weighted color sums
	Weight  float64 // Sum of sample weights; 0 means no data
}

// Add accumulates a weighted sample. Negative weights are ignored.
func (c *Cell) Add(color core.Vec3, weight float64) {
	if weight < 0 {
		return
	}
	c.R += weight * color.X
	c.G += weight * color.Y
	c.B += weight * color.Z
	c.Weight += weight
}

// Normalize divides the sums by the weight and resets the weight to 1.
// Cells without data keep a zero weight.
func (c *Cell) Normalize() {
	if c.Weight <= 0 {
		return
	}
	inv := 1 / c.Weight
	c.R *= inv
	c.G *= inv
	c.B *= inv
	c.Weight = 1
}

// Normalized returns a normalized copy of the cell
func (c Cell) Normalized() Cell {
	c.Normalize()
	return c
}

// Color returns the normalized color, or black for a cell without data
func (c Cell) Color() core.Vec3 {
	if c.Weight <= 0 {
		return core.Vec3{}
	}
	return core.NewVec3(c.R/c.Weight, c.G/c.Weight, c.B/c.Weight)
}

// HasData reports whether any weight has been accumulated
func (c Cell) HasData() bool {
	return c.Weight > 0
}

// merge averages two estimates: both sides are normalized, then sums and
// weights are added.
func (c *Cell) merge(other Cell) {
	c.Normalize()
	other.Normalize()
	c.R += other.R
	c.G += other.G
	c.B += other.B
	c.Weight += other.Weight
}

// composite adds two estimates: both sides are normalized, the colors summed
// and the weight pinned to 1.
func (c *Cell) composite(other Cell) {
	c.Normalize()
	other.Normalize()
	if !c.HasData() && !other.HasData() {
		return
	}
	c.R += other.R
	c.G += other.G
	c.B += other.B
	c.Weight = 1
}

// Buffer is a row-major grid of accumulation cells
type Buffer struct {
	Width, Height int
	Cells         []Cell
}

// NewBuffer creates a zero-filled buffer
func NewBuffer(width, height int) *Buffer {
	return &Buffer{
		Width:  width,
		Height: height,
		Cells:  make([]Cell, width*height),
	}
}

// At returns a pointer to the cell at grid-local coordinates
func (b *Buffer) At(x, y int) *Cell {
	return &b.Cells[y*b.Width+x]
}

// Add accumulates a weighted sample at grid-local coordinates
func (b *Buffer) Add(x, y int, color core.Vec3, weight float64) {
	b.At(x, y).Add(color, weight)
}

// Normalize normalizes every cell in place
func (b *Buffer) Normalize() {
	for i := range b.Cells {
		b.Cells[i].Normalize()
	}
}

// Clone returns a deep copy of the buffer
func (b *Buffer) Clone() *Buffer {
	out := &Buffer{Width: b.Width, Height: b.Height, Cells: make([]Cell, len(b.Cells))}
	copy(out.Cells, b.Cells)
	return out
}

// Merge averages other into b cell by cell. Both buffers must have the
// same dimensions.
func (b *Buffer) Merge(other *Buffer) {
	b.checkSize(other)
	for i := range b.Cells {
		b.Cells[i].merge(other.Cells[i])
	}
}

// Composite adds the normalized estimates of other to b cell by cell. Both
// buffers must have the same dimensions.
func (b *Buffer) Composite(other *Buffer) {
	b.checkSize(other)
	for i := range b.Cells {
		b.Cells[i].composite(other.Cells[i])
	}
}

func (b *Buffer) checkSize(other *Buffer) {
	if b.Width != other.Width || b.Height != other.Height {
		core.Invariantf("film", "buffer size mismatch: %dx%d vs %dx%d", b.Width, b.Height, other.Width, other.Height)
	}
}
