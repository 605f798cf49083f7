package film

import (
	"image"
	"sync"

	"github.com/df07/go-iile/pkg/core"
)

// Monitor is a thread-safe accumulation buffer covering a pixel rectangle.
// Writers lock one row at a time; snapshots and merges take the structure
// lock exclusively so they never observe a half-applied batch.
type Monitor struct {
	bounds image.Rectangle
	buffer *Buffer

	structure sync.RWMutex
	rows      []sync.Mutex
}

// Stats summarizes what has been accumulated so far
type Stats struct {
	Cells        int     // Cells in the film
	CellsCovered int     // Cells with a non-zero weight
	TotalWeight  float64 // Sum of all cell weights
}

// NewMonitor creates a zero-filled monitor covering bounds (half-open)
func NewMonitor(bounds image.Rectangle) *Monitor {
	if bounds.Empty() {
		core.Invariantf("film", "empty film bounds %v", bounds)
	}
	return &Monitor{
		bounds: bounds,
		buffer: NewBuffer(bounds.Dx(), bounds.Dy()),
		rows:   make([]sync.Mutex, bounds.Dy()),
	}
}

// Bounds returns the rectangle covered by the monitor
func (m *Monitor) Bounds() image.Rectangle {
	return m.bounds
}

// AddSample accumulates a weighted color at an absolute pixel position.
// Points outside the film are ignored.
func (m *Monitor) AddSample(p image.Point, color core.Vec3, weight float64) {
	if !p.In(m.bounds) {
		return
	}
	x, y := p.X-m.bounds.Min.X, p.Y-m.bounds.Min.Y

	m.structure.RLock()
	m.rows[y].Lock()
	m.buffer.Add(x, y, color, weight)
	m.rows[y].Unlock()
	m.structure.RUnlock()
}

// AddSamples accumulates a batch of samples. Each row lock is taken once
// per run of consecutive samples on that row.
func (m *Monitor) AddSamples(points []image.Point, colors []core.Vec3, weights []float64) {
	if len(points) != len(colors) || len(points) != len(weights) {
		core.Invariantf("film", "sample batch length mismatch: %d points, %d colors, %d weights",
			len(points), len(colors), len(weights))
	}

	m.structure.RLock()
	defer m.structure.RUnlock()

	locked := -1
	for i, p := range points {
		if !p.In(m.bounds) {
			continue
		}
		x, y := p.X-m.bounds.Min.X, p.Y-m.bounds.Min.Y
		if y != locked {
			if locked >= 0 {
				m.rows[locked].Unlock()
			}
			m.rows[y].Lock()
			locked = y
		}
		m.buffer.Add(x, y, colors[i], weights[i])
	}
	if locked >= 0 {
		m.rows[locked].Unlock()
	}
}

// AddBatch flushes a worker-local batch into the monitor
func (m *Monitor) AddBatch(b *Batch) {
	m.AddSamples(b.points, b.colors, b.weights)
}

// Snapshot returns a copy of the raw (unnormalized) accumulation buffer
func (m *Monitor) Snapshot() *Buffer {
	m.structure.Lock()
	defer m.structure.Unlock()
	return m.buffer.Clone()
}

// ToImage normalizes a snapshot of the film into a 3-channel grid. With
// reversed set the vertical axis is flipped.
func (m *Monitor) ToImage(reversed bool) *Grid[float32] {
	snap := m.Snapshot()
	snap.Normalize()

	img := NewGrid[float32](snap.Width, snap.Height, 3)
	for y := 0; y < snap.Height; y++ {
		row := y
		if reversed {
			row = snap.Height - 1 - y
		}
		for x := 0; x < snap.Width; x++ {
			c := snap.At(x, y)
			img.Set(x, row, 0, float32(c.R))
			img.Set(x, row, 1, float32(c.G))
			img.Set(x, row, 2, float32(c.B))
		}
	}
	return img
}

// MergeFrom averages other into m. Both monitors must cover the same bounds.
func (m *Monitor) MergeFrom(other *Monitor) {
	m.combine(other, (*Buffer).Merge)
}

// AddFrom adds the normalized estimates of other to m, producing a film whose
// colors are the sum of both estimates. Used to composite separately rendered
// lighting components.
func (m *Monitor) AddFrom(other *Monitor) {
	m.combine(other, (*Buffer).Composite)
}

func (m *Monitor) combine(other *Monitor, op func(*Buffer, *Buffer)) {
	if m.bounds != other.bounds {
		core.Invariantf("film", "merge bounds mismatch: %v vs %v", m.bounds, other.bounds)
	}
	// Snapshot first so two monitors merging into each other cannot deadlock
	snap := other.Snapshot()

	m.structure.Lock()
	defer m.structure.Unlock()
	op(m.buffer, snap)
}

// Stats reports coverage and accumulated weight
func (m *Monitor) Stats() Stats {
	m.structure.Lock()
	defer m.structure.Unlock()

	stats := Stats{Cells: len(m.buffer.Cells)}
	for _, c := range m.buffer.Cells {
		if c.HasData() {
			stats.CellsCovered++
		}
		stats.TotalWeight += c.Weight
	}
	return stats
}

// Batch collects samples locally before a single flush into a Monitor
type Batch struct {
	points  []image.Point
	colors  []core.Vec3
	weights []float64
}

// NewBatch creates a batch with room for capacity samples
func NewBatch(capacity int) *Batch {
	return &Batch{
		points:  make([]image.Point, 0, capacity),
		colors:  make([]core.Vec3, 0, capacity),
		weights: make([]float64, 0, capacity),
	}
}

// Add appends a sample to the batch
func (b *Batch) Add(p image.Point, color core.Vec3, weight float64) {
	b.points = append(b.points, p)
	b.colors = append(b.colors, color)
	b.weights = append(b.weights, weight)
}

// Len returns the number of pending samples
func (b *Batch) Len() int {
	return len(b.points)
}

// Reset empties the batch, keeping its storage
func (b *Batch) Reset() {
	b.points = b.points[:0]
	b.colors = b.colors[:0]
	b.weights = b.weights[:0]
}
