// Package schedule hands out indirect-illumination tile tasks and direct
// illumination pass numbers to a pool of render workers.
package schedule

import (
	"fmt"
	"image"
	"sync"

	"github.com/df07/go-iile/pkg/core"
)

// Config controls how the film is partitioned and how many passes are run
type Config struct {
	TileSize       int // Edge length of an indirect tile in pixels
	IndirectPasses int // Full sweeps over the tile grid
	DirectPasses   int // Full-frame direct illumination passes
}

// DefaultConfig returns the configuration used when nothing is specified
func DefaultConfig() Config {
	return Config{
		TileSize:       32,
		IndirectPasses: 1,
		DirectPasses:   1,
	}
}

// Task is one indirect tile assignment. X1 and Y1 are exclusive.
type Task struct {
	Number         int
	X0, Y0, X1, Y1 int
	TileSize       int
}

// Bounds returns the tile as a half-open rectangle
func (t Task) Bounds() image.Rectangle {
	return image.Rect(t.X0, t.Y0, t.X1, t.Y1)
}

func (t Task) String() string {
	return fmt.Sprintf("task %d [%d,%d)-[%d,%d)", t.Number, t.X0, t.Y0, t.X1, t.Y1)
}

// State describes the indirect issuing lifecycle
type State int

const (
	Idle State = iota
	Issuing
	Exhausted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Issuing:
		return "issuing"
	case Exhausted:
		return "exhausted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Progress is a point-in-time view of the schedule counters
type Progress struct {
	IndirectIssued, IndirectDone, IndirectBudget int
	DirectIssued, DirectDone, DirectBudget       int
}

// IndirectFraction returns completed indirect tasks over the budget
func (p Progress) IndirectFraction() float64 {
	return fraction(p.IndirectDone, p.IndirectBudget)
}

// DirectFraction returns completed direct passes over the budget
func (p Progress) DirectFraction() float64 {
	return fraction(p.DirectDone, p.DirectBudget)
}

// Fraction returns overall completion, counting a direct pass as one unit
// of work alongside each indirect task.
func (p Progress) Fraction() float64 {
	return fraction(p.IndirectDone+p.DirectDone, p.IndirectBudget+p.DirectBudget)
}

// Done reports whether all issued work has completed and nothing remains
func (p Progress) Done() bool {
	return p.IndirectDone >= p.IndirectBudget && p.DirectDone >= p.DirectBudget
}

func fraction(done, budget int) float64 {
	if budget <= 0 {
		return 1
	}
	return float64(done) / float64(budget)
}

// Monitor is the shared source of work for all workers. It never blocks
// beyond its own mutex.
type Monitor struct {
	bounds   image.Rectangle
	tileSize int
	tilesX   int
	tilesY   int

	mu             sync.Mutex
	indirectNext   int
	indirectDone   int
	indirectBudget int
	directNext     int
	directDone     int
	directBudget   int
}

// NewMonitor creates a schedule over bounds. Non-positive pass counts fall
// back to a single pass; a non-positive tile size falls back to the default.
func NewMonitor(bounds image.Rectangle, cfg Config) *Monitor {
	if bounds.Empty() {
		core.Invariantf("schedule", "empty schedule bounds %v", bounds)
	}
	if cfg.TileSize <= 0 {
		cfg.TileSize = DefaultConfig().TileSize
	}
	if cfg.IndirectPasses <= 0 {
		cfg.IndirectPasses = 1
	}
	if cfg.DirectPasses <= 0 {
		cfg.DirectPasses = 1
	}

	tilesX := (bounds.Dx() + cfg.TileSize - 1) / cfg.TileSize
	tilesY := (bounds.Dy() + cfg.TileSize - 1) / cfg.TileSize

	return &Monitor{
		bounds:         bounds,
		tileSize:       cfg.TileSize,
		tilesX:         tilesX,
		tilesY:         tilesY,
		indirectBudget: cfg.IndirectPasses * tilesX * tilesY,
		directBudget:   cfg.DirectPasses,
	}
}

// Bounds returns the scheduled film rectangle
func (m *Monitor) Bounds() image.Rectangle {
	return m.bounds
}

// TileSize returns the edge length of indirect tiles
func (m *Monitor) TileSize() int {
	return m.tileSize
}

// NumTiles returns the number of tiles in one sweep
func (m *Monitor) NumTiles() int {
	return m.tilesX * m.tilesY
}

// NextTask returns the next indirect tile. Once the budget is spent it
// returns ok=false and a task whose Number is at least the budget.
func (m *Monitor) NextTask() (Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.indirectNext >= m.indirectBudget {
		return Task{Number: m.indirectNext, TileSize: m.tileSize}, false
	}
	number := m.indirectNext
	m.indirectNext++
	return m.taskFor(number), true
}

// taskFor maps a task number to its tile; numbers wrap over the tile grid
// so later passes revisit the same tiles in the same order.
func (m *Monitor) taskFor(number int) Task {
	tile := number % (m.tilesX * m.tilesY)
	tx := tile % m.tilesX
	ty := tile / m.tilesX

	x0 := m.bounds.Min.X + tx*m.tileSize
	y0 := m.bounds.Min.Y + ty*m.tileSize
	return Task{
		Number:   number,
		X0:       x0,
		Y0:       y0,
		X1:       min(x0+m.tileSize, m.bounds.Max.X),
		Y1:       min(y0+m.tileSize, m.bounds.Max.Y),
		TileSize: m.tileSize,
	}
}

// NextDirectPass returns the next direct pass index, or ok=false when all
// passes have been issued.
func (m *Monitor) NextDirectPass() (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.directNext >= m.directBudget {
		return m.directNext, false
	}
	pass := m.directNext
	m.directNext++
	return pass, true
}

// CompleteTask records a finished indirect task
func (m *Monitor) CompleteTask(t Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.Number >= m.indirectNext {
		core.Invariantf("schedule", "completing unissued %v", t)
	}
	m.indirectDone++
}

// CompleteDirectPass records a finished direct pass
func (m *Monitor) CompleteDirectPass(pass int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pass >= m.directNext {
		core.Invariantf("schedule", "completing unissued direct pass %d", pass)
	}
	m.directDone++
}

// Progress returns a snapshot of the counters
func (m *Monitor) Progress() Progress {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Progress{
		IndirectIssued: m.indirectNext,
		IndirectDone:   m.indirectDone,
		IndirectBudget: m.indirectBudget,
		DirectIssued:   m.directNext,
		DirectDone:     m.directDone,
		DirectBudget:   m.directBudget,
	}
}

// State reports where indirect issuing stands
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.indirectNext == 0:
		return Idle
	case m.indirectNext < m.indirectBudget:
		return Issuing
	}
	return Exhausted
}
