package renderer

import (
	"fmt"
	"runtime"
	"time"

	"github.com/df07/go-iile/pkg/schedule"
	"github.com/df07/go-iile/pkg/weighting"
)

// Config contains configuration for a render
type Config struct {
	TileSize           int           // Edge of an indirect tile and stride of the hemi point grid
	IndirectPasses     int           // Sweeps of the tile grid
	DirectPasses       int           // Full-frame direct lighting passes
	NumWorkers         int           // Number of parallel workers (0 = use CPU count)
	HemiSize           int           // Edge of the square hemisphere capture
	HemiSamples        int           // Samples per capture pixel
	SampleBudget       int           // Maximum hemi lookups per output pixel
	MaxSpecularBounces int           // Specular vertices followed before giving up on a path
	Seed               int64         // Base seed; worker i uses Seed + i
	Weighting          string        // Interpolation weighting function name
	ProgressInterval   time.Duration // Period of progress log lines (0 disables them)
}

// DefaultConfig returns sensible default values
func DefaultConfig() Config {
	return Config{
		TileSize:           32,
		IndirectPasses:     1,
		DirectPasses:       1,
		NumWorkers:         0, // Auto-detect CPU count
		HemiSize:           32,
		HemiSamples:        1,
		SampleBudget:       16,
		MaxSpecularBounces: 24,
		Seed:               42,
		Weighting:          "distance",
		ProgressInterval:   2 * time.Second,
	}
}

// Validate reports the first invalid setting
func (c Config) Validate() error {
	switch {
	case c.TileSize < 1:
		return fmt.Errorf("renderer: tile size must be positive, got %d", c.TileSize)
	case c.IndirectPasses < 1:
		return fmt.Errorf("renderer: indirect passes must be positive, got %d", c.IndirectPasses)
	case c.DirectPasses < 1:
		return fmt.Errorf("renderer: direct passes must be positive, got %d", c.DirectPasses)
	case c.NumWorkers < 0:
		return fmt.Errorf("%w: %d workers requested", ErrNoWorkers, c.NumWorkers)
	case c.HemiSize < 1:
		return fmt.Errorf("renderer: hemi size must be positive, got %d", c.HemiSize)
	case c.HemiSamples < 1:
		return fmt.Errorf("renderer: hemi samples must be positive, got %d", c.HemiSamples)
	case c.SampleBudget < 1:
		return fmt.Errorf("renderer: sample budget must be positive, got %d", c.SampleBudget)
	case c.MaxSpecularBounces < 0:
		return fmt.Errorf("renderer: max specular bounces must not be negative, got %d", c.MaxSpecularBounces)
	case c.ProgressInterval < 0:
		return fmt.Errorf("renderer: progress interval must not be negative, got %v", c.ProgressInterval)
	}
	if _, err := weighting.ByName(c.Weighting); err != nil {
		return fmt.Errorf("renderer: %w", err)
	}
	return nil
}

// workers resolves the worker count
func (c Config) workers() int {
	if c.NumWorkers == 0 {
		return runtime.NumCPU()
	}
	return c.NumWorkers
}

// scheduleConfig returns the schedule configuration derived from c
func (c Config) scheduleConfig() schedule.Config {
	return schedule.Config{
		TileSize:       c.TileSize,
		IndirectPasses: c.IndirectPasses,
		DirectPasses:   c.DirectPasses,
	}
}
