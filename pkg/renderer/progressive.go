// Package renderer drives a progressive render: a pool of workers drains
// full-frame direct lighting passes and tiled indirect tasks from a shared
// schedule, accumulating into two films that are composited at the end.
package renderer

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/df07/go-iile/pkg/film"
	"github.com/df07/go-iile/pkg/log"
	"github.com/df07/go-iile/pkg/predictor"
	"github.com/df07/go-iile/pkg/schedule"
	"github.com/df07/go-iile/pkg/tracer"
	"github.com/df07/go-iile/pkg/weighting"
)

// Integrators holds the radiance estimators a render uses
type Integrators struct {
	Direct   tracer.Integrator // Direct lighting pass
	Indirect tracer.Integrator // Hemisphere captures
}

// Result is the output of a completed render
type Result struct {
	Image    *film.Grid[float32] // Direct plus indirect
	Direct   *film.Grid[float32]
	Indirect *film.Grid[float32]
	Stats    RenderStats
}

// Renderer manages a render across a pool of workers
type Renderer struct {
	scene       tracer.Scene
	camera      tracer.Camera
	integrators Integrators
	bounds      image.Rectangle
	config      Config
	factory     predictor.Factory
	logger      log.Logger
	weigh       weighting.Func

	schedule *schedule.Monitor
	direct   *film.Monitor
	indirect *film.Monitor
	stats    Stats
}

// New validates its inputs and prepares the schedule and films for
// bounds. A nil logger falls back to the package logger.
func New(scene tracer.Scene, camera tracer.Camera, integrators Integrators, bounds image.Rectangle,
	config Config, factory predictor.Factory, logger log.Logger) (*Renderer, error) {
	if scene == nil || camera == nil || integrators.Direct == nil || integrators.Indirect == nil || factory == nil {
		return nil, ErrNilCollaborator
	}
	if bounds.Empty() {
		return nil, fmt.Errorf("%w: %v", ErrEmptyBounds, bounds)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	weigh, err := weighting.ByName(config.Weighting)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New("renderer")
	}

	return &Renderer{
		scene:       scene,
		camera:      camera,
		integrators: integrators,
		bounds:      bounds,
		config:      config,
		factory:     factory,
		logger:      logger,
		weigh:       weigh,
		schedule:    schedule.NewMonitor(bounds, config.scheduleConfig()),
		direct:      film.NewMonitor(bounds),
		indirect:    film.NewMonitor(bounds),
	}, nil
}

// Render runs all workers to completion. It returns the first worker error;
// cancelling ctx stops the workers at their next loop iteration.
func (r *Renderer) Render(ctx context.Context) (*Result, error) {
	start := time.Now()
	workers := r.config.workers()
	progress := r.schedule.Progress()
	r.logger.Noticef("Rendering %dx%d with %d workers: %d direct passes, %d indirect tasks of %dpx",
		r.bounds.Dx(), r.bounds.Dy(), workers, progress.DirectBudget, progress.IndirectBudget, r.config.TileSize)

	stop := r.reportProgress(ctx)
	err := r.runWorkers(ctx, workers)
	stop()
	if err != nil {
		r.logger.Errorf("Render failed: %v", err)
		return nil, err
	}

	result := &Result{
		Image:    r.Snapshot(),
		Direct:   r.direct.ToImage(false),
		Indirect: r.indirect.ToImage(false),
		Stats:    r.Stats(),
	}
	result.Stats.Elapsed = time.Since(start)
	r.logger.Noticef("Render completed in %v", result.Stats.Elapsed.Round(time.Millisecond))
	return result, nil
}

// reportProgress logs progress every ProgressInterval until the returned
// stop function is called
func (r *Renderer) reportProgress(ctx context.Context) (stop func()) {
	if r.config.ProgressInterval <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(r.config.ProgressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p := r.schedule.Progress()
				r.logger.Infof("Progress: direct %d/%d, indirect %d/%d (%.1f%%)",
					p.DirectDone, p.DirectBudget, p.IndirectDone, p.IndirectBudget, 100*p.Fraction())
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return func() {
		close(done)
		wg.Wait()
	}
}

// Bounds returns the rendered region
func (r *Renderer) Bounds() image.Rectangle {
	return r.bounds
}

// Progress returns the schedule's completion counters
func (r *Renderer) Progress() schedule.Progress {
	return r.schedule.Progress()
}

// Stats returns a copy of the render counters
func (r *Renderer) Stats() RenderStats {
	return r.stats.Snapshot()
}

// Snapshot composites the current direct and indirect films. It is safe to
// call while workers are running.
func (r *Renderer) Snapshot() *film.Grid[float32] {
	combined := film.NewMonitor(r.bounds)
	combined.AddFrom(r.direct)
	combined.AddFrom(r.indirect)
	return combined.ToImage(false)
}
