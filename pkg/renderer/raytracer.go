package renderer

import (
	"context"
	"image"

	"github.com/df07/go-iile/pkg/core"
	"github.com/df07/go-iile/pkg/film"
	"github.com/df07/go-iile/pkg/tracer"
)

// DirectWorker renders full-frame direct lighting passes
type DirectWorker struct {
	worker
	integrator tracer.Integrator
}

// Run renders direct passes until the schedule has none left or ctx is
// cancelled. Each pass takes one jittered sample per pixel and is flushed
// to the film as a single batch.
func (w *DirectWorker) Run(ctx context.Context) error {
	bounds := w.schedule.Bounds()
	batch := film.NewBatch(bounds.Dx() * bounds.Dy())

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		pass, ok := w.schedule.NextDirectPass()
		if !ok {
			return nil
		}

		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				p := image.Pt(x, y)
				batch.Add(p, w.sample(p), 1)
			}
		}

		w.film.AddBatch(batch)
		batch.Reset()
		w.schedule.CompleteDirectPass(pass)
		w.stats.directPasses.Add(1)
		w.logger.Debugf("worker %d: direct pass %d done", w.id, pass)
	}
}

// sample estimates the direct radiance through one jittered point of pixel p.
// Non-finite and negative results are replaced with black.
func (w *DirectWorker) sample(p image.Point) core.Vec3 {
	u := w.sampler.Get2D()
	ray := w.camera.GenerateRay(tracer.CameraSample{FilmX: float64(p.X) + u.X, FilmY: float64(p.Y) + u.Y})
	l := w.integrator.Li(ray, w.scene, w.sampler)

	if l.HasNaN() || l.HasInf() || l.Luminance() < 0 {
		w.stats.sanitized.Add(1)
		w.logger.Warningf("worker %d: discarding invalid direct sample %v at (%d,%d)", w.id, l, p.X, p.Y)
		return core.Vec3{}
	}
	return l
}
