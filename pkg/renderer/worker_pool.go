package renderer

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/df07/go-iile/pkg/core"
	"github.com/df07/go-iile/pkg/film"
	"github.com/df07/go-iile/pkg/log"
	"github.com/df07/go-iile/pkg/schedule"
	"github.com/df07/go-iile/pkg/tracer"
)

// worker holds the state shared by direct and indirect workers. The sampler
// is owned by one worker; everything else is shared.
type worker struct {
	id       int
	scene    tracer.Scene
	camera   tracer.Camera
	schedule *schedule.Monitor
	film     *film.Monitor
	sampler  core.Sampler
	stats    *Stats
	logger   log.Logger
	config   Config
}

// surface is the first non-specular vertex of a camera path
type surface struct {
	hit      *tracer.SurfaceHit
	wo       core.Vec3 // Direction back along the arriving ray
	beta     core.Vec3 // Throughput of the specular chain
	distance float64   // Path length from the camera
}

// traceToDiffuse follows ray through at most MaxSpecularBounces specular
// vertices and returns the first surface with a non-delta lobe
func (w *worker) traceToDiffuse(ray core.Ray) (surface, bool) {
	beta := core.NewVec3(1, 1, 1)
	distance := 0.0
	for bounce := 0; bounce <= w.config.MaxSpecularBounces; bounce++ {
		hit, ok := w.scene.Intersect(ray, 0, infinity)
		if !ok {
			return surface{}, false
		}
		distance += hit.T * ray.Direction.Length()
		wo := ray.Direction.Negate().Normalize()

		switch hit.Material.Scattering() {
		case tracer.Absorbing:
			return surface{}, false
		case tracer.Diffuse:
			return surface{hit: hit, wo: wo, beta: beta, distance: distance}, true
		}

		bs, ok := hit.Material.SampleBSDF(hit, wo, w.sampler.Get2D())
		if !ok {
			return surface{}, false
		}
		beta = beta.MultiplyVec(bs.Value)
		ray = hit.SpawnRay(bs.Direction)
	}
	return surface{}, false
}

// runWorkers starts n workers and waits for all of them. The first failure
// cancels the others; panics are converted to errors.
func (r *Renderer) runWorkers(ctx context.Context, n int) error {
	g, ctx := errgroup.WithContext(ctx)
	for id := 0; id < n; id++ {
		id := id // per-iteration copy (go directive is 1.21)
		g.Go(func() (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					err = fmt.Errorf("worker %d: %w", id, core.RecoverInvariant("renderer", rec))
				}
			}()
			return r.runWorker(ctx, id)
		})
	}
	return g.Wait()
}

// runWorker drains the direct passes, then the indirect tasks
func (r *Renderer) runWorker(ctx context.Context, id int) error {
	pred, err := r.factory(id)
	if err != nil {
		return fmt.Errorf("worker %d: create predictor: %w", id, err)
	}
	if pred == nil {
		return fmt.Errorf("worker %d: %w: factory returned no predictor", id, ErrNilCollaborator)
	}
	if closer, ok := pred.(io.Closer); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				r.logger.Warningf("worker %d: closing predictor: %v", id, err)
			}
		}()
	}

	base := worker{
		id:       id,
		scene:    r.scene,
		camera:   r.camera,
		schedule: r.schedule,
		sampler:  core.NewWorkerSampler(r.config.Seed, id),
		stats:    &r.stats,
		logger:   r.logger,
		config:   r.config,
	}

	direct := &DirectWorker{worker: base, integrator: r.integrators.Direct}
	direct.film = r.direct
	if err := direct.Run(ctx); err != nil {
		return err
	}

	indirect := &IndirectWorker{
		worker:     base,
		integrator: r.integrators.Indirect,
		predictor:  pred,
		weigh:      r.weigh,
	}
	indirect.film = r.indirect
	return indirect.Run(ctx)
}
