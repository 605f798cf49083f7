package renderer

import (
	"context"
	"fmt"
	"image"
	"math"
	"time"

	"github.com/df07/go-iile/pkg/core"
	"github.com/df07/go-iile/pkg/film"
	"github.com/df07/go-iile/pkg/hemi"
	"github.com/df07/go-iile/pkg/predictor"
	"github.com/df07/go-iile/pkg/schedule"
	"github.com/df07/go-iile/pkg/tracer"
	"github.com/df07/go-iile/pkg/weighting"
)

// hemiPDF is the fixed density assumed for map lookups when weighting them
// against BSDF samples
const hemiPDF = 1 / (2 * math.Pi)

var infinity = math.Inf(1)

// hemiPoint is a hemispheric viewpoint built at one grid vertex of a task
type hemiPoint struct {
	Valid    bool
	Pixel    image.Point
	Camera   *hemi.Camera
	Look     core.Vec3
	Distance float64
}

// IndirectWorker renders indirect illumination tile by tile from predicted
// hemisphere maps
type IndirectWorker struct {
	worker
	integrator tracer.Integrator // Estimator used for hemisphere captures
	predictor  predictor.Predictor
	weigh      weighting.Func
}

// tileCounters are accumulated per task and flushed into Stats at once
type tileCounters struct {
	hemiPoints, nullHemiPoints, pixels, skipped, samples int64
}

// Run renders indirect tasks until the schedule is exhausted or ctx is
// cancelled
func (w *IndirectWorker) Run(ctx context.Context) error {
	batch := film.NewBatch(w.config.TileSize * w.config.TileSize)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		task, ok := w.schedule.NextTask()
		if !ok {
			return nil
		}

		var counters tileCounters
		cache, err := w.populate(ctx, task, &counters)
		if err != nil {
			return err
		}
		for y := task.Y0; y < task.Y1; y++ {
			for x := task.X0; x < task.X1; x++ {
				w.shadePixel(task, cache, image.Pt(x, y), batch, &counters)
			}
		}

		w.film.AddBatch(batch)
		batch.Reset()
		w.schedule.CompleteTask(task)
		w.flush(&counters)
		w.logger.Debugf("worker %d: %v done", w.id, task)
	}
}

func (w *IndirectWorker) flush(c *tileCounters) {
	w.stats.tasks.Add(1)
	w.stats.hemiPoints.Add(c.hemiPoints)
	w.stats.nullHemiPoints.Add(c.nullHemiPoints)
	w.stats.pixels.Add(c.pixels)
	w.stats.pixelsSkipped.Add(c.skipped)
	w.stats.samples.Add(c.samples)
}

// populate builds the hemi points on the task's grid vertices
func (w *IndirectWorker) populate(ctx context.Context, task schedule.Task, c *tileCounters) (map[image.Point]*hemiPoint, error) {
	bounds := w.schedule.Bounds()
	xs := gridVertices(task.X0, task.X1, task.TileSize, bounds.Max.X-1)
	ys := gridVertices(task.Y0, task.Y1, task.TileSize, bounds.Max.Y-1)

	cache := make(map[image.Point]*hemiPoint, len(xs)*len(ys))
	for _, y := range ys {
		for _, x := range xs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			p := image.Pt(x, y)
			hp, err := w.buildHemiPoint(ctx, task, p)
			if err != nil {
				return nil, err
			}
			if hp.Valid {
				c.hemiPoints++
			} else {
				c.nullHemiPoints++
			}
			cache[p] = hp
		}
	}
	return cache, nil
}

// buildHemiPoint traces the centre of pixel p, captures the hemisphere
// above the surface it finds and installs the predicted radiance
func (w *IndirectWorker) buildHemiPoint(ctx context.Context, task schedule.Task, p image.Point) (*hemiPoint, error) {
	ray := w.camera.GenerateRay(tracer.CameraSample{FilmX: float64(p.X) + 0.5, FilmY: float64(p.Y) + 0.5})
	s, ok := w.traceToDiffuse(ray)
	if !ok || s.beta.Luminance() <= 0 {
		return &hemiPoint{Pixel: p}, nil
	}

	look := s.hit.Normal.FaceForward(s.wo.Negate())
	origin := s.hit.Point.Add(look.Multiply(tracer.RayEpsilon))
	camera := hemi.NewCamera(origin, look, w.config.HemiSize, w.config.HemiSize)

	start := time.Now()
	capture := camera.Capture(w.scene, w.integrator, w.sampler, w.config.HemiSamples)
	w.stats.captureNanos.Add(int64(time.Since(start)))

	radiance, normals, distance, means := predictor.Normalize(capture.Radiance, capture.Normals, capture.Distance)
	if means.Purged {
		w.logger.Debugf("worker %d: purged firefly capture at (%d,%d)", w.id, p.X, p.Y)
	}

	start = time.Now()
	predicted, err := w.predictor.Predict(ctx, radiance, normals, distance)
	w.stats.predictNanos.Add(int64(time.Since(start)))
	w.stats.predictions.Add(1)
	if err != nil {
		return nil, fmt.Errorf("worker %d task %d pixel (%d,%d): %w", w.id, task.Number, p.X, p.Y, err)
	}
	if err := camera.SetRadiance(predictor.Denormalize(predicted, means)); err != nil {
		return nil, fmt.Errorf("worker %d task %d pixel (%d,%d): %w: %w", w.id, task.Number, p.X, p.Y, predictor.ErrProtocol, err)
	}

	return &hemiPoint{
		Valid:    true,
		Pixel:    p,
		Camera:   camera,
		Look:     look,
		Distance: s.distance,
	}, nil
}

// shadePixel estimates the indirect radiance of pixel p from the four
// cached hemi points bracketing it
func (w *IndirectWorker) shadePixel(task schedule.Task, cache map[image.Point]*hemiPoint, p image.Point, batch *film.Batch, c *tileCounters) {
	u := w.sampler.Get2D()
	ray := w.camera.GenerateRay(tracer.CameraSample{FilmX: float64(p.X) + u.X, FilmY: float64(p.Y) + u.Y})
	s, ok := w.traceToDiffuse(ray)
	if !ok || s.beta.Luminance() <= 0 {
		c.skipped++
		return
	}
	normal := s.hit.Normal.FaceForward(s.wo.Negate())

	bounds := w.schedule.Bounds()
	x0, x1 := bracket(p.X, task.X0, task.TileSize, bounds.Max.X-1)
	y0, y1 := bracket(p.Y, task.Y0, task.TileSize, bounds.Max.Y-1)
	corners := [4]image.Point{
		weighting.TopLeft:     image.Pt(x0, y0),
		weighting.TopRight:    image.Pt(x1, y0),
		weighting.BottomLeft:  image.Pt(x0, y1),
		weighting.BottomRight: image.Pt(x1, y1),
	}

	query := weighting.Query{Pixel: p, Normal: normal, Distance: s.distance, TileSize: task.TileSize}
	var points [4]*hemiPoint
	for i, corner := range corners {
		hp, ok := cache[corner]
		if !ok {
			core.InvariantAtf("renderer", corner, "%v has no hemi point for pixel (%d,%d)", task, p.X, p.Y)
		}
		points[i] = hp
		query.Candidates[i] = weighting.Candidate{Valid: hp.Valid, Pixel: hp.Pixel, Look: hp.Look, Distance: hp.Distance}
	}
	weights := w.weigh(&query)

	var sum core.Vec3
	drawn := 0
	for i, weight := range weights {
		if weight <= 0 {
			continue
		}
		n := core.Binomial(w.sampler, w.config.SampleBudget, weight)
		for k := 0; k < n; k++ {
			sum = sum.Add(w.estimate(s, normal, points[i].Camera))
		}
		drawn += n
	}

	var color core.Vec3
	if drawn > 0 {
		color = s.beta.MultiplyVec(sum.Multiply(1 / float64(drawn)))
	}
	if color.HasNaN() || color.HasInf() {
		color = core.Vec3{}
	}
	batch.Add(p, color, 1)
	c.pixels++
	c.samples += int64(drawn)
}

// estimate combines one uniform map lookup with one BSDF sampled lookup,
// each weighted by the power heuristic
func (w *IndirectWorker) estimate(s surface, normal core.Vec3, camera *hemi.Camera) core.Vec3 {
	var l core.Vec3
	material := s.hit.Material

	dir, radiance := camera.SampleUniform(w.sampler)
	if cosine := dir.Dot(normal); cosine > 0 {
		if f := material.EvalBSDF(s.hit, s.wo, dir); !f.IsBlack() {
			weight := core.PowerHeuristic(1, hemiPDF, 1, material.PDF(s.hit, s.wo, dir))
			l = l.Add(f.MultiplyVec(radiance).Multiply(cosine * weight))
		}
	}

	bs, ok := material.SampleBSDF(s.hit, s.wo, w.sampler.Get2D())
	if ok && !bs.Specular && bs.PDF > 0 {
		cosine := math.Abs(bs.Direction.Dot(normal))
		weight := core.PowerHeuristic(1, bs.PDF, 1, hemiPDF)
		l = l.Add(bs.Value.MultiplyVec(camera.Lookup(bs.Direction)).Multiply(cosine * weight / bs.PDF))
	}
	return l
}

// gridVertices lists the hemi grid coordinates covering [from, to) with the
// given stride, clamped to last
func gridVertices(from, to, stride, last int) []int {
	var vertices []int
	for v := from; ; v += stride {
		clamped := min(v, last)
		if len(vertices) == 0 || vertices[len(vertices)-1] != clamped {
			vertices = append(vertices, clamped)
		}
		if v >= to {
			return vertices
		}
	}
}

// bracket returns the grid coordinates enclosing v, clamped to last
func bracket(v, origin, stride, last int) (lo, hi int) {
	lo = origin + (v-origin)/stride*stride
	return min(lo, last), min(lo+stride, last)
}
