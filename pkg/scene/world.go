package scene

import (
	"math"

	"github.com/df07/go-iile/pkg/core"
	"github.com/df07/go-iile/pkg/tracer"
)

// World is a flat list of shapes and lights under a gradient sky. It
// implements tracer.Scene with a linear intersection scan.
type World struct {
	Shapes      []Shape
	Lights      []Light
	TopColor    core.Vec3 // Sky radiance straight up
	BottomColor core.Vec3 // Sky radiance straight down
}

// NewWorld creates an empty world under a uniform sky
func NewWorld(sky core.Vec3) *World {
	return &World{TopColor: sky, BottomColor: sky}
}

// Add appends shapes to the world
func (w *World) Add(shapes ...Shape) {
	w.Shapes = append(w.Shapes, shapes...)
}

// AddQuadLight adds a rectangular area light as both a shape and a light
func (w *World) AddQuadLight(corner, u, v, emission core.Vec3) *QuadLight {
	light := NewQuadLight(corner, u, v, emission)
	w.Shapes = append(w.Shapes, light.Quad)
	w.Lights = append(w.Lights, light)
	return light
}

// Intersect returns the closest hit in (tMin, tMax)
func (w *World) Intersect(ray core.Ray, tMin, tMax float64) (*tracer.SurfaceHit, bool) {
	var closest *tracer.SurfaceHit
	for _, shape := range w.Shapes {
		if hit, ok := shape.Hit(ray, tMin, tMax); ok {
			closest = hit
			tMax = hit.T
		}
	}
	return closest, closest != nil
}

// Background blends the sky colors by the ray's elevation
func (w *World) Background(ray core.Ray) core.Vec3 {
	t := 0.5 * (ray.Direction.Normalize().Y + 1.0)
	return w.BottomColor.Multiply(1.0 - t).Add(w.TopColor.Multiply(t))
}

// lightsOf returns the lights of scenes that carry them
func lightsOf(scene tracer.Scene) []Light {
	if w, ok := scene.(*World); ok {
		return w.Lights
	}
	return nil
}

// lightPDF is the combined density of uniformly picking a light and then
// sampling direction on it
func lightPDF(lights []Light, point, direction core.Vec3) float64 {
	if len(lights) == 0 {
		return 0
	}
	total := 0.0
	for _, light := range lights {
		total += light.PDF(point, direction)
	}
	return total / float64(len(lights))
}

const shadowEpsilon = 1e-3

// sampleLights estimates direct lighting from area lights at a diffuse hit,
// MIS weighted against BSDF sampling
func sampleLights(scene tracer.Scene, hit *tracer.SurfaceHit, wo core.Vec3, sampler core.Sampler) core.Vec3 {
	lights := lightsOf(scene)
	if len(lights) == 0 {
		return core.Vec3{}
	}
	light := lights[sampler.IntN(len(lights))]
	ls := light.Sample(hit.Point, sampler.Get2D())
	if ls.PDF <= 0 || ls.Emission.IsBlack() {
		return core.Vec3{}
	}

	cosine := ls.Direction.Dot(hit.Normal)
	if cosine <= 0 {
		return core.Vec3{}
	}
	if _, blocked := scene.Intersect(hit.SpawnRay(ls.Direction), 0, ls.Distance-shadowEpsilon); blocked {
		return core.Vec3{}
	}

	f := hit.Material.EvalBSDF(hit, wo, ls.Direction)
	if f.IsBlack() {
		return core.Vec3{}
	}
	pdf := ls.PDF / float64(len(lights))
	weight := core.PowerHeuristic(1, pdf, 1, hit.Material.PDF(hit, wo, ls.Direction))
	return f.MultiplyVec(ls.Emission).Multiply(cosine * weight / pdf)
}

var _ tracer.Scene = (*World)(nil)

// infinity is the default far clip for scene queries
var infinity = math.Inf(1)
