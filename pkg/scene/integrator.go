package scene

import (
	"math"

	"github.com/df07/go-iile/pkg/core"
	"github.com/df07/go-iile/pkg/tracer"
)

// PathIntegrator implements unidirectional path tracing with next event
// estimation and Russian roulette
type PathIntegrator struct {
	MaxDepth                  int // Maximum number of bounces
	RussianRouletteMinBounces int // Bounces before Russian roulette may terminate a path
}

// NewPathIntegrator creates a path tracer
func NewPathIntegrator(maxDepth int) *PathIntegrator {
	return &PathIntegrator{MaxDepth: maxDepth, RussianRouletteMinBounces: 3}
}

// Li estimates the radiance arriving along ray
func (pt *PathIntegrator) Li(ray core.Ray, scene tracer.Scene, sampler core.Sampler) core.Vec3 {
	radiance := core.Vec3{}
	throughput := core.NewVec3(1, 1, 1)
	specularBounce := false
	var prevPoint core.Vec3
	var prevPDF float64
	lights := lightsOf(scene)

	for depth := 0; depth < pt.MaxDepth; depth++ {
		hit, ok := scene.Intersect(ray, 0, infinity)
		if !ok {
			radiance = radiance.Add(throughput.MultiplyVec(scene.Background(ray)))
			break
		}

		wo := ray.Direction.Negate()
		if le := hit.Material.Emitted(hit, wo); !le.IsBlack() {
			weight := 1.0
			if depth > 0 && !specularBounce {
				weight = core.PowerHeuristic(1, prevPDF, 1, lightPDF(lights, prevPoint, ray.Direction))
			}
			radiance = radiance.Add(throughput.MultiplyVec(le).Multiply(weight))
		}

		scattering := hit.Material.Scattering()
		if scattering == tracer.Absorbing {
			break
		}
		if scattering == tracer.Diffuse {
			radiance = radiance.Add(throughput.MultiplyVec(sampleLights(scene, hit, wo, sampler)))
		}

		bs, ok := hit.Material.SampleBSDF(hit, wo, sampler.Get2D())
		if !ok {
			break
		}
		if bs.Specular {
			throughput = throughput.MultiplyVec(bs.Value)
			specularBounce = true
		} else {
			if bs.PDF <= 0 {
				break
			}
			cosine := math.Abs(bs.Direction.Dot(hit.Normal))
			throughput = throughput.MultiplyVec(bs.Value).Multiply(cosine / bs.PDF)
			specularBounce = false
			prevPDF = bs.PDF
		}
		prevPoint = hit.Point
		ray = hit.SpawnRay(bs.Direction)

		if depth+1 >= pt.RussianRouletteMinBounces {
			survival := math.Min(0.95, math.Max(throughput.X, math.Max(throughput.Y, throughput.Z)))
			if survival <= 0 || sampler.Get1D() > survival {
				break
			}
			throughput = throughput.Multiply(1 / survival)
		}
	}
	return radiance
}

// DirectIntegrator estimates emitted plus singly scattered light. Specular
// chains are followed up to MaxSpecularBounces before the first diffuse
// surface is lit.
type DirectIntegrator struct {
	MaxSpecularBounces int
}

// NewDirectIntegrator creates a direct lighting integrator
func NewDirectIntegrator(maxSpecularBounces int) *DirectIntegrator {
	return &DirectIntegrator{MaxSpecularBounces: maxSpecularBounces}
}

// Li estimates the direct radiance arriving along ray
func (di *DirectIntegrator) Li(ray core.Ray, scene tracer.Scene, sampler core.Sampler) core.Vec3 {
	radiance := core.Vec3{}
	throughput := core.NewVec3(1, 1, 1)

	for bounce := 0; bounce <= di.MaxSpecularBounces; bounce++ {
		hit, ok := scene.Intersect(ray, 0, infinity)
		if !ok {
			return radiance.Add(throughput.MultiplyVec(scene.Background(ray)))
		}

		wo := ray.Direction.Negate()
		radiance = radiance.Add(throughput.MultiplyVec(hit.Material.Emitted(hit, wo)))

		switch hit.Material.Scattering() {
		case tracer.Absorbing:
			return radiance
		case tracer.Diffuse:
			return radiance.Add(throughput.MultiplyVec(di.lightDiffuse(scene, hit, wo, sampler)))
		}

		bs, ok := hit.Material.SampleBSDF(hit, wo, sampler.Get2D())
		if !ok {
			return radiance
		}
		throughput = throughput.MultiplyVec(bs.Value)
		ray = hit.SpawnRay(bs.Direction)
	}
	return radiance
}

// lightDiffuse combines light sampling with one BSDF sample that picks up
// emitters and the sky
func (di *DirectIntegrator) lightDiffuse(scene tracer.Scene, hit *tracer.SurfaceHit, wo core.Vec3, sampler core.Sampler) core.Vec3 {
	direct := sampleLights(scene, hit, wo, sampler)

	bs, ok := hit.Material.SampleBSDF(hit, wo, sampler.Get2D())
	if !ok || bs.Specular || bs.PDF <= 0 {
		return direct
	}
	cosine := math.Abs(bs.Direction.Dot(hit.Normal))
	weight := bs.Value.Multiply(cosine / bs.PDF)

	ray := hit.SpawnRay(bs.Direction)
	next, ok := scene.Intersect(ray, 0, infinity)
	if !ok {
		return direct.Add(weight.MultiplyVec(scene.Background(ray)))
	}
	le := next.Material.Emitted(next, bs.Direction.Negate())
	if le.IsBlack() {
		return direct
	}
	mis := core.PowerHeuristic(1, bs.PDF, 1, lightPDF(lightsOf(scene), hit.Point, bs.Direction))
	return direct.Add(weight.MultiplyVec(le).Multiply(mis))
}
