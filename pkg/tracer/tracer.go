// Package tracer declares the light-transport collaborator consumed by the
// renderer: scene intersection, surface scattering, camera ray generation
// and radiance estimation.
package tracer

import (
	"github.com/df07/go-iile/pkg/core"
)

// RayEpsilon offsets spawned rays from their surface to avoid self hits
const RayEpsilon = 1e-4

// Scene answers ray queries
type Scene interface {
	// Intersect returns the closest hit with t in (tMin, tMax)
	Intersect(ray core.Ray, tMin, tMax float64) (*SurfaceHit, bool)

	// Background returns the radiance arriving along a ray that escapes
	Background(ray core.Ray) core.Vec3
}

// Camera generates primary rays
type Camera interface {
	GenerateRay(sample CameraSample) core.Ray
}

// CameraSample is a continuous film position in pixels. Pixel (x, y) covers
// [x, x+1) x [y, y+1) with y growing downwards.
type CameraSample struct {
	FilmX, FilmY float64
}

// Integrator estimates the radiance arriving along a ray
type Integrator interface {
	Li(ray core.Ray, scene Scene, sampler core.Sampler) core.Vec3
}

// Scattering classifies how a material reflects light
type Scattering int

const (
	Absorbing Scattering = iota // No reflection (lights, black bodies)
	Diffuse                     // Has a non-delta lobe
	Specular                    // Only delta lobes
)

// Material describes surface scattering and emission
type Material interface {
	// Scattering reports the lobes the material has
	Scattering() Scattering

	// SampleBSDF draws an incident direction for the outgoing direction wo
	SampleBSDF(hit *SurfaceHit, wo core.Vec3, u core.Vec2) (BSDFSample, bool)

	// EvalBSDF returns f(wo, wi) for non-delta lobes
	EvalBSDF(hit *SurfaceHit, wo, wi core.Vec3) core.Vec3

	// PDF returns the solid angle density SampleBSDF uses for wi
	PDF(hit *SurfaceHit, wo, wi core.Vec3) float64

	// Emitted returns the radiance leaving the surface towards wo
	Emitted(hit *SurfaceHit, wo core.Vec3) core.Vec3
}

// BSDFSample is the result of sampling a material. For specular samples
// Value already holds f*|cos|/pdf and PDF is zero.
type BSDFSample struct {
	Value     core.Vec3 // BSDF value f(wo, wi), or the specular weight
	Direction core.Vec3 // Unit incident direction wi
	PDF       float64   // Solid angle density of Direction
	Specular  bool
}

// SurfaceHit describes a ray-surface intersection
type SurfaceHit struct {
	Point     core.Vec3 // Point of intersection
	Normal    core.Vec3 // Unit normal facing the incoming ray
	T         float64   // Ray parameter of the hit
	FrontFace bool      // Whether the ray hit the outward side
	Material  Material
}

// SetFaceNormal orients the normal against the incoming ray
func (h *SurfaceHit) SetFaceNormal(ray core.Ray, outwardNormal core.Vec3) {
	h.FrontFace = ray.Direction.Dot(outwardNormal) < 0
	if h.FrontFace {
		h.Normal = outwardNormal
	} else {
		h.Normal = outwardNormal.Negate()
	}
}

// SpawnRay starts a ray at the hit point, nudged to the side dir leaves on
func (h *SurfaceHit) SpawnRay(dir core.Vec3) core.Ray {
	offset := h.Normal.Multiply(RayEpsilon)
	if dir.Dot(h.Normal) < 0 {
		offset = offset.Negate()
	}
	return core.NewRay(h.Point.Add(offset), dir)
}
