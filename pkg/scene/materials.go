package scene

import (
	"math"

	"github.com/df07/go-iile/pkg/core"
	"github.com/df07/go-iile/pkg/tracer"
)

// Lambertian represents a perfectly diffuse material
type Lambertian struct {
	Albedo core.Vec3
}

// NewLambertian creates a new lambertian material
func NewLambertian(albedo core.Vec3) *Lambertian {
	return &Lambertian{Albedo: albedo}
}

func (l *Lambertian) Scattering() tracer.Scattering { return tracer.Diffuse }

// SampleBSDF draws a cosine-weighted direction around the normal
func (l *Lambertian) SampleBSDF(hit *tracer.SurfaceHit, wo core.Vec3, u core.Vec2) (tracer.BSDFSample, bool) {
	wi := core.SampleCosineHemisphere(hit.Normal, u).Normalize()
	pdf := l.PDF(hit, wo, wi)
	if pdf <= 0 {
		return tracer.BSDFSample{}, false
	}
	return tracer.BSDFSample{
		Value:     l.Albedo.Multiply(1.0 / math.Pi),
		Direction: wi,
		PDF:       pdf,
	}, true
}

// EvalBSDF returns albedo / pi above the surface
func (l *Lambertian) EvalBSDF(hit *tracer.SurfaceHit, wo, wi core.Vec3) core.Vec3 {
	if wi.Dot(hit.Normal) <= 0 {
		return core.Vec3{}
	}
	return l.Albedo.Multiply(1.0 / math.Pi)
}

// PDF returns cos(theta) / pi
func (l *Lambertian) PDF(hit *tracer.SurfaceHit, wo, wi core.Vec3) float64 {
	cosTheta := wi.Dot(hit.Normal)
	if cosTheta <= 0 {
		return 0
	}
	return cosTheta / math.Pi
}

func (l *Lambertian) Emitted(*tracer.SurfaceHit, core.Vec3) core.Vec3 { return core.Vec3{} }

// Mirror is a perfect specular reflector
type Mirror struct {
	Albedo core.Vec3
}

// NewMirror creates a new mirror material
func NewMirror(albedo core.Vec3) *Mirror {
	return &Mirror{Albedo: albedo}
}

func (m *Mirror) Scattering() tracer.Scattering { return tracer.Specular }

// SampleBSDF returns the perfect reflection of wo
func (m *Mirror) SampleBSDF(hit *tracer.SurfaceHit, wo core.Vec3, u core.Vec2) (tracer.BSDFSample, bool) {
	// r = v - 2*dot(v,n)*n with v the incoming direction
	v := wo.Negate()
	reflected := v.Subtract(hit.Normal.Multiply(2 * v.Dot(hit.Normal))).Normalize()
	if reflected.Dot(hit.Normal) <= 0 {
		return tracer.BSDFSample{}, false
	}
	return tracer.BSDFSample{Value: m.Albedo, Direction: reflected, Specular: true}, true
}

// EvalBSDF is zero: the delta lobe is only reachable through sampling
func (m *Mirror) EvalBSDF(*tracer.SurfaceHit, core.Vec3, core.Vec3) core.Vec3 { return core.Vec3{} }

func (m *Mirror) PDF(*tracer.SurfaceHit, core.Vec3, core.Vec3) float64 { return 0 }

func (m *Mirror) Emitted(*tracer.SurfaceHit, core.Vec3) core.Vec3 { return core.Vec3{} }

// Emissive represents a light-emitting material that emits from its front face
type Emissive struct {
	Emission core.Vec3
}

// NewEmissive creates a new emissive material
func NewEmissive(emission core.Vec3) *Emissive {
	return &Emissive{Emission: emission}
}

func (e *Emissive) Scattering() tracer.Scattering { return tracer.Absorbing }

func (e *Emissive) SampleBSDF(*tracer.SurfaceHit, core.Vec3, core.Vec2) (tracer.BSDFSample, bool) {
	return tracer.BSDFSample{}, false
}

func (e *Emissive) EvalBSDF(*tracer.SurfaceHit, core.Vec3, core.Vec3) core.Vec3 { return core.Vec3{} }

func (e *Emissive) PDF(*tracer.SurfaceHit, core.Vec3, core.Vec3) float64 { return 0 }

// Emitted returns the emission for front face hits only
func (e *Emissive) Emitted(hit *tracer.SurfaceHit, wo core.Vec3) core.Vec3 {
	if !hit.FrontFace {
		return core.Vec3{}
	}
	return e.Emission
}
