package scene

import (
	"math"

	"github.com/df07/go-iile/pkg/core"
)

// Light can be sampled for next event estimation
type Light interface {
	// Sample picks a point on the light as seen from point
	Sample(point core.Vec3, u core.Vec2) LightSample

	// PDF returns the solid angle density Sample uses for direction
	PDF(point, direction core.Vec3) float64
}

// LightSample is one sampled point on a light
type LightSample struct {
	Direction core.Vec3 // Unit direction from the shading point to the light
	Distance  float64
	Emission  core.Vec3
	PDF       float64 // Solid angle density
}

// QuadLight is a one-sided rectangular area light
type QuadLight struct {
	*Quad
	Emission core.Vec3
	area     float64
}

// NewQuadLight creates a quad light emitting along U x V
func NewQuadLight(corner, u, v, emission core.Vec3) *QuadLight {
	quad := NewQuad(corner, u, v, NewEmissive(emission))
	return &QuadLight{Quad: quad, Emission: emission, area: quad.Area()}
}

// Sample picks a point uniformly over the quad's area
func (ql *QuadLight) Sample(point core.Vec3, u core.Vec2) LightSample {
	target := ql.Corner.Add(ql.U.Multiply(u.X)).Add(ql.V.Multiply(u.Y))
	toLight := target.Subtract(point)
	distance := toLight.Length()
	if distance == 0 {
		return LightSample{}
	}
	direction := toLight.Multiply(1.0 / distance)

	cosTheta := math.Abs(ql.Normal.Dot(direction))
	if cosTheta < 1e-8 {
		return LightSample{Direction: direction, Distance: distance}
	}

	sample := LightSample{
		Direction: direction,
		Distance:  distance,
		PDF:       distance * distance / (cosTheta * ql.area),
	}
	// Front face when the direction to the light opposes its normal
	if direction.Dot(ql.Normal) < 0 {
		sample.Emission = ql.Emission
	}
	return sample
}

// PDF returns the solid angle density of sampling direction from point
func (ql *QuadLight) PDF(point, direction core.Vec3) float64 {
	direction = direction.Normalize()
	hit, ok := ql.Quad.Hit(core.NewRay(point, direction), 0, math.Inf(1))
	if !ok {
		return 0
	}
	cosTheta := math.Abs(ql.Normal.Dot(direction))
	if cosTheta < 1e-8 {
		return 0
	}
	return hit.T * hit.T / (cosTheta * ql.area)
}
