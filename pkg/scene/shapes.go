package scene

import (
	"math"

	"github.com/df07/go-iile/pkg/core"
	"github.com/df07/go-iile/pkg/tracer"
)

// Shape is anything a ray can hit
type Shape interface {
	Hit(ray core.Ray, tMin, tMax float64) (*tracer.SurfaceHit, bool)
}

// Quad represents a parallelogram defined by a corner and two edge vectors
type Quad struct {
	Corner   core.Vec3
	U, V     core.Vec3
	Normal   core.Vec3 // Unit normal along U x V
	Material tracer.Material

	d float64   // Plane constant: Normal . p = d
	w core.Vec3 // Cached Normal / (Normal . (U x V)) for planar coordinates
}

// NewQuad creates a quad from a corner point and two edge vectors
func NewQuad(corner, u, v core.Vec3, material tracer.Material) *Quad {
	cross := u.Cross(v)
	normal := cross.Normalize()
	return &Quad{
		Corner:   corner,
		U:        u,
		V:        v,
		Normal:   normal,
		Material: material,
		d:        normal.Dot(corner),
		w:        normal.Multiply(1.0 / normal.Dot(cross)),
	}
}

// Area returns |U x V|
func (q *Quad) Area() float64 {
	return q.U.Cross(q.V).Length()
}

// Hit tests if a ray intersects the quad
func (q *Quad) Hit(ray core.Ray, tMin, tMax float64) (*tracer.SurfaceHit, bool) {
	denominator := ray.Direction.Dot(q.Normal)
	if math.Abs(denominator) < 1e-8 {
		return nil, false
	}

	t := (q.d - ray.Origin.Dot(q.Normal)) / denominator
	if t <= tMin || t >= tMax {
		return nil, false
	}

	point := ray.At(t)
	planar := point.Subtract(q.Corner)
	alpha := q.w.Dot(planar.Cross(q.V))
	beta := q.w.Dot(q.U.Cross(planar))
	if alpha < 0 || alpha > 1 || beta < 0 || beta > 1 {
		return nil, false
	}

	hit := &tracer.SurfaceHit{T: t, Point: point, Material: q.Material}
	hit.SetFaceNormal(ray, q.Normal)
	return hit, true
}

// Plane is an infinite plane through Point
type Plane struct {
	Point    core.Vec3
	Normal   core.Vec3
	Material tracer.Material
}

// NewPlane creates a plane, normalizing its normal
func NewPlane(point, normal core.Vec3, material tracer.Material) *Plane {
	return &Plane{Point: point, Normal: normal.Normalize(), Material: material}
}

// Hit tests if a ray intersects the plane
func (p *Plane) Hit(ray core.Ray, tMin, tMax float64) (*tracer.SurfaceHit, bool) {
	denominator := ray.Direction.Dot(p.Normal)
	if math.Abs(denominator) < 1e-8 {
		return nil, false
	}

	t := p.Point.Subtract(ray.Origin).Dot(p.Normal) / denominator
	if t <= tMin || t >= tMax {
		return nil, false
	}

	hit := &tracer.SurfaceHit{T: t, Point: ray.At(t), Material: p.Material}
	hit.SetFaceNormal(ray, p.Normal)
	return hit, true
}

// NewBox returns the six outward facing quads of the axis aligned box
// spanning lo to hi
func NewBox(lo, hi core.Vec3, material tracer.Material) []Shape {
	dx := core.NewVec3(hi.X-lo.X, 0, 0)
	dy := core.NewVec3(0, hi.Y-lo.Y, 0)
	dz := core.NewVec3(0, 0, hi.Z-lo.Z)

	return []Shape{
		NewQuad(core.NewVec3(lo.X, lo.Y, hi.Z), dx, dy, material), // front (+z)
		NewQuad(core.NewVec3(hi.X, lo.Y, hi.Z), dz.Negate(), dy, material),
		NewQuad(core.NewVec3(hi.X, lo.Y, lo.Z), dx.Negate(), dy, material), // back (-z)
		NewQuad(core.NewVec3(lo.X, lo.Y, lo.Z), dz, dy, material),
		NewQuad(core.NewVec3(lo.X, hi.Y, hi.Z), dx, dz.Negate(), material), // top
		NewQuad(core.NewVec3(lo.X, lo.Y, lo.Z), dx, dz, material),          // bottom
	}
}
