// Package hemi implements the hemispheric auxiliary camera placed at a
// surface point to capture and later replay the incoming radiance over the
// hemisphere around its look direction.
//
// Film coordinates map to directions in the camera frame as
//
//	theta = pi * y / H, phi = pi * x / W
//	dir   = (sin(theta)cos(phi), cos(theta), sin(theta)sin(phi))
//
// where the frame's z axis is the look direction. Maps are stored in camera
// coordinates: film row y lives in grid row H-1-y.
package hemi

import (
	"errors"
	"fmt"
	"math"

	"github.com/df07/go-iile/pkg/core"
	"github.com/df07/go-iile/pkg/film"
	"github.com/df07/go-iile/pkg/tracer"
)

// ErrRadianceSize is returned when a radiance map does not match the camera
var ErrRadianceSize = errors.New("hemi: radiance map size mismatch")

// Camera is a hemispheric camera anchored at a surface point
type Camera struct {
	Origin        core.Vec3
	Look          core.Vec3
	Width, Height int

	tangent, bitangent core.Vec3
	radiance           *film.Grid[float32]
}

// NewCamera creates a camera at origin looking along look (normalized here).
// A zero look vector is an invariant violation.
func NewCamera(origin, look core.Vec3, width, height int) *Camera {
	if look.LengthSquared() == 0 {
		core.Invariantf("hemi", "zero-length look vector at %v", origin)
	}
	look = look.Normalize()
	tangent, bitangent := core.OrthonormalBasis(look)
	return &Camera{
		Origin:    origin,
		Look:      look,
		Width:     width,
		Height:    height,
		tangent:   tangent,
		bitangent: bitangent,
	}
}

// Direction returns the world direction for a continuous film position
func (c *Camera) Direction(filmX, filmY float64) core.Vec3 {
	theta := math.Pi * filmY / float64(c.Height)
	phi := math.Pi * filmX / float64(c.Width)
	sinTheta := math.Sin(theta)
	return c.toWorld(core.NewVec3(sinTheta*math.Cos(phi), math.Cos(theta), sinTheta*math.Sin(phi)))
}

// GenerateRay implements tracer.Camera
func (c *Camera) GenerateRay(s tracer.CameraSample) core.Ray {
	return core.NewRay(c.Origin, c.Direction(s.FilmX, s.FilmY))
}

// PixelFor maps a world direction to the film pixel it falls in. Directions
// behind the camera report ok=false.
func (c *Camera) PixelFor(dir core.Vec3) (x, y int, ok bool) {
	local := c.toLocal(dir.Normalize())
	if local.Z < 0 {
		return 0, 0, false
	}
	theta := math.Acos(math.Max(-1, math.Min(1, local.Y)))
	phi := math.Atan2(local.Z, local.X)

	x = int(phi / math.Pi * float64(c.Width))
	y = int(theta / math.Pi * float64(c.Height))
	x = max(0, min(c.Width-1, x))
	y = max(0, min(c.Height-1, y))
	return x, y, true
}

// SolidAnglePDF is the solid angle density of picking the centre of film
// row y when pixels are drawn uniformly.
func (c *Camera) SolidAnglePDF(y int) float64 {
	sinTheta := math.Sin(math.Pi * (float64(y) + 0.5) / float64(c.Height))
	return 1 / (math.Pi * math.Pi * sinTheta)
}

func (c *Camera) toWorld(v core.Vec3) core.Vec3 {
	return c.tangent.Multiply(v.X).Add(c.bitangent.Multiply(v.Y)).Add(c.Look.Multiply(v.Z))
}

func (c *Camera) toLocal(v core.Vec3) core.Vec3 {
	return core.NewVec3(v.Dot(c.tangent), v.Dot(c.bitangent), v.Dot(c.Look))
}

// Capture holds the maps rendered through a hemispheric camera
type Capture struct {
	Radiance *film.Grid[float32] // Incoming radiance, light sources excluded
	Normals  *film.Grid[float32] // Surface normals in the camera frame
	Distance *film.Grid[float32] // Hit distance, 0 where rays escape
}

// Capture renders the radiance, normal and distance maps seen from the
// camera. Radiance averages spp jittered samples per pixel; emission and
// background seen directly are left out since the direct pass accounts for
// them. Normals and distances come from the pixel centre ray.
func (c *Camera) Capture(scene tracer.Scene, integrator tracer.Integrator, sampler core.Sampler, spp int) *Capture {
	if spp < 1 {
		spp = 1
	}
	out := &Capture{
		Radiance: film.NewGrid[float32](c.Width, c.Height, 3),
		Normals:  film.NewGrid[float32](c.Width, c.Height, 3),
		Distance: film.NewGrid[float32](c.Width, c.Height, 1),
	}

	for y := 0; y < c.Height; y++ {
		for x := 0; x < c.Width; x++ {
			centre := c.GenerateRay(tracer.CameraSample{FilmX: float64(x) + 0.5, FilmY: float64(y) + 0.5})
			if hit, ok := scene.Intersect(centre, 0, math.Inf(1)); ok {
				out.Normals.SetVec3CameraCoord(x, y, c.toLocal(hit.Normal))
				out.Distance.SetCameraCoord(x, y, 0, float32(hit.T))
			}

			var sum core.Vec3
			for s := 0; s < spp; s++ {
				u := sampler.Get2D()
				ray := c.GenerateRay(tracer.CameraSample{FilmX: float64(x) + u.X, FilmY: float64(y) + u.Y})
				sum = sum.Add(indirectRadiance(ray, scene, integrator, sampler))
			}
			out.Radiance.SetVec3CameraCoord(x, y, sum.Multiply(1/float64(spp)))
		}
	}
	return out
}

// indirectRadiance is the radiance arriving along ray minus what the first
// surface emits itself
func indirectRadiance(ray core.Ray, scene tracer.Scene, integrator tracer.Integrator, sampler core.Sampler) core.Vec3 {
	hit, ok := scene.Intersect(ray, 0, math.Inf(1))
	if !ok {
		return core.Vec3{}
	}
	l := integrator.Li(ray, scene, sampler)
	if hit.Material != nil {
		l = l.Subtract(hit.Material.Emitted(hit, ray.Direction.Negate()))
	}
	if l.HasNaN() || l.HasInf() {
		return core.Vec3{}
	}
	return l.Clamp(0, math.MaxFloat64)
}

// SetRadiance installs the predicted radiance map used by lookups
func (c *Camera) SetRadiance(g *film.Grid[float32]) error {
	if g.Width != c.Width || g.Height != c.Height || g.Channels != 3 {
		return fmt.Errorf("%w: got %dx%dx%d, want %dx%dx3", ErrRadianceSize, g.Width, g.Height, g.Channels, c.Width, c.Height)
	}
	c.radiance = g
	return nil
}

// Radiance returns the installed radiance map, or nil
func (c *Camera) Radiance() *film.Grid[float32] {
	return c.radiance
}

// Lookup returns the installed radiance for a world direction, black when
// the direction is behind the camera or no map is installed.
func (c *Camera) Lookup(dir core.Vec3) core.Vec3 {
	if c.radiance == nil {
		return core.Vec3{}
	}
	x, y, ok := c.PixelFor(dir)
	if !ok {
		return core.Vec3{}
	}
	return c.radiance.Vec3At(x, c.Height-1-y)
}

// SampleUniform picks a map pixel uniformly and returns the direction
// through its centre along with the radiance there divided by the solid
// angle density of the pick.
func (c *Camera) SampleUniform(sampler core.Sampler) (dir core.Vec3, radianceOverPDF core.Vec3) {
	x := sampler.IntN(c.Width)
	y := sampler.IntN(c.Height)
	dir = c.Direction(float64(x)+0.5, float64(y)+0.5)
	if c.radiance == nil {
		return dir, core.Vec3{}
	}
	return dir, film.JacobianCameraCoord(c.radiance, x, y).Multiply(math.Pi * math.Pi)
}
