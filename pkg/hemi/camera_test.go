package hemi

import (
	"errors"
	"math"
	"testing"

	"github.com/df07/go-iile/pkg/core"
	"github.com/df07/go-iile/pkg/film"
	"github.com/df07/go-iile/pkg/tracer"
)

type glowMaterial struct{ emission core.Vec3 }

func (m glowMaterial) Scattering() tracer.Scattering { return tracer.Diffuse }
func (m glowMaterial) SampleBSDF(*tracer.SurfaceHit, core.Vec3, core.Vec2) (tracer.BSDFSample, bool) {
	return tracer.BSDFSample{}, false
}
func (m glowMaterial) EvalBSDF(*tracer.SurfaceHit, core.Vec3, core.Vec3) core.Vec3 { return core.Vec3{} }
func (m glowMaterial) PDF(*tracer.SurfaceHit, core.Vec3, core.Vec3) float64      { return 0 }
func (m glowMaterial) Emitted(*tracer.SurfaceHit, core.Vec3) core.Vec3          { return m.emission }

// wallScene reports every ray hitting a surface at distance 2 that faces back
// along the ray
type wallScene struct{ escapeBelow bool }

func (s wallScene) Intersect(ray core.Ray, tMin, tMax float64) (*tracer.SurfaceHit, bool) {
	if s.escapeBelow && ray.Direction.Y < 0 {
		return nil, false
	}
	return &tracer.SurfaceHit{
		Point:    ray.At(2),
		Normal:   ray.Direction.Normalize().Negate(),
		T:        2,
		Material: glowMaterial{emission: core.NewVec3(0.5, 0, 0)},
	}, true
}

func (s wallScene) Background(core.Ray) core.Vec3 { return core.NewVec3(9, 9, 9) }

type constantIntegrator struct{ value core.Vec3 }

func (c constantIntegrator) Li(core.Ray, tracer.Scene, core.Sampler) core.Vec3 { return c.value }

func TestDirectionPixelRoundTrip(t *testing.T) {
	look := core.NewVec3(0.3, -1, 0.2)
	cam := NewCamera(core.Vec3{}, look, 32, 32)
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			dir := cam.Direction(float64(x)+0.5, float64(y)+0.5)
			if dir.Dot(cam.Look) < 0 {
				t.Fatalf("Direction for (%d,%d) points behind the camera", x, y)
			}
			if math.Abs(dir.Length()-1) > 1e-9 {
				t.Fatalf("Expected unit direction, got length %f", dir.Length())
			}
			px, py, ok := cam.PixelFor(dir)
			if !ok || px != x || py != y {
				t.Fatalf("Expected (%d,%d), got (%d,%d) ok=%v", x, y, px, py, ok)
			}
		}
	}
	if _, _, ok := cam.PixelFor(cam.Look.Negate()); ok {
		t.Error("Expected direction behind the camera to be rejected")
	}
}

func TestSolidAnglePDFCoversHemisphere(t *testing.T) {
	cam := NewCamera(core.Vec3{}, core.NewVec3(0, 0, 1), 16, 64)
	total := 0.0
	for y := 0; y < cam.Height; y++ {
		for x := 0; x < cam.Width; x++ {
			total += 1 / (float64(cam.Width*cam.Height) * cam.SolidAnglePDF(y))
		}
	}
	if math.Abs(total-2*math.Pi) > 0.01*2*math.Pi {
		t.Errorf("Expected pixel solid angles to sum to 2pi, got %f", total)
	}
}

func TestCaptureMaps(t *testing.T) {
	cam := NewCamera(core.NewVec3(0, 1, 0), core.NewVec3(0, 1, 0), 8, 8)
	sampler := core.NewWorkerSampler(1, 0)
	capture := cam.Capture(wallScene{}, constantIntegrator{value: core.NewVec3(1, 1, 1)}, sampler, 2)

	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			r := capture.Radiance.Vec3At(x, y)
			if math.Abs(r.X-0.5) > 1e-6 || math.Abs(r.Y-1) > 1e-6 {
				t.Fatalf("Expected emission-free radiance (0.5,1,1), got %v", r)
			}
			if d := capture.Distance.At(x, y, 0); d != 2 {
				t.Fatalf("Expected distance 2, got %f", d)
			}
		}
	}

	// The wall faces back along the ray, so the normal seen through the
	// centre pixel is the negated ray direction in the camera frame
	dir := cam.toLocal(cam.Direction(4.5, 4.5))
	n := capture.Normals
	got := core.NewVec3(float64(n.CameraCoord(4, 4, 0)), float64(n.CameraCoord(4, 4, 1)), float64(n.CameraCoord(4, 4, 2)))
	if got.Add(dir).Length() > 1e-5 {
		t.Errorf("Expected local normal %v, got %v", dir.Negate(), got)
	}
}

func TestCaptureExcludesEscapingRays(t *testing.T) {
	cam := NewCamera(core.Vec3{}, core.NewVec3(1, 0, 0), 4, 4)
	capture := cam.Capture(wallScene{escapeBelow: true}, constantIntegrator{value: core.NewVec3(1, 1, 1)}, core.NewWorkerSampler(2, 0), 1)

	// Film rows past the equator look below the horizon and escape
	bottom := capture.Radiance.CameraCoord(1, 3, 1)
	if bottom != 0 {
		t.Errorf("Expected escaping rays to record black, got %f", bottom)
	}
	if capture.Distance.CameraCoord(1, 3, 0) != 0 {
		t.Errorf("Expected escaping rays to record zero distance, got %f", capture.Distance.CameraCoord(1, 3, 0))
	}
	if top := capture.Radiance.CameraCoord(1, 0, 1); top != 1 {
		t.Errorf("Expected rays above the horizon to see the wall, got %f", top)
	}
}

func TestLookupAndUniformSampling(t *testing.T) {
	cam := NewCamera(core.Vec3{}, core.NewVec3(0, 0, 1), 32, 32)
	if !cam.Lookup(cam.Look).IsBlack() {
		t.Error("Expected black lookup before a map is installed")
	}

	g := film.NewGrid[float32](32, 32, 3)
	g.Map(func(float32) float32 { return 1 })
	if err := cam.SetRadiance(g); err != nil {
		t.Fatalf("SetRadiance failed: %v", err)
	}
	if v := cam.Lookup(core.NewVec3(0.2, 0.1, 1)); v != core.NewVec3(1, 1, 1) {
		t.Errorf("Expected unit radiance, got %v", v)
	}
	if !cam.Lookup(core.NewVec3(0, 0, -1)).IsBlack() {
		t.Error("Expected black lookup behind the camera")
	}

	// Uniform radiance integrates to the hemisphere's solid angle
	sampler := core.NewWorkerSampler(3, 0)
	const n = 20000
	var sum float64
	for i := 0; i < n; i++ {
		dir, v := cam.SampleUniform(sampler)
		if dir.Dot(cam.Look) < 0 {
			t.Fatal("Expected sampled direction in front of the camera")
		}
		sum += v.X
	}
	if mean := sum / n; math.Abs(mean-2*math.Pi) > 0.05*2*math.Pi {
		t.Errorf("Expected estimate near 2pi, got %f", mean)
	}
}

func TestSetRadianceSizeMismatch(t *testing.T) {
	cam := NewCamera(core.Vec3{}, core.NewVec3(0, 1, 0), 8, 8)
	if err := cam.SetRadiance(film.NewGrid[float32](8, 4, 3)); !errors.Is(err, ErrRadianceSize) {
		t.Errorf("Expected ErrRadianceSize, got %v", err)
	}
}

func TestZeroLookPanics(t *testing.T) {
	defer func() {
		var inv *core.InvariantError
		err, _ := recover().(error)
		if !errors.As(err, &inv) || inv.Subsystem != "hemi" {
			t.Errorf("Expected hemi invariant panic, got %v", err)
		}
	}()
	NewCamera(core.Vec3{}, core.Vec3{}, 4, 4)
}
