package renderer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"strings"
	"testing"

	"github.com/df07/go-iile/pkg/core"
	"github.com/df07/go-iile/pkg/film"
	"github.com/df07/go-iile/pkg/predictor"
	"github.com/df07/go-iile/pkg/scene"
	"github.com/df07/go-iile/pkg/tracer"
)

// constantIntegrator returns the same radiance for every ray
type constantIntegrator struct {
	value core.Vec3
}

func (c constantIntegrator) Li(core.Ray, tracer.Scene, core.Sampler) core.Vec3 {
	return c.value
}

// panicCamera violates an invariant on every ray
type panicCamera struct{}

func (panicCamera) GenerateRay(s tracer.CameraSample) core.Ray {
	core.InvariantAtf("camera", image.Pt(int(s.FilmX), int(s.FilmY)), "broken camera")
	return core.Ray{}
}

// createCorridor builds a diffuse floor under a diffuse ceiling, viewed from
// halfway between them. Every hemisphere capture above the floor sees only
// the ceiling.
func createCorridor(size int) (*scene.World, *scene.PinholeCamera) {
	world := scene.NewWorld(core.Vec3{})
	world.Add(
		scene.NewPlane(core.Vec3{}, core.NewVec3(0, 1, 0), scene.NewLambertian(core.NewVec3(0.5, 0.5, 0.5))),
		scene.NewPlane(core.NewVec3(0, 2, 0), core.NewVec3(0, -1, 0), scene.NewLambertian(core.NewVec3(0.5, 0.5, 0.5))),
	)
	camera := scene.NewPinholeCamera(scene.CameraConfig{
		Center: core.NewVec3(0, 1, 0),
		LookAt: core.NewVec3(0, 0, 0),
		Up:     core.NewVec3(0, 0, -1),
		Width:  size,
		Height: size,
		VFov:   60,
	})
	return world, camera
}

func testConfig() Config {
	config := DefaultConfig()
	config.TileSize = 16
	config.NumWorkers = 4
	config.HemiSize = 8
	config.ProgressInterval = 0
	return config
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	if config.TileSize != 32 {
		t.Errorf("Expected default tile size 32, got %d", config.TileSize)
	}
	if config.SampleBudget != 16 {
		t.Errorf("Expected default sample budget 16, got %d", config.SampleBudget)
	}
	if config.MaxSpecularBounces != 24 {
		t.Errorf("Expected default specular bounces 24, got %d", config.MaxSpecularBounces)
	}
	if config.Weighting != "distance" {
		t.Errorf("Expected default weighting distance, got %q", config.Weighting)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("Expected default config to be valid, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	config := DefaultConfig()
	config.TileSize = 0
	if err := config.Validate(); err == nil {
		t.Error("Expected error for zero tile size")
	}

	config = DefaultConfig()
	config.NumWorkers = -1
	if err := config.Validate(); !errors.Is(err, ErrNoWorkers) {
		t.Errorf("Expected ErrNoWorkers, got %v", err)
	}

	config = DefaultConfig()
	config.Weighting = "nearest"
	if err := config.Validate(); err == nil || !strings.Contains(err.Error(), "nearest") {
		t.Errorf("Expected unknown weighting error, got %v", err)
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	world, camera := createCorridor(8)
	integrators := Integrators{Direct: scene.NewDirectIntegrator(4), Indirect: constantIntegrator{}}
	bounds := image.Rect(0, 0, 8, 8)

	if _, err := New(nil, camera, integrators, bounds, testConfig(), predictor.PassthroughFactory(), nil); !errors.Is(err, ErrNilCollaborator) {
		t.Errorf("Expected ErrNilCollaborator, got %v", err)
	}
	if _, err := New(world, camera, integrators, bounds, testConfig(), nil, nil); !errors.Is(err, ErrNilCollaborator) {
		t.Errorf("Expected ErrNilCollaborator for missing factory, got %v", err)
	}
	if _, err := New(world, camera, integrators, image.Rect(4, 4, 4, 8), testConfig(), predictor.PassthroughFactory(), nil); !errors.Is(err, ErrEmptyBounds) {
		t.Errorf("Expected ErrEmptyBounds, got %v", err)
	}
}

func TestFlatPlaneIndirectIsUniform(t *testing.T) {
	const size = 64
	world, camera := createCorridor(size)
	integrators := Integrators{
		Direct:   scene.NewDirectIntegrator(4),
		Indirect: constantIntegrator{value: core.NewVec3(1, 1, 1)},
	}

	r, err := New(world, camera, integrators, image.Rect(0, 0, size, size), testConfig(), predictor.PassthroughFactory(), nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	result, err := r.Render(context.Background())
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	stats := result.Stats
	if stats.Tasks != 16 {
		t.Errorf("Expected 16 tasks, got %d", stats.Tasks)
	}
	if stats.HemiPoints != 64 || stats.NullHemiPoints != 0 {
		t.Errorf("Expected 64 valid hemi points, got %d valid and %d null", stats.HemiPoints, stats.NullHemiPoints)
	}
	if stats.Pixels != size*size || stats.PixelsSkipped != 0 {
		t.Errorf("Expected %d shaded pixels, got %d (%d skipped)", size*size, stats.Pixels, stats.PixelsSkipped)
	}
	if !r.Progress().Done() {
		t.Error("Expected schedule to be done")
	}

	// Expected indirect radiance is albedo * ceiling radiance = 0.5
	var left, right, top, bottom float64
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := float64(result.Indirect.At(x, y, 0))
			if math.IsNaN(v) || v < 0 {
				t.Fatalf("Invalid indirect value %f at (%d,%d)", v, x, y)
			}
			if x < size/2 {
				left += v
			} else {
				right += v
			}
			if y < size/2 {
				top += v
			} else {
				bottom += v
			}
		}
	}
	half := float64(size * size / 2)
	left, right, top, bottom = left/half, right/half, top/half, bottom/half
	mean := (left + right) / 2

	if math.Abs(mean-0.5) > 0.05 {
		t.Errorf("Expected mean indirect radiance near 0.5, got %f", mean)
	}
	if math.Abs(left-right) > 0.02 {
		t.Errorf("Expected left and right halves to match, got %f and %f", left, right)
	}
	if math.Abs(top-bottom) > 0.02 {
		t.Errorf("Expected top and bottom halves to match, got %f and %f", top, bottom)
	}

	// No light reaches the floor directly, so the composite is the indirect film
	for i := range result.Image.Pix {
		if math.Abs(float64(result.Image.Pix[i]-result.Indirect.Pix[i])) > 1e-5 {
			t.Fatalf("Expected composite to equal indirect at %d, got %f and %f", i, result.Image.Pix[i], result.Indirect.Pix[i])
		}
	}
}

func TestRenderCancelled(t *testing.T) {
	world, camera := createCorridor(16)
	integrators := Integrators{Direct: scene.NewDirectIntegrator(4), Indirect: constantIntegrator{}}
	r, err := New(world, camera, integrators, image.Rect(0, 0, 16, 16), testConfig(), predictor.PassthroughFactory(), nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Render(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestRenderRecoversInvariantPanics(t *testing.T) {
	world, _ := createCorridor(16)
	integrators := Integrators{Direct: scene.NewDirectIntegrator(4), Indirect: constantIntegrator{}}
	r, err := New(world, panicCamera{}, integrators, image.Rect(0, 0, 16, 16), testConfig(), predictor.PassthroughFactory(), nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	_, err = r.Render(context.Background())
	var invariant *core.InvariantError
	if !errors.As(err, &invariant) {
		t.Fatalf("Expected InvariantError, got %v", err)
	}
	if invariant.Subsystem != "camera" || invariant.Point == nil {
		t.Errorf("Expected camera invariant with a point, got %+v", invariant)
	}
	if !strings.Contains(err.Error(), "worker") {
		t.Errorf("Expected error to name the worker, got %q", err.Error())
	}
}

func TestRenderPropagatesPredictorErrors(t *testing.T) {
	world, camera := createCorridor(16)
	integrators := Integrators{Direct: scene.NewDirectIntegrator(4), Indirect: constantIntegrator{value: core.NewVec3(1, 1, 1)}}
	failing := func(worker int) (predictor.Predictor, error) {
		return predictor.Func(func(ctx context.Context, radiance, normals, distance *film.Grid[float32]) (*film.Grid[float32], error) {
			return nil, fmt.Errorf("%w: broken pipe", predictor.ErrTransport)
		}), nil
	}

	r, err := New(world, camera, integrators, image.Rect(0, 0, 16, 16), testConfig(), failing, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	_, err = r.Render(context.Background())
	if !errors.Is(err, predictor.ErrTransport) {
		t.Fatalf("Expected ErrTransport, got %v", err)
	}
	if !strings.Contains(err.Error(), "task") || !strings.Contains(err.Error(), "pixel") {
		t.Errorf("Expected error to name task and pixel, got %q", err.Error())
	}
}

func TestRenderFactoryError(t *testing.T) {
	world, camera := createCorridor(16)
	integrators := Integrators{Direct: scene.NewDirectIntegrator(4), Indirect: constantIntegrator{}}
	boom := errors.New("no model")
	factory := func(int) (predictor.Predictor, error) { return nil, boom }

	r, _ := New(world, camera, integrators, image.Rect(0, 0, 16, 16), testConfig(), factory, nil)
	if _, err := r.Render(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Expected factory error, got %v", err)
	}
}
