package predictor

import (
	"math"
	"testing"

	"github.com/df07/go-iile/pkg/film"
)

func filled(w, h, channels int, v float32) *film.Grid[float32] {
	g := film.NewGrid[float32](w, h, channels)
	g.Map(func(float32) float32 { return v })
	return g
}

func TestNormalizeConstantCapture(t *testing.T) {
	radiance := filled(4, 4, 3, 2)
	radiance.Scale(1, 0.5)
	normals := filled(4, 4, 3, 3)
	distance := filled(4, 4, 1, 9)

	nr, nn, nd, means := Normalize(radiance, normals, distance)

	if means.Purged {
		t.Error("Expected a flat capture not to be purged")
	}
	if math.Abs(means.Radiance[0]-2) > 1e-6 || math.Abs(means.Radiance[1]-1) > 1e-6 {
		t.Errorf("Expected channel means (2, 1, 2), got %v", means.Radiance)
	}

	want := math.Log1p(0.1) - 0.1
	for i, v := range nr.Pix {
		if math.Abs(float64(v)-want) > 1e-6 {
			t.Fatalf("Expected normalized radiance %f, got %f at %d", want, v, i)
		}
	}
	if nn.At(0, 0, 0) != 1 {
		t.Errorf("Expected normals clamped to 1, got %f", nn.At(0, 0, 0))
	}
	wantDist := math.Log1p(9.0/100.0) - 0.1
	if math.Abs(float64(nd.At(2, 2, 0))-wantDist) > 1e-6 {
		t.Errorf("Expected normalized distance %f, got %f", wantDist, nd.At(2, 2, 0))
	}
	if radiance.At(0, 0, 0) != 2 {
		t.Error("Expected Normalize to leave its inputs untouched")
	}
}

func TestDenormalizeRestoresMeans(t *testing.T) {
	radiance := film.NewGrid[float32](8, 8, 3)
	for i := range radiance.Pix {
		radiance.Pix[i] = float32(i%7) * 0.3
	}
	normals := filled(8, 8, 3, 0)
	distance := filled(8, 8, 1, 1)

	nr, _, _, means := Normalize(radiance, normals, distance)
	out := Denormalize(nr, means)

	for c := 0; c < 3; c++ {
		want := radiance.ChannelMean(c)
		got := out.ChannelMean(c)
		if math.Abs(got-want) > 1e-4*math.Max(1, want) {
			t.Errorf("Expected channel %d mean %f, got %f", c, want, got)
		}
	}
}

func TestNormalizePurgesFireflies(t *testing.T) {
	radiance := film.NewGrid[float32](32, 32, 3)
	radiance.Set(3, 3, 0, 1000)
	nr, _, _, means := Normalize(radiance, filled(32, 32, 3, 0), filled(32, 32, 1, 1))

	if !means.Purged {
		t.Fatal("Expected firefly capture to be purged")
	}
	for _, v := range nr.Pix {
		if math.Abs(float64(v)+0.1) > 1e-6 {
			t.Fatalf("Expected purged radiance to normalize to -0.1, got %f", v)
		}
	}

	out := Denormalize(nr, means)
	if out.Max() != 0 {
		t.Errorf("Expected purged capture to denormalize to black, got max %f", out.Max())
	}
}
