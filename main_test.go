package main

import (
	"bytes"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/df07/go-iile/pkg/film"
	"github.com/df07/go-iile/pkg/log"
	"github.com/df07/go-iile/pkg/scene"
)

func testImage() *film.Grid[float32] {
	img := film.NewGrid[float32](3, 2, 3)
	img.Set(2, 1, 1, 0.5)
	return img
}

func TestWriteImageFormats(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"out.png", "nested/out.pfm", "out.tif", "out.TIFF"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := writeImage(path, testImage(), 1.0); err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			info, err := os.Stat(path)
			if err != nil {
				t.Fatalf("Expected output file, got %v", err)
			}
			if info.Size() == 0 {
				t.Error("Expected non-empty output file")
			}
		})
	}
}

func TestWriteImagePFMRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.pfm")
	if err := writeImage(path, testImage(), 1.0); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer f.Close()

	got, err := film.DecodePFM(f)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got.Width != 3 || got.Height != 2 {
		t.Errorf("Expected 3x2 grid, got %dx%d", got.Width, got.Height)
	}
	if got.At(2, 1, 1) != 0.5 {
		t.Errorf("Expected green 0.5 at (2,1), got %f", got.At(2, 1, 1))
	}
}

func TestWriteImageUnknownFormat(t *testing.T) {
	err := writeImage(filepath.Join(t.TempDir(), "out.bmp"), testImage(), 1.0)
	if !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Expected ErrUnknownFormat, got %v", err)
	}
}

func TestScenesCommand(t *testing.T) {
	var buf bytes.Buffer
	app := newApp()
	app.Writer = &buf
	if err := app.Run([]string{"iile", "scenes"}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	for _, name := range scene.Names() {
		if !strings.Contains(buf.String(), name) {
			t.Errorf("Expected listing to contain %q, got:\n%s", name, buf.String())
		}
	}
}

func TestRenderCommand(t *testing.T) {
	out := filepath.Join(t.TempDir(), "plane.png")
	app := newApp()
	err := app.Run([]string{"iile", "render",
		"--scene", "plane", "--width", "16", "--height", "16",
		"--tile-size", "8", "--hemi-size", "4", "--workers", "2",
		"--out", out})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("Expected output file, got %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("Failed to decode PNG: %v", err)
	}
	if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 16 {
		t.Errorf("Expected 16x16 image, got %v", img.Bounds())
	}
}

func TestRenderCommandUnknownScene(t *testing.T) {
	app := newApp()
	err := app.Run([]string{"iile", "render", "--scene", "nonexistent",
		"--out", filepath.Join(t.TempDir(), "x.png")})
	if !errors.Is(err, scene.ErrUnknownScene) {
		t.Errorf("Expected ErrUnknownScene, got %v", err)
	}
}

func TestGlobalFlags(t *testing.T) {
	defer log.SetLevel(log.Notice)

	var buf bytes.Buffer
	app := newApp()
	app.Writer = &buf
	if err := app.Run([]string{"iile", "--help"}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	for _, flag := range []string{"--version", "-v", "--vv"} {
		if !strings.Contains(buf.String(), flag) {
			t.Errorf("Expected help to mention %s, got:\n%s", flag, buf.String())
		}
	}

	buf.Reset()
	if err := app.Run([]string{"iile", "--version"}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), newApp().Version) {
		t.Errorf("Expected version output, got %q", buf.String())
	}

	if err := newApp().Run([]string{"iile", "-v", "-vv", "scenes"}); err != nil {
		t.Errorf("Unexpected error with verbose flags: %v", err)
	}
}
