package server

import (
	"bufio"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/df07/go-iile/pkg/film"
	"github.com/df07/go-iile/pkg/renderer"
	"github.com/df07/go-iile/pkg/scene"
	"github.com/df07/go-iile/pkg/schedule"
)

// fakeSource is a render frozen at a fixed progress
type fakeSource struct {
	bounds   image.Rectangle
	progress schedule.Progress
	image    *film.Grid[float32]
}

func (f *fakeSource) Bounds() image.Rectangle       { return f.bounds }
func (f *fakeSource) Progress() schedule.Progress   { return f.progress }
func (f *fakeSource) Stats() renderer.RenderStats   { return renderer.RenderStats{Pixels: 4, Samples: 32} }
func (f *fakeSource) Snapshot() *film.Grid[float32] { return f.image.Clone() }

func newFakeSource(done bool) *fakeSource {
	img := film.NewGrid[float32](4, 4, 3)
	img.Set(1, 2, 0, 0.25)
	p := schedule.Progress{IndirectIssued: 4, IndirectDone: 2, IndirectBudget: 4, DirectIssued: 1, DirectDone: 1, DirectBudget: 1}
	if done {
		p.IndirectDone = 4
	}
	return &fakeSource{bounds: image.Rect(0, 0, 4, 4), progress: p, image: img}
}

func TestHealth(t *testing.T) {
	srv := NewServer(DefaultConfig(), newFakeSource(false), nil, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("Expected ok status, got %s", rec.Body.String())
	}
}

func TestProgress(t *testing.T) {
	srv := NewServer(DefaultConfig(), newFakeSource(false), nil, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/progress", nil))

	var resp ProgressResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.IndirectDone != 2 || resp.IndirectBudget != 4 {
		t.Errorf("Expected indirect 2/4, got %d/%d", resp.IndirectDone, resp.IndirectBudget)
	}
	if resp.Done {
		t.Error("Expected render not done")
	}
	if resp.Stats.AverageSamples != 8 {
		t.Errorf("Expected 8 samples per pixel, got %f", resp.Stats.AverageSamples)
	}
}

func TestImage(t *testing.T) {
	srv := NewServer(DefaultConfig(), newFakeSource(false), nil, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/image", nil))

	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Expected image/png, got %s", ct)
	}
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatalf("Failed to decode PNG: %v", err)
	}
	if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 4 {
		t.Errorf("Expected 4x4 image, got %v", img.Bounds())
	}
	if r, _, _, _ := img.At(1, 2).RGBA(); r == 0 {
		t.Error("Expected red channel at (1,2)")
	}
	if r, _, _, _ := img.At(0, 0).RGBA(); r != 0 {
		t.Errorf("Expected black at (0,0), got red %d", r)
	}
}

func TestEventsStreamUntilDone(t *testing.T) {
	srv := NewServer(DefaultConfig(), newFakeSource(true), nil, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))

	var events []string
	scanner := bufio.NewScanner(rec.Body)
	for scanner.Scan() {
		if name, ok := strings.CutPrefix(scanner.Text(), "event: "); ok {
			events = append(events, name)
		}
	}
	if len(events) != 2 || events[0] != "progress" || events[1] != "complete" {
		t.Errorf("Expected [progress complete], got %v", events)
	}
}

func TestConsoleEndpoint(t *testing.T) {
	console := NewConsole(5)
	console.Write([]byte("hello\n"))
	srv := NewServer(DefaultConfig(), newFakeSource(false), nil, console)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/console", nil))
	var messages []ConsoleMessage
	if err := json.NewDecoder(rec.Body).Decode(&messages); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(messages) != 1 || messages[0].Message != "hello" {
		t.Errorf("Expected one hello message, got %+v", messages)
	}
}

func TestScenes(t *testing.T) {
	srv := NewServer(DefaultConfig(), newFakeSource(false), nil, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/scenes", nil))

	var infos []scene.Info
	if err := json.NewDecoder(rec.Body).Decode(&infos); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(infos) != len(scene.Names()) {
		t.Errorf("Expected %d scenes, got %d", len(scene.Names()), len(infos))
	}
}

func TestInspect(t *testing.T) {
	sc, err := scene.New("plane", scene.Options{Width: 4, Height: 4})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	srv := NewServer(DefaultConfig(), newFakeSource(false), sc, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/inspect?x=1&y=2", nil))
	var resp InspectResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !resp.Hit || resp.MaterialType != "lambertian" {
		t.Errorf("Expected lambertian hit, got %+v", resp)
	}
	if resp.Radiance[0] != 0.25 {
		t.Errorf("Expected film red 0.25, got %f", resp.Radiance[0])
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/inspect?x=9&y=0", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for out of bounds pixel, got %d", rec.Code)
	}
}

func TestInspectWithoutScene(t *testing.T) {
	srv := NewServer(DefaultConfig(), newFakeSource(false), nil, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/inspect?x=0&y=0", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}
