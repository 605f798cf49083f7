// Package server exposes a running render over HTTP: health, progress as
// JSON or a server-sent event stream, a PNG preview, the log console,
// the scene list and per-pixel inspection.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"time"

	"github.com/df07/go-iile/pkg/film"
	"github.com/df07/go-iile/pkg/log"
	"github.com/df07/go-iile/pkg/renderer"
	"github.com/df07/go-iile/pkg/scene"
	"github.com/df07/go-iile/pkg/schedule"
)

// Source is the render being served
type Source interface {
	Bounds() image.Rectangle
	Progress() schedule.Progress
	Stats() renderer.RenderStats
	Snapshot() *film.Grid[float32]
}

// Config contains configuration for the server
type Config struct {
	Addr          string        // Listen address, e.g. ":8080"
	Exposure      float64       // Exposure applied to preview images
	EventInterval time.Duration // Period of progress events on /api/events
}

// DefaultConfig returns sensible default values
func DefaultConfig() Config {
	return Config{
		Addr:          ":8080",
		Exposure:      1.0,
		EventInterval: time.Second,
	}
}

// Server handles web requests for a render
type Server struct {
	config  Config
	source  Source
	scene   *scene.Scene // Optional, enables /api/inspect
	console *Console     // Optional, enables /api/console
	logger  log.Logger
}

// NewServer creates a new web server. scene and console may be nil.
func NewServer(config Config, source Source, sc *scene.Scene, console *Console) *Server {
	return &Server{
		config:  config,
		source:  source,
		scene:   sc,
		console: console,
		logger:  log.New("server"),
	}
}

// ProgressResponse is the JSON body of /api/progress and of progress events
type ProgressResponse struct {
	DirectDone     int     `json:"directDone"`
	DirectBudget   int     `json:"directBudget"`
	IndirectDone   int     `json:"indirectDone"`
	IndirectBudget int     `json:"indirectBudget"`
	Fraction       float64 `json:"fraction"`
	Done           bool    `json:"done"`
	Stats          Stats   `json:"stats"`
}

// Stats represents render statistics
type Stats struct {
	HemiPoints     int     `json:"hemiPoints"`
	NullHemiPoints int     `json:"nullHemiPoints"`
	Predictions    int     `json:"predictions"`
	Pixels         int     `json:"pixels"`
	PixelsSkipped  int     `json:"pixelsSkipped"`
	AverageSamples float64 `json:"averageSamples"`
	Sanitized      int     `json:"sanitized"`
}

// Handler returns the server's routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/progress", s.handleProgress)
	mux.HandleFunc("/api/events", s.handleEvents)
	mux.HandleFunc("/api/image", s.handleImage)
	mux.HandleFunc("/api/console", s.handleConsole)
	mux.HandleFunc("/api/scenes", s.handleScenes)
	mux.HandleFunc("/api/inspect", s.handleInspect)
	return mux
}

// Start serves until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.config.Addr, Handler: s.Handler()}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()

	s.logger.Noticef("Serving render progress on http://localhost%s", s.config.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// handleHealth provides a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) progress() ProgressResponse {
	p := s.source.Progress()
	st := s.source.Stats()
	return ProgressResponse{
		DirectDone:     p.DirectDone,
		DirectBudget:   p.DirectBudget,
		IndirectDone:   p.IndirectDone,
		IndirectBudget: p.IndirectBudget,
		Fraction:       p.Fraction(),
		Done:           p.Done(),
		Stats: Stats{
			HemiPoints:     st.HemiPoints,
			NullHemiPoints: st.NullHemiPoints,
			Predictions:    st.Predictions,
			Pixels:         st.Pixels,
			PixelsSkipped:  st.PixelsSkipped,
			AverageSamples: st.AverageSamples(),
			Sanitized:      st.Sanitized,
		},
	}
}

// handleProgress reports schedule progress and render counters
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.progress())
}

// handleEvents streams progress with SSE until the render is done or the
// client disconnects
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	interval := s.config.EventInterval
	if interval <= 0 {
		interval = DefaultConfig().EventInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		update := s.progress()
		data, err := json.Marshal(update)
		if err != nil {
			s.sendSSEEvent(w, "error", err.Error())
			return
		}
		if err := s.sendSSEEvent(w, "progress", string(data)); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if update.Done {
			s.sendSSEEvent(w, "complete", "Rendering completed")
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

// sendSSEEvent sends a generic SSE event
func (s *Server) sendSSEEvent(w http.ResponseWriter, event, data string) error {
	if flusher, ok := w.(http.Flusher); ok {
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
		flusher.Flush()
		return nil
	}
	return fmt.Errorf("streaming not supported")
}

// handleImage encodes the current composite as PNG
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	img := film.ToRGBA(s.source.Snapshot(), s.config.Exposure)
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	if err := png.Encode(w, img); err != nil {
		s.logger.Warningf("encoding preview: %v", err)
	}
}

// handleConsole returns the recent log lines
func (s *Server) handleConsole(w http.ResponseWriter, r *http.Request) {
	if s.console == nil {
		writeJSON(w, http.StatusOK, []ConsoleMessage{})
		return
	}
	writeJSON(w, http.StatusOK, s.console.Messages())
}

// handleScenes lists the built-in scenes
func (s *Server) handleScenes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scene.List())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
