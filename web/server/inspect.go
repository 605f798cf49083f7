package server

import (
	"math"
	"net/http"
	"strconv"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/df07/go-iile/pkg/core"
	"github.com/df07/go-iile/pkg/scene"
	"github.com/df07/go-iile/pkg/tracer"
)

// InspectResponse represents the JSON response for pixel inspection
type InspectResponse struct {
	Hit          bool                   `json:"hit"`
	MaterialType string                 `json:"materialType,omitempty"`
	Point        [3]float64             `json:"point"`
	Normal       [3]float64             `json:"normal"`
	Distance     float64                `json:"distance"`
	FrontFace    bool                   `json:"frontFace"`
	Properties   map[string]interface{} `json:"properties,omitempty"`
	Radiance     [3]float64             `json:"radiance"` // Current film value
}

func vec(v core.Vec3) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

func hexColor(v core.Vec3) string {
	return colorful.LinearRgb(v.X, v.Y, v.Z).Clamped().Hex()
}

// extractMaterialInfo extracts material information with type assertions
func extractMaterialInfo(mat tracer.Material) (string, map[string]interface{}) {
	properties := make(map[string]interface{})

	switch m := mat.(type) {
	case *scene.Lambertian:
		properties["albedo"] = vec(m.Albedo)
		properties["color"] = hexColor(m.Albedo)
		return "lambertian", properties

	case *scene.Mirror:
		properties["albedo"] = vec(m.Albedo)
		properties["color"] = hexColor(m.Albedo)
		return "mirror", properties

	case *scene.Emissive:
		properties["emission"] = vec(m.Emission)
		properties["color"] = hexColor(m.Emission)
		return "emissive", properties

	default:
		return "unknown", properties
	}
}

// handleInspect casts the centre ray of pixel (x, y) and reports the first
// surface it hits along with the pixel's current film value
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	if s.scene == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "No scene to inspect"})
		return
	}

	x, err := strconv.Atoi(r.URL.Query().Get("x"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid x coordinate"})
		return
	}
	y, err := strconv.Atoi(r.URL.Query().Get("y"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid y coordinate"})
		return
	}

	bounds := s.source.Bounds()
	if x < bounds.Min.X || x >= bounds.Max.X || y < bounds.Min.Y || y >= bounds.Max.Y {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Pixel coordinates out of bounds"})
		return
	}

	snapshot := s.source.Snapshot()
	response := InspectResponse{
		Radiance: vec(snapshot.Vec3At(x-bounds.Min.X, y-bounds.Min.Y)),
	}

	ray := s.scene.Camera.GenerateRay(tracer.CameraSample{FilmX: float64(x) + 0.5, FilmY: float64(y) + 0.5})
	hit, ok := s.scene.World.Intersect(ray, 0, math.Inf(1))
	if ok {
		materialType, properties := extractMaterialInfo(hit.Material)
		response.Hit = true
		response.MaterialType = materialType
		response.Properties = properties
		response.Point = vec(hit.Point)
		response.Normal = vec(hit.Normal)
		response.Distance = hit.T
		response.FrontFace = hit.FrontFace
	}
	writeJSON(w, http.StatusOK, response)
}
