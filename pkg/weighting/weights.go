package weighting

import (
	"errors"
	"fmt"
	"image"

	"github.com/df07/go-iile/pkg/core"
)

// ErrUnknownWeighting is returned by ByName for unregistered names
var ErrUnknownWeighting = errors.New("weighting: unknown weighting function")

// Corner order used by Query.Candidates and the returned weight vectors
const (
	TopLeft = iota
	TopRight
	BottomLeft
	BottomRight
)

// Candidate is one of the four hemispheric viewpoints bracketing a pixel
type Candidate struct {
	Valid    bool        // False for null viewpoints (no usable surface)
	Pixel    image.Point // Grid vertex the viewpoint was built for
	Look     core.Vec3   // Outward facing look direction at the viewpoint
	Distance float64     // Distance of the viewpoint's surface point from the primary camera
}

// Query describes the output pixel being shaded and its four candidates
type Query struct {
	Pixel      image.Point
	Normal     core.Vec3 // Outward facing shading normal at the pixel's surface point
	Distance   float64   // Distance of the pixel's surface point from the primary camera
	TileSize   int       // Grid stride; one stride maps to a positional distance of 1
	Candidates [4]Candidate
}

// Func computes interpolation weights for a query. Implementations return
// non-negative weights summing to 1 when at least one candidate is valid and
// all zeros otherwise.
type Func func(q *Query) [4]float64

// Simple weights candidates by positional and normal similarity
func Simple(q *Query) [4]float64 {
	var w [4]float64
	for i, c := range q.Candidates {
		if !c.Valid {
			continue
		}
		pos := PositionDistance(q.Pixel, c.Pixel, float64(q.TileSize))
		nrm := NormalDistance(q.Normal, c.Look)
		w[i] = (1 - pos) * (1 - nrm)
	}
	return finalize(q, w)
}

// Bilinear weights candidates by their bilinear interpolation coefficients in
// image space, attenuated by normal similarity.
func Bilinear(q *Query) [4]float64 {
	tx, ty := BilinearRatios(q.Pixel, q.Candidates[TopLeft].Pixel, q.Candidates[BottomRight].Pixel)
	coeffs := [4]float64{
		(1 - tx) * (1 - ty),
		tx * (1 - ty),
		(1 - tx) * ty,
		tx * ty,
	}

	var w [4]float64
	for i, c := range q.Candidates {
		if !c.Valid {
			continue
		}
		w[i] = coeffs[i] * (1 - NormalDistance(q.Normal, c.Look))
	}
	return finalize(q, w)
}

// Distance extends Simple with the camera-distance similarity term. It is the
// default weighting.
func Distance(q *Query) [4]float64 {
	var w [4]float64
	for i, c := range q.Candidates {
		if !c.Valid {
			continue
		}
		pos := PositionDistance(q.Pixel, c.Pixel, float64(q.TileSize))
		nrm := NormalDistance(q.Normal, c.Look)
		cam := CameraDistance(q.Distance, c.Distance)
		w[i] = (1 - pos) * (1 - nrm) * (1 - cam)
	}
	return finalize(q, w)
}

// ByName returns the weighting function registered under name
func ByName(name string) (Func, error) {
	switch name {
	case "", "distance":
		return Distance, nil
	case "simple":
		return Simple, nil
	case "bilinear":
		return Bilinear, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownWeighting, name)
}

// finalize normalizes raw weights to probabilities. When every valid candidate
// scored zero the probability mass is spread uniformly over the valid ones.
func finalize(q *Query, w [4]float64) [4]float64 {
	ToProbabilities(w[:])
	if w[0]+w[1]+w[2]+w[3] > 0 {
		return w
	}

	valid := 0
	for _, c := range q.Candidates {
		if c.Valid {
			valid++
		}
	}
	if valid == 0 {
		return [4]float64{}
	}
	for i, c := range q.Candidates {
		if c.Valid {
			w[i] = 1 / float64(valid)
		}
	}
	return w
}
