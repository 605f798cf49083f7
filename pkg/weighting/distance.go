// Package weighting holds the stateless geometry helpers used to blend the
// four hemispheric viewpoints that bracket an output pixel.
package weighting

import (
	"image"
	"math"

	"github.com/df07/go-iile/pkg/core"
	"gonum.org/v1/gonum/floats"
)

// Gauss evaluates the normal density with standard deviation sigma at x
func Gauss(sigma, x float64) float64 {
	left := 1.0 / math.Sqrt(2.0*math.Pi*sigma*sigma)
	right := math.Exp(-(x * x) / (2 * sigma * sigma))
	return left * right
}

// GaussFalloff is Gauss rescaled so that GaussFalloff(sigma, 0) == 1
func GaussFalloff(sigma, x float64) float64 {
	return Gauss(sigma, x) / Gauss(sigma, 0)
}

// PointsDistance returns the euclidean distance between two pixels
func PointsDistance(a, b image.Point) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// PositionDistance is the pixel distance between a and b in units of
// tileDistance, clamped to [0, 1]. A zero tileDistance leaves the raw
// distance (still clamped).
func PositionDistance(a, b image.Point, tileDistance float64) float64 {
	d := PointsDistance(a, b)
	if tileDistance != 0 {
		d /= tileDistance
	}
	return clamp01(d)
}

// NormalDistance returns 1 - cos between two directions, or 1 when either
// vector is degenerate or the directions face away from each other.
func NormalDistance(a, b core.Vec3) float64 {
	al := a.Length()
	bl := b.Length()
	if al <= 0 || bl <= 0 {
		return 1
	}
	dt := a.Multiply(1 / al).Dot(b.Multiply(1 / bl))
	if dt < 0 {
		return 1
	}
	return clamp01(1 - dt)
}

// CameraDistance compares the distances of two surface points from the
// primary camera: 0 for equal distances, approaching 1 as they diverge.
func CameraDistance(a, b float64) float64 {
	if a <= 0 && b <= 0 {
		return 0
	}
	hi := math.Max(math.Abs(a), math.Abs(b))
	return clamp01(math.Abs(a-b) / hi)
}

// BilinearRatios locates p inside the cell spanned by lo and hi and returns
// the horizontal and vertical interpolation ratios in [0, 1].
func BilinearRatios(p, lo, hi image.Point) (tx, ty float64) {
	if hi.X != lo.X {
		tx = clamp01(float64(p.X-lo.X) / float64(hi.X-lo.X))
	}
	if hi.Y != lo.Y {
		ty = clamp01(float64(p.Y-lo.Y) / float64(hi.Y-lo.Y))
	}
	return tx, ty
}

// ToProbabilities normalizes weights in place so that they sum to 1.
// Weights that sum to zero are left untouched.
func ToProbabilities(weights []float64) {
	total := floats.Sum(weights)
	if total > 0 {
		floats.Scale(1/total, weights)
	}
}

func clamp01(x float64) float64 {
	if x < 0 || math.IsNaN(x) {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
