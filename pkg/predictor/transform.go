package predictor

import (
	"math"

	"github.com/df07/go-iile/pkg/film"
)

// FireflyThreshold is the max/mean ratio above which a radiance capture is
// considered corrupted by fireflies and discarded
const FireflyThreshold = 200.0

const (
	radianceScale = 10.0
	logOffset     = 0.1
)

// Means records the statistics needed to invert Normalize
type Means struct {
	Radiance [3]float64 // Per-channel radiance mean before normalization
	Distance float64    // Distance mean before normalization
	Purged   bool       // Radiance was zeroed by the firefly filter
}

// Normalize returns transformed copies of the capture maps ready for the
// predictor: radiance is divided by ten times its channel mean, log
// compressed and shifted by -0.1; normals are clamped to [-1, 1]; distances
// are log compressed relative to their mean and shifted by -0.1.
func Normalize(radiance, normals, distance *film.Grid[float32]) (nr, nn, nd *film.Grid[float32], means Means) {
	nr = radiance.Clone()
	mean := nr.Mean()
	if mean > 0 && nr.Max()/mean > FireflyThreshold {
		nr.Map(func(float32) float32 { return 0 })
		means.Purged = true
	}

	for c := 0; c < 3; c++ {
		means.Radiance[c] = nr.ChannelMean(c)
		if means.Radiance[c] > 0 {
			nr.Scale(c, 1/(radianceScale*means.Radiance[c]))
		}
	}
	nr.Map(func(v float32) float32 {
		return float32(positiveLog(float64(v)) - logOffset)
	})

	nn = normals.Clone()
	nn.Map(func(v float32) float32 {
		return float32(math.Max(-1, math.Min(1, float64(v))))
	})

	nd = distance.Clone()
	means.Distance = nd.Mean()
	div := radianceScale * (means.Distance + 1)
	nd.Map(func(v float32) float32 {
		return float32(positiveLog(float64(v)/div) - logOffset)
	})

	return nr, nn, nd, means
}

// Denormalize inverts the radiance transform on a predicted map and rescales
// each channel so that its mean matches the pre-normalization mean. Channels
// whose input mean was zero come back black.
func Denormalize(pred *film.Grid[float32], means Means) *film.Grid[float32] {
	out := pred.Clone()
	out.Map(func(v float32) float32 {
		return float32(positiveLogInverse(float64(v) + logOffset))
	})

	for c := 0; c < 3 && c < out.Channels; c++ {
		target := means.Radiance[c]
		out.Scale(c, radianceScale*target)
		got := out.ChannelMean(c)
		switch {
		case target <= 0 || got <= 0:
			out.Scale(c, 0)
		default:
			out.Scale(c, target/got)
		}
	}
	return out
}

func positiveLog(x float64) float64 {
	if x <= 0 || math.IsNaN(x) {
		return 0
	}
	return math.Log1p(x)
}

func positiveLogInverse(y float64) float64 {
	if y <= 0 || math.IsNaN(y) {
		return 0
	}
	return math.Expm1(y)
}
