package core

import (
	"math"
	"math/rand"
)

// Sampler provides random sampling for rendering algorithms
// Can be swapped out for deterministic testing or different sampling patterns
type Sampler interface {
	Get1D() float64
	Get2D() Vec2
	// IntN returns a uniform integer in [0, n)
	IntN(n int) int
}

// RandomSampler wraps a standard Go random generator
type RandomSampler struct {
	random *rand.Rand
}

// NewRandomSampler creates a sampler from a Go random generator
func NewRandomSampler(random *rand.Rand) *RandomSampler {
	return &RandomSampler{random: random}
}

// NewWorkerSampler creates the deterministic random stream owned by one
// worker. Streams for different worker indices never share state, so a
// fixed global seed reproduces every worker's output.
func NewWorkerSampler(seed int64, worker int) *RandomSampler {
	return NewRandomSampler(rand.New(rand.NewSource(seed + int64(worker)*7919 + 42)))
}

// Get1D returns a random float64 in [0, 1)
func (r *RandomSampler) Get1D() float64 {
	return r.random.Float64()
}

// Get2D returns two random float64 values in [0, 1)
func (r *RandomSampler) Get2D() Vec2 {
	return NewVec2(r.random.Float64(), r.random.Float64())
}

// IntN returns a random integer in [0, n)
func (r *RandomSampler) IntN(n int) int {
	return r.random.Intn(n)
}

// Bernoulli returns true with probability p
func Bernoulli(sampler Sampler, p float64) bool {
	if p >= 1 {
		return true
	}
	if p <= 0 {
		return false
	}
	return sampler.Get1D() < p
}

// Binomial draws the number of successes out of n trials of probability p
func Binomial(sampler Sampler, n int, p float64) int {
	count := 0
	for i := 0; i < n; i++ {
		if Bernoulli(sampler, p) {
			count++
		}
	}
	return count
}

// SampleCosineHemisphere generates a cosine-weighted random direction in hemisphere around normal
func SampleCosineHemisphere(normal Vec3, sample Vec2) Vec3 {
	a := 2.0 * math.Pi * sample.X
	z := sample.Y
	r := math.Sqrt(z)

	x := r * math.Cos(a)
	y := r * math.Sin(a)
	zCoord := math.Sqrt(1.0 - z)

	tangent, bitangent := OrthonormalBasis(normal)
	return tangent.Multiply(x).Add(bitangent.Multiply(y)).Add(normal.Multiply(zCoord))
}

// PowerHeuristic calculates the power heuristic for multiple importance sampling
// (beta = 2). Returns 0 when both densities vanish.
func PowerHeuristic(nf int, fPdf float64, ng int, gPdf float64) float64 {
	f := float64(nf) * fPdf
	g := float64(ng) * gPdf
	if f*f+g*g == 0 {
		return 0
	}
	return (f * f) / (f*f + g*g)
}
