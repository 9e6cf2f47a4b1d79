package framework

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// Bounds is the closed interval [L, H] a decision variable may take.
type Bounds struct {
	L float64
	H float64
}

// Width returns H - L.
func (b Bounds) Width() float64 {
	return b.H - b.L
}

// Clamp restricts v to the interval.
func (b Bounds) Clamp(v float64) float64 {
	return math.Max(b.L, math.Min(b.H, v))
}

// NewBounds zips per-component lower and upper limits into Bounds.
func NewBounds(lower, upper []float64) ([]Bounds, error) {
	if len(lower) != len(upper) {
		return nil, fmt.Errorf("%w: %d lower bounds but %d upper bounds", ErrInvalidConfiguration, len(lower), len(upper))
	}
	b := make([]Bounds, len(lower))
	for i := range lower {
		b[i] = Bounds{L: lower[i], H: upper[i]}
	}
	return b, ValidateBounds(b)
}

// ValidateBounds fails if any component has a lower limit above its upper
// limit or a non-finite limit.
func ValidateBounds(b []Bounds) error {
	if len(b) == 0 {
		return fmt.Errorf("%w: no decision variables", ErrInvalidConfiguration)
	}
	for i, bb := range b {
		if math.IsNaN(bb.L) || math.IsNaN(bb.H) || math.IsInf(bb.L, 0) || math.IsInf(bb.H, 0) {
			return fmt.Errorf("%w: bounds[%d] is not finite", ErrInvalidConfiguration, i)
		}
		if bb.L > bb.H {
			return fmt.Errorf("%w: bounds[%d] has min %g > max %g", ErrInvalidConfiguration, i, bb.L, bb.H)
		}
	}
	return nil
}

// SampleUniform draws one decision vector uniformly within b.
func SampleUniform(b []Bounds, rng *rand.Rand) []float64 {
	vars := make([]float64, len(b))
	for j := range b {
		vars[j] = b[j].L + rng.Float64()*b[j].Width()
	}
	return vars
}

// NewRand returns a PCG-backed random stream. A nil seed draws the seed from
// the runtime's global source, so every call yields a different stream.
func NewRand(seed *uint64) *rand.Rand {
	if seed == nil {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
}
