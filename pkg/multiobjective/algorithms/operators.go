package algorithms

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/budgetopt/surrogate/pkg/multiobjective/framework"
)

// CrossoverKind tags a recombination operator.
type CrossoverKind string

const (
	// SBX is Simulated Binary Crossover; Eta is the distribution index.
	SBX CrossoverKind = "SBX"
	// Blend is BLX-alpha crossover; Alpha widens the sampling interval.
	Blend CrossoverKind = "Blend"
)

// MutationKind tags a perturbation operator.
type MutationKind string

const (
	// Polynomial is polynomial mutation; Eta is the distribution index.
	Polynomial MutationKind = "Polynomial"
	// Gaussian adds normal noise with standard deviation Sigma*(H-L).
	Gaussian MutationKind = "Gaussian"
)

// Crossover configures the recombination step.
type Crossover struct {
	Kind CrossoverKind
	// Probability that a pair of parents recombines at all.
	Probability float64
	Eta         float64
	Alpha       float64
}

// Mutation configures the perturbation step.
type Mutation struct {
	Kind MutationKind
	// Probability that each variable is perturbed.
	Probability float64
	Eta         float64
	Sigma       float64
}

// Validate checks the operator parameters.
func (c Crossover) Validate() error {
	switch c.Kind {
	case SBX, Blend:
	default:
		return fmt.Errorf("%w: unknown crossover %q", framework.ErrInvalidConfiguration, c.Kind)
	}
	if c.Probability < 0 || c.Probability > 1 {
		return fmt.Errorf("%w: crossover probability %g outside [0,1]", framework.ErrInvalidConfiguration, c.Probability)
	}
	if c.Eta < 0 || c.Alpha < 0 {
		return fmt.Errorf("%w: crossover shape parameters must be non-negative", framework.ErrInvalidConfiguration)
	}
	return nil
}

// Validate checks the operator parameters.
func (m Mutation) Validate() error {
	switch m.Kind {
	case Polynomial, Gaussian:
	default:
		return fmt.Errorf("%w: unknown mutation %q", framework.ErrInvalidConfiguration, m.Kind)
	}
	if m.Probability < 0 || m.Probability > 1 {
		return fmt.Errorf("%w: mutation probability %g outside [0,1]", framework.ErrInvalidConfiguration, m.Probability)
	}
	if m.Eta < 0 || m.Sigma < 0 {
		return fmt.Errorf("%w: mutation shape parameters must be non-negative", framework.ErrInvalidConfiguration)
	}
	return nil
}

// Apply recombines two parents into two children. Children never share
// memory with the parents and are clamped to bounds.
func (c Crossover) Apply(p1, p2 []float64, bounds []framework.Bounds, rng *rand.Rand) ([]float64, []float64) {
	child1 := append([]float64(nil), p1...)
	child2 := append([]float64(nil), p2...)

	if rng.Float64() >= c.Probability {
		return child1, child2
	}

	switch c.Kind {
	case SBX:
		c.sbx(p1, p2, child1, child2, rng)
	case Blend:
		c.blend(p1, p2, child1, child2, rng)
	}

	for i := range child1 {
		child1[i] = bounds[i].Clamp(child1[i])
		child2[i] = bounds[i].Clamp(child2[i])
	}
	return child1, child2
}

func (c Crossover) sbx(p1, p2, child1, child2 []float64, rng *rand.Rand) {
	exp := 1.0 / (c.Eta + 1.0)
	for i := range p1 {
		u := rng.Float64()
		beta := 0.0
		if u <= 0.5 {
			beta = math.Pow(2*u, exp)
		} else {
			beta = math.Pow(1.0/(2*(1.0-u)), exp)
		}

		child1[i] = 0.5 * ((1+beta)*p1[i] + (1-beta)*p2[i])
		child2[i] = 0.5 * ((1-beta)*p1[i] + (1+beta)*p2[i])
	}
}

func (c Crossover) blend(p1, p2, child1, child2 []float64, rng *rand.Rand) {
	for i := range p1 {
		lo, hi := math.Min(p1[i], p2[i]), math.Max(p1[i], p2[i])
		d := hi - lo
		lo -= c.Alpha * d
		hi += c.Alpha * d
		child1[i] = lo + rng.Float64()*(hi-lo)
		child2[i] = lo + rng.Float64()*(hi-lo)
	}
}

// Apply perturbs x in place, keeping every component within bounds.
func (m Mutation) Apply(x []float64, bounds []framework.Bounds, rng *rand.Rand) {
	for i := range x {
		if rng.Float64() >= m.Probability {
			continue
		}

		switch m.Kind {
		case Polynomial:
			exp := 1.0 / (m.Eta + 1.0)
			u := rng.Float64()
			delta := 0.0
			if u < 0.5 {
				delta = math.Pow(2*u, exp) - 1
			} else {
				delta = 1 - math.Pow(2*(1-u), exp)
			}
			x[i] += delta * bounds[i].Width()
		case Gaussian:
			x[i] += rng.NormFloat64() * m.Sigma * bounds[i].Width()
		}
		x[i] = bounds[i].Clamp(x[i])
	}
}
