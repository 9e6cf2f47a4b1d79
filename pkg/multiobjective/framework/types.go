package framework

import "errors"

// ErrInvalidConfiguration is returned when a problem or algorithm is
// constructed with parameters that cannot describe a valid search.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// Individual represents a solution in the population
type Individual struct {
	Variables  []float64
	Objectives []float64

	// Violation is the aggregated constraint violation (G). Zero means
	// every constraint holds exactly.
	Violation float64
	// Feasible is set at evaluation time by comparing Violation against
	// the run's tolerance.
	Feasible bool

	// Rank is the index of the non-dominated front, 0 being best.
	// Recomputed every generation.
	Rank int
	// Distance is the crowding distance within the Individual's front.
	Distance float64
}

// Clone returns a deep copy of the individual.
func (ind Individual) Clone() Individual {
	c := ind
	c.Variables = append([]float64(nil), ind.Variables...)
	c.Objectives = append([]float64(nil), ind.Objectives...)
	return c
}

// Point returns the objective values as an ObjectiveSpacePoint.
func (ind Individual) Point() ObjectiveSpacePoint {
	return ObjectiveSpacePoint(ind.Objectives)
}

// ObjectiveSpacePoint represents an N-dimensional point in the objective space.
// As an example, for a problem with 2 objective functions f1 and f2, a point
// in the objective space could be [f1(x'), f2(x')], for the input of x'.
type ObjectiveSpacePoint []float64

// Problem describes the contract a specific multi-objective problem needs to implement.
// All objectives are minimized.
type Problem interface {
	Name() string

	// NumVariables is the length of a decision vector.
	NumVariables() int
	// NumObjectives is the length of the objective vector Evaluate returns.
	NumObjectives() int
	Bounds() []Bounds

	// Evaluate computes the objective vector and the aggregated constraint
	// violation for a decision vector. It must not modify x.
	Evaluate(x []float64) (objectives []float64, violation float64)

	// TrueParetoFront is optional due to the difficulty of finding the true front
	// in some types of problems. When there isn't a way to find the true front,
	// just return nil.
	TrueParetoFront(int) []ObjectiveSpacePoint
}

// Algorithm describes the contract that a MOO algorithm needs to implement.
type Algorithm interface {
	Name() string
}

// Evaluate runs the problem on ind.Variables and stores the results on ind.
func Evaluate(p Problem, ind *Individual, tolerance float64) {
	ind.Objectives, ind.Violation = p.Evaluate(ind.Variables)
	ind.Feasible = ind.Violation <= tolerance
}
