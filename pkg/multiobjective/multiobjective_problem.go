package multiobjective

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/budgetopt/surrogate/pkg/multiobjective/framework"
)

const (
	ProblemName = "BudgetAllocation"
)

// AllocationProblem splits a fixed budget across categories. Each objective
// is the negated weighted return of the budget-normalized allocation, and the
// single constraint is the deviation of that allocation from the budget.
type AllocationProblem struct {
	budget     float64
	bounds     []framework.Bounds
	weights    [][]float64
	categories []string
}

var _ framework.Problem = &AllocationProblem{}

// NewAllocationProblem validates its inputs; weights holds one vector per
// objective, each as long as bounds. categories may be nil.
func NewAllocationProblem(budget float64, bounds []framework.Bounds, weights [][]float64, categories []string) (*AllocationProblem, error) {
	if !(budget > 0) || math.IsInf(budget, 0) {
		return nil, fmt.Errorf("%w: budget must be positive, got %g", framework.ErrInvalidConfiguration, budget)
	}
	if err := framework.ValidateBounds(bounds); err != nil {
		return nil, err
	}
	for i, b := range bounds {
		if b.L < 0 {
			return nil, fmt.Errorf("%w: bounds[%d] allows negative spend", framework.ErrInvalidConfiguration, i)
		}
	}
	if len(weights) == 0 {
		return nil, fmt.Errorf("%w: no objectives", framework.ErrInvalidConfiguration)
	}
	for k, w := range weights {
		if len(w) != len(bounds) {
			return nil, fmt.Errorf("%w: objective %d has %d weights for %d variables",
				framework.ErrInvalidConfiguration, k, len(w), len(bounds))
		}
	}
	if categories != nil && len(categories) != len(bounds) {
		return nil, fmt.Errorf("%w: %d category names for %d variables",
			framework.ErrInvalidConfiguration, len(categories), len(bounds))
	}

	return &AllocationProblem{
		budget:     budget,
		bounds:     append([]framework.Bounds(nil), bounds...),
		weights:    weights,
		categories: categories,
	}, nil
}

func (p *AllocationProblem) Name() string {
	return ProblemName
}

func (p *AllocationProblem) NumVariables() int {
	return len(p.bounds)
}

func (p *AllocationProblem) NumObjectives() int {
	return len(p.weights)
}

func (p *AllocationProblem) Bounds() []framework.Bounds {
	return p.bounds
}

func (p *AllocationProblem) Budget() float64 {
	return p.budget
}

// Categories returns the category names, nil when none were configured.
func (p *AllocationProblem) Categories() []string {
	return p.categories
}

// ObjectiveNames labels the objectives for plots.
func (p *AllocationProblem) ObjectiveNames() []string {
	names := make([]string, len(p.weights))
	for k := range names {
		names[k] = fmt.Sprintf("-return%d", k+1)
	}
	return names
}

// TrueParetoFront is unknown for this problem.
func (p *AllocationProblem) TrueParetoFront(int) []framework.ObjectiveSpacePoint {
	return nil
}

// Normalize rescales x so that it sums to budget. When x sums to zero (or is
// not finite) there is no direction to scale, so the zero vector is returned
// with ok set to false.
func Normalize(x []float64, budget float64) (norm []float64, ok bool) {
	norm = make([]float64, len(x))
	sum := floats.Sum(x)
	if !(sum > 0) || math.IsInf(sum, 0) {
		return norm, false
	}
	floats.ScaleTo(norm, budget/sum, x)
	return norm, true
}

// Evaluate computes F_k = -dot(w_k, x_norm) and G = |sum(x_norm) - budget|.
// A degenerate x (summing to zero) yields F = 0 and G = budget, the largest
// deviation possible, so it is always infeasible.
func (p *AllocationProblem) Evaluate(x []float64) ([]float64, float64) {
	norm, _ := Normalize(x, p.budget)

	objectives := make([]float64, len(p.weights))
	for k, w := range p.weights {
		objectives[k] = -floats.Dot(w, norm)
	}
	return objectives, math.Abs(floats.Sum(norm) - p.budget)
}

// EvaluateBatch evaluates every row of xs.
func (p *AllocationProblem) EvaluateBatch(xs [][]float64) (objectives [][]float64, violations []float64) {
	objectives = make([][]float64, len(xs))
	violations = make([]float64, len(xs))
	for i, x := range xs {
		objectives[i], violations[i] = p.Evaluate(x)
	}
	return objectives, violations
}
