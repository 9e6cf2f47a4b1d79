package multiobjective

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/budgetopt/surrogate/pkg/multiobjective/framework"
)

// ErrEmptyFront is returned when a selection strategy is given nothing to choose from.
var ErrEmptyFront = errors.New("empty Pareto front")

// SelectionStrategy collapses a Pareto front into the single solution used as
// a training label.
type SelectionStrategy interface {
	Name() string
	// Select returns the index of the chosen member of front.
	Select(front []framework.Individual) (int, error)
}

// SelectFirst takes the first member in the order the search returned.
// Which member that is depends on the engine's internal ordering.
type SelectFirst struct{}

func (SelectFirst) Name() string { return "First" }

func (SelectFirst) Select(front []framework.Individual) (int, error) {
	if len(front) == 0 {
		return 0, ErrEmptyFront
	}
	return 0, nil
}

// SelectClosestToIdeal takes the member with the smallest Euclidean distance
// to the ideal point after min-max normalizing every objective over the
// front. Ties go to the earlier member.
type SelectClosestToIdeal struct{}

func (SelectClosestToIdeal) Name() string { return "ClosestToIdeal" }

func (SelectClosestToIdeal) Select(front []framework.Individual) (int, error) {
	if len(front) == 0 {
		return 0, ErrEmptyFront
	}

	numObjectives := len(front[0].Objectives)
	ideal := make([]float64, numObjectives)
	nadir := make([]float64, numObjectives)
	copy(ideal, front[0].Objectives)
	copy(nadir, front[0].Objectives)
	for _, ind := range front[1:] {
		for m, v := range ind.Objectives {
			ideal[m] = math.Min(ideal[m], v)
			nadir[m] = math.Max(nadir[m], v)
		}
	}

	best, bestDist := 0, math.Inf(1)
	scaled := make([]float64, numObjectives)
	for i, ind := range front {
		for m, v := range ind.Objectives {
			if span := nadir[m] - ideal[m]; span > 0 {
				scaled[m] = (v - ideal[m]) / span
			} else {
				scaled[m] = 0
			}
		}
		if d := floats.Norm(scaled, 2); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, nil
}

// SelectionByName resolves a configured strategy name.
func SelectionByName(name string) (SelectionStrategy, error) {
	switch name {
	case SelectFirst{}.Name():
		return SelectFirst{}, nil
	case SelectClosestToIdeal{}.Name():
		return SelectClosestToIdeal{}, nil
	}
	return nil, fmt.Errorf("%w: unknown selection strategy %q", framework.ErrInvalidConfiguration, name)
}
