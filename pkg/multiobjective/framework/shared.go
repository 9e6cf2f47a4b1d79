package framework

import "slices"

// NonDominatedSort performs non-dominated sorting on the population.
// It sets Rank on every member of population and returns the fronts in rank
// order; each front keeps population order. An empty population yields no fronts.
func NonDominatedSort(population []Individual) [][]Individual {
	indexFronts := NonDominatedFronts(population)
	if len(indexFronts) == 0 {
		return nil
	}
	fronts := make([][]Individual, len(indexFronts))
	for i, f := range indexFronts {
		fronts[i] = collect(population, f)
	}
	return fronts
}

// NonDominatedFronts is NonDominatedSort returning indices into population
// instead of copies.
func NonDominatedFronts(population []Individual) [][]int {
	if len(population) == 0 {
		return nil
	}

	var fronts [][]int
	dominated := make([][]int, len(population))
	domCount := make([]int, len(population))

	// Calculate domination for each individual
	for i := 0; i < len(population); i++ {
		for j := i + 1; j < len(population); j++ {
			if Dominates(population[i], population[j]) {
				dominated[i] = append(dominated[i], j)
				domCount[j]++
			} else if Dominates(population[j], population[i]) {
				dominated[j] = append(dominated[j], i)
				domCount[i]++
			}
		}
	}

	// Find first front
	currentFront := []int{}
	for i := 0; i < len(population); i++ {
		if domCount[i] == 0 {
			population[i].Rank = 0
			currentFront = append(currentFront, i)
		}
	}

	// Find subsequent fronts
	frontIndex := 0
	for len(currentFront) > 0 {
		fronts = append(fronts, currentFront)

		nextFront := []int{}
		for _, idx := range currentFront {
			for _, dominatedIdx := range dominated[idx] {
				domCount[dominatedIdx]--
				if domCount[dominatedIdx] == 0 {
					population[dominatedIdx].Rank = frontIndex + 1
					nextFront = append(nextFront, dominatedIdx)
				}
			}
		}
		frontIndex++
		// Keep population order inside a front
		slices.Sort(nextFront)
		currentFront = nextFront
	}

	return fronts
}

func collect(population []Individual, indices []int) []Individual {
	front := make([]Individual, len(indices))
	for i, idx := range indices {
		front[i] = population[idx]
	}
	return front
}

// Dominates checks if individual a constraint-dominates individual b.
//
// A feasible individual dominates any infeasible one. Between two infeasible
// individuals the one with the smaller violation dominates. Between two
// feasible individuals the usual Pareto rule applies: no objective worse and
// at least one strictly better.
func Dominates(a, b Individual) bool {
	switch {
	case a.Feasible && !b.Feasible:
		return true
	case !a.Feasible && b.Feasible:
		return false
	case !a.Feasible && !b.Feasible:
		return a.Violation < b.Violation
	}

	better := false
	for i := 0; i < len(a.Objectives); i++ {
		if a.Objectives[i] > b.Objectives[i] {
			return false
		}
		if a.Objectives[i] < b.Objectives[i] {
			better = true
		}
	}
	return better
}
