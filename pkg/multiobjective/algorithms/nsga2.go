package algorithms

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"sort"
	"strconv"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/klog/v2"

	"github.com/budgetopt/surrogate/pkg/multiobjective/framework"
)

const (
	Name = "NSGA-II"

	// DefaultTolerance is the constraint violation still counted as feasible.
	DefaultTolerance = 1e-9
)

// NSGA2Config holds the tunable parameters of one NSGA-II run.
type NSGA2Config struct {
	PopulationSize int
	MaxGenerations int
	Crossover      Crossover
	Mutation       Mutation
	TournamentSize int
	// EliminateDuplicates drops survivors whose decision vector equals an
	// earlier survivor and refills the population with fresh samples.
	EliminateDuplicates bool
	// Tolerance is the largest violation still considered feasible.
	Tolerance float64
	// Seed fixes the random stream. Nil means a fresh stream per run.
	Seed *uint64
}

// DefaultNSGA2Config returns the reference configuration for a problem with
// numVars decision variables.
func DefaultNSGA2Config(numVars int) NSGA2Config {
	mutationProb := 1.0
	if numVars > 0 {
		mutationProb = 1.0 / float64(numVars)
	}
	return NSGA2Config{
		PopulationSize:      50,
		MaxGenerations:      50,
		Crossover:           Crossover{Kind: SBX, Probability: 0.9, Eta: 15},
		Mutation:            Mutation{Kind: Polynomial, Probability: mutationProb, Eta: 20},
		TournamentSize:      2,
		EliminateDuplicates: true,
		Tolerance:           DefaultTolerance,
	}
}

// Validate checks the configuration.
func (c NSGA2Config) Validate() error {
	if c.PopulationSize < 1 {
		return fmt.Errorf("%w: population size %d", framework.ErrInvalidConfiguration, c.PopulationSize)
	}
	if c.MaxGenerations < 0 {
		return fmt.Errorf("%w: generations %d", framework.ErrInvalidConfiguration, c.MaxGenerations)
	}
	if c.TournamentSize < 1 {
		return fmt.Errorf("%w: tournament size %d", framework.ErrInvalidConfiguration, c.TournamentSize)
	}
	if c.Tolerance < 0 || math.IsNaN(c.Tolerance) {
		return fmt.Errorf("%w: tolerance %g", framework.ErrInvalidConfiguration, c.Tolerance)
	}
	if err := c.Crossover.Validate(); err != nil {
		return err
	}
	return c.Mutation.Validate()
}

// NSGAII represents the NSGA-II algorithm bound to one problem instance
type NSGAII struct {
	config  NSGA2Config
	problem framework.Problem
	bounds  []framework.Bounds
	rng     *rand.Rand
}

var _ framework.Algorithm = &NSGAII{}

// Result is the outcome of a run.
type Result struct {
	// Population is the final population, rank and distance set.
	Population []framework.Individual
	// Front is the rank-0 subset of Population in population order.
	Front []framework.Individual
	// Evaluations counts problem evaluations.
	Evaluations int
}

// NewNSGAII creates a new instance of NSGA-II with given parameters
func NewNSGAII(config NSGA2Config, problem framework.Problem) (*NSGAII, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	bounds := problem.Bounds()
	if err := framework.ValidateBounds(bounds); err != nil {
		return nil, err
	}
	if len(bounds) != problem.NumVariables() {
		return nil, fmt.Errorf("%w: %s declares %d variables but %d bounds",
			framework.ErrInvalidConfiguration, problem.Name(), problem.NumVariables(), len(bounds))
	}

	return &NSGAII{
		config:  config,
		problem: problem,
		bounds:  bounds,
		rng:     framework.NewRand(config.Seed),
	}, nil
}

func (n *NSGAII) Name() string {
	return Name
}

// Config returns the configuration the run was built with.
func (n *NSGAII) Config() NSGA2Config {
	return n.config
}

// Initialize creates an initial random population of individuals
func (n *NSGAII) Initialize() []framework.Individual {
	population := make([]framework.Individual, n.config.PopulationSize)
	for i := range population {
		population[i] = n.newIndividual(framework.SampleUniform(n.bounds, n.rng))
	}
	return population
}

func (n *NSGAII) newIndividual(vars []float64) framework.Individual {
	ind := framework.Individual{Variables: vars}
	framework.Evaluate(n.problem, &ind, n.config.Tolerance)
	return ind
}

// CrowdingDistance calculates crowding distance for individuals in a front.
// The order of front is preserved.
func CrowdingDistance(front []framework.Individual) {
	if len(front) <= 2 {
		for i := range front {
			front[i].Distance = math.Inf(1)
		}
		return
	}

	numObjectives := len(front[0].Objectives)
	for i := range front {
		front[i].Distance = 0
	}

	order := make([]int, len(front))
	for m := 0; m < numObjectives; m++ {
		for i := range order {
			order[i] = i
		}
		// Sort by each objective
		sort.SliceStable(order, func(i, j int) bool {
			return front[order[i]].Objectives[m] < front[order[j]].Objectives[m]
		})

		first, last := order[0], order[len(order)-1]
		// Set boundary points to infinity
		front[first].Distance = math.Inf(1)
		front[last].Distance = math.Inf(1)

		objectiveRange := front[last].Objectives[m] - front[first].Objectives[m]
		if objectiveRange == 0 {
			continue
		}

		// Calculate distance for intermediate points
		for i := 1; i < len(order)-1; i++ {
			front[order[i]].Distance += (front[order[i+1]].Objectives[m] - front[order[i-1]].Objectives[m]) / objectiveRange
		}
	}
}

// rankAndCrowd sets Rank and Distance on every member of population and
// returns the fronts as index lists.
func rankAndCrowd(population []framework.Individual) [][]int {
	fronts := framework.NonDominatedFronts(population)
	for _, f := range fronts {
		members := make([]framework.Individual, len(f))
		for i, idx := range f {
			members[i] = population[idx]
		}
		CrowdingDistance(members)
		for i, idx := range f {
			population[idx].Distance = members[i].Distance
		}
	}
	return fronts
}

// TournamentSelect picks the best of TournamentSize random contestants by
// rank, then by crowding distance.
func (n *NSGAII) TournamentSelect(population []framework.Individual) framework.Individual {
	best := population[n.rng.IntN(len(population))]

	for i := 1; i < n.config.TournamentSize; i++ {
		contestant := population[n.rng.IntN(len(population))]
		if contestant.Rank < best.Rank || (contestant.Rank == best.Rank && contestant.Distance > best.Distance) {
			best = contestant
		}
	}

	return best
}

// Offspring produces PopulationSize evaluated children.
func (n *NSGAII) Offspring(population []framework.Individual) []framework.Individual {
	offspring := make([]framework.Individual, 0, n.config.PopulationSize)

	for len(offspring) < n.config.PopulationSize {
		parent1 := n.TournamentSelect(population)
		parent2 := n.TournamentSelect(population)

		child1, child2 := n.config.Crossover.Apply(parent1.Variables, parent2.Variables, n.bounds, n.rng)

		n.config.Mutation.Apply(child1, n.bounds, n.rng)
		n.config.Mutation.Apply(child2, n.bounds, n.rng)

		offspring = append(offspring, n.newIndividual(child1))
		if len(offspring) < n.config.PopulationSize {
			offspring = append(offspring, n.newIndividual(child2))
		}
	}

	return offspring
}

// Survive truncates a merged population back to PopulationSize: whole fronts
// in rank order, then the overflowing front by descending crowding distance.
func (n *NSGAII) Survive(combined []framework.Individual) []framework.Individual {
	fronts := rankAndCrowd(combined)

	population := make([]framework.Individual, 0, n.config.PopulationSize)
	for _, front := range fronts {
		if len(population)+len(front) <= n.config.PopulationSize {
			for _, idx := range front {
				population = append(population, combined[idx])
			}
			continue
		}

		// Fill the remainder from this front by crowding distance
		ordered := slices.Clone(front)
		slices.SortStableFunc(ordered, func(a, b int) int {
			return cmp.Compare(combined[b].Distance, combined[a].Distance)
		})
		for _, idx := range ordered[:n.config.PopulationSize-len(population)] {
			population = append(population, combined[idx])
		}
		break
	}

	return population
}

// eliminateDuplicates keeps the first occurrence of every decision vector and
// refills the population with fresh random individuals. It reports how many
// individuals were replaced.
func (n *NSGAII) eliminateDuplicates(population []framework.Individual) ([]framework.Individual, int) {
	seen := sets.New[string]()
	unique := population[:0]
	for _, ind := range population {
		key := vectorKey(ind.Variables)
		if seen.Has(key) {
			continue
		}
		seen.Insert(key)
		unique = append(unique, ind)
	}

	replaced := n.config.PopulationSize - len(unique)
	for len(unique) < n.config.PopulationSize {
		unique = append(unique, n.newIndividual(framework.SampleUniform(n.bounds, n.rng)))
	}
	return unique, replaced
}

func vectorKey(x []float64) string {
	var sb strings.Builder
	for i, v := range x {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatUint(math.Float64bits(v), 16))
	}
	return sb.String()
}

// Run executes the NSGA-II algorithm for the configured number of
// generations. There is no early stopping; ctx is checked between generations.
func (n *NSGAII) Run(ctx context.Context) (*Result, error) {
	logger := klog.FromContext(ctx)

	population := n.Initialize()
	rankAndCrowd(population)
	evaluations := len(population)

	for gen := 0; gen < n.config.MaxGenerations; gen++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		offspring := n.Offspring(population)
		evaluations += len(offspring)

		// Combine populations
		combined := slices.Concat(population, offspring)
		population = n.Survive(combined)

		if n.config.EliminateDuplicates {
			var replaced int
			population, replaced = n.eliminateDuplicates(population)
			evaluations += replaced
			if replaced > 0 {
				rankAndCrowd(population)
			}
		}

		logger.V(6).Info("generation completed", "algorithm", Name, "problem", n.problem.Name(),
			"generation", gen+1, "frontSize", countRank(population, 0))
	}

	fronts := framework.NonDominatedSort(population)
	logger.V(5).Info("search finished", "algorithm", Name, "problem", n.problem.Name(),
		"generations", n.config.MaxGenerations, "evaluations", evaluations, "frontSize", len(fronts[0]))

	return &Result{
		Population:  population,
		Front:       fronts[0],
		Evaluations: evaluations,
	}, nil
}

func countRank(population []framework.Individual, rank int) int {
	c := 0
	for _, ind := range population {
		if ind.Rank == rank {
			c++
		}
	}
	return c
}
