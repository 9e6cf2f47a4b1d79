package algorithms_test

import (
	"context"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/utils/ptr"

	"github.com/budgetopt/surrogate/pkg/multiobjective/algorithms"
	"github.com/budgetopt/surrogate/pkg/multiobjective/benchmarks"
	"github.com/budgetopt/surrogate/pkg/multiobjective/framework"
	"github.com/budgetopt/surrogate/pkg/multiobjective/util"
)

// Test problem: ZDT1 benchmark function
func TestNSGAIIWithZDT1(t *testing.T) {
	numVars := 30

	// Create the ZDT1 problem instance
	zdt1 := benchmarks.NewZDT(benchmarks.ZDT1, numVars)

	config := algorithms.DefaultNSGA2Config(numVars)
	config.PopulationSize = 100
	config.MaxGenerations = 250
	config.Seed = ptr.To[uint64](11)

	// Create NSGA-II instance
	nsga, err := algorithms.NewNSGAII(config, zdt1)
	require.NoError(t, err)

	// Run algorithm
	res, err := nsga.Run(context.Background())
	require.NoError(t, err)

	// Basic validation
	if len(res.Population) != config.PopulationSize {
		t.Errorf("Expected population size %d, got %d", config.PopulationSize, len(res.Population))
	}

	firstFront := res.Front
	require.NotEmpty(t, firstFront)

	results := make([]framework.ObjectiveSpacePoint, len(firstFront))
	for i := range len(firstFront) {
		results[i] = firstFront[i].Point()
	}
	_, err = util.PlotResults(results, zdt1, algorithms.Name, t.TempDir())
	if err != nil {
		t.Errorf("Plot failed: %v", err)
	}

	// Check if first front is non-dominated
	for i := 0; i < len(firstFront); i++ {
		for j := 0; j < len(firstFront); j++ {
			if i != j && framework.Dominates(firstFront[i], firstFront[j]) {
				t.Error("First front contains dominated solutions")
			}
		}
	}

	// The front should be close to f2 = 1 - sqrt(f1)
	for _, ind := range firstFront {
		assert.InDelta(t, 1-math.Sqrt(ind.Objectives[0]), ind.Objectives[1], 0.3)
	}
}

func TestNSGAIIZeroGenerationsReturnsInitialFront(t *testing.T) {
	zdt1 := benchmarks.NewZDT(benchmarks.ZDT1, 5)
	config := algorithms.DefaultNSGA2Config(5)
	config.MaxGenerations = 0
	config.Seed = ptr.To[uint64](3)

	nsga, err := algorithms.NewNSGAII(config, zdt1)
	require.NoError(t, err)
	res, err := nsga.Run(context.Background())
	require.NoError(t, err)

	// Rebuild the initial population from an identically seeded run
	twin, err := algorithms.NewNSGAII(config, zdt1)
	require.NoError(t, err)
	initial := twin.Initialize()

	want := framework.NonDominatedSort(initial)[0]
	assert.Equal(t, len(want), len(res.Front))
	for i := range want {
		assert.Equal(t, want[i].Variables, res.Front[i].Variables)
	}
	assert.Equal(t, initial[0].Variables, res.Population[0].Variables)
}

func TestNSGAIIDeterministicWithSeed(t *testing.T) {
	zdt1 := benchmarks.NewZDT(benchmarks.ZDT1, 10)
	config := algorithms.DefaultNSGA2Config(10)
	config.PopulationSize = 40
	config.MaxGenerations = 20
	config.Seed = ptr.To[uint64](42)

	run := func() []framework.Individual {
		nsga, err := algorithms.NewNSGAII(config, zdt1)
		require.NoError(t, err)
		res, err := nsga.Run(context.Background())
		require.NoError(t, err)
		return res.Front
	}

	if diff := cmp.Diff(run(), run()); diff != "" {
		t.Errorf("fronts differ under a fixed seed (-first +second):\n%s", diff)
	}
}

func TestNSGAIIUnseededRunsDiffer(t *testing.T) {
	zdt1 := benchmarks.NewZDT(benchmarks.ZDT1, 10)
	config := algorithms.DefaultNSGA2Config(10)
	config.MaxGenerations = 2

	first, err := algorithms.NewNSGAII(config, zdt1)
	require.NoError(t, err)
	second, err := algorithms.NewNSGAII(config, zdt1)
	require.NoError(t, err)

	assert.NotEqual(t, first.Initialize()[0].Variables, second.Initialize()[0].Variables)
}

func TestNSGAIIPopulationStaysUnique(t *testing.T) {
	zdt1 := benchmarks.NewZDT(benchmarks.ZDT1, 3)
	config := algorithms.DefaultNSGA2Config(3)
	config.PopulationSize = 30
	config.MaxGenerations = 30
	// No variation at all: without elimination the population collapses
	// onto copies of the best parents.
	config.Crossover.Probability = 0
	config.Mutation.Probability = 0
	config.Seed = ptr.To[uint64](5)

	nsga, err := algorithms.NewNSGAII(config, zdt1)
	require.NoError(t, err)
	res, err := nsga.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Population, 30)

	for i := range res.Population {
		for j := i + 1; j < len(res.Population); j++ {
			assert.NotEqual(t, res.Population[i].Variables, res.Population[j].Variables, "duplicate at %d and %d", i, j)
		}
	}
}

func TestNSGAIIInvalidConfiguration(t *testing.T) {
	zdt1 := benchmarks.NewZDT(benchmarks.ZDT1, 3)
	tests := map[string]func(*algorithms.NSGA2Config){
		"zero population":       func(c *algorithms.NSGA2Config) { c.PopulationSize = 0 },
		"negative generations":  func(c *algorithms.NSGA2Config) { c.MaxGenerations = -1 },
		"crossover probability": func(c *algorithms.NSGA2Config) { c.Crossover.Probability = 1.5 },
		"unknown crossover":     func(c *algorithms.NSGA2Config) { c.Crossover.Kind = "OnePoint" },
		"negative eta":          func(c *algorithms.NSGA2Config) { c.Mutation.Eta = -1 },
		"negative tolerance":    func(c *algorithms.NSGA2Config) { c.Tolerance = -1 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			config := algorithms.DefaultNSGA2Config(3)
			mutate(&config)
			_, err := algorithms.NewNSGAII(config, zdt1)
			assert.ErrorIs(t, err, framework.ErrInvalidConfiguration)
		})
	}
}

func TestNSGAIIInvertedBounds(t *testing.T) {
	_, err := algorithms.NewNSGAII(algorithms.DefaultNSGA2Config(2), invertedProblem{})
	assert.ErrorIs(t, err, framework.ErrInvalidConfiguration)
}

func TestNSGAIIRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	nsga, err := algorithms.NewNSGAII(algorithms.DefaultNSGA2Config(3), benchmarks.NewZDT(benchmarks.ZDT1, 3))
	require.NoError(t, err)
	_, err = nsga.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNSGAIIWithZDT2(t *testing.T) {
	zdt2 := benchmarks.NewZDT(benchmarks.ZDT2, 10)
	config := algorithms.DefaultNSGA2Config(10)
	config.PopulationSize = 60
	config.MaxGenerations = 150
	config.Seed = ptr.To[uint64](21)

	nsga, err := algorithms.NewNSGAII(config, zdt2)
	require.NoError(t, err)
	res, err := nsga.Run(context.Background())
	require.NoError(t, err)

	// Concave front: f2 = 1 - f1^2 once g has converged to 1
	for _, ind := range res.Front {
		assert.GreaterOrEqual(t, ind.Objectives[1], 1-ind.Objectives[0]*ind.Objectives[0]-1e-9)
	}
}

func TestNSGAIIWithConstrainedBNH(t *testing.T) {
	config := algorithms.DefaultNSGA2Config(2)
	config.PopulationSize = 60
	config.MaxGenerations = 60
	config.Seed = ptr.To[uint64](8)

	nsga, err := algorithms.NewNSGAII(config, benchmarks.BNH{})
	require.NoError(t, err)
	res, err := nsga.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, res.Front)

	for _, ind := range res.Front {
		assert.True(t, ind.Feasible)
		assert.Zero(t, ind.Violation)
		assert.LessOrEqual(t, ind.Objectives[0], 140.0)
	}
	assert.Len(t, benchmarks.BNH{}.TrueParetoFront(10), 10)
}

type invertedProblem struct{}

func (invertedProblem) Name() string       { return "inverted" }
func (invertedProblem) NumVariables() int  { return 2 }
func (invertedProblem) NumObjectives() int { return 1 }
func (invertedProblem) Bounds() []framework.Bounds {
	return []framework.Bounds{{L: 0, H: 1}, {L: 2, H: 1}}
}
func (invertedProblem) Evaluate(x []float64) ([]float64, float64) { return []float64{x[0]}, 0 }
func (invertedProblem) TrueParetoFront(int) []framework.ObjectiveSpacePoint {
	return nil
}
