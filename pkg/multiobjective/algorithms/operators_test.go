package algorithms

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/budgetopt/surrogate/pkg/multiobjective/framework"
)

func TestOperatorsStayInBounds(t *testing.T) {
	bounds := []framework.Bounds{{L: 0, H: 100}, {L: 10, H: 20}, {L: 5, H: 5}}
	rng := rand.New(rand.NewPCG(9, 9))

	crossovers := []Crossover{
		{Kind: SBX, Probability: 1, Eta: 15},
		{Kind: SBX, Probability: 1, Eta: 0},
		{Kind: Blend, Probability: 1, Alpha: 0.5},
	}
	mutations := []Mutation{
		{Kind: Polynomial, Probability: 1, Eta: 20},
		{Kind: Gaussian, Probability: 1, Sigma: 0.5},
	}

	for _, c := range crossovers {
		for _, m := range mutations {
			for i := 0; i < 500; i++ {
				p1 := framework.SampleUniform(bounds, rng)
				p2 := framework.SampleUniform(bounds, rng)
				c1, c2 := c.Apply(p1, p2, bounds, rng)
				m.Apply(c1, bounds, rng)
				m.Apply(c2, bounds, rng)
				for j, b := range bounds {
					assert.True(t, c1[j] >= b.L && c1[j] <= b.H, "%s/%s child1[%d]=%g", c.Kind, m.Kind, j, c1[j])
					assert.True(t, c2[j] >= b.L && c2[j] <= b.H, "%s/%s child2[%d]=%g", c.Kind, m.Kind, j, c2[j])
				}
			}
		}
	}
}

func TestCrossoverDoesNotAliasParents(t *testing.T) {
	bounds := []framework.Bounds{{L: 0, H: 1}, {L: 0, H: 1}}
	rng := rand.New(rand.NewPCG(1, 1))
	p1 := []float64{0.2, 0.4}
	p2 := []float64{0.6, 0.8}

	c1, c2 := Crossover{Kind: SBX, Probability: 0}.Apply(p1, p2, bounds, rng)
	assert.Equal(t, p1, c1)
	assert.Equal(t, p2, c2)

	c1[0] = 42
	assert.Equal(t, 0.2, p1[0])
}

func TestSBXPreservesMean(t *testing.T) {
	bounds := []framework.Bounds{{L: -1000, H: 1000}}
	rng := rand.New(rand.NewPCG(2, 3))
	c := Crossover{Kind: SBX, Probability: 1, Eta: 15}
	for i := 0; i < 100; i++ {
		c1, c2 := c.Apply([]float64{10}, []float64{20}, bounds, rng)
		assert.InDelta(t, 30, c1[0]+c2[0], 1e-9)
	}
}

func TestMutationProbabilityZeroIsIdentity(t *testing.T) {
	bounds := []framework.Bounds{{L: 0, H: 1}, {L: 0, H: 1}}
	rng := rand.New(rand.NewPCG(4, 4))
	x := []float64{0.3, 0.7}
	Mutation{Kind: Polynomial, Probability: 0, Eta: 20}.Apply(x, bounds, rng)
	assert.Equal(t, []float64{0.3, 0.7}, x)
}

func TestCrowdingDistance(t *testing.T) {
	front := []framework.Individual{
		{Objectives: []float64{2, 2}},
		{Objectives: []float64{0, 4}},
		{Objectives: []float64{4, 0}},
		{Objectives: []float64{1, 3}},
	}
	CrowdingDistance(front)

	// Order is preserved, extremes are infinite.
	assert.Equal(t, []float64{2, 2}, front[0].Objectives)
	assert.True(t, math.IsInf(front[1].Distance, 1))
	assert.True(t, math.IsInf(front[2].Distance, 1))
	// (4-1)/4 + (3-0)/4 for the middle point
	assert.InDelta(t, 1.5, front[0].Distance, 1e-12)
	// (2-0)/4 + (4-2)/4
	assert.InDelta(t, 1.0, front[3].Distance, 1e-12)
}

func TestCrowdingDistanceSmallFront(t *testing.T) {
	front := []framework.Individual{{Objectives: []float64{1}}, {Objectives: []float64{2}}}
	CrowdingDistance(front)
	for _, ind := range front {
		assert.True(t, math.IsInf(ind.Distance, 1))
	}
}

func TestSurviveFillsByCrowding(t *testing.T) {
	n := &NSGAII{config: NSGA2Config{PopulationSize: 3}}
	combined := []framework.Individual{
		{Variables: []float64{0}, Objectives: []float64{0, 4}, Feasible: true},
		{Variables: []float64{1}, Objectives: []float64{1, 3}, Feasible: true},
		{Variables: []float64{2}, Objectives: []float64{2, 2.9}, Feasible: true},
		{Variables: []float64{3}, Objectives: []float64{4, 0}, Feasible: true},
		{Variables: []float64{4}, Objectives: []float64{5, 5}, Feasible: true},
	}
	survivors := n.Survive(combined)
	assert.Len(t, survivors, 3)

	var got []float64
	for _, s := range survivors {
		got = append(got, s.Variables[0])
	}
	// Both extremes plus the least crowded interior point.
	assert.ElementsMatch(t, []float64{0, 3, 2}, got)
}
