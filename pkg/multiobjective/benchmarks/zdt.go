package benchmarks

import (
	"fmt"
	"math"

	"github.com/budgetopt/surrogate/pkg/multiobjective/framework"
)

// ZDTVariant selects the shape function h(f1, g) of a ZDT problem.
type ZDTVariant int

const (
	// ZDT1 has a convex front.
	ZDT1 ZDTVariant = 1
	// ZDT2 has a concave front.
	ZDT2 ZDTVariant = 2
	// ZDT3 has a front of five disconnected pieces.
	ZDT3 ZDTVariant = 3
)

// zdt3Regions are the f1 intervals of the ZDT3 Pareto front.
var zdt3Regions = [][2]float64{
	{0, 0.0830015349},
	{0.1822287280, 0.2577623634},
	{0.4093136748, 0.4538821041},
	{0.6183967944, 0.6525117038},
	{0.8233317983, 0.8518328654},
}

// ZDT is the Zitzler-Deb-Thiele family of unconstrained bi-objective
// benchmarks on [0,1]^n. For more details, check the article below:
// https://datacrayon.com/practical-evolutionary-algorithms/synthetic-objective-functions-and-zdt1/
type ZDT struct {
	variant ZDTVariant
	numVars int
}

var _ framework.Problem = &ZDT{}

func NewZDT(variant ZDTVariant, numVars int) *ZDT {
	return &ZDT{
		variant: variant,
		numVars: numVars,
	}
}

func (p *ZDT) Name() string {
	return fmt.Sprintf("ZDT%d", p.variant)
}

func (p *ZDT) NumVariables() int {
	return p.numVars
}

func (p *ZDT) NumObjectives() int {
	return 2
}

// Evaluate is unconstrained, so the violation is always zero.
func (p *ZDT) Evaluate(x []float64) ([]float64, float64) {
	f1 := x[0]
	g := p.g(x)
	return []float64{f1, g * p.h(f1, g)}, 0
}

func (p *ZDT) g(x []float64) float64 {
	if len(x) < 2 {
		return 1
	}
	sum := 0.0
	for _, v := range x[1:] {
		sum += v
	}
	return 1 + 9*sum/float64(len(x)-1)
}

func (p *ZDT) h(f1, g float64) float64 {
	r := f1 / g
	switch p.variant {
	case ZDT2:
		return 1 - r*r
	case ZDT3:
		return 1 - math.Sqrt(r) - r*math.Sin(10*math.Pi*f1)
	default:
		return 1 - math.Sqrt(r)
	}
}

func (p *ZDT) Bounds() []framework.Bounds {
	b := make([]framework.Bounds, p.numVars)
	for i := range b {
		b[i] = framework.Bounds{L: 0, H: 1}
	}
	return b
}

// TrueParetoFront samples numPoints points of the front, where g = 1.
func (p *ZDT) TrueParetoFront(numPoints int) []framework.ObjectiveSpacePoint {
	if numPoints < 2 {
		return nil
	}
	points := make([]framework.ObjectiveSpacePoint, 0, numPoints)
	if p.variant != ZDT3 {
		for i := 0; i < numPoints; i++ {
			f1 := float64(i) / float64(numPoints-1)
			points = append(points, framework.ObjectiveSpacePoint{f1, p.h(f1, 1)})
		}
		return points
	}

	perRegion := max(numPoints/len(zdt3Regions), 2)
	for _, r := range zdt3Regions {
		for i := 0; i < perRegion; i++ {
			f1 := r[0] + (r[1]-r[0])*float64(i)/float64(perRegion-1)
			points = append(points, framework.ObjectiveSpacePoint{f1, p.h(f1, 1)})
		}
	}
	return points
}
