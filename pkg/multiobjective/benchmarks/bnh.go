package benchmarks

import (
	"math"

	"github.com/budgetopt/surrogate/pkg/multiobjective/framework"
)

const BNHName = "BNH"

// BNH is the constrained Binh and Korn problem on [0,5]x[0,3]:
//
//	f1 = 4x1² + 4x2²
//	f2 = (x1-5)² + (x2-5)²
//	(x1-5)² + x2² <= 25
//	(x1-8)² + (x2+3)² >= 7.7
type BNH struct{}

var _ framework.Problem = BNH{}

func (BNH) Name() string       { return BNHName }
func (BNH) NumVariables() int  { return 2 }
func (BNH) NumObjectives() int { return 2 }

func (BNH) Bounds() []framework.Bounds {
	return []framework.Bounds{{L: 0, H: 5}, {L: 0, H: 3}}
}

// Evaluate returns the summed violation of both constraints.
func (BNH) Evaluate(x []float64) ([]float64, float64) {
	x1, x2 := x[0], x[1]
	f1 := 4*x1*x1 + 4*x2*x2
	f2 := (x1-5)*(x1-5) + (x2-5)*(x2-5)

	c1 := (x1-5)*(x1-5) + x2*x2 - 25
	c2 := 7.7 - ((x1-8)*(x1-8) + (x2+3)*(x2+3))
	return []float64{f1, f2}, math.Max(0, c1) + math.Max(0, c2)
}

// TrueParetoFront follows x1 = x2 on [0,3], then x2 = 3 with x1 on [3,5].
func (BNH) TrueParetoFront(numPoints int) []framework.ObjectiveSpacePoint {
	if numPoints < 2 {
		return nil
	}
	points := make([]framework.ObjectiveSpacePoint, numPoints)
	half := numPoints / 2
	rest := max(numPoints-half-1, 1)
	for i := range points {
		x1, x2 := 3*float64(i)/float64(half), 0.0
		if i < half {
			x2 = x1
		} else {
			x1, x2 = 3+2*float64(i-half)/float64(rest), 3
		}
		f, _ := BNH{}.Evaluate([]float64{x1, x2})
		points[i] = f
	}
	return points
}
