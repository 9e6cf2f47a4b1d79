package benchmarks

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZDTOnTheFront(t *testing.T) {
	// With x[1:] = 0, g = 1 and every point lies on the true front
	for _, v := range []ZDTVariant{ZDT1, ZDT2, ZDT3} {
		p := NewZDT(v, 4)
		f, violation := p.Evaluate([]float64{0.25, 0, 0, 0})
		assert.Zero(t, violation)
		assert.InDelta(t, 0.25, f[0], 1e-12, p.Name())
		assert.InDelta(t, p.h(0.25, 1), f[1], 1e-12, p.Name())
	}

	f, _ := NewZDT(ZDT1, 4).Evaluate([]float64{0.25, 0, 0, 0})
	assert.InDelta(t, 0.5, f[1], 1e-12)
	f, _ = NewZDT(ZDT2, 4).Evaluate([]float64{0.5, 0, 0, 0})
	assert.InDelta(t, 0.75, f[1], 1e-12)
}

func TestZDTTrueParetoFront(t *testing.T) {
	front := NewZDT(ZDT1, 3).TrueParetoFront(11)
	assert.Len(t, front, 11)
	assert.Equal(t, []float64{0, 1}, []float64(front[0]))
	assert.InDelta(t, 0, front[10][1], 1e-12)

	for _, p := range NewZDT(ZDT3, 3).TrueParetoFront(50) {
		inside := false
		for _, r := range zdt3Regions {
			if p[0] >= r[0] && p[0] <= r[1] {
				inside = true
			}
		}
		assert.True(t, inside, "f1=%v outside the ZDT3 front", p[0])
	}
	assert.Nil(t, NewZDT(ZDT2, 3).TrueParetoFront(1))
}

func TestBNHConstraints(t *testing.T) {
	f, violation := BNH{}.Evaluate([]float64{0, 0})
	assert.Equal(t, []float64{0, 50}, f)
	assert.Zero(t, violation)

	// (5-8)² + (3+3)² = 45 keeps the second constraint; the first gives 0+9 <= 25
	_, violation = BNH{}.Evaluate([]float64{5, 3})
	assert.Zero(t, violation)

	// (0,3) breaks the first constraint: 25 + 9 - 25 = 9
	_, violation = BNH{}.Evaluate([]float64{0, 3})
	assert.InDelta(t, 9, violation, 1e-12)
}
