package surrogate

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"k8s.io/utils/ptr"
)

func randomInputs(rng *rand.Rand, n, d int) *mat.Dense {
	x := mat.NewDense(n, d, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			x.Set(i, j, rng.Float64()*100)
		}
	}
	return x
}

func TestLinearRecoversExactMap(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	x := randomInputs(rng, 60, 9)
	coef := mat.NewDense(9, 5, nil)
	for i := 0; i < 9; i++ {
		for j := 0; j < 5; j++ {
			coef.Set(i, j, float64(i-j)/10)
		}
	}
	intercept := []float64{1, -2, 3, 0, 5}
	var y mat.Dense
	y.Mul(x, coef)
	for i := 0; i < 60; i++ {
		row := y.RawRowView(i)
		for j := range row {
			row[j] += intercept[j]
		}
	}

	for _, ridge := range []float64{0, 1e-9} {
		model, err := LinearTrainer{Ridge: ridge}.Fit(context.Background(), x, &y)
		require.NoError(t, err)
		assert.Equal(t, 9, model.InputDim())
		assert.Equal(t, 5, model.OutputDim())

		lm := model.(*LinearModel)
		assert.True(t, mat.EqualApprox(coef, lm.Coefficients, 1e-6), "ridge %v", ridge)
		for j, b := range intercept {
			assert.InDelta(t, b, lm.Intercept[j], 1e-4)
		}

		pred, err := model.Predict(x)
		require.NoError(t, err)
		assert.True(t, mat.EqualApprox(&y, pred, 1e-5))
	}
}

func TestLinearRidgeShrinks(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	x := randomInputs(rng, 30, 2)
	y := mat.NewDense(30, 1, nil)
	for i := 0; i < 30; i++ {
		y.Set(i, 0, 2*x.At(i, 0))
	}

	model, err := LinearTrainer{Ridge: 1e6}.Fit(context.Background(), x, y)
	require.NoError(t, err)
	lm := model.(*LinearModel)
	assert.Less(t, math.Abs(lm.Coefficients.At(0, 0)), 2.0)
}

func TestForestStaysWithinLabelRange(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	x := randomInputs(rng, 80, 5)
	y := mat.NewDense(80, 5, nil)
	lo, hi := make([]float64, 5), make([]float64, 5)
	for j := range lo {
		lo[j], hi[j] = math.Inf(1), math.Inf(-1)
	}
	for i := 0; i < 80; i++ {
		for j := 0; j < 5; j++ {
			v := math.Sin(x.At(i, j)/10) * x.At(i, (j+1)%5)
			y.Set(i, j, v)
			lo[j], hi[j] = math.Min(lo[j], v), math.Max(hi[j], v)
		}
	}

	trainer := ForestTrainer{Trees: 20, MinSamplesLeaf: 1, MaxFeatures: 3, Seed: ptr.To[uint64](42)}
	model, err := trainer.Fit(context.Background(), x, y)
	require.NoError(t, err)
	assert.Equal(t, 5, model.InputDim())
	assert.Equal(t, 5, model.OutputDim())

	pred, err := model.Predict(randomInputs(rng, 40, 5))
	require.NoError(t, err)
	r, c := pred.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := pred.At(i, j)
			assert.GreaterOrEqual(t, v, lo[j]-1e-9)
			assert.LessOrEqual(t, v, hi[j]+1e-9)
		}
	}
}

func TestForestLearnsStep(t *testing.T) {
	x := mat.NewDense(100, 1, nil)
	y := mat.NewDense(100, 1, nil)
	for i := 0; i < 100; i++ {
		x.Set(i, 0, float64(i)/100)
		if i >= 50 {
			y.Set(i, 0, 1)
		}
	}

	model, err := ForestTrainer{Trees: 10, Seed: ptr.To[uint64](7)}.Fit(context.Background(), x, y)
	require.NoError(t, err)

	pred, err := model.Predict(mat.NewDense(2, 1, []float64{0.1, 0.9}))
	require.NoError(t, err)
	assert.InDelta(t, 0.0, pred.At(0, 0), 1e-12)
	assert.InDelta(t, 1.0, pred.At(1, 0), 1e-12)

	// A step needs exactly one split per tree
	for _, tree := range model.(*Forest).Trees {
		assert.Len(t, tree.Nodes, 3)
		assert.False(t, tree.Nodes[0].IsLeaf())
	}
}

func TestForestDoesNotSplitConstantLabels(t *testing.T) {
	rng := rand.New(rand.NewPCG(12, 13))
	x := randomInputs(rng, 49, 3)
	y := mat.NewDense(49, 2, nil)
	for i := 0; i < 49; i++ {
		y.SetRow(i, []float64{0.1, 1})
	}

	model, err := ForestTrainer{Trees: 8, Seed: ptr.To[uint64](7)}.Fit(context.Background(), x, y)
	require.NoError(t, err)
	for _, tree := range model.(*Forest).Trees {
		require.Len(t, tree.Nodes, 1)
		assert.True(t, tree.Nodes[0].IsLeaf())
		assert.InDelta(t, 0.1, tree.Nodes[0].Value[0], 1e-12)
		assert.Equal(t, 1.0, tree.Nodes[0].Value[1])
	}
}

func TestMidpoint(t *testing.T) {
	next := math.Nextafter(1, 2)
	next32 := float64(math.Nextafter32(1, 2))

	tests := []struct {
		name   string
		lo, hi float64
		want   float64
	}{
		{name: "plain", lo: 0, hi: 1, want: 0.5},
		{name: "adjacent float64", lo: 1, hi: next, want: 1},
		{name: "same float32", lo: 1, hi: 1 + 1e-9, want: 1},
		{name: "adjacent float32", lo: 1, hi: next32, want: 1 + 0x1p-24},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := midpoint(tt.lo, tt.hi)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, tt.lo)
			assert.Less(t, got, tt.hi)
		})
	}
}

func TestForestDepthLimit(t *testing.T) {
	rng := rand.New(rand.NewPCG(8, 9))
	x := randomInputs(rng, 50, 3)
	y := randomInputs(rng, 50, 2)

	model, err := ForestTrainer{Trees: 3, MaxDepth: 1, Seed: ptr.To[uint64](1)}.Fit(context.Background(), x, y)
	require.NoError(t, err)
	for _, tree := range model.(*Forest).Trees {
		assert.LessOrEqual(t, len(tree.Nodes), 3)
	}
}

func TestForestDeterministic(t *testing.T) {
	rng := rand.New(rand.NewPCG(10, 11))
	x := randomInputs(rng, 40, 4)
	y := randomInputs(rng, 40, 2)

	trainer := ForestTrainer{Trees: 5, MaxFeatures: 2, Seed: ptr.To[uint64](3)}
	a, err := trainer.Fit(context.Background(), x, y)
	require.NoError(t, err)
	b, err := trainer.Fit(context.Background(), x, y)
	require.NoError(t, err)
	if diff := cmp.Diff(a.(*Forest).Trees, b.(*Forest).Trees); diff != "" {
		t.Errorf("same seed grew different forests (-first +second):\n%s", diff)
	}
}

func TestFitRejectsInvalidData(t *testing.T) {
	x := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	trainers := []Trainer{LinearTrainer{}, ForestTrainer{Trees: 1}}

	tests := []struct {
		name string
		x, y *mat.Dense
	}{
		{name: "empty corpus"},
		{name: "mismatched rows", x: x, y: mat.NewDense(2, 1, nil)},
		{name: "non-finite label", x: x, y: mat.NewDense(3, 1, []float64{1, math.NaN(), 2})},
	}
	for _, tc := range tests {
		for _, tr := range trainers {
			t.Run(tc.name+"/"+tr.Name(), func(t *testing.T) {
				_, err := tr.Fit(context.Background(), tc.x, tc.y)
				assert.ErrorIs(t, err, ErrInvalidTrainingData)
			})
		}
	}
}

func TestPredictRejectsWrongWidth(t *testing.T) {
	x := mat.NewDense(4, 2, []float64{0, 1, 1, 0, 2, 3, 3, 2})
	y := mat.NewDense(4, 1, []float64{1, 1, 5, 5})
	for _, tr := range []Trainer{LinearTrainer{}, ForestTrainer{Trees: 2, Seed: ptr.To[uint64](1)}} {
		model, err := tr.Fit(context.Background(), x, y)
		require.NoError(t, err)
		_, err = model.Predict(mat.NewDense(1, 3, nil))
		assert.ErrorIs(t, err, ErrDimensionMismatch, tr.Name())
	}
}

func TestForestFitCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ForestTrainer{Trees: 2}.Fit(ctx, mat.NewDense(2, 1, []float64{0, 1}), mat.NewDense(2, 1, []float64{0, 1}))
	assert.ErrorIs(t, err, context.Canceled)
}
