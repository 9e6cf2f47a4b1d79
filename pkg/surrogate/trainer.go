package surrogate

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInvalidTrainingData is returned by Fit for empty or inconsistent corpora.
	ErrInvalidTrainingData = errors.New("invalid training data")
	// ErrDimensionMismatch is returned by Predict when the input width is wrong.
	ErrDimensionMismatch = errors.New("dimension mismatch")
)

// Model maps raw inputs to allocations.
type Model interface {
	InputDim() int
	OutputDim() int
	// Predict returns one output row per row of x.
	Predict(x *mat.Dense) (*mat.Dense, error)
}

// Trainer fits a Model to a design matrix x and a target matrix y with one
// row per sample.
type Trainer interface {
	Name() string
	Fit(ctx context.Context, x, y *mat.Dense) (Model, error)
}

func checkTrainingData(x, y *mat.Dense) (n, inputDim, outputDim int, err error) {
	if x == nil || y == nil || x.IsEmpty() || y.IsEmpty() {
		return 0, 0, 0, fmt.Errorf("%w: empty corpus", ErrInvalidTrainingData)
	}
	n, inputDim = x.Dims()
	ny, outputDim := y.Dims()
	if n != ny {
		return 0, 0, 0, fmt.Errorf("%w: %d input rows but %d label rows", ErrInvalidTrainingData, n, ny)
	}
	if !finite(x) || !finite(y) {
		return 0, 0, 0, fmt.Errorf("%w: non-finite values", ErrInvalidTrainingData)
	}
	return n, inputDim, outputDim, nil
}

func checkPredictInput(x *mat.Dense, inputDim int) (int, error) {
	if x == nil || x.IsEmpty() {
		return 0, fmt.Errorf("%w: no rows to predict", ErrDimensionMismatch)
	}
	n, c := x.Dims()
	if c != inputDim {
		return 0, fmt.Errorf("%w: got %d features, model takes %d", ErrDimensionMismatch, c, inputDim)
	}
	return n, nil
}

func finite(m *mat.Dense) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}
