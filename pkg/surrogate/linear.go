package surrogate

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"k8s.io/klog/v2"
)

const LinearName = "Linear"

// LinearTrainer fits a multi-output ridge regression. The intercept is not
// penalized. Ridge 0 is ordinary least squares.
type LinearTrainer struct {
	Ridge float64
}

var _ Trainer = LinearTrainer{}

func (LinearTrainer) Name() string { return LinearName }

// Fit solves (XcᵀXc + λI) B = XcᵀYc on column-centered data and recovers the
// intercept from the column means.
func (t LinearTrainer) Fit(ctx context.Context, x, y *mat.Dense) (Model, error) {
	logger := klog.FromContext(ctx)

	if t.Ridge < 0 {
		return nil, fmt.Errorf("%w: ridge must be non-negative, got %v", ErrInvalidTrainingData, t.Ridge)
	}
	n, inputDim, outputDim, err := checkTrainingData(x, y)
	if err != nil {
		return nil, err
	}

	meanX := columnMeans(x)
	meanY := columnMeans(y)
	xc := centered(x, meanX)
	yc := centered(y, meanY)

	var gram mat.SymDense
	gram.SymOuterK(1, xc.T())
	for i := 0; i < inputDim; i++ {
		gram.SetSym(i, i, gram.At(i, i)+t.Ridge)
	}
	var rhs mat.Dense
	rhs.Mul(xc.T(), yc)

	coef := mat.NewDense(inputDim, outputDim, nil)
	var chol mat.Cholesky
	if chol.Factorize(&gram) {
		if err := chol.SolveTo(coef, &rhs); err != nil {
			return nil, fmt.Errorf("solving normal equations: %w", err)
		}
	} else {
		// Rank deficient without a penalty: fall back to the QR least squares solution
		logger.V(3).Info("normal equations not positive definite, solving by QR", "samples", n, "features", inputDim)
		if err := coef.Solve(xc, yc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTrainingData, err)
		}
	}

	intercept := make([]float64, outputDim)
	for j := range intercept {
		intercept[j] = meanY[j] - floats.Dot(meanX, mat.Col(nil, j, coef))
	}

	logger.V(4).Info("linear model fitted", "samples", n, "features", inputDim, "outputs", outputDim, "ridge", t.Ridge)
	return &LinearModel{Coefficients: coef, Intercept: intercept}, nil
}

// LinearModel predicts x·Coefficients + Intercept.
type LinearModel struct {
	// Coefficients is InputDim x OutputDim.
	Coefficients *mat.Dense
	Intercept    []float64
}

var _ Model = &LinearModel{}

func (m *LinearModel) InputDim() int {
	r, _ := m.Coefficients.Dims()
	return r
}

func (m *LinearModel) OutputDim() int {
	_, c := m.Coefficients.Dims()
	return c
}

func (m *LinearModel) Predict(x *mat.Dense) (*mat.Dense, error) {
	n, err := checkPredictInput(x, m.InputDim())
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(n, m.OutputDim(), nil)
	out.Mul(x, m.Coefficients)
	for i := 0; i < n; i++ {
		floats.Add(out.RawRowView(i), m.Intercept)
	}
	return out, nil
}

func columnMeans(m *mat.Dense) []float64 {
	_, c := m.Dims()
	means := make([]float64, c)
	for j := range means {
		means[j] = stat.Mean(mat.Col(nil, j, m), nil)
	}
	return means
}

func centered(m *mat.Dense, means []float64) *mat.Dense {
	out := mat.DenseCopyOf(m)
	r, _ := out.Dims()
	for i := 0; i < r; i++ {
		floats.Sub(out.RawRowView(i), means)
	}
	return out
}
