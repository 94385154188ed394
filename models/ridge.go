package models

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const DefaultRidgeAlpha = 1.0

var ErrNegativeAlpha = errors.New("negative alpha")

// RidgeOptions represents input options to run the Ridge Regression
type RidgeOptions struct {
	// Alpha is the L2 regularization multiplier. 0.0 converges to OLS.
	Alpha float64

	// FitIntercept centers the data so the penalty never applies to the intercept
	FitIntercept bool
}

// Validate runs basic validation on Ridge options
func (r *RidgeOptions) Validate() (*RidgeOptions, error) {
	if r == nil {
		r = NewDefaultRidgeOptions()
	}
	if r.Alpha < 0 {
		return nil, ErrNegativeAlpha
	}
	return r, nil
}

// NewDefaultRidgeOptions returns a default set of Ridge Regression options
func NewDefaultRidgeOptions() *RidgeOptions {
	return &RidgeOptions{
		Alpha:        DefaultRidgeAlpha,
		FitIntercept: true,
	}
}

// RidgeRegression computes the L2 regularized least squares solution in
// closed form, (X'X + alpha*I)b = X'y. The intercept is fit by centering
// the features and target so it is never penalized.
type RidgeRegression struct {
	opt       *RidgeOptions
	coef      []float64
	intercept float64
	fitted    bool
}

// NewRidgeRegression initializes a Ridge model ready for fitting
func NewRidgeRegression(opt *RidgeOptions) (*RidgeRegression, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &RidgeRegression{
		opt: opt,
	}, nil
}

// Fit the model according to the given training data
func (r *RidgeRegression) Fit(x, y mat.Matrix) error {
	if r.opt == nil {
		return ErrNoOptions
	}
	if x == nil {
		return ErrNoTrainingMatrix
	}
	if y == nil {
		return ErrNoTargetMatrix
	}
	m, n := x.Dims()

	ym, _ := y.Dims()
	if ym != m {
		return fmt.Errorf("training data has %d rows and target has %d rows, %w", m, ym, ErrTargetLenMismatch)
	}

	xc := mat.DenseCopyOf(x)
	yc := targetSlice(y)

	var xMeans []float64
	var yMean float64
	if r.opt.FitIntercept {
		xMeans = make([]float64, n)
		for j := 0; j < n; j++ {
			xMeans[j] = stat.Mean(mat.Col(nil, j, xc), nil)
		}
		yMean = stat.Mean(yc, nil)
		for i := 0; i < m; i++ {
			for j := 0; j < n; j++ {
				xc.Set(i, j, xc.At(i, j)-xMeans[j])
			}
			yc[i] -= yMean
		}
	}

	// gram = X'X + alpha*I
	var gram mat.Dense
	gram.Mul(xc.T(), xc)
	for j := 0; j < n; j++ {
		gram.Set(j, j, gram.At(j, j)+r.opt.Alpha)
	}

	xty := make([]float64, n)
	for j := 0; j < n; j++ {
		xty[j] = mat.Dot(mat.NewVecDense(m, mat.Col(nil, j, xc)), mat.NewVecDense(m, yc))
	}

	coef := mat.NewVecDense(n, nil)
	if err := coef.SolveVec(&gram, mat.NewVecDense(n, xty)); err != nil {
		return fmt.Errorf("solving the regularized normal equations, %w", err)
	}

	r.coef = make([]float64, n)
	for j := 0; j < n; j++ {
		r.coef[j] = coef.AtVec(j)
	}
	if r.opt.FitIntercept {
		r.intercept = yMean
		for j := 0; j < n; j++ {
			r.intercept -= r.coef[j] * xMeans[j]
		}
	}
	r.fitted = true

	return nil
}

// Predict using the fitted coefficients
func (r *RidgeRegression) Predict(x mat.Matrix) ([]float64, error) {
	if r.opt == nil {
		return nil, ErrNoOptions
	}
	if !r.fitted {
		return nil, ErrNotFitted
	}
	if x == nil {
		return nil, ErrNoDesignMatrix
	}
	return linearPredict(x, r.intercept, r.coef, true)
}

// Intercept returns the computed intercept
func (r *RidgeRegression) Intercept() float64 {
	return r.intercept
}

// Coef returns a slice of the trained coefficients in the same order of the training feature Matrix by column.
func (r *RidgeRegression) Coef() []float64 {
	c := make([]float64, len(r.coef))
	copy(c, r.coef)
	return c
}
