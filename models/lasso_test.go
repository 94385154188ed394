package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLassoOptionsValidate(t *testing.T) {
	testData := map[string]struct {
		opt      *LassoOptions
		err      error
		expected *LassoOptions
	}{
		"nil": {nil, nil, NewDefaultLassoOptions()},
		"valid": {
			&LassoOptions{
				Lambda:     1.0,
				Iterations: 100,
				Tolerance:  1e-5,
			}, nil,
			&LassoOptions{
				Lambda:     1.0,
				Iterations: 100,
				Tolerance:  1e-5,
			},
		},
		"invalid alpha": {
			&LassoOptions{Lambda: -1.0},
			ErrNegativeLambda, nil,
		},
		"invalid iterations": {
			&LassoOptions{Lambda: 1.0, Iterations: -1},
			ErrNegativeIterations, nil,
		},
		"invalid tolerance": {
			&LassoOptions{Lambda: 1.0, Iterations: 100, Tolerance: -1.0},
			ErrNegativeTolerance, nil,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			opt, err := td.opt.Validate()
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.expected, opt)
		})
	}
}

func TestLassoRegression(t *testing.T) {
	// y = 2 + 3*x0 + 4*x1, near-zero penalty recovers the coefficients
	tol := 1e-3
	x := designMatrix([][]float64{
		{0, 0},
		{3, 5},
		{9, 20},
		{12, 6},
		{15, 10},
	})
	y := targetMatrix([]float64{2, 31, 109, 62, 87})

	model, err := NewLassoRegression(&LassoOptions{
		Lambda:       1e-6,
		Iterations:   10000,
		Tolerance:    1e-9,
		FitIntercept: true,
	})
	require.NoError(t, err)
	require.NoError(t, model.Fit(x, y))

	assert.InDelta(t, 2.0, model.Intercept(), tol)
	assert.InDelta(t, 3.0, model.Coef()[0], tol)
	assert.InDelta(t, 4.0, model.Coef()[1], tol)

	pred, err := model.Predict(x)
	require.NoError(t, err)
	for i, v := range []float64{2, 31, 109, 62, 87} {
		assert.InDelta(t, v, pred[i], 1e-2)
	}
}

func TestLassoRegressionSparsity(t *testing.T) {
	// x1 is pure noise; a strong penalty should zero it out
	x := designMatrix([][]float64{
		{0, 0.3},
		{1, -0.1},
		{2, 0.2},
		{3, -0.4},
		{4, 0.1},
		{5, -0.2},
	})
	y := targetMatrix([]float64{0, 10, 20, 30, 40, 50})

	model, err := NewLassoRegression(&LassoOptions{
		Lambda:       5.0,
		Iterations:   10000,
		Tolerance:    1e-9,
		FitIntercept: true,
	})
	require.NoError(t, err)
	require.NoError(t, model.Fit(x, y))

	assert.Equal(t, 0.0, model.Coef()[1])
	assert.Greater(t, model.Coef()[0], 0.0)
}

func TestLassoRegressionZeroNormColumn(t *testing.T) {
	// an all-zero feature column has a zero norm, which would otherwise
	// turn the coordinate update into a division by zero
	x := designMatrix([][]float64{
		{1, 0},
		{2, 0},
		{3, 0},
		{4, 0},
	})
	model, err := NewLassoRegression(nil)
	require.NoError(t, err)

	err = model.Fit(x, targetMatrix([]float64{2, 4, 6, 8}))
	assert.ErrorIs(t, err, ErrDegenerateFit)

	_, err = model.Predict(x)
	assert.ErrorIs(t, err, ErrNotFitted)
}

func TestLassoRegressionNotFitted(t *testing.T) {
	model, err := NewLassoRegression(nil)
	require.NoError(t, err)

	_, err = model.Predict(designMatrix([][]float64{{1, 2}}))
	assert.ErrorIs(t, err, ErrNotFitted)
}
