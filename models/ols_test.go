package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func designMatrix(rows [][]float64) *mat.Dense {
	m := len(rows)
	n := len(rows[0])
	data := make([]float64, 0, m*n)
	for _, r := range rows {
		data = append(data, r...)
	}
	return mat.NewDense(m, n, data)
}

func targetMatrix(y []float64) *mat.Dense {
	return mat.NewDense(len(y), 1, y)
}

func TestOLSRegression(t *testing.T) {
	// y = 2 + 3*x0 + 4*x1
	tol := 1e-8
	testData := map[string]struct {
		x         [][]float64
		y         []float64
		opt       *OLSOptions
		intercept float64
		coef      []float64
	}{
		"model intercept": {
			x: [][]float64{
				{0, 0},
				{3, 5},
				{9, 20},
				{12, 6},
				{15, 10},
			},
			y:         []float64{2, 31, 109, 62, 87},
			intercept: 2,
			coef:      []float64{3, 4},
		},
		"no intercept": {
			x: [][]float64{
				{0, 0},
				{3, 5},
				{9, 20},
				{12, 6},
				{15, 10},
			},
			y:    []float64{0, 29, 107, 60, 85},
			opt:  &OLSOptions{FitIntercept: false},
			coef: []float64{3, 4},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			model, err := NewOLSRegression(td.opt)
			require.NoError(t, err)

			x := designMatrix(td.x)
			require.NoError(t, model.Fit(x, targetMatrix(td.y)))

			assert.InDelta(t, td.intercept, model.Intercept(), tol)
			require.Len(t, model.Coef(), len(td.coef))
			for i, c := range td.coef {
				assert.InDelta(t, c, model.Coef()[i], tol)
			}

			pred, err := model.Predict(x)
			require.NoError(t, err)
			for i, v := range td.y {
				assert.InDelta(t, v, pred[i], tol)
			}
		})
	}
}

func TestOLSRegressionErrors(t *testing.T) {
	model, err := NewOLSRegression(nil)
	require.NoError(t, err)

	x := designMatrix([][]float64{{1, 2}, {3, 4}})

	assert.ErrorIs(t, model.Fit(nil, targetMatrix([]float64{1, 2})), ErrNoTrainingMatrix)
	assert.ErrorIs(t, model.Fit(x, nil), ErrNoTargetMatrix)
	assert.ErrorIs(t, model.Fit(x, targetMatrix([]float64{1, 2, 3})), ErrTargetLenMismatch)

	_, err = model.Predict(x)
	assert.ErrorIs(t, err, ErrNotFitted)
}

func TestOLSRegressionRankDeficient(t *testing.T) {
	testData := map[string]struct {
		x [][]float64
	}{
		"constant column collinear with intercept": {
			x: [][]float64{{1, 0}, {1, 1}, {1, 2}, {1, 3}},
		},
		"duplicated column": {
			x: [][]float64{{1, 1}, {2, 2}, {3, 3}, {4, 4}},
		},
		"zero column": {
			x: [][]float64{{0, 0}, {0, 1}, {0, 2}, {0, 3}},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			model, err := NewOLSRegression(nil)
			require.NoError(t, err)

			err = model.Fit(designMatrix(td.x), targetMatrix([]float64{1, 2, 3, 4}))
			assert.ErrorIs(t, err, ErrDegenerateFit)

			// a failed fit must not leave the model usable
			_, err = model.Predict(designMatrix(td.x))
			assert.ErrorIs(t, err, ErrNotFitted)
		})
	}
}

func TestOLSRegressionFeatureMismatch(t *testing.T) {
	model, err := NewOLSRegression(nil)
	require.NoError(t, err)

	x := designMatrix([][]float64{{0, 0}, {1, 1}, {2, 4}})
	require.NoError(t, model.Fit(x, targetMatrix([]float64{1, 2, 5})))

	_, err = model.Predict(designMatrix([][]float64{{1, 2, 3}}))
	assert.ErrorIs(t, err, ErrFeatureLenMismatch)
}
