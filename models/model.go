// Package models is the closed panel of regression implementations the
// demand trainer fits and compares.
package models

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Model is the uniform fit/predict capability every candidate regressor
// implements. The design matrix has one row per sample; the target matrix
// is a single column.
type Model interface {
	Fit(x, y mat.Matrix) error
	Predict(x mat.Matrix) ([]float64, error)
}

// Linear is implemented by the linear family and exposes the fitted
// coefficients for inspection.
type Linear interface {
	Model
	Intercept() float64
	Coef() []float64
}

// Importancer is implemented by tree-based models that expose per-feature
// impurity-based importances, normalized to sum to 1.
type Importancer interface {
	FeatureImportances() []float64
}

func targetSlice(y mat.Matrix) []float64 {
	return mat.Col(nil, 0, y)
}

func allFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
