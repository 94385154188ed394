package models

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/minimarket-io/demandcast/stats"
)

// ScalerKind discriminates the closed set of feature scalers.
type ScalerKind string

const (
	// ScalerStandard centers each column on its mean and divides by its
	// standard deviation. Used by the linear family.
	ScalerStandard ScalerKind = "standard"

	// ScalerRobust centers each column on its median and divides by its
	// interquartile range, dampening outlier influence. Used by the tree
	// family.
	ScalerRobust ScalerKind = "robust"
)

// Scaler fits per-column statistics on the training split and applies the
// same transform to any later matrix.
type Scaler interface {
	Fit(x mat.Matrix) error
	Transform(x mat.Matrix) (*mat.Dense, error)
	State() ScalerState
}

// ScalerState is the serializable form of a fitted scaler.
type ScalerState struct {
	Kind   ScalerKind `json:"kind"`
	Center []float64  `json:"center"`
	Scale  []float64  `json:"scale"`
}

// NewScaler returns an unfitted scaler of the given kind.
func NewScaler(kind ScalerKind) (Scaler, error) {
	switch kind {
	case ScalerStandard:
		return &columnScaler{kind: ScalerStandard}, nil
	case ScalerRobust:
		return &columnScaler{kind: ScalerRobust}, nil
	default:
		return nil, ErrUnknownScalerKind
	}
}

// NewScalerFromState rebuilds a fitted scaler from serialized state.
func NewScalerFromState(s ScalerState) (Scaler, error) {
	sc, err := NewScaler(s.Kind)
	if err != nil {
		return nil, err
	}
	cs := sc.(*columnScaler)
	cs.center = append([]float64(nil), s.Center...)
	cs.scale = append([]float64(nil), s.Scale...)
	return cs, nil
}

type columnScaler struct {
	kind   ScalerKind
	center []float64
	scale  []float64
}

func (c *columnScaler) Fit(x mat.Matrix) error {
	if x == nil {
		return ErrNoTrainingMatrix
	}
	_, n := x.Dims()
	c.center = make([]float64, n)
	c.scale = make([]float64, n)
	for j := 0; j < n; j++ {
		col := mat.Col(nil, j, x)
		var center, scale float64
		switch c.kind {
		case ScalerRobust:
			center = stats.Median(col)
			scale = stats.Quantile(col, 0.75) - stats.Quantile(col, 0.25)
		default:
			center = stat.Mean(col, nil)
			scale = stats.PopStdDev(col)
		}
		if scale == 0 {
			// constant column, leave values centered only
			scale = 1
		}
		c.center[j] = center
		c.scale[j] = scale
	}
	return nil
}

func (c *columnScaler) Transform(x mat.Matrix) (*mat.Dense, error) {
	if x == nil {
		return nil, ErrNoDesignMatrix
	}
	if c.center == nil {
		return nil, ErrNotFitted
	}
	m, n := x.Dims()
	if n != len(c.center) {
		return nil, ErrFeatureLenMismatch
	}
	out := mat.NewDense(m, n, nil)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			out.Set(i, j, (x.At(i, j)-c.center[j])/c.scale[j])
		}
	}
	return out, nil
}

func (c *columnScaler) State() ScalerState {
	return ScalerState{
		Kind:   c.kind,
		Center: append([]float64(nil), c.center...),
		Scale:  append([]float64(nil), c.scale...),
	}
}
