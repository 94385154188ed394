package models

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Kind discriminates the closed panel of candidate regressors. The order
// of Panel is the registration order used for tie-breaking at selection.
type Kind string

const (
	KindLinear       Kind = "linear_regression"
	KindRidge        Kind = "ridge"
	KindLasso        Kind = "lasso"
	KindDecisionTree Kind = "decision_tree"
	KindRandomForest Kind = "random_forest"
)

// Panel is the fixed candidate panel in registration order.
func Panel() []Kind {
	return []Kind{KindLinear, KindRidge, KindLasso, KindDecisionTree, KindRandomForest}
}

// Pipeline bundles a candidate regressor with the feature scaler fit
// alongside it. The scaler is fit only on the training split; every later
// transform reuses those statistics.
type Pipeline struct {
	kind   Kind
	scaler Scaler
	model  Model
}

// NewPipeline constructs the scaler+regressor pair for a candidate kind:
// standardization for the linear family, robust scaling for the trees.
func NewPipeline(kind Kind) (*Pipeline, error) {
	var (
		model      Model
		scalerKind ScalerKind
		err        error
	)
	switch kind {
	case KindLinear:
		scalerKind = ScalerStandard
		model, err = NewOLSRegression(nil)
	case KindRidge:
		scalerKind = ScalerStandard
		model, err = NewRidgeRegression(nil)
	case KindLasso:
		scalerKind = ScalerStandard
		model, err = NewLassoRegression(nil)
	case KindDecisionTree:
		scalerKind = ScalerRobust
		model, err = NewDecisionTree(nil)
	case KindRandomForest:
		scalerKind = ScalerRobust
		model, err = NewRandomForest(nil)
	default:
		return nil, fmt.Errorf("%q, %w", kind, ErrUnknownModelKind)
	}
	if err != nil {
		return nil, err
	}
	scaler, err := NewScaler(scalerKind)
	if err != nil {
		return nil, err
	}
	return &Pipeline{kind: kind, scaler: scaler, model: model}, nil
}

// Kind returns the candidate kind of this pipeline.
func (p *Pipeline) Kind() Kind {
	return p.kind
}

// Model returns the wrapped regressor.
func (p *Pipeline) Model() Model {
	return p.model
}

// Fit fits the scaler on x then the regressor on the scaled matrix.
func (p *Pipeline) Fit(x, y mat.Matrix) error {
	if err := p.scaler.Fit(x); err != nil {
		return fmt.Errorf("fitting %s scaler, %w", p.kind, err)
	}
	scaled, err := p.scaler.Transform(x)
	if err != nil {
		return err
	}
	if err := p.model.Fit(scaled, y); err != nil {
		return fmt.Errorf("fitting %s, %w", p.kind, err)
	}
	return nil
}

// Predict scales x with the training statistics and runs inference.
func (p *Pipeline) Predict(x mat.Matrix) ([]float64, error) {
	scaled, err := p.scaler.Transform(x)
	if err != nil {
		return nil, err
	}
	return p.model.Predict(scaled)
}

// PipelineState is the serializable form of a fitted pipeline: a
// discriminated union over the supported model kinds.
type PipelineState struct {
	Kind   Kind         `json:"kind"`
	Scaler ScalerState  `json:"scaler"`
	Linear *LinearState `json:"linear,omitempty"`
	Tree   *TreeState   `json:"tree,omitempty"`
	Forest *ForestState `json:"forest,omitempty"`
}

// LinearState captures a fitted linear-family model.
type LinearState struct {
	Intercept float64   `json:"intercept"`
	Coef      []float64 `json:"coef"`
}

// TreeState captures a fitted decision tree.
type TreeState struct {
	Nodes       []TreeNode `json:"nodes"`
	NFeatures   int        `json:"n_features"`
	Importances []float64  `json:"importances"`
}

// ForestState captures a fitted random forest.
type ForestState struct {
	Trees     []TreeState `json:"trees"`
	NFeatures int         `json:"n_features"`
}

// State snapshots the fitted pipeline for persistence.
func (p *Pipeline) State() (PipelineState, error) {
	st := PipelineState{
		Kind:   p.kind,
		Scaler: p.scaler.State(),
	}
	switch m := p.model.(type) {
	case Linear:
		st.Linear = &LinearState{
			Intercept: m.Intercept(),
			Coef:      m.Coef(),
		}
	case *DecisionTree:
		st.Tree = &TreeState{
			Nodes:       m.Nodes(),
			NFeatures:   m.nFeatures,
			Importances: m.FeatureImportances(),
		}
	case *RandomForest:
		fs := &ForestState{NFeatures: m.nFeatures}
		for _, tree := range m.Trees() {
			fs.Trees = append(fs.Trees, TreeState{
				Nodes:       tree.Nodes(),
				NFeatures:   tree.nFeatures,
				Importances: tree.FeatureImportances(),
			})
		}
		st.Forest = fs
	default:
		return PipelineState{}, fmt.Errorf("%q, %w", p.kind, ErrUnknownModelKind)
	}
	return st, nil
}

// NewPipelineFromState rebuilds a fitted pipeline from serialized state.
func NewPipelineFromState(st PipelineState) (*Pipeline, error) {
	scaler, err := NewScalerFromState(st.Scaler)
	if err != nil {
		return nil, err
	}

	var model Model
	switch {
	case st.Linear != nil:
		model, err = restoreLinear(st.Kind, st.Linear)
	case st.Tree != nil:
		tree, terr := NewDecisionTree(nil)
		if terr != nil {
			return nil, terr
		}
		tree.Restore(st.Tree.Nodes, st.Tree.NFeatures, st.Tree.Importances)
		model = tree
	case st.Forest != nil:
		forest, ferr := NewRandomForest(nil)
		if ferr != nil {
			return nil, ferr
		}
		trees := make([]*DecisionTree, 0, len(st.Forest.Trees))
		for _, ts := range st.Forest.Trees {
			tree, terr := NewDecisionTree(nil)
			if terr != nil {
				return nil, terr
			}
			tree.Restore(ts.Nodes, ts.NFeatures, ts.Importances)
			trees = append(trees, tree)
		}
		forest.Restore(trees, st.Forest.NFeatures)
		model = forest
	default:
		return nil, fmt.Errorf("%q has no model payload, %w", st.Kind, ErrUnknownModelKind)
	}
	if err != nil {
		return nil, err
	}

	return &Pipeline{kind: st.Kind, scaler: scaler, model: model}, nil
}

func restoreLinear(kind Kind, st *LinearState) (Model, error) {
	switch kind {
	case KindLinear:
		m, err := NewOLSRegression(nil)
		if err != nil {
			return nil, err
		}
		m.intercept = st.Intercept
		m.coef = append([]float64(nil), st.Coef...)
		m.fitted = true
		return m, nil
	case KindRidge:
		m, err := NewRidgeRegression(nil)
		if err != nil {
			return nil, err
		}
		m.intercept = st.Intercept
		m.coef = append([]float64(nil), st.Coef...)
		m.fitted = true
		return m, nil
	case KindLasso:
		m, err := NewLassoRegression(nil)
		if err != nil {
			return nil, err
		}
		m.intercept = st.Intercept
		m.coef = append([]float64(nil), st.Coef...)
		m.fitted = true
		return m, nil
	default:
		return nil, fmt.Errorf("%q, %w", kind, ErrUnknownModelKind)
	}
}
