package trainer

import (
	"math"
	"sort"

	"github.com/minimarket-io/demandcast/models"
)

// FeatureImportance pairs a feature name with its importance score.
type FeatureImportance struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Importances extracts per-feature importance from a fitted pipeline,
// sorted descending by score. Linear models report the absolute value of
// each coefficient; tree models report impurity-based importances. Models
// exposing neither return nil.
func Importances(pipe *models.Pipeline, names []string) []FeatureImportance {
	var scores []float64
	switch m := pipe.Model().(type) {
	case models.Importancer:
		scores = m.FeatureImportances()
	case models.Linear:
		coef := m.Coef()
		scores = make([]float64, len(coef))
		for i, c := range coef {
			scores[i] = math.Abs(c)
		}
	default:
		return nil
	}
	if len(scores) != len(names) {
		return nil
	}

	out := make([]FeatureImportance, len(scores))
	for i := range scores {
		out[i] = FeatureImportance{Name: names[i], Score: scores[i]}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// TopImportances returns at most n of the highest-scoring features.
func TopImportances(pipe *models.Pipeline, names []string, n int) []FeatureImportance {
	all := Importances(pipe, names)
	if len(all) > n {
		all = all[:n]
	}
	return all
}
