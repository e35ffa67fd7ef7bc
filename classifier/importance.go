package classifier

import (
	"strconv"

	"gonum.org/v1/gonum/floats"
)

// FeatureScore is the importance of one feature.
type FeatureScore struct {
	Index int     `json:"index"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// TopFeatures returns the k most important features, highest first.
//
// Arguments:
//   - importances: One score per feature.
//   - names: Optional feature names, indexed like importances.
//   - k: The number of features to return (capped at len(importances)).
//
// Returns:
//   - []FeatureScore: The ranked features.
func TopFeatures(importances []float64, names []string, k int) []FeatureScore {
	sorted := make([]float64, len(importances))
	copy(sorted, importances)
	inds := make([]int, len(importances))
	floats.ArgsortStable(sorted, inds)

	k = min(k, len(inds))
	out := make([]FeatureScore, 0, k)
	for i := len(inds) - 1; i >= len(inds)-k; i-- {
		idx := inds[i]
		name := "feature_" + strconv.Itoa(idx)
		if idx < len(names) {
			name = names[idx]
		}
		out = append(out, FeatureScore{Index: idx, Name: name, Score: importances[idx]})
	}
	return out
}
