// Package classifier trains and evaluates the tabular classifiers used on
// ultrasound feature vectors: a random forest of CART trees and a
// probability-calibrated RBF support vector machine.
package classifier

import (
	"strings"

	"github.com/pkg/errors"
)

// ModelType identifies a classifier family.
type ModelType string

// ModelType constants
const (
	// RandomForest is a bagged ensemble of Gini CART trees.
	RandomForest ModelType = "random_forest"
	// SVM is a one-vs-rest RBF support vector machine with Platt scaling.
	SVM ModelType = "svm"
)

var (
	// ErrConfiguration is returned for unsupported model types or options.
	ErrConfiguration = errors.New("unsupported classifier configuration")
	// ErrNoData is returned when training is attempted without samples.
	ErrNoData = errors.New("no training data")
	// ErrInvalidInput is returned for inconsistent feature matrices or labels.
	ErrInvalidInput = errors.New("invalid training input")
)

// ParseModelType validates a model identifier.
//
// Arguments:
//   - s: The identifier, "random_forest" or "svm" (case-insensitive).
//
// Returns:
//   - ModelType: The parsed model type.
//   - error: ErrConfiguration (wrapped) for any other identifier.
func ParseModelType(s string) (ModelType, error) {
	switch m := ModelType(strings.ToLower(strings.TrimSpace(s))); m {
	case RandomForest, SVM:
		return m, nil
	default:
		return "", errors.Wrapf(ErrConfiguration, "unsupported model type %q", s)
	}
}

// Classifier is a fitted multi-class classifier. Implementations are
// immutable after fitting and safe for concurrent use.
type Classifier interface {
	// Predict returns the predicted class index.
	Predict(x []float64) int
	// PredictProba returns one probability per class, summing to 1.
	PredictProba(x []float64) []float64
	// NumClasses returns the number of classes.
	NumClasses() int
	// NumFeatures returns the expected feature vector length.
	NumFeatures() int
	// Name returns the model type.
	Name() ModelType
}

// argmax returns the index of the largest value; ties go to the lowest index.
func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

// validate checks the shape of a training set and returns its feature count.
func validate(X [][]float64, y []int, nClasses int) (int, error) {
	if len(X) == 0 {
		return 0, ErrNoData
	}
	if len(X) != len(y) {
		return 0, errors.Wrapf(ErrInvalidInput, "%d samples but %d labels", len(X), len(y))
	}
	nFeatures := len(X[0])
	if nFeatures == 0 {
		return 0, errors.Wrap(ErrInvalidInput, "empty feature vectors")
	}
	for i, row := range X {
		if len(row) != nFeatures {
			return 0, errors.Wrapf(ErrInvalidInput, "sample %d has %d features, expected %d", i, len(row), nFeatures)
		}
	}
	for i, label := range y {
		if label < 0 || label >= nClasses {
			return 0, errors.Wrapf(ErrInvalidInput, "sample %d has label %d outside [0, %d)", i, label, nClasses)
		}
	}
	return nFeatures, nil
}
