package classifier

import (
	"math/rand"
)

// blobs draws n samples per class around well separated class centers. Only
// the first two features carry signal; the rest are noise.
func blobs(nPerClass, nClasses, nFeatures int, seed int64) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(seed))
	var X [][]float64
	var y []int
	for c := 0; c < nClasses; c++ {
		for i := 0; i < nPerClass; i++ {
			row := make([]float64, nFeatures)
			row[0] = float64(c)*6 + rng.NormFloat64()
			row[1] = float64(c%2)*4 + rng.NormFloat64()*0.5
			for j := 2; j < nFeatures; j++ {
				row[j] = rng.NormFloat64()
			}
			X = append(X, row)
			y = append(y, c)
		}
	}
	return X, y
}

func accuracy(clf Classifier, X [][]float64, y []int) float64 {
	correct := 0
	for i, x := range X {
		if clf.Predict(x) == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(X))
}
