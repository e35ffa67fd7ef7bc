package classifier

import (
	"math"
	"math/rand"
	"sort"
)

// Split holds sample indices of the training and held-out partitions.
type Split struct {
	Train []int
	Test  []int
}

// StratifiedSplit partitions sample indices per class so that both partitions
// keep the class proportions. Each class with at least two samples
// contributes round(testSize * n_c) shuffled samples to the test partition,
// clamped to [1, n_c-1] when testSize is positive, so it appears in both
// partitions. Single-sample classes stay entirely in training. Both partitions are returned in ascending index order.
//
// Arguments:
//   - y: Class labels in [0, nClasses).
//   - nClasses: The number of classes.
//   - testSize: The held-out fraction in [0, 1).
//   - seed: Seeds the per-class shuffles.
//
// Returns:
//   - Split: The partition, deterministic for a given seed.
func StratifiedSplit(y []int, nClasses int, testSize float64, seed int64) Split {
	rng := rand.New(rand.NewSource(seed))

	byClass := make([][]int, nClasses)
	for i, label := range y {
		byClass[label] = append(byClass[label], i)
	}

	var s Split
	for _, members := range byClass {
		n := len(members)
		nTest := 0
		if n >= 2 && testSize > 0 {
			nTest = int(math.Round(testSize * float64(n)))
			nTest = min(max(nTest, 1), n-1)
		}
		rng.Shuffle(n, func(i, j int) { members[i], members[j] = members[j], members[i] })
		s.Test = append(s.Test, members[:nTest]...)
		s.Train = append(s.Train, members[nTest:]...)
	}

	sort.Ints(s.Train)
	sort.Ints(s.Test)
	return s
}

// subset selects the rows and labels listed in idx.
func subset(X [][]float64, y []int, idx []int) ([][]float64, []int) {
	xs := make([][]float64, len(idx))
	ys := make([]int, len(idx))
	for i, j := range idx {
		xs[i] = X[j]
		ys[i] = y[j]
	}
	return xs, ys
}
