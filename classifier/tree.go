package classifier

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// treeNode is a node of a fitted decision tree. Leaves carry the class
// distribution of their training samples; internal nodes send samples with
// x[feature] <= threshold to the left child.
type treeNode struct {
	feature     int
	threshold   float64
	left, right int
	proba       []float64
}

func (n *treeNode) leaf() bool { return n.proba != nil }

// DecisionTree is a CART classification tree grown with Gini impurity.
type DecisionTree struct {
	nodes       []treeNode
	nClasses    int
	importances []float64
}

// treeParams controls tree growth.
type treeParams struct {
	maxFeatures     int
	minSamplesSplit int
	maxDepth        int // 0 means unlimited
}

// treeBuilder grows one tree over a (possibly bootstrapped) sample index set.
type treeBuilder struct {
	X        [][]float64
	y        []int
	nClasses int
	params   treeParams
	rng      *rand.Rand
	tree     *DecisionTree
	total    float64
}

// fitTree grows a tree on the samples listed in idx, which may contain
// repeated indices.
func fitTree(X [][]float64, y []int, idx []int, nClasses int, params treeParams, rng *rand.Rand) *DecisionTree {
	nFeatures := len(X[0])
	if params.maxFeatures < 1 || params.maxFeatures > nFeatures {
		params.maxFeatures = nFeatures
	}
	if params.minSamplesSplit < 2 {
		params.minSamplesSplit = 2
	}

	b := &treeBuilder{
		X:        X,
		y:        y,
		nClasses: nClasses,
		params:   params,
		rng:      rng,
		tree:     &DecisionTree{nClasses: nClasses, importances: make([]float64, nFeatures)},
		total:    float64(len(idx)),
	}
	samples := make([]int, len(idx))
	copy(samples, idx)
	b.grow(samples, 0)

	if sum := floats.Sum(b.tree.importances); sum > 0 {
		floats.Scale(1/sum, b.tree.importances)
	}
	return b.tree
}

func (b *treeBuilder) counts(samples []int) []float64 {
	c := make([]float64, b.nClasses)
	for _, s := range samples {
		c[b.y[s]]++
	}
	return c
}

func gini(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	return 1 - floats.Dot(counts, counts)/(n*n)
}

func (b *treeBuilder) addLeaf(counts []float64, n float64) int {
	proba := make([]float64, b.nClasses)
	floats.ScaleTo(proba, 1/n, counts)
	b.tree.nodes = append(b.tree.nodes, treeNode{feature: -1, proba: proba})
	return len(b.tree.nodes) - 1
}

// grow adds the subtree for samples and returns its root node index.
func (b *treeBuilder) grow(samples []int, depth int) int {
	n := float64(len(samples))
	counts := b.counts(samples)
	impurity := gini(counts, n)

	if impurity == 0 || len(samples) < b.params.minSamplesSplit ||
		(b.params.maxDepth > 0 && depth >= b.params.maxDepth) {
		return b.addLeaf(counts, n)
	}

	split, ok := b.bestSplit(samples, counts)
	if !ok {
		return b.addLeaf(counts, n)
	}

	b.tree.importances[split.feature] += (n*impurity - split.weightedChildImpurity) / b.total

	var left, right []int
	for _, s := range samples {
		if b.X[s][split.feature] <= split.threshold {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}

	id := len(b.tree.nodes)
	b.tree.nodes = append(b.tree.nodes, treeNode{feature: split.feature, threshold: split.threshold})
	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.tree.nodes[id].left = l
	b.tree.nodes[id].right = r
	return id
}

type split struct {
	feature               int
	threshold             float64
	weightedChildImpurity float64 // n_left*gini_left + n_right*gini_right
}

// bestSplit draws features without replacement and evaluates the best Gini
// threshold of each. The search stops after maxFeatures non-constant features
// once a valid split is known. A split is valid even if it does not lower the
// impurity, so unlimited trees separate every distinguishable sample.
func (b *treeBuilder) bestSplit(samples []int, counts []float64) (split, bool) {
	nFeatures := len(b.X[0])
	order := b.rng.Perm(nFeatures)
	n := float64(len(samples))

	best := split{feature: -1}
	bestScore := math.Inf(1)
	found := false
	visited := 0

	sorted := make([]int, len(samples))
	for _, f := range order {
		if visited >= b.params.maxFeatures && found {
			break
		}

		copy(sorted, samples)
		sort.SliceStable(sorted, func(i, j int) bool {
			return b.X[sorted[i]][f] < b.X[sorted[j]][f]
		})
		if b.X[sorted[0]][f] == b.X[sorted[len(sorted)-1]][f] {
			continue
		}
		visited++

		left := make([]float64, b.nClasses)
		right := make([]float64, b.nClasses)
		copy(right, counts)

		for i := 0; i < len(sorted)-1; i++ {
			label := b.y[sorted[i]]
			left[label]++
			right[label]--

			v, next := b.X[sorted[i]][f], b.X[sorted[i+1]][f]
			if v == next {
				continue
			}
			nl := float64(i + 1)
			nr := n - nl
			score := nl*gini(left, nl) + nr*gini(right, nr)
			if score < bestScore {
				bestScore = score
				threshold := v + (next-v)/2
				if threshold == next {
					threshold = v
				}
				best = split{feature: f, threshold: threshold, weightedChildImpurity: score}
				found = true
			}
		}
	}
	return best, found
}

// PredictProba returns the class distribution of the leaf reached by x.
func (t *DecisionTree) PredictProba(x []float64) []float64 {
	node := &t.nodes[0]
	for !node.leaf() {
		if x[node.feature] <= node.threshold {
			node = &t.nodes[node.left]
		} else {
			node = &t.nodes[node.right]
		}
	}
	return node.proba
}

// Depth returns the depth of the tree (a single leaf has depth 0).
func (t *DecisionTree) Depth() int {
	var walk func(i int) int
	walk = func(i int) int {
		n := &t.nodes[i]
		if n.leaf() {
			return 0
		}
		return 1 + max(walk(n.left), walk(n.right))
	}
	return walk(0)
}

// NumLeaves returns the number of leaves.
func (t *DecisionTree) NumLeaves() int {
	count := 0
	for i := range t.nodes {
		if t.nodes[i].leaf() {
			count++
		}
	}
	return count
}
