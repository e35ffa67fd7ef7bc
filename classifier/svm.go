package classifier

import (
	"context"
	"math"
	"math/rand"

	"github.com/nvr-ai/go-tumorscope/common"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// SVMOptions configures the support vector machine.
type SVMOptions struct {
	// C is the soft margin penalty (default 1).
	C float64
	// Gamma is the RBF kernel coefficient. Zero means 1 / F.
	Gamma float64
	// Tolerance is the stopping tolerance of the SMO solver (default 1e-3).
	Tolerance float64
	// MaxIter bounds SMO iterations per binary problem (default 100000).
	MaxIter int
	// ProbabilityFolds is the number of cross-validation folds used to fit
	// the Platt sigmoids (default 5).
	ProbabilityFolds int
	// Seed seeds the cross-validation fold assignment.
	Seed int64
	// Workers is the number of binary problems solved concurrently.
	Workers int
}

func (o *SVMOptions) defaults() {
	if o.C <= 0 {
		o.C = 1
	}
	if o.Tolerance <= 0 {
		o.Tolerance = 1e-3
	}
	if o.MaxIter <= 0 {
		o.MaxIter = 100000
	}
	if o.ProbabilityFolds < 2 {
		o.ProbabilityFolds = 5
	}
}

// SVMClassifier is a one-vs-rest RBF support vector machine on standardized
// features. Each binary machine is calibrated with a Platt sigmoid fitted on
// cross-validated decision values; class probabilities are the normalized
// sigmoid outputs.
type SVMClassifier struct {
	opts      SVMOptions
	scaler    *StandardScaler
	gamma     float64
	machines  []*binarySVM
	nClasses  int
	nFeatures int
}

// binarySVM is one calibrated class-vs-rest machine. constant is set when the
// class was absent (0) or the only class (1) in training.
type binarySVM struct {
	coef     []float64 // alpha_i * y_i of each support vector
	vectors  [][]float64
	rho      float64
	sigmoid  sigmoid
	constant *float64
}

// NewSVM constructs an unfitted SVM.
func NewSVM(opts SVMOptions) *SVMClassifier {
	opts.defaults()
	return &SVMClassifier{opts: opts}
}

func rbf(a, b []float64, gamma float64) float64 {
	d := floats.Distance(a, b, 2)
	return math.Exp(-gamma * d * d)
}

// kernelMatrix computes the full RBF Gram matrix of X.
func kernelMatrix(X [][]float64, gamma float64, workers int) *mat.SymDense {
	n := len(X)
	k := mat.NewSymDense(n, nil)
	common.Parallel(n, workers, func(start, end int) {
		for i := start; i < end; i++ {
			for j := i; j < n; j++ {
				k.SetSym(i, j, rbf(X[i], X[j], gamma))
			}
		}
	})
	return k
}

// Fit trains one calibrated machine per class.
//
// Arguments:
//   - ctx: Cancelling the context aborts fitting between binary problems.
//   - X: The feature matrix (raw, standardized internally).
//   - y: The class labels in [0, nClasses).
//   - nClasses: The number of classes.
//
// Returns:
//   - error: ErrNoData, ErrInvalidInput or the context error.
func (s *SVMClassifier) Fit(ctx context.Context, X [][]float64, y []int, nClasses int) error {
	nFeatures, err := validate(X, y, nClasses)
	if err != nil {
		return err
	}

	scaler := FitScaler(X)
	Z := scaler.TransformAll(X)
	gamma := s.opts.Gamma
	if gamma <= 0 {
		gamma = 1 / float64(nFeatures)
	}
	kernel := kernelMatrix(Z, gamma, s.opts.Workers)

	master := rand.New(rand.NewSource(s.opts.Seed))
	seeds := make([]int64, nClasses)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	machines := make([]*binarySVM, nClasses)
	common.Parallel(nClasses, s.opts.Workers, func(start, end int) {
		for k := start; k < end; k++ {
			if ctx.Err() != nil {
				return
			}
			labels := make([]float64, len(y))
			for i, label := range y {
				if label == k {
					labels[i] = 1
				} else {
					labels[i] = -1
				}
			}
			machines[k] = s.fitBinary(kernel, Z, labels, rand.New(rand.NewSource(seeds[k])))
		}
	})
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "svm fit cancelled")
	}

	s.scaler = scaler
	s.gamma = gamma
	s.machines = machines
	s.nClasses = nClasses
	s.nFeatures = nFeatures
	return nil
}

func (s *SVMClassifier) fitBinary(kernel *mat.SymDense, Z [][]float64, labels []float64, rng *rand.Rand) *binarySVM {
	pos, neg := 0, 0
	for _, l := range labels {
		if l > 0 {
			pos++
		} else {
			neg++
		}
	}
	switch {
	case pos == 0:
		c := 0.0
		return &binarySVM{constant: &c}
	case neg == 0:
		c := 1.0
		return &binarySVM{constant: &c}
	}

	all := make([]int, len(labels))
	for i := range all {
		all[i] = i
	}
	alpha, rho := s.solve(kernel, all, labels)

	m := &binarySVM{rho: rho}
	for i, a := range alpha {
		if a > 0 {
			m.coef = append(m.coef, a*labels[i])
			m.vectors = append(m.vectors, Z[i])
		}
	}
	m.sigmoid = fitSigmoid(s.crossValidatedDecisions(kernel, labels, rng), labels)
	return m
}

// crossValidatedDecisions returns, for every sample, the decision value of a
// machine trained on the folds that exclude it.
func (s *SVMClassifier) crossValidatedDecisions(kernel *mat.SymDense, labels []float64, rng *rand.Rand) []float64 {
	n := len(labels)
	folds := min(s.opts.ProbabilityFolds, n)
	perm := rng.Perm(n)
	dec := make([]float64, n)

	for f := 0; f < folds; f++ {
		begin, end := f*n/folds, (f+1)*n/folds
		test := perm[begin:end]
		train := make([]int, 0, n-len(test))
		train = append(train, perm[:begin]...)
		train = append(train, perm[end:]...)

		trainLabels := make([]float64, len(train))
		pos, neg := 0, 0
		for i, t := range train {
			trainLabels[i] = labels[t]
			if labels[t] > 0 {
				pos++
			} else {
				neg++
			}
		}

		switch {
		case pos == 0 && neg == 0:
			for _, t := range test {
				dec[t] = 0
			}
			continue
		case neg == 0:
			for _, t := range test {
				dec[t] = 1
			}
			continue
		case pos == 0:
			for _, t := range test {
				dec[t] = -1
			}
			continue
		}

		alpha, rho := s.solve(kernel, train, trainLabels)
		for _, t := range test {
			v := -rho
			for i, a := range alpha {
				if a > 0 {
					v += a * trainLabels[i] * kernel.At(train[i], t)
				}
			}
			dec[t] = v
		}
	}
	return dec
}

// solve runs SMO with maximal violating pair selection on the samples idx of
// the precomputed kernel and returns the dual coefficients and the bias rho.
func (s *SVMClassifier) solve(kernel *mat.SymDense, idx []int, y []float64) ([]float64, float64) {
	n := len(idx)
	c := s.opts.C
	k := func(i, j int) float64 { return kernel.At(idx[i], idx[j]) }

	alpha := make([]float64, n)
	grad := make([]float64, n)
	for i := range grad {
		grad[i] = -1
	}

	for iter := 0; iter < s.opts.MaxIter; iter++ {
		i, j := -1, -1
		gmax, gmin := math.Inf(-1), math.Inf(1)
		for t := 0; t < n; t++ {
			v := -y[t] * grad[t]
			if (y[t] > 0 && alpha[t] < c) || (y[t] < 0 && alpha[t] > 0) {
				if v > gmax {
					gmax, i = v, t
				}
			}
			if (y[t] > 0 && alpha[t] > 0) || (y[t] < 0 && alpha[t] < c) {
				if v < gmin {
					gmin, j = v, t
				}
			}
		}
		if i < 0 || j < 0 || gmax-gmin < s.opts.Tolerance {
			break
		}

		qij := y[i] * y[j] * k(i, j)
		oldI, oldJ := alpha[i], alpha[j]
		if y[i] != y[j] {
			quad := k(i, i) + k(j, j) + 2*qij
			if quad <= 0 {
				quad = 1e-12
			}
			delta := (-grad[i] - grad[j]) / quad
			diff := alpha[i] - alpha[j]
			alpha[i] += delta
			alpha[j] += delta
			if diff > 0 {
				if alpha[j] < 0 {
					alpha[j], alpha[i] = 0, diff
				}
			} else if alpha[i] < 0 {
				alpha[i], alpha[j] = 0, -diff
			}
			if diff > 0 {
				if alpha[i] > c {
					alpha[i], alpha[j] = c, c-diff
				}
			} else if alpha[j] > c {
				alpha[j], alpha[i] = c, c+diff
			}
		} else {
			quad := k(i, i) + k(j, j) - 2*qij
			if quad <= 0 {
				quad = 1e-12
			}
			delta := (grad[i] - grad[j]) / quad
			sum := alpha[i] + alpha[j]
			alpha[i] -= delta
			alpha[j] += delta
			if sum > c {
				if alpha[i] > c {
					alpha[i], alpha[j] = c, sum-c
				}
			} else if alpha[j] < 0 {
				alpha[j], alpha[i] = 0, sum
			}
			if sum > c {
				if alpha[j] > c {
					alpha[j], alpha[i] = c, sum-c
				}
			} else if alpha[i] < 0 {
				alpha[i], alpha[j] = 0, sum
			}
		}

		dI, dJ := alpha[i]-oldI, alpha[j]-oldJ
		for t := 0; t < n; t++ {
			grad[t] += y[t]*y[i]*k(t, i)*dI + y[t]*y[j]*k(t, j)*dJ
		}
	}

	// Bias from free vectors, or the midpoint of the feasible interval.
	ub, lb := math.Inf(1), math.Inf(-1)
	free, sumFree := 0, 0.0
	for t := 0; t < n; t++ {
		yg := y[t] * grad[t]
		switch {
		case alpha[t] >= c:
			if y[t] < 0 {
				ub = math.Min(ub, yg)
			} else {
				lb = math.Max(lb, yg)
			}
		case alpha[t] <= 0:
			if y[t] > 0 {
				ub = math.Min(ub, yg)
			} else {
				lb = math.Max(lb, yg)
			}
		default:
			free++
			sumFree += yg
		}
	}
	if free > 0 {
		return alpha, sumFree / float64(free)
	}
	return alpha, (ub + lb) / 2
}

func (m *binarySVM) decision(z []float64, gamma float64) float64 {
	v := -m.rho
	for i, sv := range m.vectors {
		v += m.coef[i] * rbf(sv, z, gamma)
	}
	return v
}

// DecisionFunction returns the raw one-vs-rest decision value of every class.
// Classes that were absent or alone in training report NaN.
func (s *SVMClassifier) DecisionFunction(x []float64) []float64 {
	z := s.scaler.Transform(x)
	out := make([]float64, s.nClasses)
	for k, m := range s.machines {
		if m.constant != nil {
			out[k] = math.NaN()
			continue
		}
		out[k] = m.decision(z, s.gamma)
	}
	return out
}

// PredictProba returns calibrated class probabilities summing to 1.
func (s *SVMClassifier) PredictProba(x []float64) []float64 {
	z := s.scaler.Transform(x)
	out := make([]float64, s.nClasses)
	for k, m := range s.machines {
		if m.constant != nil {
			out[k] = *m.constant
			continue
		}
		out[k] = m.sigmoid.prob(m.decision(z, s.gamma))
	}

	sum := floats.Sum(out)
	if sum <= 0 {
		for k := range out {
			out[k] = 1 / float64(len(out))
		}
		return out
	}
	floats.Scale(1/sum, out)
	return out
}

// Predict returns the class with the highest calibrated probability.
func (s *SVMClassifier) Predict(x []float64) int {
	return argmax(s.PredictProba(x))
}

// NumClasses returns the number of classes.
func (s *SVMClassifier) NumClasses() int { return s.nClasses }

// NumFeatures returns the expected feature vector length.
func (s *SVMClassifier) NumFeatures() int { return s.nFeatures }

// Name returns SVM.
func (s *SVMClassifier) Name() ModelType { return SVM }

// NumSupportVectors returns the number of support vectors per class machine.
func (s *SVMClassifier) NumSupportVectors() []int {
	out := make([]int, len(s.machines))
	for k, m := range s.machines {
		out[k] = len(m.vectors)
	}
	return out
}
