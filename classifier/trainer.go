package classifier

import (
	"context"
	"strconv"
	"time"

	"github.com/nvr-ai/go-tumorscope/logging"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// TopFeatureCount is the number of features reported by importance.
const TopFeatureCount = 10

// TrainOptions configures a training run.
type TrainOptions struct {
	// Model selects the classifier family.
	Model ModelType `yaml:"type" json:"type"`
	// Seed seeds the split and the model.
	Seed int64 `yaml:"seed" json:"seed"`
	// TestSize is the held-out fraction in [0, 1). Zero disables evaluation.
	TestSize float64 `yaml:"test_size" json:"test_size"`
	// NumTrees is the random forest size.
	NumTrees int `yaml:"num_trees" json:"num_trees"`
	// MaxFeatures is the random forest per-split feature count. Zero means sqrt(F).
	MaxFeatures int `yaml:"max_features" json:"max_features"`
	// MaxDepth limits random forest trees. Zero means unlimited.
	MaxDepth int `yaml:"max_depth" json:"max_depth"`
	// C is the SVM margin penalty.
	C float64 `yaml:"c" json:"c"`
	// Gamma is the SVM RBF coefficient. Zero means 1 / F.
	Gamma float64 `yaml:"gamma" json:"gamma"`
	// Workers bounds fitting concurrency. Zero uses all CPUs.
	Workers int `yaml:"workers" json:"workers"`
	// ClassNames names the classes by label. When empty, classes are
	// numbered 0..max(y).
	ClassNames []string `yaml:"-" json:"-"`
	// FeatureNames names the features for importance reporting.
	FeatureNames []string `yaml:"-" json:"-"`
}

// DefaultTrainOptions returns a random forest of 100 trees, seed 42 and an
// 80/20 split.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		Model:    RandomForest,
		Seed:     42,
		TestSize: 0.2,
		NumTrees: 100,
		C:        1,
	}
}

// Validate checks the options independently of any data.
func (o TrainOptions) Validate() error {
	if _, err := ParseModelType(string(o.Model)); err != nil {
		return err
	}
	if o.TestSize < 0 || o.TestSize >= 1 {
		return errors.Wrapf(ErrConfiguration, "test size %v outside [0, 1)", o.TestSize)
	}
	if o.NumTrees < 0 || o.MaxFeatures < 0 || o.MaxDepth < 0 || o.C < 0 || o.Gamma < 0 {
		return errors.Wrap(ErrConfiguration, "negative model parameter")
	}
	return nil
}

// TrainResult describes a finished training run.
type TrainResult struct {
	Classifier   Classifier     `json:"-"`
	Model        ModelType      `json:"model"`
	TrainSize    int            `json:"train_size"`
	TestSize     int            `json:"test_size"`
	NumFeatures  int            `json:"num_features"`
	Report       *Report        `json:"report,omitempty"`
	TopFeatures  []FeatureScore `json:"top_features,omitempty"`
	Distribution map[string]int `json:"distribution"`
	Duration     time.Duration  `json:"duration"`
}

// Trainer fits and evaluates classifiers.
type Trainer struct {
	logger zerolog.Logger
}

// NewTrainer constructs a Trainer that logs to logger.
func NewTrainer(logger zerolog.Logger) *Trainer {
	return &Trainer{logger: logging.Component(logger, "classifier")}
}

// Train splits the samples, fits the selected model on the training
// partition and evaluates it on the held-out partition.
//
// Arguments:
//   - ctx: Cancelling the context aborts fitting.
//   - X: The feature matrix.
//   - y: The labels.
//   - opts: The training options.
//
// Returns:
//   - *TrainResult: The fitted classifier and its evaluation.
//   - error: ErrConfiguration for invalid options, ErrNoData for an empty
//     training set, ErrInvalidInput for inconsistent input.
//
// @example
//
//	res, err := classifier.NewTrainer(logger).Train(ctx, ds.X, ds.Y, opts)
//	if errors.Is(err, classifier.ErrNoData) {
//		// nothing to learn from
//	}
func (t *Trainer) Train(ctx context.Context, X [][]float64, y []int, opts TrainOptions) (*TrainResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	model, err := ParseModelType(string(opts.Model))
	if err != nil {
		return nil, err
	}
	opts.Model = model
	if len(X) == 0 {
		return nil, errors.Wrap(ErrNoData, "no images could be processed, check the dataset path")
	}

	classNames := opts.ClassNames
	if len(classNames) == 0 {
		maxLabel := 0
		for _, label := range y {
			maxLabel = max(maxLabel, label)
		}
		for i := 0; i <= maxLabel; i++ {
			classNames = append(classNames, strconv.Itoa(i))
		}
	}
	nClasses := len(classNames)

	nFeatures, err := validate(X, y, nClasses)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	distribution := make(map[string]int, nClasses)
	for _, label := range y {
		distribution[classNames[label]]++
	}
	for _, name := range classNames {
		t.logger.Info().Str("class", name).Int("images", distribution[name]).Msg("class distribution")
	}

	split := StratifiedSplit(y, nClasses, opts.TestSize, opts.Seed)
	trainX, trainY := subset(X, y, split.Train)
	testX, testY := subset(X, y, split.Test)

	t.logger.Info().
		Int("train", len(trainX)).
		Int("test", len(testX)).
		Int("features", nFeatures).
		Str("model", string(opts.Model)).
		Msg("training classifier")

	var (
		clf    Classifier
		forest *RandomForestClassifier
		fitErr error
	)
	switch opts.Model {
	case RandomForest:
		forest = NewRandomForest(ForestOptions{
			NumTrees:    opts.NumTrees,
			MaxFeatures: opts.MaxFeatures,
			MaxDepth:    opts.MaxDepth,
			Seed:        opts.Seed,
			Workers:     opts.Workers,
		})
		fitErr = forest.Fit(ctx, trainX, trainY, nClasses)
		clf = forest
	case SVM:
		svm := NewSVM(SVMOptions{C: opts.C, Gamma: opts.Gamma, Seed: opts.Seed, Workers: opts.Workers})
		fitErr = svm.Fit(ctx, trainX, trainY, nClasses)
		clf = svm
	default:
		return nil, errors.Wrapf(ErrConfiguration, "unsupported model type %q", opts.Model)
	}
	if fitErr != nil {
		return nil, errors.Wrapf(fitErr, "failed to fit %s", opts.Model)
	}

	res := &TrainResult{
		Classifier:   clf,
		Model:        opts.Model,
		TrainSize:    len(trainX),
		TestSize:     len(testX),
		NumFeatures:  nFeatures,
		Distribution: distribution,
	}

	if len(testX) > 0 {
		pred := make([]int, len(testX))
		for i, x := range testX {
			pred[i] = clf.Predict(x)
		}
		res.Report = Evaluate(testY, pred, classNames)
		t.logger.Info().Float64("accuracy", res.Report.Accuracy).Msg("test accuracy")
		t.logger.Info().Msg("classification report\n" + res.Report.String())
	} else {
		t.logger.Warn().Msg("held-out split is empty, skipping evaluation")
	}

	if forest != nil {
		res.TopFeatures = TopFeatures(forest.FeatureImportances(), opts.FeatureNames, TopFeatureCount)
		for _, f := range res.TopFeatures {
			t.logger.Info().Int("feature", f.Index).Str("name", f.Name).Float64("importance", f.Score).Msg("top feature")
		}
	}

	res.Duration = time.Since(start)
	t.logger.Info().Dur("elapsed", res.Duration).Msg("training completed")
	return res, nil
}
