// Package detector ties feature extraction, the trained classifier and the
// region highlighter together behind the TumorDetector.
//
// Usage:
//
//	d, err := detector.New(detector.DefaultConfig(), prof, logger)
//	if err != nil {
//		return err
//	}
//	defer d.Close()
//
//	if _, err := d.Train(ctx, loader, classifier.RandomForest); err != nil {
//		return err
//	}
//	res, err := d.PredictFile("scan.png")
package detector

import (
	"context"
	"image"
	"sync"
	"sync/atomic"

	"github.com/nvr-ai/go-tumorscope/classifier"
	"github.com/nvr-ai/go-tumorscope/common"
	"github.com/nvr-ai/go-tumorscope/dataset"
	"github.com/nvr-ai/go-tumorscope/features"
	"github.com/nvr-ai/go-tumorscope/images"
	"github.com/nvr-ai/go-tumorscope/logging"
	"github.com/nvr-ai/go-tumorscope/profiler"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gocv.io/x/gocv"
)

var (
	// ErrModelNotTrained is returned by predictions before a successful Train.
	ErrModelNotTrained = errors.New("model not trained yet, call Train first")
	// ErrConfiguration is returned for unsupported model types.
	ErrConfiguration = classifier.ErrConfiguration
	// ErrNoData is returned when training finds no usable images.
	ErrNoData = classifier.ErrNoData
	// ErrExtraction is returned for images that cannot be processed.
	ErrExtraction = features.ErrExtraction
)

// Config configures a TumorDetector.
type Config struct {
	Features  features.Config         `yaml:"features" json:"features"`
	Highlight HighlightConfig         `yaml:"highlight" json:"highlight"`
	Training  classifier.TrainOptions `yaml:"model" json:"model"`
}

// DefaultConfig returns the canonical detector configuration.
func DefaultConfig() Config {
	return Config{
		Features:  features.DefaultConfig(),
		Highlight: DefaultHighlightConfig(),
		Training:  classifier.DefaultTrainOptions(),
	}
}

// DetectionResult is the outcome of one prediction. Binary, Contours, Overlay
// and Regions are nil when the image is classified as normal.
type DetectionResult struct {
	Prediction    string
	ClassIndex    int
	Confidence    float64
	Probabilities map[string]float64
	Original      image.Image
	Binary        image.Image
	Contours      image.Image
	Overlay       image.Image
	Regions       []common.Region
	IsNormal      bool
}

// TumorDetector classifies ultrasound images and highlights suspicious
// regions. Predictions may run concurrently; training replaces the
// classifier atomically.
type TumorDetector struct {
	mu      sync.RWMutex
	model   classifier.Classifier
	classes []string
	last    *classifier.TrainResult

	cfg         Config
	extractor   *features.Extractor
	highlighter *highlighter
	trainer     *classifier.Trainer
	profiler    *profiler.Profiler
	logger      zerolog.Logger

	predictions atomic.Int64
	abnormal    atomic.Int64
	failures    atomic.Int64
}

// New constructs an untrained TumorDetector.
//
// Arguments:
//   - cfg: The detector configuration.
//   - prof: The profiler operation timings are recorded to. May be nil.
//   - logger: The logger.
//
// Returns:
//   - *TumorDetector: The detector. Always call Close() to release native resources.
//   - error: An error if the configuration is invalid.
func New(cfg Config, prof *profiler.Profiler, logger zerolog.Logger) (*TumorDetector, error) {
	if err := cfg.Highlight.Validate(); err != nil {
		return nil, err
	}
	extractor, err := features.NewExtractor(cfg.Features)
	if err != nil {
		return nil, err
	}
	if prof == nil {
		prof = profiler.New(profiler.Options{}, logger)
	}

	d := &TumorDetector{
		classes:     append([]string(nil), dataset.DefaultClasses...),
		cfg:         cfg,
		extractor:   extractor,
		highlighter: newHighlighter(cfg.Highlight),
		trainer:     classifier.NewTrainer(logger),
		profiler:    prof,
		logger:      logging.Component(logger, "detector"),
	}
	prof.AddMetricsCollector(d)
	return d, nil
}

// Extractor returns the feature extractor, for building dataset loaders.
func (d *TumorDetector) Extractor() *features.Extractor { return d.extractor }

// Train loads the dataset, fits the requested model and installs it. On
// failure the previous classifier is discarded so predictions fail fast.
//
// Arguments:
//   - ctx: Cancelling the context aborts loading and fitting.
//   - loader: The dataset loader.
//   - model: The model type.
//
// Returns:
//   - *classifier.TrainResult: The training summary.
//   - error: ErrConfiguration, ErrNoData or a context error.
func (d *TumorDetector) Train(ctx context.Context, loader *dataset.Loader, model classifier.ModelType) (*classifier.TrainResult, error) {
	if _, err := classifier.ParseModelType(string(model)); err != nil {
		d.reset()
		return nil, err
	}

	done := d.profiler.StartOperation("load_dataset")
	ds, err := loader.Load(ctx)
	done(err)
	if err != nil {
		d.reset()
		return nil, errors.Wrap(err, "failed to load dataset")
	}

	return d.TrainOnDataset(ctx, ds, model)
}

// TrainOnDataset fits the requested model on an already loaded dataset.
func (d *TumorDetector) TrainOnDataset(ctx context.Context, ds *dataset.Dataset, model classifier.ModelType) (res *classifier.TrainResult, err error) {
	done := d.profiler.StartOperation("train")
	defer func() { done(err) }()

	opts := d.cfg.Training
	opts.Model = model
	opts.ClassNames = ds.Classes
	opts.FeatureNames = d.cfg.Features.Names()

	res, err = d.trainer.Train(ctx, ds.X, ds.Y, opts)
	if err != nil {
		d.reset()
		d.logger.Error().Err(err).Str("model", string(model)).Msg("training failed")
		return nil, err
	}

	d.mu.Lock()
	d.model = res.Classifier
	d.classes = append([]string(nil), ds.Classes...)
	d.last = res
	d.mu.Unlock()

	d.logger.Info().Str("model", string(model)).Int("samples", ds.Len()).Msg("classifier installed")
	return res, nil
}

func (d *TumorDetector) reset() {
	d.mu.Lock()
	d.model = nil
	d.last = nil
	d.mu.Unlock()
}

// Trained reports whether a classifier is installed.
func (d *TumorDetector) Trained() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.model != nil
}

// ModelType returns the installed model type, or "" when untrained.
func (d *TumorDetector) ModelType() classifier.ModelType {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.model == nil {
		return ""
	}
	return d.model.Name()
}

// Classes returns the class names in label order.
func (d *TumorDetector) Classes() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string(nil), d.classes...)
}

// LastTraining returns the summary of the installed classifier, or nil.
func (d *TumorDetector) LastTraining() *classifier.TrainResult {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.last
}

// Predict classifies an image and, for non-normal predictions, highlights
// the suspicious regions.
//
// Arguments:
//   - img: A 1, 3 (BGR) or 4 (BGRA) channel image of any size.
//
// Returns:
//   - *DetectionResult: The prediction.
//   - error: ErrModelNotTrained before training, ErrExtraction for
//     unprocessable images.
func (d *TumorDetector) Predict(img gocv.Mat) (res *DetectionResult, err error) {
	done := d.profiler.StartOperation("predict")
	defer func() {
		done(err)
		if err != nil {
			d.failures.Add(1)
		}
	}()

	d.mu.RLock()
	model, classes := d.model, d.classes
	d.mu.RUnlock()
	if model == nil {
		return nil, ErrModelNotTrained
	}

	vec, err := d.extractor.Extract(img)
	if err != nil {
		return nil, err
	}
	if len(vec) != model.NumFeatures() {
		return nil, errors.Wrapf(ErrExtraction, "feature vector has %d values, model expects %d", len(vec), model.NumFeatures())
	}

	classIndex := model.Predict(vec)
	proba := model.PredictProba(vec)

	bgr, err := images.ToBGR(img)
	if err != nil {
		return nil, errors.Wrapf(ErrExtraction, "%v", err)
	}
	defer bgr.Close()

	original, err := images.MatToImage(bgr)
	if err != nil {
		return nil, errors.Wrapf(ErrExtraction, "%v", err)
	}

	res = &DetectionResult{
		Prediction:    classes[classIndex],
		ClassIndex:    classIndex,
		Confidence:    proba[classIndex],
		Probabilities: make(map[string]float64, len(proba)),
		Original:      original,
	}
	for i, p := range proba {
		res.Probabilities[classes[i]] = p
	}

	d.predictions.Add(1)
	d.profiler.RecordMetric("confidence", res.Confidence)
	d.logger.Info().Str("prediction", res.Prediction).Float64("confidence", res.Confidence).Msg("predicted class")

	if classIndex == 0 {
		res.IsNormal = true
		return res, nil
	}

	d.abnormal.Add(1)
	hl, err := d.highlighter.run(bgr)
	if err != nil {
		return nil, errors.Wrapf(ErrExtraction, "highlight: %v", err)
	}
	res.Binary = hl.binary
	res.Contours = hl.contours
	res.Overlay = hl.overlay
	res.Regions = hl.regions
	return res, nil
}

// PredictBytes decodes encoded image bytes and predicts.
func (d *TumorDetector) PredictBytes(data []byte) (*DetectionResult, error) {
	if !d.Trained() {
		return nil, ErrModelNotTrained
	}
	mat, err := images.Decode(data)
	defer mat.Close()
	if err != nil {
		return nil, errors.Wrapf(ErrExtraction, "%v", err)
	}
	return d.Predict(mat)
}

// PredictFile reads an image file and predicts.
func (d *TumorDetector) PredictFile(path string) (*DetectionResult, error) {
	if !d.Trained() {
		return nil, ErrModelNotTrained
	}
	mat, err := images.Read(path)
	defer mat.Close()
	if err != nil {
		return nil, errors.Wrapf(ErrExtraction, "%v", err)
	}
	return d.Predict(mat)
}

// PredictDataURL decodes a base64 image, optionally prefixed by a data URL
// header, and predicts.
func (d *TumorDetector) PredictDataURL(payload string) (*DetectionResult, error) {
	if !d.Trained() {
		return nil, ErrModelNotTrained
	}
	mat, err := images.DecodeDataURL(payload)
	defer mat.Close()
	if err != nil {
		return nil, errors.Wrapf(ErrExtraction, "%v", err)
	}
	return d.Predict(mat)
}

// CollectMetrics implements the profiler.MetricsCollector interface.
//
// Returns:
// - A map of metric names to their current values
func (d *TumorDetector) CollectMetrics() map[string]float64 {
	trained := 0.0
	if d.Trained() {
		trained = 1
	}
	return map[string]float64{
		"predictions":          float64(d.predictions.Load()),
		"predictions_abnormal": float64(d.abnormal.Load()),
		"prediction_failures":  float64(d.failures.Load()),
		"trained":              trained,
	}
}

// Close releases the native resources held by the detector.
func (d *TumorDetector) Close() {
	d.extractor.Close()
	d.highlighter.close()
}
