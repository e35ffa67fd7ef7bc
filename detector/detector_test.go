package detector

import (
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"testing"

	"github.com/nvr-ai/go-tumorscope/classifier"
	"github.com/nvr-ai/go-tumorscope/dataset"
	"github.com/nvr-ai/go-tumorscope/test"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

const scanSize = 128

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Features.Size = 96
	cfg.Training.NumTrees = 30
	return cfg
}

func newTestDetector(t *testing.T) *TumorDetector {
	t.Helper()
	d, err := New(testConfig(), nil, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(d.Close)
	return d
}

// syntheticDataset extracts perClass generated scans per class.
func syntheticDataset(t *testing.T, d *TumorDetector, perClass int) *dataset.Dataset {
	t.Helper()
	gen := test.NewMockScanGenerator(scanSize)
	ds := &dataset.Dataset{Classes: append([]string(nil), dataset.DefaultClasses...)}
	for class := range ds.Classes {
		for i := 0; i < perClass; i++ {
			scan := gen.Generate(class)
			vec, err := d.Extractor().Extract(scan)
			scan.Close()
			require.NoError(t, err)
			ds.Add(vec, class, "")
		}
	}
	return ds
}

func trainedDetector(t *testing.T) *TumorDetector {
	t.Helper()
	d := newTestDetector(t)
	_, err := d.TrainOnDataset(context.Background(), syntheticDataset(t, d, 10), classifier.RandomForest)
	require.NoError(t, err)
	return d
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Highlight.Alpha = 2
	_, err := New(cfg, nil, zerolog.Nop())
	assert.Error(t, err)

	cfg = testConfig()
	cfg.Features.Size = 0
	_, err = New(cfg, nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestPredictBeforeTraining(t *testing.T) {
	d := newTestDetector(t)
	assert.False(t, d.Trained())
	assert.Equal(t, classifier.ModelType(""), d.ModelType())

	scan := test.NewMockScanGenerator(scanSize).Generate(0)
	defer scan.Close()

	_, err := d.Predict(scan)
	assert.ErrorIs(t, err, ErrModelNotTrained)

	_, err = d.PredictBytes([]byte("anything"))
	assert.ErrorIs(t, err, ErrModelNotTrained)

	_, err = d.PredictDataURL("data:image/png;base64,AAAA")
	assert.ErrorIs(t, err, ErrModelNotTrained)

	_, err = d.PredictFile("/does/not/exist.png")
	assert.ErrorIs(t, err, ErrModelNotTrained)
}

func TestTrainUnsupportedModel(t *testing.T) {
	d := trainedDetector(t)
	require.True(t, d.Trained())

	_, err := d.TrainOnDataset(context.Background(), syntheticDataset(t, d, 2), classifier.ModelType("xgboost"))
	assert.True(t, errors.Is(err, ErrConfiguration))
	assert.False(t, d.Trained(), "failed training discards the previous classifier")
	assert.Nil(t, d.LastTraining())
}

func TestTrainEmptyDataset(t *testing.T) {
	d := newTestDetector(t)
	ds := &dataset.Dataset{Classes: dataset.DefaultClasses}

	_, err := d.TrainOnDataset(context.Background(), ds, classifier.RandomForest)
	assert.ErrorIs(t, err, ErrNoData)
	assert.False(t, d.Trained())
}

func TestTrainFromLoader(t *testing.T) {
	root := t.TempDir()
	categories, err := test.NewMockScanGenerator(scanSize).WriteDataset(root, 5)
	require.NoError(t, err)

	d := newTestDetector(t)
	loader, err := dataset.NewLoader(categories, d.Extractor(), zerolog.Nop())
	require.NoError(t, err)

	res, err := d.Train(context.Background(), loader, classifier.RandomForest)
	require.NoError(t, err)

	assert.True(t, d.Trained())
	assert.Equal(t, classifier.RandomForest, d.ModelType())
	assert.Equal(t, dataset.DefaultClasses, d.Classes())
	assert.Same(t, res, d.LastTraining())
	assert.Equal(t, 15, res.TrainSize+res.TestSize)
	assert.Equal(t, d.Extractor().Length(), res.NumFeatures)
}

func TestTrainRejectsModelBeforeLoading(t *testing.T) {
	d := newTestDetector(t)
	loader, err := dataset.NewLoader(dataset.DefaultCategories(t.TempDir()), d.Extractor(), zerolog.Nop())
	require.NoError(t, err)

	_, err = d.Train(context.Background(), loader, classifier.ModelType("knn"))
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestPredictNormal(t *testing.T) {
	d := trainedDetector(t)

	scan := test.NewMockScanGeneratorWithSeed(scanSize, 7).Generate(0)
	defer scan.Close()

	res, err := d.Predict(scan)
	require.NoError(t, err)

	assert.Equal(t, dataset.ClassNormal, res.Prediction)
	assert.Equal(t, 0, res.ClassIndex)
	assert.True(t, res.IsNormal)
	assert.Nil(t, res.Binary)
	assert.Nil(t, res.Contours)
	assert.Nil(t, res.Overlay)
	assert.Nil(t, res.Regions)
	require.NotNil(t, res.Original)
	assert.Equal(t, image.Rect(0, 0, scanSize, scanSize), res.Original.Bounds())

	sum := 0.0
	for _, p := range res.Probabilities {
		sum += p
	}
	assert.InDelta(t, 1, sum, 1e-9)
	assert.Len(t, res.Probabilities, 3)
	assert.Equal(t, res.Probabilities[res.Prediction], res.Confidence)
}

func TestPredictAbnormalHighlights(t *testing.T) {
	d := trainedDetector(t)

	scan := test.NewMockScanGeneratorWithSeed(scanSize, 11).Generate(2)
	defer scan.Close()

	res, err := d.Predict(scan)
	require.NoError(t, err)

	assert.False(t, res.IsNormal)
	assert.NotEqual(t, dataset.ClassNormal, res.Prediction)
	require.NotNil(t, res.Overlay)
	require.NotNil(t, res.Binary)
	require.NotNil(t, res.Contours)
	assert.Equal(t, res.Original.Bounds(), res.Overlay.Bounds())
	assert.Equal(t, res.Original.Bounds(), res.Binary.Bounds())
	assert.NotEmpty(t, res.Regions)
	for _, r := range res.Regions {
		assert.Greater(t, r.Area, d.cfg.Highlight.MinArea)
	}
}

func TestPredictBytesAndDataURL(t *testing.T) {
	d := trainedDetector(t)
	gen := test.NewMockScanGeneratorWithSeed(scanSize, 3)

	data, err := gen.EncodePNG(1)
	require.NoError(t, err)

	fromBytes, err := d.PredictBytes(data)
	require.NoError(t, err)

	fromURL, err := d.PredictDataURL("data:image/png;base64," + base64.StdEncoding.EncodeToString(data))
	require.NoError(t, err)

	assert.Equal(t, fromBytes.Prediction, fromURL.Prediction)
	assert.Equal(t, fromBytes.Probabilities, fromURL.Probabilities)

	_, err = d.PredictBytes([]byte("not an image"))
	assert.ErrorIs(t, err, ErrExtraction)

	_, err = d.PredictDataURL("no comma here")
	assert.ErrorIs(t, err, ErrExtraction)
}

func TestPredictDeterministic(t *testing.T) {
	d := trainedDetector(t)

	scan := test.NewMockScanGeneratorWithSeed(scanSize, 5).Generate(1)
	defer scan.Close()

	first, err := d.Predict(scan)
	require.NoError(t, err)
	second, err := d.Predict(scan)
	require.NoError(t, err)

	assert.Equal(t, first.Prediction, second.Prediction)
	assert.Equal(t, first.Probabilities, second.Probabilities)
	assert.Equal(t, first.Regions, second.Regions)
}

func TestCollectMetrics(t *testing.T) {
	d := trainedDetector(t)
	gen := test.NewMockScanGeneratorWithSeed(scanSize, 9)

	for class := 0; class < 3; class++ {
		scan := gen.Generate(class)
		_, err := d.Predict(scan)
		scan.Close()
		require.NoError(t, err)
	}
	_, _ = d.PredictBytes([]byte("garbage"))

	m := d.CollectMetrics()
	assert.Equal(t, 3.0, m["predictions"])
	assert.Equal(t, 1.0, m["trained"])
	assert.LessOrEqual(t, m["predictions_abnormal"], 3.0)
}

func TestHighlighterRegions(t *testing.T) {
	h := newHighlighter(DefaultHighlightConfig())
	defer h.close()

	bgr := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(200, 200, 200, 0), 120, 120, gocv.MatTypeCV8UC3)
	defer bgr.Close()
	gocv.Circle(&bgr, image.Pt(40, 40), 15, color.RGBA{A: 255}, -1)
	gocv.Circle(&bgr, image.Pt(95, 95), 3, color.RGBA{A: 255}, -1)

	hl, err := h.run(bgr)
	require.NoError(t, err)

	require.Len(t, hl.regions, 1, "the small disc falls under MinArea")
	box := hl.regions[0].Box
	assert.InDelta(t, 40, (box.Min.X+box.Max.X)/2, 2)
	assert.InDelta(t, 40, (box.Min.Y+box.Max.Y)/2, 2)
	assert.Equal(t, image.Rect(0, 0, 120, 120), hl.overlay.Bounds())

	// Overlay keeps Alpha of the original outside the regions.
	r, _, _, _ := hl.overlay.At(110, 5).RGBA()
	assert.InDelta(t, 140, r>>8, 2)
}

func TestHighlightConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultHighlightConfig().Validate())

	cfg := DefaultHighlightConfig()
	cfg.MinArea = -1
	assert.Error(t, cfg.Validate())

	cfg = DefaultHighlightConfig()
	cfg.KernelSize = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultHighlightConfig()
	cfg.Thickness = 0
	assert.Error(t, cfg.Validate())
}
