package features

import (
	"image"

	"github.com/nvr-ai/go-tumorscope/images"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// ErrExtraction is returned (wrapped) when an image cannot be turned into a
// feature vector: empty or undecodable input, unsupported channel layout or a
// failed conversion.
var ErrExtraction = errors.New("feature extraction failed")

// FeatureVector is a fixed-length feature vector laid out as described by
// Config.Layout.
type FeatureVector []float64

// Extractor computes feature vectors. It holds no per-image state and is safe
// for concurrent use.
type Extractor struct {
	cfg    Config
	layout Layout
	seg    *images.Segmenter
}

// NewExtractor constructs an Extractor.
//
// Arguments:
//   - cfg: The extractor configuration.
//
// Returns:
//   - *Extractor: The extractor. Always call Close() to release native resources.
//   - error: An error if the configuration is invalid.
//
// @example
//
//	ext, err := features.NewExtractor(features.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer ext.Close()
//
//	vec, err := ext.ExtractFile("scan.png")
func NewExtractor(cfg Config) (*Extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Extractor{
		cfg:    cfg,
		layout: cfg.Layout(),
		seg:    images.NewSegmenter(cfg.KernelSize),
	}, nil
}

// Config returns the extractor configuration.
func (e *Extractor) Config() Config { return e.cfg }

// Layout returns the block layout of produced vectors.
func (e *Extractor) Layout() Layout { return e.layout }

// Length returns the length of produced vectors.
func (e *Extractor) Length() int { return e.layout.Length() }

// Extract computes the feature vector of a 1, 3 (BGR) or 4 (BGRA) channel image.
//
// The image is converted to grayscale and resized to Size x Size before any
// statistic is taken, so vectors of differently sized inputs are comparable.
//
// Arguments:
//   - img: The source image of any size.
//
// Returns:
//   - FeatureVector: The vector, of length Length().
//   - error: ErrExtraction (wrapped) if the image cannot be processed.
func (e *Extractor) Extract(img gocv.Mat) (FeatureVector, error) {
	if img.Empty() {
		return nil, errors.Wrap(ErrExtraction, "empty image")
	}

	gray, err := images.ToGray(img)
	if err != nil {
		return nil, errors.Wrapf(ErrExtraction, "grayscale: %v", err)
	}
	defer gray.Close()

	canonical, err := images.ResizeSquare(gray, e.cfg.Size)
	if err != nil {
		return nil, errors.Wrapf(ErrExtraction, "resize: %v", err)
	}
	defer canonical.Close()

	px, err := images.GrayPixels(canonical)
	if err != nil {
		return nil, errors.Wrapf(ErrExtraction, "read pixels: %v", err)
	}
	values := make([]float64, len(px))
	for i, v := range px {
		values[i] = float64(v)
	}

	size := e.cfg.Size
	vec := make(FeatureVector, 0, e.layout.Length())
	vec = append(vec, intensityStats(values)...)
	vec = append(vec, intensityHistogram(values, e.cfg.HistogramBins)...)
	vec = append(vec, glcmFeatures(px, size, size, e.cfg.GLCMLevels, e.cfg.GLCMDistance)...)
	vec = append(vec, lbpHistogram(values, size, size, e.cfg.Points(), float64(e.cfg.LBPRadius), e.cfg.Workers)...)

	shape, err := shapeFeatures(e.seg, canonical)
	if err != nil {
		return nil, errors.Wrapf(ErrExtraction, "shape: %v", err)
	}
	vec = append(vec, shape...)

	if len(vec) != e.layout.Length() {
		return nil, errors.Wrapf(ErrExtraction, "vector length %d, expected %d", len(vec), e.layout.Length())
	}
	return vec, nil
}

// ExtractBytes decodes encoded image bytes and extracts their features.
func (e *Extractor) ExtractBytes(data []byte) (FeatureVector, error) {
	mat, err := images.Decode(data)
	if err != nil {
		return nil, errors.Wrapf(ErrExtraction, "%v", err)
	}
	defer mat.Close()
	return e.Extract(mat)
}

// ExtractFile reads an image file and extracts its features.
func (e *Extractor) ExtractFile(path string) (FeatureVector, error) {
	mat, err := images.Read(path)
	if err != nil {
		return nil, errors.Wrapf(ErrExtraction, "%v", err)
	}
	defer mat.Close()
	return e.Extract(mat)
}

// ExtractImage extracts the features of a Go image.
func (e *Extractor) ExtractImage(img image.Image) (FeatureVector, error) {
	if img == nil {
		return nil, errors.Wrap(ErrExtraction, "nil image")
	}

	var (
		mat gocv.Mat
		err error
	)
	if g, ok := img.(*image.Gray); ok {
		b := g.Bounds()
		mat, err = gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8UC1, packGray(g))
	} else {
		mat, err = gocv.ImageToMatRGB(img)
	}
	if err != nil {
		return nil, errors.Wrapf(ErrExtraction, "convert image: %v", err)
	}
	defer mat.Close()
	return e.Extract(mat)
}

// packGray returns the gray pixels without row padding.
func packGray(g *image.Gray) []byte {
	b := g.Bounds()
	out := make([]byte, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		start := g.PixOffset(b.Min.X, y)
		out = append(out, g.Pix[start:start+b.Dx()]...)
	}
	return out
}

// Close releases the native resources held by the extractor.
func (e *Extractor) Close() {
	e.seg.Close()
}
