package detector

import (
	"image"
	"image/color"

	"github.com/nvr-ai/go-tumorscope/common"
	"github.com/nvr-ai/go-tumorscope/images"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// HighlightConfig controls the suspicious region overlay.
type HighlightConfig struct {
	// MinArea drops contours whose area is less than or equal to it.
	MinArea float64 `yaml:"min_area" json:"min_area"`
	// Alpha is the weight of the original image in the overlay blend; the
	// region mask gets 1 - Alpha.
	Alpha float64 `yaml:"alpha" json:"alpha"`
	// KernelSize is the edge of the opening/closing structuring element.
	KernelSize int `yaml:"kernel_size" json:"kernel_size"`
	// Thickness is the contour line width.
	Thickness int `yaml:"thickness" json:"thickness"`
	// Color is the highlight color.
	Color color.RGBA `yaml:"-" json:"-"`
}

// DefaultHighlightConfig returns red contours of width 2 around regions
// larger than 100 pixels, blended 70/30 with the original.
func DefaultHighlightConfig() HighlightConfig {
	return HighlightConfig{
		MinArea:    100,
		Alpha:      0.7,
		KernelSize: 5,
		Thickness:  2,
		Color:      color.RGBA{R: 255, G: 0, B: 0, A: 255},
	}
}

// Validate checks the highlight configuration.
func (c HighlightConfig) Validate() error {
	switch {
	case c.MinArea < 0:
		return errors.Errorf("highlight: min_area must not be negative, got %v", c.MinArea)
	case c.Alpha < 0 || c.Alpha > 1:
		return errors.Errorf("highlight: alpha must be in [0, 1], got %v", c.Alpha)
	case c.KernelSize < 1:
		return errors.Errorf("highlight: kernel_size must be positive, got %d", c.KernelSize)
	case c.Thickness < 1:
		return errors.Errorf("highlight: thickness must be positive, got %d", c.Thickness)
	}
	return nil
}

// highlighter derives the binary mask, contour drawing and overlay of the
// dark regions of an image. It only reads its kernel and is safe for
// concurrent use.
type highlighter struct {
	cfg HighlightConfig
	seg *images.Segmenter
}

func newHighlighter(cfg HighlightConfig) *highlighter {
	return &highlighter{cfg: cfg, seg: images.NewSegmenter(cfg.KernelSize)}
}

// highlight holds the images produced for a non-normal prediction.
type highlight struct {
	binary   image.Image
	contours image.Image
	overlay  image.Image
	regions  []common.Region
}

// run segments a full resolution BGR image: Otsu (dark foreground), opening
// then closing, external contours above MinArea drawn on a copy of the image
// and filled into a mask that is alpha-blended onto the original.
func (h *highlighter) run(bgr gocv.Mat) (*highlight, error) {
	gray, err := images.ToGray(bgr)
	if err != nil {
		return nil, err
	}
	defer gray.Close()

	mask, err := h.seg.Binarize(gray)
	if err != nil {
		return nil, err
	}
	defer mask.Close()
	h.seg.Open(&mask)
	h.seg.CloseGaps(&mask)

	contours := h.seg.Contours(mask, h.cfg.MinArea)

	drawn := bgr.Clone()
	defer drawn.Close()
	filled := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), bgr.Rows(), bgr.Cols(), gocv.MatTypeCV8UC3)
	defer filled.Close()

	var regions []common.Region
	if len(contours) > 0 {
		pv := gocv.NewPointsVectorFromPoints(contours)
		defer pv.Close()
		gocv.DrawContours(&drawn, pv, -1, h.cfg.Color, h.cfg.Thickness)
		gocv.DrawContours(&filled, pv, -1, h.cfg.Color, -1)

		for i := 0; i < pv.Size(); i++ {
			contour := pv.At(i)
			regions = append(regions, common.NewRegion(gocv.BoundingRect(contour), gocv.ContourArea(contour)))
		}
	}

	overlay := gocv.NewMat()
	defer overlay.Close()
	gocv.AddWeighted(bgr, h.cfg.Alpha, filled, 1-h.cfg.Alpha, 0, &overlay)

	out := &highlight{regions: regions}
	if out.binary, err = images.MatToImage(mask); err != nil {
		return nil, err
	}
	if out.contours, err = images.MatToImage(drawn); err != nil {
		return nil, err
	}
	if out.overlay, err = images.MatToImage(overlay); err != nil {
		return nil, err
	}
	return out, nil
}

func (h *highlighter) close() {
	h.seg.Close()
}
