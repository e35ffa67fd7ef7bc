// Package images - This file contains the lesion segmentation functionality
// using OpenCV (via gocv).
//
// The Segmenter struct encapsulates the binarization pipeline shared by the
// shape descriptors and the region highlighter:
//  1. Otsu thresholding with inverted polarity (dark regions become foreground).
//  2. Morphological opening to suppress speckle noise.
//  3. Optional morphological closing to merge nearby fragments.
//  4. Connected component labeling or external contour extraction.
//
// Pipeline Overview:
//
// ┌──────────────────┐
// │ Grayscale Image  │
// └──────┬───────────┘
// ┌────────────────────────────┐
// │ Otsu Threshold (inverted)  │
// └──────┬─────────────────────┘
// ┌────────────────────────────┐
// │ Morphology (open, close)   │
// └──────┬─────────────────────┘
// ┌────────────────────────────────────────┐
// │ Connected Components / Contour Output  │
// └────────────────────────────────────────┘
//
// Usage:
//
//	seg := images.NewSegmenter(5)
//	defer seg.Close()
//
//	mask, err := seg.Binarize(gray)
//	seg.Open(&mask)
//	contours := seg.Contours(mask, 100)
//
// Note: You must call Close() when finished to release native resources. A
// Segmenter only reads its kernel, so it may be shared between goroutines.
package images

import (
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Segmenter holds the morphological kernel used by the segmentation pipeline.
type Segmenter struct {
	Kernel     gocv.Mat // Rectangular structuring element
	KernelSize int      // Edge length of the kernel in pixels
}

// NewSegmenter constructs a Segmenter with a kernelSize x kernelSize
// rectangular structuring element.
//
// Arguments:
//   - kernelSize: The structuring element edge. Values below 1 fall back to 5.
//
// Returns:
//   - *Segmenter: The segmenter. Always call Close() to release memory.
func NewSegmenter(kernelSize int) *Segmenter {
	if kernelSize < 1 {
		kernelSize = 5
	}
	return &Segmenter{
		Kernel:     gocv.GetStructuringElement(gocv.MorphRect, image.Pt(kernelSize, kernelSize)),
		KernelSize: kernelSize,
	}
}

// Binarize converts a grayscale image into a binary mask with Otsu's method.
// Pixels darker than the automatic threshold become foreground (255).
//
// A constant image has no Otsu split and thresholds at 0: a non-zero
// constant yields an empty mask, an all-black image a full one.
//
// Arguments:
//   - gray: A single-channel 8-bit image.
//
// Returns:
//   - gocv.Mat: The binary mask. The caller owns it.
//   - error: An error if gray is empty or not single-channel.
func (s *Segmenter) Binarize(gray gocv.Mat) (gocv.Mat, error) {
	if gray.Empty() {
		return gocv.NewMat(), errors.New("cannot binarize empty mat")
	}
	if gray.Channels() != 1 {
		return gocv.NewMat(), errors.Errorf("binarize expects a single-channel mat, got %d channels", gray.Channels())
	}

	mask := gocv.NewMat()
	gocv.Threshold(gray, &mask, 0, 255, gocv.ThresholdBinaryInv|gocv.ThresholdOtsu)
	return mask, nil
}

// Open applies a morphological opening to the mask in place.
func (s *Segmenter) Open(mask *gocv.Mat) {
	gocv.MorphologyEx(*mask, mask, gocv.MorphOpen, s.Kernel)
}

// CloseGaps applies a morphological closing to the mask in place, merging
// nearby foreground fragments.
func (s *Segmenter) CloseGaps(mask *gocv.Mat) {
	gocv.MorphologyEx(*mask, mask, gocv.MorphClose, s.Kernel)
}

// Contours extracts the external contours of the mask whose enclosed area is
// strictly greater than minArea.
//
// Arguments:
//   - mask: A binary mask.
//   - minArea: Contours with an area less than or equal to this are dropped.
//
// Returns:
//   - [][]image.Point: The surviving contours in discovery order.
func (s *Segmenter) Contours(mask gocv.Mat, minArea float64) [][]image.Point {
	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var out [][]image.Point
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		if gocv.ContourArea(contour) > minArea {
			out = append(out, contour.ToPoints())
		}
	}
	return out
}

// Component describes a single connected foreground region.
type Component struct {
	// Label is the connected component label (1-based, 0 is background).
	Label int
	// Area is the number of pixels in the region.
	Area int
	// Mask is a binary mask (255 inside the region) with the size of the source.
	Mask gocv.Mat
}

// Close releases the component mask.
func (c *Component) Close() {
	c.Mask.Close()
}

// LargestComponent labels the 8-connected foreground regions of mask and
// returns the one with the greatest pixel area. Ties go to the lowest label,
// which is the first region encountered in raster order.
//
// Arguments:
//   - mask: A binary mask.
//
// Returns:
//   - *Component: The largest region, or nil if the mask has no foreground.
//   - error: An error if labeling fails.
func (s *Segmenter) LargestComponent(mask gocv.Mat) (*Component, error) {
	if mask.Empty() {
		return nil, errors.New("cannot label empty mask")
	}
	if gocv.CountNonZero(mask) == 0 {
		return nil, nil
	}

	labels := gocv.NewMat()
	defer labels.Close()

	n := gocv.ConnectedComponents(mask, &labels)
	if n <= 1 {
		return nil, nil
	}

	rows, cols := labels.Rows(), labels.Cols()
	areas := make([]int, n)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			areas[labels.GetIntAt(r, c)]++
		}
	}

	best := 0
	for label := 1; label < n; label++ {
		if best == 0 || areas[label] > areas[best] {
			best = label
		}
	}

	data := make([]byte, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if int(labels.GetIntAt(r, c)) == best {
				data[r*cols+c] = 255
			}
		}
	}

	region, err := gocv.NewMatFromBytes(rows, cols, gocv.MatTypeCV8UC1, data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build component mask")
	}

	return &Component{Label: best, Area: areas[best], Mask: region}, nil
}

// Close releases all OpenCV native resources used by the segmenter.
func (s *Segmenter) Close() {
	s.Kernel.Close()
}
