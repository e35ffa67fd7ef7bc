package features

import (
	"image"
	"image/color"
	"math"

	"github.com/nvr-ai/go-tumorscope/images"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

var white = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// perimeterWeights maps a border pixel's neighbourhood code to its
// contribution to the perimeter estimate.
var perimeterWeights = func() [50]float64 {
	var w [50]float64
	for _, i := range []int{5, 7, 15, 17, 25, 27} {
		w[i] = 1
	}
	w[21], w[33] = math.Sqrt2, math.Sqrt2
	w[13], w[23] = (1+math.Sqrt2)/2, (1+math.Sqrt2)/2
	return w
}()

// shapeFeatures returns area, perimeter, eccentricity, equivalent diameter and
// solidity of the largest dark region of gray. A region-less image yields
// five zeros.
func shapeFeatures(seg *images.Segmenter, gray gocv.Mat) ([]float64, error) {
	mask, err := seg.Binarize(gray)
	if err != nil {
		return nil, err
	}
	defer mask.Close()
	seg.Open(&mask)

	comp, err := seg.LargestComponent(mask)
	if err != nil {
		return nil, err
	}
	if comp == nil {
		return make([]float64, ShapeLength), nil
	}
	defer comp.Close()

	px, err := images.GrayPixels(comp.Mask)
	if err != nil {
		return nil, err
	}
	rows, cols := comp.Mask.Rows(), comp.Mask.Cols()

	area := float64(comp.Area)
	perimeter := regionPerimeter(px, rows, cols)
	eccentricity := regionEccentricity(comp.Mask)
	diameter := math.Sqrt(4 * area / math.Pi)

	convexArea, err := convexHullArea(comp.Mask)
	if err != nil {
		return nil, err
	}
	solidity := 0.0
	if convexArea > 0 {
		solidity = area / float64(convexArea)
	}

	return []float64{area, perimeter, eccentricity, diameter, solidity}, nil
}

// regionPerimeter estimates the perimeter of a binary region from its
// 4-connected border pixels, weighting straight, diagonal and corner
// configurations differently.
func regionPerimeter(px []uint8, rows, cols int) float64 {
	inside := func(r, c int) bool {
		return r >= 0 && r < rows && c >= 0 && c < cols && px[r*cols+c] != 0
	}

	border := make([]bool, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if !inside(r, c) {
				continue
			}
			eroded := inside(r-1, c) && inside(r+1, c) && inside(r, c-1) && inside(r, c+1)
			border[r*cols+c] = !eroded
		}
	}
	isBorder := func(r, c int) int {
		if r < 0 || r >= rows || c < 0 || c >= cols || !border[r*cols+c] {
			return 0
		}
		return 1
	}

	total := 0.0
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if !border[r*cols+c] {
				continue
			}
			code := 1 +
				2*(isBorder(r-1, c)+isBorder(r+1, c)+isBorder(r, c-1)+isBorder(r, c+1)) +
				10*(isBorder(r-1, c-1)+isBorder(r-1, c+1)+isBorder(r+1, c-1)+isBorder(r+1, c+1))
			total += perimeterWeights[code]
		}
	}
	return total
}

// regionEccentricity is the eccentricity of the ellipse with the same second
// central moments as the region.
func regionEccentricity(region gocv.Mat) float64 {
	m := gocv.Moments(region, true)
	m00 := m["m00"]
	if m00 == 0 {
		return 0
	}
	a, b, c := m["mu20"]/m00, m["mu11"]/m00, m["mu02"]/m00

	half := (a + c) / 2
	root := math.Sqrt(((a-c)/2)*((a-c)/2) + b*b)
	l1, l2 := half+root, half-root
	if l1 <= 0 {
		return 0
	}
	return math.Sqrt(math.Max(0, 1-l2/l1))
}

// convexHullArea returns the number of pixels covered by the filled convex
// hull of the region, including the region itself.
func convexHullArea(region gocv.Mat) (int, error) {
	contours := gocv.FindContours(region, gocv.RetrievalExternal, gocv.ChainApproxNone)
	defer contours.Close()

	var pts []image.Point
	for i := 0; i < contours.Size(); i++ {
		pts = append(pts, contours.At(i).ToPoints()...)
	}
	if len(pts) == 0 {
		return 0, errors.New("region has no contour")
	}

	pv := gocv.NewPointVectorFromPoints(pts)
	defer pv.Close()

	hull := gocv.NewMat()
	defer hull.Close()
	gocv.ConvexHull(pv, &hull, true, false)

	hullPts := make([]image.Point, 0, hull.Rows())
	for i := 0; i < hull.Rows(); i++ {
		hullPts = append(hullPts, pts[hull.GetIntAt(i, 0)])
	}

	filled := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), region.Rows(), region.Cols(), gocv.MatTypeCV8UC1)
	defer filled.Close()
	if len(hullPts) >= 3 {
		poly := gocv.NewPointsVectorFromPoints([][]image.Point{hullPts})
		gocv.FillPoly(&filled, poly, white)
		poly.Close()
	}
	gocv.BitwiseOr(filled, region, &filled)

	return gocv.CountNonZero(filled), nil
}
