package features

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/floats"
)

var dark = color.RGBA{R: 20, G: 20, B: 20, A: 255}

func newExtractor(t *testing.T) *Extractor {
	t.Helper()
	ext, err := NewExtractor(DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(ext.Close)
	return ext
}

// newEllipseImage draws a dark filled ellipse on a bright BGR background.
func newEllipseImage(width, height int, axes image.Point) gocv.Mat {
	mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(200, 200, 200, 0), height, width, gocv.MatTypeCV8UC3)
	gocv.Ellipse(&mat, image.Pt(width/2, height/2), axes, 0, 0, 360, dark, -1)
	return mat
}

func TestExtractLength(t *testing.T) {
	ext := newExtractor(t)

	for _, size := range []image.Point{{224, 224}, {640, 480}, {97, 311}} {
		img := newEllipseImage(size.X, size.Y, image.Pt(size.X/4, size.Y/5))
		vec, err := ext.Extract(img)
		img.Close()

		require.NoError(t, err)
		assert.Len(t, vec, 65, "vector length must not depend on input size %v", size)
	}
}

func TestExtractDeterministic(t *testing.T) {
	ext := newExtractor(t)
	img := newEllipseImage(300, 200, image.Pt(70, 40))
	defer img.Close()

	a, err := ext.Extract(img)
	require.NoError(t, err)
	b, err := ext.Extract(img)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestExtractSolidGray(t *testing.T) {
	ext := newExtractor(t)
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(128, 128, 128, 0), 224, 224, gocv.MatTypeCV8UC3)
	defer img.Close()

	vec, err := ext.Extract(img)
	require.NoError(t, err)
	l := ext.Layout()

	assert.Equal(t, []float64{128, 0, 128, 128}, []float64(vec[l.Intensity.Offset:l.Intensity.End()]))

	hist := vec[l.Histogram.Offset:l.Histogram.End()]
	assert.InDelta(t, 1.0, floats.Sum(hist), 1e-6)
	assert.Equal(t, 1.0, hist[5], "128 falls in the sixth bin")

	glcm := vec[l.GLCM.Offset:l.GLCM.End()]
	for a := 0; a < GLCMAngles; a++ {
		assert.Equal(t, 0.0, glcm[a], "contrast")
		assert.Equal(t, 1.0, glcm[16+a], "correlation")
	}

	assert.InDelta(t, 1.0, floats.Sum(vec[l.LBP.Offset:l.LBP.End()]), 1e-9)
	assert.Equal(t, []float64{0, 0, 0, 0, 0}, []float64(vec[l.Shape.Offset:l.Shape.End()]), "no region in a constant image")
}

func TestExtractEllipseShape(t *testing.T) {
	ext := newExtractor(t)
	img := newEllipseImage(224, 224, image.Pt(60, 30))
	defer img.Close()

	vec, err := ext.Extract(img)
	require.NoError(t, err)
	shape := vec[ext.Layout().Shape.Offset:]

	area := math.Pi * 60 * 30
	assert.InEpsilon(t, area, shape[0], 0.03, "area")
	assert.InEpsilon(t, math.Pi*(3*(60+30)-math.Sqrt((3*60+30)*(60+3*30))), shape[1], 0.08, "perimeter")
	assert.InDelta(t, math.Sqrt(1-0.25), shape[2], 0.02, "eccentricity")
	assert.InEpsilon(t, math.Sqrt(4*shape[0]/math.Pi), shape[3], 1e-9, "equivalent diameter")
	assert.Greater(t, shape[4], 0.95, "solidity of a convex region")
	assert.LessOrEqual(t, shape[4], 1.0)
}

func TestExtractChannelLayouts(t *testing.T) {
	ext := newExtractor(t)

	bgr := newEllipseImage(224, 224, image.Pt(50, 50))
	defer bgr.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(bgr, &gray, gocv.ColorBGRToGray)

	bgra := gocv.NewMat()
	defer bgra.Close()
	gocv.CvtColor(bgr, &bgra, gocv.ColorBGRToBGRA)

	want, err := ext.Extract(bgr)
	require.NoError(t, err)

	for name, mat := range map[string]gocv.Mat{"gray": gray, "bgra": bgra} {
		got, err := ext.Extract(mat)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}

func TestExtractImage(t *testing.T) {
	ext := newExtractor(t)

	img := image.NewGray(image.Rect(0, 0, 64, 48))
	for i := range img.Pix {
		img.Pix[i] = uint8(i % 251)
	}

	vec, err := ext.ExtractImage(img)
	require.NoError(t, err)
	assert.Len(t, vec, 65)

	_, err = ext.ExtractImage(nil)
	assert.True(t, errors.Is(err, ErrExtraction))
}

func TestExtractErrors(t *testing.T) {
	ext := newExtractor(t)

	empty := gocv.NewMat()
	defer empty.Close()
	_, err := ext.Extract(empty)
	assert.True(t, errors.Is(err, ErrExtraction))

	_, err = ext.ExtractBytes([]byte("definitely not an image"))
	assert.True(t, errors.Is(err, ErrExtraction))

	_, err = ext.ExtractFile("does/not/exist.png")
	assert.True(t, errors.Is(err, ErrExtraction))
}
