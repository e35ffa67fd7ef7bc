package features

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Four-level test image with well known co-occurrence counts.
var glcmImage = []uint8{
	0, 0, 1, 1,
	0, 0, 1, 1,
	0, 2, 2, 2,
	2, 2, 3, 3,
}

func TestCooccurrenceHorizontal(t *testing.T) {
	p := cooccurrence(glcmImage, 4, 4, 4, 1, 0)

	// Directed counts [[2 2 1 0] [0 2 0 0] [0 0 3 1] [0 0 0 1]], symmetrized.
	want := mat.NewDense(4, 4, []float64{
		4, 2, 1, 0,
		2, 4, 0, 0,
		1, 0, 6, 1,
		0, 0, 1, 2,
	})
	want.Scale(1.0/24, want)
	assert.True(t, mat.EqualApprox(want, p, 1e-12))
}

func TestCooccurrenceVertical(t *testing.T) {
	p := cooccurrence(glcmImage, 4, 4, 4, 1, math.Pi/2)

	// Directed counts [[3 0 2 0] [0 2 2 0] [0 0 1 2] [0 0 0 0]], symmetrized.
	want := mat.NewDense(4, 4, []float64{
		6, 0, 2, 0,
		0, 4, 2, 0,
		2, 2, 2, 2,
		0, 0, 2, 0,
	})
	want.Scale(1.0/24, want)
	assert.True(t, mat.EqualApprox(want, p, 1e-12))
	assert.InDelta(t, 1.0, mat.Sum(p), 1e-12)
}

func TestGLCMConstantImage(t *testing.T) {
	px := make([]uint8, 16*16)
	for i := range px {
		px[i] = 77
	}

	out := glcmFeatures(px, 16, 16, 256, 1)
	require.Len(t, out, 20)
	for a := 0; a < GLCMAngles; a++ {
		assert.Equal(t, 0.0, out[a], "contrast")
		assert.Equal(t, 0.0, out[4+a], "dissimilarity")
		assert.InDelta(t, 1.0, out[8+a], 1e-12, "homogeneity")
		assert.InDelta(t, 1.0, out[12+a], 1e-12, "energy")
		assert.Equal(t, 1.0, out[16+a], "correlation of zero variance")
	}
}

func TestGLCMQuantizedLevels(t *testing.T) {
	px := []uint8{0, 255, 0, 255}
	out := glcmFeatures(px, 2, 2, 2, 1)
	require.Len(t, out, 20)
	assert.InDelta(t, 1.0, out[0], 1e-12, "horizontal pairs always differ by one level")
}

func TestLBPOffsets(t *testing.T) {
	rp, cp := lbpOffsets(24, 3)
	require.Len(t, rp, 24)

	assert.Equal(t, 0.0, math.Abs(rp[0]))
	assert.Equal(t, 3.0, cp[0])
	assert.Equal(t, -3.0, rp[6])
	assert.Equal(t, 0.0, math.Abs(cp[6]))
	assert.Equal(t, -3.0, cp[12])
}

func TestLBPConstantZeroImage(t *testing.T) {
	img := make([]float64, 20*20)
	hist := lbpHistogram(img, 20, 20, 24, 3, 1)

	require.Len(t, hist, 26)
	assert.InDelta(t, 1.0, hist[24], 1e-12, "every neighbour ties the center")
}

func TestLBPHistogramDensity(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	img := make([]float64, 32*32)
	for i := range img {
		img[i] = float64(rng.Intn(256))
	}

	hist := lbpHistogram(img, 32, 32, 24, 3, 1)
	assert.InDelta(t, 1.0, floats.Sum(hist), 1e-9)
	assert.Greater(t, hist[25], 0.0, "noise should produce non-uniform patterns")
}

func TestLBPWorkersAgree(t *testing.T) {
	assert.Equal(t, 1, DefaultConfig().Workers, "extraction is single threaded unless configured")

	rng := rand.New(rand.NewSource(7))
	img := make([]float64, 40*40)
	for i := range img {
		img[i] = float64(rng.Intn(256))
	}

	serial := lbpCodes(img, 40, 40, 24, 3, 1)
	assert.Equal(t, serial, lbpCodes(img, 40, 40, 24, 3, 0))
	assert.Equal(t, serial, lbpCodes(img, 40, 40, 24, 3, 4))
}

func TestLBPBrightCenter(t *testing.T) {
	img := make([]float64, 9*9)
	img[4*9+4] = 200

	codes := lbpCodes(img, 9, 9, 8, 1, 1)
	assert.Equal(t, 0, codes[4*9+4], "no neighbour reaches the center")
}

func TestIntensityFeatures(t *testing.T) {
	px := []float64{0, 10, 20, 30, 250, 255}

	stats := intensityStats(px)
	assert.InDelta(t, 94.1666666, stats[0], 1e-6)
	assert.Equal(t, 0.0, stats[2])
	assert.Equal(t, 255.0, stats[3])

	hist := intensityHistogram(px, 10)
	require.Len(t, hist, 10)
	assert.InDelta(t, 1.0, floats.Sum(hist), 1e-12)
	assert.InDelta(t, 3.0/6, hist[0], 1e-12, "0, 10 and 20 fall below 25.6")
	assert.InDelta(t, 1.0/6, hist[1], 1e-12)
	assert.InDelta(t, 2.0/6, hist[9], 1e-12)
}

func TestRegionPerimeter(t *testing.T) {
	single := make([]uint8, 5*5)
	single[2*5+2] = 255
	assert.Equal(t, 0.0, regionPerimeter(single, 5, 5))

	square := make([]uint8, 5*5)
	for r := 1; r <= 3; r++ {
		for c := 1; c <= 3; c++ {
			square[r*5+c] = 255
		}
	}
	assert.InDelta(t, 8.0, regionPerimeter(square, 5, 5), 1e-12)
}
