package features

import (
	"math"

	"github.com/nvr-ai/go-tumorscope/common"
	"gonum.org/v1/gonum/floats"
)

// lbpOffsets returns the circular sampling offsets (row, col) for P points at
// the given radius, rounded to 5 decimals so that axis-aligned samples land
// exactly on pixel centers.
func lbpOffsets(points int, radius float64) (rp, cp []float64) {
	rp = make([]float64, points)
	cp = make([]float64, points)
	for i := 0; i < points; i++ {
		theta := 2 * math.Pi * float64(i) / float64(points)
		rp[i] = round5(-radius * math.Sin(theta))
		cp[i] = round5(radius * math.Cos(theta))
	}
	return rp, cp
}

func round5(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}

// pixelAt returns the pixel value, or 0 outside the image.
func pixelAt(img []float64, rows, cols, r, c int) float64 {
	if r < 0 || r >= rows || c < 0 || c >= cols {
		return 0
	}
	return img[r*cols+c]
}

func bilinear(img []float64, rows, cols int, r, c float64) float64 {
	minR, minC := math.Floor(r), math.Floor(c)
	maxR, maxC := math.Ceil(r), math.Ceil(c)
	dr, dc := r-minR, c-minC

	topLeft := pixelAt(img, rows, cols, int(minR), int(minC))
	topRight := pixelAt(img, rows, cols, int(minR), int(maxC))
	bottomLeft := pixelAt(img, rows, cols, int(maxR), int(minC))
	bottomRight := pixelAt(img, rows, cols, int(maxR), int(maxC))

	top := (1-dc)*topLeft + dc*topRight
	bottom := (1-dc)*bottomLeft + dc*bottomRight
	return (1-dr)*top + dr*bottom
}

// lbpCodes computes the rotation-invariant uniform local binary pattern of
// every pixel. Uniform patterns (at most two 0/1 transitions along the
// sampling sequence) are coded by their number of set bits; all others get
// P + 1. Rows are coded on the calling goroutine unless workers > 1.
func lbpCodes(img []float64, rows, cols, points int, radius float64, workers int) []int {
	rp, cp := lbpOffsets(points, radius)
	codes := make([]int, rows*cols)

	codeRows := func(start, end int) {
		bits := make([]int, points)
		for r := start; r < end; r++ {
			for c := 0; c < cols; c++ {
				center := img[r*cols+c]
				for i := 0; i < points; i++ {
					texture := bilinear(img, rows, cols, float64(r)+rp[i], float64(c)+cp[i])
					if texture-center >= 0 {
						bits[i] = 1
					} else {
						bits[i] = 0
					}
				}

				changes := 0
				for i := 0; i < points-1; i++ {
					if bits[i] != bits[i+1] {
						changes++
					}
				}

				code := points + 1
				if changes <= 2 {
					code = 0
					for _, b := range bits {
						code += b
					}
				}
				codes[r*cols+c] = code
			}
		}
	}

	if workers <= 1 {
		codeRows(0, rows)
	} else {
		common.Parallel(rows, workers, codeRows)
	}
	return codes
}

// lbpHistogram returns the density histogram of LBP codes with P + 2 unit bins.
func lbpHistogram(img []float64, rows, cols, points int, radius float64, workers int) []float64 {
	hist := make([]float64, points+2)
	for _, code := range lbpCodes(img, rows, cols, points, radius, workers) {
		hist[code]++
	}
	floats.Scale(1/float64(rows*cols), hist)
	return hist
}
