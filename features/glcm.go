package features

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// glcmAngles are the co-occurrence directions in radians.
var glcmAngles = [GLCMAngles]float64{0, math.Pi / 4, math.Pi / 2, 3 * math.Pi / 4}

// cooccurrence builds the symmetric, normalized gray-level co-occurrence
// matrix of a quantized image for one direction. The neighbour of (r, c) is
// (r + round(sin(angle)*d), c + round(cos(angle)*d)); pairs falling outside the
// image are ignored.
func cooccurrence(levels []uint8, rows, cols, nLevels, distance int, angle float64) *mat.Dense {
	dr := int(math.Round(math.Sin(angle) * float64(distance)))
	dc := int(math.Round(math.Cos(angle) * float64(distance)))

	counts := make([]float64, nLevels*nLevels)
	for r := max(0, -dr); r < min(rows, rows-dr); r++ {
		for c := max(0, -dc); c < min(cols, cols-dc); c++ {
			i := int(levels[r*cols+c])
			j := int(levels[(r+dr)*cols+c+dc])
			counts[i*nLevels+j]++
		}
	}

	p := mat.NewDense(nLevels, nLevels, counts)
	var sym mat.Dense
	sym.Add(p, p.T())
	if total := mat.Sum(&sym); total > 0 {
		sym.Scale(1/total, &sym)
	}
	return &sym
}

// glcmProps holds the texture properties of one co-occurrence matrix.
type glcmProps struct {
	contrast, dissimilarity, homogeneity, energy, correlation float64
}

func properties(p *mat.Dense) glcmProps {
	n, _ := p.Dims()
	var out glcmProps
	var asm, muI, muJ float64

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := p.At(i, j)
			if v == 0 {
				continue
			}
			d := float64(i - j)
			out.contrast += v * d * d
			out.dissimilarity += v * math.Abs(d)
			out.homogeneity += v / (1 + d*d)
			asm += v * v
			muI += v * float64(i)
			muJ += v * float64(j)
		}
	}
	out.energy = math.Sqrt(asm)

	var varI, varJ, cov float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := p.At(i, j)
			if v == 0 {
				continue
			}
			di, dj := float64(i)-muI, float64(j)-muJ
			varI += v * di * di
			varJ += v * dj * dj
			cov += v * di * dj
		}
	}
	stdI, stdJ := math.Sqrt(varI), math.Sqrt(varJ)
	if stdI < 1e-15 || stdJ < 1e-15 {
		out.correlation = 1
	} else {
		out.correlation = cov / (stdI * stdJ)
	}
	return out
}

// glcmFeatures returns contrast, dissimilarity, homogeneity, energy and
// correlation for each direction, property-major and angle-minor.
func glcmFeatures(px []uint8, rows, cols, nLevels, distance int) []float64 {
	levels := px
	if nLevels < 256 {
		levels = make([]uint8, len(px))
		for i, v := range px {
			levels[i] = uint8(int(v) * nLevels / 256)
		}
	}

	var props [GLCMAngles]glcmProps
	for a, angle := range glcmAngles {
		props[a] = properties(cooccurrence(levels, rows, cols, nLevels, distance, angle))
	}

	out := make([]float64, 0, GLCMAngles*GLCMProperties)
	for _, get := range []func(glcmProps) float64{
		func(p glcmProps) float64 { return p.contrast },
		func(p glcmProps) float64 { return p.dissimilarity },
		func(p glcmProps) float64 { return p.homogeneity },
		func(p glcmProps) float64 { return p.energy },
		func(p glcmProps) float64 { return p.correlation },
	} {
		for a := range props {
			out = append(out, get(props[a]))
		}
	}
	return out
}
