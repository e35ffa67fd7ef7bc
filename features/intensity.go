package features

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// intensityStats returns mean, population standard deviation, min and max.
func intensityStats(px []float64) []float64 {
	mean, std := stat.PopMeanStdDev(px, nil)
	return []float64{mean, std, floats.Min(px), floats.Max(px)}
}

// intensityHistogram bins pixel values into equal-width bins over [0, 256) and
// divides each count by the number of pixels.
func intensityHistogram(px []float64, bins int) []float64 {
	sorted := make([]float64, len(px))
	copy(sorted, px)
	sort.Float64s(sorted)

	dividers := floats.Span(make([]float64, bins+1), 0, 256)
	hist := stat.Histogram(nil, dividers, sorted, nil)
	floats.Scale(1/float64(len(px)), hist)
	return hist
}
