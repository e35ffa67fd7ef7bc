package classifier

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// StandardScaler standardizes features to zero mean and unit variance.
// Constant features are centered but left unscaled.
type StandardScaler struct {
	Mean  []float64
	Scale []float64
}

// FitScaler computes per-feature mean and population standard deviation.
func FitScaler(X [][]float64) *StandardScaler {
	nFeatures := len(X[0])
	m := toDense(X)

	s := &StandardScaler{Mean: make([]float64, nFeatures), Scale: make([]float64, nFeatures)}
	col := make([]float64, len(X))
	for j := 0; j < nFeatures; j++ {
		mat.Col(col, j, m)
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 {
			std = 1
		}
		s.Mean[j] = mean
		s.Scale[j] = std
	}
	return s
}

// Transform returns the standardized copy of x.
func (s *StandardScaler) Transform(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.Mean[j]) / s.Scale[j]
	}
	return out
}

// TransformAll standardizes every row of X.
func (s *StandardScaler) TransformAll(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		out[i] = s.Transform(row)
	}
	return out
}

// toDense copies a row-major matrix into a mat.Dense.
func toDense(X [][]float64) *mat.Dense {
	rows, cols := len(X), len(X[0])
	data := make([]float64, 0, rows*cols)
	for _, row := range X {
		data = append(data, row...)
	}
	return mat.NewDense(rows, cols, data)
}
