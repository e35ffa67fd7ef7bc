// Package features turns an ultrasound image into a fixed-length numeric
// feature vector made of intensity statistics, a coarse intensity histogram,
// GLCM texture properties, a local binary pattern histogram and shape
// descriptors of the largest dark region.
package features

import (
	"strconv"

	"github.com/pkg/errors"
)

// GLCMAngles is the number of co-occurrence directions (0, 45, 90, 135 degrees).
const GLCMAngles = 4

// GLCMProperties is the number of properties computed per direction.
const GLCMProperties = 5

// IntensityLength is the number of first-order intensity statistics.
const IntensityLength = 4

// ShapeLength is the number of shape descriptors.
const ShapeLength = 5

// Config controls the feature extractor. Feature vectors are comparable only
// when they were produced with the same Config.
type Config struct {
	// Size is the edge of the square canonical image all inputs are resized to.
	Size int `yaml:"size" json:"size"`
	// HistogramBins is the number of intensity histogram bins over [0, 256).
	HistogramBins int `yaml:"histogram_bins" json:"histogram_bins"`
	// GLCMLevels is the number of gray levels of the co-occurrence matrix.
	GLCMLevels int `yaml:"glcm_levels" json:"glcm_levels"`
	// GLCMDistance is the pixel pair distance of the co-occurrence matrix.
	GLCMDistance int `yaml:"glcm_distance" json:"glcm_distance"`
	// LBPRadius is the sampling radius of the local binary pattern.
	LBPRadius int `yaml:"lbp_radius" json:"lbp_radius"`
	// LBPPoints is the number of LBP sampling points. Zero means 8 * LBPRadius.
	LBPPoints int `yaml:"lbp_points" json:"lbp_points"`
	// KernelSize is the edge of the opening kernel used before shape analysis.
	KernelSize int `yaml:"kernel_size" json:"kernel_size"`
	// Workers bounds the goroutines coding LBP rows within one extraction.
	// Zero and one extract on the calling goroutine.
	Workers int `yaml:"workers" json:"workers"`
}

// DefaultConfig returns the canonical extractor configuration, which yields
// 65-element vectors.
func DefaultConfig() Config {
	return Config{
		Size:          224,
		HistogramBins: 10,
		GLCMLevels:    256,
		GLCMDistance:  1,
		LBPRadius:     3,
		LBPPoints:     24,
		KernelSize:    5,
		Workers:       1,
	}
}

// Points returns the effective number of LBP sampling points.
func (c Config) Points() int {
	if c.LBPPoints > 0 {
		return c.LBPPoints
	}
	return 8 * c.LBPRadius
}

// Validate checks the configuration for values the extractor cannot handle.
func (c Config) Validate() error {
	switch {
	case c.Size < 8:
		return errors.Errorf("features: size must be at least 8, got %d", c.Size)
	case c.HistogramBins < 1:
		return errors.Errorf("features: histogram_bins must be positive, got %d", c.HistogramBins)
	case c.GLCMLevels < 2 || c.GLCMLevels > 256:
		return errors.Errorf("features: glcm_levels must be in [2, 256], got %d", c.GLCMLevels)
	case c.GLCMDistance < 1 || c.GLCMDistance >= c.Size:
		return errors.Errorf("features: glcm_distance must be in [1, size), got %d", c.GLCMDistance)
	case c.LBPRadius < 1 || c.LBPRadius >= c.Size/2:
		return errors.Errorf("features: lbp_radius must be in [1, size/2), got %d", c.LBPRadius)
	case c.LBPPoints < 0 || c.LBPPoints > 64:
		return errors.Errorf("features: lbp_points must be in [0, 64], got %d", c.LBPPoints)
	case c.KernelSize < 1:
		return errors.Errorf("features: kernel_size must be positive, got %d", c.KernelSize)
	case c.Workers < 0:
		return errors.Errorf("features: workers must not be negative, got %d", c.Workers)
	}
	return nil
}

// Block is a contiguous range of a feature vector.
type Block struct {
	Offset int `json:"offset"`
	Length int `json:"length"`
}

// End returns the exclusive end index of the block.
func (b Block) End() int { return b.Offset + b.Length }

// Layout names the blocks of a feature vector in extraction order.
type Layout struct {
	Intensity Block `json:"intensity"`
	Histogram Block `json:"histogram"`
	GLCM      Block `json:"glcm"`
	LBP       Block `json:"lbp"`
	Shape     Block `json:"shape"`
}

// Length returns the total feature vector length.
func (l Layout) Length() int { return l.Shape.End() }

// Layout returns the block layout of vectors produced with this config.
func (c Config) Layout() Layout {
	var l Layout
	offset := 0
	next := func(n int) Block {
		b := Block{Offset: offset, Length: n}
		offset += n
		return b
	}
	l.Intensity = next(IntensityLength)
	l.Histogram = next(c.HistogramBins)
	l.GLCM = next(GLCMAngles * GLCMProperties)
	l.LBP = next(c.Points() + 2)
	l.Shape = next(ShapeLength)
	return l
}

// Length returns the feature vector length for this config.
func (c Config) Length() int { return c.Layout().Length() }

// Names returns a human readable name for every feature index, used when
// reporting feature importances.
func (c Config) Names() []string {
	names := make([]string, 0, c.Length())
	names = append(names, "intensity_mean", "intensity_std", "intensity_min", "intensity_max")
	for i := 0; i < c.HistogramBins; i++ {
		names = append(names, "hist_"+strconv.Itoa(i))
	}
	angles := []string{"0", "45", "90", "135"}
	for _, prop := range []string{"contrast", "dissimilarity", "homogeneity", "energy", "correlation"} {
		for _, a := range angles {
			names = append(names, "glcm_"+prop+"_"+a)
		}
	}
	for i := 0; i < c.Points()+2; i++ {
		names = append(names, "lbp_"+strconv.Itoa(i))
	}
	names = append(names, "shape_area", "shape_perimeter", "shape_eccentricity", "shape_equivalent_diameter", "shape_solidity")
	return names
}
