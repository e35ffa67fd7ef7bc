package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfigLength(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 65, cfg.Length())
	assert.Len(t, cfg.Names(), 65)
}

func TestLayoutBlocks(t *testing.T) {
	l := DefaultConfig().Layout()

	assert.Equal(t, Block{Offset: 0, Length: 4}, l.Intensity)
	assert.Equal(t, Block{Offset: 4, Length: 10}, l.Histogram)
	assert.Equal(t, Block{Offset: 14, Length: 20}, l.GLCM)
	assert.Equal(t, Block{Offset: 34, Length: 26}, l.LBP)
	assert.Equal(t, Block{Offset: 60, Length: 5}, l.Shape)
	assert.Equal(t, l.Intensity.Length+l.Histogram.Length+l.GLCM.Length+l.LBP.Length+l.Shape.Length, l.Length())
}

func TestConfigPoints(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LBPPoints = 0
	cfg.LBPRadius = 2
	assert.Equal(t, 16, cfg.Points())
	assert.Equal(t, 4+10+20+18+5, cfg.Length())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"tiny size", func(c *Config) { c.Size = 4 }},
		{"no bins", func(c *Config) { c.HistogramBins = 0 }},
		{"too many levels", func(c *Config) { c.GLCMLevels = 512 }},
		{"zero distance", func(c *Config) { c.GLCMDistance = 0 }},
		{"zero radius", func(c *Config) { c.LBPRadius = 0 }},
		{"negative points", func(c *Config) { c.LBPPoints = -1 }},
		{"zero kernel", func(c *Config) { c.KernelSize = 0 }},
		{"negative workers", func(c *Config) { c.Workers = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())

			_, err := NewExtractor(cfg)
			assert.Error(t, err)
		})
	}
}

func TestConfigNames(t *testing.T) {
	names := DefaultConfig().Names()
	assert.Equal(t, "intensity_mean", names[0])
	assert.Equal(t, "hist_0", names[4])
	assert.Equal(t, "glcm_contrast_0", names[14])
	assert.Equal(t, "glcm_correlation_135", names[33])
	assert.Equal(t, "lbp_25", names[59])
	assert.Equal(t, "shape_solidity", names[64])
}
