package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nvr-ai/go-tumorscope/classifier"
	"github.com/nvr-ai/go-tumorscope/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, classifier.RandomForest, cfg.Training.Model)
	assert.Equal(t, 224, cfg.Features.Size)
	assert.Equal(t, 100.0, cfg.Highlight.MinArea)
	assert.Equal(t, int64(16<<20), cfg.Server.MaxBodyBytes)

	cats := cfg.Categories()
	require.Len(t, cats, 3)
	assert.Equal(t, dataset.ClassNormal, cats[0].Name)
	assert.Equal(t, filepath.Join("Dataset_BUSI_with_GT", "normal"), cats[0].Path)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":8080"
  forward:
    url: http://localhost:5001/save
    api_key: k
    timeout: 2s
dataset:
  categories:
    - {name: normal, path: /data/n}
    - {name: malignant, path: /data/m}
model:
  type: svm
  c: 10
features:
  size: 128
logging:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 2*time.Second, cfg.Server.Forward.Timeout)
	assert.Equal(t, "k", cfg.Server.Forward.APIKey)
	assert.Equal(t, classifier.SVM, cfg.Training.Model)
	assert.Equal(t, 10.0, cfg.Training.C)
	assert.Equal(t, 100, cfg.Training.NumTrees, "unset fields keep defaults")
	assert.Equal(t, 128, cfg.Features.Size)
	assert.Equal(t, 24, cfg.Features.LBPPoints)
	assert.Equal(t, "debug", cfg.Logging.Level)

	assert.Equal(t, []dataset.Category{
		{Name: "normal", Path: "/data/n"},
		{Name: "malignant", Path: "/data/m"},
	}, cfg.Categories())
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad yaml", "server: ["},
		{"bad model", "model: {type: knn}"},
		{"bad feature size", "features: {size: 2}"},
		{"bad alpha", "highlight: {alpha: 3}"},
		{"bad level", "logging: {level: loud}"},
		{"duplicate category", "dataset: {categories: [{name: a, path: x}, {name: a, path: y}]}"},
		{"empty addr", "server: {addr: \"\"}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
