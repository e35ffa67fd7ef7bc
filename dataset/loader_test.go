package dataset

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvr-ai/go-tumorscope/features"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExtractor returns the file size as a one-element vector and fails on
// files whose name contains "corrupt".
type fakeExtractor struct {
	calls []string
}

func (f *fakeExtractor) ExtractFile(path string) (features.FeatureVector, error) {
	f.calls = append(f.calls, filepath.Base(path))
	if strings.Contains(path, "corrupt") {
		return nil, errors.Wrap(features.ErrExtraction, "corrupt file")
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return features.FeatureVector{float64(info.Size())}, nil
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644))
	}
}

func TestListImageFiles(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "c.PNG", "a.jpg", "b.jpeg", "notes.txt", "d.bmp")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.png"), 0o755))

	files, err := ListImageFiles(dir)
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"a.jpg", "b.jpeg", "c.PNG"}, names)

	_, err = ListImageFiles(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestDefaultCategories(t *testing.T) {
	cats := DefaultCategories("/data")
	require.Len(t, cats, 3)
	assert.Equal(t, Category{Name: "normal", Path: filepath.Join("/data", "normal")}, cats[0])
	assert.Equal(t, "malignant", cats[2].Name)
}

func TestValidateCategories(t *testing.T) {
	tests := []struct {
		name string
		cats []Category
		ok   bool
	}{
		{"default", DefaultCategories("root"), true},
		{"empty", nil, false},
		{"missing name", []Category{{Path: "x"}}, false},
		{"missing path", []Category{{Name: "x"}}, false},
		{"duplicate", []Category{{Name: "a", Path: "1"}, {Name: "a", Path: "2"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCategories(tt.cats)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestLoaderLoad(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, filepath.Join(root, "normal"), "n2.png", "n1.png", "readme.md")
	writeFiles(t, filepath.Join(root, "benign"), "b1.jpg", "corrupt.png", "b22.JPG")
	// malignant directory is missing on purpose.

	var logs bytes.Buffer
	ext := &fakeExtractor{}
	loader, err := NewLoader(DefaultCategories(root), ext, zerolog.New(&logs))
	require.NoError(t, err)

	ds, err := loader.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"normal", "benign", "malignant"}, ds.Classes)
	assert.Equal(t, 4, ds.Len())
	assert.Equal(t, []int{0, 0, 1, 1}, ds.Y)
	assert.Equal(t, []int{2, 2, 0}, ds.Counts())
	assert.Equal(t, "n1.png", filepath.Base(ds.Paths[0]), "files load in name order")
	assert.Equal(t, []float64{6}, ds.X[2], "fake vector is the file size")

	assert.Equal(t, []string{"n1.png", "n2.png", "b1.jpg", "b22.JPG", "corrupt.png"}, ext.calls)
	assert.Contains(t, logs.String(), "skipping non-existent category")
	assert.Contains(t, logs.String(), "skipping image")
}

func TestLoaderEmpty(t *testing.T) {
	loader, err := NewLoader(DefaultCategories(t.TempDir()), &fakeExtractor{}, zerolog.Nop())
	require.NoError(t, err)

	ds, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, ds.Empty())
	assert.Equal(t, []int{0, 0, 0}, ds.Counts())
}

func TestLoaderProgress(t *testing.T) {
	root := t.TempDir()
	var names []string
	for i := 0; i < 25; i++ {
		names = append(names, "img"+string(rune('a'+i))+".png")
	}
	writeFiles(t, filepath.Join(root, "normal"), names...)

	var logs bytes.Buffer
	loader, err := NewLoader([]Category{{Name: "normal", Path: filepath.Join(root, "normal")}}, &fakeExtractor{}, zerolog.New(&logs))
	require.NoError(t, err)

	ds, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 25, ds.Len())
	assert.Equal(t, 2, strings.Count(logs.String(), `"message":"progress"`))
}

func TestLoaderCancelled(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, filepath.Join(root, "normal"), "a.png")

	loader, err := NewLoader(DefaultCategories(root), &fakeExtractor{}, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = loader.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
