// Package dataset builds labeled feature matrices from directories of
// ultrasound images, one directory per diagnostic category.
package dataset

import (
	"path/filepath"

	"github.com/pkg/errors"
)

// Canonical class names. Their order defines the label index; index 0 is the
// normal class.
const (
	ClassNormal    = "normal"
	ClassBenign    = "benign"
	ClassMalignant = "malignant"
)

// DefaultClasses is the ordered list of canonical class names.
var DefaultClasses = []string{ClassNormal, ClassBenign, ClassMalignant}

// Category maps a class name to the directory holding its images.
type Category struct {
	Name string `yaml:"name" json:"name"`
	Path string `yaml:"path" json:"path"`
}

// DefaultCategories maps each canonical class to <root>/<class>.
func DefaultCategories(root string) []Category {
	out := make([]Category, len(DefaultClasses))
	for i, name := range DefaultClasses {
		out[i] = Category{Name: name, Path: filepath.Join(root, name)}
	}
	return out
}

// ValidateCategories checks that categories are non-empty and uniquely named.
func ValidateCategories(categories []Category) error {
	if len(categories) == 0 {
		return errors.New("dataset: at least one category is required")
	}
	seen := make(map[string]bool, len(categories))
	for i, c := range categories {
		if c.Name == "" {
			return errors.Errorf("dataset: category %d has no name", i)
		}
		if c.Path == "" {
			return errors.Errorf("dataset: category %q has no path", c.Name)
		}
		if seen[c.Name] {
			return errors.Errorf("dataset: duplicate category %q", c.Name)
		}
		seen[c.Name] = true
	}
	return nil
}

// Dataset is a labeled feature matrix. Y[i] indexes Classes and labels the
// feature row X[i], extracted from Paths[i].
type Dataset struct {
	X       [][]float64
	Y       []int
	Classes []string
	Paths   []string
}

// Len returns the number of samples.
func (d *Dataset) Len() int { return len(d.X) }

// Empty reports whether the dataset has no samples.
func (d *Dataset) Empty() bool { return len(d.X) == 0 }

// Counts returns the number of samples per class index.
func (d *Dataset) Counts() []int {
	counts := make([]int, len(d.Classes))
	for _, y := range d.Y {
		if y >= 0 && y < len(counts) {
			counts[y]++
		}
	}
	return counts
}

// Add appends a sample.
func (d *Dataset) Add(x []float64, y int, path string) {
	d.X = append(d.X, x)
	d.Y = append(d.Y, y)
	d.Paths = append(d.Paths, path)
}
