// Package common holds small types and helpers shared by the detector, the
// classifier and the HTTP layer.
package common

import (
	"fmt"
	"image"
)

// Region describes one highlighted suspicious region of an image.
type Region struct {
	// Box is the axis-aligned bounding rectangle of the region contour.
	Box image.Rectangle `json:"-"`
	// Area is the contour area in pixels.
	Area float64 `json:"area"`
	// X1, Y1, X2, Y2 mirror Box for serialization.
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// NewRegion builds a Region from its bounding rectangle and contour area.
func NewRegion(box image.Rectangle, area float64) Region {
	box = box.Canon()
	return Region{Box: box, Area: area, X1: box.Min.X, Y1: box.Min.Y, X2: box.Max.X, Y2: box.Max.Y}
}

// String formats the region for display.
//
// Returns:
// - A formatted string containing the area and coordinates.
//
// @example
// r := NewRegion(image.Rect(10, 20, 110, 70), 4200)
// fmt.Println(r.String()) // Region (area 4200.0): (10, 20), (110, 70)
func (r Region) String() string {
	return fmt.Sprintf("Region (area %.1f): (%d, %d), (%d, %d)", r.Area, r.X1, r.Y1, r.X2, r.Y2)
}

// Intersection calculates the intersection area between two region boxes.
//
// Arguments:
// - other: The other region.
//
// Returns:
// - The area of intersection in pixels.
func (r Region) Intersection(other Region) int {
	size := r.Box.Intersect(other.Box).Size()
	return size.X * size.Y
}

// IoU calculates the Intersection over Union of two region boxes.
//
// @example
// a := NewRegion(image.Rect(0, 0, 100, 100), 0)
// b := NewRegion(image.Rect(50, 50, 150, 150), 0)
// iou := a.IoU(b) // ~0.143 (2500/17500)
func (r Region) IoU(other Region) float64 {
	inter := r.Intersection(other)
	s1, s2 := r.Box.Size(), other.Box.Size()
	union := s1.X*s1.Y + s2.X*s2.Y - inter
	if union <= 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
