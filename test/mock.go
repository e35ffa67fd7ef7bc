// Package test provides deterministic synthetic ultrasound images and the
// end-to-end tests of the training and prediction pipeline.
package test

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/nvr-ai/go-tumorscope/dataset"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// DefaultSeed makes generated scans reproducible across runs.
const DefaultSeed = 42

// MockScanGenerator creates deterministic ultrasound-like scans: a speckled
// background that darkens with depth, optionally with a hypoechoic lesion.
// Benign lesions are smooth ellipses; malignant ones are irregular spiculated
// polygons with a heterogeneous interior.
//
// Arguments:
// - None.
//
// Returns:
// - A generator for labeled synthetic scans.
//
// @example
// gen := NewMockScanGenerator(160)
// scan := gen.Generate(1)
// defer scan.Close()
type MockScanGenerator struct {
	size int
	rng  *rand.Rand
}

// NewMockScanGenerator creates a generator of size x size scans seeded with
// DefaultSeed.
//
// Arguments:
// - size: Scan edge in pixels.
//
// Returns:
// - A configured MockScanGenerator instance.
//
// @example
// gen := NewMockScanGenerator(128)
func NewMockScanGenerator(size int) *MockScanGenerator {
	return NewMockScanGeneratorWithSeed(size, DefaultSeed)
}

// NewMockScanGeneratorWithSeed creates a generator with an explicit seed.
func NewMockScanGeneratorWithSeed(size int, seed int64) *MockScanGenerator {
	return &MockScanGenerator{size: size, rng: rand.New(rand.NewSource(seed))}
}

// Generate returns a 3-channel BGR scan of the given class: 0 normal,
// 1 benign, 2 malignant.
//
// Arguments:
// - class: The class label index.
//
// Returns:
// - A BGR Mat the caller must Close.
//
// @example
// scan := gen.Generate(2)
// defer scan.Close()
func (g *MockScanGenerator) Generate(class int) gocv.Mat {
	lesion := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), g.size, g.size, gocv.MatTypeCV8UC1)
	defer lesion.Close()

	switch class {
	case 1:
		g.drawBenign(&lesion)
	case 2:
		g.drawMalignant(&lesion)
	}

	buf := make([]byte, g.size*g.size)
	for r := 0; r < g.size; r++ {
		base := 175 - 45*float64(r)/float64(g.size)
		for c := 0; c < g.size; c++ {
			v := base + g.rng.NormFloat64()*18
			if lesion.GetUCharAt(r, c) > 0 {
				v = g.lesionLevel(class) + g.rng.NormFloat64()*g.lesionNoise(class)
			}
			buf[r*g.size+c] = clamp(v)
		}
	}

	gray, err := gocv.NewMatFromBytes(g.size, g.size, gocv.MatTypeCV8UC1, buf)
	if err != nil {
		panic(err)
	}
	defer gray.Close()

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Pt(3, 3), 0, 0, gocv.BorderDefault)

	bgr := gocv.NewMat()
	gocv.CvtColor(blurred, &bgr, gocv.ColorGrayToBGR)
	return bgr
}

func (g *MockScanGenerator) lesionLevel(class int) float64 {
	if class == 2 {
		return 55
	}
	return 30
}

func (g *MockScanGenerator) lesionNoise(class int) float64 {
	if class == 2 {
		return 25
	}
	return 6
}

func (g *MockScanGenerator) center() image.Point {
	jitter := g.size / 10
	return image.Pt(
		g.size/2+g.rng.Intn(2*jitter+1)-jitter,
		g.size/2+g.rng.Intn(2*jitter+1)-jitter,
	)
}

func (g *MockScanGenerator) drawBenign(mask *gocv.Mat) {
	axes := image.Pt(
		g.size/5+g.rng.Intn(g.size/10+1),
		g.size/7+g.rng.Intn(g.size/14+1),
	)
	angle := g.rng.Float64() * 180
	gocv.Ellipse(mask, g.center(), axes, angle, 0, 360, color.RGBA{R: 255, G: 255, B: 255, A: 255}, -1)
}

func (g *MockScanGenerator) drawMalignant(mask *gocv.Mat) {
	const spikes = 14
	center := g.center()
	inner := float64(g.size) / 9
	outer := float64(g.size) / 3.5

	pts := make([]image.Point, 0, 2*spikes)
	phase := g.rng.Float64() * math.Pi
	for i := 0; i < 2*spikes; i++ {
		theta := phase + float64(i)*math.Pi/spikes
		radius := inner * (0.8 + 0.4*g.rng.Float64())
		if i%2 == 0 {
			radius = outer * (0.6 + 0.4*g.rng.Float64())
		}
		pts = append(pts, image.Pt(
			center.X+int(math.Round(radius*math.Cos(theta))),
			center.Y+int(math.Round(radius*math.Sin(theta))),
		))
	}

	pv := gocv.NewPointsVectorFromPoints([][]image.Point{pts})
	defer pv.Close()
	gocv.FillPoly(mask, pv, color.RGBA{R: 255, G: 255, B: 255, A: 255})
}

// WriteDataset writes perClass PNG scans for every canonical class under
// root/<class>/ and returns the matching categories.
//
// Arguments:
// - root: The dataset root directory.
// - perClass: The number of scans per class.
//
// Returns:
// - The categories in canonical order.
// - An error if a directory or file cannot be written.
//
// @example
// cats, err := gen.WriteDataset(t.TempDir(), 10)
func (g *MockScanGenerator) WriteDataset(root string, perClass int) ([]dataset.Category, error) {
	categories := dataset.DefaultCategories(root)
	for class, cat := range categories {
		if err := os.MkdirAll(cat.Path, 0o755); err != nil {
			return nil, errors.Wrapf(err, "failed to create %s", cat.Path)
		}
		for i := 0; i < perClass; i++ {
			scan := g.Generate(class)
			path := filepath.Join(cat.Path, fmt.Sprintf("%s (%d).png", cat.Name, i+1))
			ok := gocv.IMWrite(path, scan)
			scan.Close()
			if !ok {
				return nil, errors.Errorf("failed to write %s", path)
			}
		}
	}
	return categories, nil
}

// EncodePNG generates a scan of the given class and returns it PNG encoded.
func (g *MockScanGenerator) EncodePNG(class int) ([]byte, error) {
	scan := g.Generate(class)
	defer scan.Close()

	buf, err := gocv.IMEncode(gocv.PNGFileExt, scan)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode scan")
	}
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...), nil
}

func clamp(v float64) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	}
	return uint8(math.Round(v))
}
