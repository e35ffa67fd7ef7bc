package images

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestToGray(t *testing.T) {
	tests := []struct {
		name string
		typ  gocv.MatType
	}{
		{"gray", gocv.MatTypeCV8UC1},
		{"bgr", gocv.MatTypeCV8UC3},
		{"bgra", gocv.MatTypeCV8UC4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(90, 90, 90, 255), 12, 16, tt.typ)
			defer src.Close()

			gray, err := ToGray(src)
			require.NoError(t, err)
			defer gray.Close()

			assert.Equal(t, 1, gray.Channels())
			assert.Equal(t, 12, gray.Rows())
			assert.Equal(t, 16, gray.Cols())
			assert.Equal(t, uint8(90), gray.GetUCharAt(3, 3))
		})
	}

	empty := gocv.NewMat()
	defer empty.Close()
	_, err := ToGray(empty)
	assert.Error(t, err)
}

func TestToBGR(t *testing.T) {
	src := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(10, 0, 0, 0), 8, 8, gocv.MatTypeCV8UC1)
	defer src.Close()

	bgr, err := ToBGR(src)
	require.NoError(t, err)
	defer bgr.Close()
	assert.Equal(t, 3, bgr.Channels())
}

func TestResizeSquare(t *testing.T) {
	src := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(10, 0, 0, 0), 300, 173, gocv.MatTypeCV8UC1)
	defer src.Close()

	dst, err := ResizeSquare(src, 128)
	require.NoError(t, err)
	defer dst.Close()
	assert.Equal(t, 128, dst.Rows())
	assert.Equal(t, 128, dst.Cols())

	_, err = ResizeSquare(src, 0)
	assert.Error(t, err)
}

func TestGrayPixels(t *testing.T) {
	src := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(7, 0, 0, 0), 4, 5, gocv.MatTypeCV8UC1)
	defer src.Close()

	px, err := GrayPixels(src)
	require.NoError(t, err)
	require.Len(t, px, 20)
	for _, v := range px {
		assert.Equal(t, uint8(7), v)
	}

	bgr := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(7, 7, 7, 0), 4, 5, gocv.MatTypeCV8UC3)
	defer bgr.Close()
	_, err = GrayPixels(bgr)
	assert.Error(t, err)
}
