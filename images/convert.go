package images

import (
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// ToGray converts a 1, 3 (BGR) or 4 (BGRA) channel Mat into a new
// single-channel grayscale Mat.
//
// Arguments:
//   - src: The source Mat.
//
// Returns:
//   - gocv.Mat: The grayscale Mat. The caller owns it.
//   - error: An error if src is empty or has an unsupported channel count.
func ToGray(src gocv.Mat) (gocv.Mat, error) {
	if src.Empty() {
		return gocv.NewMat(), errors.New("cannot convert empty mat to grayscale")
	}

	dst := gocv.NewMat()
	switch src.Channels() {
	case 1:
		src.CopyTo(&dst)
	case 3:
		gocv.CvtColor(src, &dst, gocv.ColorBGRToGray)
	case 4:
		gocv.CvtColor(src, &dst, gocv.ColorBGRAToGray)
	default:
		dst.Close()
		return gocv.NewMat(), errors.Errorf("unsupported channel count %d", src.Channels())
	}

	if dst.Empty() {
		dst.Close()
		return gocv.NewMat(), errors.New("grayscale conversion produced an empty mat")
	}
	return dst, nil
}

// ToBGR converts a 1, 3 or 4 channel Mat into a new 3-channel BGR Mat.
func ToBGR(src gocv.Mat) (gocv.Mat, error) {
	if src.Empty() {
		return gocv.NewMat(), errors.New("cannot convert empty mat to BGR")
	}

	dst := gocv.NewMat()
	switch src.Channels() {
	case 1:
		gocv.CvtColor(src, &dst, gocv.ColorGrayToBGR)
	case 3:
		src.CopyTo(&dst)
	case 4:
		gocv.CvtColor(src, &dst, gocv.ColorBGRAToBGR)
	default:
		dst.Close()
		return gocv.NewMat(), errors.Errorf("unsupported channel count %d", src.Channels())
	}
	return dst, nil
}

// ResizeSquare resizes src to size x size with bilinear interpolation.
//
// Arguments:
//   - src: The source Mat.
//   - size: The output edge length in pixels.
//
// Returns:
//   - gocv.Mat: The resized Mat. The caller owns it.
//   - error: An error if src is empty or size is not positive.
func ResizeSquare(src gocv.Mat, size int) (gocv.Mat, error) {
	if src.Empty() {
		return gocv.NewMat(), errors.New("cannot resize empty mat")
	}
	if size <= 0 {
		return gocv.NewMat(), errors.Errorf("invalid resize target %d", size)
	}

	dst := gocv.NewMat()
	gocv.Resize(src, &dst, image.Pt(size, size), 0, 0, gocv.InterpolationLinear)
	if dst.Empty() {
		dst.Close()
		return gocv.NewMat(), errors.New("resize produced an empty mat")
	}
	return dst, nil
}

// GrayPixels returns the pixel values of a single-channel 8-bit Mat in
// row-major order.
func GrayPixels(gray gocv.Mat) ([]uint8, error) {
	if gray.Empty() {
		return nil, errors.New("cannot read pixels of empty mat")
	}
	if gray.Channels() != 1 {
		return nil, errors.Errorf("expected single-channel mat, got %d channels", gray.Channels())
	}
	if gray.IsContinuous() {
		data := gray.ToBytes()
		out := make([]uint8, len(data))
		copy(out, data)
		return out, nil
	}

	rows, cols := gray.Rows(), gray.Cols()
	out := make([]uint8, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			out = append(out, gray.GetUCharAt(r, c))
		}
	}
	return out, nil
}
