package images

import (
	"crypto/md5"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// ComputeMatChecksum generates a deterministic checksum for a Mat, used to
// verify that repeated predictions produce pixel-identical output.
//
// Arguments:
// - mat: The Mat to compute checksum for.
//
// Returns:
// - A hex-encoded MD5 checksum string, or "empty" for an empty Mat.
func ComputeMatChecksum(mat gocv.Mat) string {
	if mat.Empty() {
		return "empty"
	}

	hash := md5.New()
	hash.Write([]byte(fmt.Sprintf("%dx%dx%d:", mat.Rows(), mat.Cols(), mat.Channels())))
	hash.Write(mat.ToBytes())
	return fmt.Sprintf("%x", hash.Sum(nil))
}

// ComputeImageChecksum generates a checksum over the pixels of a Go image.
// A nil image hashes to "nil".
func ComputeImageChecksum(img image.Image) string {
	if img == nil {
		return "nil"
	}

	hash := md5.New()
	b := img.Bounds()
	hash.Write([]byte(fmt.Sprintf("%dx%d:", b.Dx(), b.Dy())))
	buf := make([]byte, 0, 8)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			buf = append(buf[:0], byte(r>>8), byte(g>>8), byte(bl>>8), byte(a>>8))
			hash.Write(buf)
		}
	}
	return fmt.Sprintf("%x", hash.Sum(nil))
}
