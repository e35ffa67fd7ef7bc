package images

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/jpeg"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// DefaultJPEGQuality is the quality used when encoding result images.
const DefaultJPEGQuality = 90

// MatToImage converts a gocv Mat into a Go image.
//
// Arguments:
//   - mat: A 1, 3 or 4 channel 8-bit Mat.
//
// Returns:
//   - image.Image: The converted image (*image.Gray for single-channel input).
//   - error: An error if the Mat is empty or has an unsupported type.
func MatToImage(mat gocv.Mat) (image.Image, error) {
	if mat.Empty() {
		return nil, errors.New("cannot convert empty mat")
	}
	img, err := mat.ToImage()
	if err != nil {
		return nil, errors.Wrap(err, "failed to convert mat to image")
	}
	return img, nil
}

// EncodeJPEG encodes an image as JPEG with the given quality.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if img == nil {
		return nil, errors.New("cannot encode nil image")
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, errors.Wrap(err, "failed to encode jpeg")
	}
	return buf.Bytes(), nil
}

// EncodeBase64JPEG encodes an image as a base64 JPEG string.
//
// Arguments:
//   - img: The image to encode. A nil image encodes to the empty string.
//
// Returns:
//   - string: The base64 (StdEncoding) JPEG payload, without a data URL header.
//   - error: An error if JPEG encoding fails.
func EncodeBase64JPEG(img image.Image) (string, error) {
	if img == nil {
		return "", nil
	}
	data, err := EncodeJPEG(img, DefaultJPEGQuality)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// Thumbnail downsizes an image so that it fits in a maxDim x maxDim box while
// preserving the aspect ratio. Images already inside the box are returned as-is.
//
// Arguments:
//   - img: The source image.
//   - maxDim: The bounding box edge in pixels.
//
// Returns:
//   - image.Image: The thumbnail.
func Thumbnail(img image.Image, maxDim uint) image.Image {
	if img == nil || maxDim == 0 {
		return img
	}
	return resize.Thumbnail(maxDim, maxDim, img, resize.Lanczos3)
}
