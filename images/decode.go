package images

import (
	"encoding/base64"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Decode decodes encoded image bytes (PNG, JPEG, ...) into a 3-channel BGR Mat.
//
// Arguments:
//   - data: The encoded image bytes.
//
// Returns:
//   - gocv.Mat: The decoded image. The caller owns it and must Close it.
//   - error: An error if the bytes are empty or cannot be decoded.
func Decode(data []byte) (gocv.Mat, error) {
	if len(data) == 0 {
		return gocv.NewMat(), errors.New("empty image data")
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return gocv.NewMat(), errors.Wrap(err, "failed to decode image")
	}
	if mat.Empty() {
		mat.Close()
		return gocv.NewMat(), errors.New("failed to decode image: unrecognized data")
	}

	return mat, nil
}

// Read loads and decodes the image file at path.
//
// Arguments:
//   - path: The image file path.
//
// Returns:
//   - gocv.Mat: The decoded BGR image.
//   - error: An error if the file cannot be read or decoded.
func Read(path string) (gocv.Mat, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return gocv.NewMat(), errors.Wrapf(err, "failed to read %s", path)
	}

	mat, err := Decode(data)
	if err != nil {
		return gocv.NewMat(), errors.Wrapf(err, "failed to decode %s", path)
	}

	return mat, nil
}

// DecodeBase64 decodes a base64 payload, stripping a data URL header
// ("data:image/png;base64,") when present.
//
// Arguments:
//   - payload: The base64 text, optionally prefixed by a data URL header.
//
// Returns:
//   - []byte: The raw encoded image bytes.
//   - error: An error if the payload is empty or not valid base64.
func DecodeBase64(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if strings.HasPrefix(payload, "data:") {
		comma := strings.IndexByte(payload, ',')
		if comma < 0 {
			return nil, errors.New("malformed data URL: missing ',' separator")
		}
		payload = payload[comma+1:]
	}
	if payload == "" {
		return nil, errors.New("empty base64 payload")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, errors.Wrap(err, "invalid base64 image data")
	}

	return data, nil
}

// DecodeDataURL decodes a base64 (optionally data URL prefixed) image into a BGR Mat.
func DecodeDataURL(payload string) (gocv.Mat, error) {
	data, err := DecodeBase64(payload)
	if err != nil {
		return gocv.NewMat(), err
	}
	return Decode(data)
}
