// Package images - image decoding, color conversion and segmentation helpers
// built on OpenCV (via gocv) for the feature extractor and the region highlighter.
package images

import (
	"bytes"
	"path/filepath"
	"strings"
)

// ImageFormat represents supported image formats
type ImageFormat string

// ImageFormat constants
const (
	// FormatJPEG is the JPEG image format.
	FormatJPEG ImageFormat = "jpeg"
	// FormatPNG is the PNG image format.
	FormatPNG ImageFormat = "png"
	// FormatUnknown is returned when the data does not carry a known signature.
	FormatUnknown ImageFormat = "unknown"
)

// SupportedExtensions lists the file extensions accepted by the dataset loader.
var SupportedExtensions = []string{".png", ".jpg", ".jpeg"}

var (
	pngSignature  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	jpegSignature = []byte{0xff, 0xd8, 0xff}
)

// DetectFormat sniffs the format of encoded image bytes from their signature.
//
// Arguments:
//   - data: The encoded image bytes.
//
// Returns:
//   - ImageFormat: FormatJPEG, FormatPNG or FormatUnknown.
func DetectFormat(data []byte) ImageFormat {
	switch {
	case bytes.HasPrefix(data, pngSignature):
		return FormatPNG
	case bytes.HasPrefix(data, jpegSignature):
		return FormatJPEG
	default:
		return FormatUnknown
	}
}

// IsSupportedFile reports whether the file name carries an accepted image
// extension. The comparison is case-insensitive.
func IsSupportedFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, supported := range SupportedExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}
