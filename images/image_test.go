package images

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getTestImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: 255, G: 0, B: 0, A: 255})
		}
	}
	return img
}

func getTestPNG(t *testing.T) []byte {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, getTestImage()))
	return buf.Bytes()
}

func TestDetectFormat(t *testing.T) {
	jpegBytes, err := EncodeJPEG(getTestImage(), 80)
	require.NoError(t, err)

	assert.Equal(t, FormatPNG, DetectFormat(getTestPNG(t)))
	assert.Equal(t, FormatJPEG, DetectFormat(jpegBytes))
	assert.Equal(t, FormatUnknown, DetectFormat([]byte("not an image")))
	assert.Equal(t, FormatUnknown, DetectFormat(nil))
}

func TestIsSupportedFile(t *testing.T) {
	tests := []struct {
		name     string
		expected bool
	}{
		{"scan.png", true},
		{"scan.PNG", true},
		{"scan.jpg", true},
		{"scan.JPeG", true},
		{"scan.bmp", false},
		{"scan_mask.gif", false},
		{"README", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsSupportedFile(tt.name))
		})
	}
}

func TestDecode(t *testing.T) {
	mat, err := Decode(getTestPNG(t))
	require.NoError(t, err)
	defer mat.Close()

	assert.Equal(t, 48, mat.Rows())
	assert.Equal(t, 64, mat.Cols())
	assert.Equal(t, 3, mat.Channels())

	_, err = Decode(nil)
	assert.Error(t, err, "empty input should fail")

	bad, err := Decode([]byte("not an image"))
	assert.Error(t, err)
	assert.True(t, bad.Empty(), "Mat should be empty on error")
}

func TestDecodeBase64(t *testing.T) {
	raw := getTestPNG(t)
	encoded := base64.StdEncoding.EncodeToString(raw)

	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{"plain", encoded, false},
		{"data url", "data:image/png;base64," + encoded, false},
		{"padded whitespace", "  " + encoded + "\n", false},
		{"missing separator", "data:image/png;base64", true},
		{"empty", "", true},
		{"empty after header", "data:image/png;base64,", true},
		{"invalid", "%%%not-base64%%%", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := DecodeBase64(tt.payload)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, raw, data)
		})
	}
}

func TestDecodeDataURL(t *testing.T) {
	payload := "data:image/png;base64," + base64.StdEncoding.EncodeToString(getTestPNG(t))
	mat, err := DecodeDataURL(payload)
	require.NoError(t, err)
	defer mat.Close()
	assert.Equal(t, 64, mat.Cols())
}

func TestEncodeBase64JPEG(t *testing.T) {
	s, err := EncodeBase64JPEG(nil)
	require.NoError(t, err)
	assert.Empty(t, s, "nil image encodes to empty string")

	s, err = EncodeBase64JPEG(getTestImage())
	require.NoError(t, err)
	data, err := base64.StdEncoding.DecodeString(s)
	require.NoError(t, err)
	assert.Equal(t, FormatJPEG, DetectFormat(data))
}

func TestThumbnail(t *testing.T) {
	thumb := Thumbnail(getTestImage(), 32)
	assert.Equal(t, 32, thumb.Bounds().Dx())
	assert.Equal(t, 24, thumb.Bounds().Dy(), "aspect ratio should be preserved")

	small := Thumbnail(getTestImage(), 128)
	assert.Equal(t, 64, small.Bounds().Dx(), "images inside the box are left untouched")

	assert.Nil(t, Thumbnail(nil, 32))
}
