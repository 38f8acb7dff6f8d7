package storage

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestNormalizeAvatar_SquaresAndReencodes(t *testing.T) {
	out, err := NormalizeAvatar(encodePNG(t, 120, 60), 32, 70)
	require.NoError(t, err)

	decoded, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 32, decoded.Bounds().Dx())
	assert.Equal(t, 32, decoded.Bounds().Dy())
}

func TestNormalizeAvatar_DefaultsForInvalidSettings(t *testing.T) {
	out, err := NormalizeAvatar(encodePNG(t, 10, 10), 0, 500)
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 400, cfg.Width)
}

func TestNormalizeAvatar_RejectsNonImages(t *testing.T) {
	_, err := NormalizeAvatar([]byte("definitely not a picture"), 64, 80)
	assert.ErrorIs(t, err, ErrNotAnImage)
}

func TestSquareCrop(t *testing.T) {
	assert.Equal(t, image.Rect(30, 0, 90, 60), squareCrop(image.Rect(0, 0, 120, 60)))
	assert.Equal(t, image.Rect(0, 20, 40, 60), squareCrop(image.Rect(0, 0, 40, 80)))
	assert.Equal(t, image.Rect(0, 0, 5, 5), squareCrop(image.Rect(0, 0, 5, 5)))
}
