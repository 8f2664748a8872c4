package utils

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidPNG(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for x := 0; x < 16; x++ {
		for y := 0; y < 16; y++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDominantColours(t *testing.T) {
	artwork := solidPNG(t, color.RGBA{R: 0xff, A: 0xff})

	colours, err := DominantColours(artwork)
	require.NoError(t, err)
	require.NotEmpty(t, colours)
	assert.Equal(t, "#ff0000", colours[0])
}

func TestDominantColours_Garbage(t *testing.T) {
	colours, err := DominantColours([]byte("not an image"))
	assert.Error(t, err)
	assert.Nil(t, colours)

	_, err = DominantColours(nil)
	assert.ErrorIs(t, err, ErrNoArtwork)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/png", ContentType(solidPNG(t, color.White)))
	assert.Equal(t, "image/jpeg", ContentType([]byte{0xff, 0xd8, 0xff, 0xe0, 0, 0x10, 'J', 'F', 'I', 'F'}))
	assert.Equal(t, "image/jpeg", ContentType([]byte("plain text")))
}

func colorToHex(r, g, b uint8) string {
	return colorToHexString(color.RGBA{R: r, G: g, B: b, A: 0xff})
}

func TestColorToHexString(t *testing.T) {
	assert.Equal(t, "#0a0b0c", colorToHex(10, 11, 12))
	assert.Equal(t, "#ffffff", colorToHex(255, 255, 255))
}
