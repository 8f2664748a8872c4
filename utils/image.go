package utils

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"

	color_extractor "github.com/marekm4/color-extractor"
)

const fallbackContentType = "image/jpeg"

var ErrNoArtwork = errors.New("no artwork to inspect")

// DominantColours returns the main colours of an encoded image as hex strings.
func DominantColours(artwork []byte) ([]string, error) {
	if len(artwork) == 0 {
		return nil, ErrNoArtwork
	}
	img, _, err := image.Decode(bytes.NewReader(artwork))
	if err != nil {
		return nil, fmt.Errorf("failed to decode artwork: %w", err)
	}
	var domColours []string
	for _, c := range color_extractor.ExtractColors(img) {
		domColours = append(domColours, colorToHexString(c))
	}
	return domColours, nil
}

// ContentType sniffs the artwork format. Anything that isn't recognisably an
// image is served as a jpeg since that is what most players hand out.
func ContentType(artwork []byte) string {
	mimeType := http.DetectContentType(artwork)
	if len(mimeType) > 6 && mimeType[:6] == "image/" {
		return mimeType
	}
	return fallbackContentType
}

func colorToHexString(c color.Color) string {
	r, g, b, a := c.RGBA()
	rgba := color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)}
	return fmt.Sprintf("#%.2x%.2x%.2x", rgba.R, rgba.G, rgba.B)
}
