package imagex

// imagex decodes uploaded blueprints. We need the natural pixel dimensions
// to run the coordinate transform, and a downscaled preview for the review UI.

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
)

// Info holds the decoded metadata of a blueprint image
type Info struct {
	Width  int
	Height int
	Format string // "png", "jpeg", "tiff"
}

// Decode reads the image header and returns its natural dimensions.
// It does not decode pixel data.
func Decode(data []byte) (*Info, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("Failed to decode blueprint image: %w", err)
	}
	return &Info{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}

// Preview renders a JPEG thumbnail that fits within maxWidth x maxHeight,
// preserving aspect ratio. The image is never scaled up.
func Preview(data []byte, maxWidth, maxHeight int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("Failed to decode blueprint image: %w", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() > maxWidth || bounds.Dy() > maxHeight {
		img = imaging.Fit(img, maxWidth, maxHeight, imaging.Lanczos)
	}
	out := &bytes.Buffer{}
	if err := imaging.Encode(out, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
