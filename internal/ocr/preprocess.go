package ocr

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // crops arrive as JPEG
	_ "image/png"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
)

// DefaultContrast is the contrast change applied by Preprocess.
const DefaultContrast = 0.3

// Preprocess converts an encoded image to high-contrast grayscale PNG,
// which Tesseract recognizes more reliably than colored JPEG crops.
func Preprocess(data []byte, contrast float64) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	gray := effect.Grayscale(img)
	out := adjust.Contrast(gray, contrast)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
