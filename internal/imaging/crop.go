package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/ocr-viewport/internal/viewport"
)

const (
	// DefaultJPEGQuality matches the usual browser default for canvas JPEG export.
	DefaultJPEGQuality = 92

	// DefaultMaxCropPixels bounds the canvas allocated for a single crop.
	DefaultMaxCropPixels = 50_000_000

	// CropMimeType is the encoding produced by CropSelection.
	CropMimeType = "image/jpeg"
)

// CropOptions controls how a crop is materialized.
type CropOptions struct {
	// Quality is the JPEG quality (1-100). Zero means DefaultJPEGQuality.
	Quality int
	// MaxPixels caps width*height of the canvas. Zero means DefaultMaxCropPixels.
	MaxPixels int
}

func (o CropOptions) withDefaults() CropOptions {
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = DefaultJPEGQuality
	}
	if o.MaxPixels <= 0 {
		o.MaxPixels = DefaultMaxCropPixels
	}
	return o
}

// CropResult contains the cropped image data.
type CropResult struct {
	// Rect is the crop in native pixel coordinates, before truncation.
	Rect        viewport.Rect `json:"rect"`
	Width       int           `json:"width"`
	Height      int           `json:"height"`
	MimeType    string        `json:"mime_type"`
	ImageBase64 string        `json:"image_base64,omitempty"`
	Data        []byte        `json:"-"`
}

// NativeRect maps a display-scale selection to native pixel coordinates.
// A missing selection, or one under a pixel at either scale, is rejected
// with ErrInvalidSelection.
func NativeRect(sel *viewport.Rect, m Metrics) (viewport.Rect, error) {
	if sel == nil {
		return viewport.Rect{}, fmt.Errorf("%w: no selection", ErrInvalidSelection)
	}
	if !sel.Actionable() {
		return viewport.Rect{}, fmt.Errorf("%w: %gx%g is smaller than one pixel", ErrInvalidSelection, sel.Width, sel.Height)
	}
	if err := m.Validate(); err != nil {
		return viewport.Rect{}, fmt.Errorf("%w: %v", ErrCanvasUnavailable, err)
	}
	native := sel.Scale(m.ScaleX(), m.ScaleY())
	if int(native.Width) < 1 || int(native.Height) < 1 {
		return viewport.Rect{}, fmt.Errorf("%w: crop %gx%g is smaller than one native pixel", ErrInvalidSelection, native.Width, native.Height)
	}
	return native, nil
}

// CropSelection produces the native pixels under sel as a JPEG.
//
// The canvas is exactly int(width) x int(height) native pixels. The source
// is placed so that native (floor(x), floor(y)) lands on the canvas origin;
// any part of the canvas not covered by the source stays white.
func CropSelection(img image.Image, sel *viewport.Rect, m Metrics, opts CropOptions) (*CropResult, error) {
	native, err := NativeRect(sel, m)
	if err != nil {
		return nil, err
	}
	if img == nil {
		return nil, fmt.Errorf("%w: no source image", ErrCanvasUnavailable)
	}
	opts = opts.withDefaults()

	w, h := int(native.Width), int(native.Height)
	if w > opts.MaxPixels/h {
		return nil, fmt.Errorf("%w: crop %dx%d exceeds %d pixels", ErrCanvasUnavailable, w, h, opts.MaxPixels)
	}

	offset := image.Pt(int(math.Floor(native.X)), int(math.Floor(native.Y)))
	canvas := imaging.New(w, h, color.White)
	canvas = imaging.Overlay(canvas, img, image.Point{}.Sub(offset), 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, imaging.JPEG, imaging.JPEGQuality(opts.Quality)); err != nil {
		return nil, fmt.Errorf("failed to encode cropped image: %w", err)
	}

	return &CropResult{
		Rect:        native,
		Width:       w,
		Height:      h,
		MimeType:    CropMimeType,
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		Data:        buf.Bytes(),
	}, nil
}
