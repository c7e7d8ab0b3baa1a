package imaging

import (
	"bytes"
	"errors"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/ocr-viewport/internal/viewport"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in        string
		r, g, b   uint8
		alpha     float64
		expectErr bool
	}{
		{"#FF0000", 255, 0, 0, 1, false},
		{"00ff00", 0, 255, 0, 1, false},
		{"#00f", 0, 0, 255, 1, false},
		{"#0000FF80", 0, 0, 255, 128.0 / 255, false},
		{"#12", 0, 0, 0, 0, true},
		{"#GGGGGG", 0, 0, 0, 0, true},
		{"#FF0000ZZ", 0, 0, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c, alpha, err := ParseColor(tt.in)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			r, g, b := c.RGB255()
			assert.Equal(t, [3]uint8{tt.r, tt.g, tt.b}, [3]uint8{r, g, b})
			assert.InDelta(t, tt.alpha, alpha, 1e-9)
		})
	}
}

func TestSelectionOverlay(t *testing.T) {
	img := newFilledImage(100, 100, color.White)
	m := Metrics{NaturalWidth: 100, NaturalHeight: 100, DisplayedWidth: 50, DisplayedHeight: 50}
	sel := &viewport.Rect{X: 5, Y: 5, Width: 10, Height: 10}

	result, err := SelectionOverlay(img, sel, m, OverlayOptions{Color: "#0000FF", Thickness: 2})
	require.NoError(t, err)

	assert.Equal(t, viewport.Rect{X: 10, Y: 10, Width: 20, Height: 20}, result.Rect)
	assert.Equal(t, 100, result.Width)
	assert.Equal(t, 100, result.Height)
	assert.Equal(t, "image/png", result.MimeType)
	assert.NotEmpty(t, result.ImageBase64)

	decoded, err := png.Decode(bytes.NewReader(result.Data))
	require.NoError(t, err)

	at := func(x, y int) color.NRGBA {
		return color.NRGBAModel.Convert(decoded.At(x, y)).(color.NRGBA)
	}

	// Border pixels are fully the overlay color.
	assert.Equal(t, color.NRGBA{0, 0, 255, 255}, at(10, 10))
	assert.Equal(t, color.NRGBA{0, 0, 255, 255}, at(29, 29))
	assert.Equal(t, color.NRGBA{0, 0, 255, 255}, at(11, 20))

	// Inside is tinted toward blue but not replaced.
	inner := at(20, 20)
	assert.Equal(t, uint8(255), inner.B)
	assert.Less(t, inner.R, uint8(255))
	assert.Greater(t, inner.R, uint8(128))

	// Outside is untouched.
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, at(50, 50))
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, at(30, 30))
}

func TestSelectionOverlay_NoFill(t *testing.T) {
	img := newFilledImage(40, 40, color.White)
	m := Metrics{NaturalWidth: 40, NaturalHeight: 40, DisplayedWidth: 40, DisplayedHeight: 40}
	sel := &viewport.Rect{X: 0, Y: 0, Width: 20, Height: 20}

	result, err := SelectionOverlay(img, sel, m, OverlayOptions{FillOpacity: -1})
	require.NoError(t, err)

	decoded, err := png.Decode(bytes.NewReader(result.Data))
	require.NoError(t, err)
	r, g, b, _ := decoded.At(10, 10).RGBA()
	assert.Equal(t, [3]uint32{0xffff, 0xffff, 0xffff}, [3]uint32{r, g, b})

	r, g, b, _ = decoded.At(0, 10).RGBA()
	assert.Equal(t, [3]uint32{0xffff, 0, 0}, [3]uint32{r, g, b})
}

func TestSelectionOverlay_Label(t *testing.T) {
	img := newFilledImage(60, 60, color.White)
	m := Metrics{NaturalWidth: 60, NaturalHeight: 60, DisplayedWidth: 60, DisplayedHeight: 60}
	sel := &viewport.Rect{X: 55, Y: 55, Width: 20, Height: 20}

	// Label runs off the image edge and must be clipped without panicking.
	_, err := SelectionOverlay(img, sel, m, OverlayOptions{Label: true})
	assert.NoError(t, err)
}

func TestSelectionOverlay_Errors(t *testing.T) {
	img := newFilledImage(10, 10, color.White)
	m := Metrics{NaturalWidth: 10, NaturalHeight: 10, DisplayedWidth: 10, DisplayedHeight: 10}

	_, err := SelectionOverlay(img, nil, m, OverlayOptions{})
	assert.True(t, errors.Is(err, ErrInvalidSelection))

	_, err = SelectionOverlay(nil, &viewport.Rect{Width: 2, Height: 2}, m, OverlayOptions{})
	assert.True(t, errors.Is(err, ErrCanvasUnavailable))

	_, err = SelectionOverlay(img, &viewport.Rect{Width: 2, Height: 2}, m, OverlayOptions{Color: "nope"})
	assert.Error(t, err)
}
