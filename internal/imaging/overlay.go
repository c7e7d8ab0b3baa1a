package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"math"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/ocr-viewport/internal/viewport"
)

// DefaultOverlayColor is used when OverlayOptions.Color is empty.
const DefaultOverlayColor = "#FF0000"

// OverlayOptions controls how the selection is drawn.
type OverlayOptions struct {
	// Color is "#RRGGBB", "#RGB" or "#RRGGBBAA". The alpha byte scales both
	// the border and the fill.
	Color string
	// Thickness of the border in native pixels. Zero means 2.
	Thickness int
	// FillOpacity tints the inside of the selection. Zero means 0.15;
	// negative disables the fill.
	FillOpacity float64
	// Label writes the native "x,y wxh" of the selection next to its corner.
	Label bool
}

// OverlayResult contains the natural-size image with the selection drawn.
type OverlayResult struct {
	Rect        viewport.Rect `json:"rect"`
	Width       int           `json:"width"`
	Height      int           `json:"height"`
	MimeType    string        `json:"mime_type"`
	ImageBase64 string        `json:"image_base64,omitempty"`
	Data        []byte        `json:"-"`
}

// SelectionOverlay draws sel, given in display coordinates, onto img at
// native resolution and encodes the result as PNG.
func SelectionOverlay(img image.Image, sel *viewport.Rect, m Metrics, opts OverlayOptions) (*OverlayResult, error) {
	native, err := NativeRect(sel, m)
	if err != nil {
		return nil, err
	}
	if img == nil {
		return nil, fmt.Errorf("%w: no source image", ErrCanvasUnavailable)
	}

	if opts.Color == "" {
		opts.Color = DefaultOverlayColor
	}
	c, alpha, err := ParseColor(opts.Color)
	if err != nil {
		return nil, err
	}
	if opts.Thickness <= 0 {
		opts.Thickness = 2
	}
	if opts.FillOpacity == 0 {
		opts.FillOpacity = 0.15
	}

	dst := imaging.Clone(img)
	b := dst.Bounds()

	x0, y0 := int(math.Floor(native.X)), int(math.Floor(native.Y))
	x1, y1 := x0+int(native.Width), y0+int(native.Height)
	area := image.Rect(x0, y0, x1, y1).Intersect(b)

	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			border := x-x0 < opts.Thickness || x1-1-x < opts.Thickness ||
				y-y0 < opts.Thickness || y1-1-y < opts.Thickness
			switch {
			case border:
				blendAt(dst, x, y, c, alpha)
			case opts.FillOpacity > 0:
				blendAt(dst, x, y, c, alpha*opts.FillOpacity)
			}
		}
	}

	if opts.Label {
		label := fmt.Sprintf("%d,%d %dx%d", x0, y0, x1-x0, y1-y0)
		fg := colorful.Color{R: 1, G: 1, B: 1}
		drawLabel(dst, x0+opts.Thickness+1, y0+opts.Thickness+1, label, fg, c)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, dst, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &OverlayResult{
		Rect:        native,
		Width:       b.Dx(),
		Height:      b.Dy(),
		MimeType:    "image/png",
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		Data:        buf.Bytes(),
	}, nil
}

// ParseColor parses "#RGB", "#RRGGBB" or "#RRGGBBAA". The returned alpha is
// in [0, 1].
func ParseColor(s string) (colorful.Color, float64, error) {
	hex := strings.TrimSpace(s)
	if !strings.HasPrefix(hex, "#") {
		hex = "#" + hex
	}

	alpha := 1.0
	if len(hex) == 9 {
		a, err := strconv.ParseUint(hex[7:], 16, 8)
		if err != nil {
			return colorful.Color{}, 0, fmt.Errorf("invalid color %q: %w", s, err)
		}
		alpha = float64(a) / 255
		hex = hex[:7]
	}

	c, err := colorful.Hex(hex)
	if err != nil {
		return colorful.Color{}, 0, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return c, alpha, nil
}

// blendAt mixes c into the pixel at (x, y) with weight t.
func blendAt(dst *image.NRGBA, x, y int, c colorful.Color, t float64) {
	i := dst.PixOffset(x, y)
	p := dst.Pix[i : i+4 : i+4]
	base := colorful.Color{R: float64(p[0]) / 255, G: float64(p[1]) / 255, B: float64(p[2]) / 255}
	p[0], p[1], p[2] = base.BlendRgb(c, t).Clamped().RGB255()
	if a := uint8(math.Round(t * 255)); a > p[3] {
		p[3] = a
	}
}

// 3x5 glyphs for the label characters.
var glyphs = map[rune][]string{
	'0': {"111", "101", "101", "101", "111"},
	'1': {"010", "110", "010", "010", "111"},
	'2': {"111", "001", "111", "100", "111"},
	'3': {"111", "001", "111", "001", "111"},
	'4': {"101", "101", "111", "001", "001"},
	'5': {"111", "100", "111", "001", "111"},
	'6': {"111", "100", "111", "101", "111"},
	'7': {"111", "001", "001", "001", "001"},
	'8': {"111", "101", "111", "101", "111"},
	'9': {"111", "101", "111", "001", "111"},
	',': {"000", "000", "000", "010", "010"},
	'x': {"000", "101", "010", "101", "000"},
	'-': {"000", "000", "111", "000", "000"},
}

func drawLabel(img *image.NRGBA, x, y int, text string, fg, bg colorful.Color) {
	const charWidth, labelHeight = 4, 7
	b := img.Bounds()
	inside := func(px, py int) bool {
		return image.Pt(px, py).In(b)
	}

	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < len(text)*charWidth; dx++ {
			if inside(x+dx, y+dy) {
				blendAt(img, x+dx, y+dy, bg, 0.8)
			}
		}
	}

	cx := x
	for _, ch := range text {
		for row, line := range glyphs[ch] {
			for col, pixel := range line {
				if pixel == '1' && inside(cx+col, y+row) {
					blendAt(img, cx+col, y+row, fg, 1)
				}
			}
		}
		cx += charWidth
	}
}
