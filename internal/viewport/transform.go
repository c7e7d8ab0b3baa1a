package viewport

import "math"

const (
	// MinZoom is the smallest allowed zoom factor.
	MinZoom = 0.2
	// MaxZoom is the largest allowed zoom factor.
	MaxZoom = 10.0
)

// ViewState is the current pan offset (screen pixels) and zoom factor.
type ViewState struct {
	Zoom float64 `json:"zoom"`
	Pan  Point   `json:"pan"`
}

// DefaultViewState returns identity zoom with no pan.
func DefaultViewState() ViewState {
	return ViewState{Zoom: 1}
}

// ClampZoom limits z to [MinZoom, MaxZoom]. NaN is treated as 1.
func ClampZoom(z float64) float64 {
	if math.IsNaN(z) {
		return 1
	}
	return math.Max(MinZoom, math.Min(MaxZoom, z))
}

// Clamped returns vs with its zoom clamped.
func (vs ViewState) Clamped() ViewState {
	vs.Zoom = ClampZoom(vs.Zoom)
	return vs
}

// ScreenToImage converts a screen point to image space:
//
//	image = (screen - origin - pan) / zoom
func ScreenToImage(p, origin Point, vs ViewState) Point {
	z := ClampZoom(vs.Zoom)
	return Point{
		X: (p.X - origin.X - vs.Pan.X) / z,
		Y: (p.Y - origin.Y - vs.Pan.Y) / z,
	}
}

// ImageToScreen is the forward render transform:
//
//	screen = origin + pan + image*zoom
func ImageToScreen(p, origin Point, vs ViewState) Point {
	z := ClampZoom(vs.Zoom)
	return Point{
		X: origin.X + vs.Pan.X + p.X*z,
		Y: origin.Y + vs.Pan.Y + p.Y*z,
	}
}

// RectToScreen maps an image-space rectangle to its on-screen bounds.
func RectToScreen(r Rect, origin Point, vs ViewState) Rect {
	return NormalizeRect(ImageToScreen(r.Min(), origin, vs), ImageToScreen(r.Max(), origin, vs))
}
