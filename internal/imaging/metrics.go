package imaging

import (
	"fmt"
	"math"
)

// Metrics relates an image's intrinsic size to the size it is laid out at
// on screen (before zoom).
type Metrics struct {
	NaturalWidth    int     `json:"natural_width"`
	NaturalHeight   int     `json:"natural_height"`
	DisplayedWidth  float64 `json:"displayed_width"`
	DisplayedHeight float64 `json:"displayed_height"`
}

// ScaleX is the number of native pixels per displayed pixel horizontally.
func (m Metrics) ScaleX() float64 { return float64(m.NaturalWidth) / m.DisplayedWidth }

// ScaleY is the number of native pixels per displayed pixel vertically.
func (m Metrics) ScaleY() float64 { return float64(m.NaturalHeight) / m.DisplayedHeight }

// Validate checks that both sizes are positive and finite.
func (m Metrics) Validate() error {
	if m.NaturalWidth <= 0 || m.NaturalHeight <= 0 {
		return fmt.Errorf("natural size must be positive, got %dx%d", m.NaturalWidth, m.NaturalHeight)
	}
	if !positiveFinite(m.DisplayedWidth) || !positiveFinite(m.DisplayedHeight) {
		return fmt.Errorf("displayed size must be positive, got %gx%g", m.DisplayedWidth, m.DisplayedHeight)
	}
	return nil
}

// WithDisplay returns m laid out at w x h.
func (m Metrics) WithDisplay(w, h float64) Metrics {
	m.DisplayedWidth, m.DisplayedHeight = w, h
	return m
}

// FitDisplay lays out a natural-size image inside a maxW x maxH box,
// preserving aspect ratio. Images that already fit are displayed at natural
// size. A non-positive bound disables fitting on that axis.
func FitDisplay(naturalW, naturalH int, maxW, maxH float64) Metrics {
	m := Metrics{
		NaturalWidth:    naturalW,
		NaturalHeight:   naturalH,
		DisplayedWidth:  float64(naturalW),
		DisplayedHeight: float64(naturalH),
	}
	if naturalW <= 0 || naturalH <= 0 {
		return m
	}

	ratio := 1.0
	if maxW > 0 {
		ratio = math.Min(ratio, maxW/float64(naturalW))
	}
	if maxH > 0 {
		ratio = math.Min(ratio, maxH/float64(naturalH))
	}
	if ratio < 1 {
		m.DisplayedWidth = float64(naturalW) * ratio
		m.DisplayedHeight = float64(naturalH) * ratio
	}
	return m
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
