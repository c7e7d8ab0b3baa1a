package gesture

import "github.com/ironsheep/ocr-viewport/internal/viewport"

// Down starts a gesture. It is a no-op while another gesture is active or
// for any button other than primary.
func (s State) Down(p Pointer) State {
	if s.Active() || p.Button != ButtonPrimary {
		return s
	}

	if p.Pan {
		s.Gesture = Gesture{Kind: Panning, Anchor: p.Pos.Sub(s.View.Pan)}
		return s
	}

	anchor := viewport.ScreenToImage(p.Pos, s.Origin, s.View)
	s.Gesture = Gesture{Kind: Selecting, Anchor: anchor}
	return withSelection(s, viewport.Rect{X: anchor.X, Y: anchor.Y})
}

// Move updates the active gesture with a new pointer position.
func (s State) Move(pos viewport.Point) State {
	switch s.Gesture.Kind {
	case Panning:
		s.View.Pan = pos.Sub(s.Gesture.Anchor)
	case Selecting:
		cur := viewport.ScreenToImage(pos, s.Origin, s.View)
		s = withSelection(s, viewport.NormalizeRect(s.Gesture.Anchor, cur))
	}
	return s
}

// Up ends the active gesture. The last pan and selection are kept.
func (s State) Up() State {
	s.Gesture = Gesture{}
	return s
}

// Leave handles the pointer leaving the tracked surface. It behaves exactly
// like Up so a gesture can never get stuck.
func (s State) Leave() State {
	return s.Up()
}

// Wheel applies a zoom step anchored at pos. The gesture is untouched; an
// in-progress selection keeps its image-space anchor.
func (s State) Wheel(pos viewport.Point, delta float64) State {
	s.View = viewport.ZoomAt(s.View, pos, s.Origin, delta)
	return s
}

// WithOrigin moves the viewing surface.
func (s State) WithOrigin(origin viewport.Point) State {
	s.Origin = origin
	return s
}

// ResetView restores default pan and zoom, keeping the selection.
func (s State) ResetView() State {
	s.View = viewport.DefaultViewState()
	return s
}

// Reset returns the state for a freshly loaded image: default view, no
// gesture, no selection. The surface origin is kept.
func (s State) Reset() State {
	return New(s.Origin)
}
