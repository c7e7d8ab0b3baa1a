// Package gesture interprets pointer input as either panning or region
// selection over a viewport.
//
// State is a single immutable value. Every transition is a method that
// returns the next State, so the current view, gesture and selection always
// change together and can be compared or replayed in tests.
//
//	Idle --down(primary, pan modifier)--> Panning --up/leave--> Idle
//	Idle --down(primary)----------------> Selecting --up/leave--> Idle
//
// A gesture can only start from Idle. Non-primary buttons never start one.
package gesture

import (
	"fmt"

	"github.com/ironsheep/ocr-viewport/internal/viewport"
)

// Kind identifies the active gesture.
type Kind int

const (
	Idle Kind = iota
	Panning
	Selecting
)

func (k Kind) String() string {
	switch k {
	case Idle:
		return "idle"
	case Panning:
		return "panning"
	case Selecting:
		return "selecting"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MarshalText renders the kind by name in JSON payloads.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText parses a kind name written by MarshalText.
func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*k = Idle
	case "panning":
		*k = Panning
	case "selecting":
		*k = Selecting
	default:
		return fmt.Errorf("unknown gesture kind: %s", text)
	}
	return nil
}

// Button is a pointer button.
type Button int

const (
	ButtonPrimary Button = iota
	ButtonMiddle
	ButtonSecondary
)

// ParseButton maps a button name to a Button. Empty means primary.
func ParseButton(s string) (Button, error) {
	switch s {
	case "", "primary", "left":
		return ButtonPrimary, nil
	case "middle", "auxiliary":
		return ButtonMiddle, nil
	case "secondary", "right":
		return ButtonSecondary, nil
	default:
		return ButtonPrimary, fmt.Errorf("unknown pointer button: %s", s)
	}
}

// Gesture is the active gesture and the anchor captured when it started.
// For Panning the anchor is in screen space (pointer minus pan); for
// Selecting it is in image space.
type Gesture struct {
	Kind   Kind           `json:"kind"`
	Anchor viewport.Point `json:"anchor"`
}

// Pointer is a single pointer sample.
type Pointer struct {
	Pos    viewport.Point
	Button Button
	// Pan is true while the pan modifier is held.
	Pan bool
}

// State is everything the input machine owns.
type State struct {
	View      viewport.ViewState `json:"view"`
	Gesture   Gesture            `json:"gesture"`
	Selection *viewport.Rect     `json:"selection"`
	// Origin is the viewing surface's top-left in screen coordinates.
	Origin viewport.Point `json:"origin"`
}

// New returns the default state for a surface at origin.
func New(origin viewport.Point) State {
	return State{View: viewport.DefaultViewState(), Origin: origin}
}

// Active reports whether a gesture is in progress.
func (s State) Active() bool { return s.Gesture.Kind != Idle }

// SelectionRect returns the current selection and whether one exists.
func (s State) SelectionRect() (viewport.Rect, bool) {
	if s.Selection == nil {
		return viewport.Rect{}, false
	}
	return *s.Selection, true
}

// SelectionStarted reports whether the step from prev to next began a new
// selection gesture.
func SelectionStarted(prev, next State) bool {
	return prev.Gesture.Kind != Selecting && next.Gesture.Kind == Selecting
}

func withSelection(s State, r viewport.Rect) State {
	s.Selection = &r
	return s
}
