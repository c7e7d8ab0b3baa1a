package viewer

import (
	"github.com/ironsheep/ocr-viewport/internal/gesture"
	"github.com/ironsheep/ocr-viewport/internal/imaging"
	"github.com/ironsheep/ocr-viewport/internal/viewport"
)

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	View      viewport.ViewState `json:"view"`
	Origin    viewport.Point     `json:"origin"`
	Gesture   gesture.Gesture    `json:"gesture"`
	Selection *viewport.Rect     `json:"selection"`
	// NativeSelection is Selection mapped to native pixels.
	NativeSelection *viewport.Rect `json:"native_selection,omitempty"`

	Image   *imaging.ImageInfo `json:"image,omitempty"`
	Metrics *imaging.Metrics   `json:"metrics,omitempty"`

	CanExtract bool    `json:"can_extract"`
	InFlight   bool    `json:"in_flight"`
	Generation uint64  `json:"generation"`
	LastResult *Result `json:"last_result,omitempty"`
	// LastError is the user-facing message of the last failed extraction.
	LastError string `json:"last_error,omitempty"`
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		View:       s.state.View,
		Origin:     s.state.Origin,
		Gesture:    s.state.Gesture,
		CanExtract: s.canExtractLocked(),
		InFlight:   s.inFlight,
		Generation: s.generation,
	}

	if sel, ok := s.state.SelectionRect(); ok {
		snap.Selection = &sel
		if s.img != nil && s.metrics.Validate() == nil {
			native := sel.Scale(s.metrics.ScaleX(), s.metrics.ScaleY())
			snap.NativeSelection = &native
		}
	}
	if s.img != nil {
		info := *s.info
		m := s.metrics
		snap.Image = &info
		snap.Metrics = &m
	}
	if s.last != nil {
		r := *s.last
		snap.LastResult = &r
	}
	if s.lastErr != nil {
		snap.LastError = s.lastErr.Error()
	}
	return snap
}
