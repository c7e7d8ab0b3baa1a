// Package viewer ties the pieces together into a single interactive session:
// one loaded image, one view and gesture state, at most one extraction in
// flight.
//
// A Session is safe for concurrent use. Pointer and wheel events are cheap
// state transitions performed under the session lock; cropping and the OCR
// call run outside it.
//
// Each extraction is tagged with the session generation at the time it was
// started. Loading an image or starting a new selection bumps the
// generation, so a result that arrives afterwards is reported as stale and
// never replaces the result shown for the current selection.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/ocr-viewport/internal/gesture"
	"github.com/ironsheep/ocr-viewport/internal/imaging"
	"github.com/ironsheep/ocr-viewport/internal/ocr"
	"github.com/ironsheep/ocr-viewport/internal/viewport"
)

var (
	// ErrNoImage is returned by operations that need a loaded image.
	ErrNoImage = errors.New("no image loaded")

	// ErrExtractionInFlight is returned when an extraction is requested while
	// another one has not finished.
	ErrExtractionInFlight = errors.New("an extraction is already in progress")

	// ErrNoExtractor is returned by Extract when the session has no backend.
	ErrNoExtractor = errors.New("no OCR backend configured")

	// ErrInvalidLayout is returned for a displayed size that is not positive
	// and finite.
	ErrInvalidLayout = errors.New("invalid layout")
)

// Size is a laid-out width and height in screen pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Options configures a Session.
type Options struct {
	Extractor ocr.Extractor
	Crop      imaging.CropOptions
	// MaxDisplay bounds the layout used when an image is loaded without a
	// displayed size. Zero on an axis means unbounded.
	MaxDisplay Size
	Logger     logrus.FieldLogger
}

// Result is the outcome of one extraction.
type Result struct {
	Text       string `json:"text"`
	Generation uint64 `json:"generation"`
	// Stale is set when the image or selection changed while the request was
	// in flight. Stale results are not kept as the last result.
	Stale bool `json:"stale"`
	// Crop is the native-pixel rectangle that was sent.
	Crop viewport.Rect `json:"crop"`
}

// Session is a single viewer.
type Session struct {
	opts Options
	log  logrus.FieldLogger

	mu         sync.Mutex
	state      gesture.State
	img        image.Image
	info       *imaging.ImageInfo
	metrics    imaging.Metrics
	generation uint64
	inFlight   bool
	last       *Result
	lastErr    error
}

// New creates an empty session.
func New(opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Session{
		opts:  opts,
		log:   opts.Logger.WithField("component", "viewer"),
		state: gesture.New(viewport.Point{}),
	}
}

// LoadImage replaces the current image. View, selection and results are
// reset. When display is nil the image is laid out to fit MaxDisplay.
func (s *Session) LoadImage(d *imaging.Decoded, name string, size int64, display *Size) (Snapshot, error) {
	if d == nil || d.Image == nil {
		return Snapshot{}, fmt.Errorf("%w: nothing to load", ErrNoImage)
	}
	info := imaging.Describe(d, name, size)

	m := imaging.FitDisplay(info.Width, info.Height, s.opts.MaxDisplay.Width, s.opts.MaxDisplay.Height)
	if display != nil {
		m = m.WithDisplay(display.Width, display.Height)
	}
	if err := m.Validate(); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %w", ErrInvalidLayout, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.img = d.Image
	s.info = info
	s.metrics = m
	s.state = s.state.Reset()
	s.generation++
	s.last = nil
	s.lastErr = nil

	s.log.WithFields(logrus.Fields{
		"name":       name,
		"format":     info.Format,
		"natural":    fmt.Sprintf("%dx%d", info.Width, info.Height),
		"displayed":  fmt.Sprintf("%gx%g", m.DisplayedWidth, m.DisplayedHeight),
		"generation": s.generation,
	}).Info("Image loaded")

	return s.snapshotLocked(), nil
}

// SetLayout records where the viewing surface is on screen and, optionally,
// the size the image is laid out at before zoom.
func (s *Session) SetLayout(origin viewport.Point, display *Size) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if display != nil {
		if s.img == nil {
			return s.snapshotLocked(), ErrNoImage
		}
		m := s.metrics.WithDisplay(display.Width, display.Height)
		if err := m.Validate(); err != nil {
			return s.snapshotLocked(), fmt.Errorf("%w: %w", ErrInvalidLayout, err)
		}
		s.metrics = m
	}
	s.state = s.state.WithOrigin(origin)
	return s.snapshotLocked(), nil
}

// PointerDown starts a pan or selection gesture.
func (s *Session) PointerDown(p gesture.Pointer) (Snapshot, error) {
	return s.apply(func(st gesture.State) gesture.State { return st.Down(p) })
}

// PointerMove updates the active gesture.
func (s *Session) PointerMove(pos viewport.Point) (Snapshot, error) {
	return s.apply(func(st gesture.State) gesture.State { return st.Move(pos) })
}

// PointerUp ends the active gesture.
func (s *Session) PointerUp() (Snapshot, error) {
	return s.apply(gesture.State.Up)
}

// PointerLeave ends the active gesture exactly like PointerUp.
func (s *Session) PointerLeave() (Snapshot, error) {
	return s.apply(gesture.State.Leave)
}

// Wheel zooms around pos.
func (s *Session) Wheel(pos viewport.Point, delta float64) (Snapshot, error) {
	return s.apply(func(st gesture.State) gesture.State { return st.Wheel(pos, delta) })
}

// ResetView restores default zoom and pan. The selection is kept.
func (s *Session) ResetView() (Snapshot, error) {
	return s.apply(gesture.State.ResetView)
}

func (s *Session) apply(step func(gesture.State) gesture.State) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.img == nil {
		return s.snapshotLocked(), ErrNoImage
	}

	next := step(s.state)
	if gesture.SelectionStarted(s.state, next) {
		s.generation++
		s.log.WithField("generation", s.generation).Debug("Selection started")
	}
	s.state = next
	return s.snapshotLocked(), nil
}

// CanExtract reports whether Extract would be attempted right now.
func (s *Session) CanExtract() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canExtractLocked()
}

// canExtractLocked applies the same selection checks as the crop, so a
// selection under one native pixel is not reported as extractable.
func (s *Session) canExtractLocked() bool {
	sel, ok := s.state.SelectionRect()
	if s.img == nil || !ok || s.inFlight {
		return false
	}
	_, err := imaging.NativeRect(&sel, s.metrics)
	return err == nil
}

// cropInput is everything needed to crop, copied out under the lock.
type cropInput struct {
	img     image.Image
	sel     *viewport.Rect
	metrics imaging.Metrics
	name    string
	gen     uint64
}

func (s *Session) cropInputLocked() (cropInput, error) {
	if s.img == nil {
		return cropInput{}, fmt.Errorf("%w: %w", imaging.ErrInvalidSelection, ErrNoImage)
	}
	sel, ok := s.state.SelectionRect()
	if !ok {
		return cropInput{}, fmt.Errorf("%w: no selection", imaging.ErrInvalidSelection)
	}
	if _, err := imaging.NativeRect(&sel, s.metrics); err != nil {
		return cropInput{}, err
	}
	return cropInput{img: s.img, sel: &sel, metrics: s.metrics, name: s.info.Name, gen: s.generation}, nil
}

// Crop encodes the native pixels under the current selection.
func (s *Session) Crop() (*imaging.CropResult, error) {
	s.mu.Lock()
	in, err := s.cropInputLocked()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return imaging.CropSelection(in.img, in.sel, in.metrics, s.opts.Crop)
}

// Overlay renders the current selection onto the natural-size image.
func (s *Session) Overlay(opts imaging.OverlayOptions) (*imaging.OverlayResult, error) {
	s.mu.Lock()
	in, err := s.cropInputLocked()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return imaging.SelectionOverlay(in.img, in.sel, in.metrics, opts)
}

// Extract crops the current selection and sends it to the OCR backend.
//
// Errors are imaging.ErrInvalidSelection (nothing is sent),
// imaging.ErrCanvasUnavailable, ErrExtractionInFlight, or a
// *ocr.ServiceError. A result whose generation no longer matches the
// session is returned with Stale set and is not stored.
func (s *Session) Extract(ctx context.Context) (*Result, error) {
	if s.opts.Extractor == nil {
		return nil, ErrNoExtractor
	}

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return nil, ErrExtractionInFlight
	}
	in, err := s.cropInputLocked()
	if err != nil {
		s.lastErr = err
		s.mu.Unlock()
		return nil, err
	}
	s.inFlight = true
	s.mu.Unlock()

	logger := s.log.WithFields(logrus.Fields{
		"generation": in.gen,
		"source":     in.name,
		"request_id": ocr.RequestMetaFromContext(ctx).RequestID,
	})

	crop, err := imaging.CropSelection(in.img, in.sel, in.metrics, s.opts.Crop)
	if err != nil {
		s.finish(in.gen, nil, err)
		return nil, err
	}
	logger = logger.WithFields(logrus.Fields{"crop_width": crop.Width, "crop_height": crop.Height})
	logger.Debug("Sending crop to OCR backend")

	ctx = ocr.WithRequestMeta(ctx, ocr.RequestMeta{Generation: in.gen, Source: in.name})
	text, err := s.opts.Extractor.Extract(ctx, ocr.Request{MimeType: crop.MimeType, Data: crop.Data})
	if err != nil {
		err = ocr.WrapError("ocr", err)
		var se *ocr.ServiceError
		if errors.As(err, &se) {
			logger.WithField("detail", se.Detail()).Error("OCR request failed")
		}
		s.finish(in.gen, nil, err)
		return nil, err
	}

	res := &Result{Text: text, Generation: in.gen, Crop: crop.Rect}
	res.Stale = s.finish(in.gen, res, nil)
	if res.Stale {
		logger.Warn("Discarding stale OCR result")
	} else {
		logger.WithField("content_length", len(text)).Info("Extraction finished")
	}
	return res, nil
}

// finish clears the in-flight flag and records the outcome unless the
// session has moved on. It reports whether the outcome was stale.
func (s *Session) finish(gen uint64, res *Result, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inFlight = false
	if gen != s.generation {
		return true
	}
	s.last, s.lastErr = res, err
	return false
}

// LastResult returns the most recent non-stale result, if any, and the error
// of the most recent extraction attempt for the current generation.
func (s *Session) LastResult() (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.lastErr
}
