package imaging

import "errors"

var (
	// ErrInvalidSelection is returned when there is no selection, or it is
	// smaller than one pixel on either axis.
	ErrInvalidSelection = errors.New("invalid selection")

	// ErrCanvasUnavailable is returned when no drawing surface can be
	// created for the crop.
	ErrCanvasUnavailable = errors.New("canvas unavailable")
)
