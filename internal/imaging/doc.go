// Package imaging turns an image-space selection into native pixel data.
//
// A selection is drawn against the image as it is laid out on screen (the
// displayed size, before zoom). The source image usually has a different
// natural size, so every selection is mapped through Metrics before pixels
// are read:
//
//	scaleX = naturalWidth / displayedWidth
//	scaleY = naturalHeight / displayedHeight
//	native = selection.Scale(scaleX, scaleY)
//
// The mapping is exact; only the final canvas size is truncated to whole
// pixels when the crop is materialized.
//
// # Coordinate System
//
// Native pixel coordinates are 0-based with (0,0) at the top-left of the
// source image, X increasing rightward and Y increasing downward. A crop
// region may extend past the image; uncovered canvas pixels are white.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. CropSelection and SelectionOverlay
// are stateless and never modify the source image.
//
// # Error Handling
//
// Selections that cannot be cropped return ErrInvalidSelection. A canvas that
// cannot be allocated (no source image, or a crop over MaxPixels)
// returns ErrCanvasUnavailable. Both are matched with errors.Is.
package imaging
