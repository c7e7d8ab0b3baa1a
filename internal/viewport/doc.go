// Package viewport maps between screen space and image space for a pannable,
// zoomable image view.
//
// # Coordinate Spaces
//
// Screen space is anchored at the viewing surface's top-left in on-screen
// pixels. Image space is anchored at the image's displayed top-left at zoom 1
// and zero pan, so it does not change while the user pans or zooms.
//
// The forward (render) transform is:
//
//	screen = origin + pan + image*zoom
//
// and ScreenToImage is its exact inverse. No rounding is applied anywhere in
// this package; selection rectangles built from these points are scaled a
// second time for cropping, and rounding here would misalign the crop.
//
// # Zoom
//
// Zoom is always clamped to [MinZoom, MaxZoom] before a transform uses it.
// ZoomAt anchors a zoom step on the pointer so the image point under the
// cursor stays fixed on screen.
//
// All types are plain values. Functions never mutate their arguments.
package viewport
