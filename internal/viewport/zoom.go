package viewport

// WheelSensitivity converts a wheel delta into a zoom change. A delta of
// -100 (one notch up on most mice) zooms in by 0.1.
const WheelSensitivity = 0.001

// ZoomAt applies a wheel delta anchored at pointer. The image point under
// the pointer before the step is still under it afterwards. Positive deltas
// zoom out.
func ZoomAt(vs ViewState, pointer, origin Point, delta float64) ViewState {
	vs = vs.Clamped()
	return ZoomTo(vs, pointer, origin, vs.Zoom-delta*WheelSensitivity)
}

// ZoomTo sets an absolute zoom (clamped) anchored at pointer.
//
// When clamping leaves the zoom where it already is, vs is returned as is.
// Recomputing the pan in that case would only add floating point drift.
func ZoomTo(vs ViewState, pointer, origin Point, zoom float64) ViewState {
	vs = vs.Clamped()
	newZoom := ClampZoom(zoom)
	if newZoom == vs.Zoom {
		return vs
	}

	before := ScreenToImage(pointer, origin, vs)
	return ViewState{
		Zoom: newZoom,
		Pan:  pointer.Sub(origin).Sub(before.Mul(newZoom)),
	}
}
