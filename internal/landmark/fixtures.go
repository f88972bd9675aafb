package landmark

// Shifted returns a copy of h translated horizontally by dx.
func Shifted(h Hand, dx float64) Hand {
	for i := range h.Points {
		h.Points[i].X += dx
	}
	return h
}

// ThumbsUp returns a preset Hand representing a thumbs up gesture.
// The thumb is extended upward while other fingers are curled, so the hand
// is neither pinching nor open.
func ThumbsUp() Hand {
	h := Hand{
		Handedness: "Right",
		Score:      0.95,
	}

	h.Points[Wrist] = Point{X: 0.5, Y: 0.8, Z: 0.0}

	// Thumb extended upward (pointing up, Y decreases going up)
	h.Points[ThumbCMC] = Point{X: 0.55, Y: 0.75, Z: 0.0}
	h.Points[ThumbMCP] = Point{X: 0.58, Y: 0.65, Z: 0.0}
	h.Points[ThumbIP] = Point{X: 0.58, Y: 0.50, Z: 0.0}
	h.Points[ThumbTip] = Point{X: 0.58, Y: 0.35, Z: 0.0}

	// Index finger curled (knuckles close together, tip near palm)
	h.Points[IndexMCP] = Point{X: 0.55, Y: 0.70, Z: -0.02}
	h.Points[IndexPIP] = Point{X: 0.55, Y: 0.68, Z: -0.05}
	h.Points[IndexDIP] = Point{X: 0.52, Y: 0.70, Z: -0.04}
	h.Points[IndexTip] = Point{X: 0.50, Y: 0.72, Z: -0.02}

	h.Points[MiddleMCP] = Point{X: 0.50, Y: 0.68, Z: -0.02}
	h.Points[MiddlePIP] = Point{X: 0.50, Y: 0.66, Z: -0.05}
	h.Points[MiddleDIP] = Point{X: 0.47, Y: 0.68, Z: -0.04}
	h.Points[MiddleTip] = Point{X: 0.45, Y: 0.70, Z: -0.02}

	h.Points[RingMCP] = Point{X: 0.45, Y: 0.70, Z: -0.02}
	h.Points[RingPIP] = Point{X: 0.45, Y: 0.68, Z: -0.05}
	h.Points[RingDIP] = Point{X: 0.42, Y: 0.70, Z: -0.04}
	h.Points[RingTip] = Point{X: 0.40, Y: 0.72, Z: -0.02}

	h.Points[PinkyMCP] = Point{X: 0.40, Y: 0.72, Z: -0.02}
	h.Points[PinkyPIP] = Point{X: 0.40, Y: 0.70, Z: -0.05}
	h.Points[PinkyDIP] = Point{X: 0.37, Y: 0.72, Z: -0.04}
	h.Points[PinkyTip] = Point{X: 0.35, Y: 0.74, Z: -0.02}

	return h
}

// OpenPalm returns a preset Hand representing an open palm gesture.
// All fingers are extended outward and the middle MCP sits at x=0.5.
func OpenPalm() Hand {
	h := Hand{
		Handedness: "Right",
		Score:      0.95,
	}

	h.Points[Wrist] = Point{X: 0.5, Y: 0.8, Z: 0.0}

	// Thumb extended to the side
	h.Points[ThumbCMC] = Point{X: 0.55, Y: 0.75, Z: 0.02}
	h.Points[ThumbMCP] = Point{X: 0.62, Y: 0.70, Z: 0.03}
	h.Points[ThumbIP] = Point{X: 0.68, Y: 0.65, Z: 0.03}
	h.Points[ThumbTip] = Point{X: 0.73, Y: 0.60, Z: 0.03}

	h.Points[IndexMCP] = Point{X: 0.55, Y: 0.68, Z: 0.0}
	h.Points[IndexPIP] = Point{X: 0.57, Y: 0.55, Z: 0.0}
	h.Points[IndexDIP] = Point{X: 0.58, Y: 0.45, Z: 0.0}
	h.Points[IndexTip] = Point{X: 0.58, Y: 0.35, Z: 0.0}

	h.Points[MiddleMCP] = Point{X: 0.50, Y: 0.66, Z: 0.0}
	h.Points[MiddlePIP] = Point{X: 0.50, Y: 0.52, Z: 0.0}
	h.Points[MiddleDIP] = Point{X: 0.50, Y: 0.40, Z: 0.0}
	h.Points[MiddleTip] = Point{X: 0.50, Y: 0.28, Z: 0.0}

	h.Points[RingMCP] = Point{X: 0.45, Y: 0.68, Z: 0.0}
	h.Points[RingPIP] = Point{X: 0.43, Y: 0.55, Z: 0.0}
	h.Points[RingDIP] = Point{X: 0.42, Y: 0.45, Z: 0.0}
	h.Points[RingTip] = Point{X: 0.42, Y: 0.35, Z: 0.0}

	h.Points[PinkyMCP] = Point{X: 0.40, Y: 0.70, Z: 0.0}
	h.Points[PinkyPIP] = Point{X: 0.37, Y: 0.60, Z: 0.0}
	h.Points[PinkyDIP] = Point{X: 0.35, Y: 0.50, Z: 0.0}
	h.Points[PinkyTip] = Point{X: 0.34, Y: 0.42, Z: 0.0}

	return h
}

// Pinch returns an open hand whose thumb tip touches the index tip.
// The other three fingers stay extended, so the hand also reads as open.
func Pinch() Hand {
	h := OpenPalm()
	h.Points[ThumbIP] = Point{X: 0.62, Y: 0.48, Z: 0.0}
	h.Points[ThumbTip] = Point{X: 0.58, Y: 0.37, Z: 0.0}
	return h
}
