// Package carousel maps between slot indices, angles around the carousel
// circle and the accumulated scroll offset. The controller and the rendering
// payload both use these functions so they agree on angle step and sign.
package carousel

import "math"

// Scroll control constants.
const (
	// CenterX is the horizontal hand position that produces no scroll.
	CenterX = 0.5
	// ScrollGain converts hand displacement from center into radians per frame.
	ScrollGain = 0.15
)

// AngleStep returns the angular spacing of n slots around the circle.
// It returns 0 for n <= 0.
func AngleStep(n int) float64 {
	if n <= 0 {
		return 0
	}
	return 2 * math.Pi / float64(n)
}

// SlotAngle returns the angle of slot i for a carousel rotated by offset.
// Angle 0 is the front of the carousel.
func SlotAngle(i, n int, offset float64) float64 {
	return float64(i)*AngleStep(n) + offset
}

// Layout returns the angle of every slot for a carousel rotated by offset.
func Layout(n int, offset float64) []float64 {
	if n <= 0 {
		return nil
	}
	angles := make([]float64, n)
	for i := range angles {
		angles[i] = SlotAngle(i, n, offset)
	}
	return angles
}

// FocusedIndex returns the slot nearest the front angle for a carousel of n
// slots rotated by offset, or -1 when there are no slots.
func FocusedIndex(offset float64, n int) int {
	if n <= 0 {
		return -1
	}
	raw := roundHalfUp(-offset / AngleStep(n))
	return floorMod(raw, n)
}

// ScrollDelta returns the scroll offset change for one frame with the hand at smoothedX.
// Holding the hand off-center scrolls continuously.
func ScrollDelta(smoothedX float64) float64 {
	return (smoothedX - CenterX) * ScrollGain
}

// roundHalfUp rounds to the nearest integer with halves going towards +Inf.
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

// floorMod is a modulo whose result has the sign of n, so -1 mod 5 is 4.
func floorMod(a, n int) int {
	return ((a % n) + n) % n
}
