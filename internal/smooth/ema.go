// Package smooth provides exponential moving average smoothing for scalar signals.
package smooth

import "fmt"

// Smoothing factors for the gesture signals.
const (
	// HandXAlpha smooths the horizontal hand position; slow for a stable scroll.
	HandXAlpha = 0.1
	// ConfidenceAlpha smooths the pinch and openness confidences.
	ConfidenceAlpha = 0.2
)

// EMA is an exponential moving average over a scalar signal.
// The zero value is not usable; create one with New.
//
// EMA is a value type: copying it copies its state.
type EMA struct {
	alpha float64
	value float64
	set   bool
}

// New creates an EMA with smoothing factor alpha in (0, 1].
// It panics on an out-of-range alpha.
func New(alpha float64) EMA {
	if !(alpha > 0 && alpha <= 1) {
		panic(fmt.Sprintf("smooth: alpha %v out of range (0, 1]", alpha))
	}
	return EMA{alpha: alpha}
}

// Update feeds a raw sample and returns the smoothed value.
// The first sample after creation or Reset is returned unchanged.
func (e *EMA) Update(raw float64) float64 {
	if !e.set {
		e.value = raw
		e.set = true
		return e.value
	}
	e.value = e.alpha*raw + (1-e.alpha)*e.value
	return e.value
}

// Reset clears the smoothed value so the next Update starts cold.
func (e *EMA) Reset() {
	e.value = 0
	e.set = false
}

// Value returns the current smoothed value and whether one exists.
func (e EMA) Value() (float64, bool) {
	return e.value, e.set
}

// Alpha returns the smoothing factor.
func (e EMA) Alpha() float64 {
	return e.alpha
}
