// Package landmark holds the 21-point hand landmark model shared by the
// detector and the gesture pipeline. It has no OpenCV dependency.
package landmark

import (
	"errors"
	"fmt"
	"math"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// ErrMalformed is returned when a landmark set does not have the
// 21-point shape or carries non-finite coordinates.
var ErrMalformed = errors.New("malformed landmark set")

// Point represents a landmark in normalized image coordinates.
// X and Y are in [0,1] relative to the frame, Z is relative depth.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Hand holds the 21 landmarks of one detected hand.
type Hand struct {
	Points     [NumLandmarks]Point `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// Validate reports ErrMalformed if any coordinate is NaN or infinite.
func (h *Hand) Validate() error {
	if h == nil {
		return fmt.Errorf("nil hand: %w", ErrMalformed)
	}
	for i, p := range h.Points {
		if !finite(p.X) || !finite(p.Y) || !finite(p.Z) {
			return fmt.Errorf("landmark %d is not finite: %w", i, ErrMalformed)
		}
	}
	return nil
}

// FromPoints builds a Hand from an arbitrary point slice.
// The slice must hold exactly NumLandmarks points.
func FromPoints(points []Point, handedness string, score float64) (Hand, error) {
	lm := Hand{
		Handedness: handedness,
		Score:      score,
	}
	if len(points) != NumLandmarks {
		return lm, fmt.Errorf("got %d points, want %d: %w", len(points), NumLandmarks, ErrMalformed)
	}
	copy(lm.Points[:], points)
	return lm, lm.Validate()
}

// First returns the first hand of a detection result, or nil if there is none.
func First(hands []Hand) *Hand {
	if len(hands) == 0 {
		return nil
	}
	return &hands[0]
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
