// Package gesture turns a single frame of hand landmarks into raw gesture signals.
package gesture

import (
	"github.com/ayusman/orbit/internal/geom"
	"github.com/ayusman/orbit/internal/landmark"
)

// Classification thresholds.
const (
	// PinchThreshold is the thumb-tip to index-tip distance below which the hand pinches.
	PinchThreshold = 0.06
	// ExtensionRatio is how much farther from the wrist a fingertip must be than
	// its PIP joint for the finger to count as extended.
	ExtensionRatio = 1.1
	// MinExtendedFingers is the number of extended non-thumb fingers for an open palm.
	MinExtendedFingers = 3
)

// finger pairs a fingertip with its PIP joint.
type finger struct {
	tip, pip int
}

// fingers lists the four non-thumb fingers.
var fingers = [4]finger{
	{tip: landmark.IndexTip, pip: landmark.IndexPIP},
	{tip: landmark.MiddleTip, pip: landmark.MiddlePIP},
	{tip: landmark.RingTip, pip: landmark.RingPIP},
	{tip: landmark.PinkyTip, pip: landmark.PinkyPIP},
}

// Signals holds the raw, unsmoothed gesture signals for one frame.
type Signals struct {
	Pinching        bool    `json:"pinching"`
	OpenPalm        bool    `json:"open_palm"`
	PinchDistance   float64 `json:"pinch_distance"`
	ExtendedFingers int     `json:"extended_fingers"`
}

// Classify derives the raw signals from one landmark set.
//
// Extension is measured as the tip-vs-PIP distance from the wrist, which is
// independent of hand size and distance to the camera.
func Classify(h *landmark.Hand) Signals {
	if h == nil {
		return Signals{}
	}

	pinch := geom.Distance(h.Points[landmark.ThumbTip], h.Points[landmark.IndexTip])

	wrist := h.Points[landmark.Wrist]
	extended := 0
	for _, f := range fingers {
		dTip := geom.Distance(wrist, h.Points[f.tip])
		dPip := geom.Distance(wrist, h.Points[f.pip])
		if dTip > dPip*ExtensionRatio {
			extended++
		}
	}

	return Signals{
		Pinching:        pinch < PinchThreshold,
		OpenPalm:        extended >= MinExtendedFingers,
		PinchDistance:   pinch,
		ExtendedFingers: extended,
	}
}

// PinchLevel returns 1 when pinching and 0 otherwise, for smoothing.
func (s Signals) PinchLevel() float64 {
	return level(s.Pinching)
}

// OpenLevel returns 1 for an open palm and 0 otherwise, for smoothing.
func (s Signals) OpenLevel() float64 {
	return level(s.OpenPalm)
}

func level(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
