// Package controller turns per-frame hand observations into the application
// mode, the carousel scroll offset and the focused slot.
package controller

import (
	"time"

	"github.com/ayusman/orbit/internal/carousel"
	"github.com/ayusman/orbit/internal/gesture"
	"github.com/ayusman/orbit/internal/landmark"
	"github.com/ayusman/orbit/internal/mode"
	"github.com/ayusman/orbit/internal/smooth"
)

// State is the complete gesture state carried between frames.
// It is a value: copying it copies the smoothers too.
type State struct {
	Mode         mode.Mode
	ScrollOffset float64
	LastHandSeen time.Time
	HandPresent  bool
	Signals      gesture.Signals

	Pinch    smooth.EMA
	Openness smooth.EMA
	HandX    smooth.EMA
}

// NewState returns the initial state: Aggregate, no scroll, cold smoothers.
func NewState() State {
	return State{
		Mode:     mode.Aggregate,
		Pinch:    smooth.New(smooth.ConfidenceAlpha),
		Openness: smooth.New(smooth.ConfidenceAlpha),
		HandX:    smooth.New(smooth.HandXAlpha),
	}
}

// Frame is the input for one tick. A nil Hand means no hand this frame.
// Stale marks a tick without a new camera frame: the previous observation
// carries over and only the idle rule applies.
type Frame struct {
	Now   time.Time
	Hand  *landmark.Hand
	Stale bool
}

// Step computes the state after frame f. It does not modify prev.
//
// A hand that fails validation is treated as absent.
func Step(prev State, f Frame) State {
	next := prev

	if f.Stale && prev.HandPresent && !mode.Idle(f.Now.Sub(prev.LastHandSeen)) {
		return next
	}

	if f.Stale || f.Hand == nil || f.Hand.Validate() != nil {
		next.HandPresent = false
		next.Signals = gesture.Signals{}
		if mode.Idle(f.Now.Sub(prev.LastHandSeen)) {
			next.Mode = mode.Aggregate
			next.HandX.Reset()
		}
		return next
	}

	next.HandPresent = true
	next.LastHandSeen = f.Now
	next.Signals = gesture.Classify(f.Hand)

	pinch := next.Pinch.Update(next.Signals.PinchLevel())
	openness := next.Openness.Update(next.Signals.OpenLevel())
	next.Mode = mode.Next(prev.Mode, pinch, openness)

	x := next.HandX.Update(f.Hand.Points[landmark.MiddleMCP].X)
	if next.Mode == mode.Browse {
		next.ScrollOffset += carousel.ScrollDelta(x)
	}

	return next
}

// Snapshot is the externally visible result of the latest frame.
type Snapshot struct {
	Mode            mode.Mode `json:"mode"`
	ScrollOffset    float64   `json:"scrollOffset"`
	FocusedID       *string   `json:"focusedId"`
	FocusedIndex    int       `json:"focusedIndex"`
	SlotCount       int       `json:"slotCount"`
	HandPresent     bool      `json:"handPresent"`
	PinchConfidence float64   `json:"pinchConfidence"`
	OpenConfidence  float64   `json:"openConfidence"`
	Angles          []float64 `json:"angles"`
}

// Controller owns a State and the slot list it scrolls through.
// It is not safe for concurrent use; the frame loop is its only caller.
type Controller struct {
	state State
	slots []string
}

// New creates a controller over the given slot IDs.
func New(slots []string) *Controller {
	c := &Controller{state: NewState()}
	c.SetSlots(slots)
	return c
}

// Process advances the controller by one frame and returns the resulting state.
func (c *Controller) Process(f Frame) State {
	c.state = Step(c.state, f)
	return c.state
}

// SetSlots replaces the slot list. The scroll offset is kept, so the focused
// index is re-derived for the new slot count.
func (c *Controller) SetSlots(ids []string) {
	c.slots = append([]string(nil), ids...)
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	return c.state
}

// Slots returns a copy of the current slot list.
func (c *Controller) Slots() []string {
	return append([]string(nil), c.slots...)
}

// Snapshot derives the externally visible view of the current state.
func (c *Controller) Snapshot() Snapshot {
	n := len(c.slots)
	pinch, _ := c.state.Pinch.Value()
	open, _ := c.state.Openness.Value()

	s := Snapshot{
		Mode:            c.state.Mode,
		ScrollOffset:    c.state.ScrollOffset,
		FocusedIndex:    carousel.FocusedIndex(c.state.ScrollOffset, n),
		SlotCount:       n,
		HandPresent:     c.state.HandPresent,
		PinchConfidence: pinch,
		OpenConfidence:  open,
		Angles:          carousel.Layout(n, c.state.ScrollOffset),
	}
	if s.FocusedIndex >= 0 {
		id := c.slots[s.FocusedIndex]
		s.FocusedID = &id
	}
	return s
}
