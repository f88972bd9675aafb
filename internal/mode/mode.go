// Package mode implements the application mode state machine driven by
// smoothed gesture confidences.
package mode

import (
	"fmt"
	"strings"
	"time"
)

// Mode is the application mode: the only externally visible summary of gesture state.
type Mode int

const (
	// Aggregate is the idle sphere. It is the initial mode and the idle fallback.
	Aggregate Mode = iota
	// Browse is the horizontally scrolling carousel.
	Browse
	// Focus is a single zoomed item.
	Focus
)

// Hysteresis bands and the idle fallback.
const (
	// ActiveThreshold is the confidence above which a gesture is considered held.
	ActiveThreshold = 0.6
	// InactiveThreshold is the pinch confidence below which FOCUS is released.
	InactiveThreshold = 0.4
	// IdleTimeout is how long without a hand before the mode falls back to Aggregate.
	IdleTimeout = 500 * time.Millisecond
)

var names = [...]string{
	Aggregate: "AGGREGATE",
	Browse:    "BROWSE",
	Focus:     "FOCUS",
}

// String returns the upper-case mode name.
func (m Mode) String() string {
	if m < 0 || int(m) >= len(names) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return names[m]
}

// Valid reports whether m is one of the three modes.
func (m Mode) Valid() bool {
	return m >= Aggregate && m <= Focus
}

// Parse converts a mode name (case-insensitive) to a Mode.
func Parse(s string) (Mode, error) {
	for i, name := range names {
		if strings.EqualFold(s, name) {
			return Mode(i), nil
		}
	}
	return Aggregate, fmt.Errorf("unknown mode %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid mode %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Next returns the mode for a frame with a hand present, given the current
// mode and the smoothed pinch and openness confidences.
//
// Rules in priority order:
//  1. pinch above ActiveThreshold -> Focus
//  2. in Focus with pinch below InactiveThreshold -> Browse if open, else Aggregate
//  3. in Focus with pinch inside the band -> stay in Focus
//  4. openness above ActiveThreshold -> Browse
//  5. otherwise -> Aggregate
func Next(current Mode, pinch, openness float64) Mode {
	open := openness > ActiveThreshold

	if pinch > ActiveThreshold {
		return Focus
	}

	if current == Focus {
		if pinch < InactiveThreshold {
			if open {
				return Browse
			}
			return Aggregate
		}
		return Focus
	}

	if open {
		return Browse
	}

	return Aggregate
}

// Idle reports whether the time since the last detected hand triggers the idle fallback.
func Idle(sinceLastHand time.Duration) bool {
	return sinceLastHand >= IdleTimeout
}
