package landmark

import (
	"errors"
	"math"
	"testing"
)

func TestHand_Validate(t *testing.T) {
	t.Run("fixture hands are valid", func(t *testing.T) {
		for name, h := range map[string]Hand{
			"thumbs up": ThumbsUp(),
			"open palm": OpenPalm(),
			"pinch":     Pinch(),
		} {
			if err := h.Validate(); err != nil {
				t.Errorf("%s: unexpected error: %v", name, err)
			}
		}
	})

	t.Run("NaN coordinate is malformed", func(t *testing.T) {
		h := OpenPalm()
		h.Points[MiddleTip].Y = math.NaN()

		if err := h.Validate(); !errors.Is(err, ErrMalformed) {
			t.Errorf("expected ErrMalformed, got %v", err)
		}
	})

	t.Run("infinite coordinate is malformed", func(t *testing.T) {
		h := OpenPalm()
		h.Points[Wrist].Z = math.Inf(-1)

		if err := h.Validate(); !errors.Is(err, ErrMalformed) {
			t.Errorf("expected ErrMalformed, got %v", err)
		}
	})

	t.Run("nil hand is malformed", func(t *testing.T) {
		var h *Hand
		if err := h.Validate(); !errors.Is(err, ErrMalformed) {
			t.Errorf("expected ErrMalformed, got %v", err)
		}
	})
}

func TestFromPoints(t *testing.T) {
	tests := []struct {
		name    string
		count   int
		wantErr bool
	}{
		{name: "exactly 21 points", count: NumLandmarks},
		{name: "too few points", count: 20, wantErr: true},
		{name: "too many points", count: 22, wantErr: true},
		{name: "no points", count: 0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			points := make([]Point, tt.count)
			for i := range points {
				points[i] = Point{X: float64(i) / 100, Y: 0.5, Z: 0}
			}

			h, err := FromPoints(points, "Left", 0.8)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformed) {
					t.Fatalf("expected ErrMalformed, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if h.Points[20].X != 0.2 {
				t.Errorf("expected last point X 0.2, got %f", h.Points[20].X)
			}
			if h.Handedness != "Left" || h.Score != 0.8 {
				t.Errorf("metadata not preserved: %+v", h)
			}
		})
	}
}

func TestFirst(t *testing.T) {
	if First(nil) != nil {
		t.Error("expected nil for no hands")
	}

	hands := []Hand{Pinch(), OpenPalm()}
	first := First(hands)
	if first == nil || first.Points[ThumbTip] != hands[0].Points[ThumbTip] {
		t.Error("expected the first hand to be returned")
	}
}

func TestShifted(t *testing.T) {
	h := OpenPalm()
	moved := Shifted(h, -0.2)

	if math.Abs(moved.Points[MiddleMCP].X-0.3) > 1e-9 {
		t.Errorf("expected middle MCP X 0.3, got %f", moved.Points[MiddleMCP].X)
	}
	if h.Points[MiddleMCP].X != 0.5 {
		t.Error("Shifted must not modify its input")
	}
}

func TestOpenPalm(t *testing.T) {
	h := OpenPalm()

	t.Run("all fingers are extended", func(t *testing.T) {
		minExtension := 0.2

		pairs := map[string][2]int{
			"index":  {IndexMCP, IndexTip},
			"middle": {MiddleMCP, MiddleTip},
			"ring":   {RingMCP, RingTip},
			"pinky":  {PinkyMCP, PinkyTip},
		}
		for name, p := range pairs {
			extension := h.Points[p[0]].Y - h.Points[p[1]].Y
			if extension < minExtension {
				t.Errorf("%s finger not extended enough (extension: %f)", name, extension)
			}
		}
	})

	t.Run("middle MCP is horizontally centered", func(t *testing.T) {
		if h.Points[MiddleMCP].X != 0.5 {
			t.Errorf("expected middle MCP X 0.5, got %f", h.Points[MiddleMCP].X)
		}
	})
}
