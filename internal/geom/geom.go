// Package geom provides the small numeric helpers used to derive gesture
// signals from landmark positions.
package geom

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/ayusman/orbit/internal/landmark"
)

// Vec converts a landmark to an r3 vector.
func Vec(p landmark.Point) r3.Vector {
	return r3.Vector{X: p.X, Y: p.Y, Z: p.Z}
}

// Distance returns the Euclidean distance between two landmarks.
func Distance(a, b landmark.Point) float64 {
	return Vec(a).Distance(Vec(b))
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Lerp interpolates linearly from start to end by t.
func Lerp(start, end, t float64) float64 {
	return start*(1-t) + end*t
}
