// Package detector provides the hand landmark detector boundary: the
// MediaPipe subprocess bridge and a mock for tests.
package detector

import (
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/orbit/internal/landmark"
)

// Detector defines the interface for hand detection implementations.
type Detector interface {
	// Detect analyzes a video frame captured at ts and returns detected hand landmarks.
	// Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat, ts time.Time) ([]landmark.Hand, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 1).
	MaxHands int

	// MinDetectionConf is the minimum hand detection confidence (0.0-1.0).
	MinDetectionConf float64

	// MinPresenceConf is the minimum hand presence confidence (0.0-1.0).
	MinPresenceConf float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// Script is the path to mediapipe_service.py. Empty means search the usual locations.
	Script string

	// Python is the interpreter used to run Script. Empty means venv or python3.
	Python string

	// IdleShutdown stops the subprocess after this long without a Detect call.
	IdleShutdown time.Duration
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:         1,
		MinDetectionConf: 0.6,
		MinPresenceConf:  0.6,
		MinTrackingConf:  0.6,
		IdleShutdown:     30 * time.Second,
	}
}
