package detector

import (
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/orbit/internal/landmark"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	hands []landmark.Hand
	err   error
	calls int
	last  time.Time
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []landmark.Hand) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat, ts time.Time) ([]landmark.Hand, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.last = ts
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Calls returns how many times Detect was invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastTimestamp returns the timestamp passed to the most recent Detect call.
func (m *MockDetector) LastTimestamp() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}
