package capture

import (
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// MockCamera plays back pre-recorded frames for testing.
// With no frames it delivers frames without an image, which is enough for
// pipelines driven by a mock detector.
type MockCamera struct {
	frames  []*gocv.Mat
	index   int
	loop    bool
	mu      sync.Mutex
	running bool
	seq     uint64
	stalled bool
	openErr error
	lost    error
	fps     int
}

func NewMockCamera(frames []*gocv.Mat, loop bool) *MockCamera {
	return &MockCamera{
		frames: frames,
		loop:   loop,
		fps:    DefaultFPS,
	}
}

func (c *MockCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.openErr != nil {
		return c.openErr
	}
	c.running = true
	c.lost = nil
	c.index = 0
	return nil
}

func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	return nil
}

// Read returns the next frame. While stalled it repeats the last sequence number.
func (c *MockCamera) Read() (Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		if c.lost != nil {
			return Frame{}, c.lost
		}
		return Frame{}, ErrCameraNotOpen
	}

	if !c.stalled {
		c.seq++
	}
	frame := Frame{Seq: c.seq, Timestamp: time.Now()}

	if len(c.frames) == 0 {
		return frame, nil
	}

	if c.index >= len(c.frames) {
		if c.loop {
			c.index = 0
		} else {
			return Frame{}, fmt.Errorf("no more frames")
		}
	}

	// Clone the frame so the original isn't modified
	mat := c.frames[c.index].Clone()
	frame.Mat = &mat
	if !c.stalled {
		c.index++
	}

	return frame, nil
}

func (c *MockCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fps = fps
}

func (c *MockCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// SetStalled makes Read keep returning the current sequence number.
func (c *MockCamera) SetStalled(stalled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stalled = stalled
}

// Lose simulates the device disappearing: the camera closes and Read
// returns an ErrCameraLost error until it is reopened.
func (c *MockCamera) Lose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	c.lost = fmt.Errorf("mock camera: %w", ErrCameraLost)
}

// SetOpenError makes Open fail with err until it is cleared with nil.
func (c *MockCamera) SetOpenError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openErr = err
}

// SetFrames replaces the frame sequence
func (c *MockCamera) SetFrames(frames []*gocv.Mat) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = frames
	c.index = 0
}

// Reset restarts playback from the beginning
func (c *MockCamera) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = 0
}
