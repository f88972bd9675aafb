// Package capture provides camera capture functionality using GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Default camera settings
const (
	DefaultFPS    = 30
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrNoFrame is returned when the camera is open but has not delivered a frame yet.
	ErrNoFrame = errors.New("no frame captured yet")
	// ErrCameraLost is returned after an open device stops delivering frames.
	ErrCameraLost = errors.New("camera stopped delivering frames")
)

// maxReadFailures is how many consecutive failed device reads close the camera.
const maxReadFailures = 50

// readRetryDelay is the pause after a failed device read.
var readRetryDelay = 10 * time.Millisecond

// frameSource is the part of gocv.VideoCapture the grabber uses.
type frameSource interface {
	Read(m *gocv.Mat) bool
	Close() error
}

// Frame is a captured image stamped with a capture sequence number.
// Seq increases by one for every frame the device delivers, so a reader
// that sees the same Seq twice knows no new frame has arrived.
type Frame struct {
	Mat       *gocv.Mat
	Seq       uint64
	Timestamp time.Time
}

// Close releases the frame's Mat. It is safe on a zero Frame.
func (f *Frame) Close() {
	if f.Mat != nil {
		f.Mat.Close()
		f.Mat = nil
	}
}

// Camera defines the interface for camera capture implementations.
type Camera interface {
	Open() error
	Close() error
	// Read returns a copy of the most recent frame. The caller closes it.
	Read() (Frame, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// Options configures a device camera.
type Options struct {
	Device int
	FPS    int
	Width  int
	Height int
}

// cameraImpl grabs frames from a device in the background and keeps the latest one.
type cameraImpl struct {
	opts    Options
	capture *gocv.VideoCapture
	mu      sync.Mutex
	running bool
	lost    error
	latest  gocv.Mat
	hasMat  bool
	seq     uint64
	stamp   time.Time
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewCamera creates a Camera for the given device. Zero option fields use the defaults.
func NewCamera(opts Options) Camera {
	if opts.FPS <= 0 {
		opts.FPS = DefaultFPS
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	return &cameraImpl{opts: opts}
}

// Open opens the device and starts the background grabber.
func (c *cameraImpl) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(c.opts.Device)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", c.opts.Device, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("open camera %d: device unavailable", c.opts.Device)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(c.opts.Width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(c.opts.Height))
	capture.Set(gocv.VideoCaptureFPS, float64(c.opts.FPS))

	c.capture = capture
	c.lost = nil
	c.latest = gocv.NewMat()
	c.hasMat = false
	c.running = true
	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})

	go c.grab(capture, c.stopCh, c.doneCh)

	log.Printf("Camera %d opened (%dx%d @ %d fps)", c.opts.Device, c.opts.Width, c.opts.Height, c.opts.FPS)
	return nil
}

// grab reads frames until stop is closed. VideoCapture.Read blocks for the
// next device frame, so the loop runs at the device rate. After
// maxReadFailures consecutive failed reads the device is treated as gone:
// the camera closes itself and Read reports ErrCameraLost until reopened.
func (c *cameraImpl) grab(src frameSource, stop, done chan struct{}) {
	defer close(done)

	mat := gocv.NewMat()
	defer mat.Close()

	failures := 0
	for {
		select {
		case <-stop:
			return
		default:
		}

		if ok := src.Read(&mat); !ok || mat.Empty() {
			failures++
			if failures >= maxReadFailures {
				c.lose(src, failures)
				return
			}
			time.Sleep(readRetryDelay)
			continue
		}
		failures = 0

		c.mu.Lock()
		if c.running {
			mat.CopyTo(&c.latest)
			c.hasMat = true
			c.seq++
			c.stamp = time.Now()
		}
		c.mu.Unlock()
	}
}

// lose closes a camera whose device stopped delivering frames. It is a no-op
// when Close already owns the shutdown.
func (c *cameraImpl) lose(src frameSource, failures int) {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.lost = fmt.Errorf("camera %d: %d consecutive reads failed: %w", c.opts.Device, failures, ErrCameraLost)
	c.capture = nil
	c.latest.Close()
	c.hasMat = false
	c.mu.Unlock()

	if err := src.Close(); err != nil {
		log.Printf("Error closing lost camera %d: %v", c.opts.Device, err)
	}
	log.Printf("Camera %d lost after %d failed reads", c.opts.Device, failures)
}

// Close stops the grabber and releases the device.
func (c *cameraImpl) Close() error {
	c.mu.Lock()
	if !c.running || c.capture == nil {
		c.running = false
		c.mu.Unlock()
		return nil
	}
	c.running = false
	stop, done, capture := c.stopCh, c.doneCh, c.capture
	c.mu.Unlock()

	close(stop)
	<-done

	c.mu.Lock()
	defer c.mu.Unlock()

	err := capture.Close()
	c.capture = nil
	c.latest.Close()
	c.hasMat = false

	log.Printf("Camera %d closed", c.opts.Device)
	return err
}

// Read returns a clone of the latest frame.
func (c *cameraImpl) Read() (Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		if c.lost != nil {
			return Frame{}, c.lost
		}
		return Frame{}, ErrCameraNotOpen
	}
	if !c.hasMat {
		return Frame{}, ErrNoFrame
	}

	mat := c.latest.Clone()
	return Frame{Mat: &mat, Seq: c.seq, Timestamp: c.stamp}, nil
}

// SetFPS sets the frames per second for capture.
// Values less than or equal to 0 are ignored.
func (c *cameraImpl) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.opts.FPS = fps

	if c.capture != nil {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the current frames per second setting.
func (c *cameraImpl) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.opts.FPS
}

// IsOpen returns true if the camera is currently open and running.
func (c *cameraImpl) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.running
}
