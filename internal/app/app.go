// Package app runs the frame loop that turns camera frames into the Orbit mode and carousel state.
package app

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/ayusman/orbit/internal/capture"
	"github.com/ayusman/orbit/internal/controller"
	"github.com/ayusman/orbit/internal/detector"
)

// Default loop timing.
const (
	DefaultFrameInterval = time.Second / 30
	DefaultCameraRetry   = 5 * time.Second
)

// Config holds configuration options for the application.
type Config struct {
	Camera   capture.Camera
	Detector detector.Detector

	// Slots is the initial slot ID list in carousel order.
	Slots []string

	FrameInterval time.Duration
	CameraRetry   time.Duration

	// Now returns the frame timestamp. Defaults to time.Now.
	Now func() time.Time
}

// Status is the published per-frame state.
type Status struct {
	controller.Snapshot
	Enabled     bool      `json:"enabled"`
	CameraError string    `json:"cameraError,omitempty"`
	Frame       uint64    `json:"frame"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// App owns the frame loop and the controller state.
type App struct {
	config   Config
	camera   capture.Camera
	detector detector.Detector
	ctrl     *controller.Controller
	enabled  bool
	status   Status
	subs     map[chan Status]struct{}
	slotsCh  chan []string
	mu       sync.RWMutex
	cancel   context.CancelFunc
	done     chan struct{}
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	if config.FrameInterval <= 0 {
		config.FrameInterval = DefaultFrameInterval
	}
	if config.CameraRetry <= 0 {
		config.CameraRetry = DefaultCameraRetry
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	a := &App{
		config:   config,
		camera:   config.Camera,
		detector: config.Detector,
		ctrl:     controller.New(config.Slots),
		enabled:  true,
		subs:     make(map[chan Status]struct{}),
		slotsCh:  make(chan []string, 1),
	}
	a.status = Status{
		Snapshot:  a.ctrl.Snapshot(),
		Enabled:   true,
		UpdatedAt: config.Now(),
	}
	return a
}

// SetEnabled enables or disables gesture detection.
// While disabled the loop keeps ticking without hands, so the idle rule
// returns the mode to AGGREGATE.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether gesture detection is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetDetector sets the hand detector implementation to use.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// Detector returns the hand detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// SetSlots hands a new slot ID list to the frame loop. A list that has not
// been picked up yet is replaced.
func (a *App) SetSlots(ids []string) {
	ids = append([]string(nil), ids...)
	for {
		select {
		case a.slotsCh <- ids:
			return
		default:
		}
		select {
		case <-a.slotsCh:
		default:
		}
	}
}

// Status returns the most recently published status.
func (a *App) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status
}

// Subscribe returns a channel that receives every published status and a
// function that ends the subscription. A slow subscriber only misses
// intermediate statuses; it always gets the latest one.
func (a *App) Subscribe() (<-chan Status, func()) {
	ch := make(chan Status, 1)

	a.mu.Lock()
	a.subs[ch] = struct{}{}
	a.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.subs, ch)
			a.mu.Unlock()
		})
	}
}

// Start runs the frame loop in the background until Stop is called or ctx ends.
func (a *App) Start(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Frame loop stopped: %v", err)
		}
	}(a.done)

	log.Println("Frame loop started")
}

// Stop halts the frame loop and releases the camera and detector.
func (a *App) Stop() {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel, a.done = nil, nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	if a.camera != nil {
		if err := a.camera.Close(); err != nil {
			log.Printf("Error closing camera: %v", err)
		}
	}

	if d := a.Detector(); d != nil {
		if err := d.Close(); err != nil {
			log.Printf("Error closing detector: %v", err)
		}
	}

	log.Println("Frame loop stopped")
}

// publish stores s as the current status and offers it to every subscriber.
func (a *App) publish(s Status) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.status = s
	for ch := range a.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}
