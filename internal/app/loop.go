package app

import (
	"context"
	"errors"
	"log"
	"time"

	"golang.org/x/time/rate"

	"github.com/ayusman/orbit/internal/capture"
	"github.com/ayusman/orbit/internal/controller"
	"github.com/ayusman/orbit/internal/landmark"
	"github.com/ayusman/orbit/internal/metrics"
)

// loop holds the state that only the frame loop goroutine touches.
type loop struct {
	lastSeq     uint64
	frame       uint64
	cameraErr   string
	nextRetry   time.Time
	detectorLog rate.Sometimes
	cameraLog   rate.Sometimes
}

// Run drives the controller at the configured frame interval until ctx ends.
// Every tick produces exactly one controller step and one published status;
// no detector or camera failure stops the loop.
func (a *App) Run(ctx context.Context) error {
	l := &loop{
		detectorLog: rate.Sometimes{Interval: time.Second},
		cameraLog:   rate.Sometimes{Interval: time.Second},
	}

	// Pick up a slot list handed over before the loop started.
	select {
	case ids := <-a.slotsCh:
		a.ctrl.SetSlots(ids)
	default:
	}

	ticker := time.NewTicker(a.config.FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ids := <-a.slotsCh:
			a.ctrl.SetSlots(ids)
			a.publish(a.buildStatus(l, a.config.Now()))
		case <-ticker.C:
			a.tick(l)
		}
	}
}

// tick processes one frame.
func (a *App) tick(l *loop) {
	now := a.config.Now()
	enabled := a.IsEnabled()

	var hand *landmark.Hand
	ready := true
	if enabled {
		a.ensureCamera(l, now)
		hand, ready = a.detect(l)
	}

	prev := a.ctrl.State().Mode
	state := a.ctrl.Process(controller.Frame{Now: now, Hand: hand, Stale: !ready})
	if state.Mode != prev {
		log.Printf("mode %s -> %s", prev, state.Mode)
		metrics.RecordTransition(prev, state.Mode)
	}

	l.frame++
	status := a.buildStatus(l, now)
	status.Enabled = enabled

	metrics.RecordFrame(metrics.Frame{
		Mode:            status.Mode,
		PinchConfidence: status.PinchConfidence,
		OpenConfidence:  status.OpenConfidence,
		ScrollOffset:    status.ScrollOffset,
		HandPresent:     status.HandPresent,
		SlotCount:       status.SlotCount,
	})

	a.publish(status)
}

func (a *App) buildStatus(l *loop, now time.Time) Status {
	return Status{
		Snapshot:    a.ctrl.Snapshot(),
		Enabled:     a.IsEnabled(),
		CameraError: l.cameraErr,
		Frame:       l.frame,
		UpdatedAt:   now,
	}
}

// ensureCamera opens the camera, retrying at most once per CameraRetry.
func (a *App) ensureCamera(l *loop, now time.Time) {
	if a.camera == nil || a.camera.IsOpen() {
		return
	}
	if now.Before(l.nextRetry) {
		return
	}

	if _, err := a.camera.Read(); errors.Is(err, capture.ErrCameraLost) {
		log.Printf("Reopening camera: %v", err)
	}
	if err := a.camera.Open(); err != nil {
		l.cameraErr = err.Error()
		l.nextRetry = now.Add(a.config.CameraRetry)
		metrics.SetCameraError(true)
		log.Printf("Camera unavailable, retrying in %s: %v", a.config.CameraRetry, err)
		return
	}

	if l.cameraErr != "" {
		log.Println("Camera recovered")
	}
	l.cameraErr = ""
	l.nextRetry = time.Time{}
	metrics.SetCameraError(false)
}

// detect reads the latest frame and returns the first valid hand, or nil.
// ready is false when the camera has no new frame since the previous tick;
// such a frame is not re-detected.
func (a *App) detect(l *loop) (hand *landmark.Hand, ready bool) {
	if a.camera == nil || !a.camera.IsOpen() {
		return nil, true
	}

	frame, err := a.camera.Read()
	if err != nil {
		switch {
		case errors.Is(err, capture.ErrNoFrame):
			metrics.RecordSkippedFrame()
			return nil, false
		case !errors.Is(err, capture.ErrCameraNotOpen):
			l.cameraLog.Do(func() { log.Printf("Error reading frame: %v", err) })
		}
		return nil, true
	}
	defer frame.Close()

	if frame.Seq == l.lastSeq {
		metrics.RecordSkippedFrame()
		return nil, false
	}
	l.lastSeq = frame.Seq

	d := a.Detector()
	if d == nil {
		return nil, true
	}

	hands, err := d.Detect(frame.Mat, frame.Timestamp)
	if err != nil {
		metrics.RecordDetectorError()
		l.detectorLog.Do(func() { log.Printf("Error detecting hands: %v", err) })
		return nil, true
	}

	hand = landmark.First(hands)
	if hand == nil {
		return nil, true
	}
	if err := hand.Validate(); err != nil {
		metrics.RecordDetectorError()
		l.detectorLog.Do(func() { log.Printf("Dropping hand: %v", err) })
		return nil, true
	}
	return hand, true
}
