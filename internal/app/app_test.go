package app

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/ayusman/orbit/internal/capture"
	"github.com/ayusman/orbit/internal/detector"
	"github.com/ayusman/orbit/internal/landmark"
	"github.com/ayusman/orbit/internal/mode"
)

// fakeClock advances by a fixed step on every call.
type fakeClock struct {
	now  time.Time
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.now = c.now.Add(c.step)
	return c.now
}

type testApp struct {
	*App
	camera   *capture.MockCamera
	detector *detector.MockDetector
	loop     *loop
}

func newTestApp(t *testing.T, slots []string) *testApp {
	t.Helper()

	cam := capture.NewMockCamera(nil, false)
	det := detector.NewMockDetector()
	clock := &fakeClock{now: time.Unix(1700000000, 0), step: 33 * time.Millisecond}

	a := New(Config{
		Camera:        cam,
		Detector:      det,
		Slots:         slots,
		FrameInterval: time.Millisecond,
		CameraRetry:   time.Second,
		Now:           clock.Now,
	})

	return &testApp{App: a, camera: cam, detector: det, loop: &loop{}}
}

func (ta *testApp) ticks(n int) Status {
	for i := 0; i < n; i++ {
		ta.tick(ta.loop)
	}
	return ta.Status()
}

func TestApp_InitialStatus(t *testing.T) {
	a := newTestApp(t, []string{"a", "b", "c", "d", "e"})

	s := a.Status()
	if s.Mode != mode.Aggregate {
		t.Errorf("expected AGGREGATE, got %v", s.Mode)
	}
	if s.FocusedID == nil || *s.FocusedID != "a" {
		t.Errorf("expected slot a focused, got %v", s.FocusedID)
	}
	if !s.Enabled {
		t.Error("expected detection enabled by default")
	}
}

func TestApp_AbsentThenPinch(t *testing.T) {
	a := newTestApp(t, []string{"a", "b", "c", "d", "e"})

	s := a.ticks(10)
	if s.Mode != mode.Aggregate {
		t.Fatalf("after absent frames: mode = %v, want AGGREGATE", s.Mode)
	}
	if s.Frame != 10 {
		t.Errorf("expected frame 10, got %d", s.Frame)
	}

	a.detector.SetHands([]landmark.Hand{landmark.Pinch()})
	s = a.ticks(5)
	if s.Mode != mode.Focus {
		t.Errorf("after pinch frames: mode = %v, want FOCUS", s.Mode)
	}
	if !s.HandPresent {
		t.Error("expected hand present")
	}
	if a.detector.Calls() != 15 {
		t.Errorf("expected one detection per tick, got %d", a.detector.Calls())
	}
}

func TestApp_IdleFallback(t *testing.T) {
	a := newTestApp(t, []string{"a", "b", "c", "d", "e"})
	a.detector.SetHands([]landmark.Hand{landmark.OpenPalm()})

	if s := a.ticks(1); s.Mode != mode.Browse {
		t.Fatalf("mode = %v, want BROWSE", s.Mode)
	}

	a.detector.SetHands(nil)

	// 33ms per tick: 15 ticks is 495ms, 16 is 528ms.
	if s := a.ticks(15); s.Mode != mode.Browse {
		t.Errorf("after 495ms without a hand: mode = %v, want BROWSE", s.Mode)
	}
	if s := a.ticks(1); s.Mode != mode.Aggregate {
		t.Errorf("after 528ms without a hand: mode = %v, want AGGREGATE", s.Mode)
	}
}

func TestApp_DetectorErrorIsNoHand(t *testing.T) {
	a := newTestApp(t, []string{"a"})
	a.detector.SetHands([]landmark.Hand{landmark.OpenPalm()})
	a.ticks(1)

	a.detector.SetError(errors.New("service crashed"))
	s := a.ticks(3)
	if s.HandPresent {
		t.Error("detector error should be treated as no hand")
	}
	if s.Mode != mode.Browse {
		t.Errorf("mode should hold inside the idle window, got %v", s.Mode)
	}

	s = a.ticks(20)
	if s.Mode != mode.Aggregate {
		t.Errorf("mode = %v, want AGGREGATE after idle timeout", s.Mode)
	}
}

func TestApp_MalformedHandIsNoHand(t *testing.T) {
	a := newTestApp(t, []string{"a"})

	bad := landmark.Pinch()
	bad.Points[landmark.ThumbTip].X = math.Inf(1)
	a.detector.SetHands([]landmark.Hand{bad})

	s := a.ticks(5)
	if s.HandPresent || s.Mode != mode.Aggregate {
		t.Errorf("malformed hand changed state: %+v", s)
	}
}

func TestApp_StalledCameraSkipsDetection(t *testing.T) {
	a := newTestApp(t, []string{"a"})
	a.detector.SetHands([]landmark.Hand{landmark.OpenPalm()})

	a.ticks(2)
	calls := a.detector.Calls()

	a.camera.SetStalled(true)
	s := a.ticks(3)
	if a.detector.Calls() != calls {
		t.Errorf("detector called %d times on a stalled camera", a.detector.Calls()-calls)
	}
	if !s.HandPresent || s.Mode != mode.Browse {
		t.Errorf("a frame that is not ready should keep the last observation: %+v", s)
	}

	a.camera.SetStalled(false)
	a.ticks(1)
	if a.detector.Calls() != calls+1 {
		t.Errorf("expected detection to resume, got %d calls", a.detector.Calls())
	}
}

func TestApp_LongStallFallsBackToAggregate(t *testing.T) {
	a := newTestApp(t, []string{"a"})
	a.detector.SetHands([]landmark.Hand{landmark.OpenPalm()})
	a.ticks(1)

	a.camera.SetStalled(true)

	// 33ms per tick: 15 stale ticks is 495ms since the hand was seen.
	if s := a.ticks(15); !s.HandPresent || s.Mode != mode.Browse {
		t.Errorf("inside the idle window: %+v", s)
	}
	s := a.ticks(1)
	if s.HandPresent || s.Mode != mode.Aggregate {
		t.Errorf("a stall past the idle timeout should drop the hand: %+v", s)
	}
}

func TestApp_CameraLost(t *testing.T) {
	a := newTestApp(t, []string{"a"})
	a.detector.SetHands([]landmark.Hand{landmark.OpenPalm()})
	a.ticks(2)

	a.camera.SetOpenError(errors.New("device gone"))
	a.camera.Lose()

	s := a.ticks(1)
	if s.CameraError == "" {
		t.Fatal("expected camera error after the device was lost")
	}
	if s.HandPresent {
		t.Error("a lost camera should count as no hand")
	}

	s = a.ticks(3)
	if s.CameraError == "" {
		t.Error("camera error should hold while reopening fails")
	}

	a.camera.SetOpenError(nil)
	s = a.ticks(35)
	if s.CameraError != "" {
		t.Errorf("expected camera to recover, got %q", s.CameraError)
	}
	if !a.camera.IsOpen() {
		t.Error("expected the camera to be reopened")
	}
	if !s.HandPresent {
		t.Error("expected detection to resume after recovery")
	}
}

func TestApp_CameraError(t *testing.T) {
	a := newTestApp(t, []string{"a"})
	a.camera.SetOpenError(errors.New("permission denied"))
	a.detector.SetHands([]landmark.Hand{landmark.OpenPalm()})

	s := a.ticks(3)
	if s.CameraError == "" {
		t.Fatal("expected camera error in status")
	}
	if s.Mode != mode.Aggregate || s.HandPresent {
		t.Errorf("no frames should reach the controller: %+v", s)
	}
	if a.detector.Calls() != 0 {
		t.Errorf("detector called without a camera")
	}

	a.camera.SetOpenError(nil)

	// The retry interval is one second, 33ms per tick.
	s = a.ticks(10)
	if s.CameraError == "" {
		t.Error("camera should not be retried before the retry interval")
	}
	s = a.ticks(25)
	if s.CameraError != "" {
		t.Errorf("expected camera to recover, got %q", s.CameraError)
	}
	if s.Mode != mode.Browse {
		t.Errorf("mode = %v, want BROWSE after recovery", s.Mode)
	}
}

func TestApp_SetEnabled(t *testing.T) {
	a := newTestApp(t, []string{"a"})
	a.detector.SetHands([]landmark.Hand{landmark.OpenPalm()})
	a.ticks(1)

	a.SetEnabled(false)
	s := a.ticks(20)
	if s.Enabled {
		t.Error("status should report detection disabled")
	}
	if s.Mode != mode.Aggregate {
		t.Errorf("disabled detection should fall back to AGGREGATE, got %v", s.Mode)
	}
	if a.detector.Calls() != 1 {
		t.Errorf("detector called while disabled")
	}
}

func TestApp_Subscribe(t *testing.T) {
	a := newTestApp(t, []string{"a"})

	ch, unsubscribe := a.Subscribe()
	a.ticks(3)

	select {
	case s := <-ch:
		if s.Frame != 3 {
			t.Errorf("expected latest status (frame 3), got frame %d", s.Frame)
		}
	default:
		t.Fatal("expected a status on the subscription")
	}

	unsubscribe()
	unsubscribe()
	a.ticks(1)
	select {
	case s := <-ch:
		t.Errorf("received status after unsubscribe: frame %d", s.Frame)
	default:
	}
}

func TestApp_RunAppliesSlots(t *testing.T) {
	a := newTestApp(t, []string{"a", "b", "c", "d", "e"})
	ch, unsubscribe := a.Subscribe()
	defer unsubscribe()

	a.SetSlots([]string{"x"})
	a.SetSlots([]string{"x", "y", "z"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-ch:
			if s.SlotCount == 3 {
				cancel()
				if err := <-done; !errors.Is(err, context.Canceled) {
					t.Errorf("Run returned %v, want context.Canceled", err)
				}
				if *s.FocusedID != "x" {
					t.Errorf("expected slot x focused, got %s", *s.FocusedID)
				}
				return
			}
		case <-deadline:
			cancel()
			t.Fatal("slot update never reached the frame loop")
		}
	}
}

func TestApp_StartStop(t *testing.T) {
	a := newTestApp(t, []string{"a"})

	a.Start(context.Background())
	a.Start(context.Background())

	time.Sleep(20 * time.Millisecond)
	a.Stop()

	if a.camera.IsOpen() {
		t.Error("Stop should close the camera")
	}
	frame := a.Status().Frame
	time.Sleep(10 * time.Millisecond)
	if a.Status().Frame != frame {
		t.Error("loop kept running after Stop")
	}
}
