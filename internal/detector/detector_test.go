package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/orbit/internal/landmark"
)

func TestDecodeResponse(t *testing.T) {
	t.Run("no hands", func(t *testing.T) {
		hands, err := decodeResponse([]byte(`{"hands": []}` + "\n"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hands) != 0 {
			t.Errorf("expected 0 hands, got %d", len(hands))
		}
	})

	t.Run("one hand", func(t *testing.T) {
		line := `{"hands": [{"handedness": "Right", "score": 0.9, "points": [`
		for i := 0; i < landmark.NumLandmarks; i++ {
			if i > 0 {
				line += ","
			}
			line += `{"x": 0.5, "y": 0.5, "z": 0.0}`
		}
		line += `]}]}`

		hands, err := decodeResponse([]byte(line))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hands) != 1 {
			t.Fatalf("expected 1 hand, got %d", len(hands))
		}
		if hands[0].Handedness != "Right" {
			t.Errorf("expected handedness Right, got %s", hands[0].Handedness)
		}
	})

	t.Run("short hand is malformed", func(t *testing.T) {
		line := `{"hands": [{"handedness": "Right", "score": 0.9, "points": [{"x": 0.1, "y": 0.1, "z": 0}]}]}`
		_, err := decodeResponse([]byte(line))
		if !errors.Is(err, landmark.ErrMalformed) {
			t.Errorf("expected landmark.ErrMalformed, got %v", err)
		}
	})

	t.Run("service error", func(t *testing.T) {
		_, err := decodeResponse([]byte(`{"hands": [], "error": "model not loaded"}`))
		if err == nil {
			t.Error("expected error for service error field")
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		if _, err := decodeResponse([]byte("not json")); err == nil {
			t.Error("expected error for invalid JSON")
		}
	})
}

func TestMockDetector(t *testing.T) {
	t.Run("returns empty hands by default", func(t *testing.T) {
		mock := NewMockDetector()

		hands, err := mock.Detect(nil, time.Now())

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if hands != nil {
			t.Errorf("expected nil hands, got %v", hands)
		}
	})

	t.Run("returns configured hands", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetHands([]landmark.Hand{landmark.Pinch(), landmark.OpenPalm()})

		hands, err := mock.Detect(nil, time.Now())

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if len(hands) != 2 {
			t.Errorf("expected 2 hands, got %d", len(hands))
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()

		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		hands, err := mock.Detect(nil, time.Now())

		if err != expectedErr {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if hands != nil {
			t.Errorf("expected nil hands when error is set, got %v", hands)
		}
	})

	t.Run("records calls and timestamp", func(t *testing.T) {
		mock := NewMockDetector()
		ts := time.Unix(1700000000, 0)

		mock.Detect(nil, ts)
		mock.Detect(nil, ts.Add(time.Second))

		if mock.Calls() != 2 {
			t.Errorf("expected 2 calls, got %d", mock.Calls())
		}
		if !mock.LastTimestamp().Equal(ts.Add(time.Second)) {
			t.Errorf("unexpected last timestamp %v", mock.LastTimestamp())
		}
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
		var _ Detector = (*MediaPipeDetector)(nil)
	})
}


// TestHelperProcess is not a real test. It stands in for
// mediapipe_service.py when re-executed by newServiceDetector: each frame is
// answered with one hand whose handedness echoes the service flags, whose
// score is the frame timestamp and whose X coordinates are the payload
// length / 100. A payload of "bad" gets a hand with no points.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("ORBIT_DETECTOR_HELPER") != "1" {
		return
	}

	args := os.Args
	for i, a := range args {
		if a == "--" {
			args = args[i+1:]
			break
		}
	}

	in := bufio.NewReader(os.Stdin)
	out := json.NewEncoder(os.Stdout)
	header := make([]byte, headerSize)
	for {
		if _, err := io.ReadFull(in, header); err != nil {
			os.Exit(0)
		}
		ts := binary.BigEndian.Uint64(header[:8])
		payload := make([]byte, binary.BigEndian.Uint32(header[8:]))
		if _, err := io.ReadFull(in, payload); err != nil {
			os.Exit(1)
		}

		points := make([]landmark.Point, landmark.NumLandmarks)
		if string(payload) == "bad" {
			points = nil
		}
		for i := range points {
			points[i] = landmark.Point{X: float64(len(payload)) / 100, Y: 0.5}
		}
		out.Encode(map[string]interface{}{
			"hands": []jsonHand{{
				Points:     points,
				Handedness: strings.Join(args, " "),
				Score:      float64(ts),
			}},
		})
	}
}

func newServiceDetector(t *testing.T) *MediaPipeDetector {
	t.Helper()

	config := DefaultConfig()
	config.Python = "python3"
	d := &MediaPipeDetector{
		config:     config,
		scriptPath: "mediapipe_service.py",
		newCmd: func(name string, args ...string) *exec.Cmd {
			cmd := exec.Command(os.Args[0], append([]string{"-test.run=TestHelperProcess", "--"}, args...)...)
			cmd.Env = append(os.Environ(), "ORBIT_DETECTOR_HELPER=1")
			return cmd
		},
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestMediaPipeDetector_Exchange(t *testing.T) {
	d := newServiceDetector(t)
	ts := time.UnixMilli(1700000000123)

	t.Run("frames round trip through the service", func(t *testing.T) {
		hands, err := d.exchange(ts, []byte("12345678"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hands) != 1 {
			t.Fatalf("expected 1 hand, got %d", len(hands))
		}
		if hands[0].Score != float64(ts.UnixMilli()) {
			t.Errorf("expected timestamp %d echoed, got %f", ts.UnixMilli(), hands[0].Score)
		}
		if hands[0].Points[landmark.MiddleMCP].X != 0.08 {
			t.Errorf("expected payload length 8 echoed, got X %f", hands[0].Points[landmark.MiddleMCP].X)
		}
	})

	t.Run("service receives the detector flags", func(t *testing.T) {
		hands, err := d.exchange(ts, []byte("x"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		args := hands[0].Handedness
		for _, want := range []string{
			"mediapipe_service.py",
			"--max-hands 1",
			"--min-detection-confidence 0.60",
			"--min-presence-confidence 0.60",
			"--min-tracking-confidence 0.60",
		} {
			if !strings.Contains(args, want) {
				t.Errorf("service args %q missing %q", args, want)
			}
		}
	})

	t.Run("malformed hand fails the frame but keeps the service", func(t *testing.T) {
		if _, err := d.exchange(ts, []byte("bad")); !errors.Is(err, landmark.ErrMalformed) {
			t.Fatalf("expected landmark.ErrMalformed, got %v", err)
		}
		if _, err := d.exchange(ts, []byte("ok")); err != nil {
			t.Errorf("service should survive a malformed frame: %v", err)
		}
	})

	t.Run("close stops the service", func(t *testing.T) {
		if err := d.Close(); err != nil {
			t.Errorf("unexpected close error: %v", err)
		}
		if d.started {
			t.Error("expected service stopped")
		}
	})
}

func TestWriteFrame(t *testing.T) {
	var buf strings.Builder
	ts := time.UnixMilli(42)

	if err := writeFrame(&buf, ts, []byte("jpeg")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	b := []byte(buf.String())
	if len(b) != headerSize+4 {
		t.Fatalf("expected %d bytes, got %d", headerSize+4, len(b))
	}
	if got := binary.BigEndian.Uint64(b[:8]); got != 42 {
		t.Errorf("expected timestamp 42, got %d", got)
	}
	if got := binary.BigEndian.Uint32(b[8:12]); got != 4 {
		t.Errorf("expected length 4, got %d", got)
	}
	if string(b[12:]) != "jpeg" {
		t.Errorf("unexpected payload %q", b[12:])
	}
}

// The shipped service must speak the same framing and accept the same flags.
func TestServiceScriptMatchesProtocol(t *testing.T) {
	src, err := os.ReadFile("../../scripts/mediapipe_service.py")
	if err != nil {
		t.Fatalf("read service script: %v", err)
	}
	script := string(src)

	if !strings.Contains(script, `struct.Struct(">QI")`) {
		t.Error("service script does not read the 8-byte timestamp + 4-byte length header")
	}

	d := &MediaPipeDetector{config: DefaultConfig(), scriptPath: "svc"}
	for _, arg := range d.serviceArgs()[1:] {
		if strings.HasPrefix(arg, "--") && !strings.Contains(script, fmt.Sprintf("%q", arg)) {
			t.Errorf("service script does not accept %s", arg)
		}
	}
}
