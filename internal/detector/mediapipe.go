package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/orbit/internal/landmark"
)

// ErrScriptNotFound is returned when mediapipe_service.py cannot be located.
var ErrScriptNotFound = errors.New("mediapipe_service.py not found")

// headerSize is the per-frame header: 8-byte timestamp + 4-byte JPEG length.
const headerSize = 12

// MediaPipeDetector implements Detector using a Python MediaPipe subprocess
// (scripts/mediapipe_service.py).
//
// Wire protocol, per frame: 8-byte big-endian timestamp in milliseconds,
// 4-byte big-endian JPEG length, JPEG bytes. The service answers with one
// JSON line {"hands": [...]}.
type MediaPipeDetector struct {
	config     Config
	scriptPath string
	newCmd     func(name string, args ...string) *exec.Cmd
	cmd        *exec.Cmd
	stdin      io.WriteCloser
	stdout     *bufio.Reader
	mu         sync.Mutex
	started    bool
	lastUsed   time.Time
	idleTimer  *time.Timer
}

// NewMediaPipeDetector creates a new MediaPipe detector.
// The Python process is started lazily on first detection.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	scriptPath := config.Script
	if scriptPath == "" {
		scriptPath = findMediaPipeScript()
	}
	if scriptPath == "" {
		return nil, ErrScriptNotFound
	}
	if _, err := os.Stat(scriptPath); err != nil {
		return nil, fmt.Errorf("stat %s: %w", scriptPath, ErrScriptNotFound)
	}
	if config.MaxHands <= 0 {
		config.MaxHands = 1
	}

	return &MediaPipeDetector{
		config:     config,
		scriptPath: scriptPath,
		newCmd:     exec.Command,
	}, nil
}

// Detect analyzes a frame and returns detected hand landmarks.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat, ts time.Time) ([]landmark.Hand, error) {
	if frame == nil || frame.Empty() {
		return nil, errors.New("empty frame")
	}

	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	return d.exchange(ts, buf.GetBytes())
}

// exchange sends one encoded frame to the service and reads its answer.
func (d *MediaPipeDetector) exchange(ts time.Time, jpeg []byte) ([]landmark.Hand, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return nil, err
	}

	if err := writeFrame(d.stdin, ts, jpeg); err != nil {
		d.abort()
		return nil, err
	}

	line, err := d.stdout.ReadString('\n')
	if err != nil {
		d.abort()
		return nil, fmt.Errorf("read response: %w", err)
	}

	hands, err := decodeResponse([]byte(line))
	if err != nil {
		return nil, err
	}

	d.lastUsed = time.Now()
	d.resetIdleTimer()

	return hands, nil
}

// writeFrame writes the header and the JPEG payload.
func writeFrame(w io.Writer, ts time.Time, jpeg []byte) error {
	header := make([]byte, headerSize)
	binary.BigEndian.PutUint64(header[:8], uint64(ts.UnixMilli()))
	binary.BigEndian.PutUint32(header[8:], uint32(len(jpeg)))

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := w.Write(jpeg); err != nil {
		return fmt.Errorf("write data: %w", err)
	}
	return nil
}

// Close shuts down the Python process.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

func (d *MediaPipeDetector) ensureStarted() error {
	if d.started {
		return nil
	}

	pythonPath := d.config.Python
	if pythonPath == "" {
		pythonPath = findVenvPython()
	}
	if pythonPath == "" {
		pythonPath = "python3"
	}

	d.cmd = d.newCmd(pythonPath, d.serviceArgs()...)

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	// Capture stderr for debugging
	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start mediapipe service: %w", err)
	}

	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true
	d.lastUsed = time.Now()
	log.Printf("MediaPipe service started (pid %d)", d.cmd.Process.Pid)

	return nil
}

// abort kills a subprocess whose pipe broke so the next Detect restarts it.
func (d *MediaPipeDetector) abort() {
	if d.cmd != nil && d.cmd.Process != nil {
		d.cmd.Process.Kill()
	}
	d.shutdown()
}

func (d *MediaPipeDetector) shutdown() error {
	if !d.started {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	return err
}

func (d *MediaPipeDetector) resetIdleTimer() {
	if d.config.IdleShutdown <= 0 {
		return
	}
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(d.config.IdleShutdown, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if time.Since(d.lastUsed) < d.config.IdleShutdown {
			return
		}
		log.Println("MediaPipe service idle, shutting down")
		d.shutdown()
	})
}

// serviceArgs returns the script path followed by its flags.
func (d *MediaPipeDetector) serviceArgs() []string {
	return []string{d.scriptPath,
		"--max-hands", strconv.Itoa(d.config.MaxHands),
		"--min-detection-confidence", formatConf(d.config.MinDetectionConf),
		"--min-presence-confidence", formatConf(d.config.MinPresenceConf),
		"--min-tracking-confidence", formatConf(d.config.MinTrackingConf),
	}
}

func formatConf(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func findMediaPipeScript() string {
	// Get executable directory
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		"scripts/mediapipe_service.py",
		"../scripts/mediapipe_service.py",
		filepath.Join(execDir, "scripts/mediapipe_service.py"),
		filepath.Join(os.Getenv("HOME"), ".orbit/scripts/mediapipe_service.py"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".orbit/venv/bin/python"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// jsonHand represents the JSON structure from the Python service.
type jsonHand struct {
	Points     []landmark.Point `json:"points"`
	Handedness string           `json:"handedness"`
	Score      float64          `json:"score"`
}

// decodeResponse parses one service response line. A hand with the wrong
// number of points fails the whole frame with landmark.ErrMalformed.
func decodeResponse(line []byte) ([]landmark.Hand, error) {
	var response struct {
		Hands []jsonHand `json:"hands"`
		Error string     `json:"error,omitempty"`
	}
	if err := json.Unmarshal(line, &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if response.Error != "" {
		return nil, fmt.Errorf("mediapipe service: %s", response.Error)
	}

	result := make([]landmark.Hand, 0, len(response.Hands))
	for i, h := range response.Hands {
		lm, err := landmark.FromPoints(h.Points, h.Handedness, h.Score)
		if err != nil {
			return nil, fmt.Errorf("hand %d: %w", i, err)
		}
		result = append(result, lm)
	}

	return result, nil
}
