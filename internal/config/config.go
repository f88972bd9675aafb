// Package config loads the YAML configuration for the orbit daemon.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/orbit/internal/detector"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

// Detector kinds.
const (
	DetectorMediaPipe = "mediapipe"
	DetectorMock      = "mock"
)

// Config is the top-level YAML configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Camera   CameraConfig   `yaml:"camera"`
	Detector DetectorConfig `yaml:"detector"`

	// DataDir holds the SQLite database and the session media directory.
	DataDir string `yaml:"data_dir"`

	// Tray enables the system tray icon.
	Tray bool `yaml:"tray"`
}

type ServerConfig struct {
	Addr        string   `yaml:"addr"`
	WebDir      string   `yaml:"web_dir,omitempty"`
	CORSOrigins []string `yaml:"cors_origins,omitempty"`
}

type CameraConfig struct {
	Device int           `yaml:"device"`
	FPS    int           `yaml:"fps"`
	Width  int           `yaml:"width"`
	Height int           `yaml:"height"`
	Retry  time.Duration `yaml:"retry"`
}

type DetectorConfig struct {
	Kind                   string        `yaml:"kind"` // "mediapipe" or "mock"
	Script                 string        `yaml:"script,omitempty"`
	Python                 string        `yaml:"python,omitempty"`
	MinDetectionConfidence float64       `yaml:"min_detection_confidence"`
	MinPresenceConfidence  float64       `yaml:"min_presence_confidence"`
	MinTrackingConfidence  float64       `yaml:"min_tracking_confidence"`
	IdleShutdown           time.Duration `yaml:"idle_shutdown"`
}

// Default returns a fully populated Config.
func Default() Config {
	det := detector.DefaultConfig()
	return Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Camera: CameraConfig{
			Device: 0,
			FPS:    30,
			Width:  640,
			Height: 480,
			Retry:  5 * time.Second,
		},
		Detector: DetectorConfig{
			Kind:                   DetectorMediaPipe,
			MinDetectionConfidence: det.MinDetectionConf,
			MinPresenceConfidence:  det.MinPresenceConf,
			MinTrackingConfidence:  det.MinTrackingConf,
			IdleShutdown:           det.IdleShutdown,
		},
		DataDir: "~/.orbit",
		Tray:    true,
	}
}

// Load reads a YAML file on top of Default. Unknown keys are rejected.
func Load(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes on top of Default.
func Parse(b []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return Config{}, errors.New("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// Validate checks the config after defaults, file and flag overrides are applied.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty: %w", ErrInvalid)
	}
	if c.Camera.Device < 0 {
		return fmt.Errorf("camera.device must be >= 0: %w", ErrInvalid)
	}
	if c.Camera.FPS <= 0 || c.Camera.FPS > 120 {
		return fmt.Errorf("camera.fps must be between 1 and 120: %w", ErrInvalid)
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return fmt.Errorf("camera.width and camera.height must be > 0: %w", ErrInvalid)
	}
	if c.Camera.Retry <= 0 {
		return fmt.Errorf("camera.retry must be > 0: %w", ErrInvalid)
	}

	switch c.Detector.Kind {
	case DetectorMediaPipe, DetectorMock:
	default:
		return fmt.Errorf("detector.kind must be %q or %q: %w", DetectorMediaPipe, DetectorMock, ErrInvalid)
	}
	for name, v := range map[string]float64{
		"detector.min_detection_confidence": c.Detector.MinDetectionConfidence,
		"detector.min_presence_confidence":  c.Detector.MinPresenceConfidence,
		"detector.min_tracking_confidence":  c.Detector.MinTrackingConfidence,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be between 0 and 1: %w", name, ErrInvalid)
		}
	}
	if c.Detector.IdleShutdown < 0 {
		return fmt.Errorf("detector.idle_shutdown must be >= 0: %w", ErrInvalid)
	}

	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty: %w", ErrInvalid)
	}

	return nil
}

// FrameInterval is the frame loop tick period.
func (c *Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.Camera.FPS)
}

// DetectorOptions converts the file config into the detector's options.
func (c *Config) DetectorOptions() detector.Config {
	opts := detector.DefaultConfig()
	opts.MinDetectionConf = c.Detector.MinDetectionConfidence
	opts.MinPresenceConf = c.Detector.MinPresenceConfidence
	opts.MinTrackingConf = c.Detector.MinTrackingConfidence
	opts.Script = ExpandPath(c.Detector.Script)
	opts.Python = ExpandPath(c.Detector.Python)
	opts.IdleShutdown = c.Detector.IdleShutdown
	return opts
}

// ExpandPath replaces a leading "~" with the user's home directory.
func ExpandPath(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return p
}
