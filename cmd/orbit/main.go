package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/ayusman/orbit/internal/app"
	"github.com/ayusman/orbit/internal/capture"
	"github.com/ayusman/orbit/internal/config"
	"github.com/ayusman/orbit/internal/detector"
	"github.com/ayusman/orbit/internal/media"
	"github.com/ayusman/orbit/internal/server"
	"github.com/ayusman/orbit/internal/store"
	"github.com/ayusman/orbit/internal/tray"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	addr := flag.String("addr", "", "listen address (overrides config)")
	noTray := flag.Bool("no-tray", false, "disable the system tray icon")
	flag.Parse()

	fmt.Println("Orbit - Gesture Driven Media Viewer")

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *noTray {
		cfg.Tray = false
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	if err := run(cfg); err != nil {
		log.Fatalf("Orbit failed: %v", err)
	}
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func run(cfg config.Config) error {
	dataDir := config.ExpandPath(cfg.DataDir)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	st, err := store.New(filepath.Join(dataDir, "orbit.db"))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	lib, err := media.Open(filepath.Join(dataDir, "media"))
	if err != nil {
		return fmt.Errorf("open media library: %w", err)
	}

	settings, err := st.Settings().Get()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	slots, err := st.Slots().StartSession(settings.SlotCount)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	log.Printf("Session started with %d empty slots", len(slots))

	camera := capture.NewCamera(capture.Options{
		Device: cfg.Camera.Device,
		FPS:    cfg.Camera.FPS,
		Width:  cfg.Camera.Width,
		Height: cfg.Camera.Height,
	})

	a := app.New(app.Config{
		Camera:        camera,
		Detector:      newDetector(cfg),
		Slots:         store.SlotIDs(slots),
		FrameInterval: cfg.FrameInterval(),
		CameraRetry:   cfg.Camera.Retry,
	})

	webDir := cfg.Server.WebDir
	if webDir == "" {
		webDir = findWebDir(dataDir)
	} else {
		webDir = config.ExpandPath(webDir)
	}
	if webDir != "" {
		log.Printf("Serving static files from: %s", webDir)
	}

	srv := server.New(server.Config{
		StaticDir:   webDir,
		CORSOrigins: cfg.Server.CORSOrigins,
		Store:       st,
		Media:       lib,
		Camera:      camera,
		State:       a,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Start(ctx)
		<-ctx.Done()
		a.Stop()
		return nil
	})
	g.Go(func() error {
		return srv.ListenAndServe(ctx, cfg.Server.Addr)
	})

	if cfg.Tray {
		t := newTray(a, viewerURL(cfg.Server.Addr), stop)
		go func() {
			<-ctx.Done()
			t.Quit()
		}()
		// The tray must own the main goroutine.
		t.Run()
		stop()
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Println("Shutdown complete")
	return nil
}

// newDetector builds the configured detector, falling back to the mock when
// MediaPipe is unavailable so the viewer still serves.
func newDetector(cfg config.Config) detector.Detector {
	if cfg.Detector.Kind == config.DetectorMock {
		return detector.NewMockDetector()
	}

	d, err := detector.NewMediaPipeDetector(cfg.DetectorOptions())
	if err != nil {
		log.Printf("MediaPipe detector unavailable (%v); using mock detector", err)
		return detector.NewMockDetector()
	}
	return d
}

func newTray(a *app.App, url string, quit func()) *tray.Tray {
	t := tray.New()
	t.OnToggle(a.SetEnabled)
	t.OnOpenViewer(func() {
		if err := openBrowser(url); err != nil {
			log.Printf("Failed to open viewer: %v", err)
		}
	})
	t.OnQuit(quit)

	updates, _ := a.Subscribe()
	go t.Follow(updates)
	return t
}

func viewerURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and <dataDir>/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	dataWebDir := filepath.Join(dataDir, "web")
	if info, err := os.Stat(dataWebDir); err == nil && info.IsDir() {
		return dataWebDir
	}

	return ""
}
