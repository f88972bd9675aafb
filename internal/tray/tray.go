// Package tray provides a system tray menu for Orbit.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/orbit/internal/app"
	"github.com/ayusman/orbit/internal/mode"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle func(enabled bool)
	onViewer func()
	onQuit   func()
	enabled  bool
	mode     mode.Mode
	mu       sync.RWMutex

	menuToggle *systray.MenuItem
	menuMode   *systray.MenuItem
}

// New creates a new Tray instance with enabled state set to true by default.
func New() *Tray {
	return &Tray{
		enabled: true,
		mode:    mode.Aggregate,
	}
}

// OnToggle sets the callback invoked when tracking is switched on or off.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnOpenViewer sets the callback invoked when the viewer menu item is clicked.
func (t *Tray) OnOpenViewer(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onViewer = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit tears down the tray and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

// Follow updates the mode line from updates until the channel is closed.
func (t *Tray) Follow(updates <-chan app.Status) {
	for s := range updates {
		t.SetMode(s.Mode)
	}
}

func (t *Tray) onReady() {
	t.mu.Lock()
	systray.SetTitle(title(t.mode))
	systray.SetTooltip("Orbit gesture viewer")

	t.menuToggle = systray.AddMenuItem(toggleLabel(t.enabled), "Toggle hand tracking")
	t.menuMode = systray.AddMenuItem(modeLabel(t.mode), "Current viewer mode")
	t.menuMode.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuViewer := systray.AddMenuItem("Open Viewer...", "Open the viewer in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Orbit")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuViewer.ClickedCh:
				t.handleViewer()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleLabel(enabled))
	}
	callback := t.onToggle
	t.mu.Unlock()

	// Called outside the lock; the callback may query the tray.
	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handleViewer() {
	t.mu.RLock()
	callback := t.onViewer
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetMode updates the title and mode line. Repeated modes are ignored.
func (t *Tray) SetMode(m mode.Mode) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if m == t.mode {
		return
	}
	t.mode = m
	if t.menuMode != nil {
		systray.SetTitle(title(m))
		t.menuMode.SetTitle(modeLabel(m))
	}
}

// Mode returns the last mode shown.
func (t *Tray) Mode() mode.Mode {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.mode
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

func title(m mode.Mode) string {
	return fmt.Sprintf("Orbit · %s", m)
}

func modeLabel(m mode.Mode) string {
	return "Mode: " + m.String()
}

func toggleLabel(enabled bool) string {
	if enabled {
		return "● Tracking"
	}
	return "○ Paused"
}
