package api

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"sync"

	"github.com/ayusman/orbit/internal/media"
	"github.com/ayusman/orbit/internal/store"
)

// SettingsHandler serves GET and PUT /api/settings.
type SettingsHandler struct {
	store *store.Store
	media *media.Library
	slots SlotSink

	// mu serializes updates so the saved slot count, the slot table and
	// the list handed to the sink always agree.
	mu sync.Mutex
}

// maxSettingsBytes bounds a settings PUT body.
const maxSettingsBytes = 64 << 10

// NewSettingsHandler creates a SettingsHandler. lib and sink may be nil.
func NewSettingsHandler(s *store.Store, lib *media.Library, sink SlotSink) *SettingsHandler {
	return &SettingsHandler{store: s, media: lib, slots: sink}
}

// ServeHTTP implements the http.Handler interface.
func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPut:
		h.update(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// get handles GET /api/settings.
func (h *SettingsHandler) get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.Settings().Get()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// update handles PUT /api/settings. Fields left out of the body keep their
// current values; out-of-range values are clamped. A new slot count resizes
// the slot table and is handed to the frame loop.
func (h *SettingsHandler) update(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSettingsBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read body")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	current, err := h.store.Settings().Get()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load settings")
		return
	}

	next := current
	if err := json.Unmarshal(body, &next); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	saved, err := h.store.Settings().Save(next)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save settings")
		return
	}

	if saved.SlotCount != current.SlotCount {
		slots, dropped, err := h.store.Slots().Resize(saved.SlotCount)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to resize slots")
			return
		}
		if h.media != nil {
			for _, s := range dropped {
				h.media.Remove(s.Path)
			}
		}
		if h.slots != nil {
			h.slots.SetSlots(store.SlotIDs(slots))
		}
		log.Printf("Slot count %d -> %d", current.SlotCount, saved.SlotCount)
	}

	writeJSON(w, http.StatusOK, saved)
}
