package api

import (
	"errors"
	"log"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/ayusman/orbit/internal/media"
	"github.com/ayusman/orbit/internal/store"
)

// MaxUploadBytes caps a single media upload request.
const MaxUploadBytes = 512 << 20

// SlotsHandler serves the slot list and slot media.
type SlotsHandler struct {
	store *store.Store
	media *media.Library
}

// NewSlotsHandler creates a new SlotsHandler.
func NewSlotsHandler(s *store.Store, lib *media.Library) *SlotsHandler {
	return &SlotsHandler{store: s, media: lib}
}

// ServeHTTP implements the http.Handler interface.
// Expected paths: /api/slots, /api/slots/media, /api/slots/{id}/media
func (h *SlotsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/slots")
	path = strings.Trim(path, "/")

	switch {
	case path == "":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)

	case path == "media":
		switch r.Method {
		case http.MethodPost:
			h.upload(w, r)
		case http.MethodDelete:
			h.clear(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}

	case strings.HasSuffix(path, "/media") && strings.Count(path, "/") == 1:
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.serveMedia(w, r, strings.TrimSuffix(path, "/media"))

	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

type slotResponse struct {
	ID          string  `json:"id"`
	Position    int     `json:"position"`
	Type        string  `json:"type"`
	ContentType string  `json:"contentType,omitempty"`
	AspectRatio float64 `json:"aspectRatio"`
	URL         string  `json:"url,omitempty"`
}

type listSlotsResponse struct {
	Slots []slotResponse `json:"slots"`
}

type uploadResponse struct {
	Filled   []slotResponse `json:"filled"`
	Skipped  int            `json:"skipped"`
	Rejected []string       `json:"rejected,omitempty"`
}

// toSlotResponse converts a store.Slot to a slotResponse.
func toSlotResponse(s *store.Slot) slotResponse {
	resp := slotResponse{
		ID:          s.ID,
		Position:    s.Position,
		Type:        string(s.Type),
		ContentType: s.ContentType,
		AspectRatio: s.AspectRatio,
	}
	if s.Type != store.SlotEmpty {
		resp.URL = "/api/slots/" + s.ID + "/media"
	}
	return resp
}

// list handles GET /api/slots and returns the slots in carousel order.
func (h *SlotsHandler) list(w http.ResponseWriter, r *http.Request) {
	slots, err := h.store.Slots().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list slots")
		return
	}

	response := listSlotsResponse{
		Slots: make([]slotResponse, 0, len(slots)),
	}
	for _, s := range slots {
		response.Slots = append(response.Slots, toSlotResponse(s))
	}

	writeJSON(w, http.StatusOK, response)
}

// upload handles POST /api/slots/media. Files from the "files" field fill
// EMPTY slots in order; files beyond the free slots are skipped.
func (h *SlotsHandler) upload(w http.ResponseWriter, r *http.Request) {
	if h.media == nil {
		writeError(w, http.StatusServiceUnavailable, "Media storage not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "At least one file is required")
		return
	}

	free, err := h.store.Slots().FreeCount()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count free slots")
		return
	}

	var (
		items    []store.Media
		rejected []string
		skipped  int
	)
	for _, fh := range files {
		if len(items) >= free {
			skipped++
			continue
		}
		m, err := h.save(fh)
		if err != nil {
			if !errors.Is(err, media.ErrUnsupported) {
				log.Printf("Failed to store upload %s: %v", fh.Filename, err)
			}
			rejected = append(rejected, fh.Filename)
			continue
		}
		items = append(items, m)
	}

	filled, leftover, err := h.store.Slots().Fill(items)
	if err != nil {
		for _, m := range items {
			h.media.Remove(m.Path)
		}
		writeError(w, http.StatusInternalServerError, "Failed to fill slots")
		return
	}
	for _, m := range leftover {
		h.media.Remove(m.Path)
	}
	skipped += len(leftover)

	response := uploadResponse{
		Filled:   make([]slotResponse, 0, len(filled)),
		Skipped:  skipped,
		Rejected: rejected,
	}
	for _, s := range filled {
		response.Filled = append(response.Filled, toSlotResponse(s))
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *SlotsHandler) save(fh *multipart.FileHeader) (store.Media, error) {
	f, err := fh.Open()
	if err != nil {
		return store.Media{}, err
	}
	defer f.Close()
	return h.media.Save(fh.Filename, fh.Header.Get("Content-Type"), f)
}

// clear handles DELETE /api/slots/media and empties every slot.
func (h *SlotsHandler) clear(w http.ResponseWriter, r *http.Request) {
	paths, err := h.store.Slots().Clear()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to clear slots")
		return
	}
	if h.media != nil {
		h.media.Remove(paths...)
	}

	writeJSON(w, http.StatusOK, map[string]int{"cleared": len(paths)})
}

// serveMedia handles GET /api/slots/{id}/media.
func (h *SlotsHandler) serveMedia(w http.ResponseWriter, r *http.Request, id string) {
	slot, err := h.store.Slots().Get(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Slot not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get slot")
		return
	}
	if slot.Type == store.SlotEmpty || slot.Path == "" {
		writeError(w, http.StatusNotFound, "Slot is empty")
		return
	}

	if slot.ContentType != "" {
		w.Header().Set("Content-Type", slot.ContentType)
	}
	http.ServeFile(w, r, slot.Path)
}
