// Package media stores uploaded carousel media for the current session.
package media

import (
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/ayusman/orbit/internal/store"
)

// ErrUnsupported is returned for files that are neither images nor videos.
var ErrUnsupported = errors.New("unsupported media type")

// Measurer returns width/height for a stored file, or ok=false if it cannot tell.
type Measurer func(path string, kind store.SlotType) (ratio float64, ok bool)

// Library is a directory of uploaded files. It is emptied when opened, so
// media never outlives the process that received it.
type Library struct {
	dir     string
	measure Measurer
}

// Open recreates dir as an empty session directory.
func Open(dir string) (*Library, error) {
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("remove media dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &Library{dir: dir, measure: MeasureAspectRatio}, nil
}

// SetMeasurer replaces the aspect ratio measurement.
func (l *Library) SetMeasurer(p Measurer) {
	l.measure = p
}

// Dir returns the session directory.
func (l *Library) Dir() string {
	return l.dir
}

// Kind classifies a content type. Unknown types return ErrUnsupported.
func Kind(contentType string) (store.SlotType, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}
	switch {
	case strings.HasPrefix(mediaType, "image/"):
		return store.SlotImage, nil
	case strings.HasPrefix(mediaType, "video/"):
		return store.SlotVideo, nil
	}
	return "", fmt.Errorf("%q: %w", contentType, ErrUnsupported)
}

// Save writes r to the library. contentType may be empty, in which case it
// is sniffed from the first bytes.
func (l *Library) Save(name, contentType string, r io.Reader) (store.Media, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return store.Media{}, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]

	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(head)
	}
	kind, err := Kind(contentType)
	if err != nil {
		return store.Media{}, err
	}

	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
			ext = exts[0]
		}
	}
	path := filepath.Join(l.dir, uuid.New().String()+ext)

	f, err := os.Create(path)
	if err != nil {
		return store.Media{}, fmt.Errorf("create media file: %w", err)
	}
	if _, err := f.Write(head); err == nil {
		_, err = io.Copy(f, r)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return store.Media{}, fmt.Errorf("write media file: %w", err)
	}

	ratio := 1.0
	if l.measure != nil {
		if measured, ok := l.measure(path, kind); ok {
			ratio = measured
		}
	}

	return store.Media{
		Type:        kind,
		Path:        path,
		ContentType: contentType,
		AspectRatio: ratio,
	}, nil
}

// Remove deletes files that belong to the library. Paths outside it are ignored.
func (l *Library) Remove(paths ...string) {
	for _, p := range paths {
		if p == "" || filepath.Dir(p) != filepath.Clean(l.dir) {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			log.Printf("Failed to remove media %s: %v", p, err)
		}
	}
}

// MeasureAspectRatio decodes the image, or the first video frame size, with OpenCV.
func MeasureAspectRatio(path string, kind store.SlotType) (float64, bool) {
	switch kind {
	case store.SlotImage:
		img := gocv.IMRead(path, gocv.IMReadUnchanged)
		defer img.Close()
		if img.Empty() {
			return 0, false
		}
		return ratio(img.Cols(), img.Rows())

	case store.SlotVideo:
		vc, err := gocv.VideoCaptureFile(path)
		if err != nil {
			return 0, false
		}
		defer vc.Close()
		w := int(vc.Get(gocv.VideoCaptureFrameWidth))
		h := int(vc.Get(gocv.VideoCaptureFrameHeight))
		return ratio(w, h)
	}
	return 0, false
}

func ratio(w, h int) (float64, bool) {
	if w <= 0 || h <= 0 {
		return 0, false
	}
	return float64(w) / float64(h), true
}
