package media

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ayusman/orbit/internal/store"
)

// pngHeader is enough for content sniffing.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func newTestLibrary(t *testing.T) *Library {
	t.Helper()

	lib, err := Open(filepath.Join(t.TempDir(), "media"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	lib.SetMeasurer(func(path string, kind store.SlotType) (float64, bool) {
		if kind == store.SlotVideo {
			return 16.0 / 9.0, true
		}
		return 0, false
	})
	return lib
}

func TestOpen_EmptiesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "media")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	stale := filepath.Join(dir, "old.jpg")
	if err := os.WriteFile(stale, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	lib, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if lib.Dir() != dir {
		t.Errorf("Dir() = %s, want %s", lib.Dir(), dir)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("expected files from a previous session to be removed")
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		contentType string
		want        store.SlotType
		wantErr     bool
	}{
		{contentType: "image/jpeg", want: store.SlotImage},
		{contentType: "image/png; charset=binary", want: store.SlotImage},
		{contentType: "video/mp4", want: store.SlotVideo},
		{contentType: "audio/mpeg", wantErr: true},
		{contentType: "text/plain", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			got, err := Kind(tt.contentType)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupported) {
					t.Errorf("expected ErrUnsupported, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Kind(%q) = %s, want %s", tt.contentType, got, tt.want)
			}
		})
	}
}

func TestLibrary_Save(t *testing.T) {
	lib := newTestLibrary(t)

	t.Run("image without a measured ratio falls back to square", func(t *testing.T) {
		m, err := lib.Save("photo.png", "image/png", bytes.NewReader(pngHeader))
		if err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if m.Type != store.SlotImage {
			t.Errorf("expected IMAGE, got %s", m.Type)
		}
		if m.AspectRatio != 1.0 {
			t.Errorf("expected aspect ratio 1.0, got %f", m.AspectRatio)
		}
		if !strings.HasSuffix(m.Path, ".png") || filepath.Dir(m.Path) != lib.Dir() {
			t.Errorf("unexpected path %s", m.Path)
		}
		data, err := os.ReadFile(m.Path)
		if err != nil || !bytes.Equal(data, pngHeader) {
			t.Errorf("file content not preserved: %v", err)
		}
	})

	t.Run("video uses measured ratio", func(t *testing.T) {
		m, err := lib.Save("clip.mp4", "video/mp4", strings.NewReader("not really a video"))
		if err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if m.Type != store.SlotVideo {
			t.Errorf("expected VIDEO, got %s", m.Type)
		}
		if m.AspectRatio != 16.0/9.0 {
			t.Errorf("expected 16:9, got %f", m.AspectRatio)
		}
	})

	t.Run("sniffs missing content type", func(t *testing.T) {
		m, err := lib.Save("upload", "", bytes.NewReader(pngHeader))
		if err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if m.ContentType != "image/png" {
			t.Errorf("expected sniffed image/png, got %s", m.ContentType)
		}
	})

	t.Run("rejects unsupported files", func(t *testing.T) {
		before, _ := os.ReadDir(lib.Dir())

		_, err := lib.Save("notes.txt", "text/plain", strings.NewReader("hello"))
		if !errors.Is(err, ErrUnsupported) {
			t.Errorf("expected ErrUnsupported, got %v", err)
		}

		after, _ := os.ReadDir(lib.Dir())
		if len(after) != len(before) {
			t.Error("rejected upload left a file behind")
		}
	})
}

func TestLibrary_Remove(t *testing.T) {
	lib := newTestLibrary(t)

	m, err := lib.Save("a.png", "image/png", bytes.NewReader(pngHeader))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	outside := filepath.Join(t.TempDir(), "keep.png")
	os.WriteFile(outside, pngHeader, 0644)

	lib.Remove(m.Path, outside, "", filepath.Join(lib.Dir(), "missing.png"))

	if _, err := os.Stat(m.Path); !os.IsNotExist(err) {
		t.Error("expected library file to be removed")
	}
	if _, err := os.Stat(outside); err != nil {
		t.Error("files outside the library must not be removed")
	}
}

func TestMeasureAspectRatio_Unreadable(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping OpenCV test in short mode")
	}

	path := filepath.Join(t.TempDir(), "broken.jpg")
	os.WriteFile(path, []byte("garbage"), 0644)

	if _, ok := MeasureAspectRatio(path, store.SlotImage); ok {
		t.Error("expected measurement to fail for an unreadable image")
	}
	if _, ok := MeasureAspectRatio(path, "EMPTY"); ok {
		t.Error("expected measurement to fail for an unknown kind")
	}
}

func TestRatio(t *testing.T) {
	if r, ok := ratio(1920, 1080); !ok || r != 1920.0/1080.0 {
		t.Errorf("ratio(1920, 1080) = %f, %v", r, ok)
	}
	if _, ok := ratio(0, 100); ok {
		t.Error("expected zero width to fail")
	}
}
