package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ayusman/orbit/internal/geom"
)

const renderSettingsKey = "render"

// Slot count bounds.
const (
	MinSlotCount     = 5
	MaxSlotCount     = 50
	DefaultSlotCount = 20
)

// Settings are the renderer tuning values shown as sliders in the viewer.
type Settings struct {
	SlotCount     int     `json:"slotCount"`
	FrameScale    float64 `json:"frameScale"`
	NebulaDensity float64 `json:"nebulaDensity"`
	DriftSpeed    float64 `json:"driftSpeed"`
	BrowseSpacing float64 `json:"browseSpacing"`
	FocusZoom     float64 `json:"focusZoom"`
}

// DefaultSettings returns the initial render settings.
func DefaultSettings() Settings {
	return Settings{
		SlotCount:     DefaultSlotCount,
		FrameScale:    1.8,
		NebulaDensity: 1.0,
		DriftSpeed:    0.2,
		BrowseSpacing: 0.22,
		FocusZoom:     1.3,
	}
}

// Clamp returns s with every value forced into its slider range.
func (s Settings) Clamp() Settings {
	s.SlotCount = int(geom.Clamp(float64(s.SlotCount), MinSlotCount, MaxSlotCount))
	s.FrameScale = geom.Clamp(s.FrameScale, 0.5, 3.0)
	s.NebulaDensity = geom.Clamp(s.NebulaDensity, 0.1, 3.0)
	s.DriftSpeed = geom.Clamp(s.DriftSpeed, 0, 2.0)
	s.BrowseSpacing = geom.Clamp(s.BrowseSpacing, 0.1, 0.5)
	s.FocusZoom = geom.Clamp(s.FocusZoom, 1.0, 2.5)
	return s
}

// SettingsRepository reads and writes the render settings row.
type SettingsRepository struct {
	db *sql.DB
}

// Settings returns the settings repository for this store.
func (s *Store) Settings() *SettingsRepository {
	return &SettingsRepository{db: s.db}
}

// Get returns the saved settings, or the defaults if none were saved.
// Fields missing from the saved row keep their default values.
func (r *SettingsRepository) Get() (Settings, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, renderSettingsKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("query settings: %w", err)
	}

	s := DefaultSettings()
	if err := json.Unmarshal([]byte(value), &s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	return s.Clamp(), nil
}

// Save clamps and stores s, returning the stored value.
func (r *SettingsRepository) Save(s Settings) (Settings, error) {
	s = s.Clamp()

	data, err := json.Marshal(s)
	if err != nil {
		return Settings{}, fmt.Errorf("encode settings: %w", err)
	}

	_, err = r.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		renderSettingsKey, string(data),
	)
	if err != nil {
		return Settings{}, fmt.Errorf("save settings: %w", err)
	}
	return s, nil
}
