package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SlotType is the kind of media a slot holds.
type SlotType string

const (
	SlotEmpty SlotType = "EMPTY"
	SlotImage SlotType = "IMAGE"
	SlotVideo SlotType = "VIDEO"
)

// Slot is one position on the carousel.
type Slot struct {
	ID          string    `json:"id"`
	Position    int       `json:"position"`
	Type        SlotType  `json:"type"`
	Path        string    `json:"-"`
	ContentType string    `json:"contentType,omitempty"`
	AspectRatio float64   `json:"aspectRatio"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Media is a stored file ready to be placed into a slot.
type Media struct {
	Type        SlotType
	Path        string
	ContentType string
	AspectRatio float64
}

// SlotRepository provides operations on the ordered slot table.
type SlotRepository struct {
	db *sql.DB
}

// Slots returns the slot repository for this store.
func (s *Store) Slots() *SlotRepository {
	return &SlotRepository{db: s.db}
}

const slotColumns = `id, position, type, path, content_type, aspect_ratio, updated_at`

// List returns every slot ordered by position.
func (r *SlotRepository) List() ([]*Slot, error) {
	return listSlots(r.db)
}

// IDs returns the slot IDs in carousel order.
func (r *SlotRepository) IDs() ([]string, error) {
	slots, err := r.List()
	if err != nil {
		return nil, err
	}
	return SlotIDs(slots), nil
}

// Get retrieves a slot by ID.
func (r *SlotRepository) Get(id string) (*Slot, error) {
	row := r.db.QueryRow(`SELECT `+slotColumns+` FROM slots WHERE id = ?`, id)
	slot, err := scanSlot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get slot: %w", err)
	}
	return slot, nil
}

// Resize makes the table hold exactly n slots. Existing slots keep their
// order and media; new EMPTY slots are appended and slots past n are
// dropped. The dropped slots are returned so their files can be removed.
func (r *SlotRepository) Resize(n int) (slots, dropped []*Slot, err error) {
	if n < 0 {
		return nil, nil, fmt.Errorf("resize slots to %d: negative count", n)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return nil, nil, fmt.Errorf("begin resize: %w", err)
	}
	defer tx.Rollback()

	current, err := listSlots(tx)
	if err != nil {
		return nil, nil, err
	}

	if len(current) > n {
		dropped = current[n:]
		if _, err := tx.Exec(`DELETE FROM slots WHERE position >= ?`, n); err != nil {
			return nil, nil, fmt.Errorf("drop slots: %w", err)
		}
	}

	now := time.Now()
	for pos := len(current); pos < n; pos++ {
		_, err := tx.Exec(
			`INSERT INTO slots (id, position, type, aspect_ratio, updated_at) VALUES (?, ?, ?, 1.0, ?)`,
			uuid.New().String(), pos, string(SlotEmpty), now,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("insert slot: %w", err)
		}
	}

	slots, err = listSlots(tx)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit resize: %w", err)
	}
	return slots, dropped, nil
}

// FreeCount returns the number of EMPTY slots.
func (r *SlotRepository) FreeCount() (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM slots WHERE type = ?`, string(SlotEmpty)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count free slots: %w", err)
	}
	return n, nil
}

// Fill places items into EMPTY slots in position order. It returns the
// filled slots and the items that did not fit.
func (r *SlotRepository) Fill(items []Media) (filled []*Slot, leftover []Media, err error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, nil, fmt.Errorf("begin fill: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(`SELECT id FROM slots WHERE type = ? ORDER BY position`, string(SlotEmpty))
	if err != nil {
		return nil, nil, fmt.Errorf("query empty slots: %w", err)
	}
	var free []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("scan slot: %w", err)
		}
		free = append(free, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("query empty slots: %w", err)
	}

	now := time.Now()
	placed := 0
	for ; placed < len(items) && placed < len(free); placed++ {
		m := items[placed]
		ratio := m.AspectRatio
		if ratio <= 0 {
			ratio = 1.0
		}
		_, err := tx.Exec(
			`UPDATE slots SET type = ?, path = ?, content_type = ?, aspect_ratio = ?, updated_at = ? WHERE id = ?`,
			string(m.Type), m.Path, m.ContentType, ratio, now, free[placed],
		)
		if err != nil {
			return nil, nil, fmt.Errorf("fill slot: %w", err)
		}
	}

	for _, id := range free[:placed] {
		slot, err := scanSlot(tx.QueryRow(`SELECT `+slotColumns+` FROM slots WHERE id = ?`, id))
		if err != nil {
			return nil, nil, fmt.Errorf("reload slot: %w", err)
		}
		filled = append(filled, slot)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit fill: %w", err)
	}
	return filled, items[placed:], nil
}

// Clear resets every slot to EMPTY and returns the file paths that were released.
func (r *SlotRepository) Clear() ([]string, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin clear: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(`SELECT path FROM slots WHERE path != '' ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query media paths: %w", err)
	}
	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan path: %w", err)
		}
		paths = append(paths, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate media paths: %w", err)
	}
	rows.Close()

	_, err = tx.Exec(
		`UPDATE slots SET type = ?, path = '', content_type = '', aspect_ratio = 1.0, updated_at = ?`,
		string(SlotEmpty), time.Now(),
	)
	if err != nil {
		return nil, fmt.Errorf("clear slots: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit clear: %w", err)
	}
	return paths, nil
}

// SlotIDs returns the IDs of slots in the given order.
func SlotIDs(slots []*Slot) []string {
	ids := make([]string, len(slots))
	for i, s := range slots {
		ids[i] = s.ID
	}
	return ids
}

type querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func listSlots(q querier) ([]*Slot, error) {
	rows, err := q.Query(`SELECT ` + slotColumns + ` FROM slots ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()

	var slots []*Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

func scanSlot(row rowScanner) (*Slot, error) {
	s := &Slot{}
	var slotType string
	if err := row.Scan(&s.ID, &s.Position, &slotType, &s.Path, &s.ContentType, &s.AspectRatio, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.Type = SlotType(slotType)
	return s, nil
}

// StartSession empties every slot and sizes the table to count. Media is
// not carried over between runs, so this is called once at startup.
func (r *SlotRepository) StartSession(count int) ([]*Slot, error) {
	if _, err := r.Clear(); err != nil {
		return nil, err
	}
	slots, _, err := r.Resize(count)
	return slots, err
}
