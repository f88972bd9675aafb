package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// Slots table - the ordered carousel slots and the media they hold
		`CREATE TABLE IF NOT EXISTS slots (
			id TEXT PRIMARY KEY,
			position INTEGER NOT NULL UNIQUE,
			type TEXT NOT NULL DEFAULT 'EMPTY' CHECK(type IN ('EMPTY', 'IMAGE', 'VIDEO')),
			path TEXT NOT NULL DEFAULT '',
			content_type TEXT NOT NULL DEFAULT '',
			aspect_ratio REAL NOT NULL DEFAULT 1.0,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_slots_type ON slots(type)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
