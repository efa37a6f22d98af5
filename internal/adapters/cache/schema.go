package cache

import (
	"database/sql"
	"errors"
	"fmt"
)

// InitSchema creates the geocode cache table. The statement is portable
// across SQLite and Postgres (DOUBLE PRECISION maps to REAL affinity in
// SQLite).
func InitSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	stmt := `
	CREATE TABLE IF NOT EXISTS geocode_cache (
        query TEXT PRIMARY KEY,
        lat DOUBLE PRECISION NOT NULL,
        lng DOUBLE PRECISION NOT NULL
    );
	`

	if _, err := db.Exec(stmt); err != nil {
		return fmt.Errorf("init schema: create geocode_cache: %w", err)
	}

	return nil
}
