package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	migrate "github.com/rubenv/sql-migrate"
)

// Store wraps the single sqlite file that holds all durable state.
// Writes to the same chat row go through single statements or single
// transactions so a crash never leaves an orphan message or a
// half-updated continuation handle.
type Store struct {
	db *sql.DB
}

// Open creates the data directory and database file on first run,
// applies pending migrations and seeds the default models.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// sqlite allows one writer at a time; a single conn avoids
	// SQLITE_BUSY races between the api handlers.
	db.SetMaxOpenConns(1)

	if _, err := migrate.Exec(db, "sqlite3", migrations, migrate.Up); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying migrations: %w", err)
	}

	if err := seedModels(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("seeding models: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
