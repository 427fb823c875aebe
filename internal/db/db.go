package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Open opens the camp database and configures pragmas. Foreign keys must be
// on: inventory counters hang off their camp via an ON DELETE CASCADE and
// the camp-end cleanup relies on it.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	// An in-memory database exists per connection, so the pool must not
	// grow past one or queries start seeing empty schemas.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	return db, nil
}
