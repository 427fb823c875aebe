package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL CHECK (role IN ('ADMIN', 'NSS_COORDINATOR', 'HOSPITAL')),
    hospital      TEXT,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS camps (
    id              TEXT PRIMARY KEY,
    location        TEXT NOT NULL,
    coordinator     TEXT NOT NULL,
    coordinator_uid TEXT NOT NULL,
    latitude        REAL,
    longitude       REAL,
    status          TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active')),
    started_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_camps_owner ON camps(coordinator_uid, status);

-- No positivity CHECK on units: racing decrements may drive a counter
-- negative and the stored value must show that, not hide it.
CREATE TABLE IF NOT EXISTS camp_inventory (
    camp_id     TEXT NOT NULL REFERENCES camps(id) ON DELETE CASCADE,
    blood_group TEXT NOT NULL,
    units       INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (camp_id, blood_group)
);

-- camp_id is a weak reference: requests outlive their camp, so no FK.
CREATE TABLE IF NOT EXISTS requests (
    id            TEXT PRIMARY KEY,
    blood_type    TEXT NOT NULL,
    units         INTEGER NOT NULL,
    hospital      TEXT NOT NULL,
    requested_by  TEXT NOT NULL,
    status        TEXT NOT NULL DEFAULT 'Pending',
    urgent        INTEGER NOT NULL DEFAULT 0,
    requested_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    camp_id       TEXT NOT NULL,
    camp_location TEXT NOT NULL,
    distance      REAL
);

CREATE INDEX IF NOT EXISTS idx_requests_camp ON requests(camp_id, status);
CREATE INDEX IF NOT EXISTS idx_requests_hospital ON requests(hospital);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// migrations is a list of SQL statements applied in order after schema
// creation. Each migration must be idempotent. Append new migrations at the
// end.
var migrations []string

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Migrate ensures the schema and runs any pending migrations.
func Migrate(db *sql.DB) error {
	if err := EnsureSchema(db); err != nil {
		return err
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
