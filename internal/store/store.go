package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer holding one catalog snapshot.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Rows are stored exactly as imported, duplicates and dangling references
// included, keyed by their position in the snapshot. Validation is the
// engine's job, so no table has a unique constraint on the composite id.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS languages (
  pos             INTEGER PRIMARY KEY,
  object_id       INTEGER NOT NULL,
  owner_id        INTEGER NOT NULL,
  parent_object_id INTEGER,
  parent_owner_id INTEGER,
  translation     TEXT NOT NULL DEFAULT '',
  created_at      TIMESTAMP
);

CREATE TABLE IF NOT EXISTS dictionaries (
  pos             INTEGER PRIMARY KEY,
  object_id       INTEGER NOT NULL,
  owner_id        INTEGER NOT NULL,
  parent_object_id INTEGER,
  parent_owner_id INTEGER,
  translation     TEXT NOT NULL DEFAULT '',
  category        INTEGER NOT NULL DEFAULT 0,
  authors         TEXT NOT NULL DEFAULT '',
  status          TEXT NOT NULL DEFAULT '',
  downloaded      BOOLEAN DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS perspectives (
  pos             INTEGER PRIMARY KEY,
  dictionary_pos  INTEGER NOT NULL REFERENCES dictionaries(pos),
  object_id       INTEGER NOT NULL,
  owner_id        INTEGER NOT NULL,
  parent_object_id INTEGER,
  parent_owner_id INTEGER,
  translation     TEXT NOT NULL DEFAULT '',
  can_view        BOOLEAN DEFAULT FALSE,
  can_edit        BOOLEAN DEFAULT FALSE,
  can_publish     BOOLEAN DEFAULT FALSE,
  limited         BOOLEAN DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS grants (
  pos             INTEGER PRIMARY KEY,
  object_id       INTEGER NOT NULL,
  owner_id        INTEGER NOT NULL,
  translation     TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS grant_participants (
  grant_pos       INTEGER NOT NULL REFERENCES grants(pos),
  ordinal         INTEGER NOT NULL,
  object_id       INTEGER NOT NULL,
  owner_id        INTEGER NOT NULL,
  PRIMARY KEY (grant_pos, ordinal)
);

CREATE TABLE IF NOT EXISTS entries (
  pos             INTEGER PRIMARY KEY,
  object_id       INTEGER NOT NULL,
  owner_id        INTEGER NOT NULL,
  perspective_object_id INTEGER NOT NULL,
  perspective_owner_id INTEGER NOT NULL,
  translation     TEXT NOT NULL DEFAULT ''
);

-- Indexes

CREATE INDEX IF NOT EXISTS idx_perspectives_dictionary ON perspectives(dictionary_pos);
CREATE INDEX IF NOT EXISTS idx_entries_perspective ON entries(perspective_object_id, perspective_owner_id);
CREATE INDEX IF NOT EXISTS idx_entries_translation ON entries(translation);
`

// tables lists every snapshot table in delete order (children first).
var tables = []string{
	"grant_participants",
	"grants",
	"perspectives",
	"dictionaries",
	"languages",
	"entries",
}
