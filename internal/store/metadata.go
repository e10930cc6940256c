package store

import (
	"database/sql"
	"fmt"
	"time"
)

// GetMetadata returns the value stored under key, or "" if there is none.
func (s *Store) GetMetadata(key string) (string, error) {
	var v string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get metadata %q: %w", key, err)
	}
	return v, nil
}

// SetMetadata stores value under key, replacing any previous value.
func (s *Store) SetMetadata(key, value string) error {
	if _, err := s.db.Exec(
		"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	); err != nil {
		return fmt.Errorf("set metadata %q: %w", key, err)
	}
	return nil
}

func setMetadataTx(tx *sql.Tx, key, value string) error {
	if _, err := tx.Exec(
		"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	); err != nil {
		return fmt.Errorf("set metadata %q: %w", key, err)
	}
	return nil
}

// Info reports the stored snapshot's id, import time and row counts.
func (s *Store) Info() (*Info, error) {
	info := &Info{Rows: make(map[string]int, len(tables))}
	var err error
	if info.SnapshotID, err = s.GetMetadata(MetaSnapshotID); err != nil {
		return nil, err
	}
	if info.Source, err = s.GetMetadata(MetaSource); err != nil {
		return nil, err
	}
	at, err := s.GetMetadata(MetaImportedAt)
	if err != nil {
		return nil, err
	}
	if at != "" {
		if info.ImportedAt, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("info: parse %s: %w", MetaImportedAt, err)
		}
	}
	for _, table := range tables {
		var n int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
			return nil, fmt.Errorf("info: count %s: %w", table, err)
		}
		info.Rows[table] = n
	}
	return info, nil
}
