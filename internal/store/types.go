package store

import "time"

// Metadata keys written by ReplaceSnapshot.
const (
	MetaSnapshotID = "snapshot_id"
	MetaImportedAt = "imported_at"
	MetaSource     = "source"
)

// Info describes the stored snapshot.
type Info struct {
	SnapshotID string         `json:"snapshot_id"`
	ImportedAt time.Time      `json:"imported_at"`
	Source     string         `json:"source,omitempty"`
	Rows       map[string]int `json:"rows"`
}

// Empty reports whether no snapshot has been imported.
func (i *Info) Empty() bool { return i.SnapshotID == "" }
