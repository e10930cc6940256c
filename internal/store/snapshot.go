package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jward/langtree"
)

// ReplaceSnapshot swaps the stored catalog for snap within a single
// transaction and stamps it with a fresh ULID, which it returns. source is
// recorded as metadata and may be empty.
func (s *Store) ReplaceSnapshot(snap *langtree.Snapshot, source string) (string, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("replace snapshot: begin: %w", err)
	}
	defer tx.Rollback()

	for _, table := range tables {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return "", fmt.Errorf("replace snapshot: clear %s: %w", table, err)
		}
	}

	for i, l := range snap.Languages {
		po, pw := nullableID(l.ParentID)
		if _, err := tx.Exec(
			`INSERT INTO languages (pos, object_id, owner_id, parent_object_id, parent_owner_id, translation, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			i, l.ID.ObjectID, l.ID.OwnerID, po, pw, l.Translation, l.CreatedAt.UTC(),
		); err != nil {
			return "", fmt.Errorf("replace snapshot: language %s: %w", l.ID.Key(), err)
		}
	}

	ppos := 0
	for i, d := range snap.Dictionaries {
		po, pw := nullableID(d.ParentID)
		if _, err := tx.Exec(
			`INSERT INTO dictionaries (pos, object_id, owner_id, parent_object_id, parent_owner_id, translation,
				category, authors, status, downloaded)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			i, d.ID.ObjectID, d.ID.OwnerID, po, pw, d.Translation,
			int(d.Category), d.Metadata.Authors, d.Metadata.Status, d.Metadata.Downloaded,
		); err != nil {
			return "", fmt.Errorf("replace snapshot: dictionary %s: %w", d.ID.Key(), err)
		}
		for _, p := range d.Perspectives {
			po, pw := nullableID(p.ParentID)
			if _, err := tx.Exec(
				`INSERT INTO perspectives (pos, dictionary_pos, object_id, owner_id, parent_object_id, parent_owner_id,
					translation, can_view, can_edit, can_publish, limited)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				ppos, i, p.ID.ObjectID, p.ID.OwnerID, po, pw, p.Translation,
				p.Permissions.View, p.Permissions.Edit, p.Permissions.Publish, p.Permissions.Limited,
			); err != nil {
				return "", fmt.Errorf("replace snapshot: perspective %s: %w", p.ID.Key(), err)
			}
			ppos++
		}
	}

	for i, g := range snap.Grants {
		if _, err := tx.Exec(
			"INSERT INTO grants (pos, object_id, owner_id, translation) VALUES (?, ?, ?, ?)",
			i, g.ID.ObjectID, g.ID.OwnerID, g.Translation,
		); err != nil {
			return "", fmt.Errorf("replace snapshot: grant %s: %w", g.ID.Key(), err)
		}
		for j, pid := range g.ParticipantIDs {
			if _, err := tx.Exec(
				"INSERT INTO grant_participants (grant_pos, ordinal, object_id, owner_id) VALUES (?, ?, ?, ?)",
				i, j, pid.ObjectID, pid.OwnerID,
			); err != nil {
				return "", fmt.Errorf("replace snapshot: grant %s participant %d: %w", g.ID.Key(), j, err)
			}
		}
	}

	for i, en := range snap.Entries {
		if _, err := tx.Exec(
			`INSERT INTO entries (pos, object_id, owner_id, perspective_object_id, perspective_owner_id, translation)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			i, en.ID.ObjectID, en.ID.OwnerID, en.PerspectiveID.ObjectID, en.PerspectiveID.OwnerID, en.Translation,
		); err != nil {
			return "", fmt.Errorf("replace snapshot: entry %s: %w", en.ID.Key(), err)
		}
	}

	id := ulid.Make().String()
	meta := map[string]string{
		MetaSnapshotID: id,
		MetaImportedAt: time.Now().UTC().Format(time.RFC3339Nano),
		MetaSource:     source,
	}
	for k, v := range meta {
		if err := setMetadataTx(tx, k, v); err != nil {
			return "", fmt.Errorf("replace snapshot: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("replace snapshot: commit: %w", err)
	}
	return id, nil
}

// Snapshot reads the whole stored catalog back in import order.
func (s *Store) Snapshot() (*langtree.Snapshot, error) {
	langs, err := s.Languages()
	if err != nil {
		return nil, err
	}
	dicts, err := s.Dictionaries()
	if err != nil {
		return nil, err
	}
	grants, err := s.Grants()
	if err != nil {
		return nil, err
	}
	entries, err := s.Entries()
	if err != nil {
		return nil, err
	}
	return &langtree.Snapshot{
		Languages:    langs,
		Dictionaries: dicts,
		Grants:       grants,
		Entries:      entries,
	}, nil
}

// Languages returns every language in stored order.
func (s *Store) Languages() ([]langtree.Language, error) {
	rows, err := s.db.Query(
		`SELECT object_id, owner_id, parent_object_id, parent_owner_id, translation, created_at
		 FROM languages ORDER BY pos`,
	)
	if err != nil {
		return nil, fmt.Errorf("languages: %w", err)
	}
	defer rows.Close()
	langs := []langtree.Language{}
	for rows.Next() {
		var l langtree.Language
		var po, pw sql.NullInt64
		var created sql.NullTime
		if err := rows.Scan(&l.ID.ObjectID, &l.ID.OwnerID, &po, &pw, &l.Translation, &created); err != nil {
			return nil, fmt.Errorf("scan language: %w", err)
		}
		l.ParentID = scanID(po, pw)
		if created.Valid && !created.Time.IsZero() {
			l.CreatedAt = created.Time.UTC()
		}
		langs = append(langs, l)
	}
	return langs, rows.Err()
}

// Dictionaries returns every dictionary with its perspectives nested.
func (s *Store) Dictionaries() ([]langtree.Dictionary, error) {
	rows, err := s.db.Query(
		`SELECT object_id, owner_id, parent_object_id, parent_owner_id, translation,
			category, authors, status, downloaded
		 FROM dictionaries ORDER BY pos`,
	)
	if err != nil {
		return nil, fmt.Errorf("dictionaries: %w", err)
	}
	defer rows.Close()
	dicts := []langtree.Dictionary{}
	for rows.Next() {
		var d langtree.Dictionary
		var po, pw sql.NullInt64
		var category int
		if err := rows.Scan(
			&d.ID.ObjectID, &d.ID.OwnerID, &po, &pw, &d.Translation,
			&category, &d.Metadata.Authors, &d.Metadata.Status, &d.Metadata.Downloaded,
		); err != nil {
			return nil, fmt.Errorf("scan dictionary: %w", err)
		}
		d.ParentID = scanID(po, pw)
		d.Category = langtree.Category(category)
		dicts = append(dicts, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dictionaries: %w", err)
	}

	prows, err := s.db.Query(
		`SELECT dictionary_pos, object_id, owner_id, parent_object_id, parent_owner_id,
			translation, can_view, can_edit, can_publish, limited
		 FROM perspectives ORDER BY pos`,
	)
	if err != nil {
		return nil, fmt.Errorf("perspectives: %w", err)
	}
	defer prows.Close()
	for prows.Next() {
		var p langtree.Perspective
		var dpos int
		var po, pw sql.NullInt64
		if err := prows.Scan(
			&dpos, &p.ID.ObjectID, &p.ID.OwnerID, &po, &pw, &p.Translation,
			&p.Permissions.View, &p.Permissions.Edit, &p.Permissions.Publish, &p.Permissions.Limited,
		); err != nil {
			return nil, fmt.Errorf("scan perspective: %w", err)
		}
		if dpos < 0 || dpos >= len(dicts) {
			return nil, fmt.Errorf("perspective %s: dictionary position %d out of range", p.ID.Key(), dpos)
		}
		p.ParentID = scanID(po, pw)
		dicts[dpos].Perspectives = append(dicts[dpos].Perspectives, p)
	}
	return dicts, prows.Err()
}

// Grants returns every grant with its participant ids in stored order.
func (s *Store) Grants() ([]langtree.Grant, error) {
	rows, err := s.db.Query("SELECT object_id, owner_id, translation FROM grants ORDER BY pos")
	if err != nil {
		return nil, fmt.Errorf("grants: %w", err)
	}
	defer rows.Close()
	grants := []langtree.Grant{}
	for rows.Next() {
		var g langtree.Grant
		if err := rows.Scan(&g.ID.ObjectID, &g.ID.OwnerID, &g.Translation); err != nil {
			return nil, fmt.Errorf("scan grant: %w", err)
		}
		grants = append(grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("grants: %w", err)
	}

	prows, err := s.db.Query(
		"SELECT grant_pos, object_id, owner_id FROM grant_participants ORDER BY grant_pos, ordinal",
	)
	if err != nil {
		return nil, fmt.Errorf("grant participants: %w", err)
	}
	defer prows.Close()
	for prows.Next() {
		var gpos int
		var id langtree.ID
		if err := prows.Scan(&gpos, &id.ObjectID, &id.OwnerID); err != nil {
			return nil, fmt.Errorf("scan grant participant: %w", err)
		}
		if gpos < 0 || gpos >= len(grants) {
			return nil, fmt.Errorf("grant participant %s: grant position %d out of range", id.Key(), gpos)
		}
		grants[gpos].ParticipantIDs = append(grants[gpos].ParticipantIDs, id)
	}
	return grants, prows.Err()
}

const entryCols = "object_id, owner_id, perspective_object_id, perspective_owner_id, translation"

func (s *Store) queryEntries(query string, args ...any) ([]langtree.Entry, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := []langtree.Entry{}
	for rows.Next() {
		var en langtree.Entry
		if err := rows.Scan(
			&en.ID.ObjectID, &en.ID.OwnerID,
			&en.PerspectiveID.ObjectID, &en.PerspectiveID.OwnerID, &en.Translation,
		); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, en)
	}
	return entries, rows.Err()
}

// Entries returns every lexical entry in stored order.
func (s *Store) Entries() ([]langtree.Entry, error) {
	entries, err := s.queryEntries("SELECT " + entryCols + " FROM entries ORDER BY pos")
	if err != nil {
		return nil, fmt.Errorf("entries: %w", err)
	}
	return entries, nil
}

// EntriesInPerspectives returns the entries of the given perspectives.
func (s *Store) EntriesInPerspectives(ids []langtree.ID) ([]langtree.Entry, error) {
	if len(ids) == 0 {
		return []langtree.Entry{}, nil
	}
	entries, err := s.queryEntries(
		"SELECT "+entryCols+" FROM entries WHERE (perspective_object_id, perspective_owner_id) IN (VALUES "+
			pairPlaceholders(len(ids))+") ORDER BY pos",
		idsToArgs(ids)...,
	)
	if err != nil {
		return nil, fmt.Errorf("entries in perspectives: %w", err)
	}
	return entries, nil
}

// SearchEntries returns entries whose translation contains text, ignoring
// ASCII case, in import order. A limit below 1 means no limit.
func (s *Store) SearchEntries(text string, limit int) ([]langtree.Entry, error) {
	if limit < 1 {
		limit = -1
	}
	entries, err := s.queryEntries(
		"SELECT "+entryCols+` FROM entries WHERE translation LIKE ? ESCAPE '\' ORDER BY pos LIMIT ?`,
		likePattern(text), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search entries: %w", err)
	}
	return entries, nil
}
