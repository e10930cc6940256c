package store

import (
	"database/sql"
	"strings"

	"github.com/jward/langtree"
)

// pairPlaceholders returns "(?,?),(?,?)" for n composite ids.
func pairPlaceholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("(?,?),", n-1) + "(?,?)"
}

// idsToArgs flattens composite ids to []any for use with pairPlaceholders.
func idsToArgs(ids []langtree.ID) []any {
	args := make([]any, 0, 2*len(ids))
	for _, id := range ids {
		args = append(args, id.ObjectID, id.OwnerID)
	}
	return args
}

// nullableID splits an optional id into two nullable column values.
func nullableID(id *langtree.ID) (any, any) {
	if id == nil {
		return nil, nil
	}
	return id.ObjectID, id.OwnerID
}

// scanID rebuilds an optional id from two nullable columns. A half-null pair
// is treated as absent.
func scanID(obj, owner sql.NullInt64) *langtree.ID {
	if !obj.Valid || !owner.Valid {
		return nil
	}
	return &langtree.ID{ObjectID: obj.Int64, OwnerID: owner.Int64}
}

// likePattern turns free text into a substring LIKE pattern, escaping the
// wildcard characters with a backslash.
func likePattern(text string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(text) + "%"
}
