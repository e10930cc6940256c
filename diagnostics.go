package langtree

import (
	"fmt"
	"slices"
)

// Anomaly classifies an absorbed input problem.
type Anomaly int

const (
	// AnomalyStructural covers cycles, orphans and stale references.
	AnomalyStructural Anomaly = iota
	// AnomalyMalformed covers records missing a required field.
	AnomalyMalformed
)

func (a Anomaly) String() string {
	switch a {
	case AnomalyStructural:
		return "structural"
	case AnomalyMalformed:
		return "malformed"
	}
	return fmt.Sprintf("anomaly(%d)", int(a))
}

// MarshalText writes the anomaly name.
func (a Anomaly) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// Reason names the specific anomaly.
type Reason string

const (
	ReasonCycle          Reason = "cycle"
	ReasonParentExcluded Reason = "parent_excluded"
	ReasonOrphan         Reason = "orphan"
	ReasonStaleGrantRef  Reason = "stale_grant_reference"
	ReasonDuplicateClaim Reason = "duplicate_claim"
	ReasonParentMismatch Reason = "parent_mismatch"
	ReasonDuplicateID    Reason = "duplicate_id"
	ReasonMissingID      Reason = "missing_id"
	ReasonMissingLabel   Reason = "missing_translation"
)

// Diagnostic describes one record the engine excluded or adjusted.
type Diagnostic struct {
	Kind   Anomaly `json:"kind"`
	Reason Reason  `json:"reason"`
	Key    Key     `json:"key,omitempty"`
	Detail string  `json:"detail,omitempty"`
}

func (d Diagnostic) String() string {
	if d.Detail == "" {
		return fmt.Sprintf("%s %s %s", d.Kind, d.Reason, d.Key)
	}
	return fmt.Sprintf("%s %s %s: %s", d.Kind, d.Reason, d.Key, d.Detail)
}

func structural(reason Reason, k Key, format string, args ...any) Diagnostic {
	return Diagnostic{Kind: AnomalyStructural, Reason: reason, Key: k, Detail: fmt.Sprintf(format, args...)}
}

func malformed(reason Reason, k Key, format string, args ...any) Diagnostic {
	return Diagnostic{Kind: AnomalyMalformed, Reason: reason, Key: k, Detail: fmt.Sprintf(format, args...)}
}

// CountReasons tallies diagnostics by reason.
func CountReasons(diags []Diagnostic) map[Reason]int {
	out := make(map[Reason]int)
	for _, d := range diags {
		out[d.Reason]++
	}
	return out
}

// KeysWithReason returns the keys of diagnostics with the given reason, sorted.
func KeysWithReason(diags []Diagnostic, reason Reason) []Key {
	var keys []Key
	for _, d := range diags {
		if d.Reason == reason {
			keys = append(keys, d.Key)
		}
	}
	slices.SortFunc(keys, Key.Compare)
	return keys
}

// InvariantError reports a broken structural law. It indicates a defect in
// the engine, never bad input.
type InvariantError struct {
	Check  string
	Key    Key
	Detail string
}

func (e *InvariantError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("invariant %s violated: %s", e.Check, e.Detail)
	}
	return fmt.Sprintf("invariant %s violated at %s: %s", e.Check, e.Key, e.Detail)
}
