package langtree

import (
	"slices"
	"time"
)

// ForestResult is the output of BuildForest.
type ForestResult struct {
	// Forest holds the root languages, children populated and ordered.
	Forest []*Node `json:"forest"`
	// ExcludedCycles lists every language that sits on a parent cycle,
	// sorted by key. None of them appear in Forest.
	ExcludedCycles []Key `json:"excluded_cycles"`
	// Diagnostics lists every record that was skipped or re-rooted.
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// languageIndex is the first pass of BuildForest: validated languages
// indexed by key, in input order.
type languageIndex struct {
	nodes map[Key]*Node
	order []Key
	diags []Diagnostic
}

// indexLanguages validates languages and indexes them by key. Records with a
// missing id or translation are skipped; the first of several records with
// the same id wins.
func indexLanguages(languages []Language) *languageIndex {
	idx := &languageIndex{nodes: make(map[Key]*Node, len(languages))}
	for i, l := range languages {
		if !l.ID.Valid() {
			idx.diags = append(idx.diags, malformed(ReasonMissingID, "", "language at position %d has no id", i))
			continue
		}
		k := l.ID.Key()
		if l.Translation == "" {
			idx.diags = append(idx.diags, malformed(ReasonMissingLabel, k, "language has no translation"))
			continue
		}
		if _, dup := idx.nodes[k]; dup {
			idx.diags = append(idx.diags, malformed(ReasonDuplicateID, k, "duplicate language at position %d", i))
			continue
		}
		idx.nodes[k] = languageNode(l)
		idx.order = append(idx.order, k)
	}
	return idx
}

// parentKey returns the key of n's parent when it resolves within the index.
func (idx *languageIndex) parentKey(k Key) (Key, bool) {
	n := idx.nodes[k]
	if n == nil || n.ParentID == nil {
		return "", false
	}
	pk := n.ParentID.Key()
	if _, ok := idx.nodes[pk]; !ok {
		return "", false
	}
	return pk, true
}

// findCycles returns every key lying on a parent cycle. The parent graph has
// out-degree at most one, so a single coloring walk per node suffices and no
// walk revisits a finished node.
func (idx *languageIndex) findCycles() map[Key]int {
	const (
		unvisited = iota
		onPath
		done
	)
	state := make(map[Key]uint8, len(idx.order))
	cyclic := make(map[Key]int)
	var path []Key
	for _, start := range idx.order {
		if state[start] != unvisited {
			continue
		}
		path = path[:0]
		cur := start
		for {
			st := state[cur]
			if st == done {
				break
			}
			if st == onPath {
				loop := path[slices.Index(path, cur):]
				for _, k := range loop {
					cyclic[k] = len(loop)
				}
				break
			}
			state[cur] = onPath
			path = append(path, cur)
			next, ok := idx.parentKey(cur)
			if !ok {
				break
			}
			cur = next
		}
		for _, k := range path {
			state[k] = done
		}
	}
	return cyclic
}

// BuildForest assembles the language forest. Every valid, acyclic language
// appears exactly once; languages whose parent is nil or unknown become
// roots. Languages on a parent cycle are excluded and reported; their
// acyclic descendants are re-rooted.
func (e *Engine) BuildForest(languages []Language) *ForestResult {
	start := time.Now()
	idx := indexLanguages(languages)
	cyclic := idx.findCycles()

	res := &ForestResult{
		Forest:         []*Node{},
		ExcludedCycles: []Key{},
		Diagnostics:    idx.diags,
	}
	for _, k := range idx.order {
		if n, ok := cyclic[k]; ok {
			res.ExcludedCycles = append(res.ExcludedCycles, k)
			res.Diagnostics = append(res.Diagnostics, structural(ReasonCycle, k, "language is on a parent cycle of length %d", n))
		}
	}
	slices.SortFunc(res.ExcludedCycles, Key.Compare)

	for _, k := range idx.order {
		if _, skip := cyclic[k]; skip {
			continue
		}
		n := idx.nodes[k]
		pk, ok := idx.parentKey(k)
		switch {
		case !ok:
			res.Forest = append(res.Forest, n)
		case cyclic[pk] > 0:
			res.Diagnostics = append(res.Diagnostics, structural(ReasonParentExcluded, k, "parent %s is on a cycle; promoted to root", pk))
			res.Forest = append(res.Forest, n)
		default:
			parent := idx.nodes[pk]
			parent.Children = append(parent.Children, n)
		}
	}

	e.newSorter().sortForest(res.Forest)
	e.report("build_forest", res.Diagnostics)
	e.pass("build_forest", start, len(idx.order)-len(res.ExcludedCycles))
	return res
}
