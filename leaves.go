package langtree

import "time"

// AttachResult is the output of AttachLeaves.
type AttachResult struct {
	// Forest is a copy of the input forest with dictionaries and
	// perspectives attached.
	Forest []*Node `json:"forest"`
	// Unattached holds dictionaries whose language could not be resolved,
	// with their perspectives, ordered by translation.
	Unattached []*Node `json:"unattached"`
	// Diagnostics lists orphans and skipped records.
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// languagesByKey indexes the language nodes of forest.
func languagesByKey(forest []*Node) map[Key]*Node {
	idx := make(map[Key]*Node)
	Walk(forest, func(n *Node, _ int) bool {
		if n.Kind == KindLanguage {
			idx[n.Key] = n
			return true
		}
		return false
	})
	return idx
}

// leafBuilder turns dictionary records into dictionary nodes, skipping
// malformed records. The dictionary and perspective namespaces are tracked
// separately because their integer ids may coincide.
type leafBuilder struct {
	seenDicts        map[Key]bool
	seenPerspectives map[Key]bool
	diags            []Diagnostic
}

func newLeafBuilder() *leafBuilder {
	return &leafBuilder{
		seenDicts:        make(map[Key]bool),
		seenPerspectives: make(map[Key]bool),
	}
}

// dictionary returns the node for d, or nil when d is malformed.
func (b *leafBuilder) dictionary(pos int, d Dictionary) *Node {
	if !d.ID.Valid() {
		b.diags = append(b.diags, malformed(ReasonMissingID, "", "dictionary at position %d has no id", pos))
		return nil
	}
	k := d.ID.Key()
	if d.Translation == "" {
		b.diags = append(b.diags, malformed(ReasonMissingLabel, k, "dictionary has no translation"))
		return nil
	}
	if b.seenDicts[k] {
		b.diags = append(b.diags, malformed(ReasonDuplicateID, k, "duplicate dictionary at position %d", pos))
		return nil
	}
	b.seenDicts[k] = true

	n := dictionaryNode(d)
	for i, p := range d.Perspectives {
		if !p.ID.Valid() {
			b.diags = append(b.diags, malformed(ReasonMissingID, k, "perspective at position %d has no id", i))
			continue
		}
		pk := p.ID.Key()
		if p.Translation == "" {
			b.diags = append(b.diags, malformed(ReasonMissingLabel, pk, "perspective has no translation"))
			continue
		}
		if b.seenPerspectives[pk] {
			b.diags = append(b.diags, malformed(ReasonDuplicateID, pk, "duplicate perspective in dictionary %s", k))
			continue
		}
		b.seenPerspectives[pk] = true
		if p.ParentID != nil && p.ParentID.Key() != k {
			b.diags = append(b.diags, structural(ReasonParentMismatch, pk, "perspective names dictionary %s, kept under %s", p.ParentID.Key(), k))
		}
		n.Children = append(n.Children, perspectiveNode(p, d.ID))
	}
	return n
}

// AttachLeaves copies forest and attaches each dictionary to its owning
// language and each perspective to its containing dictionary. Dictionaries
// whose language is missing are returned in Unattached rather than dropped.
func (e *Engine) AttachLeaves(forest []*Node, dictionaries []Dictionary) *AttachResult {
	start := time.Now()
	res := &AttachResult{
		Forest:     CloneForest(forest),
		Unattached: []*Node{},
	}
	langs := languagesByKey(res.Forest)
	b := newLeafBuilder()
	attached := 0
	for i, d := range dictionaries {
		n := b.dictionary(i, d)
		if n == nil {
			continue
		}
		if n.ParentID == nil {
			b.diags = append(b.diags, structural(ReasonOrphan, n.Key, "dictionary has no language"))
			res.Unattached = append(res.Unattached, n)
			continue
		}
		parent, ok := langs[n.ParentID.Key()]
		if !ok {
			b.diags = append(b.diags, structural(ReasonOrphan, n.Key, "language %s not in catalog", n.ParentID.Key()))
			res.Unattached = append(res.Unattached, n)
			continue
		}
		parent.Children = append(parent.Children, n)
		attached++
	}
	res.Diagnostics = b.diags

	s := e.newSorter()
	s.sortForest(res.Forest)
	s.sortForest(res.Unattached)
	e.report("attach_leaves", res.Diagnostics)
	e.pass("attach_leaves", start, attached)
	return res
}
