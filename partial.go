package langtree

import "time"

// Match is one sparse hit, typically a lexical entry found by search, with
// the ids needed to place it: its perspective (optional), its dictionary,
// and that dictionary's language. A nil LanguageID is resolved from the
// dictionary catalog.
type Match struct {
	ID            ID     `json:"id"`
	Translation   string `json:"translation"`
	PerspectiveID *ID    `json:"perspective_id,omitempty"`
	DictionaryID  ID     `json:"dictionary_id"`
	LanguageID    *ID    `json:"language_id,omitempty"`
}

// PartialResult is the output of ReconstructPartial.
type PartialResult struct {
	// Forest is never nil. An empty Forest means no results, not failure.
	Forest      []*Node      `json:"forest"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// Empty reports whether nothing matched.
func (r *PartialResult) Empty() bool { return len(r.Forest) == 0 }

// catalog indexes the full language and dictionary catalogs for ancestor
// lookups. Records are validated the way BuildForest and AttachLeaves
// validate them, so a record missing from the browse forest is never
// resurrected as the ancestor of a match.
type catalog struct {
	languages    map[Key]Language
	dictionaries map[Key]Dictionary
	// perspectives holds childless perspective nodes, each owned by the
	// dictionary named in its ParentID.
	perspectives map[Key]*Node
}

func newCatalog(languages []Language, dictionaries []Dictionary) (*catalog, []Diagnostic) {
	c := &catalog{
		languages:    make(map[Key]Language, len(languages)),
		dictionaries: make(map[Key]Dictionary, len(dictionaries)),
		perspectives: make(map[Key]*Node),
	}
	idx := indexLanguages(languages)
	for _, l := range languages {
		k := l.ID.Key()
		if _, ok := idx.nodes[k]; !ok || l.Translation == "" {
			continue
		}
		if _, dup := c.languages[k]; !dup {
			c.languages[k] = l
		}
	}
	b := newLeafBuilder()
	for i, d := range dictionaries {
		n := b.dictionary(i, d)
		if n == nil {
			continue
		}
		c.dictionaries[n.Key] = d
		for _, p := range n.Children {
			c.perspectives[p.Key] = p
		}
	}
	return c, append(idx.diags, b.diags...)
}

func (c *catalog) parentOf(k Key) (Key, bool) {
	l, ok := c.languages[k]
	if !ok || l.ParentID == nil {
		return "", false
	}
	pk := l.ParentID.Key()
	if _, ok := c.languages[pk]; !ok {
		return "", false
	}
	return pk, true
}

// partialBuilder accumulates the result forest. Each namespace has its own
// index so equal integer ids of different kinds never merge.
type partialBuilder struct {
	cat          *catalog
	roots        []*Node
	languages    map[Key]*Node
	dictionaries map[Key]*Node
	perspectives map[Key]*Node
	entries      map[Key]bool
}

// language returns the result node for language k, inserting it and every
// missing ancestor. The upward walk stops at a root, at a node already in
// the result, or on revisiting a node of the current walk.
func (b *partialBuilder) language(k Key) *Node {
	if n, ok := b.languages[k]; ok {
		return n
	}
	var chain []Key
	onWalk := make(map[Key]bool)
	var attach *Node
	cur := k
	for {
		if n, ok := b.languages[cur]; ok {
			attach = n
			break
		}
		if onWalk[cur] {
			break
		}
		onWalk[cur] = true
		chain = append(chain, cur)
		next, ok := b.cat.parentOf(cur)
		if !ok {
			break
		}
		cur = next
	}
	for i := len(chain) - 1; i >= 0; i-- {
		n := languageNode(b.cat.languages[chain[i]])
		b.languages[chain[i]] = n
		if attach == nil {
			b.roots = append(b.roots, n)
		} else {
			attach.Children = append(attach.Children, n)
		}
		attach = n
	}
	return b.languages[k]
}

func (b *partialBuilder) dictionary(d Dictionary, lang Key) *Node {
	k := d.ID.Key()
	if n, ok := b.dictionaries[k]; ok {
		return n
	}
	n := dictionaryNode(d)
	parent := b.language(lang)
	pid := parent.ID
	n.ParentID = &pid
	parent.Children = append(parent.Children, n)
	b.dictionaries[k] = n
	return n
}

func (b *partialBuilder) perspective(p *Node, dict *Node) *Node {
	if n, ok := b.perspectives[p.Key]; ok {
		return n
	}
	n := p.clone()
	dict.Children = append(dict.Children, n)
	b.perspectives[p.Key] = n
	return n
}

// ReconstructPartial builds the smallest forest whose leaves are exactly
// matches and whose inner nodes are the perspectives, dictionaries and
// languages connecting them to their roots. Malformed catalog records are
// skipped with a diagnostic, and matches whose dictionary, perspective or
// language cannot be resolved are skipped and reported as orphans.
func (e *Engine) ReconstructPartial(matches []Match, languages []Language, dictionaries []Dictionary) *PartialResult {
	res := &PartialResult{Forest: []*Node{}}
	if len(matches) == 0 {
		return res
	}
	start := time.Now()
	cat, diags := newCatalog(languages, dictionaries)
	res.Diagnostics = diags
	b := &partialBuilder{
		cat:          cat,
		languages:    make(map[Key]*Node),
		dictionaries: make(map[Key]*Node),
		perspectives: make(map[Key]*Node),
		entries:      make(map[Key]bool),
	}

	for i, m := range matches {
		if !m.ID.Valid() {
			res.Diagnostics = append(res.Diagnostics, malformed(ReasonMissingID, "", "match at position %d has no id", i))
			continue
		}
		k := m.ID.Key()
		if b.entries[k] {
			continue
		}
		dict, ok := b.cat.dictionaries[m.DictionaryID.Key()]
		if !ok {
			res.Diagnostics = append(res.Diagnostics, structural(ReasonOrphan, k, "dictionary %s not in catalog", m.DictionaryID.Key()))
			continue
		}
		langID := dict.ParentID
		if m.LanguageID != nil {
			langID = m.LanguageID
		}
		if langID == nil {
			res.Diagnostics = append(res.Diagnostics, structural(ReasonOrphan, k, "dictionary %s has no language", dict.ID.Key()))
			continue
		}
		lk := langID.Key()
		if _, ok := b.cat.languages[lk]; !ok {
			res.Diagnostics = append(res.Diagnostics, structural(ReasonOrphan, k, "language %s not in catalog", lk))
			continue
		}
		var persp *Node
		if m.PerspectiveID != nil {
			pk := m.PerspectiveID.Key()
			p, ok := b.cat.perspectives[pk]
			if !ok || p.ParentID.Key() != dict.ID.Key() {
				res.Diagnostics = append(res.Diagnostics, structural(ReasonOrphan, k, "perspective %s not in dictionary %s", pk, dict.ID.Key()))
				continue
			}
			persp = p
		}

		parent := b.dictionary(dict, lk)
		if persp != nil {
			parent = b.perspective(persp, parent)
		}
		pid := parent.ID
		parent.Children = append(parent.Children, &Node{
			Kind:        KindEntry,
			ID:          m.ID,
			Key:         k,
			ParentID:    &pid,
			Translation: m.Translation,
			Category:    CategoryNone,
		})
		b.entries[k] = true
	}

	res.Forest = append(res.Forest, b.roots...)
	e.newSorter().sortForest(res.Forest)
	e.report("reconstruct_partial", res.Diagnostics)
	e.pass("reconstruct_partial", start, len(b.entries))
	return res
}

// MatchesOf lists the entry leaves of a reconstructed forest as matches,
// each carrying the perspective, dictionary and language it sits under.
func MatchesOf(forest []*Node) []Match {
	var out []Match
	var path []*Node
	Walk(forest, func(n *Node, depth int) bool {
		path = append(path[:depth], n)
		if n.Kind != KindEntry {
			return true
		}
		m := Match{ID: n.ID, Translation: n.Translation}
		for i := len(path) - 2; i >= 0; i-- {
			a := path[i]
			switch a.Kind {
			case KindPerspective:
				if m.PerspectiveID == nil {
					id := a.ID
					m.PerspectiveID = &id
				}
			case KindDictionary:
				if m.DictionaryID.IsZero() {
					m.DictionaryID = a.ID
				}
			case KindLanguage:
				if m.LanguageID == nil {
					id := a.ID
					m.LanguageID = &id
				}
			case KindEntry:
			}
		}
		out = append(out, m)
		return false
	})
	return out
}

// EntryMatches turns lexical entries into matches by resolving each entry's
// perspective to its dictionary. Entries with an unknown perspective keep a
// zero DictionaryID and are reported as orphans by ReconstructPartial.
func EntryMatches(entries []Entry, dictionaries []Dictionary) []Match {
	owner := make(map[Key]ID)
	for _, d := range dictionaries {
		for _, p := range d.Perspectives {
			if _, dup := owner[p.ID.Key()]; !dup {
				owner[p.ID.Key()] = d.ID
			}
		}
	}
	out := make([]Match, 0, len(entries))
	for _, en := range entries {
		pid := en.PerspectiveID
		out = append(out, Match{
			ID:            en.ID,
			Translation:   en.Translation,
			PerspectiveID: &pid,
			DictionaryID:  owner[pid.Key()],
		})
	}
	return out
}
