package langtree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Category classifies a dictionary-like leaf for count aggregation.
type Category int

const (
	CategoryNone       Category = -1 // perspectives and entries carry no category
	CategoryDictionary Category = 0
	CategoryCorpus     Category = 1
)

func (c Category) String() string {
	switch c {
	case CategoryNone:
		return "none"
	case CategoryDictionary:
		return "dictionary"
	case CategoryCorpus:
		return "corpus"
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// Kind tags the variant held by a Node.
type Kind int

const (
	KindLanguage Kind = iota
	KindDictionary
	KindPerspective
	KindEntry
)

var kindNames = [...]string{
	KindLanguage:    "language",
	KindDictionary:  "dictionary",
	KindPerspective: "perspective",
	KindEntry:       "entry",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// MarshalText writes the kind name.
func (k Kind) MarshalText() ([]byte, error) {
	if k < 0 || int(k) >= len(kindNames) {
		return nil, fmt.Errorf("marshal kind: invalid kind %d", int(k))
	}
	return []byte(kindNames[k]), nil
}

// UnmarshalText parses a kind name.
func (k *Kind) UnmarshalText(b []byte) error {
	for i, name := range kindNames {
		if name == string(b) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("unmarshal kind: unknown kind %q", b)
}

// rank orders sibling kinds that tie on timestamp and translation.
func (k Kind) rank() int {
	switch k {
	case KindLanguage:
		return 0
	case KindDictionary:
		return 1
	case KindPerspective:
		return 2
	case KindEntry:
		return 3
	}
	return 4
}

// Language is one row of the language catalog.
type Language struct {
	ID          ID        `json:"id"`
	ParentID    *ID       `json:"parent_id"`
	Translation string    `json:"translation"`
	CreatedAt   time.Time `json:"created_at"`
}

// UnmarshalJSON accepts created_at as an RFC 3339 string or as Unix seconds.
func (l *Language) UnmarshalJSON(data []byte) error {
	type plain Language
	var raw struct {
		plain
		CreatedAt json.RawMessage `json:"created_at"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshal language: %w", err)
	}
	created, err := parseTimestamp(raw.CreatedAt)
	if err != nil {
		return fmt.Errorf("unmarshal language %s: %w", raw.ID.Key(), err)
	}
	*l = Language(raw.plain)
	l.CreatedAt = created
	return nil
}

func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	switch {
	case len(raw) == 0, bytes.Equal(raw, []byte("null")), bytes.Equal(raw, []byte(`""`)):
		return time.Time{}, nil
	case raw[0] == '"':
		var t time.Time
		if err := json.Unmarshal(raw, &t); err != nil {
			return time.Time{}, fmt.Errorf("created_at: %w", err)
		}
		return t, nil
	}
	secs, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("created_at: %w", err)
	}
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(math.Round(frac*1e9))).UTC(), nil
}

// Permissions are the per-perspective access flags shown next to a perspective.
type Permissions struct {
	View    bool `json:"view,omitempty"`
	Edit    bool `json:"edit,omitempty"`
	Publish bool `json:"publish,omitempty"`
	Limited bool `json:"limited,omitempty"`
}

// Metadata is the descriptive part of a dictionary.
type Metadata struct {
	Authors    string `json:"authors,omitempty"`
	Status     string `json:"status,omitempty"`
	Downloaded bool   `json:"downloaded,omitempty"`
}

// Perspective is a view over a dictionary.
type Perspective struct {
	ID          ID          `json:"id"`
	ParentID    *ID         `json:"parent_id"`
	Translation string      `json:"translation"`
	Permissions Permissions `json:"permissions"`
}

// Dictionary is a dictionary or corpus owned by a language.
type Dictionary struct {
	ID           ID            `json:"id"`
	ParentID     *ID           `json:"parent_id"`
	Translation  string        `json:"translation"`
	Category     Category      `json:"category"`
	Metadata     Metadata      `json:"additional_metadata"`
	Perspectives []Perspective `json:"perspectives,omitempty"`
}

// Grant claims a set of dictionaries.
type Grant struct {
	ID             ID     `json:"id"`
	Translation    string `json:"translation"`
	ParticipantIDs []ID   `json:"participant"`
}

// UnmarshalJSON accepts the participant list either at the top level or
// nested as additional_metadata.participant. The top level wins when both
// are present.
func (g *Grant) UnmarshalJSON(data []byte) error {
	type plain Grant
	var raw struct {
		plain
		Metadata *struct {
			Participant []ID `json:"participant"`
		} `json:"additional_metadata"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshal grant: %w", err)
	}
	*g = Grant(raw.plain)
	if g.ParticipantIDs == nil && raw.Metadata != nil {
		g.ParticipantIDs = raw.Metadata.Participant
	}
	return nil
}

// Entry is a lexical entry inside a perspective.
type Entry struct {
	ID            ID     `json:"id"`
	PerspectiveID ID     `json:"perspective_id"`
	Translation   string `json:"translation"`
}

// Snapshot is a complete catalog, the unit every derived view is rebuilt from.
type Snapshot struct {
	Languages    []Language   `json:"language_tree"`
	Dictionaries []Dictionary `json:"dictionaries"`
	Grants       []Grant      `json:"grants"`
	Entries      []Entry      `json:"lexical_entries,omitempty"`
}

// Counts are the aggregated leaf categories of a language subtree.
type Counts struct {
	Dictionaries int `json:"dictionaries"`
	Corpora      int `json:"corpora"`
}

func (c Counts) add(o Counts) Counts {
	return Counts{Dictionaries: c.Dictionaries + o.Dictionaries, Corpora: c.Corpora + o.Corpora}
}

// Node is one element of a derived tree. Kind selects which fields are
// meaningful: Counts and CreatedAt for languages; Category and Metadata for
// dictionaries; Permissions for perspectives; Selected for any leaf.
//
// Nodes returned by the engine are owned by the caller's view; the engine
// never mutates a node after returning it.
type Node struct {
	Kind        Kind        `json:"kind"`
	ID          ID          `json:"id"`
	Key         Key         `json:"key"`
	ParentID    *ID         `json:"parent_id,omitempty"`
	Translation string      `json:"translation"`
	CreatedAt   time.Time   `json:"created_at,omitzero"`
	Category    Category    `json:"category"`
	Metadata    Metadata    `json:"metadata,omitzero"`
	Permissions Permissions `json:"permissions,omitzero"`
	Counts      Counts      `json:"counts,omitzero"`
	Selected    bool        `json:"selected,omitempty"`
	Children    []*Node     `json:"children,omitempty"`
}

// IsLeaf reports whether n is a dictionary, perspective or entry.
func (n *Node) IsLeaf() bool { return n.Kind != KindLanguage }

// clone returns a shallow copy of n with a fresh, empty Children slice.
func (n *Node) clone() *Node {
	c := *n
	if n.ParentID != nil {
		p := *n.ParentID
		c.ParentID = &p
	}
	c.Children = nil
	return &c
}

// Clone deep-copies the subtree rooted at n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	root := n.clone()
	type pair struct{ src, dst *Node }
	stack := []pair{{n, root}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if len(p.src.Children) == 0 {
			continue
		}
		p.dst.Children = make([]*Node, len(p.src.Children))
		for i, ch := range p.src.Children {
			c := ch.clone()
			p.dst.Children[i] = c
			stack = append(stack, pair{ch, c})
		}
	}
	return root
}

// CloneForest deep-copies every tree in forest. The result is never nil.
func CloneForest(forest []*Node) []*Node {
	out := make([]*Node, len(forest))
	for i, n := range forest {
		out[i] = n.Clone()
	}
	return out
}

// Walk visits every node of forest in pre-order without recursion. Returning
// false from fn skips the node's children.
func Walk(forest []*Node, fn func(n *Node, depth int) bool) {
	type frame struct {
		n     *Node
		depth int
	}
	stack := make([]frame, 0, len(forest))
	for i := len(forest) - 1; i >= 0; i-- {
		stack = append(stack, frame{forest[i], 0})
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(f.n, f.depth) {
			continue
		}
		for i := len(f.n.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{f.n.Children[i], f.depth + 1})
		}
	}
}

// Flatten returns the nodes of forest in pre-order.
func Flatten(forest []*Node) []*Node {
	var out []*Node
	Walk(forest, func(n *Node, _ int) bool {
		out = append(out, n)
		return true
	})
	return out
}

// Keys returns the set of keys of nodes of the given kind in forest.
func Keys(forest []*Node, kind Kind) map[Key]bool {
	set := make(map[Key]bool)
	Walk(forest, func(n *Node, _ int) bool {
		if n.Kind == kind {
			set[n.Key] = true
		}
		return true
	})
	return set
}

// languageNode builds a childless language node.
func languageNode(l Language) *Node {
	n := &Node{
		Kind:        KindLanguage,
		ID:          l.ID,
		Key:         l.ID.Key(),
		Translation: l.Translation,
		CreatedAt:   l.CreatedAt,
		Category:    CategoryNone,
	}
	if l.ParentID != nil {
		p := *l.ParentID
		n.ParentID = &p
	}
	return n
}

// dictionaryNode builds a dictionary node without its perspectives.
func dictionaryNode(d Dictionary) *Node {
	n := &Node{
		Kind:        KindDictionary,
		ID:          d.ID,
		Key:         d.ID.Key(),
		Translation: d.Translation,
		Category:    d.Category,
		Metadata:    d.Metadata,
	}
	if d.ParentID != nil {
		p := *d.ParentID
		n.ParentID = &p
	}
	return n
}

// perspectiveNode builds a perspective node owned by dict.
func perspectiveNode(p Perspective, dict ID) *Node {
	parent := dict
	return &Node{
		Kind:        KindPerspective,
		ID:          p.ID,
		Key:         p.ID.Key(),
		ParentID:    &parent,
		Translation: p.Translation,
		Category:    CategoryNone,
		Permissions: p.Permissions,
	}
}
