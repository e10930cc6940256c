package langtree

import (
	"slices"
	"sync"
)

// Selection is the set of dictionaries the user has ticked. It is kept
// outside the derived trees, keyed by id, so a rebuild from a new snapshot
// keeps the user's choices. The zero value is an empty selection and is safe
// for concurrent use.
type Selection struct {
	mu  sync.RWMutex
	ids map[Key]ID
}

// Toggle adds id to the selection, or removes it if already present, and
// reports whether id is selected afterwards.
func (s *Selection) Toggle(id ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := id.Key()
	if _, ok := s.ids[k]; ok {
		delete(s.ids, k)
		return false
	}
	if s.ids == nil {
		s.ids = make(map[Key]ID)
	}
	s.ids[k] = id
	return true
}

// Reset clears the selection.
func (s *Selection) Reset() {
	s.mu.Lock()
	s.ids = nil
	s.mu.Unlock()
}

// Has reports whether id is selected.
func (s *Selection) Has(id ID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id.Key()]
	return ok
}

// Len returns the number of selected ids.
func (s *Selection) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// IDs returns the selected ids in key order.
func (s *Selection) IDs() []ID {
	s.mu.RLock()
	out := make([]ID, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, id)
	}
	s.mu.RUnlock()
	slices.SortFunc(out, ID.Compare)
	return out
}

// ApplySelection returns a copy of forest with Selected set on every
// dictionary in sel and cleared everywhere else. Ids that no longer exist in
// forest are ignored.
func ApplySelection(forest []*Node, sel *Selection) []*Node {
	out := CloneForest(forest)
	Walk(out, func(n *Node, _ int) bool {
		n.Selected = n.Kind == KindDictionary && sel != nil && sel.Has(n.ID)
		return true
	})
	return out
}
