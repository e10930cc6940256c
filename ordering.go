package langtree

import (
	"slices"

	"golang.org/x/text/collate"
)

// sorter orders sibling nodes. A collate.Collator keeps internal buffers, so
// each sorter is confined to the goroutine that created it.
type sorter struct {
	col *collate.Collator
}

func (e *Engine) newSorter() *sorter {
	return &sorter{col: collate.New(e.locale)}
}

// compareLabels compares translations under the locale collation, falling
// back to byte order so distinct strings never compare equal.
func (s *sorter) compareLabels(a, b string) int {
	if c := s.col.CompareString(a, b); c != 0 {
		return c
	}
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// compareNodes is the sibling order: creation time ascending, then
// translation, then kind, then key. Leaves carry no creation time and so
// order among themselves by translation and key alone.
func (s *sorter) compareNodes(a, b *Node) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	if c := s.compareLabels(a.Translation, b.Translation); c != 0 {
		return c
	}
	if ra, rb := a.Kind.rank(), b.Kind.rank(); ra != rb {
		return ra - rb
	}
	return a.Key.Compare(b.Key)
}

func (s *sorter) sortNodes(nodes []*Node) {
	slices.SortStableFunc(nodes, s.compareNodes)
}

// sortForest orders the roots and every children list of forest.
func (s *sorter) sortForest(forest []*Node) {
	s.sortNodes(forest)
	Walk(forest, func(n *Node, _ int) bool {
		if len(n.Children) > 1 {
			s.sortNodes(n.Children)
		}
		return true
	})
}
