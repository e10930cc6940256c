package langtree

// Prune returns a copy of forest that keeps every leaf for which keep
// returns true, together with the languages needed to reach it. Kept leaves
// keep their whole subtree (a dictionary keeps its perspectives). Sibling
// order is preserved, so the copy stays sorted. Counts on the copy are stale
// until it is passed through AggregateCounts.
func Prune(forest []*Node, keep func(*Node) bool) []*Node {
	marked := make(map[*Node]bool)
	var path []*Node
	Walk(forest, func(n *Node, depth int) bool {
		path = append(path[:depth], n)
		if n.Kind == KindLanguage {
			return true
		}
		if keep(n) {
			for _, a := range path {
				marked[a] = true
			}
		}
		return false
	})

	out := []*Node{}
	type pair struct{ src, dst *Node }
	var stack []pair
	take := func(src *Node) *Node {
		if src.IsLeaf() {
			return src.Clone()
		}
		dst := src.clone()
		stack = append(stack, pair{src, dst})
		return dst
	}
	for _, root := range forest {
		if marked[root] {
			out = append(out, take(root))
		}
	}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, ch := range p.src.Children {
			if marked[ch] {
				p.dst.Children = append(p.dst.Children, take(ch))
			}
		}
	}
	return out
}

// KeepKeys returns a Prune predicate that keeps leaves of the given kind
// whose key is in set.
func KeepKeys(kind Kind, set map[Key]bool) func(*Node) bool {
	return func(n *Node) bool { return n.Kind == kind && set[n.Key] }
}
