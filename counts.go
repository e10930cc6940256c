package langtree

import (
	"errors"
	"fmt"
	"time"
)

// directCounts applies the sum rule to n using the counts already stored on
// its children: one per direct dictionary or corpus leaf, plus every child
// language's total.
func directCounts(n *Node) Counts {
	var c Counts
	for _, ch := range n.Children {
		switch ch.Kind {
		case KindLanguage:
			c = c.add(ch.Counts)
		case KindDictionary:
			switch ch.Category {
			case CategoryDictionary:
				c.Dictionaries++
			case CategoryCorpus:
				c.Corpora++
			}
		case KindPerspective, KindEntry:
		}
	}
	return c
}

// aggregate fills Counts on every node of forest in true post-order. It uses
// an explicit stack so deep hierarchies cannot exhaust the goroutine stack.
func aggregate(forest []*Node) int {
	type frame struct {
		n        *Node
		expanded bool
	}
	stack := make([]frame, 0, len(forest))
	for _, root := range forest {
		stack = append(stack, frame{n: root})
	}
	visited := 0
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !f.expanded {
			stack = append(stack, frame{n: f.n, expanded: true})
			for _, ch := range f.n.Children {
				stack = append(stack, frame{n: ch})
			}
			continue
		}
		visited++
		if f.n.Kind == KindLanguage {
			f.n.Counts = directCounts(f.n)
		} else {
			f.n.Counts = Counts{}
		}
	}
	return visited
}

// AggregateCounts returns a copy of forest with Counts computed for every
// language. Running it on its own output yields an identical forest.
func (e *Engine) AggregateCounts(forest []*Node) []*Node {
	start := time.Now()
	out := CloneForest(forest)
	visited := aggregate(out)
	if e.selfCheck {
		if err := VerifyCounts(out); err != nil {
			var inv *InvariantError
			if errors.As(err, &inv) {
				e.violated(inv)
			}
			out = CloneForest(forest)
			visited = aggregate(out)
		}
	}
	e.pass("aggregate_counts", start, visited)
	return out
}

// VerifyCounts checks the sum rule at every language node of forest and
// returns an *InvariantError for the first node that breaks it.
func VerifyCounts(forest []*Node) error {
	var err error
	Walk(forest, func(n *Node, _ int) bool {
		if err != nil {
			return false
		}
		if n.Kind != KindLanguage {
			return true
		}
		if want := directCounts(n); want != n.Counts {
			err = &InvariantError{
				Check:  "counts",
				Key:    n.Key,
				Detail: fmt.Sprintf("have %+v, want %+v", n.Counts, want),
			}
			return false
		}
		return true
	})
	return err
}
