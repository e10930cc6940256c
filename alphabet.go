package langtree

import (
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// LetterBucket groups entities whose translation starts with Letter. The
// bucket for empty translations has Unspecified set and an empty Letter; it
// always comes last.
type LetterBucket[T any] struct {
	Letter      string `json:"letter"`
	Unspecified bool   `json:"unspecified,omitempty"`
	Items       []T    `json:"items"`
}

// IndexAlphabetically buckets items by the upper-cased first character of
// label(item). Items keep their input order inside a bucket, so callers sort
// before indexing. Buckets are ordered by the engine's collation. A nil
// engine uses the defaults of New.
//
// The first character is the first rune, without grapheme or
// combining-mark normalization.
func IndexAlphabetically[T any](e *Engine, items []T, label func(T) string) []LetterBucket[T] {
	if e == nil {
		e = defaultEngine
	}
	upper := cases.Upper(e.locale)
	pos := make(map[string]int)
	buckets := []LetterBucket[T]{}
	unspecified := -1
	for _, it := range items {
		letter, ok := firstLetter(upper, label(it))
		if !ok {
			if unspecified < 0 {
				unspecified = len(buckets)
				buckets = append(buckets, LetterBucket[T]{Unspecified: true})
			}
			buckets[unspecified].Items = append(buckets[unspecified].Items, it)
			continue
		}
		i, seen := pos[letter]
		if !seen {
			i = len(buckets)
			pos[letter] = i
			buckets = append(buckets, LetterBucket[T]{Letter: letter})
		}
		buckets[i].Items = append(buckets[i].Items, it)
	}

	s := e.newSorter()
	slices.SortStableFunc(buckets, func(a, b LetterBucket[T]) int {
		switch {
		case a.Unspecified && b.Unspecified:
			return 0
		case a.Unspecified:
			return 1
		case b.Unspecified:
			return -1
		}
		return s.compareLabels(a.Letter, b.Letter)
	})
	return buckets
}

// firstLetter returns the upper-cased first rune of label.
func firstLetter(upper cases.Caser, label string) (string, bool) {
	if label == "" {
		return "", false
	}
	_, size := utf8.DecodeRuneInString(label)
	return upper.String(label[:size]), true
}

// languagesPostOrder lists the languages of forest children-first, the
// order the navigation panel collects them in.
func languagesPostOrder(forest []*Node) []*Node {
	type frame struct {
		n        *Node
		expanded bool
	}
	var out []*Node
	stack := make([]frame, 0, len(forest))
	for i := len(forest) - 1; i >= 0; i-- {
		stack = append(stack, frame{n: forest[i]})
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.n.Kind != KindLanguage {
			continue
		}
		if f.expanded {
			out = append(out, f.n)
			continue
		}
		stack = append(stack, frame{n: f.n, expanded: true})
		for i := len(f.n.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{n: f.n.Children[i]})
		}
	}
	return out
}

// SortedLanguages returns every language of forest ordered by translation
// under the engine's collation.
func (e *Engine) SortedLanguages(forest []*Node) []*Node {
	langs := languagesPostOrder(forest)
	s := e.newSorter()
	slices.SortStableFunc(langs, func(a, b *Node) int {
		return s.compareLabels(a.Translation, b.Translation)
	})
	return langs
}

// LanguageIndex buckets every language of forest by first letter.
func (e *Engine) LanguageIndex(forest []*Node) []LetterBucket[*Node] {
	return IndexAlphabetically(e, e.SortedLanguages(forest), func(n *Node) string { return n.Translation })
}

// Suggest returns up to limit languages whose translation starts with
// prefix, ignoring case, in index order. A limit below 1 means no limit.
func (e *Engine) Suggest(forest []*Node, prefix string, limit int) []*Node {
	fold := cases.Fold()
	want := fold.String(prefix)
	out := []*Node{}
	for _, n := range e.SortedLanguages(forest) {
		if !strings.HasPrefix(fold.String(n.Translation), want) {
			continue
		}
		out = append(out, n)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
