package langtree

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

func id(obj, owner int64) ID { return ID{ObjectID: obj, OwnerID: owner} }

func ptr[T any](v T) *T { return &v }

// quietEngine returns an Engine whose diagnostics are discarded.
func quietEngine(opts ...Option) *Engine {
	base := []Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}
	return New(append(base, opts...)...)
}

var epoch = time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)

func lang(obj int64, parent int64, label string) Language {
	l := Language{ID: id(obj, 1), Translation: label}
	if parent != 0 {
		l.ParentID = ptr(id(parent, 1))
	}
	return l
}

func dict(obj int64, parent int64, label string, cat Category) Dictionary {
	d := Dictionary{ID: id(obj, 1), Translation: label, Category: cat}
	if parent != 0 {
		d.ParentID = ptr(id(parent, 1))
	}
	return d
}

// outline renders forest one node per line, indented by depth, as
// "kind key translation" with language counts appended.
func outline(forest []*Node) string {
	var b strings.Builder
	Walk(forest, func(n *Node, depth int) bool {
		fmt.Fprintf(&b, "%s%s %s %s", strings.Repeat("  ", depth), n.Kind, n.Key, n.Translation)
		if n.Kind == KindLanguage {
			fmt.Fprintf(&b, " [%d/%d]", n.Counts.Dictionaries, n.Counts.Corpora)
		}
		b.WriteByte('\n')
		return true
	})
	return b.String()
}

// find returns the node with key k and kind kind, or nil.
func find(forest []*Node, kind Kind, k Key) *Node {
	var out *Node
	Walk(forest, func(n *Node, _ int) bool {
		if out == nil && n.Kind == kind && n.Key == k {
			out = n
		}
		return out == nil
	})
	return out
}

// translationsOf lists the translations of nodes in order.
func translationsOf(nodes []*Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Translation)
	}
	return out
}

// recordingObserver counts engine telemetry calls.
type recordingObserver struct {
	anomalies  map[string]int
	invariants []string
	passes     []string
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{anomalies: make(map[string]int)}
}

func (r *recordingObserver) ObserveAnomaly(kind, reason string) { r.anomalies[kind+"/"+reason]++ }
func (r *recordingObserver) ObserveInvariant(check string)      { r.invariants = append(r.invariants, check) }
func (r *recordingObserver) ObservePass(op string, _ time.Duration, _ int) {
	r.passes = append(r.passes, op)
}
