package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/object"

	"github.com/jward/langtree"
)

// ErrEmptyPredicate is returned by NewPredicate for blank source.
var ErrEmptyPredicate = errors.New("runtime: empty predicate")

// Predicate is a Risor expression evaluated against one catalog record at a
// time. The record's fields are exposed as globals (see NodeGlobals and
// EntryGlobals) and the predicate matches when the expression's value is
// truthy.
type Predicate struct {
	src    string
	logger *slog.Logger
}

// PredicateOption configures a Predicate.
type PredicateOption func(*Predicate)

// WithLogger routes the script's log.info/warn/error calls to l.
func WithLogger(l *slog.Logger) PredicateOption {
	return func(p *Predicate) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPredicate wraps src. The source is compiled on first use, so syntax
// errors surface from Match.
func NewPredicate(src string, opts ...PredicateOption) (*Predicate, error) {
	if strings.TrimSpace(src) == "" {
		return nil, ErrEmptyPredicate
	}
	p := &Predicate{src: src, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Source returns the expression text.
func (p *Predicate) Source() string { return p.src }

// Match evaluates the predicate with globals and reports whether the result
// is truthy.
func (p *Predicate) Match(ctx context.Context, globals map[string]object.Object) (bool, error) {
	opts := []risor.Option{
		risor.WithGlobal("log", mustProxy(&logObject{logger: p.logger})),
	}
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}
	result, err := risor.Eval(ctx, p.src, opts...)
	if err != nil {
		return false, fmt.Errorf("runtime: predicate %q: %w", p.src, err)
	}
	return result.IsTruthy(), nil
}

// NodeGlobals exposes a tree node to a predicate. Every kind gets kind, key,
// translation and selected; dictionaries add category, authors, status,
// downloaded and perspectives (the perspective count); perspectives add
// their permissions; languages add dictionaries and corpora counts.
func NodeGlobals(n *langtree.Node) map[string]object.Object {
	g := map[string]object.Object{
		"kind":        object.NewString(n.Kind.String()),
		"key":         object.NewString(string(n.Key)),
		"translation": object.NewString(n.Translation),
		"selected":    object.NewBool(n.Selected),
	}
	switch n.Kind {
	case langtree.KindLanguage:
		g["dictionaries"] = object.NewInt(int64(n.Counts.Dictionaries))
		g["corpora"] = object.NewInt(int64(n.Counts.Corpora))
	case langtree.KindDictionary:
		perspectives := 0
		for _, ch := range n.Children {
			if ch.Kind == langtree.KindPerspective {
				perspectives++
			}
		}
		g["category"] = object.NewString(n.Category.String())
		g["authors"] = object.NewString(n.Metadata.Authors)
		g["status"] = object.NewString(n.Metadata.Status)
		g["downloaded"] = object.NewBool(n.Metadata.Downloaded)
		g["perspectives"] = object.NewInt(int64(perspectives))
	case langtree.KindPerspective:
		g["permissions"] = object.NewMap(map[string]object.Object{
			"view":    object.NewBool(n.Permissions.View),
			"edit":    object.NewBool(n.Permissions.Edit),
			"publish": object.NewBool(n.Permissions.Publish),
			"limited": object.NewBool(n.Permissions.Limited),
		})
	case langtree.KindEntry:
	}
	return g
}

// EntryGlobals exposes a lexical entry to a predicate.
func EntryGlobals(e langtree.Entry) map[string]object.Object {
	return map[string]object.Object{
		"kind":        object.NewString(langtree.KindEntry.String()),
		"key":         object.NewString(string(e.ID.Key())),
		"translation": object.NewString(e.Translation),
		"perspective": object.NewString(string(e.PerspectiveID.Key())),
	}
}

// FilterForest prunes forest to the leaves the predicate matches, keeping
// the languages that reach them. Evaluation stops at the first error.
func FilterForest(ctx context.Context, p *Predicate, forest []*langtree.Node) ([]*langtree.Node, error) {
	var evalErr error
	out := langtree.Prune(forest, func(n *langtree.Node) bool {
		if evalErr != nil {
			return false
		}
		ok, err := p.Match(ctx, NodeGlobals(n))
		if err != nil {
			evalErr = err
			return false
		}
		return ok
	})
	if evalErr != nil {
		return nil, evalErr
	}
	return out, nil
}

// FilterEntries returns the entries the predicate matches, in input order.
func FilterEntries(ctx context.Context, p *Predicate, entries []langtree.Entry) ([]langtree.Entry, error) {
	out := make([]langtree.Entry, 0, len(entries))
	for _, e := range entries {
		ok, err := p.Match(ctx, EntryGlobals(e))
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// logObject provides log.info/warn/error methods for Risor scripts.
type logObject struct {
	logger *slog.Logger
}

func (l *logObject) Info(msg string) {
	l.logger.Info(msg, slog.String("source", "predicate"))
}

func (l *logObject) Warn(msg string) {
	l.logger.Warn(msg, slog.String("source", "predicate"))
}

func (l *logObject) Error(msg string) {
	l.logger.Error(msg, slog.String("source", "predicate"))
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}
