package langtree

import (
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/text/language"
)

// ResidualTranslation labels the residual tree of dictionaries claimed by no grant.
const ResidualTranslation = "Individual work"

// Observer receives telemetry events from the Engine. Implementations must be
// safe for concurrent use because grant partitioning runs in parallel.
type Observer interface {
	// ObserveAnomaly is called once per absorbed diagnostic.
	ObserveAnomaly(kind, reason string)
	// ObserveInvariant is called when a self-check fails.
	ObserveInvariant(check string)
	// ObservePass is called after each engine operation.
	ObservePass(op string, elapsed time.Duration, nodes int)
}

type nopObserver struct{}

func (nopObserver) ObserveAnomaly(string, string)          {}
func (nopObserver) ObserveInvariant(string)                {}
func (nopObserver) ObservePass(string, time.Duration, int) {}

// Engine derives browse views from catalog snapshots. An Engine holds only
// configuration; every method is a pure function of its arguments and is
// safe to call from multiple goroutines.
type Engine struct {
	locale        language.Tag
	logger        *slog.Logger
	observer      Observer
	parallelism   int
	selfCheck     bool
	residualLabel string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLocale sets the locale used for translation collation and letter casing.
func WithLocale(tag language.Tag) Option {
	return func(e *Engine) {
		e.locale = tag
	}
}

// WithLogger sets the logger diagnostics are reported to.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithObserver attaches a telemetry observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithParallelism bounds the number of grants pruned concurrently. Values
// below 1 mean serial.
func WithParallelism(n int) Option {
	return func(e *Engine) {
		e.parallelism = max(n, 1)
	}
}

// WithSelfCheck enables invariant verification after aggregation and
// partitioning. A failed check is logged and the pass is recomputed.
func WithSelfCheck(enabled bool) Option {
	return func(e *Engine) {
		e.selfCheck = enabled
	}
}

// WithResidualLabel overrides ResidualTranslation.
func WithResidualLabel(label string) Option {
	return func(e *Engine) {
		if label != "" {
			e.residualLabel = label
		}
	}
}

// New creates an Engine. The default locale is language.Und (root collation).
func New(opts ...Option) *Engine {
	e := &Engine{
		locale:        language.Und,
		logger:        slog.Default(),
		observer:      nopObserver{},
		parallelism:   runtime.NumCPU(),
		residualLabel: ResidualTranslation,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Locale returns the configured locale.
func (e *Engine) Locale() language.Tag { return e.locale }

// report logs and counts each diagnostic.
func (e *Engine) report(op string, diags []Diagnostic) {
	for _, d := range diags {
		e.logger.Warn("catalog anomaly",
			slog.String("op", op),
			slog.String("kind", d.Kind.String()),
			slog.String("reason", string(d.Reason)),
			slog.String("key", string(d.Key)),
			slog.String("detail", d.Detail),
		)
		e.observer.ObserveAnomaly(d.Kind.String(), string(d.Reason))
	}
}

// violated logs and counts a failed self-check.
func (e *Engine) violated(err *InvariantError) {
	e.logger.Error("invariant violation",
		slog.String("check", err.Check),
		slog.String("key", string(err.Key)),
		slog.String("detail", err.Detail),
	)
	e.observer.ObserveInvariant(err.Check)
}

func (e *Engine) pass(op string, start time.Time, nodes int) {
	elapsed := time.Since(start)
	e.observer.ObservePass(op, elapsed, nodes)
	e.logger.Debug("pass complete",
		slog.String("op", op),
		slog.Int("nodes", nodes),
		slog.Duration("elapsed", elapsed),
	)
}

var defaultEngine = New()

// BuildForest runs Engine.BuildForest on a default Engine.
func BuildForest(languages []Language) *ForestResult {
	return defaultEngine.BuildForest(languages)
}

// AttachLeaves runs Engine.AttachLeaves on a default Engine.
func AttachLeaves(forest []*Node, dictionaries []Dictionary) *AttachResult {
	return defaultEngine.AttachLeaves(forest, dictionaries)
}

// AggregateCounts runs Engine.AggregateCounts on a default Engine.
func AggregateCounts(forest []*Node) []*Node {
	return defaultEngine.AggregateCounts(forest)
}

// PartitionByGrants runs Engine.PartitionByGrants on a default Engine.
func PartitionByGrants(forest []*Node, dictionaries []Dictionary, grants []Grant) *Partition {
	return defaultEngine.PartitionByGrants(forest, dictionaries, grants)
}

// ReconstructPartial runs Engine.ReconstructPartial on a default Engine.
func ReconstructPartial(matches []Match, languages []Language, dictionaries []Dictionary) *PartialResult {
	return defaultEngine.ReconstructPartial(matches, languages, dictionaries)
}
