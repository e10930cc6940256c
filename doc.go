// Package langtree assembles the browse views of a linguistic-resource
// catalog: a forest of languages linked by parent ids, the dictionaries and
// perspectives attached to them, per-language dictionary and corpus counts,
// grant-by-grant partitions of the dictionaries, an alphabetical index of
// languages and the sparse trees that surround search hits.
//
// # Pipeline
//
// Every view is a pure function of one catalog [Snapshot]:
//
//  1. [Engine.BuildForest] links languages by parent id, excluding nodes
//     that sit on parent cycles.
//  2. [Engine.AttachLeaves] hangs dictionaries under their languages and
//     perspectives under their dictionaries.
//  3. [Engine.AggregateCounts] fills [Counts] bottom-up.
//  4. [Engine.PartitionByGrants] splits dictionaries into one class per
//     grant plus a residual class, each with its own pruned tree.
//  5. [Engine.LanguageIndex] buckets languages by first letter.
//
// [Engine.Browse] runs all of them. [Engine.ReconstructPartial] builds the
// minimal tree connecting a set of lexical-entry matches to their roots.
//
// # Usage
//
//	e := langtree.New(langtree.WithLocale(language.Russian))
//	view := e.Browse(snap)
//	for _, d := range view.Diagnostics {
//		log.Println(d)
//	}
//
// Malformed or inconsistent catalog records never fail a pass. They are
// skipped or re-rooted and reported as [Diagnostic] values, logged through
// the configured slog.Logger and counted by the configured [Observer].
//
// Identifiers are composite ([ID]); use [Key] wherever one must be hashed,
// compared or printed.
package langtree
