package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"

	"github.com/jward/langtree"
	"github.com/jward/langtree/internal/runtime"
)

// --- import ---

var importCmd = &cobra.Command{
	Use:   "import <snapshot.json>",
	Short: "Replace the stored catalog with a JSON snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	src, err := filepath.Abs(args[0])
	if err != nil {
		return outputError("import", fmt.Errorf("resolving path %q: %w", args[0], err))
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return outputError("import", fmt.Errorf("reading snapshot: %w", err))
	}
	var snap langtree.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return outputError("import", fmt.Errorf("decoding snapshot %s: %w", src, err))
	}

	s, path, err := createStore()
	if err != nil {
		return outputError("import", err)
	}
	defer s.Close()

	snapID, err := s.ReplaceSnapshot(&snap, src)
	if err != nil {
		return outputError("import", err)
	}
	info, err := s.Info()
	if err != nil {
		return outputError("import", err)
	}

	view := newEngine().Browse(snap)
	anomalies := make(map[string]int)
	for reason, n := range langtree.CountReasons(view.Diagnostics) {
		anomalies[string(reason)] = n
	}

	return outputResult(CLIResult{
		Command: "import",
		Results: CLIImport{
			SnapshotID: snapID,
			Source:     src,
			Database:   path,
			Rows:       info.Rows,
			Anomalies:  anomalies,
		},
	})
}

// --- tree ---

var (
	flagUnattached bool
	flagWhere      string
	flagSelect     string
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the language forest with dictionary and corpus counts",
	Args:  cobra.NoArgs,
	RunE:  runTree,
}

func init() {
	treeCmd.Flags().BoolVar(&flagUnattached, "unattached", false, "include dictionaries whose language is unknown")
	treeCmd.Flags().StringVar(&flagWhere, "where", "", "Risor expression selecting dictionaries (e.g. 'status == \"Published\"')")
	treeCmd.Flags().StringVar(&flagSelect, "select", "", "comma-separated dictionary ids to mark as selected")
}

func runTree(cmd *cobra.Command, args []string) error {
	snap, err := loadSnapshot()
	if err != nil {
		return outputError("tree", err)
	}
	e := newEngine()
	view := e.Browse(*snap)

	forest := view.Forest
	if flagWhere != "" {
		pred, err := runtime.NewPredicate(flagWhere, runtime.WithLogger(logger))
		if err != nil {
			return outputError("tree", err)
		}
		forest, err = runtime.FilterForest(context.Background(), pred, forest)
		if err != nil {
			return outputError("tree", err)
		}
		forest = e.AggregateCounts(forest)
	}
	if flagSelect != "" {
		ids, err := parseKeys(flagSelect)
		if err != nil {
			return outputError("tree", err)
		}
		var sel langtree.Selection
		for _, id := range ids {
			sel.Toggle(id)
		}
		forest = langtree.ApplySelection(forest, &sel)
	}

	result := CLITree{
		Forest:         forest,
		ExcludedCycles: view.ExcludedCycles,
		Diagnostics:    view.Diagnostics,
	}
	if flagUnattached {
		result.Unattached = view.Unattached
	}
	return outputResult(CLIResult{Command: "tree", Results: result})
}

// --- grants ---

var grantsCmd = &cobra.Command{
	Use:   "grants",
	Short: "Print one pruned tree per grant plus the residual tree",
	Args:  cobra.NoArgs,
	RunE:  runGrants,
}

func runGrants(cmd *cobra.Command, args []string) error {
	snap, err := loadSnapshot()
	if err != nil {
		return outputError("grants", err)
	}
	view := newEngine().Browse(*snap)
	return outputResult(CLIResult{
		Command: "grants",
		Results: CLIGrants{
			Grants:   view.Partition.PerGrant,
			Residual: view.Partition.Residual,
		},
	})
}

// --- letters ---

var (
	flagPrefix string
	flagLimit  int
)

var lettersCmd = &cobra.Command{
	Use:   "letters",
	Short: "Print the alphabetical index of languages",
	Args:  cobra.NoArgs,
	RunE:  runLetters,
}

func init() {
	lettersCmd.Flags().StringVar(&flagPrefix, "prefix", "", "list languages starting with this prefix instead of the index")
	lettersCmd.Flags().IntVar(&flagLimit, "limit", 20, "maximum suggestions for --prefix (0 for no limit)")
}

func runLetters(cmd *cobra.Command, args []string) error {
	snap, err := loadSnapshot()
	if err != nil {
		return outputError("letters", err)
	}
	e := newEngine()
	view := e.Browse(*snap)

	if cmd.Flags().Changed("prefix") {
		langs := toCLILanguages(e.Suggest(view.Forest, flagPrefix, flagLimit))
		count := len(langs)
		return outputResult(CLIResult{Command: "letters", Results: langs, TotalCount: &count})
	}
	count := 0
	for _, b := range view.Letters {
		count += len(b.Items)
	}
	return outputResult(CLIResult{Command: "letters", Results: toCLILetters(view.Letters), TotalCount: &count})
}

// --- search ---

var (
	flagSearchWhere string
	flagSearchLimit int
	flagSearchIn    string
)

var searchCmd = &cobra.Command{
	Use:   "search [text]",
	Short: "Find lexical entries and show the tree around them",
	Long:  "Search matches entry translations containing text. With --in, only entries of the listed perspectives are considered and text may be omitted.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&flagSearchWhere, "where", "", "Risor expression filtering matched entries")
	searchCmd.Flags().IntVar(&flagSearchLimit, "limit", 100, "maximum entries to show after --where (0 for no limit)")
	searchCmd.Flags().StringVar(&flagSearchIn, "in", "", "comma-separated perspective ids to search within")
}

func runSearch(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("search", err)
	}
	defer s.Close()

	var query string
	if len(args) == 1 {
		query = args[0]
	}
	if query == "" && flagSearchIn == "" {
		return outputError("search", fmt.Errorf("search needs text or --in"))
	}

	// The cap applies after --where so filtered-out rows never use up the limit.
	var entries []langtree.Entry
	if flagSearchIn != "" {
		ids, err := parseKeys(flagSearchIn)
		if err != nil {
			return outputError("search", err)
		}
		if entries, err = s.EntriesInPerspectives(ids); err != nil {
			return outputError("search", err)
		}
		entries = containing(entries, query, 0)
	} else if entries, err = s.SearchEntries(query, 0); err != nil {
		return outputError("search", err)
	}
	if flagSearchWhere != "" {
		pred, err := runtime.NewPredicate(flagSearchWhere, runtime.WithLogger(logger))
		if err != nil {
			return outputError("search", err)
		}
		entries, err = runtime.FilterEntries(context.Background(), pred, entries)
		if err != nil {
			return outputError("search", err)
		}
	}
	total := len(entries)
	if flagSearchLimit > 0 && len(entries) > flagSearchLimit {
		entries = entries[:flagSearchLimit]
	}
	langs, err := s.Languages()
	if err != nil {
		return outputError("search", err)
	}
	dicts, err := s.Dictionaries()
	if err != nil {
		return outputError("search", err)
	}

	res := newEngine().ReconstructPartial(langtree.EntryMatches(entries, dicts), langs, dicts)
	matches := len(langtree.MatchesOf(res.Forest))
	return outputResult(CLIResult{
		Command:    "search",
		TotalCount: &total,
		Results:    CLISearch{
			Query:       query,
			Empty:       res.Empty(),
			Matches:     matches,
			Forest:      res.Forest,
			Diagnostics: res.Diagnostics,
		},
	})
}

// containing keeps the entries whose translation contains text, ignoring
// case, up to limit (below 1 means no limit).
func containing(entries []langtree.Entry, text string, limit int) []langtree.Entry {
	fold := cases.Fold()
	want := fold.String(text)
	out := make([]langtree.Entry, 0, len(entries))
	for _, e := range entries {
		if limit > 0 && len(out) == limit {
			break
		}
		if strings.Contains(fold.String(e.Translation), want) {
			out = append(out, e)
		}
	}
	return out
}

// --- info ---

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print the stored snapshot id, import time and row counts",
	Args:  cobra.NoArgs,
	RunE:  runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("info", err)
	}
	defer s.Close()
	info, err := s.Info()
	if err != nil {
		return outputError("info", err)
	}
	return outputResult(CLIResult{Command: "info", Results: info})
}
