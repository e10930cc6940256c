package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jward/langtree"
	"github.com/jward/langtree/internal/store"
)

func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(result)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	result := CLIResult{
		Command: command,
		Error:   err.Error(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	return err
}

// nodeLine renders one node of an indented tree.
func nodeLine(n *langtree.Node) string {
	mark := ""
	if n.Selected {
		mark = "[x] "
	}
	switch n.Kind {
	case langtree.KindLanguage:
		return fmt.Sprintf("%s [%s] (%d dictionaries, %d corpora)", n.Translation, n.Key, n.Counts.Dictionaries, n.Counts.Corpora)
	case langtree.KindDictionary:
		status := ""
		if n.Metadata.Status != "" {
			status = ", " + n.Metadata.Status
		}
		return fmt.Sprintf("%s* %s [%s] (%s%s)", mark, n.Translation, n.Key, n.Category, status)
	case langtree.KindPerspective:
		return fmt.Sprintf("- %s [%s]%s", n.Translation, n.Key, permissionFlags(n.Permissions))
	case langtree.KindEntry:
		return fmt.Sprintf(". %s [%s]", n.Translation, n.Key)
	}
	return fmt.Sprintf("? %s [%s]", n.Translation, n.Key)
}

func permissionFlags(p langtree.Permissions) string {
	var flags []string
	if p.View {
		flags = append(flags, "view")
	}
	if p.Edit {
		flags = append(flags, "edit")
	}
	if p.Publish {
		flags = append(flags, "publish")
	}
	if p.Limited {
		flags = append(flags, "limited")
	}
	if len(flags) == 0 {
		return ""
	}
	return " {" + strings.Join(flags, ",") + "}"
}

// formatForestText prints forest as an indented outline.
func formatForestText(w io.Writer, forest []*langtree.Node, indent string) {
	langtree.Walk(forest, func(n *langtree.Node, depth int) bool {
		fmt.Fprintf(w, "%s%s%s\n", indent, strings.Repeat("  ", depth), nodeLine(n))
		return true
	})
}

func formatTreeText(w io.Writer, t CLITree) {
	formatForestText(w, t.Forest, "")
	if len(t.Unattached) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Unattached:")
		formatForestText(w, t.Unattached, "  ")
	}
	if len(t.ExcludedCycles) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Excluded (cycles): %s\n", joinKeys(t.ExcludedCycles))
	}
	if len(t.Diagnostics) > 0 {
		fmt.Fprintf(os.Stderr, "%d catalog anomalies\n", len(t.Diagnostics))
	}
}

func formatGrantsText(w io.Writer, g CLIGrants) {
	classes := append(slices.Clone(g.Grants), g.Residual)
	for i, c := range classes {
		if i > 0 {
			fmt.Fprintln(w)
		}
		header := c.Translation
		if !c.Residual {
			header = fmt.Sprintf("%s [%s]", c.Translation, c.GrantID.Key())
		}
		fmt.Fprintf(w, "%s: %d dictionaries\n", header, len(c.Dictionaries))
		formatForestText(w, c.Tree, "  ")
		if len(c.Unattached) > 0 {
			fmt.Fprintf(w, "  unattached: %s\n", joinKeys(c.Unattached))
		}
	}
}

func formatLanguagesText(w io.Writer, langs []CLILanguage) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tLANGUAGE\tDICTIONARIES\tCORPORA")
	for _, l := range langs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", l.Key, l.Translation, l.Dictionaries, l.Corpora)
	}
	tw.Flush()
}

func formatLettersText(w io.Writer, letters []CLILetter) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LETTER\tCOUNT\tLANGUAGES")
	for _, l := range letters {
		letter := l.Letter
		if l.Unspecified {
			letter = "(none)"
		}
		names := make([]string, len(l.Languages))
		for i, lang := range l.Languages {
			names[i] = lang.Translation
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\n", letter, len(l.Languages), strings.Join(names, ", "))
	}
	tw.Flush()
}

func formatSearchText(w io.Writer, s CLISearch) {
	if s.Empty {
		fmt.Fprintf(w, "No results for %q\n", s.Query)
		return
	}
	formatForestText(w, s.Forest, "")
	fmt.Fprintf(w, "\n%d matching entries\n", s.Matches)
}

func formatImportText(w io.Writer, imp CLIImport) {
	fmt.Fprintf(w, "Imported %s\n", imp.Source)
	fmt.Fprintf(w, "Snapshot: %s\n", imp.SnapshotID)
	fmt.Fprintf(w, "Database: %s\n", imp.Database)
	formatCountsText(w, "Rows", imp.Rows)
	formatCountsText(w, "Anomalies", imp.Anomalies)
}

func formatInfoText(w io.Writer, info *store.Info) {
	if info.Empty() {
		fmt.Fprintln(w, "No snapshot imported")
		return
	}
	fmt.Fprintf(w, "Snapshot: %s\n", info.SnapshotID)
	fmt.Fprintf(w, "Imported: %s\n", info.ImportedAt.Format(time.RFC3339))
	if info.Source != "" {
		fmt.Fprintf(w, "Source: %s\n", info.Source)
	}
	formatCountsText(w, "Rows", info.Rows)
}

func formatCountsText(w io.Writer, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", title)
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s: %d\n", name, counts[name])
	}
}

func joinKeys(keys []langtree.Key) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = string(k)
	}
	return strings.Join(parts, ", ")
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type. It writes to os.Stdout.
func outputResultText(result CLIResult) error {
	w := io.Writer(os.Stdout)

	switch v := result.Results.(type) {
	case CLIImport:
		formatImportText(w, v)
	case CLITree:
		formatTreeText(w, v)
	case CLIGrants:
		formatGrantsText(w, v)
	case []CLILanguage:
		formatLanguagesText(w, v)
	case []CLILetter:
		formatLettersText(w, v)
	case CLISearch:
		formatSearchText(w, v)
	case *store.Info:
		formatInfoText(w, v)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
