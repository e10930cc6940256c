package main

import "github.com/jward/langtree"

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLIImport summarizes an import.
type CLIImport struct {
	SnapshotID string         `json:"snapshot_id"`
	Source     string         `json:"source"`
	Database   string         `json:"database"`
	Rows       map[string]int `json:"rows"`
	Anomalies  map[string]int `json:"anomalies"`
}

// CLITree is the full forest view.
type CLITree struct {
	Forest         []*langtree.Node      `json:"forest"`
	Unattached     []*langtree.Node      `json:"unattached,omitempty"`
	ExcludedCycles []langtree.Key        `json:"excluded_cycles"`
	Diagnostics    []langtree.Diagnostic `json:"diagnostics,omitempty"`
}

// CLIGrants is the partition view.
type CLIGrants struct {
	Grants   []langtree.GrantTree `json:"grants"`
	Residual langtree.GrantTree   `json:"residual"`
}

// CLILanguage is a flat language row for letter and suggestion output.
type CLILanguage struct {
	Key          langtree.Key `json:"key"`
	Translation  string       `json:"translation"`
	Dictionaries int          `json:"dictionaries"`
	Corpora      int          `json:"corpora"`
}

// CLILetter is one letter bucket.
type CLILetter struct {
	Letter      string        `json:"letter"`
	Unspecified bool          `json:"unspecified,omitempty"`
	Languages   []CLILanguage `json:"languages"`
}

// CLISearch is a reconstructed search result.
type CLISearch struct {
	Query       string                `json:"query"`
	Empty       bool                  `json:"empty"`
	Matches     int                   `json:"matches"`
	Forest      []*langtree.Node      `json:"forest"`
	Diagnostics []langtree.Diagnostic `json:"diagnostics,omitempty"`
}

func toCLILanguage(n *langtree.Node) CLILanguage {
	return CLILanguage{
		Key:          n.Key,
		Translation:  n.Translation,
		Dictionaries: n.Counts.Dictionaries,
		Corpora:      n.Counts.Corpora,
	}
}

func toCLILanguages(nodes []*langtree.Node) []CLILanguage {
	out := make([]CLILanguage, len(nodes))
	for i, n := range nodes {
		out[i] = toCLILanguage(n)
	}
	return out
}

func toCLILetters(buckets []langtree.LetterBucket[*langtree.Node]) []CLILetter {
	out := make([]CLILetter, len(buckets))
	for i, b := range buckets {
		out[i] = CLILetter{
			Letter:      b.Letter,
			Unspecified: b.Unspecified,
			Languages:   toCLILanguages(b.Items),
		}
	}
	return out
}
