package langtree

// View is every derived structure for one snapshot. A View is built whole
// from a Snapshot and never updated in place; rebuild it when the catalog
// changes.
type View struct {
	// Forest is the attached, aggregated language forest.
	Forest []*Node `json:"forest"`
	// Unattached holds dictionaries whose language is unknown.
	Unattached     []*Node               `json:"unattached"`
	ExcludedCycles []Key                 `json:"excluded_cycles"`
	Letters        []LetterBucket[*Node] `json:"letters"`
	Partition      *Partition            `json:"partition"`
	// Diagnostics is the union of every stage's diagnostics, in stage order.
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// Browse runs the full pipeline over snap: build the language forest, attach
// dictionaries, aggregate counts, index languages alphabetically and
// partition dictionaries by grant.
func (e *Engine) Browse(snap Snapshot) *View {
	fr := e.BuildForest(snap.Languages)
	ar := e.AttachLeaves(fr.Forest, snap.Dictionaries)
	forest := e.AggregateCounts(ar.Forest)
	part := e.PartitionByGrants(forest, snap.Dictionaries, snap.Grants)

	v := &View{
		Forest:         forest,
		Unattached:     ar.Unattached,
		ExcludedCycles: fr.ExcludedCycles,
		Letters:        e.LanguageIndex(forest),
		Partition:      part,
	}
	v.Diagnostics = append(v.Diagnostics, fr.Diagnostics...)
	v.Diagnostics = append(v.Diagnostics, ar.Diagnostics...)
	v.Diagnostics = append(v.Diagnostics, part.Diagnostics...)
	return v
}

// Browse runs Engine.Browse on a default Engine.
func Browse(snap Snapshot) *View {
	return defaultEngine.Browse(snap)
}
