package langtree

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"
)

// GrantTree is one class of a Partition: the dictionaries of a grant (or of
// the residual) and the pruned language tree that reaches them.
type GrantTree struct {
	GrantID     ID     `json:"grant_id"`
	Residual    bool   `json:"residual,omitempty"`
	Translation string `json:"translation"`
	// Tree holds the pruned, re-aggregated language forest.
	Tree []*Node `json:"tree"`
	// Dictionaries is the partition class, sorted by key.
	Dictionaries []Key `json:"dictionaries"`
	// Unattached lists members of the class that have no place in the
	// forest because their language is unknown.
	Unattached []Key `json:"unattached,omitempty"`
}

// Partition is the output of PartitionByGrants.
type Partition struct {
	PerGrant    []GrantTree  `json:"per_grant"`
	Residual    GrantTree    `json:"residual"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// liveDictionaries returns the keys of well-formed dictionaries in input
// order, without duplicates. Malformed records are reported by AttachLeaves
// and are silently left out here.
func liveDictionaries(dictionaries []Dictionary) []Key {
	seen := make(map[Key]bool, len(dictionaries))
	keys := make([]Key, 0, len(dictionaries))
	for _, d := range dictionaries {
		if !d.ID.Valid() || d.Translation == "" {
			continue
		}
		k := d.ID.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	return keys
}

// PartitionByGrants splits dictionaries into one class per grant plus a
// residual class of dictionaries no grant claims. Every live dictionary lands
// in exactly one class: a dictionary claimed by several grants belongs to
// the first of them in input order. Participant ids that name no live
// dictionary are dropped.
//
// forest should be the attached forest returned by AttachLeaves; each class
// gets its own pruned copy of it, built concurrently.
func (e *Engine) PartitionByGrants(forest []*Node, dictionaries []Dictionary, grants []Grant) *Partition {
	start := time.Now()
	live := liveDictionaries(dictionaries)
	isLive := make(map[Key]bool, len(live))
	for _, k := range live {
		isLive[k] = true
	}

	var diags []Diagnostic
	owner := make(map[Key]int, len(live))
	members := make([][]Key, len(grants))
	for gi, g := range grants {
		gk := g.ID.Key()
		for _, pid := range g.ParticipantIDs {
			k := pid.Key()
			if !isLive[k] {
				diags = append(diags, structural(ReasonStaleGrantRef, k, "grant %s names a dictionary not in the catalog", gk))
				continue
			}
			if prev, claimed := owner[k]; claimed {
				if prev != gi {
					diags = append(diags, structural(ReasonDuplicateClaim, k, "claimed by grant %s, already in grant %s", gk, grants[prev].ID.Key()))
				}
				continue
			}
			owner[k] = gi
			members[gi] = append(members[gi], k)
		}
	}
	var residual []Key
	for _, k := range live {
		if _, claimed := owner[k]; !claimed {
			residual = append(residual, k)
		}
	}

	p, err := e.buildPartition(forest, grants, members, residual, e.parallelism)
	if err == nil && e.selfCheck {
		err = CheckPartition(p, dictionaries)
	}
	if err != nil {
		var inv *InvariantError
		if errors.As(err, &inv) {
			e.violated(inv)
		}
		if p, err = e.buildPartition(forest, grants, members, residual, 1); err != nil {
			e.logger.Error("serial partition rebuild failed", slog.String("error", err.Error()))
		}
	}
	p.Diagnostics = diags
	e.report("partition_by_grants", diags)
	e.pass("partition_by_grants", start, len(live))
	return p
}

// buildPartition prunes one tree per class, at most limit at a time. Each
// goroutine reads the shared forest and writes only its own slot of classes.
// With self-check enabled each goroutine also verifies its own tree, and the
// first failure is returned alongside the complete partition.
func (e *Engine) buildPartition(forest []*Node, grants []Grant, members [][]Key, residual []Key, limit int) (*Partition, error) {
	inForest := Keys(forest, KindDictionary)
	classes := make([]GrantTree, len(grants)+1)
	for gi, g := range grants {
		classes[gi] = GrantTree{GrantID: g.ID, Translation: g.Translation}
	}
	classes[len(grants)] = GrantTree{Residual: true, Translation: e.residualLabel}

	var g errgroup.Group
	g.SetLimit(max(limit, 1))
	for i := range classes {
		keys := residual
		if i < len(grants) {
			keys = members[i]
		}
		g.Go(func() error {
			set := make(map[Key]bool, len(keys))
			class := &classes[i]
			class.Dictionaries = make([]Key, 0, len(keys))
			for _, k := range keys {
				set[k] = true
				class.Dictionaries = append(class.Dictionaries, k)
				if !inForest[k] {
					class.Unattached = append(class.Unattached, k)
				}
			}
			slices.SortFunc(class.Dictionaries, Key.Compare)
			slices.SortFunc(class.Unattached, Key.Compare)
			class.Tree = Prune(forest, KeepKeys(KindDictionary, set))
			aggregate(class.Tree)
			if e.selfCheck {
				return checkClassTree(class, set)
			}
			return nil
		})
	}
	err := g.Wait()

	return &Partition{
		PerGrant: classes[:len(grants)],
		Residual: classes[len(grants)],
	}, err
}

func (c *GrantTree) label() string {
	if c.Residual {
		return "residual"
	}
	return "grant " + string(c.GrantID.Key())
}

// checkClassTree fails when c's tree holds a dictionary outside class.
func checkClassTree(c *GrantTree, class map[Key]bool) error {
	for k := range Keys(c.Tree, KindDictionary) {
		if !class[k] {
			return &InvariantError{Check: "partition", Key: k, Detail: fmt.Sprintf("tree of %s holds a dictionary outside its class", c.label())}
		}
	}
	return nil
}

// CheckPartition verifies the partition law: every live dictionary appears
// in exactly one class, no class names anything else, and no tree holds a
// dictionary outside its class.
func CheckPartition(p *Partition, dictionaries []Dictionary) error {
	live := liveDictionaries(dictionaries)
	seen := make(map[Key]string, len(live))
	classes := append(slices.Clone(p.PerGrant), p.Residual)
	for i := range classes {
		c := &classes[i]
		class := make(map[Key]bool, len(c.Dictionaries))
		for _, k := range c.Dictionaries {
			if prev, dup := seen[k]; dup {
				return &InvariantError{Check: "partition", Key: k, Detail: fmt.Sprintf("in %s and %s", prev, c.label())}
			}
			seen[k] = c.label()
			class[k] = true
		}
		if err := checkClassTree(c, class); err != nil {
			return err
		}
	}
	for _, k := range live {
		if _, ok := seen[k]; !ok {
			return &InvariantError{Check: "partition", Key: k, Detail: "dictionary in no class"}
		}
	}
	if len(seen) != len(live) {
		return &InvariantError{Check: "partition", Detail: fmt.Sprintf("%d classified, %d live", len(seen), len(live))}
	}
	return nil
}
