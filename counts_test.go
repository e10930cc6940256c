package langtree

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// randomCatalog returns an acyclic catalog of nLang languages and nDict
// dictionaries with random parents and categories. Some dictionaries point at
// languages that do not exist.
func randomCatalog(rng *rand.Rand, nLang, nDict int) ([]Language, []Dictionary) {
	langs := randomLanguages(rng, nLang)
	dicts := make([]Dictionary, 0, nDict)
	for i := range nDict {
		parent := int64(1 + rng.IntN(nLang+nLang/10+1))
		d := dict(int64(100_000+i), parent, "dict", Category(rng.IntN(3)))
		if rng.IntN(4) == 0 {
			d.Perspectives = []Perspective{{ID: id(int64(200_000+i), 1), Translation: "Entries"}}
		}
		dicts = append(dicts, d)
	}
	return langs, dicts
}

// subtreeCounts counts dictionary leaves beneath n by brute force.
func subtreeCounts(n *Node) Counts {
	var c Counts
	Walk([]*Node{n}, func(m *Node, _ int) bool {
		if m.Kind != KindDictionary {
			return true
		}
		switch m.Category {
		case CategoryDictionary:
			c.Dictionaries++
		case CategoryCorpus:
			c.Corpora++
		}
		return false
	})
	return c
}

// =============================================================================
// Sum rule
// =============================================================================

func TestAggregateCounts_RootChildScenario(t *testing.T) {
	t.Parallel()
	e := quietEngine(WithSelfCheck(true))
	fr := e.BuildForest([]Language{
		{ID: id(1, 1), Translation: "Root"},
		{ID: id(2, 1), ParentID: ptr(id(1, 1)), Translation: "Child"},
	})
	ar := e.AttachLeaves(fr.Forest, []Dictionary{
		{ID: id(10, 1), ParentID: ptr(id(2, 1)), Translation: "D1", Category: CategoryDictionary},
	})
	forest := e.AggregateCounts(ar.Forest)

	require.Len(t, forest, 1)
	assert.Equal(t, Counts{Dictionaries: 1, Corpora: 0}, forest[0].Counts)
	require.Len(t, forest[0].Children, 1)
	assert.Equal(t, Counts{Dictionaries: 1, Corpora: 0}, forest[0].Children[0].Counts)
	assert.Equal(t, Key("10/1"), forest[0].Children[0].Children[0].Key)
}

func TestAggregateCounts_RandomTrees(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewPCG(42, 42))
	e := quietEngine()
	for trial := range 40 {
		langs, dicts := randomCatalog(rng, 1+rng.IntN(50), rng.IntN(120))
		ar := e.AttachLeaves(e.BuildForest(langs).Forest, dicts)
		forest := e.AggregateCounts(ar.Forest)

		require.NoError(t, VerifyCounts(forest), "trial %d", trial)
		Walk(forest, func(n *Node, _ int) bool {
			if n.Kind == KindLanguage {
				assert.Equal(t, subtreeCounts(n), n.Counts, "trial %d node %s", trial, n.Key)
			}
			return true
		})
	}
}

func TestAggregateCounts_UnknownCategoryNotCounted(t *testing.T) {
	t.Parallel()
	e := quietEngine()
	ar := e.AttachLeaves(e.BuildForest([]Language{lang(1, 0, "Root")}).Forest, []Dictionary{
		dict(10, 1, "Odd", Category(7)),
		dict(11, 1, "Corpus", CategoryCorpus),
	})
	forest := e.AggregateCounts(ar.Forest)
	assert.Equal(t, Counts{Corpora: 1}, forest[0].Counts)
}

func TestAggregateCounts_Idempotent(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewPCG(9, 9))
	e := quietEngine()
	langs, dicts := randomCatalog(rng, 30, 80)
	ar := e.AttachLeaves(e.BuildForest(langs).Forest, dicts)

	once := e.AggregateCounts(ar.Forest)
	twice := e.AggregateCounts(once)
	assert.Equal(t, once, twice)
	assert.Equal(t, outline(once), outline(twice))
}

func TestAggregateCounts_DoesNotMutateInput(t *testing.T) {
	t.Parallel()
	e := quietEngine()
	ar := e.AttachLeaves(e.BuildForest([]Language{lang(1, 0, "Root")}).Forest, []Dictionary{
		dict(10, 1, "D", CategoryDictionary),
	})
	_ = e.AggregateCounts(ar.Forest)
	assert.Equal(t, Counts{}, ar.Forest[0].Counts)
}

func TestAggregateCounts_DeepHierarchy(t *testing.T) {
	t.Parallel()
	const depth = 50_000
	langs := make([]Language, 0, depth)
	for i := int64(1); i <= depth; i++ {
		langs = append(langs, lang(i, i-1, "Level"))
	}
	e := quietEngine()
	ar := e.AttachLeaves(e.BuildForest(langs).Forest, []Dictionary{
		dict(1_000_000, depth, "Bottom", CategoryCorpus),
	})
	forest := e.AggregateCounts(ar.Forest)
	require.Len(t, forest, 1)
	assert.Equal(t, Counts{Corpora: 1}, forest[0].Counts)
}

// =============================================================================
// Self-check
// =============================================================================

func TestVerifyCounts_DetectsMismatch(t *testing.T) {
	t.Parallel()
	e := quietEngine()
	ar := e.AttachLeaves(e.BuildForest([]Language{lang(1, 0, "Root"), lang(2, 1, "Child")}).Forest, []Dictionary{
		dict(10, 2, "D", CategoryDictionary),
	})
	forest := e.AggregateCounts(ar.Forest)
	forest[0].Children[0].Counts.Corpora = 3

	err := VerifyCounts(forest)
	var inv *InvariantError
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, "counts", inv.Check)
	assert.Equal(t, Key("1/1"), inv.Key)
	assert.Contains(t, inv.Error(), "invariant counts violated at 1/1")
}

func TestAggregateCounts_SelfCheckPasses(t *testing.T) {
	t.Parallel()
	obs := newRecordingObserver()
	e := quietEngine(WithSelfCheck(true), WithObserver(obs))
	rng := rand.New(rand.NewPCG(1, 1))
	langs, dicts := randomCatalog(rng, 20, 40)
	e.AggregateCounts(e.AttachLeaves(e.BuildForest(langs).Forest, dicts).Forest)
	assert.Empty(t, obs.invariants)
}
