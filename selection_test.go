package langtree

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelection_Toggle(t *testing.T) {
	t.Parallel()
	var sel Selection
	assert.Zero(t, sel.Len())
	assert.False(t, sel.Has(id(10, 1)))

	assert.True(t, sel.Toggle(id(10, 1)))
	assert.True(t, sel.Toggle(id(2, 1)))
	assert.True(t, sel.Has(id(10, 1)))
	assert.Equal(t, []ID{id(2, 1), id(10, 1)}, sel.IDs())

	assert.False(t, sel.Toggle(id(10, 1)))
	assert.False(t, sel.Has(id(10, 1)))
	assert.Equal(t, 1, sel.Len())

	sel.Reset()
	assert.Empty(t, sel.IDs())
	assert.True(t, sel.Toggle(id(2, 1)))
}

func TestSelection_Concurrent(t *testing.T) {
	t.Parallel()
	var sel Selection
	var wg sync.WaitGroup
	for i := range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sel.Toggle(id(int64(i), 1))
			_ = sel.Has(id(int64(i), 1))
		}()
	}
	wg.Wait()
	assert.Equal(t, 64, sel.Len())
}

func TestApplySelection(t *testing.T) {
	t.Parallel()
	e := quietEngine()
	d := dict(10, 1, "A", CategoryDictionary)
	d.Perspectives = []Perspective{{ID: id(10, 1), Translation: "Same id as its dictionary"}}
	forest := attached(e, []Language{lang(1, 0, "Root")}, []Dictionary{d, dict(11, 1, "B", CategoryCorpus)})

	var sel Selection
	sel.Toggle(id(10, 1))
	sel.Toggle(id(1, 1))
	sel.Toggle(id(404, 1))
	got := ApplySelection(forest, &sel)

	assert.True(t, find(got, KindDictionary, "10/1").Selected)
	assert.False(t, find(got, KindDictionary, "11/1").Selected)
	assert.False(t, find(got, KindPerspective, "10/1").Selected, "only dictionaries are selectable")
	assert.False(t, got[0].Selected)

	// The source forest is not touched.
	assert.False(t, find(forest, KindDictionary, "10/1").Selected)

	cleared := ApplySelection(got, nil)
	require.NotNil(t, find(cleared, KindDictionary, "10/1"))
	assert.False(t, find(cleared, KindDictionary, "10/1").Selected)
}
