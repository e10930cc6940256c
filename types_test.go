package langtree

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Language timestamps
// =============================================================================

func TestLanguage_CreatedAtForms(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{"rfc3339", `"2015-01-01T00:00:00Z"`, epoch},
		{"unix seconds", `1420070400`, epoch},
		{"fractional seconds", `1420070400.5`, epoch.Add(500 * time.Millisecond)},
		{"null", `null`, time.Time{}},
		{"empty string", `""`, time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var l Language
			require.NoError(t, json.Unmarshal([]byte(`{"id":[1,1],"translation":"Uralic","created_at":`+tt.in+`}`), &l))
			assert.True(t, tt.want.Equal(l.CreatedAt), "got %s", l.CreatedAt)
			assert.Equal(t, id(1, 1), l.ID)
			assert.Equal(t, "Uralic", l.Translation)
		})
	}
}

func TestLanguage_CreatedAtMissing(t *testing.T) {
	t.Parallel()
	var l Language
	require.NoError(t, json.Unmarshal([]byte(`{"id":[1,1],"parent_id":[2,1],"translation":"Finnic"}`), &l))
	assert.True(t, l.CreatedAt.IsZero())
	require.NotNil(t, l.ParentID)
	assert.Equal(t, id(2, 1), *l.ParentID)
}

func TestLanguage_CreatedAtMalformed(t *testing.T) {
	t.Parallel()
	for _, in := range []string{`true`, `"yesterday"`, `[1]`} {
		var l Language
		assert.Error(t, json.Unmarshal([]byte(`{"id":[1,1],"created_at":`+in+`}`), &l), "input %s", in)
	}
}

func TestLanguage_JSONRoundTrip(t *testing.T) {
	t.Parallel()
	want := Language{ID: id(3, 1), ParentID: ptr(id(1, 1)), Translation: "Veps", CreatedAt: epoch.Add(time.Hour)}
	data, err := json.Marshal(want)
	require.NoError(t, err)
	var got Language
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, *want.ParentID, *got.ParentID)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
}

// =============================================================================
// Grant participants
// =============================================================================

func TestGrant_ParticipantForms(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want []ID
	}{
		{"flat", `{"id":[5,1],"participant":[[10,1],[11,1]]}`, []ID{id(10, 1), id(11, 1)}},
		{"nested", `{"id":[5,1],"additional_metadata":{"participant":[[10,1],"11/1"]}}`, []ID{id(10, 1), id(11, 1)}},
		{"both prefers flat", `{"id":[5,1],"participant":[[10,1]],"additional_metadata":{"participant":[[12,1]]}}`, []ID{id(10, 1)}},
		{"nested without participant", `{"id":[5,1],"additional_metadata":{}}`, nil},
		{"neither", `{"id":[5,1],"translation":"Empty"}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var g Grant
			require.NoError(t, json.Unmarshal([]byte(tt.in), &g))
			assert.Equal(t, id(5, 1), g.ID)
			assert.Equal(t, tt.want, g.ParticipantIDs)
		})
	}
}

func TestGrant_MalformedParticipant(t *testing.T) {
	t.Parallel()
	var g Grant
	assert.Error(t, json.Unmarshal([]byte(`{"id":[5,1],"additional_metadata":{"participant":[[1]]}}`), &g))
}

func TestSnapshot_NestedParticipantsPartition(t *testing.T) {
	t.Parallel()
	var snap Snapshot
	require.NoError(t, json.Unmarshal([]byte(`{
		"language_tree": [{"id":[1,1],"parent_id":null,"translation":"Uralic","created_at":1420070400}],
		"dictionaries": [
			{"id":[10,1],"parent_id":[1,1],"translation":"Veps","category":0},
			{"id":[11,1],"parent_id":[1,1],"translation":"Skolt","category":0}
		],
		"grants": [{"id":[5,1],"translation":"Grant","additional_metadata":{"participant":[[10,1]]}}]
	}`), &snap))

	v := quietEngine().Browse(snap)
	require.Len(t, v.Partition.PerGrant, 1)
	assert.Equal(t, []Key{"10/1"}, v.Partition.PerGrant[0].Dictionaries)
	assert.Equal(t, []Key{"11/1"}, v.Partition.Residual.Dictionaries)
}
