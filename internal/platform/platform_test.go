package platform

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doc(id string, created time.Time, data map[string]any) *Document {
	return &Document{ID: id, DatabaseID: "db", CollectionID: "appointments", CreatedAt: created, UpdatedAt: created, Data: data}
}

func TestApplyFiltersOrdersAndLimits(t *testing.T) {
	base := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	docs := []*Document{
		doc("a", base, map[string]any{"userId": "u1"}),
		doc("b", base.Add(time.Hour), map[string]any{"userId": "u2"}),
		doc("c", base.Add(2*time.Hour), map[string]any{"userId": "u1"}),
		doc("d", base.Add(3*time.Hour), map[string]any{"userId": "u3"}),
	}

	list, err := Apply(docs, []Query{Equal("userId", "u1", "u3"), OrderDesc(AttrCreatedAt), Limit(2)})
	require.NoError(t, err)
	assert.Equal(t, 3, list.Total)
	require.Len(t, list.Documents, 2)
	assert.Equal(t, "d", list.Documents[0].ID)
	assert.Equal(t, "c", list.Documents[1].ID)
}

func TestApplyEqualOnID(t *testing.T) {
	now := time.Now()
	docs := []*Document{doc("a", now, nil), doc("b", now, nil)}
	list, err := Apply(docs, []Query{Equal(AttrID, "b")})
	require.NoError(t, err)
	require.Len(t, list.Documents, 1)
	assert.Equal(t, "b", list.Documents[0].ID)
}

func TestApplyRejectsBadField(t *testing.T) {
	_, err := Apply(nil, []Query{Equal("data'); drop", "x")})
	assert.Error(t, err)
	_, err = Apply(nil, []Query{{Kind: "between"}})
	assert.Error(t, err)
}

func TestDocumentJSONRoundTrip(t *testing.T) {
	created := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	d := doc("appt-1", created, map[string]any{"status": "pending", "$id": "ignored"})

	data, err := json.Marshal(d)
	require.NoError(t, err)

	var flat map[string]any
	require.NoError(t, json.Unmarshal(data, &flat))
	assert.Equal(t, "appt-1", flat["$id"])
	assert.Equal(t, "pending", flat["status"])
	assert.Equal(t, "2026-10-15T12:00:00Z", flat["$createdAt"])

	var back Document
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "appt-1", back.ID)
	assert.True(t, back.CreatedAt.Equal(created))
	assert.Equal(t, map[string]any{"status": "pending"}, back.Data)
}

func TestStripSystemAttrs(t *testing.T) {
	out := StripSystemAttrs(map[string]any{"$id": "x", "$createdAt": "y", "name": "Jane"})
	assert.Equal(t, map[string]any{"name": "Jane"}, out)
}

func TestUniqueID(t *testing.T) {
	a, b := UniqueID(), UniqueID()
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
