package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStableID(t *testing.T) {
	page3 := 3
	page4 := 4

	id := StableID("doc.pdf", &page3, "some chunk text")
	assert.Len(t, id, 24)

	t.Run("Deterministic", func(t *testing.T) {
		again := StableID("doc.pdf", &page3, "some chunk text")
		assert.Equal(t, id, again)
	})

	t.Run("SensitiveToEachField", func(t *testing.T) {
		assert.NotEqual(t, id, StableID("other.pdf", &page3, "some chunk text"))
		assert.NotEqual(t, id, StableID("doc.pdf", &page4, "some chunk text"))
		assert.NotEqual(t, id, StableID("doc.pdf", &page3, "different text"))
		assert.NotEqual(t, id, StableID("doc.pdf", nil, "some chunk text"))
	})

	t.Run("NilPageStable", func(t *testing.T) {
		assert.Equal(t, StableID("a.txt", nil, "x"), StableID("a.txt", nil, "x"))
	})
}

func TestMetadataJSON(t *testing.T) {
	page := 7
	data, err := json.Marshal(Metadata{Source: "a.pdf", Page: &page})
	require.NoError(t, err)
	assert.JSONEq(t, `{"source":"a.pdf","page":7}`, string(data))

	data, err = json.Marshal(Metadata{Source: "b.txt"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"source":"b.txt","page":null}`, string(data))

	var m Metadata
	require.NoError(t, json.Unmarshal([]byte(`{"source":"c.md","page":null}`), &m))
	assert.Equal(t, "c.md", m.Source)
	assert.Nil(t, m.Page)
}
