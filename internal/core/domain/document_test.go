package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkID(t *testing.T) {
	tests := []struct {
		docID    string
		index    int
		expected string
	}{
		{"07_kidney", 0, "07_kidney:chunk_000"},
		{"07_kidney", 3, "07_kidney:chunk_003"},
		{"doc", 42, "doc:chunk_042"},
		{"doc", 1234, "doc:chunk_1234"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, ChunkID(tt.docID, tt.index))
		})
	}
}

func TestContentHash(t *testing.T) {
	t.Run("is 16 hex characters", func(t *testing.T) {
		h := ContentHash("tacrolimus trough levels")
		assert.Len(t, h, 16)
		assert.Regexp(t, `^[0-9a-f]{16}$`, h)
	})

	t.Run("is deterministic", func(t *testing.T) {
		assert.Equal(t, ContentHash("same text"), ContentHash("same text"))
	})

	t.Run("differs for different text", func(t *testing.T) {
		assert.NotEqual(t, ContentHash("a"), ContentHash("b"))
	})

	t.Run("known digest of empty string", func(t *testing.T) {
		assert.Equal(t, "e3b0c44298fc1c14", ContentHash(""))
	})
}

func TestChangeType_String(t *testing.T) {
	assert.Equal(t, "created", ChangeCreated.String())
	assert.Equal(t, "updated", ChangeUpdated.String())
	assert.Equal(t, "deleted", ChangeDeleted.String())
	assert.Equal(t, "unknown", ChangeType(99).String())
}
