package note

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mossline/notewise/internal/embedding"
)

func writeNotesFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFileStoreLoad(t *testing.T) {
	path := writeNotesFile(t, `[
		{"id": "1", "title": "Grocery list", "body": "milk, eggs", "tags": ["folder:home"]},
		{"id": "2", "title": "Tax invoice", "body": "invoice #4411 from the accountant", "private": true}
	]`)

	store := NewFileStore(path, nil)
	require.NoError(t, store.Load())

	notes := store.Notes()
	require.Len(t, notes, 2)
	assert.Equal(t, "Grocery list", notes[0].Title)
	assert.True(t, notes[1].Private)

	// Embeddings are computed on load when absent.
	for _, n := range notes {
		assert.Len(t, n.Embedding, embedding.Dimension)
	}
}

func TestFileStoreLoadKeepsValidEmbeddings(t *testing.T) {
	path := writeNotesFile(t, `[{"id": "1", "title": "A", "body": "b"}]`)
	store := NewFileStore(path, nil)
	require.NoError(t, store.Load())

	first := store.Notes()[0].Embedding
	require.NoError(t, store.Load())
	assert.Equal(t, first, store.Notes()[0].Embedding)
}

func TestFileStoreLoadMissingFile(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "absent.json"), nil)
	assert.Error(t, store.Load())
}

func TestFileStoreLoadInvalidJSON(t *testing.T) {
	path := writeNotesFile(t, `{"not": "an array"`)
	store := NewFileStore(path, nil)
	assert.Error(t, store.Load())
}

func TestFileStoreNotesReturnsCopy(t *testing.T) {
	path := writeNotesFile(t, `[{"id": "1", "title": "A", "body": "b"}]`)
	store := NewFileStore(path, nil)
	require.NoError(t, store.Load())

	got := store.Notes()
	got[0].Title = "mutated"
	assert.Equal(t, "A", store.Notes()[0].Title)
}
