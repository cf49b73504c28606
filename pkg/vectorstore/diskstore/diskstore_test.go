package diskstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenderanalysis/pkg/vectorstore"
)

func TestDiskStore_UpsertAndQuery(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	err := store.Upsert(ctx, "docs", []vectorstore.Item{
		{ID: "a", Vector: []float32{1, 0, 0}, Metadata: map[string]any{"section": "financial"}},
		{ID: "b", Vector: []float32{0, 1, 0}, Metadata: map[string]any{"section": "legal"}},
	})
	require.NoError(t, err)

	results, err := store.Query(ctx, "docs", []float32{1, 0, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].Item.ID)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-9)
}

func TestDiskStore_QueryAppliesFilter(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, "docs", []vectorstore.Item{
		{ID: "a", Vector: []float32{1, 0}, Metadata: map[string]any{"section": "financial"}},
		{ID: "b", Vector: []float32{1, 0}, Metadata: map[string]any{"section": "legal"}},
	}))

	results, err := store.Query(ctx, "docs", []float32{1, 0}, 10, vectorstore.Filter{"section": "legal"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].Item.ID)
}

func TestDiskStore_UpsertReplacesByID(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, "docs", []vectorstore.Item{
		{ID: "a", Text: "first", Vector: []float32{1, 0}},
	}))
	require.NoError(t, store.Upsert(ctx, "docs", []vectorstore.Item{
		{ID: "a", Text: "second", Vector: []float32{1, 0}},
	}))

	results, err := store.Query(ctx, "docs", []float32{1, 0}, 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "second", results[0].Item.Text)
}

func TestDiskStore_DeleteWithoutFilterClearsCollection(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, "docs", []vectorstore.Item{
		{ID: "a", Vector: []float32{1, 0}},
		{ID: "b", Vector: []float32{0, 1}},
	}))

	require.NoError(t, store.Delete(ctx, "docs", nil))

	results, err := store.Query(ctx, "docs", []float32{1, 0}, 10, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestDiskStore_SaveIsAtomic(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, "docs", []vectorstore.Item{{ID: "a", Vector: []float32{1}}}))

	entries, err := filepath.Glob(filepath.Join(dir, "*.tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, entries, "no temp files should survive a successful save")
}

func TestDiskStore_ListCollections(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, "docs", []vectorstore.Item{{ID: "a", Vector: []float32{1}}}))
	require.NoError(t, store.Upsert(ctx, "risk", []vectorstore.Item{{ID: "b", Vector: []float32{1}}}))

	names, err := store.ListCollections(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"docs", "risk"}, names)
}
