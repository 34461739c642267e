package memoryadapter

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "memory")
	a, err := New(dir)
	require.NoError(t, err)
	t.Cleanup(a.Stop)
	return a
}

func TestAdapter_StoreThenRetrieve(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	err := a.StoreMemory(ctx, "notes", "note-1", []float32{1, 0, 0}, "first note", map[string]string{"topic": "cache"})
	require.NoError(t, err)

	items, err := a.RetrieveMemory(ctx, "notes", []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "note-1", items[0].ID)
	assert.Equal(t, "first note", items[0].Content)
	assert.Equal(t, "cache", items[0].Metadata["topic"])
}

func TestAdapter_RetrieveFromUnknownCollectionReturnsEmpty(t *testing.T) {
	a := newTestAdapter(t)
	items, err := a.RetrieveMemory(context.Background(), "does-not-exist", []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestAdapter_StoreRespectsContextCancellation(t *testing.T) {
	a := newTestAdapter(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := a.StoreMemory(ctx, "notes", "note-1", []float32{1, 0, 0}, "content", nil)
	require.Error(t, err)
}

func TestAdapter_StoreDrainsBeforeStop(t *testing.T) {
	a := newTestAdapter(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, a.StoreMemory(ctx, "notes", "note-1", []float32{1}, "content", nil))
}
