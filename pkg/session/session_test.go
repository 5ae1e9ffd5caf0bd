package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkuhlmann/flowlayout/pkg/graph"
	"github.com/mkuhlmann/flowlayout/pkg/io"
)

func sampleDoc(t *testing.T) io.LayoutDocument {
	t.Helper()
	g := graph.New()
	require.NoError(t, g.AddNode(&graph.Node{
		ID:      "ev",
		Outputs: []graph.Port{{Name: "then", Flow: true}},
	}))
	return io.LayoutDocument{
		Graph:  graph.FromGraph(g),
		Blocks: []io.BlockDocument{{ID: "block_0", FlowNodes: []string{"ev"}}},
	}
}

func TestNewRun(t *testing.T) {
	doc := sampleDoc(t)
	run := NewRun("hash123", doc)

	assert.NotEmpty(t, run.ID, "run should get a generated ID")
	assert.Equal(t, "hash123", run.GraphHash)
	assert.Equal(t, 1, run.NodeCount)
	assert.Equal(t, 1, run.BlockCount)
	assert.False(t, run.IsExpired(), "fresh run should not be expired")

	other := NewRun("hash123", doc)
	assert.NotEqual(t, run.ID, other.ID, "two runs should get distinct IDs")
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	run := NewRun("hash123", sampleDoc(t))
	require.NoError(t, store.Save(ctx, run))

	got, err := store.Get(ctx, run.ID)
	require.NoError(t, err)
	require.NotNil(t, got, "saved run not found")
	assert.Equal(t, run.GraphHash, got.GraphHash)
	assert.Equal(t, run.BlockCount, got.BlockCount)
	assert.Len(t, got.Layout.Blocks, 1, "layout document lost in round trip")

	require.NoError(t, store.Delete(ctx, run.ID))
	got, err = store.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Nil(t, got, "deleted run should be gone")
}

func TestFileStoreMissingRun(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	got, err := store.Get(context.Background(), "no-such-run")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFileStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	run := NewRun("hash123", sampleDoc(t))
	run.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, store.Save(ctx, run))

	_, err = store.Get(ctx, run.ID)
	assert.ErrorIs(t, err, ErrExpired)

	// The expired file was removed on access.
	got, err := store.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFileStoreListAndCleanup(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	old := NewRun("old", sampleDoc(t))
	old.CreatedAt = time.Now().Add(-time.Hour)
	newer := NewRun("new", sampleDoc(t))
	expired := NewRun("gone", sampleDoc(t))
	expired.ExpiresAt = time.Now().Add(-time.Minute)

	for _, r := range []*Run{old, newer, expired} {
		require.NoError(t, store.Save(ctx, r))
	}

	runs, err := store.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2, "expired run should be excluded")
	assert.Equal(t, "new", runs[0].GraphHash, "runs should be newest-first")
	assert.Equal(t, "old", runs[1].GraphHash)

	// Limit applies
	limited, err := store.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "new", limited[0].GraphHash)

	require.NoError(t, store.Cleanup(ctx))

	got, err := store.Get(ctx, expired.ID)
	require.NoError(t, err)
	assert.Nil(t, got, "expired run should be gone after cleanup")

	live, err := store.Get(ctx, newer.ID)
	require.NoError(t, err)
	assert.NotNil(t, live, "live run should survive cleanup")
}
