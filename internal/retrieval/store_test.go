package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(Config{}, nil)
	require.NoError(t, err)
	return store
}

func TestIngestAndQuery(t *testing.T) {
	store := newMemStore(t)
	ctx := context.Background()

	require.NoError(t, store.Ingest(ctx, SyntaxReference()))

	results := store.Query(ctx, "flowchart edges and nodes", 2)
	require.NotEmpty(t, results)
	assert.LessOrEqual(t, len(results), 2)
	assert.Equal(t, "mermaid-flowchart", results[0].ID)
	assert.NotEmpty(t, results[0].Content)
}

func TestQueryDegradesGracefully(t *testing.T) {
	store := newMemStore(t)
	ctx := context.Background()

	// Empty collection, zero k, and blank text all return nil.
	assert.Nil(t, store.Query(ctx, "anything", 3))

	require.NoError(t, store.Ingest(ctx, SyntaxReference()))
	assert.Nil(t, store.Query(ctx, "anything", 0))
	assert.Nil(t, store.Query(ctx, "   ", 3))
}

func TestQueryClampsK(t *testing.T) {
	store := newMemStore(t)
	ctx := context.Background()

	require.NoError(t, store.Ingest(ctx, []Document{
		{ID: "only", Content: "sequenceDiagram participants exchange messages"},
	}))

	results := store.Query(ctx, "sequence participants", 10)
	assert.Len(t, results, 1)
}

func TestIngestEmptyIsNoop(t *testing.T) {
	store := newMemStore(t)
	assert.NoError(t, store.Ingest(context.Background(), nil))
}

func TestEmbedTokensDeterministicAndNormalized(t *testing.T) {
	first, err := embedTokens(context.Background(), "flowchart nodes and edges")
	require.NoError(t, err)
	second, err := embedTokens(context.Background(), "flowchart nodes and edges")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	var norm float64
	for _, v := range first {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-6)
}

func TestEmbedTokensEmptyInputIsNonZero(t *testing.T) {
	vec, err := embedTokens(context.Background(), "")
	require.NoError(t, err)

	nonZero := false
	for _, v := range vec {
		if v != 0 {
			nonZero = true
			break
		}
	}
	assert.True(t, nonZero)
}
