package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(NewMemoryBackend(), zap.NewNop())
	require.NoError(t, err)
	return store
}

func TestStoreRequiresBackend(t *testing.T) {
	_, err := NewStore(nil, zap.NewNop())
	require.Error(t, err)
}

func TestLoadCreatesFreshSession(t *testing.T) {
	store := newTestStore(t)

	state, err := store.Load(context.Background(), "new-session")
	require.NoError(t, err)

	assert.Equal(t, "new-session", state.ID)
	assert.Equal(t, PhaseInitialization, state.Phase)
	assert.Empty(t, state.Transcript)
	assert.NotNil(t, state.InvocationCounts)
}

func TestLoadReturnsPrivateCopy(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	first.Phase = "mutated"
	first.InvocationCounts["x"] = 42

	second, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, PhaseInitialization, second.Phase)
	assert.Zero(t, second.InvocationCounts["x"])
}

func TestPeekNeverCreates(t *testing.T) {
	backend := NewMemoryBackend()
	store, err := NewStore(backend, zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Peek(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	// The miss left nothing behind in the cache or the backend.
	_, err = store.Peek(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = backend.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	// An existing record peeks fine, from backend and then cache.
	_, err = store.Apply(ctx, "s1", Delta{ProjectName: strptr("alpha")})
	require.NoError(t, err)
	state, err := store.Peek(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "alpha", state.ProjectName)
}

func TestApplyPersistsAndRefreshesCache(t *testing.T) {
	backend := NewMemoryBackend()
	store, err := NewStore(backend, zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Apply(ctx, "s1", Delta{
		Phase:      strptr(PhaseDiscovery),
		Transcript: []Message{{Role: RoleUser, Content: "hello"}},
	})
	require.NoError(t, err)

	// The snapshot reached the backend, not just the cache.
	persisted, err := backend.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, PhaseDiscovery, persisted.Phase)
	require.Len(t, persisted.Transcript, 1)

	// A second store over the same backend sees the record.
	other, err := NewStore(backend, zap.NewNop())
	require.NoError(t, err)
	state, err := other.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, PhaseDiscovery, state.Phase)
}

func TestEvictReadsThrough(t *testing.T) {
	backend := NewMemoryBackend()
	store, err := NewStore(backend, zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Apply(ctx, "s1", Delta{ProjectName: strptr("alpha")})
	require.NoError(t, err)

	// Mutate the backend behind the cache, then evict.
	raw, err := backend.Get(ctx, "s1")
	require.NoError(t, err)
	raw.ProjectName = "beta"
	require.NoError(t, backend.Save(ctx, "s1", raw))
	store.Evict("s1")

	state, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "beta", state.ProjectName)
}

func TestFragment(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Apply(ctx, "s1", Delta{
		Architecture: &Architecture{
			TechStack: map[string]string{"backend": "Go (Echo)"},
		},
	})
	require.NoError(t, err)

	value, err := store.Fragment(ctx, "s1", "architecture.tech_stack.backend")
	require.NoError(t, err)
	assert.Equal(t, "Go (Echo)", value)

	_, err = store.Fragment(ctx, "s1", "architecture.no_such_field")
	assert.ErrorIs(t, err, ErrFragmentNotFound)

	_, err = store.Fragment(ctx, "s1", "phase.nested")
	assert.ErrorIs(t, err, ErrFragmentNotFound)
}

func TestMemoryBackendNotFound(t *testing.T) {
	backend := NewMemoryBackend()
	_, err := backend.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLiteBackendRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	backend, err := NewSQLiteBackend(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })
	ctx := context.Background()

	_, err = backend.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	state := NewState("s1")
	state.ProjectName = "alpha"
	state.Requirements.Functional = []string{"track tasks"}
	require.NoError(t, backend.Save(ctx, "s1", state))

	got, err := backend.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "alpha", got.ProjectName)
	assert.Equal(t, []string{"track tasks"}, got.Requirements.Functional)

	// Save is an upsert.
	state.ProjectName = "beta"
	require.NoError(t, backend.Save(ctx, "s1", state))
	got, err = backend.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "beta", got.ProjectName)
}
