package capability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mentord/internal/session"
)

func TestDefaultCatalog(t *testing.T) {
	catalog := DefaultCatalog()
	assert.Equal(t, 5, catalog.Len())

	for _, id := range FullPipeline() {
		_, ok := catalog.ByID(id)
		assert.True(t, ok, id)
	}

	producer, ok := catalog.ProducerOf(session.ArtifactArchitecture)
	require.True(t, ok)
	assert.Equal(t, ProjectArchitect, producer.ID)
}

func TestNewCatalogRejectsUnproducedRequirement(t *testing.T) {
	_, err := NewCatalog([]Descriptor{
		{ID: "a", Requires: Needs("ghost"), Produces: []string{"thing"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestNewCatalogRejectsDuplicateIDs(t *testing.T) {
	_, err := NewCatalog([]Descriptor{
		{ID: "a", Produces: []string{"x"}},
		{ID: "a", Produces: []string{"y"}},
	})
	require.Error(t, err)
}

func TestNewCatalogRejectsAmbiguousProducer(t *testing.T) {
	_, err := NewCatalog([]Descriptor{
		{ID: "a", Produces: []string{"x"}},
		{ID: "b", Produces: []string{"x"}},
		{ID: "c", Requires: Needs("x")},
	})
	require.Error(t, err)
}

func TestNewCatalogWildcardNeedsNoProducer(t *testing.T) {
	catalog, err := NewCatalog([]Descriptor{
		{ID: "all-consumer", Requires: NeedsAll()},
	})
	require.NoError(t, err)

	desc, ok := catalog.ByID("all-consumer")
	require.True(t, ok)
	assert.True(t, desc.NeedsFullState())
	assert.Empty(t, desc.RequiredArtifacts())
}

func TestDescriptorCompatibleWith(t *testing.T) {
	exact := Descriptor{Phases: []string{session.PhaseDiscovery}}
	assert.True(t, exact.CompatibleWith(session.PhaseDiscovery))
	assert.False(t, exact.CompatibleWith(session.PhaseExportComplete))

	wildcard := Descriptor{Phases: []string{PhaseAny}}
	assert.True(t, wildcard.CompatibleWith(session.PhaseExportComplete))
}

type staticAdapter struct{ id string }

func (a staticAdapter) ID() string { return a.id }
func (a staticAdapter) Invoke(context.Context, Invocation) (*Result, error) {
	return &Result{Content: "ok"}, nil
}

func TestAdapterRegistryResolveCachesInstances(t *testing.T) {
	reg := NewAdapterRegistry(zap.NewNop())

	built := 0
	reg.Register("cap", func() (Adapter, error) {
		built++
		return staticAdapter{id: "cap"}, nil
	})

	first, ok := reg.Resolve("cap")
	require.True(t, ok)
	second, ok := reg.Resolve("cap")
	require.True(t, ok)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, built)
}

func TestAdapterRegistryFailedFactoryIsUnavailable(t *testing.T) {
	reg := NewAdapterRegistry(zap.NewNop())
	reg.Register("broken", func() (Adapter, error) {
		return nil, errors.New("boom")
	})

	_, ok := reg.Resolve("broken")
	assert.False(t, ok)

	_, ok = reg.Resolve("never-registered")
	assert.False(t, ok)
}
