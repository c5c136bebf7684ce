package capability

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mentord/internal/session"
)

// Invocation is the normalized input every adapter receives: the utterance
// that triggered the turn and a state snapshot restricted to the
// capability's declared required context.
type Invocation struct {
	SessionID string
	Phase     string
	Utterance string
	State     *session.State
}

// Result is the normalized output of one adapter call.
type Result struct {
	// Content is the human-facing text contribution for this turn. May be
	// empty when the capability only mutates state.
	Content string

	// Delta is the state change to merge back into the session.
	Delta session.Delta

	// Metadata carries adapter-specific details (review scores, degradation
	// flags, attempt counts).
	Metadata map[string]any
}

// Adapter runs one capability. Every capability, whatever its native shape,
// is adapted to this single signature before the orchestrator sees it.
type Adapter interface {
	ID() string
	Invoke(ctx context.Context, inv Invocation) (*Result, error)
}

// Factory lazily constructs an adapter. Returning an error marks the
// capability unavailable; the orchestrator records "skipped" for its tasks.
type Factory func() (Adapter, error)

// AdapterRegistry is the explicit dispatch table from capability id to
// adapter. Instances are constructed lazily and cached; the table itself is
// built once per process and passed by reference, never held in a package
// global.
type AdapterRegistry struct {
	logger *zap.Logger

	mu        sync.Mutex
	factories map[string]Factory
	cache     map[string]Adapter
}

// NewAdapterRegistry creates an empty dispatch table.
func NewAdapterRegistry(logger *zap.Logger) *AdapterRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdapterRegistry{
		logger:    logger,
		factories: make(map[string]Factory),
		cache:     make(map[string]Adapter),
	}
}

// Register installs a factory for a capability id, replacing any previous
// registration and dropping its cached instance.
func (r *AdapterRegistry) Register(id string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[id] = factory
	delete(r.cache, id)
}

// Resolve returns the adapter for a capability id, constructing and caching
// it on first use. It returns false when no factory is registered or
// construction fails; the capability is then treated as unavailable.
func (r *AdapterRegistry) Resolve(id string) (Adapter, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.cache[id]; ok {
		return a, true
	}
	factory, ok := r.factories[id]
	if !ok {
		return nil, false
	}
	a, err := factory()
	if err != nil {
		r.logger.Warn("adapter construction failed",
			zap.String("capability_id", id),
			zap.Error(err),
		)
		return nil, false
	}
	r.cache[id] = a
	return a, true
}

// Registered returns whether a factory exists for the id, without
// constructing the adapter.
func (r *AdapterRegistry) Registered(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.factories[id]
	return ok
}
