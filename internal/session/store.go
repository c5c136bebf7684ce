package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/mentord/internal/session"

// ErrFragmentNotFound is returned when a dotted path does not resolve.
var ErrFragmentNotFound = errors.New("fragment not found")

// Store is the cache-first session state store. Loads hit the in-memory
// cache before the backend; every update stamps the record, persists the
// full snapshot, and refreshes the cache.
//
// Single-writer-per-request is assumed: concurrent updates to the same
// session id are not serialized here and must be queued by the caller.
type Store struct {
	backend Backend
	logger  *zap.Logger

	tracer      trace.Tracer
	meter       metric.Meter
	loadCounter metric.Int64Counter
	saveCounter metric.Int64Counter

	mu    sync.RWMutex
	cache map[string]*State
}

// NewStore creates a session store over the given backend.
func NewStore(backend Backend, logger *zap.Logger) (*Store, error) {
	if backend == nil {
		return nil, errors.New("backend is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Store{
		backend: backend,
		logger:  logger,
		tracer:  otel.Tracer(instrumentationName),
		meter:   otel.Meter(instrumentationName),
		cache:   make(map[string]*State),
	}
	s.initMetrics()
	return s, nil
}

func (s *Store) initMetrics() {
	var err error

	s.loadCounter, err = s.meter.Int64Counter(
		"mentord.session.loads_total",
		metric.WithDescription("Total session loads, labeled by source (cache, backend, created)"),
		metric.WithUnit("{load}"),
	)
	if err != nil {
		s.logger.Warn("failed to create load counter", zap.Error(err))
	}

	s.saveCounter, err = s.meter.Int64Counter(
		"mentord.session.saves_total",
		metric.WithDescription("Total session snapshot saves"),
		metric.WithUnit("{save}"),
	)
	if err != nil {
		s.logger.Warn("failed to create save counter", zap.Error(err))
	}
}

// Load returns the session record for id, creating a fresh record when
// neither the cache nor the backend has one. The returned snapshot is a
// deep copy; mutations to it never reach the store.
func (s *Store) Load(ctx context.Context, id string) (*State, error) {
	ctx, span := s.tracer.Start(ctx, "Store.Load")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", id))

	s.mu.RLock()
	cached, ok := s.cache[id]
	s.mu.RUnlock()
	if ok {
		s.countLoad(ctx, "cache")
		return cached.Clone(), nil
	}

	state, err := s.backend.Get(ctx, id)
	switch {
	case errors.Is(err, ErrNotFound):
		state = NewState(id)
		s.countLoad(ctx, "created")
		s.logger.Debug("created new session", zap.String("session_id", id))
	case err != nil:
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	default:
		s.countLoad(ctx, "backend")
	}

	s.mu.Lock()
	s.cache[id] = state
	s.mu.Unlock()

	return state.Clone(), nil
}

// Peek returns the session record for id without creating one: it checks
// the cache, then the backend, and returns ErrNotFound on a miss. Like
// Load, the returned snapshot is a deep copy.
func (s *Store) Peek(ctx context.Context, id string) (*State, error) {
	ctx, span := s.tracer.Start(ctx, "Store.Peek")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", id))

	s.mu.RLock()
	cached, ok := s.cache[id]
	s.mu.RUnlock()
	if ok {
		s.countLoad(ctx, "cache")
		return cached.Clone(), nil
	}

	state, err := s.backend.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}
	s.countLoad(ctx, "backend")

	s.mu.Lock()
	s.cache[id] = state
	s.mu.Unlock()

	return state.Clone(), nil
}

// Apply merges a delta into the session record, stamps the update time,
// persists the full snapshot, and refreshes the cache. It returns the
// merged snapshot.
func (s *Store) Apply(ctx context.Context, id string, delta Delta) (*State, error) {
	ctx, span := s.tracer.Start(ctx, "Store.Apply")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", id))

	current, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	// Load already returned a private clone; merge into it copy-on-write.
	delta.apply(current)
	current.UpdatedAt = time.Now().UTC()

	if err := s.backend.Save(ctx, id, current); err != nil {
		return nil, fmt.Errorf("persisting session %s: %w", id, err)
	}
	if s.saveCounter != nil {
		s.saveCounter.Add(ctx, 1)
	}

	s.mu.Lock()
	s.cache[id] = current
	s.mu.Unlock()

	return current.Clone(), nil
}

// Fragment extracts a read-only projection of session state by dotted path,
// e.g. "architecture.tech_stack". The value is decoded from the record's
// JSON form, so paths follow the persisted field names.
func (s *Store) Fragment(ctx context.Context, id, path string) (any, error) {
	state, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encoding session %s: %w", id, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", id, err)
	}

	var value any = doc
	for _, key := range strings.Split(path, ".") {
		m, ok := value.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrFragmentNotFound, path)
		}
		value, ok = m[key]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrFragmentNotFound, path)
		}
	}
	return value, nil
}

// Evict drops a session from the in-memory cache. The backend record is
// untouched; the next Load reads through.
func (s *Store) Evict(id string) {
	s.mu.Lock()
	delete(s.cache, id)
	s.mu.Unlock()
}

func (s *Store) countLoad(ctx context.Context, source string) {
	if s.loadCounter != nil {
		s.loadCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
	}
}
