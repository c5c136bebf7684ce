package plan

import (
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mentord/internal/capability"
	"github.com/fyrsmithlabs/mentord/internal/session"
)

// Builder constructs execution plans against an immutable catalog. Output
// order is deterministic for identical (requested ids, state, phase) input:
// resolution walks requested ids and catalog entries in declaration order
// and uses the visited set only for membership.
type Builder struct {
	catalog *capability.Catalog
	logger  *zap.Logger
}

// NewBuilder creates a plan builder over the catalog.
func NewBuilder(catalog *capability.Catalog, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{catalog: catalog, logger: logger}
}

// Build expands the requested capability ids into an ordered plan:
//
//  1. Upstream: each requested capability's missing required artifacts are
//     resolved depth-first, inserting producers before their requesters.
//  2. Downstream: to fixpoint, any capability whose full (non-wildcard)
//     requirement set is covered by artifacts the plan already produces is
//     added, with its own upstream resolution first. Wildcard-requirement
//     capabilities are excluded from auto-expansion.
//  3. Phase filter: capabilities incompatible with the current phase drop.
//
// An empty requested list falls back to the canonical full pipeline.
// Unknown ids are skipped silently.
func (b *Builder) Build(requested []string, state *session.State, phase string) Plan {
	if len(requested) == 0 {
		requested = capability.FullPipeline()
	}

	var order []string
	visited := make(map[string]bool)

	var resolve func(id string)
	resolve = func(id string) {
		if visited[id] {
			return
		}
		desc, ok := b.catalog.ByID(id)
		if !ok {
			b.logger.Debug("skipping unknown capability id", zap.String("capability_id", id))
			return
		}
		// Mark before recursing so a dependency cycle cannot loop.
		visited[id] = true
		for _, req := range desc.Requires {
			if req.All {
				continue
			}
			if state.ArtifactPresent(req.Artifact) {
				continue
			}
			if producer, ok := b.catalog.ProducerOf(req.Artifact); ok {
				resolve(producer.ID)
			}
		}
		order = append(order, id)
	}

	for _, id := range requested {
		resolve(id)
	}

	// Downstream expansion: pull in consumers whose inputs the plan will
	// produce, so a refreshed artifact propagates through its dependents.
	for {
		produced := make(map[string]bool)
		for _, id := range order {
			if desc, ok := b.catalog.ByID(id); ok {
				for _, artifact := range desc.Produces {
					produced[artifact] = true
				}
			}
		}

		added := false
		for _, desc := range b.catalog.Entries() {
			if visited[desc.ID] || desc.NeedsFullState() {
				continue
			}
			if coveredBy(desc, produced) {
				resolve(desc.ID)
				added = true
			}
		}
		if !added {
			break
		}
	}

	var tasks []Task
	for _, id := range order {
		desc, ok := b.catalog.ByID(id)
		if !ok {
			continue
		}
		if !desc.CompatibleWith(phase) {
			b.logger.Debug("dropping phase-incompatible capability",
				zap.String("capability_id", id),
				zap.String("phase", phase),
			)
			continue
		}
		tasks = append(tasks, Task{
			CapabilityID:    id,
			RequiredContext: desc.Requires,
		})
	}

	return Plan{Tasks: tasks}
}

// coveredBy reports whether every non-wildcard requirement of the
// capability is produced by the plan. A capability with no requirements is
// never auto-expanded.
func coveredBy(desc capability.Descriptor, produced map[string]bool) bool {
	required := desc.RequiredArtifacts()
	if len(required) == 0 {
		return false
	}
	for _, artifact := range required {
		if !produced[artifact] {
			return false
		}
	}
	return true
}
