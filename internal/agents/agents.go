// Package agents implements the built-in capability adapters: requirements
// collection, architecture drafting, execution planning, mockup generation,
// and export bundling. Each adapter generates deterministically from session
// state and runs its generation step through the review protocol.
package agents

import (
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mentord/internal/capability"
	"github.com/fyrsmithlabs/mentord/internal/diagram"
	"github.com/fyrsmithlabs/mentord/internal/retrieval"
	"github.com/fyrsmithlabs/mentord/internal/review"
)

// Deps carries the shared collaborators injected into every adapter.
type Deps struct {
	Review    *review.Protocol
	Diagrams  *diagram.Generator
	Validator diagram.Validator
	Retrieval *retrieval.Store // optional; nil disables hints
	ExportDir string           // optional; empty keeps exports in state only
	Logger    *zap.Logger
}

func (d *Deps) defaults() {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Review == nil {
		d.Review = review.NewProtocol(0, d.Logger)
	}
	if d.Diagrams == nil {
		d.Diagrams = diagram.NewGenerator()
	}
	if d.Validator == nil {
		d.Validator = diagram.NopValidator{}
	}
}

// RegisterDefaults installs the built-in adapters into the dispatch table.
func RegisterDefaults(reg *capability.AdapterRegistry, deps Deps) {
	deps.defaults()

	reg.Register(capability.RequirementsCollector, func() (capability.Adapter, error) {
		return newRequirementsCollector(deps), nil
	})
	reg.Register(capability.ProjectArchitect, func() (capability.Adapter, error) {
		return newProjectArchitect(deps), nil
	})
	reg.Register(capability.ExecutionPlanner, func() (capability.Adapter, error) {
		return newExecutionPlanner(deps), nil
	})
	reg.Register(capability.MockupAgent, func() (capability.Adapter, error) {
		return newMockupAgent(deps), nil
	})
	reg.Register(capability.Exporter, func() (capability.Adapter, error) {
		return newExporter(deps), nil
	})
}

// reviewMetadata folds a review outcome into adapter result metadata. The
// degraded tag and failure count surface through perTaskResults untouched.
func reviewMetadata(name string, outcome review.Outcome) map[string]any {
	md := map[string]any{
		"capability":   name,
		"review_score": outcome.Review.Score,
		"attempts":     outcome.Attempts,
	}
	if outcome.Degraded {
		md["status"] = "degraded"
		md["review_failures"] = outcome.Failures
	}
	return md
}
