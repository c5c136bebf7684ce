// Package plan expands requested capabilities into a dependency-resolved,
// phase-filtered execution plan.
package plan

import (
	"github.com/fyrsmithlabs/mentord/internal/capability"
)

// Task is one capability invocation in a plan. RequiredContext is the
// capability's declared requires list; a wildcard requirement means the
// task receives the full session snapshot.
type Task struct {
	CapabilityID    string
	RequiredContext []capability.Requirement
	Tools           []string
}

// NeedsFullState reports whether the task's context is the wildcard.
func (t Task) NeedsFullState() bool {
	for _, r := range t.RequiredContext {
		if r.All {
			return true
		}
	}
	return false
}

// ContextArtifacts returns the non-wildcard artifact names of the task's
// required context.
func (t Task) ContextArtifacts() []string {
	var names []string
	for _, r := range t.RequiredContext {
		if !r.All {
			names = append(names, r.Artifact)
		}
	}
	return names
}

// Plan is an ordered list of tasks; slice order is execution order.
type Plan struct {
	Tasks []Task
}

// CapabilityIDs returns the plan's capability ids in execution order.
func (p Plan) CapabilityIDs() []string {
	ids := make([]string, len(p.Tasks))
	for i, t := range p.Tasks {
		ids[i] = t.CapabilityID
	}
	return ids
}
