package capability

import (
	"fmt"

	"github.com/fyrsmithlabs/mentord/internal/session"
)

// Capability ids known to the default catalog.
const (
	RequirementsCollector = "requirements_collector"
	ProjectArchitect      = "project_architect"
	ExecutionPlanner      = "execution_planner"
	MockupAgent           = "mockup_agent"
	Exporter              = "exporter"
)

// Catalog is the immutable capability catalog. Lookup order is declaration
// order, which makes producer resolution and plan expansion deterministic.
type Catalog struct {
	entries []Descriptor
	byID    map[string]int
}

// NewCatalog validates and builds a catalog. Every non-wildcard artifact in
// some entry's Requires must be produced by exactly one entry: the
// dependency graph is closed, so plan construction can never dead-end.
func NewCatalog(entries []Descriptor) (*Catalog, error) {
	byID := make(map[string]int, len(entries))
	producers := make(map[string]int)
	for i, e := range entries {
		if e.ID == "" {
			return nil, fmt.Errorf("catalog entry %d has no id", i)
		}
		if _, dup := byID[e.ID]; dup {
			return nil, fmt.Errorf("duplicate capability id %q", e.ID)
		}
		byID[e.ID] = i
		for _, artifact := range e.Produces {
			producers[artifact]++
		}
	}
	for _, e := range entries {
		for _, r := range e.Requires {
			if r.All {
				continue
			}
			switch producers[r.Artifact] {
			case 0:
				return nil, fmt.Errorf("capability %q requires artifact %q which no capability produces", e.ID, r.Artifact)
			case 1:
				// closed and unambiguous
			default:
				return nil, fmt.Errorf("artifact %q has %d producers, want exactly one", r.Artifact, producers[r.Artifact])
			}
		}
	}
	return &Catalog{entries: entries, byID: byID}, nil
}

// ByID returns the descriptor for an exact id match.
func (c *Catalog) ByID(id string) (Descriptor, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Descriptor{}, false
	}
	return c.entries[i], true
}

// ProducerOf returns the first catalog entry whose Produces list contains
// the artifact.
func (c *Catalog) ProducerOf(artifact string) (Descriptor, bool) {
	for _, e := range c.entries {
		for _, p := range e.Produces {
			if p == artifact {
				return e, true
			}
		}
	}
	return Descriptor{}, false
}

// Entries returns the catalog entries in declaration order.
func (c *Catalog) Entries() []Descriptor {
	out := make([]Descriptor, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len returns the number of catalog entries.
func (c *Catalog) Len() int { return len(c.entries) }

// FullPipeline is the canonical id order used when intent is unknown or no
// capability was requested.
func FullPipeline() []string {
	return []string{
		RequirementsCollector,
		ProjectArchitect,
		ExecutionPlanner,
		MockupAgent,
		Exporter,
	}
}

// DefaultCatalog returns the built-in capability catalog.
func DefaultCatalog() *Catalog {
	catalog, err := NewCatalog([]Descriptor{
		{
			ID:          RequirementsCollector,
			Name:        "Requirements Collector",
			Description: "Asks structured questions to gather goals, constraints, and features. Updates requirements state.",
			Requires:    nil,
			Produces:    []string{session.ArtifactRequirements},
			Phases:      []string{session.PhaseInitialization, session.PhaseDiscovery, PhaseAny},
		},
		{
			ID:          ProjectArchitect,
			Name:        "Project Architect",
			Description: "Turns requirements into a tech stack, system and ER diagrams, API and data model.",
			Requires:    Needs(session.ArtifactRequirements),
			Produces:    []string{session.ArtifactArchitecture},
			Phases:      []string{session.PhaseRequirementsComplete, session.PhaseArchitectureComplete},
		},
		{
			ID:          ExecutionPlanner,
			Name:        "Execution Planner",
			Description: "Creates phases, milestones, and implementation steps from the architecture.",
			Requires:    Needs(session.ArtifactArchitecture),
			Produces:    []string{session.ArtifactRoadmap},
			Phases:      []string{session.PhaseArchitectureComplete},
		},
		{
			ID:          MockupAgent,
			Name:        "Mockup Agent",
			Description: "Generates UI wireframes and user-flow diagrams for the planned screens.",
			Requires:    Needs(session.ArtifactRequirements, session.ArtifactArchitecture),
			Produces:    []string{session.ArtifactMockups},
			Phases:      []string{session.PhaseRequirementsComplete},
		},
		{
			ID:          Exporter,
			Name:        "Exporter",
			Description: "Bundles all artifacts into a Markdown document ready for download.",
			Requires:    NeedsAll(),
			Produces:    []string{session.ArtifactExport},
			Phases:      []string{PhaseAny},
		},
	})
	if err != nil {
		// The built-in catalog is validated by tests; an error here is a
		// programming error.
		panic(err)
	}
	return catalog
}
