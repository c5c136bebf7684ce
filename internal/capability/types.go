// Package capability provides the static catalog of capability descriptors
// and the adapter dispatch table used to run them.
package capability

// PhaseAny is the wildcard phase-compatibility entry.
const PhaseAny = "*"

// Requirement names one artifact a capability consumes. The wildcard
// "requires everything" case is a tagged variant rather than a sentinel
// artifact name, so expansion logic can branch on All without string
// comparison.
type Requirement struct {
	Artifact string
	All      bool
}

// Needs builds a requirement list from artifact names.
func Needs(artifacts ...string) []Requirement {
	reqs := make([]Requirement, len(artifacts))
	for i, a := range artifacts {
		reqs[i] = Requirement{Artifact: a}
	}
	return reqs
}

// NeedsAll is the wildcard requirement list: the capability consumes the
// full session snapshot.
func NeedsAll() []Requirement {
	return []Requirement{{All: true}}
}

// Descriptor is one static catalog entry.
type Descriptor struct {
	ID          string
	Name        string
	Description string

	Requires []Requirement
	Produces []string

	// Phases lists compatible session phases; PhaseAny matches every phase.
	Phases []string
}

// CompatibleWith reports whether the capability may run in the given phase.
func (d Descriptor) CompatibleWith(phase string) bool {
	for _, p := range d.Phases {
		if p == PhaseAny || p == phase {
			return true
		}
	}
	return false
}

// NeedsFullState reports whether any requirement is the wildcard.
func (d Descriptor) NeedsFullState() bool {
	for _, r := range d.Requires {
		if r.All {
			return true
		}
	}
	return false
}

// RequiredArtifacts returns the non-wildcard required artifact names.
func (d Descriptor) RequiredArtifacts() []string {
	var names []string
	for _, r := range d.Requires {
		if !r.All {
			names = append(names, r.Artifact)
		}
	}
	return names
}
