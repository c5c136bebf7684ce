package session

// MergePolicy declares how a state delta is folded into the stored record.
type MergePolicy string

const (
	// PolicyReplace overwrites the stored value outright.
	PolicyReplace MergePolicy = "replace"
	// PolicyAppend concatenates list-valued fields.
	PolicyAppend MergePolicy = "append"
	// PolicyUpsert shallow-upserts map-valued fields.
	PolicyUpsert MergePolicy = "upsert"
	// PolicyMergeFields merges nested record fields field-by-field.
	PolicyMergeFields MergePolicy = "merge_fields"
)

// fieldPolicies declares merge semantics once per state field, so merges are
// never inferred from runtime types.
var fieldPolicies = map[string]MergePolicy{
	"phase":               PolicyReplace,
	"project_name":        PolicyReplace,
	"requirements":        PolicyMergeFields,
	"architecture":        PolicyMergeFields,
	"mockups":             PolicyAppend,
	"roadmap":             PolicyMergeFields,
	"export":              PolicyReplace,
	"transcript":          PolicyAppend,
	"invocation_counts":   PolicyUpsert,
	"selection_mode":      PolicyReplace,
	"selected_capability": PolicyReplace,
}

// PolicyFor returns the declared merge policy for a top-level state field.
func PolicyFor(field string) (MergePolicy, bool) {
	p, ok := fieldPolicies[field]
	return p, ok
}

// Delta is a partial update to session state. Nil pointer fields and empty
// slices are untouched fields; each set field is merged according to the
// policy declared in fieldPolicies.
type Delta struct {
	Phase       *string
	ProjectName *string

	Requirements *Requirements
	Architecture *Architecture
	Mockups      []Mockup
	Roadmap      *Roadmap
	Export       *string

	Transcript []Message

	// InvocationIncrements adds to per-capability counters.
	InvocationIncrements map[string]int

	SelectionMode      *string
	SelectedCapability *string
}

// Empty reports whether the delta carries no changes.
func (d Delta) Empty() bool {
	return d.Phase == nil && d.ProjectName == nil &&
		d.Requirements == nil && d.Architecture == nil &&
		len(d.Mockups) == 0 && d.Roadmap == nil && d.Export == nil &&
		len(d.Transcript) == 0 && len(d.InvocationIncrements) == 0 &&
		d.SelectionMode == nil && d.SelectedCapability == nil
}

// apply folds the delta into the state in place. The caller passes a private
// clone; apply never runs against a shared record.
func (d Delta) apply(s *State) {
	if d.Phase != nil {
		applyReplace("phase", &s.Phase, *d.Phase)
	}
	if d.ProjectName != nil {
		applyReplace("project_name", &s.ProjectName, *d.ProjectName)
	}
	if d.Requirements != nil {
		mustUsePolicy("requirements", PolicyMergeFields)
		mergeRequirements(&s.Requirements, *d.Requirements)
	}
	if d.Architecture != nil {
		mustUsePolicy("architecture", PolicyMergeFields)
		mergeArchitecture(&s.Architecture, *d.Architecture)
	}
	if len(d.Mockups) > 0 {
		mustUsePolicy("mockups", PolicyAppend)
		s.Mockups = append(s.Mockups, d.Mockups...)
	}
	if d.Roadmap != nil {
		mustUsePolicy("roadmap", PolicyMergeFields)
		mergeRoadmap(&s.Roadmap, *d.Roadmap)
	}
	if d.Export != nil {
		applyReplace("export", &s.Export, *d.Export)
	}
	if len(d.Transcript) > 0 {
		mustUsePolicy("transcript", PolicyAppend)
		s.Transcript = append(s.Transcript, d.Transcript...)
	}
	if len(d.InvocationIncrements) > 0 {
		mustUsePolicy("invocation_counts", PolicyUpsert)
		if s.InvocationCounts == nil {
			s.InvocationCounts = make(map[string]int, len(d.InvocationIncrements))
		}
		for k, v := range d.InvocationIncrements {
			s.InvocationCounts[k] += v
		}
	}
	if d.SelectionMode != nil {
		applyReplace("selection_mode", &s.SelectionMode, *d.SelectionMode)
	}
	if d.SelectedCapability != nil {
		applyReplace("selected_capability", &s.SelectedCapability, *d.SelectedCapability)
	}
}

func applyReplace(field string, dst *string, v string) {
	mustUsePolicy(field, PolicyReplace)
	*dst = v
}

// mustUsePolicy panics if a merge helper disagrees with the declared policy
// table. This can only fire on a programming error, never on user input.
func mustUsePolicy(field string, p MergePolicy) {
	declared, ok := fieldPolicies[field]
	if !ok || declared != p {
		panic("session: field " + field + " merged with undeclared policy " + string(p))
	}
}

// mergeRequirements merges field-by-field: list fields append, except Gaps,
// which holds the currently open questions and is recomputed on every pass,
// so it replaces.
func mergeRequirements(dst *Requirements, d Requirements) {
	dst.Functional = append(dst.Functional, d.Functional...)
	dst.NonFunctional = append(dst.NonFunctional, d.NonFunctional...)
	dst.Constraints = append(dst.Constraints, d.Constraints...)
	dst.UserStories = append(dst.UserStories, d.UserStories...)
	dst.Gaps = append([]string(nil), d.Gaps...)
}

// mergeArchitecture merges field-by-field: the tech stack map upserts, list
// fields append, scalar fields replace when non-empty.
func mergeArchitecture(dst *Architecture, d Architecture) {
	if len(d.TechStack) > 0 {
		if dst.TechStack == nil {
			dst.TechStack = make(map[string]string, len(d.TechStack))
		}
		for k, v := range d.TechStack {
			dst.TechStack[k] = v
		}
	}
	if d.TechStackRationale != "" {
		dst.TechStackRationale = d.TechStackRationale
	}
	if d.DataSchema != "" {
		dst.DataSchema = d.DataSchema
	}
	if d.SystemDiagram != "" {
		dst.SystemDiagram = d.SystemDiagram
	}
	dst.APIDesign = append(dst.APIDesign, d.APIDesign...)
	if d.DeploymentStrategy != "" {
		dst.DeploymentStrategy = d.DeploymentStrategy
	}
}

// mergeRoadmap merges field-by-field: list fields append, scalars replace
// when non-empty.
func mergeRoadmap(dst *Roadmap, d Roadmap) {
	dst.Milestones = append(dst.Milestones, d.Milestones...)
	dst.Sprints = append(dst.Sprints, d.Sprints...)
	if d.CriticalPath != "" {
		dst.CriticalPath = d.CriticalPath
	}
}
