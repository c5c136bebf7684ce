// Package session provides cached, persisted session records and delta merging.
package session

import (
	"time"
)

// PhaseInitialization is the phase assigned to freshly created sessions.
const PhaseInitialization = "initialization"

// Phases a session moves through as capabilities complete their artifacts.
const (
	PhaseDiscovery            = "discovery"
	PhaseRequirementsComplete = "requirements_complete"
	PhaseArchitectureComplete = "architecture_complete"
	PhaseMockupsComplete      = "mockups_complete"
	PhasePlanningComplete     = "planning_complete"
	PhaseExportComplete       = "export_complete"
)

// Role identifies the author of a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single transcript entry.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Requirements is the requirements artifact fragment.
type Requirements struct {
	Functional    []string `json:"functional"`
	NonFunctional []string `json:"non_functional"`
	Constraints   []string `json:"constraints"`
	UserStories   []string `json:"user_stories"`
	Gaps          []string `json:"gaps"`
}

// Empty reports whether no requirement content has been collected yet.
func (r Requirements) Empty() bool {
	return len(r.Functional) == 0 &&
		len(r.NonFunctional) == 0 &&
		len(r.Constraints) == 0 &&
		len(r.UserStories) == 0
}

// APIEndpoint describes one endpoint in the proposed API design.
type APIEndpoint struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description,omitempty"`
}

// Architecture is the architecture artifact fragment.
type Architecture struct {
	TechStack          map[string]string `json:"tech_stack"`
	TechStackRationale string            `json:"tech_stack_rationale,omitempty"`
	DataSchema         string            `json:"data_schema,omitempty"`
	SystemDiagram      string            `json:"system_diagram,omitempty"`
	APIDesign          []APIEndpoint     `json:"api_design"`
	DeploymentStrategy string            `json:"deployment_strategy,omitempty"`
}

// Empty reports whether no architecture content has been produced yet.
func (a Architecture) Empty() bool {
	return len(a.TechStack) == 0 &&
		a.DataSchema == "" &&
		a.SystemDiagram == "" &&
		len(a.APIDesign) == 0
}

// Mockup is a single UI mockup entry. The mockups artifact is a list of these.
type Mockup struct {
	ScreenName    string   `json:"screen_name"`
	WireframeCode string   `json:"wireframe_code"`
	UserFlow      string   `json:"user_flow,omitempty"`
	Interactions  []string `json:"interactions,omitempty"`
}

// Milestone is a major roadmap deliverable.
type Milestone struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Deliverables []string `json:"deliverables,omitempty"`
}

// Sprint is one implementation iteration in the roadmap.
type Sprint struct {
	Number int      `json:"number"`
	Goal   string   `json:"goal"`
	Tasks  []string `json:"tasks,omitempty"`
}

// Roadmap is the execution-plan artifact fragment.
type Roadmap struct {
	Milestones   []Milestone `json:"milestones"`
	Sprints      []Sprint    `json:"sprints"`
	CriticalPath string      `json:"critical_path,omitempty"`
}

// Empty reports whether no roadmap content has been produced yet.
func (r Roadmap) Empty() bool {
	return len(r.Milestones) == 0 && len(r.Sprints) == 0
}

// State is the full session record. It is the single source of truth for a
// project conversation and is only mutated through Store.Apply.
type State struct {
	ID          string `json:"id"`
	ProjectName string `json:"project_name,omitempty"`
	Phase       string `json:"phase"`

	Requirements Requirements `json:"requirements"`
	Architecture Architecture `json:"architecture"`
	Mockups      []Mockup     `json:"mockups"`
	Roadmap      Roadmap      `json:"roadmap"`
	Export       string       `json:"export,omitempty"`

	Transcript       []Message      `json:"transcript"`
	InvocationCounts map[string]int `json:"invocation_counts"`

	SelectionMode      string `json:"selection_mode,omitempty"`
	SelectedCapability string `json:"selected_capability,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewState creates a fresh session record in the initialization phase.
func NewState(id string) *State {
	now := time.Now().UTC()
	return &State{
		ID:               id,
		Phase:            PhaseInitialization,
		InvocationCounts: make(map[string]int),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Clone returns a deep copy of the state. Mutating the copy never affects
// the original, which makes it safe to hand out as a snapshot.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	c := *s

	c.Requirements = Requirements{
		Functional:    append([]string(nil), s.Requirements.Functional...),
		NonFunctional: append([]string(nil), s.Requirements.NonFunctional...),
		Constraints:   append([]string(nil), s.Requirements.Constraints...),
		UserStories:   append([]string(nil), s.Requirements.UserStories...),
		Gaps:          append([]string(nil), s.Requirements.Gaps...),
	}

	c.Architecture = s.Architecture
	if s.Architecture.TechStack != nil {
		c.Architecture.TechStack = make(map[string]string, len(s.Architecture.TechStack))
		for k, v := range s.Architecture.TechStack {
			c.Architecture.TechStack[k] = v
		}
	}
	c.Architecture.APIDesign = append([]APIEndpoint(nil), s.Architecture.APIDesign...)

	c.Mockups = make([]Mockup, len(s.Mockups))
	for i, m := range s.Mockups {
		c.Mockups[i] = m
		c.Mockups[i].Interactions = append([]string(nil), m.Interactions...)
	}

	c.Roadmap.Milestones = make([]Milestone, len(s.Roadmap.Milestones))
	for i, m := range s.Roadmap.Milestones {
		c.Roadmap.Milestones[i] = m
		c.Roadmap.Milestones[i].Deliverables = append([]string(nil), m.Deliverables...)
	}
	c.Roadmap.Sprints = make([]Sprint, len(s.Roadmap.Sprints))
	for i, sp := range s.Roadmap.Sprints {
		c.Roadmap.Sprints[i] = sp
		c.Roadmap.Sprints[i].Tasks = append([]string(nil), sp.Tasks...)
	}

	c.Transcript = append([]Message(nil), s.Transcript...)

	c.InvocationCounts = make(map[string]int, len(s.InvocationCounts))
	for k, v := range s.InvocationCounts {
		c.InvocationCounts[k] = v
	}

	return &c
}

// ArtifactPresent reports whether the named artifact exists and is non-empty.
// Unknown artifact names report false.
func (s *State) ArtifactPresent(name string) bool {
	switch name {
	case ArtifactRequirements:
		return !s.Requirements.Empty()
	case ArtifactArchitecture:
		return !s.Architecture.Empty()
	case ArtifactMockups:
		return len(s.Mockups) > 0
	case ArtifactRoadmap:
		return !s.Roadmap.Empty()
	case ArtifactExport:
		return s.Export != ""
	}
	return false
}

// Artifact names carried by session state.
const (
	ArtifactRequirements = "requirements"
	ArtifactArchitecture = "architecture"
	ArtifactMockups      = "mockups"
	ArtifactRoadmap      = "roadmap"
	ArtifactExport       = "export"
)

// Restrict returns a snapshot containing only the named artifacts. The rest
// of the record (id, phase, transcript, counters) is always included so a
// capability can see where the conversation stands. When all is true the
// full snapshot is returned.
func (s *State) Restrict(artifacts []string, all bool) *State {
	view := s.Clone()
	if all {
		return view
	}
	keep := make(map[string]bool, len(artifacts))
	for _, a := range artifacts {
		keep[a] = true
	}
	if !keep[ArtifactRequirements] {
		view.Requirements = Requirements{}
	}
	if !keep[ArtifactArchitecture] {
		view.Architecture = Architecture{}
	}
	if !keep[ArtifactMockups] {
		view.Mockups = nil
	}
	if !keep[ArtifactRoadmap] {
		view.Roadmap = Roadmap{}
	}
	if !keep[ArtifactExport] {
		view.Export = ""
	}
	return view
}
