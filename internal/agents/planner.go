package agents

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mentord/internal/capability"
	"github.com/fyrsmithlabs/mentord/internal/review"
	"github.com/fyrsmithlabs/mentord/internal/session"
)

// sprintSize is how many functional requirements one sprint absorbs.
const sprintSize = 3

type executionPlanner struct {
	deps Deps
}

func newExecutionPlanner(deps Deps) *executionPlanner {
	return &executionPlanner{deps: deps}
}

func (a *executionPlanner) ID() string { return capability.ExecutionPlanner }

// Invoke turns requirements plus architecture into milestones, sprints, and
// a critical-path gantt chart.
func (a *executionPlanner) Invoke(ctx context.Context, inv capability.Invocation) (*capability.Result, error) {
	roadmap := session.Roadmap{
		Milestones: buildMilestones(inv.State),
		Sprints:    buildSprints(inv.State.Requirements),
	}
	roadmap.CriticalPath = criticalPathGantt(roadmap.Sprints)

	outcome := a.deps.Review.Run(ctx, func(_ context.Context, _ review.Input) (string, error) {
		return renderRoadmapReply(roadmap), nil
	}, review.Input{
		Prompt: inv.Utterance,
	}, nil)

	if outcome.Degraded {
		a.deps.Logger.Warn("roadmap reply accepted degraded",
			zap.String("session_id", inv.SessionID),
			zap.Float64("score", outcome.Review.Score),
		)
	}

	phase := session.PhasePlanningComplete
	return &capability.Result{
		Content: outcome.Output,
		Delta: session.Delta{
			Phase:   &phase,
			Roadmap: &roadmap,
		},
		Metadata: reviewMetadata(capability.ExecutionPlanner, outcome),
	}, nil
}

func buildMilestones(state *session.State) []session.Milestone {
	stack := state.Architecture.TechStack
	foundation := session.Milestone{
		Name:        "Foundation",
		Description: "project scaffolding, CI, and core infrastructure",
		Deliverables: []string{
			"repository and CI pipeline",
			"database schema migration baseline",
		},
	}
	if infra, ok := stack["infrastructure"]; ok {
		foundation.Deliverables = append(foundation.Deliverables, infra+" environment")
	}

	core := session.Milestone{
		Name:        "Core features",
		Description: "the functional requirements, end to end",
	}
	for _, f := range state.Requirements.Functional {
		core.Deliverables = append(core.Deliverables, firstWords(f, 8))
	}

	launch := session.Milestone{
		Name:        "Launch",
		Description: "hardening, quality gates, and release",
		Deliverables: []string{
			"load and security testing",
			"production deployment",
		},
	}
	return []session.Milestone{foundation, core, launch}
}

func buildSprints(req session.Requirements) []session.Sprint {
	sprints := []session.Sprint{{
		Number: 1,
		Goal:   "project setup and walking skeleton",
		Tasks:  []string{"scaffold repositories", "wire CI", "deploy hello-world slice"},
	}}

	for i := 0; i < len(req.Functional); i += sprintSize {
		end := i + sprintSize
		if end > len(req.Functional) {
			end = len(req.Functional)
		}
		sprint := session.Sprint{
			Number: len(sprints) + 1,
			Goal:   fmt.Sprintf("deliver features %d-%d", i+1, end),
		}
		for _, f := range req.Functional[i:end] {
			sprint.Tasks = append(sprint.Tasks, "implement "+firstWords(f, 8))
		}
		sprints = append(sprints, sprint)
	}

	sprints = append(sprints, session.Sprint{
		Number: len(sprints) + 1,
		Goal:   "hardening and launch",
		Tasks:  []string{"fix review findings", "run launch checklist"},
	})
	return sprints
}

// criticalPathGantt renders the sprint sequence as a mermaid gantt chart,
// one week per sprint.
func criticalPathGantt(sprints []session.Sprint) string {
	var b strings.Builder
	b.WriteString("gantt\n    title Critical path\n    dateFormat X\n    axisFormat Sprint %s\n")
	for _, s := range sprints {
		fmt.Fprintf(&b, "    %s :s%d, %d, 1\n", firstWords(s.Goal, 4), s.Number, s.Number-1)
	}
	return b.String()
}

func renderRoadmapReply(roadmap session.Roadmap) string {
	var b strings.Builder
	b.WriteString("Here is the execution plan.\n\nMilestones:\n")
	for _, m := range roadmap.Milestones {
		fmt.Fprintf(&b, "- %s: %s\n", m.Name, m.Description)
		for _, d := range m.Deliverables {
			fmt.Fprintf(&b, "  - %s\n", d)
		}
	}
	b.WriteString("\nSprints:\n")
	for _, s := range roadmap.Sprints {
		fmt.Fprintf(&b, "- Sprint %d: %s\n", s.Number, s.Goal)
		for _, t := range s.Tasks {
			fmt.Fprintf(&b, "  - %s\n", t)
		}
	}
	b.WriteString("\nCritical path:\n```mermaid\n")
	b.WriteString(roadmap.CriticalPath)
	b.WriteString("```\n")
	return b.String()
}
