package agents

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mentord/internal/capability"
	"github.com/fyrsmithlabs/mentord/internal/diagram"
	"github.com/fyrsmithlabs/mentord/internal/review"
	"github.com/fyrsmithlabs/mentord/internal/session"
)

type projectArchitect struct {
	deps Deps
}

func newProjectArchitect(deps Deps) *projectArchitect {
	return &projectArchitect{deps: deps}
}

func (a *projectArchitect) ID() string { return capability.ProjectArchitect }

// Invoke derives a technology stack, API surface, data schema, and system
// diagram from the collected requirements.
func (a *projectArchitect) Invoke(ctx context.Context, inv capability.Invocation) (*capability.Result, error) {
	req := inv.State.Requirements

	arch := session.Architecture{
		TechStack:          chooseTechStack(req),
		DeploymentStrategy: "containerized deployment behind a reverse proxy",
	}
	arch.TechStackRationale = stackRationale(arch.TechStack, req)
	arch.APIDesign = designAPI(req)
	arch.DataSchema = a.deps.Diagrams.Generate(diagram.KindER, projectContext(inv), nil)

	hint := a.syntaxHint(ctx, "flowchart system context diagram")
	arch.SystemDiagram = diagram.ValidatedGenerate(ctx, a.deps.Diagrams, a.deps.Validator,
		diagram.KindSystemContext, projectContext(inv)+hint, participantsFor(arch.TechStack), 2)

	outcome := a.deps.Review.Run(ctx, func(_ context.Context, _ review.Input) (string, error) {
		return renderArchitectureReply(arch), nil
	}, review.Input{
		Prompt:  inv.Utterance,
		Context: map[string]string{"backend": arch.TechStack["backend"]},
	}, map[string]float64{review.CriterionFeasibility: 2})

	if outcome.Degraded {
		a.deps.Logger.Warn("architecture reply accepted degraded",
			zap.String("session_id", inv.SessionID),
			zap.Float64("score", outcome.Review.Score),
		)
	}

	phase := session.PhaseArchitectureComplete
	return &capability.Result{
		Content: outcome.Output,
		Delta: session.Delta{
			Phase:        &phase,
			Architecture: &arch,
		},
		Metadata: reviewMetadata(capability.ProjectArchitect, outcome),
	}, nil
}

// syntaxHint pulls the closest mermaid syntax reference chunk so diagram
// retries have documentation to lean on. Degrades to empty without a store.
func (a *projectArchitect) syntaxHint(ctx context.Context, query string) string {
	if a.deps.Retrieval == nil {
		return ""
	}
	results := a.deps.Retrieval.Query(ctx, query, 1)
	if len(results) == 0 {
		return ""
	}
	return " " + firstWords(results[0].Content, 20)
}

// chooseTechStack maps requirement constraints onto a concrete stack,
// falling back to the house default when nothing is pinned.
func chooseTechStack(req session.Requirements) map[string]string {
	stack := map[string]string{
		"frontend":       "React",
		"backend":        "Go (Echo)",
		"database":       "PostgreSQL",
		"infrastructure": "Docker",
	}
	joined := strings.ToLower(strings.Join(req.Constraints, " ") + " " + strings.Join(req.Functional, " "))

	switch {
	case strings.Contains(joined, "python"):
		stack["backend"] = "Python (FastAPI)"
	case strings.Contains(joined, "node"):
		stack["backend"] = "Node.js (Express)"
	}
	switch {
	case strings.Contains(joined, "vue"):
		stack["frontend"] = "Vue"
	case strings.Contains(joined, "mobile"):
		stack["frontend"] = "React Native"
	}
	switch {
	case strings.Contains(joined, "mongodb"):
		stack["database"] = "MongoDB"
	case strings.Contains(joined, "mysql"):
		stack["database"] = "MySQL"
	}
	if strings.Contains(joined, "kubernetes") {
		stack["infrastructure"] = "Kubernetes"
	}
	return stack
}

func stackRationale(stack map[string]string, req session.Requirements) string {
	parts := []string{
		fmt.Sprintf("%s pairs a productive frontend with a %s backend", stack["frontend"], stack["backend"]),
		fmt.Sprintf("%s covers the persistence needs", stack["database"]),
	}
	if containsAny(strings.Join(req.NonFunctional, " "), "scalab", "availab") {
		parts = append(parts, fmt.Sprintf("%s keeps scaling operational rather than architectural", stack["infrastructure"]))
	}
	return strings.Join(parts, "; ") + "."
}

// designAPI derives a small REST surface: standard project CRUD plus one
// resource per captured functional requirement.
func designAPI(req session.Requirements) []session.APIEndpoint {
	endpoints := []session.APIEndpoint{
		{Method: "POST", Path: "/api/v1/auth/login", Description: "authenticate and issue a session token"},
		{Method: "GET", Path: "/api/v1/projects", Description: "list projects"},
		{Method: "POST", Path: "/api/v1/projects", Description: "create a project"},
	}
	seen := map[string]bool{}
	for _, f := range req.Functional {
		slug := slugify(firstWords(f, 3))
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		endpoints = append(endpoints, session.APIEndpoint{
			Method:      "POST",
			Path:        "/api/v1/" + slug,
			Description: "handle: " + firstWords(f, 8),
		})
		if len(seen) >= 5 {
			break
		}
	}
	return endpoints
}

func participantsFor(stack map[string]string) []string {
	return []string{"User", stack["frontend"], stack["backend"], stack["database"]}
}

func projectContext(inv capability.Invocation) string {
	if inv.State.ProjectName != "" {
		return inv.State.ProjectName
	}
	return firstWords(inv.Utterance, 6)
}

func renderArchitectureReply(arch session.Architecture) string {
	var b strings.Builder
	b.WriteString("Here is the proposed architecture.\n\nTech stack:\n")
	for _, layer := range []string{"frontend", "backend", "database", "infrastructure"} {
		if v, ok := arch.TechStack[layer]; ok {
			fmt.Fprintf(&b, "- %s: %s\n", titleWords(layer), v)
		}
	}
	fmt.Fprintf(&b, "\nRationale: %s\n", arch.TechStackRationale)

	b.WriteString("\nAPI design:\n")
	for _, ep := range arch.APIDesign {
		fmt.Fprintf(&b, "- %s %s - %s\n", ep.Method, ep.Path, ep.Description)
	}

	b.WriteString("\nSystem context:\n")
	b.WriteString(diagram.FencedBlock(arch.SystemDiagram))
	b.WriteString("\nData schema:\n")
	b.WriteString(diagram.FencedBlock(arch.DataSchema))
	fmt.Fprintf(&b, "\nDeployment: %s\n", arch.DeploymentStrategy)
	return b.String()
}
