// Package diagram generates Mermaid diagram text and validates it against
// an external syntax checker when one is available.
package diagram

import (
	"fmt"
	"strings"
)

// Kind selects the diagram family to generate.
type Kind string

const (
	KindSystemContext Kind = "system_context"
	KindER            Kind = "entity_relationship"
	KindSequence      Kind = "sequence"
	KindFlow          Kind = "flow"
)

// Generator produces Mermaid source from structured inputs. Output is
// deterministic for identical input.
type Generator struct{}

// NewGenerator creates a diagram generator.
func NewGenerator() *Generator { return &Generator{} }

// Generate returns Mermaid source for the given kind. participants, when
// fewer than four, fall back to the standard User/Frontend/API/Database
// roles.
func (g *Generator) Generate(kind Kind, context string, participants []string) string {
	nodes := defaultParticipants(participants)
	label := safeLabel(context, 72)

	switch kind {
	case KindSystemContext:
		return fmt.Sprintf(
			"flowchart TD\n"+
				"  U[%s] --> F[%s]\n"+
				"  F --> A[%s]\n"+
				"  A --> D[%s]\n"+
				"  A -. context .-> C[%s]",
			nodes[0], nodes[1], nodes[2], nodes[3], label)

	case KindER:
		return fmt.Sprintf(
			"erDiagram\n"+
				"  USERS ||--o{ PROJECTS : owns\n"+
				"  PROJECTS ||--o{ TASKS : contains\n"+
				"  USERS ||--o{ TASKS : creates\n"+
				"  PROJECTS { string context \"%s\" }",
			label)

	case KindSequence:
		return fmt.Sprintf(
			"sequenceDiagram\n"+
				"  participant %[1]s\n"+
				"  participant %[2]s\n"+
				"  participant %[3]s\n"+
				"  participant %[4]s\n"+
				"  %[1]s->>%[2]s: Submit request\n"+
				"  %[2]s->>%[3]s: API call\n"+
				"  %[3]s->>%[4]s: Query data\n"+
				"  %[4]s-->>%[3]s: Result\n"+
				"  %[3]s-->>%[2]s: Response",
			nodes[0], nodes[1], nodes[2], nodes[3])

	case KindFlow:
		return flowchart(label, participants)
	}

	return fmt.Sprintf("flowchart LR\n  A[Unsupported diagram kind: %s]", kind)
}

// Fallback is the deterministic non-adaptive diagram used when validated
// generation exhausts its retries.
func (g *Generator) Fallback(kind Kind, context string) string {
	label := safeLabel(context, 72)
	switch kind {
	case KindER:
		return "erDiagram\n  USERS ||--o{ PROJECTS : owns"
	case KindSequence:
		return "sequenceDiagram\n  participant User\n  participant System\n  User->>System: Request\n  System-->>User: Response"
	default:
		return fmt.Sprintf("flowchart LR\n  A[%s] --> B[System]", label)
	}
}

// FencedBlock wraps Mermaid source in a markdown code fence.
func FencedBlock(source string) string {
	return "```mermaid\n" + source + "\n```"
}

// flowchart renders a linear user flow through the named steps.
func flowchart(label string, steps []string) string {
	var b strings.Builder
	b.WriteString("flowchart LR\n")
	if len(steps) == 0 {
		fmt.Fprintf(&b, "  A[%s]", label)
		return b.String()
	}
	for i, step := range steps {
		if i > 0 {
			b.WriteString(" --> ")
		} else {
			b.WriteString("  ")
		}
		fmt.Fprintf(&b, "S%d[%s]", i, safeNode(step))
	}
	return b.String()
}

func defaultParticipants(participants []string) [4]string {
	nodes := [4]string{"User", "Frontend", "API", "Database"}
	for i := 0; i < len(participants) && i < 4; i++ {
		if n := safeNode(participants[i]); n != "Node" {
			nodes[i] = n
		}
	}
	return nodes
}

// safeNode strips characters that break Mermaid node syntax.
func safeNode(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r == '_' || r == ' ' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	cleaned := strings.TrimSpace(b.String())
	if cleaned == "" {
		return "Node"
	}
	return cleaned
}

func safeLabel(value string, limit int) string {
	cleaned := strings.Join(strings.Fields(value), " ")
	cleaned = strings.ReplaceAll(cleaned, `"`, "'")
	if cleaned == "" {
		return "Project context"
	}
	if len(cleaned) > limit {
		cleaned = cleaned[:limit]
	}
	return cleaned
}
