// Package export renders session artifacts into a Markdown bundle.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fyrsmithlabs/mentord/internal/diagram"
	"github.com/fyrsmithlabs/mentord/internal/session"
)

// FormatMarkdown renders the full session state into one Markdown document.
// Sections with no content are omitted.
func FormatMarkdown(state *session.State) string {
	var b strings.Builder

	title := state.ProjectName
	if title == "" {
		title = "Project " + state.ID
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "Phase: %s\n", state.Phase)

	if !state.Requirements.Empty() {
		b.WriteString("\n## Requirements\n")
		writeList(&b, "Functional", state.Requirements.Functional)
		writeList(&b, "Non-functional", state.Requirements.NonFunctional)
		writeList(&b, "Constraints", state.Requirements.Constraints)
		writeList(&b, "User stories", state.Requirements.UserStories)
		writeList(&b, "Open questions", state.Requirements.Gaps)
	}

	if !state.Architecture.Empty() {
		b.WriteString("\n## Architecture\n")
		if len(state.Architecture.TechStack) > 0 {
			b.WriteString("\n### Tech stack\n\n")
			for _, layer := range orderedKeys(state.Architecture.TechStack) {
				fmt.Fprintf(&b, "- **%s**: %s\n", layer, state.Architecture.TechStack[layer])
			}
			if state.Architecture.TechStackRationale != "" {
				fmt.Fprintf(&b, "\n%s\n", state.Architecture.TechStackRationale)
			}
		}
		if state.Architecture.SystemDiagram != "" {
			b.WriteString("\n### System diagram\n\n")
			b.WriteString(diagram.FencedBlock(state.Architecture.SystemDiagram))
			b.WriteString("\n")
		}
		if state.Architecture.DataSchema != "" {
			b.WriteString("\n### Data schema\n\n")
			b.WriteString(diagram.FencedBlock(state.Architecture.DataSchema))
			b.WriteString("\n")
		}
		if len(state.Architecture.APIDesign) > 0 {
			b.WriteString("\n### API design\n\n")
			for _, ep := range state.Architecture.APIDesign {
				fmt.Fprintf(&b, "- `%s %s` - %s\n", ep.Method, ep.Path, ep.Description)
			}
		}
		if state.Architecture.DeploymentStrategy != "" {
			fmt.Fprintf(&b, "\n### Deployment\n\n%s\n", state.Architecture.DeploymentStrategy)
		}
	}

	if len(state.Mockups) > 0 {
		b.WriteString("\n## Mockups\n")
		for _, m := range state.Mockups {
			fmt.Fprintf(&b, "\n### %s\n\n", m.ScreenName)
			fmt.Fprintf(&b, "```\n%s\n```\n", m.WireframeCode)
			if m.UserFlow != "" {
				b.WriteString("\n")
				b.WriteString(diagram.FencedBlock(m.UserFlow))
				b.WriteString("\n")
			}
			writeList(&b, "Interactions", m.Interactions)
		}
	}

	if !state.Roadmap.Empty() {
		b.WriteString("\n## Roadmap\n")
		for _, m := range state.Roadmap.Milestones {
			fmt.Fprintf(&b, "\n### %s\n\n%s\n", m.Name, m.Description)
			writeList(&b, "Deliverables", m.Deliverables)
		}
		if len(state.Roadmap.Sprints) > 0 {
			b.WriteString("\n### Sprints\n\n")
			for _, sp := range state.Roadmap.Sprints {
				fmt.Fprintf(&b, "- Sprint %d: %s\n", sp.Number, sp.Goal)
				for _, t := range sp.Tasks {
					fmt.Fprintf(&b, "  - %s\n", t)
				}
			}
		}
		if state.Roadmap.CriticalPath != "" {
			b.WriteString("\n### Critical path\n\n")
			b.WriteString(diagram.FencedBlock(state.Roadmap.CriticalPath))
			b.WriteString("\n")
		}
	}

	return strings.TrimSpace(b.String()) + "\n"
}

// WriteBundle writes the rendered document to path, creating parent
// directories as needed.
func WriteBundle(path, content string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating export directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("writing export bundle: %w", err)
	}
	return nil
}

func writeList(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n**%s**\n\n", heading)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}

func orderedKeys(m map[string]string) []string {
	// Stable ordering for the common layers, then the rest alphabetically.
	preferred := []string{"frontend", "backend", "database", "infrastructure"}
	seen := make(map[string]bool, len(m))
	var keys []string
	for _, k := range preferred {
		if _, ok := m[k]; ok {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	var rest []string
	for k := range m {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	for i := 0; i < len(rest); i++ {
		for j := i + 1; j < len(rest); j++ {
			if rest[j] < rest[i] {
				rest[i], rest[j] = rest[j], rest[i]
			}
		}
	}
	return append(keys, rest...)
}
