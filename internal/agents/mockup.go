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

// maxScreens bounds how many mockup screens one turn produces.
const maxScreens = 4

type mockupAgent struct {
	deps Deps
}

func newMockupAgent(deps Deps) *mockupAgent {
	return &mockupAgent{deps: deps}
}

func (a *mockupAgent) ID() string { return capability.MockupAgent }

// Invoke derives screens from the functional requirements and produces a
// wireframe plus user-flow diagram for each.
func (a *mockupAgent) Invoke(ctx context.Context, inv capability.Invocation) (*capability.Result, error) {
	screens := deriveScreens(inv.State.Requirements)

	mockups := make([]session.Mockup, 0, len(screens))
	for i, screen := range screens {
		flowContext := screen
		if i+1 < len(screens) {
			flowContext = screen + " to " + screens[i+1]
		}
		mockups = append(mockups, session.Mockup{
			ScreenName:    screen,
			WireframeCode: wireframe(screen),
			UserFlow: diagram.ValidatedGenerate(ctx, a.deps.Diagrams, a.deps.Validator,
				diagram.KindFlow, flowContext, nil, 2),
			Interactions: screenInteractions(screen),
		})
	}

	outcome := a.deps.Review.Run(ctx, func(_ context.Context, _ review.Input) (string, error) {
		return renderMockupReply(mockups), nil
	}, review.Input{
		Prompt: inv.Utterance,
	}, map[string]float64{review.CriterionClarity: 2})

	if outcome.Degraded {
		a.deps.Logger.Warn("mockup reply accepted degraded",
			zap.String("session_id", inv.SessionID),
			zap.Float64("score", outcome.Review.Score),
		)
	}

	phase := session.PhaseMockupsComplete
	return &capability.Result{
		Content: outcome.Output,
		Delta: session.Delta{
			Phase:   &phase,
			Mockups: mockups,
		},
		Metadata: reviewMetadata(capability.MockupAgent, outcome),
	}, nil
}

// deriveScreens names one screen per functional requirement, always leading
// with Home.
func deriveScreens(req session.Requirements) []string {
	screens := []string{"Home"}
	seen := map[string]bool{"Home": true}
	for _, f := range req.Functional {
		name := titleWords(firstWords(f, 3))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		screens = append(screens, name)
		if len(screens) == maxScreens {
			break
		}
	}
	return screens
}

// wireframe draws a fixed-width ASCII frame for a screen.
func wireframe(screen string) string {
	const width = 38
	label := screen
	if len(label) > width-4 {
		label = label[:width-4]
	}
	pad := width - 4 - len(label)
	left := pad / 2

	var b strings.Builder
	border := "+" + strings.Repeat("-", width-2) + "+"
	b.WriteString(border + "\n")
	fmt.Fprintf(&b, "| %s%s%s |\n", strings.Repeat(" ", left), label, strings.Repeat(" ", pad-left))
	b.WriteString("|" + strings.Repeat("=", width-2) + "|\n")
	for i := 0; i < 3; i++ {
		b.WriteString("| [ .............................. ] |\n")
	}
	b.WriteString("|" + strings.Repeat(" ", width-12) + "[ Action ] |\n")
	b.WriteString(border)
	return b.String()
}

func screenInteractions(screen string) []string {
	return []string{
		"tap primary action on " + screen,
		"navigate back from " + screen,
	}
}

func renderMockupReply(mockups []session.Mockup) string {
	var b strings.Builder
	fmt.Fprintf(&b, "I've sketched %d screens.\n", len(mockups))
	for _, m := range mockups {
		fmt.Fprintf(&b, "\n%s:\n```\n%s\n```\n", m.ScreenName, m.WireframeCode)
		b.WriteString("User flow:\n")
		b.WriteString(diagram.FencedBlock(m.UserFlow))
	}
	b.WriteString("\nHappy to iterate on any screen before we plan the build.\n")
	return b.String()
}
