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

// clarifyingQuestions are the gap probes asked until the matching topic shows
// up in the collected requirements.
var clarifyingQuestions = []struct {
	topic    string
	keywords []string
	question string
}{
	{"users", []string{"user", "customer", "audience", "team"}, "Who are the primary users of this project?"},
	{"platform", []string{"web", "mobile", "desktop", "cli", "api"}, "Should this run on the web, mobile, desktop, or as an API?"},
	{"scale", []string{"scale", "concurrent", "traffic", "load"}, "Roughly how many users do you expect at launch?"},
	{"data", []string{"data", "store", "database", "persist"}, "What data does the project need to store?"},
}

type requirementsCollector struct {
	deps Deps
}

func newRequirementsCollector(deps Deps) *requirementsCollector {
	return &requirementsCollector{deps: deps}
}

func (a *requirementsCollector) ID() string { return capability.RequirementsCollector }

// Invoke extracts structured requirements from the utterance, merges them
// with what the session already holds, and answers with the remaining
// clarifying questions.
func (a *requirementsCollector) Invoke(ctx context.Context, inv capability.Invocation) (*capability.Result, error) {
	extracted := extractRequirements(inv.Utterance)

	combined := inv.State.Requirements
	combined.Functional = append(combined.Functional, extracted.Functional...)
	combined.NonFunctional = append(combined.NonFunctional, extracted.NonFunctional...)
	combined.Constraints = append(combined.Constraints, extracted.Constraints...)
	combined.UserStories = append(combined.UserStories, extracted.UserStories...)
	extracted.Gaps = openGaps(combined)

	outcome := a.deps.Review.Run(ctx, func(_ context.Context, in review.Input) (string, error) {
		return renderRequirementsReply(extracted, in.Feedback), nil
	}, review.Input{
		Prompt: inv.Utterance,
	}, map[string]float64{review.CriterionCompleteness: 2})

	if outcome.Degraded {
		a.deps.Logger.Warn("requirements reply accepted degraded",
			zap.String("session_id", inv.SessionID),
			zap.Float64("score", outcome.Review.Score),
		)
	}

	// Phase is left unset so the runner's transition map advances the
	// session to requirements_complete; remaining gaps stay in the reply
	// as clarifying questions without holding the phase back.
	return &capability.Result{
		Content: outcome.Output,
		Delta: session.Delta{
			Requirements: &extracted,
		},
		Metadata: reviewMetadata(capability.RequirementsCollector, outcome),
	}, nil
}

// extractRequirements pulls functional needs, non-functional qualities, and
// constraints out of one utterance with keyword heuristics.
func extractRequirements(utterance string) session.Requirements {
	var req session.Requirements
	trimmed := strings.TrimSpace(utterance)
	if trimmed == "" {
		return req
	}

	req.Functional = append(req.Functional, trimmed)

	lower := strings.ToLower(trimmed)
	nonFunctional := map[string]string{
		"fast":       "low latency under typical load",
		"secure":     "authentication and secure data handling",
		"scalable":   "horizontal scalability",
		"reliable":   "high availability",
		"offline":    "offline-capable client",
		"accessible": "accessibility compliance",
	}
	for _, keyword := range []string{"fast", "secure", "scalable", "reliable", "offline", "accessible"} {
		if strings.Contains(lower, keyword) {
			req.NonFunctional = append(req.NonFunctional, nonFunctional[keyword])
		}
	}

	for _, tech := range []string{"python", "go", "node", "react", "vue", "postgres", "mysql", "mongodb", "aws", "docker", "kubernetes"} {
		if strings.Contains(lower, tech) {
			req.Constraints = append(req.Constraints, "must use "+tech)
		}
	}
	for _, limit := range []string{"budget", "deadline", "compliance", "gdpr"} {
		if strings.Contains(lower, limit) {
			req.Constraints = append(req.Constraints, limit+" constraint mentioned")
		}
	}

	req.UserStories = append(req.UserStories,
		fmt.Sprintf("As a user, I want %s so that my goal is met.", strings.ToLower(firstWords(trimmed, 12))))
	return req
}

// openGaps returns the clarifying questions whose topic is not yet covered
// anywhere in the collected requirements.
// Generated user stories always mention "a user", so they are excluded from
// the coverage corpus.
func openGaps(req session.Requirements) []string {
	var corpus strings.Builder
	for _, list := range [][]string{req.Functional, req.NonFunctional, req.Constraints} {
		for _, item := range list {
			corpus.WriteString(strings.ToLower(item))
			corpus.WriteByte(' ')
		}
	}
	text := corpus.String()

	var gaps []string
	for _, q := range clarifyingQuestions {
		covered := false
		for _, kw := range q.keywords {
			if strings.Contains(text, kw) {
				covered = true
				break
			}
		}
		if !covered {
			gaps = append(gaps, q.question)
		}
	}
	return gaps
}

func renderRequirementsReply(req session.Requirements, _ []string) string {
	var b strings.Builder
	b.WriteString("I've captured the following requirements from your description.\n")
	if len(req.Functional) > 0 {
		b.WriteString("\nFunctional:\n")
		for _, f := range req.Functional {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}
	if len(req.NonFunctional) > 0 {
		b.WriteString("\nQuality attributes:\n")
		for _, f := range req.NonFunctional {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}
	if len(req.Constraints) > 0 {
		b.WriteString("\nConstraints:\n")
		for _, c := range req.Constraints {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}
	if len(req.Gaps) > 0 {
		b.WriteString("\nTo complete the picture, could you tell me:\n")
		for _, g := range req.Gaps {
			fmt.Fprintf(&b, "- %s\n", g)
		}
	} else {
		b.WriteString("\nRequirements look complete. Ready to design the architecture whenever you are.\n")
	}
	return b.String()
}
