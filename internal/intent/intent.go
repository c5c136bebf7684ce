// Package intent resolves a user utterance and session phase into a primary
// intent and the capabilities it calls for.
package intent

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mentord/internal/capability"
	"github.com/fyrsmithlabs/mentord/internal/session"
)

// Unknown is the intent reported when nothing matches.
const Unknown = "unknown"

// Manual is the intent label reported when the caller selected a capability
// explicitly; the resolver is bypassed entirely in that mode.
const Manual = "manual"

// Intent names known to the resolver.
const (
	RequirementsGathering = "requirements_gathering"
	ArchitectureDesign    = "architecture_design"
	MockupCreation        = "mockup_creation"
	ExecutionPlanning     = "execution_planning"
	Export                = "export"
)

// Result is the outcome of classification.
type Result struct {
	Primary      string   `json:"primary_intent"`
	Capabilities []string `json:"requested_capabilities"`
	Confidence   float64  `json:"confidence"`
}

// unknownResult is returned for empty utterances and zero-score matches.
func unknownResult() Result {
	return Result{Primary: Unknown, Capabilities: []string{}, Confidence: 0.0}
}

// pattern describes one known intent: the keywords and trigger phrases that
// vote for it, the phases it may fire in, and the capabilities it requests.
type pattern struct {
	name         string
	keywords     []string
	triggers     []string
	phases       []string
	capabilities []string
}

// catalog order breaks score ties, so the slice order is part of the contract.
var patterns = []pattern{
	{
		name:         RequirementsGathering,
		keywords:     []string{"need", "want", "goal", "problem", "user story"},
		triggers:     []string{"clarify", "what if", "constraints"},
		phases:       []string{session.PhaseInitialization, session.PhaseDiscovery},
		capabilities: []string{capability.RequirementsCollector},
	},
	{
		name:         ArchitectureDesign,
		keywords:     []string{"architecture", "tech stack", "database", "api"},
		triggers:     []string{"diagram", "structure", "how does"},
		phases:       []string{session.PhaseRequirementsComplete},
		capabilities: []string{capability.ProjectArchitect},
	},
	{
		name:         MockupCreation,
		keywords:     []string{"ui", "screen", "flow", "wireframe", "design"},
		triggers:     []string{"looks like", "user journey"},
		phases:       []string{session.PhaseRequirementsComplete},
		capabilities: []string{capability.MockupAgent},
	},
	{
		name:         ExecutionPlanning,
		keywords:     []string{"roadmap", "timeline", "milestone", "sprint"},
		triggers:     []string{"how long", "when", "priority"},
		phases:       []string{session.PhaseArchitectureComplete},
		capabilities: []string{capability.ExecutionPlanner},
	},
	{
		name:         Export,
		keywords:     []string{"export", "download", "document", "pdf"},
		triggers:     []string{"generate", "compile"},
		phases:       []string{capability.PhaseAny},
		capabilities: []string{capability.Exporter},
	},
}

func (p pattern) compatibleWith(phase string) bool {
	for _, ph := range p.phases {
		if ph == capability.PhaseAny || ph == phase {
			return true
		}
	}
	return false
}

// Classifier is an optional semantic classifier that can replace the
// rule-based path. On any failure the resolver falls back to rules;
// classification never aborts a request.
type Classifier interface {
	Classify(ctx context.Context, utterance, phase string) (Result, error)
}

// Resolver maps utterances to intents. The zero dependency configuration is
// purely rule-based.
type Resolver struct {
	classifier Classifier
	logger     *zap.Logger
}

// NewResolver creates a resolver. classifier may be nil.
func NewResolver(classifier Classifier, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{classifier: classifier, logger: logger}
}

// Resolve classifies the utterance for the current phase. It never returns
// an error: semantic-classifier failures fall back to the rules, and an
// unmatchable utterance resolves to the unknown intent.
func (r *Resolver) Resolve(ctx context.Context, utterance, phase string) Result {
	trimmed := strings.TrimSpace(utterance)
	if trimmed == "" {
		return unknownResult()
	}

	if r.classifier != nil {
		result, err := r.classifier.Classify(ctx, trimmed, phase)
		if err == nil && validResult(result) {
			return result
		}
		if err != nil {
			r.logger.Warn("semantic classifier failed, falling back to rules",
				zap.Error(err))
		} else {
			r.logger.Warn("semantic classifier returned malformed result, falling back to rules",
				zap.String("primary_intent", result.Primary))
		}
	}

	return resolveByRules(trimmed, phase)
}

// resolveByRules scores each phase-compatible intent by counting keyword and
// trigger hits in the lowercased utterance. Highest score wins; ties break
// by catalog order; zero score resolves to unknown.
func resolveByRules(utterance, phase string) Result {
	lowered := strings.ToLower(utterance)

	best := -1
	bestScore := 0
	for i, p := range patterns {
		if !p.compatibleWith(phase) {
			continue
		}
		score := 0
		for _, kw := range p.keywords {
			if strings.Contains(lowered, kw) {
				score++
			}
		}
		for _, tr := range p.triggers {
			if strings.Contains(lowered, tr) {
				score++
			}
		}
		if score > bestScore {
			best = i
			bestScore = score
		}
	}

	if best < 0 || bestScore == 0 {
		return unknownResult()
	}

	confidence := 0.3 + 0.2*float64(bestScore)
	if confidence > 1.0 {
		confidence = 1.0
	}
	p := patterns[best]
	return Result{
		Primary:      p.name,
		Capabilities: append([]string(nil), p.capabilities...),
		Confidence:   confidence,
	}
}

// validResult checks a semantic classifier's output for basic sanity before
// trusting it over the rule-based path.
func validResult(r Result) bool {
	if r.Primary == "" || r.Confidence < 0.0 || r.Confidence > 1.0 {
		return false
	}
	if r.Primary == Unknown {
		return true
	}
	for _, p := range patterns {
		if p.name == r.Primary {
			return true
		}
	}
	return false
}

// Known returns the intent names in catalog order.
func Known() []string {
	names := make([]string, len(patterns))
	for i, p := range patterns {
		names[i] = p.name
	}
	return names
}
