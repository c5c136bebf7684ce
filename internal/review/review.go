// Package review implements the generic multi-criterion validation and
// bounded-retry self-correction loop wrapped around capability generation.
package review

import (
	"context"

	"go.uber.org/zap"
)

// DefaultMinScore is the combined score an output must reach to be valid.
const DefaultMinScore = 0.75

// MaxAttempts caps the generate-validate loop, including the first attempt.
const MaxAttempts = 3

// Result is the outcome of one validation pass.
type Result struct {
	Valid           bool               `json:"valid"`
	Score           float64            `json:"score"`
	Feedback        []string           `json:"feedback,omitempty"`
	CriterionScores map[string]float64 `json:"criterion_scores"`
}

// Validator scores one quality dimension of an output, returning a score in
// [0, 1] and zero or more concrete issue strings.
type Validator interface {
	Name() string
	Check(output string, context map[string]string) (float64, []string)
}

// Protocol runs the fixed validator set and combines scores by weighted
// average.
type Protocol struct {
	minScore   float64
	validators []Validator
	logger     *zap.Logger
}

// NewProtocol creates a protocol with the standard validator set. A
// non-positive minScore selects DefaultMinScore.
func NewProtocol(minScore float64, logger *zap.Logger) *Protocol {
	if minScore <= 0 {
		minScore = DefaultMinScore
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Protocol{
		minScore: minScore,
		validators: []Validator{
			feasibilityValidator{},
			clarityValidator{},
			completenessValidator{},
			consistencyValidator{},
		},
		logger: logger,
	}
}

// Validate runs every validator and combines the scores. criteria maps
// validator names to weights; validators without a declared weight get
// equal weight 1, and the average is normalized by the weight actually
// used. Output is valid iff the combined score meets the minimum and no
// validator raised an issue.
func (p *Protocol) Validate(output string, contextInfo map[string]string, criteria map[string]float64) Result {
	scores := make(map[string]float64, len(p.validators))
	var feedback []string

	weighted := 0.0
	weightSum := 0.0
	for _, v := range p.validators {
		score, issues := v.Check(output, contextInfo)
		scores[v.Name()] = score
		feedback = append(feedback, issues...)

		weight := 1.0
		if w, ok := criteria[v.Name()]; ok && w > 0 {
			weight = w
		}
		weighted += weight * score
		weightSum += weight
	}

	combined := 0.0
	if weightSum > 0 {
		combined = weighted / weightSum
	}

	return Result{
		Valid:           combined >= p.minScore && len(feedback) == 0,
		Score:           combined,
		Feedback:        feedback,
		CriterionScores: scores,
	}
}

// Input is one generation attempt's input. On retries PriorOutput and
// Feedback carry the failed output and the validators' issues forward.
type Input struct {
	Prompt      string
	Context     map[string]string
	PriorOutput string
	Feedback    []string
}

// Generator produces one candidate output for an input.
type Generator func(ctx context.Context, input Input) (string, error)

// Outcome is the result of the bounded generate-validate loop.
type Outcome struct {
	Output   string
	Review   Result
	Degraded bool
	Failures int
	Attempts int
}

// Run drives the self-correction loop: generate, validate, and on an
// invalid result feed the failed output plus concrete feedback into the
// next attempt. After MaxAttempts the last output is returned tagged
// degraded; Run never returns an error.
func (p *Protocol) Run(ctx context.Context, gen Generator, input Input, criteria map[string]float64) Outcome {
	var output string
	var result Result

	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		candidate, err := gen(ctx, input)
		if err != nil {
			p.logger.Warn("generation attempt failed",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			result = Result{Feedback: []string{"generation failed: " + err.Error()}}
			input.PriorOutput = output
			input.Feedback = result.Feedback
			continue
		}
		output = candidate

		result = p.Validate(output, input.Context, criteria)
		if result.Valid {
			return Outcome{Output: output, Review: result, Attempts: attempt}
		}

		p.logger.Debug("review rejected output",
			zap.Int("attempt", attempt),
			zap.Float64("score", result.Score),
			zap.Strings("feedback", result.Feedback),
		)
		input.PriorOutput = output
		input.Feedback = result.Feedback
	}

	return Outcome{
		Output:   output,
		Review:   result,
		Degraded: true,
		Failures: MaxAttempts,
		Attempts: MaxAttempts,
	}
}
