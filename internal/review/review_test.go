package review

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newProtocol() *Protocol {
	return NewProtocol(0, zap.NewNop())
}

func TestValidateAcceptsSubstantiveOutput(t *testing.T) {
	p := newProtocol()

	result := p.Validate("The backend exposes a REST API with three endpoints for task management.", nil, nil)

	assert.True(t, result.Valid)
	assert.Empty(t, result.Feedback)
	assert.InDelta(t, 1.0, result.Score, 1e-9)
	assert.Len(t, result.CriterionScores, 4)
}

func TestValidateRejectsEmptyOutput(t *testing.T) {
	p := newProtocol()

	result := p.Validate("", nil, nil)

	assert.False(t, result.Valid)
	assert.NotEmpty(t, result.Feedback)
	assert.Zero(t, result.CriterionScores[CriterionFeasibility])
}

func TestValidateFlagsPlaceholders(t *testing.T) {
	p := newProtocol()

	result := p.Validate("The architecture is TODO but the rest is described here in detail.", nil, nil)

	assert.False(t, result.Valid)
	require.Len(t, result.Feedback, 1)
	assert.Contains(t, result.Feedback[0], "placeholder")
}

func TestValidateFlagsContextContradiction(t *testing.T) {
	p := newProtocol()

	result := p.Validate(
		"Backend: Node.js with Express, plus a relational database for persistence.",
		map[string]string{"backend": "Go (Echo)"},
		nil,
	)

	assert.False(t, result.Valid)
	require.NotEmpty(t, result.Feedback)
	assert.Contains(t, result.Feedback[0], "backend")
}

func TestValidateWeightedAverage(t *testing.T) {
	p := newProtocol()

	// Three words: completeness scores 0.4, the others score 1.0. With
	// completeness weighted 2, the combined score is (1+1+0.8+1)/5.
	result := p.Validate("short terse output", nil, map[string]float64{CriterionCompleteness: 2})

	assert.InDelta(t, 3.8/5.0, result.Score, 1e-9)
	assert.False(t, result.Valid)
}

func TestRunFirstAttemptValid(t *testing.T) {
	p := newProtocol()
	calls := 0

	outcome := p.Run(context.Background(), func(_ context.Context, in Input) (string, error) {
		calls++
		assert.Empty(t, in.Feedback)
		return "A thorough, well structured answer with plenty of concrete detail.", nil
	}, Input{Prompt: "describe"}, nil)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, outcome.Attempts)
	assert.False(t, outcome.Degraded)
	assert.True(t, outcome.Review.Valid)
}

func TestRunFeedsFeedbackForward(t *testing.T) {
	p := newProtocol()
	var feedbackSeen [][]string

	outcome := p.Run(context.Background(), func(_ context.Context, in Input) (string, error) {
		feedbackSeen = append(feedbackSeen, in.Feedback)
		if len(feedbackSeen) == 1 {
			return "Everything here is TBD until further notice from the team.", nil
		}
		return "The plan covers setup, implementation, and launch in three sprints.", nil
	}, Input{Prompt: "plan"}, nil)

	require.Len(t, feedbackSeen, 2)
	assert.Empty(t, feedbackSeen[0])
	require.NotEmpty(t, feedbackSeen[1])
	assert.Contains(t, feedbackSeen[1][0], "placeholder")
	assert.False(t, outcome.Degraded)
	assert.Equal(t, 2, outcome.Attempts)
}

func TestRunExhaustionIsDegradedNeverError(t *testing.T) {
	p := newProtocol()
	calls := 0

	outcome := p.Run(context.Background(), func(_ context.Context, _ Input) (string, error) {
		calls++
		return fmt.Sprintf("attempt %d is still TODO", calls), nil
	}, Input{Prompt: "describe"}, nil)

	assert.Equal(t, MaxAttempts, calls)
	assert.True(t, outcome.Degraded)
	assert.Equal(t, MaxAttempts, outcome.Failures)
	assert.Equal(t, MaxAttempts, outcome.Attempts)
	// The degraded outcome still carries the last output.
	assert.Contains(t, outcome.Output, "attempt 3")
}

func TestRunGeneratorErrorCountsAsFailedAttempt(t *testing.T) {
	p := newProtocol()
	calls := 0

	outcome := p.Run(context.Background(), func(_ context.Context, _ Input) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("transient failure")
		}
		return "A complete answer produced after the transient failure cleared.", nil
	}, Input{Prompt: "describe"}, nil)

	assert.Equal(t, 2, calls)
	assert.False(t, outcome.Degraded)
	assert.Equal(t, 2, outcome.Attempts)
	assert.True(t, outcome.Review.Valid)
}

func TestNewProtocolDefaultsMinScore(t *testing.T) {
	p := NewProtocol(0, nil)
	assert.InDelta(t, DefaultMinScore, p.minScore, 1e-9)

	strict := NewProtocol(0.9, nil)
	result := strict.Validate("short terse output", nil, nil)
	assert.False(t, result.Valid)
}
