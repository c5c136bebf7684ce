package diagram

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSystemContext(t *testing.T) {
	g := NewGenerator()

	source := g.Generate(KindSystemContext, "task tracker", []string{"User", "React", "Go (Echo)", "PostgreSQL"})

	assert.True(t, strings.HasPrefix(source, "flowchart TD"))
	assert.Contains(t, source, "React")
	// Parentheses are stripped from node names to keep the syntax valid.
	assert.Contains(t, source, "Go Echo")
	assert.Contains(t, source, "task tracker")
}

func TestGenerateIsDeterministic(t *testing.T) {
	g := NewGenerator()

	for _, kind := range []Kind{KindSystemContext, KindER, KindSequence, KindFlow} {
		first := g.Generate(kind, "ctx", []string{"A", "B"})
		assert.Equal(t, first, g.Generate(kind, "ctx", []string{"A", "B"}), string(kind))
	}
}

func TestGenerateERQuotesContext(t *testing.T) {
	g := NewGenerator()

	source := g.Generate(KindER, `a "quoted" idea`, nil)
	assert.True(t, strings.HasPrefix(source, "erDiagram"))
	assert.NotContains(t, source, `"quoted"`)
	assert.Contains(t, source, "'quoted'")
}

func TestGenerateFlowChainsSteps(t *testing.T) {
	g := NewGenerator()

	source := g.Generate(KindFlow, "signup", []string{"Home", "Sign Up", "Dashboard"})
	assert.Equal(t, "flowchart LR\n  S0[Home] --> S1[Sign Up] --> S2[Dashboard]", source)
}

func TestDefaultParticipantsFill(t *testing.T) {
	nodes := defaultParticipants([]string{"Customer"})
	assert.Equal(t, [4]string{"Customer", "Frontend", "API", "Database"}, nodes)
}

func TestSafeLabelTruncatesAndCleans(t *testing.T) {
	long := strings.Repeat("word ", 40)
	assert.LessOrEqual(t, len(safeLabel(long, 72)), 72)
	assert.Equal(t, "Project context", safeLabel("   ", 72))
}

// scriptedValidator fails a fixed number of times before accepting.
type scriptedValidator struct {
	failures int
	calls    int
}

func (v *scriptedValidator) Validate(_ context.Context, _ string) (bool, string) {
	v.calls++
	if v.calls <= v.failures {
		return false, "Parse error on line 2"
	}
	return true, ""
}

func TestValidatedGenerateRetriesThenSucceeds(t *testing.T) {
	g := NewGenerator()
	v := &scriptedValidator{failures: 1}

	source := ValidatedGenerate(context.Background(), g, v, KindSystemContext, "task tracker", nil, 3)

	assert.Equal(t, 2, v.calls)
	// The retry folds the issue into the label rather than falling back.
	assert.Contains(t, source, "previous syntax issue")
}

func TestValidatedGenerateFallsBackAfterExhaustion(t *testing.T) {
	g := NewGenerator()
	v := &scriptedValidator{failures: 99}

	source := ValidatedGenerate(context.Background(), g, v, KindER, "task tracker", nil, 2)

	assert.Equal(t, 2, v.calls)
	assert.Equal(t, g.Fallback(KindER, "task tracker"), source)
}

func TestValidatedGenerateNilValidatorAccepts(t *testing.T) {
	g := NewGenerator()

	source := ValidatedGenerate(context.Background(), g, nil, KindSequence, "ctx", nil, 2)
	require.True(t, strings.HasPrefix(source, "sequenceDiagram"))
}

func TestCLIValidatorRejectsEmptySource(t *testing.T) {
	v := NewCLIValidator(0, nil)

	ok, issue := v.Validate(context.Background(), "   ")
	assert.False(t, ok)
	assert.NotEmpty(t, issue)
}

func TestFencedBlock(t *testing.T) {
	assert.Equal(t, "```mermaid\nflowchart LR\n```", FencedBlock("flowchart LR"))
}
