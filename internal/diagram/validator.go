package diagram

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Validator checks Mermaid syntax. ok=false with a non-empty issue means
// the syntax is wrong; a validator that cannot run must accept rather than
// block the pipeline.
type Validator interface {
	Validate(ctx context.Context, source string) (ok bool, issue string)
}

// NopValidator accepts everything. Used when external validation is
// disabled.
type NopValidator struct{}

func (NopValidator) Validate(ctx context.Context, source string) (bool, string) {
	return true, ""
}

// CLIValidator compiles diagrams with mermaid-cli (mmdc via npx). When the
// tool is missing, times out, or fails to start, validation is skipped and
// the diagram accepted: an unavailable checker must never block generation.
type CLIValidator struct {
	timeout time.Duration
	logger  *zap.Logger
}

// NewCLIValidator creates a mermaid-cli validator. A non-positive timeout
// defaults to 30 seconds.
func NewCLIValidator(timeout time.Duration, logger *zap.Logger) *CLIValidator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CLIValidator{timeout: timeout, logger: logger}
}

// Validate compiles the source with mmdc.
func (v *CLIValidator) Validate(ctx context.Context, source string) (bool, string) {
	if strings.TrimSpace(source) == "" {
		return false, "diagram source is empty"
	}

	npx, err := exec.LookPath("npx")
	if err != nil {
		return true, "" // tool unavailable, skip validation
	}

	dir, err := os.MkdirTemp("", "mermaid_validate_")
	if err != nil {
		return true, ""
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "diagram.mmd")
	output := filepath.Join(dir, "out.svg")
	if err := os.WriteFile(input, []byte(source), 0o600); err != nil {
		return true, ""
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, npx, "-y", "@mermaid-js/mermaid-cli", "-i", input, "-o", output)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if ctx.Err() != nil {
		v.logger.Debug("mermaid validation timed out, accepting diagram")
		return true, ""
	}
	if err == nil {
		return true, ""
	}

	issue := strings.TrimSpace(string(out))
	if issue == "" {
		issue = "mermaid parser reported a syntax error"
	}
	return false, issue
}

// ValidatedGenerate produces a diagram of the given kind and runs it
// through the validator, retrying with corrective context a bounded number
// of times before falling back to the deterministic generator. It never
// fails.
func ValidatedGenerate(ctx context.Context, g *Generator, v Validator, kind Kind, contextText string, participants []string, attempts int) string {
	if v == nil {
		v = NopValidator{}
	}
	if attempts <= 0 {
		attempts = 2
	}

	hint := contextText
	for i := 0; i < attempts; i++ {
		source := g.Generate(kind, hint, participants)
		ok, issue := v.Validate(ctx, source)
		if ok {
			return source
		}
		// Fold the parse error into the context so the next attempt renders
		// a simpler label.
		hint = fmt.Sprintf("%s (previous syntax issue: %s)", safeLabel(contextText, 40), safeLabel(issue, 40))
	}
	return g.Fallback(kind, contextText)
}
