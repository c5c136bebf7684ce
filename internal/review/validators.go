package review

import (
	"strings"
)

// Criterion names accepted in the weighted criteria map.
const (
	CriterionFeasibility  = "feasibility"
	CriterionClarity      = "clarity"
	CriterionCompleteness = "completeness"
	CriterionConsistency  = "consistency"
)

// feasibilityValidator rejects empty output outright.
type feasibilityValidator struct{}

func (feasibilityValidator) Name() string { return CriterionFeasibility }

func (feasibilityValidator) Check(output string, _ map[string]string) (float64, []string) {
	if strings.TrimSpace(output) == "" {
		return 0.0, []string{"output is empty"}
	}
	return 1.0, nil
}

// clarityValidator penalizes placeholder markers left in the output.
type clarityValidator struct{}

func (clarityValidator) Name() string { return CriterionClarity }

var placeholderMarkers = []string{"TODO", "TBD", "FIXME", "???", "lorem ipsum"}

func (clarityValidator) Check(output string, _ map[string]string) (float64, []string) {
	if strings.TrimSpace(output) == "" {
		return 0.0, []string{"output is blank"}
	}
	score := 1.0
	var issues []string
	lowered := strings.ToLower(output)
	for _, marker := range placeholderMarkers {
		if strings.Contains(lowered, strings.ToLower(marker)) {
			score -= 0.2
			issues = append(issues, "placeholder marker present: "+marker)
		}
	}
	if score < 0 {
		score = 0
	}
	return score, issues
}

// completenessValidator checks for minimal structural substance.
type completenessValidator struct{}

func (completenessValidator) Name() string { return CriterionCompleteness }

const minOutputWords = 5

func (completenessValidator) Check(output string, _ map[string]string) (float64, []string) {
	words := strings.Fields(output)
	if len(words) == 0 {
		return 0.0, []string{"output has no content"}
	}
	if len(words) < minOutputWords {
		return 0.4, []string{"output lacks detail"}
	}
	return 1.0, nil
}

// consistencyValidator checks the output against the invocation context:
// a context entry the output directly contradicts (same key announced with
// a different value) raises an issue.
type consistencyValidator struct{}

func (consistencyValidator) Name() string { return CriterionConsistency }

func (consistencyValidator) Check(output string, context map[string]string) (float64, []string) {
	if len(context) == 0 {
		return 1.0, nil
	}
	lowered := strings.ToLower(output)
	score := 1.0
	var issues []string
	for key, value := range context {
		if value == "" {
			continue
		}
		// The output mentions the concern but not the agreed value.
		if strings.Contains(lowered, strings.ToLower(key)+":") &&
			!strings.Contains(lowered, strings.ToLower(value)) {
			score -= 0.25
			issues = append(issues, "output contradicts context value for "+key)
		}
	}
	if score < 0 {
		score = 0
	}
	return score, issues
}
