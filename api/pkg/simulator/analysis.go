package simulator

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/helixml/agentbuilder/api/pkg/types"
)

const (
	maxSteps = 50
	// runs above this many credits get a cost optimization hint
	expensiveRunCredits = 10
)

// Validate checks instructions without a test target: unknown references
// are errors, lines that will not run as expected are warnings.
func Validate(instructions string) *types.ValidationResult {
	result := &types.ValidationResult{
		Errors:   []types.ValidationIssue{},
		Warnings: []types.ValidationIssue{},
	}

	lines := Parse(instructions)
	if len(lines) == 0 {
		result.Errors = append(result.Errors, types.ValidationIssue{
			Severity: types.IssueSeverityError,
			Message:  "Instructions are empty",
		})
	}

	for _, line := range lines {
		for _, ref := range FindReferences(line.Text) {
			if ref.Known() {
				continue
			}
			result.Errors = append(result.Errors, types.ValidationIssue{
				Severity:   types.IssueSeverityError,
				Message:    fmt.Sprintf("Unknown reference %s", ref.Raw),
				LineNumber: line.Number,
				Field:      ref.Raw,
			})
		}

		kind, ok := Classify(line.Text)
		switch {
		case !ok:
			result.Warnings = append(result.Warnings, types.ValidationIssue{
				Severity:   types.IssueSeverityWarning,
				Message:    "Line is not a recognized action and will be skipped",
				LineNumber: line.Number,
			})
		case kind == types.ActionKindWait:
			if _, ok := ParseWait(line.Text); !ok {
				result.Warnings = append(result.Warnings, types.ValidationIssue{
					Severity:   types.IssueSeverityWarning,
					Message:    fmt.Sprintf("Wait has no duration, defaults to %s", defaultWait),
					LineNumber: line.Number,
				})
			}
		}
	}

	if len(lines) > maxSteps {
		result.Warnings = append(result.Warnings, types.ValidationIssue{
			Severity: types.IssueSeverityWarning,
			Message:  fmt.Sprintf("%d steps is more than the recommended %d", len(lines), maxSteps),
		})
	}

	result.Summary = types.ValidationSummary{
		ErrorCount:   len(result.Errors),
		WarningCount: len(result.Warnings),
	}
	result.Valid = len(result.Errors) == 0
	return result
}

// Review grades instructions with rule-based feedback.
func Review(instructions string) *types.ReviewResult {
	result := &types.ReviewResult{
		Good:          []string{},
		Suggestions:   []string{},
		Optimizations: []string{},
	}

	lines := Parse(instructions)
	if len(lines) == 0 {
		result.Suggestions = append(result.Suggestions, "Describe the steps the agent should take, one per line")
		return result
	}

	var (
		refCount       int
		credits        float64
		hasWait        bool
		hasConditional bool
		unrecognized   []int
		firstOutreach  int
		lastOutreach   int
		waitedSince    bool
	)

	for i, line := range lines {
		step := i + 1
		refs := FindReferences(line.Text)
		refCount += len(refs)

		for _, ref := range refs {
			if ref.Known() {
				continue
			}
			result.ValidationWarnings = append(result.ValidationWarnings, types.ValidationWarning{
				Reference:    ref.Raw,
				Message:      fmt.Sprintf("%s on line %d does not exist", ref.Raw, line.Number),
				Alternatives: ref.Alternatives(),
			})
		}

		if i > 0 && line.Text == lines[i-1].Text {
			result.Optimizations = append(result.Optimizations, fmt.Sprintf("Step %d repeats step %d", step, step-1))
		}

		kind, ok := Classify(line.Text)
		if !ok {
			unrecognized = append(unrecognized, step)
			continue
		}
		credits += CreditsFor(kind)

		switch {
		case kind == types.ActionKindWait:
			hasWait = true
			waitedSince = true
		case kind == types.ActionKindConditional:
			hasConditional = true
		case kind == types.ActionKindEnrich && firstOutreach > 0:
			result.Optimizations = append(result.Optimizations,
				fmt.Sprintf("Enrich before step %d so outreach can use the extra fields", firstOutreach))
		case isOutreach(kind):
			if lastOutreach > 0 && !waitedSince {
				result.Suggestions = append(result.Suggestions,
					fmt.Sprintf("Add a wait between steps %d and %d", lastOutreach, step))
			}
			if len(refs) == 0 {
				result.Suggestions = append(result.Suggestions,
					fmt.Sprintf("Personalize step %d, e.g. with @contact.firstName", step))
			}
			if firstOutreach == 0 {
				firstOutreach = step
			}
			lastOutreach = step
			waitedSince = false
		}
	}

	for _, step := range unrecognized {
		result.Suggestions = append(result.Suggestions,
			fmt.Sprintf("Rephrase step %d so it starts with an action such as send, search or wait", step))
	}

	if refCount > 0 {
		result.Good = append(result.Good, fmt.Sprintf("Personalizes with %d template %s", refCount, plural(refCount, "reference", "references")))
	}
	if hasWait {
		result.Good = append(result.Good, "Spaces out outreach with wait steps")
	}
	if hasConditional {
		result.Good = append(result.Good, "Branches on conditions instead of acting blindly")
	} else if firstOutreach > 0 {
		result.Suggestions = append(result.Suggestions, "Consider a condition, e.g. stop when the contact replies")
	}
	if len(unrecognized) == 0 {
		result.Good = append(result.Good, "Every line maps to an action")
	}
	if credits > expensiveRunCredits {
		result.Optimizations = append(result.Optimizations, fmt.Sprintf(
			"A run costs about %s credits; web searches and enrichment are the most expensive steps",
			humanize.FtoaWithDigits(credits, 2)))
	}

	return result
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
