package testrun

import (
	"strings"

	"github.com/helixml/agentbuilder/api/pkg/types"
)

const (
	contactReference = "@contact."
	dealReference    = "@deal."
)

// Summary partitions steps by status. Simulated steps count as completed.
type Summary struct {
	Completed   int `json:"completed"`
	Errors      int `json:"errors"`
	Warnings    int `json:"warnings"`
	Skipped     int `json:"skipped"`
	NotExecuted int `json:"notExecuted"`
}

func (s Summary) Total() int {
	return s.Completed + s.Errors + s.Warnings + s.Skipped + s.NotExecuted
}

func Summarize(steps []types.StepResult) Summary {
	var s Summary
	for _, step := range steps {
		switch step.Status {
		case types.StepStatusSuccess, types.StepStatusSimulated:
			s.Completed++
		case types.StepStatusError:
			s.Errors++
		case types.StepStatusWarning:
			s.Warnings++
		case types.StepStatusSkipped:
			s.Skipped++
		case types.StepStatusNotExecuted:
			s.NotExecuted++
		}
	}
	return s
}

// OverallStatus picks the banner status: any error wins over any warning,
// otherwise success.
func OverallStatus(steps []types.StepResult) types.StepStatus {
	status := types.StepStatusSuccess
	for _, step := range steps {
		switch step.Status {
		case types.StepStatusError:
			return types.StepStatusError
		case types.StepStatusWarning:
			status = types.StepStatusWarning
		}
	}
	return status
}

// RemainingSteps is never negative.
func RemainingSteps(progress *types.TestRunProgress) int {
	if progress == nil {
		return 0
	}
	return max(0, progress.Total-progress.Current)
}

// TotalCredits sums the per-step credit estimates.
func TotalCredits(steps []types.StepResult) float64 {
	var total float64
	for _, step := range steps {
		total += step.EstimatedCredits
	}
	return total
}

// RequiresTarget reports whether the instructions reference contact or deal
// fields. This is a substring check, not a parse of the template grammar.
func RequiresTarget(instructions string) bool {
	return strings.Contains(instructions, contactReference) || strings.Contains(instructions, dealReference)
}

// TargetWarning reports whether a target is required but none is selected.
func TargetWarning(instructions string, target types.TestTarget) bool {
	return RequiresTarget(instructions) && !target.Selected()
}
