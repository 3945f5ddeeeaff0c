package testrun

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixml/agentbuilder/api/pkg/types"
)

func steps(statuses ...types.StepStatus) []types.StepResult {
	result := make([]types.StepResult, len(statuses))
	for i, status := range statuses {
		result[i] = types.StepResult{StepNumber: i + 1, Status: status}
	}
	return result
}

func TestSummarize(t *testing.T) {
	summary := Summarize(steps(
		types.StepStatusSuccess,
		types.StepStatusSimulated,
		types.StepStatusWarning,
		types.StepStatusError,
		types.StepStatusSkipped,
		types.StepStatusNotExecuted,
		types.StepStatusNotExecuted,
	))

	assert.Equal(t, Summary{Completed: 2, Warnings: 1, Errors: 1, Skipped: 1, NotExecuted: 2}, summary)
	assert.Equal(t, 7, summary.Total())
}

func TestOverallStatus(t *testing.T) {
	tests := []struct {
		name  string
		steps []types.StepResult
		want  types.StepStatus
	}{
		{name: "empty", want: types.StepStatusSuccess},
		{name: "all success", steps: steps(types.StepStatusSuccess, types.StepStatusSkipped), want: types.StepStatusSuccess},
		{name: "warning", steps: steps(types.StepStatusSuccess, types.StepStatusWarning), want: types.StepStatusWarning},
		{name: "error beats warning", steps: steps(types.StepStatusSuccess, types.StepStatusWarning, types.StepStatusError), want: types.StepStatusError},
		{name: "error before warning", steps: steps(types.StepStatusError, types.StepStatusWarning), want: types.StepStatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OverallStatus(tt.steps))
		})
	}
}

func TestRemainingSteps(t *testing.T) {
	assert.Equal(t, 0, RemainingSteps(nil))
	assert.Equal(t, 3, RemainingSteps(&types.TestRunProgress{Current: 2, Total: 5}))
	assert.Equal(t, 0, RemainingSteps(&types.TestRunProgress{Current: 7, Total: 5}))
}

func TestTargetWarning(t *testing.T) {
	assert.False(t, RequiresTarget("Wait 3 days then create a task"))
	assert.True(t, RequiresTarget("Email @contact.email"))
	assert.True(t, RequiresTarget("Move @deal.stage forward"))
	assert.False(t, RequiresTarget("Email contact@example.com"))

	instructions := "Email @contact.firstName"
	assert.True(t, TargetWarning(instructions, types.TestTarget{}))
	assert.True(t, TargetWarning(instructions, types.TestTarget{Type: types.TestTargetTypeContact, ID: " "}))
	assert.False(t, TargetWarning(instructions, types.TestTarget{Type: types.TestTargetTypeContact, ID: "con_1"}))
	assert.False(t, TargetWarning(instructions, types.TestTarget{
		Type:       types.TestTargetTypeNone,
		ManualData: map[string]string{"contact.firstName": "Ada"},
	}))
	assert.False(t, TargetWarning("No references", types.TestTarget{}))
}

func TestTotalCredits(t *testing.T) {
	assert.Equal(t, 3.75, TotalCredits([]types.StepResult{
		{EstimatedCredits: 1.25},
		{EstimatedCredits: 2.5},
	}))
}

func TestTransitions(t *testing.T) {
	status := StatusIdle

	require.ErrorIs(t, transition(&status, StatusCompleted), ErrInvalidTransition)
	require.Equal(t, StatusIdle, status)

	require.NoError(t, transition(&status, StatusRunning))
	require.ErrorIs(t, transition(&status, StatusIdle), ErrInvalidTransition)
	require.NoError(t, transition(&status, StatusCancelled))
	require.True(t, status.Terminal())

	require.ErrorIs(t, transition(&status, StatusRunning), ErrInvalidTransition)
	require.NoError(t, transition(&status, StatusIdle))
	require.False(t, status.Terminal())

	unknown := Status("paused")
	require.ErrorIs(t, transition(&unknown, StatusIdle), ErrInvalidTransition)
}
