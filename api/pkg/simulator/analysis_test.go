package simulator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixml/agentbuilder/api/pkg/types"
)

func TestValidate(t *testing.T) {
	result := Validate("Send email to @contact.emial\nWait\nhello world")

	require.False(t, result.Valid)
	require.Equal(t, []types.ValidationIssue{{
		Severity:   types.IssueSeverityError,
		Message:    "Unknown reference @contact.emial",
		LineNumber: 1,
		Field:      "@contact.emial",
	}}, result.Errors)

	require.Len(t, result.Warnings, 2)
	assert.Equal(t, 2, result.Warnings[0].LineNumber)
	assert.Equal(t, 3, result.Warnings[1].LineNumber)
	assert.Equal(t, types.ValidationSummary{ErrorCount: 1, WarningCount: 2}, result.Summary)
}

func TestValidate_Empty(t *testing.T) {
	result := Validate("\n  \n# only a comment")

	require.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	require.Equal(t, "Instructions are empty", result.Errors[0].Message)
}

func TestValidate_Clean(t *testing.T) {
	result := Validate("Send email to @contact.email\nWait 2 days")

	require.True(t, result.Valid)
	require.Empty(t, result.Errors)
	require.Empty(t, result.Warnings)
}

func TestReview(t *testing.T) {
	result := Review("Send email to @contact.email\nSend a LinkedIn message\nEnrich the contact")

	assert.Equal(t, []string{
		"Personalizes with 1 template reference",
		"Every line maps to an action",
	}, result.Good)
	assert.Equal(t, []string{
		"Add a wait between steps 1 and 2",
		"Personalize step 2, e.g. with @contact.firstName",
		"Consider a condition, e.g. stop when the contact replies",
	}, result.Suggestions)
	assert.Equal(t, []string{
		"Enrich before step 1 so outreach can use the extra fields",
	}, result.Optimizations)
	assert.Empty(t, result.ValidationWarnings)
}

func TestReview_UnknownReference(t *testing.T) {
	result := Review("Email @contact.nam")

	require.Len(t, result.ValidationWarnings, 1)
	warning := result.ValidationWarnings[0]
	assert.Equal(t, "@contact.nam", warning.Reference)
	assert.Equal(t, "@contact.nam on line 1 does not exist", warning.Message)
	assert.Contains(t, warning.Alternatives, "@contact.name")
}

func TestReview_Empty(t *testing.T) {
	result := Review("")

	require.Equal(t, []string{"Describe the steps the agent should take, one per line"}, result.Suggestions)
	require.Empty(t, result.Good)
}

func TestReview_WaitBetweenOutreach(t *testing.T) {
	result := Review("Email @contact.firstName\nWait 2 days\nIf no reply, email @contact.firstName again")

	assert.Contains(t, result.Good, "Spaces out outreach with wait steps")
	assert.Contains(t, result.Good, "Branches on conditions instead of acting blindly")
	assert.NotContains(t, result.Suggestions, "Add a wait between steps 1 and 3")
}
