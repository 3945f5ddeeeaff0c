package types

import (
	"fmt"
	"time"
)

type AgentStatus string

const (
	AgentStatusDraft  AgentStatus = "draft"
	AgentStatusActive AgentStatus = "active"
	AgentStatusPaused AgentStatus = "paused"
)

// Agent is the automation agent whose instructions are edited and test-run.
// UpdatedAt is the opaque version token used for optimistic locking, it is
// not parsed by clients.
type Agent struct {
	ID           string      `json:"id" gorm:"primaryKey"`
	WorkspaceID  string      `json:"workspaceId" gorm:"index"`
	Name         string      `json:"name"`
	Instructions string      `json:"instructions" gorm:"type:text"`
	Status       AgentStatus `json:"status"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    string      `json:"updatedAt" gorm:"column:updated_at;autoUpdateTime:false"`
	UpdatedBy    string      `json:"updatedBy"`
}

type SaveStatus string

const (
	SaveStatusIdle   SaveStatus = "idle"
	SaveStatusSaving SaveStatus = "saving"
	SaveStatusSaved  SaveStatus = "saved"
	SaveStatusError  SaveStatus = "error"
)

type UpdateInstructionsRequest struct {
	Instructions      string `json:"instructions"`
	ExpectedUpdatedAt string `json:"expectedUpdatedAt,omitempty"`
}

type UpdateInstructionsResponse struct {
	Agent     *Agent `json:"agent"`
	UpdatedAt string `json:"updatedAt"`
}

// Conflict describes who changed a document since the caller's version token.
type Conflict struct {
	UpdatedBy string `json:"updatedBy"`
	UpdatedAt string `json:"updatedAt"`
}

// ConflictResponse is the body of a 409 returned by the instructions endpoint.
type ConflictResponse struct {
	Error    string    `json:"error"`
	Conflict *Conflict `json:"conflict"`
}

// ConflictError is returned when a write was rejected because the document
// changed remotely after the supplied version token.
type ConflictError struct {
	Conflict Conflict
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("instructions were updated by %s at %s", e.Conflict.UpdatedBy, e.Conflict.UpdatedAt)
}

type DuplicateAgentRequest struct {
	Name string `json:"name"`
}

type IssueSeverity string

const (
	IssueSeverityError   IssueSeverity = "error"
	IssueSeverityWarning IssueSeverity = "warning"
)

type ValidationIssue struct {
	Severity   IssueSeverity `json:"severity"`
	Message    string        `json:"message"`
	LineNumber int           `json:"lineNumber,omitempty"`
	Field      string        `json:"field,omitempty"`
}

type ValidationSummary struct {
	ErrorCount   int `json:"errorCount"`
	WarningCount int `json:"warningCount"`
}

type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Errors   []ValidationIssue `json:"errors"`
	Warnings []ValidationIssue `json:"warnings"`
	Summary  ValidationSummary `json:"summary"`
}

type ReviewRequest struct {
	Instructions string `json:"instructions"`
}

// ValidationWarning lists a template reference that does not resolve together
// with the references that would.
type ValidationWarning struct {
	Reference    string   `json:"reference"`
	Message      string   `json:"message"`
	Alternatives []string `json:"alternatives,omitempty"`
}

type ReviewResult struct {
	Good               []string            `json:"good"`
	Suggestions        []string            `json:"suggestions"`
	Optimizations      []string            `json:"optimizations"`
	ValidationWarnings []ValidationWarning `json:"validationWarnings,omitempty"`
}
