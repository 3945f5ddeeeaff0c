package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type TestTargetType string

const (
	TestTargetTypeContact TestTargetType = "contact"
	TestTargetTypeDeal    TestTargetType = "deal"
	TestTargetTypeNone    TestTargetType = "none"
)

func ValidateTestTargetType(targetType string, acceptEmpty bool) (TestTargetType, error) {
	switch targetType {
	case string(TestTargetTypeContact):
		return TestTargetTypeContact, nil
	case string(TestTargetTypeDeal):
		return TestTargetTypeDeal, nil
	case string(TestTargetTypeNone):
		return TestTargetTypeNone, nil
	default:
		if acceptEmpty && targetType == "" {
			return TestTargetTypeNone, nil
		}
		return TestTargetTypeNone, fmt.Errorf("invalid test target type: %s", targetType)
	}
}

// TestTarget is the record substituted for @contact.* / @deal.* references.
// Contact and deal targets carry an ID; the none target may carry manual data.
type TestTarget struct {
	Type       TestTargetType    `json:"type"`
	ID         string            `json:"id,omitempty"`
	ManualData map[string]string `json:"manualData,omitempty"`
}

// Selected reports whether the target identifies something to test against.
func (t TestTarget) Selected() bool {
	switch t.Type {
	case TestTargetTypeContact, TestTargetTypeDeal:
		return strings.TrimSpace(t.ID) != ""
	case TestTargetTypeNone, "":
		return len(t.ManualData) > 0
	}
	return false
}

type StartTestRunRequest struct {
	AgentID    string            `json:"agentId"`
	TargetIDs  []string          `json:"targetIds,omitempty"`
	TargetType TestTargetType    `json:"targetType,omitempty"`
	ManualData map[string]string `json:"manualData,omitempty"`
}

// NewStartTestRunRequest builds the wire request for a target.
func NewStartTestRunRequest(agentID string, target TestTarget) *StartTestRunRequest {
	req := &StartTestRunRequest{AgentID: agentID}
	switch target.Type {
	case TestTargetTypeContact, TestTargetTypeDeal:
		req.TargetType = target.Type
		if target.ID != "" {
			req.TargetIDs = []string{target.ID}
		}
	case TestTargetTypeNone:
		req.TargetType = TestTargetTypeNone
		req.ManualData = target.ManualData
	}
	return req
}

type StepStatus string

const (
	StepStatusSuccess     StepStatus = "success"
	StepStatusWarning     StepStatus = "warning"
	StepStatusError       StepStatus = "error"
	StepStatusSkipped     StepStatus = "skipped"
	StepStatusNotExecuted StepStatus = "not_executed"
	StepStatusSimulated   StepStatus = "simulated"
)

type ActionKind string

const (
	ActionKindEmail       ActionKind = "email"
	ActionKindSearch      ActionKind = "search"
	ActionKindConditional ActionKind = "conditional"
	ActionKindWait        ActionKind = "wait"
	ActionKindLinkedIn    ActionKind = "linkedin"
	ActionKindTask        ActionKind = "task"
	ActionKindTag         ActionKind = "tag"
	ActionKindUpdate      ActionKind = "update"
	ActionKindEnrich      ActionKind = "enrich"
	ActionKindWebSearch   ActionKind = "web_search"
)

// StepResult is one simulated action reported by the server during a test run.
type StepResult struct {
	StepNumber       int          `json:"stepNumber"`
	Status           StepStatus   `json:"status"`
	ActionKind       ActionKind   `json:"actionKind,omitempty"`
	ActionLabel      string       `json:"actionLabel"`
	Icon             string       `json:"icon,omitempty"`
	Message          string       `json:"message,omitempty"`
	RichPreview      *RichPreview `json:"richPreview,omitempty"`
	Suggestions      []string     `json:"suggestions,omitempty"`
	EstimatedCredits float64      `json:"estimatedCredits"`
	EstimatedSeconds float64      `json:"estimatedSeconds,omitempty"`
}

// RichPreview is keyed by Kind; exactly the matching variant is set.
type RichPreview struct {
	Kind        ActionKind          `json:"kind"`
	Email       *EmailPreview       `json:"email,omitempty"`
	Search      *SearchPreview      `json:"search,omitempty"`
	Conditional *ConditionalPreview `json:"conditional,omitempty"`
	Wait        *WaitPreview        `json:"wait,omitempty"`
	LinkedIn    *LinkedInPreview    `json:"linkedin,omitempty"`
	Task        *TaskPreview        `json:"task,omitempty"`
	Tag         *TagPreview         `json:"tag,omitempty"`
	Update      *UpdatePreview      `json:"update,omitempty"`
	Enrich      *EnrichPreview      `json:"enrich,omitempty"`
	WebSearch   *WebSearchPreview   `json:"webSearch,omitempty"`
}

type EmailPreview struct {
	To          string `json:"to"`
	Subject     string `json:"subject"`
	BodySnippet string `json:"bodySnippet"`
}

type SearchPreview struct {
	Query        string   `json:"query"`
	MatchedCount int      `json:"matchedCount"`
	Matches      []string `json:"matches"`
	HasMore      bool     `json:"hasMore"`
}

type ConditionalPreview struct {
	Condition string `json:"condition"`
	Result    bool   `json:"result"`
	Branch    string `json:"branch"`
}

type WaitPreview struct {
	Duration string `json:"duration"`
}

type LinkedInPreview struct {
	Action     string `json:"action"`
	ProfileURL string `json:"profileUrl,omitempty"`
	Message    string `json:"message,omitempty"`
}

type TaskPreview struct {
	Title    string `json:"title"`
	Assignee string `json:"assignee,omitempty"`
	DueIn    string `json:"dueIn,omitempty"`
}

type TagPreview struct {
	Tags []string `json:"tags"`
}

type UpdatePreview struct {
	Entity string `json:"entity"`
	Field  string `json:"field"`
	Value  string `json:"value"`
}

type EnrichPreview struct {
	Fields []string `json:"fields"`
}

type WebSearchPreview struct {
	Query       string   `json:"query"`
	ResultCount int      `json:"resultCount"`
	TopResults  []string `json:"topResults,omitempty"`
}

type TestRunProgress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

type TestRunEstimates struct {
	TotalSeconds float64 `json:"totalSeconds"`
	TotalCredits float64 `json:"totalCredits"`
}

// TestRunResult is the terminal summary of a test run.
type TestRunResult struct {
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Warnings  []string          `json:"warnings"`
	Estimates *TestRunEstimates `json:"estimates,omitempty"`
	TimedOut  bool              `json:"timedOut,omitempty"`
}

type TestRunEventType string

const (
	TestRunEventStart    TestRunEventType = "start"
	TestRunEventStep     TestRunEventType = "step"
	TestRunEventComplete TestRunEventType = "complete"
	TestRunEventError    TestRunEventType = "error"
)

// TestRunEvent is one frame of the test run stream. Start carries the run
// id, step carries a step result with progress, complete and error are
// terminal.
type TestRunEvent struct {
	Type       TestRunEventType `json:"type"`
	RunID      string           `json:"runId,omitempty"`
	TotalSteps int              `json:"totalSteps,omitempty"`
	Step       *StepResult      `json:"step,omitempty"`
	Progress   *TestRunProgress `json:"progress,omitempty"`
	Result     *TestRunResult   `json:"result,omitempty"`
	Message    string           `json:"message,omitempty"`
}

func (e *TestRunEvent) Terminal() bool {
	return e.Type == TestRunEventComplete || e.Type == TestRunEventError
}

func (e *TestRunEvent) String() string {
	bts, _ := json.Marshal(e)
	return string(bts)
}

// StoredEstimate is the last completed run's totals for an agent. Time is
// in seconds.
type StoredEstimate struct {
	Time      float64   `json:"time"`
	Credits   float64   `json:"credits"`
	Timestamp time.Time `json:"timestamp"`
}

type TestTargetSearchQuery struct {
	WorkspaceID string         `json:"workspaceId"`
	Type        TestTargetType `json:"type"`
	SearchTerm  string         `json:"searchTerm,omitempty"`
	Cursor      string         `json:"cursor,omitempty"`
	Limit       int            `json:"limit,omitempty"`
}

type TestTargetOption struct {
	ID       string         `json:"id"`
	Type     TestTargetType `json:"type"`
	Label    string         `json:"label"`
	Subtitle string         `json:"subtitle,omitempty"`
}

type TestTargetPage struct {
	Targets    []*TestTargetOption `json:"targets"`
	HasMore    bool                `json:"hasMore"`
	NextCursor string              `json:"nextCursor,omitempty"`
}
