package agent

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/helixml/agentbuilder/api/pkg/client"
	"github.com/helixml/agentbuilder/api/pkg/config"
	"github.com/helixml/agentbuilder/api/pkg/estimates"
	"github.com/helixml/agentbuilder/api/pkg/notification"
	"github.com/helixml/agentbuilder/api/pkg/system"
	"github.com/helixml/agentbuilder/api/pkg/types"
)

const testAgentID = "agt_cli"

// sliceStream replays events and then reports io.EOF.
type sliceStream struct {
	mu     sync.Mutex
	events []*types.TestRunEvent
}

func (s *sliceStream) Next() (*types.TestRunEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return nil, io.EOF
	}
	event := s.events[0]
	s.events = s.events[1:]
	return event, nil
}

func (s *sliceStream) Close() error {
	return nil
}

func testAgent(instructions string) *types.Agent {
	return &types.Agent{
		ID:           testAgentID,
		WorkspaceID:  "ws_cli",
		Name:         "Renewal follow-up",
		Instructions: instructions,
		UpdatedAt:    "v1",
	}
}

func TestLookupAgentFallsBackToName(t *testing.T) {
	ctrl := gomock.NewController(t)
	apiClient := client.NewMockClient(ctrl)
	ctx := context.Background()

	apiClient.EXPECT().GetAgent(gomock.Any(), "Renewal follow-up").
		Return(nil, &system.HTTPError{StatusCode: 404, Message: "agent not found"})
	apiClient.EXPECT().ListAgents(gomock.Any(), "ws_cli").
		Return([]*types.Agent{{ID: "agt_other", Name: "Other"}, testAgent("")}, nil)

	agent, err := lookupAgent(ctx, apiClient, "ws_cli", "Renewal follow-up")
	require.NoError(t, err)
	assert.Equal(t, testAgentID, agent.ID)

	// other errors are not masked by the name lookup
	apiClient.EXPECT().GetAgent(gomock.Any(), "agt_x").
		Return(nil, &system.HTTPError{StatusCode: 500, Message: "boom"})
	_, err = lookupAgent(ctx, apiClient, "ws_cli", "agt_x")
	require.ErrorContains(t, err, "boom")
}

func TestRunTestPrintsStepsAndEstimate(t *testing.T) {
	ctrl := gomock.NewController(t)
	apiClient := client.NewMockClient(ctrl)
	ctx := context.Background()

	store := estimates.NewMemoryStore()
	require.NoError(t, store.Put(ctx, testAgentID, &types.StoredEstimate{
		Time:      4,
		Credits:   2,
		Timestamp: time.Now().Add(-2 * time.Hour),
	}))

	stream := &sliceStream{events: []*types.TestRunEvent{
		{Type: types.TestRunEventStart, RunID: "run-1", TotalSteps: 2},
		{
			Type:     types.TestRunEventStep,
			Step:     &types.StepResult{StepNumber: 1, Status: types.StepStatusSimulated, ActionLabel: "Send email", Message: "To ada@example.com"},
			Progress: &types.TestRunProgress{Current: 1, Total: 2},
		},
		{
			Type:     types.TestRunEventStep,
			Step:     &types.StepResult{StepNumber: 2, Status: types.StepStatusSimulated, ActionLabel: "Wait", Message: "2 days"},
			Progress: &types.TestRunProgress{Current: 2, Total: 2},
		},
		{Type: types.TestRunEventComplete, Result: &types.TestRunResult{
			Success:   true,
			Warnings:  []string{},
			Estimates: &types.TestRunEstimates{TotalSeconds: 2.1, TotalCredits: 1},
		}},
	}}

	apiClient.EXPECT().StartTestRun(gomock.Any(), gomock.Any()).Return(stream, nil)

	var out bytes.Buffer
	err := runTest(ctx, ctx, &out, testOptions{
		client:    apiClient,
		agent:     testAgent("Send email to @contact.email\nWait 2 days"),
		target:    types.TestTarget{Type: types.TestTargetTypeContact, ID: "con_1"},
		estimates: store,
		notifier:  notification.NewWriterNotifier(io.Discard),
	})
	require.NoError(t, err)

	output := out.String()
	assert.Contains(t, output, "[1/2] ok    Send email: To ada@example.com")
	assert.Contains(t, output, "[2/2] ok    Wait: 2 days")
	assert.Contains(t, output, "Test run completed")
	assert.Contains(t, output, "Estimated time per contact: 2.1s, credits: 1")
	assert.Contains(t, output, "time -1.9s, credits -1")

	stored, err := store.Get(ctx, testAgentID)
	require.NoError(t, err)
	assert.Equal(t, 2.1, stored.Time)
	assert.Equal(t, 1.0, stored.Credits)
}

func TestRunTestFailedRun(t *testing.T) {
	ctrl := gomock.NewController(t)
	apiClient := client.NewMockClient(ctrl)
	ctx := context.Background()

	stream := &sliceStream{events: []*types.TestRunEvent{
		{Type: types.TestRunEventStart, RunID: "run-2", TotalSteps: 1},
		{
			Type:     types.TestRunEventStep,
			Step:     &types.StepResult{StepNumber: 1, Status: types.StepStatusError, ActionLabel: "Send email", Message: "Unknown field @contact.emial"},
			Progress: &types.TestRunProgress{Current: 1, Total: 1},
		},
		{Type: types.TestRunEventError, Message: "Step 1 failed: Unknown field @contact.emial"},
	}}

	apiClient.EXPECT().StartTestRun(gomock.Any(), gomock.Any()).Return(stream, nil)

	var out bytes.Buffer
	err := runTest(ctx, ctx, &out, testOptions{
		client:    apiClient,
		agent:     testAgent("Send email to @contact.emial"),
		target:    types.TestTarget{Type: types.TestTargetTypeNone, ManualData: map[string]string{"email": "ada@example.com"}},
		estimates: estimates.NewMemoryStore(),
		notifier:  notification.NewWriterNotifier(io.Discard),
	})
	require.ErrorIs(t, err, errTestFailed)
	assert.Contains(t, out.String(), "[1/1] error Send email: Unknown field @contact.emial")
	assert.Contains(t, out.String(), "Step 1 failed: Unknown field @contact.emial")
}

func TestEditSavesFile(t *testing.T) {
	ctrl := gomock.NewController(t)
	apiClient := client.NewMockClient(ctrl)

	path := filepath.Join(t.TempDir(), "instructions.txt")
	require.NoError(t, os.WriteFile(path, []byte("Wait 3 days"), 0o600))

	apiClient.EXPECT().UpdateInstructions(gomock.Any(), testAgentID, &types.UpdateInstructionsRequest{
		Instructions:      "Wait 3 days",
		ExpectedUpdatedAt: "v1",
	}).Return(&types.UpdateInstructionsResponse{
		Agent:     testAgent("Wait 3 days"),
		UpdatedAt: "v2",
	}, nil)

	var out bytes.Buffer
	err := edit(context.Background(), &out, editOptions{
		client:   apiClient,
		agent:    testAgent("Wait 2 days"),
		notifier: notification.NewWriterNotifier(io.Discard),
		editor:   config.Editor{AutosaveDebounce: time.Hour},
		path:     path,
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Saved")
}

func TestEditReportsConflict(t *testing.T) {
	ctrl := gomock.NewController(t)
	apiClient := client.NewMockClient(ctrl)

	path := filepath.Join(t.TempDir(), "instructions.txt")
	require.NoError(t, os.WriteFile(path, []byte("Wait 3 days"), 0o600))

	apiClient.EXPECT().UpdateInstructions(gomock.Any(), testAgentID, gomock.Any()).
		Return(nil, &types.ConflictError{Conflict: types.Conflict{UpdatedBy: "bob", UpdatedAt: "v9"}})

	var out bytes.Buffer
	err := edit(context.Background(), &out, editOptions{
		client:   apiClient,
		agent:    testAgent("Wait 2 days"),
		notifier: notification.NewWriterNotifier(io.Discard),
		editor:   config.Editor{AutosaveDebounce: time.Hour},
		path:     path,
	})
	require.ErrorIs(t, err, errConflict)
	assert.Contains(t, out.String(), "Instructions were updated by bob at v9")
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	path, err := expandHome("~/.agentbuilder/estimates.db")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".agentbuilder", "estimates.db"), path)

	path, err = expandHome("/tmp/estimates.db")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/estimates.db", path)
}
