package memorystore

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/helixml/agentbuilder/api/pkg/types"
)

func TestUpdateInstructionsConflict(t *testing.T) {
	ctx := context.Background()
	m := New()

	var updated []*types.Agent
	m.OnAgentUpdated = func(a *types.Agent) { updated = append(updated, a) }

	agent, err := m.CreateAgent(ctx, &types.Agent{WorkspaceID: "ws_test", Name: "Nurture"})
	require.NoError(t, err)
	require.Equal(t, types.AgentStatusDraft, agent.Status)

	saved, err := m.UpdateInstructions(ctx, agent.ID, &types.UpdateInstructionsRequest{
		Instructions:      "Wait 1 day",
		ExpectedUpdatedAt: agent.UpdatedAt,
	}, "alice")
	require.NoError(t, err)
	require.Greater(t, saved.UpdatedAt, agent.UpdatedAt)
	require.Len(t, updated, 1)

	_, err = m.UpdateInstructions(ctx, agent.ID, &types.UpdateInstructionsRequest{
		Instructions:      "Wait 2 days",
		ExpectedUpdatedAt: agent.UpdatedAt,
	}, "bob")
	var conflictErr *types.ConflictError
	require.ErrorAs(t, err, &conflictErr)
	require.Equal(t, "alice", conflictErr.Conflict.UpdatedBy)
	require.Equal(t, saved.UpdatedAt, conflictErr.Conflict.UpdatedAt)
	require.Len(t, updated, 1)
}

func TestSearchTestTargetsPages(t *testing.T) {
	ctx := context.Background()
	m := New()

	for i := range 3 {
		_, err := m.CreateDeal(ctx, &types.Deal{WorkspaceID: "ws_test", Name: fmt.Sprintf("Deal %d", i), Stage: "won"})
		require.NoError(t, err)
	}

	q := &types.TestTargetSearchQuery{WorkspaceID: "ws_test", Type: types.TestTargetTypeDeal, Limit: 2}
	page, err := m.SearchTestTargets(ctx, q)
	require.NoError(t, err)
	require.Len(t, page.Targets, 2)
	require.True(t, page.HasMore)

	q.Cursor = page.NextCursor
	page, err = m.SearchTestTargets(ctx, q)
	require.NoError(t, err)
	require.Len(t, page.Targets, 1)
	require.False(t, page.HasMore)

	page, err = m.SearchTestTargets(ctx, &types.TestTargetSearchQuery{WorkspaceID: "ws_test", Type: types.TestTargetTypeDeal, SearchTerm: "deal 1"})
	require.NoError(t, err)
	require.Len(t, page.Targets, 1)
}

func TestDuplicateAgentIsDraftCopy(t *testing.T) {
	ctx := context.Background()
	m := New()

	m.PutAgent(&types.Agent{
		ID:           "agt_1",
		WorkspaceID:  "ws_test",
		Name:         "Renewal follow-up",
		Instructions: "Send email to @contact.email",
		Status:       types.AgentStatusActive,
		UpdatedAt:    "v1",
	})

	dup, err := m.DuplicateAgent(ctx, "agt_1", "", "bob")
	require.NoError(t, err)
	require.Equal(t, "Renewal follow-up (copy)", dup.Name)
	require.Equal(t, types.AgentStatusDraft, dup.Status)
	require.Equal(t, "bob", dup.UpdatedBy)

	agents := m.GetAllAgents()
	require.Len(t, agents, 2)
	for _, a := range agents {
		require.Equal(t, "Send email to @contact.email", a.Instructions)
	}

	// the source is untouched
	source, err := m.GetAgent(ctx, "agt_1")
	require.NoError(t, err)
	require.Equal(t, types.AgentStatusActive, source.Status)
	require.Equal(t, "v1", source.UpdatedAt)
}
