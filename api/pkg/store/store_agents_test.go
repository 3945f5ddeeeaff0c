package store

import (
	"github.com/helixml/agentbuilder/api/pkg/types"
)

func (suite *SqliteStoreTestSuite) createAgent(instructions string) *types.Agent {
	agent, err := suite.db.CreateAgent(suite.ctx, &types.Agent{
		WorkspaceID:  "ws_test",
		Name:         "Follow-up",
		Instructions: instructions,
		UpdatedBy:    "bob",
	})
	suite.Require().NoError(err)
	return agent
}

func (suite *SqliteStoreTestSuite) TestCreateAgent() {
	agent := suite.createAgent("Wait 1 day")

	suite.NotEmpty(agent.ID)
	suite.Equal(types.AgentStatusDraft, agent.Status)
	suite.NotEmpty(agent.UpdatedAt)

	_, err := suite.db.CreateAgent(suite.ctx, &types.Agent{Name: "no workspace"})
	suite.Error(err)

	_, err = suite.db.GetAgent(suite.ctx, "agt_missing")
	suite.ErrorIs(err, ErrNotFound)
}

func (suite *SqliteStoreTestSuite) TestListAgents() {
	suite.createAgent("one")
	suite.createAgent("two")
	_, err := suite.db.CreateAgent(suite.ctx, &types.Agent{WorkspaceID: "ws_other", Name: "Other"})
	suite.Require().NoError(err)

	agents, err := suite.db.ListAgents(suite.ctx, &ListAgentsQuery{WorkspaceID: "ws_test"})
	suite.Require().NoError(err)
	suite.Len(agents, 2)

	all, err := suite.db.ListAgents(suite.ctx, nil)
	suite.Require().NoError(err)
	suite.Len(all, 3)
}

func (suite *SqliteStoreTestSuite) TestUpdateInstructions() {
	agent := suite.createAgent("Wait 1 day")

	updated, err := suite.db.UpdateInstructions(suite.ctx, agent.ID, &types.UpdateInstructionsRequest{
		Instructions:      "Wait 2 days",
		ExpectedUpdatedAt: agent.UpdatedAt,
	}, "alice")
	suite.Require().NoError(err)

	suite.Equal("Wait 2 days", updated.Instructions)
	suite.Equal("alice", updated.UpdatedBy)
	suite.Greater(updated.UpdatedAt, agent.UpdatedAt)
}

func (suite *SqliteStoreTestSuite) TestUpdateInstructionsConflict() {
	agent := suite.createAgent("Wait 1 day")

	updated, err := suite.db.UpdateInstructions(suite.ctx, agent.ID, &types.UpdateInstructionsRequest{
		Instructions:      "alice's edit",
		ExpectedUpdatedAt: agent.UpdatedAt,
	}, "alice")
	suite.Require().NoError(err)

	// bob still holds the original version token
	_, err = suite.db.UpdateInstructions(suite.ctx, agent.ID, &types.UpdateInstructionsRequest{
		Instructions:      "bob's edit",
		ExpectedUpdatedAt: agent.UpdatedAt,
	}, "bob")

	var conflictErr *types.ConflictError
	suite.Require().ErrorAs(err, &conflictErr)
	suite.Equal("alice", conflictErr.Conflict.UpdatedBy)
	suite.Equal(updated.UpdatedAt, conflictErr.Conflict.UpdatedAt)

	current, err := suite.db.GetAgent(suite.ctx, agent.ID)
	suite.Require().NoError(err)
	suite.Equal("alice's edit", current.Instructions)
}

func (suite *SqliteStoreTestSuite) TestUpdateInstructionsWithoutToken() {
	agent := suite.createAgent("Wait 1 day")

	updated, err := suite.db.UpdateInstructions(suite.ctx, agent.ID, &types.UpdateInstructionsRequest{
		Instructions: "unconditional",
	}, "carol")
	suite.Require().NoError(err)
	suite.Equal("unconditional", updated.Instructions)

	_, err = suite.db.UpdateInstructions(suite.ctx, "agt_missing", &types.UpdateInstructionsRequest{}, "carol")
	suite.ErrorIs(err, ErrNotFound)
}

func (suite *SqliteStoreTestSuite) TestDuplicateAgent() {
	agent := suite.createAgent("Send email to @contact.email")
	_, err := suite.db.UpdateInstructions(suite.ctx, agent.ID, &types.UpdateInstructionsRequest{Instructions: agent.Instructions}, "bob")
	suite.Require().NoError(err)

	dup, err := suite.db.DuplicateAgent(suite.ctx, agent.ID, "", "dave")
	suite.Require().NoError(err)

	suite.NotEqual(agent.ID, dup.ID)
	suite.Equal("Follow-up (copy)", dup.Name)
	suite.Equal(agent.Instructions, dup.Instructions)
	suite.Equal(types.AgentStatusDraft, dup.Status)
	suite.Equal(agent.WorkspaceID, dup.WorkspaceID)

	named, err := suite.db.DuplicateAgent(suite.ctx, agent.ID, "Variant B", "dave")
	suite.Require().NoError(err)
	suite.Equal("Variant B", named.Name)
}

func (suite *SqliteStoreTestSuite) TestNextVersionIsMonotonic() {
	prev := NextVersion("")
	for range 100 {
		next := NextVersion(prev)
		suite.Greater(next, prev)
		prev = next
	}
	suite.Greater(NextVersion("2999-01-01T00:00:00.000000000Z"), "2999-01-01T00:00:00.000000000Z")
}
