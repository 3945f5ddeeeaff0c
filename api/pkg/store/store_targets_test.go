package store

import (
	"fmt"

	"github.com/helixml/agentbuilder/api/pkg/types"
)

func (suite *SqliteStoreTestSuite) TestSearchContactsPaginates() {
	for i := range 5 {
		_, err := suite.db.CreateContact(suite.ctx, &types.Contact{
			WorkspaceID: "ws_test",
			FirstName:   fmt.Sprintf("Person%d", i),
			LastName:    "Smith",
			Email:       fmt.Sprintf("person%d@example.com", i),
		})
		suite.Require().NoError(err)
	}
	_, err := suite.db.CreateContact(suite.ctx, &types.Contact{WorkspaceID: "ws_other", FirstName: "Hidden"})
	suite.Require().NoError(err)

	q := &types.TestTargetSearchQuery{WorkspaceID: "ws_test", Type: types.TestTargetTypeContact, Limit: 2}

	var seen []string
	for {
		page, err := suite.db.SearchTestTargets(suite.ctx, q)
		suite.Require().NoError(err)
		for _, target := range page.Targets {
			suite.Equal(types.TestTargetTypeContact, target.Type)
			seen = append(seen, target.ID)
		}
		if !page.HasMore {
			break
		}
		suite.Equal(page.Targets[len(page.Targets)-1].ID, page.NextCursor)
		q.Cursor = page.NextCursor
	}

	suite.Len(seen, 5)
}

func (suite *SqliteStoreTestSuite) TestSearchContactsByTerm() {
	_, err := suite.db.CreateContact(suite.ctx, &types.Contact{WorkspaceID: "ws_test", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Company: "Engines"})
	suite.Require().NoError(err)
	_, err = suite.db.CreateContact(suite.ctx, &types.Contact{WorkspaceID: "ws_test", FirstName: "Alan", LastName: "Turing", Email: "alan@example.com"})
	suite.Require().NoError(err)

	page, err := suite.db.SearchTestTargets(suite.ctx, &types.TestTargetSearchQuery{
		WorkspaceID: "ws_test",
		Type:        types.TestTargetTypeContact,
		SearchTerm:  "ada love",
	})
	suite.Require().NoError(err)
	suite.Require().Len(page.Targets, 1)
	suite.Equal("Ada Lovelace", page.Targets[0].Label)
	suite.Equal("ada@example.com · Engines", page.Targets[0].Subtitle)
	suite.False(page.HasMore)

	page, err = suite.db.SearchTestTargets(suite.ctx, &types.TestTargetSearchQuery{
		WorkspaceID: "ws_test",
		Type:        types.TestTargetTypeContact,
		SearchTerm:  "ENGINES",
	})
	suite.Require().NoError(err)
	suite.Len(page.Targets, 1)
}

func (suite *SqliteStoreTestSuite) TestSearchDeals() {
	deal, err := suite.db.CreateDeal(suite.ctx, &types.Deal{WorkspaceID: "ws_test", Name: "Renewal", Stage: "negotiation", Amount: 1200})
	suite.Require().NoError(err)
	suite.Equal("USD", deal.Currency)

	page, err := suite.db.SearchTestTargets(suite.ctx, &types.TestTargetSearchQuery{
		WorkspaceID: "ws_test",
		Type:        types.TestTargetTypeDeal,
		SearchTerm:  "negot",
	})
	suite.Require().NoError(err)
	suite.Require().Len(page.Targets, 1)
	suite.Equal(deal.ID, page.Targets[0].ID)

	_, err = suite.db.SearchTestTargets(suite.ctx, &types.TestTargetSearchQuery{WorkspaceID: "ws_test", Type: types.TestTargetTypeNone})
	suite.Error(err)
}

func (suite *SqliteStoreTestSuite) TestSeed() {
	suite.Require().NoError(suite.db.Seed(suite.ctx))
	suite.Require().NoError(suite.db.Seed(suite.ctx))

	agents, err := suite.db.ListAgents(suite.ctx, &ListAgentsQuery{WorkspaceID: DemoWorkspaceID})
	suite.Require().NoError(err)
	suite.Len(agents, len(demoAgents))

	page, err := suite.db.SearchTestTargets(suite.ctx, &types.TestTargetSearchQuery{
		WorkspaceID: DemoWorkspaceID,
		Type:        types.TestTargetTypeContact,
		Limit:       100,
	})
	suite.Require().NoError(err)
	suite.Len(page.Targets, len(demoContacts))
}
