package editor

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/helixml/agentbuilder/api/pkg/client"
	"github.com/helixml/agentbuilder/api/pkg/estimates"
	"github.com/helixml/agentbuilder/api/pkg/notification"
	"github.com/helixml/agentbuilder/api/pkg/system"
	"github.com/helixml/agentbuilder/api/pkg/testrun"
	"github.com/helixml/agentbuilder/api/pkg/types"
)

const testAgentID = "agt_editor"

type SessionSuite struct {
	suite.Suite

	ctx      context.Context
	clock    clockwork.FakeClock
	client   *client.MockClient
	notifier *notification.MockNotifier
	session  *Session
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionSuite))
}

func (s *SessionSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())

	s.ctx = context.Background()
	s.clock = clockwork.NewFakeClock()
	s.client = client.NewMockClient(ctrl)
	s.notifier = notification.NewMockNotifier(ctrl)

	session, err := NewSession(s.ctx, Options{
		Client: s.client,
		Agent: &types.Agent{
			ID:           testAgentID,
			Name:         "Renewal follow-up",
			Instructions: "Wait 2 days",
			Status:       types.AgentStatusActive,
			UpdatedAt:    "T1",
		},
		Estimates: estimates.NewMemoryStore(),
		Notifier:  s.notifier,
		Clock:     s.clock,
	})
	s.Require().NoError(err)
	s.session = session
}

func (s *SessionSuite) TestSetTextClearsAnalyses() {
	s.client.EXPECT().ValidateInstructions(gomock.Any(), testAgentID).
		Return(&types.ValidationResult{Valid: true}, nil)
	s.client.EXPECT().ReviewInstructions(gomock.Any(), testAgentID, &types.ReviewRequest{Instructions: "Wait 2 days"}).
		Return(&types.ReviewResult{Good: []string{"clear wait step"}}, nil)

	_, err := s.session.Validate(s.ctx)
	s.Require().NoError(err)
	_, err = s.session.Review(s.ctx)
	s.Require().NoError(err)
	s.NotNil(s.session.Validation())
	s.NotNil(s.session.ReviewResult())

	s.session.SetText("Wait 3 days")
	s.Nil(s.session.Validation())
	s.Nil(s.session.ReviewResult())
	s.Equal("Wait 3 days", s.session.Text())
	s.Equal("Wait 3 days", s.session.Autosave().State().Text)

	s.session.Autosave().Close()
}

func (s *SessionSuite) TestValidateFlushesPendingEdit() {
	gomock.InOrder(
		s.client.EXPECT().UpdateInstructions(gomock.Any(), testAgentID, &types.UpdateInstructionsRequest{
			Instructions:      "Send email to @contact.email",
			ExpectedUpdatedAt: "T1",
		}).Return(&types.UpdateInstructionsResponse{UpdatedAt: "T2"}, nil),
		s.client.EXPECT().ValidateInstructions(gomock.Any(), testAgentID).
			Return(&types.ValidationResult{Valid: true, Summary: types.ValidationSummary{}}, nil),
	)

	s.session.SetText("Send email to @contact.email")

	result, err := s.session.Validate(s.ctx)
	s.Require().NoError(err)
	s.True(result.Valid)
	s.Equal("T2", s.session.Autosave().State().Version)
}

func (s *SessionSuite) TestReviewDiscardsStaleResult() {
	s.client.EXPECT().ReviewInstructions(gomock.Any(), testAgentID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, _ *types.ReviewRequest) (*types.ReviewResult, error) {
			// the user keeps typing while the review runs
			s.session.SetText("Wait 5 days")
			return &types.ReviewResult{Suggestions: []string{"shorten the wait"}}, nil
		})

	_, err := s.session.Review(s.ctx)
	s.ErrorIs(err, ErrStale)
	s.Nil(s.session.ReviewResult())

	s.session.Autosave().Close()
}

func (s *SessionSuite) TestReviewFailureNotifies() {
	s.client.EXPECT().ReviewInstructions(gomock.Any(), testAgentID, gomock.Any()).
		Return(nil, &system.HTTPError{StatusCode: http.StatusBadGateway, Message: "review service unavailable"})
	s.notifier.EXPECT().Notify(gomock.Any(), &notification.Notification{
		Level:   notification.LevelError,
		Title:   "Review failed",
		Message: "review service unavailable",
		AgentID: testAgentID,
	}).Return(nil)

	_, err := s.session.Review(s.ctx)
	s.Error(err)
}

func (s *SessionSuite) TestDuplicate() {
	s.client.EXPECT().DuplicateAgent(gomock.Any(), testAgentID, &types.DuplicateAgentRequest{Name: "Renewal follow-up (copy)"}).
		Return(&types.Agent{ID: "agt_copy", Name: "Renewal follow-up (copy)", Status: types.AgentStatusDraft}, nil)
	s.notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil)

	agent, err := s.session.Duplicate(s.ctx, "")
	s.Require().NoError(err)
	s.Equal(types.AgentStatusDraft, agent.Status)
}

func (s *SessionSuite) TestStartTestWarnsWithoutTarget() {
	s.session.SetText("Email @contact.email")
	s.session.Autosave().Close()

	s.notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, n *notification.Notification) error {
			s.Equal(notification.LevelWarning, n.Level)
			return nil
		})

	err := s.session.StartTest(s.ctx, types.TestTarget{})
	s.ErrorIs(err, testrun.ErrTargetRequired)
	s.Equal(testrun.StatusIdle, s.session.TestRun().Status())
	s.True(s.session.TestRun().Snapshot().TargetWarning)
}

func (s *SessionSuite) TestResolveConflictKeepRemote() {
	s.client.EXPECT().UpdateInstructions(gomock.Any(), testAgentID, &types.UpdateInstructionsRequest{
		Instructions:      "local edit",
		ExpectedUpdatedAt: "T1",
	}).Return(nil, &types.ConflictError{Conflict: types.Conflict{UpdatedBy: "alice", UpdatedAt: "T2"}}).Times(1)

	s.session.SetText("local edit")
	s.clock.Advance(2 * time.Second)
	s.Require().Eventually(func() bool {
		return s.session.Conflict() != nil
	}, 2*time.Second, 5*time.Millisecond)
	s.Equal("local edit", s.session.Text())

	// the user keeps typing before choosing the remote version
	s.session.SetText("local edit 2")
	s.Equal("local edit 2", s.session.Autosave().State().Text)

	s.client.EXPECT().GetAgent(gomock.Any(), testAgentID).
		Return(&types.Agent{ID: testAgentID, Instructions: "remote edit", UpdatedAt: "T2", UpdatedBy: "alice"}, nil)

	s.Require().NoError(s.session.ResolveConflict(s.ctx, false))
	s.Nil(s.session.Conflict())
	s.Equal("remote edit", s.session.Text())

	// no write may follow: the mock rejects a second UpdateInstructions
	s.clock.Advance(3 * time.Second)
	s.session.Autosave().Wait()

	state := s.session.Autosave().State()
	s.Equal("remote edit", state.Text)
	s.Equal("T2", state.Version)
	s.Equal(types.SaveStatusIdle, state.Status)

	agent := s.session.Agent()
	s.Equal("remote edit", agent.Instructions)
	s.Equal("T2", agent.UpdatedAt)

	s.ErrorIs(s.session.ResolveConflict(s.ctx, false), ErrNoConflict)
}

func (s *SessionSuite) TestSavedInstructionsUpdateAgent() {
	s.client.EXPECT().UpdateInstructions(gomock.Any(), testAgentID, &types.UpdateInstructionsRequest{
		Instructions:      "Wait 4 days",
		ExpectedUpdatedAt: "T1",
	}).Return(&types.UpdateInstructionsResponse{UpdatedAt: "T2"}, nil)

	s.session.SetText("Wait 4 days")
	s.session.Autosave().Flush()

	agent := s.session.Agent()
	s.Equal("Wait 4 days", agent.Instructions)
	s.Equal("T2", agent.UpdatedAt)
}

func (s *SessionSuite) TestResolveConflictKeepLocal() {
	gomock.InOrder(
		s.client.EXPECT().UpdateInstructions(gomock.Any(), testAgentID, gomock.Any()).
			Return(nil, &types.ConflictError{Conflict: types.Conflict{UpdatedBy: "alice", UpdatedAt: "T2"}}),
		s.client.EXPECT().GetAgent(gomock.Any(), testAgentID).
			Return(&types.Agent{ID: testAgentID, Instructions: "remote edit", UpdatedAt: "T2"}, nil),
		s.client.EXPECT().UpdateInstructions(gomock.Any(), testAgentID, &types.UpdateInstructionsRequest{
			Instructions:      "local edit",
			ExpectedUpdatedAt: "T2",
		}).Return(&types.UpdateInstructionsResponse{UpdatedAt: "T3"}, nil),
	)

	s.session.SetText("local edit")
	s.session.Autosave().Flush()
	s.Require().NotNil(s.session.Conflict())

	s.Require().NoError(s.session.ResolveConflict(s.ctx, true))
	s.Equal(types.SaveStatusSaved, s.session.Autosave().Status())
	s.Equal("T3", s.session.Autosave().State().Version)
}
