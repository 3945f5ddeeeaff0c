package autosave

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/helixml/agentbuilder/api/pkg/client"
	"github.com/helixml/agentbuilder/api/pkg/notification"
	"github.com/helixml/agentbuilder/api/pkg/system"
	"github.com/helixml/agentbuilder/api/pkg/types"
)

const (
	testAgentID = "agt_autosave"
	waitFor     = 2 * time.Second
	tick        = 5 * time.Millisecond
)

type ControllerSuite struct {
	suite.Suite

	ctx      context.Context
	clock    clockwork.FakeClock
	client   *client.MockClient
	notifier *notification.MockNotifier

	mu        sync.Mutex
	saved     []string
	conflicts []types.Conflict
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())

	s.ctx = context.Background()
	s.clock = clockwork.NewFakeClock()
	s.client = client.NewMockClient(ctrl)
	s.notifier = notification.NewMockNotifier(ctrl)

	s.mu.Lock()
	s.saved = nil
	s.conflicts = nil
	s.mu.Unlock()
}

func (s *ControllerSuite) newController(opts Options) *Controller {
	opts.AgentID = testAgentID
	opts.Writer = s.client
	opts.Notifier = s.notifier
	opts.Clock = s.clock
	opts.OnSaved = func(text, _ string) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.saved = append(s.saved, text)
	}
	opts.OnConflict = func(conflict types.Conflict) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.conflicts = append(s.conflicts, conflict)
	}

	c, err := NewController(s.ctx, opts)
	s.Require().NoError(err)
	return c
}

func (s *ControllerSuite) waitForStatus(c *Controller, status types.SaveStatus) {
	s.Require().Eventually(func() bool {
		return c.Status() == status
	}, waitFor, tick)
}

func (s *ControllerSuite) TestEditsWithinWindowAreCoalesced() {
	c := s.newController(Options{InitialVersion: "T1"})

	s.client.EXPECT().UpdateInstructions(gomock.Any(), testAgentID, &types.UpdateInstructionsRequest{
		Instructions:      "ab",
		ExpectedUpdatedAt: "T1",
	}).Return(&types.UpdateInstructionsResponse{UpdatedAt: "T2"}, nil).Times(1)

	c.OnTextChanged("a")
	s.Equal(types.SaveStatusIdle, c.Status())

	s.clock.Advance(500 * time.Millisecond)
	c.OnTextChanged("ab")

	s.clock.Advance(1999 * time.Millisecond)
	s.Equal(types.SaveStatusIdle, c.Status())

	s.clock.Advance(time.Millisecond)
	s.waitForStatus(c, types.SaveStatusSaved)

	state := c.State()
	s.Equal("ab", state.Text)
	s.Equal("T2", state.Version)
	s.Equal(s.clock.Now(), state.LastSavedAt)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.Equal([]string{"ab"}, s.saved)
}

func (s *ControllerSuite) TestVersionTokenCarriesForward() {
	c := s.newController(Options{InitialVersion: "T1"})

	gomock.InOrder(
		s.client.EXPECT().UpdateInstructions(gomock.Any(), testAgentID, &types.UpdateInstructionsRequest{
			Instructions:      "first",
			ExpectedUpdatedAt: "T1",
		}).Return(&types.UpdateInstructionsResponse{UpdatedAt: "T2"}, nil),
		s.client.EXPECT().UpdateInstructions(gomock.Any(), testAgentID, &types.UpdateInstructionsRequest{
			Instructions:      "second",
			ExpectedUpdatedAt: "T2",
		}).Return(&types.UpdateInstructionsResponse{Agent: &types.Agent{UpdatedAt: "T3"}}, nil),
	)

	c.OnTextChanged("first")
	s.clock.Advance(DefaultDebounce)
	s.waitForStatus(c, types.SaveStatusSaved)

	c.OnTextChanged("second")
	s.Equal(types.SaveStatusIdle, c.Status())
	s.clock.Advance(DefaultDebounce)

	s.Require().Eventually(func() bool {
		return c.State().Version == "T3"
	}, waitFor, tick)
	s.Equal(types.SaveStatusSaved, c.Status())
}

func (s *ControllerSuite) TestConflictNeverOverwrites() {
	c := s.newController(Options{InitialText: "original", InitialVersion: "T1"})

	s.client.EXPECT().UpdateInstructions(gomock.Any(), testAgentID, &types.UpdateInstructionsRequest{
		Instructions:      "ab",
		ExpectedUpdatedAt: "T1",
	}).Return(nil, &types.ConflictError{Conflict: types.Conflict{UpdatedBy: "alice", UpdatedAt: "T2"}})

	c.OnTextChanged("ab")
	s.clock.Advance(DefaultDebounce)
	s.waitForStatus(c, types.SaveStatusError)

	s.Require().Eventually(func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return len(s.conflicts) == 1
	}, waitFor, tick)

	s.mu.Lock()
	s.Equal(types.Conflict{UpdatedBy: "alice", UpdatedAt: "T2"}, s.conflicts[0])
	s.Empty(s.saved)
	s.mu.Unlock()

	state := c.State()
	s.Equal("ab", state.Text)
	s.Equal("T1", state.Version)
	s.True(state.LastSavedAt.IsZero())
}

func (s *ControllerSuite) TestTooLongNeverCallsServer() {
	c := s.newController(Options{MaxLength: 10})

	// no UpdateInstructions expectation: any call fails the test
	c.OnTextChanged(strings.Repeat("x", 11))
	s.clock.Advance(DefaultDebounce)

	s.waitForStatus(c, types.SaveStatusError)
	s.Contains(c.State().LastError, ErrTooLong.Error())
}

func (s *ControllerSuite) TestLengthCountsCodePoints() {
	c := s.newController(Options{MaxLength: 3})

	s.client.EXPECT().UpdateInstructions(gomock.Any(), testAgentID, gomock.Any()).
		Return(&types.UpdateInstructionsResponse{UpdatedAt: "T2"}, nil)

	c.OnTextChanged("héé")
	s.clock.Advance(DefaultDebounce)
	s.waitForStatus(c, types.SaveStatusSaved)
}

func (s *ControllerSuite) TestGenericFailureNotifies() {
	c := s.newController(Options{InitialVersion: "T1"})

	s.client.EXPECT().UpdateInstructions(gomock.Any(), testAgentID, gomock.Any()).
		Return(nil, &system.HTTPError{StatusCode: http.StatusInternalServerError, Message: "database is locked"})

	notified := make(chan *notification.Notification, 1)
	s.notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, n *notification.Notification) error {
		notified <- n
		return nil
	})

	c.OnTextChanged("hello")
	s.clock.Advance(DefaultDebounce)

	select {
	case n := <-notified:
		s.Equal(notification.LevelError, n.Level)
		s.Equal("Failed to save instructions", n.Title)
		s.Equal("database is locked", n.Message)
		s.Equal(testAgentID, n.AgentID)
	case <-time.After(waitFor):
		s.FailNow("expected a failure notification")
	}

	s.waitForStatus(c, types.SaveStatusError)
	s.Equal("T1", c.State().Version)
}

func (s *ControllerSuite) TestDisabledSkipsWrites() {
	disabled := true
	c := s.newController(Options{Disabled: func() bool { return disabled }})

	c.OnTextChanged("hello")
	s.clock.Advance(DefaultDebounce)
	c.Wait()

	s.Equal(types.SaveStatusIdle, c.Status())
}

func (s *ControllerSuite) TestFlushWritesImmediately() {
	c := s.newController(Options{})

	s.client.EXPECT().UpdateInstructions(gomock.Any(), testAgentID, &types.UpdateInstructionsRequest{
		Instructions: "now",
	}).Return(&types.UpdateInstructionsResponse{UpdatedAt: "T1"}, nil)

	c.OnTextChanged("now")
	c.Flush()

	s.Equal(types.SaveStatusSaved, c.Status())
	s.Equal("T1", c.State().Version)

	// the debounce timer was consumed by the flush
	s.clock.Advance(DefaultDebounce)
	c.Wait()
}

func (s *ControllerSuite) TestCloseDropsPendingEdit() {
	c := s.newController(Options{})

	c.OnTextChanged("never saved")
	c.Close()
	s.clock.Advance(DefaultDebounce)
	c.Wait()

	s.Equal(types.SaveStatusIdle, c.Status())
}

func (s *ControllerSuite) TestOverSoftLimit() {
	c := s.newController(Options{WarnLength: 5, MaxLength: 10})

	c.OnTextChanged("12345")
	s.False(c.OverSoftLimit())

	c.OnTextChanged("123456")
	s.True(c.OverSoftLimit())
	c.Close()
}

// blockingWriter holds every write until released so overlapping flushes
// can be observed.
type blockingWriter struct {
	mu      sync.Mutex
	calls   []types.UpdateInstructionsRequest
	release chan struct{}
	version int
}

func (w *blockingWriter) UpdateInstructions(_ context.Context, _ string, req *types.UpdateInstructionsRequest) (*types.UpdateInstructionsResponse, error) {
	w.mu.Lock()
	w.calls = append(w.calls, *req)
	w.mu.Unlock()

	<-w.release

	w.mu.Lock()
	defer w.mu.Unlock()
	w.version++
	return &types.UpdateInstructionsResponse{UpdatedAt: "T" + string(rune('1'+w.version))}, nil
}

func (w *blockingWriter) callCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.calls)
}

func TestOverlappingSavesAreSerialized(t *testing.T) {
	clock := clockwork.NewFakeClock()
	writer := &blockingWriter{release: make(chan struct{})}

	c, err := NewController(context.Background(), Options{
		AgentID:        testAgentID,
		Writer:         writer,
		Clock:          clock,
		InitialVersion: "T1",
	})
	require.NoError(t, err)

	c.OnTextChanged("one")
	clock.Advance(DefaultDebounce)
	require.Eventually(t, func() bool { return writer.callCount() == 1 }, waitFor, tick)

	// second flush while the first write is still in flight
	c.OnTextChanged("two")
	clock.Advance(DefaultDebounce)
	require.Eventually(t, func() bool { return c.Status() == types.SaveStatusSaving }, waitFor, tick)
	require.Equal(t, 1, writer.callCount())

	writer.release <- struct{}{}
	require.Eventually(t, func() bool { return writer.callCount() == 2 }, waitFor, tick)
	writer.release <- struct{}{}
	c.Wait()

	writer.mu.Lock()
	defer writer.mu.Unlock()
	require.Equal(t, types.UpdateInstructionsRequest{Instructions: "one", ExpectedUpdatedAt: "T1"}, writer.calls[0])
	require.Equal(t, types.UpdateInstructionsRequest{Instructions: "two", ExpectedUpdatedAt: "T2"}, writer.calls[1])
	require.Equal(t, types.SaveStatusSaved, c.Status())
	require.Equal(t, "T3", c.State().Version)
}

func TestNewControllerRequiresAgent(t *testing.T) {
	_, err := NewController(context.Background(), Options{Writer: &blockingWriter{}})
	require.ErrorIs(t, err, client.ErrAgentIDRequired)
}

func (s *ControllerSuite) TestReloadDropsPendingEdit() {
	c := s.newController(Options{InitialText: "local", InitialVersion: "T1"})

	// no UpdateInstructions expectation: any write fails the test
	c.OnTextChanged("local edit 2")
	s.True(c.debouncer.Pending())

	c.Reload("remote edit", "T2")
	s.False(c.debouncer.Pending())

	s.clock.Advance(3 * DefaultDebounce)

	state := c.State()
	s.Equal("remote edit", state.Text)
	s.Equal("T2", state.Version)
	s.Equal(types.SaveStatusIdle, state.Status)
	s.Empty(state.LastError)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.Empty(s.saved)
}

func (s *ControllerSuite) TestEditAfterReloadUsesNewVersion() {
	c := s.newController(Options{InitialVersion: "T1"})

	s.client.EXPECT().UpdateInstructions(gomock.Any(), testAgentID, &types.UpdateInstructionsRequest{
		Instructions:      "remote edit, amended",
		ExpectedUpdatedAt: "T2",
	}).Return(&types.UpdateInstructionsResponse{UpdatedAt: "T3"}, nil).Times(1)

	c.OnTextChanged("stale edit")
	c.Reload("remote edit", "T2")
	c.OnTextChanged("remote edit, amended")

	s.clock.Advance(DefaultDebounce)
	s.waitForStatus(c, types.SaveStatusSaved)
	s.Equal("T3", c.State().Version)
}

func TestReloadIgnoresInFlightResponse(t *testing.T) {
	clock := clockwork.NewFakeClock()
	writer := &blockingWriter{release: make(chan struct{})}

	c, err := NewController(context.Background(), Options{
		AgentID:        testAgentID,
		Writer:         writer,
		Clock:          clock,
		InitialVersion: "T1",
	})
	require.NoError(t, err)

	c.OnTextChanged("local")
	clock.Advance(DefaultDebounce)
	require.Eventually(t, func() bool { return writer.callCount() == 1 }, waitFor, tick)

	// parked behind the in-flight write
	c.OnTextChanged("local 2")
	clock.Advance(DefaultDebounce)
	require.Eventually(t, func() bool { return c.Status() == types.SaveStatusSaving }, waitFor, tick)

	c.Reload("remote", "T9")

	writer.release <- struct{}{}
	c.Wait()

	require.Equal(t, 1, writer.callCount())
	state := c.State()
	require.Equal(t, "remote", state.Text)
	require.Equal(t, "T9", state.Version)
	require.Equal(t, types.SaveStatusIdle, state.Status)
}
