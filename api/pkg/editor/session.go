// Package editor ties the instruction autosave and the test runner of one
// agent together, the way the agent edit screen uses them.
package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/helixml/agentbuilder/api/pkg/autosave"
	"github.com/helixml/agentbuilder/api/pkg/client"
	"github.com/helixml/agentbuilder/api/pkg/config"
	"github.com/helixml/agentbuilder/api/pkg/estimates"
	"github.com/helixml/agentbuilder/api/pkg/notification"
	"github.com/helixml/agentbuilder/api/pkg/testrun"
	"github.com/helixml/agentbuilder/api/pkg/types"
)

// ErrStale is returned when the instructions changed while an analysis was
// running; the result no longer describes the text and was dropped.
var ErrStale = errors.New("instructions changed during analysis, result discarded")

var ErrNoConflict = errors.New("there is no conflict to resolve")

type Options struct {
	Client    client.Client
	Agent     *types.Agent
	Estimates estimates.Store
	Notifier  notification.Notifier
	Clock     clockwork.Clock
	Editor    config.Editor

	// ReadOnly disables autosave, e.g. when viewing an agent without edit rights.
	ReadOnly bool

	OnConflict     func(conflict types.Conflict)
	OnSaveStatus   func(status types.SaveStatus)
	OnTestSnapshot func(snapshot testrun.Snapshot)
}

type Session struct {
	opts   Options
	logger zerolog.Logger

	autosave *autosave.Controller
	testRun  *testrun.Controller

	mu sync.Mutex
	// revision increases on every edit so analyses can tell whether the
	// text they looked at is still current.
	revision   uint64
	text       string
	validation *types.ValidationResult
	review     *types.ReviewResult
	conflict   *types.Conflict

	stopSnapshots func()
}

func NewSession(ctx context.Context, opts Options) (*Session, error) {
	if opts.Client == nil {
		return nil, errors.New("client is required")
	}
	if opts.Agent == nil || opts.Agent.ID == "" {
		return nil, client.ErrAgentIDRequired
	}
	if opts.Notifier == nil {
		opts.Notifier = notification.NewLogNotifier()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	agent := *opts.Agent
	opts.Agent = &agent

	s := &Session{
		opts:   opts,
		logger: log.With().Str("agent_id", agent.ID).Logger(),
		text:   agent.Instructions,
	}

	readOnly := opts.ReadOnly
	saver, err := autosave.NewController(ctx, autosave.Options{
		AgentID:        agent.ID,
		Writer:         opts.Client,
		Notifier:       opts.Notifier,
		Clock:          opts.Clock,
		Debounce:       opts.Editor.AutosaveDebounce,
		WarnLength:     opts.Editor.WarnLength,
		MaxLength:      opts.Editor.MaxLength,
		InitialText:    agent.Instructions,
		InitialVersion: agent.UpdatedAt,
		Disabled:       func() bool { return readOnly },
		OnSaved:        s.onSaved,
		OnConflict:     s.onConflict,
		OnStatusChange: opts.OnSaveStatus,
	})
	if err != nil {
		return nil, err
	}
	s.autosave = saver

	runner, err := testrun.NewController(testrun.Options{
		AgentID:      agent.ID,
		Client:       opts.Client,
		Estimates:    opts.Estimates,
		Notifier:     opts.Notifier,
		Clock:        opts.Clock,
		Instructions: agent.Instructions,
	})
	if err != nil {
		return nil, err
	}
	s.testRun = runner

	if opts.OnTestSnapshot != nil {
		updates, stop := runner.Subscribe()
		s.stopSnapshots = stop
		go func() {
			for snapshot := range updates {
				opts.OnTestSnapshot(snapshot)
			}
		}()
	}

	return s, nil
}

// Agent is the agent as last known to be saved on the server.
func (s *Session) Agent() types.Agent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.opts.Agent
}

func (s *Session) Autosave() *autosave.Controller {
	return s.autosave
}

func (s *Session) TestRun() *testrun.Controller {
	return s.testRun
}

// SetText applies an edit. Validation and review results of the previous
// text are cleared.
func (s *Session) SetText(text string) {
	s.mu.Lock()
	if text == s.text {
		s.mu.Unlock()
		return
	}
	s.text = text
	s.revision++
	s.validation = nil
	s.review = nil
	s.mu.Unlock()

	s.testRun.SetInstructions(text)
	s.autosave.OnTextChanged(text)
}

func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

func (s *Session) Validation() *types.ValidationResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validation
}

func (s *Session) ReviewResult() *types.ReviewResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.review
}

func (s *Session) Conflict() *types.Conflict {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conflict
}

// Validate checks the saved instructions, so any pending edit is flushed
// first.
func (s *Session) Validate(ctx context.Context) (*types.ValidationResult, error) {
	s.autosave.Flush()
	if s.autosave.Status() == types.SaveStatusError {
		err := errors.New(s.autosave.State().LastError)
		s.notify(ctx, notification.LevelError, "Validation skipped", "instructions are not saved: "+err.Error())
		return nil, err
	}

	revision := s.currentRevision()

	result, err := s.opts.Client.ValidateInstructions(ctx, s.opts.Agent.ID)
	if err != nil {
		s.notify(ctx, notification.LevelError, "Validation failed", client.ErrorMessage(err, "failed to validate instructions"))
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.revision != revision {
		return nil, ErrStale
	}
	s.validation = result
	return result, nil
}

// Review asks for suggestions on the current text.
func (s *Session) Review(ctx context.Context) (*types.ReviewResult, error) {
	s.mu.Lock()
	revision := s.revision
	text := s.text
	s.mu.Unlock()

	if strings.TrimSpace(text) == "" {
		return nil, errors.New("instructions are empty")
	}

	result, err := s.opts.Client.ReviewInstructions(ctx, s.opts.Agent.ID, &types.ReviewRequest{Instructions: text})
	if err != nil {
		s.notify(ctx, notification.LevelError, "Review failed", client.ErrorMessage(err, "failed to review instructions"))
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.revision != revision {
		return nil, ErrStale
	}
	s.review = result
	return result, nil
}

// Duplicate copies the agent into a new draft. An empty name derives one
// from the current agent.
func (s *Session) Duplicate(ctx context.Context, name string) (*types.Agent, error) {
	if name == "" {
		name = fmt.Sprintf("%s (copy)", s.opts.Agent.Name)
	}

	s.autosave.Flush()

	agent, err := s.opts.Client.DuplicateAgent(ctx, s.opts.Agent.ID, &types.DuplicateAgentRequest{Name: name})
	if err != nil {
		s.notify(ctx, notification.LevelError, "Duplicate failed", client.ErrorMessage(err, "failed to duplicate agent"))
		return nil, err
	}

	s.notify(ctx, notification.LevelInfo, "Agent duplicated", fmt.Sprintf("created draft %q", agent.Name))
	return agent, nil
}

// StartTest runs the current text against target.
func (s *Session) StartTest(ctx context.Context, target types.TestTarget) error {
	err := s.testRun.StartTest(ctx, target)
	if errors.Is(err, testrun.ErrTargetRequired) {
		s.notify(ctx, notification.LevelWarning, "Select a test target", err.Error())
	}
	return err
}

func (s *Session) CancelTest(ctx context.Context) error {
	return s.testRun.CancelTest(ctx)
}

// ResolveConflict settles a rejected save. With keepLocal the local text is
// written over the remote change; otherwise the remote text replaces it.
func (s *Session) ResolveConflict(ctx context.Context, keepLocal bool) error {
	s.mu.Lock()
	conflict := s.conflict
	s.mu.Unlock()
	if conflict == nil {
		return ErrNoConflict
	}

	agent, err := s.opts.Client.GetAgent(ctx, s.opts.Agent.ID)
	if err != nil {
		return fmt.Errorf("failed to reload agent: %w", err)
	}

	s.mu.Lock()
	s.conflict = nil
	s.opts.Agent.Instructions = agent.Instructions
	s.opts.Agent.UpdatedAt = agent.UpdatedAt
	s.opts.Agent.UpdatedBy = agent.UpdatedBy
	text := s.text
	s.mu.Unlock()

	if keepLocal {
		s.logger.Info().Str("remote_updated_by", agent.UpdatedBy).Msg("overwriting remote instructions with local text")
		s.autosave.SetVersion(agent.UpdatedAt)
		s.autosave.OnTextChanged(text)
		s.autosave.Flush()
		return nil
	}

	s.logger.Info().Str("remote_updated_by", agent.UpdatedBy).Msg("discarding local instructions for remote text")
	// edits typed since the conflict must not reach the server with the
	// remote version token
	s.autosave.Reload(agent.Instructions, agent.UpdatedAt)

	s.mu.Lock()
	s.text = agent.Instructions
	s.revision++
	s.validation = nil
	s.review = nil
	s.mu.Unlock()
	s.testRun.SetInstructions(agent.Instructions)
	return nil
}

// Close saves any pending edit and stops a running test.
func (s *Session) Close(ctx context.Context) {
	s.autosave.Flush()
	if err := s.testRun.CancelTest(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cancel test run")
	}
	if s.stopSnapshots != nil {
		s.stopSnapshots()
	}
}

func (s *Session) currentRevision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

func (s *Session) onSaved(text, updatedAt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts.Agent.Instructions = text
	if updatedAt != "" {
		s.opts.Agent.UpdatedAt = updatedAt
	}
}

func (s *Session) onConflict(conflict types.Conflict) {
	s.mu.Lock()
	s.conflict = &conflict
	s.mu.Unlock()

	if s.opts.OnConflict != nil {
		s.opts.OnConflict(conflict)
	}
}

func (s *Session) notify(ctx context.Context, level notification.Level, title, message string) {
	err := s.opts.Notifier.Notify(ctx, &notification.Notification{
		Level:   level,
		Title:   title,
		Message: message,
		AgentID: s.opts.Agent.ID,
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to deliver notification")
	}
}
