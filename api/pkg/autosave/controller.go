// Package autosave turns instruction edits into debounced, conflict-aware
// writes. Every edit restarts the debounce window so only the last edit in
// an idle gap is persisted; a write rejected because the document changed
// remotely is reported through OnConflict and never retried.
package autosave

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/helixml/agentbuilder/api/pkg/client"
	"github.com/helixml/agentbuilder/api/pkg/notification"
	"github.com/helixml/agentbuilder/api/pkg/types"
)

const (
	DefaultDebounce   = 2 * time.Second
	DefaultWarnLength = 8000
	DefaultMaxLength  = 10000

	saveTimeout = 30 * time.Second

	saveFailedTitle = "Failed to save instructions"
)

var ErrTooLong = errors.New("instructions exceed the maximum length")

// InstructionsWriter persists instruction text. A remote change since
// ExpectedUpdatedAt must be reported as a *types.ConflictError.
type InstructionsWriter interface {
	UpdateInstructions(ctx context.Context, agentID string, req *types.UpdateInstructionsRequest) (*types.UpdateInstructionsResponse, error)
}

type Options struct {
	AgentID  string
	Writer   InstructionsWriter
	Notifier notification.Notifier
	Clock    clockwork.Clock

	Debounce   time.Duration
	WarnLength int
	MaxLength  int

	InitialText    string
	InitialVersion string

	// Disabled, when set and true, suppresses writes (e.g. read-only agents).
	Disabled func() bool

	OnSaved        func(text, updatedAt string)
	OnConflict     func(conflict types.Conflict)
	OnStatusChange func(status types.SaveStatus)
}

// State is a point-in-time copy of the controller.
type State struct {
	Text        string
	Version     string
	Status      types.SaveStatus
	LastSavedAt time.Time
	LastError   string
}

type Controller struct {
	opts      Options
	ctx       context.Context
	logger    zerolog.Logger
	debouncer *Debouncer[edit]

	mu          sync.Mutex
	text        string
	version     string
	status      types.SaveStatus
	lastSavedAt time.Time
	lastError   string
	// epoch is bumped by Reload; edits and writes from an older epoch are
	// dropped.
	epoch uint64

	// at most one write is in flight; a flush arriving meanwhile parks its
	// text in queued and is sent with the refreshed version token.
	inFlight bool
	queued   *string
	idle     *sync.Cond
}

// edit is a debounced text snapshot and the epoch it was typed in.
type edit struct {
	text  string
	epoch uint64
}

func NewController(ctx context.Context, opts Options) (*Controller, error) {
	if opts.AgentID == "" {
		return nil, client.ErrAgentIDRequired
	}
	if opts.Writer == nil {
		return nil, errors.New("instructions writer is required")
	}
	if opts.Notifier == nil {
		opts.Notifier = notification.NewLogNotifier()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.WarnLength <= 0 {
		opts.WarnLength = DefaultWarnLength
	}
	if opts.MaxLength <= 0 {
		opts.MaxLength = DefaultMaxLength
	}

	c := &Controller{
		opts:    opts,
		ctx:     context.WithoutCancel(ctx),
		logger:  log.With().Str("agent_id", opts.AgentID).Logger(),
		text:    opts.InitialText,
		version: opts.InitialVersion,
		status:  types.SaveStatusIdle,
	}
	c.idle = sync.NewCond(&c.mu)
	c.debouncer = NewDebouncer(opts.Clock, opts.Debounce, c.flush)

	return c, nil
}

// TextLength measures instructions the way the limits are defined, in
// Unicode code points.
func TextLength(text string) int {
	return utf8.RuneCountInString(text)
}

// OnTextChanged records an edit and restarts the debounce window.
func (c *Controller) OnTextChanged(text string) {
	c.mu.Lock()
	c.text = text
	epoch := c.epoch
	changed := c.setStatusLocked(types.SaveStatusIdle)
	c.mu.Unlock()

	c.notifyStatus(changed)
	c.debouncer.Schedule(edit{text: text, epoch: epoch})
}

// Flush writes any pending edit immediately and waits for in-flight writes.
func (c *Controller) Flush() {
	c.debouncer.Flush()
	c.Wait()
}

// Wait blocks until no write is in flight.
func (c *Controller) Wait() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.inFlight {
		c.idle.Wait()
	}
}

// Close drops any edit that has not been flushed yet.
func (c *Controller) Close() {
	if c.debouncer.Cancel() {
		c.logger.Debug().Msg("dropping unsaved instructions edit")
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Text:        c.text,
		Version:     c.version,
		Status:      c.status,
		LastSavedAt: c.lastSavedAt,
		LastError:   c.lastError,
	}
}

func (c *Controller) Status() types.SaveStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// OverSoftLimit reports whether the current text is past the warning length.
func (c *Controller) OverSoftLimit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return TextLength(c.text) > c.opts.WarnLength
}

// Reload replaces the buffer and version token, e.g. after the host took
// the remote side of a conflict. Pending and parked edits are dropped and
// the response of a write still in flight is ignored.
func (c *Controller) Reload(text, version string) {
	c.debouncer.Cancel()

	c.mu.Lock()
	c.epoch++
	c.text = text
	c.version = version
	c.queued = nil
	c.lastError = ""
	changed := c.setStatusLocked(types.SaveStatusIdle)
	c.mu.Unlock()

	c.notifyStatus(changed)
	c.logger.Debug().Str("updated_at", version).Msg("instructions reloaded")
}

// SetVersion replaces the version token, e.g. after the host reloaded the
// agent to resolve a conflict.
func (c *Controller) SetVersion(version string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.version = version
}

func (c *Controller) flush(e edit) {
	if c.opts.Disabled != nil && c.opts.Disabled() {
		return
	}
	text := e.text

	c.mu.Lock()
	if e.epoch != c.epoch {
		c.mu.Unlock()
		return
	}
	if TextLength(text) > c.opts.MaxLength {
		c.lastError = fmt.Sprintf("%s (%d > %d characters)", ErrTooLong, TextLength(text), c.opts.MaxLength)
		changed := c.setStatusLocked(types.SaveStatusError)
		c.mu.Unlock()
		c.notifyStatus(changed)
		return
	}

	changed := c.setStatusLocked(types.SaveStatusSaving)
	if c.inFlight {
		c.queued = &text
		c.mu.Unlock()
		c.notifyStatus(changed)
		return
	}
	c.inFlight = true
	version := c.version
	epoch := c.epoch
	c.mu.Unlock()

	c.notifyStatus(changed)
	c.save(text, version, epoch)
}

func (c *Controller) save(text, version string, epoch uint64) {
	for {
		ctx, cancel := context.WithTimeout(c.ctx, saveTimeout)
		resp, err := c.opts.Writer.UpdateInstructions(ctx, c.opts.AgentID, &types.UpdateInstructionsRequest{
			Instructions:      text,
			ExpectedUpdatedAt: version,
		})
		cancel()

		c.mu.Lock()
		var after afterSave
		if epoch == c.epoch {
			after = c.applyLocked(text, resp, err)
		} else {
			c.logger.Debug().Msg("dropping response of a write made before reload")
		}
		after.status = c.status

		next := c.queued
		c.queued = nil
		if next != nil && after.conflict == nil {
			text = *next
			version = c.version
			epoch = c.epoch
			resuming := c.setStatusLocked(types.SaveStatusSaving)
			c.mu.Unlock()
			after.run(c)
			c.notifyStatus(resuming)
			continue
		}

		c.inFlight = false
		c.idle.Broadcast()
		c.mu.Unlock()

		after.run(c)
		return
	}
}

// afterSave holds the callbacks of one write, run outside the lock.
type afterSave struct {
	statusChanged bool
	status        types.SaveStatus

	saved        bool
	savedText    string
	savedVersion string

	conflict *types.Conflict
	failure  string
}

func (a afterSave) run(c *Controller) {
	if a.statusChanged && c.opts.OnStatusChange != nil {
		c.opts.OnStatusChange(a.status)
	}
	if a.saved && c.opts.OnSaved != nil {
		c.opts.OnSaved(a.savedText, a.savedVersion)
	}
	if a.conflict != nil && c.opts.OnConflict != nil {
		c.opts.OnConflict(*a.conflict)
	}
	if a.failure != "" {
		err := c.opts.Notifier.Notify(c.ctx, &notification.Notification{
			Level:   notification.LevelError,
			Title:   saveFailedTitle,
			Message: a.failure,
			AgentID: c.opts.AgentID,
		})
		if err != nil {
			c.logger.Warn().Err(err).Msg("failed to deliver save failure notification")
		}
	}
}

func (c *Controller) applyLocked(text string, resp *types.UpdateInstructionsResponse, err error) afterSave {
	var after afterSave

	if err == nil {
		updatedAt := resp.UpdatedAt
		if updatedAt == "" && resp.Agent != nil {
			updatedAt = resp.Agent.UpdatedAt
		}
		if updatedAt != "" {
			c.version = updatedAt
		}
		c.lastSavedAt = c.opts.Clock.Now()
		c.lastError = ""

		after.statusChanged = c.setStatusLocked(types.SaveStatusSaved)
		after.saved = true
		after.savedText = text
		after.savedVersion = c.version

		c.logger.Debug().Str("updated_at", c.version).Msg("instructions saved")
		return after
	}

	var conflictErr *types.ConflictError
	if errors.As(err, &conflictErr) {
		conflict := conflictErr.Conflict
		c.lastError = conflictErr.Error()
		after.statusChanged = c.setStatusLocked(types.SaveStatusError)
		after.conflict = &conflict

		c.logger.Warn().
			Str("updated_by", conflict.UpdatedBy).
			Str("updated_at", conflict.UpdatedAt).
			Str("expected_updated_at", c.version).
			Msg("instructions changed remotely, not saving")
		return after
	}

	c.lastError = client.ErrorMessage(err, saveFailedTitle)
	after.statusChanged = c.setStatusLocked(types.SaveStatusError)
	after.failure = c.lastError

	c.logger.Err(err).Msg("failed to save instructions")
	return after
}

func (c *Controller) setStatusLocked(status types.SaveStatus) bool {
	if c.status == status {
		return false
	}
	c.status = status
	return true
}

func (c *Controller) notifyStatus(changed bool) {
	if !changed || c.opts.OnStatusChange == nil {
		return
	}
	c.opts.OnStatusChange(c.Status())
}
