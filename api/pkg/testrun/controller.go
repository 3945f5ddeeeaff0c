// Package testrun drives a server-simulated dry run of an agent and keeps
// the step-by-step view of it.
package testrun

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	"github.com/helixml/agentbuilder/api/pkg/client"
	"github.com/helixml/agentbuilder/api/pkg/estimates"
	"github.com/helixml/agentbuilder/api/pkg/notification"
	"github.com/helixml/agentbuilder/api/pkg/types"
)

const (
	DefaultTickInterval = 100 * time.Millisecond

	cancelTimeout     = 10 * time.Second
	runFailedTitle    = "Test run failed"
	streamEndedEarly  = "test run stream ended before the run finished"
	subscriberBacklog = 16
)

// Streamer is the part of the backend client the controller needs.
type Streamer interface {
	StartTestRun(ctx context.Context, req *types.StartTestRunRequest) (client.TestRunStream, error)
	CancelTestRun(ctx context.Context, agentID, runID string) error
}

type Options struct {
	AgentID   string
	Client    Streamer
	Estimates estimates.Store
	Notifier  notification.Notifier
	Clock     clockwork.Clock

	// TickInterval is how often Elapsed is refreshed while running.
	TickInterval time.Duration

	Instructions string
}

// Snapshot is an immutable copy of the controller state.
type Snapshot struct {
	Status   Status
	RunID    string
	Target   types.TestTarget
	Steps    []types.StepResult
	Progress *types.TestRunProgress
	Elapsed  time.Duration

	// Result is nil while running, when idle and after cancellation.
	Result *types.TestRunResult
	// StreamError is set when the transport failed rather than the run.
	StreamError string

	TargetWarning bool

	// PreviousEstimate is what was stored before this run started.
	PreviousEstimate *types.StoredEstimate
	// Estimate is what this run stored, set on completed and failed runs.
	Estimate *types.StoredEstimate
}

func (s Snapshot) Running() bool {
	return s.Status == StatusRunning
}

func (s Snapshot) Summary() Summary {
	return Summarize(s.Steps)
}

func (s Snapshot) OverallStatus() types.StepStatus {
	return OverallStatus(s.Steps)
}

func (s Snapshot) RemainingSteps() int {
	return RemainingSteps(s.Progress)
}

// ShowSummary reports whether the summary banner can be shown. A transport
// failure blocks it since the steps may be incomplete.
func (s Snapshot) ShowSummary() bool {
	return (s.Status == StatusCompleted || s.Status == StatusFailed) && s.StreamError == ""
}

// run holds the resources of one started run. gen ties stream events to
// the run that produced them.
type run struct {
	gen       uint64
	ctx       context.Context
	cancel    context.CancelFunc
	stream    client.TestRunStream
	ticker    clockwork.Ticker
	startedAt time.Time
	wg        *conc.WaitGroup
}

type Controller struct {
	opts   Options
	logger zerolog.Logger

	mu           sync.Mutex
	instructions string
	status       Status
	target       types.TestTarget
	runID        string
	steps        []types.StepResult
	progress     *types.TestRunProgress
	elapsed      time.Duration
	result       *types.TestRunResult
	streamError  string
	previous     *types.StoredEstimate
	estimate     *types.StoredEstimate

	gen uint64
	run *run

	subscribers map[uint64]chan Snapshot
	nextSubID   uint64
}

func NewController(opts Options) (*Controller, error) {
	if opts.AgentID == "" {
		return nil, client.ErrAgentIDRequired
	}
	if opts.Client == nil {
		return nil, errors.New("test run client is required")
	}
	if opts.Estimates == nil {
		opts.Estimates = estimates.NewMemoryStore()
	}
	if opts.Notifier == nil {
		opts.Notifier = notification.NewLogNotifier()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}

	return &Controller{
		opts:         opts,
		logger:       log.With().Str("agent_id", opts.AgentID).Logger(),
		instructions: opts.Instructions,
		status:       StatusIdle,
		subscribers:  make(map[uint64]chan Snapshot),
	}, nil
}

// SetInstructions updates the text used for the target-required check.
func (c *Controller) SetInstructions(instructions string) {
	c.mu.Lock()
	c.instructions = instructions
	c.mu.Unlock()
	c.publish()
}

// SetTarget records the selected target without starting a run.
func (c *Controller) SetTarget(target types.TestTarget) {
	c.mu.Lock()
	c.target = target
	c.mu.Unlock()
	c.publish()
}

// StartTest opens the event stream for a new run. It is only valid from
// idle. When the instructions reference contact or deal fields and target
// is not selected, it returns ErrTargetRequired and nothing changes apart
// from the recorded target.
func (c *Controller) StartTest(ctx context.Context, target types.TestTarget) error {
	c.mu.Lock()
	switch {
	case c.status == StatusRunning:
		c.mu.Unlock()
		return ErrRunInProgress
	case c.status != StatusIdle:
		c.mu.Unlock()
		return ErrNotIdle
	}

	c.target = target
	if TargetWarning(c.instructions, target) {
		c.mu.Unlock()
		c.publish()
		return ErrTargetRequired
	}

	if err := transition(&c.status, StatusRunning); err != nil {
		c.mu.Unlock()
		return err
	}

	c.gen++
	runCtx, cancel := context.WithCancel(ctx)
	r := &run{
		gen:       c.gen,
		ctx:       runCtx,
		cancel:    cancel,
		startedAt: c.opts.Clock.Now(),
		wg:        conc.NewWaitGroup(),
	}
	c.run = r
	c.runID = ""
	c.steps = nil
	c.progress = nil
	c.elapsed = 0
	c.result = nil
	c.streamError = ""
	c.estimate = nil
	c.previous = nil
	c.mu.Unlock()
	c.publish()

	previous, err := estimates.Lookup(ctx, c.opts.Estimates, c.opts.AgentID)
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to load stored estimate")
	}

	c.logger.Info().
		Str("target_type", string(target.Type)).
		Str("target_id", target.ID).
		Msg("starting test run")

	stream, err := c.opts.Client.StartTestRun(runCtx, types.NewStartTestRunRequest(c.opts.AgentID, target))

	c.mu.Lock()
	if c.gen != r.gen || c.status != StatusRunning {
		// cancelled while the stream was opening
		c.mu.Unlock()
		if stream != nil {
			_ = stream.Close()
		}
		return nil
	}
	c.previous = previous
	if err != nil {
		message := client.ErrorMessage(err, "failed to start test run")
		fin := c.failStartLocked(message)
		c.mu.Unlock()
		fin.run(c)
		return fmt.Errorf("failed to start test run: %w", err)
	}

	r.stream = stream
	r.ticker = c.opts.Clock.NewTicker(c.opts.TickInterval)
	r.wg.Go(func() { c.pump(r) })
	r.wg.Go(func() { c.tick(r) })
	c.mu.Unlock()

	return nil
}

// CancelTest stops a running test. The server is told to stop on a best
// effort basis; locally the run is cancelled with no result. Calling it in
// any other state is a no-op.
func (c *Controller) CancelTest(ctx context.Context) error {
	c.mu.Lock()
	if c.status != StatusRunning {
		c.mu.Unlock()
		return nil
	}
	r, runID, err := c.cancelLocked()
	c.mu.Unlock()
	if err != nil {
		return err
	}

	c.cancelled(ctx, r, runID)
	r.wg.Wait()
	return nil
}

func (c *Controller) cancelLocked() (*run, string, error) {
	if err := transition(&c.status, StatusCancelled); err != nil {
		return nil, "", err
	}
	r := c.run
	c.gen++
	c.elapsed = c.opts.Clock.Since(r.startedAt)
	c.stopLocked(r)
	return r, c.runID, nil
}

// cancelled releases the stream of a cancelled run and tells the server.
func (c *Controller) cancelled(ctx context.Context, r *run, runID string) {
	c.mu.Lock()
	stream := r.stream
	c.mu.Unlock()
	if stream != nil {
		_ = stream.Close()
	}

	if runID != "" {
		cancelCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cancelTimeout)
		defer cancel()
		if err := c.opts.Client.CancelTestRun(cancelCtx, c.opts.AgentID, runID); err != nil {
			c.logger.Warn().Err(err).Str("run_id", runID).Msg("failed to signal test run cancellation")
		}
	}

	c.logger.Info().Str("run_id", runID).Msg("test run cancelled")
	c.publish()
}

// Reset clears the last run and returns to idle. It fails while running.
func (c *Controller) Reset() error {
	c.mu.Lock()
	if c.status == StatusRunning {
		c.mu.Unlock()
		return ErrRunInProgress
	}
	if c.status != StatusIdle {
		if err := transition(&c.status, StatusIdle); err != nil {
			c.mu.Unlock()
			return err
		}
	}

	c.run = nil
	c.runID = ""
	c.steps = nil
	c.progress = nil
	c.elapsed = 0
	c.result = nil
	c.streamError = ""
	c.estimate = nil
	c.previous = nil
	c.mu.Unlock()

	c.publish()
	return nil
}

// Wait blocks until the goroutines of the current run have exited.
func (c *Controller) Wait() {
	c.mu.Lock()
	r := c.run
	c.mu.Unlock()
	if r != nil {
		r.wg.Wait()
	}
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe returns a channel receiving a snapshot after every change and
// a function to stop receiving. Slow subscribers miss intermediate
// snapshots, never the latest one.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, subscriberBacklog)

	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = ch
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subscribers, id)
			c.mu.Unlock()
			close(ch)
		})
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		Status:           c.status,
		RunID:            c.runID,
		Target:           c.target,
		Elapsed:          c.elapsed,
		StreamError:      c.streamError,
		TargetWarning:    TargetWarning(c.instructions, c.target),
		PreviousEstimate: copyEstimate(c.previous),
		Estimate:         copyEstimate(c.estimate),
	}
	if len(c.steps) > 0 {
		s.Steps = make([]types.StepResult, len(c.steps))
		copy(s.Steps, c.steps)
	}
	if c.progress != nil {
		p := *c.progress
		s.Progress = &p
	}
	if c.result != nil {
		r := *c.result
		r.Warnings = append([]string(nil), c.result.Warnings...)
		if c.result.Estimates != nil {
			e := *c.result.Estimates
			r.Estimates = &e
		}
		s.Result = &r
	}
	return s
}

func copyEstimate(e *types.StoredEstimate) *types.StoredEstimate {
	if e == nil {
		return nil
	}
	cp := *e
	return &cp
}

func (c *Controller) publish() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.subscribers) == 0 {
		return
	}
	s := c.snapshotLocked()
	for _, ch := range c.subscribers {
		select {
		case ch <- s:
			continue
		default:
		}
		// drop the oldest queued snapshot to make room for the latest
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}

func (c *Controller) pump(r *run) {
	for {
		event, err := r.stream.Next()
		if err != nil {
			c.streamFailed(r, err)
			return
		}

		fin, ok := c.apply(r, event)
		if !ok {
			return
		}
		if fin != nil {
			_ = r.stream.Close()
			fin.run(c)
			return
		}
		c.publish()
	}
}

func (c *Controller) tick(r *run) {
	for {
		select {
		case <-r.ctx.Done():
			return
		case <-r.ticker.Chan():
			c.mu.Lock()
			if c.gen != r.gen || c.status != StatusRunning {
				c.mu.Unlock()
				return
			}
			c.elapsed = c.opts.Clock.Since(r.startedAt)
			c.mu.Unlock()
			c.publish()
		}
	}
}

// apply folds one event into the run. It returns ok=false when the run is
// no longer the current one, and a finisher when the event was terminal.
func (c *Controller) apply(r *run, event *types.TestRunEvent) (*finisher, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen != r.gen || c.status != StatusRunning {
		return nil, false
	}

	switch event.Type {
	case types.TestRunEventStart:
		if event.RunID != "" {
			c.runID = event.RunID
		}
		if event.TotalSteps > 0 {
			c.setTotalLocked(event.TotalSteps)
		}
		c.logger.Debug().Str("run_id", c.runID).Int("total_steps", event.TotalSteps).Msg("test run started")

	case types.TestRunEventStep:
		// arrival order is kept; steps are neither reordered nor deduplicated
		c.steps = append(c.steps, *event.Step)

		current := len(c.steps)
		if event.Progress != nil {
			current = event.Progress.Current
			c.setTotalLocked(event.Progress.Total)
		}
		if c.progress == nil {
			c.progress = &types.TestRunProgress{}
		}
		if current > c.progress.Current {
			c.progress.Current = current
		}

	case types.TestRunEventComplete:
		result := event.Result
		if result == nil {
			result = &types.TestRunResult{Success: true}
		}
		return c.finishLocked(r, StatusCompleted, result, ""), true

	case types.TestRunEventError:
		result := event.Result
		if result == nil {
			result = &types.TestRunResult{}
		}
		result.Success = false
		if result.Error == "" {
			result.Error = event.Message
		}
		if result.Error == "" {
			result.Error = runFailedTitle
		}
		return c.finishLocked(r, StatusFailed, result, ""), true
	}

	return nil, true
}

// setTotalLocked records the total step count; once known it never changes.
func (c *Controller) setTotalLocked(total int) {
	if total <= 0 {
		return
	}
	if c.progress == nil {
		c.progress = &types.TestRunProgress{}
	}
	if c.progress.Total == 0 {
		c.progress.Total = total
	}
}

func (c *Controller) streamFailed(r *run, err error) {
	message := streamEndedEarly
	if !errors.Is(err, io.EOF) {
		message = client.ErrorMessage(err, "test run stream failed")
	}

	c.mu.Lock()
	if c.gen != r.gen || c.status != StatusRunning {
		c.mu.Unlock()
		return
	}

	if r.ctx.Err() != nil {
		// the context StartTest was given ended, which cancels the run
		_, runID, cancelErr := c.cancelLocked()
		c.mu.Unlock()
		if cancelErr == nil {
			c.cancelled(context.Background(), r, runID)
		}
		return
	}

	c.logger.Warn().Err(err).Str("run_id", c.runID).Msg("test run stream failed")
	fin := c.finishLocked(r, StatusFailed, &types.TestRunResult{Error: message}, message)
	c.mu.Unlock()

	_ = r.stream.Close()
	fin.run(c)
}

// failStartLocked fails a run whose stream never opened. Unlike every other
// failed run it skips the stored estimate: nothing ran, so the totals would
// be zero and would replace the agent's last real estimate.
func (c *Controller) failStartLocked(message string) *finisher {
	fin := c.finishLocked(c.run, StatusFailed, &types.TestRunResult{Error: message}, message)
	fin.estimate = nil
	c.estimate = nil
	return fin
}

// finisher carries the side effects of a terminal transition, run outside
// the lock.
type finisher struct {
	status   Status
	runID    string
	message  string
	estimate *types.StoredEstimate
}

func (c *Controller) finishLocked(r *run, to Status, result *types.TestRunResult, streamError string) *finisher {
	if err := transition(&c.status, to); err != nil {
		c.logger.Error().Err(err).Msg("unexpected test run transition")
		return &finisher{status: c.status}
	}

	c.elapsed = c.opts.Clock.Since(r.startedAt)
	c.result = result
	c.streamError = streamError
	c.stopLocked(r)

	estimate := &types.StoredEstimate{
		Time:      c.elapsed.Seconds(),
		Credits:   TotalCredits(c.steps),
		Timestamp: c.opts.Clock.Now().UTC(),
	}
	if result.Estimates != nil {
		estimate.Time = result.Estimates.TotalSeconds
		estimate.Credits = result.Estimates.TotalCredits
	}
	c.estimate = estimate

	return &finisher{
		status:   to,
		runID:    c.runID,
		message:  result.Error,
		estimate: copyEstimate(estimate),
	}
}

func (c *Controller) stopLocked(r *run) {
	if r.ticker != nil {
		r.ticker.Stop()
	}
	r.cancel()
}

func (f *finisher) run(c *Controller) {
	ctx := context.Background()

	logEvent := c.logger.Info()
	if f.status == StatusFailed {
		logEvent = c.logger.Warn()
	}
	logEvent.Str("run_id", f.runID).Str("status", string(f.status)).Msg("test run finished")

	if f.estimate != nil {
		if err := c.opts.Estimates.Put(ctx, c.opts.AgentID, f.estimate); err != nil {
			c.logger.Warn().Err(err).Msg("failed to store test run estimate")
		}
	}

	if f.status == StatusFailed {
		err := c.opts.Notifier.Notify(ctx, &notification.Notification{
			Level:   notification.LevelError,
			Title:   runFailedTitle,
			Message: f.message,
			AgentID: c.opts.AgentID,
		})
		if err != nil {
			c.logger.Warn().Err(err).Msg("failed to deliver test run notification")
		}
	}

	c.publish()
}
