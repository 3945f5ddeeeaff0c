package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/helixml/agentbuilder/api/pkg/client"
	"github.com/helixml/agentbuilder/api/pkg/pubsub"
	"github.com/helixml/agentbuilder/api/pkg/simulator"
	"github.com/helixml/agentbuilder/api/pkg/system"
	"github.com/helixml/agentbuilder/api/pkg/types"
)

var errRunCancelled = errors.New("test run cancelled")

type activeRun struct {
	agentID string
	cancel  context.CancelCauseFunc
}

// ActiveRuns is the number of test runs streaming right now.
func (apiServer *AgentBuilderAPIServer) ActiveRuns() int {
	return apiServer.runs.Size()
}

// startTestRun godoc
// @Summary Start a test run
// @Description Simulate the agent's saved instructions against a test target. The response is a text/event-stream of start, step and one terminal complete or error event.
// @Tags    test-runs
// @Produce text/event-stream
// @Param request body types.StartTestRunRequest true "Test target."
// @Param id path string true "Agent ID"
// @Router /api/v1/agents/{id}/test-runs [post]
func (apiServer *AgentBuilderAPIServer) startTestRun(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	agent, ok := apiServer.loadAgent(rw, r)
	if !ok {
		return
	}

	var req types.StartTestRunRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErrResponse(rw, fmt.Errorf("failed to decode request body: %w", err), http.StatusBadRequest)
			return
		}
	}

	target, err := targetFromRequest(&req)
	if err != nil {
		writeErrResponse(rw, err, http.StatusBadRequest)
		return
	}

	bindings, err := apiServer.simulator.Bind(ctx, agent.WorkspaceID, target)
	if err != nil {
		if errors.Is(err, simulator.ErrTargetNotFound) {
			writeErrResponse(rw, err, http.StatusNotFound)
			return
		}
		writeErrResponse(rw, err, http.StatusInternalServerError)
		return
	}

	run := apiServer.simulator.Simulate(ctx, agent.Instructions, bindings)

	runID := system.GenerateTestRunID()
	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	sub, err := apiServer.pubsub.Subscribe(ctx, pubsub.GetTestRunCancelTopic(runID), func(_ []byte) error {
		cancel(errRunCancelled)
		return nil
	})
	if err != nil {
		writeErrResponse(rw, fmt.Errorf("failed to subscribe to cancellations: %w", err), http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := sub.Unsubscribe(); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("failed to unsubscribe from cancellations")
		}
	}()

	apiServer.runs.Store(runID, &activeRun{agentID: agent.ID, cancel: cancel})
	defer apiServer.runs.Delete(runID)

	logger := log.Ctx(ctx).With().
		Str("agent_id", agent.ID).
		Str("run_id", runID).
		Logger()

	rw.Header().Set("Cache-Control", "no-cache")
	rw.Header().Set("Connection", "keep-alive")
	rw.Header().Set("Content-Type", "text/event-stream")
	rw.WriteHeader(http.StatusOK)

	stream := &eventWriter{rw: rw, rc: http.NewResponseController(rw)}

	err = stream.write(&types.TestRunEvent{
		Type:       types.TestRunEventStart,
		RunID:      runID,
		TotalSteps: len(run.Steps),
	})
	if err != nil {
		logger.Debug().Err(err).Msg("client went away before the run started")
		return
	}

	logger.Info().Int("steps", len(run.Steps)).Msg("test run started")

	apiServer.streamSteps(runCtx, logger, stream, run)
}

func (apiServer *AgentBuilderAPIServer) streamSteps(ctx context.Context, logger zerolog.Logger, stream *eventWriter, run *simulator.Run) {
	var timeoutC <-chan time.Time
	if timeout := apiServer.Cfg.TestRuns.Timeout; timeout > 0 {
		timer := apiServer.clock.NewTimer(timeout)
		defer timer.Stop()
		timeoutC = timer.Chan()
	}

	total := len(run.Steps)

	for i, step := range run.Steps {
		delay := apiServer.clock.NewTimer(apiServer.Cfg.TestRuns.StepDelay)

		select {
		case <-ctx.Done():
			delay.Stop()
			if errors.Is(context.Cause(ctx), errRunCancelled) {
				logger.Info().Int("steps_sent", i).Msg("test run cancelled")
			} else {
				logger.Debug().Int("steps_sent", i).Msg("client went away during test run")
			}
			return

		case <-timeoutC:
			delay.Stop()
			result := simulator.Summarize(run.Steps[:i])
			result.TimedOut = true
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Test run stopped after %s, %d of %d steps ran", apiServer.Cfg.TestRuns.Timeout, i, total))
			logger.Warn().Int("steps_sent", i).Msg("test run timed out")
			if err := stream.write(&types.TestRunEvent{Type: types.TestRunEventComplete, Result: result}); err != nil {
				logger.Debug().Err(err).Msg("failed to write timeout result")
			}
			return

		case <-delay.Chan():
		}

		err := stream.write(&types.TestRunEvent{
			Type:     types.TestRunEventStep,
			Step:     step,
			Progress: &types.TestRunProgress{Current: i + 1, Total: total},
		})
		if err != nil {
			logger.Debug().Err(err).Msg("client went away during test run")
			return
		}
	}

	terminal := &types.TestRunEvent{Type: types.TestRunEventComplete, Result: run.Result}
	if !run.Result.Success {
		terminal = &types.TestRunEvent{
			Type:    types.TestRunEventError,
			Message: run.Result.Error,
			Result:  run.Result,
		}
	}
	if err := stream.write(terminal); err != nil {
		logger.Debug().Err(err).Msg("failed to write test run result")
		return
	}

	logger.Info().
		Bool("success", run.Result.Success).
		Float64("credits", run.Result.Estimates.TotalCredits).
		Msg("test run finished")
}

// cancelTestRun godoc
// @Summary Cancel a test run
// @Description Ask the handler streaming a run to stop. Cancelling a run that already finished is a no-op.
// @Tags    test-runs
// @Param id path string true "Agent ID"
// @Param run_id path string true "Test run ID"
// @Router /api/v1/agents/{id}/test-runs/{run_id}/cancel [post]
func (apiServer *AgentBuilderAPIServer) cancelTestRun(rw http.ResponseWriter, r *http.Request) {
	agentID := getID(r)
	runID := mux.Vars(r)["run_id"]

	if run, ok := apiServer.runs.Load(runID); ok && run.agentID != agentID {
		writeErrResponse(rw, errors.New("test run not found"), http.StatusNotFound)
		return
	}

	// the run may be streamed by another instance sharing the broker
	err := apiServer.pubsub.Publish(r.Context(), pubsub.GetTestRunCancelTopic(runID), []byte(agentID))
	if err != nil {
		writeErrResponse(rw, fmt.Errorf("failed to publish cancellation: %w", err), http.StatusInternalServerError)
		return
	}

	if run, ok := apiServer.runs.Load(runID); ok {
		run.cancel(errRunCancelled)
	}

	writeResponse(rw, nil, http.StatusAccepted)
}

func targetFromRequest(req *types.StartTestRunRequest) (types.TestTarget, error) {
	targetType, err := types.ValidateTestTargetType(string(req.TargetType), true)
	if err != nil {
		return types.TestTarget{}, err
	}

	switch targetType {
	case types.TestTargetTypeContact, types.TestTargetTypeDeal:
		if len(req.TargetIDs) == 0 || req.TargetIDs[0] == "" {
			return types.TestTarget{}, fmt.Errorf("targetIds is required for %s targets", targetType)
		}
		return types.TestTarget{Type: targetType, ID: req.TargetIDs[0]}, nil
	default:
		return types.TestTarget{Type: types.TestTargetTypeNone, ManualData: req.ManualData}, nil
	}
}

type eventWriter struct {
	rw http.ResponseWriter
	rc *http.ResponseController
}

func (w *eventWriter) write(event *types.TestRunEvent) error {
	if err := client.WriteEvent(w.rw, event); err != nil {
		return fmt.Errorf("error writing test run event: %w", err)
	}

	// Flush the ResponseWriter buffer to send the event immediately
	if err := w.rc.Flush(); err != nil {
		return fmt.Errorf("error flushing test run event: %w", err)
	}
	return nil
}
