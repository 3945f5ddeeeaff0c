package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/helixml/agentbuilder/api/pkg/pubsub"
	"github.com/helixml/agentbuilder/api/pkg/simulator"
	"github.com/helixml/agentbuilder/api/pkg/store"
	"github.com/helixml/agentbuilder/api/pkg/types"
)

// listAgents godoc
// @Summary List agents
// @Description List agents, optionally filtered by workspace.
// @Tags    agents
// @Success 200 {array} types.Agent
// @Param workspace_id query string false "Workspace ID"
// @Router /api/v1/agents [get]
func (apiServer *AgentBuilderAPIServer) listAgents(rw http.ResponseWriter, r *http.Request) {
	agents, err := apiServer.Store.ListAgents(r.Context(), &store.ListAgentsQuery{
		WorkspaceID: r.URL.Query().Get("workspace_id"),
	})
	if err != nil {
		writeErrResponse(rw, err, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, agents, http.StatusOK)
}

// getAgent godoc
// @Summary Get an agent
// @Tags    agents
// @Success 200 {object} types.Agent
// @Param id path string true "Agent ID"
// @Router /api/v1/agents/{id} [get]
func (apiServer *AgentBuilderAPIServer) getAgent(rw http.ResponseWriter, r *http.Request) {
	agent, ok := apiServer.loadAgent(rw, r)
	if !ok {
		return
	}

	writeResponse(rw, agent, http.StatusOK)
}

func (apiServer *AgentBuilderAPIServer) createAgent(rw http.ResponseWriter, r *http.Request) {
	var agent types.Agent
	if err := json.NewDecoder(r.Body).Decode(&agent); err != nil {
		writeErrResponse(rw, fmt.Errorf("failed to decode request body: %w", err), http.StatusBadRequest)
		return
	}

	if agent.WorkspaceID == "" {
		writeErrResponse(rw, errors.New("workspaceId is required"), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(agent.Name) == "" {
		writeErrResponse(rw, errors.New("name is required"), http.StatusBadRequest)
		return
	}
	if err := apiServer.checkLength(agent.Instructions); err != nil {
		writeErrResponse(rw, err, http.StatusBadRequest)
		return
	}

	agent.ID = ""
	agent.UpdatedBy = getRequestUser(r)

	created, err := apiServer.Store.CreateAgent(r.Context(), &agent)
	if err != nil {
		writeErrResponse(rw, err, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, created, http.StatusCreated)
}

// duplicateAgent godoc
// @Summary Duplicate an agent
// @Description Copy an agent's instructions into a new draft agent.
// @Tags    agents
// @Success 201 {object} types.Agent
// @Param request body types.DuplicateAgentRequest true "Request body with the new name."
// @Param id path string true "Agent ID"
// @Router /api/v1/agents/{id}/duplicate [post]
func (apiServer *AgentBuilderAPIServer) duplicateAgent(rw http.ResponseWriter, r *http.Request) {
	var req types.DuplicateAgentRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErrResponse(rw, fmt.Errorf("failed to decode request body: %w", err), http.StatusBadRequest)
			return
		}
	}

	agent, err := apiServer.Store.DuplicateAgent(r.Context(), getID(r), req.Name, getRequestUser(r))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErrResponse(rw, errors.New("agent not found"), http.StatusNotFound)
			return
		}
		writeErrResponse(rw, err, http.StatusInternalServerError)
		return
	}

	writeResponse(rw, agent, http.StatusCreated)
}

// updateInstructions godoc
// @Summary Save agent instructions
// @Description Save instructions if expectedUpdatedAt still matches the stored version. A mismatch returns 409 with who changed the agent and when.
// @Tags    agents
// @Success 200 {object} types.UpdateInstructionsResponse
// @Failure 409 {object} types.ConflictResponse
// @Param request body types.UpdateInstructionsRequest true "Request body with the instructions."
// @Param id path string true "Agent ID"
// @Router /api/v1/agents/{id}/instructions [put]
func (apiServer *AgentBuilderAPIServer) updateInstructions(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := getID(r)

	var req types.UpdateInstructionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrResponse(rw, fmt.Errorf("failed to decode request body: %w", err), http.StatusBadRequest)
		return
	}

	if err := apiServer.checkLength(req.Instructions); err != nil {
		writeErrResponse(rw, err, http.StatusBadRequest)
		return
	}

	agent, err := apiServer.Store.UpdateInstructions(ctx, id, &req, getRequestUser(r))
	if err != nil {
		var conflictErr *types.ConflictError
		switch {
		case errors.As(err, &conflictErr):
			writeResponse(rw, &types.ConflictResponse{
				Error:    conflictErr.Error(),
				Conflict: &conflictErr.Conflict,
			}, http.StatusConflict)
		case errors.Is(err, store.ErrNotFound):
			writeErrResponse(rw, errors.New("agent not found"), http.StatusNotFound)
		default:
			writeErrResponse(rw, err, http.StatusInternalServerError)
		}
		return
	}

	apiServer.publishAgentUpdate(r, agent)

	writeResponse(rw, &types.UpdateInstructionsResponse{
		Agent:     agent,
		UpdatedAt: agent.UpdatedAt,
	}, http.StatusOK)
}

func (apiServer *AgentBuilderAPIServer) publishAgentUpdate(r *http.Request, agent *types.Agent) {
	payload, err := json.Marshal(agent)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to encode agent update")
		return
	}

	err = apiServer.pubsub.Publish(r.Context(), pubsub.GetAgentUpdatesTopic(agent.ID), payload)
	if err != nil {
		log.Ctx(r.Context()).Warn().Err(err).Str("agent_id", agent.ID).Msg("failed to publish agent update")
	}
}

// validateInstructions godoc
// @Summary Validate the saved instructions
// @Tags    agents
// @Success 200 {object} types.ValidationResult
// @Param id path string true "Agent ID"
// @Router /api/v1/agents/{id}/instructions/validate [post]
func (apiServer *AgentBuilderAPIServer) validateInstructions(rw http.ResponseWriter, r *http.Request) {
	agent, ok := apiServer.loadAgent(rw, r)
	if !ok {
		return
	}

	writeResponse(rw, simulator.Validate(agent.Instructions), http.StatusOK)
}

// reviewInstructions godoc
// @Summary Review instructions
// @Description Review the given instructions, or the saved ones when the body is empty.
// @Tags    agents
// @Success 200 {object} types.ReviewResult
// @Param request body types.ReviewRequest false "Instructions to review."
// @Param id path string true "Agent ID"
// @Router /api/v1/agents/{id}/instructions/review [post]
func (apiServer *AgentBuilderAPIServer) reviewInstructions(rw http.ResponseWriter, r *http.Request) {
	agent, ok := apiServer.loadAgent(rw, r)
	if !ok {
		return
	}

	var req types.ReviewRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErrResponse(rw, fmt.Errorf("failed to decode request body: %w", err), http.StatusBadRequest)
			return
		}
	}

	instructions := req.Instructions
	if strings.TrimSpace(instructions) == "" {
		instructions = agent.Instructions
	}

	writeResponse(rw, simulator.Review(instructions), http.StatusOK)
}

func (apiServer *AgentBuilderAPIServer) loadAgent(rw http.ResponseWriter, r *http.Request) (*types.Agent, bool) {
	agent, err := apiServer.Store.GetAgent(r.Context(), getID(r))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErrResponse(rw, errors.New("agent not found"), http.StatusNotFound)
			return nil, false
		}
		writeErrResponse(rw, err, http.StatusInternalServerError)
		return nil, false
	}
	return agent, true
}

// checkLength enforces the hard limit in code points.
func (apiServer *AgentBuilderAPIServer) checkLength(instructions string) error {
	maxLength := apiServer.Cfg.Editor.MaxLength
	if maxLength > 0 && utf8.RuneCountInString(instructions) > maxLength {
		return fmt.Errorf("instructions exceed the maximum length of %d characters", maxLength)
	}
	return nil
}
