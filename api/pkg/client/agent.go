package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/helixml/agentbuilder/api/pkg/types"
)

var ErrAgentIDRequired = errors.New("agent ID is required")

func agentPath(agentID string) (string, error) {
	if agentID == "" {
		return "", ErrAgentIDRequired
	}
	return "/agents/" + url.PathEscape(agentID), nil
}

func (c *AgentClient) ListAgents(ctx context.Context, workspaceID string) ([]*types.Agent, error) {
	path := "/agents"
	if workspaceID != "" {
		query := url.Values{}
		query.Add("workspace_id", workspaceID)
		path += "?" + query.Encode()
	}

	var agents []*types.Agent
	err := c.makeRequest(ctx, http.MethodGet, path, nil, &agents)
	if err != nil {
		return nil, err
	}
	return agents, nil
}

func (c *AgentClient) GetAgent(ctx context.Context, agentID string) (*types.Agent, error) {
	path, err := agentPath(agentID)
	if err != nil {
		return nil, err
	}

	var agent types.Agent
	err = c.makeRequest(ctx, http.MethodGet, path, nil, &agent)
	if err != nil {
		return nil, err
	}
	return &agent, nil
}

func (c *AgentClient) CreateAgent(ctx context.Context, agent *types.Agent) (*types.Agent, error) {
	var created types.Agent
	err := c.makeRequest(ctx, http.MethodPost, "/agents", agent, &created)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// DuplicateAgent copies an agent; the copy is always created as a draft.
func (c *AgentClient) DuplicateAgent(ctx context.Context, agentID string, req *types.DuplicateAgentRequest) (*types.Agent, error) {
	path, err := agentPath(agentID)
	if err != nil {
		return nil, err
	}

	var agent types.Agent
	err = c.makeRequest(ctx, http.MethodPost, path+"/duplicate", req, &agent)
	if err != nil {
		return nil, err
	}
	return &agent, nil
}

// UpdateInstructions persists new instruction text. When the server reports a
// newer version than req.ExpectedUpdatedAt the returned error is a
// *types.ConflictError. It is sent once: a retry after a lost response would
// be rejected as a conflict with the caller's own write.
func (c *AgentClient) UpdateInstructions(ctx context.Context, agentID string, req *types.UpdateInstructionsRequest) (*types.UpdateInstructionsResponse, error) {
	path, err := agentPath(agentID)
	if err != nil {
		return nil, err
	}

	var resp types.UpdateInstructionsResponse
	err = c.makeRequestWith(ctx, c.writeClient, http.MethodPut, path+"/instructions", req, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *AgentClient) ValidateInstructions(ctx context.Context, agentID string) (*types.ValidationResult, error) {
	path, err := agentPath(agentID)
	if err != nil {
		return nil, err
	}

	var result types.ValidationResult
	err = c.makeRequest(ctx, http.MethodPost, path+"/instructions/validate", nil, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *AgentClient) ReviewInstructions(ctx context.Context, agentID string, req *types.ReviewRequest) (*types.ReviewResult, error) {
	path, err := agentPath(agentID)
	if err != nil {
		return nil, err
	}

	var result types.ReviewResult
	err = c.makeRequest(ctx, http.MethodPost, path+"/instructions/review", req, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}
