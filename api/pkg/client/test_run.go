package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/helixml/agentbuilder/api/pkg/system"
	"github.com/helixml/agentbuilder/api/pkg/types"
)

// StartTestRun opens the test run event stream for an agent. The stream is
// bound to ctx: cancelling ctx aborts any blocked Next.
func (c *AgentClient) StartTestRun(ctx context.Context, req *types.StartTestRunRequest) (TestRunStream, error) {
	path, err := agentPath(req.AgentID)
	if err != nil {
		return nil, err
	}

	bts, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+path+"/test-runs", bytes.NewReader(bts))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set(system.RequestIDHeader, system.GenerateUUID())
	if c.user != "" {
		httpReq.Header.Set(system.UserHeader, c.user)
	}
	if err := system.AddAutheaders(httpReq, c.apiKey); err != nil {
		return nil, err
	}

	resp, err := c.streamClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to start test run: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, responseError(resp)
	}

	return &httpTestRunStream{
		body:   resp.Body,
		reader: NewEventReader(resp.Body),
	}, nil
}

type httpTestRunStream struct {
	body interface{ Close() error }

	reader    *EventReader
	closeOnce sync.Once
	closeErr  error
}

func (s *httpTestRunStream) Next() (*types.TestRunEvent, error) {
	return s.reader.Next()
}

func (s *httpTestRunStream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.body.Close()
	})
	return s.closeErr
}

// CancelTestRun asks the server to stop a run. Delivery is retried a few
// times; 4xx responses (e.g. the run already finished) are not retried.
func (c *AgentClient) CancelTestRun(ctx context.Context, agentID, runID string) error {
	path, err := agentPath(agentID)
	if err != nil {
		return err
	}
	if runID == "" {
		return errors.New("run ID is required")
	}

	return retry.Do(func() error {
		return c.makeRequest(ctx, http.MethodPost, path+"/test-runs/"+url.PathEscape(runID)+"/cancel", nil, nil)
	},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(200*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var httpErr *system.HTTPError
			if errors.As(err, &httpErr) {
				return httpErr.StatusCode >= http.StatusInternalServerError
			}
			return true
		}),
	)
}

func (c *AgentClient) SearchTestTargets(ctx context.Context, q *types.TestTargetSearchQuery) (*types.TestTargetPage, error) {
	if q.WorkspaceID == "" {
		return nil, errors.New("workspace ID is required")
	}

	var kind string
	switch q.Type {
	case types.TestTargetTypeContact:
		kind = "contacts"
	case types.TestTargetTypeDeal:
		kind = "deals"
	default:
		return nil, fmt.Errorf("cannot search test targets of type %q", q.Type)
	}

	query := url.Values{}
	if q.SearchTerm != "" {
		query.Add("search", q.SearchTerm)
	}
	if q.Cursor != "" {
		query.Add("cursor", q.Cursor)
	}
	if q.Limit > 0 {
		query.Add("limit", fmt.Sprintf("%d", q.Limit))
	}

	path := "/workspaces/" + url.PathEscape(q.WorkspaceID) + "/test-targets/" + kind
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var page types.TestTargetPage
	err := c.makeRequest(ctx, http.MethodGet, path, nil, &page)
	if err != nil {
		return nil, err
	}
	return &page, nil
}
