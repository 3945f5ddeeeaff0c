package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/helixml/agentbuilder/api/pkg/config"
	"github.com/helixml/agentbuilder/api/pkg/system"
	"github.com/helixml/agentbuilder/api/pkg/types"
)

//go:generate mockgen -source $GOFILE -destination client_mocks.go -package $GOPACKAGE

type Client interface {
	ListAgents(ctx context.Context, workspaceID string) ([]*types.Agent, error)
	GetAgent(ctx context.Context, agentID string) (*types.Agent, error)
	CreateAgent(ctx context.Context, agent *types.Agent) (*types.Agent, error)
	DuplicateAgent(ctx context.Context, agentID string, req *types.DuplicateAgentRequest) (*types.Agent, error)

	UpdateInstructions(ctx context.Context, agentID string, req *types.UpdateInstructionsRequest) (*types.UpdateInstructionsResponse, error)
	ValidateInstructions(ctx context.Context, agentID string) (*types.ValidationResult, error)
	ReviewInstructions(ctx context.Context, agentID string, req *types.ReviewRequest) (*types.ReviewResult, error)

	StartTestRun(ctx context.Context, req *types.StartTestRunRequest) (TestRunStream, error)
	CancelTestRun(ctx context.Context, agentID, runID string) error

	SearchTestTargets(ctx context.Context, q *types.TestTargetSearchQuery) (*types.TestTargetPage, error)
}

// TestRunStream yields test run events in the order the server sent them.
// Next returns io.EOF once the server closes the stream.
type TestRunStream interface {
	Next() (*types.TestRunEvent, error)
	Close() error
}

// AgentClient is the client for the agent builder api
type AgentClient struct {
	httpClient   *retryablehttp.Client
	// writeClient sends conditional writes. A replayed write would carry a
	// version token its own first attempt may already have consumed.
	writeClient  *retryablehttp.Client
	// streams are never retried, a replayed start would launch a second run
	streamClient *http.Client
	apiKey       string
	user         string
	url          string
}

var _ Client = &AgentClient{}

const (
	DefaultURL = "http://localhost:8080"
)

var ErrDecodeResponse = errors.New("failed to decode response")

func NewClientFromEnv() (*AgentClient, error) {
	cfg, err := config.LoadCliConfig()
	if err != nil {
		return nil, err
	}

	return NewClient(cfg.URL, cfg.APIKey,
		WithRetryMax(cfg.RetryMax),
		WithTLSSkipVerify(cfg.TLSSkipVerify),
		WithUser(cfg.User),
	)
}

type Option func(*options)

type options struct {
	retryMax      int
	tlsSkipVerify bool
	user          string
}

func WithRetryMax(n int) Option {
	return func(o *options) { o.retryMax = n }
}

func WithTLSSkipVerify(skip bool) Option {
	return func(o *options) { o.tlsSkipVerify = skip }
}

// WithUser sets the name the server records as the author of saves.
func WithUser(user string) Option {
	return func(o *options) { o.user = user }
}

func NewClient(url, apiKey string, opts ...Option) (*AgentClient, error) {
	if url == "" {
		url = DefaultURL
	}

	o := options{retryMax: 3}
	for _, opt := range opts {
		opt(&o)
	}

	url = strings.TrimRight(url, "/")
	if !strings.HasSuffix(url, system.APISubPath) {
		// append /api/v1 to the url
		url = url + system.APISubPath
	}

	retryClient := system.NewRetryClient(o.retryMax, o.tlsSkipVerify)

	return &AgentClient{
		httpClient:   retryClient,
		writeClient:  system.NewRetryClient(0, o.tlsSkipVerify),
		streamClient: retryClient.HTTPClient,
		apiKey:       apiKey,
		user:         o.user,
		url:          url,
	}, nil
}

func (c *AgentClient) makeRequest(ctx context.Context, method, path string, body interface{}, v interface{}) error {
	return c.makeRequestWith(ctx, c.httpClient, method, path, body, v)
}

func (c *AgentClient) makeRequestWith(ctx context.Context, httpClient *retryablehttp.Client, method, path string, body interface{}, v interface{}) error {
	var reader io.Reader
	if body != nil {
		bts, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(bts)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.url+path, reader)
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(system.RequestIDHeader, system.GenerateUUID())
	if c.user != "" {
		req.Header.Set(system.UserHeader, c.user)
	}
	if err := system.AddAuthHeadersRetryable(req, c.apiKey); err != nil {
		return err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return responseError(resp)
	}

	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			return fmt.Errorf("%w: %v", ErrDecodeResponse, err)
		}
	}

	return nil
}

// responseError converts a non-2xx response into a *types.ConflictError for
// 409s carrying conflict details and a *system.HTTPError otherwise.
func responseError(resp *http.Response) error {
	bts, err := io.ReadAll(resp.Body)
	if err != nil {
		return &system.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("status code %d", resp.StatusCode),
		}
	}

	if resp.StatusCode == http.StatusConflict {
		var conflict types.ConflictResponse
		if err := json.Unmarshal(bts, &conflict); err == nil && conflict.Conflict != nil {
			return &types.ConflictError{Conflict: *conflict.Conflict}
		}
	}

	var httpErr system.HTTPError
	if err := json.Unmarshal(bts, &httpErr); err == nil && httpErr.Message != "" {
		httpErr.StatusCode = resp.StatusCode
		return &httpErr
	}

	message := strings.TrimSpace(string(bts))
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	return &system.HTTPError{
		StatusCode: resp.StatusCode,
		Message:    fmt.Sprintf("status code %d (%s)", resp.StatusCode, message),
	}
}

// ErrorMessage extracts a human readable message from err, falling back to
// fallback when err carries nothing the user can act on.
func ErrorMessage(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	var httpErr *system.HTTPError
	if errors.As(err, &httpErr) && httpErr.Message != "" {
		return httpErr.Message
	}
	var conflictErr *types.ConflictError
	if errors.As(err, &conflictErr) {
		return conflictErr.Error()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fallback
	}
	return fallback + ": " + err.Error()
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var httpErr *system.HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound
}
