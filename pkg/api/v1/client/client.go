// Package client provides the API client for the buckets work-queue backend
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/bucketsio/workflow/internal/auth"
	"github.com/bucketsio/workflow/pkg/api/v1/routes"
	"github.com/bucketsio/workflow/pkg/work"
)

// DefaultTimeout is the default timeout for backend requests
const DefaultTimeout = 15 * time.Second

// Client is the interface for the buckets backend.
//
// Every operation may fail with a *BackendError on a transport failure or a
// server-side rejection. The client performs no automatic retries; retry and
// backoff policy belongs to the caller. A failed Deposit, Update, or Delete
// leaves the in-memory work item unchanged, so the same call can be retried
// safely.
type Client interface {
	// HealthCheck checks the health of the backend
	HealthCheck(ctx context.Context) (map[string]string, error)

	// Withdraw atomically claims one queued work item matching the filters.
	// The backend guarantees at most one claimant per item: two concurrent
	// calls with overlapping filters never receive the same item. A nil
	// result with a nil error means no matching item is queued, which is
	// the expected empty-queue outcome, not an error.
	Withdraw(ctx context.Context, params WithdrawParams) (*work.Work, error)

	// Deposit inserts a new work record. When returnIDs is set, the
	// assigned ids are returned; the caller assigns w.ID from the first.
	// Deposits are not idempotent: re-depositing the same logical work
	// creates a duplicate queue entry.
	Deposit(ctx context.Context, w *work.Work, returnIDs bool) ([]string, error)

	// Update persists the current in-memory field values back to the
	// backend record identified by w.ID. Fails if the work item was never
	// deposited or the record no longer exists.
	Update(ctx context.Context, w *work.Work) error

	// Delete removes the backend record by id. Idempotent: deleting an
	// already-deleted or unknown id is reported as success.
	Delete(ctx context.Context, w *work.Work) error
}

var _ Client = &APIClient{}

// Options contains configuration options for the API client
type Options struct {
	// BaseURL is the base URL of the backend
	BaseURL string

	// Timeout is the per-request timeout
	Timeout time.Duration

	// Token is the access token. When empty, the token is resolved through
	// the standard chain: environment variable aliases, then the local
	// secrets directory.
	Token string
}

// DefaultOptions returns the default client options
func DefaultOptions() *Options {
	return &Options{
		BaseURL: routes.DefaultBaseURL,
		Timeout: DefaultTimeout,
	}
}

// APIClient implements the Client interface
type APIClient struct {
	baseURL string
	timeout time.Duration
	token   string
}

// NewClient creates a new API client with the given options
func NewClient(opts *Options) (Client, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &APIClient{
		baseURL: opts.BaseURL,
		timeout: timeout,
		token:   auth.Resolve(opts.Token),
	}, nil
}

// createAgent creates a new Fiber Agent for the given method and endpoint
func (c *APIClient) createAgent(ctx context.Context, method, endpoint string, body interface{}) (*fiber.Agent, error) {
	fullURL := c.baseURL + endpoint

	var agent *fiber.Agent
	switch method {
	case http.MethodGet:
		agent = fiber.Get(fullURL)
	case http.MethodPost:
		agent = fiber.Post(fullURL)
	case http.MethodPut:
		agent = fiber.Put(fullURL)
	case http.MethodDelete:
		agent = fiber.Delete(fullURL)
	default:
		return nil, fmt.Errorf("unsupported HTTP method: %s", method)
	}

	// Set timeout from context or client default
	if deadline, ok := ctx.Deadline(); ok {
		agent.Timeout(time.Until(deadline))
	} else {
		agent.Timeout(c.timeout)
	}

	agent.Set("Content-Type", "application/json")
	agent.Set("Accept", "application/json")
	if c.token != "" {
		agent.Set("Authorization", "Bearer "+c.token)
	}

	if body != nil {
		agent.JSON(body)
	}

	return agent, nil
}

// doRequest sends the request and decodes the response into v if provided.
// It returns the HTTP status code so callers can distinguish empty-result
// responses from populated ones.
func (c *APIClient) doRequest(agent *fiber.Agent, v interface{}) (int, error) {
	statusCode, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return 0, &BackendError{Err: errs[0]}
	}

	if statusCode < 200 || statusCode >= 300 {
		return statusCode, &BackendError{
			StatusCode: statusCode,
			Message:    string(body),
		}
	}

	if v != nil && len(body) > 0 {
		if err := json.Unmarshal(body, v); err != nil {
			return statusCode, &BackendError{
				StatusCode: statusCode,
				Message:    fmt.Sprintf("error decoding response: %v", err),
			}
		}
	}

	return statusCode, nil
}

// executeRequest creates an agent, sends the request, and processes the response
func (c *APIClient) executeRequest(ctx context.Context, method, endpoint string, body, response interface{}) (int, error) {
	agent, err := c.createAgent(ctx, method, endpoint, body)
	if err != nil {
		return 0, err
	}

	return c.doRequest(agent, response)
}

// HealthCheck checks the health of the backend
func (c *APIClient) HealthCheck(ctx context.Context) (map[string]string, error) {
	var response map[string]string
	if _, err := c.executeRequest(ctx, http.MethodGet, routes.HealthCheckURL(), nil, &response); err != nil {
		return map[string]string{}, err
	}
	return response, nil
}

// Withdraw atomically claims one queued work item matching the filters
func (c *APIClient) Withdraw(ctx context.Context, params WithdrawParams) (*work.Work, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid withdraw filters: %w", err)
	}

	var claimed work.Work
	statusCode, err := c.executeRequest(ctx, http.MethodPost, routes.WithdrawURL(), params, &claimed)
	if err != nil {
		return nil, err
	}

	// 204 means no matching item is queued
	if statusCode == http.StatusNoContent {
		return nil, nil
	}
	return &claimed, nil
}

// Deposit inserts a new work record
func (c *APIClient) Deposit(ctx context.Context, w *work.Work, returnIDs bool) ([]string, error) {
	payload, err := w.Payload()
	if err != nil {
		return nil, fmt.Errorf("error encoding work payload: %w", err)
	}

	var response DepositResponse
	if _, err := c.executeRequest(ctx, http.MethodPost, routes.DepositURL(returnIDs), payload, &response); err != nil {
		return nil, err
	}

	if !returnIDs {
		return nil, nil
	}
	return response.IDs, nil
}

// Update persists the current in-memory field values back to the backend record
func (c *APIClient) Update(ctx context.Context, w *work.Work) error {
	if w.ID == "" {
		return fmt.Errorf("cannot update work without an id: deposit it first")
	}

	payload, err := w.Payload()
	if err != nil {
		return fmt.Errorf("error encoding work payload: %w", err)
	}

	_, err = c.executeRequest(ctx, http.MethodPut, routes.WorkItemURL(w.ID), payload, nil)
	return err
}

// Delete removes the backend record by id
func (c *APIClient) Delete(ctx context.Context, w *work.Work) error {
	if w.ID == "" {
		// Never deposited, nothing to remove
		return nil
	}

	_, err := c.executeRequest(ctx, http.MethodDelete, routes.WorkItemURL(w.ID), nil, nil)
	if err != nil {
		var berr *BackendError
		// Deleting an unknown id is success from the client's perspective
		if errors.As(err, &berr) && berr.IsNotFound() {
			return nil
		}
		return err
	}
	return nil
}
