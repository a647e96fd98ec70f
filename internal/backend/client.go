// Package backend wraps the dashboard's REST data source. The relay only
// reads: five list endpoints, one per collection.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/stirixi/copilot-relay/internal/relayerr"
	"github.com/stirixi/copilot-relay/internal/retry"
)

// HTTPClient abstracts HTTP calls for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client wraps the data backend's REST API.
type Client struct {
	baseURL    string
	httpClient HTTPClient
	retryCfg   retry.Config
	logger     zerolog.Logger
}

// NewClient creates a new backend API client.
func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		retryCfg:   retry.DefaultConfig(),
		logger:     logger.With().Str("component", "backend").Logger(),
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(hc HTTPClient) {
	c.httpClient = hc
}

// BaseURL returns the base URL of the data backend.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListEngineers fetches the engineers collection.
func (c *Client) ListEngineers(ctx context.Context) ([]Engineer, error) {
	var out []Engineer
	if err := c.list(ctx, "/engineers/", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListProjects fetches the projects collection.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var out []Project
	if err := c.list(ctx, "/projects/", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListProspects fetches the prospects collection.
func (c *Client) ListProspects(ctx context.Context) ([]Prospect, error) {
	var out []Prospect
	if err := c.list(ctx, "/prospects/", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListPrompts fetches the prompts collection.
func (c *Client) ListPrompts(ctx context.Context) ([]Prompt, error) {
	var out []Prompt
	if err := c.list(ctx, "/prompts/", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListActions fetches the actions collection.
func (c *Client) ListActions(ctx context.Context) ([]Action, error) {
	var out []Action
	if err := c.list(ctx, "/actions/", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Ping probes the backend, for readiness checks.
func (c *Client) Ping(ctx context.Context) error {
	var out []Engineer
	return c.list(ctx, "/engineers/", &out)
}

// list performs a GET with retry on transient failures and decodes the
// JSON array response into v.
func (c *Client) list(ctx context.Context, path string, v interface{}) error {
	return retry.Do(ctx, c.retryCfg, func(ctx context.Context) error {
		resp, err := c.do(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		return decodeResponse(resp, v)
	})
}

// do executes an API request.
func (c *Client) do(ctx context.Context, method, path string) (*http.Response, error) {
	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, relayerr.NewAPIError("backend", resp.StatusCode, string(respBody))
	}

	return resp, nil
}

// decodeResponse reads and decodes a JSON response.
func decodeResponse(resp *http.Response, v interface{}) error {
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
