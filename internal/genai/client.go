package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/stirixi/copilot-relay/internal/metrics"
	"github.com/stirixi/copilot-relay/internal/relayerr"
)

const (
	defaultBaseURL     = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel       = "gemini-1.5-flash"
	defaultIdleTimeout = 45 * time.Second

	// Fixed generation parameters for the copilot persona.
	temperature     = 0.35
	topK            = 32
	topP            = 0.9
	maxOutputTokens = 800
)

// Client calls the Gemini generateContent endpoint family.
type Client struct {
	apiKey      string
	model       string
	baseURL     string
	idleTimeout time.Duration
	httpClient  *http.Client
	logger      zerolog.Logger
	metrics     *metrics.Metrics
}

// Option configures the client.
type Option func(*Client)

func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(base, "/") }
}

func WithIdleTimeout(d time.Duration) Option {
	return func(c *Client) { c.idleTimeout = d }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l.With().Str("component", "genai").Logger() }
}

// NewClient constructs a Gemini client.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:      apiKey,
		model:       defaultModel,
		baseURL:     defaultBaseURL,
		idleTimeout: defaultIdleTimeout,
		// No client-level timeout: streams are bounded by the idle timer
		// and single-shot calls by the request context.
		httpClient: &http.Client{},
		logger:     zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.model }

func (c *Client) endpoint(verb string) string {
	return fmt.Sprintf("%s/models/%s:%s?key=%s", c.baseURL, c.model, verb, c.apiKey)
}

func (c *Client) doRequest(ctx context.Context, url string, turns []Turn) (*http.Response, error) {
	body, err := json.Marshal(generateRequest{
		Contents: turns,
		GenerationConfig: generationConfig{
			Temperature:     temperature,
			TopK:            topK,
			TopP:            topP,
			MaxOutputTokens: maxOutputTokens,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini http: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, relayerr.NewAPIError("gemini", resp.StatusCode, string(raw))
	}
	return resp, nil
}

// Complete sends a blocking generation request and returns the reply text.
func (c *Client) Complete(ctx context.Context, turns []Turn) (string, error) {
	if c.apiKey == "" {
		return "", relayerr.ErrMissingCredential
	}

	start := time.Now()
	resp, err := c.doRequest(ctx, c.endpoint("generateContent"), turns)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var gr generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	text := extractText(gr)
	if text == "" {
		text = FallbackText
	}

	if c.metrics != nil {
		c.metrics.GenerationDuration.Observe(time.Since(start).Seconds())
	}
	c.logger.Debug().
		Str("model", c.model).
		Int("turns", len(turns)).
		Int("reply_len", len(text)).
		Msg("gemini complete")
	return text, nil
}

// StreamGenerate opens the SSE variant of the generation call. The returned
// Stream owns the response body and the cancel handle; the caller must run
// Pump to drain it.
func (c *Client) StreamGenerate(ctx context.Context, turns []Turn) (*Stream, error) {
	if c.apiKey == "" {
		return nil, relayerr.ErrMissingCredential
	}

	ctx, cancel := context.WithCancel(ctx)
	resp, err := c.doRequest(ctx, c.endpoint("streamGenerateContent")+"&alt=sse", turns)
	if err != nil {
		cancel()
		return nil, err
	}

	return &Stream{
		body:        resp.Body,
		cancel:      cancel,
		idleTimeout: c.idleTimeout,
		logger:      c.logger,
		metrics:     c.metrics,
	}, nil
}

// extractText joins all text parts of the first candidate.
func extractText(gr generateResponse) string {
	if len(gr.Candidates) == 0 {
		return ""
	}
	parts := make([]string, 0, len(gr.Candidates[0].Content.Parts))
	for _, p := range gr.Candidates[0].Content.Parts {
		parts = append(parts, p.Text)
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}
