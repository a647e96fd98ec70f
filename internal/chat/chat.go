// Package chat implements the dashboard-side conversation state machine:
// message history, streaming sends, and passive insights hydration over
// the relay endpoint.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stirixi/copilot-relay/internal/genai"
	"github.com/stirixi/copilot-relay/internal/insights"
	"github.com/stirixi/copilot-relay/internal/relay"
	"github.com/stirixi/copilot-relay/internal/relayerr"
	"github.com/stirixi/copilot-relay/internal/sse"
)

// IntroMessage seeds every new session as the first assistant message.
const IntroMessage = "Hi, I’m StirixiAI. I can synthesize engineering performance, highlight risk, and help you call shots across delivery, hiring, and AI efficiency. Ask me anything from “Where do we need more staffing?” to “Draft talking points for the board.”"

// CTASuggestions are the canned openers the dashboard offers.
var CTASuggestions = []string{
	"Give me a readiness summary for the next board sync.",
	"Where should we rebalance engineers to protect roadmap confidence?",
	"Which prospects should we prioritize for the data platform initiative?",
	"How is AI investment tracking vs. delivery gains this month?",
}

// errReplyTemplate replaces the assistant placeholder when a send fails.
const errReplyTemplate = "I hit an issue reaching Gemini (%s). Give it another try once networking settles."

// Message is one rendered entry of the conversation.
type Message struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Session holds one user's conversation with the copilot. All methods are
// safe for concurrent use; only one Send may be in flight at a time.
type Session struct {
	endpoint   string
	httpClient *http.Client
	logger     zerolog.Logger

	mu       sync.Mutex
	messages []Message
	input    string
	loading  bool
	insights *insights.Insights
	lastErr  string
}

// SessionOption configures a session.
type SessionOption func(*Session)

func WithHTTPClient(hc *http.Client) SessionOption {
	return func(s *Session) { s.httpClient = hc }
}

func WithLogger(l zerolog.Logger) SessionOption {
	return func(s *Session) { s.logger = l.With().Str("component", "chat").Logger() }
}

// NewSession creates a session pointed at the relay's /ai-chat endpoint.
func NewSession(endpoint string, opts ...SessionOption) *Session {
	s := &Session{
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		httpClient: &http.Client{},
		logger:     zerolog.Nop(),
		messages: []Message{
			{ID: "intro", Role: relay.RoleAssistant, Content: IntroMessage},
		},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Messages returns a copy of the conversation so far.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Loading reports whether a send is in flight.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// LastError returns the failure detail of the most recent send, if any.
func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Insights returns the most recently hydrated snapshot.
func (s *Session) Insights() *insights.Insights {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insights
}

// SetInput stores the draft input buffer.
func (s *Session) SetInput(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input = text
}

// Input returns the draft input buffer.
func (s *Session) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

// Send submits text (or the input buffer when text is empty) and streams
// the reply into a placeholder assistant message. onUpdate, when non-nil,
// receives the cumulative reply text after every chunk.
func (s *Session) Send(ctx context.Context, text string, onUpdate func(string)) error {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return relayerr.ErrSendInFlight
	}

	prompt := strings.TrimSpace(text)
	if prompt == "" {
		prompt = strings.TrimSpace(s.input)
	}
	if prompt == "" {
		s.mu.Unlock()
		return relayerr.ErrEmptyMessage
	}

	s.loading = true
	s.lastErr = ""
	s.input = ""

	s.messages = append(s.messages, Message{ID: newID(), Role: relay.RoleUser, Content: prompt})

	// History sent upstream excludes the placeholder about to be added.
	history := make([]relay.Message, len(s.messages))
	for i, m := range s.messages {
		history[i] = relay.Message{Role: m.Role, Content: m.Content}
	}

	replyID := newID()
	s.messages = append(s.messages, Message{ID: replyID, Role: relay.RoleAssistant})
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	if err := s.streamReply(ctx, history, replyID, onUpdate); err != nil {
		s.fail(replyID, err)
		return err
	}
	return nil
}

func (s *Session) streamReply(ctx context.Context, history []relay.Message, replyID string, onUpdate func(string)) error {
	stream := true
	body, err := json.Marshal(relay.ChatRequest{Messages: history, Stream: &stream})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("relay http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var out relay.ChatResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&out); decodeErr == nil && out.Error != "" {
			return relayerr.NewAPIError("relay", resp.StatusCode, out.Error)
		}
		return relayerr.NewAPIError("relay", resp.StatusCode, "Unable to reach StirixiAI")
	}

	var framer sse.Framer
	var full strings.Builder
	buf := make([]byte, 4096)

	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			for _, line := range framer.Push(buf[:n]) {
				done, lineErr := s.consumeLine(line, &full, replyID, onUpdate)
				if lineErr != nil {
					return lineErr
				}
				if done {
					return nil
				}
			}
		}
		if readErr == io.EOF {
			// Stream cut before the terminator.
			return fmt.Errorf("stream ended unexpectedly")
		}
		if readErr != nil {
			return fmt.Errorf("stream read: %w", readErr)
		}
	}
}

// consumeLine applies one relay frame. Returns done when the terminator
// arrived.
func (s *Session) consumeLine(line string, full *strings.Builder, replyID string, onUpdate func(string)) (bool, error) {
	payload, ok := sse.Data(line)
	if !ok {
		return false, nil
	}
	if payload == sse.DoneSentinel {
		return true, nil
	}

	var ev genai.Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		s.logger.Warn().Err(err).Str("payload", payload).Msg("skipping malformed relay frame")
		return false, nil
	}

	if ev.Error != "" {
		return false, fmt.Errorf("%s", ev.Error)
	}
	if ev.Snapshot != nil {
		s.mu.Lock()
		s.insights = ev.Snapshot
		s.mu.Unlock()
	}
	if ev.Text != "" {
		full.WriteString(ev.Text)
		s.setReply(replyID, full.String())
		if onUpdate != nil {
			onUpdate(full.String())
		}
	}
	return false, nil
}

// Hydrate loads the insights snapshot without triggering a generation.
func (s *Session) Hydrate(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("relay http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return relayerr.NewAPIError("relay", resp.StatusCode, "Failed to load org snapshot")
	}

	var out relay.InsightsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("unmarshal insights: %w", err)
	}

	s.mu.Lock()
	s.insights = out.Insights
	s.mu.Unlock()
	return nil
}

func (s *Session) setReply(replyID, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].ID == replyID {
			s.messages[i].Content = content
			return
		}
	}
}

func (s *Session) fail(replyID string, cause error) {
	detail := cause.Error()
	s.logger.Error().Err(cause).Msg("send failed")
	s.setReply(replyID, fmt.Sprintf(errReplyTemplate, detail))
	s.mu.Lock()
	s.lastErr = detail
	s.mu.Unlock()
}

func newID() string {
	return uuid.NewString()
}
