package relay

import (
	"github.com/gofiber/fiber/v2"

	"github.com/stirixi/copilot-relay/internal/insights"
)

// Message is one entry of the dashboard conversation history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation roles accepted from the dashboard.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatRequest is the body of POST /ai-chat. Stream defaults to true when
// omitted.
type ChatRequest struct {
	Messages []Message `json:"messages"`
	Stream   *bool     `json:"stream"`
}

// ChatResponse is the single-shot reply envelope. Error is set only on the
// degraded 500 path.
type ChatResponse struct {
	Message  string             `json:"message"`
	Insights *insights.Insights `json:"insights"`
	Error    string             `json:"error,omitempty"`
}

// InsightsResponse is the body of GET /ai-chat.
type InsightsResponse struct {
	Insights *insights.Insights `json:"insights"`
}

// ErrorChatText is the apologetic reply sent with the 500 envelope when
// generation fails.
const ErrorChatText = "I hit an issue talking to Gemini. Please retry in a moment or verify the API key."

// ProblemDetail follows RFC 7807 for error responses.
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// problemResponse returns an RFC 7807 Problem Detail error response.
func problemResponse(c *fiber.Ctx, status int, errType, title, detail string) error {
	return c.Status(status).JSON(ProblemDetail{
		Type:     errType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Path(),
	})
}
