// Package genai implements the gateway to the Gemini generation API:
// single-shot completion and SSE streaming with an idle timeout, translated
// into the relay's own event stream.
package genai

import "github.com/stirixi/copilot-relay/internal/insights"

// Turn roles in the Gemini wire format.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// StatusContextReady is emitted before any model output so the client can
// render the snapshot eagerly.
const StatusContextReady = "context_ready"

// FallbackText substitutes for a generation that produced no text.
const FallbackText = "I was unable to generate a response."

// Part is one text fragment of a turn.
type Part struct {
	Text string `json:"text"`
}

// Turn is one message unit in the Gemini conversation format.
type Turn struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// Event is one frame on the relay's own stream. Exactly one field group is
// set: Text for a model chunk, Status+Snapshot for the context announcement,
// Error for a terminal failure. Done marks the stream's single terminator
// and is never serialized.
type Event struct {
	Text     string             `json:"text,omitempty"`
	Status   string             `json:"status,omitempty"`
	Snapshot *insights.Insights `json:"snapshot,omitempty"`
	Error    string             `json:"error,omitempty"`
	Done     bool               `json:"-"`
}

// ---- Gemini wire types ----

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateRequest struct {
	Contents         []Turn           `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type candidate struct {
	Content struct {
		Parts []Part `json:"parts"`
	} `json:"content"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
}
