package relay

import (
	"strings"

	"github.com/stirixi/copilot-relay/internal/genai"
)

// systemPrompt sets the copilot persona. It rides in the first user turn
// because the generateContent API has no dedicated system role on this
// endpoint family.
const systemPrompt = `
You are StirixiAI, the CTO copilot for the Stirixi engineering observability suite.
Operate like an executive partner:
- Turn data into crisp narratives (call out risk, velocity, hiring implications).
- Recommend next actions with owners, timelines, and metrics.
- When you need more detail, ask clarifying questions instead of guessing.
- Default to strategic language suited for a CTO, but cite concrete numbers pulled from the data snapshot you receive.
- Tie every answer back to engineering efficiency, delivery risk, or hiring signals.
If something is missing from the snapshot, acknowledge the gap and suggest how to capture it.
`

// BuildTurns converts the dashboard history into the Gemini conversation.
// The first turn carries the persona plus the live context block; the
// history follows in order with the assistant role renamed to model.
func BuildTurns(history []Message, contextBlock string) []genai.Turn {
	turns := make([]genai.Turn, 0, len(history)+1)
	turns = append(turns, genai.Turn{
		Role:  genai.RoleUser,
		Parts: []genai.Part{{Text: strings.TrimSpace(systemPrompt) + "\n\nLive context:\n" + contextBlock}},
	})

	for _, msg := range history {
		role := genai.RoleUser
		if msg.Role == RoleAssistant {
			role = genai.RoleModel
		}
		turns = append(turns, genai.Turn{
			Role:  role,
			Parts: []genai.Part{{Text: msg.Content}},
		})
	}
	return turns
}
