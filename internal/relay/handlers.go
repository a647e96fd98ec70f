package relay

import (
	"bufio"
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/stirixi/copilot-relay/internal/genai"
	"github.com/stirixi/copilot-relay/internal/health"
	"github.com/stirixi/copilot-relay/internal/insights"
	"github.com/stirixi/copilot-relay/internal/metrics"
	"github.com/stirixi/copilot-relay/internal/sse"
)

// SnapshotSource resolves the current insights snapshot.
type SnapshotSource interface {
	Get(ctx context.Context) (*insights.Insights, error)
}

// Generator produces model replies from a built conversation.
type Generator interface {
	Complete(ctx context.Context, turns []genai.Turn) (string, error)
	StreamGenerate(ctx context.Context, turns []genai.Turn) (*genai.Stream, error)
}

// Handlers implements the relay's HTTP handlers.
type Handlers struct {
	snapshots SnapshotSource
	gen       Generator
	checker   *health.Checker
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(snapshots SnapshotSource, gen Generator, checker *health.Checker, m *metrics.Metrics, logger zerolog.Logger) *Handlers {
	return &Handlers{
		snapshots: snapshots,
		gen:       gen,
		checker:   checker,
		metrics:   m,
		logger:    logger.With().Str("component", "relay").Logger(),
	}
}

// Chat handles POST /ai-chat. The snapshot is always resolved first so
// even a failed generation ships the insights payload.
func (h *Handlers) Chat(c *fiber.Ctx) error {
	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	streaming := req.Stream == nil || *req.Stream
	mode := "complete"
	if streaming {
		mode = "stream"
	}
	start := time.Now()

	snapshot, err := h.snapshots.Get(c.UserContext())
	if err != nil {
		h.logger.Error().Err(err).Msg("insights gather failed")
		h.record(mode, "error", start)
		return problemResponse(c, fiber.StatusServiceUnavailable,
			"insights_unavailable", "Service Unavailable",
			"Could not assemble the live context snapshot")
	}

	turns := BuildTurns(req.Messages, snapshot.ContextBlock)

	if !streaming {
		return h.completeChat(c, snapshot, turns, start)
	}
	return h.streamChat(c, snapshot, turns, start)
}

func (h *Handlers) completeChat(c *fiber.Ctx, snapshot *insights.Insights, turns []genai.Turn, start time.Time) error {
	text, err := h.gen.Complete(c.UserContext(), turns)
	if err != nil {
		h.logger.Error().Err(err).Msg("generation failed")
		h.record("complete", "error", start)
		return c.Status(fiber.StatusInternalServerError).JSON(ChatResponse{
			Message:  ErrorChatText,
			Insights: snapshot,
			Error:    err.Error(),
		})
	}

	h.record("complete", "ok", start)
	return c.JSON(ChatResponse{Message: text, Insights: snapshot})
}

func (h *Handlers) streamChat(c *fiber.Ctx, snapshot *insights.Insights, turns []genai.Turn, start time.Time) error {
	// Open the upstream call before committing to the SSE content type so
	// a request-phase failure can still return the JSON envelope.
	stream, err := h.gen.StreamGenerate(c.UserContext(), turns)
	if err != nil {
		h.logger.Error().Err(err).Msg("stream open failed")
		h.record("stream", "error", start)
		return c.Status(fiber.StatusInternalServerError).JSON(ChatResponse{
			Message:  ErrorChatText,
			Insights: snapshot,
			Error:    err.Error(),
		})
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		events := make(chan genai.Event, 16)
		go stream.Pump(snapshot, events)

		for ev := range events {
			if ev.Done {
				w.Write(sse.DoneFrame)
				w.Flush()
				continue
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				h.logger.Error().Err(err).Msg("event marshal failed")
				continue
			}
			if _, err := w.Write(sse.FormatData(payload)); err != nil {
				stream.Cancel()
				break
			}
			if err := w.Flush(); err != nil {
				stream.Cancel()
				break
			}
		}

		// Let the pump run to completion even if the client went away.
		for range events {
		}
		h.record("stream", "ok", start)
	}))
	return nil
}

// Insights handles GET /ai-chat: passive snapshot hydration, no generation.
func (h *Handlers) Insights(c *fiber.Ctx) error {
	snapshot, err := h.snapshots.Get(c.UserContext())
	if err != nil {
		h.logger.Error().Err(err).Msg("insights gather failed")
		return problemResponse(c, fiber.StatusServiceUnavailable,
			"insights_unavailable", "Service Unavailable",
			"Could not assemble the live context snapshot")
	}
	return c.JSON(InsightsResponse{Insights: snapshot})
}

// Liveness handles GET /healthz.
func (h *Handlers) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Readiness handles GET /readyz.
func (h *Handlers) Readiness(c *fiber.Ctx) error {
	if !h.checker.IsReady(c.UserContext()) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "not_ready",
		})
	}
	return c.JSON(fiber.Map{"status": "ready"})
}

func (h *Handlers) record(mode, status string, start time.Time) {
	if h.metrics == nil {
		return
	}
	h.metrics.RecordRequest(mode, status)
	h.metrics.ObserveDuration(mode, time.Since(start).Seconds())
}
