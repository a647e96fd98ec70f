package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/stirixi/copilot-relay/internal/insights"
	"github.com/stirixi/copilot-relay/internal/metrics"
	"github.com/stirixi/copilot-relay/internal/sse"
)

// Stream is one open streaming generation call.
type Stream struct {
	body        io.ReadCloser
	cancel      context.CancelFunc
	idleTimeout time.Duration
	logger      zerolog.Logger
	metrics     *metrics.Metrics
}

// Cancel aborts the upstream call. Safe to call concurrently with Pump;
// the pump then winds down through its normal error path.
func (s *Stream) Cancel() {
	s.cancel()
}

// Pump drains the vendor stream into events and closes the channel when
// done. Invariants, on every exit path:
//   - the first event is the context_ready status with the snapshot;
//   - one malformed vendor line never ends the stream;
//   - a stream that ends without any text yields one fallback text event;
//   - the last event before close is the single Done terminator.
//
// The idle timer resets on every received chunk; firing aborts the
// upstream call.
func (s *Stream) Pump(snapshot *insights.Insights, events chan<- Event) {
	defer close(events)
	defer func() { events <- Event{Done: true} }()
	defer s.body.Close()
	defer s.cancel()

	events <- Event{Status: StatusContextReady, Snapshot: snapshot}

	var timedOut atomic.Bool
	timer := time.AfterFunc(s.idleTimeout, func() {
		timedOut.Store(true)
		s.cancel()
	})
	defer timer.Stop()

	var framer sse.Framer
	sawText := false
	buf := make([]byte, 4096)

	for {
		n, err := s.body.Read(buf)
		if n > 0 {
			timer.Reset(s.idleTimeout)
			for _, line := range framer.Push(buf[:n]) {
				s.handleLine(line, &sawText, events)
			}
		}
		if err == nil {
			continue
		}

		if timedOut.Load() {
			if s.metrics != nil {
				s.metrics.RecordStreamTimeout()
			}
			s.logger.Warn().Dur("idle_timeout", s.idleTimeout).Msg("generation stream stalled")
			events <- Event{Error: fmt.Sprintf("The answer stalled (no data for %s). Please try again.", s.idleTimeout)}
			return
		}

		if err != io.EOF {
			s.logger.Error().Err(err).Msg("generation stream read failed")
			events <- Event{Error: "The connection to the generation service dropped mid-reply. Please try again."}
			return
		}

		// Clean end of stream. A trailing line without a newline still counts.
		if rest := framer.Rest(); rest != "" {
			s.handleLine(rest, &sawText, events)
		}
		if !sawText {
			events <- Event{Text: FallbackText}
		}
		return
	}
}

// handleLine decodes one vendor line and emits its text, if any.
func (s *Stream) handleLine(line string, sawText *bool, events chan<- Event) {
	payload, ok := sse.Data(line)
	if !ok {
		return
	}
	if payload == sse.DoneSentinel {
		// Vendor end marker, distinct from the relay's own terminator.
		return
	}

	var chunk generateResponse
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		s.logger.Warn().Err(err).Str("payload", payload).Msg("skipping malformed stream chunk")
		return
	}
	if len(chunk.Candidates) == 0 || len(chunk.Candidates[0].Content.Parts) == 0 {
		return
	}

	text := chunk.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return
	}

	*sawText = true
	if s.metrics != nil {
		s.metrics.RecordStreamChunk()
	}
	events <- Event{Text: text}
}
