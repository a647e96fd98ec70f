// Package sse implements the line-level plumbing for server-sent events:
// an incremental frame reader for consuming a stream and helpers for
// producing the relay's own event-stream frames.
package sse

import "strings"

const (
	dataPrefix = "data: "

	// DoneSentinel terminates a stream, both on the vendor side and on the
	// relay's own channel.
	DoneSentinel = "[DONE]"
)

// DoneFrame is the literal terminal frame of the relay's event stream.
var DoneFrame = []byte(dataPrefix + DoneSentinel + "\n\n")

// Framer accumulates raw stream bytes and yields complete lines.
// A trailing partial line is carried over until the next Push.
type Framer struct {
	buf strings.Builder
}

// Push appends a chunk and returns all complete lines received so far,
// with line endings stripped.
func (f *Framer) Push(p []byte) []string {
	f.buf.Write(p)

	s := f.buf.String()
	idx := strings.LastIndexByte(s, '\n')
	if idx < 0 {
		return nil
	}

	complete := s[:idx]
	remainder := s[idx+1:]
	f.buf.Reset()
	f.buf.WriteString(remainder)

	lines := strings.Split(complete, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// Rest returns the buffered partial line, if any.
func (f *Framer) Rest() string {
	return f.buf.String()
}

// Data extracts the payload of a "data: " line. Returns false for blank
// lines, comments, and any other field.
func Data(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, dataPrefix) {
		return "", false
	}
	return strings.TrimPrefix(trimmed, dataPrefix), true
}

// FormatData renders a payload as a single event-stream frame.
func FormatData(payload []byte) []byte {
	frame := make([]byte, 0, len(dataPrefix)+len(payload)+2)
	frame = append(frame, dataPrefix...)
	frame = append(frame, payload...)
	frame = append(frame, '\n', '\n')
	return frame
}
