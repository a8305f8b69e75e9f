package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// StreamWriter frames transfer events for a server-sent-events response and
// flushes each frame so clients observe progress as it happens.
type StreamWriter struct {
	w       io.Writer
	flusher http.Flusher
}

func NewStreamWriter(w http.ResponseWriter) *StreamWriter {
	sw := &StreamWriter{w: w}
	if flusher, ok := w.(http.Flusher); ok {
		sw.flusher = flusher
	}
	return sw
}

// PrepareHeaders sets the SSE response headers. Call before the first frame.
func PrepareHeaders(w http.ResponseWriter) {
	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
}

// WriteEvent serializes one event as a `data: <json>` frame.
func (s *StreamWriter) WriteEvent(evt TransferEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return fmt.Errorf("write event frame: %w", err)
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}
