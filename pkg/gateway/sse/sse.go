// Package sse writes server-sent events for the chat stream.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

type Stream struct {
	w       http.ResponseWriter
	flusher http.Flusher
	mu      sync.Mutex
}

// New sets the event-stream headers and returns a writer. The response
// must not have been written to yet.
func New(w http.ResponseWriter) (*Stream, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flushing")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	return &Stream{w: w, flusher: f}, nil
}

// Send writes one named event with a JSON payload and flushes it to the
// client.
func (s *Stream) Send(event string, data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, b); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
