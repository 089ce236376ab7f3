// Package sse provides a minimal, purpose-built SSE (Server-Sent Events)
// writer for streaming display cycles to wall clients. It intentionally
// does NOT provide SSE reader or parsing capabilities.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

import (
	"fmt"
	"io"
	"strings"
)

// Event represents a single SSE event before wire encoding.
type Event struct {
	// Type is the SSE event type written to the "event:" field.
	// An empty string means the default "message" type per the SSE spec.
	Type string

	// Data is the event payload. Embedded newlines become multiple
	// "data:" lines, joined back with "\n" by conforming clients.
	Data string

	// ID is the event ID for the "id:" field, if present.
	ID string
}

// Encode writes the event in wire format, terminated by the blank line
// that delimits events.
func (e *Event) Encode(w io.Writer) error {
	if e.Type != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", e.Type); err != nil {
			return err
		}
	}
	if e.ID != "" {
		if _, err := fmt.Fprintf(w, "id: %s\n", e.ID); err != nil {
			return err
		}
	}
	for _, line := range strings.Split(e.Data, "\n") {
		if _, err := fmt.Fprintf(w, "data: %s\n", line); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "\n")
	return err
}
