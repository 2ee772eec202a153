// Package sse streams events to HTTP clients as Server-Sent Events and reads
// such streams back.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// Event is a single SSE event, delimited by a blank line on the wire.
type Event struct {
	// Type is the "event:" field. Empty means the default "message" type.
	Type string

	// Data is the event payload. Multiple "data:" lines are joined with "\n".
	Data string

	// ID is the "id:" field, if present.
	ID string
}
