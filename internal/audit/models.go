// Package audit records every processed security event to an append-only
// trail. Emission is asynchronous so the dispatch path never blocks on the
// sink.
package audit

import "time"

// Event is one audit record: which token carried which event and what the
// pipeline did about it. Keep it transport-agnostic so sinks can fan out.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
	TokenID   string    `json:"token_id,omitempty"`
	EventType string    `json:"event_type"`
	SubjectID string    `json:"subject_id,omitempty"`
	Action    string    `json:"action"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}
