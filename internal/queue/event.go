// Package queue defines message payloads exchanged over the message broker.
package queue

import "time"

// RecordEventsQueue is the durable queue carrying RecordEvent messages.
const RecordEventsQueue = "health_record.events"

// EventType names a health record lifecycle transition.
type EventType string

const (
	RecordCreated EventType = "health_record.created"
	RecordUpdated EventType = "health_record.updated"
	RecordDeleted EventType = "health_record.deleted"
)

// RecordEvent is published after a health record mutation succeeds. It
// carries identifiers only; measurements never leave the store.
type RecordEvent struct {
	Type       EventType `json:"type"`
	UserID     string    `json:"user_id"`
	RecordID   string    `json:"record_id"`
	OccurredAt string    `json:"occurred_at"`
}

// NewRecordEvent stamps an event with at in RFC 3339 UTC.
func NewRecordEvent(typ EventType, userID, recordID string, at time.Time) RecordEvent {
	return RecordEvent{Type: typ, UserID: userID, RecordID: recordID, OccurredAt: at.UTC().Format(time.RFC3339)}
}
