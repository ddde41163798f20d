package events

import "time"

const (
	EventTypeTurnCompleted  = "TURN_COMPLETED"
	EventTypeSessionCreated = "SESSION_CREATED"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "TURN_COMPLETED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent helps embed common logic if needed,
// strictly creating valid implementations is preferred though.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// NewTurnCompleted builds the audit event emitted after every finished turn.
func NewTurnCompleted(sessionID, question, answer, label string, audio bool) BaseEvent {
	now := time.Now()
	return BaseEvent{
		Type: EventTypeTurnCompleted,
		Data: map[string]interface{}{
			"session_id":  sessionID,
			"question":    question,
			"answer":      answer,
			"label":       label,
			"audio":       audio,
			"occurred_at": now,
		},
		OccurredAt: now,
	}
}

// NewSessionCreated builds the event emitted when a session is opened.
func NewSessionCreated(sessionID string) BaseEvent {
	now := time.Now()
	return BaseEvent{
		Type: EventTypeSessionCreated,
		Data: map[string]interface{}{
			"session_id":  sessionID,
			"occurred_at": now,
		},
		OccurredAt: now,
	}
}
