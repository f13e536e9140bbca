package events

import "time"

const (
	CanvasSaved    = "CANVAS_SAVED"
	CanvasImported = "CANVAS_IMPORTED"
	CanvasDeleted  = "CANVAS_DELETED"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "CANVAS_SAVED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

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

// NewCanvasSaved is emitted after a canvas state row has been upserted.
func NewCanvasSaved(userID string, pageCount int, updatedAt time.Time) BaseEvent {
	return BaseEvent{
		Type: CanvasSaved,
		Data: map[string]interface{}{
			"user_id":    userID,
			"page_count": pageCount,
			"updated_at": updatedAt.UTC().Format(time.RFC3339Nano),
		},
		OccurredAt: time.Now(),
	}
}

// NewCanvasImported is emitted when a session finishes a slide import.
func NewCanvasImported(sessionID string, pageIDs []int64, failures int) BaseEvent {
	return BaseEvent{
		Type: CanvasImported,
		Data: map[string]interface{}{
			"session_id": sessionID,
			"page_ids":   pageIDs,
			"failures":   failures,
		},
		OccurredAt: time.Now(),
	}
}

func NewCanvasDeleted(userID string) BaseEvent {
	return BaseEvent{
		Type:       CanvasDeleted,
		Data:       map[string]interface{}{"user_id": userID},
		OccurredAt: time.Now(),
	}
}

// UserID extracts the "user_id" payload field when present.
func UserID(e Event) string {
	if e == nil {
		return ""
	}
	v, _ := e.Payload()["user_id"].(string)
	return v
}
