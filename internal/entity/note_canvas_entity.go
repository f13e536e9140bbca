package entity

import (
	"encoding/json"
	"time"
)

// NoteCanvasState is the stored canvas snapshot of one user. Data holds the
// snapshot JSON as the client sent it.
type NoteCanvasState struct {
	Id        string
	UserId    string
	Data      json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}
