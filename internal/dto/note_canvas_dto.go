package dto

import (
	"encoding/json"
	"time"
)

type SaveNoteCanvasRequest struct {
	UserId string          `json:"userId"`
	Data   json.RawMessage `json:"data"`
}

// GetNoteCanvasResponse carries a null data field when nothing is stored.
type GetNoteCanvasResponse struct {
	Data      json.RawMessage `json:"data"`
	UpdatedAt *time.Time      `json:"updatedAt,omitempty"`
}

type SaveNoteCanvasResponse struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type NoteCanvasSummary struct {
	UserId    string    `json:"user_id"`
	PageCount int       `json:"page_count"`
	ItemCount int       `json:"item_count"`
	SizeBytes int       `json:"size_bytes"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ListNoteCanvasResponse struct {
	Items []NoteCanvasSummary `json:"items"`
	Total int64               `json:"total"`
}

// NoteCanvasSavedMessage is published on the in-process bus after a save.
type NoteCanvasSavedMessage struct {
	UserId    string    `json:"user_id"`
	PageCount int       `json:"page_count"`
	UpdatedAt time.Time `json:"updated_at"`
}
