package dto

import (
	"studyhub-be/pkg/canvas"
)

const (
	DefaultStrokeColor = "#000000"
	DefaultStrokeWidth = 4
	DefaultFontSize    = 18
)

type OpenSessionResponse struct {
	SessionId string `json:"session_id"`
	Persisted bool   `json:"persisted"`
}

// PageRef targets a page; a nil index means the current page.
type PageRef struct {
	PageIndex *int `json:"page_index" validate:"omitempty,min=0"`
}

type NavigatePageRequest struct {
	Index int `json:"index" validate:"min=0"`
}

// MutationResponse reports whether an edit changed the document. Edits
// that do not apply (unknown ids, blank text, no active stroke) are not
// errors.
type MutationResponse struct {
	Applied bool  `json:"applied"`
	Id      int64 `json:"id,omitempty"`
}

type BeginStrokeRequest struct {
	PageRef
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Tool  string  `json:"tool" validate:"required,oneof=draw highlighter"`
	Color string  `json:"color"`
	Width float64 `json:"width" validate:"gte=0"`
}

type ExtendStrokeRequest struct {
	PageRef
	Points []canvas.Point `json:"points" validate:"required,min=1"`
}

type EraseRequest struct {
	PageRef
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius" validate:"gte=0"`
}

type EraseResponse struct {
	Removed int `json:"removed"`
}

type AddTextBoxRequest struct {
	PageRef
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Text     string  `json:"text" validate:"required"`
	FontSize float64 `json:"font_size" validate:"gte=0"`
	Color    string  `json:"color"`
}

// UpdateTextBoxRequest changes text, position or both. Editing true starts
// an in-place edit; editing false together with text commits it.
type UpdateTextBoxRequest struct {
	PageRef
	Text    *string  `json:"text"`
	X       *float64 `json:"x"`
	Y       *float64 `json:"y"`
	Editing *bool    `json:"editing"`
}

type MoveSlideRequest struct {
	PageRef
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type ZoomRequest struct {
	Zoom   *float64 `json:"zoom"`
	Action string   `json:"action" validate:"omitempty,oneof=in out reset"`
}

type ImportFailure struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

type ImportResponse struct {
	PageIds  []int64         `json:"page_ids"`
	Failures []ImportFailure `json:"failures"`
}

type SessionReport struct {
	Open      int `json:"open"`
	Loading   int `json:"loading"`
	Saving    int `json:"saving"`
	Anonymous int `json:"anonymous"`
	Idle      int `json:"idle"`
}

type ExportResult struct {
	FileName string
	Content  []byte
}

// PointerEvent is one message of the websocket input stream.
type PointerEvent struct {
	Type      string  `json:"type" validate:"required,oneof=down move up erase zoom"`
	PageIndex *int    `json:"page_index"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Tool      string  `json:"tool"`
	Color     string  `json:"color"`
	Width     float64 `json:"width"`
	Radius    float64 `json:"radius"`
	Zoom      float64 `json:"zoom"`
}
