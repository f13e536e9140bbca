package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type NoteCanvasState struct {
	Id        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId    string         `gorm:"type:varchar(255);not null;uniqueIndex"`
	Data      datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
}

func (NoteCanvasState) TableName() string {
	return "note_canvas_states"
}
