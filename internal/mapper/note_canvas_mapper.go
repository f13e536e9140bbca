package mapper

import (
	"encoding/json"

	"studyhub-be/internal/entity"
	"studyhub-be/internal/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type NoteCanvasMapper struct{}

func NewNoteCanvasMapper() *NoteCanvasMapper {
	return &NoteCanvasMapper{}
}

func (m *NoteCanvasMapper) ToEntity(s *model.NoteCanvasState) *entity.NoteCanvasState {
	if s == nil {
		return nil
	}
	return &entity.NoteCanvasState{
		Id:        s.Id.String(),
		UserId:    s.UserId,
		Data:      json.RawMessage(s.Data),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func (m *NoteCanvasMapper) ToModel(s *entity.NoteCanvasState) *model.NoteCanvasState {
	if s == nil {
		return nil
	}

	id, err := uuid.Parse(s.Id)
	if err != nil {
		id = uuid.New()
	}

	data := datatypes.JSON(s.Data)
	if len(data) == 0 {
		data = datatypes.JSON("{}")
	}

	return &model.NoteCanvasState{
		Id:        id,
		UserId:    s.UserId,
		Data:      data,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func (m *NoteCanvasMapper) ToEntities(states []*model.NoteCanvasState) []*entity.NoteCanvasState {
	entities := make([]*entity.NoteCanvasState, len(states))
	for i, s := range states {
		entities[i] = m.ToEntity(s)
	}
	return entities
}
