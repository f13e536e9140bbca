package mapper

import (
	"encoding/json"
	"testing"
	"time"

	"studyhub-be/internal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNoteCanvasMapper_EmptyDataBecomesObject(t *testing.T) {
	m := NewNoteCanvasMapper()

	out := m.ToModel(&entity.NoteCanvasState{UserId: "u1"})

	assert.Equal(t, "{}", string(out.Data))
	assert.NotEqual(t, uuid.Nil, out.Id)
}

func TestNoteCanvasMapper_KeepsIdAndData(t *testing.T) {
	m := NewNoteCanvasMapper()
	id := uuid.New()
	now := time.Now()
	in := &entity.NoteCanvasState{
		Id:        id.String(),
		UserId:    "u1",
		Data:      json.RawMessage(`{"pages":[]}`),
		UpdatedAt: now,
	}

	back := m.ToEntity(m.ToModel(in))

	assert.Equal(t, in, back)
}

func TestNoteCanvasMapper_Nil(t *testing.T) {
	m := NewNoteCanvasMapper()
	assert.Nil(t, m.ToEntity(nil))
	assert.Nil(t, m.ToModel(nil))
}
