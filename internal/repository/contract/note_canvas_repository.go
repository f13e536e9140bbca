package contract

import (
	"context"

	"studyhub-be/internal/entity"
)

// NoteCanvasRepository stores one canvas snapshot per user. Writes are
// last-write-wins.
type NoteCanvasRepository interface {
	// FindByUserID returns nil, nil when the user has nothing stored.
	FindByUserID(ctx context.Context, userID string) (*entity.NoteCanvasState, error)
	Upsert(ctx context.Context, state *entity.NoteCanvasState) (*entity.NoteCanvasState, error)
	DeleteByUserID(ctx context.Context, userID string) error
	List(ctx context.Context, limit, offset int) ([]*entity.NoteCanvasState, error)
	Count(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}
