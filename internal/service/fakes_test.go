package service_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"studyhub-be/internal/entity"
)

type fakeCanvasRepo struct {
	mu      sync.Mutex
	rows    map[string]*entity.NoteCanvasState
	findErr error
	saveErr error
	finds   int
	// block, when set, holds FindByUserID until it is closed.
	block chan struct{}
}

func newFakeCanvasRepo() *fakeCanvasRepo {
	return &fakeCanvasRepo{rows: make(map[string]*entity.NoteCanvasState)}
}

func (r *fakeCanvasRepo) FindByUserID(ctx context.Context, userID string) (*entity.NoteCanvasState, error) {
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finds++
	if r.findErr != nil {
		return nil, r.findErr
	}
	row, ok := r.rows[userID]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (r *fakeCanvasRepo) Upsert(_ context.Context, state *entity.NoteCanvasState) (*entity.NoteCanvasState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return nil, r.saveErr
	}
	now := time.Now().UTC()
	row, ok := r.rows[state.UserId]
	if !ok {
		row = &entity.NoteCanvasState{Id: "row-" + state.UserId, UserId: state.UserId, CreatedAt: now}
		r.rows[state.UserId] = row
	}
	row.Data = append([]byte(nil), state.Data...)
	row.UpdatedAt = now
	cp := *row
	return &cp, nil
}

func (r *fakeCanvasRepo) DeleteByUserID(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, userID)
	return nil
}

func (r *fakeCanvasRepo) List(_ context.Context, limit, offset int) ([]*entity.NoteCanvasState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.NoteCanvasState, 0, len(r.rows))
	for _, row := range r.rows {
		cp := *row
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserId < out[j].UserId })
	if offset > len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeCanvasRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.rows)), nil
}

func (r *fakeCanvasRepo) Ping(_ context.Context) error {
	return nil
}

func (r *fakeCanvasRepo) put(userID, data string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[userID] = &entity.NoteCanvasState{
		Id:        "row-" + userID,
		UserId:    userID,
		Data:      []byte(data),
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
}

var errStorageDown = errors.New("storage down")
