package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"studyhub-be/internal/dto"
	"studyhub-be/internal/entity"
	"studyhub-be/internal/pkg/logger"
	"studyhub-be/internal/repository/cache"
	"studyhub-be/internal/repository/contract"
	"studyhub-be/pkg/canvas"
)

var ErrUserIDRequired = errors.New("userId is required")

const noteCanvasModule = "NoteCanvas"

type INoteCanvasService interface {
	Load(ctx context.Context, userId string) (*dto.GetNoteCanvasResponse, error)
	Save(ctx context.Context, req *dto.SaveNoteCanvasRequest) (*dto.SaveNoteCanvasResponse, error)
	Delete(ctx context.Context, userId string) error
	List(ctx context.Context, limit, offset int) (*dto.ListNoteCanvasResponse, error)
	Ping(ctx context.Context) error

	// LoadDocument hydrates the stored snapshot. It returns nil, nil, nil
	// when the user has nothing stored. Malformed data gives the recovered
	// document together with an error wrapping canvas.ErrMalformedSnapshot.
	LoadDocument(ctx context.Context, userId string) (*canvas.Document, *time.Time, error)
	SaveSnapshot(ctx context.Context, userId string, snap canvas.Snapshot) (*time.Time, error)
}

type noteCanvasService struct {
	repo             contract.NoteCanvasRepository
	cache            cache.SnapshotCache
	publisherService IPublisherService
	logger           logger.ILogger
}

func NewNoteCanvasService(
	repo contract.NoteCanvasRepository,
	snapshotCache cache.SnapshotCache,
	publisherService IPublisherService,
	log logger.ILogger,
) INoteCanvasService {
	return &noteCanvasService{
		repo:             repo,
		cache:            snapshotCache,
		publisherService: publisherService,
		logger:           log,
	}
}

func (s *noteCanvasService) find(ctx context.Context, userId string) (*entity.NoteCanvasState, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, userId)
		if err != nil {
			s.logger.Warn(noteCanvasModule, "Snapshot cache read failed", map[string]interface{}{
				"user_id": userId,
				"error":   err.Error(),
			})
		} else if cached != nil {
			return cached, nil
		}
	}

	state, err := s.repo.FindByUserID(ctx, userId)
	if err != nil {
		return nil, fmt.Errorf("find note canvas state: %w", err)
	}
	if state != nil {
		s.remember(ctx, state)
	}
	return state, nil
}

func (s *noteCanvasService) remember(ctx context.Context, state *entity.NoteCanvasState) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, state); err != nil {
		s.logger.Warn(noteCanvasModule, "Snapshot cache write failed", map[string]interface{}{
			"user_id": state.UserId,
			"error":   err.Error(),
		})
	}
}

func (s *noteCanvasService) Load(ctx context.Context, userId string) (*dto.GetNoteCanvasResponse, error) {
	state, err := s.find(ctx, userId)
	if err != nil {
		s.logger.Error(noteCanvasModule, "Failed to fetch note canvas state", map[string]interface{}{
			"user_id": userId,
			"error":   err,
		})
		return nil, err
	}
	if state == nil {
		return &dto.GetNoteCanvasResponse{Data: nil}, nil
	}

	updatedAt := state.UpdatedAt
	return &dto.GetNoteCanvasResponse{
		Data:      state.Data,
		UpdatedAt: &updatedAt,
	}, nil
}

func (s *noteCanvasService) Save(ctx context.Context, req *dto.SaveNoteCanvasRequest) (*dto.SaveNoteCanvasResponse, error) {
	if req.UserId == "" {
		return nil, ErrUserIDRequired
	}

	data := req.Data
	if isAbsent(data) {
		data = json.RawMessage(`{}`)
	}

	stored, err := s.repo.Upsert(ctx, &entity.NoteCanvasState{
		UserId: req.UserId,
		Data:   data,
	})
	if err != nil {
		s.logger.Error(noteCanvasModule, "Failed to save note canvas state", map[string]interface{}{
			"user_id": req.UserId,
			"error":   err,
		})
		return nil, fmt.Errorf("upsert note canvas state: %w", err)
	}

	s.remember(ctx, stored)
	s.announce(ctx, stored)

	return &dto.SaveNoteCanvasResponse{
		Success:   true,
		Data:      stored.Data,
		UpdatedAt: stored.UpdatedAt,
	}, nil
}

// announce is best effort; a failed publish never fails the save.
func (s *noteCanvasService) announce(ctx context.Context, state *entity.NoteCanvasState) {
	if s.publisherService == nil {
		return
	}
	payload, err := json.Marshal(dto.NoteCanvasSavedMessage{
		UserId:    state.UserId,
		PageCount: summarize(state).PageCount,
		UpdatedAt: state.UpdatedAt,
	})
	if err != nil {
		return
	}
	if err := s.publisherService.Publish(ctx, payload); err != nil {
		s.logger.Warn(noteCanvasModule, "Failed to publish canvas saved message", map[string]interface{}{
			"user_id": state.UserId,
			"error":   err.Error(),
		})
	}
}

func (s *noteCanvasService) Delete(ctx context.Context, userId string) error {
	if userId == "" {
		return ErrUserIDRequired
	}
	if err := s.repo.DeleteByUserID(ctx, userId); err != nil {
		return fmt.Errorf("delete note canvas state: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, userId); err != nil {
			s.logger.Warn(noteCanvasModule, "Snapshot cache invalidate failed", map[string]interface{}{
				"user_id": userId,
				"error":   err.Error(),
			})
		}
	}
	s.logger.Info(noteCanvasModule, "Note canvas state deleted", map[string]interface{}{"user_id": userId})
	return nil
}

func (s *noteCanvasService) List(ctx context.Context, limit, offset int) (*dto.ListNoteCanvasResponse, error) {
	states, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]dto.NoteCanvasSummary, 0, len(states))
	for _, st := range states {
		items = append(items, summarize(st))
	}
	return &dto.ListNoteCanvasResponse{Items: items, Total: total}, nil
}

func (s *noteCanvasService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *noteCanvasService) LoadDocument(ctx context.Context, userId string) (*canvas.Document, *time.Time, error) {
	state, err := s.find(ctx, userId)
	if err != nil {
		return nil, nil, err
	}
	if state == nil {
		return nil, nil, nil
	}
	updatedAt := state.UpdatedAt
	doc, err := canvas.HydrateJSON(state.Data)
	if err != nil {
		s.logger.Warn(noteCanvasModule, "Stored note canvas is malformed", map[string]interface{}{
			"user_id": userId,
			"error":   err.Error(),
		})
	}
	return doc, &updatedAt, err
}

func (s *noteCanvasService) SaveSnapshot(ctx context.Context, userId string, snap canvas.Snapshot) (*time.Time, error) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	res, err := s.Save(ctx, &dto.SaveNoteCanvasRequest{UserId: userId, Data: raw})
	if err != nil {
		return nil, err
	}
	return &res.UpdatedAt, nil
}

func isAbsent(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func summarize(state *entity.NoteCanvasState) dto.NoteCanvasSummary {
	doc, _ := canvas.HydrateJSON(state.Data)
	snap := doc.Serialize()
	items := 0
	for _, p := range snap.Pages {
		items += len(p.Slides) + len(p.Lines) + len(p.TextBoxes)
	}
	return dto.NoteCanvasSummary{
		UserId:    state.UserId,
		PageCount: len(snap.Pages),
		ItemCount: items,
		SizeBytes: len(state.Data),
		UpdatedAt: state.UpdatedAt,
	}
}
