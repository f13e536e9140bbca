package implementation

import (
	"context"
	"errors"

	"studyhub-be/internal/entity"
	"studyhub-be/internal/mapper"
	"studyhub-be/internal/model"
	"studyhub-be/internal/repository/contract"
	"studyhub-be/internal/repository/specification"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NoteCanvasRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.NoteCanvasMapper
}

func NewNoteCanvasRepository(db *gorm.DB) contract.NoteCanvasRepository {
	return &NoteCanvasRepositoryImpl{
		db:     db,
		mapper: mapper.NewNoteCanvasMapper(),
	}
}

func (r *NoteCanvasRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *NoteCanvasRepositoryImpl) FindByUserID(ctx context.Context, userID string) (*entity.NoteCanvasState, error) {
	var m model.NoteCanvasState
	query := r.applySpecifications(r.db.WithContext(ctx), specification.ByUserID{UserID: userID})
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *NoteCanvasRepositoryImpl) Upsert(ctx context.Context, state *entity.NoteCanvasState) (*entity.NoteCanvasState, error) {
	m := r.mapper.ToModel(state)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(m).Error
	if err != nil {
		return nil, err
	}
	return r.FindByUserID(ctx, state.UserId)
}

func (r *NoteCanvasRepositoryImpl) DeleteByUserID(ctx context.Context, userID string) error {
	query := r.applySpecifications(r.db.WithContext(ctx), specification.ByUserID{UserID: userID})
	return query.Delete(&model.NoteCanvasState{}).Error
}

func (r *NoteCanvasRepositoryImpl) List(ctx context.Context, limit, offset int) ([]*entity.NoteCanvasState, error) {
	var models []*model.NoteCanvasState
	query := r.applySpecifications(r.db.WithContext(ctx), specification.RecentlyUpdated(limit, offset)...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *NoteCanvasRepositoryImpl) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.NoteCanvasState{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *NoteCanvasRepositoryImpl) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
