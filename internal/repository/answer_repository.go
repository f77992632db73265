package repository

import (
	"context"
	"errors"
	"ppe_inspection/internal/model"
	"ppe_inspection/internal/util"

	"gorm.io/gorm"
)

type AnswerRepository struct {
	DB *gorm.DB
}

func NewAnswerRepository(db *gorm.DB) *AnswerRepository {
	return &AnswerRepository{DB: db}
}

// Submit stores an answer with its photos and marks the request answered in
// one transaction. If the request was answered concurrently, or an answer for
// it already exists, nothing is written and util.ErrConflict is returned.
func (r *AnswerRepository) Submit(ctx context.Context, answer *model.InspectionAnswer) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := markAnswered(tx, answer.RequestID, answer.SubmittedAt); err != nil {
			return err
		}
		return tx.Omit("Request").Create(answer).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return util.ErrConflict
	}
	return err
}

func (r *AnswerRepository) FindByRequestID(ctx context.Context, requestID uint) (*model.InspectionAnswer, error) {
	var answer model.InspectionAnswer
	err := r.DB.WithContext(ctx).
		Preload("Photos", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Where("request_id = ?", requestID).
		First(&answer).Error
	return &answer, notFound(err)
}

// ListAnswered returns every answer with its request, oldest submission
// first.
func (r *AnswerRepository) ListAnswered(ctx context.Context) ([]model.InspectionAnswer, error) {
	var list []model.InspectionAnswer
	err := r.DB.WithContext(ctx).
		Preload("Request").
		Preload("Photos", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Order("submitted_at asc, id asc").
		Find(&list).Error
	return list, err
}
