package repository

import (
	"context"
	"errors"
	"ppe_inspection/internal/model"
	"ppe_inspection/internal/util"
	"time"

	"gorm.io/gorm"
)

type RequestRepository struct {
	DB *gorm.DB
}

func NewRequestRepository(db *gorm.DB) *RequestRepository {
	return &RequestRepository{DB: db}
}

// RequestFilter narrows a listing. An empty Status lists everything.
type RequestFilter struct {
	Status model.RequestStatus
	Page   int
	Limit  int
}

func (r *RequestRepository) Create(ctx context.Context, req *model.InspectionRequest) error {
	err := r.DB.WithContext(ctx).Create(req).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return util.ErrConflict
	}
	return err
}

func (r *RequestRepository) FindByID(ctx context.Context, id uint) (*model.InspectionRequest, error) {
	var req model.InspectionRequest
	err := r.DB.WithContext(ctx).First(&req, id).Error
	return &req, notFound(err)
}

func (r *RequestRepository) FindByToken(ctx context.Context, token string) (*model.InspectionRequest, error) {
	var req model.InspectionRequest
	err := r.DB.WithContext(ctx).Where("token = ?", token).First(&req).Error
	return &req, notFound(err)
}

func (r *RequestRepository) List(ctx context.Context, f RequestFilter) ([]model.InspectionRequest, int64, error) {
	query := r.DB.WithContext(ctx).Model(&model.InspectionRequest{})
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if f.Limit > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		query = query.Offset((page - 1) * f.Limit).Limit(f.Limit)
	}

	var list []model.InspectionRequest
	err := query.Order("created_at desc, id desc").Find(&list).Error
	return list, total, err
}

// DeletePending removes a request that has not been answered yet.
func (r *RequestRepository) DeletePending(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND status = ?", id, model.StatusPending).Delete(&model.InspectionRequest{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		var count int64
		if err := tx.Model(&model.InspectionRequest{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return util.ErrNotFound
		}
		return util.ErrNotPending
	})
}

// MarkAnswered flips a pending request to answered. A request that is not
// pending any more yields util.ErrConflict.
func (r *RequestRepository) MarkAnswered(ctx context.Context, id uint, at time.Time) error {
	return markAnswered(r.DB.WithContext(ctx), id, at)
}

func markAnswered(tx *gorm.DB, id uint, at time.Time) error {
	res := tx.Model(&model.InspectionRequest{}).
		Where("id = ? AND status = ?", id, model.StatusPending).
		Updates(map[string]interface{}{"status": model.StatusAnswered, "answered_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return util.ErrConflict
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrNotFound
	}
	return err
}
