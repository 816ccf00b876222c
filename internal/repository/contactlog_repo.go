package repository

import (
	"context"
	"errors"
	"time"

	"github.com/leadflowhq/outreach-engine/internal/domain"
	"gorm.io/gorm"
)

type ContactLogRepository interface {
	Create(ctx context.Context, l *domain.ContactLog) error
	ListByLead(ctx context.Context, leadID string, limit int) ([]domain.ContactLog, error)
	// GetLatestUnanswered returns the most recent delivered log for a lead
	// that has no response recorded yet. ErrNotFound when none exists.
	GetLatestUnanswered(ctx context.Context, leadID string) (*domain.ContactLog, error)
	MarkResponded(ctx context.Context, id string, at time.Time) error
}

type GormContactLogRepo struct {
	db *gorm.DB
}

func NewGormContactLogRepo(db *gorm.DB) *GormContactLogRepo {
	return &GormContactLogRepo{db: db}
}

func (r *GormContactLogRepo) Create(ctx context.Context, l *domain.ContactLog) error {
	model := contactLogModelFromDomain(l)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if l != nil {
		*l = *contactLogModelToDomain(model)
	}
	return nil
}

func (r *GormContactLogRepo) ListByLead(ctx context.Context, leadID string, limit int) ([]domain.ContactLog, error) {
	if limit < 1 {
		limit = 50
	}

	var models []ContactLogModel
	err := r.db.WithContext(ctx).
		Where("lead_id = ?", leadID).
		Order("sent_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	logs := make([]domain.ContactLog, 0, len(models))
	for i := range models {
		logs = append(logs, *contactLogModelToDomain(&models[i]))
	}
	return logs, nil
}

func (r *GormContactLogRepo) GetLatestUnanswered(ctx context.Context, leadID string) (*domain.ContactLog, error) {
	var model ContactLogModel
	err := r.db.WithContext(ctx).
		Where("lead_id = ? AND delivered = ? AND responded_at IS NULL", leadID, true).
		Order("sent_at DESC").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return contactLogModelToDomain(&model), nil
}

func (r *GormContactLogRepo) MarkResponded(ctx context.Context, id string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&ContactLogModel{}).
		Where("id = ? AND responded_at IS NULL", id).
		Update("responded_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}
