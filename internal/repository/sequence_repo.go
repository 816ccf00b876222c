package repository

import (
	"context"
	"errors"

	"github.com/leadflowhq/outreach-engine/internal/domain"
	"gorm.io/gorm"
)

type SequenceRepository interface {
	Create(ctx context.Context, d *domain.SequenceDefinition) error
	GetByID(ctx context.Context, id string) (*domain.SequenceDefinition, error)
}

type GormSequenceRepo struct {
	db *gorm.DB
}

func NewGormSequenceRepo(db *gorm.DB) *GormSequenceRepo {
	return &GormSequenceRepo{db: db}
}

func (r *GormSequenceRepo) Create(ctx context.Context, d *domain.SequenceDefinition) error {
	model := sequenceModelFromDomain(d)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if d != nil {
		*d = *sequenceModelToDomain(model)
	}
	return nil
}

func (r *GormSequenceRepo) GetByID(ctx context.Context, id string) (*domain.SequenceDefinition, error) {
	var model SequenceModel
	err := r.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("step_index ASC")
		}).
		First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return sequenceModelToDomain(&model), nil
}
