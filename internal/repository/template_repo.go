package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/leadflowhq/outreach-engine/internal/domain"
	"gorm.io/gorm"
)

type TemplateRepository interface {
	Create(ctx context.Context, t *domain.MessageTemplate) error
	GetByID(ctx context.Context, id string) (*domain.MessageTemplate, error)
	// GetActiveVariants returns the active variants with exactly this
	// template name and channel, the candidate set for variant selection.
	GetActiveVariants(ctx context.Context, baseName string, channel domain.Channel) ([]domain.MessageTemplate, error)
	IncrementSent(ctx context.Context, id string) error
	IncrementResponded(ctx context.Context, id string) error
}

type GormTemplateRepo struct {
	db *gorm.DB
}

func NewGormTemplateRepo(db *gorm.DB) *GormTemplateRepo {
	return &GormTemplateRepo{db: db}
}

func (r *GormTemplateRepo) Create(ctx context.Context, t *domain.MessageTemplate) error {
	model := templateModelFromDomain(t)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if t != nil {
		*t = *templateModelToDomain(model)
	}
	return nil
}

func (r *GormTemplateRepo) GetByID(ctx context.Context, id string) (*domain.MessageTemplate, error) {
	var model TemplateModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return templateModelToDomain(&model), nil
}

func (r *GormTemplateRepo) GetActiveVariants(ctx context.Context, baseName string, channel domain.Channel) ([]domain.MessageTemplate, error) {
	trimmed := strings.TrimSpace(baseName)
	if trimmed == "" {
		return nil, nil
	}

	// Variants of one family share the exact template name and differ only
	// by variant label. Prefix matching would pull in unrelated families
	// ("Promo" must not collect "Promo Winter").
	var models []TemplateModel
	err := r.db.WithContext(ctx).
		Where("name = ? AND channel = ? AND is_active = ?", trimmed, channel, true).
		Order("variant ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	templates := make([]domain.MessageTemplate, 0, len(models))
	for i := range models {
		templates = append(templates, *templateModelToDomain(&models[i]))
	}
	return templates, nil
}

func (r *GormTemplateRepo) IncrementSent(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Model(&TemplateModel{}).
		Where("id = ?", id).
		Update("times_sent", gorm.Expr("times_sent + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormTemplateRepo) IncrementResponded(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Model(&TemplateModel{}).
		Where("id = ?", id).
		Update("times_responded", gorm.Expr("times_responded + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
