package repository

import (
	"context"
	"errors"
	"time"

	"github.com/leadflowhq/outreach-engine/internal/domain"
	"gorm.io/gorm"
)

type LeadRepository interface {
	Create(ctx context.Context, l *domain.Lead) error
	GetByID(ctx context.Context, id string) (*domain.Lead, error)
	// GetByIDsByScore loads the given leads ordered by score descending,
	// which is the processing order for bulk jobs.
	GetByIDsByScore(ctx context.Context, ids []string) ([]domain.Lead, error)
	UpdateScore(ctx context.Context, id string, score int, temperature domain.Temperature) error
	// RecordContact stamps a successful outbound send: bumps the contact
	// counter, moves NEW leads to CONTACTED, and resets decay bookkeeping.
	RecordContact(ctx context.Context, id string, at time.Time) error
	// RecordResponse marks a detected reply and its latency.
	RecordResponse(ctx context.Context, id string, at time.Time, latency time.Duration) error
	SetOptedOut(ctx context.Context, id string, optedOut bool) error
	// GetDecayCandidates returns non-terminal leads whose last contact (or
	// creation, when never contacted) predates cutoff, ordered by id so a
	// sweep can page through the whole stale population with afterID as the
	// keyset cursor.
	GetDecayCandidates(ctx context.Context, cutoff time.Time, afterID string, limit int) ([]domain.Lead, error)
	// ApplyDecay persists one decay step together with its window watermark.
	ApplyDecay(ctx context.Context, id string, score int, temperature domain.Temperature, windowsApplied int) error
}

type GormLeadRepo struct {
	db *gorm.DB
}

func NewGormLeadRepo(db *gorm.DB) *GormLeadRepo {
	return &GormLeadRepo{db: db}
}

func (r *GormLeadRepo) Create(ctx context.Context, l *domain.Lead) error {
	model := leadModelFromDomain(l)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if l != nil {
		*l = *leadModelToDomain(model)
	}
	return nil
}

func (r *GormLeadRepo) GetByID(ctx context.Context, id string) (*domain.Lead, error) {
	var model LeadModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return leadModelToDomain(&model), nil
}

func (r *GormLeadRepo) GetByIDsByScore(ctx context.Context, ids []string) ([]domain.Lead, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var models []LeadModel
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("score DESC, id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	leads := make([]domain.Lead, 0, len(models))
	for i := range models {
		leads = append(leads, *leadModelToDomain(&models[i]))
	}
	return leads, nil
}

func (r *GormLeadRepo) UpdateScore(ctx context.Context, id string, score int, temperature domain.Temperature) error {
	result := r.db.WithContext(ctx).
		Model(&LeadModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"score":       score,
			"temperature": temperature,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormLeadRepo) RecordContact(ctx context.Context, id string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&LeadModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_contacted_at":     at,
			"times_contacted":       gorm.Expr("times_contacted + 1"),
			"decay_windows_applied": 0,
			"status": gorm.Expr(
				"CASE WHEN status = ? THEN ? ELSE status END",
				domain.LeadStatusNew, domain.LeadStatusContacted,
			),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormLeadRepo) RecordResponse(ctx context.Context, id string, at time.Time, latency time.Duration) error {
	result := r.db.WithContext(ctx).
		Model(&LeadModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":                   domain.LeadStatusReplied,
			"last_response_at":         at,
			"times_responded":          gorm.Expr("times_responded + 1"),
			"last_response_latency_ns": int64(latency),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormLeadRepo) SetOptedOut(ctx context.Context, id string, optedOut bool) error {
	result := r.db.WithContext(ctx).
		Model(&LeadModel{}).
		Where("id = ?", id).
		Update("opted_out", optedOut)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormLeadRepo) GetDecayCandidates(ctx context.Context, cutoff time.Time, afterID string, limit int) ([]domain.Lead, error) {
	var models []LeadModel
	err := r.db.WithContext(ctx).
		Where("id > ?", afterID).
		Where("status NOT IN ?", []domain.LeadStatus{domain.LeadStatusClosed, domain.LeadStatusLost}).
		Where("(last_contacted_at <= ? OR (last_contacted_at IS NULL AND created_at <= ?))", cutoff, cutoff).
		Where("score > 0").
		Order("id ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	leads := make([]domain.Lead, 0, len(models))
	for i := range models {
		leads = append(leads, *leadModelToDomain(&models[i]))
	}
	return leads, nil
}

func (r *GormLeadRepo) ApplyDecay(ctx context.Context, id string, score int, temperature domain.Temperature, windowsApplied int) error {
	// Guard on the watermark so two sweeps racing on the same window
	// decrement at most once.
	result := r.db.WithContext(ctx).
		Model(&LeadModel{}).
		Where("id = ? AND decay_windows_applied < ?", id, windowsApplied).
		Updates(map[string]any{
			"score":                 score,
			"temperature":           temperature,
			"decay_windows_applied": windowsApplied,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}
