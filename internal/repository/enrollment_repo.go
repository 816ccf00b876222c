package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/leadflowhq/outreach-engine/internal/domain"
	"gorm.io/gorm"
)

// claimStaleAfter bounds how long a claim blocks re-processing when the
// claiming worker crashed mid-step.
const claimStaleAfter = 15 * time.Minute

type EnrollmentRepository interface {
	Create(ctx context.Context, e *domain.SequenceEnrollment) error
	GetByID(ctx context.Context, id string) (*domain.SequenceEnrollment, error)
	GetActiveByLead(ctx context.Context, leadID string) ([]domain.SequenceEnrollment, error)
	GetDue(ctx context.Context, now time.Time, limit int) ([]domain.SequenceEnrollment, error)
	// ClaimDue atomically marks one due occurrence as in flight. It returns
	// false when another worker already holds the claim for this occurrence.
	ClaimDue(ctx context.Context, id string, now time.Time) (bool, error)
	// ReleaseClaim gives the current due occurrence back after a failed send
	// attempt, bumping the attempt counter.
	ReleaseClaim(ctx context.Context, id string) error
	// Advance commits a successful step send: moves to the next step and
	// schedules its due time.
	Advance(ctx context.Context, id string, nextStepIndex int, nextDueAt time.Time) error
	Complete(ctx context.Context, id string) error
	Stop(ctx context.Context, id string, reason string) error
}

type GormEnrollmentRepo struct {
	db *gorm.DB
}

func NewGormEnrollmentRepo(db *gorm.DB) *GormEnrollmentRepo {
	return &GormEnrollmentRepo{db: db}
}

func (r *GormEnrollmentRepo) Create(ctx context.Context, e *domain.SequenceEnrollment) error {
	model := enrollmentModelFromDomain(e)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	if e != nil {
		*e = *enrollmentModelToDomain(model)
	}
	return nil
}

func (r *GormEnrollmentRepo) GetByID(ctx context.Context, id string) (*domain.SequenceEnrollment, error) {
	var model EnrollmentModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return enrollmentModelToDomain(&model), nil
}

func (r *GormEnrollmentRepo) GetActiveByLead(ctx context.Context, leadID string) ([]domain.SequenceEnrollment, error) {
	var models []EnrollmentModel
	err := r.db.WithContext(ctx).
		Where("lead_id = ? AND status = ?", leadID, domain.EnrollmentStatusActive).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	enrollments := make([]domain.SequenceEnrollment, 0, len(models))
	for i := range models {
		enrollments = append(enrollments, *enrollmentModelToDomain(&models[i]))
	}
	return enrollments, nil
}

func (r *GormEnrollmentRepo) GetDue(ctx context.Context, now time.Time, limit int) ([]domain.SequenceEnrollment, error) {
	var models []EnrollmentModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_due_at <= ?", domain.EnrollmentStatusActive, now).
		Order("next_due_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	enrollments := make([]domain.SequenceEnrollment, 0, len(models))
	for i := range models {
		enrollments = append(enrollments, *enrollmentModelToDomain(&models[i]))
	}
	return enrollments, nil
}

func (r *GormEnrollmentRepo) ClaimDue(ctx context.Context, id string, now time.Time) (bool, error) {
	// A claim newer than next_due_at means this occurrence is already being
	// processed; a claim older than the stale cutoff belongs to a crashed
	// worker and may be taken over.
	staleBefore := now.Add(-claimStaleAfter)
	result := r.db.WithContext(ctx).
		Model(&EnrollmentModel{}).
		Where("id = ? AND status = ? AND next_due_at <= ?", id, domain.EnrollmentStatusActive, now).
		Where("(claimed_at IS NULL OR claimed_at <= next_due_at OR claimed_at < ?)", staleBefore).
		Update("claimed_at", now)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *GormEnrollmentRepo) ReleaseClaim(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Model(&EnrollmentModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"claimed_at":    nil,
			"send_attempts": gorm.Expr("send_attempts + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormEnrollmentRepo) Advance(ctx context.Context, id string, nextStepIndex int, nextDueAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&EnrollmentModel{}).
		Where("id = ? AND status = ?", id, domain.EnrollmentStatusActive).
		Updates(map[string]any{
			"current_step_index": nextStepIndex,
			"next_due_at":        nextDueAt,
			"send_attempts":      0,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *GormEnrollmentRepo) Complete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Model(&EnrollmentModel{}).
		Where("id = ? AND status = ?", id, domain.EnrollmentStatusActive).
		Updates(map[string]any{
			"status":      domain.EnrollmentStatusCompleted,
			"next_due_at": nil,
			"claimed_at":  nil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *GormEnrollmentRepo) Stop(ctx context.Context, id string, reason string) error {
	result := r.db.WithContext(ctx).
		Model(&EnrollmentModel{}).
		Where("id = ? AND status = ?", id, domain.EnrollmentStatusActive).
		Updates(map[string]any{
			"status":      domain.EnrollmentStatusStopped,
			"stop_reason": reason,
			"next_due_at": nil,
			"claimed_at":  nil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
