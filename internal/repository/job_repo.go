package repository

import (
	"context"
	"errors"
	"time"

	"github.com/leadflowhq/outreach-engine/internal/domain"
	"gorm.io/gorm"
)

type BulkJobRepository interface {
	Create(ctx context.Context, j *domain.BulkJob) error
	GetByID(ctx context.Context, id string) (*domain.BulkJob, error)
	// GetStatus reads only the job status; used as the per-item cancellation
	// check inside the dispatch loop.
	GetStatus(ctx context.Context, id string) (domain.JobStatus, error)
	// MarkRunning transitions PENDING -> RUNNING. Returns false when the job
	// is no longer pending (e.g. cancelled before pickup).
	MarkRunning(ctx context.Context, id string, at time.Time) (bool, error)
	Cancel(ctx context.Context, id string) error
	// AppendOutcome records one item's result and bumps the job counters in
	// the same transaction, preserving the counter invariant at every
	// observation point.
	AppendOutcome(ctx context.Context, item *domain.BulkJobItem) error
	// Finish closes out a job with a terminal status. Returns ErrConflict
	// when the job is already terminal, so a COMPLETED arriving after a
	// racing cancel cannot overwrite CANCELLED.
	Finish(ctx context.Context, id string, status domain.JobStatus, at time.Time, errorMessage *string) error
	ListItems(ctx context.Context, jobID string) ([]domain.BulkJobItem, error)
}

type GormBulkJobRepo struct {
	db *gorm.DB
}

func NewGormBulkJobRepo(db *gorm.DB) *GormBulkJobRepo {
	return &GormBulkJobRepo{db: db}
}

func (r *GormBulkJobRepo) Create(ctx context.Context, j *domain.BulkJob) error {
	model := bulkJobModelFromDomain(j)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if j != nil {
		*j = *bulkJobModelToDomain(model)
	}
	return nil
}

func (r *GormBulkJobRepo) GetByID(ctx context.Context, id string) (*domain.BulkJob, error) {
	var model BulkJobModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return bulkJobModelToDomain(&model), nil
}

func (r *GormBulkJobRepo) GetStatus(ctx context.Context, id string) (domain.JobStatus, error) {
	var model BulkJobModel
	err := r.db.WithContext(ctx).
		Select("status").
		First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return model.Status, nil
}

func (r *GormBulkJobRepo) MarkRunning(ctx context.Context, id string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&BulkJobModel{}).
		Where("id = ? AND status = ?", id, domain.JobStatusPending).
		Updates(map[string]any{
			"status":     domain.JobStatusRunning,
			"started_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *GormBulkJobRepo) Cancel(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Model(&BulkJobModel{}).
		Where("id = ? AND status IN ?", id, []domain.JobStatus{domain.JobStatusPending, domain.JobStatusRunning}).
		Update("status", domain.JobStatusCancelled)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *GormBulkJobRepo) AppendOutcome(ctx context.Context, item *domain.BulkJobItem) error {
	if item == nil || !item.Outcome.IsValid() {
		return domain.ErrValidation
	}

	counters := map[string]any{
		"processed_items": gorm.Expr("processed_items + 1"),
	}
	switch item.Outcome {
	case domain.ItemOutcomeSent:
		counters["successful_items"] = gorm.Expr("successful_items + 1")
	case domain.ItemOutcomeFailed:
		counters["failed_items"] = gorm.Expr("failed_items + 1")
	case domain.ItemOutcomeSkipped:
		counters["skipped_items"] = gorm.Expr("skipped_items + 1")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(bulkJobItemModelFromDomain(item)).Error; err != nil {
			return err
		}

		result := tx.Model(&BulkJobModel{}).
			Where("id = ?", item.JobID).
			Updates(counters)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

func (r *GormBulkJobRepo) Finish(ctx context.Context, id string, status domain.JobStatus, at time.Time, errorMessage *string) error {
	if !status.IsTerminal() {
		return domain.ErrValidation
	}

	updates := map[string]any{
		"completed_at": at,
	}
	if errorMessage != nil {
		updates["error_message"] = *errorMessage
	}

	// A cancelled job keeps its CANCELLED status; only record the finish
	// time. Every other terminal status may only land on a live job, so a
	// COMPLETED racing in after Cancel leaves the row untouched.
	allowed := []domain.JobStatus{domain.JobStatusPending, domain.JobStatusRunning}
	if status == domain.JobStatusCancelled {
		allowed = []domain.JobStatus{domain.JobStatusCancelled}
	} else {
		updates["status"] = status
	}

	result := r.db.WithContext(ctx).
		Model(&BulkJobModel{}).
		Where("id = ? AND status IN ?", id, allowed).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *GormBulkJobRepo) ListItems(ctx context.Context, jobID string) ([]domain.BulkJobItem, error) {
	var models []BulkJobItemModel
	err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("position ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	items := make([]domain.BulkJobItem, 0, len(models))
	for i := range models {
		items = append(items, *bulkJobItemModelToDomain(&models[i]))
	}
	return items, nil
}
