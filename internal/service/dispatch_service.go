package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/leadflowhq/outreach-engine/internal/domain"
	"github.com/leadflowhq/outreach-engine/internal/queue"
	"github.com/leadflowhq/outreach-engine/internal/repository"
	"go.uber.org/zap"
)

const maxDispatchSelection = 5000

// DispatchRequest describes one bulk dispatch run: a lead selection, a
// channel, and exactly one content source.
type DispatchRequest struct {
	Channel    domain.Channel
	LeadIDs    []string
	TemplateID *string
	SequenceID *string
	DryRun     bool
}

type DispatchService struct {
	jobs      repository.BulkJobRepository
	templates repository.TemplateRepository
	sequences repository.SequenceRepository
	publisher queue.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewDispatchService(
	jobs repository.BulkJobRepository,
	templates repository.TemplateRepository,
	sequences repository.SequenceRepository,
	publisher queue.Publisher,
	logger *zap.Logger,
) (*DispatchService, error) {
	if jobs == nil {
		return nil, fmt.Errorf("bulk job repository is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DispatchService{
		jobs:      jobs,
		templates: templates,
		sequences: sequences,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Dispatch validates the request, records a PENDING job, and hands the lead
// selection to the worker queue. The returned job carries the id clients
// poll for progress.
func (s *DispatchService) Dispatch(ctx context.Context, req DispatchRequest) (*domain.BulkJob, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	leadIDs := dedupeIDs(req.LeadIDs)
	if len(leadIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one lead id is required", domain.ErrValidation)
	}
	if len(leadIDs) > maxDispatchSelection {
		return nil, fmt.Errorf("%w: selection exceeds %d leads", domain.ErrValidation, maxDispatchSelection)
	}

	if err := s.validateContentSource(ctx, req); err != nil {
		return nil, err
	}

	job := &domain.BulkJob{
		ID:         uuid.NewString(),
		Channel:    req.Channel,
		TemplateID: normalizeOptionalID(req.TemplateID),
		SequenceID: normalizeOptionalID(req.SequenceID),
		DryRun:     req.DryRun,
		Status:     domain.JobStatusPending,
		TotalItems: len(leadIDs),
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}

	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, err
	}

	msg := queue.JobMessage{
		JobID:   job.ID,
		Channel: job.Channel,
		LeadIDs: leadIDs,
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.logger.Error("failed to publish bulk job",
			zap.String("jobId", job.ID),
			zap.String("channel", string(job.Channel)),
			zap.Error(err),
		)
		msg := "failed to enqueue job"
		if finishErr := s.jobs.Finish(ctx, job.ID, domain.JobStatusFailed, s.now().UTC(), &msg); finishErr != nil {
			s.logger.Error("failed to mark job as failed after publish error",
				zap.String("jobId", job.ID),
				zap.Error(finishErr),
			)
		}
		return nil, fmt.Errorf("failed to publish bulk job: %w", err)
	}

	return job, nil
}

func (s *DispatchService) GetJob(ctx context.Context, id string) (*domain.BulkJob, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: job id is required", domain.ErrValidation)
	}
	return s.jobs.GetByID(ctx, strings.TrimSpace(id))
}

func (s *DispatchService) ListJobItems(ctx context.Context, jobID string) ([]domain.BulkJobItem, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, fmt.Errorf("%w: job id is required", domain.ErrValidation)
	}
	return s.jobs.ListItems(ctx, strings.TrimSpace(jobID))
}

// CancelJob requests cancellation. A running worker observes the flag
// between items; already-terminal jobs return ErrConflict.
func (s *DispatchService) CancelJob(ctx context.Context, id string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: job id is required", domain.ErrValidation)
	}
	return s.jobs.Cancel(ctx, strings.TrimSpace(id))
}

func (s *DispatchService) validateContentSource(ctx context.Context, req DispatchRequest) error {
	templateID := normalizeOptionalID(req.TemplateID)
	sequenceID := normalizeOptionalID(req.SequenceID)

	if (templateID != nil) == (sequenceID != nil) {
		return fmt.Errorf("%w: exactly one of template_id or sequence_id is required", domain.ErrValidation)
	}

	if templateID != nil {
		template, err := s.templates.GetByID(ctx, *templateID)
		if err != nil {
			return err
		}
		if !template.IsActive {
			return fmt.Errorf("%w: template %s is inactive", domain.ErrConflict, template.ID)
		}
		if template.Channel != req.Channel {
			return fmt.Errorf("%w: template %s targets channel %s, job targets %s",
				domain.ErrValidation, template.ID, template.Channel, req.Channel)
		}
		return nil
	}

	def, err := s.sequences.GetByID(ctx, *sequenceID)
	if err != nil {
		return err
	}
	if !def.IsActive {
		return fmt.Errorf("%w: sequence %s is inactive", domain.ErrConflict, def.ID)
	}
	return nil
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func normalizeOptionalID(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
