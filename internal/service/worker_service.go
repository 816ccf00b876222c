package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/leadflowhq/outreach-engine/internal/domain"
	"github.com/leadflowhq/outreach-engine/internal/observability"
	"github.com/leadflowhq/outreach-engine/internal/queue"
	"github.com/leadflowhq/outreach-engine/internal/ratelimit"
	"github.com/leadflowhq/outreach-engine/internal/repository"
	"github.com/leadflowhq/outreach-engine/internal/sender"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	minWorkerConcurrency = 1
	defaultBatchSize     = 30
	defaultBatchPause    = 20 * time.Second
	defaultSendWait      = 30 * time.Second
)

// Skip reasons recorded on SKIPPED bulk job items.
const (
	skipReasonTerminal      = "terminal_status"
	skipReasonOptedOut      = "opted_out"
	skipReasonNoConsent     = "no_consent"
	skipReasonNoContactInfo = "no_contact_info"
	skipReasonNotFound      = "not_found"
	skipReasonNotEnrolled   = "not_enrolled"
	skipReasonNotDue        = "not_due"
)

// JobWorkerService consumes bulk job messages and dispatches them lead by
// lead, hottest first. Progress is committed per item so a redelivered
// message resumes where the previous run stopped instead of re-sending.
type JobWorkerService struct {
	jobs        repository.BulkJobRepository
	leads       repository.LeadRepository
	templates   repository.TemplateRepository
	enrollments repository.EnrollmentRepository
	sequences   *SequenceService
	selector    *TemplateSelector
	scoring     *ScoringService
	consumer    queue.Consumer
	sender      sender.Sender
	contactLogs repository.ContactLogRepository
	rateLimiter ratelimit.RateLimiter
	logger      *zap.Logger
	metrics     *observability.Metrics

	concurrency int
	batchSize   int
	batchPause  time.Duration
	sendWait    time.Duration
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
}

type JobWorkerParams struct {
	Jobs        repository.BulkJobRepository
	Leads       repository.LeadRepository
	Templates   repository.TemplateRepository
	Enrollments repository.EnrollmentRepository
	Sequences   *SequenceService
	Selector    *TemplateSelector
	Scoring     *ScoringService
	Consumer    queue.Consumer
	Sender      sender.Sender
	ContactLogs repository.ContactLogRepository
	RateLimiter ratelimit.RateLimiter
	Logger      *zap.Logger

	Concurrency int
	BatchSize   int
	BatchPause  time.Duration
	SendWait    time.Duration
}

func NewJobWorkerService(params JobWorkerParams) (*JobWorkerService, error) {
	if params.Jobs == nil {
		return nil, fmt.Errorf("bulk job repository is required")
	}
	if params.Leads == nil {
		return nil, fmt.Errorf("lead repository is required")
	}
	if params.Templates == nil {
		return nil, fmt.Errorf("template repository is required")
	}
	if params.Sender == nil {
		return nil, fmt.Errorf("sender is required")
	}
	if params.ContactLogs == nil {
		return nil, fmt.Errorf("contact log repository is required")
	}
	if params.Scoring == nil {
		return nil, fmt.Errorf("scoring service is required")
	}
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	if params.Concurrency < minWorkerConcurrency {
		params.Concurrency = minWorkerConcurrency
	}
	if params.BatchSize <= 0 {
		params.BatchSize = defaultBatchSize
	}
	if params.BatchPause < 0 {
		params.BatchPause = defaultBatchPause
	}
	if params.SendWait <= 0 {
		params.SendWait = defaultSendWait
	}

	return &JobWorkerService{
		jobs:        params.Jobs,
		leads:       params.Leads,
		templates:   params.Templates,
		enrollments: params.Enrollments,
		sequences:   params.Sequences,
		selector:    params.Selector,
		scoring:     params.Scoring,
		consumer:    params.Consumer,
		sender:      params.Sender,
		contactLogs: params.ContactLogs,
		rateLimiter: params.RateLimiter,
		logger:      params.Logger,
		concurrency: params.Concurrency,
		batchSize:   params.BatchSize,
		batchPause:  params.BatchPause,
		sendWait:    params.SendWait,
		now:         time.Now,
		sleep:       sleepWithContext,
	}, nil
}

func (s *JobWorkerService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Start consumes the bulk job queue until context cancellation.
func (s *JobWorkerService) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.consumer == nil {
		return fmt.Errorf("consumer is required")
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < s.concurrency; i++ {
		workerID := i + 1

		g.Go(func() error {
			s.logger.Info("job worker started", zap.Int("workerId", workerID))

			err := s.consumer.Consume(groupCtx, s.ProcessJobMessage)
			if err != nil {
				s.logger.Error("job worker stopped with error",
					zap.Int("workerId", workerID),
					zap.Error(err),
				)
				return err
			}

			s.logger.Info("job worker stopped", zap.Int("workerId", workerID))
			return nil
		})
	}

	return g.Wait()
}

// ProcessJobMessage runs one bulk job to a terminal state. A returned error
// nacks the message for redelivery; nil acks it.
func (s *JobWorkerService) ProcessJobMessage(ctx context.Context, msg queue.JobMessage) error {
	job, err := s.jobs.GetByID(ctx, msg.JobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("job not found, dropping message", zap.String("jobId", msg.JobID))
			return nil
		}
		return fmt.Errorf("failed to load job: %w", err)
	}

	if job.Status.IsTerminal() {
		return nil
	}

	started, err := s.jobs.MarkRunning(ctx, job.ID, s.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to mark job running: %w", err)
	}
	if !started {
		status, err := s.jobs.GetStatus(ctx, job.ID)
		if err != nil {
			return fmt.Errorf("failed to check job status: %w", err)
		}
		switch status {
		case domain.JobStatusCancelled:
			return s.finishJob(ctx, job.ID, domain.JobStatusCancelled, nil)
		case domain.JobStatusRunning:
			// Redelivered message; resume below against recorded items.
		default:
			return nil
		}
	}

	ctx = observability.WithJobID(ctx, job.ID)
	logger := s.logger.With(zap.String("jobId", job.ID), zap.String("channel", string(job.Channel)))

	if err := s.runJob(ctx, logger, job, msg.LeadIDs); err != nil {
		if ctx.Err() != nil {
			// Shutdown mid-job: leave it RUNNING and let redelivery resume it.
			return fmt.Errorf("job interrupted: %w", err)
		}

		logger.Error("job failed", zap.Error(err))
		msg := err.Error()
		return s.finishJob(ctx, job.ID, domain.JobStatusFailed, &msg)
	}

	return nil
}

func (s *JobWorkerService) runJob(
	ctx context.Context,
	logger *zap.Logger,
	job *domain.BulkJob,
	leadIDs []string,
) error {
	// Items already recorded by a previous run of this job are final.
	existing, err := s.jobs.ListItems(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("%w: failed to load recorded items: %v", domain.ErrSystemic, err)
	}
	done := make(map[string]struct{}, len(existing))
	for i := range existing {
		done[existing[i].LeadID] = struct{}{}
	}
	position := len(existing)

	leads, err := s.leads.GetByIDsByScore(ctx, leadIDs)
	if err != nil {
		return fmt.Errorf("%w: failed to load leads: %v", domain.ErrSystemic, err)
	}
	found := make(map[string]struct{}, len(leads))
	for i := range leads {
		found[leads[i].ID] = struct{}{}
	}

	var jobTemplate *domain.MessageTemplate
	if job.TemplateID != nil {
		jobTemplate, err = s.templates.GetByID(ctx, *job.TemplateID)
		if err != nil {
			return fmt.Errorf("failed to load job template: %w", err)
		}
	}

	channelName := strings.ToLower(job.Channel.String())
	s.metrics.IncWorkerInFlight(channelName)
	defer s.metrics.DecWorkerInFlight(channelName)

	inBatch := 0
	for i := range leads {
		lead := &leads[i]
		if _, ok := done[lead.ID]; ok {
			continue
		}

		if inBatch >= s.batchSize {
			if err := s.sleep(ctx, s.batchPause); err != nil {
				return err
			}
			inBatch = 0
		}

		cancelled, err := s.jobCancelled(ctx, job.ID)
		if err != nil {
			return err
		}
		if cancelled {
			logger.Info("job cancelled, stopping dispatch", zap.Int("position", position))
			return s.finishJob(ctx, job.ID, domain.JobStatusCancelled, nil)
		}

		item := s.dispatchLead(ctx, logger, job, jobTemplate, lead)
		item.Position = position
		if err := s.jobs.AppendOutcome(ctx, item); err != nil {
			return fmt.Errorf("failed to record item outcome: %w", err)
		}
		position++
		inBatch++
	}

	// Lead ids that resolve to nothing are recorded, not silently dropped.
	for _, id := range leadIDs {
		if _, ok := found[id]; ok {
			continue
		}
		if _, ok := done[id]; ok {
			continue
		}

		item := s.skippedItem(job.ID, id, skipReasonNotFound)
		item.Position = position
		if err := s.jobs.AppendOutcome(ctx, item); err != nil {
			return fmt.Errorf("failed to record missing lead: %w", err)
		}
		position++
	}

	return s.finishJob(ctx, job.ID, domain.JobStatusCompleted, nil)
}

// dispatchLead handles exactly one lead and always yields an outcome; only
// infrastructure problems around it (recording, cancellation) abort the job.
func (s *JobWorkerService) dispatchLead(
	ctx context.Context,
	logger *zap.Logger,
	job *domain.BulkJob,
	jobTemplate *domain.MessageTemplate,
	lead *domain.Lead,
) *domain.BulkJobItem {
	if reason := skipReason(lead, job.Channel); reason != "" {
		return s.skippedItem(job.ID, lead.ID, reason)
	}

	if job.DryRun {
		logger.Debug("dry run, counting as sent",
			zap.String("leadId", lead.ID),
			zap.Int("score", lead.Score),
		)
		return &domain.BulkJobItem{
			ID:      uuid.NewString(),
			JobID:   job.ID,
			LeadID:  lead.ID,
			Outcome: domain.ItemOutcomeSent,
		}
	}

	if job.SequenceID != nil {
		return s.dispatchSequenceItem(ctx, job, lead)
	}

	return s.dispatchTemplateItem(ctx, logger, job, jobTemplate, lead)
}

func (s *JobWorkerService) dispatchTemplateItem(
	ctx context.Context,
	logger *zap.Logger,
	job *domain.BulkJob,
	jobTemplate *domain.MessageTemplate,
	lead *domain.Lead,
) *domain.BulkJobItem {
	template := s.pickTemplate(ctx, logger, job, jobTemplate)
	channelName := strings.ToLower(job.Channel.String())

	if s.rateLimiter != nil {
		waitCtx, cancel := context.WithTimeout(ctx, s.sendWait)
		err := s.rateLimiter.Wait(waitCtx, channelName)
		cancel()
		if err != nil {
			// Rate limit starvation fails this item, not the job; the lead
			// stays eligible for a later run.
			s.metrics.IncMessageFailed(channelName, "rate_limited")
			return s.failedItem(job.ID, lead.ID, &template.ID, fmt.Errorf("rate limiter wait failed: %w", err))
		}
	}

	content := domain.PersonalizeContent(template.Content, lead)
	subject := domain.PersonalizeContent(template.Subject, lead)

	sendStart := s.now()
	result, sendErr := s.sender.Send(ctx, sender.Message{
		To:      lead.ContactAddress(job.Channel),
		Channel: job.Channel,
		Subject: subject,
		Content: content,
	})
	s.metrics.ObserveSendDuration(channelName, s.now().Sub(sendStart))

	log := &domain.ContactLog{
		ID:         uuid.NewString(),
		LeadID:     lead.ID,
		Channel:    job.Channel,
		TemplateID: &template.ID,
		Variant:    template.Variant,
		Content:    content,
		Automated:  true,
		Delivered:  sendErr == nil,
		SentAt:     s.now().UTC(),
	}
	if sendErr != nil {
		msg := sendErr.Error()
		log.ErrorMessage = &msg
	} else if result != nil && strings.TrimSpace(result.DeliveryID) != "" {
		log.DeliveryID = &result.DeliveryID
	}
	if err := s.contactLogs.Create(ctx, log); err != nil {
		logger.Error("failed to write contact log",
			zap.String("leadId", lead.ID),
			zap.Error(err),
		)
	}

	if sendErr != nil {
		s.metrics.IncMessageFailed(channelName, failureReason(sendErr))
		return s.failedItem(job.ID, lead.ID, &template.ID, sendErr)
	}

	s.metrics.IncMessageSent(channelName)
	if err := s.templates.IncrementSent(ctx, template.ID); err != nil {
		logger.Warn("failed to bump template send counter",
			zap.String("templateId", template.ID),
			zap.Error(err),
		)
	}
	if err := s.scoring.RecordContact(ctx, lead.ID, s.now().UTC()); err != nil {
		logger.Warn("failed to record contact",
			zap.String("leadId", lead.ID),
			zap.Error(err),
		)
	}

	return &domain.BulkJobItem{
		ID:         uuid.NewString(),
		JobID:      job.ID,
		LeadID:     lead.ID,
		Outcome:    domain.ItemOutcomeSent,
		TemplateID: &template.ID,
	}
}

// dispatchSequenceItem pushes the lead's due step of the job's sequence.
// The claim machinery in the sequence service keeps this single-send even
// when the periodic sweep races the job.
func (s *JobWorkerService) dispatchSequenceItem(
	ctx context.Context,
	job *domain.BulkJob,
	lead *domain.Lead,
) *domain.BulkJobItem {
	if s.sequences == nil || s.enrollments == nil {
		return s.failedItem(job.ID, lead.ID, nil, fmt.Errorf("sequence dispatch is not configured"))
	}

	active, err := s.enrollments.GetActiveByLead(ctx, lead.ID)
	if err != nil {
		return s.failedItem(job.ID, lead.ID, nil, fmt.Errorf("failed to load enrollments: %w", err))
	}

	var enrollment *domain.SequenceEnrollment
	for i := range active {
		if active[i].SequenceID == *job.SequenceID {
			enrollment = &active[i]
			break
		}
	}
	if enrollment == nil {
		return s.skippedItem(job.ID, lead.ID, skipReasonNotEnrolled)
	}

	sent, err := s.sequences.ProcessEnrollment(ctx, enrollment)
	if err != nil {
		return s.failedItem(job.ID, lead.ID, nil, err)
	}
	if !sent {
		return s.skippedItem(job.ID, lead.ID, skipReasonNotDue)
	}

	return &domain.BulkJobItem{
		ID:      uuid.NewString(),
		JobID:   job.ID,
		LeadID:  lead.ID,
		Outcome: domain.ItemOutcomeSent,
	}
}

func (s *JobWorkerService) pickTemplate(
	ctx context.Context,
	logger *zap.Logger,
	job *domain.BulkJob,
	jobTemplate *domain.MessageTemplate,
) *domain.MessageTemplate {
	if s.selector == nil || jobTemplate == nil {
		return jobTemplate
	}

	variant, err := s.selector.SelectVariant(ctx, jobTemplate.Name, job.Channel)
	if err != nil {
		logger.Warn("variant selection failed, using job template",
			zap.String("templateId", jobTemplate.ID),
			zap.Error(err),
		)
		return jobTemplate
	}
	return variant
}

func (s *JobWorkerService) jobCancelled(ctx context.Context, jobID string) (bool, error) {
	status, err := s.jobs.GetStatus(ctx, jobID)
	if err != nil {
		return false, fmt.Errorf("failed to check job status: %w", err)
	}
	return status == domain.JobStatusCancelled, nil
}

func (s *JobWorkerService) finishJob(ctx context.Context, jobID string, status domain.JobStatus, errorMessage *string) error {
	err := s.jobs.Finish(ctx, jobID, status, s.now().UTC(), errorMessage)
	if errors.Is(err, domain.ErrConflict) {
		// A cancel landed between the last status check and the finish; the
		// job keeps its CANCELLED status.
		s.logger.Info("job already finished", zap.String("jobId", jobID), zap.String("status", status.String()))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to finish job: %w", err)
	}
	s.metrics.IncJobFinished(status.String())
	return nil
}

func (s *JobWorkerService) skippedItem(jobID, leadID, reason string) *domain.BulkJobItem {
	s.metrics.IncItemSkipped(reason)
	return &domain.BulkJobItem{
		ID:      uuid.NewString(),
		JobID:   jobID,
		LeadID:  leadID,
		Outcome: domain.ItemOutcomeSkipped,
		Error:   &reason,
	}
}

func (s *JobWorkerService) failedItem(jobID, leadID string, templateID *string, err error) *domain.BulkJobItem {
	msg := err.Error()
	return &domain.BulkJobItem{
		ID:         uuid.NewString(),
		JobID:      jobID,
		LeadID:     leadID,
		Outcome:    domain.ItemOutcomeFailed,
		TemplateID: templateID,
		Error:      &msg,
	}
}

func skipReason(lead *domain.Lead, channel domain.Channel) string {
	switch {
	case lead.Status.IsTerminal():
		return skipReasonTerminal
	case lead.OptedOut:
		return skipReasonOptedOut
	case !lead.HasConsent:
		return skipReasonNoConsent
	case lead.ContactAddress(channel) == "":
		return skipReasonNoContactInfo
	default:
		return ""
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
