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
	"github.com/leadflowhq/outreach-engine/internal/ratelimit"
	"github.com/leadflowhq/outreach-engine/internal/repository"
	"github.com/leadflowhq/outreach-engine/internal/sender"
	"go.uber.org/zap"
)

const (
	sequenceSweepName = "sequence"

	defaultSequenceSweepInterval = 3 * time.Hour
	defaultSequenceSweepLimit    = 500
	defaultMaxStepSendAttempts   = 3
	defaultStepSendWait          = 30 * time.Second
)

type SequenceService struct {
	sequences   repository.SequenceRepository
	enrollments repository.EnrollmentRepository
	leads       repository.LeadRepository
	templates   repository.TemplateRepository
	contactLogs repository.ContactLogRepository
	scoring     *ScoringService
	sender      sender.Sender
	rateLimiter ratelimit.RateLimiter
	lease       SweepLease
	logger      *zap.Logger
	metrics     *observability.Metrics

	sweepInterval time.Duration
	sweepLimit    int
	maxAttempts   int
	sendWait      time.Duration
	now           func() time.Time
}

type SequenceServiceParams struct {
	Sequences   repository.SequenceRepository
	Enrollments repository.EnrollmentRepository
	Leads       repository.LeadRepository
	Templates   repository.TemplateRepository
	ContactLogs repository.ContactLogRepository
	Scoring     *ScoringService
	Sender      sender.Sender
	RateLimiter ratelimit.RateLimiter
	Lease       SweepLease
	Logger      *zap.Logger

	SweepInterval time.Duration
	SweepLimit    int
	MaxAttempts   int
	SendWait      time.Duration
}

func NewSequenceService(params SequenceServiceParams) (*SequenceService, error) {
	if params.Sequences == nil {
		return nil, fmt.Errorf("sequence repository is required")
	}
	if params.Enrollments == nil {
		return nil, fmt.Errorf("enrollment repository is required")
	}
	if params.Leads == nil {
		return nil, fmt.Errorf("lead repository is required")
	}
	if params.Templates == nil {
		return nil, fmt.Errorf("template repository is required")
	}
	if params.ContactLogs == nil {
		return nil, fmt.Errorf("contact log repository is required")
	}
	if params.Scoring == nil {
		return nil, fmt.Errorf("scoring service is required")
	}
	if params.Sender == nil {
		return nil, fmt.Errorf("sender is required")
	}
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	if params.SweepInterval <= 0 {
		params.SweepInterval = defaultSequenceSweepInterval
	}
	if params.SweepLimit <= 0 {
		params.SweepLimit = defaultSequenceSweepLimit
	}
	if params.MaxAttempts <= 0 {
		params.MaxAttempts = defaultMaxStepSendAttempts
	}
	if params.SendWait <= 0 {
		params.SendWait = defaultStepSendWait
	}

	return &SequenceService{
		sequences:     params.Sequences,
		enrollments:   params.Enrollments,
		leads:         params.Leads,
		templates:     params.Templates,
		contactLogs:   params.ContactLogs,
		scoring:       params.Scoring,
		sender:        params.Sender,
		rateLimiter:   params.RateLimiter,
		lease:         params.Lease,
		logger:        params.Logger,
		sweepInterval: params.SweepInterval,
		sweepLimit:    params.SweepLimit,
		maxAttempts:   params.MaxAttempts,
		sendWait:      params.SendWait,
		now:           time.Now,
	}, nil
}

func (s *SequenceService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

func (s *SequenceService) CreateSequence(ctx context.Context, def *domain.SequenceDefinition) (*domain.SequenceDefinition, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if def == nil {
		return nil, fmt.Errorf("%w: sequence definition is required", domain.ErrValidation)
	}

	def.ID = strings.TrimSpace(def.ID)
	if def.ID == "" {
		def.ID = uuid.NewString()
	}
	def.Name = strings.TrimSpace(def.Name)
	for i := range def.Steps {
		def.Steps[i].ID = strings.TrimSpace(def.Steps[i].ID)
		if def.Steps[i].ID == "" {
			def.Steps[i].ID = uuid.NewString()
		}
		def.Steps[i].SequenceID = def.ID
		def.Steps[i].StepIndex = i
	}

	if err := def.Validate(); err != nil {
		return nil, err
	}

	if err := s.sequences.Create(ctx, def); err != nil {
		return nil, err
	}
	return def, nil
}

func (s *SequenceService) GetSequence(ctx context.Context, id string) (*domain.SequenceDefinition, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: sequence id is required", domain.ErrValidation)
	}
	return s.sequences.GetByID(ctx, strings.TrimSpace(id))
}

// Enroll puts a lead on a sequence. The first step becomes due after its own
// delay, counted from enrollment. A lead can hold at most one active
// enrollment per sequence; a second attempt returns ErrConflict.
func (s *SequenceService) Enroll(ctx context.Context, leadID, sequenceID string) (*domain.SequenceEnrollment, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	leadID = strings.TrimSpace(leadID)
	sequenceID = strings.TrimSpace(sequenceID)
	if leadID == "" {
		return nil, fmt.Errorf("%w: lead id is required", domain.ErrValidation)
	}
	if sequenceID == "" {
		return nil, fmt.Errorf("%w: sequence id is required", domain.ErrValidation)
	}

	lead, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if lead.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: lead %s is %s", domain.ErrConflict, leadID, lead.Status)
	}
	if lead.OptedOut {
		return nil, fmt.Errorf("%w: lead %s has opted out", domain.ErrConflict, leadID)
	}

	def, err := s.sequences.GetByID(ctx, sequenceID)
	if err != nil {
		return nil, err
	}
	if !def.IsActive {
		return nil, fmt.Errorf("%w: sequence %s is inactive", domain.ErrConflict, sequenceID)
	}
	first := def.Step(0)
	if first == nil {
		return nil, fmt.Errorf("%w: sequence %s has no steps", domain.ErrValidation, sequenceID)
	}

	enrolledAt := s.now().UTC()
	dueAt := enrolledAt.Add(first.Delay())
	enrollment := &domain.SequenceEnrollment{
		ID:               uuid.NewString(),
		LeadID:           leadID,
		SequenceID:       sequenceID,
		CurrentStepIndex: 0,
		Status:           domain.EnrollmentStatusActive,
		EnrolledAt:       enrolledAt,
		NextDueAt:        &dueAt,
	}
	if err := enrollment.Validate(); err != nil {
		return nil, err
	}

	if err := s.enrollments.Create(ctx, enrollment); err != nil {
		return nil, err
	}
	return enrollment, nil
}

func (s *SequenceService) GetEnrollment(ctx context.Context, id string) (*domain.SequenceEnrollment, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: enrollment id is required", domain.ErrValidation)
	}
	return s.enrollments.GetByID(ctx, strings.TrimSpace(id))
}

// StopEnrollment halts an active enrollment by operator request. A blank
// reason is recorded as a manual stop.
func (s *SequenceService) StopEnrollment(ctx context.Context, id, reason string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: enrollment id is required", domain.ErrValidation)
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = domain.StopReasonManual
	}
	return s.enrollments.Stop(ctx, strings.TrimSpace(id), reason)
}

// Start runs the due-step sweep on a fixed interval until context cancellation.
func (s *SequenceService) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := s.ProcessDue(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("sequence sweep failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.ProcessDue(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Error("sequence sweep failed", zap.Error(err))
			}
		}
	}
}

// ProcessDue sends every due sequence step once and returns how many sends
// went out. Each due occurrence is claimed before sending so concurrent
// sweeps produce exactly one contact log per occurrence.
func (s *SequenceService) ProcessDue(ctx context.Context) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if s.lease != nil {
		release, acquired, err := s.lease.Acquire(ctx, sequenceSweepName)
		if err != nil {
			return 0, fmt.Errorf("failed to acquire sequence lease: %w", err)
		}
		if !acquired {
			s.metrics.IncSweepRun(sequenceSweepName, "skipped")
			return 0, nil
		}
		defer func() {
			if err := release(context.Background()); err != nil {
				s.logger.Warn("failed to release sequence lease", zap.Error(err))
			}
		}()
	}

	start := s.now()
	sent, err := s.processDueOnce(ctx)
	s.metrics.ObserveSweepDuration(sequenceSweepName, s.now().Sub(start))
	if err != nil {
		s.metrics.IncSweepRun(sequenceSweepName, "error")
		return sent, err
	}

	s.metrics.IncSweepRun(sequenceSweepName, "ok")
	return sent, nil
}

func (s *SequenceService) processDueOnce(ctx context.Context) (int, error) {
	now := s.now().UTC()

	due, err := s.enrollments.GetDue(ctx, now, s.sweepLimit)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch due enrollments: %w", err)
	}

	sent := 0
	for i := range due {
		if ctx.Err() != nil {
			return sent, nil
		}

		ok, err := s.ProcessEnrollment(ctx, &due[i])
		if err != nil {
			s.logger.Error("failed to process due enrollment",
				zap.String("enrollmentId", due[i].ID),
				zap.String("leadId", due[i].LeadID),
				zap.Error(err),
			)
			continue
		}
		if ok {
			sent++
		}
	}

	return sent, nil
}

// ProcessEnrollment claims and sends the current due step of one enrollment.
// It returns true only when a message actually went out; a lost claim race,
// a stop condition, or a not-yet-due step all return false without error.
func (s *SequenceService) ProcessEnrollment(ctx context.Context, enrollment *domain.SequenceEnrollment) (bool, error) {
	now := s.now().UTC()

	claimed, err := s.enrollments.ClaimDue(ctx, enrollment.ID, now)
	if err != nil {
		return false, fmt.Errorf("failed to claim enrollment: %w", err)
	}
	if !claimed {
		return false, nil
	}

	lead, err := s.leads.GetByID(ctx, enrollment.LeadID)
	if err != nil {
		return false, err
	}

	// Stop-on-response and opt-out take precedence over sending.
	if lead.Status == domain.LeadStatusReplied {
		return false, s.stopEnrollment(ctx, enrollment.ID, domain.StopReasonReplied)
	}
	if lead.OptedOut || !lead.HasConsent {
		return false, s.stopEnrollment(ctx, enrollment.ID, domain.StopReasonOptedOut)
	}
	if lead.Status.IsTerminal() {
		return false, s.stopEnrollment(ctx, enrollment.ID, domain.StopReasonManual)
	}

	def, err := s.sequences.GetByID(ctx, enrollment.SequenceID)
	if err != nil {
		return false, err
	}

	step := def.Step(enrollment.CurrentStepIndex)
	if step == nil {
		// Definition shrank underneath the enrollment; nothing left to send.
		return false, s.completeEnrollment(ctx, enrollment.ID)
	}

	if lead.ContactAddress(step.Channel) == "" {
		return false, s.stopEnrollment(ctx, enrollment.ID, domain.StopReasonSendFailed)
	}

	template, err := s.templates.GetByID(ctx, step.TemplateID)
	if err != nil {
		return false, err
	}

	sendErr := s.sendStep(ctx, lead, step, template)
	if sendErr != nil {
		return false, s.handleSendFailure(ctx, enrollment, sendErr)
	}

	if err := s.scoring.RecordContact(ctx, lead.ID, s.now().UTC()); err != nil {
		s.logger.Warn("failed to record contact after step send",
			zap.String("leadId", lead.ID),
			zap.Error(err),
		)
	}

	if def.IsLastStep(enrollment.CurrentStepIndex) {
		return true, s.completeEnrollment(ctx, enrollment.ID)
	}

	next := def.Step(enrollment.CurrentStepIndex + 1)
	nextDue := s.now().UTC().Add(next.Delay())
	if err := s.enrollments.Advance(ctx, enrollment.ID, enrollment.CurrentStepIndex+1, nextDue); err != nil {
		return true, fmt.Errorf("failed to advance enrollment: %w", err)
	}
	return true, nil
}

func (s *SequenceService) sendStep(
	ctx context.Context,
	lead *domain.Lead,
	step *domain.SequenceStep,
	template *domain.MessageTemplate,
) error {
	channelName := strings.ToLower(step.Channel.String())
	if s.rateLimiter != nil {
		waitCtx, cancel := context.WithTimeout(ctx, s.sendWait)
		err := s.rateLimiter.Wait(waitCtx, channelName)
		cancel()
		if err != nil {
			return fmt.Errorf("rate limiter wait failed: %w", err)
		}
	}

	content := domain.PersonalizeContent(template.Content, lead)
	subject := domain.PersonalizeContent(template.Subject, lead)

	sendStart := s.now()
	result, sendErr := s.sender.Send(ctx, sender.Message{
		To:      lead.ContactAddress(step.Channel),
		Channel: step.Channel,
		Subject: subject,
		Content: content,
	})
	s.metrics.ObserveSendDuration(channelName, s.now().Sub(sendStart))

	log := &domain.ContactLog{
		ID:         uuid.NewString(),
		LeadID:     lead.ID,
		Channel:    step.Channel,
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
		s.logger.Error("failed to write contact log",
			zap.String("leadId", lead.ID),
			zap.Error(err),
		)
	}

	if sendErr != nil {
		s.metrics.IncMessageFailed(channelName, failureReason(sendErr))
		return sendErr
	}

	s.metrics.IncMessageSent(channelName)
	if err := s.templates.IncrementSent(ctx, template.ID); err != nil {
		s.logger.Warn("failed to bump template send counter",
			zap.String("templateId", template.ID),
			zap.Error(err),
		)
	}
	return nil
}

// handleSendFailure releases the claim so the next sweep retries the same
// step, until the attempt budget is spent and the enrollment stops.
func (s *SequenceService) handleSendFailure(ctx context.Context, enrollment *domain.SequenceEnrollment, sendErr error) error {
	if err := s.enrollments.ReleaseClaim(ctx, enrollment.ID); err != nil {
		return fmt.Errorf("failed to release claim after send failure: %w", err)
	}

	attempts := enrollment.SendAttempts + 1
	if attempts >= s.maxAttempts || !sender.IsTransient(sendErr) {
		if err := s.stopEnrollment(ctx, enrollment.ID, domain.StopReasonSendFailed); err != nil {
			return err
		}
		s.logger.Warn("enrollment stopped after send failures",
			zap.String("enrollmentId", enrollment.ID),
			zap.Int("attempts", attempts),
			zap.Error(sendErr),
		)
		return nil
	}

	return fmt.Errorf("step send failed (attempt %d/%d): %w", attempts, s.maxAttempts, sendErr)
}

func (s *SequenceService) stopEnrollment(ctx context.Context, id string, reason string) error {
	err := s.enrollments.Stop(ctx, id, reason)
	if err != nil && !errors.Is(err, domain.ErrConflict) {
		return fmt.Errorf("failed to stop enrollment %s: %w", id, err)
	}
	return nil
}

func (s *SequenceService) completeEnrollment(ctx context.Context, id string) error {
	err := s.enrollments.Complete(ctx, id)
	if err != nil && !errors.Is(err, domain.ErrConflict) {
		return fmt.Errorf("failed to complete enrollment %s: %w", id, err)
	}
	return nil
}

func failureReason(err error) string {
	if sender.IsTransient(err) {
		return "transient_error"
	}
	return "permanent_error"
}
