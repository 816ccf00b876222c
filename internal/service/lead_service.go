package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/leadflowhq/outreach-engine/internal/domain"
	"github.com/leadflowhq/outreach-engine/internal/repository"
	"go.uber.org/zap"
)

type LeadService struct {
	leads       repository.LeadRepository
	enrollments repository.EnrollmentRepository
	contactLogs repository.ContactLogRepository
	templates   repository.TemplateRepository
	scoring     *ScoringService
	logger      *zap.Logger
	now         func() time.Time
}

func NewLeadService(
	leads repository.LeadRepository,
	enrollments repository.EnrollmentRepository,
	contactLogs repository.ContactLogRepository,
	templates repository.TemplateRepository,
	scoring *ScoringService,
	logger *zap.Logger,
) (*LeadService, error) {
	if leads == nil {
		return nil, fmt.Errorf("lead repository is required")
	}
	if scoring == nil {
		return nil, fmt.Errorf("scoring service is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &LeadService{
		leads:       leads,
		enrollments: enrollments,
		contactLogs: contactLogs,
		templates:   templates,
		scoring:     scoring,
		logger:      logger,
		now:         time.Now,
	}, nil
}

func (s *LeadService) Create(ctx context.Context, lead *domain.Lead) (*domain.Lead, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if lead == nil {
		return nil, fmt.Errorf("%w: lead is required", domain.ErrValidation)
	}

	lead.ID = strings.TrimSpace(lead.ID)
	if lead.ID == "" {
		lead.ID = uuid.NewString()
	}
	lead.Name = strings.TrimSpace(lead.Name)
	lead.Phone = strings.TrimSpace(lead.Phone)
	lead.Email = strings.TrimSpace(lead.Email)
	lead.City = strings.TrimSpace(lead.City)

	lead.Status = domain.LeadStatusNew
	lead.TimesContacted = 0
	lead.TimesResponded = 0
	lead.LastResponseLatency = 0
	lead.DecayWindowsApplied = 0
	lead.LastContactedAt = nil
	lead.LastResponseAt = nil

	lead.Score = ComputeScore(lead)
	lead.Temperature = domain.ClassifyScore(lead.Score)

	if err := lead.Validate(); err != nil {
		return nil, err
	}

	if err := s.leads.Create(ctx, lead); err != nil {
		return nil, err
	}

	return lead, nil
}

func (s *LeadService) GetByID(ctx context.Context, id string) (*domain.Lead, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: lead id is required", domain.ErrValidation)
	}
	return s.leads.GetByID(ctx, strings.TrimSpace(id))
}

// OptOut flags the lead as no longer contactable, applies the opt-out score
// penalty, and stops every active sequence enrollment it has.
func (s *LeadService) OptOut(ctx context.Context, id string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: lead id is required", domain.ErrValidation)
	}

	if err := s.leads.SetOptedOut(ctx, id, true); err != nil {
		return err
	}

	// The opt-out penalty lands through a rescore of the flagged lead.
	if _, err := s.scoring.Rescore(ctx, id); err != nil {
		return fmt.Errorf("failed to rescore lead %s after opt-out: %w", id, err)
	}

	return s.stopActiveEnrollments(ctx, id, domain.StopReasonOptedOut)
}

// RecordResponse registers an inbound reply from the lead. It closes the
// latest unanswered contact log, credits the template variant that drew the
// reply, rescores the lead, and stops its active sequence enrollments.
func (s *LeadService) RecordResponse(ctx context.Context, leadID string, respondedAt time.Time) (*domain.Lead, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	leadID = strings.TrimSpace(leadID)
	if leadID == "" {
		return nil, fmt.Errorf("%w: lead id is required", domain.ErrValidation)
	}
	if respondedAt.IsZero() {
		respondedAt = s.now()
	}
	respondedAt = respondedAt.UTC()

	latency := time.Duration(0)
	log, err := s.contactLogs.GetLatestUnanswered(ctx, leadID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to load latest contact for lead %s: %w", leadID, err)
	}

	if log != nil {
		if respondedAt.After(log.SentAt) {
			latency = respondedAt.Sub(log.SentAt)
		}

		if err := s.contactLogs.MarkResponded(ctx, log.ID, respondedAt); err != nil && !errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("failed to mark contact log responded: %w", err)
		}

		if log.TemplateID != nil && s.templates != nil {
			if err := s.templates.IncrementResponded(ctx, *log.TemplateID); err != nil {
				s.logger.Warn("failed to credit template response",
					zap.String("templateId", *log.TemplateID),
					zap.Error(err),
				)
			}
		}
	}

	if err := s.scoring.RecordResponse(ctx, leadID, respondedAt, latency); err != nil {
		return nil, err
	}

	if err := s.stopActiveEnrollments(ctx, leadID, domain.StopReasonReplied); err != nil {
		return nil, err
	}

	return s.leads.GetByID(ctx, leadID)
}

func (s *LeadService) stopActiveEnrollments(ctx context.Context, leadID string, reason string) error {
	if s.enrollments == nil {
		return nil
	}

	active, err := s.enrollments.GetActiveByLead(ctx, leadID)
	if err != nil {
		return fmt.Errorf("failed to load active enrollments for lead %s: %w", leadID, err)
	}

	for i := range active {
		err := s.enrollments.Stop(ctx, active[i].ID, reason)
		if err != nil && !errors.Is(err, domain.ErrConflict) {
			return fmt.Errorf("failed to stop enrollment %s: %w", active[i].ID, err)
		}
	}

	return nil
}
