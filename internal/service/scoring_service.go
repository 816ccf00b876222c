package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/leadflowhq/outreach-engine/internal/domain"
	"github.com/leadflowhq/outreach-engine/internal/repository"
	"go.uber.org/zap"
)

// Scoring weights. The score starts from a neutral base and moves with
// static lead signals and observed engagement.
const (
	scoreBase = 50

	ratingPointsPerStar = 4
	ratingPointsCap     = 20

	noPublicProfileBonus   = 15
	hasPublicProfilePoints = -10

	engagementPointsPerResponse = 5
	engagementPointsCap         = 20

	fastResponseBonus   = 15
	sameDayResponse     = 10
	within3DaysResponse = 5

	optOutPenalty = 10
)

type ScoringService struct {
	leads  repository.LeadRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewScoringService(leads repository.LeadRepository, logger *zap.Logger) (*ScoringService, error) {
	if leads == nil {
		return nil, fmt.Errorf("lead repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ScoringService{
		leads:  leads,
		logger: logger,
		now:    time.Now,
	}, nil
}

// ComputeScore derives the lead's score from its current signals. It is a
// pure function of the lead: same input, same score.
func ComputeScore(lead *domain.Lead) int {
	if lead == nil {
		return 0
	}

	score := scoreBase

	if lead.Rating > 0 {
		points := int(lead.Rating * ratingPointsPerStar)
		if points > ratingPointsCap {
			points = ratingPointsCap
		}
		score += points
	}

	// Leads without an established public presence are the ones this engine
	// exists for, so absence raises the score.
	if lead.HasPublicProfile {
		score += hasPublicProfilePoints
	} else {
		score += noPublicProfileBonus
	}

	if lead.TimesResponded > 0 {
		points := lead.TimesResponded * engagementPointsPerResponse
		if points > engagementPointsCap {
			points = engagementPointsCap
		}
		score += points
	}

	score += responseLatencyPoints(lead.LastResponseLatency)

	// An opted-out lead told us to stop; its score reflects that.
	if lead.OptedOut {
		score -= optOutPenalty
	}

	return domain.ClampScore(score)
}

func responseLatencyPoints(latency time.Duration) int {
	if latency <= 0 {
		return 0
	}
	switch {
	case latency < time.Hour:
		return fastResponseBonus
	case latency < 24*time.Hour:
		return sameDayResponse
	case latency < 72*time.Hour:
		return within3DaysResponse
	default:
		return 0
	}
}

// Rescore recomputes and persists the score and temperature for a lead.
func (s *ScoringService) Rescore(ctx context.Context, leadID string) (*domain.Lead, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(leadID) == "" {
		return nil, fmt.Errorf("%w: lead id is required", domain.ErrValidation)
	}

	lead, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		return nil, err
	}

	score := ComputeScore(lead)
	temperature := domain.ClassifyScore(score)
	if err := s.leads.UpdateScore(ctx, lead.ID, score, temperature); err != nil {
		return nil, fmt.Errorf("failed to persist score for lead %s: %w", lead.ID, err)
	}

	lead.Score = score
	lead.Temperature = temperature
	return lead, nil
}

// RecordContact registers a successful outbound send and rescored state.
func (s *ScoringService) RecordContact(ctx context.Context, leadID string, at time.Time) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.leads.RecordContact(ctx, leadID, at.UTC()); err != nil {
		return fmt.Errorf("failed to record contact for lead %s: %w", leadID, err)
	}

	if _, err := s.Rescore(ctx, leadID); err != nil {
		return err
	}
	return nil
}

// RecordResponse registers a detected reply with its latency and rescores.
// The engagement bump and latency bonus flow through ComputeScore.
func (s *ScoringService) RecordResponse(ctx context.Context, leadID string, at time.Time, latency time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if latency < 0 {
		latency = 0
	}

	if err := s.leads.RecordResponse(ctx, leadID, at.UTC(), latency); err != nil {
		return fmt.Errorf("failed to record response for lead %s: %w", leadID, err)
	}

	if _, err := s.Rescore(ctx, leadID); err != nil {
		return err
	}
	return nil
}
