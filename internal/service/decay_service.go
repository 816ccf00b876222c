package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/leadflowhq/outreach-engine/internal/domain"
	"github.com/leadflowhq/outreach-engine/internal/observability"
	"github.com/leadflowhq/outreach-engine/internal/repository"
	"go.uber.org/zap"
)

const (
	decaySweepName = "decay"

	defaultDecaySweepInterval = 24 * time.Hour
	defaultStalenessWindow    = 14 * 24 * time.Hour
	defaultDecayDecrement     = 10
	decayCandidateBatch       = 500
)

// SweepLease guards a named sweep so only one engine instance runs it at a
// time. Release is best effort and survives lease expiry.
type SweepLease interface {
	Acquire(ctx context.Context, name string) (release func(context.Context) error, acquired bool, err error)
}

// DecayService cools stale leads down. A lead that has not been contacted
// for a full staleness window loses points, one decrement per elapsed
// window, so score and temperature drift towards COLD without manual work.
type DecayService struct {
	leads     repository.LeadRepository
	lease     SweepLease
	logger    *zap.Logger
	metrics   *observability.Metrics
	window    time.Duration
	decrement int
	interval  time.Duration
	now       func() time.Time
}

func NewDecayService(
	leads repository.LeadRepository,
	lease SweepLease,
	window time.Duration,
	decrement int,
	interval time.Duration,
	logger *zap.Logger,
) (*DecayService, error) {
	if leads == nil {
		return nil, fmt.Errorf("lead repository is required")
	}
	if window <= 0 {
		window = defaultStalenessWindow
	}
	if decrement <= 0 {
		decrement = defaultDecayDecrement
	}
	if interval <= 0 {
		interval = defaultDecaySweepInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DecayService{
		leads:     leads,
		lease:     lease,
		logger:    logger,
		window:    window,
		decrement: decrement,
		interval:  interval,
		now:       time.Now,
	}, nil
}

func (s *DecayService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Start runs the decay sweep on a fixed interval until context cancellation.
func (s *DecayService) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Run once on startup so a long sweep interval does not delay overdue decay.
	if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("decay sweep failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Error("decay sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep decays every stale lead once and returns how many leads changed.
// Reruns within the same staleness window are no-ops: the per-lead window
// watermark makes the decrement idempotent.
func (s *DecayService) Sweep(ctx context.Context) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if s.lease != nil {
		release, acquired, err := s.lease.Acquire(ctx, decaySweepName)
		if err != nil {
			return 0, fmt.Errorf("failed to acquire decay lease: %w", err)
		}
		if !acquired {
			s.metrics.IncSweepRun(decaySweepName, "skipped")
			return 0, nil
		}
		defer func() {
			if err := release(context.Background()); err != nil {
				s.logger.Warn("failed to release decay lease", zap.Error(err))
			}
		}()
	}

	start := s.now()
	decayed, err := s.sweepOnce(ctx)
	s.metrics.ObserveSweepDuration(decaySweepName, s.now().Sub(start))
	if err != nil {
		s.metrics.IncSweepRun(decaySweepName, "error")
		return decayed, err
	}

	s.metrics.IncSweepRun(decaySweepName, "ok")
	if decayed > 0 {
		s.logger.Info("decay sweep finished",
			zap.Int("decayed", decayed),
			zap.Duration("window", s.window),
		)
	}
	return decayed, nil
}

func (s *DecayService) sweepOnce(ctx context.Context) (int, error) {
	now := s.now().UTC()
	cutoff := now.Add(-s.window)

	// Page through the whole stale population by id. Decaying a lead does
	// not move it past the cutoff, so a single fixed-size fetch would keep
	// seeing the same leads and never reach the rest.
	decayed := 0
	afterID := ""
	for {
		candidates, err := s.leads.GetDecayCandidates(ctx, cutoff, afterID, decayCandidateBatch)
		if err != nil {
			return decayed, fmt.Errorf("failed to fetch decay candidates: %w", err)
		}
		if len(candidates) == 0 {
			return decayed, nil
		}

		for i := range candidates {
			if err := ctx.Err(); err != nil {
				return decayed, err
			}

			lead := &candidates[i]
			afterID = lead.ID

			windows := s.elapsedWindows(lead, now)
			if windows <= lead.DecayWindowsApplied {
				continue
			}

			steps := windows - lead.DecayWindowsApplied
			score := domain.ClampScore(lead.Score - steps*s.decrement)
			temperature := domain.ClassifyScore(score)

			err := s.leads.ApplyDecay(ctx, lead.ID, score, temperature, windows)
			if errors.Is(err, domain.ErrConflict) {
				// Another sweep already covered these windows.
				continue
			}
			if err != nil {
				return decayed, fmt.Errorf("failed to decay lead %s: %w", lead.ID, err)
			}

			decayed++
		}

		if len(candidates) < decayCandidateBatch {
			return decayed, nil
		}
	}
}

// elapsedWindows counts full staleness windows since the last contact, or
// since creation for leads never contacted.
func (s *DecayService) elapsedWindows(lead *domain.Lead, now time.Time) int {
	anchor := lead.CreatedAt
	if lead.LastContactedAt != nil {
		anchor = *lead.LastContactedAt
	}

	elapsed := now.Sub(anchor)
	if elapsed < s.window {
		return 0
	}
	return int(elapsed / s.window)
}
