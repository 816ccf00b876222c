package service

import (
	"context"
	"testing"
	"time"

	"github.com/leadflowhq/outreach-engine/internal/domain"
	"go.uber.org/zap"
)

func TestComputeScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		lead domain.Lead
		want int
	}{
		{
			name: "baseline lead without public profile",
			lead: domain.Lead{Name: "Acme"},
			want: 65, // base 50 + 15 no-profile bonus
		},
		{
			name: "public profile lowers the score",
			lead: domain.Lead{Name: "Acme", HasPublicProfile: true},
			want: 40,
		},
		{
			name: "rating capped at 20 points",
			lead: domain.Lead{Name: "Acme", Rating: 9.5},
			want: 85, // 50 + 15 + min(38, 20)
		},
		{
			name: "engagement capped at 20 points",
			lead: domain.Lead{Name: "Acme", TimesResponded: 10},
			want: 85,
		},
		{
			name: "fast response bonus",
			lead: domain.Lead{Name: "Acme", TimesResponded: 1, LastResponseLatency: 30 * time.Minute},
			want: 85, // 50 + 15 + 5 + 15
		},
		{
			name: "same day response bonus",
			lead: domain.Lead{Name: "Acme", TimesResponded: 1, LastResponseLatency: 6 * time.Hour},
			want: 80,
		},
		{
			name: "three day response bonus",
			lead: domain.Lead{Name: "Acme", TimesResponded: 1, LastResponseLatency: 50 * time.Hour},
			want: 75,
		},
		{
			name: "stale response earns nothing",
			lead: domain.Lead{Name: "Acme", TimesResponded: 1, LastResponseLatency: 100 * time.Hour},
			want: 70,
		},
		{
			name: "score clamps at 100",
			lead: domain.Lead{Name: "Acme", Rating: 5, TimesResponded: 8, LastResponseLatency: 10 * time.Minute},
			want: 100,
		},
		{
			name: "opt-out penalty",
			lead: domain.Lead{Name: "Acme", OptedOut: true},
			want: 55, // 50 + 15 - 10
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := ComputeScore(&tt.lead); got != tt.want {
				t.Fatalf("ComputeScore() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestComputeScoreIsPure(t *testing.T) {
	t.Parallel()

	lead := domain.Lead{Name: "Acme", Rating: 4.2, TimesResponded: 2, LastResponseLatency: 3 * time.Hour}
	first := ComputeScore(&lead)
	for i := 0; i < 5; i++ {
		if got := ComputeScore(&lead); got != first {
			t.Fatalf("ComputeScore() = %d on rerun, want %d", got, first)
		}
	}
}

func TestScoringServiceRescorePersists(t *testing.T) {
	t.Parallel()

	var gotScore int
	var gotTemperature domain.Temperature

	repo := &fakeLeadRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Lead, error) {
			return &domain.Lead{ID: id, Name: "Acme", Rating: 5}, nil
		},
		updateScoreFn: func(ctx context.Context, id string, score int, temperature domain.Temperature) error {
			gotScore = score
			gotTemperature = temperature
			return nil
		},
	}

	scoring, err := NewScoringService(repo, zap.NewNop())
	if err != nil {
		t.Fatalf("NewScoringService() error = %v", err)
	}

	lead, err := scoring.Rescore(context.Background(), "l1")
	if err != nil {
		t.Fatalf("Rescore() error = %v", err)
	}

	if gotScore != 85 {
		t.Fatalf("persisted score = %d, want 85", gotScore)
	}
	if gotTemperature != domain.TemperatureHot {
		t.Fatalf("persisted temperature = %s, want HOT", gotTemperature)
	}
	if lead.Score != gotScore || lead.Temperature != gotTemperature {
		t.Fatalf("returned lead not updated: score=%d temperature=%s", lead.Score, lead.Temperature)
	}
}

func TestScoringServiceRecordResponseRescores(t *testing.T) {
	t.Parallel()

	var recordedLatency time.Duration
	updated := false

	repo := &fakeLeadRepo{
		recordResponseFn: func(ctx context.Context, id string, at time.Time, latency time.Duration) error {
			recordedLatency = latency
			return nil
		},
		getByIDFn: func(ctx context.Context, id string) (*domain.Lead, error) {
			return &domain.Lead{ID: id, Name: "Acme", TimesResponded: 1, LastResponseLatency: 30 * time.Minute}, nil
		},
		updateScoreFn: func(ctx context.Context, id string, score int, temperature domain.Temperature) error {
			updated = true
			if score != 85 {
				t.Fatalf("score after response = %d, want 85", score)
			}
			return nil
		},
	}

	scoring, err := NewScoringService(repo, zap.NewNop())
	if err != nil {
		t.Fatalf("NewScoringService() error = %v", err)
	}

	if err := scoring.RecordResponse(context.Background(), "l1", time.Now(), 30*time.Minute); err != nil {
		t.Fatalf("RecordResponse() error = %v", err)
	}
	if recordedLatency != 30*time.Minute {
		t.Fatalf("latency = %v, want 30m", recordedLatency)
	}
	if !updated {
		t.Fatal("score should be rescored after response")
	}
}
