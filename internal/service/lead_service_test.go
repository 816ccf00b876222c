package service

import (
	"context"
	"testing"
	"time"

	"github.com/leadflowhq/outreach-engine/internal/domain"
	"go.uber.org/zap"
)

func newTestLeadService(t *testing.T, leads *fakeLeadRepo, enrollments *fakeEnrollmentRepo, contactLogs *fakeContactLogRepo, templates *fakeTemplateRepo) *LeadService {
	t.Helper()

	if leads == nil {
		leads = &fakeLeadRepo{}
	}
	if enrollments == nil {
		enrollments = &fakeEnrollmentRepo{}
	}
	if contactLogs == nil {
		contactLogs = &fakeContactLogRepo{}
	}
	if templates == nil {
		templates = &fakeTemplateRepo{}
	}

	scoring, err := NewScoringService(leads, zap.NewNop())
	if err != nil {
		t.Fatalf("NewScoringService() error = %v", err)
	}
	svc, err := NewLeadService(leads, enrollments, contactLogs, templates, scoring, zap.NewNop())
	if err != nil {
		t.Fatalf("NewLeadService() error = %v", err)
	}
	return svc
}

func TestLeadServiceCreateScoresNewLead(t *testing.T) {
	t.Parallel()

	var persisted *domain.Lead
	leads := &fakeLeadRepo{
		createFn: func(ctx context.Context, l *domain.Lead) error {
			persisted = l
			return nil
		},
	}
	svc := newTestLeadService(t, leads, nil, nil, nil)

	lead, err := svc.Create(context.Background(), &domain.Lead{
		Name:             "  Acme Bakery  ",
		Phone:            "+905551112233",
		Rating:           5,
		HasPublicProfile: true,
		HasConsent:       true,
		// Inbound payloads sometimes carry stale counters; Create resets them.
		Status:         domain.LeadStatusReplied,
		TimesContacted: 9,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if persisted == nil {
		t.Fatal("lead should be persisted")
	}
	if lead.ID == "" {
		t.Fatal("id should be assigned")
	}
	if lead.Name != "Acme Bakery" {
		t.Fatalf("name = %q, want trimmed", lead.Name)
	}
	if lead.Status != domain.LeadStatusNew {
		t.Fatalf("status = %s, want NEW", lead.Status)
	}
	if lead.TimesContacted != 0 {
		t.Fatalf("times contacted = %d, want 0", lead.TimesContacted)
	}

	// base 50 + rating 20 + public profile -10 = 60, WARM.
	if lead.Score != 60 {
		t.Fatalf("score = %d, want 60", lead.Score)
	}
	if lead.Temperature != domain.TemperatureWarm {
		t.Fatalf("temperature = %s, want WARM", lead.Temperature)
	}
}

func TestLeadServiceOptOutStopsEnrollments(t *testing.T) {
	t.Parallel()

	optedOut := false
	var stops []string

	leads := &fakeLeadRepo{
		setOptedOutFn: func(ctx context.Context, id string, v bool) error {
			optedOut = v
			return nil
		},
		getByIDFn: func(ctx context.Context, id string) (*domain.Lead, error) {
			return &domain.Lead{
				ID: id, Name: "Acme", Phone: "+905551112233",
				Status: domain.LeadStatusContacted, HasConsent: true,
				OptedOut: true,
			}, nil
		},
	}
	enrollments := &fakeEnrollmentRepo{
		getActiveByLeadFn: func(ctx context.Context, leadID string) ([]domain.SequenceEnrollment, error) {
			now := time.Now().UTC()
			return []domain.SequenceEnrollment{
				{ID: "e1", LeadID: leadID, SequenceID: "seq1", Status: domain.EnrollmentStatusActive, NextDueAt: &now},
				{ID: "e2", LeadID: leadID, SequenceID: "seq2", Status: domain.EnrollmentStatusActive, NextDueAt: &now},
			}, nil
		},
		stopFn: func(ctx context.Context, id string, reason string) error {
			if reason != domain.StopReasonOptedOut {
				t.Fatalf("stop reason = %q, want %q", reason, domain.StopReasonOptedOut)
			}
			stops = append(stops, id)
			return nil
		},
	}
	svc := newTestLeadService(t, leads, enrollments, nil, nil)

	if err := svc.OptOut(context.Background(), "l1"); err != nil {
		t.Fatalf("OptOut() error = %v", err)
	}
	if !optedOut {
		t.Fatal("opted-out flag should be set")
	}
	if len(stops) != 2 {
		t.Fatalf("stopped %d enrollments, want 2", len(stops))
	}
}

func TestLeadServiceOptOutPenalizesScore(t *testing.T) {
	t.Parallel()

	var gotScore int
	var gotTemperature domain.Temperature

	leads := &fakeLeadRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Lead, error) {
			// Rating 5 and a public profile score 60 while contactable.
			return &domain.Lead{
				ID: id, Name: "Acme", Phone: "+905551112233",
				Status: domain.LeadStatusContacted, HasConsent: true,
				Rating: 5, HasPublicProfile: true,
				OptedOut: true,
			}, nil
		},
		updateScoreFn: func(ctx context.Context, id string, score int, temperature domain.Temperature) error {
			gotScore = score
			gotTemperature = temperature
			return nil
		},
	}
	svc := newTestLeadService(t, leads, &fakeEnrollmentRepo{}, nil, nil)

	if err := svc.OptOut(context.Background(), "l1"); err != nil {
		t.Fatalf("OptOut() error = %v", err)
	}
	if gotScore != 50 {
		t.Fatalf("score = %d, want 50 after opt-out penalty", gotScore)
	}
	if gotTemperature != domain.TemperatureWarm {
		t.Fatalf("temperature = %s, want WARM", gotTemperature)
	}
}

func TestLeadServiceRecordResponseClosesLoopAndStopsSequences(t *testing.T) {
	t.Parallel()

	sentAt := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	respondedAt := sentAt.Add(30 * time.Minute)
	templateID := "t1"

	var markedLogID string
	var creditedTemplate string
	var recordedLatency time.Duration
	var stopReason string

	leads := &fakeLeadRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Lead, error) {
			return &domain.Lead{
				ID: id, Name: "Acme", Phone: "+905551112233",
				Status: domain.LeadStatusReplied, HasConsent: true,
				TimesResponded: 1, LastResponseLatency: 30 * time.Minute,
			}, nil
		},
		recordResponseFn: func(ctx context.Context, id string, at time.Time, latency time.Duration) error {
			recordedLatency = latency
			return nil
		},
	}
	contactLogs := &fakeContactLogRepo{
		getLatestUnansweredFn: func(ctx context.Context, leadID string) (*domain.ContactLog, error) {
			return &domain.ContactLog{
				ID: "log1", LeadID: leadID, Channel: domain.ChannelWhatsApp,
				TemplateID: &templateID, SentAt: sentAt, Delivered: true,
			}, nil
		},
		markRespondedFn: func(ctx context.Context, id string, at time.Time) error {
			markedLogID = id
			return nil
		},
	}
	templates := &fakeTemplateRepo{
		incrementRespondedFn: func(ctx context.Context, id string) error {
			creditedTemplate = id
			return nil
		},
	}
	enrollments := &fakeEnrollmentRepo{
		getActiveByLeadFn: func(ctx context.Context, leadID string) ([]domain.SequenceEnrollment, error) {
			now := time.Now().UTC()
			return []domain.SequenceEnrollment{
				{ID: "e1", LeadID: leadID, SequenceID: "seq1", Status: domain.EnrollmentStatusActive, NextDueAt: &now},
			}, nil
		},
		stopFn: func(ctx context.Context, id string, reason string) error {
			stopReason = reason
			return nil
		},
	}
	svc := newTestLeadService(t, leads, enrollments, contactLogs, templates)

	lead, err := svc.RecordResponse(context.Background(), "l1", respondedAt)
	if err != nil {
		t.Fatalf("RecordResponse() error = %v", err)
	}

	if markedLogID != "log1" {
		t.Fatalf("marked log = %q, want log1", markedLogID)
	}
	if creditedTemplate != "t1" {
		t.Fatalf("credited template = %q, want t1", creditedTemplate)
	}
	if recordedLatency != 30*time.Minute {
		t.Fatalf("latency = %v, want 30m", recordedLatency)
	}
	if stopReason != domain.StopReasonReplied {
		t.Fatalf("stop reason = %q, want %q", stopReason, domain.StopReasonReplied)
	}
	if lead == nil || lead.Status != domain.LeadStatusReplied {
		t.Fatalf("lead = %+v, want refreshed REPLIED lead", lead)
	}
}

func TestLeadServiceRecordResponseWithoutPriorContact(t *testing.T) {
	t.Parallel()

	var recordedLatency time.Duration
	leads := &fakeLeadRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Lead, error) {
			return &domain.Lead{ID: id, Name: "Acme", Phone: "+905551112233", Status: domain.LeadStatusReplied, HasConsent: true}, nil
		},
		recordResponseFn: func(ctx context.Context, id string, at time.Time, latency time.Duration) error {
			recordedLatency = latency
			return nil
		},
	}
	svc := newTestLeadService(t, leads, nil, nil, nil)

	// No unanswered contact log exists; the reply still counts.
	_, err := svc.RecordResponse(context.Background(), "l1", time.Now())
	if err != nil {
		t.Fatalf("RecordResponse() error = %v", err)
	}
	if recordedLatency != 0 {
		t.Fatalf("latency = %v, want 0 without a prior contact", recordedLatency)
	}
}
