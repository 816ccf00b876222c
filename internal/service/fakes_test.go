package service

import (
	"context"
	"time"

	"github.com/leadflowhq/outreach-engine/internal/domain"
	"github.com/leadflowhq/outreach-engine/internal/queue"
	"github.com/leadflowhq/outreach-engine/internal/repository"
	"github.com/leadflowhq/outreach-engine/internal/sender"
)

type fakeLeadRepo struct {
	createFn             func(ctx context.Context, l *domain.Lead) error
	getByIDFn            func(ctx context.Context, id string) (*domain.Lead, error)
	getByIDsByScoreFn    func(ctx context.Context, ids []string) ([]domain.Lead, error)
	updateScoreFn        func(ctx context.Context, id string, score int, temperature domain.Temperature) error
	recordContactFn      func(ctx context.Context, id string, at time.Time) error
	recordResponseFn     func(ctx context.Context, id string, at time.Time, latency time.Duration) error
	setOptedOutFn        func(ctx context.Context, id string, optedOut bool) error
	getDecayCandidatesFn func(ctx context.Context, cutoff time.Time, afterID string, limit int) ([]domain.Lead, error)
	applyDecayFn         func(ctx context.Context, id string, score int, temperature domain.Temperature, windowsApplied int) error
}

var _ repository.LeadRepository = (*fakeLeadRepo)(nil)

func (f *fakeLeadRepo) Create(ctx context.Context, l *domain.Lead) error {
	if f.createFn != nil {
		return f.createFn(ctx, l)
	}
	return nil
}

func (f *fakeLeadRepo) GetByID(ctx context.Context, id string) (*domain.Lead, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeLeadRepo) GetByIDsByScore(ctx context.Context, ids []string) ([]domain.Lead, error) {
	if f.getByIDsByScoreFn != nil {
		return f.getByIDsByScoreFn(ctx, ids)
	}
	return nil, nil
}

func (f *fakeLeadRepo) UpdateScore(ctx context.Context, id string, score int, temperature domain.Temperature) error {
	if f.updateScoreFn != nil {
		return f.updateScoreFn(ctx, id, score, temperature)
	}
	return nil
}

func (f *fakeLeadRepo) RecordContact(ctx context.Context, id string, at time.Time) error {
	if f.recordContactFn != nil {
		return f.recordContactFn(ctx, id, at)
	}
	return nil
}

func (f *fakeLeadRepo) RecordResponse(ctx context.Context, id string, at time.Time, latency time.Duration) error {
	if f.recordResponseFn != nil {
		return f.recordResponseFn(ctx, id, at, latency)
	}
	return nil
}

func (f *fakeLeadRepo) SetOptedOut(ctx context.Context, id string, optedOut bool) error {
	if f.setOptedOutFn != nil {
		return f.setOptedOutFn(ctx, id, optedOut)
	}
	return nil
}

func (f *fakeLeadRepo) GetDecayCandidates(ctx context.Context, cutoff time.Time, afterID string, limit int) ([]domain.Lead, error) {
	if f.getDecayCandidatesFn != nil {
		return f.getDecayCandidatesFn(ctx, cutoff, afterID, limit)
	}
	return nil, nil
}

func (f *fakeLeadRepo) ApplyDecay(ctx context.Context, id string, score int, temperature domain.Temperature, windowsApplied int) error {
	if f.applyDecayFn != nil {
		return f.applyDecayFn(ctx, id, score, temperature, windowsApplied)
	}
	return nil
}

type fakeEnrollmentRepo struct {
	createFn          func(ctx context.Context, e *domain.SequenceEnrollment) error
	getByIDFn         func(ctx context.Context, id string) (*domain.SequenceEnrollment, error)
	getActiveByLeadFn func(ctx context.Context, leadID string) ([]domain.SequenceEnrollment, error)
	getDueFn          func(ctx context.Context, now time.Time, limit int) ([]domain.SequenceEnrollment, error)
	claimDueFn        func(ctx context.Context, id string, now time.Time) (bool, error)
	releaseClaimFn    func(ctx context.Context, id string) error
	advanceFn         func(ctx context.Context, id string, nextStepIndex int, nextDueAt time.Time) error
	completeFn        func(ctx context.Context, id string) error
	stopFn            func(ctx context.Context, id string, reason string) error
}

var _ repository.EnrollmentRepository = (*fakeEnrollmentRepo)(nil)

func (f *fakeEnrollmentRepo) Create(ctx context.Context, e *domain.SequenceEnrollment) error {
	if f.createFn != nil {
		return f.createFn(ctx, e)
	}
	return nil
}

func (f *fakeEnrollmentRepo) GetByID(ctx context.Context, id string) (*domain.SequenceEnrollment, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeEnrollmentRepo) GetActiveByLead(ctx context.Context, leadID string) ([]domain.SequenceEnrollment, error) {
	if f.getActiveByLeadFn != nil {
		return f.getActiveByLeadFn(ctx, leadID)
	}
	return nil, nil
}

func (f *fakeEnrollmentRepo) GetDue(ctx context.Context, now time.Time, limit int) ([]domain.SequenceEnrollment, error) {
	if f.getDueFn != nil {
		return f.getDueFn(ctx, now, limit)
	}
	return nil, nil
}

func (f *fakeEnrollmentRepo) ClaimDue(ctx context.Context, id string, now time.Time) (bool, error) {
	if f.claimDueFn != nil {
		return f.claimDueFn(ctx, id, now)
	}
	return true, nil
}

func (f *fakeEnrollmentRepo) ReleaseClaim(ctx context.Context, id string) error {
	if f.releaseClaimFn != nil {
		return f.releaseClaimFn(ctx, id)
	}
	return nil
}

func (f *fakeEnrollmentRepo) Advance(ctx context.Context, id string, nextStepIndex int, nextDueAt time.Time) error {
	if f.advanceFn != nil {
		return f.advanceFn(ctx, id, nextStepIndex, nextDueAt)
	}
	return nil
}

func (f *fakeEnrollmentRepo) Complete(ctx context.Context, id string) error {
	if f.completeFn != nil {
		return f.completeFn(ctx, id)
	}
	return nil
}

func (f *fakeEnrollmentRepo) Stop(ctx context.Context, id string, reason string) error {
	if f.stopFn != nil {
		return f.stopFn(ctx, id, reason)
	}
	return nil
}

type fakeSequenceRepo struct {
	createFn  func(ctx context.Context, d *domain.SequenceDefinition) error
	getByIDFn func(ctx context.Context, id string) (*domain.SequenceDefinition, error)
}

var _ repository.SequenceRepository = (*fakeSequenceRepo)(nil)

func (f *fakeSequenceRepo) Create(ctx context.Context, d *domain.SequenceDefinition) error {
	if f.createFn != nil {
		return f.createFn(ctx, d)
	}
	return nil
}

func (f *fakeSequenceRepo) GetByID(ctx context.Context, id string) (*domain.SequenceDefinition, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

type fakeTemplateRepo struct {
	createFn             func(ctx context.Context, t *domain.MessageTemplate) error
	getByIDFn            func(ctx context.Context, id string) (*domain.MessageTemplate, error)
	getActiveVariantsFn  func(ctx context.Context, baseName string, channel domain.Channel) ([]domain.MessageTemplate, error)
	incrementSentFn      func(ctx context.Context, id string) error
	incrementRespondedFn func(ctx context.Context, id string) error
}

var _ repository.TemplateRepository = (*fakeTemplateRepo)(nil)

func (f *fakeTemplateRepo) Create(ctx context.Context, t *domain.MessageTemplate) error {
	if f.createFn != nil {
		return f.createFn(ctx, t)
	}
	return nil
}

func (f *fakeTemplateRepo) GetByID(ctx context.Context, id string) (*domain.MessageTemplate, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeTemplateRepo) GetActiveVariants(ctx context.Context, baseName string, channel domain.Channel) ([]domain.MessageTemplate, error) {
	if f.getActiveVariantsFn != nil {
		return f.getActiveVariantsFn(ctx, baseName, channel)
	}
	return nil, nil
}

func (f *fakeTemplateRepo) IncrementSent(ctx context.Context, id string) error {
	if f.incrementSentFn != nil {
		return f.incrementSentFn(ctx, id)
	}
	return nil
}

func (f *fakeTemplateRepo) IncrementResponded(ctx context.Context, id string) error {
	if f.incrementRespondedFn != nil {
		return f.incrementRespondedFn(ctx, id)
	}
	return nil
}

type fakeContactLogRepo struct {
	createFn             func(ctx context.Context, l *domain.ContactLog) error
	listByLeadFn         func(ctx context.Context, leadID string, limit int) ([]domain.ContactLog, error)
	getLatestUnansweredFn func(ctx context.Context, leadID string) (*domain.ContactLog, error)
	markRespondedFn      func(ctx context.Context, id string, at time.Time) error
}

var _ repository.ContactLogRepository = (*fakeContactLogRepo)(nil)

func (f *fakeContactLogRepo) Create(ctx context.Context, l *domain.ContactLog) error {
	if f.createFn != nil {
		return f.createFn(ctx, l)
	}
	return nil
}

func (f *fakeContactLogRepo) ListByLead(ctx context.Context, leadID string, limit int) ([]domain.ContactLog, error) {
	if f.listByLeadFn != nil {
		return f.listByLeadFn(ctx, leadID, limit)
	}
	return nil, nil
}

func (f *fakeContactLogRepo) GetLatestUnanswered(ctx context.Context, leadID string) (*domain.ContactLog, error) {
	if f.getLatestUnansweredFn != nil {
		return f.getLatestUnansweredFn(ctx, leadID)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeContactLogRepo) MarkResponded(ctx context.Context, id string, at time.Time) error {
	if f.markRespondedFn != nil {
		return f.markRespondedFn(ctx, id, at)
	}
	return nil
}

type fakeJobRepo struct {
	createFn        func(ctx context.Context, j *domain.BulkJob) error
	getByIDFn       func(ctx context.Context, id string) (*domain.BulkJob, error)
	getStatusFn     func(ctx context.Context, id string) (domain.JobStatus, error)
	markRunningFn   func(ctx context.Context, id string, at time.Time) (bool, error)
	cancelFn        func(ctx context.Context, id string) error
	appendOutcomeFn func(ctx context.Context, item *domain.BulkJobItem) error
	finishFn        func(ctx context.Context, id string, status domain.JobStatus, at time.Time, errorMessage *string) error
	listItemsFn     func(ctx context.Context, jobID string) ([]domain.BulkJobItem, error)
}

var _ repository.BulkJobRepository = (*fakeJobRepo)(nil)

func (f *fakeJobRepo) Create(ctx context.Context, j *domain.BulkJob) error {
	if f.createFn != nil {
		return f.createFn(ctx, j)
	}
	return nil
}

func (f *fakeJobRepo) GetByID(ctx context.Context, id string) (*domain.BulkJob, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeJobRepo) GetStatus(ctx context.Context, id string) (domain.JobStatus, error) {
	if f.getStatusFn != nil {
		return f.getStatusFn(ctx, id)
	}
	return domain.JobStatusRunning, nil
}

func (f *fakeJobRepo) MarkRunning(ctx context.Context, id string, at time.Time) (bool, error) {
	if f.markRunningFn != nil {
		return f.markRunningFn(ctx, id, at)
	}
	return true, nil
}

func (f *fakeJobRepo) Cancel(ctx context.Context, id string) error {
	if f.cancelFn != nil {
		return f.cancelFn(ctx, id)
	}
	return nil
}

func (f *fakeJobRepo) AppendOutcome(ctx context.Context, item *domain.BulkJobItem) error {
	if f.appendOutcomeFn != nil {
		return f.appendOutcomeFn(ctx, item)
	}
	return nil
}

func (f *fakeJobRepo) Finish(ctx context.Context, id string, status domain.JobStatus, at time.Time, errorMessage *string) error {
	if f.finishFn != nil {
		return f.finishFn(ctx, id, status, at, errorMessage)
	}
	return nil
}

func (f *fakeJobRepo) ListItems(ctx context.Context, jobID string) ([]domain.BulkJobItem, error) {
	if f.listItemsFn != nil {
		return f.listItemsFn(ctx, jobID)
	}
	return nil, nil
}

type fakeSender struct {
	sendFn func(ctx context.Context, msg sender.Message) (*sender.Result, error)
}

var _ sender.Sender = (*fakeSender)(nil)

func (f *fakeSender) Send(ctx context.Context, msg sender.Message) (*sender.Result, error) {
	if f.sendFn != nil {
		return f.sendFn(ctx, msg)
	}
	return &sender.Result{DeliveryID: "delivery-1"}, nil
}

type fakeRateLimiter struct {
	allowFn func(ctx context.Context, channel string) (bool, error)
	waitFn  func(ctx context.Context, channel string) error
}

func (f *fakeRateLimiter) Allow(ctx context.Context, channel string) (bool, error) {
	if f.allowFn != nil {
		return f.allowFn(ctx, channel)
	}
	return true, nil
}

func (f *fakeRateLimiter) Wait(ctx context.Context, channel string) error {
	if f.waitFn != nil {
		return f.waitFn(ctx, channel)
	}
	return nil
}

type fakePublisher struct {
	publishFn func(ctx context.Context, msg queue.JobMessage) error
}

var _ queue.Publisher = (*fakePublisher)(nil)

func (f *fakePublisher) Publish(ctx context.Context, msg queue.JobMessage) error {
	if f.publishFn != nil {
		return f.publishFn(ctx, msg)
	}
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type fakeConsumer struct {
	consumeFn func(ctx context.Context, handler queue.MessageHandler) error
}

var _ queue.Consumer = (*fakeConsumer)(nil)

func (f *fakeConsumer) Consume(ctx context.Context, handler queue.MessageHandler) error {
	if f.consumeFn != nil {
		return f.consumeFn(ctx, handler)
	}
	<-ctx.Done()
	return nil
}

func (f *fakeConsumer) Close() error { return nil }

type fakeLease struct {
	acquireFn func(ctx context.Context, name string) (func(context.Context) error, bool, error)
}

var _ SweepLease = (*fakeLease)(nil)

func (f *fakeLease) Acquire(ctx context.Context, name string) (func(context.Context) error, bool, error) {
	if f.acquireFn != nil {
		return f.acquireFn(ctx, name)
	}
	return func(context.Context) error { return nil }, true, nil
}
