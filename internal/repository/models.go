package repository

import (
	"time"

	"github.com/leadflowhq/outreach-engine/internal/domain"
)

// LeadModel is the persistence model for the leads table.
type LeadModel struct {
	ID    string `gorm:"type:uuid;primaryKey"`
	Name  string `gorm:"type:varchar(255);not null"`
	Phone string `gorm:"type:varchar(50)"`
	Email string `gorm:"type:varchar(255)"`
	City  string `gorm:"type:varchar(100)"`

	Rating           float64 `gorm:"not null;default:0"`
	HasPublicProfile bool    `gorm:"not null;default:false"`

	Score       int                `gorm:"not null;default:0"`
	Temperature domain.Temperature `gorm:"type:varchar(10);not null"`
	Status      domain.LeadStatus  `gorm:"type:varchar(20);not null"`

	OptedOut   bool `gorm:"not null;default:false"`
	HasConsent bool `gorm:"not null;default:false"`

	TimesContacted        int   `gorm:"not null;default:0"`
	TimesResponded        int   `gorm:"not null;default:0"`
	LastResponseLatencyNS int64 `gorm:"not null;default:0"`
	DecayWindowsApplied   int   `gorm:"not null;default:0"`

	LastContactedAt *time.Time
	LastResponseAt  *time.Time
	NextFollowupAt  *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (LeadModel) TableName() string { return "leads" }

// SequenceModel is the persistence model for sequence definitions.
type SequenceModel struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	Name        string `gorm:"type:varchar(100);not null"`
	Description string `gorm:"type:text"`
	IsActive    bool   `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Steps []SequenceStepModel `gorm:"foreignKey:SequenceID"`
}

func (SequenceModel) TableName() string { return "sequences" }

// SequenceStepModel is the persistence model for sequence steps.
type SequenceStepModel struct {
	ID         string         `gorm:"type:uuid;primaryKey"`
	SequenceID string         `gorm:"type:uuid;not null;index"`
	StepIndex  int            `gorm:"not null"`
	Channel    domain.Channel `gorm:"type:varchar(10);not null"`
	TemplateID string         `gorm:"type:uuid;not null"`
	DelayDays  int            `gorm:"not null;default:0"`
}

func (SequenceStepModel) TableName() string { return "sequence_steps" }

// EnrollmentModel is the persistence model for sequence enrollments.
type EnrollmentModel struct {
	ID               string                  `gorm:"type:uuid;primaryKey"`
	LeadID           string                  `gorm:"type:uuid;not null;index"`
	SequenceID       string                  `gorm:"type:uuid;not null"`
	CurrentStepIndex int                     `gorm:"not null;default:0"`
	Status           domain.EnrollmentStatus `gorm:"type:varchar(20);not null"`
	StopReason       *string                 `gorm:"type:varchar(50)"`
	SendAttempts     int                     `gorm:"not null;default:0"`
	EnrolledAt       time.Time               `gorm:"not null"`
	NextDueAt        *time.Time
	// ClaimedAt marks the in-flight due occurrence so concurrent sweeps
	// never send the same step twice.
	ClaimedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (EnrollmentModel) TableName() string { return "sequence_enrollments" }

// ContactLogModel is the persistence model for contact logs.
type ContactLogModel struct {
	ID           string         `gorm:"type:uuid;primaryKey"`
	LeadID       string         `gorm:"type:uuid;not null;index"`
	Channel      domain.Channel `gorm:"type:varchar(10);not null"`
	TemplateID   *string        `gorm:"type:uuid"`
	Variant      string         `gorm:"type:varchar(10)"`
	Content      string         `gorm:"type:text"`
	Automated    bool           `gorm:"not null;default:false"`
	Delivered    bool           `gorm:"not null;default:false"`
	DeliveryID   *string        `gorm:"type:varchar(255)"`
	ErrorMessage *string        `gorm:"type:text"`
	SentAt       time.Time      `gorm:"not null"`
	RespondedAt  *time.Time
}

func (ContactLogModel) TableName() string { return "contact_logs" }

// TemplateModel is the persistence model for message templates.
type TemplateModel struct {
	ID             string         `gorm:"type:uuid;primaryKey"`
	Name           string         `gorm:"type:varchar(100);not null"`
	Channel        domain.Channel `gorm:"type:varchar(10);not null"`
	Variant        string         `gorm:"type:varchar(10);not null;default:'A'"`
	Subject        string         `gorm:"type:varchar(200)"`
	Content        string         `gorm:"type:text;not null"`
	IsActive       bool           `gorm:"not null;default:true"`
	TimesSent      int            `gorm:"not null;default:0"`
	TimesResponded int            `gorm:"not null;default:0"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (TemplateModel) TableName() string { return "message_templates" }

// BulkJobModel is the persistence model for bulk dispatch jobs.
type BulkJobModel struct {
	ID         string           `gorm:"type:uuid;primaryKey"`
	Channel    domain.Channel   `gorm:"type:varchar(10);not null"`
	TemplateID *string          `gorm:"type:uuid"`
	SequenceID *string          `gorm:"type:uuid"`
	DryRun     bool             `gorm:"not null;default:false"`
	Status     domain.JobStatus `gorm:"type:varchar(20);not null"`

	TotalItems      int `gorm:"not null;default:0"`
	ProcessedItems  int `gorm:"not null;default:0"`
	SuccessfulItems int `gorm:"not null;default:0"`
	FailedItems     int `gorm:"not null;default:0"`
	SkippedItems    int `gorm:"not null;default:0"`

	ErrorMessage *string `gorm:"type:text"`

	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	UpdatedAt   time.Time
}

func (BulkJobModel) TableName() string { return "bulk_jobs" }

// BulkJobItemModel is the persistence model for per-item job outcomes.
type BulkJobItemModel struct {
	ID         string             `gorm:"type:uuid;primaryKey"`
	JobID      string             `gorm:"type:uuid;not null;index"`
	LeadID     string             `gorm:"type:uuid;not null"`
	Position   int                `gorm:"not null"`
	Outcome    domain.ItemOutcome `gorm:"type:varchar(10);not null"`
	TemplateID *string            `gorm:"type:uuid"`
	Error      *string            `gorm:"type:text"`
	CreatedAt  time.Time
}

func (BulkJobItemModel) TableName() string { return "bulk_job_items" }

func leadModelFromDomain(l *domain.Lead) *LeadModel {
	if l == nil {
		return nil
	}

	return &LeadModel{
		ID:                    l.ID,
		Name:                  l.Name,
		Phone:                 l.Phone,
		Email:                 l.Email,
		City:                  l.City,
		Rating:                l.Rating,
		HasPublicProfile:      l.HasPublicProfile,
		Score:                 l.Score,
		Temperature:           l.Temperature,
		Status:                l.Status,
		OptedOut:              l.OptedOut,
		HasConsent:            l.HasConsent,
		TimesContacted:        l.TimesContacted,
		TimesResponded:        l.TimesResponded,
		LastResponseLatencyNS: int64(l.LastResponseLatency),
		DecayWindowsApplied:   l.DecayWindowsApplied,
		LastContactedAt:       l.LastContactedAt,
		LastResponseAt:        l.LastResponseAt,
		NextFollowupAt:        l.NextFollowupAt,
		CreatedAt:             l.CreatedAt,
		UpdatedAt:             l.UpdatedAt,
	}
}

func leadModelToDomain(m *LeadModel) *domain.Lead {
	if m == nil {
		return nil
	}

	return &domain.Lead{
		ID:                  m.ID,
		Name:                m.Name,
		Phone:               m.Phone,
		Email:               m.Email,
		City:                m.City,
		Rating:              m.Rating,
		HasPublicProfile:    m.HasPublicProfile,
		Score:               m.Score,
		Temperature:         m.Temperature,
		Status:              m.Status,
		OptedOut:            m.OptedOut,
		HasConsent:          m.HasConsent,
		TimesContacted:      m.TimesContacted,
		TimesResponded:      m.TimesResponded,
		LastResponseLatency: time.Duration(m.LastResponseLatencyNS),
		DecayWindowsApplied: m.DecayWindowsApplied,
		LastContactedAt:     m.LastContactedAt,
		LastResponseAt:      m.LastResponseAt,
		NextFollowupAt:      m.NextFollowupAt,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

func sequenceModelFromDomain(d *domain.SequenceDefinition) *SequenceModel {
	if d == nil {
		return nil
	}

	steps := make([]SequenceStepModel, 0, len(d.Steps))
	for i := range d.Steps {
		steps = append(steps, *sequenceStepModelFromDomain(&d.Steps[i]))
	}

	return &SequenceModel{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		IsActive:    d.IsActive,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
		Steps:       steps,
	}
}

func sequenceModelToDomain(m *SequenceModel) *domain.SequenceDefinition {
	if m == nil {
		return nil
	}

	steps := make([]domain.SequenceStep, 0, len(m.Steps))
	for i := range m.Steps {
		steps = append(steps, *sequenceStepModelToDomain(&m.Steps[i]))
	}

	return &domain.SequenceDefinition{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		IsActive:    m.IsActive,
		Steps:       steps,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func sequenceStepModelFromDomain(s *domain.SequenceStep) *SequenceStepModel {
	if s == nil {
		return nil
	}

	return &SequenceStepModel{
		ID:         s.ID,
		SequenceID: s.SequenceID,
		StepIndex:  s.StepIndex,
		Channel:    s.Channel,
		TemplateID: s.TemplateID,
		DelayDays:  s.DelayDays,
	}
}

func sequenceStepModelToDomain(m *SequenceStepModel) *domain.SequenceStep {
	if m == nil {
		return nil
	}

	return &domain.SequenceStep{
		ID:         m.ID,
		SequenceID: m.SequenceID,
		StepIndex:  m.StepIndex,
		Channel:    m.Channel,
		TemplateID: m.TemplateID,
		DelayDays:  m.DelayDays,
	}
}

func enrollmentModelFromDomain(e *domain.SequenceEnrollment) *EnrollmentModel {
	if e == nil {
		return nil
	}

	return &EnrollmentModel{
		ID:               e.ID,
		LeadID:           e.LeadID,
		SequenceID:       e.SequenceID,
		CurrentStepIndex: e.CurrentStepIndex,
		Status:           e.Status,
		StopReason:       e.StopReason,
		SendAttempts:     e.SendAttempts,
		EnrolledAt:       e.EnrolledAt,
		NextDueAt:        e.NextDueAt,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

func enrollmentModelToDomain(m *EnrollmentModel) *domain.SequenceEnrollment {
	if m == nil {
		return nil
	}

	return &domain.SequenceEnrollment{
		ID:               m.ID,
		LeadID:           m.LeadID,
		SequenceID:       m.SequenceID,
		CurrentStepIndex: m.CurrentStepIndex,
		Status:           m.Status,
		StopReason:       m.StopReason,
		SendAttempts:     m.SendAttempts,
		EnrolledAt:       m.EnrolledAt,
		NextDueAt:        m.NextDueAt,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func contactLogModelFromDomain(l *domain.ContactLog) *ContactLogModel {
	if l == nil {
		return nil
	}

	return &ContactLogModel{
		ID:           l.ID,
		LeadID:       l.LeadID,
		Channel:      l.Channel,
		TemplateID:   l.TemplateID,
		Variant:      l.Variant,
		Content:      l.Content,
		Automated:    l.Automated,
		Delivered:    l.Delivered,
		DeliveryID:   l.DeliveryID,
		ErrorMessage: l.ErrorMessage,
		SentAt:       l.SentAt,
		RespondedAt:  l.RespondedAt,
	}
}

func contactLogModelToDomain(m *ContactLogModel) *domain.ContactLog {
	if m == nil {
		return nil
	}

	return &domain.ContactLog{
		ID:           m.ID,
		LeadID:       m.LeadID,
		Channel:      m.Channel,
		TemplateID:   m.TemplateID,
		Variant:      m.Variant,
		Content:      m.Content,
		Automated:    m.Automated,
		Delivered:    m.Delivered,
		DeliveryID:   m.DeliveryID,
		ErrorMessage: m.ErrorMessage,
		SentAt:       m.SentAt,
		RespondedAt:  m.RespondedAt,
	}
}

func templateModelFromDomain(t *domain.MessageTemplate) *TemplateModel {
	if t == nil {
		return nil
	}

	return &TemplateModel{
		ID:             t.ID,
		Name:           t.Name,
		Channel:        t.Channel,
		Variant:        t.Variant,
		Subject:        t.Subject,
		Content:        t.Content,
		IsActive:       t.IsActive,
		TimesSent:      t.TimesSent,
		TimesResponded: t.TimesResponded,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

func templateModelToDomain(m *TemplateModel) *domain.MessageTemplate {
	if m == nil {
		return nil
	}

	return &domain.MessageTemplate{
		ID:             m.ID,
		Name:           m.Name,
		Channel:        m.Channel,
		Variant:        m.Variant,
		Subject:        m.Subject,
		Content:        m.Content,
		IsActive:       m.IsActive,
		TimesSent:      m.TimesSent,
		TimesResponded: m.TimesResponded,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func bulkJobModelFromDomain(j *domain.BulkJob) *BulkJobModel {
	if j == nil {
		return nil
	}

	return &BulkJobModel{
		ID:              j.ID,
		Channel:         j.Channel,
		TemplateID:      j.TemplateID,
		SequenceID:      j.SequenceID,
		DryRun:          j.DryRun,
		Status:          j.Status,
		TotalItems:      j.TotalItems,
		ProcessedItems:  j.ProcessedItems,
		SuccessfulItems: j.SuccessfulItems,
		FailedItems:     j.FailedItems,
		SkippedItems:    j.SkippedItems,
		ErrorMessage:    j.ErrorMessage,
		CreatedAt:       j.CreatedAt,
		StartedAt:       j.StartedAt,
		CompletedAt:     j.CompletedAt,
		UpdatedAt:       j.UpdatedAt,
	}
}

func bulkJobModelToDomain(m *BulkJobModel) *domain.BulkJob {
	if m == nil {
		return nil
	}

	return &domain.BulkJob{
		ID:              m.ID,
		Channel:         m.Channel,
		TemplateID:      m.TemplateID,
		SequenceID:      m.SequenceID,
		DryRun:          m.DryRun,
		Status:          m.Status,
		TotalItems:      m.TotalItems,
		ProcessedItems:  m.ProcessedItems,
		SuccessfulItems: m.SuccessfulItems,
		FailedItems:     m.FailedItems,
		SkippedItems:    m.SkippedItems,
		ErrorMessage:    m.ErrorMessage,
		CreatedAt:       m.CreatedAt,
		StartedAt:       m.StartedAt,
		CompletedAt:     m.CompletedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func bulkJobItemModelFromDomain(i *domain.BulkJobItem) *BulkJobItemModel {
	if i == nil {
		return nil
	}

	return &BulkJobItemModel{
		ID:         i.ID,
		JobID:      i.JobID,
		LeadID:     i.LeadID,
		Position:   i.Position,
		Outcome:    i.Outcome,
		TemplateID: i.TemplateID,
		Error:      i.Error,
		CreatedAt:  i.CreatedAt,
	}
}

func bulkJobItemModelToDomain(m *BulkJobItemModel) *domain.BulkJobItem {
	if m == nil {
		return nil
	}

	return &domain.BulkJobItem{
		ID:         m.ID,
		JobID:      m.JobID,
		LeadID:     m.LeadID,
		Position:   m.Position,
		Outcome:    m.Outcome,
		TemplateID: m.TemplateID,
		Error:      m.Error,
		CreatedAt:  m.CreatedAt,
	}
}
