package domain

import (
	"fmt"
	"strings"
	"time"
)

// SequenceDefinition is an ordered multi-step outreach plan.
type SequenceDefinition struct {
	ID          string
	Name        string
	Description string
	IsActive    bool
	Steps       []SequenceStep
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (d *SequenceDefinition) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: sequence name is required", ErrValidation)
	}
	if len(d.Steps) == 0 {
		return fmt.Errorf("%w: sequence must have at least one step", ErrValidation)
	}
	for i := range d.Steps {
		if err := d.Steps[i].Validate(); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
		if d.Steps[i].StepIndex != i {
			return fmt.Errorf("%w: step index %d out of order at position %d", ErrValidation, d.Steps[i].StepIndex, i)
		}
	}
	return nil
}

// Step returns the step at index, or nil when out of range.
func (d *SequenceDefinition) Step(index int) *SequenceStep {
	if index < 0 || index >= len(d.Steps) {
		return nil
	}
	return &d.Steps[index]
}

// IsLastStep reports whether index is the final step of the definition.
func (d *SequenceDefinition) IsLastStep(index int) bool {
	return index == len(d.Steps)-1
}

// SequenceStep is one send within a sequence. DelayDays counts from
// enrollment for step 0, otherwise from the prior step's completion.
type SequenceStep struct {
	ID         string
	SequenceID string
	StepIndex  int
	Channel    Channel
	TemplateID string
	DelayDays  int
}

func (s *SequenceStep) Validate() error {
	if !s.Channel.IsValid() {
		return fmt.Errorf("%w: invalid channel %q", ErrValidation, s.Channel)
	}
	if strings.TrimSpace(s.TemplateID) == "" {
		return fmt.Errorf("%w: step template is required", ErrValidation)
	}
	if s.DelayDays < 0 {
		return fmt.Errorf("%w: step delay must not be negative", ErrValidation)
	}
	return nil
}

// Delay is the step delay as a duration.
func (s *SequenceStep) Delay() time.Duration {
	return time.Duration(s.DelayDays) * 24 * time.Hour
}

// EnrollmentStatus represents the progress state of an enrollment.
type EnrollmentStatus string

const (
	EnrollmentStatusActive    EnrollmentStatus = "ACTIVE"
	EnrollmentStatusStopped   EnrollmentStatus = "STOPPED"
	EnrollmentStatusCompleted EnrollmentStatus = "COMPLETED"
)

func (s EnrollmentStatus) String() string { return string(s) }

func (s EnrollmentStatus) IsValid() bool {
	switch s {
	case EnrollmentStatusActive, EnrollmentStatusStopped, EnrollmentStatusCompleted:
		return true
	}
	return false
}

// Stop reasons recorded on STOPPED enrollments.
const (
	StopReasonReplied    = "replied"
	StopReasonOptedOut   = "opted-out"
	StopReasonSendFailed = "send-failed"
	StopReasonManual     = "manual"
)

// SequenceEnrollment binds one lead to one sequence definition.
type SequenceEnrollment struct {
	ID               string
	LeadID           string
	SequenceID       string
	CurrentStepIndex int
	Status           EnrollmentStatus
	StopReason       *string
	// SendAttempts counts failed send attempts for the current step; it
	// resets on every successful step advance.
	SendAttempts int
	EnrolledAt   time.Time
	NextDueAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (e *SequenceEnrollment) Validate() error {
	if strings.TrimSpace(e.LeadID) == "" {
		return fmt.Errorf("%w: enrollment lead id is required", ErrValidation)
	}
	if strings.TrimSpace(e.SequenceID) == "" {
		return fmt.Errorf("%w: enrollment sequence id is required", ErrValidation)
	}
	if !e.Status.IsValid() {
		return fmt.Errorf("%w: invalid enrollment status %q", ErrValidation, e.Status)
	}
	if e.CurrentStepIndex < 0 {
		return fmt.Errorf("%w: step index must not be negative", ErrValidation)
	}
	if e.Status == EnrollmentStatusActive && e.NextDueAt == nil {
		return fmt.Errorf("%w: active enrollment requires a due time", ErrValidation)
	}
	if e.Status != EnrollmentStatusActive && e.NextDueAt != nil {
		return fmt.Errorf("%w: %s enrollment must not have a due time", ErrValidation, e.Status)
	}
	return nil
}
