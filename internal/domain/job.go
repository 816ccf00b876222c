package domain

import (
	"fmt"
	"strings"
	"time"
)

// JobStatus represents the lifecycle state of a bulk dispatch job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "PENDING"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
	JobStatusCancelled JobStatus = "CANCELLED"
)

func (s JobStatus) String() string { return string(s) }

func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusPending, JobStatusRunning, JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// ItemOutcome classifies the result of one dispatched item.
type ItemOutcome string

const (
	ItemOutcomeSent    ItemOutcome = "SENT"
	ItemOutcomeFailed  ItemOutcome = "FAILED"
	ItemOutcomeSkipped ItemOutcome = "SKIPPED"
)

func (o ItemOutcome) String() string { return string(o) }

func (o ItemOutcome) IsValid() bool {
	switch o {
	case ItemOutcomeSent, ItemOutcomeFailed, ItemOutcomeSkipped:
		return true
	}
	return false
}

// BulkJob tracks one dispatch run.
//
// Invariant: ProcessedItems == SuccessfulItems + FailedItems + SkippedItems
// at every observation point, and all counters are non-decreasing.
type BulkJob struct {
	ID      string
	Channel Channel
	// Exactly one of TemplateID / SequenceID is set: a fixed-template job or
	// a sequence-driven one.
	TemplateID *string
	SequenceID *string
	DryRun     bool

	Status JobStatus

	TotalItems      int
	ProcessedItems  int
	SuccessfulItems int
	FailedItems     int
	SkippedItems    int

	ErrorMessage *string

	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	UpdatedAt   time.Time
}

func (j *BulkJob) Validate() error {
	if !j.Channel.IsValid() {
		return fmt.Errorf("%w: invalid channel %q", ErrValidation, j.Channel)
	}
	if !j.Status.IsValid() {
		return fmt.Errorf("%w: invalid job status %q", ErrValidation, j.Status)
	}
	hasTemplate := j.TemplateID != nil && strings.TrimSpace(*j.TemplateID) != ""
	hasSequence := j.SequenceID != nil && strings.TrimSpace(*j.SequenceID) != ""
	if hasTemplate == hasSequence {
		return fmt.Errorf("%w: job requires exactly one content source", ErrValidation)
	}
	if err := j.CheckCounters(); err != nil {
		return err
	}
	return nil
}

// CheckCounters verifies the progress counter invariant.
func (j *BulkJob) CheckCounters() error {
	if j.ProcessedItems != j.SuccessfulItems+j.FailedItems+j.SkippedItems {
		return fmt.Errorf("%w: processed %d != sent %d + failed %d + skipped %d",
			ErrConflict, j.ProcessedItems, j.SuccessfulItems, j.FailedItems, j.SkippedItems)
	}
	if j.ProcessedItems > j.TotalItems {
		return fmt.Errorf("%w: processed %d exceeds total %d", ErrConflict, j.ProcessedItems, j.TotalItems)
	}
	return nil
}

// BulkJobItem is the recorded outcome of one lead within a job, ordered by
// Position within the selection.
type BulkJobItem struct {
	ID         string
	JobID      string
	LeadID     string
	Position   int
	Outcome    ItemOutcome
	TemplateID *string
	Error      *string
	CreatedAt  time.Time
}
