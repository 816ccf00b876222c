package domain

import "time"

// ContactLog is an immutable record of one outreach attempt.
type ContactLog struct {
	ID         string
	LeadID     string
	Channel    Channel
	TemplateID *string
	Variant    string
	Content    string
	// Automated marks sequence- or job-driven sends versus manual ones.
	Automated bool

	Delivered    bool
	DeliveryID   *string
	ErrorMessage *string

	SentAt      time.Time
	RespondedAt *time.Time
}
