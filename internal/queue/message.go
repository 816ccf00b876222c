package queue

import (
	"fmt"

	"github.com/leadflowhq/outreach-engine/internal/domain"
)

// JobMessage is the payload published to the bulk job queue. The job record
// itself lives in the database; the message carries the lead selection so a
// redelivered message can resume the same job.
type JobMessage struct {
	JobID   string         `json:"job_id"`
	Channel domain.Channel `json:"channel"`
	LeadIDs []string       `json:"lead_ids"`
}

func (m JobMessage) Validate() error {
	if m.JobID == "" {
		return fmt.Errorf("%w: job_id is required", domain.ErrValidation)
	}
	if !m.Channel.IsValid() {
		return fmt.Errorf("%w: invalid channel %q", domain.ErrValidation, m.Channel)
	}
	if len(m.LeadIDs) == 0 {
		return fmt.Errorf("%w: at least one lead id is required", domain.ErrValidation)
	}
	return nil
}
