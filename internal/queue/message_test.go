package queue

import (
	"errors"
	"testing"

	"github.com/leadflowhq/outreach-engine/internal/domain"
)

func TestJobMessageValidate(t *testing.T) {
	t.Parallel()

	valid := JobMessage{JobID: "j1", Channel: domain.ChannelWhatsApp, LeadIDs: []string{"l1"}}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	cases := []struct {
		name string
		msg  JobMessage
	}{
		{"missing job id", JobMessage{Channel: domain.ChannelWhatsApp, LeadIDs: []string{"l1"}}},
		{"invalid channel", JobMessage{JobID: "j1", Channel: "FAX", LeadIDs: []string{"l1"}}},
		{"no leads", JobMessage{JobID: "j1", Channel: domain.ChannelWhatsApp}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := tc.msg.Validate()
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("error = %v, want ErrValidation", err)
			}
		})
	}
}
