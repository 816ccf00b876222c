package sender

import (
	"context"
	"fmt"

	"github.com/leadflowhq/outreach-engine/internal/domain"
)

var _ Sender = (*Router)(nil)

// Router picks the channel-specific sender for each message.
type Router struct {
	senders map[domain.Channel]Sender
}

func NewRouter(senders map[domain.Channel]Sender) (*Router, error) {
	if len(senders) == 0 {
		return nil, fmt.Errorf("at least one channel sender is required")
	}
	for channel := range senders {
		if !channel.IsValid() {
			return nil, fmt.Errorf("invalid channel %q", channel)
		}
	}
	return &Router{senders: senders}, nil
}

func (r *Router) Send(ctx context.Context, msg Message) (*Result, error) {
	if r == nil || len(r.senders) == 0 {
		return nil, fmt.Errorf("sender router is not initialized")
	}

	s, ok := r.senders[msg.Channel]
	if !ok {
		return nil, &SendError{
			Message:   fmt.Sprintf("no sender configured for channel %s", msg.Channel),
			Transient: false,
		}
	}
	return s.Send(ctx, msg)
}
