package sender

import (
	"context"

	"github.com/leadflowhq/outreach-engine/internal/domain"
)

// Message is one outbound send resolved to concrete content.
type Message struct {
	To      string
	Channel domain.Channel
	Subject string
	Content string
}

// Result stores gateway call metadata for audit and persistence.
type Result struct {
	DeliveryID string
	StatusCode int
	Body       string
}

// Sender is the outbound delivery port. Implementations exist per channel;
// use NewRouter to pick one by the message's channel.
type Sender interface {
	Send(ctx context.Context, msg Message) (*Result, error)
}
