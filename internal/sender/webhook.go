package sender

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultGatewayTimeout = 10 * time.Second

type gatewayRequest struct {
	To      string `json:"to"`
	Channel string `json:"channel"`
	Body    string `json:"body"`
}

// GatewaySender delivers WhatsApp and SMS messages through an HTTP messaging
// gateway (Twilio-style webhook API).
type GatewaySender struct {
	client   *resty.Client
	endpoint string
}

func NewGatewaySender(endpoint string) (*GatewaySender, error) {
	client := resty.New()
	client.SetTimeout(defaultGatewayTimeout)
	client.SetRetryCount(0)

	return NewGatewaySenderWithClient(endpoint, client)
}

func NewGatewaySenderWithClient(endpoint string, client *resty.Client) (*GatewaySender, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("gateway endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid gateway endpoint: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultGatewayTimeout)
	}
	client.SetRetryCount(0)

	return &GatewaySender{
		client:   client,
		endpoint: trimmedEndpoint,
	}, nil
}

func (s *GatewaySender) Send(ctx context.Context, msg Message) (*Result, error) {
	if s == nil || s.client == nil {
		return nil, fmt.Errorf("sender is not initialized")
	}
	if strings.TrimSpace(msg.To) == "" {
		return nil, &SendError{Message: "recipient is required", Transient: false}
	}

	reqBody := gatewayRequest{
		To:      msg.To,
		Channel: strings.ToLower(msg.Channel.String()),
		Body:    msg.Content,
	}

	response, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		Post(s.endpoint)
	if err != nil {
		return nil, &SendError{
			Message:   "gateway request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return nil, &SendError{
			Message:   "gateway returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	responseBody := strings.TrimSpace(response.String())

	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return &Result{
			StatusCode: statusCode,
			Body:       responseBody,
			DeliveryID: deliveryID(response),
		}, nil
	}

	return nil, &SendError{
		StatusCode: statusCode,
		Message:    gatewayErrorMessage(statusCode, responseBody),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func gatewayErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("gateway returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}

func deliveryID(response *resty.Response) string {
	if response == nil {
		return ""
	}

	for _, key := range []string{"X-Message-ID", "X-Message-Id", "X-Request-ID", "X-Request-Id"} {
		if value := strings.TrimSpace(response.Header().Get(key)); value != "" {
			return value
		}
	}

	return ""
}
