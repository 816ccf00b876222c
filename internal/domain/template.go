package domain

import (
	"fmt"
	"strings"
	"time"
)

// MessageTemplate is outreach content plus its historical performance
// counters. Counters are incremented only on successful sends and detected
// responses, never by selection.
type MessageTemplate struct {
	ID       string
	Name     string
	Channel  Channel
	Variant  string
	Subject  string
	Content  string
	IsActive bool

	TimesSent      int
	TimesResponded int

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (t *MessageTemplate) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("%w: template name is required", ErrValidation)
	}
	if !t.Channel.IsValid() {
		return fmt.Errorf("%w: invalid channel %q", ErrValidation, t.Channel)
	}
	if strings.TrimSpace(t.Content) == "" {
		return fmt.Errorf("%w: template content is required", ErrValidation)
	}
	return nil
}

// ResponseRate is times_responded / times_sent, zero when never sent.
func (t *MessageTemplate) ResponseRate() float64 {
	if t.TimesSent == 0 {
		return 0
	}
	return float64(t.TimesResponded) / float64(t.TimesSent)
}

// PersonalizeContent substitutes lead placeholders into template content.
func PersonalizeContent(content string, lead *Lead) string {
	if lead == nil {
		return content
	}

	replacer := strings.NewReplacer(
		"{name}", lead.Name,
		"{business_name}", lead.Name,
		"{city}", lead.City,
		"{phone}", lead.Phone,
		"{email}", lead.Email,
		"{rating}", formatRating(lead.Rating),
		"{score}", fmt.Sprintf("%d", lead.Score),
		"{temperature}", lead.Temperature.String(),
	)
	return replacer.Replace(content)
}

func formatRating(rating float64) string {
	if rating == 0 {
		return ""
	}
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.1f", rating), "0"), ".")
}
