package domain

import (
	"fmt"
	"strings"
	"time"
)

// LeadStatus represents the lifecycle state of a lead.
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "NEW"
	LeadStatusContacted LeadStatus = "CONTACTED"
	LeadStatusReplied   LeadStatus = "REPLIED"
	LeadStatusClosed    LeadStatus = "CLOSED"
	LeadStatusLost      LeadStatus = "LOST"
)

func (s LeadStatus) String() string { return string(s) }

func (s LeadStatus) IsValid() bool {
	switch s {
	case LeadStatusNew, LeadStatusContacted, LeadStatusReplied, LeadStatusClosed, LeadStatusLost:
		return true
	}
	return false
}

// IsTerminal reports whether the status is retained but no longer workable.
func (s LeadStatus) IsTerminal() bool {
	return s == LeadStatusClosed || s == LeadStatusLost
}

func ParseLeadStatusFromString(s string) (LeadStatus, error) {
	st := LeadStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid lead status %q", ErrValidation, s)
	}
	return st, nil
}

// Temperature is the coarse tier derived from a lead's numeric score.
type Temperature string

const (
	TemperatureHot  Temperature = "HOT"
	TemperatureWarm Temperature = "WARM"
	TemperatureCold Temperature = "COLD"
)

func (t Temperature) String() string { return string(t) }

func (t Temperature) IsValid() bool {
	switch t {
	case TemperatureHot, TemperatureWarm, TemperatureCold:
		return true
	}
	return false
}

// Score thresholds for temperature tiers.
const (
	HotScoreThreshold  = 70
	WarmScoreThreshold = 40

	MinScore = 0
	MaxScore = 100
)

// ClassifyScore maps a score onto its temperature tier.
func ClassifyScore(score int) Temperature {
	switch {
	case score >= HotScoreThreshold:
		return TemperatureHot
	case score >= WarmScoreThreshold:
		return TemperatureWarm
	default:
		return TemperatureCold
	}
}

// ClampScore bounds a raw score to the valid range.
func ClampScore(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// Channel represents the outreach delivery channel.
type Channel string

const (
	ChannelWhatsApp Channel = "WHATSAPP"
	ChannelEmail    Channel = "EMAIL"
	ChannelSMS      Channel = "SMS"
)

func (c Channel) String() string { return string(c) }

func (c Channel) IsValid() bool {
	switch c {
	case ChannelWhatsApp, ChannelEmail, ChannelSMS:
		return true
	}
	return false
}

func ParseChannelFromString(s string) (Channel, error) {
	ch := Channel(strings.ToUpper(strings.TrimSpace(s)))
	if !ch.IsValid() {
		return "", fmt.Errorf("%w: invalid channel %q", ErrValidation, s)
	}
	return ch, nil
}

// Channels lists every supported channel.
func Channels() []Channel {
	return []Channel{ChannelWhatsApp, ChannelEmail, ChannelSMS}
}

// Lead is a prospective contact moving through the outreach lifecycle.
type Lead struct {
	ID    string
	Name  string
	Phone string
	Email string
	City  string

	// Static signals.
	Rating           float64
	HasPublicProfile bool

	Score       int
	Temperature Temperature
	Status      LeadStatus

	OptedOut   bool
	HasConsent bool

	// Behavioral counters.
	TimesContacted int
	TimesResponded int
	// LastResponseLatency is the delay between the last outbound contact and
	// the reply it drew; zero when the lead has never responded.
	LastResponseLatency time.Duration

	// DecayWindowsApplied counts staleness windows already decayed since the
	// last contact, so repeated sweeps within one window are no-ops.
	DecayWindowsApplied int

	LastContactedAt *time.Time
	LastResponseAt  *time.Time
	NextFollowupAt  *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (l *Lead) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("%w: lead name is required", ErrValidation)
	}
	if !l.Status.IsValid() {
		return fmt.Errorf("%w: invalid lead status %q", ErrValidation, l.Status)
	}
	if l.Score < MinScore || l.Score > MaxScore {
		return fmt.Errorf("%w: score %d outside [%d,%d]", ErrValidation, l.Score, MinScore, MaxScore)
	}
	if !l.Temperature.IsValid() {
		return fmt.Errorf("%w: invalid temperature %q", ErrValidation, l.Temperature)
	}
	if l.Temperature != ClassifyScore(l.Score) {
		return fmt.Errorf("%w: temperature %s inconsistent with score %d", ErrValidation, l.Temperature, l.Score)
	}
	return nil
}

// ContactAddress returns the destination for a channel, empty when the lead
// lacks the required contact info.
func (l *Lead) ContactAddress(channel Channel) string {
	switch channel {
	case ChannelWhatsApp, ChannelSMS:
		return strings.TrimSpace(l.Phone)
	case ChannelEmail:
		return strings.TrimSpace(l.Email)
	default:
		return ""
	}
}

// Contactable reports whether the lead may be messaged on the channel at all.
// Opt-out and missing consent are skips, never failures.
func (l *Lead) Contactable(channel Channel) bool {
	if l.OptedOut || !l.HasConsent {
		return false
	}
	return l.ContactAddress(channel) != ""
}
