package domain

import "testing"

func TestClassifyScore(t *testing.T) {
	t.Parallel()

	cases := []struct {
		score int
		want  Temperature
	}{
		{100, TemperatureHot},
		{70, TemperatureHot},
		{69, TemperatureWarm},
		{40, TemperatureWarm},
		{39, TemperatureCold},
		{0, TemperatureCold},
	}
	for _, tc := range cases {
		if got := ClassifyScore(tc.score); got != tc.want {
			t.Fatalf("ClassifyScore(%d) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestClampScore(t *testing.T) {
	t.Parallel()

	if got := ClampScore(-5); got != MinScore {
		t.Fatalf("ClampScore(-5) = %d, want %d", got, MinScore)
	}
	if got := ClampScore(150); got != MaxScore {
		t.Fatalf("ClampScore(150) = %d, want %d", got, MaxScore)
	}
	if got := ClampScore(55); got != 55 {
		t.Fatalf("ClampScore(55) = %d, want 55", got)
	}
}

func TestLeadContactAddress(t *testing.T) {
	t.Parallel()

	lead := &Lead{Phone: " +905551112233 ", Email: "acme@example.com"}

	if got := lead.ContactAddress(ChannelWhatsApp); got != "+905551112233" {
		t.Fatalf("whatsapp address = %q", got)
	}
	if got := lead.ContactAddress(ChannelSMS); got != "+905551112233" {
		t.Fatalf("sms address = %q", got)
	}
	if got := lead.ContactAddress(ChannelEmail); got != "acme@example.com" {
		t.Fatalf("email address = %q", got)
	}

	empty := &Lead{}
	if got := empty.ContactAddress(ChannelEmail); got != "" {
		t.Fatalf("address without email = %q, want empty", got)
	}
}

func TestLeadContactable(t *testing.T) {
	t.Parallel()

	lead := Lead{Phone: "+905551112233", HasConsent: true}
	if !lead.Contactable(ChannelWhatsApp) {
		t.Fatal("consented lead with phone should be contactable")
	}

	optedOut := lead
	optedOut.OptedOut = true
	if optedOut.Contactable(ChannelWhatsApp) {
		t.Fatal("opted-out lead must not be contactable")
	}

	noConsent := lead
	noConsent.HasConsent = false
	if noConsent.Contactable(ChannelWhatsApp) {
		t.Fatal("lead without consent must not be contactable")
	}

	if lead.Contactable(ChannelEmail) {
		t.Fatal("lead without email must not be contactable on email")
	}
}

func TestLeadValidateTemperatureConsistency(t *testing.T) {
	t.Parallel()

	lead := &Lead{
		Name:        "Acme",
		Status:      LeadStatusNew,
		Score:       80,
		Temperature: TemperatureCold,
	}
	if err := lead.Validate(); err == nil {
		t.Fatal("temperature inconsistent with score should fail validation")
	}

	lead.Temperature = TemperatureHot
	if err := lead.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestParseChannelFromString(t *testing.T) {
	t.Parallel()

	ch, err := ParseChannelFromString(" whatsapp ")
	if err != nil {
		t.Fatalf("ParseChannelFromString() error = %v", err)
	}
	if ch != ChannelWhatsApp {
		t.Fatalf("channel = %s, want WHATSAPP", ch)
	}

	if _, err := ParseChannelFromString("carrier-pigeon"); err == nil {
		t.Fatal("unknown channel should fail")
	}
}
