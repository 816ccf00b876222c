package domain

import "testing"

func TestTemplateResponseRate(t *testing.T) {
	t.Parallel()

	unsent := MessageTemplate{}
	if got := unsent.ResponseRate(); got != 0 {
		t.Fatalf("rate with no sends = %v, want 0", got)
	}

	tpl := MessageTemplate{TimesSent: 40, TimesResponded: 10}
	if got := tpl.ResponseRate(); got != 0.25 {
		t.Fatalf("rate = %v, want 0.25", got)
	}
}

func TestPersonalizeContent(t *testing.T) {
	t.Parallel()

	lead := &Lead{
		Name:        "Acme Bakery",
		City:        "Izmir",
		Phone:       "+905551112233",
		Rating:      4.5,
		Score:       82,
		Temperature: TemperatureHot,
	}

	got := PersonalizeContent("Hi {name} in {city}, rated {rating}, score {score} ({temperature})", lead)
	want := "Hi Acme Bakery in Izmir, rated 4.5, score 82 (HOT)"
	if got != want {
		t.Fatalf("PersonalizeContent() = %q, want %q", got, want)
	}
}

func TestPersonalizeContentNilLead(t *testing.T) {
	t.Parallel()

	if got := PersonalizeContent("Hi {name}", nil); got != "Hi {name}" {
		t.Fatalf("PersonalizeContent(nil) = %q, want untouched content", got)
	}
}

func TestPersonalizeContentWholeRating(t *testing.T) {
	t.Parallel()

	got := PersonalizeContent("{rating} stars", &Lead{Name: "Acme", Rating: 4})
	if got != "4 stars" {
		t.Fatalf("PersonalizeContent() = %q, want %q", got, "4 stars")
	}
}

func TestTemplateValidate(t *testing.T) {
	t.Parallel()

	tpl := MessageTemplate{Name: "promo", Channel: ChannelEmail, Content: "hello"}
	if err := tpl.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	blank := tpl
	blank.Content = "  "
	if err := blank.Validate(); err == nil {
		t.Fatal("blank content should fail validation")
	}

	badChannel := tpl
	badChannel.Channel = "FAX"
	if err := badChannel.Validate(); err == nil {
		t.Fatal("unknown channel should fail validation")
	}
}
