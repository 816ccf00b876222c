package service

import (
	"context"
	"fmt"

	"github.com/leadflowhq/outreach-engine/internal/domain"
	"github.com/leadflowhq/outreach-engine/internal/repository"
)

const defaultSelectorMinSamples = 10

// TemplateSelector picks which variant of a template family to send.
// Variants with fewer sends than minSamples are still exploring and take
// priority, least-sent first, so every variant earns a measurable sample.
// Once all variants have enough data the best historical response rate wins.
//
// Selection never mutates counters; TimesSent moves only on actual sends.
type TemplateSelector struct {
	templates  repository.TemplateRepository
	minSamples int
}

func NewTemplateSelector(templates repository.TemplateRepository, minSamples int) (*TemplateSelector, error) {
	if templates == nil {
		return nil, fmt.Errorf("template repository is required")
	}
	if minSamples <= 0 {
		minSamples = defaultSelectorMinSamples
	}

	return &TemplateSelector{
		templates:  templates,
		minSamples: minSamples,
	}, nil
}

// SelectVariant loads the active variants of baseName for channel and picks
// one deterministically.
func (s *TemplateSelector) SelectVariant(ctx context.Context, baseName string, channel domain.Channel) (*domain.MessageTemplate, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	variants, err := s.templates.GetActiveVariants(ctx, baseName, channel)
	if err != nil {
		return nil, err
	}

	return PickVariant(variants, s.minSamples)
}

// PickVariant chooses among the given variants. Ties break on fewer sends,
// then on lower ID, so the choice is stable for a fixed input.
func PickVariant(variants []domain.MessageTemplate, minSamples int) (*domain.MessageTemplate, error) {
	if len(variants) == 0 {
		return nil, fmt.Errorf("%w: no active template variants", domain.ErrNotFound)
	}
	if minSamples <= 0 {
		minSamples = defaultSelectorMinSamples
	}

	var exploring *domain.MessageTemplate
	for i := range variants {
		v := &variants[i]
		if v.TimesSent >= minSamples {
			continue
		}
		if exploring == nil || lessSampled(v, exploring) {
			exploring = v
		}
	}
	if exploring != nil {
		return exploring, nil
	}

	best := &variants[0]
	for i := 1; i < len(variants); i++ {
		v := &variants[i]
		switch {
		case v.ResponseRate() > best.ResponseRate():
			best = v
		case v.ResponseRate() == best.ResponseRate() && lessSampled(v, best):
			best = v
		}
	}
	return best, nil
}

func lessSampled(a, b *domain.MessageTemplate) bool {
	if a.TimesSent != b.TimesSent {
		return a.TimesSent < b.TimesSent
	}
	return a.ID < b.ID
}
