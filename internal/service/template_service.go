package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/leadflowhq/outreach-engine/internal/domain"
	"github.com/leadflowhq/outreach-engine/internal/repository"
)

type TemplateService struct {
	templates repository.TemplateRepository
}

func NewTemplateService(templates repository.TemplateRepository) (*TemplateService, error) {
	if templates == nil {
		return nil, fmt.Errorf("template repository is required")
	}
	return &TemplateService{templates: templates}, nil
}

func (s *TemplateService) Create(ctx context.Context, template *domain.MessageTemplate) (*domain.MessageTemplate, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if template == nil {
		return nil, fmt.Errorf("%w: template is required", domain.ErrValidation)
	}

	template.ID = strings.TrimSpace(template.ID)
	if template.ID == "" {
		template.ID = uuid.NewString()
	}
	template.Name = strings.TrimSpace(template.Name)
	template.Variant = strings.TrimSpace(template.Variant)
	if template.Variant == "" {
		template.Variant = "A"
	}
	template.TimesSent = 0
	template.TimesResponded = 0

	if err := template.Validate(); err != nil {
		return nil, err
	}

	if err := s.templates.Create(ctx, template); err != nil {
		return nil, err
	}
	return template, nil
}

func (s *TemplateService) GetByID(ctx context.Context, id string) (*domain.MessageTemplate, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: template id is required", domain.ErrValidation)
	}
	return s.templates.GetByID(ctx, strings.TrimSpace(id))
}
