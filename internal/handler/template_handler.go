package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/leadflowhq/outreach-engine/internal/domain"
)

type TemplateService interface {
	Create(ctx context.Context, template *domain.MessageTemplate) (*domain.MessageTemplate, error)
	GetByID(ctx context.Context, id string) (*domain.MessageTemplate, error)
}

type TemplateHandler struct {
	service TemplateService
}

func NewTemplateHandler(service TemplateService) (*TemplateHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("template service is required")
	}
	return &TemplateHandler{service: service}, nil
}

func RegisterTemplateRoutes(router fiber.Router, service TemplateService) error {
	h, err := NewTemplateHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/templates", h.CreateTemplate)
	v1.Get("/templates/:id", h.GetTemplate)

	return nil
}

type createTemplateRequest struct {
	Name     string `json:"name"`
	Channel  string `json:"channel"`
	Variant  string `json:"variant"`
	Subject  string `json:"subject"`
	Content  string `json:"content"`
	IsActive *bool  `json:"isActive"`
}

type templateResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Channel        string    `json:"channel"`
	Variant        string    `json:"variant"`
	Subject        string    `json:"subject,omitempty"`
	Content        string    `json:"content"`
	IsActive       bool      `json:"isActive"`
	TimesSent      int       `json:"timesSent"`
	TimesResponded int       `json:"timesResponded"`
	ResponseRate   float64   `json:"responseRate"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (h *TemplateHandler) CreateTemplate(c *fiber.Ctx) error {
	var req createTemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	channel, err := domain.ParseChannelFromString(req.Channel)
	if err != nil {
		return toHTTPError(err)
	}

	template := domain.MessageTemplate{
		Name:     req.Name,
		Channel:  channel,
		Variant:  req.Variant,
		Subject:  req.Subject,
		Content:  req.Content,
		IsActive: true,
	}
	if req.IsActive != nil {
		template.IsActive = *req.IsActive
	}

	created, err := h.service.Create(c.Context(), &template)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toTemplateResponse(created))
}

func (h *TemplateHandler) GetTemplate(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	template, err := h.service.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toTemplateResponse(template))
}

func toTemplateResponse(t *domain.MessageTemplate) templateResponse {
	if t == nil {
		return templateResponse{}
	}

	return templateResponse{
		ID:             t.ID,
		Name:           t.Name,
		Channel:        t.Channel.String(),
		Variant:        t.Variant,
		Subject:        t.Subject,
		Content:        t.Content,
		IsActive:       t.IsActive,
		TimesSent:      t.TimesSent,
		TimesResponded: t.TimesResponded,
		ResponseRate:   t.ResponseRate(),
		CreatedAt:      t.CreatedAt,
	}
}
