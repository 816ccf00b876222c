package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/leadflowhq/outreach-engine/internal/domain"
)

type LeadService interface {
	Create(ctx context.Context, lead *domain.Lead) (*domain.Lead, error)
	GetByID(ctx context.Context, id string) (*domain.Lead, error)
	OptOut(ctx context.Context, id string) error
	RecordResponse(ctx context.Context, leadID string, respondedAt time.Time) (*domain.Lead, error)
}

type LeadHandler struct {
	service LeadService
}

func NewLeadHandler(service LeadService) (*LeadHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("lead service is required")
	}
	return &LeadHandler{service: service}, nil
}

func RegisterLeadRoutes(router fiber.Router, service LeadService) error {
	h, err := NewLeadHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/leads", h.CreateLead)
	v1.Get("/leads/:id", h.GetLead)
	v1.Post("/leads/:id/response", h.RecordResponse)
	v1.Post("/leads/:id/opt-out", h.OptOut)

	return nil
}

type createLeadRequest struct {
	Name             string  `json:"name"`
	Phone            string  `json:"phone"`
	Email            string  `json:"email"`
	City             string  `json:"city"`
	Rating           float64 `json:"rating"`
	HasPublicProfile bool    `json:"hasPublicProfile"`
	HasConsent       bool    `json:"hasConsent"`
}

type recordResponseRequest struct {
	RespondedAt *time.Time `json:"respondedAt"`
}

type leadResponse struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Phone            string     `json:"phone,omitempty"`
	Email            string     `json:"email,omitempty"`
	City             string     `json:"city,omitempty"`
	Rating           float64    `json:"rating,omitempty"`
	HasPublicProfile bool       `json:"hasPublicProfile"`
	Score            int        `json:"score"`
	Temperature      string     `json:"temperature"`
	Status           string     `json:"status"`
	OptedOut         bool       `json:"optedOut"`
	HasConsent       bool       `json:"hasConsent"`
	TimesContacted   int        `json:"timesContacted"`
	TimesResponded   int        `json:"timesResponded"`
	LastContactedAt  *time.Time `json:"lastContactedAt,omitempty"`
	LastResponseAt   *time.Time `json:"lastResponseAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

func (h *LeadHandler) CreateLead(c *fiber.Ctx) error {
	var req createLeadRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	lead := domain.Lead{
		Name:             req.Name,
		Phone:            req.Phone,
		Email:            req.Email,
		City:             req.City,
		Rating:           req.Rating,
		HasPublicProfile: req.HasPublicProfile,
		HasConsent:       req.HasConsent,
	}

	created, err := h.service.Create(c.Context(), &lead)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toLeadResponse(created))
}

func (h *LeadHandler) GetLead(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	lead, err := h.service.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toLeadResponse(lead))
}

func (h *LeadHandler) RecordResponse(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))

	var req recordResponseRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	}

	respondedAt := time.Time{}
	if req.RespondedAt != nil {
		respondedAt = *req.RespondedAt
	}

	lead, err := h.service.RecordResponse(c.Context(), id, respondedAt)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toLeadResponse(lead))
}

func (h *LeadHandler) OptOut(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if err := h.service.OptOut(c.Context(), id); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"leadId":   id,
		"optedOut": true,
	})
}

func toLeadResponse(l *domain.Lead) leadResponse {
	if l == nil {
		return leadResponse{}
	}

	return leadResponse{
		ID:               l.ID,
		Name:             l.Name,
		Phone:            l.Phone,
		Email:            l.Email,
		City:             l.City,
		Rating:           l.Rating,
		HasPublicProfile: l.HasPublicProfile,
		Score:            l.Score,
		Temperature:      l.Temperature.String(),
		Status:           l.Status.String(),
		OptedOut:         l.OptedOut,
		HasConsent:       l.HasConsent,
		TimesContacted:   l.TimesContacted,
		TimesResponded:   l.TimesResponded,
		LastContactedAt:  l.LastContactedAt,
		LastResponseAt:   l.LastResponseAt,
		CreatedAt:        l.CreatedAt,
		UpdatedAt:        l.UpdatedAt,
	}
}
