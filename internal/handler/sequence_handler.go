package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/leadflowhq/outreach-engine/internal/domain"
)

type SequenceService interface {
	CreateSequence(ctx context.Context, def *domain.SequenceDefinition) (*domain.SequenceDefinition, error)
	GetSequence(ctx context.Context, id string) (*domain.SequenceDefinition, error)
	Enroll(ctx context.Context, leadID, sequenceID string) (*domain.SequenceEnrollment, error)
	GetEnrollment(ctx context.Context, id string) (*domain.SequenceEnrollment, error)
	StopEnrollment(ctx context.Context, id, reason string) error
}

type SequenceHandler struct {
	service SequenceService
}

func NewSequenceHandler(service SequenceService) (*SequenceHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("sequence service is required")
	}
	return &SequenceHandler{service: service}, nil
}

func RegisterSequenceRoutes(router fiber.Router, service SequenceService) error {
	h, err := NewSequenceHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/sequences", h.CreateSequence)
	v1.Get("/sequences/:id", h.GetSequence)
	v1.Post("/enrollments", h.Enroll)
	v1.Get("/enrollments/:id", h.GetEnrollment)
	v1.Post("/enrollments/:id/stop", h.StopEnrollment)

	return nil
}

type createSequenceRequest struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	IsActive    *bool               `json:"isActive"`
	Steps       []sequenceStepInput `json:"steps"`
}

type sequenceStepInput struct {
	Channel    string `json:"channel"`
	TemplateID string `json:"templateId"`
	DelayDays  int    `json:"delayDays"`
}

type enrollRequest struct {
	LeadID     string `json:"leadId"`
	SequenceID string `json:"sequenceId"`
}

type stopEnrollmentRequest struct {
	Reason string `json:"reason"`
}

type sequenceResponse struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	IsActive    bool                   `json:"isActive"`
	Steps       []sequenceStepResponse `json:"steps"`
	CreatedAt   time.Time              `json:"createdAt"`
}

type sequenceStepResponse struct {
	StepIndex  int    `json:"stepIndex"`
	Channel    string `json:"channel"`
	TemplateID string `json:"templateId"`
	DelayDays  int    `json:"delayDays"`
}

type enrollmentResponse struct {
	ID               string     `json:"id"`
	LeadID           string     `json:"leadId"`
	SequenceID       string     `json:"sequenceId"`
	CurrentStepIndex int        `json:"currentStepIndex"`
	Status           string     `json:"status"`
	StopReason       *string    `json:"stopReason,omitempty"`
	EnrolledAt       time.Time  `json:"enrolledAt"`
	NextDueAt        *time.Time `json:"nextDueAt,omitempty"`
}

func (h *SequenceHandler) CreateSequence(c *fiber.Ctx) error {
	var req createSequenceRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	def := domain.SequenceDefinition{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    true,
	}
	if req.IsActive != nil {
		def.IsActive = *req.IsActive
	}

	for i, step := range req.Steps {
		channel, err := domain.ParseChannelFromString(step.Channel)
		if err != nil {
			return toHTTPError(fmt.Errorf("step %d: %w", i, err))
		}
		def.Steps = append(def.Steps, domain.SequenceStep{
			StepIndex:  i,
			Channel:    channel,
			TemplateID: strings.TrimSpace(step.TemplateID),
			DelayDays:  step.DelayDays,
		})
	}

	created, err := h.service.CreateSequence(c.Context(), &def)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toSequenceResponse(created))
}

func (h *SequenceHandler) GetSequence(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	def, err := h.service.GetSequence(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toSequenceResponse(def))
}

func (h *SequenceHandler) Enroll(c *fiber.Ctx) error {
	var req enrollRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	enrollment, err := h.service.Enroll(c.Context(), req.LeadID, req.SequenceID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toEnrollmentResponse(enrollment))
}

func (h *SequenceHandler) GetEnrollment(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	enrollment, err := h.service.GetEnrollment(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toEnrollmentResponse(enrollment))
}

func (h *SequenceHandler) StopEnrollment(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))

	// The reason body is optional; stops without one stay manual.
	var req stopEnrollmentRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	}

	if err := h.service.StopEnrollment(c.Context(), id, req.Reason); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"enrollmentId": id,
		"status":       domain.EnrollmentStatusStopped.String(),
	})
}

func toSequenceResponse(d *domain.SequenceDefinition) sequenceResponse {
	if d == nil {
		return sequenceResponse{}
	}

	steps := make([]sequenceStepResponse, 0, len(d.Steps))
	for _, step := range d.Steps {
		steps = append(steps, sequenceStepResponse{
			StepIndex:  step.StepIndex,
			Channel:    step.Channel.String(),
			TemplateID: step.TemplateID,
			DelayDays:  step.DelayDays,
		})
	}

	return sequenceResponse{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		IsActive:    d.IsActive,
		Steps:       steps,
		CreatedAt:   d.CreatedAt,
	}
}

func toEnrollmentResponse(e *domain.SequenceEnrollment) enrollmentResponse {
	if e == nil {
		return enrollmentResponse{}
	}

	return enrollmentResponse{
		ID:               e.ID,
		LeadID:           e.LeadID,
		SequenceID:       e.SequenceID,
		CurrentStepIndex: e.CurrentStepIndex,
		Status:           e.Status.String(),
		StopReason:       e.StopReason,
		EnrolledAt:       e.EnrolledAt,
		NextDueAt:        e.NextDueAt,
	}
}
