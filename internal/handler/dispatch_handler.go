package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/leadflowhq/outreach-engine/internal/domain"
	"github.com/leadflowhq/outreach-engine/internal/service"
)

type DispatchService interface {
	Dispatch(ctx context.Context, req service.DispatchRequest) (*domain.BulkJob, error)
	GetJob(ctx context.Context, id string) (*domain.BulkJob, error)
	ListJobItems(ctx context.Context, jobID string) ([]domain.BulkJobItem, error)
	CancelJob(ctx context.Context, id string) error
}

type DispatchHandler struct {
	service DispatchService
}

func NewDispatchHandler(service DispatchService) (*DispatchHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("dispatch service is required")
	}
	return &DispatchHandler{service: service}, nil
}

func RegisterDispatchRoutes(router fiber.Router, service DispatchService) error {
	h, err := NewDispatchHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/dispatches", h.Dispatch)
	v1.Get("/jobs/:id", h.GetJob)
	v1.Get("/jobs/:id/items", h.ListJobItems)
	v1.Post("/jobs/:id/cancel", h.CancelJob)

	return nil
}

type dispatchRequest struct {
	Channel    string   `json:"channel"`
	LeadIDs    []string `json:"leadIds"`
	TemplateID *string  `json:"templateId"`
	SequenceID *string  `json:"sequenceId"`
	DryRun     bool     `json:"dryRun"`
}

type jobResponse struct {
	ID              string     `json:"id"`
	Channel         string     `json:"channel"`
	TemplateID      *string    `json:"templateId,omitempty"`
	SequenceID      *string    `json:"sequenceId,omitempty"`
	DryRun          bool       `json:"dryRun"`
	Status          string     `json:"status"`
	TotalItems      int        `json:"totalItems"`
	ProcessedItems  int        `json:"processedItems"`
	SuccessfulItems int        `json:"successfulItems"`
	FailedItems     int        `json:"failedItems"`
	SkippedItems    int        `json:"skippedItems"`
	ErrorMessage    *string    `json:"errorMessage,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	StartedAt       *time.Time `json:"startedAt,omitempty"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
}

type jobItemResponse struct {
	LeadID     string  `json:"leadId"`
	Position   int     `json:"position"`
	Outcome    string  `json:"outcome"`
	TemplateID *string `json:"templateId,omitempty"`
	Error      *string `json:"error,omitempty"`
}

type jobItemsResponse struct {
	JobID string            `json:"jobId"`
	Items []jobItemResponse `json:"items"`
}

func (h *DispatchHandler) Dispatch(c *fiber.Ctx) error {
	var req dispatchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	channel, err := domain.ParseChannelFromString(req.Channel)
	if err != nil {
		return toHTTPError(err)
	}

	job, err := h.service.Dispatch(c.Context(), service.DispatchRequest{
		Channel:    channel,
		LeadIDs:    req.LeadIDs,
		TemplateID: req.TemplateID,
		SequenceID: req.SequenceID,
		DryRun:     req.DryRun,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusAccepted).JSON(toJobResponse(job))
}

func (h *DispatchHandler) GetJob(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	job, err := h.service.GetJob(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toJobResponse(job))
}

func (h *DispatchHandler) ListJobItems(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	items, err := h.service.ListJobItems(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]jobItemResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, jobItemResponse{
			LeadID:     item.LeadID,
			Position:   item.Position,
			Outcome:    item.Outcome.String(),
			TemplateID: item.TemplateID,
			Error:      item.Error,
		})
	}

	return c.Status(fiber.StatusOK).JSON(jobItemsResponse{
		JobID: id,
		Items: responses,
	})
}

func (h *DispatchHandler) CancelJob(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if err := h.service.CancelJob(c.Context(), id); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"jobId":  id,
		"status": domain.JobStatusCancelled.String(),
	})
}

func toJobResponse(j *domain.BulkJob) jobResponse {
	if j == nil {
		return jobResponse{}
	}

	return jobResponse{
		ID:              j.ID,
		Channel:         j.Channel.String(),
		TemplateID:      j.TemplateID,
		SequenceID:      j.SequenceID,
		DryRun:          j.DryRun,
		Status:          j.Status.String(),
		TotalItems:      j.TotalItems,
		ProcessedItems:  j.ProcessedItems,
		SuccessfulItems: j.SuccessfulItems,
		FailedItems:     j.FailedItems,
		SkippedItems:    j.SkippedItems,
		ErrorMessage:    j.ErrorMessage,
		CreatedAt:       j.CreatedAt,
		StartedAt:       j.StartedAt,
		CompletedAt:     j.CompletedAt,
	}
}
