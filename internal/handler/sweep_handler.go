package handler

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Sweep endpoints let an external scheduler trigger the decay and sequence
// passes on its own cadence, on top of the built-in tickers.

type DecaySweeper interface {
	Sweep(ctx context.Context) (int, error)
}

type SequenceSweeper interface {
	ProcessDue(ctx context.Context) (int, error)
}

type SweepHandler struct {
	decay     DecaySweeper
	sequences SequenceSweeper
}

func NewSweepHandler(decay DecaySweeper, sequences SequenceSweeper) (*SweepHandler, error) {
	if decay == nil {
		return nil, fmt.Errorf("decay sweeper is required")
	}
	if sequences == nil {
		return nil, fmt.Errorf("sequence sweeper is required")
	}
	return &SweepHandler{decay: decay, sequences: sequences}, nil
}

func RegisterSweepRoutes(router fiber.Router, decay DecaySweeper, sequences SequenceSweeper) error {
	h, err := NewSweepHandler(decay, sequences)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/sweeps/decay", h.RunDecaySweep)
	v1.Post("/sweeps/sequences", h.RunSequenceSweep)

	return nil
}

func (h *SweepHandler) RunDecaySweep(c *fiber.Ctx) error {
	decayed, err := h.decay.Sweep(c.Context())
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"sweep":   "decay",
		"decayed": decayed,
	})
}

func (h *SweepHandler) RunSequenceSweep(c *fiber.Ctx) error {
	sent, err := h.sequences.ProcessDue(c.Context())
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"sweep": "sequences",
		"sent":  sent,
	})
}
