package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/wzatco/helpdesk-sla/internal/service"
)

// SLAHandler exposes timer status views for the ticket UI.
type SLAHandler struct {
	engine *service.TimerEngine
}

// NewSLAHandler constructs handler.
func NewSLAHandler(engine *service.TimerEngine) *SLAHandler {
	return &SLAHandler{engine: engine}
}

// GetTimerStatus GET /tickets/:id/sla.
func (h *SLAHandler) GetTimerStatus(c *fiber.Ctx) error {
	view, err := h.engine.GetTimerStatus(c.Context(), c.Params("id"), time.Now().UTC())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": view})
}
