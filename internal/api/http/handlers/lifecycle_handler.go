package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/wzatco/helpdesk-sla/internal/api/dto"
	"github.com/wzatco/helpdesk-sla/internal/service"
	apperrors "github.com/wzatco/helpdesk-sla/pkg/util"
)

// LifecycleHandler receives ticket lifecycle hooks from the workflow
// service and feeds them to the timer engine.
type LifecycleHandler struct {
	engine *service.TimerEngine
}

// NewLifecycleHandler constructs handler.
func NewLifecycleHandler(engine *service.TimerEngine) *LifecycleHandler {
	return &LifecycleHandler{engine: engine}
}

// TicketCreated POST /internal/sla/tickets/:id/created.
func (h *LifecycleHandler) TicketCreated(c *fiber.Ctx) error {
	if err := h.engine.OnTicketCreated(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusAccepted)
}

// FirstResponse POST /internal/sla/tickets/:id/first-response.
func (h *LifecycleHandler) FirstResponse(c *fiber.Ctx) error {
	var req dto.FirstResponseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.engine.OnFirstResponse(c.Context(), c.Params("id"), orNow(req.At)); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusAccepted)
}

// StatusChanged POST /internal/sla/tickets/:id/status-changed.
func (h *LifecycleHandler) StatusChanged(c *fiber.Ctx) error {
	var req dto.StatusChangedRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.OldStatus == "" || req.NewStatus == "" {
		return apperrors.NewValidationError("old_status and new_status required", nil)
	}
	if err := h.engine.OnStatusChanged(c.Context(), c.Params("id"), req.OldStatus, req.NewStatus, orNow(req.At)); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusAccepted)
}

// TicketDeleted POST /internal/sla/tickets/:id/deleted.
func (h *LifecycleHandler) TicketDeleted(c *fiber.Ctx) error {
	var req dto.TicketDeletedRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.engine.OnTicketDeleted(c.Context(), c.Params("id"), orNow(req.At)); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusAccepted)
}

func orNow(at time.Time) time.Time {
	if at.IsZero() {
		return time.Now().UTC()
	}
	return at
}
