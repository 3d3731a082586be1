package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/wzatco/helpdesk-sla/internal/api/dto"
	"github.com/wzatco/helpdesk-sla/internal/service"
	apperrors "github.com/wzatco/helpdesk-sla/pkg/util"
)

// PoliciesHandler manages administrator SLA policy endpoints.
type PoliciesHandler struct {
	policies *service.PolicyService
}

// NewPoliciesHandler constructs handler.
func NewPoliciesHandler(policyService *service.PolicyService) *PoliciesHandler {
	return &PoliciesHandler{policies: policyService}
}

// Create POST /admin/sla/policies.
func (h *PoliciesHandler) Create(c *fiber.Ctx) error {
	var req dto.PolicyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Name) == "" {
		return apperrors.NewValidationError("name required", nil)
	}
	policy := req.ToDomain()
	if err := h.policies.Create(c.Context(), policy); err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewPolicyResponse(policy)})
}

// List GET /admin/sla/policies.
func (h *PoliciesHandler) List(c *fiber.Ctx) error {
	policies, err := h.policies.List(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.PolicyResponse, 0, len(policies))
	for i := range policies {
		items = append(items, dto.NewPolicyResponse(&policies[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /admin/sla/policies/:id.
func (h *PoliciesHandler) Get(c *fiber.Ctx) error {
	policy, err := h.policies.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPolicyResponse(policy)})
}

// Update PATCH /admin/sla/policies/:id.
func (h *PoliciesHandler) Update(c *fiber.Ctx) error {
	var req dto.PolicyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	policy := req.ToDomain()
	policy.ID = c.Params("id")
	if err := h.policies.Update(c.Context(), policy); err != nil {
		return err
	}
	updated, err := h.policies.Get(c.Context(), policy.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPolicyResponse(updated)})
}

// Delete DELETE /admin/sla/policies/:id.
func (h *PoliciesHandler) Delete(c *fiber.Ctx) error {
	if err := h.policies.Delete(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// SetDefault POST /admin/sla/policies/:id/default.
func (h *PoliciesHandler) SetDefault(c *fiber.Ctx) error {
	if err := h.policies.SetDefault(c.Context(), c.Params("id")); err != nil {
		return err
	}
	policy, err := h.policies.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPolicyResponse(policy)})
}
