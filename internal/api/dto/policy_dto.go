package dto

import (
	"time"

	"github.com/wzatco/helpdesk-sla/internal/domain"
)

// PolicyRequest is the admin payload for creating or updating a policy.
// Calendar and scope arrive as structured data; the handler never
// forwards raw JSON strings into the engine.
type PolicyRequest struct {
	Name             string                `json:"name"`
	IsDefault        bool                  `json:"is_default"`
	IsActive         *bool                 `json:"is_active,omitempty"`
	Response         domain.Thresholds     `json:"response_thresholds"`
	Resolution       domain.Thresholds     `json:"resolution_thresholds"`
	Calendar         domain.CalendarConfig `json:"calendar"`
	EscalationLevel1 int                   `json:"escalation_level1"`
	EscalationLevel2 int                   `json:"escalation_level2"`
	PauseOnWaiting   *bool                 `json:"pause_on_waiting,omitempty"`
	PauseOnHold      *bool                 `json:"pause_on_hold,omitempty"`
	Scope            domain.PolicyScope    `json:"scope"`
}

// ToDomain maps the request onto a policy aggregate.
func (r PolicyRequest) ToDomain() *domain.SLAPolicy {
	policy := &domain.SLAPolicy{
		Name:             r.Name,
		IsDefault:        r.IsDefault,
		IsActive:         true,
		Response:         r.Response,
		Resolution:       r.Resolution,
		Calendar:         r.Calendar,
		EscalationLevel1: r.EscalationLevel1,
		EscalationLevel2: r.EscalationLevel2,
		PauseOnWaiting:   true,
		PauseOnHold:      true,
		Scope:            r.Scope,
	}
	if r.IsActive != nil {
		policy.IsActive = *r.IsActive
	}
	if r.PauseOnWaiting != nil {
		policy.PauseOnWaiting = *r.PauseOnWaiting
	}
	if r.PauseOnHold != nil {
		policy.PauseOnHold = *r.PauseOnHold
	}
	return policy
}

// PolicyResponse is the admin-facing policy shape.
type PolicyResponse struct {
	ID               string                `json:"id"`
	Name             string                `json:"name"`
	IsDefault        bool                  `json:"is_default"`
	IsActive         bool                  `json:"is_active"`
	Response         domain.Thresholds     `json:"response_thresholds"`
	Resolution       domain.Thresholds     `json:"resolution_thresholds"`
	Calendar         domain.CalendarConfig `json:"calendar"`
	EscalationLevel1 int                   `json:"escalation_level1"`
	EscalationLevel2 int                   `json:"escalation_level2"`
	PauseOnWaiting   bool                  `json:"pause_on_waiting"`
	PauseOnHold      bool                  `json:"pause_on_hold"`
	Scope            domain.PolicyScope    `json:"scope"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

// NewPolicyResponse maps a policy aggregate to its response shape.
func NewPolicyResponse(policy *domain.SLAPolicy) PolicyResponse {
	return PolicyResponse{
		ID:               policy.ID,
		Name:             policy.Name,
		IsDefault:        policy.IsDefault,
		IsActive:         policy.IsActive,
		Response:         policy.Response,
		Resolution:       policy.Resolution,
		Calendar:         policy.Calendar,
		EscalationLevel1: policy.EscalationLevel1,
		EscalationLevel2: policy.EscalationLevel2,
		PauseOnWaiting:   policy.PauseOnWaiting,
		PauseOnHold:      policy.PauseOnHold,
		Scope:            policy.Scope,
		CreatedAt:        policy.CreatedAt,
		UpdatedAt:        policy.UpdatedAt,
	}
}
