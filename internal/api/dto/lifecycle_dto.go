package dto

import (
	"time"

	"github.com/wzatco/helpdesk-sla/internal/domain"
)

// FirstResponseRequest marks the instant the first agent reply landed.
// A zero At defaults to the server clock.
type FirstResponseRequest struct {
	At time.Time `json:"at"`
}

// StatusChangedRequest describes a ticket status transition.
type StatusChangedRequest struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	At        time.Time           `json:"at"`
}

// TicketDeletedRequest marks a ticket deletion.
type TicketDeletedRequest struct {
	At time.Time `json:"at"`
}
