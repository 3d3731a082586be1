package events

import (
	"time"

	"github.com/wzatco/helpdesk-sla/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTimerStarted   EventType = "sla_timer_started"
	EventTimerPaused    EventType = "sla_timer_paused"
	EventTimerResumed   EventType = "sla_timer_resumed"
	EventTimerCompleted EventType = "sla_timer_completed"
	EventTimerCancelled EventType = "sla_timer_cancelled"
	EventBreached       EventType = "sla_breached"
	EventEscalated      EventType = "sla_escalated"
)

// Event represents a domain event emitted by the timer engine.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TimerPayload describes a timer lifecycle event.
type TimerPayload struct {
	TimerID       string             `json:"timer_id"`
	Metric        domain.Metric      `json:"metric"`
	Status        domain.TimerStatus `json:"status"`
	TargetMinutes int                `json:"target_minutes"`
}

// BreachPayload describes a breach detection.
type BreachPayload struct {
	TimerID       string        `json:"timer_id"`
	Metric        domain.Metric `json:"metric"`
	TargetMinutes int           `json:"target_minutes"`
	BreachedAt    time.Time     `json:"breached_at"`
}

// EscalationPayload describes one escalation firing.
type EscalationPayload struct {
	TimerID          string           `json:"timer_id"`
	Metric           domain.Metric    `json:"metric"`
	Level            domain.RiskLevel `json:"risk_level"`
	RemainingMinutes int              `json:"remaining_minutes"`
	AssigneeID       *string          `json:"assignee_id,omitempty"`
}
