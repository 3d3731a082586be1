package service

import (
	"time"

	"github.com/wzatco/helpdesk-sla/internal/domain"
)

// TimerView is the UI-facing shape of one SLA clock.
type TimerView struct {
	TimerID          string             `json:"timer_id"`
	Metric           domain.Metric      `json:"metric"`
	Status           domain.TimerStatus `json:"status"`
	TargetMinutes    int                `json:"target_minutes"`
	ElapsedMinutes   int                `json:"elapsed_minutes"`
	RemainingMinutes int                `json:"remaining_minutes"`
	RiskLevel        domain.RiskLevel   `json:"risk_level"`
	StartedAt        time.Time          `json:"started_at"`
	CompletedAt      *time.Time         `json:"completed_at,omitempty"`
}

// TicketSLAView pairs the response and resolution views for a ticket.
// Either side may be nil when the ticket is untracked for that metric.
type TicketSLAView struct {
	TicketID   string     `json:"ticket_id"`
	Response   *TimerView `json:"response,omitempty"`
	Resolution *TimerView `json:"resolution,omitempty"`
	ComputedAt time.Time  `json:"computed_at"`
}

func newTimerView(timer *domain.SLATimer, comp Computation) *TimerView {
	return &TimerView{
		TimerID:          timer.ID,
		Metric:           timer.Metric,
		Status:           timer.Status,
		TargetMinutes:    timer.TargetMinutes,
		ElapsedMinutes:   comp.Elapsed,
		RemainingMinutes: comp.Remaining,
		RiskLevel:        comp.Risk,
		StartedAt:        timer.StartedAt,
		CompletedAt:      timer.CompletedAt,
	}
}
