package domain

import "time"

// SLABreach is written exactly once when a timer's remaining time first
// reaches zero. Reporting-only; never mutated.
type SLABreach struct {
	ID            string
	TicketID      string
	TimerID       string
	Metric        Metric
	TargetMinutes int
	BreachedAt    time.Time
	CreatedAt     time.Time
}

// SLAEscalation records one escalation firing. The (TimerID, Level)
// pair is unique, which is what prevents duplicate firings across
// sweeps.
type SLAEscalation struct {
	ID               string
	TicketID         string
	TimerID          string
	Metric           Metric
	Level            RiskLevel
	RemainingMinutes int
	FiredAt          time.Time
}
