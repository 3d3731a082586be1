package domain

import "time"

// TimerStatus enumerates SLA timer states. Breach is not a status:
// a breached timer keeps running until completed or cancelled, and the
// breach shows up as RiskBreached in the computed risk level.
type TimerStatus string

const (
	TimerStatusRunning   TimerStatus = "RUNNING"
	TimerStatusPaused    TimerStatus = "PAUSED"
	TimerStatusCompleted TimerStatus = "COMPLETED"
	TimerStatusCancelled TimerStatus = "CANCELLED"
)

// IsTerminal reports whether the timer will never accrue time again.
func (s TimerStatus) IsTerminal() bool {
	return s == TimerStatusCompleted || s == TimerStatusCancelled
}

// RiskLevel classifies how close a timer is to its target.
type RiskLevel string

const (
	RiskNone     RiskLevel = "NONE"
	RiskLevel1   RiskLevel = "LEVEL_1"
	RiskLevel2   RiskLevel = "LEVEL_2"
	RiskBreached RiskLevel = "BREACHED"
)

// rank orders risk levels for monotonic comparisons.
func (r RiskLevel) rank() int {
	switch r {
	case RiskLevel1:
		return 1
	case RiskLevel2:
		return 2
	case RiskBreached:
		return 3
	default:
		return 0
	}
}

// AtLeast reports whether r is at or above other.
func (r RiskLevel) AtLeast(other RiskLevel) bool {
	return r.rank() >= other.rank()
}

// PauseInterval records one pause span. ResumedAt is nil while the
// pause is still open.
type PauseInterval struct {
	ID        string
	TimerID   string
	PausedAt  time.Time
	ResumedAt *time.Time
}

// SLATimer is the per-ticket, per-metric clock. Immutable inputs
// (StartedAt, TargetMinutes, pause markers) plus wall time fully
// determine the derived fields, so recomputation is idempotent.
type SLATimer struct {
	ID            string
	TicketID      string
	PolicyID      string
	Metric        Metric
	Status        TimerStatus
	StartedAt     time.Time
	TargetMinutes int
	PausedAt      *time.Time
	CompletedAt   *time.Time
	Pauses        []PauseInterval

	// Derived on every recompute; frozen once the timer is terminal.
	ElapsedMinutes   int
	RemainingMinutes int
	RiskLevel        RiskLevel

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ClockStop returns the instant accrual stops for computation purposes:
// CompletedAt for terminal timers, otherwise now.
func (t *SLATimer) ClockStop(now time.Time) time.Time {
	if t.Status.IsTerminal() && t.CompletedAt != nil {
		return *t.CompletedAt
	}
	return now
}

// ClassifyRisk maps elapsed minutes against the policy's escalation
// percentages. Breach wins over both levels.
func ClassifyRisk(elapsed, target, level1Pct, level2Pct int) RiskLevel {
	if target <= 0 || elapsed >= target {
		return RiskBreached
	}
	if level2Pct > 0 && elapsed*100 >= target*level2Pct {
		return RiskLevel2
	}
	if level1Pct > 0 && elapsed*100 >= target*level1Pct {
		return RiskLevel1
	}
	return RiskNone
}

// EscalationLevels lists the levels a timer at the given risk has
// crossed, lowest first.
func EscalationLevels(risk RiskLevel) []RiskLevel {
	levels := []RiskLevel{RiskLevel1, RiskLevel2, RiskBreached}
	crossed := make([]RiskLevel, 0, len(levels))
	for _, lvl := range levels {
		if risk.AtLeast(lvl) {
			crossed = append(crossed, lvl)
		}
	}
	return crossed
}
