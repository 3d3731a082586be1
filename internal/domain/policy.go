package domain

import (
	"fmt"
	"time"
)

// Metric identifies which clock a threshold or timer tracks.
type Metric string

const (
	MetricResponse   Metric = "RESPONSE"
	MetricResolution Metric = "RESOLUTION"
)

// DayWindow is a single day's working window, minutes from midnight in
// the policy timezone. Closed days carry Closed=true; a window with
// Start==End contributes zero working minutes.
type DayWindow struct {
	Closed bool `json:"closed"`
	Start  int  `json:"start"`
	End    int  `json:"end"`
}

// Minutes returns the working-minute length of the window.
func (w DayWindow) Minutes() int {
	if w.Closed || w.End <= w.Start {
		return 0
	}
	return w.End - w.Start
}

// WeeklySchedule maps weekdays to working windows. Absent weekdays are
// treated as closed.
type WeeklySchedule map[time.Weekday]DayWindow

// OpenMinutesPerWeek sums the schedule's working minutes across a week.
func (s WeeklySchedule) OpenMinutesPerWeek() int {
	total := 0
	for _, w := range s {
		total += w.Minutes()
	}
	return total
}

// CalendarConfig is the typed calendar portion of a policy. It is
// decoded once at the repository boundary; calendar math never sees
// serialized text.
type CalendarConfig struct {
	UseBusinessHours bool           `json:"use_business_hours"`
	Timezone         string         `json:"timezone"`
	Schedule         WeeklySchedule `json:"schedule"`
	Holidays         []string       `json:"holidays"` // YYYY-MM-DD in the policy timezone
}

// Thresholds holds per-priority targets in minutes for one metric.
type Thresholds struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
	Urgent int `json:"urgent"`
}

// For resolves the threshold for a priority, defaulting to Medium for
// unknown values.
func (t Thresholds) For(priority TicketPriority) int {
	switch priority {
	case TicketPriorityLow:
		return t.Low
	case TicketPriorityHigh:
		return t.High
	case TicketPriorityUrgent:
		return t.Urgent
	default:
		return t.Medium
	}
}

// PolicyScope restricts which tickets a policy applies to. Empty lists
// mean the policy only applies as the default fallback.
type PolicyScope struct {
	DepartmentIDs []string `json:"department_ids"`
	CategoryIDs   []string `json:"category_ids"`
}

// Matches reports whether the ticket falls inside the scope.
func (s PolicyScope) Matches(ticket *Ticket) bool {
	for _, id := range s.DepartmentIDs {
		if id == ticket.DepartmentID {
			return true
		}
	}
	if ticket.CategoryID != nil {
		for _, id := range s.CategoryIDs {
			if id == *ticket.CategoryID {
				return true
			}
		}
	}
	return false
}

// IsEmpty reports whether the scope restricts nothing.
func (s PolicyScope) IsEmpty() bool {
	return len(s.DepartmentIDs) == 0 && len(s.CategoryIDs) == 0
}

// SLAPolicy is immutable configuration selected per ticket. Targets
// are frozen into timers at creation; editing a policy never alters
// running timers.
type SLAPolicy struct {
	ID         string
	Name       string
	IsDefault  bool
	IsActive   bool
	Response   Thresholds
	Resolution Thresholds
	Calendar   CalendarConfig
	// EscalationLevel1/2 are percentages of the target at which the
	// at-risk signals fire. Level1 < Level2.
	EscalationLevel1 int
	EscalationLevel2 int
	PauseOnWaiting   bool
	PauseOnHold      bool
	Scope            PolicyScope
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Target returns the frozen target minutes for a metric and priority.
func (p *SLAPolicy) Target(metric Metric, priority TicketPriority) int {
	if metric == MetricResponse {
		return p.Response.For(priority)
	}
	return p.Resolution.For(priority)
}

// PausesOn reports whether the policy pauses timers for the given
// ticket status. Off-hours time is excluded by calendar integration,
// not by a pause state.
func (p *SLAPolicy) PausesOn(status TicketStatus) bool {
	switch status {
	case TicketStatusPendingUser:
		return p.PauseOnWaiting
	case TicketStatusOnHold:
		return p.PauseOnHold
	default:
		return false
	}
}

// Validate rejects malformed policies at save time so calendar math
// never fails mid-computation.
func (p *SLAPolicy) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("policy name required")
	}
	for metric, t := range map[Metric]Thresholds{MetricResponse: p.Response, MetricResolution: p.Resolution} {
		for prio, v := range map[TicketPriority]int{
			TicketPriorityLow:    t.Low,
			TicketPriorityMedium: t.Medium,
			TicketPriorityHigh:   t.High,
			TicketPriorityUrgent: t.Urgent,
		} {
			if v <= 0 {
				return fmt.Errorf("%s threshold for %s must be positive", metric, prio)
			}
		}
	}
	if p.EscalationLevel1 <= 0 || p.EscalationLevel1 > 100 {
		return fmt.Errorf("escalation level1 must be within (0,100]")
	}
	if p.EscalationLevel2 <= 0 || p.EscalationLevel2 > 100 {
		return fmt.Errorf("escalation level2 must be within (0,100]")
	}
	if p.EscalationLevel1 >= p.EscalationLevel2 {
		return fmt.Errorf("escalation level1 must be below level2")
	}
	return p.Calendar.Validate()
}

// Validate checks schedule shape, holidays and timezone.
func (c CalendarConfig) Validate() error {
	if !c.UseBusinessHours {
		return nil
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("unknown timezone %q", c.Timezone)
	}
	for day, w := range c.Schedule {
		if w.Closed {
			continue
		}
		if w.Start < 0 || w.End > 24*60 {
			return fmt.Errorf("%s window out of range", day)
		}
		if w.Start > w.End {
			return fmt.Errorf("%s window start after end", day)
		}
	}
	if c.Schedule.OpenMinutesPerWeek() == 0 {
		return fmt.Errorf("schedule has no open minutes")
	}
	for _, h := range c.Holidays {
		if _, err := time.Parse("2006-01-02", h); err != nil {
			return fmt.Errorf("invalid holiday date %q", h)
		}
	}
	return nil
}
