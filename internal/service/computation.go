package service

import (
	"sync"
	"time"

	"github.com/wzatco/helpdesk-sla/internal/calendar"
	"github.com/wzatco/helpdesk-sla/internal/domain"
)

// Computation is the result of one timer recompute. It depends only on
// the policy calendar, the timer's immutable inputs (StartedAt, target,
// pause markers) and the clock-stop instant, so recomputing is
// idempotent and safe to race: last writer wins with the same values.
type Computation struct {
	Elapsed   int
	Remaining int
	Risk      domain.RiskLevel
}

// computeTimer integrates working time from StartedAt to the timer's
// clock stop, then subtracts the working-minute content of each pause
// interval. Pauses are excluded through the same calendar integration,
// so off-hours minutes inside a pause are never subtracted twice.
func computeTimer(cal *calendar.Calendar, policy *domain.SLAPolicy, timer *domain.SLATimer, now time.Time) Computation {
	stop := timer.ClockStop(now)
	elapsed := cal.WorkingMinutesBetween(timer.StartedAt, stop)

	for _, pause := range timer.Pauses {
		from := pause.PausedAt
		if from.Before(timer.StartedAt) {
			from = timer.StartedAt
		}
		to := stop
		if pause.ResumedAt != nil && pause.ResumedAt.Before(stop) {
			to = *pause.ResumedAt
		}
		elapsed -= cal.WorkingMinutesBetween(from, to)
	}
	if elapsed < 0 {
		elapsed = 0
	}

	return Computation{
		Elapsed:   elapsed,
		Remaining: timer.TargetMinutes - elapsed,
		Risk:      domain.ClassifyRisk(elapsed, timer.TargetMinutes, policy.EscalationLevel1, policy.EscalationLevel2),
	}
}

// calendarCache memoizes built calendars per policy revision. Editing a
// policy changes UpdatedAt, which rotates the cache key.
type calendarCache struct {
	mu    sync.Mutex
	cache map[string]*calendar.Calendar
}

func newCalendarCache() *calendarCache {
	return &calendarCache{cache: make(map[string]*calendar.Calendar)}
}

func (c *calendarCache) For(policy *domain.SLAPolicy) (*calendar.Calendar, error) {
	key := policy.ID + "|" + policy.UpdatedAt.UTC().Format(time.RFC3339Nano)
	c.mu.Lock()
	defer c.mu.Unlock()
	if cal, ok := c.cache[key]; ok {
		return cal, nil
	}
	cal, err := calendar.New(policy.Calendar)
	if err != nil {
		return nil, err
	}
	c.cache[key] = cal
	return cal, nil
}
