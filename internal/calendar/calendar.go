package calendar

import (
	"fmt"
	"time"

	"github.com/wzatco/helpdesk-sla/internal/domain"
)

// maxAdvanceDays bounds the forward walk in AdvanceWorkingTime. Policy
// validation already rejects schedules with no open minutes, so the
// guard only trips on data corrupted after save.
const maxAdvanceDays = 3700

// Calendar answers working-time questions for one policy's calendar
// config. It is a pure function of the config and holds no state.
type Calendar struct {
	useBusinessHours bool
	loc              *time.Location
	schedule         domain.WeeklySchedule
	holidays         map[string]bool
}

// New builds a calendar from typed policy config. The config must have
// passed domain validation; New re-checks the parts it depends on.
func New(cfg domain.CalendarConfig) (*Calendar, error) {
	cal := &Calendar{
		useBusinessHours: cfg.UseBusinessHours,
		loc:              time.UTC,
		schedule:         cfg.Schedule,
		holidays:         make(map[string]bool, len(cfg.Holidays)),
	}
	if !cfg.UseBusinessHours {
		return cal, nil
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}
	cal.loc = loc
	if cfg.Schedule.OpenMinutesPerWeek() == 0 {
		return nil, fmt.Errorf("schedule has no open minutes")
	}
	for _, h := range cfg.Holidays {
		cal.holidays[h] = true
	}
	return cal, nil
}

// IsWorkingInstant reports whether t falls inside working time. Always
// true in 24/7 mode.
func (c *Calendar) IsWorkingInstant(t time.Time) bool {
	if !c.useBusinessHours {
		return true
	}
	local := t.In(c.loc)
	start, end, open := c.windowOn(local)
	if !open {
		return false
	}
	return !local.Before(start) && local.Before(end)
}

// WorkingMinutesBetween integrates working time over [from, to). In
// 24/7 mode this is plain wall-clock minutes.
func (c *Calendar) WorkingMinutesBetween(from, to time.Time) int {
	if !to.After(from) {
		return 0
	}
	if !c.useBusinessHours {
		return int(to.Sub(from) / time.Minute)
	}

	total := 0
	cursor := from.In(c.loc)
	end := to.In(c.loc)
	for day := 0; ; day++ {
		if day > maxAdvanceDays {
			break
		}
		winStart, winEnd, open := c.windowOn(cursor)
		if open {
			lo := winStart
			if cursor.After(lo) {
				lo = cursor
			}
			hi := winEnd
			if end.Before(hi) {
				hi = end
			}
			if hi.After(lo) {
				total += int(hi.Sub(lo) / time.Minute)
			}
		}
		next := startOfNextDay(cursor, c.loc)
		if !next.Before(end) {
			break
		}
		cursor = next
	}
	return total
}

// AdvanceWorkingTime walks forward from `from`, consuming `minutes` of
// working time and returning the resulting wall-clock instant. It is
// the inverse of WorkingMinutesBetween over the same interval.
func (c *Calendar) AdvanceWorkingTime(from time.Time, minutes int) (time.Time, error) {
	if minutes <= 0 {
		return from, nil
	}
	if !c.useBusinessHours {
		return from.Add(time.Duration(minutes) * time.Minute), nil
	}

	remaining := minutes
	cursor := from.In(c.loc)
	for day := 0; day <= maxAdvanceDays; day++ {
		winStart, winEnd, open := c.windowOn(cursor)
		if open {
			if cursor.Before(winStart) {
				cursor = winStart
			}
			if cursor.Before(winEnd) {
				avail := int(winEnd.Sub(cursor) / time.Minute)
				if avail >= remaining {
					return cursor.Add(time.Duration(remaining) * time.Minute), nil
				}
				remaining -= avail
			}
		}
		cursor = startOfNextDay(cursor, c.loc)
	}
	return time.Time{}, fmt.Errorf("no working time within %d days of %s", maxAdvanceDays, from)
}

// windowOn resolves the working window for the calendar day containing
// local. Holidays and closed/zero-length days report open=false.
func (c *Calendar) windowOn(local time.Time) (start, end time.Time, open bool) {
	if c.holidays[local.Format("2006-01-02")] {
		return time.Time{}, time.Time{}, false
	}
	w, ok := c.schedule[local.Weekday()]
	if !ok || w.Minutes() == 0 {
		return time.Time{}, time.Time{}, false
	}
	y, m, d := local.Date()
	start = time.Date(y, m, d, w.Start/60, w.Start%60, 0, 0, c.loc)
	end = time.Date(y, m, d, w.End/60, w.End%60, 0, 0, c.loc)
	return start, end, true
}

func startOfNextDay(local time.Time, loc *time.Location) time.Time {
	y, m, d := local.In(loc).Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, loc)
}
