package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wzatco/helpdesk-sla/internal/domain"
)

func weekdaySchedule(startMin, endMin int) domain.WeeklySchedule {
	s := domain.WeeklySchedule{}
	for _, d := range []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday} {
		s[d] = domain.DayWindow{Start: startMin, End: endMin}
	}
	return s
}

func businessCalendar(t *testing.T, holidays ...string) *Calendar {
	t.Helper()
	cal, err := New(domain.CalendarConfig{
		UseBusinessHours: true,
		Timezone:         "UTC",
		Schedule:         weekdaySchedule(9*60, 18*60),
		Holidays:         holidays,
	})
	require.NoError(t, err)
	return cal
}

func TestAlwaysOnCalendarMatchesWallClock(t *testing.T) {
	cal, err := New(domain.CalendarConfig{UseBusinessHours: false})
	require.NoError(t, err)

	from := time.Date(2025, 1, 10, 17, 30, 0, 0, time.UTC)
	for _, span := range []time.Duration{0, time.Minute, 47 * time.Minute, 26 * time.Hour, 9 * 24 * time.Hour} {
		to := from.Add(span)
		assert.Equal(t, int(span/time.Minute), cal.WorkingMinutesBetween(from, to))
	}
	assert.True(t, cal.IsWorkingInstant(from.Add(3*time.Hour)))

	at, err := cal.AdvanceWorkingTime(from, 240)
	require.NoError(t, err)
	assert.Equal(t, from.Add(240*time.Minute), at)
}

func TestIsWorkingInstant(t *testing.T) {
	cal := businessCalendar(t, "2025-01-01")

	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"weekday inside window", time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC), true},
		{"weekday before open", time.Date(2025, 1, 10, 8, 59, 0, 0, time.UTC), false},
		{"weekday at close", time.Date(2025, 1, 10, 18, 0, 0, 0, time.UTC), false},
		{"saturday", time.Date(2025, 1, 11, 12, 0, 0, 0, time.UTC), false},
		{"holiday", time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, cal.IsWorkingInstant(tc.at))
		})
	}
}

func TestWorkingMinutesSkipWeekend(t *testing.T) {
	cal := businessCalendar(t)

	// Friday 17:30 through Monday 10:30: 30 minutes Friday, 90 Monday.
	from := time.Date(2025, 1, 10, 17, 30, 0, 0, time.UTC)
	to := time.Date(2025, 1, 13, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, 120, cal.WorkingMinutesBetween(from, to))

	// The whole weekend contributes nothing.
	assert.Equal(t, 0, cal.WorkingMinutesBetween(
		time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 13, 9, 0, 0, 0, time.UTC)))
}

func TestWorkingMinutesExcludeHolidays(t *testing.T) {
	cal := businessCalendar(t, "2025-01-13")

	// Monday is a holiday, so Friday close through Tuesday open is zero.
	from := time.Date(2025, 1, 10, 18, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 14, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, cal.WorkingMinutesBetween(from, to))

	// A full holiday week day adds nothing to an otherwise working span.
	assert.Equal(t, 9*60, cal.WorkingMinutesBetween(
		time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 14, 23, 0, 0, 0, time.UTC)))
}

func TestAdvanceWorkingTimeSpansWeekend(t *testing.T) {
	cal := businessCalendar(t)

	from := time.Date(2025, 1, 10, 17, 30, 0, 0, time.UTC)
	at, err := cal.AdvanceWorkingTime(from, 120)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 13, 10, 30, 0, 0, time.UTC), at)

	// Advance is the inverse of the integration.
	assert.Equal(t, 120, cal.WorkingMinutesBetween(from, at))
}

func TestAdvanceStartsAtNextOpenInstant(t *testing.T) {
	cal := businessCalendar(t)

	from := time.Date(2025, 1, 11, 14, 0, 0, 0, time.UTC) // Saturday
	at, err := cal.AdvanceWorkingTime(from, 60)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 13, 10, 0, 0, 0, time.UTC), at)
}

func TestZeroLengthDayContributesNothing(t *testing.T) {
	schedule := domain.WeeklySchedule{
		time.Monday:  {Start: 9 * 60, End: 9 * 60}, // zero-length
		time.Tuesday: {Start: 9 * 60, End: 17 * 60},
	}
	cal, err := New(domain.CalendarConfig{
		UseBusinessHours: true,
		Timezone:         "UTC",
		Schedule:         schedule,
	})
	require.NoError(t, err)

	from := time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC) // Monday
	to := time.Date(2025, 1, 14, 12, 0, 0, 0, time.UTC)  // Tuesday noon
	assert.Equal(t, 3*60, cal.WorkingMinutesBetween(from, to))

	at, err := cal.AdvanceWorkingTime(from, 30)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 14, 9, 30, 0, 0, time.UTC), at)
}

func TestEmptyScheduleRejected(t *testing.T) {
	_, err := New(domain.CalendarConfig{
		UseBusinessHours: true,
		Timezone:         "UTC",
		Schedule:         domain.WeeklySchedule{time.Monday: {Closed: true}},
	})
	assert.Error(t, err)
}

func TestDayBoundaryUsesPolicyZone(t *testing.T) {
	cal, err := New(domain.CalendarConfig{
		UseBusinessHours: true,
		Timezone:         "America/New_York",
		Schedule:         weekdaySchedule(9*60, 17*60),
	})
	require.NoError(t, err)

	// 14:00 UTC on a January weekday is 09:00 in New York.
	at := time.Date(2025, 1, 10, 14, 0, 0, 0, time.UTC)
	assert.True(t, cal.IsWorkingInstant(at))
	assert.False(t, cal.IsWorkingInstant(at.Add(-time.Minute)))
}

func TestWorkingMinutesMonotonic(t *testing.T) {
	cal := businessCalendar(t)
	from := time.Date(2025, 1, 9, 16, 0, 0, 0, time.UTC)

	prev := -1
	for step := 0; step < 8*24; step++ {
		to := from.Add(time.Duration(step) * time.Hour)
		got := cal.WorkingMinutesBetween(from, to)
		assert.GreaterOrEqual(t, got, prev)
		prev = got
	}
}
