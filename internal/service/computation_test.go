package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wzatco/helpdesk-sla/internal/calendar"
	"github.com/wzatco/helpdesk-sla/internal/domain"
)

func businessHoursPolicy() *domain.SLAPolicy {
	return testPolicy(func(p *domain.SLAPolicy) {
		p.Calendar = domain.CalendarConfig{
			UseBusinessHours: true,
			Timezone:         "UTC",
			Schedule: domain.WeeklySchedule{
				time.Monday:    {Start: 9 * 60, End: 17 * 60},
				time.Tuesday:   {Start: 9 * 60, End: 17 * 60},
				time.Wednesday: {Start: 9 * 60, End: 17 * 60},
				time.Thursday:  {Start: 9 * 60, End: 17 * 60},
				time.Friday:    {Start: 9 * 60, End: 17 * 60},
			},
		}
	})
}

func TestComputeTimerSubtractsWorkingContentOfPauses(t *testing.T) {
	policy := businessHoursPolicy()
	cal, err := calendar.New(policy.Calendar)
	require.NoError(t, err)

	// Paused Monday 16:00, resumed Tuesday 10:00. The pause spans one
	// working hour Monday and one Tuesday; the night between is already
	// outside the schedule.
	resumed := baseTime.Add(25 * time.Hour)
	timer := &domain.SLATimer{
		Status:        domain.TimerStatusRunning,
		StartedAt:     baseTime,
		TargetMinutes: 960,
		Pauses: []domain.PauseInterval{
			{PausedAt: baseTime.Add(7 * time.Hour), ResumedAt: &resumed},
		},
	}

	comp := computeTimer(cal, policy, timer, baseTime.Add(27*time.Hour)) // Tuesday 12:00
	assert.Equal(t, 540, comp.Elapsed)
	assert.Equal(t, 420, comp.Remaining)
}

func TestComputeTimerPauseOutsideScheduleSubtractsNothing(t *testing.T) {
	policy := businessHoursPolicy()
	cal, err := calendar.New(policy.Calendar)
	require.NoError(t, err)

	// Paused Monday 18:00 to Tuesday 08:00, entirely off-hours. Those
	// minutes were never counted, so the pause must not subtract them
	// a second time.
	resumed := baseTime.Add(23 * time.Hour)
	timer := &domain.SLATimer{
		Status:        domain.TimerStatusRunning,
		StartedAt:     baseTime,
		TargetMinutes: 960,
		Pauses: []domain.PauseInterval{
			{PausedAt: baseTime.Add(9 * time.Hour), ResumedAt: &resumed},
		},
	}

	comp := computeTimer(cal, policy, timer, baseTime.Add(27*time.Hour))
	assert.Equal(t, 660, comp.Elapsed)
}

func TestComputeTimerOpenPauseRunsToClockStop(t *testing.T) {
	policy := testPolicy()
	cal, err := calendar.New(policy.Calendar)
	require.NoError(t, err)

	timer := &domain.SLATimer{
		Status:        domain.TimerStatusPaused,
		StartedAt:     baseTime,
		TargetMinutes: 240,
		Pauses: []domain.PauseInterval{
			{PausedAt: baseTime.Add(30 * time.Minute)},
		},
	}

	// However long the pause lasts, elapsed stays frozen at 30.
	for _, now := range []time.Time{
		baseTime.Add(time.Hour),
		baseTime.Add(8 * time.Hour),
		baseTime.Add(72 * time.Hour),
	} {
		comp := computeTimer(cal, policy, timer, now)
		assert.Equal(t, 30, comp.Elapsed)
	}
}

func TestComputeTimerCompletedTimerIgnoresNow(t *testing.T) {
	policy := testPolicy()
	cal, err := calendar.New(policy.Calendar)
	require.NoError(t, err)

	completedAt := baseTime.Add(45 * time.Minute)
	timer := &domain.SLATimer{
		Status:        domain.TimerStatusCompleted,
		StartedAt:     baseTime,
		TargetMinutes: 60,
		CompletedAt:   &completedAt,
	}

	comp := computeTimer(cal, policy, timer, baseTime.Add(10*time.Hour))
	assert.Equal(t, 45, comp.Elapsed)
	assert.Equal(t, 15, comp.Remaining)
}

func TestComputeTimerIsIdempotent(t *testing.T) {
	policy := businessHoursPolicy()
	cal, err := calendar.New(policy.Calendar)
	require.NoError(t, err)

	resumed := baseTime.Add(25 * time.Hour)
	timer := &domain.SLATimer{
		Status:        domain.TimerStatusRunning,
		StartedAt:     baseTime,
		TargetMinutes: 960,
		Pauses: []domain.PauseInterval{
			{PausedAt: baseTime.Add(7 * time.Hour), ResumedAt: &resumed},
		},
	}

	now := baseTime.Add(27 * time.Hour)
	first := computeTimer(cal, policy, timer, now)
	second := computeTimer(cal, policy, timer, now)
	assert.Equal(t, first, second)
}
