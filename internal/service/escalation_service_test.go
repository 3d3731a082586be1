package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wzatco/helpdesk-sla/internal/domain"
	"github.com/wzatco/helpdesk-sla/internal/events"
	"github.com/wzatco/helpdesk-sla/internal/observability"
)

func newEscalationFixture(dedup Deduper) (*EscalationService, *fakeEscalationRepo, *recordingDispatcher) {
	repo := newFakeEscalationRepo()
	dispatcher := &recordingDispatcher{}
	svc := NewEscalationService(EscalationDependencies{
		EscalationRepo: repo,
		Dedup:          dedup,
		Dispatcher:     dispatcher,
		Logger:         zap.NewNop(),
		Metrics:        observability.NewMetrics(),
	})
	return svc, repo, dispatcher
}

func escalationTimer() *domain.SLATimer {
	return &domain.SLATimer{
		ID:            "timer-1",
		TicketID:      "t1",
		PolicyID:      "policy-1",
		Metric:        domain.MetricResponse,
		Status:        domain.TimerStatusRunning,
		StartedAt:     baseTime,
		TargetMinutes: 60,
	}
}

func TestCheckAndFireRecordsEachCrossedLevelOnce(t *testing.T) {
	svc, repo, dispatcher := newEscalationFixture(nil)
	ctx := context.Background()
	timer := escalationTimer()

	comp := Computation{Elapsed: 90, Remaining: -30, Risk: domain.RiskBreached}
	require.NoError(t, svc.CheckAndFire(ctx, timer, comp, baseTime.Add(90*time.Minute)))

	records, err := repo.ListByTimer(ctx, timer.ID)
	require.NoError(t, err)
	assert.Len(t, records, 3, "a timer jumping straight past target crosses all three levels")
	assert.Len(t, dispatcher.ofType(events.EventEscalated), 3)

	require.NoError(t, svc.CheckAndFire(ctx, timer, comp, baseTime.Add(2*time.Hour)))
	records, err = repo.ListByTimer(ctx, timer.ID)
	require.NoError(t, err)
	assert.Len(t, records, 3, "repeat checks add nothing")
	assert.Len(t, dispatcher.ofType(events.EventEscalated), 3)
}

func TestCheckAndFireEscalatesGradually(t *testing.T) {
	svc, repo, _ := newEscalationFixture(nil)
	ctx := context.Background()
	timer := escalationTimer()

	require.NoError(t, svc.CheckAndFire(ctx, timer, Computation{Elapsed: 46, Remaining: 14, Risk: domain.RiskLevel1}, baseTime))
	records, err := repo.ListByTimer(ctx, timer.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.RiskLevel1, records[0].Level)

	require.NoError(t, svc.CheckAndFire(ctx, timer, Computation{Elapsed: 55, Remaining: 5, Risk: domain.RiskLevel2}, baseTime))
	records, err = repo.ListByTimer(ctx, timer.ID)
	require.NoError(t, err)
	assert.Len(t, records, 2, "level 2 adds one record; level 1 is already on file")
}

func TestCheckAndFireBelowFirstThresholdIsQuiet(t *testing.T) {
	svc, repo, dispatcher := newEscalationFixture(nil)
	ctx := context.Background()
	timer := escalationTimer()

	require.NoError(t, svc.CheckAndFire(ctx, timer, Computation{Elapsed: 10, Remaining: 50, Risk: domain.RiskNone}, baseTime))

	records, err := repo.ListByTimer(ctx, timer.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Empty(t, dispatcher.published)
}

func TestDedupWindowSuppressesDispatchNotRecords(t *testing.T) {
	dedup := &blockingDeduper{allow: false}
	svc, repo, dispatcher := newEscalationFixture(dedup)
	ctx := context.Background()
	timer := escalationTimer()

	comp := Computation{Elapsed: 90, Remaining: -30, Risk: domain.RiskBreached}
	require.NoError(t, svc.CheckAndFire(ctx, timer, comp, baseTime))

	records, err := repo.ListByTimer(ctx, timer.ID)
	require.NoError(t, err)
	assert.Len(t, records, 3, "records are the audit trail; the window only gates notifications")
	assert.Empty(t, dispatcher.ofType(events.EventEscalated))
	assert.Equal(t, 3, dedup.calls)
}

func TestDedupWindowOpenAllowsDispatch(t *testing.T) {
	dedup := &blockingDeduper{allow: true}
	svc, _, dispatcher := newEscalationFixture(dedup)
	ctx := context.Background()

	comp := Computation{Elapsed: 46, Remaining: 14, Risk: domain.RiskLevel1}
	require.NoError(t, svc.CheckAndFire(ctx, escalationTimer(), comp, baseTime))

	published := dispatcher.ofType(events.EventEscalated)
	require.Len(t, published, 1)
	payload, ok := published[0].Payload.(events.EscalationPayload)
	require.True(t, ok)
	assert.Equal(t, domain.RiskLevel1, payload.Level)
	assert.Equal(t, 14, payload.RemainingMinutes)
}
