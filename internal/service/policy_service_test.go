package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wzatco/helpdesk-sla/internal/domain"
	apperrors "github.com/wzatco/helpdesk-sla/pkg/util"
)

func newPolicyFixture() (*PolicyService, *fakePolicyRepo, *fakeTimerRepo) {
	policyRepo := &fakePolicyRepo{}
	timerRepo := &fakeTimerRepo{}
	svc := NewPolicyService(PolicyDependencies{
		PolicyRepo: policyRepo,
		TimerRepo:  timerRepo,
		Logger:     zap.NewNop(),
	})
	return svc, policyRepo, timerRepo
}

func errCode(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	return apperrors.ToDomainError(err).Code
}

func TestCreateRejectsNonPositiveThreshold(t *testing.T) {
	svc, _, _ := newPolicyFixture()
	policy := testPolicy(func(p *domain.SLAPolicy) {
		p.Response.High = 0
	})
	err := svc.Create(context.Background(), policy)
	assert.Equal(t, "VALIDATION_FAILED", errCode(t, err))
}

func TestCreateRejectsInvertedEscalationLevels(t *testing.T) {
	svc, _, _ := newPolicyFixture()
	policy := testPolicy(func(p *domain.SLAPolicy) {
		p.EscalationLevel1 = 90
		p.EscalationLevel2 = 75
	})
	err := svc.Create(context.Background(), policy)
	assert.Equal(t, "VALIDATION_FAILED", errCode(t, err))
}

func TestCreateRejectsUnknownTimezone(t *testing.T) {
	svc, _, _ := newPolicyFixture()
	policy := testPolicy(func(p *domain.SLAPolicy) {
		p.Calendar = domain.CalendarConfig{
			UseBusinessHours: true,
			Timezone:         "Mars/Olympus_Mons",
			Schedule: domain.WeeklySchedule{
				time.Monday: {Start: 9 * 60, End: 17 * 60},
			},
		}
	})
	err := svc.Create(context.Background(), policy)
	require.Error(t, err)
}

func TestCreateRejectsScheduleWithNoOpenMinutes(t *testing.T) {
	svc, _, _ := newPolicyFixture()
	policy := testPolicy(func(p *domain.SLAPolicy) {
		p.Calendar = domain.CalendarConfig{
			UseBusinessHours: true,
			Timezone:         "UTC",
			Schedule: domain.WeeklySchedule{
				time.Monday: {Closed: true},
			},
		}
	})
	err := svc.Create(context.Background(), policy)
	require.Error(t, err)
}

func TestResolvePrefersScopedMatchOverDefault(t *testing.T) {
	svc, repo, _ := newPolicyFixture()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, testPolicy()))
	scoped := testPolicy(func(p *domain.SLAPolicy) {
		p.Name = "vip-desk"
		p.IsDefault = false
		p.Scope = domain.PolicyScope{DepartmentIDs: []string{"dept-1"}}
	})
	require.NoError(t, repo.Create(ctx, scoped))

	resolved, err := svc.Resolve(ctx, testTicket("t1"))
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, scoped.ID, resolved.ID)
}

func TestResolveNewestScopedPolicyWinsTies(t *testing.T) {
	svc, repo, _ := newPolicyFixture()
	ctx := context.Background()
	older := testPolicy(func(p *domain.SLAPolicy) {
		p.Name = "old-scope"
		p.IsDefault = false
		p.Scope = domain.PolicyScope{DepartmentIDs: []string{"dept-1"}}
	})
	newer := testPolicy(func(p *domain.SLAPolicy) {
		p.Name = "new-scope"
		p.IsDefault = false
		p.Scope = domain.PolicyScope{DepartmentIDs: []string{"dept-1"}}
	})
	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))

	resolved, err := svc.Resolve(ctx, testTicket("t1"))
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, newer.ID, resolved.ID)
}

func TestResolveMatchesOnCategory(t *testing.T) {
	svc, repo, _ := newPolicyFixture()
	ctx := context.Background()
	scoped := testPolicy(func(p *domain.SLAPolicy) {
		p.IsDefault = false
		p.Scope = domain.PolicyScope{CategoryIDs: []string{"billing"}}
	})
	require.NoError(t, repo.Create(ctx, scoped))

	ticket := testTicket("t1")
	category := "billing"
	ticket.CategoryID = &category

	resolved, err := svc.Resolve(ctx, ticket)
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, scoped.ID, resolved.ID)
}

func TestResolveFallsBackToDefault(t *testing.T) {
	svc, repo, _ := newPolicyFixture()
	ctx := context.Background()
	def := testPolicy()
	require.NoError(t, repo.Create(ctx, def))
	scoped := testPolicy(func(p *domain.SLAPolicy) {
		p.IsDefault = false
		p.Scope = domain.PolicyScope{DepartmentIDs: []string{"dept-other"}}
	})
	require.NoError(t, repo.Create(ctx, scoped))

	resolved, err := svc.Resolve(ctx, testTicket("t1"))
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, def.ID, resolved.ID)
}

func TestResolveReturnsNilWhenNothingApplies(t *testing.T) {
	svc, repo, _ := newPolicyFixture()
	ctx := context.Background()
	inactive := testPolicy(func(p *domain.SLAPolicy) {
		p.IsActive = false
	})
	require.NoError(t, repo.Create(ctx, inactive))

	resolved, err := svc.Resolve(ctx, testTicket("t1"))
	require.NoError(t, err, "an untracked ticket is not an error")
	assert.Nil(t, resolved)
}

func TestDeleteBlockedWhileTimersReferencePolicy(t *testing.T) {
	svc, repo, timers := newPolicyFixture()
	ctx := context.Background()
	policy := testPolicy()
	require.NoError(t, repo.Create(ctx, policy))
	require.NoError(t, timers.Create(ctx, &domain.SLATimer{
		TicketID:      "t1",
		PolicyID:      policy.ID,
		Metric:        domain.MetricResponse,
		Status:        domain.TimerStatusRunning,
		StartedAt:     baseTime,
		TargetMinutes: 60,
	}))

	err := svc.Delete(ctx, policy.ID)
	assert.Equal(t, "CONFLICT", errCode(t, err))

	require.NoError(t, timers.Cancel(ctx, "timer-1", baseTime.Add(time.Minute)))
	assert.NoError(t, svc.Delete(ctx, policy.ID), "deletion proceeds once timers are terminal")
}

func TestSetDefaultOnMissingPolicy(t *testing.T) {
	svc, _, _ := newPolicyFixture()
	err := svc.SetDefault(context.Background(), "nope")
	assert.Equal(t, "NOT_FOUND", errCode(t, err))
}

func TestSetDefaultMovesFlagAtomically(t *testing.T) {
	svc, repo, _ := newPolicyFixture()
	ctx := context.Background()
	first := testPolicy()
	require.NoError(t, repo.Create(ctx, first))
	second := testPolicy(func(p *domain.SLAPolicy) {
		p.Name = "next-default"
		p.IsDefault = false
	})
	require.NoError(t, repo.Create(ctx, second))

	require.NoError(t, svc.SetDefault(ctx, second.ID))

	def, err := repo.GetDefault(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, def.ID)
}
