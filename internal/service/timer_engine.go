package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/wzatco/helpdesk-sla/internal/domain"
	"github.com/wzatco/helpdesk-sla/internal/events"
	"github.com/wzatco/helpdesk-sla/internal/observability"
	"github.com/wzatco/helpdesk-sla/internal/persistence"
	"github.com/wzatco/helpdesk-sla/internal/repository"
	apperrors "github.com/wzatco/helpdesk-sla/pkg/util"
)

// TimerEngine orchestrates SLA timers across the ticket lifecycle:
// creation on ticket creation, pause/resume on status changes, and the
// periodic sweep that recomputes risk and detects breaches.
type TimerEngine struct {
	tickets     repository.TicketStore
	timers      repository.TimerRepository
	breaches    repository.BreachRepository
	policies    *PolicyService
	escalations *EscalationService
	dispatcher  events.Dispatcher
	viewCache   *persistence.TimerViewCache
	calendars   *calendarCache
	logger      *zap.Logger
	metrics     *observability.Metrics
}

// EngineDependencies bundles collaborators for the timer engine.
type EngineDependencies struct {
	TicketStore repository.TicketStore
	TimerRepo   repository.TimerRepository
	BreachRepo  repository.BreachRepository
	Policies    *PolicyService
	Escalations *EscalationService
	Dispatcher  events.Dispatcher
	ViewCache   *persistence.TimerViewCache
	Logger      *zap.Logger
	Metrics     *observability.Metrics
}

// NewTimerEngine constructs the engine.
func NewTimerEngine(deps EngineDependencies) *TimerEngine {
	return &TimerEngine{
		tickets:     deps.TicketStore,
		timers:      deps.TimerRepo,
		breaches:    deps.BreachRepo,
		policies:    deps.Policies,
		escalations: deps.Escalations,
		dispatcher:  deps.Dispatcher,
		viewCache:   deps.ViewCache,
		calendars:   newCalendarCache(),
		logger:      deps.Logger,
		metrics:     deps.Metrics,
	}
}

// OnTicketCreated resolves the ticket's policy and starts a response
// and a resolution timer. A ticket with no matching policy and no
// default stays untracked; that is not an error.
func (e *TimerEngine) OnTicketCreated(ctx context.Context, ticketID string) error {
	ticket, err := e.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return err
	}
	policy, err := e.policies.Resolve(ctx, ticket)
	if err != nil {
		return err
	}
	if policy == nil {
		e.logger.Debug("no sla policy for ticket; untracked", zap.String("ticket_id", ticketID))
		return nil
	}
	for _, metric := range []domain.Metric{domain.MetricResponse, domain.MetricResolution} {
		if err := e.startTimer(ctx, ticket, policy, metric, ticket.CreatedAt); err != nil {
			return err
		}
	}
	return nil
}

// OnFirstResponse completes the response timer at the instant the first
// agent reply landed. Idempotent: once completed there is no active
// response timer and the call is a no-op.
func (e *TimerEngine) OnFirstResponse(ctx context.Context, ticketID string, at time.Time) error {
	timer, err := e.timers.GetActiveByTicketAndMetric(ctx, ticketID, domain.MetricResponse)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}
	return e.completeTimer(ctx, timer, at)
}

// OnStatusChanged re-evaluates pause conditions for the ticket's active
// timers, completes the resolution timer on resolve/close, cancels all
// timers on cancellation, and starts a fresh resolution clock when a
// resolved or closed ticket is reopened. Reopening never resumes the
// old timer; a completed clock stays completed.
func (e *TimerEngine) OnStatusChanged(ctx context.Context, ticketID string, oldStatus, newStatus domain.TicketStatus, at time.Time) error {
	if newStatus == domain.TicketStatusCancelled {
		return e.cancelActiveTimers(ctx, ticketID, at)
	}

	if newStatus == domain.TicketStatusResolved || newStatus == domain.TicketStatusClosed {
		if err := e.completeResolution(ctx, ticketID, at); err != nil {
			return err
		}
	}

	reopened := (oldStatus == domain.TicketStatusResolved || oldStatus == domain.TicketStatusClosed) &&
		!newStatus.IsTerminal()
	if reopened {
		if err := e.restartResolution(ctx, ticketID, at); err != nil {
			return err
		}
	}

	return e.applyPauseConditions(ctx, ticketID, newStatus, at)
}

// OnTicketDeleted cancels every active timer owned by the ticket.
func (e *TimerEngine) OnTicketDeleted(ctx context.Context, ticketID string, at time.Time) error {
	return e.cancelActiveTimers(ctx, ticketID, at)
}

// SweepResult summarizes one sweep cycle.
type SweepResult struct {
	Recomputed int
	Failed     int
	Breached   int
}

// Sweep recomputes every running timer's elapsed time and risk level,
// records first breaches, and hands threshold crossings to the
// escalation trigger. A failure on one timer is logged and skipped;
// the next sweep retries it.
func (e *TimerEngine) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	var result SweepResult
	policyCache := make(map[string]*domain.SLAPolicy)

	const pageSize = 500
	for offset := 0; ; offset += pageSize {
		timers, err := e.timers.ListRunning(ctx, pageSize, offset)
		if err != nil {
			return result, err
		}
		for i := range timers {
			if err := e.sweepOne(ctx, &timers[i], policyCache, now, &result); err != nil {
				result.Failed++
				e.logger.Error("timer recompute failed",
					zap.String("timer_id", timers[i].ID),
					zap.String("ticket_id", timers[i].TicketID),
					zap.Error(err))
			}
		}
		if len(timers) < pageSize {
			break
		}
	}

	e.metrics.RecordSweep(result.Recomputed, result.Failed, result.Breached)
	return result, nil
}

func (e *TimerEngine) sweepOne(ctx context.Context, timer *domain.SLATimer, policyCache map[string]*domain.SLAPolicy, now time.Time, result *SweepResult) error {
	policy, ok := policyCache[timer.PolicyID]
	if !ok {
		loaded, err := e.policies.Get(ctx, timer.PolicyID)
		if err != nil {
			return err
		}
		policy = loaded
		policyCache[timer.PolicyID] = policy
	}
	cal, err := e.calendars.For(policy)
	if err != nil {
		return err
	}

	comp := computeTimer(cal, policy, timer, now)
	if err := e.timers.UpdateComputed(ctx, timer.ID, comp.Elapsed, comp.Remaining, comp.Risk); err != nil {
		return err
	}
	result.Recomputed++

	if comp.Risk == domain.RiskBreached {
		created, err := e.recordBreach(ctx, timer, now)
		if err != nil {
			return err
		}
		if created {
			result.Breached++
		}
	}

	return e.escalations.CheckAndFire(ctx, timer, comp, now)
}

// GetTimerStatus returns the response and resolution views for a
// ticket, freshly computed for active timers and frozen for terminal
// ones. Views are cached briefly.
func (e *TimerEngine) GetTimerStatus(ctx context.Context, ticketID string, now time.Time) (*TicketSLAView, error) {
	if data, ok := e.viewCache.Get(ctx, ticketID); ok {
		var cached TicketSLAView
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	timers, err := e.timers.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	view := &TicketSLAView{TicketID: ticketID, ComputedAt: now}
	for i := range timers {
		timer := &timers[i]
		policy, err := e.policies.Get(ctx, timer.PolicyID)
		if err != nil {
			return nil, err
		}
		cal, err := e.calendars.For(policy)
		if err != nil {
			return nil, err
		}
		tv := newTimerView(timer, computeTimer(cal, policy, timer, now))
		// ListByTicket orders by creation, so later timers (e.g. a
		// fresh resolution clock after reopen) win.
		switch timer.Metric {
		case domain.MetricResponse:
			view.Response = tv
		case domain.MetricResolution:
			view.Resolution = tv
		}
	}

	if payload, err := json.Marshal(view); err == nil {
		e.viewCache.Set(ctx, ticketID, payload)
	}
	return view, nil
}

func (e *TimerEngine) startTimer(ctx context.Context, ticket *domain.Ticket, policy *domain.SLAPolicy, metric domain.Metric, at time.Time) error {
	timer := &domain.SLATimer{
		TicketID:      ticket.ID,
		PolicyID:      policy.ID,
		Metric:        metric,
		Status:        domain.TimerStatusRunning,
		StartedAt:     at,
		TargetMinutes: policy.Target(metric, ticket.Priority),
	}
	if err := e.timers.Create(ctx, timer); err != nil {
		return err
	}
	e.viewCache.Invalidate(ctx, ticket.ID)
	e.publish(ctx, events.EventTimerStarted, ticket.ID, events.TimerPayload{
		TimerID:       timer.ID,
		Metric:        metric,
		Status:        timer.Status,
		TargetMinutes: timer.TargetMinutes,
	})
	return nil
}

func (e *TimerEngine) completeResolution(ctx context.Context, ticketID string, at time.Time) error {
	timer, err := e.timers.GetActiveByTicketAndMetric(ctx, ticketID, domain.MetricResolution)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}
	return e.completeTimer(ctx, timer, at)
}

func (e *TimerEngine) completeTimer(ctx context.Context, timer *domain.SLATimer, at time.Time) error {
	policy, err := e.policies.Get(ctx, timer.PolicyID)
	if err != nil {
		return err
	}
	cal, err := e.calendars.For(policy)
	if err != nil {
		return err
	}
	completedAt := at
	frozen := *timer
	frozen.Status = domain.TimerStatusCompleted
	frozen.CompletedAt = &completedAt
	comp := computeTimer(cal, policy, &frozen, at)

	err = e.timers.Complete(ctx, timer.ID, at, comp.Elapsed, comp.Remaining, comp.Risk)
	if errors.Is(err, pgx.ErrNoRows) {
		// Lost the race to another completion; the clock is already
		// stopped, which is what we wanted.
		return nil
	}
	if err != nil {
		return err
	}
	e.viewCache.Invalidate(ctx, timer.TicketID)
	e.publish(ctx, events.EventTimerCompleted, timer.TicketID, events.TimerPayload{
		TimerID:       timer.ID,
		Metric:        timer.Metric,
		Status:        domain.TimerStatusCompleted,
		TargetMinutes: timer.TargetMinutes,
	})
	return nil
}

func (e *TimerEngine) restartResolution(ctx context.Context, ticketID string, at time.Time) error {
	ticket, err := e.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return err
	}
	policy, err := e.policies.Resolve(ctx, ticket)
	if err != nil {
		return err
	}
	if policy == nil {
		return nil
	}
	// A fresh clock from the reopen instant. Resuming the completed
	// timer would mix two service periods and can yield negative
	// remaining-time artifacts.
	return e.startTimer(ctx, ticket, policy, domain.MetricResolution, at)
}

func (e *TimerEngine) applyPauseConditions(ctx context.Context, ticketID string, status domain.TicketStatus, at time.Time) error {
	timers, err := e.timers.ListByTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	for i := range timers {
		timer := &timers[i]
		if timer.Status.IsTerminal() {
			continue
		}
		policy, err := e.policies.Get(ctx, timer.PolicyID)
		if err != nil {
			return err
		}
		shouldPause := policy.PausesOn(status)
		switch {
		case timer.Status == domain.TimerStatusRunning && shouldPause:
			if err := e.transition(timer.ID, func() error { return e.timers.Pause(ctx, timer.ID, at) }); err != nil {
				if apperrors.IsTransitionConflict(err) {
					continue
				}
				return err
			}
			e.publish(ctx, events.EventTimerPaused, ticketID, events.TimerPayload{
				TimerID: timer.ID, Metric: timer.Metric, Status: domain.TimerStatusPaused, TargetMinutes: timer.TargetMinutes,
			})
		case timer.Status == domain.TimerStatusPaused && !shouldPause:
			if err := e.transition(timer.ID, func() error { return e.timers.Resume(ctx, timer.ID, at) }); err != nil {
				if apperrors.IsTransitionConflict(err) {
					continue
				}
				return err
			}
			e.publish(ctx, events.EventTimerResumed, ticketID, events.TimerPayload{
				TimerID: timer.ID, Metric: timer.Metric, Status: domain.TimerStatusRunning, TargetMinutes: timer.TargetMinutes,
			})
		}
	}
	e.viewCache.Invalidate(ctx, ticketID)
	return nil
}

func (e *TimerEngine) cancelActiveTimers(ctx context.Context, ticketID string, at time.Time) error {
	timers, err := e.timers.ListByTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	for i := range timers {
		timer := &timers[i]
		if timer.Status.IsTerminal() {
			continue
		}
		err := e.timers.Cancel(ctx, timer.ID, at)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return err
		}
		e.publish(ctx, events.EventTimerCancelled, ticketID, events.TimerPayload{
			TimerID: timer.ID, Metric: timer.Metric, Status: domain.TimerStatusCancelled, TargetMinutes: timer.TargetMinutes,
		})
	}
	e.viewCache.Invalidate(ctx, ticketID)
	return nil
}

func (e *TimerEngine) recordBreach(ctx context.Context, timer *domain.SLATimer, now time.Time) (bool, error) {
	breach := &domain.SLABreach{
		TicketID:      timer.TicketID,
		TimerID:       timer.ID,
		Metric:        timer.Metric,
		TargetMinutes: timer.TargetMinutes,
		// Detection instant: the sweep notices the breach, it does not
		// reconstruct the exact crossing minute.
		BreachedAt: now,
	}
	created, err := e.breaches.CreateIfAbsent(ctx, breach)
	if err != nil || !created {
		return created, err
	}
	e.logger.Warn("sla breached",
		zap.String("ticket_id", timer.TicketID),
		zap.String("timer_id", timer.ID),
		zap.String("metric", string(timer.Metric)))
	e.publish(ctx, events.EventBreached, timer.TicketID, events.BreachPayload{
		TimerID:       timer.ID,
		Metric:        timer.Metric,
		TargetMinutes: timer.TargetMinutes,
		BreachedAt:    breach.BreachedAt,
	})
	return true, nil
}

// transition applies an optimistic status change, retrying once on
// conflict before giving up for this cycle.
func (e *TimerEngine) transition(timerID string, op func() error) error {
	err := op()
	if errors.Is(err, pgx.ErrNoRows) {
		err = op()
	}
	if errors.Is(err, pgx.ErrNoRows) {
		e.logger.Warn("timer transition conflict; skipping cycle", zap.String("timer_id", timerID))
		return apperrors.NewTransitionConflict(timerID)
	}
	return err
}

func (e *TimerEngine) publish(ctx context.Context, eventType events.EventType, ticketID string, payload any) {
	if e.dispatcher == nil {
		return
	}
	_ = e.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
}
