package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wzatco/helpdesk-sla/internal/domain"
	"github.com/wzatco/helpdesk-sla/internal/events"
	"github.com/wzatco/helpdesk-sla/internal/observability"
	"github.com/wzatco/helpdesk-sla/internal/repository"
)

// Deduper suppresses repeat notifications for the same ticket and
// metric inside a time window. Backed by Redis in production; a miss
// fails open because the per-level uniqueness row is the real guard
// against duplicate escalation records.
type Deduper interface {
	Acquire(ctx context.Context, ticketID, metric string) bool
}

// EscalationService fires escalation signals exactly once per
// (timer, level) crossing and hands them to the notification layer.
type EscalationService struct {
	escalations repository.EscalationRepository
	dedup       Deduper
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	metrics     *observability.Metrics
}

// EscalationDependencies bundles collaborators.
type EscalationDependencies struct {
	EscalationRepo repository.EscalationRepository
	Dedup          Deduper
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
	Metrics        *observability.Metrics
}

// NewEscalationService constructs the service.
func NewEscalationService(deps EscalationDependencies) *EscalationService {
	return &EscalationService{
		escalations: deps.EscalationRepo,
		dedup:       deps.Dedup,
		dispatcher:  deps.Dispatcher,
		logger:      deps.Logger,
		metrics:     deps.Metrics,
	}
}

// CheckAndFire records an escalation for every threshold the timer has
// crossed that lacks a record yet. A timer jumping several levels in a
// single sweep gets one record per level. Dispatch beyond the first
// firing inside the dedup window is suppressed, but the records are
// always written.
func (s *EscalationService) CheckAndFire(ctx context.Context, timer *domain.SLATimer, comp Computation, now time.Time) error {
	for _, level := range domain.EscalationLevels(comp.Risk) {
		record := &domain.SLAEscalation{
			TicketID:         timer.TicketID,
			TimerID:          timer.ID,
			Metric:           timer.Metric,
			Level:            level,
			RemainingMinutes: comp.Remaining,
			FiredAt:          now,
		}
		created, err := s.escalations.CreateIfAbsent(ctx, record)
		if err != nil {
			return err
		}
		if !created {
			continue
		}
		s.metrics.RecordEscalation()
		s.logger.Info("sla escalation fired",
			zap.String("ticket_id", timer.TicketID),
			zap.String("timer_id", timer.ID),
			zap.String("metric", string(timer.Metric)),
			zap.String("level", string(level)),
			zap.Int("remaining_minutes", comp.Remaining))

		if s.dedup != nil && !s.dedup.Acquire(ctx, timer.TicketID, string(timer.Metric)) {
			s.logger.Debug("escalation notification suppressed by dedup window",
				zap.String("ticket_id", timer.TicketID),
				zap.String("metric", string(timer.Metric)))
			continue
		}
		s.publish(ctx, timer, level, comp.Remaining)
	}
	return nil
}

func (s *EscalationService) publish(ctx context.Context, timer *domain.SLATimer, level domain.RiskLevel, remaining int) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventEscalated,
		TicketID:  timer.TicketID,
		Timestamp: time.Now().UTC(),
		Payload: events.EscalationPayload{
			TimerID:          timer.ID,
			Metric:           timer.Metric,
			Level:            level,
			RemainingMinutes: remaining,
		},
	})
}
