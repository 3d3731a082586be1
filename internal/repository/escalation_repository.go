package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wzatco/helpdesk-sla/internal/domain"
)

// EscalationRepository persists escalation firings. The unique
// (timer_id, level) constraint guarantees one record per threshold
// crossing no matter how often a sweep retries.
type EscalationRepository interface {
	CreateIfAbsent(ctx context.Context, escalation *domain.SLAEscalation) (bool, error)
	ListByTimer(ctx context.Context, timerID string) ([]domain.SLAEscalation, error)
}

type escalationRepository struct {
	pool *pgxpool.Pool
}

// NewEscalationRepository instantiates repository.
func NewEscalationRepository(pool *pgxpool.Pool) EscalationRepository {
	return &escalationRepository{pool: pool}
}

func (r *escalationRepository) CreateIfAbsent(ctx context.Context, escalation *domain.SLAEscalation) (bool, error) {
	const query = `
        INSERT INTO sla_escalations (ticket_id, timer_id, metric, level, remaining_minutes, fired_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (timer_id, level) DO NOTHING
        RETURNING id`
	err := r.pool.QueryRow(ctx, query,
		escalation.TicketID,
		escalation.TimerID,
		escalation.Metric,
		escalation.Level,
		escalation.RemainingMinutes,
		escalation.FiredAt,
	).Scan(&escalation.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *escalationRepository) ListByTimer(ctx context.Context, timerID string) ([]domain.SLAEscalation, error) {
	const query = `
        SELECT id, ticket_id, timer_id, metric, level, remaining_minutes, fired_at
        FROM sla_escalations WHERE timer_id=$1 ORDER BY fired_at`
	rows, err := r.pool.Query(ctx, query, timerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SLAEscalation
	for rows.Next() {
		var e domain.SLAEscalation
		if err := rows.Scan(&e.ID, &e.TicketID, &e.TimerID, &e.Metric, &e.Level, &e.RemainingMinutes, &e.FiredAt); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
