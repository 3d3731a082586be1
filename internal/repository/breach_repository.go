package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wzatco/helpdesk-sla/internal/domain"
)

// BreachRepository persists immutable breach records. A timer breaches
// at most once; the unique timer_id constraint makes CreateIfAbsent
// idempotent across concurrent sweeps.
type BreachRepository interface {
	CreateIfAbsent(ctx context.Context, breach *domain.SLABreach) (bool, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.SLABreach, error)
}

type breachRepository struct {
	pool *pgxpool.Pool
}

// NewBreachRepository instantiates repository.
func NewBreachRepository(pool *pgxpool.Pool) BreachRepository {
	return &breachRepository{pool: pool}
}

func (r *breachRepository) CreateIfAbsent(ctx context.Context, breach *domain.SLABreach) (bool, error) {
	const query = `
        INSERT INTO sla_breaches (ticket_id, timer_id, metric, target_minutes, breached_at)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (timer_id) DO NOTHING
        RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query,
		breach.TicketID,
		breach.TimerID,
		breach.Metric,
		breach.TargetMinutes,
		breach.BreachedAt,
	).Scan(&breach.ID, &breach.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *breachRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.SLABreach, error) {
	const query = `
        SELECT id, ticket_id, timer_id, metric, target_minutes, breached_at, created_at
        FROM sla_breaches WHERE ticket_id=$1 ORDER BY breached_at`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SLABreach
	for rows.Next() {
		var b domain.SLABreach
		if err := rows.Scan(&b.ID, &b.TicketID, &b.TimerID, &b.Metric, &b.TargetMinutes, &b.BreachedAt, &b.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	return result, rows.Err()
}
