package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wzatco/helpdesk-sla/internal/domain"
)

// TimerRepository encapsulates SLA timer persistence. State
// transitions are conditional updates keyed on the current status so
// two concurrent transitions can never both apply; callers translate
// pgx.ErrNoRows into a transition conflict.
type TimerRepository interface {
	Create(ctx context.Context, timer *domain.SLATimer) error
	GetByID(ctx context.Context, id string) (*domain.SLATimer, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.SLATimer, error)
	GetActiveByTicketAndMetric(ctx context.Context, ticketID string, metric domain.Metric) (*domain.SLATimer, error)
	ListRunning(ctx context.Context, limit, offset int) ([]domain.SLATimer, error)
	CountNonTerminalByPolicy(ctx context.Context, policyID string) (int, error)

	Pause(ctx context.Context, timerID string, at time.Time) error
	Resume(ctx context.Context, timerID string, at time.Time) error
	// Complete freezes the timer with its final computed values in one
	// atomic write; later recomputes never touch it again.
	Complete(ctx context.Context, timerID string, at time.Time, elapsed, remaining int, risk domain.RiskLevel) error
	Cancel(ctx context.Context, timerID string, at time.Time) error

	// UpdateComputed persists one recompute atomically. It only touches
	// running timers, so terminal timers stay frozen.
	UpdateComputed(ctx context.Context, timerID string, elapsed, remaining int, risk domain.RiskLevel) error
}

type timerRepository struct {
	pool *pgxpool.Pool
}

// NewTimerRepository instantiates repository.
func NewTimerRepository(pool *pgxpool.Pool) TimerRepository {
	return &timerRepository{pool: pool}
}

const timerColumns = `id, ticket_id, policy_id, metric, status, started_at, target_minutes,
       paused_at, completed_at, elapsed_minutes, remaining_minutes, risk_level, created_at, updated_at`

func (r *timerRepository) Create(ctx context.Context, timer *domain.SLATimer) error {
	const query = `
        INSERT INTO sla_timers (ticket_id, policy_id, metric, status, started_at, target_minutes, remaining_minutes, risk_level)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		timer.TicketID,
		timer.PolicyID,
		timer.Metric,
		timer.Status,
		timer.StartedAt,
		timer.TargetMinutes,
		timer.TargetMinutes,
		domain.RiskNone,
	).Scan(&timer.ID, &timer.CreatedAt, &timer.UpdatedAt)
}

func (r *timerRepository) GetByID(ctx context.Context, id string) (*domain.SLATimer, error) {
	query := `SELECT ` + timerColumns + ` FROM sla_timers WHERE id=$1`
	timer, err := scanTimer(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if err := r.attachPauses(ctx, []*domain.SLATimer{timer}); err != nil {
		return nil, err
	}
	return timer, nil
}

func (r *timerRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.SLATimer, error) {
	query := `SELECT ` + timerColumns + ` FROM sla_timers WHERE ticket_id=$1 ORDER BY created_at`
	return r.fetchMany(ctx, query, ticketID)
}

func (r *timerRepository) GetActiveByTicketAndMetric(ctx context.Context, ticketID string, metric domain.Metric) (*domain.SLATimer, error) {
	query := `SELECT ` + timerColumns + ` FROM sla_timers
        WHERE ticket_id=$1 AND metric=$2 AND status IN ('RUNNING','PAUSED')
        ORDER BY created_at DESC LIMIT 1`
	timer, err := scanTimer(r.pool.QueryRow(ctx, query, ticketID, metric))
	if err != nil {
		return nil, err
	}
	if err := r.attachPauses(ctx, []*domain.SLATimer{timer}); err != nil {
		return nil, err
	}
	return timer, nil
}

func (r *timerRepository) ListRunning(ctx context.Context, limit, offset int) ([]domain.SLATimer, error) {
	if limit <= 0 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + timerColumns + ` FROM sla_timers WHERE status='RUNNING' ORDER BY started_at LIMIT $1 OFFSET $2`
	return r.fetchMany(ctx, query, limit, offset)
}

func (r *timerRepository) CountNonTerminalByPolicy(ctx context.Context, policyID string) (int, error) {
	const query = `SELECT COUNT(*) FROM sla_timers WHERE policy_id=$1 AND status IN ('RUNNING','PAUSED')`
	var count int
	err := r.pool.QueryRow(ctx, query, policyID).Scan(&count)
	return count, err
}

func (r *timerRepository) Pause(ctx context.Context, timerID string, at time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	cmd, err := tx.Exec(ctx, `
        UPDATE sla_timers SET status='PAUSED', paused_at=$2, updated_at=NOW()
        WHERE id=$1 AND status='RUNNING'`, timerID, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	if _, err := tx.Exec(ctx, `
        INSERT INTO sla_timer_pauses (timer_id, paused_at) VALUES ($1,$2)`, timerID, at); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *timerRepository) Resume(ctx context.Context, timerID string, at time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	cmd, err := tx.Exec(ctx, `
        UPDATE sla_timers SET status='RUNNING', paused_at=NULL, updated_at=NOW()
        WHERE id=$1 AND status='PAUSED'`, timerID, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	if _, err := tx.Exec(ctx, `
        UPDATE sla_timer_pauses SET resumed_at=$2 WHERE timer_id=$1 AND resumed_at IS NULL`, timerID, at); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *timerRepository) Complete(ctx context.Context, timerID string, at time.Time, elapsed, remaining int, risk domain.RiskLevel) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	cmd, err := tx.Exec(ctx, `
        UPDATE sla_timers SET status='COMPLETED', completed_at=$2, paused_at=NULL,
            elapsed_minutes=$3, remaining_minutes=$4, risk_level=$5, updated_at=NOW()
        WHERE id=$1 AND status IN ('RUNNING','PAUSED')`, timerID, at, elapsed, remaining, risk)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	if _, err := tx.Exec(ctx, `
        UPDATE sla_timer_pauses SET resumed_at=$2 WHERE timer_id=$1 AND resumed_at IS NULL`, timerID, at); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *timerRepository) Cancel(ctx context.Context, timerID string, at time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	cmd, err := tx.Exec(ctx, `
        UPDATE sla_timers SET status='CANCELLED', completed_at=$2, paused_at=NULL, updated_at=NOW()
        WHERE id=$1 AND status IN ('RUNNING','PAUSED')`, timerID, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	if _, err := tx.Exec(ctx, `
        UPDATE sla_timer_pauses SET resumed_at=$2 WHERE timer_id=$1 AND resumed_at IS NULL`, timerID, at); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *timerRepository) UpdateComputed(ctx context.Context, timerID string, elapsed, remaining int, risk domain.RiskLevel) error {
	_, err := r.pool.Exec(ctx, `
        UPDATE sla_timers SET elapsed_minutes=$2, remaining_minutes=$3, risk_level=$4, updated_at=NOW()
        WHERE id=$1 AND status='RUNNING'`, timerID, elapsed, remaining, risk)
	return err
}

func (r *timerRepository) fetchMany(ctx context.Context, query string, args ...any) ([]domain.SLATimer, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SLATimer
	for rows.Next() {
		timer, err := scanTimer(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *timer)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	refs := make([]*domain.SLATimer, len(result))
	for i := range result {
		refs[i] = &result[i]
	}
	if err := r.attachPauses(ctx, refs); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *timerRepository) attachPauses(ctx context.Context, timers []*domain.SLATimer) error {
	if len(timers) == 0 {
		return nil
	}
	ids := make([]string, 0, len(timers))
	byID := make(map[string]*domain.SLATimer, len(timers))
	for _, t := range timers {
		ids = append(ids, t.ID)
		byID[t.ID] = t
	}
	const query = `SELECT id, timer_id, paused_at, resumed_at FROM sla_timer_pauses
        WHERE timer_id = ANY($1) ORDER BY paused_at`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var p domain.PauseInterval
		if err := rows.Scan(&p.ID, &p.TimerID, &p.PausedAt, &p.ResumedAt); err != nil {
			return err
		}
		if t, ok := byID[p.TimerID]; ok {
			t.Pauses = append(t.Pauses, p)
		}
	}
	return rows.Err()
}

func scanTimer(row pgx.Row) (*domain.SLATimer, error) {
	var timer domain.SLATimer
	if err := row.Scan(
		&timer.ID,
		&timer.TicketID,
		&timer.PolicyID,
		&timer.Metric,
		&timer.Status,
		&timer.StartedAt,
		&timer.TargetMinutes,
		&timer.PausedAt,
		&timer.CompletedAt,
		&timer.ElapsedMinutes,
		&timer.RemainingMinutes,
		&timer.RiskLevel,
		&timer.CreatedAt,
		&timer.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &timer, nil
}
