package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wzatco/helpdesk-sla/internal/domain"
)

// PolicyRepository encapsulates SLA policy persistence. Calendar and
// scope columns are JSONB decoded here, once; nothing downstream ever
// sees serialized text.
type PolicyRepository interface {
	Create(ctx context.Context, policy *domain.SLAPolicy) error
	Update(ctx context.Context, policy *domain.SLAPolicy) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.SLAPolicy, error)
	GetDefault(ctx context.Context) (*domain.SLAPolicy, error)
	ListActive(ctx context.Context) ([]domain.SLAPolicy, error)
	List(ctx context.Context) ([]domain.SLAPolicy, error)
	// SetDefault clears the previous default and sets the new one in a
	// single transaction, keeping the at-most-one-default invariant.
	SetDefault(ctx context.Context, id string) error
}

type policyRepository struct {
	pool *pgxpool.Pool
}

// NewPolicyRepository instantiates repository.
func NewPolicyRepository(pool *pgxpool.Pool) PolicyRepository {
	return &policyRepository{pool: pool}
}

const policyColumns = `id, name, is_default, is_active, response_thresholds, resolution_thresholds,
       calendar, escalation_level1, escalation_level2, pause_on_waiting, pause_on_hold, scope,
       created_at, updated_at`

func (r *policyRepository) Create(ctx context.Context, policy *domain.SLAPolicy) error {
	response, resolution, calendar, scope, err := encodePolicy(policy)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO sla_policies (name, is_default, is_active, response_thresholds, resolution_thresholds,
            calendar, escalation_level1, escalation_level2, pause_on_waiting, pause_on_hold, scope)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		policy.Name,
		policy.IsDefault,
		policy.IsActive,
		response,
		resolution,
		calendar,
		policy.EscalationLevel1,
		policy.EscalationLevel2,
		policy.PauseOnWaiting,
		policy.PauseOnHold,
		scope,
	).Scan(&policy.ID, &policy.CreatedAt, &policy.UpdatedAt)
}

func (r *policyRepository) Update(ctx context.Context, policy *domain.SLAPolicy) error {
	response, resolution, calendar, scope, err := encodePolicy(policy)
	if err != nil {
		return err
	}
	const query = `
        UPDATE sla_policies SET name=$1, is_active=$2, response_thresholds=$3, resolution_thresholds=$4,
            calendar=$5, escalation_level1=$6, escalation_level2=$7, pause_on_waiting=$8, pause_on_hold=$9,
            scope=$10, updated_at=NOW()
        WHERE id=$11`
	cmd, err := r.pool.Exec(ctx, query,
		policy.Name,
		policy.IsActive,
		response,
		resolution,
		calendar,
		policy.EscalationLevel1,
		policy.EscalationLevel2,
		policy.PauseOnWaiting,
		policy.PauseOnHold,
		scope,
		policy.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *policyRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM sla_policies WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *policyRepository) GetByID(ctx context.Context, id string) (*domain.SLAPolicy, error) {
	query := `SELECT ` + policyColumns + ` FROM sla_policies WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *policyRepository) GetDefault(ctx context.Context) (*domain.SLAPolicy, error) {
	query := `SELECT ` + policyColumns + ` FROM sla_policies WHERE is_default AND is_active`
	return r.fetchSingle(ctx, query)
}

func (r *policyRepository) ListActive(ctx context.Context) ([]domain.SLAPolicy, error) {
	query := `SELECT ` + policyColumns + ` FROM sla_policies WHERE is_active ORDER BY created_at DESC`
	return r.fetchMany(ctx, query)
}

func (r *policyRepository) List(ctx context.Context) ([]domain.SLAPolicy, error) {
	query := `SELECT ` + policyColumns + ` FROM sla_policies ORDER BY created_at DESC`
	return r.fetchMany(ctx, query)
}

func (r *policyRepository) SetDefault(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `UPDATE sla_policies SET is_default=FALSE, updated_at=NOW() WHERE is_default`); err != nil {
		return err
	}
	cmd, err := tx.Exec(ctx, `UPDATE sla_policies SET is_default=TRUE, updated_at=NOW() WHERE id=$1 AND is_active`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return tx.Commit(ctx)
}

func (r *policyRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.SLAPolicy, error) {
	row := r.pool.QueryRow(ctx, query, args...)
	return scanPolicy(row)
}

func (r *policyRepository) fetchMany(ctx context.Context, query string, args ...any) ([]domain.SLAPolicy, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SLAPolicy
	for rows.Next() {
		policy, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *policy)
	}
	return result, rows.Err()
}

func scanPolicy(row pgx.Row) (*domain.SLAPolicy, error) {
	var (
		policy     domain.SLAPolicy
		response   []byte
		resolution []byte
		calendar   []byte
		scope      []byte
	)
	if err := row.Scan(
		&policy.ID,
		&policy.Name,
		&policy.IsDefault,
		&policy.IsActive,
		&response,
		&resolution,
		&calendar,
		&policy.EscalationLevel1,
		&policy.EscalationLevel2,
		&policy.PauseOnWaiting,
		&policy.PauseOnHold,
		&scope,
		&policy.CreatedAt,
		&policy.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(response, &policy.Response); err != nil {
		return nil, fmt.Errorf("decode response thresholds: %w", err)
	}
	if err := json.Unmarshal(resolution, &policy.Resolution); err != nil {
		return nil, fmt.Errorf("decode resolution thresholds: %w", err)
	}
	if err := json.Unmarshal(calendar, &policy.Calendar); err != nil {
		return nil, fmt.Errorf("decode calendar: %w", err)
	}
	if err := json.Unmarshal(scope, &policy.Scope); err != nil {
		return nil, fmt.Errorf("decode scope: %w", err)
	}
	return &policy, nil
}

func encodePolicy(policy *domain.SLAPolicy) (response, resolution, calendar, scope []byte, err error) {
	if response, err = json.Marshal(policy.Response); err != nil {
		return
	}
	if resolution, err = json.Marshal(policy.Resolution); err != nil {
		return
	}
	if calendar, err = json.Marshal(policy.Calendar); err != nil {
		return
	}
	scope, err = json.Marshal(policy.Scope)
	return
}
