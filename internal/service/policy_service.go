package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/wzatco/helpdesk-sla/internal/calendar"
	"github.com/wzatco/helpdesk-sla/internal/domain"
	"github.com/wzatco/helpdesk-sla/internal/repository"
	apperrors "github.com/wzatco/helpdesk-sla/pkg/util"
)

// PolicyService manages SLA policy configuration and resolves the
// policy applying to a ticket. Resolution happens once, at timer
// creation; editing a policy never retargets running timers.
type PolicyService struct {
	policies repository.PolicyRepository
	timers   repository.TimerRepository
	logger   *zap.Logger
}

// PolicyDependencies bundles repositories for the policy service.
type PolicyDependencies struct {
	PolicyRepo repository.PolicyRepository
	TimerRepo  repository.TimerRepository
	Logger     *zap.Logger
}

// NewPolicyService constructs the service.
func NewPolicyService(deps PolicyDependencies) *PolicyService {
	return &PolicyService{
		policies: deps.PolicyRepo,
		timers:   deps.TimerRepo,
		logger:   deps.Logger,
	}
}

// Create validates and stores a new policy. Malformed schedules are
// rejected here so calendar math never fails mid-sweep.
func (s *PolicyService) Create(ctx context.Context, policy *domain.SLAPolicy) error {
	if err := s.validate(policy); err != nil {
		return err
	}
	if err := s.policies.Create(ctx, policy); err != nil {
		return err
	}
	if policy.IsDefault {
		if err := s.policies.SetDefault(ctx, policy.ID); err != nil {
			return err
		}
	}
	s.logger.Info("sla policy created", zap.String("policy_id", policy.ID), zap.String("name", policy.Name))
	return nil
}

// Update validates and stores policy edits.
func (s *PolicyService) Update(ctx context.Context, policy *domain.SLAPolicy) error {
	if err := s.validate(policy); err != nil {
		return err
	}
	if err := s.policies.Update(ctx, policy); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("policy", map[string]any{"policy_id": policy.ID})
		}
		return err
	}
	return nil
}

// Delete removes a policy unless non-terminal timers still reference
// it. The check is an enforced guard, not a cascade.
func (s *PolicyService) Delete(ctx context.Context, id string) error {
	active, err := s.timers.CountNonTerminalByPolicy(ctx, id)
	if err != nil {
		return err
	}
	if active > 0 {
		return apperrors.NewConflict("policy has active timers", map[string]any{
			"policy_id":     id,
			"active_timers": active,
		})
	}
	if err := s.policies.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("policy", map[string]any{"policy_id": id})
		}
		return err
	}
	return nil
}

// SetDefault atomically moves the default flag; the previous default is
// cleared in the same transaction.
func (s *PolicyService) SetDefault(ctx context.Context, id string) error {
	if err := s.policies.SetDefault(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("policy", map[string]any{"policy_id": id})
		}
		return err
	}
	s.logger.Info("default sla policy changed", zap.String("policy_id", id))
	return nil
}

// Get fetches one policy.
func (s *PolicyService) Get(ctx context.Context, id string) (*domain.SLAPolicy, error) {
	policy, err := s.policies.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("policy", map[string]any{"policy_id": id})
		}
		return nil, err
	}
	return policy, nil
}

// List returns all policies, newest first.
func (s *PolicyService) List(ctx context.Context) ([]domain.SLAPolicy, error) {
	return s.policies.List(ctx)
}

// Resolve picks the policy applying to a ticket: the most recently
// created active policy whose scope matches wins; otherwise the active
// default; otherwise nil. A nil result means the ticket is untracked,
// which is not an error.
func (s *PolicyService) Resolve(ctx context.Context, ticket *domain.Ticket) (*domain.SLAPolicy, error) {
	policies, err := s.policies.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	// ListActive orders newest first, so the first scoped match is the
	// tie-break winner.
	for i := range policies {
		if !policies[i].Scope.IsEmpty() && policies[i].Scope.Matches(ticket) {
			return &policies[i], nil
		}
	}
	def, err := s.policies.GetDefault(ctx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return def, nil
}

func (s *PolicyService) validate(policy *domain.SLAPolicy) error {
	if err := policy.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}
	// Build the calendar once to surface schedule problems to the
	// administrator immediately instead of mid-computation.
	if _, err := calendar.New(policy.Calendar); err != nil {
		return apperrors.NewScheduleError(err)
	}
	return nil
}
