package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wzatco/helpdesk-sla/internal/domain"
	"github.com/wzatco/helpdesk-sla/internal/events"
)

// In-memory doubles mirroring the conditional-update semantics of the
// SQL repositories: transitions from the wrong state return
// pgx.ErrNoRows, exactly like a zero-row UPDATE.

type fakeTicketStore struct {
	tickets map[string]*domain.Ticket
}

func newFakeTicketStore(tickets ...*domain.Ticket) *fakeTicketStore {
	s := &fakeTicketStore{tickets: make(map[string]*domain.Ticket)}
	for _, t := range tickets {
		s.tickets[t.ID] = t
	}
	return s
}

func (s *fakeTicketStore) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	ticket, ok := s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (s *fakeTicketStore) ListByStatus(_ context.Context, statuses []domain.TicketStatus, _, _ int) ([]domain.Ticket, error) {
	var out []domain.Ticket
	for _, t := range s.tickets {
		for _, st := range statuses {
			if t.Status == st {
				out = append(out, *t)
				break
			}
		}
	}
	return out, nil
}

type fakePolicyRepo struct {
	policies []domain.SLAPolicy
	seq      int
}

func (r *fakePolicyRepo) Create(_ context.Context, policy *domain.SLAPolicy) error {
	r.seq++
	policy.ID = fmt.Sprintf("policy-%d", r.seq)
	policy.CreatedAt = time.Now().UTC().Add(time.Duration(r.seq) * time.Millisecond)
	policy.UpdatedAt = policy.CreatedAt
	r.policies = append(r.policies, *policy)
	return nil
}

func (r *fakePolicyRepo) Update(_ context.Context, policy *domain.SLAPolicy) error {
	for i := range r.policies {
		if r.policies[i].ID == policy.ID {
			policy.CreatedAt = r.policies[i].CreatedAt
			policy.UpdatedAt = time.Now().UTC()
			r.policies[i] = *policy
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *fakePolicyRepo) Delete(_ context.Context, id string) error {
	for i := range r.policies {
		if r.policies[i].ID == id {
			r.policies = append(r.policies[:i], r.policies[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *fakePolicyRepo) GetByID(_ context.Context, id string) (*domain.SLAPolicy, error) {
	for i := range r.policies {
		if r.policies[i].ID == id {
			copied := r.policies[i]
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakePolicyRepo) GetDefault(_ context.Context) (*domain.SLAPolicy, error) {
	for i := range r.policies {
		if r.policies[i].IsDefault && r.policies[i].IsActive {
			copied := r.policies[i]
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakePolicyRepo) ListActive(_ context.Context) ([]domain.SLAPolicy, error) {
	var out []domain.SLAPolicy
	for i := len(r.policies) - 1; i >= 0; i-- {
		if r.policies[i].IsActive {
			out = append(out, r.policies[i])
		}
	}
	return out, nil
}

func (r *fakePolicyRepo) List(_ context.Context) ([]domain.SLAPolicy, error) {
	out := make([]domain.SLAPolicy, 0, len(r.policies))
	for i := len(r.policies) - 1; i >= 0; i-- {
		out = append(out, r.policies[i])
	}
	return out, nil
}

func (r *fakePolicyRepo) SetDefault(_ context.Context, id string) error {
	found := false
	for i := range r.policies {
		if r.policies[i].ID == id && r.policies[i].IsActive {
			found = true
		}
	}
	if !found {
		return pgx.ErrNoRows
	}
	for i := range r.policies {
		r.policies[i].IsDefault = r.policies[i].ID == id
	}
	return nil
}

type fakeTimerRepo struct {
	timers []*domain.SLATimer
	seq    int
}

func (r *fakeTimerRepo) find(id string) *domain.SLATimer {
	for _, t := range r.timers {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (r *fakeTimerRepo) Create(_ context.Context, timer *domain.SLATimer) error {
	r.seq++
	timer.ID = fmt.Sprintf("timer-%d", r.seq)
	timer.CreatedAt = time.Now().UTC().Add(time.Duration(r.seq) * time.Millisecond)
	timer.UpdatedAt = timer.CreatedAt
	timer.RemainingMinutes = timer.TargetMinutes
	timer.RiskLevel = domain.RiskNone
	stored := *timer
	r.timers = append(r.timers, &stored)
	return nil
}

func (r *fakeTimerRepo) GetByID(_ context.Context, id string) (*domain.SLATimer, error) {
	if t := r.find(id); t != nil {
		copied := *t
		return &copied, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeTimerRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.SLATimer, error) {
	var out []domain.SLATimer
	for _, t := range r.timers {
		if t.TicketID == ticketID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *fakeTimerRepo) GetActiveByTicketAndMetric(_ context.Context, ticketID string, metric domain.Metric) (*domain.SLATimer, error) {
	var latest *domain.SLATimer
	for _, t := range r.timers {
		if t.TicketID == ticketID && t.Metric == metric && !t.Status.IsTerminal() {
			latest = t
		}
	}
	if latest == nil {
		return nil, pgx.ErrNoRows
	}
	copied := *latest
	return &copied, nil
}

func (r *fakeTimerRepo) ListRunning(_ context.Context, limit, offset int) ([]domain.SLATimer, error) {
	var running []domain.SLATimer
	for _, t := range r.timers {
		if t.Status == domain.TimerStatusRunning {
			running = append(running, *t)
		}
	}
	if offset >= len(running) {
		return nil, nil
	}
	running = running[offset:]
	if limit > 0 && len(running) > limit {
		running = running[:limit]
	}
	return running, nil
}

func (r *fakeTimerRepo) CountNonTerminalByPolicy(_ context.Context, policyID string) (int, error) {
	count := 0
	for _, t := range r.timers {
		if t.PolicyID == policyID && !t.Status.IsTerminal() {
			count++
		}
	}
	return count, nil
}

func (r *fakeTimerRepo) Pause(_ context.Context, timerID string, at time.Time) error {
	t := r.find(timerID)
	if t == nil || t.Status != domain.TimerStatusRunning {
		return pgx.ErrNoRows
	}
	t.Status = domain.TimerStatusPaused
	pausedAt := at
	t.PausedAt = &pausedAt
	t.Pauses = append(t.Pauses, domain.PauseInterval{TimerID: timerID, PausedAt: at})
	return nil
}

func (r *fakeTimerRepo) Resume(_ context.Context, timerID string, at time.Time) error {
	t := r.find(timerID)
	if t == nil || t.Status != domain.TimerStatusPaused {
		return pgx.ErrNoRows
	}
	t.Status = domain.TimerStatusRunning
	t.PausedAt = nil
	r.closeOpenPause(t, at)
	return nil
}

func (r *fakeTimerRepo) Complete(_ context.Context, timerID string, at time.Time, elapsed, remaining int, risk domain.RiskLevel) error {
	t := r.find(timerID)
	if t == nil || t.Status.IsTerminal() {
		return pgx.ErrNoRows
	}
	completedAt := at
	t.Status = domain.TimerStatusCompleted
	t.CompletedAt = &completedAt
	t.PausedAt = nil
	t.ElapsedMinutes = elapsed
	t.RemainingMinutes = remaining
	t.RiskLevel = risk
	r.closeOpenPause(t, at)
	return nil
}

func (r *fakeTimerRepo) Cancel(_ context.Context, timerID string, at time.Time) error {
	t := r.find(timerID)
	if t == nil || t.Status.IsTerminal() {
		return pgx.ErrNoRows
	}
	completedAt := at
	t.Status = domain.TimerStatusCancelled
	t.CompletedAt = &completedAt
	t.PausedAt = nil
	r.closeOpenPause(t, at)
	return nil
}

func (r *fakeTimerRepo) UpdateComputed(_ context.Context, timerID string, elapsed, remaining int, risk domain.RiskLevel) error {
	t := r.find(timerID)
	if t == nil || t.Status != domain.TimerStatusRunning {
		return nil
	}
	t.ElapsedMinutes = elapsed
	t.RemainingMinutes = remaining
	t.RiskLevel = risk
	return nil
}

func (r *fakeTimerRepo) closeOpenPause(t *domain.SLATimer, at time.Time) {
	for i := range t.Pauses {
		if t.Pauses[i].ResumedAt == nil {
			resumedAt := at
			t.Pauses[i].ResumedAt = &resumedAt
		}
	}
}

type fakeBreachRepo struct {
	breaches map[string]*domain.SLABreach
}

func newFakeBreachRepo() *fakeBreachRepo {
	return &fakeBreachRepo{breaches: make(map[string]*domain.SLABreach)}
}

func (r *fakeBreachRepo) CreateIfAbsent(_ context.Context, breach *domain.SLABreach) (bool, error) {
	if _, exists := r.breaches[breach.TimerID]; exists {
		return false, nil
	}
	copied := *breach
	r.breaches[breach.TimerID] = &copied
	return true, nil
}

func (r *fakeBreachRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.SLABreach, error) {
	var out []domain.SLABreach
	for _, b := range r.breaches {
		if b.TicketID == ticketID {
			out = append(out, *b)
		}
	}
	return out, nil
}

type fakeEscalationRepo struct {
	records map[string]*domain.SLAEscalation
}

func newFakeEscalationRepo() *fakeEscalationRepo {
	return &fakeEscalationRepo{records: make(map[string]*domain.SLAEscalation)}
}

func escalationKey(timerID string, level domain.RiskLevel) string {
	return timerID + "|" + string(level)
}

func (r *fakeEscalationRepo) CreateIfAbsent(_ context.Context, escalation *domain.SLAEscalation) (bool, error) {
	key := escalationKey(escalation.TimerID, escalation.Level)
	if _, exists := r.records[key]; exists {
		return false, nil
	}
	copied := *escalation
	r.records[key] = &copied
	return true, nil
}

func (r *fakeEscalationRepo) ListByTimer(_ context.Context, timerID string) ([]domain.SLAEscalation, error) {
	var out []domain.SLAEscalation
	for _, rec := range r.records {
		if rec.TimerID == timerID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

type recordingDispatcher struct {
	published []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.published = append(d.published, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) ofType(t events.EventType) []events.Event {
	var out []events.Event
	for _, e := range d.published {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type blockingDeduper struct {
	calls int
	allow bool
}

func (d *blockingDeduper) Acquire(context.Context, string, string) bool {
	d.calls++
	return d.allow
}
