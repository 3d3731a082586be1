package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/wzatco/helpdesk-sla/internal/events"
	"github.com/wzatco/helpdesk-sla/internal/notify"
	"github.com/wzatco/helpdesk-sla/internal/repository"
)

// NotificationService bridges SLA events to the consumed collaborators:
// the platform notifier and the webhook endpoint. Delivery failures are
// logged and dropped; the escalation record already exists and the
// dispatcher's own retry layer owns reliability.
type NotificationService struct {
	dispatcher events.Dispatcher
	notifier   notify.NotificationDispatcher
	webhooks   notify.WebhookDispatcher
	tickets    repository.TicketStore
	logger     *zap.Logger
	timeout    time.Duration
}

// NotificationDependencies bundles collaborators.
type NotificationDependencies struct {
	Dispatcher events.Dispatcher
	Notifier   notify.NotificationDispatcher
	Webhooks   notify.WebhookDispatcher
	Tickets    repository.TicketStore
	Logger     *zap.Logger
	Timeout    time.Duration
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &NotificationService{
		dispatcher: deps.Dispatcher,
		notifier:   deps.Notifier,
		webhooks:   deps.Webhooks,
		tickets:    deps.Tickets,
		logger:     deps.Logger,
		timeout:    timeout,
	}
}

// RegisterHandlers subscribes to SLA events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventBreached, n.handleBreached)
	n.dispatcher.Subscribe(events.EventEscalated, n.handleEscalated)
	n.dispatcher.Subscribe(events.EventTimerCompleted, n.handleTimerCompleted)
}

func (n *NotificationService) handleBreached(ctx context.Context, event events.Event) error {
	n.dispatchWebhook(string(events.EventBreached), event)
	n.notifyAssignee(event)
	return nil
}

func (n *NotificationService) handleEscalated(ctx context.Context, event events.Event) error {
	n.dispatchWebhook(string(events.EventEscalated), event)
	n.notifyAssignee(event)
	return nil
}

func (n *NotificationService) handleTimerCompleted(ctx context.Context, event events.Event) error {
	n.dispatchWebhook(string(events.EventTimerCompleted), event)
	return nil
}

// dispatchWebhook delivers asynchronously so a slow endpoint never
// stalls the sweep that published the event.
func (n *NotificationService) dispatchWebhook(eventName string, event events.Event) {
	if n.webhooks == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		if err := n.webhooks.Trigger(ctx, eventName, event); err != nil {
			n.logger.Warn("webhook dispatch failed",
				zap.String("event", eventName),
				zap.String("ticket_id", event.TicketID),
				zap.Error(err))
		}
	}()
}

func (n *NotificationService) notifyAssignee(event events.Event) {
	if n.notifier == nil || n.tickets == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		ticket, err := n.tickets.GetByID(ctx, event.TicketID)
		if err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				n.logger.Warn("assignee lookup failed", zap.String("ticket_id", event.TicketID), zap.Error(err))
			}
			return
		}
		if ticket.AssigneeID == nil {
			return
		}
		if err := n.notifier.Notify(ctx, *ticket.AssigneeID, event); err != nil {
			n.logger.Warn("notification dispatch failed",
				zap.String("ticket_id", event.TicketID),
				zap.String("user_id", *ticket.AssigneeID),
				zap.Error(err))
		}
	}()
}
