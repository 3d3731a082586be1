package notify

import "context"

// NotificationDispatcher delivers a payload to a user. The platform's
// notification service owns delivery and retries; callers treat the
// call as fire-and-forget.
type NotificationDispatcher interface {
	Notify(ctx context.Context, userID string, payload any) error
}

// WebhookDispatcher delivers a named event to the configured webhook
// endpoint. Same fire-and-forget contract.
type WebhookDispatcher interface {
	Trigger(ctx context.Context, eventName string, payload any) error
}
