package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogNotifier stands in for the platform's notification service in
// environments where it is not wired up. It records what would have
// been sent and reports success.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier builds the notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the outgoing notification.
func (n *LogNotifier) Notify(ctx context.Context, userID string, payload any) error {
	n.logger.Info("notification dispatched",
		zap.String("user_id", userID),
		zap.Any("payload", payload))
	return nil
}
