// Package notify delivers lending notifications outside the transaction that
// produced them. Delivery is best effort: callers log failures and move on.
package notify

import (
	"context"
	"log/slog"

	"github.com/segyhp/library-lending/internal/domain"
)

// Notifier hands a notification to an external delivery channel
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// LogNotifier writes notifications to the structured log. Used when no
// outbox is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, msg domain.Notification) error {
	n.logger.InfoContext(ctx, "notification",
		"user_id", msg.UserID,
		"kind", msg.Kind,
		"title_id", msg.TitleID,
		"subject", msg.Subject,
	)
	return nil
}
