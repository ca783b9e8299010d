// Package notify implements the one-way user notification channel. Notices
// are fire-and-forget: implementations swallow their own delivery failures.
package notify

import (
	"context"
	"log/slog"

	"github.com/rocketshoes/cart/internal/cart/app"
)

// Log writes notices to the structured log. Always wired, so every notice
// is observable even when no broker is configured.
type Log struct {
	log *slog.Logger
}

func NewLog(log *slog.Logger) *Log {
	return &Log{log: log}
}

func (l *Log) Notify(ctx context.Context, n app.Notice) {
	l.log.Warn("user notice",
		slog.String("notice_id", n.ID),
		slog.String("kind", n.Kind),
		slog.String("text", n.Text),
	)
}

// Multi fans a notice out to several notifiers in order.
type Multi []app.Notifier

func (m Multi) Notify(ctx context.Context, n app.Notice) {
	for _, notifier := range m {
		notifier.Notify(ctx, n)
	}
}
