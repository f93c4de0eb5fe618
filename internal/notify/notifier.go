// Package notify delivers session lifecycle alerts (login, logout, keep-alive
// failures) to operator channels. Alerts fan out to every configured sender
// and can be filtered by event type so operators only hear about the session
// events they care about.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Sender is one delivery channel for alerts.
type Sender interface {
	// Send delivers an alert with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name identifies the channel in logs (e.g. "telegram").
	Name() string
}

// Notifier fans alerts out to its senders, filtered by event type. An empty
// event list allows everything.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier for the given senders and allowed events.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = true
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Notify delivers an alert to every sender when the event type passes the
// configured filter. One failing sender does not stop delivery to the rest;
// failures are collected into the returned error.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out", slog.String("event", event))
		return nil
	}
	if len(n.senders) == 0 {
		return nil
	}

	var failed []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("event", event),
				slog.String("error", err.Error()),
			)
			failed = append(failed, fmt.Sprintf("%s: %v", s.Name(), err))
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(failed), strings.Join(failed, "; "))
	}
	return nil
}
