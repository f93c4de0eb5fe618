// Package session owns the single process-wide exchange session: login,
// logout, and the background keep-alive cycle that stops it expiring.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bettadev/raceday/internal/domain"
)

// tokenPreviewLen is how much of the session token Status exposes. The
// process is the token's sole owner; callers only ever see this prefix.
const tokenPreviewLen = 8

// Notifier delivers session lifecycle alerts. It matches internal/notify.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Config tunes the keep-alive cycle.
type Config struct {
	// KeepAliveInterval is the wait after a successful ping.
	KeepAliveInterval time.Duration
	// RetryInterval is the shortened wait after a failed ping.
	RetryInterval time.Duration
	// CallTimeout bounds each remote keep-alive and logout call.
	CallTimeout time.Duration
	// FailureAlertThreshold is the consecutive-failure count that triggers
	// a notification. Zero disables alerts.
	FailureAlertThreshold int
}

// DefaultConfig returns the intervals the exchange expects: a ping well
// inside the provider's session expiry, with a 60s backoff on failure.
func DefaultConfig() Config {
	return Config{
		KeepAliveInterval:     900 * time.Second,
		RetryInterval:         60 * time.Second,
		CallTimeout:           15 * time.Second,
		FailureAlertThreshold: 3,
	}
}

// Manager holds the one live Session behind a single-writer lock and runs at
// most one keep-alive goroutine at a time.
type Manager struct {
	dial     domain.Dialer
	cfg      Config
	logger   *slog.Logger
	notifier Notifier

	mu     sync.Mutex
	ex     domain.Exchange
	sess   domain.Session
	cancel context.CancelFunc
}

// NewManager creates a Manager. notifier may be nil.
func NewManager(dial domain.Dialer, cfg Config, notifier Notifier, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.KeepAliveInterval <= 0 {
		cfg.KeepAliveInterval = DefaultConfig().KeepAliveInterval
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultConfig().RetryInterval
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultConfig().CallTimeout
	}
	return &Manager{
		dial:     dial,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "session")),
		notifier: notifier,
	}
}

// Login validates credentials locally, performs the interactive login, and
// replaces any existing session. The previous keep-alive cycle is cancelled
// before the new one starts, so exactly one cycle runs per live session.
func (m *Manager) Login(ctx context.Context, creds domain.Credentials) (domain.Session, error) {
	if err := creds.Validate(); err != nil {
		return domain.Session{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ex, token, err := m.dial(ctx, creds)
	if err != nil {
		return domain.Session{}, fmt.Errorf("session: login: %w", err)
	}
	if token == "" {
		// A login flow that completed without usable credentials is a
		// distinct provider-side failure, not a generic error.
		return domain.Session{}, domain.ErrNoTokenReturned
	}

	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}

	m.ex = ex
	m.sess = domain.Session{Token: token, Active: true}

	kaCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	go m.runKeepAlive(kaCtx)

	m.logger.InfoContext(ctx, "logged in",
		slog.String("username", creds.Username),
		slog.String("token_preview", preview(token)),
	)
	m.notify(ctx, "session.login", "Logged in", "Exchange session established for "+creds.Username)

	return m.sess, nil
}

// Logout signals the keep-alive cycle to stop, attempts the remote logout,
// and clears local state regardless of the remote outcome. It never blocks
// waiting for the cycle to observe the signal; its next wake-up finds the
// session cleared and no-ops.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	ex := m.ex
	m.ex = nil
	m.sess = domain.Session{}
	m.mu.Unlock()

	if ex == nil {
		return domain.ErrNotLoggedIn
	}

	callCtx, cancel := context.WithTimeout(ctx, m.cfg.CallTimeout)
	defer cancel()
	if err := ex.Logout(callCtx); err != nil {
		// Local state is already consistent; the remote session will lapse
		// on its own once keep-alives stop.
		m.logger.WarnContext(ctx, "remote logout failed", slog.String("error", err.Error()))
	}

	m.logger.InfoContext(ctx, "logged out")
	m.notify(ctx, "session.logout", "Logged out", "Exchange session closed")
	return nil
}

// Status reports the current session state without exposing the token.
func (m *Manager) Status() domain.SessionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.SessionStatus{
		LoggedIn:        m.sess.Active,
		TokenPreview:    preview(m.sess.Token),
		KeepAliveActive: m.cancel != nil,
	}
}

// Exchange returns the authenticated exchange client for data queries, or
// ErrNotLoggedIn when no session is live.
func (m *Manager) Exchange() (domain.Exchange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ex == nil {
		return nil, domain.ErrNotLoggedIn
	}
	return m.ex, nil
}

// Close stops the keep-alive cycle without touching the remote session.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

// runKeepAlive pings the exchange on a fixed cadence. It pings immediately,
// waits the full interval after a success, and retries after the shorter
// backoff on failure. The loop never terminates itself on error; only the
// cancel from Login (restart) or Logout ends it. A concurrently cleared
// session is "nothing to keep alive", not a fault.
func (m *Manager) runKeepAlive(ctx context.Context) {
	failures := 0

	for {
		if ctx.Err() != nil {
			return
		}
		wait := m.cfg.KeepAliveInterval

		ex, err := m.Exchange()
		if err == nil {
			callCtx, cancel := context.WithTimeout(ctx, m.cfg.CallTimeout)
			err = ex.KeepAlive(callCtx)
			cancel()

			if err != nil {
				failures++
				wait = m.cfg.RetryInterval
				m.logger.Error("keep-alive failed",
					slog.Int("consecutive_failures", failures),
					slog.String("error", err.Error()),
				)
				if m.cfg.FailureAlertThreshold > 0 && failures == m.cfg.FailureAlertThreshold {
					m.notify(ctx, "session.keepalive", "Keep-alive failing",
						fmt.Sprintf("%d consecutive keep-alive failures", failures))
				}
			} else {
				if failures > 0 {
					m.logger.Info("keep-alive recovered", slog.Int("after_failures", failures))
				} else {
					m.logger.Debug("keep-alive ok")
				}
				failures = 0
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func (m *Manager) notify(ctx context.Context, event, title, message string) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Notify(ctx, event, title, message); err != nil {
		m.logger.Warn("notification failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

// preview truncates a token to its public prefix.
func preview(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= tokenPreviewLen {
		return token
	}
	return token[:tokenPreviewLen] + "..."
}
