// Package config defines the top-level configuration for the raceday backend
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by RACEDAY_* environment
// variables.
type Config struct {
	Betfair  BetfairConfig `toml:"betfair"`
	Markets  MarketsConfig `toml:"markets"`
	Session  SessionConfig `toml:"session"`
	Server   ServerConfig  `toml:"server"`
	Push     PushConfig    `toml:"push"`
	Notify   NotifyConfig  `toml:"notify"`
	LogLevel string        `toml:"log_level"`
}

// BetfairConfig holds the exchange API endpoints.
type BetfairConfig struct {
	IdentityURL string   `toml:"identity_url"`
	BettingURL  string   `toml:"betting_url"`
	Timeout     duration `toml:"timeout"`
}

// MarketsConfig selects which racing markets the service serves.
type MarketsConfig struct {
	EventTypeID      string   `toml:"event_type_id"`
	Countries        []string `toml:"countries"`
	MarketTypes      []string `toml:"market_types"`
	WindowHours      int      `toml:"window_hours"`
	MaxResults       int      `toml:"max_results"`
	DetailPriceDepth int      `toml:"detail_price_depth"`
}

// SessionConfig tunes the keep-alive cycle.
type SessionConfig struct {
	KeepAliveInterval     duration `toml:"keep_alive_interval"`
	RetryInterval         duration `toml:"retry_interval"`
	CallTimeout           duration `toml:"call_timeout"`
	FailureAlertThreshold int      `toml:"failure_alert_threshold"`
}

// ServerConfig holds the HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"` // empty disables auth
}

// PushConfig controls the WebSocket live-push refresher.
type PushConfig struct {
	Enabled bool `toml:"enabled"`
}

// NotifyConfig holds notification channel settings.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding of values like "15m" or "60s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values. The
// market selection matches UK and Irish horse-racing WIN markets inside the
// next 24 hours; the session intervals match the exchange's expiry rules.
func Defaults() Config {
	return Config{
		Betfair: BetfairConfig{
			IdentityURL: "https://identitysso.betfair.com/api",
			BettingURL:  "https://api.betfair.com/exchange/betting/rest/v1.0",
			Timeout:     duration{30 * time.Second},
		},
		Markets: MarketsConfig{
			EventTypeID:      "7",
			Countries:        []string{"GB", "IE"},
			MarketTypes:      []string{"WIN"},
			WindowHours:      24,
			MaxResults:       200,
			DetailPriceDepth: 3,
		},
		Session: SessionConfig{
			KeepAliveInterval:     duration{900 * time.Second},
			RetryInterval:         duration{60 * time.Second},
			CallTimeout:           duration{15 * time.Second},
			FailureAlertThreshold: 3,
		},
		Server: ServerConfig{
			Port: 5000,
		},
		Push: PushConfig{
			Enabled: true,
		},
		LogLevel: "info",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Betfair.IdentityURL == "" {
		errs = append(errs, "betfair: identity_url must not be empty")
	}
	if c.Betfair.BettingURL == "" {
		errs = append(errs, "betfair: betting_url must not be empty")
	}
	if c.Betfair.Timeout.Duration <= 0 {
		errs = append(errs, "betfair: timeout must be positive")
	}

	if c.Markets.EventTypeID == "" {
		errs = append(errs, "markets: event_type_id must not be empty")
	}
	if c.Markets.WindowHours <= 0 {
		errs = append(errs, "markets: window_hours must be positive")
	}
	if c.Markets.MaxResults < 1 || c.Markets.MaxResults > 1000 {
		errs = append(errs, fmt.Sprintf("markets: max_results must be 1-1000, got %d", c.Markets.MaxResults))
	}
	if c.Markets.DetailPriceDepth < 1 {
		errs = append(errs, "markets: detail_price_depth must be >= 1")
	}

	if c.Session.KeepAliveInterval.Duration <= 0 {
		errs = append(errs, "session: keep_alive_interval must be positive")
	}
	if c.Session.RetryInterval.Duration <= 0 {
		errs = append(errs, "session: retry_interval must be positive")
	}
	if c.Session.RetryInterval.Duration > c.Session.KeepAliveInterval.Duration {
		errs = append(errs, "session: retry_interval must not exceed keep_alive_interval")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}

	// Telegram needs both halves or neither.
	tt := c.Notify.TelegramToken != ""
	tc := c.Notify.TelegramChatID != ""
	if tt != tc {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
