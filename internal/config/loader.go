package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies RACEDAY_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
//
// A missing file is not an error: defaults plus environment are enough to
// run against the production exchange endpoints.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known RACEDAY_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Betfair ──
	setStr(&cfg.Betfair.IdentityURL, "RACEDAY_BETFAIR_IDENTITY_URL")
	setStr(&cfg.Betfair.BettingURL, "RACEDAY_BETFAIR_BETTING_URL")
	setDuration(&cfg.Betfair.Timeout, "RACEDAY_BETFAIR_TIMEOUT")

	// ── Markets ──
	setStr(&cfg.Markets.EventTypeID, "RACEDAY_MARKETS_EVENT_TYPE_ID")
	setStringSlice(&cfg.Markets.Countries, "RACEDAY_MARKETS_COUNTRIES")
	setStringSlice(&cfg.Markets.MarketTypes, "RACEDAY_MARKETS_MARKET_TYPES")
	setInt(&cfg.Markets.WindowHours, "RACEDAY_MARKETS_WINDOW_HOURS")
	setInt(&cfg.Markets.MaxResults, "RACEDAY_MARKETS_MAX_RESULTS")
	setInt(&cfg.Markets.DetailPriceDepth, "RACEDAY_MARKETS_DETAIL_PRICE_DEPTH")

	// ── Session ──
	setDuration(&cfg.Session.KeepAliveInterval, "RACEDAY_SESSION_KEEP_ALIVE_INTERVAL")
	setDuration(&cfg.Session.RetryInterval, "RACEDAY_SESSION_RETRY_INTERVAL")
	setDuration(&cfg.Session.CallTimeout, "RACEDAY_SESSION_CALL_TIMEOUT")
	setInt(&cfg.Session.FailureAlertThreshold, "RACEDAY_SESSION_FAILURE_ALERT_THRESHOLD")

	// ── Server ──
	setInt(&cfg.Server.Port, "RACEDAY_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "RACEDAY_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "RACEDAY_SERVER_API_KEY")

	// ── Push ──
	setBool(&cfg.Push.Enabled, "RACEDAY_PUSH_ENABLED")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "RACEDAY_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "RACEDAY_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "RACEDAY_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "RACEDAY_NOTIFY_EVENTS")

	// ── Top level ──
	setStr(&cfg.LogLevel, "RACEDAY_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
