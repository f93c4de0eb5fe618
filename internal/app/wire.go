package app

import (
	"log/slog"

	"github.com/bettadev/raceday/internal/config"
	"github.com/bettadev/raceday/internal/notify"
	"github.com/bettadev/raceday/internal/platform/betfair"
	"github.com/bettadev/raceday/internal/push"
	"github.com/bettadev/raceday/internal/race"
	"github.com/bettadev/raceday/internal/server"
	"github.com/bettadev/raceday/internal/server/handler"
	"github.com/bettadev/raceday/internal/server/ws"
	"github.com/bettadev/raceday/internal/session"
)

// Dependencies bundles everything the application lifecycle needs to run. It
// is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Manager    *session.Manager
	Aggregator *race.Aggregator
	Notifier   *notify.Notifier
	Server     *server.Server
	Hub        *ws.Hub
	Refresher  *push.Refresher
}

// Wire constructs all concrete dependencies from the given configuration and
// returns them together with a cleanup function that should be called on
// shutdown to release resources.
func Wire(cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Session manager over the Betfair dialer ---
	dialer := betfair.Dialer(betfair.Config{
		IdentityURL: cfg.Betfair.IdentityURL,
		BettingURL:  cfg.Betfair.BettingURL,
		Timeout:     cfg.Betfair.Timeout.Duration,
	})
	deps.Manager = session.NewManager(dialer, session.Config{
		KeepAliveInterval:     cfg.Session.KeepAliveInterval.Duration,
		RetryInterval:         cfg.Session.RetryInterval.Duration,
		CallTimeout:           cfg.Session.CallTimeout.Duration,
		FailureAlertThreshold: cfg.Session.FailureAlertThreshold,
	}, deps.Notifier, logger)
	closers = append(closers, deps.Manager.Close)

	// --- Race aggregator ---
	deps.Aggregator = race.NewAggregator(deps.Manager, race.Options{
		EventTypeID:      cfg.Markets.EventTypeID,
		Countries:        cfg.Markets.Countries,
		MarketTypes:      cfg.Markets.MarketTypes,
		MaxResults:       cfg.Markets.MaxResults,
		DetailPriceDepth: cfg.Markets.DetailPriceDepth,
	}, logger)

	// --- Live push ---
	deps.Hub = ws.NewHub(logger)
	if cfg.Push.Enabled {
		deps.Refresher = push.NewRefresher(deps.Aggregator, deps.Hub, cfg.Markets.WindowHours, logger)
	}

	// --- HTTP server ---
	handlers := server.Handlers{
		Health:  handler.NewHealthHandler(logger),
		Session: handler.NewSessionHandler(deps.Manager, logger),
		Races:   handler.NewRaceHandler(deps.Aggregator, cfg.Markets.WindowHours, logger),
	}
	deps.Server = server.NewServer(server.Config{
		Port:        cfg.Server.Port,
		CORSOrigins: cfg.Server.CORSOrigins,
		APIKey:      cfg.Server.APIKey,
	}, handlers, deps.Hub, logger)

	return deps, cleanup, nil
}
