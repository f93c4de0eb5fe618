// Package push re-fetches the upcoming race card on a dynamic interval and
// broadcasts it to WebSocket clients. The interval tightens as the next race
// approaches, matching how often a live board needs fresh prices.
package push

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bettadev/raceday/internal/domain"
	"github.com/bettadev/raceday/internal/race"
)

// Refresh cadences by proximity of the next race.
const (
	refreshImminent = 10 * time.Second // next race under 2 minutes away
	refreshSoon     = 30 * time.Second // under 5 minutes
	refreshNear     = time.Minute      // under 10 minutes
	refreshFar      = 2 * time.Minute  // 10 minutes or more
	refreshIdle     = 5 * time.Minute  // no upcoming races on the card

	// probeInterval is used while there is nothing to push: no session yet
	// or no connected clients. Short enough that the card appears promptly
	// once either changes.
	probeInterval = 15 * time.Second
)

// Fetcher is the aggregator surface the refresher consumes.
type Fetcher interface {
	FetchUpcoming(ctx context.Context, window domain.TimeRange) ([]domain.MarketSummary, race.FetchReport, error)
}

// Broadcaster delivers payloads to connected WebSocket clients.
type Broadcaster interface {
	Broadcast(msgType string, payload any)
	ClientCount() int
}

// Refresher polls the race card and pushes it over the hub.
type Refresher struct {
	fetcher     Fetcher
	hub         Broadcaster
	windowHours int
	logger      *slog.Logger
	now         func() time.Time
}

// NewRefresher creates a Refresher. windowHours bounds the catalogue query
// the same way the list endpoint does.
func NewRefresher(fetcher Fetcher, hub Broadcaster, windowHours int, logger *slog.Logger) *Refresher {
	if windowHours <= 0 {
		windowHours = 24
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{
		fetcher:     fetcher,
		hub:         hub,
		windowHours: windowHours,
		logger:      logger.With(slog.String("component", "push")),
		now:         time.Now,
	}
}

// Run polls until the context is cancelled. Each cycle fetches the card,
// broadcasts it, and sleeps for an interval derived from the card itself.
func (r *Refresher) Run(ctx context.Context) error {
	interval := probeInterval
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}

		interval = r.refresh(ctx)
	}
}

// refresh performs one poll cycle and returns the wait before the next one.
func (r *Refresher) refresh(ctx context.Context) time.Duration {
	// No clients means nobody to push to; skip the exchange round-trip.
	if r.hub.ClientCount() == 0 {
		return probeInterval
	}

	now := r.now()
	window := domain.TimeRange{
		From: now,
		To:   now.Add(time.Duration(r.windowHours) * time.Hour),
	}

	markets, _, err := r.fetcher.FetchUpcoming(ctx, window)
	if err != nil {
		if errors.Is(err, domain.ErrNotLoggedIn) {
			return probeInterval
		}
		r.logger.WarnContext(ctx, "card refresh failed",
			slog.String("error", err.Error()),
		)
		return refreshFar
	}

	if markets == nil {
		markets = []domain.MarketSummary{}
	}
	r.hub.Broadcast("race_card", map[string]any{
		"success":         true,
		"markets":         markets,
		"market_count":    len(markets),
		"current_time_uk": race.InUK(now).Format("15:04:05"),
	})

	return NextInterval(markets)
}

// NextInterval picks the poll cadence from the minutes until the next race
// that has not yet started. A card with no future races idles.
func NextInterval(markets []domain.MarketSummary) time.Duration {
	next := -1.0
	for _, m := range markets {
		if m.TimeToStartMinutes <= 0 {
			continue
		}
		if next < 0 || m.TimeToStartMinutes < next {
			next = m.TimeToStartMinutes
		}
	}

	switch {
	case next < 0:
		return refreshIdle
	case next < 2:
		return refreshImminent
	case next < 5:
		return refreshSoon
	case next < 10:
		return refreshNear
	default:
		return refreshFar
	}
}
