package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/bettadev/raceday/internal/domain"
	"github.com/bettadev/raceday/internal/race"
)

// RaceFetcher is the aggregator surface the HTTP layer consumes.
type RaceFetcher interface {
	FetchUpcoming(ctx context.Context, window domain.TimeRange) ([]domain.MarketSummary, race.FetchReport, error)
	FetchMarketDetail(ctx context.Context, marketID string) (domain.MarketDetail, error)
}

// RaceHandler serves the upcoming-races list and single-market detail views.
type RaceHandler struct {
	fetcher     RaceFetcher
	windowHours int
	logger      *slog.Logger
	now         func() time.Time
}

// NewRaceHandler creates a RaceHandler. windowHours bounds the catalogue
// query: only races starting within that many hours are listed.
func NewRaceHandler(fetcher RaceFetcher, windowHours int, logger *slog.Logger) *RaceHandler {
	if windowHours <= 0 {
		windowHours = 24
	}
	return &RaceHandler{
		fetcher:     fetcher,
		windowHours: windowHours,
		logger:      logHandler(logger, "races"),
		now:         time.Now,
	}
}

// listResponse is the GET /data/horse-markets payload. The same shape is
// pushed over the WebSocket hub by the live refresher.
type listResponse struct {
	Success       bool                   `json:"success"`
	Markets       []domain.MarketSummary `json:"markets"`
	MarketCount   int                    `json:"market_count"`
	CurrentTimeUK string                 `json:"current_time_uk"`
	Skipped       []race.SkippedMarket   `json:"skipped,omitempty"`
}

// detailResponse is the GET /data/market-details/{id} payload.
type detailResponse struct {
	Success bool `json:"success"`
	domain.MarketDetail
	CurrentTimeUK string `json:"current_time_uk"`
}

// ListHorseMarkets returns the upcoming racing card, one summary per market,
// sorted by time to start. An empty card is a success, not an error.
// GET /data/horse-markets
func (h *RaceHandler) ListHorseMarkets(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	window := domain.TimeRange{
		From: now,
		To:   now.Add(time.Duration(h.windowHours) * time.Hour),
	}

	markets, report, err := h.fetcher.FetchUpcoming(r.Context(), window)
	if err != nil {
		h.writeFetchError(w, r, err, "list markets failed")
		return
	}

	if markets == nil {
		markets = []domain.MarketSummary{}
	}
	writeJSON(w, http.StatusOK, listResponse{
		Success:       true,
		Markets:       markets,
		MarketCount:   len(markets),
		CurrentTimeUK: race.InUK(now).Format("15:04:05"),
		Skipped:       report.Skipped,
	})
}

// MarketDetails returns the full runner board for one market.
// GET /data/market-details/{id}
func (h *RaceHandler) MarketDetails(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")
	if marketID == "" {
		writeError(w, http.StatusBadRequest, "market id is required")
		return
	}

	detail, err := h.fetcher.FetchMarketDetail(r.Context(), marketID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRaceFinished):
			writeJSON(w, http.StatusOK, map[string]any{
				"success":       false,
				"error":         "race finished",
				"user_message":  "This race has finished.",
				"market_status": "CLOSED",
			})
		case errors.Is(err, domain.ErrMarketSuspended):
			writeJSON(w, http.StatusOK, map[string]any{
				"success":       false,
				"error":         "market suspended",
				"user_message":  "This market is currently suspended.",
				"market_status": "SUSPENDED",
			})
		case errors.Is(err, domain.ErrMarketNotFound), errors.Is(err, domain.ErrCatalogueNotFound):
			writeError(w, http.StatusNotFound, "market not found")
		default:
			h.writeFetchError(w, r, err, "market detail failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, detailResponse{
		Success:       true,
		MarketDetail:  detail,
		CurrentTimeUK: race.InUK(h.now()).Format("15:04:05"),
	})
}

// writeFetchError maps aggregator errors shared by both endpoints.
func (h *RaceHandler) writeFetchError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	h.logger.WarnContext(r.Context(), msg, slog.String("error", err.Error()))
	switch {
	case errors.Is(err, domain.ErrNotLoggedIn):
		writeError(w, http.StatusUnauthorized, "not logged in")
	case errors.Is(err, domain.ErrRemoteTimeout):
		writeError(w, http.StatusGatewayTimeout, "exchange request timed out")
	default:
		writeError(w, http.StatusBadGateway, "exchange request failed")
	}
}
