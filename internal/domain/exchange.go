package domain

import (
	"context"
	"time"
)

// Credentials are the three values Betfair's interactive login requires.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	AppKey   string `json:"app_key"`
}

// Validate reports ErrMissingCredentials when any field is empty. It is
// called before any remote work so bad input never reaches the exchange.
func (c Credentials) Validate() error {
	if c.Username == "" || c.Password == "" || c.AppKey == "" {
		return ErrMissingCredentials
	}
	return nil
}

// TimeRange bounds a market start-time window.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// CatalogueFilter selects markets from the exchange catalogue. MarketIDs and
// the event-type fields are alternative selectors: detail lookups filter by
// ID, the upcoming list filters by event type, country and window.
type CatalogueFilter struct {
	MarketIDs   []string
	EventTypeID string
	Countries   []string
	MarketTypes []string
	Window      TimeRange
	MaxResults  int
}

// CatalogueRunner is the static description of one selection.
type CatalogueRunner struct {
	SelectionID  int64
	Name         string
	SortPriority int
}

// CatalogueEntry is the static metadata for one market: names, venue, start
// time and the runner card. Live prices live in MarketBook.
type CatalogueEntry struct {
	MarketID     string
	MarketName   string
	EventName    string
	Venue        string
	StartTime    time.Time
	TotalMatched float64
	Runners      []CatalogueRunner
}

// PriceSize is one rung of an offer ladder.
type PriceSize struct {
	Price float64
	Size  float64
}

// BookRunner is the live trading state of one selection.
type BookRunner struct {
	SelectionID     int64
	Status          string
	LastPriceTraded *float64
	TotalMatched    float64
	AvailableToBack []PriceSize
	AvailableToLay  []PriceSize
}

// MarketBook is the live trading state of one market. RaceStatus is the
// already-normalized optional provider race status: the platform client folds
// every known provider spelling of the field into this single value, so no
// code past this boundary probes field variants.
type MarketBook struct {
	MarketID     string
	Status       string
	InPlay       bool
	TotalMatched float64
	RaceStatus   *string
	Runners      []BookRunner
}

// PriceProjection controls how much of the offer ladder a book query returns.
type PriceProjection struct {
	BestOffersDepth int
}

// Exchange is the authenticated remote exchange session. Implementations own
// the session token; callers only ever see these operations.
type Exchange interface {
	KeepAlive(ctx context.Context) error
	Logout(ctx context.Context) error
	ListMarketCatalogue(ctx context.Context, filter CatalogueFilter) ([]CatalogueEntry, error)
	ListMarketBook(ctx context.Context, marketIDs []string, proj PriceProjection) ([]MarketBook, error)
}

// Dialer performs an interactive login and returns the authenticated exchange
// client together with the session token it obtained. An empty token from the
// provider must surface as ErrNoTokenReturned, not as a generic failure.
type Dialer func(ctx context.Context, creds Credentials) (Exchange, string, error)
