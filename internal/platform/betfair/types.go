package betfair

import (
	"time"

	"github.com/bettadev/raceday/internal/domain"
)

// loginResponse is the identity SSO response for login and keepAlive.
type loginResponse struct {
	Token   string `json:"token"`
	Product string `json:"product"`
	Status  string `json:"status"`
	Error   string `json:"error"`
}

// apiErrorResponse is the betting API error envelope.
type apiErrorResponse struct {
	Detail struct {
		APINGException struct {
			ErrorCode    string `json:"errorCode"`
			ErrorDetails string `json:"errorDetails"`
		} `json:"APINGException"`
	} `json:"detail"`
	FaultCode   string `json:"faultcode"`
	FaultString string `json:"faultstring"`
}

// marketFilter is the betting API market selector.
type marketFilter struct {
	MarketIDs       []string         `json:"marketIds,omitempty"`
	EventTypeIDs    []string         `json:"eventTypeIds,omitempty"`
	MarketCountries []string         `json:"marketCountries,omitempty"`
	MarketTypeCodes []string         `json:"marketTypeCodes,omitempty"`
	MarketStartTime *timeRangeFilter `json:"marketStartTime,omitempty"`
}

type timeRangeFilter struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// listMarketCatalogueRequest is the listMarketCatalogue call body.
type listMarketCatalogueRequest struct {
	Filter           marketFilter `json:"filter"`
	MarketProjection []string     `json:"marketProjection"`
	Sort             string       `json:"sort,omitempty"`
	MaxResults       int          `json:"maxResults"`
}

// listMarketBookRequest is the listMarketBook call body.
type listMarketBookRequest struct {
	MarketIDs       []string         `json:"marketIds"`
	PriceProjection *priceProjection `json:"priceProjection,omitempty"`
}

type priceProjection struct {
	PriceData            []string              `json:"priceData"`
	ExBestOffersOverride *exBestOffersOverride `json:"exBestOffersOverrides,omitempty"`
}

type exBestOffersOverride struct {
	BestPricesDepth int `json:"bestPricesDepth"`
}

// marketCatalogue is one catalogue row on the wire.
type marketCatalogue struct {
	MarketID        string            `json:"marketId"`
	MarketName      string            `json:"marketName"`
	MarketStartTime time.Time         `json:"marketStartTime"`
	TotalMatched    float64           `json:"totalMatched"`
	Runners         []runnerCatalogue `json:"runners"`
	Event           *eventDescription `json:"event"`
}

type runnerCatalogue struct {
	SelectionID  int64  `json:"selectionId"`
	RunnerName   string `json:"runnerName"`
	SortPriority int    `json:"sortPriority"`
}

type eventDescription struct {
	Name        string `json:"name"`
	Venue       string `json:"venue"`
	CountryCode string `json:"countryCode"`
}

// marketBook is one live book on the wire. The race status has appeared
// under several spellings across provider API versions; all variants are
// declared here and folded into one optional value by providerRaceStatus,
// so nothing past this file ever probes alternatives.
type marketBook struct {
	MarketID     string       `json:"marketId"`
	Status       string       `json:"status"`
	Inplay       bool         `json:"inplay"`
	TotalMatched float64      `json:"totalMatched"`
	Runners      []runnerBook `json:"runners"`

	RaceStatus    *string `json:"raceStatus,omitempty"`
	InplayStatus  *string `json:"inplayStatus,omitempty"`
	RaceStatusAlt *string `json:"race_status,omitempty"`
}

// providerRaceStatus returns the first populated race-status spelling.
func (b marketBook) providerRaceStatus() *string {
	for _, v := range []*string{b.RaceStatus, b.InplayStatus, b.RaceStatusAlt} {
		if v != nil && *v != "" {
			return v
		}
	}
	return nil
}

type runnerBook struct {
	SelectionID     int64           `json:"selectionId"`
	Status          string          `json:"status"`
	LastPriceTraded *float64        `json:"lastPriceTraded"`
	TotalMatched    float64         `json:"totalMatched"`
	Ex              *exchangePrices `json:"ex"`
}

type exchangePrices struct {
	AvailableToBack []priceSize `json:"availableToBack"`
	AvailableToLay  []priceSize `json:"availableToLay"`
}

type priceSize struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// toDomain converts a wire catalogue row into the domain form.
func (mc marketCatalogue) toDomain() domain.CatalogueEntry {
	entry := domain.CatalogueEntry{
		MarketID:     mc.MarketID,
		MarketName:   mc.MarketName,
		StartTime:    mc.MarketStartTime,
		TotalMatched: mc.TotalMatched,
	}
	if mc.Event != nil {
		entry.EventName = mc.Event.Name
		entry.Venue = mc.Event.Venue
	}
	for _, r := range mc.Runners {
		entry.Runners = append(entry.Runners, domain.CatalogueRunner{
			SelectionID:  r.SelectionID,
			Name:         r.RunnerName,
			SortPriority: r.SortPriority,
		})
	}
	return entry
}

// toDomain converts a wire book into the domain form, folding the provider
// race-status variants into the single normalized optional.
func (b marketBook) toDomain() domain.MarketBook {
	book := domain.MarketBook{
		MarketID:     b.MarketID,
		Status:       b.Status,
		InPlay:       b.Inplay,
		TotalMatched: b.TotalMatched,
		RaceStatus:   b.providerRaceStatus(),
	}
	for _, r := range b.Runners {
		br := domain.BookRunner{
			SelectionID:     r.SelectionID,
			Status:          r.Status,
			LastPriceTraded: r.LastPriceTraded,
			TotalMatched:    r.TotalMatched,
		}
		if r.Ex != nil {
			for _, p := range r.Ex.AvailableToBack {
				br.AvailableToBack = append(br.AvailableToBack, domain.PriceSize{Price: p.Price, Size: p.Size})
			}
			for _, p := range r.Ex.AvailableToLay {
				br.AvailableToLay = append(br.AvailableToLay, domain.PriceSize{Price: p.Price, Size: p.Size})
			}
		}
		book.Runners = append(book.Runners, br)
	}
	return book
}
