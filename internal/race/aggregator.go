package race

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/bettadev/raceday/internal/domain"
)

// venueColorBuckets is the size of the venue color palette. Venues are ranked
// lexicographically and assigned rank mod buckets, which keeps a venue's
// color stable across refreshes of the same card.
const venueColorBuckets = 15

// ukTime is the display timezone for start-time labels. Racing cards are
// published in UK local time.
var ukTime = func() *time.Location {
	loc, err := time.LoadLocation("Europe/London")
	if err != nil {
		return time.UTC
	}
	return loc
}()

// InUK converts t to the UK wall clock used for display strings.
func InUK(t time.Time) time.Time {
	return t.In(ukTime)
}

// ExchangeSource yields the currently authenticated exchange client.
type ExchangeSource interface {
	Exchange() (domain.Exchange, error)
}

// Options tunes the aggregator's catalogue and book queries.
type Options struct {
	EventTypeID      string
	Countries        []string
	MarketTypes      []string
	MaxResults       int
	DetailPriceDepth int
}

// DefaultOptions matches the horse-racing card the service was built for:
// GB and IE WIN markets, event type 7, up to 200 results, three price rungs
// on the detail view.
func DefaultOptions() Options {
	return Options{
		EventTypeID:      "7",
		Countries:        []string{"GB", "IE"},
		MarketTypes:      []string{"WIN"},
		MaxResults:       200,
		DetailPriceDepth: 3,
	}
}

// SkippedMarket records one market dropped during aggregation and why.
type SkippedMarket struct {
	MarketID string `json:"market_id"`
	Reason   string `json:"reason"`
}

// FetchReport makes partial-failure isolation explicit: how many catalogue
// entries were seen, which were skipped, and whether the batch book query
// had to be degraded to empty status data.
type FetchReport struct {
	Total         int
	Skipped       []SkippedMarket
	BooksDegraded bool
}

// Aggregator fuses catalogue metadata and live books into display-ready race
// views. It is stateless between calls.
type Aggregator struct {
	source ExchangeSource
	opts   Options
	now    func() time.Time
	logger *slog.Logger
}

// NewAggregator creates an Aggregator. now may be nil, in which case wall
// clock UTC is used.
func NewAggregator(source ExchangeSource, opts Options, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		source: source,
		opts:   opts,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger.With(slog.String("component", "aggregator")),
	}
}

// FetchUpcoming returns the races starting inside window, soonest first.
// An empty catalogue is a successful empty result. A failed batch book query
// degrades to time-based statuses rather than failing the request, and
// malformed catalogue rows are skipped individually; both outcomes are
// recorded in the returned FetchReport.
func (a *Aggregator) FetchUpcoming(ctx context.Context, window domain.TimeRange) ([]domain.MarketSummary, FetchReport, error) {
	report := FetchReport{}

	ex, err := a.source.Exchange()
	if err != nil {
		return nil, report, err
	}

	catalogue, err := ex.ListMarketCatalogue(ctx, domain.CatalogueFilter{
		EventTypeID: a.opts.EventTypeID,
		Countries:   a.opts.Countries,
		MarketTypes: a.opts.MarketTypes,
		Window:      window,
		MaxResults:  a.opts.MaxResults,
	})
	if err != nil {
		return nil, report, fmt.Errorf("race: list catalogue: %w", err)
	}
	report.Total = len(catalogue)
	if len(catalogue) == 0 {
		return []domain.MarketSummary{}, report, nil
	}

	books := a.fetchBooks(ctx, ex, catalogue, &report)

	now := a.now()
	summaries := make([]domain.MarketSummary, 0, len(catalogue))
	for _, entry := range catalogue {
		summary, err := buildSummary(entry, books[entry.MarketID], now)
		if err != nil {
			a.logger.WarnContext(ctx, "skipping market",
				slog.String("market_id", entry.MarketID),
				slog.String("error", err.Error()),
			)
			report.Skipped = append(report.Skipped, SkippedMarket{
				MarketID: entry.MarketID,
				Reason:   err.Error(),
			})
			continue
		}
		summaries = append(summaries, summary)
	}

	assignVenueColors(summaries)

	// Stable sort keeps catalogue order for equal start times.
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].TimeToStartMinutes < summaries[j].TimeToStartMinutes
	})

	return summaries, report, nil
}

// fetchBooks batch-queries books for every catalogue entry. On failure it
// logs and returns an empty map: partial data beats no data.
func (a *Aggregator) fetchBooks(ctx context.Context, ex domain.Exchange, catalogue []domain.CatalogueEntry, report *FetchReport) map[string]domain.MarketBook {
	ids := make([]string, 0, len(catalogue))
	for _, entry := range catalogue {
		ids = append(ids, entry.MarketID)
	}

	books, err := ex.ListMarketBook(ctx, ids, domain.PriceProjection{})
	if err != nil {
		a.logger.WarnContext(ctx, "book query failed, degrading to time-based statuses",
			slog.Int("markets", len(ids)),
			slog.String("error", err.Error()),
		)
		report.BooksDegraded = true
		return map[string]domain.MarketBook{}
	}

	byID := make(map[string]domain.MarketBook, len(books))
	for _, b := range books {
		byID[b.MarketID] = b
	}
	return byID
}

// buildSummary joins one catalogue entry with its (possibly absent) book.
func buildSummary(entry domain.CatalogueEntry, book domain.MarketBook, now time.Time) (domain.MarketSummary, error) {
	if entry.MarketID == "" {
		return domain.MarketSummary{}, fmt.Errorf("catalogue entry without market id")
	}
	if entry.StartTime.IsZero() {
		return domain.MarketSummary{}, fmt.Errorf("catalogue entry without start time")
	}

	// A missing book degrades to an OPEN market with no provider status,
	// which pushes resolution onto the time heuristic.
	marketStatus := book.Status
	if marketStatus == "" {
		marketStatus = "OPEN"
	}

	minutes := entry.StartTime.Sub(now).Minutes()
	status := ResolveList(book.RaceStatus, marketStatus, minutes)

	label := entry.StartTime.In(ukTime).Format("15:04")
	info := fmt.Sprintf("%s %s - %s", label, entry.Venue, entry.MarketName)
	infoWithStatus := info
	if status != domain.RaceDormant {
		infoWithStatus = fmt.Sprintf("%s [%s]", info, status)
	}

	totalMatched := entry.TotalMatched
	if book.TotalMatched > 0 {
		totalMatched = book.TotalMatched
	}

	return domain.MarketSummary{
		MarketID:           entry.MarketID,
		MarketName:         entry.MarketName,
		Venue:              entry.Venue,
		EventName:          entry.EventName,
		StartTime:          entry.StartTime,
		StartTimeLabel:     label,
		TimeToStartMinutes: minutes,
		RaceInfo:           info,
		RaceInfoWithStatus: infoWithStatus,
		Status:             status,
		StatusColor:        ColorFor(status),
		TotalMatched:       totalMatched,
	}, nil
}

// assignVenueColors gives every summary a deterministic color bucket from the
// lexicographic rank of its venue. This is visual grouping, not status.
func assignVenueColors(summaries []domain.MarketSummary) {
	venues := make([]string, 0, len(summaries))
	seen := make(map[string]bool, len(summaries))
	for _, s := range summaries {
		if !seen[s.Venue] {
			seen[s.Venue] = true
			venues = append(venues, s.Venue)
		}
	}
	sort.Strings(venues)

	rank := make(map[string]int, len(venues))
	for i, v := range venues {
		rank[v] = i % venueColorBuckets
	}
	for i := range summaries {
		summaries[i].ColorIndex = rank[summaries[i].Venue]
	}
}

// FetchMarketDetail returns the full runner view for one market. CLOSED and
// SUSPENDED markets short-circuit to ErrRaceFinished / ErrMarketSuspended,
// which are expected end states rather than faults.
func (a *Aggregator) FetchMarketDetail(ctx context.Context, marketID string) (domain.MarketDetail, error) {
	ex, err := a.source.Exchange()
	if err != nil {
		return domain.MarketDetail{}, err
	}

	books, err := ex.ListMarketBook(ctx, []string{marketID}, domain.PriceProjection{
		BestOffersDepth: a.opts.DetailPriceDepth,
	})
	if err != nil {
		return domain.MarketDetail{}, fmt.Errorf("race: list book %s: %w", marketID, err)
	}
	if len(books) == 0 {
		return domain.MarketDetail{}, fmt.Errorf("race: market %s: %w", marketID, domain.ErrMarketNotFound)
	}
	book := books[0]

	switch book.Status {
	case "CLOSED":
		return domain.MarketDetail{}, fmt.Errorf("race: market %s: %w", marketID, domain.ErrRaceFinished)
	case "SUSPENDED":
		return domain.MarketDetail{}, fmt.Errorf("race: market %s: %w", marketID, domain.ErrMarketSuspended)
	}

	catalogue, err := ex.ListMarketCatalogue(ctx, domain.CatalogueFilter{
		MarketIDs:  []string{marketID},
		MaxResults: 1,
	})
	if err != nil {
		return domain.MarketDetail{}, fmt.Errorf("race: list catalogue %s: %w", marketID, err)
	}
	if len(catalogue) == 0 {
		return domain.MarketDetail{}, fmt.Errorf("race: market %s: %w", marketID, domain.ErrCatalogueNotFound)
	}
	entry := catalogue[0]

	active, removed := SeparateRunners(book.Runners, entry.Runners)
	sortByBackPrice(active)

	now := a.now()
	minutes := entry.StartTime.Sub(now).Minutes()
	status := ResolveDetail(book.RaceStatus, book.Status, minutes)

	statusMessage := ""
	if status != domain.RaceOpen {
		statusMessage = fmt.Sprintf(" • %s", status)
	}

	return domain.MarketDetail{
		MarketID:       entry.MarketID,
		MarketName:     entry.MarketName,
		StartTime:      entry.StartTime,
		Runners:        active,
		NonRunners:     removed,
		NonRunnerCount: len(removed),
		TotalMatched:   book.TotalMatched,
		Status:         status,
		StatusMessage:  statusMessage,
		InPlay:         !now.Before(entry.StartTime),
		MarketStatus:   book.Status,
	}, nil
}

// sortByBackPrice orders runners by best back price ascending. A runner with
// no back offer sorts last, not first: the sort key for an absent price is a
// sentinel larger than any real price.
func sortByBackPrice(runners []domain.RunnerView) {
	key := func(r domain.RunnerView) float64 {
		if r.BackPrice == nil {
			return math.MaxFloat64
		}
		return *r.BackPrice
	}
	sort.SliceStable(runners, func(i, j int) bool {
		return key(runners[i]) < key(runners[j])
	})
}
