package race

import (
	"fmt"

	"github.com/bettadev/raceday/internal/domain"
)

// nonRunnerPrefix marks withdrawn runners in the display name.
const nonRunnerPrefix = "NR - "

// SeparateRunners joins the book's live runner list against the catalogue's
// runner card and splits the result into active and removed views. Catalogue
// and book lists can drift, so a missing name falls back to a synthesized
// "Runner {id}". Removed runners carry no prices: the exchange voids their
// ladders, so extraction is skipped entirely.
func SeparateRunners(bookRunners []domain.BookRunner, catalogueRunners []domain.CatalogueRunner) (active, removed []domain.RunnerView) {
	names := make(map[int64]string, len(catalogueRunners))
	for _, cr := range catalogueRunners {
		names[cr.SelectionID] = cr.Name
	}

	for _, br := range bookRunners {
		name, ok := names[br.SelectionID]
		if !ok || name == "" {
			name = fmt.Sprintf("Runner %d", br.SelectionID)
		}

		if br.Status == string(domain.RunnerRemoved) {
			removed = append(removed, domain.RunnerView{
				SelectionID:  br.SelectionID,
				Name:         nonRunnerPrefix + name,
				Status:       domain.RunnerRemoved,
				TotalMatched: br.TotalMatched,
			})
			continue
		}

		active = append(active, domain.RunnerView{
			SelectionID:     br.SelectionID,
			Name:            name,
			Status:          domain.RunnerActive,
			BackPrice:       bestPrice(br.AvailableToBack),
			LayPrice:        bestPrice(br.AvailableToLay),
			LastPriceTraded: br.LastPriceTraded,
			TotalMatched:    br.TotalMatched,
		})
	}

	return active, removed
}

// bestPrice returns the top of an offer ladder, or nil when the ladder is
// empty. Never assume the exchange filled the ladder.
func bestPrice(ladder []domain.PriceSize) *float64 {
	if len(ladder) == 0 {
		return nil
	}
	p := ladder[0].Price
	return &p
}
