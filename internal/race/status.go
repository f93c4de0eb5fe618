// Package race holds the pure race-data logic: status resolution, runner
// separation, and the aggregator that fuses catalogue and book responses into
// display-ready views.
package race

import (
	"strings"

	"github.com/bettadev/raceday/internal/domain"
)

// providerStatusMap translates the exchange's compact race-status spellings
// into display form. Anything not listed passes through verbatim so new
// provider values degrade to themselves instead of failing.
var providerStatusMap = map[string]domain.RaceStatus{
	"DORMANT":     domain.RaceDormant,
	"DELAYED":     domain.RaceDelayed,
	"PARADING":    domain.RaceParading,
	"GOINGDOWN":   domain.RaceGoingDown,
	"GOINGBEHIND": domain.RaceGoingBehind,
	"ATTHEPOST":   domain.RaceAtThePost,
	"STARTED":     domain.RaceStarted,
	"FINISHED":    domain.RaceFinished,
	"FALSESTART":  domain.RaceFalseStart,
	"PHOTOGRAPH":  domain.RacePhotograph,
	"RESULT":      domain.RaceResult,
	"WEIGHEDIN":   domain.RaceWeighedIn,
	"RACEVOID":    domain.RaceVoid,
	"ABANDONED":   domain.RaceAbandoned,
	"SUSPENDED":   domain.RaceSuspended,
}

// FromProvider maps a raw provider race status to its display form.
func FromProvider(raw string) domain.RaceStatus {
	upper := strings.ToUpper(strings.TrimSpace(raw))
	if mapped, ok := providerStatusMap[upper]; ok {
		return mapped
	}
	return domain.RaceStatus(upper)
}

// ResolveList derives the race status for the upcoming-races list. The
// provider status wins when present; otherwise the market status and time to
// start decide, in that precedence order.
//
// ResolveList and ResolveDetail are deliberately separate policies: the list
// wants fine pre-race stages, the detail view only needs a coarse in-play
// signal. Do not unify them.
func ResolveList(providerStatus *string, marketStatus string, minutesToStart float64) domain.RaceStatus {
	if providerStatus != nil && *providerStatus != "" {
		return FromProvider(*providerStatus)
	}
	switch marketStatus {
	case "CLOSED":
		return domain.RaceFinished
	case "SUSPENDED":
		return domain.RaceSuspended
	}
	switch {
	case minutesToStart <= 0:
		return domain.RaceStarted
	case minutesToStart <= 2:
		return domain.RaceAtThePost
	case minutesToStart <= 5:
		return domain.RaceGoingDown
	case minutesToStart <= 10:
		return domain.RaceParading
	default:
		return domain.RaceDormant
	}
}

// ResolveDetail derives the coarse race status for the single-market view.
func ResolveDetail(providerStatus *string, marketStatus string, minutesToStart float64) domain.RaceStatus {
	if providerStatus != nil && *providerStatus != "" {
		return FromProvider(*providerStatus)
	}
	switch marketStatus {
	case "CLOSED":
		return domain.RaceFinished
	case "SUSPENDED":
		return domain.RaceSuspended
	}
	switch {
	case minutesToStart <= 2:
		return domain.RaceAtThePost
	case minutesToStart <= 10:
		return domain.RaceParading
	default:
		return domain.RaceOpen
	}
}

// ColorFor assigns a display color to a race status. The partition is total:
// any status outside the named groups, including provider pass-throughs,
// lands on green.
func ColorFor(status domain.RaceStatus) domain.ColorClass {
	switch status {
	case domain.RaceFinished, domain.RaceResult, domain.RaceWeighedIn:
		return domain.ColorGray
	case domain.RaceStarted, domain.RacePhotograph:
		return domain.ColorRed
	case domain.RaceAtThePost, domain.RaceGoingBehind:
		return domain.ColorOrange
	case domain.RaceGoingDown, domain.RaceParading:
		return domain.ColorYellow
	case domain.RaceDelayed, domain.RaceSuspended:
		return domain.ColorPurple
	default:
		return domain.ColorGreen
	}
}
