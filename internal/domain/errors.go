package domain

import "errors"

var (
	// Auth errors.
	ErrMissingCredentials = errors.New("missing credentials")
	ErrNoTokenReturned    = errors.New("login completed without a session token")
	ErrRemoteRejected     = errors.New("login rejected by exchange")

	// Session errors.
	ErrNotLoggedIn = errors.New("not logged in")

	// Market detail errors. RaceFinished and MarketSuspended are expected
	// terminal states, not faults; handlers attach a user-facing message.
	ErrMarketNotFound    = errors.New("market not found")
	ErrCatalogueNotFound = errors.New("market catalogue entry not found")
	ErrRaceFinished      = errors.New("race has finished")
	ErrMarketSuspended   = errors.New("market is suspended")

	// Remote errors.
	ErrRemoteTimeout = errors.New("exchange request timed out")
)
