package domain

import "time"

// RaceStatus is the lifecycle state of a race as shown to the user. Values
// come either from the exchange's own race status feed or from the time-based
// fallback in internal/race. Unknown provider values pass through verbatim,
// so the set below is the known vocabulary, not a closed one.
type RaceStatus string

const (
	RaceDormant     RaceStatus = "DORMANT"
	RaceDelayed     RaceStatus = "DELAYED"
	RaceParading    RaceStatus = "PARADING"
	RaceGoingDown   RaceStatus = "GOING_DOWN"
	RaceGoingBehind RaceStatus = "GOING_BEHIND"
	RaceAtThePost   RaceStatus = "AT_THE_POST"
	RaceStarted     RaceStatus = "STARTED"
	RaceFinished    RaceStatus = "FINISHED"
	RaceFalseStart  RaceStatus = "FALSE_START"
	RacePhotograph  RaceStatus = "PHOTOGRAPH"
	RaceResult      RaceStatus = "RESULT"
	RaceWeighedIn   RaceStatus = "WEIGHED_IN"
	RaceVoid        RaceStatus = "RACE_VOID"
	RaceAbandoned   RaceStatus = "ABANDONED"
	RaceSuspended   RaceStatus = "SUSPENDED"

	// RaceOpen is the idle state used by the coarse detail-view policy.
	RaceOpen RaceStatus = "OPEN"
)

// ColorClass is the display color bucket for a race status.
type ColorClass string

const (
	ColorGray   ColorClass = "gray"
	ColorRed    ColorClass = "red"
	ColorOrange ColorClass = "orange"
	ColorYellow ColorClass = "yellow"
	ColorPurple ColorClass = "purple"
	ColorGreen  ColorClass = "green"
)

// MarketSummary is one row of the upcoming-races list. It is a request-scoped
// value object: recomputed on every fetch, never cached across polls.
type MarketSummary struct {
	MarketID           string     `json:"market_id"`
	MarketName         string     `json:"market_name"`
	Venue              string     `json:"venue"`
	EventName          string     `json:"event_name"`
	StartTime          time.Time  `json:"-"`
	StartTimeLabel     string     `json:"start_time"`
	TimeToStartMinutes float64    `json:"time_to_start_minutes"`
	RaceInfo           string     `json:"race_info"`
	RaceInfoWithStatus string     `json:"race_info_with_status"`
	ColorIndex         int        `json:"color_index"`
	Status             RaceStatus `json:"race_status"`
	StatusColor        ColorClass `json:"status_color"`
	TotalMatched       float64    `json:"total_matched"`
}

// RunnerStatus is the state of a selection within a market.
type RunnerStatus string

const (
	RunnerActive  RunnerStatus = "ACTIVE"
	RunnerRemoved RunnerStatus = "REMOVED"
)

// RunnerView is the display form of one runner, with prices already reduced
// to the best offer on each side. Absent prices stay nil rather than zero so
// the UI can distinguish "no offer" from "offer at 0".
type RunnerView struct {
	SelectionID     int64        `json:"selection_id"`
	Name            string       `json:"name"`
	Status          RunnerStatus `json:"status"`
	BackPrice       *float64     `json:"back_price"`
	LayPrice        *float64     `json:"lay_price"`
	LastPriceTraded *float64     `json:"last_price_traded"`
	TotalMatched    float64      `json:"total_matched"`
}

// MarketDetail is the full view of a single race market.
type MarketDetail struct {
	MarketID       string       `json:"market_id"`
	MarketName     string       `json:"market_name"`
	StartTime      time.Time    `json:"-"`
	Runners        []RunnerView `json:"runners"`
	NonRunners     []RunnerView `json:"non_runners"`
	NonRunnerCount int          `json:"non_runner_count"`
	TotalMatched   float64      `json:"total_matched"`
	Status         RaceStatus   `json:"race_status"`
	StatusMessage  string       `json:"status_message"`
	InPlay         bool         `json:"in_play"`
	MarketStatus   string       `json:"market_status"`
}
