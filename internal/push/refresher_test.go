package push

import (
	"context"
	"testing"
	"time"

	"github.com/bettadev/raceday/internal/domain"
	"github.com/bettadev/raceday/internal/race"
)

func card(minutes ...float64) []domain.MarketSummary {
	out := make([]domain.MarketSummary, 0, len(minutes))
	for i, m := range minutes {
		out = append(out, domain.MarketSummary{
			MarketID:           "1.2345" + string(rune('0'+i)),
			TimeToStartMinutes: m,
		})
	}
	return out
}

func TestNextInterval(t *testing.T) {
	tests := []struct {
		name    string
		markets []domain.MarketSummary
		want    time.Duration
	}{
		{"empty card idles", nil, refreshIdle},
		{"all races started idles", card(-5, -20), refreshIdle},
		{"under two minutes", card(1.5, 30), refreshImminent},
		{"under five minutes", card(3, 45), refreshSoon},
		{"under ten minutes", card(8), refreshNear},
		{"distant card", card(25, 90), refreshFar},
		{"started race ignored for cadence", card(-1, 8), refreshNear},
		{"nearest future race wins", card(40, 4, 12), refreshSoon},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextInterval(tt.markets); got != tt.want {
				t.Fatalf("NextInterval() = %v, want %v", got, tt.want)
			}
		})
	}
}

type fakeFetcher struct {
	markets []domain.MarketSummary
	err     error
	calls   int
}

func (f *fakeFetcher) FetchUpcoming(ctx context.Context, window domain.TimeRange) ([]domain.MarketSummary, race.FetchReport, error) {
	f.calls++
	return f.markets, race.FetchReport{Total: len(f.markets)}, f.err
}

type fakeHub struct {
	clients   int
	broadcast []string
	payloads  []any
}

func (f *fakeHub) Broadcast(msgType string, payload any) {
	f.broadcast = append(f.broadcast, msgType)
	f.payloads = append(f.payloads, payload)
}

func (f *fakeHub) ClientCount() int { return f.clients }

func TestRefreshSkipsWhenNoClients(t *testing.T) {
	fetcher := &fakeFetcher{markets: card(3)}
	hub := &fakeHub{clients: 0}
	r := NewRefresher(fetcher, hub, 24, nil)

	if got := r.refresh(context.Background()); got != probeInterval {
		t.Fatalf("refresh() = %v, want %v", got, probeInterval)
	}
	if fetcher.calls != 0 {
		t.Fatalf("fetcher called %d times, want 0", fetcher.calls)
	}
}

func TestRefreshBroadcastsCard(t *testing.T) {
	fetcher := &fakeFetcher{markets: card(3, 45)}
	hub := &fakeHub{clients: 2}
	r := NewRefresher(fetcher, hub, 24, nil)

	got := r.refresh(context.Background())
	if got != refreshSoon {
		t.Fatalf("refresh() = %v, want %v", got, refreshSoon)
	}
	if len(hub.broadcast) != 1 || hub.broadcast[0] != "race_card" {
		t.Fatalf("broadcast types = %v, want [race_card]", hub.broadcast)
	}

	payload, ok := hub.payloads[0].(map[string]any)
	if !ok {
		t.Fatalf("payload is %T, want map", hub.payloads[0])
	}
	if payload["success"] != true {
		t.Fatalf("payload success = %v, want true", payload["success"])
	}
	if payload["market_count"] != 2 {
		t.Fatalf("payload market_count = %v, want 2", payload["market_count"])
	}
}

func TestRefreshNotLoggedInProbes(t *testing.T) {
	fetcher := &fakeFetcher{err: domain.ErrNotLoggedIn}
	hub := &fakeHub{clients: 1}
	r := NewRefresher(fetcher, hub, 24, nil)

	if got := r.refresh(context.Background()); got != probeInterval {
		t.Fatalf("refresh() = %v, want %v", got, probeInterval)
	}
	if len(hub.broadcast) != 0 {
		t.Fatalf("broadcast on error: %v", hub.broadcast)
	}
}

func TestRefreshFetchErrorBacksOff(t *testing.T) {
	fetcher := &fakeFetcher{err: domain.ErrRemoteTimeout}
	hub := &fakeHub{clients: 1}
	r := NewRefresher(fetcher, hub, 24, nil)

	if got := r.refresh(context.Background()); got != refreshFar {
		t.Fatalf("refresh() = %v, want %v", got, refreshFar)
	}
}
