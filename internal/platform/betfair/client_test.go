package betfair

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/bettadev/raceday/internal/domain"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := NewClient(Config{
		IdentityURL: server.URL,
		BettingURL:  server.URL,
		Timeout:     5 * time.Second,
	}, "test-app-key")
	return c, server
}

func TestLogin_Success(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/login" {
			t.Errorf("path = %s, want /login", r.URL.Path)
		}
		if got := r.Header.Get("X-Application"); got != "test-app-key" {
			t.Errorf("X-Application = %q, want app key", got)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("username") != "punter" || r.PostForm.Get("password") != "hunter2" {
			t.Errorf("credentials not forwarded: %v", r.PostForm)
		}
		json.NewEncoder(w).Encode(loginResponse{Token: "tok-123", Status: "SUCCESS"})
	}))

	token, err := c.Login(context.Background(), "punter", "hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token != "tok-123" {
		t.Errorf("token = %q, want tok-123", token)
	}
}

func TestLogin_Rejected(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(loginResponse{Status: "FAIL", Error: "INVALID_USERNAME_OR_PASSWORD"})
	}))

	_, err := c.Login(context.Background(), "punter", "wrong")
	if !errors.Is(err, domain.ErrRemoteRejected) {
		t.Errorf("err = %v, want ErrRemoteRejected", err)
	}
}

func TestLogin_NoToken(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(loginResponse{Status: "SUCCESS"})
	}))

	_, err := c.Login(context.Background(), "punter", "hunter2")
	if !errors.Is(err, domain.ErrNoTokenReturned) {
		t.Errorf("err = %v, want ErrNoTokenReturned", err)
	}
}

func TestKeepAlive_SendsSessionHeaders(t *testing.T) {
	var gotAuth string
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			json.NewEncoder(w).Encode(loginResponse{Token: "tok-123", Status: "SUCCESS"})
		case "/keepAlive":
			gotAuth = r.Header.Get("X-Authentication")
			json.NewEncoder(w).Encode(loginResponse{Token: "tok-123", Status: "SUCCESS"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	if _, err := c.Login(context.Background(), "u", "p"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := c.KeepAlive(context.Background()); err != nil {
		t.Fatalf("KeepAlive: %v", err)
	}
	if gotAuth != "tok-123" {
		t.Errorf("X-Authentication = %q, want session token", gotAuth)
	}
}

func TestKeepAlive_FailureStatus(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(loginResponse{Status: "FAIL", Error: "NO_SESSION"})
	}))

	if err := c.KeepAlive(context.Background()); err == nil {
		t.Error("KeepAlive = nil, want error for FAIL status")
	}
}

func TestListMarketCatalogue_FilterAndDecode(t *testing.T) {
	start := time.Date(2026, 3, 14, 14, 30, 0, 0, time.UTC)

	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/listMarketCatalogue/" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req listMarketCatalogueRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Filter.EventTypeIDs) != 1 || req.Filter.EventTypeIDs[0] != "7" {
			t.Errorf("eventTypeIds = %v, want [7]", req.Filter.EventTypeIDs)
		}
		if req.Filter.MarketStartTime == nil {
			t.Error("marketStartTime filter missing")
		}
		if req.MaxResults != 200 {
			t.Errorf("maxResults = %d, want 200", req.MaxResults)
		}

		json.NewEncoder(w).Encode([]marketCatalogue{{
			MarketID:        "1.234",
			MarketName:      "2m Hcap Hrd",
			MarketStartTime: start,
			TotalMatched:    50000,
			Event:           &eventDescription{Name: "Kemp 14th Mar", Venue: "Kempton", CountryCode: "GB"},
			Runners: []runnerCatalogue{
				{SelectionID: 11, RunnerName: "Red Rum", SortPriority: 1},
			},
		}})
	}))

	entries, err := c.ListMarketCatalogue(context.Background(), domain.CatalogueFilter{
		EventTypeID: "7",
		Countries:   []string{"GB", "IE"},
		MarketTypes: []string{"WIN"},
		Window:      domain.TimeRange{From: start.Add(-time.Hour), To: start.Add(23 * time.Hour)},
		MaxResults:  200,
	})
	if err != nil {
		t.Fatalf("ListMarketCatalogue: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.MarketID != "1.234" || e.Venue != "Kempton" || !e.StartTime.Equal(start) {
		t.Errorf("entry = %+v", e)
	}
	if len(e.Runners) != 1 || e.Runners[0].Name != "Red Rum" {
		t.Errorf("runners = %+v", e.Runners)
	}
}

func TestListMarketBook_NormalizesRaceStatusVariants(t *testing.T) {
	variants := []string{
		`[{"marketId":"1.1","status":"OPEN","raceStatus":"ATTHEPOST"}]`,
		`[{"marketId":"1.1","status":"OPEN","inplayStatus":"ATTHEPOST"}]`,
		`[{"marketId":"1.1","status":"OPEN","race_status":"ATTHEPOST"}]`,
	}
	for _, payload := range variants {
		body := payload
		c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(body))
		}))

		books, err := c.ListMarketBook(context.Background(), []string{"1.1"}, domain.PriceProjection{})
		if err != nil {
			t.Fatalf("ListMarketBook: %v", err)
		}
		if books[0].RaceStatus == nil || *books[0].RaceStatus != "ATTHEPOST" {
			t.Errorf("payload %s: RaceStatus = %v, want ATTHEPOST", payload, books[0].RaceStatus)
		}
	}
}

func TestListMarketBook_PriceDepthProjection(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req listMarketBookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.PriceProjection == nil || req.PriceProjection.ExBestOffersOverride == nil {
			t.Fatal("price projection missing")
		}
		if req.PriceProjection.ExBestOffersOverride.BestPricesDepth != 3 {
			t.Errorf("bestPricesDepth = %d, want 3", req.PriceProjection.ExBestOffersOverride.BestPricesDepth)
		}

		json.NewEncoder(w).Encode([]marketBook{{
			MarketID: "1.2",
			Status:   "OPEN",
			Runners: []runnerBook{{
				SelectionID: 7,
				Status:      "ACTIVE",
				Ex: &exchangePrices{
					AvailableToBack: []priceSize{{Price: 3.2, Size: 40}},
					AvailableToLay:  []priceSize{{Price: 3.3, Size: 25}},
				},
			}},
		}})
	}))

	books, err := c.ListMarketBook(context.Background(), []string{"1.2"}, domain.PriceProjection{BestOffersDepth: 3})
	if err != nil {
		t.Fatalf("ListMarketBook: %v", err)
	}
	r := books[0].Runners[0]
	if len(r.AvailableToBack) != 1 || r.AvailableToBack[0].Price != 3.2 {
		t.Errorf("back ladder = %+v", r.AvailableToBack)
	}
}

func TestBettingCall_UnauthorizedMapsToRejected(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":{"APINGException":{"errorCode":"INVALID_SESSION_INFORMATION"}}}`))
	}))

	_, err := c.ListMarketBook(context.Background(), []string{"1.3"}, domain.PriceProjection{})
	if !errors.Is(err, domain.ErrRemoteRejected) {
		t.Errorf("err = %v, want ErrRemoteRejected", err)
	}
}

func TestDialer_LoginFlow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(loginResponse{Token: "dial-tok", Status: "SUCCESS"})
	}))
	defer server.Close()

	dial := Dialer(Config{IdentityURL: server.URL, BettingURL: server.URL})
	ex, token, err := dial(context.Background(), domain.Credentials{
		Username: "u", Password: "p", AppKey: "k",
	})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if token != "dial-tok" {
		t.Errorf("token = %q, want dial-tok", token)
	}
	if ex == nil {
		t.Fatal("exchange is nil")
	}
}

func TestTokenRotation_ConcurrentWithBettingCalls(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			json.NewEncoder(w).Encode(loginResponse{Token: "tok-0", Status: "SUCCESS"})
		case "/keepAlive":
			// Rotate the token on every ping.
			json.NewEncoder(w).Encode(loginResponse{
				Token:  "tok-" + r.Header.Get("X-Authentication"),
				Status: "SUCCESS",
			})
		case "/listMarketBook/":
			if r.Header.Get("X-Authentication") == "" {
				t.Error("betting call without session token")
			}
			json.NewEncoder(w).Encode([]marketBook{{MarketID: "1.1", Status: "OPEN"}})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	if _, err := c.Login(context.Background(), "u", "p"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			if err := c.KeepAlive(context.Background()); err != nil {
				t.Errorf("KeepAlive: %v", err)
				return
			}
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			if _, err := c.ListMarketBook(context.Background(), []string{"1.1"}, domain.PriceProjection{}); err != nil {
				t.Errorf("ListMarketBook: %v", err)
				return
			}
		}
	}()

	wg.Wait()

	if got := c.sessionToken(); got == "" {
		t.Error("session token lost after rotation")
	}
}
