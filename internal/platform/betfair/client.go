// Package betfair implements the exchange client for the Betfair API-NG:
// interactive login, session keep-alive, and the betting catalogue and book
// queries the race views are built from.
package betfair

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bettadev/raceday/internal/domain"
)

const (
	defaultIdentityURL = "https://identitysso.betfair.com/api"
	defaultBettingURL  = "https://api.betfair.com/exchange/betting/rest/v1.0"

	loginStatusSuccess = "SUCCESS"
)

// Config holds the endpoints and per-call timeout for the client.
type Config struct {
	IdentityURL string
	BettingURL  string
	Timeout     time.Duration
}

// Client is the authenticated Betfair REST client. It owns the session token
// for the process and implements domain.Exchange. The token is read by
// betting calls while the keep-alive goroutine may rotate it, so access goes
// through tokenMu.
type Client struct {
	identityURL string
	bettingURL  string
	appKey      string
	httpClient  *http.Client

	tokenMu sync.RWMutex
	token   string
}

// NewClient creates an unauthenticated client; Login must follow.
func NewClient(cfg Config, appKey string) *Client {
	if cfg.IdentityURL == "" {
		cfg.IdentityURL = defaultIdentityURL
	}
	if cfg.BettingURL == "" {
		cfg.BettingURL = defaultBettingURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		identityURL: strings.TrimRight(cfg.IdentityURL, "/"),
		bettingURL:  strings.TrimRight(cfg.BettingURL, "/"),
		appKey:      appKey,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
	}
}

// Dialer returns a domain.Dialer that constructs a client for the given
// endpoints and performs the interactive login.
func Dialer(cfg Config) domain.Dialer {
	return func(ctx context.Context, creds domain.Credentials) (domain.Exchange, string, error) {
		c := NewClient(cfg, creds.AppKey)
		token, err := c.Login(ctx, creds.Username, creds.Password)
		if err != nil {
			return nil, "", err
		}
		return c, token, nil
	}
}

// Login performs the interactive login against the identity endpoint and
// stores the session token on success. A SUCCESS response without a token is
// ErrNoTokenReturned; a non-SUCCESS status is ErrRemoteRejected with the
// provider's error code attached.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.identityURL+"/login", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("betfair: create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Application", c.appKey)

	var resp loginResponse
	if err := c.doJSON(req, &resp); err != nil {
		return "", fmt.Errorf("betfair: login: %w", err)
	}

	if resp.Status != loginStatusSuccess {
		return "", fmt.Errorf("betfair: login status %s (%s): %w",
			resp.Status, resp.Error, domain.ErrRemoteRejected)
	}
	if resp.Token == "" {
		return "", fmt.Errorf("betfair: %w", domain.ErrNoTokenReturned)
	}

	c.setToken(resp.Token)
	return resp.Token, nil
}

// KeepAlive refreshes the session's expiry on the identity endpoint.
func (c *Client) KeepAlive(ctx context.Context) error {
	resp, err := c.identityCall(ctx, "/keepAlive")
	if err != nil {
		return fmt.Errorf("betfair: keep-alive: %w", err)
	}
	if resp.Status != loginStatusSuccess {
		return fmt.Errorf("betfair: keep-alive status %s (%s)", resp.Status, resp.Error)
	}
	// The provider may rotate the token on keep-alive.
	if resp.Token != "" {
		c.setToken(resp.Token)
	}
	return nil
}

// Logout ends the remote session. The client is unusable afterwards.
func (c *Client) Logout(ctx context.Context) error {
	resp, err := c.identityCall(ctx, "/logout")
	if err != nil {
		return fmt.Errorf("betfair: logout: %w", err)
	}
	if resp.Status != loginStatusSuccess {
		return fmt.Errorf("betfair: logout status %s (%s)", resp.Status, resp.Error)
	}
	c.setToken("")
	return nil
}

// ListMarketCatalogue queries static market metadata.
func (c *Client) ListMarketCatalogue(ctx context.Context, filter domain.CatalogueFilter) ([]domain.CatalogueEntry, error) {
	reqBody := listMarketCatalogueRequest{
		Filter: marketFilter{
			MarketIDs:       filter.MarketIDs,
			EventTypeIDs:    sliceOf(filter.EventTypeID),
			MarketCountries: filter.Countries,
			MarketTypeCodes: filter.MarketTypes,
		},
		MarketProjection: []string{"MARKET_START_TIME", "RUNNER_DESCRIPTION", "EVENT"},
		Sort:             "FIRST_TO_START",
		MaxResults:       filter.MaxResults,
	}
	if !filter.Window.From.IsZero() || !filter.Window.To.IsZero() {
		reqBody.Filter.MarketStartTime = &timeRangeFilter{
			From: filter.Window.From.UTC().Format(time.RFC3339),
			To:   filter.Window.To.UTC().Format(time.RFC3339),
		}
	}

	var rows []marketCatalogue
	if err := c.bettingCall(ctx, "/listMarketCatalogue/", reqBody, &rows); err != nil {
		return nil, fmt.Errorf("betfair: list market catalogue: %w", err)
	}

	entries := make([]domain.CatalogueEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.toDomain())
	}
	return entries, nil
}

// ListMarketBook queries live books for the given markets in one call.
func (c *Client) ListMarketBook(ctx context.Context, marketIDs []string, proj domain.PriceProjection) ([]domain.MarketBook, error) {
	reqBody := listMarketBookRequest{MarketIDs: marketIDs}
	if proj.BestOffersDepth > 0 {
		reqBody.PriceProjection = &priceProjection{
			PriceData:            []string{"EX_BEST_OFFERS"},
			ExBestOffersOverride: &exBestOffersOverride{BestPricesDepth: proj.BestOffersDepth},
		}
	}

	var rows []marketBook
	if err := c.bettingCall(ctx, "/listMarketBook/", reqBody, &rows); err != nil {
		return nil, fmt.Errorf("betfair: list market book: %w", err)
	}

	books := make([]domain.MarketBook, 0, len(rows))
	for _, row := range rows {
		books = append(books, row.toDomain())
	}
	return books, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// identityCall posts to an identity SSO endpoint with session headers.
func (c *Client) identityCall(ctx context.Context, path string) (loginResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.identityURL+path, nil)
	if err != nil {
		return loginResponse{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Application", c.appKey)
	req.Header.Set("X-Authentication", c.sessionToken())

	var resp loginResponse
	if err := c.doJSON(req, &resp); err != nil {
		return loginResponse{}, err
	}
	return resp, nil
}

// bettingCall posts a JSON body to the betting API and decodes the result.
func (c *Client) bettingCall(ctx context.Context, path string, reqBody, out any) error {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.bettingURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Application", c.appKey)
	req.Header.Set("X-Authentication", c.sessionToken())

	return c.doJSON(req, out)
}

// setToken replaces the session token under the write lock.
func (c *Client) setToken(token string) {
	c.tokenMu.Lock()
	c.token = token
	c.tokenMu.Unlock()
}

// sessionToken reads the current session token under the read lock.
func (c *Client) sessionToken() string {
	c.tokenMu.RLock()
	defer c.tokenMu.RUnlock()
	return c.token
}

// doJSON sends the request, classifies transport and HTTP failures, and
// decodes a 2xx body into out.
func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, domain.ErrRemoteTimeout)
		}
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.statusError(resp.StatusCode, body)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// statusError maps a non-2xx response to an error carrying the provider's
// error code when one is present.
func (c *Client) statusError(statusCode int, body []byte) error {
	var apiErr apiErrorResponse
	_ = json.Unmarshal(body, &apiErr)

	code := apiErr.Detail.APINGException.ErrorCode
	if code == "" {
		code = apiErr.FaultCode
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("HTTP %d (%s): %w", statusCode, code, domain.ErrRemoteRejected)
	default:
		return fmt.Errorf("HTTP %d: %s %s", statusCode, code, apiErr.FaultString)
	}
}

// isTimeout reports whether a transport error was a deadline or timeout.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr) && urlErr.Timeout()
}

func sliceOf(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}
