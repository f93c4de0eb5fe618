package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bettadev/raceday/internal/domain"
)

type fakeManager struct {
	loginErr  error
	logoutErr error
	gotCreds  domain.Credentials
	status    domain.SessionStatus
}

func (f *fakeManager) Login(ctx context.Context, creds domain.Credentials) (domain.Session, error) {
	f.gotCreds = creds
	if f.loginErr != nil {
		return domain.Session{}, f.loginErr
	}
	return domain.Session{Token: "SESSION-TOKEN", Active: true}, nil
}

func (f *fakeManager) Logout(ctx context.Context) error { return f.logoutErr }

func (f *fakeManager) Status() domain.SessionStatus { return f.status }

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestLoginSuccess(t *testing.T) {
	mgr := &fakeManager{status: domain.SessionStatus{
		LoggedIn:        true,
		TokenPreview:    "SESSION-...",
		KeepAliveActive: true,
	}}
	h := NewSessionHandler(mgr, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/login",
		strings.NewReader(`{"username":"alice","password":"pw","app_key":"key"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["success"] != true {
		t.Fatalf("success = %v, want true", body["success"])
	}
	if mgr.gotCreds.Username != "alice" || mgr.gotCreds.AppKey != "key" {
		t.Fatalf("credentials not forwarded: %+v", mgr.gotCreds)
	}

	sess, ok := body["session"].(map[string]any)
	if !ok {
		t.Fatalf("session missing from body: %v", body)
	}
	if sess["token_preview"] != "SESSION-..." {
		t.Fatalf("token_preview = %v", sess["token_preview"])
	}
}

func TestLoginErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"missing credentials", domain.ErrMissingCredentials, http.StatusBadRequest},
		{"rejected", domain.ErrRemoteRejected, http.StatusUnauthorized},
		{"timeout", domain.ErrRemoteTimeout, http.StatusGatewayTimeout},
		{"no token", domain.ErrNoTokenReturned, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSessionHandler(&fakeManager{loginErr: tt.err}, nil)

			req := httptest.NewRequest(http.MethodPost, "/api/login",
				strings.NewReader(`{"username":"a","password":"b","app_key":"c"}`))
			rec := httptest.NewRecorder()
			h.Login(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			body := decodeBody(t, rec)
			if body["success"] != false {
				t.Fatalf("success = %v, want false", body["success"])
			}
			if msg, _ := body["error"].(string); msg == "" {
				t.Fatal("error message missing")
			}
		})
	}
}

func TestLoginRejectsBadJSON(t *testing.T) {
	h := NewSessionHandler(&fakeManager{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestLogout(t *testing.T) {
	h := NewSessionHandler(&fakeManager{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/logout", nil)
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := decodeBody(t, rec); body["success"] != true {
		t.Fatalf("success = %v, want true", body["success"])
	}
}

func TestLogoutWithoutSession(t *testing.T) {
	h := NewSessionHandler(&fakeManager{logoutErr: domain.ErrNotLoggedIn}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/logout", nil)
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSessionStatus(t *testing.T) {
	mgr := &fakeManager{status: domain.SessionStatus{LoggedIn: false}}
	h := NewSessionHandler(mgr, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	rec := httptest.NewRecorder()
	h.Status(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	sess, ok := body["session"].(map[string]any)
	if !ok {
		t.Fatalf("session missing from body: %v", body)
	}
	if sess["logged_in"] != false {
		t.Fatalf("logged_in = %v, want false", sess["logged_in"])
	}
}
