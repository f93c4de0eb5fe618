package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/bettadev/raceday/internal/domain"
)

// SessionManager is the surface of internal/session.Manager that the HTTP
// layer consumes.
type SessionManager interface {
	Login(ctx context.Context, creds domain.Credentials) (domain.Session, error)
	Logout(ctx context.Context) error
	Status() domain.SessionStatus
}

// SessionHandler serves login, logout and session-status endpoints.
type SessionHandler struct {
	manager SessionManager
	logger  *slog.Logger
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(manager SessionManager, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		manager: manager,
		logger:  logHandler(logger, "session"),
	}
}

// loginRequest is the POST /api/login body.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	AppKey   string `json:"app_key"`
}

// Login authenticates against the exchange and starts the keep-alive cycle.
// POST /api/login
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	creds := domain.Credentials{
		Username: req.Username,
		Password: req.Password,
		AppKey:   req.AppKey,
	}

	if _, err := h.manager.Login(r.Context(), creds); err != nil {
		h.logger.WarnContext(r.Context(), "login failed",
			slog.String("username", req.Username),
			slog.String("error", err.Error()),
		)
		switch {
		case errors.Is(err, domain.ErrMissingCredentials):
			writeError(w, http.StatusBadRequest, "username, password and app key are required")
		case errors.Is(err, domain.ErrRemoteRejected):
			writeError(w, http.StatusUnauthorized, "login rejected by Betfair")
		case errors.Is(err, domain.ErrRemoteTimeout):
			writeError(w, http.StatusGatewayTimeout, "login request timed out")
		default:
			writeError(w, http.StatusBadGateway, "login failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Login successful",
		"session": h.manager.Status(),
	})
}

// Logout terminates the current session and stops the keep-alive cycle.
// POST /api/logout
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Logout(r.Context()); err != nil {
		if errors.Is(err, domain.ErrNotLoggedIn) {
			writeError(w, http.StatusBadRequest, "not logged in")
			return
		}
		writeError(w, http.StatusBadGateway, "logout failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Logged out",
		"session": h.manager.Status(),
	})
}

// Status reports whether a session is active. The token itself is never
// exposed, only its preview prefix.
// GET /api/session
func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"session": h.manager.Status(),
	})
}
