package domain

// Session is the single process-wide exchange session. Exactly one exists at
// a time; it is created on login and cleared on logout or when the keep-alive
// cycle gives the session up. Only internal/session mutates it.
type Session struct {
	Token  string
	Active bool
}

// SessionStatus is the externally visible session state. The full token is
// never exposed; TokenPreview carries only a short prefix.
type SessionStatus struct {
	LoggedIn        bool   `json:"logged_in"`
	TokenPreview    string `json:"token_preview,omitempty"`
	KeepAliveActive bool   `json:"keep_alive_active"`
}
