package domain

import "time"

// Session is an admin session validated server-side on every privileged call.
// Nothing is trusted from client-held claims beyond the opaque token.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Valid reports whether the session may authorize a request at the given instant.
func (s *Session) Valid(now time.Time) bool {
	return s.Active && s.ExpiresAt.After(now)
}
