// Package auth resolves admin sessions from identity provider tokens.
package auth

import (
	"context"
	"time"
)

// State is where a session stands in resolution.
type State int

const (
	// Checking means the credentials have not been examined yet.
	Checking State = iota
	Anonymous
	Authenticated
)

func (s State) String() string {
	switch s {
	case Checking:
		return "checking"
	case Anonymous:
		return "anonymous"
	case Authenticated:
		return "authenticated"
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Session is the identity behind a request.
type Session struct {
	State     State     `json:"state"`
	UserID    string    `json:"userId,omitempty"`
	Email     string    `json:"email,omitempty"`
	ExpiresAt time.Time `json:"expiresAt,omitzero"`
}

// Authenticated reports whether the session belongs to a signed-in user.
func (s *Session) Authenticated() bool {
	return s != nil && s.State == Authenticated
}

type ctxKey struct{}

// NewContext returns a copy of ctx carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session in ctx, or a Checking session when none was stored.
func FromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(ctxKey{}).(*Session); ok && s != nil {
		return s
	}
	return &Session{State: Checking}
}
