package domain

import (
	"strings"
	"time"
)

type UserID string

func (id UserID) Valid() bool {
	return strings.TrimSpace(string(id)) != ""
}

type Session struct {
	UserID       UserID
	Email        string
	Phone        string
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresAt    time.Time
}

// ExpiresWithin reports whether the access token expires before now+skew.
// A zero ExpiresAt never expires.
func (s Session) ExpiresWithin(now time.Time, skew time.Duration) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}

	return !s.ExpiresAt.After(now.Add(skew))
}

func (s Session) Validate() error {
	if !s.UserID.Valid() {
		return ErrInvalidSession
	}
	if strings.TrimSpace(s.AccessToken) == "" {
		return ErrInvalidSession
	}

	return nil
}

type AuthEvent string

const (
	AuthEventInitialSession AuthEvent = "initial_session"
	AuthEventSignedIn       AuthEvent = "signed_in"
	AuthEventSignedOut      AuthEvent = "signed_out"
	AuthEventTokenRefreshed AuthEvent = "token_refreshed"
)
