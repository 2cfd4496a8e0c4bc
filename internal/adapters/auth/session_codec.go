package auth

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bnema/winspay-gate/internal/domain"
)

// SessionStoreKey is the secret-store key under which a project's session is
// persisted.
func SessionStoreKey(projectURL string) string {
	host := projectURL
	if parsed, err := url.Parse(projectURL); err == nil && parsed.Host != "" {
		host = parsed.Host
	}

	return "supabase://" + strings.TrimSpace(host) + "/session"
}

type storedSession struct {
	UserID       string `json:"user_id"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
}

func encodeSession(session domain.Session) (string, error) {
	stored := storedSession{
		UserID:       string(session.UserID),
		Email:        session.Email,
		Phone:        session.Phone,
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		TokenType:    session.TokenType,
	}
	if !session.ExpiresAt.IsZero() {
		stored.ExpiresAt = session.ExpiresAt.Unix()
	}

	payload, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}

	return string(payload), nil
}

func decodeSession(value string) (domain.Session, error) {
	var stored storedSession
	if err := json.Unmarshal([]byte(value), &stored); err != nil {
		return domain.Session{}, fmt.Errorf("decode session: %w", err)
	}

	session := domain.Session{
		UserID:       domain.UserID(stored.UserID),
		Email:        stored.Email,
		Phone:        stored.Phone,
		AccessToken:  stored.AccessToken,
		RefreshToken: stored.RefreshToken,
		TokenType:    stored.TokenType,
	}
	if stored.ExpiresAt > 0 {
		session.ExpiresAt = time.Unix(stored.ExpiresAt, 0).UTC()
	}
	if err := session.Validate(); err != nil {
		return domain.Session{}, fmt.Errorf("decode session: %w", err)
	}

	return session, nil
}

// tokenResponse is the session payload GoTrue returns from the token, verify
// and signup endpoints.
type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	ExpiresAt    int64        `json:"expires_at"`
	User         *userPayload `json:"user"`
}

type userPayload struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func (r tokenResponse) hasSession() bool {
	return strings.TrimSpace(r.AccessToken) != ""
}

// toSession builds a domain session, filling identity gaps from the access
// token claims when the user object is missing.
func (r tokenResponse) toSession(now time.Time) (domain.Session, error) {
	session := domain.Session{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		TokenType:    r.TokenType,
	}
	if r.User != nil {
		session.UserID = domain.UserID(r.User.ID)
		session.Email = r.User.Email
		session.Phone = r.User.Phone
	}

	switch {
	case r.ExpiresAt > 0:
		session.ExpiresAt = time.Unix(r.ExpiresAt, 0).UTC()
	case r.ExpiresIn > 0:
		session.ExpiresAt = now.Add(time.Duration(r.ExpiresIn) * time.Second).UTC()
	}

	if !session.UserID.Valid() || session.ExpiresAt.IsZero() {
		if claims, err := parseAccessClaims(r.AccessToken); err == nil {
			session = claims.fill(session)
		}
	}

	if err := session.Validate(); err != nil {
		return domain.Session{}, fmt.Errorf("token response: %w", err)
	}

	return session, nil
}
