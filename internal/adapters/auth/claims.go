package auth

import (
	"errors"
	"fmt"

	"github.com/bnema/winspay-gate/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

type accessClaims struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// parseAccessClaims reads the claims of a GoTrue access token without
// verifying the signature. The token came straight from the auth server and
// only identity hints are taken from it; authorization stays server side.
func parseAccessClaims(token string) (accessClaims, error) {
	if token == "" {
		return accessClaims{}, errors.New("access token is empty")
	}

	var claims accessClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return accessClaims{}, fmt.Errorf("parse access token: %w", err)
	}

	return claims, nil
}

func (c accessClaims) fill(session domain.Session) domain.Session {
	if !session.UserID.Valid() {
		session.UserID = domain.UserID(c.Subject)
	}
	if session.Email == "" {
		session.Email = c.Email
	}
	if session.Phone == "" {
		session.Phone = c.Phone
	}
	if session.ExpiresAt.IsZero() && c.ExpiresAt != nil {
		session.ExpiresAt = c.ExpiresAt.Time.UTC()
	}

	return session
}
