package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// GoTrue expects the lowercase method name.
const PKCEChallengeMethodS256 = "s256"

const (
	verifierBytes = 32
	stateBytes    = 16
)

// PKCEPair is the verifier kept locally and the challenge sent to the
// authorize endpoint.
type PKCEPair struct {
	Verifier  string
	Challenge string
}

func NewPKCEPair() (PKCEPair, error) {
	verifier, err := randomToken(verifierBytes)
	if err != nil {
		return PKCEPair{}, fmt.Errorf("generate code verifier: %w", err)
	}

	return PKCEPair{Verifier: verifier, Challenge: challengeFor(verifier)}, nil
}

// Matches reports whether the challenge was derived from the verifier.
func (p PKCEPair) Matches() bool {
	return p.Verifier != "" && p.Challenge == challengeFor(p.Verifier)
}

// NewState returns the value carried through redirect_to to tie a callback
// to the login that started it.
func NewState() (string, error) {
	state, err := randomToken(stateBytes)
	if err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}

	return state, nil
}

func challengeFor(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func randomToken(n int) (string, error) {
	raw := make([]byte, n)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(raw), nil
}
