package domain

import "errors"

var (
	ErrProfileNotFound    = errors.New("profile not found")
	ErrProfileFetchFailed = errors.New("profile fetch failed")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSecretNotFound     = errors.New("secret not found")
	ErrInvalidSession     = errors.New("invalid session")
	ErrNotSignedIn        = errors.New("not signed in")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password too short")
	ErrInvalidPhone       = errors.New("invalid phone number")
	ErrConfirmationSent   = errors.New("email confirmation is required before signing in")
	ErrRequestRejected    = errors.New("request rejected")
)
