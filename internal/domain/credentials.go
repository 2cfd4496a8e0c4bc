package domain

import (
	"fmt"
	"regexp"
	"strings"
)

const MinPasswordLength = 6

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type Credentials struct {
	Email    string
	Password string
}

func (c Credentials) Validate() error {
	if !emailPattern.MatchString(strings.TrimSpace(c.Email)) {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, c.Email)
	}
	if len(c.Password) < MinPasswordLength {
		return fmt.Errorf("%w: must be at least %d characters", ErrWeakPassword, MinPasswordLength)
	}

	return nil
}

var phonePattern = regexp.MustCompile(`^\+[1-9][0-9]{6,14}$`)

// NormalizePhone strips spaces and dashes and requires E.164 form.
func NormalizePhone(raw string) (string, error) {
	phone := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(raw))
	if !phonePattern.MatchString(phone) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPhone, raw)
	}

	return phone, nil
}
