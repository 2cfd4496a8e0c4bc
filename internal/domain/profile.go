package domain

import "strings"

type Profile struct {
	ID                  UserID
	PaymentAccountID    *string
	OnboardingCompleted bool
	PayoutsEnabled      bool
}

func (p Profile) HasPaymentAccount() bool {
	return p.PaymentAccountID != nil && strings.TrimSpace(*p.PaymentAccountID) != ""
}
