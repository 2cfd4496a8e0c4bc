package ports

import (
	"context"

	"github.com/bnema/winspay-gate/internal/domain"
)

// RemoteOnboardingStatus is the payment provider's view as reported by the
// backend's status check.
type RemoteOnboardingStatus struct {
	Ready           bool
	NeedsAccount    bool
	NeedsCompletion bool
}

type OnboardingLinkProvider interface {
	CreateOnboardingLink(ctx context.Context, session domain.Session) (string, error)
	CheckOnboardingStatus(ctx context.Context, session domain.Session) (RemoteOnboardingStatus, error)
}
