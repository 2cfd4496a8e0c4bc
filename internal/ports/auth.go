package ports

import (
	"context"

	"github.com/bnema/winspay-gate/internal/domain"
)

// Unsubscribe releases a subscription. Calling it more than once is safe.
type Unsubscribe func()

type AuthStateHandler func(event domain.AuthEvent, session *domain.Session)

type AuthProvider interface {
	// GetSession returns nil without error when nobody is signed in.
	GetSession(ctx context.Context) (*domain.Session, error)
	OnAuthStateChange(handler AuthStateHandler) Unsubscribe
}
