package ports

import (
	"context"

	"github.com/bnema/winspay-gate/internal/domain"
)

type ProfileStore interface {
	GetProfile(ctx context.Context, userID domain.UserID) (domain.Profile, error)
}
