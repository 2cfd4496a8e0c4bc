package postgrest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/bnema/winspay-gate/internal/adapters/supabase"
	"github.com/bnema/winspay-gate/internal/domain"
	"github.com/bnema/winspay-gate/internal/ports"
)

const (
	DefaultTable   = "profiles"
	profileColumns = "id,stripe_account_id,onboarding_completed,payouts_enabled"
)

var _ ports.ProfileStore = (*ProfileRepository)(nil)

// SessionSource supplies the signed-in user's access token so row level
// security applies to profile reads.
type SessionSource interface {
	GetSession(ctx context.Context) (*domain.Session, error)
}

type ProfileRepository struct {
	api      *supabase.Client
	sessions SessionSource
	table    string
}

type profileRow struct {
	ID                  string  `json:"id"`
	StripeAccountID     *string `json:"stripe_account_id"`
	OnboardingCompleted *bool   `json:"onboarding_completed"`
	PayoutsEnabled      *bool   `json:"payouts_enabled"`
}

func NewProfileRepository(api *supabase.Client, sessions SessionSource, table string) (*ProfileRepository, error) {
	if api == nil {
		return nil, errors.New("supabase client is required")
	}
	if table == "" {
		table = DefaultTable
	}

	return &ProfileRepository{api: api, sessions: sessions, table: table}, nil
}

func (r *ProfileRepository) GetProfile(ctx context.Context, userID domain.UserID) (domain.Profile, error) {
	if !userID.Valid() {
		return domain.Profile{}, errors.New("user id is required")
	}

	bearer, err := r.bearerToken(ctx)
	if err != nil {
		return domain.Profile{}, err
	}

	resp, err := r.api.Do(ctx, supabase.Request{
		Method: http.MethodGet,
		Path:   "rest/v1/" + r.table,
		Query: url.Values{
			"select": {profileColumns},
			"id":     {"eq." + string(userID)},
		},
		BearerToken: bearer,
	})
	if err != nil {
		return domain.Profile{}, fmt.Errorf("fetch profile %s: %w", userID, err)
	}

	var rows []profileRow
	if err := json.Unmarshal(resp.Body, &rows); err != nil {
		return domain.Profile{}, fmt.Errorf("decode profile %s: %w", userID, err)
	}

	switch len(rows) {
	case 0:
		return domain.Profile{}, fmt.Errorf("profile %s: %w", userID, domain.ErrProfileNotFound)
	case 1:
		return rows[0].toDomain(userID), nil
	default:
		return domain.Profile{}, fmt.Errorf("profile %s: expected one row, got %d", userID, len(rows))
	}
}

func (r *ProfileRepository) bearerToken(ctx context.Context) (string, error) {
	if r.sessions == nil {
		return "", nil
	}

	session, err := r.sessions.GetSession(ctx)
	if err != nil {
		return "", fmt.Errorf("load session for profile read: %w", err)
	}
	if session == nil {
		return "", nil
	}

	return session.AccessToken, nil
}

func (row profileRow) toDomain(requested domain.UserID) domain.Profile {
	id := domain.UserID(row.ID)
	if !id.Valid() {
		id = requested
	}

	return domain.Profile{
		ID:                  id,
		PaymentAccountID:    row.StripeAccountID,
		OnboardingCompleted: row.OnboardingCompleted != nil && *row.OnboardingCompleted,
		PayoutsEnabled:      row.PayoutsEnabled != nil && *row.PayoutsEnabled,
	}
}
