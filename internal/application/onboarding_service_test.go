package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bnema/winspay-gate/internal/domain"
	"github.com/bnema/winspay-gate/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartOnboardingRequiresSession(t *testing.T) {
	t.Parallel()

	svc := NewOnboardingService(&fakeAuth{}, &fakeLinks{link: "https://connect.example/onboard"}, nil)

	_, err := svc.StartOnboarding(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotSignedIn)
}

func TestStartOnboardingReturnsLink(t *testing.T) {
	t.Parallel()

	links := &fakeLinks{link: "https://connect.example/onboard"}
	svc := NewOnboardingService(&fakeAuth{session: &domain.Session{UserID: "u1", AccessToken: "tok"}}, links, nil)

	link, err := svc.StartOnboarding(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://connect.example/onboard", link)
	assert.Equal(t, domain.UserID("u1"), links.sessionID)
}

func TestStartOnboardingWrapsProviderError(t *testing.T) {
	t.Parallel()

	svc := NewOnboardingService(&fakeAuth{session: &domain.Session{UserID: "u1", AccessToken: "tok"}},
		&fakeLinks{linkErr: errors.New("Stripe account creation failed")}, nil)

	_, err := svc.StartOnboarding(context.Background())
	assert.ErrorContains(t, err, "create onboarding link: Stripe account creation failed")
}

func TestCheckOnboardingRoutes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		remote  ports.RemoteOnboardingStatus
		want    domain.Route
		message string
	}{
		{name: "ready", remote: ports.RemoteOnboardingStatus{Ready: true}, want: domain.RouteMainApp},
		{name: "needs account", remote: ports.RemoteOnboardingStatus{NeedsAccount: true}, want: domain.RoutePaymentSetupStart},
		{name: "still pending", remote: ports.RemoteOnboardingStatus{NeedsCompletion: true}, want: domain.RoutePaymentSetupContinue, message: StillWaitingMessage},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc := NewOnboardingService(&fakeAuth{session: &domain.Session{UserID: "u1", AccessToken: "tok"}},
				&fakeLinks{statuses: []ports.RemoteOnboardingStatus{tc.remote}}, nil)

			check, err := svc.CheckOnboarding(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tc.want, check.Route)
			assert.Equal(t, tc.message, check.Message)
		})
	}
}

func TestCheckOnboardingWithoutSession(t *testing.T) {
	t.Parallel()

	svc := NewOnboardingService(&fakeAuth{}, &fakeLinks{}, nil)

	_, err := svc.CheckOnboarding(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotSignedIn)
}

func TestWaitForOnboardingPollsUntilSettled(t *testing.T) {
	t.Parallel()

	links := &fakeLinks{statuses: []ports.RemoteOnboardingStatus{
		{NeedsCompletion: true},
		{NeedsCompletion: true},
		{Ready: true},
	}}
	svc := NewOnboardingService(&fakeAuth{session: &domain.Session{UserID: "u1", AccessToken: "tok"}}, links, nil)

	check, err := svc.WaitForOnboarding(context.Background(), time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, domain.RouteMainApp, check.Route)
	assert.Equal(t, 3, links.checks)
}

func TestWaitForOnboardingStopsWhenRequestRejected(t *testing.T) {
	t.Parallel()

	links := &fakeLinks{checkErr: fmt.Errorf("%w: token revoked", domain.ErrRequestRejected)}
	svc := NewOnboardingService(&fakeAuth{session: &domain.Session{UserID: "u1", AccessToken: "tok"}}, links, nil)

	_, err := svc.WaitForOnboarding(context.Background(), time.Millisecond)
	require.ErrorIs(t, err, domain.ErrRequestRejected)
	assert.Equal(t, 1, links.checks)
}

func TestWaitForOnboardingStopsOnContextDone(t *testing.T) {
	t.Parallel()

	svc := NewOnboardingService(&fakeAuth{session: &domain.Session{UserID: "u1", AccessToken: "tok"}},
		&fakeLinks{checkErr: errors.New("bad gateway")}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := svc.WaitForOnboarding(ctx, 5*time.Millisecond)
	require.Error(t, err)
	assert.ErrorContains(t, err, "wait for onboarding")
}
