package gate

import (
	"testing"
	"time"

	"github.com/bnema/winspay-gate/internal/application"
	"github.com/bnema/winspay-gate/internal/domain"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var renderNow = time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)

func TestRenderSignedOut(t *testing.T) {
	output, err := Render(View{
		State: application.GateRouteSignedOut,
		Route: domain.RouteSignIn,
		Snapshot: domain.OnboardingSnapshot{
			Status: domain.OnboardingNotApplicable,
		},
	})

	require.NoError(t, err)
	assert.Contains(t, output, "Payments onboarding")
	assert.Contains(t, output, "gate: route signed out")
	assert.Contains(t, output, "signed out")
	assert.Contains(t, output, "No active session.")
	assert.Contains(t, output, "Sign in")
	assert.Contains(t, output, "/(onboarding)/welcome")
}

func TestRenderNeedsCompletionWithProfile(t *testing.T) {
	account := "acct_1"
	output, err := Render(View{
		State:   application.GateRoutePaymentSetup,
		Route:   domain.RoutePaymentSetupContinue,
		Session: &domain.Session{UserID: "u1", Email: "ana@example.com"},
		Snapshot: domain.OnboardingSnapshot{
			UserID:     "u1",
			Status:     domain.OnboardingNeedsCompletion,
			ResolvedAt: renderNow.Add(-30 * time.Second),
		},
		Profile: &domain.Profile{ID: "u1", PaymentAccountID: &account, OnboardingCompleted: true},
		Now:     renderNow,
	})

	require.NoError(t, err)
	assert.Contains(t, output, "ana@example.com")
	assert.Contains(t, output, "(u1)")
	assert.Contains(t, output, "needs completion")
	assert.Contains(t, output, "[x] payment account created")
	assert.Contains(t, output, "[x] details submitted")
	assert.Contains(t, output, "[ ] payouts enabled")
	assert.Contains(t, output, "checked 30s ago")
	assert.Contains(t, output, "/onboarding/continue")
}

func TestRenderFailOpenShowsFetchError(t *testing.T) {
	output, err := Render(View{
		State:   application.GateRoutePaymentSetup,
		Route:   domain.RoutePaymentSetupStart,
		Session: &domain.Session{UserID: "u1", Phone: "+15551234567"},
		Snapshot: domain.OnboardingSnapshot{
			UserID: "u1",
			Status: domain.OnboardingNeedsAccount,
			Err:    "context deadline exceeded",
		},
	})

	require.NoError(t, err)
	assert.Contains(t, output, "+15551234567")
	assert.Contains(t, output, "needs payment account")
	assert.Contains(t, output, "[ ] payment account created")
	assert.Contains(t, output, "profile fetch failed: context deadline exceeded")
}

func TestRenderReadyWithoutProfileImpliesAllSteps(t *testing.T) {
	output, err := Render(View{
		Route:    domain.RouteMainApp,
		Session:  &domain.Session{UserID: "u1"},
		Snapshot: domain.OnboardingSnapshot{UserID: "u1", Status: domain.OnboardingReady},
	})

	require.NoError(t, err)
	assert.Contains(t, output, "gate: start")
	assert.Contains(t, output, "[x] payouts enabled")
	assert.Contains(t, output, "Home")
}

func TestRenderLoadingHasNoStepsAndPendingRoute(t *testing.T) {
	output, err := Render(View{
		State:    application.GateResolvingOnboarding,
		Session:  &domain.Session{UserID: "u1"},
		Snapshot: domain.OnboardingSnapshot{UserID: "u1", Status: domain.OnboardingLoading},
	})

	require.NoError(t, err)
	assert.Contains(t, output, "checking...")
	assert.NotContains(t, output, "[ ]")
	assert.Contains(t, output, "route: pending")
}

func TestWatchModelAppliesViewsAndRefetch(t *testing.T) {
	refetched := 0
	m := NewWatchModel(View{Snapshot: domain.OnboardingSnapshot{Status: domain.OnboardingLoading}}, func() { refetched++ })

	assert.Contains(t, m.View(), "checking onboarding status")

	next, _ := m.Update(viewMsg(View{Route: domain.RouteMainApp, Snapshot: domain.OnboardingSnapshot{Status: domain.OnboardingReady}}))
	m = next.(WatchModel)
	assert.Equal(t, domain.RouteMainApp, m.Current().Route)
	assert.NotContains(t, m.View(), "checking onboarding status")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	m = next.(WatchModel)
	require.NotNil(t, cmd)
	_, again := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	assert.Nil(t, again)

	msg := cmd()
	assert.Equal(t, 1, refetched)
	next, _ = m.Update(msg)
	m = next.(WatchModel)
	assert.NotContains(t, m.View(), "checking onboarding status")

	_, quit := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, quit)
	assert.Equal(t, tea.Quit(), quit())
}
