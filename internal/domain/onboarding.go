package domain

import (
	"fmt"
	"time"
)

type OnboardingStatus string

const (
	OnboardingNotApplicable   OnboardingStatus = "not_applicable"
	OnboardingLoading         OnboardingStatus = "loading"
	OnboardingNeedsAccount    OnboardingStatus = "needs_account"
	OnboardingNeedsCompletion OnboardingStatus = "needs_completion"
	OnboardingReady           OnboardingStatus = "ready"
)

// FetchFailureStatus is recorded when the profile cannot be fetched. Any
// uncertainty sends the user back to payment account setup.
const FetchFailureStatus = OnboardingNeedsAccount

func ParseOnboardingStatus(raw string) (OnboardingStatus, error) {
	status := OnboardingStatus(raw)
	switch status {
	case OnboardingNotApplicable, OnboardingLoading, OnboardingNeedsAccount, OnboardingNeedsCompletion, OnboardingReady:
		return status, nil
	default:
		return "", fmt.Errorf("unknown onboarding status %q", raw)
	}
}

// Terminal reports whether the status is a settled classification of a
// fetched profile.
func (s OnboardingStatus) Terminal() bool {
	switch s {
	case OnboardingNeedsAccount, OnboardingNeedsCompletion, OnboardingReady:
		return true
	default:
		return false
	}
}

// ClassifyProfile applies the fixed priority order: missing payment account,
// incomplete onboarding, fully enabled, and finally completed without payouts.
func ClassifyProfile(p Profile) OnboardingStatus {
	if !p.HasPaymentAccount() {
		return OnboardingNeedsAccount
	}
	if !p.OnboardingCompleted {
		return OnboardingNeedsCompletion
	}
	if p.OnboardingCompleted && p.PayoutsEnabled {
		return OnboardingReady
	}

	return OnboardingNeedsCompletion
}

type OnboardingSnapshot struct {
	UserID     UserID
	Status     OnboardingStatus
	Err        string
	ResolvedAt time.Time
}

func (s OnboardingSnapshot) Loading() bool         { return s.Status == OnboardingLoading }
func (s OnboardingSnapshot) NeedsAccount() bool    { return s.Status == OnboardingNeedsAccount }
func (s OnboardingSnapshot) NeedsCompletion() bool { return s.Status == OnboardingNeedsCompletion }
func (s OnboardingSnapshot) Ready() bool           { return s.Status == OnboardingReady }

// OnboardingView is the flag-shaped snapshot handed to the presentation layer.
type OnboardingView struct {
	Loading         bool    `json:"loading"`
	NeedsAccount    bool    `json:"needsAccount"`
	NeedsCompletion bool    `json:"needsCompletion"`
	Ready           bool    `json:"ready"`
	Error           *string `json:"error"`
}

func (s OnboardingSnapshot) View() OnboardingView {
	view := OnboardingView{
		Loading:         s.Loading(),
		NeedsAccount:    s.NeedsAccount(),
		NeedsCompletion: s.NeedsCompletion(),
		Ready:           s.Ready(),
	}
	if s.Err != "" {
		msg := s.Err
		view.Error = &msg
	}

	return view
}
