package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/winspay-gate/internal/domain"
	"github.com/bnema/winspay-gate/internal/logging"
	"github.com/bnema/winspay-gate/internal/ports"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	DefaultOnboardingPollInterval = 3 * time.Second
	StillWaitingMessage           = "Still waiting for the payment provider"
)

// OnboardingCheck is the outcome of asking the backend where the user stands
// with the payment provider.
type OnboardingCheck struct {
	Route   domain.Route
	Message string
}

func (c OnboardingCheck) Settled() bool {
	return c.Route != domain.RoutePaymentSetupContinue
}

// OnboardingService drives the payment-provider onboarding screens: creating
// the hosted onboarding link and checking progress once the user returns.
type OnboardingService struct {
	auth  ports.AuthProvider
	links ports.OnboardingLinkProvider
	log   logrus.FieldLogger
}

func NewOnboardingService(auth ports.AuthProvider, links ports.OnboardingLinkProvider, log logrus.FieldLogger) *OnboardingService {
	if log == nil {
		log = logging.Nop()
	}

	return &OnboardingService{
		auth:  auth,
		links: links,
		log:   log.WithField("component", "onboarding"),
	}
}

func (s *OnboardingService) StartOnboarding(ctx context.Context) (string, error) {
	session, err := s.requireSession(ctx)
	if err != nil {
		return "", err
	}

	link, err := s.links.CreateOnboardingLink(ctx, session)
	if err != nil {
		return "", fmt.Errorf("create onboarding link: %w", err)
	}

	s.log.WithField("user_id", session.UserID).Info("onboarding link created")
	return link, nil
}

func (s *OnboardingService) CheckOnboarding(ctx context.Context) (OnboardingCheck, error) {
	session, err := s.requireSession(ctx)
	if err != nil {
		return OnboardingCheck{}, err
	}

	remote, err := s.links.CheckOnboardingStatus(ctx, session)
	if err != nil {
		return OnboardingCheck{}, fmt.Errorf("check onboarding status: %w", err)
	}

	switch {
	case remote.Ready:
		return OnboardingCheck{Route: domain.RouteMainApp}, nil
	case remote.NeedsAccount:
		return OnboardingCheck{Route: domain.RoutePaymentSetupStart}, nil
	default:
		return OnboardingCheck{Route: domain.RoutePaymentSetupContinue, Message: StillWaitingMessage}, nil
	}
}

// WaitForOnboarding polls CheckOnboarding at most once per interval until the
// user is either ready or sent back to account creation. Transient failures
// are retried; a rejected request or a missing session ends the wait.
func (s *OnboardingService) WaitForOnboarding(ctx context.Context, interval time.Duration) (OnboardingCheck, error) {
	if interval <= 0 {
		interval = DefaultOnboardingPollInterval
	}
	limiter := rate.NewLimiter(rate.Every(interval), 1)

	for {
		if err := limiter.Wait(ctx); err != nil {
			return OnboardingCheck{}, fmt.Errorf("wait for onboarding: %w", err)
		}

		check, err := s.CheckOnboarding(ctx)
		if err != nil {
			if errors.Is(err, domain.ErrNotSignedIn) || errors.Is(err, domain.ErrRequestRejected) {
				return OnboardingCheck{}, err
			}
			s.log.WithError(err).Warn("onboarding check failed, retrying")
			continue
		}
		if check.Settled() {
			return check, nil
		}
	}
}

func (s *OnboardingService) requireSession(ctx context.Context) (domain.Session, error) {
	session, err := s.auth.GetSession(ctx)
	if err != nil {
		return domain.Session{}, fmt.Errorf("get session: %w", err)
	}
	if session == nil {
		return domain.Session{}, domain.ErrNotSignedIn
	}

	return *session, nil
}
