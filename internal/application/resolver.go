package application

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bnema/winspay-gate/internal/domain"
	"github.com/bnema/winspay-gate/internal/logging"
	"github.com/bnema/winspay-gate/internal/ports"
	"github.com/sirupsen/logrus"
)

const DefaultFetchTimeout = 15 * time.Second

// Resolver classifies a user's payment onboarding progress and publishes the
// result to a StatusStore. Every call takes a sequence number; only the most
// recently issued call may publish, so a slow stale fetch never overwrites a
// newer one.
type Resolver struct {
	profiles      ports.ProfileStore
	status        *StatusStore
	clock         ports.Clock
	log           logrus.FieldLogger
	fetchTimeout  time.Duration
	failureStatus domain.OnboardingStatus

	mu       sync.Mutex
	seq      uint64
	lastUser *domain.UserID
}

type ResolverOption func(*Resolver)

func WithFetchTimeout(timeout time.Duration) ResolverOption {
	return func(r *Resolver) {
		if timeout > 0 {
			r.fetchTimeout = timeout
		}
	}
}

// WithFailureStatus overrides the classification recorded when the profile
// fetch fails. Only terminal statuses are accepted.
func WithFailureStatus(status domain.OnboardingStatus) ResolverOption {
	return func(r *Resolver) {
		if status.Terminal() {
			r.failureStatus = status
		}
	}
}

func WithResolverLogger(log logrus.FieldLogger) ResolverOption {
	return func(r *Resolver) {
		if log != nil {
			r.log = log
		}
	}
}

func WithResolverClock(clock ports.Clock) ResolverOption {
	return func(r *Resolver) {
		if clock != nil {
			r.clock = clock
		}
	}
}

func NewResolver(profiles ports.ProfileStore, status *StatusStore, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		profiles:      profiles,
		status:        status,
		clock:         ports.SystemClock{},
		log:           logging.Nop(),
		fetchTimeout:  DefaultFetchTimeout,
		failureStatus: domain.FetchFailureStatus,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.WithField("component", "resolver")

	return r
}

// Resolve fetches the profile for userID and returns this call's
// classification. A nil or blank userID yields the not-applicable outcome
// without touching the profile store. Fetch failures are folded into the
// snapshot and never returned as errors.
func (r *Resolver) Resolve(ctx context.Context, userID *domain.UserID) domain.OnboardingSnapshot {
	if userID != nil && !userID.Valid() {
		userID = nil
	}

	seq := r.begin(userID)
	if userID == nil {
		snapshot := domain.OnboardingSnapshot{Status: domain.OnboardingNotApplicable, ResolvedAt: r.clock.Now()}
		r.finish(seq, snapshot)
		return snapshot
	}

	log := r.log.WithFields(logrus.Fields{"user_id": *userID, "seq": seq})
	log.Debug("fetching profile")

	fetchCtx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	defer cancel()

	snapshot := domain.OnboardingSnapshot{UserID: *userID}
	profile, err := r.profiles.GetProfile(fetchCtx, *userID)
	snapshot.ResolvedAt = r.clock.Now()
	if err != nil {
		log.WithError(err).Warn("profile fetch failed, applying fail-open status")
		snapshot.Status = r.failureStatus
		snapshot.Err = fetchFailureMessage(err)
	} else {
		snapshot.Status = domain.ClassifyProfile(profile)
	}

	if !r.finish(seq, snapshot) {
		log.WithField("status", snapshot.Status).Debug("discarding superseded resolution")
		return snapshot
	}

	log.WithField("status", snapshot.Status).Info("onboarding status resolved")
	return snapshot
}

// Refetch re-resolves the user passed to the most recent Resolve call.
func (r *Resolver) Refetch(ctx context.Context) domain.OnboardingSnapshot {
	r.mu.Lock()
	var userID *domain.UserID
	if r.lastUser != nil {
		id := *r.lastUser
		userID = &id
	}
	r.mu.Unlock()

	return r.Resolve(ctx, userID)
}

func (r *Resolver) begin(userID *domain.UserID) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	if userID == nil {
		r.lastUser = nil
		return r.seq
	}

	id := *userID
	r.lastUser = &id
	r.status.publish(domain.OnboardingSnapshot{UserID: id, Status: domain.OnboardingLoading})

	return r.seq
}

func (r *Resolver) finish(seq uint64, snapshot domain.OnboardingSnapshot) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if seq != r.seq {
		return false
	}
	r.status.publish(snapshot)

	return true
}

// fetchFailureMessage keeps a failed fetch visible in the view even when the
// store's error carries no text.
func fetchFailureMessage(err error) string {
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}

	return domain.ErrProfileFetchFailed.Error()
}
