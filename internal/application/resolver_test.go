package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bnema/winspay-gate/internal/domain"
	portmocks "github.com/bnema/winspay-gate/internal/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestResolveClassifiesProfiles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		profile domain.Profile
		want    domain.OnboardingStatus
	}{
		{name: "no account", profile: domain.Profile{}, want: domain.OnboardingNeedsAccount},
		{name: "no account but completed", profile: domain.Profile{OnboardingCompleted: true, PayoutsEnabled: true}, want: domain.OnboardingNeedsAccount},
		{name: "account not completed", profile: domain.Profile{PaymentAccountID: strPtr("acct_1")}, want: domain.OnboardingNeedsCompletion},
		{name: "completed no payouts", profile: domain.Profile{PaymentAccountID: strPtr("acct_1"), OnboardingCompleted: true}, want: domain.OnboardingNeedsCompletion},
		{name: "ready", profile: domain.Profile{PaymentAccountID: strPtr("acct_1"), OnboardingCompleted: true, PayoutsEnabled: true}, want: domain.OnboardingReady},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			store := &stubProfileStore{profiles: map[domain.UserID]domain.Profile{"u1": tc.profile}}
			status := NewStatusStore()
			resolver := NewResolver(store, status)

			snapshot := resolver.Resolve(context.Background(), userPtr("u1"))
			assert.Equal(t, tc.want, snapshot.Status)
			assert.Empty(t, snapshot.Err)
			assert.Equal(t, snapshot, status.Current())
		})
	}
}

func TestResolveFetchesOnceWithBoundedContext(t *testing.T) {
	t.Parallel()

	store := portmocks.NewMockProfileStore(t)
	store.EXPECT().
		GetProfile(mock.Anything, domain.UserID("u1")).
		Run(func(ctx context.Context, _ domain.UserID) {
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
		}).
		Return(domain.Profile{ID: "u1", PaymentAccountID: strPtr("acct_1")}, nil).
		Once()

	resolver := NewResolver(store, NewStatusStore(), WithFetchTimeout(time.Second))
	snapshot := resolver.Resolve(context.Background(), userPtr("u1"))
	assert.Equal(t, domain.OnboardingNeedsCompletion, snapshot.Status)
}

func TestResolveWithoutUserIsNoOpWithoutFetch(t *testing.T) {
	t.Parallel()

	store := &stubProfileStore{}
	status := NewStatusStore()
	resolver := NewResolver(store, status)

	for _, userID := range []*domain.UserID{nil, userPtr(""), userPtr("   ")} {
		snapshot := resolver.Resolve(context.Background(), userID)
		assert.Equal(t, domain.OnboardingNotApplicable, snapshot.Status)

		view := status.Current().View()
		assert.False(t, view.Loading)
		assert.False(t, view.NeedsAccount)
		assert.False(t, view.NeedsCompletion)
		assert.False(t, view.Ready)
		assert.Nil(t, view.Error)
	}
	assert.Equal(t, 0, store.callCount())
}

func TestResolveFetchFailureFailsOpenToNeedsAccount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
	}{
		{name: "network", err: errors.New("dial tcp: connection refused")},
		{name: "not found", err: domain.ErrProfileNotFound},
		{name: "malformed", err: errors.New("decode profile: unexpected EOF")},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			status := NewStatusStore()
			resolver := NewResolver(&stubProfileStore{err: tc.err}, status)

			snapshot := resolver.Resolve(context.Background(), userPtr("u1"))
			assert.Equal(t, domain.OnboardingNeedsAccount, snapshot.Status)
			assert.Equal(t, tc.err.Error(), snapshot.Err)

			view := status.Current().View()
			require.NotNil(t, view.Error)
			assert.Equal(t, tc.err.Error(), *view.Error)
			assert.True(t, view.NeedsAccount)
		})
	}
}

func TestResolveFetchFailureWithBlankMessageStillReportsError(t *testing.T) {
	t.Parallel()

	for _, err := range []error{errors.New(""), errors.New("  ")} {
		status := NewStatusStore()
		resolver := NewResolver(&stubProfileStore{err: err}, status)

		view := resolver.Resolve(context.Background(), userPtr("u1")).View()
		assert.True(t, view.NeedsAccount)
		require.NotNil(t, view.Error)
		assert.Equal(t, domain.ErrProfileFetchFailed.Error(), *view.Error)
		assert.Equal(t, view, status.Current().View())
	}
}

func TestResolveFailureStatusCanBeOverridden(t *testing.T) {
	t.Parallel()

	resolver := NewResolver(&stubProfileStore{err: errors.New("offline")}, NewStatusStore(),
		WithFailureStatus(domain.OnboardingNeedsCompletion))
	assert.Equal(t, domain.OnboardingNeedsCompletion, resolver.Resolve(context.Background(), userPtr("u1")).Status)

	ignored := NewResolver(&stubProfileStore{err: errors.New("offline")}, NewStatusStore(),
		WithFailureStatus(domain.OnboardingLoading))
	assert.Equal(t, domain.FetchFailureStatus, ignored.Resolve(context.Background(), userPtr("u1")).Status)
}

func TestResolveIsIdempotentForUnchangedProfile(t *testing.T) {
	t.Parallel()

	store := &stubProfileStore{profiles: map[domain.UserID]domain.Profile{
		"u1": {PaymentAccountID: strPtr("acct_1"), OnboardingCompleted: true},
	}}
	clock := fixedClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	resolver := NewResolver(store, NewStatusStore(), WithResolverClock(clock))

	first := resolver.Resolve(context.Background(), userPtr("u1"))
	second := resolver.Resolve(context.Background(), userPtr("u1"))

	assert.Equal(t, first, second)
	assert.Equal(t, 2, store.callCount())
}

func TestResolvePublishesLoadingWhileFetching(t *testing.T) {
	t.Parallel()

	store := newBlockingProfileStore()
	status := NewStatusStore()
	resolver := NewResolver(store, status)

	done := make(chan domain.OnboardingSnapshot, 1)
	go func() { done <- resolver.Resolve(context.Background(), userPtr("u1")) }()

	call := <-store.fetches
	assert.Equal(t, domain.UserID("u1"), call.userID)
	assert.True(t, status.Current().Loading())

	call.reply <- profileResult{profile: domain.Profile{PaymentAccountID: strPtr("acct_1"), OnboardingCompleted: true, PayoutsEnabled: true}}
	assert.Equal(t, domain.OnboardingReady, (<-done).Status)
	assert.True(t, status.Current().Ready())
}

func TestResolveLastCallWinsWhenEarlierResponseArrivesLate(t *testing.T) {
	t.Parallel()

	store := newBlockingProfileStore()
	status := NewStatusStore()
	resolver := NewResolver(store, status)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); resolver.Resolve(context.Background(), userPtr("u1")) }()
	first := <-store.fetches
	go func() { defer wg.Done(); resolver.Resolve(context.Background(), userPtr("u1")) }()
	second := <-store.fetches

	second.reply <- profileResult{profile: domain.Profile{PaymentAccountID: strPtr("acct_1"), OnboardingCompleted: true, PayoutsEnabled: true}}
	first.reply <- profileResult{profile: domain.Profile{}}
	wg.Wait()

	assert.Equal(t, domain.OnboardingReady, status.Current().Status)
}

func TestResolveLastCallWinsWhenEarlierResponseArrivesFirst(t *testing.T) {
	t.Parallel()

	store := newBlockingProfileStore()
	status := NewStatusStore()
	resolver := NewResolver(store, status)

	firstDone := make(chan struct{})
	secondDone := make(chan struct{})
	go func() { defer close(firstDone); resolver.Resolve(context.Background(), userPtr("u1")) }()
	first := <-store.fetches
	go func() { defer close(secondDone); resolver.Resolve(context.Background(), userPtr("u1")) }()
	second := <-store.fetches

	first.reply <- profileResult{err: errors.New("stale failure")}
	<-firstDone
	assert.True(t, status.Current().Loading(), "superseded result must not replace the newer loading state")

	second.reply <- profileResult{profile: domain.Profile{PaymentAccountID: strPtr("acct_1")}}
	<-secondDone
	assert.Equal(t, domain.OnboardingNeedsCompletion, status.Current().Status)
	assert.Empty(t, status.Current().Err)
}

func TestResolveHonoursFetchTimeout(t *testing.T) {
	t.Parallel()

	resolver := NewResolver(newBlockingProfileStore(), NewStatusStore(), WithFetchTimeout(20*time.Millisecond))

	snapshot := resolver.Resolve(context.Background(), userPtr("u1"))
	assert.Equal(t, domain.OnboardingNeedsAccount, snapshot.Status)
	assert.Contains(t, snapshot.Err, context.DeadlineExceeded.Error())
}

func TestRefetchReusesLastUser(t *testing.T) {
	t.Parallel()

	store := &stubProfileStore{profiles: map[domain.UserID]domain.Profile{"u1": {}}}
	resolver := NewResolver(store, NewStatusStore())

	assert.Equal(t, domain.OnboardingNotApplicable, resolver.Refetch(context.Background()).Status)
	assert.Equal(t, 0, store.callCount())

	resolver.Resolve(context.Background(), userPtr("u1"))
	store.profiles["u1"] = domain.Profile{PaymentAccountID: strPtr("acct_1"), OnboardingCompleted: true, PayoutsEnabled: true}

	snapshot := resolver.Refetch(context.Background())
	assert.Equal(t, domain.OnboardingReady, snapshot.Status)
	assert.Equal(t, domain.UserID("u1"), snapshot.UserID)
	assert.Equal(t, 2, store.callCount())
}

func TestStatusStoreSubscribersSeeEveryPublish(t *testing.T) {
	t.Parallel()

	status := NewStatusStore()
	assert.True(t, status.Current().Loading())

	var seen []domain.OnboardingStatus
	unsubscribe := status.Subscribe(func(s domain.OnboardingSnapshot) {
		seen = append(seen, s.Status)
	})

	resolver := NewResolver(&stubProfileStore{profiles: map[domain.UserID]domain.Profile{"u1": {}}}, status)
	resolver.Resolve(context.Background(), userPtr("u1"))
	unsubscribe()
	unsubscribe()
	resolver.Resolve(context.Background(), nil)

	assert.Equal(t, []domain.OnboardingStatus{domain.OnboardingLoading, domain.OnboardingNeedsAccount}, seen)
}

func TestSessionStoreReturnsCopies(t *testing.T) {
	t.Parallel()

	sessions := NewSessionStore()
	assert.Nil(t, sessions.Current())

	var notified []*domain.Session
	sessions.Subscribe(func(s *domain.Session) { notified = append(notified, s) })

	original := &domain.Session{UserID: "u1", AccessToken: "tok"}
	sessions.replace(original)
	original.AccessToken = "mutated"

	current := sessions.Current()
	require.NotNil(t, current)
	assert.Equal(t, "tok", current.AccessToken)

	sessions.replace(nil)
	assert.Nil(t, sessions.Current())
	require.Len(t, notified, 2)
	assert.Nil(t, notified[1])
}
