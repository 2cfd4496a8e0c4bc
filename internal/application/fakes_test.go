package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bnema/winspay-gate/internal/domain"
	"github.com/bnema/winspay-gate/internal/ports"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

type profileResult struct {
	profile domain.Profile
	err     error
}

// stubProfileStore answers from a fixed map and counts calls.
type stubProfileStore struct {
	mu       sync.Mutex
	profiles map[domain.UserID]domain.Profile
	err      error
	calls    int
}

func (s *stubProfileStore) GetProfile(_ context.Context, userID domain.UserID) (domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.err != nil {
		return domain.Profile{}, s.err
	}
	profile, ok := s.profiles[userID]
	if !ok {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	return profile, nil
}

func (s *stubProfileStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.calls
}

type pendingFetch struct {
	userID domain.UserID
	reply  chan profileResult
}

// blockingProfileStore parks every fetch until the test replies.
type blockingProfileStore struct {
	fetches chan pendingFetch
}

func newBlockingProfileStore() *blockingProfileStore {
	return &blockingProfileStore{fetches: make(chan pendingFetch)}
}

func (s *blockingProfileStore) GetProfile(ctx context.Context, userID domain.UserID) (domain.Profile, error) {
	call := pendingFetch{userID: userID, reply: make(chan profileResult, 1)}
	select {
	case s.fetches <- call:
	case <-ctx.Done():
		return domain.Profile{}, ctx.Err()
	}

	select {
	case result := <-call.reply:
		return result.profile, result.err
	case <-ctx.Done():
		return domain.Profile{}, ctx.Err()
	}
}

type fakeAuth struct {
	mu       sync.Mutex
	session  *domain.Session
	err      error
	handlers map[int]ports.AuthStateHandler
	nextID   int
	calls    int
}

func (a *fakeAuth) GetSession(context.Context) (*domain.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	if a.session == nil {
		return nil, nil
	}
	clone := *a.session
	return &clone, nil
}

func (a *fakeAuth) OnAuthStateChange(handler ports.AuthStateHandler) ports.Unsubscribe {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.handlers == nil {
		a.handlers = map[int]ports.AuthStateHandler{}
	}
	id := a.nextID
	a.nextID++
	a.handlers[id] = handler
	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.handlers, id)
	}
}

func (a *fakeAuth) emit(event domain.AuthEvent, session *domain.Session) {
	a.mu.Lock()
	a.session = session
	handlers := make([]ports.AuthStateHandler, 0, len(a.handlers))
	for _, handler := range a.handlers {
		handlers = append(handlers, handler)
	}
	a.mu.Unlock()

	for _, handler := range handlers {
		handler(event, session)
	}
}

func (a *fakeAuth) subscribers() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return len(a.handlers)
}

type fakeLifecycle struct {
	mu       sync.Mutex
	handlers map[int]func()
	nextID   int
}

func (l *fakeLifecycle) OnForegroundResume(handler func()) ports.Unsubscribe {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.handlers == nil {
		l.handlers = map[int]func(){}
	}
	id := l.nextID
	l.nextID++
	l.handlers[id] = handler
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.handlers, id)
	}
}

func (l *fakeLifecycle) resume() {
	l.mu.Lock()
	handlers := make([]func(), 0, len(l.handlers))
	for _, handler := range l.handlers {
		handlers = append(handlers, handler)
	}
	l.mu.Unlock()

	for _, handler := range handlers {
		handler()
	}
}

func (l *fakeLifecycle) subscribers() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.handlers)
}

type recordingNavigator struct {
	mu     sync.Mutex
	routes []domain.Route
}

func (n *recordingNavigator) Navigate(route domain.Route) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.routes = append(n.routes, route)
}

func (n *recordingNavigator) history() []domain.Route {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]domain.Route(nil), n.routes...)
}

type fakeLinks struct {
	link      string
	linkErr   error
	statuses  []ports.RemoteOnboardingStatus
	checkErr  error
	checks    int
	sessionID domain.UserID
}

func (f *fakeLinks) CreateOnboardingLink(_ context.Context, session domain.Session) (string, error) {
	f.sessionID = session.UserID
	return f.link, f.linkErr
}

func (f *fakeLinks) CheckOnboardingStatus(_ context.Context, session domain.Session) (ports.RemoteOnboardingStatus, error) {
	f.sessionID = session.UserID
	f.checks++
	if f.checkErr != nil {
		return ports.RemoteOnboardingStatus{}, f.checkErr
	}
	if len(f.statuses) == 0 {
		return ports.RemoteOnboardingStatus{}, errors.New("no scripted status")
	}
	status := f.statuses[0]
	if len(f.statuses) > 1 {
		f.statuses = f.statuses[1:]
	}
	return status, nil
}

func strPtr(s string) *string { return &s }

func userPtr(id domain.UserID) *domain.UserID { return &id }
