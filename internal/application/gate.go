package application

import (
	"context"
	"errors"
	"sync"

	"github.com/bnema/winspay-gate/internal/domain"
	"github.com/bnema/winspay-gate/internal/logging"
	"github.com/bnema/winspay-gate/internal/ports"
	"github.com/sirupsen/logrus"
)

type GateState string

const (
	GateStart               GateState = "start"
	GateSessionChecked      GateState = "session_checked"
	GateRouteSignedOut      GateState = "route_signed_out"
	GateResolvingOnboarding GateState = "resolving_onboarding"
	GateRoutePaymentSetup   GateState = "route_payment_setup"
	GateRouteMainApp        GateState = "route_main_app"
)

func gateStateForRoute(route domain.Route) GateState {
	switch route {
	case domain.RouteSignIn:
		return GateRouteSignedOut
	case domain.RoutePaymentSetupStart, domain.RoutePaymentSetupContinue:
		return GateRoutePaymentSetup
	case domain.RouteMainApp:
		return GateRouteMainApp
	default:
		return GateResolvingOnboarding
	}
}

type GateDeps struct {
	Auth      ports.AuthProvider
	Lifecycle ports.Lifecycle
	Navigator ports.Navigator
	Resolver  *Resolver
	Sessions  *SessionStore
	Status    *StatusStore
	Logger    logrus.FieldLogger
}

// Gate decides which top-level screen stack the user lands on. It restores
// the session, resolves onboarding status, then routes, and repeats the
// resolution on foreground resume until the user is ready.
type Gate struct {
	auth      ports.AuthProvider
	lifecycle ports.Lifecycle
	navigator ports.Navigator
	resolver  *Resolver
	sessions  *SessionStore
	status    *StatusStore
	log       logrus.FieldLogger

	mu           sync.Mutex
	state        GateState
	route        domain.Route
	authChecked  bool
	sawAuthEvent bool
	started      bool
	closed       bool
	ctx          context.Context
	cancel       context.CancelFunc
	unsubscribe  []ports.Unsubscribe
}

func NewGate(deps GateDeps) (*Gate, error) {
	var errs []error
	if deps.Auth == nil {
		errs = append(errs, errors.New("auth provider is required"))
	}
	if deps.Navigator == nil {
		errs = append(errs, errors.New("navigator is required"))
	}
	if deps.Resolver == nil {
		errs = append(errs, errors.New("resolver is required"))
	}
	if deps.Sessions == nil {
		errs = append(errs, errors.New("session store is required"))
	}
	if deps.Status == nil {
		errs = append(errs, errors.New("status store is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	log := deps.Logger
	if log == nil {
		log = logging.Nop()
	}

	return &Gate{
		auth:      deps.Auth,
		lifecycle: deps.Lifecycle,
		navigator: deps.Navigator,
		resolver:  deps.Resolver,
		sessions:  deps.Sessions,
		status:    deps.Status,
		log:       log.WithField("component", "gate"),
		state:     GateStart,
	}, nil
}

// Start runs the launch sequence once: restore session, resolve onboarding,
// route. It never fails; a broken session restore is treated as signed out.
// Later calls return the current route.
func (g *Gate) Start(ctx context.Context) domain.Route {
	g.mu.Lock()
	if g.started || g.closed {
		route := g.route
		g.mu.Unlock()
		return route
	}
	g.started = true
	g.ctx, g.cancel = context.WithCancel(ctx)
	runCtx := g.ctx
	g.mu.Unlock()

	g.subscribe()

	session := g.restoreSession(runCtx)
	return g.routeSession(runCtx, session)
}

// Refetch re-resolves onboarding for the held session and re-routes.
func (g *Gate) Refetch(ctx context.Context) domain.Route {
	if !g.isAuthChecked() {
		return domain.RouteNone
	}

	return g.routeSession(ctx, g.sessions.Current())
}

func (g *Gate) State() GateState {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.state
}

func (g *Gate) Route() domain.Route {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.route
}

// Close releases the auth and lifecycle subscriptions. Notifications that
// arrive afterwards are ignored.
func (g *Gate) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	unsubscribe := g.unsubscribe
	g.unsubscribe = nil
	cancel := g.cancel
	g.mu.Unlock()

	for _, unsub := range unsubscribe {
		unsub()
	}
	if cancel != nil {
		cancel()
	}
}

func (g *Gate) subscribe() {
	unsubs := []ports.Unsubscribe{g.auth.OnAuthStateChange(g.handleAuthChange)}
	if g.lifecycle != nil {
		unsubs = append(unsubs, g.lifecycle.OnForegroundResume(g.handleForegroundResume))
	}

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		for _, unsub := range unsubs {
			unsub()
		}
		return
	}
	g.unsubscribe = append(g.unsubscribe, unsubs...)
	g.mu.Unlock()
}

func (g *Gate) restoreSession(ctx context.Context) *domain.Session {
	session, err := g.auth.GetSession(ctx)
	if err != nil {
		g.log.WithError(err).Warn("session restore failed, treating as signed out")
		session = nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	// A notification that raced the restore carries the newer session.
	if g.sawAuthEvent {
		session = g.sessions.Current()
	} else {
		g.sessions.replace(session)
	}
	g.authChecked = true
	g.state = GateSessionChecked

	return session
}

func (g *Gate) routeSession(ctx context.Context, session *domain.Session) domain.Route {
	if session == nil {
		g.resolver.Resolve(ctx, nil)
		g.navigate(domain.RouteSignIn)
		return domain.RouteSignIn
	}

	g.setState(GateResolvingOnboarding)

	userID := session.UserID
	g.resolver.Resolve(ctx, &userID)

	held := g.sessions.Current()
	if held == nil || held.UserID != userID {
		g.log.WithField("user_id", userID).Debug("session changed during resolution, leaving routing to the newer event")
		return g.Route()
	}

	snapshot := g.status.Current()
	if snapshot.Loading() || snapshot.UserID != userID {
		return g.Route()
	}

	route := domain.RouteForStatus(snapshot.Status)
	g.navigate(route)
	return route
}

func (g *Gate) handleForegroundResume() {
	g.mu.Lock()
	if g.closed || !g.authChecked {
		g.mu.Unlock()
		return
	}
	ctx := g.ctx
	g.mu.Unlock()

	session := g.sessions.Current()
	if session == nil {
		return
	}
	if g.status.Current().Ready() {
		g.log.Debug("foreground resume with ready status, skipping onboarding check")
		return
	}

	g.log.WithField("user_id", session.UserID).Info("foreground resume, re-checking onboarding")
	g.routeSession(ctx, session)
}

func (g *Gate) handleAuthChange(event domain.AuthEvent, session *domain.Session) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	previous := g.sessions.Current()
	g.sessions.replace(session)
	g.sawAuthEvent = true
	checked := g.authChecked
	ctx := g.ctx
	g.mu.Unlock()

	g.log.WithField("event", event).Debug("auth state changed")

	if !checked {
		return
	}

	if event == domain.AuthEventSignedOut || session == nil {
		g.routeSession(ctx, nil)
		return
	}

	if event == domain.AuthEventTokenRefreshed {
		return
	}

	if previous == nil || previous.UserID != session.UserID {
		g.routeSession(ctx, session)
	}
}

func (g *Gate) navigate(route domain.Route) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed || route == domain.RouteNone || !g.authChecked {
		return
	}

	g.state = gateStateForRoute(route)
	if g.route == route {
		return
	}
	g.route = route
	g.log.WithField("route", route).Info("navigating")
	g.navigator.Navigate(route)
}

func (g *Gate) setState(state GateState) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.closed {
		g.state = state
	}
}

func (g *Gate) isAuthChecked() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.authChecked && !g.closed
}
