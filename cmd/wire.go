package cmd

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	authadapter "github.com/bnema/winspay-gate/internal/adapters/auth"
	"github.com/bnema/winspay-gate/internal/adapters/functions"
	gaterender "github.com/bnema/winspay-gate/internal/adapters/render/gate"
	"github.com/bnema/winspay-gate/internal/adapters/repo/postgrest"
	tomlrepo "github.com/bnema/winspay-gate/internal/adapters/repo/toml"
	chainstore "github.com/bnema/winspay-gate/internal/adapters/secrets/chain"
	filestore "github.com/bnema/winspay-gate/internal/adapters/secrets/file"
	passstore "github.com/bnema/winspay-gate/internal/adapters/secrets/pass"
	"github.com/bnema/winspay-gate/internal/adapters/supabase"
	"github.com/bnema/winspay-gate/internal/application"
	"github.com/bnema/winspay-gate/internal/config"
	"github.com/bnema/winspay-gate/internal/logging"
	"github.com/bnema/winspay-gate/internal/ports"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type app struct {
	cfg      config.Config
	log      *logrus.Logger
	clock    ports.Clock
	fixtures *tomlrepo.ProfileRepository
	render   func(gaterender.View) (string, error)

	// Left nil when the Supabase connection is not configured; connectErr
	// says why.
	connectErr error
	auth       *authadapter.Client
	profiles   ports.ProfileStore
	onboarding *application.OnboardingService
}

// appLoader wires the app on first use so that flags are parsed first and
// commands such as version run without any configuration.
type appLoader struct {
	logLevel string

	once sync.Once
	app  *app
	err  error
}

func (l *appLoader) load(cmd *cobra.Command) (*app, error) {
	l.once.Do(func() {
		l.app, l.err = wireApp(l.logLevel, cmd.ErrOrStderr())
	})

	return l.app, l.err
}

// connected returns the app only when the Supabase connection is usable.
func (l *appLoader) connected(cmd *cobra.Command) (*app, error) {
	app, err := l.load(cmd)
	if err != nil {
		return nil, err
	}
	if app.connectErr != nil {
		return nil, app.connectErr
	}

	return app, nil
}

func wireApp(logLevel string, logOutput io.Writer) (*app, error) {
	cfg, err := config.Load(viper.New())
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	log, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: logOutput})
	if err != nil {
		return nil, fmt.Errorf("wire logger: %w", err)
	}
	if cfg.File != "" {
		log.WithField("path", cfg.File).Debug("config loaded")
	}

	fixtures, err := tomlrepo.NewProfileRepository(cfg.Profiles.Path)
	if err != nil {
		return nil, fmt.Errorf("wire profile fixtures: %w", err)
	}

	a := &app{
		cfg:      cfg,
		log:      log,
		clock:    ports.SystemClock{},
		fixtures: fixtures,
		render:   gaterender.Render,
	}

	if err := cfg.RequireSupabase(); err != nil {
		a.connectErr = fmt.Errorf("supabase connection is not configured: %w", err)
		return a, nil
	}
	if err := a.wireSupabase(); err != nil {
		return nil, err
	}

	return a, nil
}

func (a *app) wireSupabase() error {
	api, err := supabase.NewClient(supabase.Config{
		ProjectURL:     a.cfg.Supabase.URL,
		AnonKey:        a.cfg.Supabase.AnonKey,
		HTTPClient:     http.DefaultClient,
		RequestTimeout: a.cfg.Supabase.RequestTimeout,
	})
	if err != nil {
		return fmt.Errorf("wire supabase client: %w", err)
	}

	secrets, err := newSecretStore(a.cfg.Secrets)
	if err != nil {
		return fmt.Errorf("wire secret store: %w", err)
	}

	auth, err := authadapter.NewClient(api, secrets,
		authadapter.WithClock(a.clock),
		authadapter.WithLogger(a.log),
		authadapter.WithRefreshSkew(a.cfg.Auth.RefreshSkew),
	)
	if err != nil {
		return fmt.Errorf("wire auth client: %w", err)
	}

	var profiles ports.ProfileStore = a.fixtures
	if a.cfg.Profiles.Backend == config.ProfilesBackendSupabase {
		profiles, err = postgrest.NewProfileRepository(api, auth, a.cfg.Supabase.ProfilesTable)
		if err != nil {
			return fmt.Errorf("wire profile repository: %w", err)
		}
	}

	links, err := functions.NewOnboardingClient(api, a.cfg.Supabase.FunctionsPath)
	if err != nil {
		return fmt.Errorf("wire onboarding functions: %w", err)
	}

	a.auth = auth
	a.profiles = profiles
	a.onboarding = application.NewOnboardingService(auth, links, a.log)

	return nil
}

func newSecretStore(cfg config.SecretsConfig) (ports.SecretStore, error) {
	switch cfg.Backend {
	case config.SecretsBackendFile:
		return filestore.NewStore(cfg.Dir), nil
	case config.SecretsBackendPass:
		return passstore.NewStore(cfg.PassPrefix), nil
	case config.SecretsBackendChain:
		return chainstore.NewPassFirstWithFileFallback(cfg.PassPrefix, cfg.Dir)
	default:
		return nil, errors.New("unknown secrets backend " + cfg.Backend)
	}
}

func (a *app) newResolver(status *application.StatusStore) *application.Resolver {
	return application.NewResolver(a.profiles, status,
		application.WithFetchTimeout(a.cfg.Onboarding.FetchTimeout),
		application.WithFailureStatus(a.cfg.Onboarding.FailOpenStatus),
		application.WithResolverLogger(a.log),
		application.WithResolverClock(a.clock),
	)
}

// gateRun bundles a gate with the stores it publishes into.
type gateRun struct {
	gate     *application.Gate
	sessions *application.SessionStore
	status   *application.StatusStore
}

func (a *app) newGate(navigator ports.Navigator, lifecycle ports.Lifecycle) (gateRun, error) {
	sessions := application.NewSessionStore()
	status := application.NewStatusStore()

	gate, err := application.NewGate(application.GateDeps{
		Auth:      a.auth,
		Lifecycle: lifecycle,
		Navigator: navigator,
		Resolver:  a.newResolver(status),
		Sessions:  sessions,
		Status:    status,
		Logger:    a.log,
	})
	if err != nil {
		return gateRun{}, fmt.Errorf("wire gate: %w", err)
	}

	return gateRun{gate: gate, sessions: sessions, status: status}, nil
}

// view captures the gate screen as it stands now.
func (r gateRun) view(now ports.Clock) gaterender.View {
	return gaterender.View{
		State:    r.gate.State(),
		Route:    r.gate.Route(),
		Session:  r.sessions.Current(),
		Snapshot: r.status.Current(),
		Now:      now.Now(),
	}
}
