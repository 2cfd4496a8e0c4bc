package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bnema/winspay-gate/internal/adapters/supabase"
	"github.com/bnema/winspay-gate/internal/domain"
	"github.com/bnema/winspay-gate/internal/logging"
	"github.com/bnema/winspay-gate/internal/ports"
	"github.com/sirupsen/logrus"
)

const DefaultRefreshSkew = 60 * time.Second

var _ ports.AuthProvider = (*Client)(nil)

// Client talks to GoTrue, persists the session in a secret store and fans
// out auth state changes to subscribers.
type Client struct {
	api         *supabase.Client
	secrets     ports.SecretStore
	storeKey    string
	clock       ports.Clock
	log         logrus.FieldLogger
	refreshSkew time.Duration

	sessionMu sync.Mutex

	handlersMu sync.Mutex
	handlers   map[uint64]ports.AuthStateHandler
	nextID     uint64
}

type Option func(*Client)

func WithClock(clock ports.Clock) Option {
	return func(c *Client) {
		if clock != nil {
			c.clock = clock
		}
	}
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

func WithRefreshSkew(skew time.Duration) Option {
	return func(c *Client) {
		if skew >= 0 {
			c.refreshSkew = skew
		}
	}
}

func NewClient(api *supabase.Client, secrets ports.SecretStore, opts ...Option) (*Client, error) {
	if api == nil {
		return nil, errors.New("supabase client is required")
	}
	if secrets == nil {
		return nil, errors.New("secret store is required")
	}

	c := &Client{
		api:         api,
		secrets:     secrets,
		storeKey:    SessionStoreKey(api.ProjectURL()),
		clock:       ports.SystemClock{},
		log:         logging.Nop(),
		refreshSkew: DefaultRefreshSkew,
		handlers:    make(map[uint64]ports.AuthStateHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithField("component", "auth")

	return c, nil
}

// GetSession returns the persisted session, refreshing it first when the
// access token is about to expire. A refresh token the server rejects signs
// the user out.
func (c *Client) GetSession(ctx context.Context) (*domain.Session, error) {
	c.sessionMu.Lock()
	session, event, err := c.loadFreshSession(ctx)
	c.sessionMu.Unlock()

	if event != "" {
		c.emit(event, session)
	}

	return session, err
}

func (c *Client) loadFreshSession(ctx context.Context) (*domain.Session, domain.AuthEvent, error) {
	stored, err := c.loadSession(ctx)
	if err != nil || stored == nil {
		return nil, "", err
	}

	now := c.clock.Now()
	if !stored.ExpiresWithin(now, c.refreshSkew) {
		return stored, "", nil
	}
	if stored.RefreshToken == "" {
		if stored.ExpiresWithin(now, 0) {
			c.log.Info("stored session expired without refresh token")
			return nil, c.dropSession(ctx), nil
		}
		return stored, "", nil
	}

	refreshed, err := c.refresh(ctx, stored.RefreshToken)
	switch {
	case err == nil:
		if err := c.saveSession(ctx, refreshed); err != nil {
			return nil, "", err
		}
		c.log.WithField("user_id", refreshed.UserID).Debug("session refreshed")
		return &refreshed, domain.AuthEventTokenRefreshed, nil
	case supabase.IsClientError(err):
		c.log.WithError(err).Info("refresh token rejected, signing out")
		return nil, c.dropSession(ctx), nil
	case !stored.ExpiresWithin(now, 0):
		c.log.WithError(err).Warn("session refresh failed, using current access token")
		return stored, "", nil
	default:
		return nil, "", fmt.Errorf("refresh session: %w", err)
	}
}

func (c *Client) OnAuthStateChange(handler ports.AuthStateHandler) ports.Unsubscribe {
	if handler == nil {
		return func() {}
	}

	c.handlersMu.Lock()
	id := c.nextID
	c.nextID++
	c.handlers[id] = handler
	c.handlersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.handlersMu.Lock()
			delete(c.handlers, id)
			c.handlersMu.Unlock()
		})
	}
}

// SignUp registers an email account. Projects that require email
// confirmation return no session; that case yields ErrConfirmationSent.
func (c *Client) SignUp(ctx context.Context, creds domain.Credentials) (domain.Session, error) {
	if err := creds.Validate(); err != nil {
		return domain.Session{}, err
	}

	var resp tokenResponse
	if err := c.api.DoJSON(ctx, supabase.Request{
		Method: http.MethodPost,
		Path:   "auth/v1/signup",
		Body: map[string]string{
			"email":    strings.TrimSpace(creds.Email),
			"password": creds.Password,
		},
	}, &resp); err != nil {
		return domain.Session{}, fmt.Errorf("sign up: %w", err)
	}
	if !resp.hasSession() {
		return domain.Session{}, domain.ErrConfirmationSent
	}

	return c.establish(ctx, resp)
}

func (c *Client) SignInWithPassword(ctx context.Context, creds domain.Credentials) (domain.Session, error) {
	if err := creds.Validate(); err != nil {
		return domain.Session{}, err
	}

	resp, err := c.token(ctx, "password", map[string]string{
		"email":    strings.TrimSpace(creds.Email),
		"password": creds.Password,
	})
	if err != nil {
		return domain.Session{}, fmt.Errorf("sign in: %w", err)
	}

	return c.establish(ctx, resp)
}

// SendOTP asks GoTrue to text a one-time code to phone.
func (c *Client) SendOTP(ctx context.Context, phone string) error {
	normalized, err := domain.NormalizePhone(phone)
	if err != nil {
		return err
	}

	if err := c.api.DoJSON(ctx, supabase.Request{
		Method: http.MethodPost,
		Path:   "auth/v1/otp",
		Body:   map[string]string{"phone": normalized},
	}, nil); err != nil {
		return fmt.Errorf("send otp: %w", err)
	}

	return nil
}

func (c *Client) VerifyOTP(ctx context.Context, phone string, code string) (domain.Session, error) {
	normalized, err := domain.NormalizePhone(phone)
	if err != nil {
		return domain.Session{}, err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.Session{}, errors.New("verification code is required")
	}

	var resp tokenResponse
	if err := c.api.DoJSON(ctx, supabase.Request{
		Method: http.MethodPost,
		Path:   "auth/v1/verify",
		Body: map[string]string{
			"type":  "sms",
			"phone": normalized,
			"token": code,
		},
	}, &resp); err != nil {
		return domain.Session{}, fmt.Errorf("verify otp: %w", err)
	}

	return c.establish(ctx, resp)
}

// ExchangeCodeForSession completes a PKCE provider sign-in.
func (c *Client) ExchangeCodeForSession(ctx context.Context, code string, verifier string) (domain.Session, error) {
	if code == "" {
		return domain.Session{}, errors.New("authorization code is required")
	}
	if verifier == "" {
		return domain.Session{}, errors.New("code verifier is required")
	}

	resp, err := c.token(ctx, "pkce", map[string]string{
		"auth_code":     code,
		"code_verifier": verifier,
	})
	if err != nil {
		return domain.Session{}, fmt.Errorf("exchange code: %w", err)
	}

	return c.establish(ctx, resp)
}

// SignOut revokes the session server side and always clears it locally.
func (c *Client) SignOut(ctx context.Context) error {
	c.sessionMu.Lock()
	stored, loadErr := c.loadSession(ctx)
	if stored != nil {
		err := c.api.DoJSON(ctx, supabase.Request{
			Method:      http.MethodPost,
			Path:        "auth/v1/logout",
			BearerToken: stored.AccessToken,
		}, nil)
		if err != nil {
			c.log.WithError(err).Warn("remote sign out failed, clearing local session")
		}
	}
	deleteErr := c.deleteSession(ctx)
	c.sessionMu.Unlock()

	c.emit(domain.AuthEventSignedOut, nil)

	return errors.Join(loadErr, deleteErr)
}

// AuthorizeURL builds the provider sign-in URL for a PKCE flow.
func (c *Client) AuthorizeURL(provider string, redirectTo string, pkce PKCEPair) (string, error) {
	return BuildAuthorizeURL(AuthorizeRequest{
		ProjectURL:    c.api.ProjectURL(),
		Provider:      provider,
		RedirectTo:    redirectTo,
		CodeChallenge: pkce.Challenge,
	})
}

func (c *Client) token(ctx context.Context, grantType string, body map[string]string) (tokenResponse, error) {
	var resp tokenResponse
	err := c.api.DoJSON(ctx, supabase.Request{
		Method: http.MethodPost,
		Path:   "auth/v1/token",
		Query:  url.Values{"grant_type": {grantType}},
		Body:   body,
	}, &resp)
	if err != nil {
		return tokenResponse{}, err
	}
	if !resp.hasSession() {
		return tokenResponse{}, errors.New("token response missing access_token")
	}

	return resp, nil
}

func (c *Client) refresh(ctx context.Context, refreshToken string) (domain.Session, error) {
	resp, err := c.token(ctx, "refresh_token", map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return domain.Session{}, err
	}

	return resp.toSession(c.clock.Now())
}

func (c *Client) establish(ctx context.Context, resp tokenResponse) (domain.Session, error) {
	session, err := resp.toSession(c.clock.Now())
	if err != nil {
		return domain.Session{}, err
	}

	c.sessionMu.Lock()
	err = c.saveSession(ctx, session)
	c.sessionMu.Unlock()
	if err != nil {
		return domain.Session{}, err
	}

	c.log.WithField("user_id", session.UserID).Info("signed in")
	c.emit(domain.AuthEventSignedIn, &session)

	return session, nil
}

func (c *Client) loadSession(ctx context.Context) (*domain.Session, error) {
	value, err := c.secrets.Get(ctx, c.storeKey)
	if errors.Is(err, domain.ErrSecretNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	session, err := decodeSession(value)
	if err != nil {
		c.log.WithError(err).Warn("discarding unreadable stored session")
		_ = c.deleteSession(ctx)
		return nil, nil
	}

	return &session, nil
}

func (c *Client) saveSession(ctx context.Context, session domain.Session) error {
	value, err := encodeSession(session)
	if err != nil {
		return err
	}
	if err := c.secrets.Put(ctx, c.storeKey, value); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	return nil
}

func (c *Client) deleteSession(ctx context.Context) error {
	err := c.secrets.Delete(ctx, c.storeKey)
	if err != nil && !errors.Is(err, domain.ErrSecretNotFound) {
		return fmt.Errorf("delete session: %w", err)
	}

	return nil
}

func (c *Client) dropSession(ctx context.Context) domain.AuthEvent {
	if err := c.deleteSession(ctx); err != nil {
		c.log.WithError(err).Warn("failed to clear stored session")
	}

	return domain.AuthEventSignedOut
}

func (c *Client) emit(event domain.AuthEvent, session *domain.Session) {
	c.handlersMu.Lock()
	handlers := make([]ports.AuthStateHandler, 0, len(c.handlers))
	for _, handler := range c.handlers {
		handlers = append(handlers, handler)
	}
	c.handlersMu.Unlock()

	for _, handler := range handlers {
		var copied *domain.Session
		if session != nil {
			s := *session
			copied = &s
		}
		handler(event, copied)
	}
}
