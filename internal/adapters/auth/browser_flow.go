package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const CallbackPath = "/auth/callback"

var (
	ErrStateMismatch   = errors.New("oauth callback state mismatch")
	ErrCallbackTimeout = errors.New("timed out waiting for oauth callback")
	ErrMissingState    = errors.New("expected state is required")
)

type AuthorizeRequest struct {
	ProjectURL    string
	Provider      string
	RedirectTo    string
	CodeChallenge string
	Scopes        []string
}

// BuildAuthorizeURL returns the GoTrue authorize URL that starts a PKCE
// provider sign-in. GoTrue sends the browser back to RedirectTo with a code.
func BuildAuthorizeURL(req AuthorizeRequest) (string, error) {
	if strings.TrimSpace(req.Provider) == "" {
		return "", errors.New("oauth provider is required")
	}
	if req.RedirectTo == "" {
		return "", errors.New("redirect url is required")
	}
	if req.CodeChallenge == "" {
		return "", errors.New("code challenge is required")
	}

	base, err := url.Parse(strings.TrimSpace(req.ProjectURL))
	if err != nil {
		return "", fmt.Errorf("parse project url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return "", errors.New("project url must use http or https")
	}
	if base.Host == "" {
		return "", errors.New("project url host is required")
	}

	base.Path = strings.TrimRight(base.Path, "/") + "/auth/v1/authorize"
	q := url.Values{}
	q.Set("provider", req.Provider)
	q.Set("redirect_to", req.RedirectTo)
	q.Set("code_challenge", req.CodeChallenge)
	q.Set("code_challenge_method", PKCEChallengeMethodS256)
	if len(req.Scopes) > 0 {
		q.Set("scopes", strings.Join(req.Scopes, " "))
	}
	base.RawQuery = q.Encode()

	return base.String(), nil
}

// CallbackServer receives the provider redirect on localhost. GoTrue does not
// echo an OAuth state back, so the state rides in the redirect URL's query.
type CallbackServer struct {
	expectedState string
	listener      net.Listener
	server        *http.Server
	resultCh      chan callbackResult
	resultOnce    sync.Once
	closeOnce     sync.Once
}

type callbackResult struct {
	code string
	err  error
}

func StartCallbackServer(listenAddr string, expectedState string) (*CallbackServer, error) {
	if expectedState == "" {
		return nil, ErrMissingState
	}
	if listenAddr == "" {
		listenAddr = "127.0.0.1:0"
	}

	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("listen callback server: %w", err)
	}

	cb := &CallbackServer{
		expectedState: expectedState,
		listener:      listener,
		resultCh:      make(chan callbackResult, 1),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(CallbackPath, cb.handleCallback)
	cb.server = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if serveErr := cb.server.Serve(cb.listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			cb.trySendResult(callbackResult{err: serveErr})
		}
	}()

	return cb, nil
}

// RedirectURL is the URL to pass as redirect_to. It must be allow-listed in
// the project's auth settings.
func (c *CallbackServer) RedirectURL() string {
	port := 0
	if tcpAddr, ok := c.listener.Addr().(*net.TCPAddr); ok {
		port = tcpAddr.Port
	}

	q := url.Values{}
	q.Set("state", c.expectedState)

	return fmt.Sprintf("http://localhost:%d%s?%s", port, CallbackPath, q.Encode())
}

func (c *CallbackServer) WaitForCode(ctx context.Context, timeout time.Duration) (string, error) {
	defer func() { _ = c.Close() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case result := <-c.resultCh:
		return result.code, result.err
	case <-timer.C:
		return "", ErrCallbackTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *CallbackServer) Close() error {
	var closeErr error
	c.closeOnce.Do(func() {
		closeErr = c.server.Close()
	})
	return closeErr
}

func (c *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if query.Get("state") != c.expectedState {
		c.trySendResult(callbackResult{err: ErrStateMismatch})
		http.Error(w, "state mismatch", http.StatusBadRequest)
		return
	}
	if oauthError := query.Get("error"); oauthError != "" {
		if description := query.Get("error_description"); description != "" {
			oauthError = oauthError + ": " + description
		}
		c.trySendResult(callbackResult{err: errors.New(oauthError)})
		http.Error(w, "oauth error", http.StatusBadRequest)
		return
	}
	code := query.Get("code")
	if code == "" {
		c.trySendResult(callbackResult{err: errors.New("missing authorization code")})
		http.Error(w, "missing code", http.StatusBadRequest)
		return
	}

	c.trySendResult(callbackResult{code: code})
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Signed in. You can close this window and return to the terminal."))
}

func (c *CallbackServer) trySendResult(result callbackResult) {
	c.resultOnce.Do(func() {
		c.resultCh <- result
	})
}
