package functions

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/bnema/winspay-gate/internal/adapters/supabase"
	"github.com/bnema/winspay-gate/internal/domain"
	"github.com/bnema/winspay-gate/internal/ports"
	"github.com/tidwall/gjson"
)

const (
	DefaultBasePath      = "functions/v1"
	CreateLinkFunction   = "winspay-create-onboarding-link"
	CheckStatusFunction  = "check-onboarding-status"
	UserIDHeader         = "x-user-id"
	defaultLinkErrorText = "failed to create onboarding link"
)

var ErrLinkCreation = errors.New(defaultLinkErrorText)

var _ ports.OnboardingLinkProvider = (*OnboardingClient)(nil)

// OnboardingClient calls the payment onboarding edge functions with the
// signed-in user's token.
type OnboardingClient struct {
	api      *supabase.Client
	basePath string
}

func NewOnboardingClient(api *supabase.Client, basePath string) (*OnboardingClient, error) {
	if api == nil {
		return nil, errors.New("supabase client is required")
	}
	basePath = strings.Trim(strings.TrimSpace(basePath), "/")
	if basePath == "" {
		basePath = DefaultBasePath
	}

	return &OnboardingClient{api: api, basePath: basePath}, nil
}

func (c *OnboardingClient) CreateOnboardingLink(ctx context.Context, session domain.Session) (string, error) {
	if err := session.Validate(); err != nil {
		return "", err
	}

	header := http.Header{}
	header.Set(UserIDHeader, string(session.UserID))

	resp, err := c.api.Do(ctx, supabase.Request{
		Method:      http.MethodPost,
		Path:        c.path(CreateLinkFunction),
		Body:        struct{}{},
		BearerToken: session.AccessToken,
		Header:      header,
	})
	if err != nil {
		var apiErr *supabase.APIError
		if errors.As(err, &apiErr) && apiErr.Message == "" {
			return "", fmt.Errorf("%w (status %d)", ErrLinkCreation, apiErr.StatusCode)
		}
		return "", err
	}

	link := strings.TrimSpace(gjson.GetBytes(resp.Body, "url").String())
	if link == "" {
		if message := gjson.GetBytes(resp.Body, "error").String(); message != "" {
			return "", fmt.Errorf("%w: %s", ErrLinkCreation, message)
		}
		return "", ErrLinkCreation
	}

	parsed, err := url.Parse(link)
	if err != nil || (parsed.Scheme != "https" && parsed.Scheme != "http") {
		return "", fmt.Errorf("%w: invalid url %q", ErrLinkCreation, link)
	}

	return link, nil
}

func (c *OnboardingClient) CheckOnboardingStatus(ctx context.Context, session domain.Session) (ports.RemoteOnboardingStatus, error) {
	if err := session.Validate(); err != nil {
		return ports.RemoteOnboardingStatus{}, err
	}

	resp, err := c.api.Do(ctx, supabase.Request{
		Method:      http.MethodGet,
		Path:        c.path(CheckStatusFunction),
		BearerToken: session.AccessToken,
	})
	if err != nil {
		if rejected(err) {
			return ports.RemoteOnboardingStatus{}, fmt.Errorf("%w: %w", domain.ErrRequestRejected, err)
		}
		return ports.RemoteOnboardingStatus{}, err
	}
	if !gjson.ValidBytes(resp.Body) {
		return ports.RemoteOnboardingStatus{}, errors.New("decode onboarding status: invalid json")
	}

	result := gjson.ParseBytes(resp.Body)
	if message := result.Get("error"); message.Exists() && !result.Get("ready").Exists() {
		return ports.RemoteOnboardingStatus{}, fmt.Errorf("onboarding status: %s", message.String())
	}

	status := ports.RemoteOnboardingStatus{
		Ready:        result.Get("ready").Bool(),
		NeedsAccount: result.Get("needsAccount").Bool(),
	}
	if needsCompletion := result.Get("needsCompletion"); needsCompletion.Exists() {
		status.NeedsCompletion = needsCompletion.Bool()
	} else {
		status.NeedsCompletion = !status.Ready && !status.NeedsAccount
	}

	return status, nil
}

// rejected reports a 4xx answer that asking again will not change.
func rejected(err error) bool {
	var apiErr *supabase.APIError
	if !errors.As(err, &apiErr) || !supabase.IsClientError(err) {
		return false
	}

	return apiErr.StatusCode != http.StatusRequestTimeout && apiErr.StatusCode != http.StatusTooManyRequests
}

func (c *OnboardingClient) path(function string) string {
	return c.basePath + "/" + function
}
