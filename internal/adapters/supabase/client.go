package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bnema/winspay-gate/internal/version"
	"github.com/google/uuid"
)

const (
	maxResponseBytes      = 1 << 20
	DefaultRequestTimeout = 15 * time.Second
	RequestIDHeader       = "X-Request-Id"
)

type Config struct {
	ProjectURL     string
	AnonKey        string
	HTTPClient     *http.Client
	RequestTimeout time.Duration
}

// Client speaks to a Supabase project's REST surfaces (auth, PostgREST,
// edge functions). Requests carry the anon key as apikey and either the
// caller's access token or the anon key as bearer.
type Client struct {
	baseURL        *url.URL
	anonKey        string
	httpClient     *http.Client
	requestTimeout time.Duration
}

type Request struct {
	Method      string
	Path        string
	Query       url.Values
	Body        any
	BearerToken string
	Header      http.Header
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func NewClient(cfg Config) (*Client, error) {
	base, err := parseProjectURL(cfg.ProjectURL)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.AnonKey) == "" {
		return nil, errors.New("supabase anon key is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return &Client{
		baseURL:        base,
		anonKey:        strings.TrimSpace(cfg.AnonKey),
		httpClient:     httpClient,
		requestTimeout: timeout,
	}, nil
}

func (c *Client) ProjectURL() string {
	return c.baseURL.String()
}

func (c *Client) Host() string {
	return c.baseURL.Host
}

// Do sends the request and returns the body of a 2xx response. Any other
// status is returned as an *APIError.
func (c *Client) Do(ctx context.Context, req Request) (Response, error) {
	endpoint, err := c.endpoint(req.Path, req.Query)
	if err != nil {
		return Response{}, err
	}

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return Response{}, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	requestCtx, cancel := c.requestContext(ctx)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(requestCtx, method, endpoint, body)
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}
	for key, values := range req.Header {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}
	bearer := req.BearerToken
	if bearer == "" {
		bearer = c.anonKey
	}
	httpReq.Header.Set("apikey", c.anonKey)
	httpReq.Header.Set("Authorization", "Bearer "+bearer)
	httpReq.Header.Set("X-Client-Info", "winspay-gate/"+version.Version)
	httpReq.Header.Set(RequestIDHeader, uuid.NewString())
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("%s %s: %w", method, req.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Response{}, fmt.Errorf("read %s response: %w", req.Path, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return Response{}, decodeAPIError(resp.StatusCode, data)
	}

	return Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// DoJSON sends the request and decodes a 2xx body into out.
func (c *Client) DoJSON(ctx context.Context, req Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.Path, err)
	}

	return nil
}

func (c *Client) endpoint(path string, query url.Values) (string, error) {
	path = strings.TrimLeft(strings.TrimSpace(path), "/")
	if path == "" {
		return "", errors.New("api path is required")
	}

	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parse api path: %w", err)
	}
	endpoint := c.baseURL.ResolveReference(ref)
	if len(query) > 0 {
		q := endpoint.Query()
		for key, values := range query {
			for _, value := range values {
				q.Add(key, value)
			}
		}
		endpoint.RawQuery = q.Encode()
	}

	return endpoint.String(), nil
}

func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, c.requestTimeout)
}

func parseProjectURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("supabase project url is required")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse supabase project url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, errors.New("supabase project url must use http or https")
	}
	if parsed.Host == "" {
		return nil, errors.New("supabase project url host is required")
	}

	parsed.Path = strings.TrimRight(parsed.Path, "/") + "/"
	parsed.RawQuery = ""
	parsed.Fragment = ""

	return parsed, nil
}
