package supabase

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// APIError is a non-2xx answer from any Supabase surface. Auth, PostgREST
// and edge functions all shape their error bodies differently, so the
// message is picked from the first field that is present.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Code != "" && e.Code != msg {
		return fmt.Sprintf("supabase: %s (%s, status %d)", msg, e.Code, e.StatusCode)
	}

	return fmt.Sprintf("supabase: %s (status %d)", msg, e.StatusCode)
}

func (e *APIError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// IsClientError reports whether err is a 4xx APIError, i.e. the request was
// understood and refused.
func IsClientError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}

	return apiErr.StatusCode >= 400 && apiErr.StatusCode < 500
}

var (
	messagePaths = []string{"msg", "message", "error_description", "error.message", "error"}
	codePaths    = []string{"error_code", "code", "error"}
)

func decodeAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	if !gjson.ValidBytes(body) {
		apiErr.Message = strings.TrimSpace(string(body))
		return apiErr
	}

	for _, path := range messagePaths {
		if value := gjson.GetBytes(body, path); value.Type == gjson.String && value.String() != "" {
			apiErr.Message = value.String()
			break
		}
	}
	for _, path := range codePaths {
		if value := gjson.GetBytes(body, path); value.Exists() && value.Type != gjson.JSON && value.String() != "" {
			apiErr.Code = value.String()
			break
		}
	}

	return apiErr
}
