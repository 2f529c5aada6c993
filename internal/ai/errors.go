package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// APIError is a non-2xx reply from a provider.
type APIError struct {
	StatusCode int            `json:"-"`
	Code       string         `json:"code,omitempty"`
	Message    string         `json:"message,omitempty"`
	Raw        map[string]any `json:"-"`
	RequestID  string         `json:"-"`
}

func (e *APIError) Error() string {
	parts := []string{fmt.Sprintf("status=%d", e.StatusCode)}
	if e.Code != "" {
		parts = append(parts, "code="+e.Code)
	}
	if e.RequestID != "" {
		parts = append(parts, "request_id="+e.RequestID)
	}
	if e.Message != "" {
		parts = append(parts, "message="+e.Message)
	}
	return "api error: " + strings.Join(parts, " ")
}

// The typed errors below wrap an APIError; errors.As reaches it through Unwrap.
type (
	// AuthError is a 401 or 403.
	AuthError struct{ *APIError }
	// RateLimitError is a 429, with the provider's Retry-After when sent.
	RateLimitError struct {
		*APIError
		RetryAfter time.Duration
	}
	// ModelNotFoundError means the requested model is not served.
	ModelNotFoundError struct{ *APIError }
	// BadRequestError is a 400 the provider will keep rejecting.
	BadRequestError struct{ *APIError }
	// QuotaExceededError is a billing or quota refusal.
	QuotaExceededError struct{ *APIError }
	// ServerError is a 5xx.
	ServerError struct{ *APIError }
)

func (e *AuthError) Error() string          { return "authentication failed: " + e.APIError.Error() }
func (e *ModelNotFoundError) Error() string { return "model not found: " + e.APIError.Error() }
func (e *BadRequestError) Error() string    { return "bad request: " + e.APIError.Error() }
func (e *QuotaExceededError) Error() string { return "quota exceeded: " + e.APIError.Error() }
func (e *ServerError) Error() string        { return "provider error: " + e.APIError.Error() }

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry in %s: %s", e.RetryAfter, e.APIError.Error())
	}
	return "rate limited: " + e.APIError.Error()
}

func (e *AuthError) Unwrap() error          { return e.APIError }
func (e *RateLimitError) Unwrap() error     { return e.APIError }
func (e *ModelNotFoundError) Unwrap() error { return e.APIError }
func (e *BadRequestError) Unwrap() error    { return e.APIError }
func (e *QuotaExceededError) Unwrap() error { return e.APIError }
func (e *ServerError) Unwrap() error        { return e.APIError }

// UnreachableError means the runtime could not be contacted at all.
type UnreachableError struct {
	Host string
	Err  error
}

func (e *UnreachableError) Error() string {
	if e.Host == "" {
		return fmt.Sprintf("endpoint unreachable: %v", e.Err)
	}
	return fmt.Sprintf("endpoint unreachable at %s: %v", e.Host, e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// callerError reports failures caused by the request itself. Retrying them
// is pointless and they say nothing about the provider's health.
func callerError(err error) bool {
	var bad *BadRequestError
	var missing *ModelNotFoundError
	return errors.As(err, &bad) || errors.As(err, &missing)
}

// decodeAPIError reads a bounded error body in either {"error":{...}} or flat form.
func decodeAPIError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
	var raw map[string]any
	_ = json.Unmarshal(body, &raw)
	apiErr := &APIError{StatusCode: resp.StatusCode, Raw: raw, RequestID: extractRequestID(resp)}
	src := raw
	switch v := raw["error"].(type) {
	case map[string]any:
		src = v
	case string:
		apiErr.Message = v
	}
	if msg, ok := src["message"].(string); ok && apiErr.Message == "" {
		apiErr.Message = msg
	}
	if code, ok := src["code"].(string); ok {
		apiErr.Code = code
	}
	return apiErr
}

// classifyAPIError maps an OpenRouter APIError to its typed form.
func classifyAPIError(apiErr *APIError, resp *http.Response) error {
	sc := apiErr.StatusCode
	switch {
	case sc == http.StatusUnauthorized || sc == http.StatusForbidden:
		return &AuthError{APIError: apiErr}
	case sc == http.StatusTooManyRequests:
		var ra time.Duration
		if secs, err := parseRetryAfterSeconds(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			ra = time.Duration(secs) * time.Second
		}
		return &RateLimitError{APIError: apiErr, RetryAfter: ra}
	case sc == http.StatusNotFound:
		if apiErr.Code == "model_not_found" || containsFold(apiErr.Message, "model", "not", "found") {
			return &ModelNotFoundError{APIError: apiErr}
		}
		return apiErr
	case sc == http.StatusBadRequest:
		return &BadRequestError{APIError: apiErr}
	case apiErr.Code == "quota_exceeded" || anyFold(apiErr.Message, "quota", "billing", "limit exceeded"):
		return &QuotaExceededError{APIError: apiErr}
	case sc >= 500 && sc <= 599:
		return &ServerError{APIError: apiErr}
	}
	return apiErr
}

// containsFold reports whether s holds every sub, ignoring case.
func containsFold(s string, subs ...string) bool {
	if s == "" {
		return false
	}
	s = strings.ToLower(s)
	for _, sub := range subs {
		if !strings.Contains(s, strings.ToLower(sub)) {
			return false
		}
	}
	return true
}

func anyFold(s string, subs ...string) bool {
	for _, sub := range subs {
		if containsFold(s, sub) {
			return true
		}
	}
	return false
}
