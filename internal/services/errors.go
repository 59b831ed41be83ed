package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/lrx/internal/shared"
)

// Kind classifies a failed API call.
type Kind int

const (
	KindNetwork Kind = iota + 1
	KindUnauthorized
	KindRateLimited
	KindServer
	KindRejected
	KindDecode
	KindSessionExpired
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindUnauthorized:
		return "unauthorized"
	case KindRateLimited:
		return "rate_limited"
	case KindServer:
		return "server"
	case KindRejected:
		return "rejected"
	case KindDecode:
		return "decode"
	case KindSessionExpired:
		return "session_expired"
	default:
		return "unknown"
	}
}

// sentinel returns the shared error matching k.
func (k Kind) sentinel() error {
	switch k {
	case KindNetwork:
		return shared.ErrNetworkFailure
	case KindUnauthorized:
		return shared.ErrNotAuthenticated
	case KindRateLimited:
		return shared.ErrRateLimited
	case KindServer:
		return shared.ErrServerError
	case KindRejected:
		return shared.ErrRequestRejected
	case KindDecode:
		return shared.ErrDecodeResponse
	case KindSessionExpired:
		return shared.ErrSessionExpired
	default:
		return shared.ErrAPIRequest
	}
}

// KindForStatus maps a non-2xx HTTP status to a [Kind].
func KindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status >= http.StatusInternalServerError:
		return KindServer
	default:
		return KindRejected
	}
}

// APIError is a failed API call.
//
// It matches [shared.ErrAPIRequest] and the sentinel for its Kind with [errors.Is],
// as well as any underlying transport error.
type APIError struct {
	Kind    Kind
	Method  string
	Path    string
	Status  int
	Message string
	// Code is the machine-readable error code sent by the server, e.g. RATE_LIMIT_EXCEEDED.
	Code string
	Err  error
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", e.Method, e.Path)
	if e.Status != 0 {
		fmt.Fprintf(&b, ": status %d", e.Status)
	}
	switch {
	case e.Message != "":
		fmt.Fprintf(&b, ": %s", e.Message)
	case e.Err != nil:
		fmt.Fprintf(&b, ": %v", e.Err)
	default:
		fmt.Fprintf(&b, ": %v", e.Kind.sentinel())
	}
	return b.String()
}

func (e *APIError) Unwrap() []error {
	errs := []error{shared.ErrAPIRequest, e.Kind.sentinel()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// ErrorCode returns the server's machine-readable error code, if any.
func (e *APIError) ErrorCode() string { return e.Code }

// UserMessage returns the server's message for an end user, or "" when the server never answered.
func (e *APIError) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Status != 0 {
		return http.StatusText(e.Status)
	}
	return ""
}

// errorBody is the JSON error envelope used by the API.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// newStatusError builds an [APIError] from a non-2xx response.
func newStatusError(method, path string, status int, body []byte) *APIError {
	e := &APIError{
		Kind:   KindForStatus(status),
		Method: method,
		Path:   path,
		Status: status,
	}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		e.Code = eb.Code
		e.Message = eb.Message
		if e.Message == "" {
			e.Message = eb.Error
		}
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}
