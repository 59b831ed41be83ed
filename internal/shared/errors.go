package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Session and authentication errors
	ErrValidation       = fmt.Errorf("validation failed")
	ErrAuthRejected     = fmt.Errorf("authentication rejected")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrSessionExpired   = fmt.Errorf("session expired")
	ErrRefreshFailed    = fmt.Errorf("token refresh failed")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API and transport errors
	ErrAPIRequest      = fmt.Errorf("API request failed")
	ErrRequestRejected = fmt.Errorf("request rejected")
	ErrRateLimited     = fmt.Errorf("too many requests")
	ErrServerError     = fmt.Errorf("server error")
	ErrNetworkFailure  = fmt.Errorf("network failure")
	ErrDecodeResponse  = fmt.Errorf("malformed response")

	// Search errors
	ErrSignupRequired = fmt.Errorf("signup required")
	ErrEmptyQuery     = fmt.Errorf("empty search query")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
