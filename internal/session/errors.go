package session

import (
	"errors"

	"github.com/desertthunder/lrx/internal/shared"
)

const (
	MessageSessionExpired = "Session expired. Please login again."

	defaultLoginMessage  = "An error occurred during login"
	defaultSignupMessage = "An error occurred during signup"
	defaultGoogleMessage = "An error occurred during Google login"
)

// AuthError is a failed login, signup or federated login.
//
// Message is safe to show to the user verbatim. The error matches [shared.ErrAuthRejected]
// when the server declined the credentials and [shared.ErrValidation] when input was missing.
type AuthError struct {
	Op      string
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	return e.Op + ": " + e.Message
}

func (e *AuthError) Unwrap() []error {
	errs := []error{e.Err}
	if rejected(e.Err) {
		errs = append(errs, shared.ErrAuthRejected)
	}
	return errs
}

func rejected(err error) bool {
	return errors.Is(err, shared.ErrRequestRejected) || errors.Is(err, shared.ErrNotAuthenticated)
}

type userMessenger interface {
	UserMessage() string
}

func newAuthError(op, fallback string, err error) *AuthError {
	msg := fallback
	var um userMessenger
	if errors.As(err, &um) && um.UserMessage() != "" {
		msg = um.UserMessage()
	}
	return &AuthError{Op: op, Message: msg, Err: err}
}

func validationError(op, msg string) *AuthError {
	return &AuthError{Op: op, Message: msg, Err: shared.ErrValidation}
}
