package search

import (
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/lrx/internal/models"
	"github.com/desertthunder/lrx/internal/shared"
)

// CodeRateLimitExceeded is the server's error code for an exhausted anonymous search quota.
const CodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"

const defaultFailureMessage = "Search failed"

// OutcomeKind classifies the result of a search operation.
type OutcomeKind int

const (
	// OutcomeEmptyQuery means the query was blank and no request was sent.
	OutcomeEmptyQuery OutcomeKind = iota
	// OutcomeResults means a result set was committed.
	OutcomeResults
	// OutcomeSignupRequired means the user has to sign up before searching again.
	OutcomeSignupRequired
	// OutcomeFailure is a generic, retryable failure.
	OutcomeFailure
	// OutcomeStale means the response belonged to a superseded search and was discarded.
	OutcomeStale
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeEmptyQuery:
		return "empty_query"
	case OutcomeResults:
		return "results"
	case OutcomeSignupRequired:
		return "signup_required"
	case OutcomeFailure:
		return "failure"
	case OutcomeStale:
		return "stale"
	default:
		return "unknown"
	}
}

// Outcome is what a single search operation produced.
type Outcome struct {
	Kind    OutcomeKind
	Result  *models.SearchResult
	Message string
	Err     error
}

type coded interface {
	UserMessage() string
}

// Classify maps a search error to [OutcomeSignupRequired] or [OutcomeFailure].
//
// A failure escalates to signup when its message mentions signing up or its code is
// [CodeRateLimitExceeded]. The returned Err matches [shared.ErrSignupRequired] in that case.
func Classify(err error) Outcome {
	msg := defaultFailureMessage
	var c coded
	if errors.As(err, &c) && c.UserMessage() != "" {
		msg = c.UserMessage()
	}

	if signupRequired(err, msg) {
		return Outcome{Kind: OutcomeSignupRequired, Message: msg, Err: fmt.Errorf("%w: %w", shared.ErrSignupRequired, err)}
	}
	return Outcome{Kind: OutcomeFailure, Message: msg, Err: err}
}

func signupRequired(err error, msg string) bool {
	lower := strings.ToLower(msg + " " + err.Error())
	if strings.Contains(lower, "signup") || strings.Contains(lower, "sign up") {
		return true
	}

	var withCode interface{ ErrorCode() string }
	if errors.As(err, &withCode) && withCode.ErrorCode() == CodeRateLimitExceeded {
		return true
	}
	return false
}
