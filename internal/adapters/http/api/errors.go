package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/peereval/internal/adapters/roster"
	"github.com/okian/peereval/internal/domain/passcode"
	"github.com/okian/peereval/internal/domain/reconcile"
	"github.com/okian/peereval/internal/domain/rubric"
	"github.com/okian/peereval/internal/domain/session"
)

// Sentinel kinds for API errors.
var (
	ErrServe      = errors.New("serve failed")
	ErrBadRequest = errors.New("bad request")
	ErrNoSession  = errors.New("no session cookie")
)

// kindError tags an error with the operation that produced it.
type kindError struct {
	op   string
	kind error
	err  error
}

func (e *kindError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("%s: %v", e.op, e.kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.op, e.kind, e.err)
}

func (e *kindError) Unwrap() []error {
	if e.err == nil {
		return []error{e.kind}
	}
	return []error{e.kind, e.err}
}

// WrapKind annotates err with op and kind. errors.Is matches both.
func WrapKind(op string, kind, err error) error {
	return &kindError{op: op, kind: kind, err: err}
}

// NewKind returns an error of kind raised by op.
func NewKind(op string, kind error) error {
	return &kindError{op: op, kind: kind}
}

// classify maps domain errors to a status and a stable error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, roster.ErrUnknownParticipant):
		return http.StatusBadRequest, "unknown_participant"
	case errors.Is(err, passcode.ErrNoRecipient):
		return http.StatusBadRequest, "no_recipient"
	case errors.Is(err, passcode.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, passcode.ErrDeliveryFailed):
		return http.StatusBadGateway, "delivery_failed"
	case errors.Is(err, session.ErrAlreadyAuthenticated):
		return http.StatusConflict, "already_authenticated"
	case errors.Is(err, session.ErrNoChallenge):
		return http.StatusConflict, "no_challenge"
	case errors.Is(err, session.ErrChallengeMismatch):
		return http.StatusUnauthorized, "invalid_code"
	case errors.Is(err, session.ErrChallengeExpired):
		return http.StatusUnauthorized, "code_expired"
	case errors.Is(err, session.ErrNotAuthenticated):
		return http.StatusUnauthorized, "not_authenticated"
	case errors.Is(err, rubric.ErrScoreCount), errors.Is(err, rubric.ErrUnknownMember):
		return http.StatusBadRequest, "invalid_evaluation"
	case errors.Is(err, rubric.ErrEmptyGroup):
		return http.StatusConflict, "empty_group"
	case errors.Is(err, reconcile.ErrSaveFailed):
		return http.StatusBadGateway, "save_failed"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
