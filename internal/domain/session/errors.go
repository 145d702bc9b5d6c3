package session

import "errors"

// Sentinel kinds for guard transitions.
var (
	ErrNoChallenge          = errors.New("no passcode has been requested")
	ErrChallengeMismatch    = errors.New("invalid code")
	ErrChallengeExpired     = errors.New("code expired")
	ErrAlreadyAuthenticated = errors.New("session already authenticated")
	ErrNotAuthenticated     = errors.New("session not authenticated")
)
