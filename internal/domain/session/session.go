// Package session implements the identity guard that gates the evaluation form
// behind a passcode challenge.
//
// A Session is a plain value. Transitions take a session and return the next
// one; callers own storage. Resetting a session means replacing it with the
// zero value.
package session

import (
	"time"

	"github.com/okian/peereval/internal/domain/model"
)

// State is derived from which fields of a Session are set.
type State int

const (
	Anonymous State = iota
	ChallengeIssued
	Authenticated
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case ChallengeIssued:
		return "challenge_issued"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Session holds at most one pending challenge or one authenticated identity.
type Session struct {
	Identity  *model.Participant `json:"identity,omitempty"`
	Challenge *model.Challenge   `json:"challenge,omitempty"`
}

// State reports the guard state.
func (s Session) State() State {
	switch {
	case s.Identity != nil:
		return Authenticated
	case s.Challenge != nil:
		return ChallengeIssued
	default:
		return Anonymous
	}
}

// Begin stores ch as the pending challenge, replacing any earlier one.
func Begin(s Session, ch model.Challenge) (Session, error) {
	if s.State() == Authenticated {
		return s, ErrAlreadyAuthenticated
	}
	return Session{Challenge: &ch}, nil
}

// Verify promotes the challenge subject to the session identity when claimedID
// names that subject and code equals the pending code exactly.
//
// ttl <= 0 disables expiry. On any failure the session is returned unchanged;
// the pending code stays usable for further attempts.
func Verify(s Session, claimedID, code string, now time.Time, ttl time.Duration) (Session, error) {
	switch s.State() {
	case Authenticated:
		return s, ErrAlreadyAuthenticated
	case Anonymous:
		return s, ErrNoChallenge
	}

	ch := s.Challenge
	if claimedID != ch.Subject.ID || code != ch.Code {
		return s, ErrChallengeMismatch
	}
	if ttl > 0 && now.Sub(ch.IssuedAt) > ttl {
		return s, ErrChallengeExpired
	}

	who := ch.Subject
	return Session{Identity: &who}, nil
}

// Logout returns the zero session.
func Logout(Session) Session {
	return Session{}
}

// Identity returns the authenticated participant.
func Identity(s Session) (model.Participant, error) {
	if s.Identity == nil {
		return model.Participant{}, ErrNotAuthenticated
	}
	return *s.Identity, nil
}
