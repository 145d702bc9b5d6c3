package roster

import "errors"

// Sentinel kinds for roster loading and lookup.
var (
	ErrRosterUnavailable  = errors.New("roster unavailable")
	ErrDuplicateID        = errors.New("duplicate participant id")
	ErrMissingColumn      = errors.New("missing roster column")
	ErrUnknownParticipant = errors.New("unknown participant")
)
