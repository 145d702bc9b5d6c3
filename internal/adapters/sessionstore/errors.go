package sessionstore

import "errors"

// Sentinel kinds for session storage.
var (
	ErrEmptyID = errors.New("session id is empty")
	ErrCorrupt = errors.New("stored session is corrupt")
	ErrBackend = errors.New("session backend unavailable")
)
