package mailer

import "errors"

// Sentinel kinds for delivery.
var (
	ErrDial = errors.New("smtp connect failed")
	ErrAuth = errors.New("smtp authentication failed")
	ErrSend = errors.New("smtp send failed")
)
