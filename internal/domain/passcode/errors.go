package passcode

import "errors"

// Sentinel kinds for passcode issuance.
var (
	ErrDeliveryFailed = errors.New("passcode delivery failed")
	ErrRateLimited    = errors.New("passcode requested too often")
	ErrNoRecipient    = errors.New("participant has no email address")
)
