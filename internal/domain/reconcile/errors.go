package reconcile

import "errors"

// Sentinel kinds for reconciliation.
var (
	// ErrStoreUnauthorized is returned by stores when credentials are rejected.
	ErrStoreUnauthorized = errors.New("dataset store authentication failed")
	// ErrDatasetCorrupt is returned by stores that read rows they cannot decode.
	ErrDatasetCorrupt = errors.New("dataset contains undecodable rows")
	// ErrSaveFailed wraps every failed reconcile.
	ErrSaveFailed = errors.New("save failed")
)
