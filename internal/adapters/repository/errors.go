package repository

import (
	"fmt"

	"github.com/okian/peereval/internal/domain/reconcile"
)

// Sentinel kinds for dataset storage. Both mark the dataset as corrupt so a
// reconcile refuses to overwrite it.
var (
	ErrMalformedRow = fmt.Errorf("%w: malformed dataset row", reconcile.ErrDatasetCorrupt)
	ErrBadHeader    = fmt.Errorf("%w: dataset header missing required columns", reconcile.ErrDatasetCorrupt)
)
